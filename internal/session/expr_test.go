package session

import "testing"

func TestExpressionDispatcherClassify(t *testing.T) {
	d := NewExpressionDispatcher()

	cases := []struct {
		in       string
		wantExpr string
		wantKind ExprKind
	}{
		{"/nat x", "x", ExprNative},
		{"/py x", "x", ExprScript},
		{"/se x", "x", ExprSimple},
		{"x", "x", ExprSimple},
	}

	for _, c := range cases {
		gotExpr, gotKind := d.Classify(c.in)
		if gotExpr != c.wantExpr || gotKind != c.wantKind {
			t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", c.in, gotExpr, gotKind, c.wantExpr, c.wantKind)
		}
	}
}
