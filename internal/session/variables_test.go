package session

import (
	"testing"

	"github.com/lldb-tools/lldb-dap/internal/lldbapi"
)

func TestComposeEvalName(t *testing.T) {
	cases := []struct{ prefix, suffix, want string }{
		{"", "s", "s"},
		{"p", "", "p"},
		{"p", "[0]", "p[0]"},
		{"a", "b", "a.b"},
	}
	for _, c := range cases {
		if got := ComposeEvalName(c.prefix, c.suffix); got != c.want {
			t.Errorf("ComposeEvalName(%q,%q) = %q, want %q", c.prefix, c.suffix, got, c.want)
		}
	}
}

func TestParseFormatSuffix(t *testing.T) {
	cases := []struct {
		in       string
		wantExpr string
		wantFmt  lldbapi.Format
		wantOK   bool
	}{
		{"expr,h", "expr", lldbapi.FormatHex, true},
		{"expr", "expr", 0, false},
		{"foo,z", "foo,z", 0, false},
	}
	for _, c := range cases {
		expr, format, ok := ParseFormatSuffix(c.in)
		if expr != c.wantExpr || ok != c.wantOK || (ok && format != c.wantFmt) {
			t.Errorf("ParseFormatSuffix(%q) = (%q,%v,%v), want (%q,%v,%v)", c.in, expr, format, ok, c.wantExpr, c.wantFmt, c.wantOK)
		}
	}
}

type fakeValue struct {
	name      string
	typeName  string
	value     string
	hasValue  bool
	summary   string
	hasSum    bool
	numKids   int
	children  []lldbapi.Value
	synthetic bool
}

func (v *fakeValue) Name() string     { return v.name }
func (v *fakeValue) TypeName() string { return v.typeName }
func (v *fakeValue) Summary() (string, bool) {
	return v.summary, v.hasSum
}
func (v *fakeValue) ValueString() (string, bool)  { return v.value, v.hasValue }
func (v *fakeValue) IsPointer() bool              { return false }
func (v *fakeValue) IsReference() bool            { return false }
func (v *fakeValue) Unsigned() (uint64, bool)     { return 0, false }
func (v *fakeValue) IsSynthetic() bool            { return v.synthetic }
func (v *fakeValue) NonSyntheticValue() lldbapi.Value { return v }
func (v *fakeValue) Dereference() (lldbapi.Value, error) {
	return v, nil
}
func (v *fakeValue) NumChildren() int { return v.numKids }
func (v *fakeValue) Child(i int) lldbapi.Value {
	return v.children[i]
}
func (v *fakeValue) SetFormat(f lldbapi.Format)                   {}
func (v *fakeValue) EvaluateExpressionPath() (string, bool)       { return v.name, true }
func (v *fakeValue) SetValueFromString(s string) error            { return nil }

func TestContainerSummaryEmpty(t *testing.T) {
	settings := &DisplaySettings{ContainerSummary: true}
	r := &VariableRenderer{settings: settings}

	v := &fakeValue{numKids: 0}
	if got := r.containerSummary(v); got != "{...}" {
		t.Errorf("containerSummary() = %q, want %q", got, "{...}")
	}
}

func TestContainerSummaryWithChildren(t *testing.T) {
	settings := &DisplaySettings{ContainerSummary: true}
	r := &VariableRenderer{settings: settings}

	v := &fakeValue{
		numKids: 2,
		children: []lldbapi.Value{
			&fakeValue{name: "a", value: "1", hasValue: true},
			&fakeValue{name: "[0]", value: "x", hasValue: true},
		},
	}
	got := r.containerSummary(v)
	want := "{a:1, x}"
	if got != want {
		t.Errorf("containerSummary() = %q, want %q", got, want)
	}
}

func TestGetVarValueStrNotAvailable(t *testing.T) {
	settings := &DisplaySettings{}
	r := &VariableRenderer{settings: settings}

	v := &fakeValue{}
	if got := r.GetVarValueStr(v, lldbapi.FormatDefault, false); got != "<not available>" {
		t.Errorf("GetVarValueStr() = %q, want %q", got, "<not available>")
	}
}
