package handle

import "testing"

func TestCreateGetRoundTrip(t *testing.T) {
	tr := New()
	h := tr.Create(None, "locals", 42)

	v, ok := tr.Get(h)
	if !ok || v.(int) != 42 {
		t.Fatalf("Get(%d) = %v, %v; want 42, true", h, v, ok)
	}
}

func TestCreateDistinctHandlesForEqualKeys(t *testing.T) {
	tr := New()
	h1 := tr.Create(None, "same", "a")
	h2 := tr.Create(None, "same", "a")

	if h1 == h2 {
		t.Fatalf("expected distinct handles, got %d twice", h1)
	}
}

func TestResetInvalidatesHandles(t *testing.T) {
	tr := New()
	h := tr.Create(None, "x", 1)

	tr.Reset()

	if _, ok := tr.Get(h); ok {
		t.Fatalf("expected handle %d to miss after Reset", h)
	}

	h2 := tr.Create(None, "y", 2)
	if h2 != 1 {
		t.Fatalf("expected counter to restart at 1 after Reset, got %d", h2)
	}
}

func TestGetFullInfo(t *testing.T) {
	tr := New()
	parent := tr.Create(None, "frame", nil)
	child := tr.Create(parent, "locals", "value")

	p, key, value, ok := tr.GetFullInfo(child)
	if !ok || p != parent || key != "locals" || value.(string) != "value" {
		t.Fatalf("GetFullInfo(%d) = %v, %v, %v, %v", child, p, key, value, ok)
	}
}

func TestGetNoneHandle(t *testing.T) {
	tr := New()
	if _, ok := tr.Get(None); ok {
		t.Fatalf("Get(None) should never resolve")
	}
}
