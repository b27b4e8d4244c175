package script

import "testing"

func TestEvaluateConditionTruthy(t *testing.T) {
	i := New()
	defer i.Close()

	stop, err := i.EvaluateCondition("count > 3", map[string]string{"count": "5"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !stop {
		t.Fatalf("expected condition to be true")
	}
}

func TestEvaluateConditionFalse(t *testing.T) {
	i := New()
	defer i.Close()

	stop, err := i.EvaluateCondition("count > 3", map[string]string{"count": "1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stop {
		t.Fatalf("expected condition to be false")
	}
}

func TestEvaluateConditionErrorStops(t *testing.T) {
	i := New()
	defer i.Close()

	stop, err := i.EvaluateCondition("this is not lua (((", nil)
	if err == nil {
		t.Fatalf("expected a parse error")
	}
	if !stop {
		t.Fatalf("evaluation errors must fail safe to stop=true")
	}
}

func TestEvaluateExpression(t *testing.T) {
	i := New()
	defer i.Close()

	result, err := i.EvaluateExpression("x + 1", map[string]string{"x": "41"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "42" {
		t.Fatalf("got %q, want %q", result, "42")
	}
}
