package session

import "strings"

// ExprKind classifies an expression string by its dispatch prefix.
type ExprKind int

const (
	ExprSimple ExprKind = iota
	ExprNative
	ExprScript
)

const (
	prefixNative = "/nat "
	prefixScript = "/py "
	prefixSimple = "/se "
)

// ExpressionDispatcher classifies expression strings by prefix and strips
// the prefix before routing to the matching evaluator, per §4.4.
type ExpressionDispatcher struct{}

// NewExpressionDispatcher returns a dispatcher. It carries no state: prefix
// classification is pure, and preprocessing is delegated to the evaluator
// each kind routes to.
func NewExpressionDispatcher() *ExpressionDispatcher {
	return &ExpressionDispatcher{}
}

// Classify strips a known dispatch prefix and returns the remaining
// expression text along with its kind. Expressions with no recognized
// prefix default to Simple.
func (d *ExpressionDispatcher) Classify(expr string) (string, ExprKind) {
	switch {
	case strings.HasPrefix(expr, prefixNative):
		return strings.TrimPrefix(expr, prefixNative), ExprNative
	case strings.HasPrefix(expr, prefixScript):
		return strings.TrimPrefix(expr, prefixScript), ExprScript
	case strings.HasPrefix(expr, prefixSimple):
		return strings.TrimPrefix(expr, prefixSimple), ExprSimple
	default:
		return expr, ExprSimple
	}
}
