package expr

import "github.com/opal-lang/formeval/core/path"

// loopLocalNames are path top-level segments bound by a map/filter/reduce
// closure rather than read from tracked data; they must never appear in a
// dependency graph read-set.
var loopLocalNames = map[string]bool{
	"":            true, // the bare "var": "" current-item reference
	"accumulator": true,
	"current":     true,
	"$iteration":  true,
	"self":        true, // the table being generated, read by VALUEAT/MAXAT self-references
}

// ReadSet returns the deduplicated set of data paths an expression reads,
// excluding loop-local variables. This is the seed the dependency graph
// (runtime/graph) uses to order expression sites into batches.
func ReadSet(e *Expr) []*path.Path {
	seen := make(map[string]*path.Path)
	walk(e, func(n *Expr) {
		if n.Kind != KVar && n.Kind != KRef {
			return
		}
		if n.Path == nil || loopLocalNames[n.Path.TopLevel()] {
			return
		}
		seen[n.Path.String()] = n.Path
	})
	out := make([]*path.Path, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	return out
}

// ForwardRef describes a VALUEAT(self, $iteration+k, col) style reference
// into a later row of the same table column, detected at compile time so
// the two-phase table generator (runtime/table) knows which columns need a
// backward pass.
type ForwardRef struct {
	Offset int // k, the positive row offset from the current iteration
	Column *Expr
}

// DetectForwardRef inspects a VALUEAT call's row-index operand and reports
// whether it is a forward self-reference of the form "$iteration + k" for
// a positive integer literal k. Any other row-index shape (a plain
// "$iteration", a backward "$iteration - k", or a constant index) is not a
// forward reference and is left to ordinary evaluation.
func DetectForwardRef(e *Expr) (ForwardRef, bool) {
	if e.Kind != KOp || e.Op != OpValueAt || len(e.Children) < 2 {
		return ForwardRef{}, false
	}
	rowExpr := e.Children[1]
	if rowExpr.Kind != KOp || rowExpr.Op != OpAdd || len(rowExpr.Children) != 2 {
		return ForwardRef{}, false
	}
	a, b := rowExpr.Children[0], rowExpr.Children[1]
	iter, lit := a, b
	if !isIterationVar(a) {
		iter, lit = b, a
	}
	if !isIterationVar(iter) || lit.Kind != KNumber || lit.Num <= 0 {
		return ForwardRef{}, false
	}
	var col *Expr
	if len(e.Children) > 2 {
		col = e.Children[2]
	}
	return ForwardRef{Offset: int(lit.Num), Column: col}, true
}

func isIterationVar(e *Expr) bool {
	return e.Kind == KVar && e.Path != nil && e.Path.TopLevel() == "$iteration"
}

// HasForwardRef reports whether any node in the tree is a forward
// self-reference per DetectForwardRef. Used by the schema analyzer (C7) to
// classify a table column into the forward or non-forward group without
// duplicating the tree walk itself.
func HasForwardRef(e *Expr) bool {
	found := false
	walk(e, func(n *Expr) {
		if found {
			return
		}
		if _, ok := DetectForwardRef(n); ok {
			found = true
		}
	})
	return found
}
