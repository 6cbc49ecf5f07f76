package expr

// peephole applies a small set of local tree rewrites that fold_constants
// cannot: simplifications that depend on operator identities rather than
// pure evaluation (double negation, a literal-condition branch, a
// single-operand associative wrapper).
func peephole(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	for i, c := range e.Children {
		e.Children[i] = peephole(c)
	}
	if e.Default != nil {
		e.Default = peephole(e.Default)
	}
	if e.Kind != KOp {
		return e
	}

	switch e.Op {
	case OpNot:
		if inner := e.Children[0]; inner.Kind == KOp && inner.Op == OpNot {
			return inner.Children[0]
		}
	case OpIf:
		if cond := e.Children[0]; cond.Kind == KBool && len(e.Children) >= 3 {
			if cond.Bool {
				return e.Children[1]
			}
			return e.Children[2]
		}
	case OpCat:
		// Only when the lone child is statically known to already be a
		// string: cat's job is coercion, so cat([5]) must stay a cat
		// node and produce "5" at eval time, not collapse to the bare
		// Number 5.
		if len(e.Children) == 1 && e.Children[0].Kind == KString {
			return e.Children[0]
		}
	}
	return e
}
