package eval

import (
	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/value"
)

// evalEquality handles ==, !=, ===, !==. Strict forms never coerce and
// require matching Kinds; loose forms coerce across number/string/bool/null
// per looseEqual. Strict and loose agree whenever both operands share a Kind.
func evalEquality(op expr.Operator, args []value.Value) (value.Value, error) {
	a, b := args[0], args[1]
	switch op {
	case expr.OpEq:
		return value.Bool(looseEqual(a, b)), nil
	case expr.OpNe:
		return value.Bool(!looseEqual(a, b)), nil
	case expr.OpStrictEq:
		return value.Bool(value.DeepEqual(a, b)), nil
	case expr.OpStrictNe:
		return value.Bool(!value.DeepEqual(a, b)), nil
	}
	return value.Null(), nil
}

// evalOrdering handles <, <=, >, >=, including the ternary "b between a and
// c" chain form (e.g. {"<": [1, x, 10]}). Any non-comparable pair in the
// chain makes the whole comparison false rather than an error, matching the
// operator catalog's "never fail" strict-vs-type-mismatch policy.
func evalOrdering(op expr.Operator, args []value.Value) (value.Value, error) {
	for i := 0; i+1 < len(args); i++ {
		cmp, ok := compareNumeric(args[i], args[i+1])
		if !ok {
			return value.Bool(false), nil
		}
		var pass bool
		switch op {
		case expr.OpLt:
			pass = cmp < 0
		case expr.OpLe:
			pass = cmp <= 0
		case expr.OpGt:
			pass = cmp > 0
		case expr.OpGe:
			pass = cmp >= 0
		}
		if !pass {
			return value.Bool(false), nil
		}
	}
	return value.Bool(true), nil
}
