package eval

import (
	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/value"
)

// rowField reads a named field off a row value, tolerating a row that is
// not an object (returns null/not-found).
func rowField(row value.Value, field string) (value.Value, bool) {
	obj, ok := row.AsObject()
	if !ok {
		return value.Null(), false
	}
	return obj.Get(field)
}

// evalTableOp handles VALUEAT, MAXAT, INDEXAT, MATCH, MATCHRANGE, CHOOSE —
// the table operators whose operands are all plain values (no per-row
// closures). FINDINDEX is handled separately in evalFindIndex since its
// condition list may contain sub-expressions evaluated per row.
func (r *Reducer) evalTableOp(op expr.Operator, args []value.Value) (value.Value, error) {
	switch op {
	case expr.OpValueAt:
		return evalValueAt(args)
	case expr.OpMaxAt:
		return evalMaxAt(args)
	case expr.OpIndexAt:
		return evalIndexAt(args)
	case expr.OpMatch, expr.OpChoose:
		return evalMatchChoose(args)
	case expr.OpMatchRange:
		return evalMatchRange(args)
	}
	return value.Null(), nil
}

// evalValueAt returns the row (or, with a column argument, that column's
// value) at idx, or null on a negative, fractional-out-of-range, or
// out-of-bounds index — including the table generator's -1 sentinel for
// "no such row".
func evalValueAt(args []value.Value) (value.Value, error) {
	table := asArray(args[0])
	idxNum, ok := toNumber(args[1])
	if !ok {
		return value.Null(), nil
	}
	idx := int(idxNum)
	if idx < 0 || idx >= len(table) {
		return value.Null(), nil
	}
	row := table[idx]
	if len(args) > 2 {
		col, ok := args[2].AsString()
		if !ok {
			return value.Null(), nil
		}
		v, ok := rowField(row, col)
		if !ok {
			return value.Null(), nil
		}
		return v, nil
	}
	return row, nil
}

// evalMaxAt returns the table's last valid index, or -1 for an empty or
// non-array table — the same sentinel VALUEAT treats as "no row".
func evalMaxAt(args []value.Value) (value.Value, error) {
	table := asArray(args[0])
	return value.Number(float64(len(table) - 1)), nil
}

// evalIndexAt returns the index of the matching row, or -1 when none
// matches. range=false (or absent) requires field == v; range=true assumes
// the table is sorted ascending by field and returns the first row whose
// field is <= v.
func evalIndexAt(args []value.Value) (value.Value, error) {
	v := args[0]
	table := asArray(args[1])
	field, ok := args[2].AsString()
	if !ok {
		return value.Number(-1), nil
	}
	rangeMode := len(args) > 3 && args[3].Truthy()

	for i, row := range table {
		fv, ok := rowField(row, field)
		if !ok {
			continue
		}
		if rangeMode {
			cmp, ok := compareNumeric(fv, v)
			if ok && cmp <= 0 {
				return value.Number(float64(i)), nil
			}
		} else if looseEqual(fv, v) {
			return value.Number(float64(i)), nil
		}
	}
	return value.Number(-1), nil
}

// evalMatchChoose implements MATCH (first match) and CHOOSE (per spec.md's
// §9 deviation decision, also first match for determinism). args is
// [table, v1, field1, v2, field2, ...]; a row matches when every field
// equals its paired value.
func evalMatchChoose(args []value.Value) (value.Value, error) {
	if len(args) < 3 {
		return value.Null(), nil
	}
	table := asArray(args[0])
	pairs := args[1:]
rows:
	for _, row := range table {
		for i := 0; i+1 < len(pairs); i += 2 {
			want, field := pairs[i], pairs[i+1]
			fieldName, ok := field.AsString()
			if !ok {
				continue rows
			}
			fv, ok := rowField(row, fieldName)
			if !ok || !looseEqual(fv, want) {
				continue rows
			}
		}
		return row, nil
	}
	return value.Null(), nil
}

// evalMatchRange returns the first row where min_field <= v <= max_field.
func evalMatchRange(args []value.Value) (value.Value, error) {
	table := asArray(args[0])
	minField, ok1 := args[1].AsString()
	maxField, ok2 := args[2].AsString()
	v := args[3]
	if !ok1 || !ok2 {
		return value.Null(), nil
	}
	for _, row := range table {
		minVal, ok := rowField(row, minField)
		if !ok {
			continue
		}
		maxVal, ok := rowField(row, maxField)
		if !ok {
			continue
		}
		lo, ok1 := compareNumeric(minVal, v)
		hi, ok2 := compareNumeric(v, maxVal)
		if ok1 && ok2 && lo <= 0 && hi <= 0 {
			return row, nil
		}
	}
	return value.Null(), nil
}

// evalFindIndex returns the index of the first row satisfying every
// condition (AND), or -1. Each condition in e.Children[1:] is one of: a
// string literal (row.field must be truthy), a triplet array [op, value,
// field], or an arbitrary sub-expression evaluated with the row bound as
// the loop-local current value.
func (r *Reducer) evalFindIndex(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	if len(e.Children) < 1 {
		return value.Number(-1), nil
	}
	tableVal, err := r.eval(e.Children[0], env, depth+1)
	if err != nil {
		return value.Null(), err
	}
	table := asArray(tableVal)
	conditions := e.Children[1:]

rows:
	for i, row := range table {
		for _, cond := range conditions {
			ok, err := r.evalFindIndexCondition(cond, row, env, depth)
			if err != nil {
				return value.Null(), err
			}
			if !ok {
				continue rows
			}
		}
		return value.Number(float64(i)), nil
	}
	return value.Number(-1), nil
}

func (r *Reducer) evalFindIndexCondition(cond *expr.Expr, row value.Value, env *Env, depth int) (bool, error) {
	// String-literal shorthand: row.field must be truthy.
	if cond.Kind == expr.KString {
		fv, ok := rowField(row, cond.Str)
		return ok && fv.Truthy(), nil
	}
	// Triplet shorthand: ["op", value, "field"].
	if cond.Kind == expr.KArrayLit && len(cond.Children) == 3 && cond.Children[0].Kind == expr.KString {
		opStr := cond.Children[0].Str
		valExpr := cond.Children[1]
		fieldExpr := cond.Children[2]
		if fieldExpr.Kind != expr.KString {
			return false, nil
		}
		want, err := r.eval(valExpr, env, depth+1)
		if err != nil {
			return false, err
		}
		fv, ok := rowField(row, fieldExpr.Str)
		if !ok {
			return false, nil
		}
		return compareByOp(opStr, fv, want), nil
	}
	// General sub-expression: evaluated with the row bound as current.
	env.pushLoop(LoopFrame{Current: row})
	v, err := r.eval(cond, env, depth+1)
	env.popLoop()
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

func compareByOp(op string, a, b value.Value) bool {
	switch op {
	case "==":
		return looseEqual(a, b)
	case "!=":
		return !looseEqual(a, b)
	case "===":
		return value.DeepEqual(a, b)
	case "!==":
		return !value.DeepEqual(a, b)
	case "<", "<=", ">", ">=":
		cmp, ok := compareNumeric(a, b)
		if !ok {
			return false
		}
		switch op {
		case "<":
			return cmp < 0
		case "<=":
			return cmp <= 0
		case ">":
			return cmp > 0
		default:
			return cmp >= 0
		}
	default:
		return false
	}
}
