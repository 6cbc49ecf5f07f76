package eval

import (
	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/value"
)

// evalAnd short-circuits on the first falsy operand, returning that
// operand (not necessarily a bool) per JSON-Logic's value-passthrough
// semantics; an empty and() is true.
func (r *Reducer) evalAnd(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	var last value.Value = value.Bool(true)
	for _, c := range e.Children {
		v, err := r.eval(c, env, depth+1)
		if err != nil {
			return value.Null(), err
		}
		if !v.Truthy() {
			return v, nil
		}
		last = v
	}
	return last, nil
}

// evalOr short-circuits on the first truthy operand; an empty or() is false.
func (r *Reducer) evalOr(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	var last value.Value = value.Bool(false)
	for _, c := range e.Children {
		v, err := r.eval(c, env, depth+1)
		if err != nil {
			return value.Null(), err
		}
		if v.Truthy() {
			return v, nil
		}
		last = v
	}
	return last, nil
}

// evalIf implements the else-if chain form: [c1, v1, c2, v2, ..., default].
// A trailing unpaired value is the default branch; an if() with no
// trailing default and every condition false yields null.
func (r *Reducer) evalIf(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	children := e.Children
	i := 0
	for ; i+1 < len(children); i += 2 {
		cond, err := r.eval(children[i], env, depth+1)
		if err != nil {
			return value.Null(), err
		}
		if cond.Truthy() {
			return r.eval(children[i+1], env, depth+1)
		}
	}
	if i < len(children) {
		return r.eval(children[i], env, depth+1)
	}
	return value.Null(), nil
}

// evalIfNull evaluates operands left to right, returning the first that is
// not null (the last operand is returned even if also null).
func (r *Reducer) evalIfNull(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	var last value.Value
	for i, c := range e.Children {
		v, err := r.eval(c, env, depth+1)
		if err != nil {
			return value.Null(), err
		}
		if !v.IsNull() || i == len(e.Children)-1 {
			return v, nil
		}
		last = v
	}
	return last, nil
}

func evalNot(args []value.Value) (value.Value, error) {
	return value.Bool(!args[0].Truthy()), nil
}

func evalXor(args []value.Value) (value.Value, error) {
	return value.Bool(args[0].Truthy() != args[1].Truthy()), nil
}

// evalIsEmpty reports whether a string/array/object has zero length, or
// whether a scalar is falsy.
func evalIsEmpty(args []value.Value) (value.Value, error) {
	v := args[0]
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return value.Bool(s == ""), nil
	case value.KindArray, value.KindObject:
		return value.Bool(v.Len() == 0), nil
	default:
		return value.Bool(!v.Truthy()), nil
	}
}

func evalEmpty(args []value.Value) (value.Value, error) {
	return evalIsEmpty(args)
}
