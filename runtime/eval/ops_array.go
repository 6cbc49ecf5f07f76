package eval

import (
	"strings"

	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/value"
)

type allSomeNoneMode int

const (
	allMode allSomeNoneMode = iota
	someMode
	noneMode
)

func asArray(v value.Value) []value.Value {
	arr, ok := v.AsArray()
	if !ok {
		return nil
	}
	return arr
}

// evalMap evaluates the first operand to an array, then the second
// operand once per element with that element bound as the loop-local
// current value ({"var": ""}).
func (r *Reducer) evalMap(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	if len(e.Children) != 2 {
		return value.Null(), nil
	}
	source, err := r.eval(e.Children[0], env, depth+1)
	if err != nil {
		return value.Null(), err
	}
	items := asArray(source)
	out := make([]value.Value, len(items))
	for i, item := range items {
		env.pushLoop(LoopFrame{Current: item, Iteration: float64(i)})
		v, err := r.eval(e.Children[1], env, depth+1)
		env.popLoop()
		if err != nil {
			return value.Null(), err
		}
		out[i] = v
	}
	return value.ArrayFrom(out), nil
}

func (r *Reducer) evalFilter(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	if len(e.Children) != 2 {
		return value.Null(), nil
	}
	source, err := r.eval(e.Children[0], env, depth+1)
	if err != nil {
		return value.Null(), err
	}
	items := asArray(source)
	var out []value.Value
	for i, item := range items {
		env.pushLoop(LoopFrame{Current: item, Iteration: float64(i)})
		keep, err := r.eval(e.Children[1], env, depth+1)
		env.popLoop()
		if err != nil {
			return value.Null(), err
		}
		if keep.Truthy() {
			out = append(out, item)
		}
	}
	return value.ArrayFrom(out), nil
}

// evalReduce folds over the array with {"var":"accumulator"} and
// {"var":"current"} bound in the closure body. The optional third operand
// is the initial accumulator; absent, it defaults to null.
func (r *Reducer) evalReduce(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	if len(e.Children) < 2 {
		return value.Null(), nil
	}
	source, err := r.eval(e.Children[0], env, depth+1)
	if err != nil {
		return value.Null(), err
	}
	acc := value.Null()
	if len(e.Children) > 2 {
		acc, err = r.eval(e.Children[2], env, depth+1)
		if err != nil {
			return value.Null(), err
		}
	}
	for i, item := range asArray(source) {
		env.pushLoop(LoopFrame{Current: item, Accumulator: acc, Iteration: float64(i)})
		next, err := r.eval(e.Children[1], env, depth+1)
		env.popLoop()
		if err != nil {
			return value.Null(), err
		}
		acc = next
	}
	return acc, nil
}

// evalAllSomeNone shares one implementation for all/some/none: all() on an
// empty sequence is true, some() is false, none() is true, matching §8's
// boundary behaviors.
func (r *Reducer) evalAllSomeNone(e *expr.Expr, env *Env, depth int, mode allSomeNoneMode) (value.Value, error) {
	if len(e.Children) != 2 {
		return value.Null(), nil
	}
	source, err := r.eval(e.Children[0], env, depth+1)
	if err != nil {
		return value.Null(), err
	}
	items := asArray(source)
	if len(items) == 0 {
		switch mode {
		case allMode:
			return value.Bool(true), nil
		case someMode:
			return value.Bool(false), nil
		default:
			return value.Bool(true), nil
		}
	}
	for i, item := range items {
		env.pushLoop(LoopFrame{Current: item, Iteration: float64(i)})
		v, err := r.eval(e.Children[1], env, depth+1)
		env.popLoop()
		if err != nil {
			return value.Null(), err
		}
		switch mode {
		case allMode:
			if !v.Truthy() {
				return value.Bool(false), nil
			}
		case someMode:
			if v.Truthy() {
				return value.Bool(true), nil
			}
		case noneMode:
			if v.Truthy() {
				return value.Bool(false), nil
			}
		}
	}
	switch mode {
	case allMode:
		return value.Bool(true), nil
	case someMode:
		return value.Bool(false), nil
	default:
		return value.Bool(true), nil
	}
}

// evalFor implements a bounded counting loop: for(count, body) evaluates
// body once per iteration 0..count-1 with {"var": "$iteration"} bound,
// collecting the results into an array.
func (r *Reducer) evalFor(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	if len(e.Children) != 2 {
		return value.Null(), nil
	}
	countVal, err := r.eval(e.Children[0], env, depth+1)
	if err != nil {
		return value.Null(), err
	}
	count, ok := toNumber(countVal)
	if !ok || count <= 0 {
		return value.ArrayFrom(nil), nil
	}
	n := int(count)
	out := make([]value.Value, n)
	for i := 0; i < n; i++ {
		env.pushLoop(LoopFrame{Iteration: float64(i)})
		v, err := r.eval(e.Children[1], env, depth+1)
		env.popLoop()
		if err != nil {
			return value.Null(), err
		}
		out[i] = v
	}
	return value.ArrayFrom(out), nil
}

// evalArrayOp handles merge, in, sum, multiplies, divides — operators that
// take already-evaluated operands (no closures, no loop-local binding).
func (r *Reducer) evalArrayOp(op expr.Operator, args []value.Value) (value.Value, error) {
	switch op {
	case expr.OpMerge:
		var out []value.Value
		for _, a := range args {
			if arr, ok := a.AsArray(); ok {
				out = append(out, arr...)
			} else {
				out = append(out, a)
			}
		}
		return value.ArrayFrom(out), nil
	case expr.OpIn:
		if len(args) != 2 {
			return value.Bool(false), nil
		}
		needle := args[0]
		switch args[1].Kind() {
		case value.KindArray:
			for _, item := range asArray(args[1]) {
				if looseEqual(needle, item) {
					return value.Bool(true), nil
				}
			}
			return value.Bool(false), nil
		case value.KindString:
			haystack, _ := args[1].AsString()
			n, ok := needle.AsString()
			if !ok {
				return value.Bool(false), nil
			}
			return value.Bool(strings.Contains(haystack, n)), nil
		default:
			return value.Bool(false), nil
		}
	case expr.OpSum:
		var items []value.Value
		if len(args) == 1 {
			items = asArray(args[0])
		} else {
			items = args
		}
		sum := 0.0
		for _, a := range items {
			n, ok := toNumber(a)
			if !ok {
				return value.Null(), nil
			}
			sum += n
		}
		return value.Number(sum), nil
	case expr.OpMultiplies:
		items := asArray(args[0])
		if len(items) == 0 {
			return value.Null(), nil
		}
		prod, ok := toNumber(items[0])
		if !ok {
			return value.Null(), nil
		}
		for _, a := range items[1:] {
			n, ok := toNumber(a)
			if !ok {
				return value.Null(), nil
			}
			prod *= n
		}
		return value.Number(prod), nil
	case expr.OpDivides:
		items := asArray(args[0])
		if len(items) == 0 {
			return value.Null(), nil
		}
		quot, ok := toNumber(items[0])
		if !ok {
			return value.Null(), nil
		}
		for _, a := range items[1:] {
			n, ok := toNumber(a)
			if !ok || n == 0 {
				return value.Null(), nil
			}
			quot /= n
		}
		return value.Number(quot), nil
	}
	return value.Null(), nil
}
