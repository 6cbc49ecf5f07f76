package eval

import (
	"math"

	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/value"
)

// evalArith handles +, -, *, /, %, ^/**/pow. + and * are associative and
// arrive with a flattened child list from the compiler. Division and
// modulo by zero yield null (never infinity, never a Go panic) per §4.3.
func (r *Reducer) evalArith(op expr.Operator, args []value.Value) (value.Value, error) {
	switch op {
	case expr.OpAdd:
		sum := 0.0
		for _, a := range args {
			n, ok := toNumber(a)
			if !ok {
				return value.Null(), nil
			}
			sum += n
		}
		return r.safeNumber(sum, !math.IsNaN(sum) && !math.IsInf(sum, 0)), nil
	case expr.OpMul:
		prod := 1.0
		for _, a := range args {
			n, ok := toNumber(a)
			if !ok {
				return value.Null(), nil
			}
			prod *= n
		}
		return r.safeNumber(prod, !math.IsNaN(prod) && !math.IsInf(prod, 0)), nil
	case expr.OpSub:
		a, ok := toNumber(args[0])
		if !ok {
			return value.Null(), nil
		}
		if len(args) == 1 {
			return value.Number(-a), nil
		}
		b, ok := toNumber(args[1])
		if !ok {
			return value.Null(), nil
		}
		return value.Number(a - b), nil
	case expr.OpDiv:
		a, ok1 := toNumber(args[0])
		b, ok2 := toNumber(args[1])
		if !ok1 || !ok2 || b == 0 {
			return value.Null(), nil
		}
		return value.Number(a / b), nil
	case expr.OpMod:
		a, ok1 := toNumber(args[0])
		b, ok2 := toNumber(args[1])
		if !ok1 || !ok2 || b == 0 {
			return value.Null(), nil
		}
		return value.Number(math.Mod(a, b)), nil
	case expr.OpPow:
		a, ok1 := toNumber(args[0])
		b, ok2 := toNumber(args[1])
		if !ok1 || !ok2 {
			return value.Null(), nil
		}
		result := math.Pow(a, b)
		return r.safeNumber(result, !math.IsNaN(result) && !math.IsInf(result, 0)), nil
	}
	return value.Null(), nil
}

// evalMath handles abs, min, max, round (banker's), roundup/rounddown,
// ceiling/floor (optional significance argument), trunc, mround.
func (r *Reducer) evalMath(op expr.Operator, args []value.Value) (value.Value, error) {
	switch op {
	case expr.OpAbs:
		n, ok := toNumber(args[0])
		if !ok {
			return value.Null(), nil
		}
		return value.Number(math.Abs(n)), nil
	case expr.OpMin:
		return minMax(args, true)
	case expr.OpMax:
		return minMax(args, false)
	case expr.OpRound:
		n, ok := toNumber(args[0])
		if !ok {
			return value.Null(), nil
		}
		digits := 0.0
		if len(args) > 1 {
			digits, _ = toNumber(args[1])
		}
		scale := math.Pow(10, digits)
		return value.Number(math.RoundToEven(n*scale) / scale), nil
	case expr.OpRoundUp:
		n, ok := toNumber(args[0])
		if !ok {
			return value.Null(), nil
		}
		digits := 0.0
		if len(args) > 1 {
			digits, _ = toNumber(args[1])
		}
		scale := math.Pow(10, digits)
		scaled := n * scale
		if scaled >= 0 {
			return value.Number(math.Ceil(scaled) / scale), nil
		}
		return value.Number(math.Floor(scaled) / scale), nil
	case expr.OpRoundDown:
		n, ok := toNumber(args[0])
		if !ok {
			return value.Null(), nil
		}
		digits := 0.0
		if len(args) > 1 {
			digits, _ = toNumber(args[1])
		}
		scale := math.Pow(10, digits)
		return value.Number(math.Trunc(n*scale) / scale), nil
	case expr.OpCeiling:
		return roundToSignificance(args, math.Ceil)
	case expr.OpFloor:
		return roundToSignificance(args, math.Floor)
	case expr.OpTrunc:
		n, ok := toNumber(args[0])
		if !ok {
			return value.Null(), nil
		}
		return value.Number(math.Trunc(n)), nil
	case expr.OpMround:
		n, ok1 := toNumber(args[0])
		multiple, ok2 := toNumber(args[1])
		if !ok1 || !ok2 || multiple == 0 {
			return value.Null(), nil
		}
		return value.Number(math.Round(n/multiple) * multiple), nil
	}
	return value.Null(), nil
}

func roundToSignificance(args []value.Value, f func(float64) float64) (value.Value, error) {
	n, ok := toNumber(args[0])
	if !ok {
		return value.Null(), nil
	}
	significance := 1.0
	if len(args) > 1 {
		s, ok := toNumber(args[1])
		if ok && s != 0 {
			significance = s
		}
	}
	return value.Number(f(n/significance) * significance), nil
}

func minMax(args []value.Value, wantMin bool) (value.Value, error) {
	if len(args) == 0 {
		return value.Null(), nil
	}
	best, ok := toNumber(args[0])
	if !ok {
		return value.Null(), nil
	}
	for _, a := range args[1:] {
		n, ok := toNumber(a)
		if !ok {
			return value.Null(), nil
		}
		if (wantMin && n < best) || (!wantMin && n > best) {
			best = n
		}
	}
	return value.Number(best), nil
}
