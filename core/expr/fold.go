package expr

import (
	"math"
	"strconv"

	"github.com/opal-lang/formeval/core/value"
)

// foldableOps are total, environment-independent operators: given
// all-literal operands, they can be evaluated once at compile time rather
// than on every evaluation. Operators that read the clock (today, now),
// read tracked data or table context (valueat and friends), or take
// closures over loop-local variables (map, filter, reduce, ...) are
// deliberately excluded.
var foldableOps = map[Operator]bool{
	OpAnd: true, OpOr: true, OpNot: true, OpXor: true,
	OpEq: true, OpStrictEq: true, OpNe: true, OpStrictNe: true,
	OpLt: true, OpLe: true, OpGt: true, OpGe: true,
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true, OpMod: true,
	OpAbs: true, OpMin: true, OpMax: true,
	OpCat: true, OpLen: true,
}

// foldConstants rewrites operator nodes whose every operand is already a
// literal (and whose operator is total) into a single literal node,
// post-order so folding propagates bottom-up through a tree like
// (+ 1 (* 2 3)).
func foldConstants(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	for i, c := range e.Children {
		e.Children[i] = foldConstants(c)
	}
	if e.Default != nil {
		e.Default = foldConstants(e.Default)
	}
	if e.Kind != KOp || !foldableOps[e.Op] {
		return e
	}
	args := make([]value.Value, len(e.Children))
	for i, c := range e.Children {
		v, ok := literalValue(c)
		if !ok {
			return e
		}
		args[i] = v
	}
	result, ok := evalConstOp(e.Op, args)
	if !ok {
		return e
	}
	return literalExpr(result)
}

func literalValue(e *Expr) (value.Value, bool) {
	switch e.Kind {
	case KNull:
		return value.Null(), true
	case KBool:
		return value.Bool(e.Bool), true
	case KNumber:
		return value.Number(e.Num), true
	case KString:
		return value.String(e.Str), true
	case KArrayLit:
		items := make([]value.Value, len(e.Children))
		for i, c := range e.Children {
			v, ok := literalValue(c)
			if !ok {
				return value.Null(), false
			}
			items[i] = v
		}
		return value.ArrayFrom(items), true
	default:
		return value.Null(), false
	}
}

func literalExpr(v value.Value) *Expr {
	switch v.Kind() {
	case value.KindNull:
		return &Expr{Kind: KNull}
	case value.KindBool:
		b, _ := v.AsBool()
		return &Expr{Kind: KBool, Bool: b}
	case value.KindNumber:
		n, _ := v.AsNumber()
		return &Expr{Kind: KNumber, Num: n}
	case value.KindString:
		s, _ := v.AsString()
		return &Expr{Kind: KString, Str: s}
	case value.KindArray:
		arr, _ := v.AsArray()
		children := make([]*Expr, len(arr))
		for i, item := range arr {
			children[i] = literalExpr(item)
		}
		return &Expr{Kind: KArrayLit, Children: children}
	default:
		return &Expr{Kind: KNull}
	}
}

// evalConstOp evaluates a foldable operator over literal operands. It
// mirrors a small, deliberately narrow slice of runtime/eval's semantics:
// only the operators in foldableOps ever reach here, and those never
// depend on tracked-data state or the loop environment.
func evalConstOp(op Operator, args []value.Value) (value.Value, bool) {
	switch op {
	case OpNot:
		return value.Bool(!args[0].Truthy()), true
	case OpAnd:
		for _, a := range args {
			if !a.Truthy() {
				return a, true
			}
		}
		if len(args) == 0 {
			return value.Bool(true), true
		}
		return args[len(args)-1], true
	case OpOr:
		for _, a := range args {
			if a.Truthy() {
				return a, true
			}
		}
		if len(args) == 0 {
			return value.Bool(false), true
		}
		return args[len(args)-1], true
	case OpXor:
		return value.Bool(args[0].Truthy() != args[1].Truthy()), true
	case OpEq:
		return value.Bool(looseEqual(args[0], args[1])), true
	case OpNe:
		return value.Bool(!looseEqual(args[0], args[1])), true
	case OpStrictEq:
		return value.Bool(value.DeepEqual(args[0], args[1])), true
	case OpStrictNe:
		return value.Bool(!value.DeepEqual(args[0], args[1])), true
	case OpLt, OpLe, OpGt, OpGe:
		return compareChain(op, args)
	case OpAdd:
		sum := 0.0
		for _, a := range args {
			n, ok := a.AsNumber()
			if !ok {
				return value.Null(), false
			}
			sum += n
		}
		return value.Number(sum), true
	case OpMul:
		prod := 1.0
		for _, a := range args {
			n, ok := a.AsNumber()
			if !ok {
				return value.Null(), false
			}
			prod *= n
		}
		return value.Number(prod), true
	case OpSub:
		a, ok := args[0].AsNumber()
		if !ok {
			return value.Null(), false
		}
		if len(args) == 1 {
			return value.Number(-a), true
		}
		b, ok := args[1].AsNumber()
		if !ok {
			return value.Null(), false
		}
		return value.Number(a - b), true
	case OpDiv:
		a, ok1 := args[0].AsNumber()
		b, ok2 := args[1].AsNumber()
		if !ok1 || !ok2 || b == 0 {
			return value.Null(), ok1 && ok2
		}
		return value.Number(a / b), true
	case OpMod:
		a, ok1 := args[0].AsNumber()
		b, ok2 := args[1].AsNumber()
		if !ok1 || !ok2 || b == 0 {
			return value.Null(), ok1 && ok2
		}
		return value.Number(math.Mod(a, b)), true
	case OpAbs:
		n, ok := args[0].AsNumber()
		if !ok {
			return value.Null(), false
		}
		if n < 0 {
			n = -n
		}
		return value.Number(n), true
	case OpMin:
		return minMax(args, true)
	case OpMax:
		return minMax(args, false)
	case OpCat:
		out := ""
		for _, a := range args {
			s, ok := a.AsString()
			if !ok {
				return value.Null(), false
			}
			out += s
		}
		return value.String(out), true
	case OpLen:
		switch args[0].Kind() {
		case value.KindString:
			s, _ := args[0].AsString()
			return value.Number(float64(len([]rune(s)))), true
		default:
			n := args[0].Len()
			if n < 0 {
				return value.Null(), false
			}
			return value.Number(float64(n)), true
		}
	}
	return value.Null(), false
}

func minMax(args []value.Value, wantMin bool) (value.Value, bool) {
	if len(args) == 0 {
		return value.Null(), false
	}
	best, ok := args[0].AsNumber()
	if !ok {
		return value.Null(), false
	}
	for _, a := range args[1:] {
		n, ok := a.AsNumber()
		if !ok {
			return value.Null(), false
		}
		if (wantMin && n < best) || (!wantMin && n > best) {
			best = n
		}
	}
	return value.Number(best), true
}

func compareChain(op Operator, args []value.Value) (value.Value, bool) {
	for i := 0; i+1 < len(args); i++ {
		a, ok1 := args[i].AsNumber()
		b, ok2 := args[i+1].AsNumber()
		if !ok1 || !ok2 {
			return value.Null(), false
		}
		var ok bool
		switch op {
		case OpLt:
			ok = a < b
		case OpLe:
			ok = a <= b
		case OpGt:
			ok = a > b
		case OpGe:
			ok = a >= b
		}
		if !ok {
			return value.Bool(false), true
		}
	}
	return value.Bool(true), true
}

// looseEqual mirrors runtime/eval/coerce.go's looseEqual exactly: matching
// kinds compare structurally; null equals only null; otherwise both sides
// coerce to number (with booleans as 0/1 and the empty string as 0) and
// compare numerically.
// core/expr cannot import runtime/eval (core has no dependency on runtime),
// so this is a deliberate duplicate — folding must agree with the runtime
// evaluator bit-for-bit, or a compiled constant like {"==": [0, false]}
// would fold to a different answer than an unfoldable copy of the same
// expression would evaluate to.
func looseEqual(a, b value.Value) bool {
	if a.Kind() == b.Kind() {
		return value.DeepEqual(a, b)
	}
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	an, aok := foldToNumber(a)
	bn, bok := foldToNumber(b)
	return aok && bok && an == bn
}

// foldToNumber duplicates runtime/eval/coerce.go's toNumber for the same
// layering reason as looseEqual above.
func foldToNumber(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KindNumber:
		n, _ := v.AsNumber()
		return n, true
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			return 1, true
		}
		return 0, true
	case value.KindString:
		s, _ := v.AsString()
		if s == "" {
			return 0, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case value.KindNull:
		return 0, true
	default:
		return 0, false
	}
}
