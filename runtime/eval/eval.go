package eval

import (
	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/invariant"
	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/value"
)

// Reducer evaluates compiled expr.Expr trees against an Env. A Reducer
// holds only its Config; it is safe for concurrent use across distinct Env
// values, since all mutable evaluation state lives in the Env.
type Reducer struct {
	cfg Config
}

// New returns a Reducer tuned by cfg.
func New(cfg Config) *Reducer { return &Reducer{cfg: cfg} }

// Eval reduces e to a Value against env, starting at depth 0.
func (r *Reducer) Eval(e *expr.Expr, env *Env) (value.Value, error) {
	return r.eval(e, env, 0)
}

func (r *Reducer) eval(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	if depth > r.cfg.RecursionLimit {
		return value.Null(), &RecursionLimitError{Limit: r.cfg.RecursionLimit}
	}

	switch e.Kind {
	case expr.KNull:
		return value.Null(), nil
	case expr.KBool:
		return value.Bool(e.Bool), nil
	case expr.KNumber:
		return value.Number(e.Num), nil
	case expr.KString:
		return value.String(e.Str), nil
	case expr.KArrayLit:
		return r.evalArrayLit(e, env, depth)
	case expr.KVar, expr.KRef:
		return r.evalVar(e, env, depth)
	case expr.KOp:
		return r.evalOp(e, env, depth)
	default:
		invariant.Invariant(false, "eval: unreachable Kind %v", e.Kind)
		return value.Null(), nil
	}
}

func (r *Reducer) evalArrayLit(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	items := make([]value.Value, len(e.Children))
	for i, c := range e.Children {
		v, err := r.eval(c, env, depth+1)
		if err != nil {
			return value.Null(), err
		}
		items[i] = v
	}
	return value.ArrayFrom(items), nil
}

func (r *Reducer) evalVar(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	top := e.Path.TopLevel()
	if loopLocalNames[top] {
		v, ok := r.resolveLoopLocal(e, env)
		if ok {
			return v, nil
		}
		return r.evalDefault(e, env, depth)
	}

	if env.Data != nil {
		if v, ok := env.Data.Resolve(e.Path); ok {
			return v, nil
		}
	}
	return r.evalDefault(e, env, depth)
}

func (r *Reducer) evalDefault(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	if e.Default == nil {
		return value.Null(), nil
	}
	return r.eval(e.Default, env, depth+1)
}

func (r *Reducer) resolveLoopLocal(e *expr.Expr, env *Env) (value.Value, bool) {
	frame, ok := env.topLoop()
	if !ok {
		return value.Null(), false
	}
	segs := e.Path.Segments()
	top := e.Path.TopLevel()

	var base value.Value
	switch top {
	case "", "current":
		base = frame.Current
	case "accumulator":
		base = frame.Accumulator
	case "$iteration":
		return value.Number(frame.Iteration), true
	case "self":
		base = value.ArrayFrom(frame.TableRows)
	default:
		return value.Null(), false
	}

	rest := segs
	if top != "" {
		rest = segs[1:]
	}
	if len(rest) == 0 {
		return base, true
	}
	return path.New(rest...).Resolve(base)
}

// evalOp dispatches on the closed Operator tag (never a string name). A
// handful of operators are lazy — short-circuiting logic and the
// closure-taking array operators need access to env/depth to evaluate a
// sub-expression repeatedly or conditionally — and are handled directly
// here; everything else evaluates all children eagerly first.
func (r *Reducer) evalOp(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	switch e.Op {
	case expr.OpAnd:
		return r.evalAnd(e, env, depth)
	case expr.OpOr:
		return r.evalOr(e, env, depth)
	case expr.OpIf:
		return r.evalIf(e, env, depth)
	case expr.OpIfNull:
		return r.evalIfNull(e, env, depth)
	case expr.OpMap:
		return r.evalMap(e, env, depth)
	case expr.OpFilter:
		return r.evalFilter(e, env, depth)
	case expr.OpReduce:
		return r.evalReduce(e, env, depth)
	case expr.OpAll:
		return r.evalAllSomeNone(e, env, depth, allMode)
	case expr.OpSome:
		return r.evalAllSomeNone(e, env, depth, someMode)
	case expr.OpNone:
		return r.evalAllSomeNone(e, env, depth, noneMode)
	case expr.OpFor:
		return r.evalFor(e, env, depth)
	case expr.OpMissing:
		return r.evalMissing(e, env, depth)
	case expr.OpMissingSome:
		return r.evalMissingSome(e, env, depth)
	case expr.OpFindIndex:
		return r.evalFindIndex(e, env, depth)
	}

	args := make([]value.Value, len(e.Children))
	for i, c := range e.Children {
		v, err := r.eval(c, env, depth+1)
		if err != nil {
			return value.Null(), err
		}
		args[i] = v
	}

	switch e.Op {
	case expr.OpNot:
		return evalNot(args)
	case expr.OpXor:
		return evalXor(args)
	case expr.OpIsEmpty:
		return evalIsEmpty(args)
	case expr.OpEmpty:
		return evalEmpty(args)
	case expr.OpEq, expr.OpNe, expr.OpStrictEq, expr.OpStrictNe:
		return evalEquality(e.Op, args)
	case expr.OpLt, expr.OpLe, expr.OpGt, expr.OpGe:
		return evalOrdering(e.Op, args)
	case expr.OpAdd, expr.OpSub, expr.OpMul, expr.OpDiv, expr.OpMod, expr.OpPow:
		return r.evalArith(e.Op, args)
	case expr.OpAbs, expr.OpMin, expr.OpMax, expr.OpRound, expr.OpRoundUp,
		expr.OpRoundDown, expr.OpCeiling, expr.OpFloor, expr.OpTrunc, expr.OpMround:
		return r.evalMath(e.Op, args)
	case expr.OpCat, expr.OpSubstr, expr.OpSearch, expr.OpLeft, expr.OpRight,
		expr.OpMid, expr.OpLen, expr.OpSplitText, expr.OpSplitValue, expr.OpStringFormat:
		return evalString(e.Op, args)
	case expr.OpToday, expr.OpNow, expr.OpYear, expr.OpMonth, expr.OpDay,
		expr.OpDate, expr.OpDateFormat, expr.OpDays, expr.OpYearFrac, expr.OpDateDif:
		return r.evalDate(e.Op, args)
	case expr.OpMerge, expr.OpIn, expr.OpSum, expr.OpMultiplies, expr.OpDivides:
		return r.evalArrayOp(e.Op, args)
	case expr.OpValueAt, expr.OpMaxAt, expr.OpIndexAt, expr.OpMatch,
		expr.OpMatchRange, expr.OpChoose:
		return r.evalTableOp(e.Op, args)
	case expr.OpReturn:
		if len(args) == 0 {
			return value.Null(), nil
		}
		return args[0], nil
	case expr.OpRangeOptions, expr.OpMapOptions, expr.OpMapOptionsIf:
		return r.evalOptionsOp(e.Op, args)
	}

	invariant.Invariant(false, "evalOp: unhandled operator %v", e.Op)
	return value.Null(), nil
}
