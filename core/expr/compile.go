package expr

import (
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/opal-lang/formeval/core/invariant"
	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/value"
)

// Compile turns a raw JSON-Logic document into a compiled Expr tree:
// operator names are resolved once here (never at eval time), associative
// operators are flattened, operators applied to all-literal operands are
// constant-folded, and a handful of peephole rewrites simplify the result.
func Compile(raw value.Value) (*Expr, error) {
	e, err := parseNode(raw)
	if err != nil {
		return nil, err
	}
	e = flattenAssociative(e)
	e = foldConstants(e)
	e = peephole(e)
	return e, nil
}

func parseNode(raw value.Value) (*Expr, error) {
	switch raw.Kind() {
	case value.KindNull:
		return &Expr{Kind: KNull}, nil
	case value.KindBool:
		b, _ := raw.AsBool()
		return &Expr{Kind: KBool, Bool: b}, nil
	case value.KindNumber:
		n, _ := raw.AsNumber()
		return &Expr{Kind: KNumber, Num: n}, nil
	case value.KindString:
		s, _ := raw.AsString()
		return &Expr{Kind: KString, Str: s}, nil
	case value.KindArray:
		arr, _ := raw.AsArray()
		children := make([]*Expr, len(arr))
		for i, item := range arr {
			c, err := parseNode(item)
			if err != nil {
				return nil, err
			}
			children[i] = c
		}
		return &Expr{Kind: KArrayLit, Children: children}, nil
	case value.KindObject:
		return parseObject(raw)
	default:
		invariant.Invariant(false, "parseNode: unreachable Kind %v", raw.Kind())
		return nil, nil
	}
}

func parseObject(raw value.Value) (*Expr, error) {
	obj, _ := raw.AsObject()
	keys := obj.Keys()
	if len(keys) != 1 {
		return nil, &BadLiteralError{Detail: "expression object must have exactly one key, got " + itoa(len(keys))}
	}
	key := keys[0]
	arg, _ := obj.Get(key)

	switch key {
	case "var":
		return parseVarLike(KVar, arg)
	case "ref":
		return parseVarLike(KRef, arg)
	}

	op, ok := lookupOperator(key)
	if !ok {
		return nil, &UnknownOperatorError{Name: key, Suggestion: suggestOperator(key)}
	}

	var operands []value.Value
	switch arg.Kind() {
	case value.KindArray:
		operands, _ = arg.AsArray()
	default:
		operands = []value.Value{arg}
	}

	if bounds, ok := operatorArity[op]; ok {
		n := len(operands)
		if n < bounds.min || (bounds.max >= 0 && n > bounds.max) {
			return nil, &OperatorArityError{Operator: operatorNames[op], Got: n, Min: bounds.min, Max: bounds.max}
		}
	}

	children := make([]*Expr, len(operands))
	for i, o := range operands {
		c, err := parseNode(o)
		if err != nil {
			return nil, err
		}
		children[i] = c
	}
	return &Expr{Kind: KOp, Op: op, Children: children}, nil
}

func parseVarLike(kind Kind, arg value.Value) (*Expr, error) {
	var pathStr string
	var defRaw *value.Value

	switch arg.Kind() {
	case value.KindString:
		s, _ := arg.AsString()
		pathStr = s
	case value.KindArray:
		arr, _ := arg.AsArray()
		if len(arr) == 0 {
			return nil, &BadPathError{Detail: "var/ref requires at least a path argument"}
		}
		s, ok := arr[0].AsString()
		if !ok {
			return nil, &BadPathError{Detail: "var/ref path must be a string"}
		}
		pathStr = s
		if len(arr) > 1 {
			defRaw = &arr[1]
		}
	default:
		return nil, &BadPathError{Detail: "var/ref argument must be a string or array"}
	}

	e := &Expr{Kind: kind, Path: path.Parse(pathStr)}
	if defRaw != nil {
		d, err := parseNode(*defRaw)
		if err != nil {
			return nil, err
		}
		e.Default = d
	}
	return e, nil
}

// flattenAssociative absorbs nested invocations of the same associative
// operator into one flat child list, e.g. (+ 1 (+ 2 3)) -> (+ 1 2 3).
func flattenAssociative(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	for i, c := range e.Children {
		e.Children[i] = flattenAssociative(c)
	}
	if e.Default != nil {
		e.Default = flattenAssociative(e.Default)
	}
	if e.Kind != KOp || !IsAssociative(e.Op) {
		return e
	}
	flat := make([]*Expr, 0, len(e.Children))
	for _, c := range e.Children {
		if c.Kind == KOp && c.Op == e.Op {
			flat = append(flat, c.Children...)
		} else {
			flat = append(flat, c)
		}
	}
	e.Children = flat
	return e
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// suggestOperator returns a "did you mean" candidate from the operator
// catalog for an unrecognized name, or "" if nothing is close enough.
func suggestOperator(name string) string {
	ranks, found := fuzzy.RankFindFold(name, AllOperatorNames())
	if !found || len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	best := ranks[0]
	if best.Distance > 3 {
		return ""
	}
	return best.Target
}
