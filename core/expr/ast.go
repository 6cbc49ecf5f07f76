// Package expr implements the compiled expression tree and the compiler
// that turns a raw JSON-Logic document into it: canonicalization,
// associative flattening, constant folding, peephole rewrites, read-set
// computation, and forward-reference detection. The tree produced here is
// immutable and is what core/store content-addresses and runtime/eval
// reduces.
package expr

import (
	"fmt"
	"strings"

	"github.com/opal-lang/formeval/core/path"
)

// Kind identifies the alternative of the compiled tree's closed tag set.
// The evaluator dispatches on Kind alone — never on a string name — per the
// "resolve operator names once, at compile time" design requirement.
type Kind int

const (
	KNull Kind = iota
	KBool
	KNumber
	KString
	KArrayLit // a literal JSON array of sub-expressions, e.g. [1,2,{"var":"x"}]
	KVar
	KRef
	KOp
)

func (k Kind) String() string {
	switch k {
	case KNull:
		return "Null"
	case KBool:
		return "Bool"
	case KNumber:
		return "Number"
	case KString:
		return "String"
	case KArrayLit:
		return "Array"
	case KVar:
		return "Var"
	case KRef:
		return "Ref"
	case KOp:
		return "Op"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Expr is a node of the compiled expression tree. Exactly one group of
// fields is meaningful, selected by Kind — see the Kind constants' doc
// comments on the accessors below.
type Expr struct {
	Kind Kind

	Bool bool
	Num  float64
	Str  string

	// KArrayLit and KOp: operand list. For KOp, associative operators carry
	// a flattened child list (see flattenAssociative).
	Children []*Expr

	// KVar / KRef
	Path    *path.Path
	Default *Expr // optional; nil if none given

	// KOp
	Op Operator
}

// Operator is the closed tag set of ~80 operator kinds from §4.3.
type Operator int

const (
	// Logical
	OpAnd Operator = iota
	OpOr
	OpNot
	OpXor
	OpIf
	OpIfNull
	OpIsEmpty
	OpEmpty

	// Comparison
	OpEq
	OpStrictEq
	OpNe
	OpStrictNe
	OpLt
	OpLe
	OpGt
	OpGe

	// Arithmetic
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow

	// Math
	OpAbs
	OpMin
	OpMax
	OpRound
	OpRoundUp
	OpRoundDown
	OpCeiling
	OpFloor
	OpTrunc
	OpMround

	// String
	OpCat
	OpSubstr
	OpSearch
	OpLeft
	OpRight
	OpMid
	OpLen
	OpSplitText
	OpSplitValue
	OpStringFormat

	// Date
	OpToday
	OpNow
	OpYear
	OpMonth
	OpDay
	OpDate
	OpDateFormat
	OpDays
	OpYearFrac
	OpDateDif

	// Array
	OpMap
	OpFilter
	OpReduce
	OpAll
	OpSome
	OpNone
	OpMerge
	OpIn
	OpSum
	OpFor
	OpMultiplies
	OpDivides

	// Table
	OpValueAt
	OpMaxAt
	OpIndexAt
	OpMatch
	OpMatchRange
	OpChoose
	OpFindIndex

	// Utility
	OpMissing
	OpMissingSome
	OpReturn
	OpRangeOptions
	OpMapOptions
	OpMapOptionsIf
)

// associativeOps flatten a nested invocation of the same operator into one
// flat child list (§4.2 Flattening).
var associativeOps = map[Operator]bool{
	OpAdd: true, OpMul: true, OpAnd: true, OpOr: true, OpCat: true, OpMerge: true,
}

// IsAssociative reports whether op absorbs nested same-operator children.
func IsAssociative(op Operator) bool { return associativeOps[op] }

// walk visits every node of the tree in pre-order, including e itself.
func walk(e *Expr, visit func(*Expr)) {
	if e == nil {
		return
	}
	visit(e)
	for _, c := range e.Children {
		walk(c, visit)
	}
	if e.Default != nil {
		walk(e.Default, visit)
	}
}

// String renders a debug form of the tree (not the original JSON).
func (e *Expr) String() string {
	var b strings.Builder
	writeExpr(&b, e)
	return b.String()
}

func writeExpr(b *strings.Builder, e *Expr) {
	if e == nil {
		b.WriteString("<nil>")
		return
	}
	switch e.Kind {
	case KNull:
		b.WriteString("null")
	case KBool:
		fmt.Fprintf(b, "%v", e.Bool)
	case KNumber:
		fmt.Fprintf(b, "%v", e.Num)
	case KString:
		fmt.Fprintf(b, "%q", e.Str)
	case KArrayLit:
		b.WriteString("[")
		for i, c := range e.Children {
			if i > 0 {
				b.WriteString(",")
			}
			writeExpr(b, c)
		}
		b.WriteString("]")
	case KVar, KRef:
		b.WriteString(opKindName(e))
		fmt.Fprintf(b, "(%s)", e.Path.String())
	case KOp:
		fmt.Fprintf(b, "%s(", operatorNames[e.Op])
		for i, c := range e.Children {
			if i > 0 {
				b.WriteString(",")
			}
			writeExpr(b, c)
		}
		b.WriteString(")")
	}
}

func opKindName(e *Expr) string {
	if e.Kind == KRef {
		return "ref"
	}
	return "var"
}
