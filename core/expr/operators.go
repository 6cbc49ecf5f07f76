package expr

// operatorNames gives the canonical (lowercase) rendering of each Operator,
// used for debug output and error messages.
var operatorNames = map[Operator]string{
	OpAnd: "and", OpOr: "or", OpNot: "not", OpXor: "xor", OpIf: "if",
	OpIfNull: "ifnull", OpIsEmpty: "isempty", OpEmpty: "empty",

	OpEq: "==", OpStrictEq: "===", OpNe: "!=", OpStrictNe: "!==",
	OpLt: "<", OpLe: "<=", OpGt: ">", OpGe: ">=",

	OpAdd: "+", OpSub: "-", OpMul: "*", OpDiv: "/", OpMod: "%", OpPow: "^",

	OpAbs: "abs", OpMin: "min", OpMax: "max", OpRound: "round",
	OpRoundUp: "roundup", OpRoundDown: "rounddown", OpCeiling: "ceiling",
	OpFloor: "floor", OpTrunc: "trunc", OpMround: "mround",

	OpCat: "cat", OpSubstr: "substr", OpSearch: "search", OpLeft: "left",
	OpRight: "right", OpMid: "mid", OpLen: "len", OpSplitText: "splittext",
	OpSplitValue: "splitvalue", OpStringFormat: "stringformat",

	OpToday: "today", OpNow: "now", OpYear: "year", OpMonth: "month",
	OpDay: "day", OpDate: "date", OpDateFormat: "dateformat", OpDays: "days",
	OpYearFrac: "yearfrac", OpDateDif: "datedif",

	OpMap: "map", OpFilter: "filter", OpReduce: "reduce", OpAll: "all",
	OpSome: "some", OpNone: "none", OpMerge: "merge", OpIn: "in",
	OpSum: "sum", OpFor: "for", OpMultiplies: "multiplies", OpDivides: "divides",

	OpValueAt: "valueat", OpMaxAt: "maxat", OpIndexAt: "indexat",
	OpMatch: "match", OpMatchRange: "matchrange", OpChoose: "choose",
	OpFindIndex: "findindex",

	OpMissing: "missing", OpMissingSome: "missing_some", OpReturn: "return",
	OpRangeOptions: "rangeoptions", OpMapOptions: "mapoptions",
	OpMapOptionsIf: "mapoptionsif",
}

// operatorAliases maps every accepted spelling (including symbolic and
// uppercase variants) to its canonical Operator. Keys are matched
// case-insensitively by the compiler (see lookupOperator).
var operatorAliases = map[string]Operator{
	"and": OpAnd, "or": OpOr, "not": OpNot, "!": OpNot, "xor": OpXor,
	"if": OpIf, "ifnull": OpIfNull, "isempty": OpIsEmpty, "empty": OpEmpty,

	"==": OpEq, "===": OpStrictEq, "!=": OpNe, "!==": OpStrictNe,
	"<": OpLt, "<=": OpLe, ">": OpGt, ">=": OpGe,

	"+": OpAdd, "-": OpSub, "*": OpMul, "/": OpDiv, "%": OpMod,
	"^": OpPow, "**": OpPow, "pow": OpPow,

	"abs": OpAbs, "min": OpMin, "max": OpMax, "round": OpRound,
	"roundup": OpRoundUp, "rounddown": OpRoundDown, "ceiling": OpCeiling,
	"floor": OpFloor, "trunc": OpTrunc, "mround": OpMround,

	"cat": OpCat, "concat": OpCat, "substr": OpSubstr, "search": OpSearch,
	"left": OpLeft, "right": OpRight, "mid": OpMid, "len": OpLen,
	"length": OpLen, "splittext": OpSplitText, "splitvalue": OpSplitValue,
	"stringformat": OpStringFormat,

	"today": OpToday, "now": OpNow, "year": OpYear, "month": OpMonth,
	"day": OpDay, "date": OpDate, "dateformat": OpDateFormat, "days": OpDays,
	"yearfrac": OpYearFrac, "datedif": OpDateDif,

	"map": OpMap, "filter": OpFilter, "reduce": OpReduce, "all": OpAll,
	"some": OpSome, "none": OpNone, "merge": OpMerge, "in": OpIn,
	"sum": OpSum, "for": OpFor, "multiplies": OpMultiplies, "divides": OpDivides,

	"valueat": OpValueAt, "maxat": OpMaxAt, "indexat": OpIndexAt,
	"match": OpMatch, "matchrange": OpMatchRange, "choose": OpChoose,
	"findindex": OpFindIndex,

	"missing": OpMissing, "missing_some": OpMissingSome, "return": OpReturn,
	"rangeoptions": OpRangeOptions, "mapoptions": OpMapOptions,
	"mapoptionsif": OpMapOptionsIf,
}

// arity bounds per operator; -1 means unbounded. Operators absent from this
// table accept any number of operands (their semantics define the meaning
// of each position, and out-of-range positions are handled at eval time
// rather than rejected at compile time).
type arity struct{ min, max int }

var operatorArity = map[Operator]arity{
	OpNot: {1, 1}, OpXor: {2, 2}, OpIfNull: {2, -1}, OpIsEmpty: {1, 1}, OpEmpty: {1, 1},
	OpEq: {2, 2}, OpStrictEq: {2, 2}, OpNe: {2, 2}, OpStrictNe: {2, 2},
	OpLt: {2, 3}, OpLe: {2, 3}, OpGt: {2, 3}, OpGe: {2, 3},
	OpSub: {1, 2}, OpDiv: {2, 2}, OpMod: {2, 2}, OpPow: {2, 2},
	OpAbs: {1, 1}, OpRound: {1, 2}, OpRoundUp: {1, 2}, OpRoundDown: {1, 2},
	OpCeiling: {1, 2}, OpFloor: {1, 2}, OpTrunc: {1, 2}, OpMround: {2, 2},
	OpSubstr: {2, 3}, OpSearch: {2, 2}, OpLeft: {2, 2}, OpRight: {2, 2},
	OpMid: {3, 3}, OpLen: {1, 1}, OpYear: {1, 1}, OpMonth: {1, 1}, OpDay: {1, 1},
	OpDate: {3, 3}, OpDateFormat: {2, 2}, OpDays: {2, 2}, OpYearFrac: {2, 3},
	OpDateDif: {3, 3}, OpMap: {2, 2}, OpFilter: {2, 2}, OpReduce: {2, 3},
	OpAll: {2, 2}, OpSome: {2, 2}, OpNone: {2, 2}, OpIn: {2, 2},
	OpValueAt: {2, 3}, OpMaxAt: {1, 1}, OpIndexAt: {3, 4}, OpMatchRange: {4, 4},
}

// lookupOperator resolves a raw (possibly mixed-case) operator key to its
// canonical Operator, or ok=false if unrecognized.
func lookupOperator(key string) (Operator, bool) {
	op, ok := operatorAliases[canonicalKey(key)]
	return op, ok
}

func canonicalKey(key string) string {
	// Symbolic operators (==, +, etc.) are already case-invariant; only
	// alphabetic keys need folding.
	lower := make([]byte, len(key))
	changed := false
	for i := 0; i < len(key); i++ {
		c := key[i]
		if c >= 'A' && c <= 'Z' {
			c = c - 'A' + 'a'
			changed = true
		}
		lower[i] = c
	}
	if !changed {
		return key
	}
	return string(lower)
}

// AllOperatorNames returns every accepted operator spelling (canonical names
// and aliases), for fuzzy-match suggestions on an unknown operator error.
func AllOperatorNames() []string {
	names := make([]string, 0, len(operatorAliases))
	for k := range operatorAliases {
		names = append(names, k)
	}
	return names
}
