package expr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/value"
)

func mustJSON(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestCompileLiteral(t *testing.T) {
	e, err := expr.Compile(value.Number(5))
	require.NoError(t, err)
	require.Equal(t, expr.KNumber, e.Kind)
	require.Equal(t, 5.0, e.Num)
}

func TestCompileVarWithDefault(t *testing.T) {
	e, err := expr.Compile(mustJSON(t, `{"var": ["a.b", 0]}`))
	require.NoError(t, err)
	require.Equal(t, expr.KVar, e.Kind)
	require.Equal(t, "a.b", e.Path.String())
	require.NotNil(t, e.Default)
	require.Equal(t, 0.0, e.Default.Num)
}

func TestCompileConstantFolding(t *testing.T) {
	e, err := expr.Compile(mustJSON(t, `{"+": [1, 2, {"*": [2, 3]}]}`))
	require.NoError(t, err)
	require.Equal(t, expr.KNumber, e.Kind, "fully literal arithmetic should fold to a number node")
	require.Equal(t, 9.0, e.Num)
}

func TestCompileAssociativeFlattening(t *testing.T) {
	raw := mustJSON(t, `{"and": [{"var": "a"}, {"and": [{"var": "b"}, {"var": "c"}]}]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	require.Equal(t, expr.KOp, e.Kind)
	require.Equal(t, expr.OpAnd, e.Op)
	require.Len(t, e.Children, 3, "nested and() should flatten into one flat child list")
}

func TestCompilePeepholeDoubleNegation(t *testing.T) {
	raw := mustJSON(t, `{"!": [{"!": [{"var": "x"}]}]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	require.Equal(t, expr.KVar, e.Kind)
	require.Equal(t, "x", e.Path.String())
}

func TestCompileConstantFoldingLooseEqualityCoercesBooleanToNumber(t *testing.T) {
	raw := mustJSON(t, `{"==": [0, false]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	require.Equal(t, expr.KBool, e.Kind, "both operands are literals, so this folds at compile time")
	require.True(t, e.Bool, "0 == false must be true, matching the runtime evaluator's loose equality")
}

func TestCompileConstantFoldingStrictInequalityOfZeroAndFalse(t *testing.T) {
	raw := mustJSON(t, `{"===": [0, false]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	require.Equal(t, expr.KBool, e.Kind)
	require.False(t, e.Bool, "0 and false are different kinds, so strict equality must be false")
}

func TestCompilePeepholeCatSingleVarDoesNotCollapse(t *testing.T) {
	raw := mustJSON(t, `{"cat": [{"var": "x"}]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	// x's type is unknown at compile time, so cat(["x"]) must NOT collapse;
	// it can only be proven safe to drop when the child is a literal string.
	require.Equal(t, expr.KOp, e.Kind)
	require.Equal(t, expr.OpCat, e.Op)
}

func TestCompilePeepholeCatSingleNonStringLiteralDoesNotCollapse(t *testing.T) {
	raw := mustJSON(t, `{"cat": [5]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	require.Equal(t, expr.KOp, e.Kind, "cat(5) must stay a cat node so it still coerces to the string \"5\" at eval time")
	require.Equal(t, expr.OpCat, e.Op)
}

func TestCompilePeepholeCatSingleStringLiteralCollapses(t *testing.T) {
	raw := mustJSON(t, `{"cat": ["hello"]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	require.Equal(t, expr.KString, e.Kind, "a lone string child is already string-typed, so cat is redundant")
	require.Equal(t, "hello", e.Str)
}

func TestCompileUnknownOperatorSuggestsClosestMatch(t *testing.T) {
	_, err := expr.Compile(mustJSON(t, `{"rond": [{"var": "x"}]}`))
	require.Error(t, err)
	var unknown *expr.UnknownOperatorError
	require.ErrorAs(t, err, &unknown)
	require.Equal(t, "round", unknown.Suggestion)
}

func TestCompileOperatorArityError(t *testing.T) {
	_, err := expr.Compile(mustJSON(t, `{"abs": [1, 2]}`))
	require.Error(t, err)
	var arityErr *expr.OperatorArityError
	require.ErrorAs(t, err, &arityErr)
}

func TestReadSetExcludesLoopLocals(t *testing.T) {
	raw := mustJSON(t, `{"map": [{"var": "items"}, {"+": [{"var": ""}, {"var": "offset"}]}]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	rs := expr.ReadSet(e)
	names := make([]string, 0, len(rs))
	for _, p := range rs {
		names = append(names, p.String())
	}
	require.ElementsMatch(t, []string{"items", "offset"}, names)
}

func TestDetectForwardRef(t *testing.T) {
	raw := mustJSON(t, `{"valueat": ["self", {"+": [{"var": "$iteration"}, 2]}, "col"]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	fr, ok := expr.DetectForwardRef(e)
	require.True(t, ok)
	require.Equal(t, 2, fr.Offset)
}

func TestDetectForwardRefRejectsBackwardOffset(t *testing.T) {
	raw := mustJSON(t, `{"valueat": ["self", {"-": [{"var": "$iteration"}, 1]}, "col"]}`)
	e, err := expr.Compile(raw)
	require.NoError(t, err)
	_, ok := expr.DetectForwardRef(e)
	require.False(t, ok)
}
