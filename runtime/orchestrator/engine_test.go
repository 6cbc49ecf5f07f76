package orchestrator_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/orchestrator"
)

func mustJSON(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestEvaluateArithmeticAndCacheHit(t *testing.T) {
	schemaDoc := mustJSON(t, `{
		"properties": {
			"total": {"$evaluation": {"+": [{"var": "a"}, {"var": "b"}]}}
		}
	}`)
	data := mustJSON(t, `{"a": 2, "b": 3}`)

	eng, err := orchestrator.New(schemaDoc, store.New(), value.Null(), data, orchestrator.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, eng.Evaluate(data, value.Null(), nil))

	total, ok := eng.GetEvaluatedValueByPath("total")
	require.True(t, ok)
	n, _ := total.AsNumber()
	require.Equal(t, 5.0, n)

	cacheLen, _ := eng.CacheStats()
	require.Equal(t, 1, cacheLen)

	// Re-evaluating with identical data should hit the cache: the stored
	// entry count must not grow.
	require.NoError(t, eng.Evaluate(data, value.Null(), nil))
	cacheLen2, _ := eng.CacheStats()
	require.Equal(t, cacheLen, cacheLen2)
}

func TestEvaluateDependencyChainSelective(t *testing.T) {
	schemaDoc := mustJSON(t, `{
		"properties": {
			"a": {"$evaluation": {"var": "raw"}},
			"b": {"$evaluation": {"+": [{"var": "a"}, 1]}}
		}
	}`)
	data := mustJSON(t, `{"raw": 10}`)

	eng, err := orchestrator.New(schemaDoc, store.New(), value.Null(), data, orchestrator.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, eng.Evaluate(data, value.Null(), nil))

	bVal, _ := eng.GetEvaluatedValueByPath("b")
	n, _ := bVal.AsNumber()
	require.Equal(t, 11.0, n)

	changed := mustJSON(t, `{"raw": 20}`)
	require.NoError(t, eng.Evaluate(changed, value.Null(), []string{"raw"}))

	bVal2, _ := eng.GetEvaluatedValueByPath("b")
	n2, _ := bVal2.AsNumber()
	require.Equal(t, 21.0, n2)
}

func TestEvaluateDependentsReportsClosureWithoutCommitting(t *testing.T) {
	schemaDoc := mustJSON(t, `{
		"properties": {
			"a": {"$evaluation": {"var": "raw"}},
			"b": {"$evaluation": {"+": [{"var": "a"}, 1]}}
		}
	}`)
	data := mustJSON(t, `{"raw": 10}`)

	eng, err := orchestrator.New(schemaDoc, store.New(), value.Null(), data, orchestrator.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, eng.Evaluate(data, value.Null(), nil))

	affected := eng.EvaluateDependents(data, value.Null(), []string{"raw"}, false)
	require.ElementsMatch(t, []string{"a", "b"}, affected)

	// Without re_evaluate, the committed value is untouched.
	bVal, _ := eng.GetEvaluatedValueByPath("b")
	n, _ := bVal.AsNumber()
	require.Equal(t, 11.0, n)
}

func TestEvaluateTwoPhaseTable(t *testing.T) {
	schemaDoc := mustJSON(t, `{
		"properties": {
			"schedule": {
				"table": {
					"rowEnd": 2,
					"columns": {
						"principal": {"valueat": ["self", {"+": [{"var": "$iteration"}, 1]}, "principal"]},
						"rate": 0.1
					}
				}
			}
		}
	}`)
	data := mustJSON(t, `{}`)

	eng, err := orchestrator.New(schemaDoc, store.New(), value.Null(), data, orchestrator.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, eng.Evaluate(data, value.Null(), nil))

	rows, ok := eng.GetEvaluatedValueByPath("schedule")
	require.True(t, ok)
	arr, ok := rows.AsArray()
	require.True(t, ok)
	require.Len(t, arr, 3)

	row0, ok := arr[0].AsObject()
	require.True(t, ok)
	rate, _ := row0.Get("rate")
	rateN, _ := rate.AsNumber()
	require.Equal(t, 0.1, rateN)
}

func TestValidateReportsRequiredAndPattern(t *testing.T) {
	schemaDoc := mustJSON(t, `{
		"properties": {
			"email": {
				"rules": {
					"required": {"value": true},
					"pattern": {"value": "^.+@.+$"}
				}
			}
		}
	}`)
	data := mustJSON(t, `{"email": "not-an-email"}`)

	eng, err := orchestrator.New(schemaDoc, store.New(), value.Null(), data, orchestrator.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, eng.Evaluate(data, value.Null(), nil))

	result := eng.Validate(nil)
	require.True(t, result.HasError)
	require.Len(t, result.Errors["email"], 1)
	require.Equal(t, "pattern", result.Errors["email"][0].Code)
}

func TestNewDetectsCycle(t *testing.T) {
	schemaDoc := mustJSON(t, `{
		"properties": {
			"a": {"$evaluation": {"var": "b"}},
			"b": {"$evaluation": {"var": "a"}}
		}
	}`)
	_, err := orchestrator.New(schemaDoc, store.New(), value.Null(), value.Null(), orchestrator.DefaultConfig())
	require.Error(t, err)
	var initErr *orchestrator.InitError
	require.ErrorAs(t, err, &initErr)
}

func TestStrictVsLooseEquality(t *testing.T) {
	schemaDoc := mustJSON(t, `{
		"properties": {
			"strict": {"$evaluation": {"===": [{"var": "a"}, {"var": "b"}]}},
			"loose": {"$evaluation": {"==": [{"var": "a"}, {"var": "b"}]}}
		}
	}`)
	data := mustJSON(t, `{"a": "1", "b": 1}`)

	eng, err := orchestrator.New(schemaDoc, store.New(), value.Null(), data, orchestrator.DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, eng.Evaluate(data, value.Null(), nil))

	strict, _ := eng.GetEvaluatedValueByPath("strict")
	require.False(t, strict.Truthy())

	loose, _ := eng.GetEvaluatedValueByPath("loose")
	require.True(t, loose.Truthy())
}

func TestCompileLogicAndRunLogic(t *testing.T) {
	schemaDoc := mustJSON(t, `{"properties": {}}`)
	eng, err := orchestrator.New(schemaDoc, store.New(), value.Null(), value.Null(), orchestrator.DefaultConfig())
	require.NoError(t, err)

	logic := mustJSON(t, `{"*": [{"var": "x"}, 2]}`)
	id, err := eng.CompileLogic(logic)
	require.NoError(t, err)

	result, err := eng.RunLogic(id, mustJSON(t, `{"x": 21}`), value.Null())
	require.NoError(t, err)
	n, _ := result.AsNumber()
	require.Equal(t, 42.0, n)
}
