package table_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/data"
	"github.com/opal-lang/formeval/runtime/eval"
	"github.com/opal-lang/formeval/runtime/schema"
	"github.com/opal-lang/formeval/runtime/table"
)

func mustJSON(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestGenerateNonForwardColumns(t *testing.T) {
	doc := mustJSON(t, `{
		"properties": {
			"rows": {
				"table": {
					"rowEnd": 2,
					"columns": {
						"doubled": {"*": [{"var": "$iteration"}, 2]}
					}
				}
			}
		}
	}`)
	st := store.New()
	ps, err := schema.Parse(doc, st)
	require.NoError(t, err)
	plan := ps.TablePlans["rows"]
	require.NotNil(t, plan)

	reducer := eval.New(eval.DefaultConfig())
	env := eval.NewEnv(data.New(value.Obj(value.NewObject())))
	gen := table.New(reducer, st)

	result, err := gen.Generate(plan, env)
	require.NoError(t, err)
	rows, ok := result.AsArray()
	require.True(t, ok)
	require.Len(t, rows, 3)

	for i, row := range rows {
		obj, ok := row.AsObject()
		require.True(t, ok)
		v, ok := obj.Get("doubled")
		require.True(t, ok)
		n, _ := v.AsNumber()
		require.Equal(t, float64(i*2), n)
	}
}

func TestGenerateForwardColumnSeesLaterRow(t *testing.T) {
	doc := mustJSON(t, `{
		"properties": {
			"rows": {
				"table": {
					"rowEnd": 2,
					"columns": {
						"base": {"*": [{"var": "$iteration"}, 10]},
						"peek": {"valueat": ["self", {"+": [{"var": "$iteration"}, 1]}, "base"]}
					}
				}
			}
		}
	}`)
	st := store.New()
	ps, err := schema.Parse(doc, st)
	require.NoError(t, err)
	plan := ps.TablePlans["rows"]

	reducer := eval.New(eval.DefaultConfig())
	env := eval.NewEnv(data.New(value.Obj(value.NewObject())))
	gen := table.New(reducer, st)

	result, err := gen.Generate(plan, env)
	require.NoError(t, err)
	rows, _ := result.AsArray()
	require.Len(t, rows, 3)

	row0, _ := rows[0].AsObject()
	peek, _ := row0.Get("peek")
	n, _ := peek.AsNumber()
	require.Equal(t, 10.0, n, "row 0's peek should see row 1's base (10)")

	row2, _ := rows[2].AsObject()
	peek2, _ := row2.Get("peek")
	require.True(t, peek2.IsNull(), "last row has no row beyond it to peek at")
}

// TestGenerateBackwardPassWalksEndToStart mirrors the canonical
// premium/epv recurrence: epv[i] = premium[i] + epv[i+1], epv[last] has no
// successor. Since epv reads another forward column (itself) on the next
// row, an ascending backward pass would still see that row's placeholder
// null instead of its computed value; only end -> start produces the
// expected cumulative-tail-sum result.
func TestGenerateBackwardPassWalksEndToStart(t *testing.T) {
	doc := mustJSON(t, `{
		"properties": {
			"schedule": {
				"table": {
					"rowEnd": 4,
					"columns": {
						"premium": {"*": [{"var": "$iteration"}, 100]},
						"epv": {"+": [
							{"valueat": [{"var": "self"}, {"var": "$iteration"}, "premium"]},
							{"valueat": [{"var": "self"}, {"+": [{"var": "$iteration"}, 1]}, "epv"]}
						]}
					}
				}
			}
		}
	}`)
	st := store.New()
	ps, err := schema.Parse(doc, st)
	require.NoError(t, err)
	plan := ps.TablePlans["schedule"]
	require.NotNil(t, plan)

	reducer := eval.New(eval.DefaultConfig())
	env := eval.NewEnv(data.New(value.Obj(value.NewObject())))
	gen := table.New(reducer, st)

	result, err := gen.Generate(plan, env)
	require.NoError(t, err)
	rows, ok := result.AsArray()
	require.True(t, ok)
	require.Len(t, rows, 5)

	wantPremium := []float64{0, 100, 200, 300, 400}
	wantEPV := []float64{1000, 1000, 900, 700, 400}
	for i, row := range rows {
		obj, ok := row.AsObject()
		require.True(t, ok)

		premium, ok := obj.Get("premium")
		require.True(t, ok)
		pn, _ := premium.AsNumber()
		require.Equal(t, wantPremium[i], pn, "premium[%d]", i)

		epv, ok := obj.Get("epv")
		require.True(t, ok)
		en, _ := epv.AsNumber()
		require.Equal(t, wantEPV[i], en, "epv[%d]", i)
	}
}
