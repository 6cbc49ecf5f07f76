package schema_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/schema"
)

func mustJSON(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestParseCollectsExpressionSite(t *testing.T) {
	doc := mustJSON(t, `{
		"properties": {
			"total": {
				"$evaluation": {"+": [{"var": "a"}, {"var": "b"}]}
			}
		}
	}`)
	ps, err := schema.Parse(doc, store.New())
	require.NoError(t, err)
	require.Len(t, ps.Sites, 1)
	require.Equal(t, "total", ps.Sites[0].SchemaPath)
	require.Equal(t, "total", ps.Sites[0].Target.String())
}

func TestParseOrdersDependentSitesIntoBatches(t *testing.T) {
	doc := mustJSON(t, `{
		"properties": {
			"a": {"$evaluation": 1},
			"b": {"$evaluation": {"+": [{"var": "a"}, 1]}}
		}
	}`)
	ps, err := schema.Parse(doc, store.New())
	require.NoError(t, err)
	require.Len(t, ps.Batches, 2)
	require.Equal(t, []string{"a"}, ps.Batches[0])
	require.Equal(t, []string{"b"}, ps.Batches[1])
}

func TestParseDetectsCycle(t *testing.T) {
	doc := mustJSON(t, `{
		"properties": {
			"a": {"$evaluation": {"var": "b"}},
			"b": {"$evaluation": {"var": "a"}}
		}
	}`)
	_, err := schema.Parse(doc, store.New())
	require.Error(t, err)
	var cycleErr *schema.CycleError
	require.ErrorAs(t, err, &cycleErr)
}

func TestParseCollectsValidationRules(t *testing.T) {
	doc := mustJSON(t, `{
		"properties": {
			"name": {
				"rules": {
					"required": {"value": true},
					"maxLength": {"value": 10}
				}
			}
		}
	}`)
	ps, err := schema.Parse(doc, store.New())
	require.NoError(t, err)
	require.Len(t, ps.Rules, 2)
}

func TestParseBuildsTablePlanWithForwardColumns(t *testing.T) {
	doc := mustJSON(t, `{
		"properties": {
			"amort": {
				"table": {
					"rowEnd": 12,
					"columns": {
						"balance": {"valueat": ["self", {"+": [{"var": "$iteration"}, 1]}, "balance"]},
						"rate": 0.05
					}
				}
			}
		}
	}`)
	ps, err := schema.Parse(doc, store.New())
	require.NoError(t, err)
	plan, ok := ps.TablePlans["amort"]
	require.True(t, ok)
	require.Len(t, plan.Columns, 2)
	require.Len(t, plan.Forward, 1)
	require.Equal(t, "balance", plan.Forward[0].Name)
	require.Len(t, plan.NonForward, 1)
}

func TestParseRecordsLayoutRef(t *testing.T) {
	doc := mustJSON(t, `{
		"properties": {
			"address": {"$ref": "#/definitions/address"}
		}
	}`)
	ps, err := schema.Parse(doc, store.New())
	require.NoError(t, err)
	require.Len(t, ps.LayoutRefs, 1)
	require.Equal(t, "#/definitions/address", ps.LayoutRefs[0].RefPath)
}

func TestParseRejectsMalformedShape(t *testing.T) {
	doc := mustJSON(t, `{"rules": [1, 2, 3]}`)
	_, err := schema.Parse(doc, store.New())
	require.Error(t, err)
	var parseErr *schema.ParseError
	require.ErrorAs(t, err, &parseErr)
}

func TestParsedSchemaCache(t *testing.T) {
	c := schema.NewParsedSchemaCache()
	require.Equal(t, 0, c.Len())
	ps := &schema.ParsedSchema{}
	c.Insert("k1", ps)
	got, ok := c.Get("k1")
	require.True(t, ok)
	require.Same(t, ps, got)
	require.True(t, c.ContainsKey("k1"))
	require.Equal(t, []string{"k1"}, c.Keys())
	c.Remove("k1")
	require.False(t, c.ContainsKey("k1"))
	c.Insert("k2", ps)
	c.Clear()
	require.Equal(t, 0, c.Len())
}
