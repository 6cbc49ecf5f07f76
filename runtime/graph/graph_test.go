package graph_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/runtime/graph"
)

func TestPlanOrdersIndependentNodesIntoOneBatch(t *testing.T) {
	g := graph.New()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")

	batches, err := g.Plan()
	require.NoError(t, err)
	require.Len(t, batches, 1)
	require.ElementsMatch(t, []string{"a", "b", "c"}, batches[0])
}

func TestPlanRespectsEdgeOrder(t *testing.T) {
	g := graph.New()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")
	g.AddEdge("a", "b") // b depends on a
	g.AddEdge("b", "c") // c depends on b

	batches, err := g.Plan()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a"}, {"b"}, {"c"}}, batches)
}

func TestPlanGroupsSiblingsSharingAPredecessor(t *testing.T) {
	g := graph.New()
	g.AddNode("a")
	g.AddNode("b")
	g.AddNode("c")
	g.AddEdge("a", "b")
	g.AddEdge("a", "c")

	batches, err := g.Plan()
	require.NoError(t, err)
	require.Len(t, batches, 2)
	require.Equal(t, []string{"a"}, batches[0])
	require.ElementsMatch(t, []string{"b", "c"}, batches[1])
}

func TestPlanDetectsCycle(t *testing.T) {
	g := graph.New()
	g.AddNode("a")
	g.AddNode("b")
	g.AddEdge("a", "b")
	g.AddEdge("b", "a")

	_, err := g.Plan()
	require.Error(t, err)

	var cycleErr *graph.CycleError
	require.ErrorAs(t, err, &cycleErr)
	require.ElementsMatch(t, []string{"a", "b"}, cycleErr.Nodes)
}

func TestAddNodeIsIdempotent(t *testing.T) {
	g := graph.New()
	g.AddNode("a")
	g.AddNode("a")

	batches, err := g.Plan()
	require.NoError(t, err)
	require.Equal(t, [][]string{{"a"}}, batches)
}
