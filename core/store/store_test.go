package store_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
)

func mustJSON(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestCompileDedupesIdenticalDocuments(t *testing.T) {
	s := store.New()
	doc := mustJSON(t, `{"+": [1, {"var": "a"}]}`)

	id1, e1, err := s.Compile(doc)
	require.NoError(t, err)
	id2, e2, err := s.Compile(mustJSON(t, `{"+": [1, {"var": "a"}]}`))
	require.NoError(t, err)

	require.Equal(t, id1, id2)
	require.Same(t, e1, e2, "identical documents must share one compiled Expr")

	stats := s.Stats()
	require.Equal(t, 1, stats.Entries)
	require.Equal(t, uint64(1), stats.Compiles)
	require.Equal(t, uint64(1), stats.DedupHits)
}

func TestCompileDistinguishesDifferentDocuments(t *testing.T) {
	s := store.New()
	id1, _, err := s.Compile(mustJSON(t, `{"var": "a"}`))
	require.NoError(t, err)
	id2, _, err := s.Compile(mustJSON(t, `{"var": "b"}`))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
}

func TestResolveReturnsCompiledExpr(t *testing.T) {
	s := store.New()
	id, compiled, err := s.Compile(mustJSON(t, `{"var": "x"}`))
	require.NoError(t, err)

	resolved, ok := s.Resolve(id)
	require.True(t, ok)
	require.Same(t, compiled, resolved)

	_, ok = s.Resolve(store.CompiledLogicId(^uint64(0)))
	require.False(t, ok)
}

func TestCompileConcurrentSameDocument(t *testing.T) {
	s := store.New()
	doc := mustJSON(t, `{"*": [{"var": "a"}, 2]}`)

	const n = 32
	ids := make([]store.CompiledLogicId, n)
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			id, _, err := s.Compile(doc)
			require.NoError(t, err)
			ids[i] = id
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		require.Equal(t, ids[0], ids[i])
	}
	require.Equal(t, 1, s.Stats().Entries)
}
