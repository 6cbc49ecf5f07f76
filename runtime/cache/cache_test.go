package cache_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/cache"
)

func key(id store.CompiledLogicId, instance uint64, fp uint64) cache.Key {
	return cache.Key{LogicID: id, InstanceID: instance, Fingerprint: fp}
}

func TestGetMissesOnEmptyCache(t *testing.T) {
	c := cache.New(10)
	_, hit := c.Get(key(1, 1, 1))
	require.False(t, hit)
}

func TestPutThenGetHits(t *testing.T) {
	c := cache.New(10)
	k := key(1, 1, 1)
	c.Put(k, []string{"a"}, value.Number(42))

	v, hit := c.Get(k)
	require.True(t, hit)
	n, _ := v.AsNumber()
	require.Equal(t, 42.0, n)
}

func TestZeroCapacityDisablesCaching(t *testing.T) {
	c := cache.New(0)
	require.False(t, c.Enabled())

	k := key(1, 1, 1)
	c.Put(k, []string{"a"}, value.Number(1))
	_, hit := c.Get(k)
	require.False(t, hit)
	require.Equal(t, 0, c.Len())
}

func TestEvictsOldestOnceOverCapacity(t *testing.T) {
	c := cache.New(2)
	c.Put(key(1, 1, 1), []string{"a"}, value.Number(1))
	c.Put(key(2, 1, 1), []string{"a"}, value.Number(2))
	c.Put(key(3, 1, 1), []string{"a"}, value.Number(3))

	require.Equal(t, 2, c.Len())
	_, hit := c.Get(key(1, 1, 1))
	require.False(t, hit, "oldest, least recently touched entry should have been evicted")
}

func TestPurgeForRemovesOnlyMatchingInstanceAndField(t *testing.T) {
	c := cache.New(10)
	c.Put(key(1, 1, 1), []string{"a"}, value.Number(1))
	c.Put(key(2, 1, 1), []string{"b"}, value.Number(2))
	c.Put(key(3, 2, 1), []string{"a"}, value.Number(3))

	c.PurgeFor(1, []string{"a"})

	_, hit1 := c.Get(key(1, 1, 1))
	require.False(t, hit1, "instance 1's entry reading field a must be purged")

	_, hit2 := c.Get(key(2, 1, 1))
	require.True(t, hit2, "instance 1's entry reading field b must survive")

	_, hit3 := c.Get(key(3, 2, 1))
	require.True(t, hit3, "instance 2's entry must be unaffected by instance 1's purge")
}

func TestOversizedValuesAreNotCached(t *testing.T) {
	c := cache.New(10)
	arr := make([]value.Value, 200)
	for i := range arr {
		arr[i] = value.Number(float64(i))
	}
	c.Put(key(1, 1, 1), []string{"a"}, value.ArrayFrom(arr))

	_, hit := c.Get(key(1, 1, 1))
	require.False(t, hit)
	require.Equal(t, 0, c.Len())
}
