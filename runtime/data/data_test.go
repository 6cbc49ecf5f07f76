package data_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/data"
)

func mustJSON(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.FromJSON([]byte(s))
	require.NoError(t, err)
	return v
}

func TestNewStampsExistingTopLevelFields(t *testing.T) {
	td := data.New(mustJSON(t, `{"a": 1, "b": 2}`))
	require.NotZero(t, td.VersionOf("a"))
	require.NotZero(t, td.VersionOf("b"))
	require.Zero(t, td.VersionOf("never-written"))
}

func TestWriteBumpsOnlyItsOwnTopLevelField(t *testing.T) {
	td := data.New(mustJSON(t, `{"a": {"x": 1}, "b": 2}`))
	aBefore := td.VersionOf("a")
	bBefore := td.VersionOf("b")

	_, _ = td.Write(path.Parse("a.x"), value.Number(9))

	require.Greater(t, td.VersionOf("a"), aBefore)
	require.Equal(t, bBefore, td.VersionOf("b"))

	v, ok := td.Resolve(path.Parse("a.x"))
	require.True(t, ok)
	n, _ := v.AsNumber()
	require.Equal(t, 9.0, n)
}

func TestWriteCreatesIntermediateObjects(t *testing.T) {
	td := data.New(value.Null())
	_, existed := td.Write(path.Parse("nested.deep.field"), value.String("hi"))
	require.False(t, existed)

	v, ok := td.Resolve(path.Parse("nested.deep.field"))
	require.True(t, ok)
	s, _ := v.AsString()
	require.Equal(t, "hi", s)
}

func TestSnapshotReflectsConcurrentFieldVersions(t *testing.T) {
	td := data.New(mustJSON(t, `{"a": 1, "b": 2}`))
	before := td.Snapshot([]string{"a", "b"})

	td.Write(path.Parse("a"), value.Number(100))
	after := td.Snapshot([]string{"a", "b"})

	require.NotEqual(t, before["a"], after["a"])
	require.Equal(t, before["b"], after["b"])
}

func TestCloneSharesInstanceIDAndDivergesIndependently(t *testing.T) {
	td := data.New(mustJSON(t, `{"a": 1}`))
	clone := td.Clone()
	require.Equal(t, td.InstanceID(), clone.InstanceID())

	clone.Write(path.Parse("a"), value.Number(42))
	v, _ := td.Resolve(path.Parse("a"))
	n, _ := v.AsNumber()
	require.Equal(t, 1.0, n, "original must be unaffected by writes to its clone")
}

func TestInstanceIDsAreUniquePerNew(t *testing.T) {
	a := data.New(value.Null())
	b := data.New(value.Null())
	require.NotEqual(t, a.InstanceID(), b.InstanceID())
}
