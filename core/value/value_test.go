package value_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/core/value"
)

func TestTruthy(t *testing.T) {
	cases := []struct {
		name string
		v    value.Value
		want bool
	}{
		{"false", value.Bool(false), false},
		{"null", value.Null(), false},
		{"zero", value.Number(0), false},
		{"empty-string", value.String(""), false},
		{"empty-array", value.Array(), true},
		{"empty-object", value.Obj(value.NewObject()), true},
		{"nonzero", value.Number(1), true},
		{"nonempty-string", value.String("x"), true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, tc.v.Truthy())
		})
	}
}

func TestDeepEqual(t *testing.T) {
	a := value.Array(value.Number(1), value.String("x"))
	b := value.Array(value.Number(1), value.String("x"))
	c := value.Array(value.Number(1), value.String("y"))
	require.True(t, value.DeepEqual(a, b))
	require.False(t, value.DeepEqual(a, c))
	require.False(t, value.DeepEqual(value.Number(0), value.Bool(false)))
}

func TestObjectPreservesInsertionOrder(t *testing.T) {
	obj := value.NewObject()
	obj.Set("z", value.Number(1))
	obj.Set("a", value.Number(2))
	obj.Set("m", value.Number(3))
	require.Equal(t, []string{"z", "a", "m"}, obj.Keys())

	obj.Delete("a")
	require.Equal(t, []string{"z", "m"}, obj.Keys())
}

func TestJSONRoundTrip(t *testing.T) {
	raw := []byte(`{"z":1,"a":[1,2,3],"m":{"nested":true},"n":null}`)
	v, err := value.FromJSON(raw)
	require.NoError(t, err)

	obj, ok := v.AsObject()
	require.True(t, ok)
	require.Equal(t, []string{"z", "a", "m", "n"}, obj.Keys())

	out, err := v.MarshalJSON()
	require.NoError(t, err)
	v2, err := value.FromJSON(out)
	require.NoError(t, err)
	require.True(t, value.DeepEqual(v, v2))
}

func TestFormatNumberShortestRoundTrip(t *testing.T) {
	require.Equal(t, "5", value.FormatNumber(5))
	require.Equal(t, "5.5", value.FormatNumber(5.5))
	require.Equal(t, "-3", value.FormatNumber(-3))
}
