package path_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/value"
)

func TestParseSyntaxInvariance(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want []string
	}{
		{"dotted", "a.b.0", []string{"a", "b", "0"}},
		{"pointer", "/a/b/0", []string{"a", "b", "0"}},
		{"schema-pointer", "#/properties/a/properties/b", []string{"a", "b"}},
		{"root-dotted", "", nil},
		{"root-pointer", "/", nil},
		{"escaped-pointer", "/a~1b/c", []string{"a/b", "c"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := path.Parse(tc.in).Segments()
			require.Equal(t, tc.want, got)
		})
	}
}

func TestParseAllSyntaxesAgree(t *testing.T) {
	dotted := path.ParseDotted("a.b.0")
	pointer := path.ParsePointer("/a/b/0")
	schemaPointer := path.ParseSchemaPointer("#/properties/a/properties/b/items/0")
	require.True(t, dotted.Equal(pointer))
	require.Equal(t, []string{"a", "b"}, schemaPointer.Segments()[:2])
}

func TestResolve(t *testing.T) {
	obj := value.NewObject()
	obj.Set("a", value.Obj(func() *value.Object {
		inner := value.NewObject()
		inner.Set("b", value.Array(value.Number(1), value.Number(2), value.Number(3)))
		return inner
	}()))
	root := value.Obj(obj)

	v, ok := path.ParseDotted("a.b.1").Resolve(root)
	require.True(t, ok)
	n, _ := v.AsNumber()
	require.Equal(t, 2.0, n)

	_, ok = path.ParseDotted("a.b.99").Resolve(root)
	require.False(t, ok)

	_, ok = path.ParseDotted("missing.field").Resolve(root)
	require.False(t, ok)
}

func TestWrite(t *testing.T) {
	root := value.Null()
	root, ok := path.Write(root, []string{"a", "b"}, value.Number(5))
	require.True(t, ok)

	v, ok := path.ParseDotted("a.b").Resolve(root)
	require.True(t, ok)
	n, _ := v.AsNumber()
	require.Equal(t, 5.0, n)
}

func TestShortPathNoAllocSegments(t *testing.T) {
	p := path.ParseDotted("a.b.c.d")
	require.Equal(t, 4, p.Len())
	require.Equal(t, []string{"a", "b", "c", "d"}, p.Segments())
}
