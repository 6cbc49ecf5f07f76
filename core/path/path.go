// Package path parses and resolves the three path syntaxes the engine
// accepts — dotted (a.b.0), JSON pointer (/a/b/0), and schema pointer
// (#/properties/a/properties/b) — into a single normalized segment
// sequence, and traverses a value.Value tree by that sequence.
package path

import (
	"strconv"
	"strings"

	"github.com/opal-lang/formeval/core/value"
)

// inlineSegments is the small-path optimization threshold: path strings of
// up to this many segments are held in a fixed array rather than a heap
// slice, since the large majority of schema paths are 1-4 segments deep.
const inlineSegments = 4

// Path is a parsed, normalized sequence of path segments. The zero Path is
// the empty (root) path. Paths of inlineSegments or fewer segments carry no
// backing slice allocation.
type Path struct {
	short [inlineSegments]string
	n     int
	extra []string // used only when n > inlineSegments
}

// Segments returns the segment sequence, or nil for the empty (root) path.
// The returned slice must be treated as read-only; for
// 0<n<=inlineSegments it aliases the Path's own array.
func (p *Path) Segments() []string {
	if p.n == 0 {
		return nil
	}
	if p.n <= inlineSegments {
		return p.short[:p.n]
	}
	return p.extra
}

// Len reports the number of segments.
func (p *Path) Len() int { return p.n }

// String renders the path in dotted form.
func (p *Path) String() string {
	return strings.Join(p.Segments(), ".")
}

// Equal reports whether two paths have identical segment sequences.
func (p *Path) Equal(o *Path) bool {
	if p.n != o.n {
		return false
	}
	a, b := p.Segments(), o.Segments()
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// HasPrefix reports whether p starts with every segment of prefix, in order.
func (p *Path) HasPrefix(prefix *Path) bool {
	if prefix.n > p.n {
		return false
	}
	a, b := p.Segments(), prefix.Segments()
	for i := range b {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// TopLevel returns the first segment, or "" for the empty path. Data-wrapper
// version tracking is keyed on this field.
func (p *Path) TopLevel() string {
	if p.n == 0 {
		return ""
	}
	return p.Segments()[0]
}

func fromSegments(segs []string) *Path {
	p := &Path{n: len(segs)}
	if p.n <= inlineSegments {
		copy(p.short[:], segs)
	} else {
		p.extra = segs
	}
	return p
}

// New builds a Path directly from an already-split segment list.
func New(segs ...string) *Path { return fromSegments(segs) }

// Parse auto-detects the input syntax: a leading "#" is a schema pointer, a
// leading "/" is a JSON pointer, anything else is dotted.
func Parse(s string) *Path {
	switch {
	case strings.HasPrefix(s, "#"):
		return ParseSchemaPointer(s)
	case strings.HasPrefix(s, "/"):
		return ParsePointer(s)
	default:
		return ParseDotted(s)
	}
}

// ParseDotted parses "a.b.0" form. An empty string is the root path.
func ParseDotted(s string) *Path {
	if s == "" {
		return fromSegments(nil)
	}
	return fromSegments(strings.Split(s, "."))
}

// ParsePointer parses RFC 6901 JSON Pointer form: "/a/b/0", unescaping
// "~1" to "/" and "~0" to "~" in each segment.
func ParsePointer(s string) *Path {
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return fromSegments(nil)
	}
	parts := strings.Split(s, "/")
	for i, part := range parts {
		parts[i] = unescapePointerSegment(part)
	}
	return fromSegments(parts)
}

// ParseSchemaPointer parses "#/properties/a/properties/b" form, stripping
// the leading "#" and every redundant "properties" segment.
func ParseSchemaPointer(s string) *Path {
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(s, "/")
	if s == "" {
		return fromSegments(nil)
	}
	raw := strings.Split(s, "/")
	segs := make([]string, 0, len(raw))
	for _, part := range raw {
		part = unescapePointerSegment(part)
		if part == "properties" || part == "items" {
			continue
		}
		segs = append(segs, part)
	}
	return fromSegments(segs)
}

func unescapePointerSegment(s string) string {
	if !strings.Contains(s, "~") {
		return s
	}
	s = strings.ReplaceAll(s, "~1", "/")
	s = strings.ReplaceAll(s, "~0", "~")
	return s
}

// Resolve traverses root by the path's segments, returning the sub-value
// and true, or value.Null() and false if any segment is missing or
// traversal hits a non-container.
func (p *Path) Resolve(root value.Value) (value.Value, bool) {
	cur := root
	for _, seg := range p.Segments() {
		next, ok := step(cur, seg)
		if !ok {
			return value.Null(), false
		}
		cur = next
	}
	return cur, true
}

// ResolveOrDefault is Resolve with a fallback value for the not-found case.
func (p *Path) ResolveOrDefault(root value.Value, def value.Value) value.Value {
	v, ok := p.Resolve(root)
	if !ok {
		return def
	}
	return v
}

func step(cur value.Value, seg string) (value.Value, bool) {
	switch cur.Kind() {
	case value.KindObject:
		obj, _ := cur.AsObject()
		return obj.Get(seg)
	case value.KindArray:
		arr, _ := cur.AsArray()
		idx, err := strconv.Atoi(seg)
		if err != nil || idx < 0 || idx >= len(arr) {
			return value.Null(), false
		}
		return arr[idx], true
	default:
		return value.Null(), false
	}
}

// Write sets the value at the path within root, creating intermediate
// objects as needed, and returns the (possibly new) root. Intermediate
// array segments must already exist; Write does not grow arrays.
func Write(root value.Value, segs []string, v value.Value) (value.Value, bool) {
	if len(segs) == 0 {
		return v, true
	}
	head, rest := segs[0], segs[1:]
	switch root.Kind() {
	case value.KindObject:
		obj, _ := root.AsObject()
		obj = obj.Clone()
		child, ok := obj.Get(head)
		if !ok {
			child = value.Obj(value.NewObject())
		}
		newChild, ok := Write(child, rest, v)
		if !ok {
			return root, false
		}
		obj.Set(head, newChild)
		return value.Obj(obj), true
	case value.KindArray:
		arr, _ := root.AsArray()
		idx, err := strconv.Atoi(head)
		if err != nil || idx < 0 || idx >= len(arr) {
			return root, false
		}
		clone := append([]value.Value(nil), arr...)
		newChild, ok := Write(clone[idx], rest, v)
		if !ok {
			return root, false
		}
		clone[idx] = newChild
		return value.ArrayFrom(clone), true
	case value.KindNull:
		obj := value.NewObject()
		newChild, ok := Write(value.Null(), rest, v)
		if !ok {
			return root, false
		}
		obj.Set(head, newChild)
		return value.Obj(obj), true
	default:
		return root, false
	}
}
