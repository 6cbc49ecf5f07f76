// Package value implements the tagged Value union shared by every component
// of the evaluation engine: null, boolean, number, string, array, and an
// order-preserving object. A Value is treated as immutable once constructed
// so it can be shared by reference across the compiled-expression store, the
// result cache, and the data wrapper without copying.
package value

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/opal-lang/formeval/core/invariant"
)

// Kind identifies which alternative of the Value union is populated.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Value is the tagged union described by the data model: null, boolean,
// IEEE-754 number, UTF-8 string, ordered array, or an insertion-ordered
// object. The zero Value is null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  *Object
}

// Null returns the null value.
func Null() Value { return Value{kind: KindNull} }

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Number wraps an IEEE-754 double.
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// String wraps a UTF-8 string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Array wraps an ordered sequence of values. The slice is retained by
// reference; callers must not mutate it after construction.
func Array(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// ArrayFrom wraps an existing slice without copying.
func ArrayFrom(items []Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{kind: KindArray, arr: items}
}

// Obj wraps an Object.
func Obj(o *Object) Value {
	invariant.NotNil(o, "object")
	return Value{kind: KindObject, obj: o}
}

// Kind reports which alternative is populated.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload, or false/ok=false if v is not a bool.
func (v Value) AsBool() (bool, bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsNumber returns the numeric payload, or 0/ok=false if v is not a number.
func (v Value) AsNumber() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	return v.n, true
}

// AsString returns the string payload, or ""/ok=false if v is not a string.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsArray returns the backing slice, or nil/ok=false if v is not an array.
// The returned slice must be treated as read-only.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.arr, true
}

// AsObject returns the backing Object, or nil/ok=false if v is not an object.
func (v Value) AsObject() (*Object, bool) {
	if v.kind != KindObject {
		return nil, false
	}
	return v.obj, true
}

// Truthy implements the falsy set from the data model: false, null, 0, "",
// and missing are falsy; everything else — including empty arrays/objects —
// is truthy.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0
	case KindString:
		return v.s != ""
	default:
		return true
	}
}

// Len reports the length of an array or object, or -1 for other kinds.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return v.obj.Len()
	default:
		return -1
	}
}

// DeepEqual reports strict structural equality: kinds and every nested
// element must match exactly (used by === and !==).
func DeepEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n || (math.IsNaN(a.n) && math.IsNaN(b.n))
	case KindString:
		return a.s == b.s
	case KindArray:
		if len(a.arr) != len(b.arr) {
			return false
		}
		for i := range a.arr {
			if !DeepEqual(a.arr[i], b.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		return a.obj.deepEqual(b.obj)
	default:
		return false
	}
}

// String renders a debug representation (not the JSON form).
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return FormatNumber(v.n)
	case KindString:
		return strconv.Quote(v.s)
	case KindArray:
		return fmt.Sprintf("%v", v.arr)
	case KindObject:
		return v.obj.String()
	default:
		return "<invalid>"
	}
}

// FormatNumber renders a float64 in its shortest round-tripping decimal
// form, matching the canonicalization rule used by the compiler for
// literal numbers.
func FormatNumber(n float64) string {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatFloat(n, 'f', -1, 64)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// Object is an insertion-ordered string-keyed map.
type Object struct {
	keys []string
	m    map[string]Value
}

// NewObject returns an empty Object.
func NewObject() *Object {
	return &Object{m: make(map[string]Value)}
}

// Get returns the value for key, or null/ok=false if absent.
func (o *Object) Get(key string) (Value, bool) {
	if o == nil {
		return Null(), false
	}
	v, ok := o.m[key]
	return v, ok
}

// Set inserts or overwrites key. Insertion order is preserved for new keys.
func (o *Object) Set(key string, v Value) {
	if _, exists := o.m[key]; !exists {
		o.keys = append(o.keys, key)
	}
	o.m[key] = v
}

// Delete removes key, preserving the order of the remaining keys.
func (o *Object) Delete(key string) {
	if _, exists := o.m[key]; !exists {
		return
	}
	delete(o.m, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the keys in insertion order. Callers must not mutate it.
func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Len returns the number of entries.
func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

// Clone returns a shallow copy: a new key list and map, same Value payloads.
func (o *Object) Clone() *Object {
	if o == nil {
		return NewObject()
	}
	clone := &Object{
		keys: append([]string(nil), o.keys...),
		m:    make(map[string]Value, len(o.m)),
	}
	for k, v := range o.m {
		clone.m[k] = v
	}
	return clone
}

func (o *Object) deepEqual(other *Object) bool {
	if o.Len() != other.Len() {
		return false
	}
	for _, k := range o.keys {
		av, _ := o.Get(k)
		bv, ok := other.Get(k)
		if !ok || !DeepEqual(av, bv) {
			return false
		}
	}
	return true
}

func (o *Object) String() string {
	keys := append([]string(nil), o.keys...)
	sort.Strings(keys)
	b, _ := json.Marshal(o.asMap())
	_ = keys
	return string(b)
}

func (o *Object) asMap() map[string]any {
	m := make(map[string]any, o.Len())
	for _, k := range o.keys {
		v, _ := o.Get(k)
		m[k] = ToAny(v)
	}
	return m
}
