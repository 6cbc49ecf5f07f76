package eval

import (
	"strconv"

	"github.com/opal-lang/formeval/core/value"
)

// toNumber coerces a Value to a float64 per the loose-equality/arithmetic
// coercion rules: numbers pass through, booleans become 0/1, strings parse
// as a float with strconv.ParseFloat (the empty string becomes 0), null
// becomes 0, everything else fails.
func toNumber(v value.Value) (float64, bool) {
	switch v.Kind() {
	case value.KindNumber:
		n, _ := v.AsNumber()
		return n, true
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			return 1, true
		}
		return 0, true
	case value.KindString:
		s, _ := v.AsString()
		if s == "" {
			return 0, true
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	case value.KindNull:
		return 0, true
	default:
		return 0, false
	}
}

// toString renders a Value as a string for concatenation/formatting
// operators; numbers use the canonical shortest round-tripping form.
func toString(v value.Value) string {
	switch v.Kind() {
	case value.KindString:
		s, _ := v.AsString()
		return s
	case value.KindNumber:
		n, _ := v.AsNumber()
		return value.FormatNumber(n)
	case value.KindBool:
		b, _ := v.AsBool()
		if b {
			return "true"
		}
		return "false"
	case value.KindNull:
		return ""
	default:
		return v.String()
	}
}

// looseEqual implements JSON-Logic-compatible loose equality: matching
// kinds compare structurally; null equals only null; otherwise both sides
// coerce to number (with booleans as 0/1) and compare numerically. A value that
// cannot coerce to a number never loosely-equals a differently-kinded one.
func looseEqual(a, b value.Value) bool {
	if a.Kind() == b.Kind() {
		return value.DeepEqual(a, b)
	}
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	return aok && bok && an == bn
}

// compareNumeric orders two values numerically for </<=/>/>=, except when
// both are strings, where lexicographic order applies.
func compareNumeric(a, b value.Value) (cmp int, ok bool) {
	if a.Kind() == value.KindString && b.Kind() == value.KindString {
		as, _ := a.AsString()
		bs, _ := b.AsString()
		switch {
		case as < bs:
			return -1, true
		case as > bs:
			return 1, true
		default:
			return 0, true
		}
	}
	an, aok := toNumber(a)
	bn, bok := toNumber(b)
	if !aok || !bok {
		return 0, false
	}
	switch {
	case an < bn:
		return -1, true
	case an > bn:
		return 1, true
	default:
		return 0, true
	}
}

// safeNumber applies the configured NaN/Inf handling policy to an
// arithmetic result: collapse to 0 under SafeNaNHandling, else to null.
func (r *Reducer) safeNumber(n float64, finite bool) value.Value {
	if finite {
		return value.Number(n)
	}
	if r.cfg.SafeNaNHandling {
		return value.Number(0)
	}
	return value.Null()
}
