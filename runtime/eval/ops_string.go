package eval

import (
	"strconv"
	"strings"

	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/value"
)

// evalString handles cat/concat, substr, search, left, right, mid, len,
// splittext, splitvalue, stringformat. None of these fail outright on a
// type mismatch or out-of-range argument; they degrade to an empty string
// or null per §4.3's "anything that cannot be meaningfully performed
// returns null" policy.
func evalString(op expr.Operator, args []value.Value) (value.Value, error) {
	switch op {
	case expr.OpCat:
		var b strings.Builder
		for _, a := range args {
			b.WriteString(toString(a))
		}
		return value.String(b.String()), nil
	case expr.OpSubstr:
		return evalSubstr(args)
	case expr.OpSearch:
		return evalSearch(args)
	case expr.OpLeft:
		s := toString(args[0])
		n, ok := toNumber(args[1])
		if !ok || n < 0 {
			return value.String(""), nil
		}
		return value.String(clampSubstr(s, 0, int(n))), nil
	case expr.OpRight:
		s := toString(args[0])
		n, ok := toNumber(args[1])
		if !ok || n < 0 {
			return value.String(""), nil
		}
		rs := []rune(s)
		start := len(rs) - int(n)
		if start < 0 {
			start = 0
		}
		return value.String(string(rs[start:])), nil
	case expr.OpMid:
		s := []rune(toString(args[0]))
		start, ok1 := toNumber(args[1])
		length, ok2 := toNumber(args[2])
		if !ok1 || !ok2 {
			return value.String(""), nil
		}
		from := int(start)
		if from < 0 {
			from = 0
		}
		if from > len(s) {
			return value.String(""), nil
		}
		to := from + int(length)
		if to > len(s) || to < from {
			to = len(s)
		}
		return value.String(string(s[from:to])), nil
	case expr.OpLen:
		switch args[0].Kind() {
		case value.KindString:
			s, _ := args[0].AsString()
			return value.Number(float64(len([]rune(s)))), nil
		case value.KindArray, value.KindObject:
			return value.Number(float64(args[0].Len())), nil
		default:
			return value.Null(), nil
		}
	case expr.OpSplitText:
		s := toString(args[0])
		sep := ","
		if len(args) > 1 {
			sep = toString(args[1])
		}
		parts := strings.Split(s, sep)
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.String(p)
		}
		return value.ArrayFrom(items), nil
	case expr.OpSplitValue:
		return evalSplitValue(args)
	case expr.OpStringFormat:
		return evalStringFormat(args)
	}
	return value.Null(), nil
}

func clampSubstr(s string, start, n int) string {
	rs := []rune(s)
	if start < 0 {
		start = 0
	}
	if start > len(rs) {
		return ""
	}
	end := start + n
	if end > len(rs) || n < 0 {
		end = len(rs)
	}
	return string(rs[start:end])
}

// evalSubstr implements start/length with Excel/JS-compatible negative
// start (counts from the end) and an optional length (defaults to "to the
// end of the string").
func evalSubstr(args []value.Value) (value.Value, error) {
	s := []rune(toString(args[0]))
	start, ok := toNumber(args[1])
	if !ok {
		return value.String(""), nil
	}
	from := int(start)
	if from < 0 {
		from += len(s)
		if from < 0 {
			from = 0
		}
	}
	if from > len(s) {
		return value.String(""), nil
	}
	to := len(s)
	if len(args) > 2 {
		length, ok := toNumber(args[2])
		if !ok {
			return value.String(""), nil
		}
		if length < 0 {
			to = len(s) + int(length)
		} else {
			to = from + int(length)
		}
		if to > len(s) {
			to = len(s)
		}
		if to < from {
			to = from
		}
	}
	return value.String(string(s[from:to])), nil
}

// evalSearch is case-insensitive; returns a 1-based position, or null
// (never -1) when the needle is not found.
func evalSearch(args []value.Value) (value.Value, error) {
	needle := strings.ToLower(toString(args[0]))
	haystack := strings.ToLower(toString(args[1]))
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return value.Null(), nil
	}
	return value.Number(float64(len([]rune(haystack[:idx])) + 1)), nil
}

func evalSplitValue(args []value.Value) (value.Value, error) {
	s := toString(args[0])
	sep := "|"
	if len(args) > 1 {
		sep = toString(args[1])
	}
	idxArg := 0.0
	hasIdx := false
	if len(args) > 2 {
		if n, ok := toNumber(args[2]); ok {
			idxArg = n
			hasIdx = true
		}
	}
	parts := strings.Split(s, sep)
	if !hasIdx {
		items := make([]value.Value, len(parts))
		for i, p := range parts {
			items[i] = value.String(p)
		}
		return value.ArrayFrom(items), nil
	}
	idx := int(idxArg)
	if idx < 0 || idx >= len(parts) {
		return value.Null(), nil
	}
	return value.String(parts[idx]), nil
}

// evalStringFormat implements a small printf-style template where "{0}",
// "{1}", ... are replaced by the corresponding trailing argument rendered
// with toString.
func evalStringFormat(args []value.Value) (value.Value, error) {
	if len(args) == 0 {
		return value.String(""), nil
	}
	template := toString(args[0])
	rest := args[1:]
	var b strings.Builder
	i := 0
	for i < len(template) {
		if template[i] == '{' {
			if end := strings.IndexByte(template[i:], '}'); end > 0 {
				idxStr := template[i+1 : i+end]
				if n, err := strconv.Atoi(idxStr); err == nil && n >= 0 && n < len(rest) {
					b.WriteString(toString(rest[n]))
					i += end + 1
					continue
				}
			}
		}
		b.WriteByte(template[i])
		i++
	}
	return value.String(b.String()), nil
}
