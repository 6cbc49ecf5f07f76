package orchestrator

import (
	"regexp"

	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/schema"
)

// ValidationError is one failed rule, in the §6 output shape.
type ValidationError struct {
	Type       string
	Code       string
	Message    string
	Pattern    string
	FieldValue value.Value
	Data       map[string]value.Value
}

// ValidationResult is the full output of Validate: every field path with at
// least one failing rule, keyed by schema path.
type ValidationResult struct {
	HasError bool
	Errors   map[string][]ValidationError
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{Errors: make(map[string][]ValidationError)}
}

func (vr *ValidationResult) add(field string, ve ValidationError) {
	vr.HasError = true
	vr.Errors[field] = append(vr.Errors[field], ve)
}

// runValidation evaluates every rule in ps.Rules against the current
// TrackedData root, restricted to paths (or every rule, if paths is empty).
func (e *Engine) runValidation(paths []string) *ValidationResult {
	result := newValidationResult()
	wanted := toSet(paths)

	for _, rule := range e.parsed.Rules {
		if len(wanted) > 0 && !wanted[rule.Field] {
			continue
		}
		fieldValue, _ := rule.Target.Resolve(e.data.Root())
		if ve, failed := e.evalRule(rule, fieldValue); failed {
			result.add(rule.Field, ve)
		}
	}
	return result
}

func toSet(items []string) map[string]bool {
	if len(items) == 0 {
		return nil
	}
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func (e *Engine) evalRule(rule *schema.ValidationRule, fieldValue value.Value) (ValidationError, bool) {
	operand := e.ruleOperand(rule)
	switch rule.Kind {
	case "required":
		if operand.Truthy() && isEmptyValue(fieldValue) {
			return ValidationError{Type: "required", Code: "required", Message: "field is required"}, true
		}
	case "minLength":
		n, _ := operand.AsNumber()
		if s, ok := fieldValue.AsString(); ok && float64(len([]rune(s))) < n {
			return ValidationError{Type: "minLength", Code: "minLength", FieldValue: fieldValue}, true
		}
	case "maxLength":
		n, _ := operand.AsNumber()
		if s, ok := fieldValue.AsString(); ok && float64(len([]rune(s))) > n {
			return ValidationError{Type: "maxLength", Code: "maxLength", FieldValue: fieldValue}, true
		}
	case "minValue":
		n, _ := operand.AsNumber()
		if fv, ok := fieldValue.AsNumber(); ok && fv < n {
			return ValidationError{Type: "minValue", Code: "minValue", FieldValue: fieldValue}, true
		}
	case "maxValue":
		n, _ := operand.AsNumber()
		if fv, ok := fieldValue.AsNumber(); ok && fv > n {
			return ValidationError{Type: "maxValue", Code: "maxValue", FieldValue: fieldValue}, true
		}
	case "pattern":
		pat, ok := operand.AsString()
		if !ok {
			break
		}
		s, _ := fieldValue.AsString()
		re, err := regexp.Compile(pat)
		if err == nil && s != "" && !re.MatchString(s) {
			return ValidationError{Type: "pattern", Code: "pattern", Pattern: pat, FieldValue: fieldValue}, true
		}
	case "evaluation":
		if !operand.Truthy() {
			return ValidationError{Type: "evaluation", Code: "evaluation", FieldValue: fieldValue}, true
		}
	}
	return ValidationError{}, false
}

func (e *Engine) ruleOperand(rule *schema.ValidationRule) value.Value {
	if !rule.HasOperand {
		return value.Null()
	}
	if rule.OperandLogicID != 0 {
		tree, ok := e.parsed.Resolve(rule.OperandLogicID)
		if !ok {
			return value.Null()
		}
		v, err := e.reducer.Eval(tree, e.env())
		if err != nil {
			return value.Null()
		}
		return v
	}
	return value.FromAny(rule.StaticOperand)
}

func isEmptyValue(v value.Value) bool {
	switch v.Kind() {
	case value.KindNull:
		return true
	case value.KindString:
		s, _ := v.AsString()
		return s == ""
	case value.KindArray, value.KindObject:
		return v.Len() == 0
	default:
		return false
	}
}
