package schema

import "fmt"

// ParseError is fatal to Parse: a structural problem with the schema
// document itself (as opposed to a per-site EvalError, which is never
// fatal). It wraps the underlying compile or shape-validation failure.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("schema parse error at %q: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("schema parse error: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// CycleError reports a dependency cycle detected by the batch planner, at
// the granularity of the offending expression-site schema paths.
type CycleError struct {
	Paths []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle through %v", e.Paths)
}
