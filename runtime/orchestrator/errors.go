package orchestrator

import "fmt"

// InitError is fatal to New/FromParsed: a structural problem discovered
// before an Engine is usable (version gate, malformed ParsedSchema).
type InitError struct {
	Detail string
}

func (e *InitError) Error() string { return "orchestrator init error: " + e.Detail }

// StructuralError is fatal to the single call that raised it: a reference
// to a subform path that was never registered, or similar programmer-level
// misuse, as opposed to a per-site EvalError.
type StructuralError struct {
	Detail string
}

func (e *StructuralError) Error() string { return "orchestrator structural error: " + e.Detail }

// SiteError records a single expression site's evaluation failure. It is
// never fatal: the site's target is written as null and evaluation
// continues to the next site.
type SiteError struct {
	SchemaPath string
	Err        error
}

func (e *SiteError) Error() string {
	return fmt.Sprintf("site %q: %v", e.SchemaPath, e.Err)
}

func (e *SiteError) Unwrap() error { return e.Err }
