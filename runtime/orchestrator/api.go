package orchestrator

import (
	"sort"

	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/data"
	"github.com/opal-lang/formeval/runtime/eval"
	"github.com/opal-lang/formeval/runtime/table"
)

// Validate runs the validation engine (§4.7) over the current data,
// restricted to paths (or every rule, if paths is empty), and records the
// result for GetLastValidation.
func (e *Engine) Validate(paths []string) *ValidationResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	result := e.runValidation(paths)
	e.lastValidation = result
	return result
}

// GetLastValidation returns the result of the most recent full evaluate or
// explicit Validate call, or nil if neither has run yet.
func (e *Engine) GetLastValidation() *ValidationResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastValidation
}

// GetSchemaValue returns the current data tree, unresolved (no layout $ref
// expansion, no condition propagation).
func (e *Engine) GetSchemaValue() value.Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.data.Root()
}

// GetEvaluatedValueByPath resolves a single schema path against the
// current data tree.
func (e *Engine) GetEvaluatedValueByPath(schemaPath string) (value.Value, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return path.Parse(schemaPath).Resolve(e.data.Root())
}

// GetEvaluatedSchema returns the current data tree. When resolveLayout is
// true, every recorded LayoutRef is expanded in place (the referenced
// sub-document is substituted at its $ref position) and condition flags
// ("hidden"/"disabled") are propagated from a field onto every field nested
// under it, per §4.10's get_evaluated_schema(resolve_layout) contract.
//
// This is a deliberate simplification of the general case: it operates
// only over the positions the analyzer already recorded (ExpressionSite
// and LayoutRef paths), not over a retained copy of the original raw
// schema document, which this engine never keeps past Parse.
func (e *Engine) GetEvaluatedSchema(resolveLayout bool) value.Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	root := e.data.Root()
	if !resolveLayout {
		return root
	}
	root = e.resolveLayoutRefs(root)
	root = e.propagateConditions(root)
	return root
}

func (e *Engine) resolveLayoutRefs(root value.Value) value.Value {
	for _, ref := range e.parsed.LayoutRefs {
		sub, ok := path.Parse(ref.RefPath).Resolve(root)
		if !ok {
			continue
		}
		segs := path.ParseDotted(ref.SchemaPath).Segments()
		newRoot, ok := path.Write(root, segs, sub)
		if ok {
			root = newRoot
		}
	}
	return root
}

// propagateConditions cascades a true "condition.hidden"/"condition.disabled"
// flag from a field onto every field nested under it. Known field paths are
// derived from the analyzer's own ExpressionSite set (stripped of any
// trailing "condition"/"rules" segments), processed shallowest-first so a
// propagated flag is visible to the next, deeper pass.
func (e *Engine) propagateConditions(root value.Value) value.Value {
	fields := e.knownFieldPaths()
	sort.Slice(fields, func(i, j int) bool {
		return len(path.ParseDotted(fields[i]).Segments()) < len(path.ParseDotted(fields[j]).Segments())
	})

	for _, kind := range []string{"hidden", "disabled"} {
		for _, parent := range fields {
			parentSegs := append(path.ParseDotted(parent).Segments(), "condition", kind)
			val, ok := path.New(parentSegs...).Resolve(root)
			if !ok || !val.Truthy() {
				continue
			}
			parentPath := path.ParseDotted(parent)
			for _, child := range fields {
				if child == parent {
					continue
				}
				childPath := path.ParseDotted(child)
				if !childPath.HasPrefix(parentPath) {
					continue
				}
				childSegs := append(childPath.Segments(), "condition", kind)
				newRoot, ok := path.Write(root, childSegs, value.FromAny(true))
				if ok {
					root = newRoot
				}
			}
		}
	}
	return root
}

func (e *Engine) knownFieldPaths() []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range e.parsed.Sites {
		field := fieldOf(s.SchemaPath)
		if field != "" && !seen[field] {
			seen[field] = true
			out = append(out, field)
		}
	}
	for sp := range e.parsed.TablePlans {
		if !seen[sp] {
			seen[sp] = true
			out = append(out, sp)
		}
	}
	return out
}

// fieldOf strips a site's own "condition.<name>" or "rules.<kind>" suffix,
// if present, back to the field it annotates.
func fieldOf(schemaPath string) string {
	segs := path.ParseDotted(schemaPath).Segments()
	for i, s := range segs {
		if s == "condition" || s == "rules" {
			return path.New(segs[:i]...).String()
		}
	}
	return schemaPath
}

// CacheStats returns the current result-cache entry count and the
// process-wide compiled-expression store's Stats, for "formeval cache
// stats".
func (e *Engine) CacheStats() (cacheLen int, storeStats store.Stats) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache.Len(), e.store.Stats()
}

// CompileLogic compiles a raw expression document and returns its
// content-addressed id, for later RunLogic calls ("compile_logic").
func (e *Engine) CompileLogic(raw value.Value) (store.CompiledLogicId, error) {
	id, _, err := e.store.Compile(raw)
	return id, err
}

// RunLogic evaluates a previously compiled expression against a one-off
// data/context pair, independent of the engine's own tracked data
// ("run_logic").
func (e *Engine) RunLogic(id store.CompiledLogicId, d, ctx value.Value) (value.Value, error) {
	tree, ok := e.store.Resolve(id)
	if !ok {
		return value.Null(), &StructuralError{Detail: "unknown compiled logic id"}
	}
	td := data.New(mergeContext(d, ctx))
	return e.reducer.Eval(tree, eval.NewEnv(td))
}

// SetTimezoneOffsetMinutes reconfigures the reducer's timezone offset for
// subsequent evaluations. Existing cached results are not invalidated: a
// caller changing timezone mid-session is expected to force a full
// Evaluate afterward.
func (e *Engine) SetTimezoneOffsetMinutes(minutes *int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	off := 0
	if minutes != nil {
		off = *minutes
	}
	e.cfg.TimezoneOffsetMinutes = minutes
	reducer := eval.New(eval.Config{
		RecursionLimit:        e.cfg.RecursionLimit,
		SafeNaNHandling:       e.cfg.SafeNaNHandling,
		TimezoneOffsetMinutes: off,
	})
	e.reducer = reducer
	e.tableGen = table.New(reducer, e.store)
}

// Subform returns the registered child Engine for subformPath, if any.
func (e *Engine) Subform(subformPath string) (*Engine, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	sub, ok := e.subforms[subformPath]
	return sub, ok
}

// EvaluateSubform routes to the registered subform Engine at subformPath
// and runs Evaluate on it.
func (e *Engine) EvaluateSubform(subformPath string, d, ctx value.Value, changedPaths []string) error {
	sub, ok := e.Subform(subformPath)
	if !ok {
		return &StructuralError{Detail: "subform not registered: " + subformPath}
	}
	return sub.Evaluate(d, ctx, changedPaths)
}

// ValidateSubform routes to the registered subform Engine at subformPath.
func (e *Engine) ValidateSubform(subformPath string, paths []string) (*ValidationResult, error) {
	sub, ok := e.Subform(subformPath)
	if !ok {
		return nil, &StructuralError{Detail: "subform not registered: " + subformPath}
	}
	return sub.Validate(paths), nil
}

// GetEvaluatedSchemaSubform routes to the registered subform Engine.
func (e *Engine) GetEvaluatedSchemaSubform(subformPath string, resolveLayout bool) (value.Value, error) {
	sub, ok := e.Subform(subformPath)
	if !ok {
		return value.Null(), &StructuralError{Detail: "subform not registered: " + subformPath}
	}
	return sub.GetEvaluatedSchema(resolveLayout), nil
}
