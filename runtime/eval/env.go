// Package eval implements the single-entry reducer that walks a compiled
// expr.Expr tree and produces a value.Value, dispatching on the tree's
// closed operator tag rather than any string name.
package eval

import (
	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/value"
)

// DataSource resolves a path against whatever tracked-data wrapper the
// caller supplies. runtime/data.TrackedData implements this; eval itself
// has no dependency on that package so the two can be wired by the
// orchestrator without a cycle.
type DataSource interface {
	Resolve(p *path.Path) (value.Value, bool)
}

// LoopFrame is the environment pushed by map/filter/reduce/all/some/none/for
// and read back by a bare `{"var": ""}`, `{"var": "accumulator"}`,
// `{"var": "current"}`, or `{"var": "$iteration"}` inside the closure body,
// and by table operators resolving "self" against the active table.
type LoopFrame struct {
	Current     value.Value
	Accumulator value.Value
	Iteration   float64
	TableRows   []value.Value
	RowIndex    int
}

// Env carries the data source and the current loop-frame stack through one
// evaluation. Env is not safe for concurrent use; callers evaluating
// multiple expression sites concurrently must use one Env per goroutine.
type Env struct {
	Data DataSource

	loopStack []LoopFrame
}

// NewEnv returns an Env rooted at data, with an empty loop stack.
func NewEnv(data DataSource) *Env {
	return &Env{Data: data}
}

func (env *Env) pushLoop(f LoopFrame) {
	env.loopStack = append(env.loopStack, f)
}

func (env *Env) popLoop() {
	env.loopStack = env.loopStack[:len(env.loopStack)-1]
}

// PushLoop and PopLoop expose the loop-frame stack to callers outside the
// package that need to drive evaluation with a synthetic frame — the table
// generator (runtime/table) binding "self"/"$iteration" for a table column,
// in particular.
func (env *Env) PushLoop(f LoopFrame) { env.pushLoop(f) }
func (env *Env) PopLoop()             { env.popLoop() }

func (env *Env) topLoop() (LoopFrame, bool) {
	if n := len(env.loopStack); n > 0 {
		return env.loopStack[n-1], true
	}
	return LoopFrame{}, false
}

// loopLocalNames mirrors core/expr's readset.go; kept in sync deliberately
// rather than imported, since eval resolves these names from the live
// LoopFrame stack while readset only needs to recognize and skip them.
var loopLocalNames = map[string]bool{
	"":            true,
	"accumulator": true,
	"current":     true,
	"$iteration":  true,
	"self":        true,
}
