// Package table implements the two-phase table generator (C9): given a
// schema.TablePlan and the tracked data it reads bounds from, it produces
// the table's rows in two passes — a forward pass filling every
// non-forward-referencing column row by row, then a second pass filling
// forward-referencing columns (VALUEAT(self, $iteration+k, col)) now that
// every row a forward reference might touch already exists in the row
// slice.
package table

import (
	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/eval"
	"github.com/opal-lang/formeval/runtime/schema"
)

// Resolver turns a CompiledLogicId back into its compiled tree.
// *core/store.Store and *runtime/schema.ParsedSchema both satisfy it.
type Resolver interface {
	Resolve(id store.CompiledLogicId) (*expr.Expr, bool)
}

// Generator evaluates TablePlans against a Reducer/DataSource pair.
type Generator struct {
	Reducer *eval.Reducer
	Store   Resolver
}

// New returns a Generator that resolves a plan's expressions through st and
// evaluates them with r.
func New(r *eval.Reducer, st Resolver) *Generator {
	return &Generator{Reducer: r, Store: st}
}

// Generate runs the full two-phase protocol for plan against env (whose
// DataSource should already be the instance's TrackedData) and returns the
// generated array of row objects.
func (g *Generator) Generate(plan *schema.TablePlan, env *eval.Env) (value.Value, error) {
	start, err := g.bound(plan.RowStartLogicID, plan.HasRowStart, 0, env)
	if err != nil {
		return value.Null(), err
	}
	end, err := g.bound(plan.RowEndLogicID, plan.HasRowEnd, -1, env)
	if err != nil {
		return value.Null(), err
	}

	rows, err := g.evalDatas(plan, env)
	if err != nil {
		return value.Null(), err
	}
	dataCount := len(rows)

	// Forward pass: one row per generated index, every non-forward column
	// filled immediately; forward columns are placeholder null until the
	// second pass, since their expressions may read a row that does not
	// exist yet.
	for i := start; i <= end; i++ {
		row := value.NewObject()
		iter := float64(i)
		rowIdx := dataCount + (i - start)
		for _, col := range plan.NonForward {
			v, err := g.evalColumn(col.LogicID, rows, iter, rowIdx, env)
			if err != nil {
				return value.Null(), err
			}
			row.Set(col.Name, v)
		}
		for _, col := range plan.Forward {
			row.Set(col.Name, value.Null())
		}
		rows = append(rows, value.Obj(row))
	}

	// Backward pass: iterate end -> start so a forward column's own
	// VALUEAT(self, $iteration+k, col) read of a later row — including
	// another forward column on that later row — sees the value this same
	// pass already computed for it, not the forward-pass null placeholder.
	if len(plan.Forward) > 0 {
		for i := end; i >= start; i-- {
			rowIdx := dataCount + (i - start)
			obj, ok := rows[rowIdx].AsObject()
			if !ok {
				continue
			}
			clone := obj.Clone()
			for _, col := range plan.Forward {
				v, err := g.evalColumn(col.LogicID, rows, float64(i), rowIdx, env)
				if err != nil {
					return value.Null(), err
				}
				clone.Set(col.Name, v)
			}
			rows[rowIdx] = value.Obj(clone)
		}
	}

	return value.ArrayFrom(rows), nil
}

func (g *Generator) bound(id store.CompiledLogicId, has bool, fallback int, env *eval.Env) (int, error) {
	if !has {
		return fallback, nil
	}
	tree, ok := g.Store.Resolve(id)
	if !ok {
		return fallback, nil
	}
	v, err := g.Reducer.Eval(tree, env)
	if err != nil {
		return 0, err
	}
	n, ok := v.AsNumber()
	if !ok {
		return fallback, nil
	}
	return int(n), nil
}

func (g *Generator) evalDatas(plan *schema.TablePlan, env *eval.Env) ([]value.Value, error) {
	rows := make([]value.Value, 0, len(plan.DatasLogicIDs))
	for _, id := range plan.DatasLogicIDs {
		tree, ok := g.Store.Resolve(id)
		if !ok {
			continue
		}
		v, err := g.Reducer.Eval(tree, env)
		if err != nil {
			return nil, err
		}
		rows = append(rows, v)
	}
	return rows, nil
}

// evalColumn evaluates a single column expression with "self" bound to
// rowsSoFar (the table as generated up to this point in the pass) and
// $iteration bound to iter.
func (g *Generator) evalColumn(id store.CompiledLogicId, rowsSoFar []value.Value, iter float64, rowIndex int, env *eval.Env) (value.Value, error) {
	tree, ok := g.Store.Resolve(id)
	if !ok {
		return value.Null(), nil
	}
	env.PushLoop(eval.LoopFrame{
		Iteration: iter,
		TableRows: rowsSoFar,
		RowIndex:  rowIndex,
	})
	v, err := g.Reducer.Eval(tree, env)
	env.PopLoop()
	return v, err
}
