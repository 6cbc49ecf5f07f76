package schema

import (
	"errors"

	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
)

var errNotObject = errors.New("table block must be an object")

// buildTablePlan compiles a field's "table" block — {rowStart?, rowEnd,
// datas?, columns} — into a TablePlan, partitioning columns into the
// forward/non-forward groups the two-phase generator (runtime/table) needs,
// and accumulating the union of every referenced expression's read-set.
func buildTablePlan(tableDoc value.Value, segs []string, target *path.Path, st *store.Store) (*TablePlan, error) {
	obj, ok := tableDoc.AsObject()
	if !ok {
		return nil, &ParseError{Path: schemaPathOf(segs) + ".table", Err: errNotObject}
	}
	plan := &TablePlan{SchemaPath: schemaPathOf(segs), Target: target}
	seen := make(map[string]*path.Path)
	union := func(compiled *expr.Expr) {
		for _, p := range expr.ReadSet(compiled) {
			seen[p.String()] = p
		}
	}

	if rowStartDoc, ok := obj.Get("rowStart"); ok {
		id, compiled, err := st.Compile(rowStartDoc)
		if err != nil {
			return nil, &ParseError{Path: plan.SchemaPath + ".table.rowStart", Err: err}
		}
		plan.RowStartLogicID = id
		plan.HasRowStart = true
		union(compiled)
	}

	if rowEndDoc, ok := obj.Get("rowEnd"); ok {
		id, compiled, err := st.Compile(rowEndDoc)
		if err != nil {
			return nil, &ParseError{Path: plan.SchemaPath + ".table.rowEnd", Err: err}
		}
		plan.RowEndLogicID = id
		plan.HasRowEnd = true
		union(compiled)
	}

	if datasDoc, ok := obj.Get("datas"); ok {
		if arr, ok := datasDoc.AsArray(); ok {
			for i, entry := range arr {
				id, compiled, err := st.Compile(entry)
				if err != nil {
					return nil, &ParseError{Path: plan.SchemaPath + ".table.datas" + indexSuffix(i), Err: err}
				}
				plan.DatasLogicIDs = append(plan.DatasLogicIDs, id)
				union(compiled)
			}
		}
	}

	if colsDoc, ok := obj.Get("columns"); ok {
		if colsObj, ok := colsDoc.AsObject(); ok {
			for _, name := range colsObj.Keys() {
				colDoc, _ := colsObj.Get(name)
				id, compiled, err := st.Compile(colDoc)
				if err != nil {
					return nil, &ParseError{Path: plan.SchemaPath + ".table.columns." + name, Err: err}
				}
				col := TableColumn{Name: name, LogicID: id, ForwardRef: expr.HasForwardRef(compiled)}
				plan.Columns = append(plan.Columns, col)
				if col.ForwardRef {
					plan.Forward = append(plan.Forward, col)
				} else {
					plan.NonForward = append(plan.NonForward, col)
				}
				union(compiled)
			}
		}
	}

	plan.ReadSet = make([]*path.Path, 0, len(seen))
	for _, p := range seen {
		plan.ReadSet = append(plan.ReadSet, p)
	}
	return plan, nil
}

// tableReadSet returns the plan's precomputed union read-set.
func tableReadSet(plan *TablePlan) []*path.Path {
	return plan.ReadSet
}
