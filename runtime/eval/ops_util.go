package eval

import (
	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/value"
)

// evalMissing takes one or more literal path strings and returns the
// subset that cannot be resolved against the tracked data, in the order
// given. An empty result means every named path is present.
func (r *Reducer) evalMissing(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	paths, err := r.missingPathArgs(e, env, depth)
	if err != nil {
		return value.Null(), err
	}
	var out []value.Value
	for _, p := range paths {
		if !r.pathPresent(p, env) {
			out = append(out, value.String(p))
		}
	}
	return value.ArrayFrom(out), nil
}

// evalMissingSome takes a minimum-required count and a path list; it
// returns an empty array once at least that many of the paths are
// present, otherwise the full list of the ones that are missing.
func (r *Reducer) evalMissingSome(e *expr.Expr, env *Env, depth int) (value.Value, error) {
	if len(e.Children) < 2 {
		return value.ArrayFrom(nil), nil
	}
	minVal, err := r.eval(e.Children[0], env, depth+1)
	if err != nil {
		return value.Null(), err
	}
	minRequired, _ := toNumber(minVal)

	listVal, err := r.eval(e.Children[1], env, depth+1)
	if err != nil {
		return value.Null(), err
	}
	var paths []string
	for _, item := range asArray(listVal) {
		if s, ok := item.AsString(); ok {
			paths = append(paths, s)
		}
	}

	var missing []value.Value
	present := 0
	for _, p := range paths {
		if r.pathPresent(p, env) {
			present++
		} else {
			missing = append(missing, value.String(p))
		}
	}
	if float64(present) >= minRequired {
		return value.ArrayFrom(nil), nil
	}
	return value.ArrayFrom(missing), nil
}

func (r *Reducer) missingPathArgs(e *expr.Expr, env *Env, depth int) ([]string, error) {
	var paths []string
	for _, c := range e.Children {
		v, err := r.eval(c, env, depth+1)
		if err != nil {
			return nil, err
		}
		if s, ok := v.AsString(); ok {
			paths = append(paths, s)
			continue
		}
		for _, item := range asArray(v) {
			if s, ok := item.AsString(); ok {
				paths = append(paths, s)
			}
		}
	}
	return paths, nil
}

func (r *Reducer) pathPresent(p string, env *Env) bool {
	if env.Data == nil {
		return false
	}
	_, ok := env.Data.Resolve(path.Parse(p))
	return ok
}

// evalOptionsOp handles RANGEOPTIONS(start, end, step?), MAPOPTIONS(rows,
// labelField, valueField), and MAPOPTIONSIF(rows, condField, labelField,
// valueField) — helpers that turn a numeric range or a row table into the
// {label, value} option-list shape a schema's select-type field consumes.
func (r *Reducer) evalOptionsOp(op expr.Operator, args []value.Value) (value.Value, error) {
	switch op {
	case expr.OpRangeOptions:
		return evalRangeOptions(args)
	case expr.OpMapOptions:
		return evalMapOptions(args, "")
	case expr.OpMapOptionsIf:
		if len(args) < 4 {
			return value.ArrayFrom(nil), nil
		}
		condField, ok := args[1].AsString()
		if !ok {
			return value.ArrayFrom(nil), nil
		}
		return evalMapOptions([]value.Value{args[0], args[2], args[3]}, condField)
	}
	return value.Null(), nil
}

func evalRangeOptions(args []value.Value) (value.Value, error) {
	if len(args) < 2 {
		return value.ArrayFrom(nil), nil
	}
	start, ok1 := toNumber(args[0])
	end, ok2 := toNumber(args[1])
	step := 1.0
	if len(args) > 2 {
		if s, ok := toNumber(args[2]); ok && s != 0 {
			step = s
		}
	}
	if !ok1 || !ok2 || step == 0 {
		return value.ArrayFrom(nil), nil
	}
	var out []value.Value
	if step > 0 {
		for n := start; n <= end; n += step {
			out = append(out, optionValue(n))
		}
	} else {
		for n := start; n >= end; n += step {
			out = append(out, optionValue(n))
		}
	}
	return value.ArrayFrom(out), nil
}

func optionValue(n float64) value.Value {
	obj := value.NewObject()
	label := value.Number(n)
	obj.Set("label", label)
	obj.Set("value", label)
	return value.Obj(obj)
}

func evalMapOptions(args []value.Value, condField string) (value.Value, error) {
	if len(args) < 3 {
		return value.ArrayFrom(nil), nil
	}
	rows := asArray(args[0])
	labelField, ok1 := args[1].AsString()
	valueField, ok2 := args[2].AsString()
	if !ok1 || !ok2 {
		return value.ArrayFrom(nil), nil
	}
	var out []value.Value
	for _, row := range rows {
		if condField != "" {
			cv, ok := rowField(row, condField)
			if !ok || !cv.Truthy() {
				continue
			}
		}
		label, lok := rowField(row, labelField)
		val, vok := rowField(row, valueField)
		if !lok || !vok {
			continue
		}
		obj := value.NewObject()
		obj.Set("label", label)
		obj.Set("value", val)
		out = append(out, value.Obj(obj))
	}
	return value.ArrayFrom(out), nil
}
