package schema

import (
	"strings"

	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/graph"
)

// ruleKinds are the fixed validation-rule names §6 recognizes.
var ruleKinds = map[string]bool{
	"required": true, "minLength": true, "maxLength": true,
	"minValue": true, "maxValue": true, "pattern": true, "evaluation": true,
}

// Parse performs the single pre-order walk described by C7: it validates
// the document's coarse shape, compiles every expression site through st,
// collects validation rules, table plans, layout $ref positions, and
// subform registrations, and runs the batch planner (C8) over the
// resulting dependency graph.
func Parse(doc value.Value, st *store.Store) (*ParsedSchema, error) {
	if err := validateShape(value.ToAny(doc)); err != nil {
		return nil, &ParseError{Err: err}
	}

	ps := &ParsedSchema{
		SiteByPath:   make(map[string]*ExpressionSite),
		TablePlans:   make(map[string]*TablePlan),
		SubformItems: make(map[string]value.Value),
	}
	ps.CompiledStore = st
	ps.AnalyzerVersion = AnalyzerVersion
	if params, ok := getKey(doc, "$params"); ok {
		ps.Params = params
	}

	if err := walkNode(doc, nil, ps, st); err != nil {
		return nil, err
	}

	g := graph.New()
	ps.Dependents = make(map[string][]string)
	for _, s := range ps.Sites {
		g.AddNode(s.SchemaPath)
	}
	for _, a := range ps.Sites {
		for _, b := range ps.Sites {
			if a == b {
				continue
			}
			if dependsOn(b.ReadSet, a.Target) {
				g.AddEdge(a.SchemaPath, b.SchemaPath)
				ps.Dependents[a.SchemaPath] = append(ps.Dependents[a.SchemaPath], b.SchemaPath)
			}
		}
	}
	batches, err := g.Plan()
	if err != nil {
		cycleErr := err.(*graph.CycleError)
		return nil, &CycleError{Paths: cycleErr.Nodes}
	}
	ps.Batches = batches
	return ps, nil
}

// dependsOn reports whether target intersects any path in readSet, in
// either direction (a read of a sub-field of a written object, or a write
// to a sub-field of a read object, both count as a dependency).
func dependsOn(readSet []*path.Path, target *path.Path) bool {
	for _, r := range readSet {
		if r.HasPrefix(target) || target.HasPrefix(r) {
			return true
		}
	}
	return false
}

func getKey(node value.Value, key string) (value.Value, bool) {
	obj, ok := node.AsObject()
	if !ok {
		return value.Null(), false
	}
	return obj.Get(key)
}

func schemaPathOf(segs []string) string { return strings.Join(segs, ".") }

func walkNode(node value.Value, segs []string, ps *ParsedSchema, st *store.Store) error {
	obj, ok := node.AsObject()
	if !ok {
		return nil
	}
	target := path.New(segs...)
	schemaPath := schemaPathOf(segs)

	if evalDoc, ok := obj.Get("$evaluation"); ok {
		site, err := compileSite(evalDoc, schemaPath, target, st)
		if err != nil {
			return err
		}
		addSite(ps, site)
	}

	if rulesDoc, ok := obj.Get("rules"); ok {
		if rulesObj, ok := rulesDoc.AsObject(); ok {
			for _, ruleName := range rulesObj.Keys() {
				if !ruleKinds[ruleName] {
					continue
				}
				ruleDoc, _ := rulesObj.Get(ruleName)
				if err := walkRule(ruleDoc, ruleName, segs, ps, st); err != nil {
					return err
				}
			}
		}
	}

	if condDoc, ok := obj.Get("condition"); ok {
		if condObj, ok := condDoc.AsObject(); ok {
			for _, name := range condObj.Keys() {
				exprDoc, _ := condObj.Get(name)
				condSegs := append(append([]string{}, segs...), "condition", name)
				site, err := compileSite(exprDoc, schemaPathOf(condSegs), path.New(condSegs...), st)
				if err != nil {
					return err
				}
				addSite(ps, site)
			}
		}
	}

	if tableDoc, ok := obj.Get("table"); ok {
		plan, err := buildTablePlan(tableDoc, segs, target, st)
		if err != nil {
			return err
		}
		ps.TablePlans[schemaPath] = plan
		ps.Sites = append(ps.Sites, &ExpressionSite{
			SchemaPath: schemaPath,
			Target:     target,
			ReadSet:    tableReadSet(plan),
		})
		ps.SiteByPath[schemaPath] = ps.Sites[len(ps.Sites)-1]
	}

	if itemsDoc, ok := obj.Get("items"); ok {
		if containsExpressionSite(itemsDoc) {
			ps.SubformPaths = append(ps.SubformPaths, schemaPath)
			ps.SubformItems[schemaPath] = itemsDoc
		}
	}

	if refDoc, ok := obj.Get("$ref"); ok {
		if refStr, ok := refDoc.AsString(); ok {
			ps.LayoutRefs = append(ps.LayoutRefs, LayoutRef{SchemaPath: schemaPath, RefPath: refStr})
		}
	}

	if propsDoc, ok := obj.Get("properties"); ok {
		if propsObj, ok := propsDoc.AsObject(); ok {
			for _, fieldName := range propsObj.Keys() {
				fieldSchema, _ := propsObj.Get(fieldName)
				childSegs := append(append([]string{}, segs...), fieldName)
				if err := walkNode(fieldSchema, childSegs, ps, st); err != nil {
					return err
				}
			}
		}
	}

	return nil
}

func addSite(ps *ParsedSchema, site *ExpressionSite) {
	ps.Sites = append(ps.Sites, site)
	ps.SiteByPath[site.SchemaPath] = site
}

func compileSite(exprDoc value.Value, schemaPath string, target *path.Path, st *store.Store) (*ExpressionSite, error) {
	id, compiled, err := st.Compile(exprDoc)
	if err != nil {
		return nil, &ParseError{Path: schemaPath, Err: err}
	}
	return &ExpressionSite{
		SchemaPath: schemaPath,
		LogicID:    id,
		Target:     target,
		ReadSet:    expr.ReadSet(compiled),
		ForwardRef: expr.HasForwardRef(compiled),
	}, nil
}

// walkRule handles one rules.<kind> entry: {"value": <static or expr>}
// (and, for "evaluation", an array of such entries — see DESIGN.md's
// open-question decision to evaluate and report every entry).
func walkRule(ruleDoc value.Value, kind string, segs []string, ps *ParsedSchema, st *store.Store) error {
	ruleObj, ok := ruleDoc.AsObject()
	if !ok {
		return nil
	}
	valueDoc, ok := ruleObj.Get("value")
	if !ok {
		return nil
	}
	target := path.New(segs...)
	field := schemaPathOf(segs)

	if kind == "evaluation" {
		if arr, ok := valueDoc.AsArray(); ok {
			for i, entry := range arr {
				rule, err := buildRule(entry, kind, field, target, st, i)
				if err != nil {
					return err
				}
				ps.Rules = append(ps.Rules, rule)
			}
			return nil
		}
	}

	rule, err := buildRule(valueDoc, kind, field, target, st, -1)
	if err != nil {
		return err
	}
	ps.Rules = append(ps.Rules, rule)
	return nil
}

func buildRule(valueDoc value.Value, kind, field string, target *path.Path, st *store.Store, index int) (*ValidationRule, error) {
	rule := &ValidationRule{Kind: kind, Field: field, Target: target}
	if isExpressionDoc(valueDoc) {
		exprDoc, _ := getKey(valueDoc, "$evaluation")
		id, _, err := st.Compile(exprDoc)
		if err != nil {
			suffix := ""
			if index >= 0 {
				suffix = indexSuffix(index)
			}
			return nil, &ParseError{Path: field + ".rules." + kind + suffix, Err: err}
		}
		rule.OperandLogicID = id
		rule.HasOperand = true
	} else {
		rule.StaticOperand = value.ToAny(valueDoc)
		rule.HasOperand = true
	}
	return rule, nil
}

func indexSuffix(i int) string {
	return "[" + itoaSmall(i) + "]"
}

func itoaSmall(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}

// isExpressionDoc reports whether valueDoc is an object carrying a
// "$evaluation" key (an expression wrapper) rather than a plain static
// operand like a number or pattern string. Per §6, a rule's operand may be wrapped as {"$evaluation": {...}}.
func isExpressionDoc(valueDoc value.Value) bool {
	obj, ok := valueDoc.AsObject()
	if !ok {
		return false
	}
	_, hasEval := obj.Get("$evaluation")
	return hasEval
}

// containsExpressionSite performs a lightweight recursive scan (no site
// registration) for any expression-bearing position, used to decide
// whether an array field's items schema should be promoted to a subform.
func containsExpressionSite(node value.Value) bool {
	obj, ok := node.AsObject()
	if !ok {
		return false
	}
	if _, ok := obj.Get("$evaluation"); ok {
		return true
	}
	if _, ok := obj.Get("table"); ok {
		return true
	}
	if condDoc, ok := obj.Get("condition"); ok {
		if condObj, ok := condDoc.AsObject(); ok && condObj.Len() > 0 {
			return true
		}
	}
	if rulesDoc, ok := obj.Get("rules"); ok {
		if rulesObj, ok := rulesDoc.AsObject(); ok {
			for _, k := range rulesObj.Keys() {
				ruleDoc, _ := rulesObj.Get(k)
				if ruleObj, ok := ruleDoc.AsObject(); ok {
					if v, ok := ruleObj.Get("value"); ok && isExpressionDoc(v) {
						return true
					}
				}
			}
		}
	}
	if propsDoc, ok := obj.Get("properties"); ok {
		if propsObj, ok := propsDoc.AsObject(); ok {
			for _, k := range propsObj.Keys() {
				childDoc, _ := propsObj.Get(k)
				if containsExpressionSite(childDoc) {
					return true
				}
			}
		}
	}
	if itemsDoc, ok := obj.Get("items"); ok {
		if containsExpressionSite(itemsDoc) {
			return true
		}
	}
	return false
}
