// Package schema implements the schema analyzer (C7): a single pre-order
// walk of a parsed schema document that collects every expression site,
// its validation rules, its table plans, its layout $ref positions, and
// the dependency graph batching (C8) those sites require.
//
// The analyzer recognizes a deliberately concrete convention for where
// expressions and table metadata live in the document, since spec.md
// treats "schema parsing of layout/rule metadata" as an external
// collaborator's concern and only fixes the handful of positions listed in
// its §6 (External Interfaces): a field's ".$evaluation", its
// "rules.<kind>.value.$evaluation", its "condition.<name>", "$ref" layout
// nodes, and (documented here, since the source is silent on table shape)
// a field's "table" block — {rowStart?, rowEnd, datas?, columns} — marking
// it as a table-generation site for runtime/table.
package schema

import (
	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
)

// ExpressionSite is the (schema-path, CompiledLogicId, target-data-path,
// read-set) tuple recorded at parse time for every expression-bearing
// position in the schema.
type ExpressionSite struct {
	SchemaPath string
	LogicID    store.CompiledLogicId
	Target     *path.Path
	ReadSet    []*path.Path
	// ForwardRef is set when this site's expression contains a
	// VALUEAT(self, $iteration+k, ...) forward self-reference; only
	// meaningful for sites that are themselves table columns.
	ForwardRef bool
}

// ValidationRule describes one of the fixed rule kinds (§4.7): required,
// minLength, maxLength, minValue, maxValue, pattern, evaluation. Operand
// is either a static literal Value (read via OperandLogicID==0) or an
// expression site resolved at validation time through OperandLogicID.
type ValidationRule struct {
	Kind          string
	Field         string // dotted schema path this rule validates
	Target        *path.Path
	StaticOperand any  // nil if the operand is itself an expression
	OperandLogicID store.CompiledLogicId
	HasOperand    bool
}

// LayoutRef records a "$ref" layout-composition position for later
// expansion by get_evaluated_schema(resolve_layout=true).
type LayoutRef struct {
	SchemaPath string
	RefPath    string // schema-pointer form, e.g. "#/properties/address"
}

// TableColumn is one column of a TablePlan, labelled with its target
// column name and whether the compiler detected a forward self-reference.
type TableColumn struct {
	Name       string
	LogicID    store.CompiledLogicId
	ForwardRef bool
}

// TablePlan is the specialized plan for a table-valued expression site
// (§3 "Table plan"): optional static rows, a repeat range, and the
// topologically grouped column list partitioned into forward- and
// non-forward-referencing groups.
type TablePlan struct {
	SchemaPath string
	Target     *path.Path

	// RowStartLogicID/RowEndLogicID bound the repeat range (inclusive).
	// When HasRowStart is false the range starts at 0.
	RowStartLogicID store.CompiledLogicId
	HasRowStart     bool
	RowEndLogicID   store.CompiledLogicId
	HasRowEnd       bool

	// DatasLogicIDs are static row-producing expressions evaluated once
	// and prepended to the generated output, in declaration order.
	DatasLogicIDs []store.CompiledLogicId

	// Columns preserves declaration order; Forward/NonForward are the
	// same entries partitioned for the two-phase generator.
	Columns    []TableColumn
	Forward    []TableColumn
	NonForward []TableColumn

	// ReadSet is the union of every bound/datas/column expression's
	// read-set, used to place the table as a single node in the
	// dependency graph (C8) even though it compiles to many expressions.
	ReadSet []*path.Path
}

// ParsedSchema is the immutable artifact the analyzer produces. It is
// shareable by reference across orchestrator instances, and its
// CompiledLogicIds refer to entries owned by the process-wide
// core/store.Store the analyzer compiled against.
type ParsedSchema struct {
	Sites        []*ExpressionSite
	SiteByPath   map[string]*ExpressionSite
	Rules        []*ValidationRule
	TablePlans   map[string]*TablePlan
	LayoutRefs   []LayoutRef
	// Dependents maps a site's schema path to every site whose read-set
	// depends on it, the same edges fed to the batch planner — kept
	// alongside the batches themselves so callers (runtime/orchestrator's
	// selective re-evaluation) can compute a changed-paths closure without
	// re-deriving the graph.
	Dependents   map[string][]string
	SubformPaths []string // array fields whose items schema carries expressions
	// SubformItems holds, for each SubformPaths entry, the raw "items"
	// schema document the subform's own synthesized sub-schema is built
	// from (see runtime/orchestrator's subform registry).
	SubformItems map[string]value.Value
	Batches      [][]string

	// Params is the document's top-level "$params" block, if present. The
	// orchestrator passes it on to each subform's synthesized sub-schema;
	// expression evaluation does not read it.
	Params value.Value

	// CompiledStore is the store every LogicID in this ParsedSchema was
	// compiled against; resolving a LogicID elsewhere requires this store.
	CompiledStore *store.Store

	// AnalyzerVersion stamps the analyzer release that produced this
	// ParsedSchema, for runtime/orchestrator's engine-version gate.
	AnalyzerVersion string
}

// AnalyzerVersion is the semver the analyzer stamps onto every ParsedSchema
// it produces.
const AnalyzerVersion = "v1.0.0"

// Resolve looks up a site's compiled tree through the ParsedSchema's store.
func (ps *ParsedSchema) Resolve(id store.CompiledLogicId) (*expr.Expr, bool) {
	return ps.CompiledStore.Resolve(id)
}
