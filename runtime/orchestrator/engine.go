package orchestrator

import (
	"sync"

	"golang.org/x/mod/semver"

	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/store"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/cache"
	"github.com/opal-lang/formeval/runtime/data"
	"github.com/opal-lang/formeval/runtime/eval"
	"github.com/opal-lang/formeval/runtime/schema"
	"github.com/opal-lang/formeval/runtime/table"
)

// engineVersion is this build's own semver, compared against a
// ParsedSchema's AnalyzerVersion by Config.MinEngineVersion.
const engineVersion = "v1.0.0"

// contextField is the conventional top-level field a caller-supplied
// context value is written to, so expressions read it like any other data
// path ("$context.someKey").
const contextField = "$context"

// Engine is the top-level orchestrator (C10): one ParsedSchema, one
// TrackedData instance, one result cache, one subform registry.
type Engine struct {
	mu sync.Mutex

	parsed *schema.ParsedSchema
	store  *store.Store
	data   *data.TrackedData
	cache  *cache.Cache

	reducer  *eval.Reducer
	tableGen *table.Generator
	cfg      Config

	siteErrors map[string]*SiteError
	subforms   map[string]*Engine

	lastValidation *ValidationResult
}

// New parses schemaDoc with st and constructs an Engine over it — the
// "new(schema, context?, data?)" entry point.
func New(schemaDoc value.Value, st *store.Store, ctx, initialData value.Value, cfg Config) (*Engine, error) {
	ps, err := schema.Parse(schemaDoc, st)
	if err != nil {
		return nil, &InitError{Detail: err.Error()}
	}
	return FromParsed(ps, ctx, initialData, cfg)
}

// FromParsed constructs an Engine over an already-analyzed, possibly
// shared, ParsedSchema — the "from_parsed(shared_parsed_schema, ...)" entry
// point. It also builds (recursively) the subform registry named by
// ps.SubformPaths, each as its own Engine over a synthesized single-field
// sub-schema.
func FromParsed(ps *schema.ParsedSchema, ctx, initialData value.Value, cfg Config) (*Engine, error) {
	if ps.AnalyzerVersion != "" && semver.Compare(ps.AnalyzerVersion, engineVersion) > 0 {
		return nil, &InitError{Detail: "parsed schema analyzer version " + ps.AnalyzerVersion + " is newer than this engine build " + engineVersion}
	}
	if cfg.MinEngineVersion != "" && ps.AnalyzerVersion != "" {
		if semver.Compare(ps.AnalyzerVersion, cfg.MinEngineVersion) < 0 {
			return nil, &InitError{Detail: "parsed schema analyzer version " + ps.AnalyzerVersion + " is older than engine minimum " + cfg.MinEngineVersion}
		}
	}

	cacheCap := cfg.CacheCapacity
	if !cfg.EnableCache {
		cacheCap = 0
	}

	reducerCfg := eval.Config{
		RecursionLimit:  cfg.RecursionLimit,
		SafeNaNHandling: cfg.SafeNaNHandling,
	}
	if cfg.TimezoneOffsetMinutes != nil {
		reducerCfg.TimezoneOffsetMinutes = *cfg.TimezoneOffsetMinutes
	}
	reducer := eval.New(reducerCfg)

	e := &Engine{
		parsed:     ps,
		store:      ps.CompiledStore,
		data:       data.New(mergeContext(initialData, ctx)),
		cache:      cache.New(cacheCap),
		reducer:    reducer,
		tableGen:   table.New(reducer, ps.CompiledStore),
		cfg:        cfg,
		siteErrors: make(map[string]*SiteError),
		subforms:   make(map[string]*Engine),
	}

	for _, sp := range ps.SubformPaths {
		itemsDoc, ok := ps.SubformItems[sp]
		if !ok {
			continue
		}
		sub, err := buildSubformEngine(sp, itemsDoc, ps.Params, ps.CompiledStore, cfg)
		if err != nil {
			return nil, &InitError{Detail: "subform " + sp + ": " + err.Error()}
		}
		e.subforms[sp] = sub
	}

	return e, nil
}

// buildSubformEngine synthesizes, per §4.10's subform recipe, an object
// schema whose single top-level field has the name of the parent array and
// the structure of itemsDoc, inheriting the parent's $params, and builds an
// Engine over it.
func buildSubformEngine(subformPath string, itemsDoc value.Value, parentParams value.Value, st *store.Store, cfg Config) (*Engine, error) {
	fieldName := subformPath
	if segs := path.ParseDotted(subformPath).Segments(); len(segs) > 0 {
		fieldName = segs[len(segs)-1]
	}

	props := value.NewObject()
	props.Set(fieldName, itemsDoc)
	wrapper := value.NewObject()
	wrapper.Set("properties", value.Obj(props))
	if !parentParams.IsNull() {
		wrapper.Set("$params", parentParams)
	}

	ps, err := schema.Parse(value.Obj(wrapper), st)
	if err != nil {
		return nil, err
	}
	return FromParsed(ps, value.Null(), value.Null(), cfg)
}

// mergeContext writes ctx under contextField into root, if ctx is non-null.
func mergeContext(root, ctx value.Value) value.Value {
	if root.IsNull() {
		root = value.Obj(value.NewObject())
	}
	if ctx.IsNull() {
		return root
	}
	newRoot, ok := path.Write(root, []string{contextField}, ctx)
	if !ok {
		return root
	}
	return newRoot
}

// env returns a fresh evaluation environment over the engine's current data.
func (e *Engine) env() *eval.Env { return eval.NewEnv(e.data) }
