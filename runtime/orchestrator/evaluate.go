package orchestrator

import (
	stdruntime "runtime"
	"sort"
	"sync"

	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/value"
	"github.com/opal-lang/formeval/runtime/cache"
	"github.com/opal-lang/formeval/runtime/data"
)

// Evaluate runs the full or selective re-evaluation protocol (§4.10).
//
// When changedPaths is empty this is a full evaluation: newData (if
// non-null) replaces the engine's data wrapper outright, under a fresh
// instance id, and the result cache is discarded along with it, then every
// site runs in batch order.
//
// When changedPaths is non-empty this is a selective re-evaluation: the
// named paths are written into the existing data wrapper (bumping only
// their own field versions), the cache is purged for those fields, and only
// the transitive closure of sites depending on them is re-run, still in
// their original batch order.
func (e *Engine) Evaluate(newData, ctx value.Value, changedPaths []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var affected map[string]bool
	if len(changedPaths) == 0 {
		if !newData.IsNull() || !ctx.IsNull() {
			e.data = data.New(mergeContext(newData, ctx))
		}
		cacheCap := e.cfg.CacheCapacity
		if !e.cfg.EnableCache {
			cacheCap = 0
		}
		e.cache = cache.New(cacheCap)
		affected = nil // nil means "every site"
	} else {
		for _, cp := range changedPaths {
			p := path.Parse(cp)
			v, ok := p.Resolve(newData)
			if ok {
				e.data.Write(p, v)
			}
		}
		e.cache.PurgeFor(e.data.InstanceID(), changedPaths)
		affected = e.closure(changedPaths)
	}

	e.runBatches(affected)

	if len(changedPaths) == 0 {
		e.lastValidation = e.runValidation(nil)
	}
	return nil
}

// EvaluateDependents computes the transitive closure of sites depending on
// changedPaths and, if reEvaluate is true, actually re-runs them (identical
// effect to Evaluate with the same changedPaths). It always returns the
// list of affected schema paths, regardless of reEvaluate.
func (e *Engine) EvaluateDependents(newData, ctx value.Value, changedPaths []string, reEvaluate bool) []string {
	e.mu.Lock()
	affected := e.closure(changedPaths)
	e.mu.Unlock()

	list := make([]string, 0, len(affected))
	for sp := range affected {
		list = append(list, sp)
	}
	sort.Strings(list)

	if reEvaluate {
		e.Evaluate(newData, ctx, changedPaths)
	}
	return list
}

// closure computes every site whose read-set intersects changedPaths,
// closed over ParsedSchema.Dependents.
func (e *Engine) closure(changedPaths []string) map[string]bool {
	affected := make(map[string]bool)
	queue := make([]string, 0, len(changedPaths))

	changed := make([]*path.Path, len(changedPaths))
	for i, cp := range changedPaths {
		changed[i] = path.Parse(cp)
	}

	for _, s := range e.parsed.Sites {
		for _, cp := range changed {
			if dependsOn(s.ReadSet, cp) {
				if !affected[s.SchemaPath] {
					affected[s.SchemaPath] = true
					queue = append(queue, s.SchemaPath)
				}
				break
			}
		}
	}

	for len(queue) > 0 {
		sp := queue[0]
		queue = queue[1:]
		for _, dep := range e.parsed.Dependents[sp] {
			if !affected[dep] {
				affected[dep] = true
				queue = append(queue, dep)
			}
		}
	}
	return affected
}

func pathsIntersect(a, b *path.Path) bool {
	return a.HasPrefix(b) || b.HasPrefix(a)
}

func dependsOn(readSet []*path.Path, changed *path.Path) bool {
	for _, r := range readSet {
		if pathsIntersect(r, changed) {
			return true
		}
	}
	return false
}

// runBatches walks ps.Batches in order, running only members of affected
// (or every site, if affected is nil).
func (e *Engine) runBatches(affected map[string]bool) {
	for _, batch := range e.parsed.Batches {
		var filtered []string
		for _, sp := range batch {
			if affected == nil || affected[sp] {
				filtered = append(filtered, sp)
			}
		}
		if len(filtered) == 0 {
			continue
		}
		if e.cfg.Parallel && len(filtered) >= parallelBatchThreshold {
			e.runBatchParallel(filtered)
		} else {
			for _, sp := range filtered {
				e.evalOneSite(sp)
			}
		}
	}
}

// runBatchParallel evaluates filtered concurrently against the engine's
// current (read-only, for the duration of the batch) data wrapper, then
// applies every site's data write sequentially in the batch's original
// order. Workers do read and fill the result cache (see computeSite); the
// cache serializes those calls with its own mutex.
func (e *Engine) runBatchParallel(batchPaths []string) {
	type result struct {
		sp  string
		v   value.Value
		err error
	}
	results := make([]result, len(batchPaths))

	workers := stdruntime.GOMAXPROCS(0)
	if workers > len(batchPaths) {
		workers = len(batchPaths)
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan int, len(batchPaths))
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				sp := batchPaths[idx]
				v, err := e.computeSite(sp)
				results[idx] = result{sp: sp, v: v, err: err}
			}
		}()
	}
	for i := range batchPaths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	for _, r := range results {
		e.commitSite(r.sp, r.v, r.err)
	}
}

// evalOneSite computes and immediately commits a single site's result.
func (e *Engine) evalOneSite(sp string) {
	v, err := e.computeSite(sp)
	e.commitSite(sp, v, err)
}

// computeSite evaluates sp (an ordinary expression site or a table plan)
// without writing to e.data (on a cache miss it does put the result into
// e.cache) — split out from evalOneSite so
// runBatchParallel can run it concurrently across sites in one batch.
func (e *Engine) computeSite(sp string) (value.Value, error) {
	if plan, isTable := e.parsed.TablePlans[sp]; isTable {
		return e.tableGen.Generate(plan, e.env())
	}

	site, ok := e.parsed.SiteByPath[sp]
	if !ok {
		return value.Null(), nil
	}
	tree, ok := e.parsed.Resolve(site.LogicID)
	if !ok {
		return value.Null(), &StructuralError{Detail: "unresolvable compiled logic id for " + sp}
	}

	fields := fieldNamesOf(site.ReadSet)
	key := cache.Key{LogicID: site.LogicID, InstanceID: e.data.InstanceID(), Fingerprint: e.fingerprint(fields)}
	if e.cfg.EnableCache {
		if v, hit := e.cache.Get(key); hit {
			return v, nil
		}
	}

	v, err := e.reducer.Eval(tree, e.env())
	if err == nil && e.cfg.EnableCache {
		e.cache.Put(key, fields, v)
	}
	return v, err
}

// commitSite writes a computed site's result into e.data and records or
// clears its SiteError.
func (e *Engine) commitSite(sp string, v value.Value, err error) {
	site, isSite := e.parsed.SiteByPath[sp]
	var target *path.Path
	switch {
	case isSite:
		target = site.Target
	default:
		if plan, ok := e.parsed.TablePlans[sp]; ok {
			target = plan.Target
		}
	}
	if target == nil {
		return
	}

	if err != nil {
		e.siteErrors[sp] = &SiteError{SchemaPath: sp, Err: err}
		e.data.Write(target, value.Null())
		return
	}
	delete(e.siteErrors, sp)
	e.data.Write(target, v)
}

func (e *Engine) fingerprint(fields []string) uint64 {
	versions := e.data.Snapshot(fields)
	var fp uint64
	for _, f := range fields {
		fp = fp*1000003 + versions[f]
	}
	return fp
}

func fieldNamesOf(readSet []*path.Path) []string {
	seen := make(map[string]bool, len(readSet))
	out := make([]string, 0, len(readSet))
	for _, p := range readSet {
		top := p.TopLevel()
		if top == "" || seen[top] {
			continue
		}
		seen[top] = true
		out = append(out, top)
	}
	return out
}

// SiteErrors returns the schema paths whose most recent evaluation failed,
// each written as null in the data tree.
func (e *Engine) SiteErrors() map[string]*SiteError {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make(map[string]*SiteError, len(e.siteErrors))
	for k, v := range e.siteErrors {
		out[k] = v
	}
	return out
}
