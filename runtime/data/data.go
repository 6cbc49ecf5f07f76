// Package data implements TrackedData, the per-evaluation wrapper around a
// live value.Value tree: it stamps a process-local instance id at
// construction and tracks, per top-level field, the monotonic global
// version at which that field was last written, so runtime/cache can key a
// result on "this expression's read-set, at these field versions".
package data

import (
	"sync"
	"sync/atomic"

	"github.com/opal-lang/formeval/core/path"
	"github.com/opal-lang/formeval/core/value"
)

var instanceCounter atomic.Uint64

// nextInstanceID allocates a process-local, monotonically increasing
// instance id; TrackedData.instanceID and the cache's fingerprint keys are
// only ever compared for equality within one process, so a simple counter
// (not a UUID) is sufficient.
func nextInstanceID() uint64 {
	return instanceCounter.Add(1)
}

// TrackedData owns a single root value.Value and versions every top-level
// field independently. Reads may proceed concurrently with other reads;
// writes require the exclusive lock. A write to a nested path is
// attributed to its enclosing top-level field for versioning purposes.
type TrackedData struct {
	mu         sync.RWMutex
	root       value.Value
	instanceID uint64
	version    uint64 // monotonic counter, incremented on every write
	fieldVer   map[string]uint64
}

// New wraps root in a fresh TrackedData with a new instance id. Every
// top-level field present in root is stamped with its own nonzero version
// (1, 2, ... in key order) so an initial read-set fingerprint differs from
// the "field never existed" zero value.
func New(root value.Value) *TrackedData {
	td := &TrackedData{
		root:       root,
		instanceID: nextInstanceID(),
		fieldVer:   make(map[string]uint64),
	}
	if obj, ok := root.AsObject(); ok {
		for _, k := range obj.Keys() {
			td.version++
			td.fieldVer[k] = td.version
		}
	}
	return td
}

// InstanceID returns the process-local id assigned at construction.
func (td *TrackedData) InstanceID() uint64 { return td.instanceID }

// Root returns the current root value. Callers must treat it as read-only;
// TrackedData values are immutable once handed out (see Write).
func (td *TrackedData) Root() value.Value {
	td.mu.RLock()
	defer td.mu.RUnlock()
	return td.root
}

// Resolve implements eval.DataSource: read p against the current root.
func (td *TrackedData) Resolve(p *path.Path) (value.Value, bool) {
	td.mu.RLock()
	defer td.mu.RUnlock()
	return p.Resolve(td.root)
}

// VersionOf returns the version at which field was last written, or 0 if
// it has never been written (including "never existed in the original
// root"). Used by the cache to compute a read-set's dependency fingerprint.
func (td *TrackedData) VersionOf(field string) uint64 {
	td.mu.RLock()
	defer td.mu.RUnlock()
	return td.fieldVer[field]
}

// Write sets the value at p, creating intermediate objects as needed, and
// bumps the version of p's top-level field. Returns the value previously
// at p (or null/false if p was absent).
func (td *TrackedData) Write(p *path.Path, v value.Value) (value.Value, bool) {
	td.mu.Lock()
	defer td.mu.Unlock()

	prev, existed := p.Resolve(td.root)
	segs := p.Segments()
	newRoot, ok := path.Write(td.root, segs, v)
	if !ok {
		return value.Null(), false
	}
	td.root = newRoot

	td.version++
	top := p.TopLevel()
	if top != "" {
		td.fieldVer[top] = td.version
	}
	return prev, existed
}

// Snapshot captures the current field-version map, keyed by top-level
// field name. Used to compute a read-set's dependency fingerprint without
// holding the lock across the whole fingerprint computation.
func (td *TrackedData) Snapshot(fields []string) map[string]uint64 {
	td.mu.RLock()
	defer td.mu.RUnlock()
	out := make(map[string]uint64, len(fields))
	for _, f := range fields {
		out[f] = td.fieldVer[f]
	}
	return out
}

// Clone returns a new TrackedData sharing the same root value, field
// versions and instance id (it stays the same logical instance), for a
// parallel batch worker that
// must write results into its own staged copy (see §5's per-batch write
// isolation) without disturbing the original wrapper mid-batch.
func (td *TrackedData) Clone() *TrackedData {
	td.mu.RLock()
	defer td.mu.RUnlock()
	clone := &TrackedData{
		root:       td.root,
		instanceID: td.instanceID, // deliberately shared: same logical instance
		version:    td.version,
		fieldVer:   make(map[string]uint64, len(td.fieldVer)),
	}
	for k, v := range td.fieldVer {
		clone.fieldVer[k] = v
	}
	return clone
}
