// Package store implements the process-wide, content-addressed compiled
// expression table: every distinct JSON-Logic document compiles exactly
// once, keyed by a hash of its canonical encoding, and is thereafter shared
// by reference across every expression site and schema that contains it.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"

	"github.com/opal-lang/formeval/core/expr"
	"github.com/opal-lang/formeval/core/invariant"
	"github.com/opal-lang/formeval/core/value"
)

// CompiledLogicId is a stable content hash of a compiled expression's
// canonical source. Two equal JSON-Logic documents always produce the same
// id, regardless of which call site compiled them first.
type CompiledLogicId uint64

const shardCount = 64

type entry struct {
	expr *expr.Expr
	hits uint64 // dedup-compile and resolve count; not reported by Stats()
}

type shard struct {
	mu      sync.RWMutex
	entries map[CompiledLogicId]*entry
}

// Store is the process-wide compiled-expression table. The zero value is
// not usable; construct with New.
type Store struct {
	shards    [shardCount]*shard
	compiles  atomic.Uint64 // total Compile calls that triggered real work
	dedupHits atomic.Uint64 // Compile calls that found an existing entry
}

// New returns an empty Store.
func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[CompiledLogicId]*entry)}
	}
	return s
}

func (s *Store) shardFor(id CompiledLogicId) *shard {
	return s.shards[uint64(id)%shardCount]
}

// Compile returns the CompiledLogicId and compiled Expr for raw, compiling
// and inserting it on first sight and returning the shared entry on every
// subsequent call with an equal document.
func (s *Store) Compile(raw value.Value) (CompiledLogicId, *expr.Expr, error) {
	id, err := Fingerprint(raw)
	if err != nil {
		return 0, nil, err
	}

	sh := s.shardFor(id)

	sh.mu.RLock()
	if e, ok := sh.entries[id]; ok {
		sh.mu.RUnlock()
		s.dedupHits.Add(1)
		atomic.AddUint64(&e.hits, 1)
		return id, e.expr, nil
	}
	sh.mu.RUnlock()

	compiled, err := expr.Compile(raw)
	if err != nil {
		return 0, nil, err
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[id]; ok {
		// Lost a race with another compiler of the same document.
		s.dedupHits.Add(1)
		atomic.AddUint64(&e.hits, 1)
		return id, e.expr, nil
	}
	sh.entries[id] = &entry{expr: compiled}
	s.compiles.Add(1)
	return id, compiled, nil
}

// Resolve returns the compiled Expr previously stored under id.
func (s *Store) Resolve(id CompiledLogicId) (*expr.Expr, bool) {
	sh := s.shardFor(id)
	sh.mu.RLock()
	defer sh.mu.RUnlock()
	e, ok := sh.entries[id]
	if !ok {
		return nil, false
	}
	atomic.AddUint64(&e.hits, 1)
	return e.expr, true
}

// Stats summarizes the store's current contents.
type Stats struct {
	Entries         int
	Compiles        uint64
	DedupHits       uint64
	MaxShardEntries int
}

// Stats returns a point-in-time snapshot of store occupancy and dedup rate.
func (s *Store) Stats() Stats {
	st := Stats{
		Compiles:  s.compiles.Load(),
		DedupHits: s.dedupHits.Load(),
	}
	for _, sh := range s.shards {
		sh.mu.RLock()
		n := len(sh.entries)
		sh.mu.RUnlock()
		st.Entries += n
		if n > st.MaxShardEntries {
			st.MaxShardEntries = n
		}
	}
	return st
}

var canonicalEncMode = func() cbor.EncMode {
	mode, err := cbor.CanonicalEncOptions().EncMode()
	invariant.ExpectNoError(err, "building canonical cbor encode mode")
	return mode
}()

// Fingerprint computes the CompiledLogicId a document would receive,
// without compiling it. It is exposed so callers (and the result cache) can
// compute the same id a Store.Compile call would produce.
func Fingerprint(raw value.Value) (CompiledLogicId, error) {
	canonical, err := canonicalEncMode.Marshal(value.ToAny(raw))
	if err != nil {
		return 0, err
	}
	sum := blake2b.Sum512(canonical)
	return CompiledLogicId(beUint64(sum[:8])), nil
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
