// Package orchestrator implements the top-level Engine (C10): it drives a
// ParsedSchema's batch plan against a TrackedData instance, consulting and
// populating the result cache, running the validation engine, and
// resolving layout and subform structure for callers.
package orchestrator

// Config mirrors §6's configuration option list. The zero Config is not
// valid; use DefaultConfig and override fields.
type Config struct {
	// EnableCache toggles the result cache. When false, every site is
	// recomputed on every evaluate call (the "minimal/streaming mode").
	EnableCache bool

	// EnableTracking is carried in the Config but not read by the Engine:
	// TrackedData always versions its fields, and selective re-evaluation
	// and cache fingerprints always use those versions.
	EnableTracking bool

	// SafeNaNHandling collapses NaN/Inf arithmetic results to 0 instead of
	// propagating them as null.
	SafeNaNHandling bool

	// RecursionLimit bounds compiled-tree evaluation depth.
	RecursionLimit int

	// TimezoneOffsetMinutes shifts Today/Now before date-part extraction.
	// A nil pointer means UTC.
	TimezoneOffsetMinutes *int

	// Parallel enables worker-pool batch execution when a batch is large
	// enough to be worth the dispatch overhead (see engine.go).
	Parallel bool

	// CacheCapacity bounds the result cache's entry count. Ignored when
	// EnableCache is false.
	CacheCapacity int

	// MinEngineVersion, if set, makes New/FromParsed refuse a ParsedSchema
	// stamped with an older AnalyzerVersion than this minimum
	// (golang.org/x/mod/semver.Compare gate). Empty disables that check. A
	// ParsedSchema stamped newer than this engine build is always refused.
	MinEngineVersion string
}

// DefaultConfig returns §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		EnableCache:     true,
		EnableTracking:  true,
		SafeNaNHandling: false,
		RecursionLimit:  100,
		CacheCapacity:   4096,
	}
}

// parallelBatchThreshold is the minimum batch size before the worker pool
// is used; small batches are cheaper to run inline than to dispatch.
const parallelBatchThreshold = 8
