package cache

import (
	"hash/fnv"
	"sort"
)

// Fingerprint combines a read-set's field versions into a single uint64,
// independent of the order fields are supplied in (the map already
// reflects "absent field -> 0" via TrackedData.Snapshot). Two calls with
// the same field->version pairs always produce the same fingerprint,
// which is the cache-transparency invariant the key's third component
// relies on.
func Fingerprint(versions map[string]uint64) uint64 {
	fields := make([]string, 0, len(versions))
	for f := range versions {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	h := fnv.New64a()
	for _, f := range fields {
		_, _ = h.Write([]byte(f))
		_, _ = h.Write([]byte{0})
		writeUint64(h, versions[f])
	}
	return h.Sum64()
}

func writeUint64(h interface{ Write([]byte) (int, error) }, v uint64) {
	var buf [8]byte
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
	_, _ = h.Write(buf[:])
}
