package reactive

import "sync/atomic"

// globalIDCounter is the source of unique IDs for all reactive primitives.
// A single atomic counter keeps IDs unique across systems, which makes
// them safe to use as map keys in instrumentation and registries.
var globalIDCounter uint64

// nextID returns the next unique ID for a reactive primitive.
// IDs are monotonically increasing and never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}
