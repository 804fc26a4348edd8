// Package engine defines the surface through which rxgo drives a
// memory-hard hashing engine.
//
// The engine owns three kinds of native state:
//
//   - Cache: a key-derived, read-only memory region (MiB scale).
//   - Dataset: a large region (GiB scale) whose items are derived from a
//     Cache, one contiguous item range at a time.
//   - VM: a stateful hashing unit bound to either a Cache or a Dataset.
//
// Implementations:
//
//   - engine/native: librandomx via cgo (build tag "randomx").
//   - engine/reference: a pure-Go stand-in with the same structural
//     contract, used by tests and by builds without librandomx.
//
// The default engine is chosen at init time: engine/native registers itself
// when compiled in, otherwise the reference engine is used. Callers can
// always inject a specific engine through rxgo.WithEngine.
package engine
