package engine

import (
	"errors"
	"sync"
)

var (
	// ErrAllocFailed is returned when the engine cannot allocate a cache or
	// dataset region (out of memory, huge pages unavailable).
	ErrAllocFailed = errors.New("engine: allocation failed")

	// ErrVMCreate is returned when the engine rejects a VM configuration,
	// e.g. full-memory mode without a dataset.
	ErrVMCreate = errors.New("engine: failed to create vm")

	// ErrUnavailable is returned when an engine was not compiled in.
	ErrUnavailable = errors.New("engine: not available in this build")
)

// Engine is the allocation and VM-construction surface of a hashing engine.
//
// Item count, item size, cache size and hash size are fixed properties of
// the engine, not of individual allocations.
type Engine interface {
	// Name identifies the engine (recorded in snapshot manifests).
	Name() string

	// AllocCache allocates an uninitialized cache region.
	AllocCache(flags uint32) (Cache, error)

	// AllocDataset allocates an uninitialized dataset region of
	// DatasetItemCount()*DatasetItemSize() bytes.
	AllocDataset(flags uint32) (Dataset, error)

	DatasetItemCount() uint64
	DatasetItemSize() int
	CacheSize() int
	HashSize() int

	// CreateVM binds a new VM to cache (light mode) or dataset (fast mode).
	// Exactly one of cache and dataset is expected to be non-nil.
	CreateVM(flags uint32, cache Cache, dataset Dataset) (VM, error)
}

// CacheView is the read-only side of a Cache. Dataset workers only ever
// receive a CacheView, so they have no way to mutate the cache they share.
type CacheView interface {
	// Size returns the size of the cache region in bytes.
	Size() int
}

// Cache is an owned cache region.
type Cache interface {
	CacheView

	// Init derives the full cache region from key. Called exactly once.
	Init(key []byte)

	// Release returns the region to the allocator. Called exactly once.
	Release()
}

// Dataset is an owned dataset region.
type Dataset interface {
	// InitRange derives items [start, start+count) from the cache. Calls
	// for disjoint ranges may run concurrently.
	InitRange(cache CacheView, start, count uint64)

	// Memory returns the whole dataset region. The slice is valid until
	// Release.
	Memory() []byte

	// Release returns the region to the allocator. Called exactly once.
	Release()
}

// VM is a hashing unit. It is not safe for concurrent use.
type VM interface {
	// CalculateHash writes HashSize() bytes into out[:HashSize()].
	CalculateHash(input, out []byte)

	// Destroy frees the VM. It never releases the bound cache or dataset.
	Destroy()
}

var (
	mu      sync.RWMutex
	current Engine
)

// Register installs e as the process default. Engines call this from init.
// A later registration replaces an earlier one.
func Register(e Engine) {
	mu.Lock()
	defer mu.Unlock()
	current = e
}

// Default returns the registered default engine, or nil if none was
// registered.
func Default() Engine {
	mu.RLock()
	defer mu.RUnlock()
	return current
}
