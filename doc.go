// Package rxgo manages the memory and lifetimes behind a memory-hard
// proof-of-work hash (RandomX).
//
// The hash function itself is provided by an engine (package engine): the
// cgo binding of librandomx when built with the "randomx" tag, or a pure-Go
// reference engine with the same structure otherwise. rxgo owns everything
// around it: key-derived caches, the multi-gigabyte dataset built from a
// cache by parallel workers, the machines that hash against either, and the
// rules that keep native memory from being released while in use.
//
// # Quick Start
//
// Light mode needs only a Cache:
//
//	cache, err := rxgo.NewCache(rxgo.FlagDefault, key)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
//	vm, err := rxgo.NewMachine(rxgo.FlagDefault, cache)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer vm.Close()
//
//	digest, err := vm.Sum(input)
//
// Fast mode builds the full Dataset once and shares it between machines:
//
//	ds, err := rxgo.NewDataset(ctx, rxgo.RecommendedFlags(), key,
//	    rxgo.WithWorkers(runtime.NumCPU()),
//	)
//	vm, err := rxgo.NewFastMachine(rxgo.RecommendedFlags(), ds)
//
// Light and fast machines produce identical digests for the same key and
// input.
//
// # Dataset Construction
//
// NewDataset splits the item range into one Partition per worker with
// Partitions; all partitions have itemCount/W items and the last one also
// takes the remainder. Workers read the shared cache and write disjoint
// ranges of the dataset, so no locking is needed. NewDataset returns only
// after every worker has finished and every item is accounted for. A
// worker that panics fails the build with *ThreadError; the partial dataset
// is released.
//
// # Lifetimes
//
// Cache, Dataset and Machine each own native memory and must be closed.
// A machine pins the cache or dataset it is bound to: closing a pinned
// cache or dataset fails with ErrInUse, and any use of a closed value
// fails with ErrClosed. A Machine is not safe for concurrent use; use one
// machine per goroutine.
//
// # Snapshots
//
// A built dataset can be saved to and loaded from any blobstore.BlobStore
// (local files, S3, MinIO) with Dataset.Save and OpenDataset. A snapshot is
// the raw dataset bytes; a manifest sidecar records the engine, geometry
// and a CRC32C checked by WithVerify.
//
// # Configuration
//
// Constructors take functional options (WithEngine, WithWorkers,
// WithLogger, WithMetricsCollector, WithResourceController, ...). Config
// loads the same settings from a JSONC file.
package rxgo
