package rxgo

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/rxgo/engine"
	"github.com/hupe1980/rxgo/internal/coverage"
	"github.com/hupe1980/rxgo/resource"
)

// Dataset is the fully materialized, read-only memory region used by
// fast-mode machines. Its contents are a deterministic function of the key
// and the engine.
//
// A Dataset is safe for concurrent readers; any number of machines may be
// bound to it. It must be closed exactly once by its owner; Close fails
// with ErrInUse while machines are bound to it.
type Dataset struct {
	life lifetime

	eng      engine.Engine
	native   engine.Dataset
	flags    Flags
	items    uint64
	itemSize int
	keyID    [32]byte
	hasKeyID bool

	resources *resource.Controller
	logger    *Logger
	metrics   MetricsCollector
	chunkSize int
}

// NewDataset builds a dataset for key.
//
// It initializes an intermediate Cache, splits the item range into one
// Partition per worker and initializes the partitions in parallel. NewDataset
// blocks until every worker has finished. The intermediate Cache is
// released before returning.
//
// ctx is checked before any work starts. A build that has started runs to
// completion.
func NewDataset(ctx context.Context, flags Flags, key []byte, opts ...Option) (*Dataset, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := checkFlags(flags); err != nil {
		return nil, err
	}

	if err := o.resources.AcquireBuild(ctx); err != nil {
		return nil, err
	}
	defer o.resources.ReleaseBuild()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cache, err := newCache(ctx, flags.Without(FlagFullMem), key, o)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cache.Close() }()

	return buildDataset(ctx, flags, cache, o)
}

// NewDatasetFromCache builds a dataset from a caller-owned cache. The
// cache stays open and is pinned for the duration of the build, so it can
// be reused for further datasets or light-mode machines.
func NewDatasetFromCache(ctx context.Context, cache *Cache, opts ...Option) (*Dataset, error) {
	if cache == nil {
		return nil, fmt.Errorf("%w: nil cache", ErrClosed)
	}

	o, err := applyOptions(append([]Option{WithEngine(cache.eng)}, opts...))
	if err != nil {
		return nil, err
	}
	if o.engine != cache.eng {
		return nil, fmt.Errorf("%w: dataset uses %s, cache was built by %s",
			ErrEngineMismatch, o.engine.Name(), cache.eng.Name())
	}

	if err := o.resources.AcquireBuild(ctx); err != nil {
		return nil, err
	}
	defer o.resources.ReleaseBuild()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var ds *Dataset
	err = cache.life.guard(func() error {
		var err error
		ds, err = buildDataset(ctx, cache.flags, cache, o)
		return err
	})
	return ds, err
}

func buildDataset(ctx context.Context, flags Flags, cache *Cache, o options) (*Dataset, error) {
	items := o.engine.DatasetItemCount()
	workers := workerCount(o.workers, items)

	start := time.Now()
	ds, err := allocDataset(flags, o)
	if err == nil {
		if err = ds.initPartitions(ctx, cache.native, Partitions(items, workers)); err != nil {
			ds.free()
			ds = nil
		} else {
			ds.keyID, ds.hasKeyID = cache.keyID, true
		}
	}
	elapsed := time.Since(start)

	o.metrics.RecordDatasetBuild(items, workers, elapsed, err)
	o.logger.WithEngine(o.engine.Name()).LogDatasetBuild(ctx, items, workers, elapsed, err)
	return ds, err
}

// allocDataset reserves and allocates an uninitialized dataset region.
func allocDataset(flags Flags, o options) (*Dataset, error) {
	items := o.engine.DatasetItemCount()
	itemSize := o.engine.DatasetItemSize()
	size := int64(items) * int64(itemSize)

	if err := o.resources.AcquireMemory(size); err != nil {
		return nil, allocError("dataset", size, err)
	}
	native, err := o.engine.AllocDataset(uint32(flags.Without(FlagFullMem)))
	if err != nil {
		o.resources.ReleaseMemory(size)
		return nil, allocError("dataset", size, err)
	}

	return &Dataset{
		eng:       o.engine,
		native:    native,
		flags:     flags,
		items:     items,
		itemSize:  itemSize,
		resources: o.resources,
		logger:    o.logger,
		metrics:   o.metrics,
		chunkSize: o.chunkSize,
	}, nil
}

// initItems is the number of items handed to the engine per InitRange
// call. Progress is recorded in the ledger at this granularity.
const initItems = 1 << 14

// initPartitions fills the dataset from view, one worker per partition.
// With a single partition it runs on the calling goroutine; otherwise
// exactly one goroutine per partition is started and joined.
//
// The coverage ledger is the only proof of completeness: each worker
// claims its partition before writing, so overlapping partitions never
// write the same item twice, and marks every chunk the engine returns.
// The dataset is accepted only if the marks cover every item.
func (d *Dataset) initPartitions(ctx context.Context, view engine.CacheView, parts []Partition) error {
	ledger := coverage.New(d.items)

	run := func(worker int, p Partition) (err error) {
		start := time.Now()
		defer func() {
			if r := recover(); r != nil {
				err = &ThreadError{Worker: worker, Partition: p, cause: fmt.Errorf("panic: %v", r)}
			}
			d.logger.LogPartition(ctx, worker, p, time.Since(start), err)
		}()

		if err := ledger.Claim(p.Start, p.Len); err != nil {
			return &ThreadError{Worker: worker, Partition: p, cause: fmt.Errorf("%w: %w", ErrDatasetIncomplete, err)}
		}
		for off := uint64(0); off < p.Len; off += initItems {
			n := min(initItems, p.Len-off)
			d.native.InitRange(view, p.Start+off, n)
			if err := ledger.Done(p.Start+off, n); err != nil {
				return &ThreadError{Worker: worker, Partition: p, cause: err}
			}
		}
		return nil
	}

	if len(parts) == 1 {
		if err := run(0, parts[0]); err != nil {
			return err
		}
	} else {
		var g errgroup.Group
		for i, p := range parts {
			g.Go(func() error { return run(i, p) })
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if !ledger.Complete() {
		return fmt.Errorf("%w: item %d of %d never initialized (%d covered)",
			ErrDatasetIncomplete, ledger.Missing(), d.items, ledger.Covered())
	}
	return nil
}

// Flags returns the flags the dataset was created with.
func (d *Dataset) Flags() Flags { return d.flags }

// Engine returns the engine that owns the dataset region.
func (d *Dataset) Engine() engine.Engine { return d.eng }

// ItemCount returns the number of dataset items.
func (d *Dataset) ItemCount() uint64 { return d.items }

// ItemSize returns the size of one dataset item in bytes.
func (d *Dataset) ItemSize() int { return d.itemSize }

// Size returns ItemCount()*ItemSize().
func (d *Dataset) Size() int64 { return int64(d.items) * int64(d.itemSize) }

// KeyFingerprint returns the BLAKE3 fingerprint of the key the dataset was
// derived from. ok is false for snapshots loaded without a verified
// manifest.
func (d *Dataset) KeyFingerprint() (fp [32]byte, ok bool) { return d.keyID, d.hasKeyID }

// Bytes returns a read-only view of the dataset memory. The slice must not
// be modified and must not be used after Close.
func (d *Dataset) Bytes() ([]byte, error) {
	if d.life.isClosed() {
		return nil, ErrClosed
	}
	return d.memory(), nil
}

// memory returns the dataset region trimmed to its logical size. Huge-page
// backed regions may be rounded up by the allocator.
func (d *Dataset) memory() []byte {
	n := d.Size()
	return d.native.Memory()[:n:n]
}

// Closed reports whether the dataset was released.
func (d *Dataset) Closed() bool { return d.life.isClosed() }

// Close releases the dataset region. It returns ErrInUse while machines are
// bound to it. Closing twice is a no-op.
func (d *Dataset) Close() error {
	err := d.life.release(d.free)
	if err != nil {
		d.logger.LogRelease(context.Background(), "dataset", err)
	}
	return err
}

func (d *Dataset) free() {
	d.native.Release()
	d.resources.ReleaseMemory(d.Size())
}
