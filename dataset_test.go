package rxgo_test

import (
	"context"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/rxgo"
	"github.com/hupe1980/rxgo/engine"
	"github.com/hupe1980/rxgo/engine/reference"
	"github.com/hupe1980/rxgo/resource"
	"github.com/hupe1980/rxgo/testutil"
)

// newSmallDataset builds a dataset over eng keyed with testutil.ExampleKey
// and closes it when the test ends.
func newSmallDataset(t *testing.T, eng engine.Engine, opts ...rxgo.Option) *rxgo.Dataset {
	t.Helper()

	ds, err := rxgo.NewDataset(context.Background(), rxgo.FlagDefault, testutil.ExampleKey,
		append([]rxgo.Option{rxgo.WithEngine(eng)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ds.Close() })
	return ds
}

func datasetBytes(t *testing.T, ds *rxgo.Dataset) []byte {
	t.Helper()

	mem, err := ds.Bytes()
	require.NoError(t, err)
	return slices.Clone(mem)
}

func TestNewDataset(t *testing.T) {
	eng := testutil.NewSmallEngine()
	ds := newSmallDataset(t, eng, rxgo.WithWorkers(4))

	assert.Same(t, eng, ds.Engine())
	assert.Equal(t, rxgo.FlagDefault, ds.Flags())
	assert.Equal(t, testutil.SmallConfig.ItemCount, ds.ItemCount())
	assert.Equal(t, eng.DatasetItemSize(), ds.ItemSize())
	assert.Equal(t, int64(ds.ItemCount())*int64(ds.ItemSize()), ds.Size())

	mem, err := ds.Bytes()
	require.NoError(t, err)
	assert.Len(t, mem, int(ds.Size()))

	fp, ok := ds.KeyFingerprint()
	assert.True(t, ok)
	assert.Equal(t, rxgo.KeyFingerprint(testutil.ExampleKey), fp)
}

// The dataset is a pure function of the key: every worker count produces
// the same bytes as a single synchronous worker.
func TestNewDataset_WorkerCountInvariance(t *testing.T) {
	eng := testutil.NewSmallEngine()
	want := datasetBytes(t, newSmallDataset(t, eng, rxgo.WithWorkers(1)))

	for _, workers := range []int{2, 3, 4, 7, 16, 64} {
		got := datasetBytes(t, newSmallDataset(t, eng, rxgo.WithWorkers(workers)))
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("workers=%d: dataset differs from single-worker build (-want +got):\n%s", workers, diff)
		}
	}
}

// More workers than items leaves the leading partitions empty; the last
// worker does all the work.
func TestNewDataset_MoreWorkersThanItems(t *testing.T) {
	cfg := testutil.SmallConfig
	cfg.ItemCount = 5
	inner, err := reference.NewWithConfig(cfg)
	require.NoError(t, err)

	eng := testutil.NewHookEngine(inner)
	var calls atomic.Int32
	eng.BeforeInit = func(_, _ uint64) { calls.Add(1) }

	ds := newSmallDataset(t, eng, rxgo.WithWorkers(8))
	assert.Equal(t, uint64(5), ds.ItemCount())
	assert.Equal(t, int32(5), calls.Load(), "one worker per item")

	want := datasetBytes(t, newSmallDataset(t, eng, rxgo.WithWorkers(1)))
	assert.Equal(t, want, datasetBytes(t, ds))
}

func TestNewDataset_WorkerCap(t *testing.T) {
	eng := testutil.NewHookEngine(testutil.NewSmallEngine())
	var calls atomic.Int32
	eng.BeforeInit = func(_, _ uint64) { calls.Add(1) }

	ds := newSmallDataset(t, eng, rxgo.WithWorkers(1<<30))
	assert.Equal(t, int32(rxgo.MaxWorkers), calls.Load())

	want := datasetBytes(t, newSmallDataset(t, testutil.NewSmallEngine(), rxgo.WithWorkers(1)))
	assert.Equal(t, want, datasetBytes(t, ds))
}

// Workers may finish in any order without changing the result.
func TestNewDataset_CompletionOrderIndependence(t *testing.T) {
	const workers = 4
	base := testutil.NewSmallEngine()
	want := datasetBytes(t, newSmallDataset(t, base, rxgo.WithWorkers(1)))

	parts := rxgo.Partitions(testutil.SmallConfig.ItemCount, workers)
	starts := make([]uint64, len(parts))
	for i, p := range parts {
		starts[i] = p.Start
	}

	rng := testutil.NewRNG(7)
	orders := [][]uint64{slices.Clone(starts)}
	reversed := slices.Clone(starts)
	slices.Reverse(reversed)
	orders = append(orders, reversed)
	for range 3 {
		perm := rng.Perm(workers)
		order := make([]uint64, workers)
		for i, j := range perm {
			order[i] = starts[j]
		}
		orders = append(orders, order)
	}

	for _, order := range orders {
		eng := testutil.NewHookEngine(base)
		seq := testutil.NewSequencer(order...)
		eng.BeforeInit = func(start, _ uint64) { seq.Wait(start) }
		eng.AfterInit = func(start, _ uint64) { seq.Done(start) }

		ds := newSmallDataset(t, eng, rxgo.WithWorkers(workers))
		require.Equal(t, order, seq.Completed())
		if diff := cmp.Diff(want, datasetBytes(t, ds)); diff != "" {
			t.Fatalf("order %v: dataset differs (-want +got):\n%s", order, diff)
		}
	}
}

// NewDataset returns only after every worker has finished.
func TestNewDataset_JoinsAllWorkers(t *testing.T) {
	eng := testutil.NewHookEngine(testutil.NewSmallEngine())
	var running, finished atomic.Int32
	eng.BeforeInit = func(start, _ uint64) {
		running.Add(1)
		if start == 0 {
			time.Sleep(20 * time.Millisecond)
		}
	}
	eng.AfterInit = func(_, _ uint64) { finished.Add(1) }

	newSmallDataset(t, eng, rxgo.WithWorkers(4))
	assert.Equal(t, int32(4), running.Load())
	assert.Equal(t, int32(4), finished.Load())
}

func TestNewDataset_WorkerPanic(t *testing.T) {
	eng := testutil.NewHookEngine(testutil.NewSmallEngine())
	parts := rxgo.Partitions(testutil.SmallConfig.ItemCount, 4)
	failing := parts[2]
	eng.BeforeInit = func(start, _ uint64) {
		if start == failing.Start {
			panic("injected worker fault")
		}
	}

	rc := resource.NewController(resource.Config{})
	metrics := &rxgo.BasicMetricsCollector{}

	ds, err := rxgo.NewDataset(context.Background(), rxgo.FlagDefault, testutil.ExampleKey,
		rxgo.WithEngine(eng),
		rxgo.WithWorkers(4),
		rxgo.WithResourceController(rc),
		rxgo.WithMetricsCollector(metrics),
	)
	require.Nil(t, ds)
	require.ErrorIs(t, err, rxgo.ErrThread)

	var threadErr *rxgo.ThreadError
	require.ErrorAs(t, err, &threadErr)
	assert.Equal(t, 2, threadErr.Worker)
	assert.Equal(t, failing, threadErr.Partition)
	assert.Contains(t, err.Error(), "injected worker fault")

	assert.Zero(t, rc.MemoryUsage(), "cache and partial dataset must be released")
	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.DatasetBuildErrors)
	assert.Equal(t, int64(1), stats.CacheInitCount)
}

func TestNewDataset_WorkerPanicSingleWorker(t *testing.T) {
	eng := testutil.NewHookEngine(testutil.NewSmallEngine())
	eng.BeforeInit = func(_, _ uint64) { panic("boom") }

	_, err := rxgo.NewDataset(context.Background(), rxgo.FlagDefault, testutil.ExampleKey,
		rxgo.WithEngine(eng),
		rxgo.WithWorkers(1),
	)
	var threadErr *rxgo.ThreadError
	require.ErrorAs(t, err, &threadErr)
	assert.Equal(t, 0, threadErr.Worker)
	assert.Equal(t, rxgo.Partition{Start: 0, Len: testutil.SmallConfig.ItemCount}, threadErr.Partition)
}

func TestNewDataset_AllocationFailure(t *testing.T) {
	eng := testutil.NewHookEngine(testutil.NewSmallEngine())
	eng.FailDatasetAlloc = true
	rc := resource.NewController(resource.Config{})

	_, err := rxgo.NewDataset(context.Background(), rxgo.FlagDefault, testutil.ExampleKey,
		rxgo.WithEngine(eng),
		rxgo.WithResourceController(rc),
	)
	var allocErr *rxgo.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "dataset", allocErr.What)
	assert.Zero(t, rc.MemoryUsage())
}

func TestNewDataset_MemoryLimit(t *testing.T) {
	eng := testutil.NewSmallEngine()
	// Room for the cache but not the dataset.
	rc := resource.NewController(resource.Config{MemoryLimitBytes: int64(eng.CacheSize()) + 1})

	_, err := rxgo.NewDataset(context.Background(), rxgo.FlagDefault, testutil.ExampleKey,
		rxgo.WithEngine(eng),
		rxgo.WithResourceController(rc),
	)
	require.ErrorIs(t, err, rxgo.ErrMemoryLimitExceeded)

	var allocErr *rxgo.AllocationError
	require.ErrorAs(t, err, &allocErr)
	assert.Equal(t, "dataset", allocErr.What)
	assert.Zero(t, rc.MemoryUsage())
}

func TestNewDataset_CanceledContext(t *testing.T) {
	eng := testutil.NewHookEngine(testutil.NewSmallEngine())
	eng.BeforeInit = func(_, _ uint64) { t.Error("build must not start") }

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := rxgo.NewDataset(ctx, rxgo.FlagDefault, testutil.ExampleKey, rxgo.WithEngine(eng))
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewDataset_BuildSlots(t *testing.T) {
	rc := resource.NewController(resource.Config{MaxConcurrentBuilds: 1})
	require.NoError(t, rc.AcquireBuild(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := rxgo.NewDataset(ctx, rxgo.FlagDefault, testutil.ExampleKey,
		rxgo.WithEngine(testutil.NewSmallEngine()),
		rxgo.WithResourceController(rc),
	)
	require.ErrorIs(t, err, context.DeadlineExceeded)

	rc.ReleaseBuild()
	newSmallDataset(t, testutil.NewSmallEngine(), rxgo.WithResourceController(rc))
	ctx, cancel = context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, rc.AcquireBuild(ctx), "build slot must be returned")
}

func TestNewDataset_InvalidFlags(t *testing.T) {
	_, err := rxgo.NewDataset(context.Background(), rxgo.Flags(1<<24), testutil.ExampleKey,
		rxgo.WithEngine(testutil.NewSmallEngine()))
	require.ErrorIs(t, err, rxgo.ErrInvalidFlags)
}

func TestNewDatasetFromCache(t *testing.T) {
	eng := testutil.NewSmallEngine()
	cache := newSmallCache(t, eng)

	ds, err := rxgo.NewDatasetFromCache(context.Background(), cache, rxgo.WithWorkers(3))
	require.NoError(t, err)
	defer ds.Close()

	want := datasetBytes(t, newSmallDataset(t, eng, rxgo.WithWorkers(1)))
	assert.Equal(t, want, datasetBytes(t, ds))

	// The cache stays usable and closable after the build.
	assert.False(t, cache.Closed())
	require.NoError(t, cache.Close())
	_, err = rxgo.NewDatasetFromCache(context.Background(), cache)
	require.ErrorIs(t, err, rxgo.ErrClosed)
}

func TestNewDatasetFromCache_PinsCache(t *testing.T) {
	eng := testutil.NewHookEngine(testutil.NewSmallEngine())
	cache := newSmallCache(t, eng)

	var closeErr error
	eng.BeforeInit = func(start, _ uint64) {
		if start == 0 {
			closeErr = cache.Close()
		}
	}

	ds, err := rxgo.NewDatasetFromCache(context.Background(), cache, rxgo.WithWorkers(1))
	require.NoError(t, err)
	defer ds.Close()

	require.ErrorIs(t, closeErr, rxgo.ErrInUse)
	assert.False(t, cache.Closed())
}

func TestNewDatasetFromCache_EngineMismatch(t *testing.T) {
	cache := newSmallCache(t, testutil.NewSmallEngine())

	_, err := rxgo.NewDatasetFromCache(context.Background(), cache, rxgo.WithEngine(testutil.NewSmallEngine()))
	require.ErrorIs(t, err, rxgo.ErrEngineMismatch)
}

func TestDataset_Close(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	eng := testutil.NewSmallEngine()

	ds, err := rxgo.NewDataset(context.Background(), rxgo.FlagDefault, testutil.ExampleKey,
		rxgo.WithEngine(eng),
		rxgo.WithResourceController(rc),
	)
	require.NoError(t, err)
	assert.Equal(t, ds.Size(), rc.MemoryUsage(), "intermediate cache must be released")

	vm, err := rxgo.NewFastMachine(rxgo.FlagDefault, ds)
	require.NoError(t, err)
	require.ErrorIs(t, ds.Close(), rxgo.ErrInUse)

	require.NoError(t, vm.Close())
	require.NoError(t, ds.Close())
	require.NoError(t, ds.Close())
	assert.True(t, ds.Closed())
	assert.Zero(t, rc.MemoryUsage())

	_, err = ds.Bytes()
	require.ErrorIs(t, err, rxgo.ErrClosed)
}

func TestDataset_Metrics(t *testing.T) {
	metrics := &rxgo.BasicMetricsCollector{}
	newSmallDataset(t, testutil.NewSmallEngine(), rxgo.WithMetricsCollector(metrics))

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.CacheInitCount)
	assert.Equal(t, int64(1), stats.DatasetBuildCount)
	assert.Zero(t, stats.DatasetBuildErrors)
	assert.Equal(t, int64(testutil.SmallConfig.ItemCount), stats.DatasetItems)
}
