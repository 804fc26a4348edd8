package rxgo

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordCacheInit is called after each cache allocation and
	// initialization. err is nil if successful.
	RecordCacheInit(duration time.Duration, err error)

	// RecordDatasetBuild is called after each dataset build with the item
	// count and worker fan-out.
	RecordDatasetBuild(items uint64, workers int, duration time.Duration, err error)

	// RecordSnapshotLoad is called after each snapshot load.
	RecordSnapshotLoad(bytes int64, duration time.Duration, err error)

	// RecordSnapshotSave is called after each snapshot save.
	RecordSnapshotSave(bytes int64, duration time.Duration, err error)

	// RecordHash is called after each hash computation.
	RecordHash(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordCacheInit(time.Duration, error)                 {}
func (NoopMetricsCollector) RecordDatasetBuild(uint64, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSnapshotLoad(int64, time.Duration, error)       {}
func (NoopMetricsCollector) RecordSnapshotSave(int64, time.Duration, error)       {}
func (NoopMetricsCollector) RecordHash(time.Duration, error)                      {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	CacheInitCount     atomic.Int64
	CacheInitErrors    atomic.Int64
	DatasetBuildCount  atomic.Int64
	DatasetBuildErrors atomic.Int64
	DatasetBuildNanos  atomic.Int64
	DatasetItems       atomic.Int64
	SnapshotLoads      atomic.Int64
	SnapshotSaves      atomic.Int64
	SnapshotErrors     atomic.Int64
	SnapshotBytes      atomic.Int64
	HashCount          atomic.Int64
	HashErrors         atomic.Int64
	HashTotalNanos     atomic.Int64
}

// RecordCacheInit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCacheInit(_ time.Duration, err error) {
	b.CacheInitCount.Add(1)
	if err != nil {
		b.CacheInitErrors.Add(1)
	}
}

// RecordDatasetBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDatasetBuild(items uint64, _ int, duration time.Duration, err error) {
	b.DatasetBuildCount.Add(1)
	b.DatasetBuildNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.DatasetBuildErrors.Add(1)
		return
	}
	b.DatasetItems.Add(int64(items))
}

// RecordSnapshotLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotLoad(bytes int64, _ time.Duration, err error) {
	b.SnapshotLoads.Add(1)
	b.recordSnapshot(bytes, err)
}

// RecordSnapshotSave implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSnapshotSave(bytes int64, _ time.Duration, err error) {
	b.SnapshotSaves.Add(1)
	b.recordSnapshot(bytes, err)
}

func (b *BasicMetricsCollector) recordSnapshot(bytes int64, err error) {
	if err != nil {
		b.SnapshotErrors.Add(1)
		return
	}
	b.SnapshotBytes.Add(bytes)
}

// RecordHash implements MetricsCollector.
func (b *BasicMetricsCollector) RecordHash(duration time.Duration, err error) {
	b.HashCount.Add(1)
	b.HashTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.HashErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		CacheInitCount:     b.CacheInitCount.Load(),
		CacheInitErrors:    b.CacheInitErrors.Load(),
		DatasetBuildCount:  b.DatasetBuildCount.Load(),
		DatasetBuildErrors: b.DatasetBuildErrors.Load(),
		DatasetItems:       b.DatasetItems.Load(),
		SnapshotLoads:      b.SnapshotLoads.Load(),
		SnapshotSaves:      b.SnapshotSaves.Load(),
		SnapshotErrors:     b.SnapshotErrors.Load(),
		SnapshotBytes:      b.SnapshotBytes.Load(),
		HashCount:          b.HashCount.Load(),
		HashErrors:         b.HashErrors.Load(),
		HashAvgNanos:       b.getAvgHashNanos(),
	}
}

func (b *BasicMetricsCollector) getAvgHashNanos() int64 {
	count := b.HashCount.Load()
	if count == 0 {
		return 0
	}
	return b.HashTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	CacheInitCount     int64
	CacheInitErrors    int64
	DatasetBuildCount  int64
	DatasetBuildErrors int64
	DatasetItems       int64
	SnapshotLoads      int64
	SnapshotSaves      int64
	SnapshotErrors     int64
	SnapshotBytes      int64
	HashCount          int64
	HashErrors         int64
	HashAvgNanos       int64
}
