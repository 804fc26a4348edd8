package rxgo

import (
	"fmt"
	"runtime"
)

// Partition is a contiguous range of dataset item indices [Start, Start+Len)
// owned by exactly one worker during dataset initialization.
type Partition struct {
	Start uint64
	Len   uint64
}

// End returns the first index past the partition.
func (p Partition) End() uint64 { return p.Start + p.Len }

func (p Partition) String() string {
	return fmt.Sprintf("[%d, %d)", p.Start, p.End())
}

// Partitions splits [0, itemCount) into workers contiguous ranges of
// itemCount/workers items each; the last range also takes the remainder.
// workers < 1 is treated as 1.
func Partitions(itemCount uint64, workers int) []Partition {
	if workers < 1 {
		workers = 1
	}
	w := uint64(workers)
	size := itemCount / w
	rem := itemCount % w

	parts := make([]Partition, workers)
	var start uint64
	for i := range parts {
		n := size
		if i == workers-1 {
			n += rem
		}
		parts[i] = Partition{Start: start, Len: n}
		start += n
	}
	return parts
}

// ValidatePartitions checks that parts tile [0, itemCount) in order with no
// gaps or overlaps.
func ValidatePartitions(parts []Partition, itemCount uint64) error {
	var next uint64
	for i, p := range parts {
		if p.Start != next {
			return fmt.Errorf("partition %d %s: expected start %d", i, p, next)
		}
		if p.End() < p.Start {
			return fmt.Errorf("partition %d %s: length overflows", i, p)
		}
		next = p.End()
	}
	if next != itemCount {
		return fmt.Errorf("partitions end at %d, want %d", next, itemCount)
	}
	return nil
}

// MaxWorkers caps the dataset worker count. Larger WithWorkers values are
// clamped to it.
const MaxWorkers = 1024

// workerCount is the number of workers a build of itemCount items
// actually starts: requested, clamped to [1, MaxWorkers] and to one
// worker per item.
func workerCount(requested int, itemCount uint64) int {
	w := min(max(requested, 1), MaxWorkers)
	if itemCount < uint64(w) {
		w = int(max(itemCount, 1))
	}
	return w
}

// DefaultWorkers is the dataset worker count used when none is configured:
// the number of logical CPUs, at least 1.
func DefaultWorkers() int {
	return max(runtime.NumCPU(), 1)
}
