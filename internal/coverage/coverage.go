// Package coverage tracks dataset item ranges through initialization: a
// range is claimed by exactly one writer before any byte is written and is
// marked done chunk by chunk as the engine returns.
package coverage

import (
	"fmt"
	"sync"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
)

// Ledger is a concurrency-safe record of claimed and initialized item
// indices in [0, total).
type Ledger struct {
	mu      sync.Mutex
	total   uint64
	claimed *roaring64.Bitmap
	done    *roaring64.Bitmap
}

// New returns an empty ledger for indices [0, total).
func New(total uint64) *Ledger {
	return &Ledger{total: total, claimed: roaring64.New(), done: roaring64.New()}
}

func (l *Ledger) span(start, n uint64) (*roaring64.Bitmap, error) {
	end := start + n
	if end < start || end > l.total {
		return nil, fmt.Errorf("coverage: range [%d, %d) outside [0, %d)", start, end, l.total)
	}
	r := roaring64.New()
	r.AddRange(start, end)
	return r, nil
}

// Claim reserves [start, start+n) for a single writer. It fails if the
// range leaves [0, total) or overlaps a range claimed earlier; a failed
// claim reserves nothing.
func (l *Ledger) Claim(start, n uint64) error {
	if n == 0 {
		return nil
	}
	r, err := l.span(start, n)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed.Intersects(r) {
		return fmt.Errorf("coverage: range [%d, %d) claimed twice", start, start+n)
	}
	l.claimed.Or(r)
	return nil
}

// Done records [start, start+n) as initialized. The range must have been
// claimed and must not have been marked before.
func (l *Ledger) Done(start, n uint64) error {
	if n == 0 {
		return nil
	}
	r, err := l.span(start, n)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if r.AndCardinality(l.claimed) != n {
		return fmt.Errorf("coverage: range [%d, %d) initialized without a claim", start, start+n)
	}
	if l.done.Intersects(r) {
		return fmt.Errorf("coverage: range [%d, %d) initialized twice", start, start+n)
	}
	l.done.Or(r)
	return nil
}

// Covered returns the number of initialized indices.
func (l *Ledger) Covered() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.done.GetCardinality()
}

// Complete reports whether every index in [0, total) is initialized.
func (l *Ledger) Complete() bool {
	return l.Covered() == l.total
}

// Missing returns the first uninitialized index, or total if complete.
func (l *Ledger) Missing() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	missing := roaring64.Flip(l.done, 0, l.total)
	if missing.IsEmpty() {
		return l.total
	}
	return missing.Minimum()
}
