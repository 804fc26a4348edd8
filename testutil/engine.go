package testutil

import (
	"fmt"
	"sync"

	"github.com/hupe1980/rxgo/engine"
)

// HookEngine wraps an engine and lets tests intercept dataset
// initialization and inject allocation or VM failures.
type HookEngine struct {
	engine.Engine

	// BeforeInit runs before each InitRange call. It may block or panic.
	BeforeInit func(start, count uint64)
	// AfterInit runs after each InitRange call.
	AfterInit func(start, count uint64)

	FailCacheAlloc   bool
	FailDatasetAlloc bool
	FailVM           bool
}

// NewHookEngine wraps inner.
func NewHookEngine(inner engine.Engine) *HookEngine {
	return &HookEngine{Engine: inner}
}

func (e *HookEngine) AllocCache(flags uint32) (engine.Cache, error) {
	if e.FailCacheAlloc {
		return nil, fmt.Errorf("%w: injected", engine.ErrAllocFailed)
	}
	return e.Engine.AllocCache(flags)
}

func (e *HookEngine) AllocDataset(flags uint32) (engine.Dataset, error) {
	if e.FailDatasetAlloc {
		return nil, fmt.Errorf("%w: injected", engine.ErrAllocFailed)
	}
	d, err := e.Engine.AllocDataset(flags)
	if err != nil {
		return nil, err
	}
	return &hookDataset{Dataset: d, e: e}, nil
}

func (e *HookEngine) CreateVM(flags uint32, c engine.Cache, d engine.Dataset) (engine.VM, error) {
	if e.FailVM {
		return nil, fmt.Errorf("%w: injected", engine.ErrVMCreate)
	}
	if hd, ok := d.(*hookDataset); ok {
		d = hd.Dataset
	}
	return e.Engine.CreateVM(flags, c, d)
}

type hookDataset struct {
	engine.Dataset
	e *HookEngine
}

func (d *hookDataset) InitRange(view engine.CacheView, start, count uint64) {
	if d.e.BeforeInit != nil {
		d.e.BeforeInit(start, count)
	}
	d.Dataset.InitRange(view, start, count)
	if d.e.AfterInit != nil {
		d.e.AfterInit(start, count)
	}
}

// Sequencer forces dataset partitions to run in a chosen order. Partitions
// are identified by their start index; InitRange for a start that is not
// part of the order runs immediately.
//
//	seq := testutil.NewSequencer(starts...)
//	eng.BeforeInit = func(start, _ uint64) { seq.Wait(start) }
//	eng.AfterInit = func(start, _ uint64) { seq.Done(start) }
type Sequencer struct {
	mu    sync.Mutex
	cond  *sync.Cond
	turn  map[uint64]int
	next  int
	order []uint64
}

// NewSequencer returns a sequencer that admits partitions in the order of
// their start indices.
func NewSequencer(starts ...uint64) *Sequencer {
	s := &Sequencer{turn: make(map[uint64]int, len(starts))}
	s.cond = sync.NewCond(&s.mu)
	for i, start := range starts {
		s.turn[start] = i
	}
	return s
}

// Wait blocks until it is start's turn.
func (s *Sequencer) Wait(start uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	turn, ok := s.turn[start]
	if !ok {
		return
	}
	for s.next != turn {
		s.cond.Wait()
	}
}

// Done records start as completed and admits the next partition.
func (s *Sequencer) Done(start uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.order = append(s.order, start)
	if _, ok := s.turn[start]; ok {
		s.next++
		s.cond.Broadcast()
	}
}

// Completed returns the start indices in completion order.
func (s *Sequencer) Completed() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.order...)
}
