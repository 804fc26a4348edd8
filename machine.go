package rxgo

import (
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hupe1980/rxgo/engine"
)

// DigestSize is the size of a hash digest in bytes.
const DigestSize = 32

// Digest is a fixed-size hash output.
type Digest [DigestSize]byte

// String returns the lowercase hex encoding of d.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// ParseDigest decodes a hex-encoded digest.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	b, err := hex.DecodeString(s)
	if err != nil {
		return d, fmt.Errorf("parse digest: %w", err)
	}
	if len(b) != DigestSize {
		return d, fmt.Errorf("parse digest: got %d bytes, want %d", len(b), DigestSize)
	}
	copy(d[:], b)
	return d, nil
}

// Mode identifies what a Machine is bound to.
type Mode uint8

const (
	// ModeLight machines are bound to a Cache.
	ModeLight Mode = iota + 1
	// ModeFast machines are bound to a Dataset.
	ModeFast
)

func (m Mode) String() string {
	switch m {
	case ModeLight:
		return "light"
	case ModeFast:
		return "fast"
	default:
		return fmt.Sprintf("Mode(%d)", uint8(m))
	}
}

// binding is the backing store of a Machine: exactly one of cache and
// dataset is set, according to mode.
type binding struct {
	mode    Mode
	cache   *Cache
	dataset *Dataset
}

func (b binding) life() *lifetime {
	if b.mode == ModeFast {
		return &b.dataset.life
	}
	return &b.cache.life
}

func (b binding) engine() engine.Engine {
	if b.mode == ModeFast {
		return b.dataset.eng
	}
	return b.cache.eng
}

// Machine computes digests against the Cache or Dataset it was bound to at
// construction.
//
// A Machine is not safe for concurrent use; create one Machine per
// goroutine over a shared Cache or Dataset instead. Overlapping calls are
// rejected with ErrConcurrentUse.
type Machine struct {
	vm    engine.VM
	bound binding
	flags Flags

	busy    atomic.Bool
	closed  atomic.Bool
	closeMu sync.Mutex

	metrics MetricsCollector
}

// NewMachine creates a light-mode machine bound to cache.
//
// flags must not contain FlagFullMem; a full-memory machine needs a
// Dataset (see NewFastMachine).
func NewMachine(flags Flags, cache *Cache, opts ...Option) (*Machine, error) {
	if cache == nil {
		return nil, vmError(ModeLight, flags, errors.New("nil cache"))
	}
	if flags.Has(FlagFullMem) {
		return nil, vmError(ModeLight, flags, errors.New("full-memory mode requires a dataset"))
	}
	return newMachine(flags, binding{mode: ModeLight, cache: cache}, opts)
}

// NewFastMachine creates a fast-mode machine bound to dataset. FlagFullMem
// is implied.
func NewFastMachine(flags Flags, dataset *Dataset, opts ...Option) (*Machine, error) {
	flags = flags.Union(FlagFullMem)
	if dataset == nil {
		return nil, vmError(ModeFast, flags, errors.New("nil dataset"))
	}
	return newMachine(flags, binding{mode: ModeFast, dataset: dataset}, opts)
}

func newMachine(flags Flags, b binding, optFns []Option) (*Machine, error) {
	if err := checkFlags(flags); err != nil {
		return nil, err
	}

	o, err := applyOptions(append([]Option{WithEngine(b.engine())}, optFns...))
	if err != nil {
		return nil, err
	}
	if o.engine != b.engine() {
		return nil, fmt.Errorf("%w: machine uses %s, %s was built by %s",
			ErrEngineMismatch, o.engine.Name(), b.mode, b.engine().Name())
	}

	life := b.life()
	if err := life.pin(); err != nil {
		return nil, err
	}

	var vm engine.VM
	switch b.mode {
	case ModeFast:
		vm, err = o.engine.CreateVM(uint32(flags), nil, b.dataset.native)
	default:
		vm, err = o.engine.CreateVM(uint32(flags), b.cache.native, nil)
	}
	if err != nil {
		life.unpin()
		return nil, vmError(b.mode, flags, err)
	}

	return &Machine{
		vm:      vm,
		bound:   b,
		flags:   flags,
		metrics: o.metrics,
	}, nil
}

// Mode reports whether the machine is bound to a Cache or a Dataset.
func (m *Machine) Mode() Mode { return m.bound.mode }

// Flags returns the flags the machine was created with.
func (m *Machine) Flags() Flags { return m.flags }

// Hash writes the digest of input into out[:DigestSize].
//
// If out is shorter than DigestSize, Hash returns a *SizeError without
// hashing and leaves out untouched. Bytes past DigestSize are never
// modified.
func (m *Machine) Hash(input, out []byte) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if len(out) < DigestSize {
		return &SizeError{Required: DigestSize, Actual: len(out)}
	}
	if !m.busy.CompareAndSwap(false, true) {
		return ErrConcurrentUse
	}
	defer m.busy.Store(false)

	// Close may have won the race between the check above and acquiring busy.
	if m.closed.Load() {
		return ErrClosed
	}

	start := time.Now()
	m.vm.CalculateHash(input, out[:DigestSize])
	m.metrics.RecordHash(time.Since(start), nil)
	return nil
}

// Sum returns the digest of input.
func (m *Machine) Sum(input []byte) (Digest, error) {
	var d Digest
	if err := m.Hash(input, d[:]); err != nil {
		return Digest{}, err
	}
	return d, nil
}

// Close destroys the VM and unbinds it from its Cache or Dataset, which
// stay open. Closing twice is a no-op, also when the calls overlap. Close
// fails with ErrConcurrentUse if a Hash call is in progress.
func (m *Machine) Close() error {
	m.closeMu.Lock()
	defer m.closeMu.Unlock()

	if m.closed.Load() {
		return nil
	}
	if !m.busy.CompareAndSwap(false, true) {
		return ErrConcurrentUse
	}
	defer m.busy.Store(false)

	m.closed.Store(true)
	m.vm.Destroy()
	m.bound.life().unpin()
	return nil
}
