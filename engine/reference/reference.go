package reference

import (
	"fmt"

	"github.com/hupe1980/rxgo/engine"
	"github.com/hupe1980/rxgo/internal/mmap"
)

const (
	// ItemSize is the size of one dataset item in bytes.
	ItemSize = 64
	// HashSize is the digest size in bytes.
	HashSize = 32

	lineSize = 64
)

// Config sizes the reference engine.
type Config struct {
	// CacheSize in bytes; rounded down to a multiple of 64.
	CacheSize int
	// ItemCount is the number of dataset items.
	ItemCount uint64
	// ItemRounds is the number of cache lines mixed into each item.
	ItemRounds int
	// HashRounds is the number of dataset items read per hash.
	HashRounds int
}

// DefaultConfig is used by New: a 16 MiB cache and a 64 MiB dataset.
var DefaultConfig = Config{
	CacheSize:  16 << 20,
	ItemCount:  1 << 20,
	ItemRounds: 8,
	HashRounds: 64,
}

// Engine implements engine.Engine.
type Engine struct {
	cfg Config
}

// New returns a reference engine with DefaultConfig.
func New() *Engine {
	e, _ := NewWithConfig(DefaultConfig)
	return e
}

// NewWithConfig returns a reference engine sized by cfg.
func NewWithConfig(cfg Config) (*Engine, error) {
	cfg.CacheSize -= cfg.CacheSize % lineSize
	if cfg.CacheSize < lineSize {
		return nil, fmt.Errorf("reference: cache size must be at least %d bytes", lineSize)
	}
	if cfg.ItemCount == 0 {
		return nil, fmt.Errorf("reference: item count must be positive")
	}
	if cfg.ItemRounds <= 0 {
		cfg.ItemRounds = DefaultConfig.ItemRounds
	}
	if cfg.HashRounds <= 0 {
		cfg.HashRounds = DefaultConfig.HashRounds
	}
	return &Engine{cfg: cfg}, nil
}

// Config returns the engine geometry.
func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Name() string { return "reference" }

func (e *Engine) DatasetItemCount() uint64 { return e.cfg.ItemCount }

func (e *Engine) DatasetItemSize() int { return ItemSize }

func (e *Engine) CacheSize() int { return e.cfg.CacheSize }

func (e *Engine) HashSize() int { return HashSize }

func (e *Engine) AllocCache(flags uint32) (engine.Cache, error) {
	m, err := allocRegion(e.cfg.CacheSize, flags)
	if err != nil {
		return nil, err
	}
	return &cache{m: m, rounds: e.cfg.ItemRounds}, nil
}

func (e *Engine) AllocDataset(flags uint32) (engine.Dataset, error) {
	m, err := allocRegion(int(e.cfg.ItemCount)*ItemSize, flags)
	if err != nil {
		return nil, err
	}
	return &dataset{m: m, items: e.cfg.ItemCount}, nil
}

func (e *Engine) CreateVM(flags uint32, c engine.Cache, d engine.Dataset) (engine.VM, error) {
	rc, _ := c.(*cache)
	rd, _ := d.(*dataset)

	v := &vm{items: e.cfg.ItemCount, rounds: e.cfg.HashRounds}
	switch {
	case flags&engine.FlagFullMem != 0:
		if rd == nil {
			return nil, fmt.Errorf("%w: full-memory mode requires a dataset", engine.ErrVMCreate)
		}
		v.dataset = rd
	default:
		if rc == nil {
			return nil, fmt.Errorf("%w: light mode requires a cache", engine.ErrVMCreate)
		}
		v.cache = rc
	}
	return v, nil
}

func allocRegion(size int, flags uint32) (*mmap.Mapping, error) {
	m, err := mmap.MapAnon(size, mmap.AnonOptions{HugePages: flags&engine.FlagLargePages != 0})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrAllocFailed, err)
	}
	return m, nil
}
