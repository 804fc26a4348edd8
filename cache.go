package rxgo

import (
	"context"
	"time"

	"github.com/zeebo/blake3"

	"github.com/hupe1980/rxgo/engine"
	"github.com/hupe1980/rxgo/resource"
)

// Cache is a key-derived, read-only memory region used directly by
// light-mode machines or as the source of a Dataset build.
//
// A Cache is safe for concurrent readers. It must be closed exactly once by
// its owner; Close fails with ErrInUse while machines are bound to it.
type Cache struct {
	life lifetime

	eng    engine.Engine
	native engine.Cache
	flags  Flags
	size   int64
	keyID  [32]byte

	resources *resource.Controller
	logger    *Logger
}

// NewCache allocates a cache region for flags and initializes it from key.
//
// Allocation failures (including large pages being unavailable and an
// exhausted memory budget) are reported as *AllocationError.
func NewCache(flags Flags, key []byte, opts ...Option) (*Cache, error) {
	o, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	return newCache(context.Background(), flags, key, o)
}

func newCache(ctx context.Context, flags Flags, key []byte, o options) (*Cache, error) {
	if err := checkFlags(flags); err != nil {
		return nil, err
	}

	start := time.Now()
	c, err := allocCache(flags, key, o)
	elapsed := time.Since(start)

	o.metrics.RecordCacheInit(elapsed, err)
	o.logger.WithEngine(o.engine.Name()).LogCacheInit(ctx, o.engine.CacheSize(), elapsed, err)
	return c, err
}

func allocCache(flags Flags, key []byte, o options) (*Cache, error) {
	size := int64(o.engine.CacheSize())
	if err := o.resources.AcquireMemory(size); err != nil {
		return nil, allocError("cache", size, err)
	}

	native, err := o.engine.AllocCache(uint32(flags))
	if err != nil {
		o.resources.ReleaseMemory(size)
		return nil, allocError("cache", size, err)
	}
	native.Init(key)

	return &Cache{
		eng:       o.engine,
		native:    native,
		flags:     flags,
		size:      size,
		keyID:     KeyFingerprint(key),
		resources: o.resources,
		logger:    o.logger,
	}, nil
}

// Flags returns the flags the cache was allocated with.
func (c *Cache) Flags() Flags { return c.flags }

// Engine returns the engine that owns the cache region.
func (c *Cache) Engine() engine.Engine { return c.eng }

// Size returns the size of the cache region in bytes.
func (c *Cache) Size() int64 { return c.size }

// KeyFingerprint returns the BLAKE3 fingerprint of the initialization key.
func (c *Cache) KeyFingerprint() [32]byte { return c.keyID }

// Closed reports whether the cache was released.
func (c *Cache) Closed() bool { return c.life.isClosed() }

// Close releases the cache region. It returns ErrInUse while a machine or a
// dataset build is bound to the cache. Closing twice is a no-op.
func (c *Cache) Close() error {
	err := c.life.release(func() {
		c.native.Release()
		c.resources.ReleaseMemory(c.size)
	})
	if err != nil {
		c.logger.LogRelease(context.Background(), "cache", err)
	}
	return err
}

// KeyFingerprint returns the BLAKE3-256 digest of key. Snapshot manifests
// record it instead of the key itself.
func KeyFingerprint(key []byte) [32]byte {
	return blake3.Sum256(key)
}
