package testutil

import (
	"math/rand"
	"sync"

	"github.com/hupe1980/rxgo/engine/reference"
)

var (
	// ExampleKey is the key of the librandomx regression vector.
	ExampleKey = []byte("RandomX example key\x00")
	// ExampleInput is the input of the librandomx regression vector.
	ExampleInput = []byte("RandomX example input\x00")
)

// SmallConfig sizes a reference engine for unit tests: a 64 KiB cache and
// 4099 dataset items. The prime item count leaves a remainder for every
// worker count above 1, so the last partition is always the largest.
var SmallConfig = reference.Config{
	CacheSize:  64 << 10,
	ItemCount:  4099,
	ItemRounds: 4,
	HashRounds: 16,
}

// NewSmallEngine returns a reference engine sized by SmallConfig.
func NewSmallEngine() *reference.Engine {
	e, err := reference.NewWithConfig(SmallConfig)
	if err != nil {
		panic(err)
	}
	return e
}

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Bytes returns n pseudo-random bytes.
func (r *RNG) Bytes(n int) []byte {
	b := make([]byte, n)
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = r.rand.Read(b)
	return b
}

// Inputs returns num pseudo-random hash inputs with lengths in [0, maxLen].
func (r *RNG) Inputs(num, maxLen int) [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([][]byte, num)
	for i := range out {
		b := make([]byte, r.rand.Intn(maxLen+1))
		_, _ = r.rand.Read(b)
		out[i] = b
	}
	return out
}

// Perm returns a pseudo-random permutation of [0, n).
func (r *RNG) Perm(n int) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Perm(n)
}
