package reference

import (
	"encoding/binary"
	"io"

	"github.com/hupe1980/rxgo/internal/mmap"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
)

const cacheContext = "rxgo reference cache v1"

type cache struct {
	m      *mmap.Mapping
	rounds int
}

func (c *cache) Size() int { return c.m.Size() }

func (c *cache) Init(key []byte) {
	h := blake3.NewDeriveKey(cacheContext)
	_, _ = h.Write(key)
	_, _ = io.ReadFull(h.Digest(), c.m.Bytes())
}

func (c *cache) Release() {
	_ = c.m.Close()
}

// deriveItem writes dataset item index into out[:ItemSize]. It only reads
// the cache, so any number of goroutines may call it concurrently as long
// as each brings its own hasher.
func (c *cache) deriveItem(index uint64, h *blake3.Hasher, out []byte) {
	mem := c.m.Bytes()
	lines := uint64(len(mem) / lineSize)

	var idx [8]byte
	binary.LittleEndian.PutUint64(idx[:], index)

	h.Reset()
	_, _ = h.Write(idx[:])
	seed := xxh3.HashSeed(idx[:], index)
	for r := 0; r < c.rounds; r++ {
		off := (seed % lines) * lineSize
		line := mem[off : off+lineSize]
		_, _ = h.Write(line)
		seed = xxh3.HashSeed(line, seed)
	}
	_, _ = io.ReadFull(h.Digest(), out[:ItemSize])
}
