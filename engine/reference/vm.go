package reference

import (
	"encoding/binary"

	"github.com/zeebo/blake3"
)

// vm holds per-instance scratch state; concurrent CalculateHash calls on
// one vm would interleave it.
type vm struct {
	cache   *cache
	dataset *dataset
	items   uint64
	rounds  int

	h       *blake3.Hasher
	ih      *blake3.Hasher
	state   [HashSize]byte
	scratch [ItemSize]byte
}

func (v *vm) CalculateHash(input, out []byte) {
	if v.h == nil {
		v.h = blake3.New()
		v.ih = blake3.New()
	}

	v.h.Reset()
	_, _ = v.h.Write(input)
	state := v.h.Sum(v.state[:0])

	for r := 0; r < v.rounds; r++ {
		item := v.item(binary.LittleEndian.Uint64(state[:8]) % v.items)
		v.h.Reset()
		_, _ = v.h.Write(state)
		_, _ = v.h.Write(item)
		state = v.h.Sum(v.state[:0])
	}

	copy(out[:HashSize], state)
}

// item returns dataset item index, read from dataset memory in fast mode or
// derived from the cache in light mode.
func (v *vm) item(index uint64) []byte {
	if v.dataset != nil {
		off := index * ItemSize
		return v.dataset.Memory()[off : off+ItemSize]
	}
	v.cache.deriveItem(index, v.ih, v.scratch[:])
	return v.scratch[:]
}

func (v *vm) Destroy() {
	v.cache = nil
	v.dataset = nil
	v.h = nil
	v.ih = nil
}
