package reference

import (
	"fmt"

	"github.com/hupe1980/rxgo/engine"
	"github.com/hupe1980/rxgo/internal/mmap"
	"github.com/zeebo/blake3"
)

type dataset struct {
	m     *mmap.Mapping
	items uint64
}

func (d *dataset) InitRange(view engine.CacheView, start, count uint64) {
	c, ok := view.(*cache)
	if !ok {
		panic(fmt.Sprintf("reference: dataset initialized from foreign cache %T", view))
	}

	region, err := d.m.Region(int(start)*ItemSize, int(count)*ItemSize)
	if err != nil {
		panic(fmt.Sprintf("reference: item range [%d, %d): %v", start, start+count, err))
	}

	buf := region.Bytes()
	h := blake3.New()
	for i := uint64(0); i < count; i++ {
		c.deriveItem(start+i, h, buf[i*ItemSize:])
	}
}

func (d *dataset) Memory() []byte {
	return d.m.Bytes()
}

func (d *dataset) Release() {
	_ = d.m.Close()
}
