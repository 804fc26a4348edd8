//go:build cgo && randomx

package native

/*
#cgo LDFLAGS: -lrandomx -lstdc++ -lm
#include <stdlib.h>
#include <randomx.h>
*/
import "C"

import (
	"unsafe"

	"github.com/hupe1980/rxgo/engine"
)

// Available reports whether librandomx was compiled in.
const Available = true

// cacheSize is RANDOMX_ARGON_MEMORY * 1024 for the default configuration.
// configuration.h is not part of the public header.
const cacheSize = 256 << 20

// Engine is the librandomx engine. The zero value is ready to use.
type Engine struct{}

// New returns the librandomx engine.
func New() (engine.Engine, error) {
	return Engine{}, nil
}

func init() {
	engine.Register(Engine{})
}

func (Engine) Name() string { return "librandomx" }

func (Engine) DatasetItemCount() uint64 {
	return uint64(C.randomx_dataset_item_count())
}

func (Engine) DatasetItemSize() int { return C.RANDOMX_DATASET_ITEM_SIZE }

func (Engine) CacheSize() int { return cacheSize }

func (Engine) HashSize() int { return C.RANDOMX_HASH_SIZE }

func (Engine) AllocCache(flags uint32) (engine.Cache, error) {
	ptr := C.randomx_alloc_cache(C.randomx_flags(flags))
	if ptr == nil {
		return nil, engine.ErrAllocFailed
	}
	return &cache{ptr: ptr}, nil
}

func (e Engine) AllocDataset(flags uint32) (engine.Dataset, error) {
	ptr := C.randomx_alloc_dataset(C.randomx_flags(flags))
	if ptr == nil {
		return nil, engine.ErrAllocFailed
	}
	size := e.DatasetItemCount() * uint64(e.DatasetItemSize())
	return &dataset{ptr: ptr, size: int(size)}, nil
}

func (Engine) CreateVM(flags uint32, c engine.Cache, d engine.Dataset) (engine.VM, error) {
	var (
		cachePtr   *C.randomx_cache
		datasetPtr *C.randomx_dataset
	)
	if nc, ok := c.(*cache); ok && nc != nil {
		cachePtr = nc.ptr
	}
	if nd, ok := d.(*dataset); ok && nd != nil {
		datasetPtr = nd.ptr
	}
	// librandomx only asserts these in debug builds.
	if flags&engine.FlagFullMem != 0 && datasetPtr == nil {
		return nil, engine.ErrVMCreate
	}
	if flags&engine.FlagFullMem == 0 && cachePtr == nil {
		return nil, engine.ErrVMCreate
	}

	ptr := C.randomx_create_vm(C.randomx_flags(flags), cachePtr, datasetPtr)
	if ptr == nil {
		return nil, engine.ErrVMCreate
	}
	return &vm{ptr: ptr}, nil
}

type cache struct {
	ptr *C.randomx_cache
}

func (c *cache) Size() int { return cacheSize }

func (c *cache) Init(key []byte) {
	C.randomx_init_cache(c.ptr, bytesPtr(key), C.size_t(len(key)))
}

func (c *cache) Release() {
	C.randomx_release_cache(c.ptr)
	c.ptr = nil
}

type dataset struct {
	ptr  *C.randomx_dataset
	size int
}

func (d *dataset) InitRange(view engine.CacheView, start, count uint64) {
	c := view.(*cache)
	C.randomx_init_dataset(d.ptr, c.ptr, C.ulong(start), C.ulong(count))
}

func (d *dataset) Memory() []byte {
	return unsafe.Slice((*byte)(C.randomx_get_dataset_memory(d.ptr)), d.size)
}

func (d *dataset) Release() {
	C.randomx_release_dataset(d.ptr)
	d.ptr = nil
}

type vm struct {
	ptr *C.randomx_vm
}

func (v *vm) CalculateHash(input, out []byte) {
	C.randomx_calculate_hash(v.ptr, bytesPtr(input), C.size_t(len(input)), unsafe.Pointer(&out[0]))
}

func (v *vm) Destroy() {
	C.randomx_destroy_vm(v.ptr)
	v.ptr = nil
}

var empty [1]byte

func bytesPtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return unsafe.Pointer(&empty[0])
	}
	return unsafe.Pointer(&b[0])
}
