// Package reference is a pure-Go engine with the same structural contract
// as librandomx, built from BLAKE3 and xxh3.
//
// It is NOT RandomX and its digests have no consensus value. It exists so
// that the cache/dataset/VM lifecycle can be exercised without cgo:
//
//   - the cache is a BLAKE3 XOF stream of the key;
//   - dataset item i depends only on i and a key-dependent walk over cache
//     lines, so disjoint item ranges can be derived in any order;
//   - a light VM derives items on demand from the cache while a fast VM
//     reads them from dataset memory, so both modes yield identical digests.
//
// Regions are anonymous mappings (internal/mmap) and honor the large-pages
// flag: if huge pages cannot be mapped, allocation fails.
package reference
