// Package mmap provides memory-mapped regions for snapshot files and
// off-heap engine memory.
//
// # Usage
//
//	m, err := mmap.Open("dataset.bin")
//	if err != nil { ... }
//	defer m.Close()
//
//	// Zero-copy access to file contents
//	data := m.Bytes()
//
//	// Writable anonymous region, optionally backed by huge pages
//	anon, err := mmap.MapAnon(256<<20, mmap.AnonOptions{HugePages: true})
//
//	// Disjoint view into a sub-range
//	region, _ := anon.Region(offset, size)
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints.
//     Huge pages (MAP_HUGETLB) are Linux only.
//   - Windows: CreateFileMapping/MapViewOfFile and VirtualAlloc
//     (madvise is a no-op, huge pages are not supported).
//
// # Thread Safety
//
// Mapping and Region are safe for concurrent access to disjoint byte ranges.
// Close() is idempotent and protected by atomic operations. Callers must
// ensure no goroutine touches Bytes() after Close() returns.
package mmap
