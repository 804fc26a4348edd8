//go:build unix && !linux

package mmap

const (
	hugePageFlag = 0
	hugePageSize = 2 << 20
)
