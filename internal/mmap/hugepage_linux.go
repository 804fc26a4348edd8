//go:build linux

package mmap

import "golang.org/x/sys/unix"

const (
	hugePageFlag = unix.MAP_HUGETLB
	hugePageSize = 2 << 20
)
