package lrmalloc

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Page geometry. 4 KiB matches the common case on every platform
// x/sys/unix targets here.
const (
	pageShift = 12
	pageSize  = 1 << pageShift
	pageMask  = pageSize - 1
)

// pages backs every superblock and large allocation with real
// anonymous mmap/munmap. golang.org/x/sys/unix is the ecosystem-
// standard way user code reaches for these syscalls without
// depending on anything GOROOT-internal.
type pages struct{}

func (pages) alloc(size uintptr) (uintptr, error) {
	if size == 0 {
		return 0, ErrInvalidArgument
	}
	size = alignUp(size, pageSize)
	b, err := unix.Mmap(-1, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return 0, fmt.Errorf("%w: mmap %d bytes: %v", ErrOutOfMemory, size, err)
	}
	return uintptr(unsafe.Pointer(&b[0])), nil
}

func (pages) free(addr, size uintptr) {
	size = alignUp(size, pageSize)
	b := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(size))
	_ = unix.Munmap(b)
}
