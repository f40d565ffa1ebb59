// Command lrmallocdemo exercises the public allocator surface end to
// end: a small allocation, a large one, an aligned one,
// and a realloc, logging what it did. Grounded on tinySQL's cmd/*
// convention of small, single-purpose main packages alongside the
// library root.
package main

import (
	"log"
	"unsafe"

	"github.com/lrmalloc/lrmalloc"
)

func main() {
	c := lrmalloc.NewCache()
	defer c.Release()

	p, err := c.Malloc(64)
	if err != nil {
		log.Fatalf("malloc(64): %v", err)
	}
	*(*byte)(p) = 0xAB
	size, _ := c.AllocationSize(p)
	log.Printf("malloc(64) -> %p (block size %d bytes)", p, size)

	aligned, err := c.AlignedAlloc(4096, 32)
	if err != nil {
		log.Fatalf("aligned_alloc(4096, 32): %v", err)
	}
	log.Printf("aligned_alloc(4096, 32) -> %p (aligned mod 4096 = %d)", aligned, uintptr(aligned)%4096)

	grown, err := c.Realloc(p, 4096)
	if err != nil {
		log.Fatalf("realloc: %v", err)
	}
	log.Printf("realloc(p, 4096) -> %p, byte preserved = %v", grown, *(*byte)(unsafe.Pointer(grown)) == 0xAB)

	large, err := c.Malloc(1 << 20)
	if err != nil {
		log.Fatalf("malloc(1MiB): %v", err)
	}
	largeSize, _ := c.AllocationSize(large)
	log.Printf("malloc(1MiB) -> %p (rounded to %d bytes)", large, largeSize)

	c.Free(aligned)
	c.Free(grown)
	c.Free(large)
}
