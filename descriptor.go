package lrmalloc

import "unsafe"

// descriptor is the metadata record for one superblock. sizeClass is
// -1 for a large (dedicated-pages) allocation, which has no owning
// heap and exactly one "block" spanning the whole superblock.
type descriptor struct {
	superBlock uintptr
	blockSize  uint32 // bytes; for a large allocation this is the whole span
	maxCount   uint32
	sizeClass  int32
	heap       *sizeClassHeap // nil for large allocations
	anchor     anchorWord
}

// descriptorPool hands out descriptors from a lock-free free list,
// falling back to a fresh heap allocation (Go's own new) when the
// list is empty, since descriptor memory is ordinary GC-managed
// metadata rather than page-mapped superblock bytes.
//
// prewarm seeds a handful of descriptors straight out of the
// bootstrap reserve before the pool's free list has anything in it,
// so constructing an Arena never itself depends on a successful
// allocation through the arena it is still constructing.
type descriptorPool struct {
	free *lfStack[*descriptor]
}

var descriptorSize = unsafe.Sizeof(descriptor{})

func newDescriptorPool(boot *bootstrapReserve, prewarm int) *descriptorPool {
	p := &descriptorPool{free: newLFStack[*descriptor]()}
	for i := 0; i < prewarm; i++ {
		mem := boot.allocate(descriptorSize)
		if mem == nil {
			break
		}
		p.free.push((*descriptor)(mem))
	}
	return p
}

func (p *descriptorPool) alloc() *descriptor {
	if d, ok := p.free.pop(); ok {
		*d = descriptor{}
		return d
	}
	return &descriptor{}
}

func (p *descriptorPool) retire(d *descriptor) {
	p.free.push(d)
}
