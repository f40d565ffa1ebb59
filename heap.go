package lrmalloc

import "golang.org/x/sys/cpu"

// sizeClassHeap owns partialList, a lock-free stack of descriptors
// whose superblocks are neither full nor empty, one instance per
// size class. Grounded on mcentral.go's one-per-size-class shape,
// with the mutex and sweep-generation bookkeeping replaced by a
// lock-free stack.
type sizeClassHeap struct {
	classIndex int32
	partial    *lfStack[*descriptor]

	// Padding keeps adjacent size classes' heaps from false-sharing
	// a cache line under concurrent push/pop, the same concern
	// mheap.go's mcentral pad field addresses for its own lock.
	_ cpu.CacheLinePad
}

func newSizeClassHeap(idx int32) *sizeClassHeap {
	return &sizeClassHeap{classIndex: idx, partial: newLFStack[*descriptor]()}
}

func (h *sizeClassHeap) pushPartial(d *descriptor) {
	h.partial.push(d)
}

func (h *sizeClassHeap) popPartial() (*descriptor, bool) {
	return h.partial.pop()
}
