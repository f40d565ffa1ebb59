package lrmalloc

import "unsafe"

// mallocFromNewSB carves a fresh superblock from the pages layer,
// threads an embedded free list through every block, and hands the
// whole thing to the cache. The anchor is published as
// {avail: maxCount, count: 0, state: FULL}: every block is owned by
// the cache now, so the descriptor itself has nothing left to hand
// out.
func mallocFromNewSB(a *Arena, classIdx int32) (head uintptr, count uint32, ok bool) {
	sc := a.sizeClasses[classIdx]
	base, err := a.pages.alloc(uintptr(sc.superblockSize))
	if err != nil {
		return 0, 0, false
	}

	d := a.descPool.alloc()
	d.superBlock = base
	d.blockSize = sc.blockSize
	d.maxCount = sc.blockNum
	d.sizeClass = classIdx
	d.heap = a.heaps[classIdx]

	bs := uintptr(sc.blockSize)
	for i := uint32(0); i < sc.blockNum; i++ {
		blockAddr := base + uintptr(i)*bs
		var next uintptr
		if i+1 < sc.blockNum {
			next = base + uintptr(i+1)*bs
		}
		*(*uintptr)(unsafe.Pointer(blockAddr)) = next
	}

	d.anchor.store(anchorSnapshot{state: asFull, avail: sc.blockNum, count: 0})
	a.pageMap.registerDesc(d, uintptr(sc.superblockSize))

	return base, sc.blockNum, true
}

// mallocFromPartial pops descriptors off heap i's partial list until
// it finds one it can claim. A descriptor observed EMPTY on the
// partial list is stale (flushCache leaves a descriptor that went
// EMPTY on the list rather than unlinking it); it is retired and the
// search continues.
func mallocFromPartial(a *Arena, classIdx int32) (head uintptr, count uint32, ok bool) {
	sc := a.sizeClasses[classIdx]
	for {
		d, found := a.heaps[classIdx].popPartial()
		if !found {
			return 0, 0, false
		}

		for {
			old := d.anchor.load()
			if old.state == asEmpty {
				a.descPool.retire(d)
				break // stale: try the next partial
			}

			newAnchor := anchorSnapshot{state: asFull, avail: sc.blockNum, count: 0, tag: old.tag + 1}
			if d.anchor.cas(old, newAnchor) {
				assertInvariant(old.count > 0, "malloc_from_partial: claimed descriptor had no free blocks")
				headAddr := d.superBlock + uintptr(old.avail)*uintptr(sc.blockSize)
				return headAddr, old.count, true
			}
		}
	}
}

// fillCache refills an empty cache bin for classIdx, trying a partial
// superblock before carving a fresh one. Precondition: bin.count == 0.
// Postcondition: 0 < bin.count <= sizeClasses[classIdx].cacheBlockNum
// (a freshly carved superblock's blockNum equals cacheBlockNum, and a
// claimed partial never holds more blocks than a whole superblock).
func fillCache(a *Arena, classIdx int32, bin *cacheBin) bool {
	if head, count, ok := mallocFromPartial(a, classIdx); ok {
		bin.fill(head, count)
		return true
	}
	if head, count, ok := mallocFromNewSB(a, classIdx); ok {
		bin.fill(head, count)
		return true
	}
	return false
}

// flushCache drains bin to empty, returning its blocks to their
// owning descriptors one same-superblock run at a time. A full drain
// (rather than trimming down to some target count) lets fillCache's
// bin.count == 0 precondition hold unconditionally on the next miss,
// whether flushCache was triggered by cache overflow or by a Cache's
// Release.
func flushCache(a *Arena, classIdx int32, bin *cacheBin) {
	sc := a.sizeClasses[classIdx]
	bs := uintptr(sc.blockSize)

	for bin.count > 0 {
		runHead := bin.head
		info, ok := a.pageMap.get(runHead)
		assertInvariant(ok, "flush_cache: cached block not found in page map")
		if !ok {
			return
		}
		d := info.desc
		lo := d.superBlock
		hi := d.superBlock + uintptr(sc.superblockSize)

		runTail := runHead
		runLen := uint32(1)
		next := *(*uintptr)(unsafe.Pointer(runTail))
		for next != 0 && next >= lo && next < hi {
			runTail = next
			runLen++
			next = *(*uintptr)(unsafe.Pointer(runTail))
		}

		bin.head = next
		bin.count -= runLen

		idx := uint32((runHead - lo) / bs)

		for {
			old := d.anchor.load()

			var priorHead uintptr
			if old.state != asFull {
				priorHead = lo + uintptr(old.avail)*bs
			}
			*(*uintptr)(unsafe.Pointer(runTail)) = priorHead

			newState := old.state
			if old.state == asFull {
				newState = asPartial
			}
			newCount := old.count + runLen
			if newCount == sc.blockNum {
				newCount = sc.blockNum - 1
				newState = asEmpty
			}

			newAnchor := anchorSnapshot{state: newState, avail: idx, count: newCount, tag: old.tag + 1}
			if !d.anchor.cas(old, newAnchor) {
				continue
			}

			switch {
			case newState == asEmpty:
				// d may still be linked on the heap's partial list (it
				// was reached via asPartial, not just popped off), so
				// it cannot be retired here without double-pushing it
				// onto the descriptor pool's free list. Unregister and
				// free its pages now; mallocFromPartial retires it
				// lazily the next time it's popped and observed EMPTY.
				a.pageMap.unregisterDesc(d.superBlock, uintptr(sc.superblockSize))
				a.pages.free(d.superBlock, uintptr(sc.superblockSize))
			case old.state == asFull:
				a.heaps[classIdx].pushPartial(d)
			}
			break
		}
	}
}

// mallocLarge serves a request bigger than the largest size class
// directly from the pages layer: one descriptor, one block, spanning
// the whole allocation.
func mallocLarge(a *Arena, size uintptr) (unsafe.Pointer, error) {
	spanBytes := alignUp(size, pageSize)
	base, err := a.pages.alloc(spanBytes)
	if err != nil {
		return nil, err
	}

	d := a.descPool.alloc()
	d.superBlock = base
	d.blockSize = uint32(spanBytes)
	d.maxCount = 1
	d.sizeClass = -1
	d.anchor.store(anchorSnapshot{state: asFull})

	a.pageMap.registerDesc(d, spanBytes)
	return unsafe.Pointer(base), nil
}

// mallocLargeAligned allocates the padded span exactly once and
// carves the aligned pointer out of it, registering a single
// descriptor over the whole span.
func mallocLargeAligned(a *Arena, align, size uintptr) (unsafe.Pointer, error) {
	reqBytes := alignUp(size, pageSize)
	spanBytes := reqBytes
	if align > pageSize {
		spanBytes = reqBytes + align - pageSize
	}

	base, err := a.pages.alloc(spanBytes)
	if err != nil {
		return nil, err
	}
	aligned := alignUp(base, align)

	d := a.descPool.alloc()
	d.superBlock = base
	d.blockSize = uint32(spanBytes)
	d.maxCount = 1
	d.sizeClass = -1
	d.anchor.store(anchorSnapshot{state: asFull})

	a.pageMap.registerDesc(d, spanBytes)
	return unsafe.Pointer(aligned), nil
}

func freeLarge(a *Arena, d *descriptor) {
	spanBytes := uintptr(d.blockSize)
	a.pageMap.unregisterDesc(d.superBlock, spanBytes)
	a.pages.free(d.superBlock, spanBytes)
	a.descPool.retire(d)
}
