package lrmalloc

import "sync/atomic"

// pageInfo is what the page map stores per page: the owning
// descriptor and, redundantly but cheaply, its size-class index.
type pageInfo struct {
	desc      *descriptor
	sizeClass int32
}

const (
	pmL2Bits = 18
	pmL1Bits = 18
	pmL2Size = 1 << pmL2Bits
	pmL1Size = 1 << pmL1Bits
)

// pageMap is a two-level radix table keyed by page number, grounded
// on mheap.go's h_spans/mlookup but restructured away from a single
// flat array sized to the whole reserved arena (mheap.go's arena is
// pre-reserved at a fixed address by the runtime's own bootstrap;
// this package has no equivalent pre-reservation to piggyback on).
// The root level is allocated eagerly and is small (pmL1Size atomic
// pointers); each second-level table is allocated lazily, the first
// time a page in its range is registered, via a CAS so concurrent
// first-touches agree on one winner without a lock.
type pageMap struct {
	l1 [pmL1Size]atomic.Pointer[pageMapL2]
}

type pageMapL2 struct {
	entries [pmL2Size]atomic.Pointer[pageInfo]
}

func newPageMap() *pageMap {
	return &pageMap{}
}

func pageMapIndices(addr uintptr) (l1idx, l2idx int) {
	pn := addr >> pageShift
	l2idx = int(pn & (pmL2Size - 1))
	l1idx = int((pn >> pmL2Bits) & (pmL1Size - 1))
	return
}

func (pm *pageMap) l2For(l1idx int) *pageMapL2 {
	if l2 := pm.l1[l1idx].Load(); l2 != nil {
		return l2
	}
	fresh := &pageMapL2{}
	if pm.l1[l1idx].CompareAndSwap(nil, fresh) {
		return fresh
	}
	return pm.l1[l1idx].Load()
}

func (pm *pageMap) set(addr uintptr, info *pageInfo) {
	l1idx, l2idx := pageMapIndices(addr)
	pm.l2For(l1idx).entries[l2idx].Store(info)
}

func (pm *pageMap) get(addr uintptr) (*pageInfo, bool) {
	l1idx, l2idx := pageMapIndices(addr)
	l2 := pm.l1[l1idx].Load()
	if l2 == nil {
		return nil, false
	}
	info := l2.entries[l2idx].Load()
	if info == nil {
		return nil, false
	}
	return info, true
}

// registerDesc publishes desc for every page of a span starting at
// desc.superBlock. All pages of a single registration share one
// pageInfo value; for an aligned large allocation the returned
// pointer lands somewhere inside [superBlock, superBlock+spanBytes),
// which this per-page loop already covers without a second,
// special-cased write.
func (pm *pageMap) registerDesc(d *descriptor, spanBytes uintptr) {
	info := &pageInfo{desc: d, sizeClass: d.sizeClass}
	for off := uintptr(0); off < spanBytes; off += pageSize {
		pm.set(d.superBlock+off, info)
	}
}

func (pm *pageMap) unregisterDesc(base, spanBytes uintptr) {
	for off := uintptr(0); off < spanBytes; off += pageSize {
		pm.set(base+off, nil)
	}
}
