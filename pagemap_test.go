package lrmalloc

import "testing"

func TestPageMapRegisterUnregister(t *testing.T) {
	pm := newPageMap()
	d := &descriptor{superBlock: 0x10_0000_0000, sizeClass: 2}
	span := uintptr(4 * pageSize)
	d.superBlock = alignUp(d.superBlock, pageSize)

	pm.registerDesc(d, span)
	for off := uintptr(0); off < span; off += pageSize {
		info, ok := pm.get(d.superBlock + off)
		if !ok {
			t.Fatalf("offset %d: expected page-map hit", off)
		}
		if info.desc != d || info.sizeClass != 2 {
			t.Fatalf("offset %d: unexpected page info %+v", off, info)
		}
	}
	// An address one page past the span must miss.
	if _, ok := pm.get(d.superBlock + span); ok {
		t.Fatal("expected miss just past the registered span")
	}

	pm.unregisterDesc(d.superBlock, span)
	for off := uintptr(0); off < span; off += pageSize {
		if _, ok := pm.get(d.superBlock + off); ok {
			t.Fatalf("offset %d: expected miss after unregister", off)
		}
	}
}

func TestPageMapLazyL2Growth(t *testing.T) {
	pm := newPageMap()
	// Two addresses far enough apart to land in different L1 buckets.
	a := uintptr(0x0000_1000)
	b := a + uintptr(pmL2Size)*pageSize*4

	d1 := &descriptor{superBlock: a, sizeClass: 0}
	d2 := &descriptor{superBlock: b, sizeClass: 1}
	pm.registerDesc(d1, pageSize)
	pm.registerDesc(d2, pageSize)

	info1, ok := pm.get(a)
	if !ok || info1.desc != d1 {
		t.Fatalf("lookup for a failed: %+v, %v", info1, ok)
	}
	info2, ok := pm.get(b)
	if !ok || info2.desc != d2 {
		t.Fatalf("lookup for b failed: %+v, %v", info2, ok)
	}
}
