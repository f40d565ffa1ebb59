package lrmalloc

import "testing"

func TestBootstrapReserveBumpAndExhaustion(t *testing.T) {
	r := newBootstrapReserve(256)

	p1 := r.allocate(64)
	if p1 == nil {
		t.Fatal("expected a non-nil allocation")
	}
	if !r.ptrInBootstrap(uintptr(p1)) {
		t.Fatal("expected allocated pointer to report ptrInBootstrap")
	}

	p2 := r.allocate(64)
	if p2 == nil || uintptr(p2) == uintptr(p1) {
		t.Fatal("expected a distinct second allocation")
	}

	if r.ptrInBootstrap(r.limit) {
		t.Fatal("address at the limit must not be considered in-bootstrap")
	}

	// Only 128 bytes remain; a request larger than that must return
	// nil rather than overrun.
	for i := 0; i < 100; i++ {
		if r.allocate(256) != nil {
			t.Fatal("expected allocation beyond remaining capacity to fail")
		}
	}
}

func TestDescriptorPoolPrewarmAndReuse(t *testing.T) {
	boot := newBootstrapReserve(4096)
	pool := newDescriptorPool(boot, 4)

	d1 := pool.alloc()
	d2 := pool.alloc()
	if d1 == d2 {
		t.Fatal("expected distinct descriptors from the prewarmed pool")
	}

	pool.retire(d1)
	d3 := pool.alloc()
	if d3 != d1 {
		t.Fatal("expected retire() to make the descriptor available for reuse")
	}
}
