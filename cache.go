package lrmalloc

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/cpu"
)

// cacheBin is one size class's slice of a thread cache: a singly
// linked LIFO of free blocks threaded through the first word of each
// block. Every field here is touched by exactly one goroutine at a
// time (a Cache is never shared concurrently, see Cache below), so
// the fast path — wait-free per caller, no atomics — is just
// ordinary unsynchronized field access.
type cacheBin struct {
	head  uintptr
	count uint32
}

func (b *cacheBin) push(ptr uintptr) {
	*(*uintptr)(unsafe.Pointer(ptr)) = b.head
	b.head = ptr
	b.count++
}

func (b *cacheBin) pop() (uintptr, bool) {
	if b.head == 0 {
		return 0, false
	}
	p := b.head
	b.head = *(*uintptr)(unsafe.Pointer(p))
	b.count--
	return p, true
}

func (b *cacheBin) fill(head uintptr, count uint32) {
	b.head = head
	b.count = count
}

// Cache is a thread cache: one bin per size class, bundled together.
// Go exposes no public thread-local-storage API, so a Cache is an
// explicit, caller-owned handle instead of an implicit thread-local:
// acquire one with NewCache (or let Arena.acquireCache hand you a
// pooled one via the package-level convenience functions), use it
// from one goroutine at a time, and Release it — or let the
// finalizer below catch a dropped handle — when done.
type Cache struct {
	a    *Arena
	bins [numSmallClasses]cacheBin

	_ cpu.CacheLinePad

	released bool
}

func newCache(a *Arena) *Cache {
	c := &Cache{a: a}
	runtime.SetFinalizer(c, (*Cache).finalize)
	return c
}

func (c *Cache) finalize() {
	c.release()
}

func (c *Cache) release() {
	if c.released {
		return
	}
	for i := range c.bins {
		if c.bins[i].count > 0 {
			flushCache(c.a, int32(i), &c.bins[i])
		}
	}
	c.released = true
}

// Release flushes every block still held by this cache back to its
// owning heap. Call it when a goroutine is done using an explicitly
// acquired Cache; the finalizer is a backstop for handles the caller
// drops without calling Release, since Go has no thread-termination
// hook to run code on.
func (c *Cache) Release() {
	c.release()
}
