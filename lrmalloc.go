package lrmalloc

import (
	"runtime"
	"sync"
	"sync/atomic"
	"unsafe"
)

// Config holds an Arena's tunables. defaultConfig supplies the
// values used by Default() and by NewArena with no options.
type Config struct {
	BootstrapReserve  uintptr
	descriptorPrewarm int
}

// Option configures an Arena at construction time.
type Option func(*Config)

// WithBootstrapReserve overrides the size of the bump-allocated
// reserve used to seed the descriptor pool.
func WithBootstrapReserve(n uintptr) Option {
	return func(c *Config) { c.BootstrapReserve = n }
}

func defaultConfig() Config {
	return Config{
		BootstrapReserve:  defaultBootstrapReserve,
		descriptorPrewarm: 64,
	}
}

// Arena bundles the process-wide allocator state — the size-class
// table, page map, per-size-class heaps, descriptor pool and
// bootstrap reserve — so an embedder can run more than one isolated
// instance (useful in tests) even though Default gives every caller
// a single shared one.
type Arena struct {
	sizeClasses [numSmallClasses]sizeClass
	heaps       [numSmallClasses]*sizeClassHeap
	descPool    *descriptorPool
	bootstrap   *bootstrapReserve
	pageMap     *pageMap
	pages       pages

	cachePool sync.Pool
}

// NewArena builds an independent allocator instance. Most callers
// should use Default() instead; NewArena exists for tests and for
// embedders that want isolation from the package-level default.
func NewArena(opts ...Option) *Arena {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	a := &Arena{
		sizeClasses: sizeClasses,
		pageMap:     newPageMap(),
		bootstrap:   newBootstrapReserve(cfg.BootstrapReserve),
	}
	a.descPool = newDescriptorPool(a.bootstrap, cfg.descriptorPrewarm)
	for i := range a.heaps {
		a.heaps[i] = newSizeClassHeap(int32(i))
	}
	a.cachePool.New = func() any { return newCache(a) }
	return a
}

// NewCache acquires an explicitly owned thread cache bin from this
// arena. Call Release when done with it.
func (a *Arena) NewCache() *Cache {
	return newCache(a)
}

func (a *Arena) acquireCache() *Cache {
	c, _ := a.cachePool.Get().(*Cache)
	return c
}

func (a *Arena) releaseCache(c *Cache) {
	a.cachePool.Put(c)
}

// Lazy, process-wide default Arena, initialised exactly once under a
// double-checked atomic flag. A tri-state flag (rather than
// sync.Once) distinguishes "not started" from "in progress"; a caller
// that observes "in progress" yields and retries until construction
// finishes. Such callers are not served from the bootstrap reserve.
const (
	initUninit uint32 = iota
	initInProgress
	initDone
)

var (
	defaultInitState atomic.Uint32
	defaultArenaPtr   atomic.Pointer[Arena]
)

// Default returns the package-level Arena, constructing it on first
// use.
func Default() *Arena {
	for {
		switch defaultInitState.Load() {
		case initDone:
			return defaultArenaPtr.Load()
		case initUninit:
			if defaultInitState.CompareAndSwap(initUninit, initInProgress) {
				a := NewArena()
				defaultArenaPtr.Store(a)
				defaultInitState.Store(initDone)
				return a
			}
		default:
			runtime.Gosched()
		}
	}
}

// Malloc returns a pointer to size contiguous usable bytes, or nil
// with ErrOutOfMemory if the pages layer can't satisfy the request.
// size == 0 returns a usable 8-byte block, never nil.
func (c *Cache) Malloc(size uintptr) (unsafe.Pointer, error) {
	if size > maxSmallBlockSize {
		return mallocLarge(c.a, size)
	}
	classIdx, _ := classIndexForSize(size) // always ok for size <= maxSmallBlockSize
	bin := &c.bins[classIdx]
	if ptr, ok := bin.pop(); ok {
		return unsafe.Pointer(ptr), nil
	}
	if !fillCache(c.a, classIdx, bin) {
		return nil, ErrOutOfMemory
	}
	ptr, _ := bin.pop() // fillCache guarantees cache.count > 0 on success
	return unsafe.Pointer(ptr), nil
}

// AlignedAlloc returns a pointer to size usable bytes aligned to
// align, which must be a power of two. A small-class block address
// is superBlock (only page-aligned, since it comes straight out of
// mmap) plus a multiple of blockSize, so that sum is automatically
// blockSize-aligned only for align <= pageSize; a block's own
// blockSize can exceed pageSize for the largest small classes, and
// such a block is still only page-aligned. Any align <= pageSize is
// therefore satisfied by an ordinary small allocation (rounding size
// up to a class whose blockSize is a multiple of align); align >
// pageSize, and requests bigger than the largest small class, take
// the large-allocation path.
func (c *Cache) AlignedAlloc(align, size uintptr) (unsafe.Pointer, error) {
	if !isPowerOfTwo(align) {
		return nil, ErrInvalidArgument
	}
	eff := alignUp(size, align)
	if eff > maxSmallBlockSize || align > pageSize {
		return mallocLargeAligned(c.a, align, size)
	}
	return c.Malloc(eff)
}

// Free releases a pointer previously returned by Malloc/AlignedAlloc
// on this (or any Cache sharing the same Arena). Freeing a pointer
// this allocator did not produce, or nil, is a silent no-op.
func (c *Cache) Free(p unsafe.Pointer) {
	if p == nil {
		return
	}
	ptr := uintptr(p)
	if c.a.bootstrap.ptrInBootstrap(ptr) {
		return // bootstrap memory is never reclaimed
	}

	info, ok := c.a.pageMap.get(ptr)
	if !ok {
		return
	}
	d := info.desc
	if d.sizeClass < 0 {
		freeLarge(c.a, d)
		return
	}

	classIdx := d.sizeClass
	bin := &c.bins[classIdx]
	bin.push(ptr)
	if bin.count > c.a.sizeClasses[classIdx].cacheBlockNum {
		flushCache(c.a, classIdx, bin)
	}
}

// Realloc resizes a previous allocation, short-circuiting when old
// and new size map to the same size class.
func (c *Cache) Realloc(p unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	if p == nil {
		return c.Malloc(size)
	}
	ptr := uintptr(p)

	if c.a.bootstrap.ptrInBootstrap(ptr) {
		// Bootstrap memory only ever backs internal descriptor-pool
		// prewarming (see descriptor.go); the public surface never
		// hands a bootstrap pointer to a caller, so this path exists
		// for interface completeness rather than a reachable user
		// flow. No prior contents to preserve: nothing to copy.
		return c.Malloc(size)
	}

	info, ok := c.a.pageMap.get(ptr)
	if !ok {
		return nil, ErrUnknownPointer
	}
	d := info.desc

	var oldBlockSize uintptr
	if d.sizeClass >= 0 {
		newClass, classOK := classIndexForSize(size)
		if classOK && newClass == d.sizeClass {
			return p, nil
		}
		oldBlockSize = uintptr(c.a.sizeClasses[d.sizeClass].blockSize)
	} else {
		oldBlockSize = uintptr(d.blockSize)
		if alignUp(size, pageSize) == oldBlockSize {
			return p, nil
		}
	}

	np, err := c.Malloc(size)
	if err != nil {
		return nil, err
	}
	copyLen := oldBlockSize
	if size < copyLen {
		copyLen = size
	}
	copyMemory(np, p, copyLen)
	c.Free(p)
	return np, nil
}

// AllocationSize reports the usable size of a live allocation:
// block_size for a small allocation, the page-rounded span for a
// large one.
func (c *Cache) AllocationSize(p unsafe.Pointer) (uintptr, error) {
	if p == nil {
		return 0, ErrUnknownPointer
	}
	ptr := uintptr(p)
	if c.a.bootstrap.ptrInBootstrap(ptr) {
		// Bootstrap allocations aren't page-mapped; report the
		// fixed word-aligned granularity bootstrap hands out.
		return unsafe.Sizeof(uintptr(0)), nil
	}
	info, ok := c.a.pageMap.get(ptr)
	if !ok {
		return 0, ErrUnknownPointer
	}
	if info.sizeClass < 0 {
		return uintptr(info.desc.blockSize), nil
	}
	return uintptr(c.a.sizeClasses[info.sizeClass].blockSize), nil
}

func copyMemory(dst, src unsafe.Pointer, n uintptr) {
	d := unsafe.Slice((*byte)(dst), int(n))
	s := unsafe.Slice((*byte)(src), int(n))
	copy(d, s)
}

// Package-level convenience surface, backed by the lazily
// constructed default Arena and a pooled Cache per call — the
// idiomatic Go substitute for implicit thread-local caching (see
// DESIGN.md's cache.go entry). Most callers that don't need an
// isolated Arena or a long-lived Cache handle should use these.

// NewCache acquires an explicitly owned Cache from the default
// Arena.
func NewCache() *Cache {
	return Default().NewCache()
}

func Malloc(size uintptr) (unsafe.Pointer, error) {
	a := Default()
	c := a.acquireCache()
	defer a.releaseCache(c)
	return c.Malloc(size)
}

func AlignedAlloc(align, size uintptr) (unsafe.Pointer, error) {
	a := Default()
	c := a.acquireCache()
	defer a.releaseCache(c)
	return c.AlignedAlloc(align, size)
}

func Free(p unsafe.Pointer) {
	a := Default()
	c := a.acquireCache()
	defer a.releaseCache(c)
	c.Free(p)
}

func Realloc(p unsafe.Pointer, size uintptr) (unsafe.Pointer, error) {
	a := Default()
	c := a.acquireCache()
	defer a.releaseCache(c)
	return c.Realloc(p, size)
}

func AllocationSize(p unsafe.Pointer) (uintptr, error) {
	a := Default()
	c := a.acquireCache()
	defer a.releaseCache(c)
	return c.AllocationSize(p)
}
