// Package lrmalloc implements a general-purpose, lock-free,
// size-segregated heap allocator in the LRMalloc family.
//
// Allocation requests are routed through three tiers:
//
//   - a per-goroutine/per-thread Cache holds a small LIFO of free
//     blocks per size class; acquiring a block from a non-empty
//     cache touches no atomics, and freeing one only adds the
//     page-map lookup's atomic loads.
//   - each size class owns a Heap: a lock-free stack of descriptors
//     for superblocks that are neither completely full nor completely
//     empty ("partial"). A Cache miss pops one of these, in a CAS loop
//     over the descriptor's packed Anchor word, and claims its
//     remaining free blocks.
//   - a global page map resolves any live pointer back to its owning
//     descriptor in O(1), without a per-allocation header, by indexing
//     on the page number of the pointer.
//
// Large requests (bigger than the largest size class) bypass the cache/heap
// tiers entirely and are served directly from the OS page source,
// each with a dedicated, single-block descriptor.
//
// Descriptors are pooled and never returned to the OS: a descriptor
// popped off a lock-free stack is always valid allocator-owned
// memory, which is what keeps the partial-list and descriptor-pool
// CAS loops free of the ABA problem without resorting to manual
// pointer tagging (see lfstack.go).
//
// The package never installs itself as Go's runtime allocator; it is
// an ordinary library an embedder calls into explicitly, either via
// an acquired *Cache or via the package-level convenience functions
// backed by a lazily-initialised default Arena.
package lrmalloc
