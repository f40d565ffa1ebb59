package lrmalloc

import "sync/atomic"

// lfStack is a Treiber stack using an atomic.Pointer-to-node
// indirection rather than packing a pointer and a counter into one
// word: runtime-internal lock-free stacks can get away with
// reinterpreting a node's address as an integer across a CAS because
// that memory is never moved or reclaimed by anything but the
// runtime itself. *descriptor values here are ordinary Go-GC-managed
// memory; punning their address through a uint64 would hide them
// from the garbage collector's root scan between the load and the
// CAS, which is unsound. A generic node holds the payload next to an
// explicit link instead, and Go's non-moving, non-reusing-while-
// referenced heap gives the same ABA immunity a packed counter would
// buy, by construction: as long as a goroutine holds a live *node
// from a previous load, that exact address cannot be handed to a
// later, unrelated push, so a stale CAS can never spuriously
// succeed against a node that looks the same but isn't. The tag
// field is kept anyway as a debugging aid, not because correctness
// depends on it.
type lfStack[T any] struct {
	head atomic.Pointer[lfNode[T]]
}

type lfNode[T any] struct {
	value T
	next  *lfNode[T]
	tag   uint64
}

func newLFStack[T any]() *lfStack[T] {
	return &lfStack[T]{}
}

func (s *lfStack[T]) push(v T) {
	n := &lfNode[T]{value: v}
	for {
		old := s.head.Load()
		n.next = old
		if old != nil {
			n.tag = old.tag + 1
		}
		if s.head.CompareAndSwap(old, n) {
			return
		}
	}
}

func (s *lfStack[T]) pop() (T, bool) {
	for {
		old := s.head.Load()
		if old == nil {
			var zero T
			return zero, false
		}
		if s.head.CompareAndSwap(old, old.next) {
			return old.value, true
		}
	}
}
