package lrmalloc

import "sync/atomic"

// anchorState is a descriptor's coarse occupancy summary.
type anchorState uint8

const (
	asEmpty anchorState = iota
	asPartial
	asFull
)

func (s anchorState) String() string {
	switch s {
	case asEmpty:
		return "EMPTY"
	case asPartial:
		return "PARTIAL"
	case asFull:
		return "FULL"
	default:
		return "INVALID"
	}
}

// anchorSnapshot is the unpacked view of one descriptor's atomic
// anchor word: 2-bit state, 21-bit avail, 21-bit count, 20-bit tag.
// tag is an ABA-defeating generation counter bumped on every CAS
// attempt regardless of which other field actually changed.
type anchorSnapshot struct {
	state anchorState
	avail uint32
	count uint32
	tag   uint32
}

const (
	anchorTagBits   = 20
	anchorCountBits = 21
	anchorAvailBits = 21
	anchorStateBits = 2

	anchorTagShift   = 0
	anchorCountShift = anchorTagShift + anchorTagBits
	anchorAvailShift = anchorCountShift + anchorCountBits
	anchorStateShift = anchorAvailShift + anchorAvailBits

	anchorTagMask   = uint64(1)<<anchorTagBits - 1
	anchorCountMask = uint64(1)<<anchorCountBits - 1
	anchorAvailMask = uint64(1)<<anchorAvailBits - 1
	anchorStateMask = uint64(1)<<anchorStateBits - 1
)

func packAnchor(s anchorSnapshot) uint64 {
	return uint64(s.state)&anchorStateMask<<anchorStateShift |
		uint64(s.avail)&anchorAvailMask<<anchorAvailShift |
		uint64(s.count)&anchorCountMask<<anchorCountShift |
		uint64(s.tag)&anchorTagMask<<anchorTagShift
}

func unpackAnchor(v uint64) anchorSnapshot {
	return anchorSnapshot{
		state: anchorState((v >> anchorStateShift) & anchorStateMask),
		avail: uint32((v >> anchorAvailShift) & anchorAvailMask),
		count: uint32((v >> anchorCountShift) & anchorCountMask),
		tag:   uint32((v >> anchorTagShift) & anchorTagMask),
	}
}

// anchorWord is the packed atomic word embedded in every descriptor.
type anchorWord struct {
	v atomic.Uint64
}

func (a *anchorWord) load() anchorSnapshot {
	return unpackAnchor(a.v.Load())
}

func (a *anchorWord) store(s anchorSnapshot) {
	a.v.Store(packAnchor(s))
}

// cas compares expected=old, desired=new.
func (a *anchorWord) cas(old, new anchorSnapshot) bool {
	return a.v.CompareAndSwap(packAnchor(old), packAnchor(new))
}
