package lrmalloc

import "errors"

// Error kinds the public surface can report. free and AllocationSize
// never panic; OutOfMemory and UnknownPointer are the only failure
// modes a caller can observe from the fast paths.
var (
	ErrOutOfMemory     = errors.New("lrmalloc: out of memory")
	ErrInvalidArgument = errors.New("lrmalloc: invalid argument")
	ErrUnknownPointer  = errors.New("lrmalloc: unknown pointer")
)

// debugAssertions gates internal invariant checks that are too costly
// for the fast path in a release build. Flip to true when chasing a
// corruption bug.
const debugAssertions = false

func assertInvariant(cond bool, msg string) {
	if debugAssertions && !cond {
		panic("lrmalloc: invariant violated: " + msg)
	}
}
