package lrmalloc

import "testing"

func TestAnchorPackRoundTrip(t *testing.T) {
	cases := []anchorSnapshot{
		{state: asEmpty, avail: 0, count: 0, tag: 0},
		{state: asFull, avail: 64, count: 0, tag: 7},
		{state: asPartial, avail: 12, count: 3, tag: 1<<20 - 1},
		{state: asPartial, avail: 1<<21 - 1, count: 1<<21 - 1, tag: 42},
	}
	for _, s := range cases {
		got := unpackAnchor(packAnchor(s))
		if got != s {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, s)
		}
	}
}

func TestAnchorWordCAS(t *testing.T) {
	var a anchorWord
	a.store(anchorSnapshot{state: asFull, avail: 10, count: 0, tag: 1})

	old := a.load()
	if old.state != asFull || old.avail != 10 {
		t.Fatalf("unexpected initial load: %+v", old)
	}

	newState := anchorSnapshot{state: asPartial, avail: 3, count: 5, tag: old.tag + 1}
	if !a.cas(old, newState) {
		t.Fatal("expected CAS against current value to succeed")
	}
	if a.cas(old, newState) {
		t.Fatal("expected CAS against stale value to fail")
	}

	got := a.load()
	if got != newState {
		t.Fatalf("load after cas = %+v, want %+v", got, newState)
	}
}
