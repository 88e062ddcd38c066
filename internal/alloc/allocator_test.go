package alloc

import "testing"

func TestAllocAppends(t *testing.T) {
	a := New(48)

	first := a.Alloc(100)
	second := a.Alloc(20)
	if first != 48 || second != 148 {
		t.Fatalf("addresses = %d, %d; want 48, 148", first, second)
	}
	if a.EOFAddr() != 168 {
		t.Errorf("EOFAddr = %d, want 168", a.EOFAddr())
	}
}

func TestAllocZeroSize(t *testing.T) {
	a := New(10)
	if addr := a.Alloc(0); addr != 10 {
		t.Errorf("Alloc(0) = %d, want 10", addr)
	}
	if s := a.Stats(); s.Allocations != 0 {
		t.Errorf("zero-size request counted: %+v", s)
	}
}

func TestReleaseTracksBytes(t *testing.T) {
	a := New(0)
	addr := a.Alloc(64)
	a.Alloc(32)
	a.Release(addr, 64)
	a.Release(1<<40, 8) // past EOF, ignored

	s := a.Stats()
	if s.Allocations != 2 || s.BytesAlloc != 96 || s.BytesReleased != 64 {
		t.Errorf("Stats = %+v", s)
	}
}
