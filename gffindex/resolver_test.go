package gffindex

import "testing"

func TestResolveRootsSimpleChain(t *testing.T) {
	// 0 is its own parent (root); 1->0; 2->1.
	parent := []uint32{0, 0, 1}
	got := ResolveRoots(parent, []uint32{0, 1, 2})
	want := []uint32{0, 0, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("fid %d: want root %d, got %d", i, want[i], got[i])
		}
	}
}

func TestResolveRootsCycleIsInvalid(t *testing.T) {
	// Synthesized cycle: parent[5]=6, parent[6]=5.
	parent := make([]uint32, 7)
	for i := range parent {
		parent[i] = uint32(i)
	}
	parent[5] = 6
	parent[6] = 5

	got := ResolveRoots(parent, []uint32{5, 6})
	if got[0] != MaxU32 || got[1] != MaxU32 {
		t.Fatalf("want both cycle members invalid, got %v", got)
	}
}

func TestResolveRootsOutOfRange(t *testing.T) {
	parent := []uint32{0, 99}
	got := ResolveRoots(parent, []uint32{1})
	if got[0] != MaxU32 {
		t.Fatalf("want invalid for out-of-range parent, got %d", got[0])
	}
}

func TestResolveRootsLargeBatchParallelPath(t *testing.T) {
	n := 1000
	parent := make([]uint32, n)
	for i := range parent {
		parent[i] = 0
	}
	fids := make([]uint32, n)
	for i := range fids {
		fids[i] = uint32(i)
	}
	got := ResolveRoots(parent, fids)
	for i, r := range got {
		if r != 0 {
			t.Fatalf("fid %d: want root 0, got %d", i, r)
		}
	}
}

func TestDedupeRootsPreservesOrderAndDropsInvalid(t *testing.T) {
	got := DedupeRoots([]uint32{3, MaxU32, 1, 3, 1, 2})
	want := []uint32{3, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}
