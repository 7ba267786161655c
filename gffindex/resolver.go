package gffindex

import (
	"sync"

	"github.com/grendeloz/gffx/workerpool"
)

// ResolveRoots walks parent[] for every fid in fids until it reaches a
// self-parent (a root), returning the resolved root FID at the
// corresponding position. An out-of-range parent reference, or a cycle, is
// classified invalid (MaxU32) rather than erroring or looping forever —
// the on-disk invariant guarantees termination, but a corrupted or
// adversarial .prt must never hang a query.
//
// Input order is preserved. The walk parallelizes across fids when
// len(fids) > 256, across the process-wide worker pool (workerpool.Workers).
func ResolveRoots(parent []uint32, fids []uint32) []uint32 {
	if len(fids) <= 256 || workerpool.Workers() <= 1 {
		out := make([]uint32, len(fids))
		for i, fid := range fids {
			out[i] = resolveOne(parent, fid)
		}
		return out
	}

	out := make([]uint32, len(fids))
	chunks := splitWork(len(fids), workerpool.Workers())
	var wg sync.WaitGroup
	for _, c := range chunks {
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				out[i] = resolveOne(parent, fids[i])
			}
		}(c[0], c[1])
	}
	wg.Wait()
	return out
}

// resolveOne walks a single FID to its root. The step cap of len(parent)+1
// bounds a cycle's runtime and guarantees termination even on a
// corrupted .prt: a genuine chain can be at most len(parent) hops long, so
// exceeding that means a cycle exists.
func resolveOne(parent []uint32, fid uint32) uint32 {
	n := uint32(len(parent))
	if fid >= n {
		return MaxU32
	}

	visited := make(map[uint32]struct{})
	cur := fid
	steps := uint32(0)
	for {
		if cur >= n {
			return MaxU32
		}
		p := parent[cur]
		if p == cur {
			return cur
		}
		if _, seen := visited[cur]; seen {
			return MaxU32
		}
		visited[cur] = struct{}{}
		cur = p
		steps++
		if steps > n {
			return MaxU32
		}
	}
}

// DedupeRoots removes MaxU32 entries and duplicate root FIDs, preserving
// first-seen order.
func DedupeRoots(roots []uint32) []uint32 {
	seen := make(map[uint32]struct{}, len(roots))
	var out []uint32
	for _, r := range roots {
		if r == MaxU32 {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
