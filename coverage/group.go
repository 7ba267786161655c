package coverage

import (
	"sort"

	"github.com/grendeloz/gffx/gffindex"
)

// GroupByRoot implements the shared region -> root grouping step: for
// each region, interval-tree-query its SID, then insert (start,end) into
// by_root[root_fid] once per region (regions deduped within themselves,
// not across regions — a region overlapping a root twice through two
// different intervals still contributes only one interval per hit).
func GroupByRoot(tree *gffindex.TreeIndex, regions []Region) map[uint32][]Span {
	byRoot := make(map[uint32][]Span)
	for _, r := range regions {
		sid, ok := tree.Seqs.SID(r.Seqid)
		if !ok {
			continue
		}
		seenInRegion := make(map[uint32]bool)
		for _, iv := range tree.Trees[sid].QueryRange(r.Start, r.End) {
			if seenInRegion[iv.RootFid] {
				continue
			}
			seenInRegion[iv.RootFid] = true
			byRoot[iv.RootFid] = append(byRoot[iv.RootFid], Span{Start: r.Start, End: r.End})
		}
	}
	return byRoot
}

// Span is a half-open interval, used both for input regions and for
// merged coverage intervals.
type Span struct {
	Start, End uint32
}

// MergeSpans sorts and merges overlapping/adjacent spans into disjoint
// spans.
func MergeSpans(spans []Span) []Span {
	if len(spans) == 0 {
		return nil
	}
	sorted := make([]Span, len(spans))
	copy(sorted, spans)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var out []Span
	cs, ce := sorted[0].Start, sorted[0].End
	for _, s := range sorted[1:] {
		if s.Start <= ce {
			if s.End > ce {
				ce = s.End
			}
		} else {
			out = append(out, Span{cs, ce})
			cs, ce = s.Start, s.End
		}
	}
	out = append(out, Span{cs, ce})
	return out
}

// UnionLength returns the total length of the union of a set of spans
// (assumed already disjoint, as returned by MergeSpans).
func UnionLength(spans []Span) uint64 {
	var total uint64
	for _, s := range spans {
		if s.End > s.Start {
			total += uint64(s.End - s.Start)
		}
	}
	return total
}
