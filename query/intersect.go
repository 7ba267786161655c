package query

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/grendeloz/gffx/gffindex"
	"github.com/grendeloz/gffx/gffwriter"
	"github.com/grendeloz/gffx/itree"
)

// OverlapMode selects which of the three region/feature relationships
// intersect keeps. All three are independently selectable per the CLI
// contract; none is a no-op stub.
type OverlapMode int

const (
	// Overlap keeps any feature overlapping the region at all.
	Overlap OverlapMode = iota
	// Contained keeps features fully contained within the region.
	Contained
	// ContainsRegion keeps features that fully contain the region.
	ContainsRegion
)

// Region is a half-open genomic interval on a named sequence.
type Region struct {
	Seqid      string
	Start, End uint32
}

// ParseRegion parses "chr:start-end" (1-based inclusive, as typed on the
// CLI) into a half-open 0-based Region.
func ParseRegion(s string) (Region, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return Region{}, fmt.Errorf("query.ParseRegion: %q: expected CHR:START-END", s)
	}
	se := strings.SplitN(parts[1], "-", 2)
	if len(se) != 2 {
		return Region{}, fmt.Errorf("query.ParseRegion: %q: expected CHR:START-END", s)
	}
	start, err := strconv.ParseUint(se[0], 10, 32)
	if err != nil {
		return Region{}, fmt.Errorf("query.ParseRegion: start %q: %w", se[0], err)
	}
	end, err := strconv.ParseUint(se[1], 10, 32)
	if err != nil {
		return Region{}, fmt.Errorf("query.ParseRegion: end %q: %w", se[1], err)
	}
	if start == 0 || end < start {
		return Region{}, fmt.Errorf("query.ParseRegion: %q: invalid 1-based range", s)
	}
	return Region{Seqid: parts[0], Start: uint32(start - 1), End: uint32(end)}, nil
}

// ParseBedFile reads a BED file's first three tab/space-separated fields
// per line (already half-open) into Regions.
func ParseBedFile(path string) ([]Region, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("query.ParseBedFile: %w", err)
	}
	defer f.Close()

	var regions []Region
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		start, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("query.ParseBedFile: %s: start %q: %w", path, fields[1], err)
		}
		end, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return nil, fmt.Errorf("query.ParseBedFile: %s: end %q: %w", path, fields[2], err)
		}
		regions = append(regions, Region{Seqid: fields[0], Start: uint32(start), End: uint32(end)})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("query.ParseBedFile: %w", err)
	}
	return regions, nil
}

// IntersectResult carries the resolved blocks and, for each matched root,
// the SID of the sequence it lies on.
type IntersectResult struct {
	Blocks    []gffwriter.Block
	ByRootSid map[uint32]uint32 // root fid -> sid, for per-line filtering
}

// Intersect buckets regions by SID, queries each SID's interval tree,
// keeps hits consistent with mode, and maps surviving roots to blocks.
// Per spec.md's REDESIGN FLAGS, all three modes are honored here (unlike
// some historical query paths that accepted but ignored contained /
// contains_region).
func Intersect(idx *Index, regions []Region, mode OverlapMode, invert bool) (*IntersectResult, error) {
	if idx.Tree == nil || idx.Gof == nil {
		return nil, fmt.Errorf("query.Intersect: index missing .rit/.rix/.gof")
	}

	bySid := make(map[uint32][]Region)
	for _, r := range regions {
		sid, ok := idx.Tree.Seqs.SID(r.Seqid)
		if !ok {
			continue
		}
		bySid[sid] = append(bySid[sid], r)
	}

	var roots []uint32
	rootSid := make(map[uint32]uint32)
	for sid, rs := range bySid {
		tree := idx.Tree.Trees[sid]
		for _, r := range rs {
			if !idx.Gbi.MayOverlap(sid, r.Start, r.End) {
				// Fast-reject: the gene-bin index says no root interval
				// touches this region's bins at all, so skip the tree
				// query entirely. Absent/partial .gbi always returns true.
				continue
			}
			hits := tree.QueryRange(r.Start, r.End)
			for _, iv := range hits {
				if !modeMatches(mode, r, iv) {
					continue
				}
				roots = append(roots, iv.RootFid)
				rootSid[iv.RootFid] = sid
			}
		}
	}

	if invert {
		roots = invertRoots(idx, bySid, roots)
	}

	deduped := gffindex.DedupeRoots(roots)
	recs := idx.Gof.RootsToOffsets(deduped)
	blocks := make([]gffwriter.Block, len(recs))
	for i, r := range recs {
		blocks[i] = gffwriter.Block{Start: r.Start, End: r.End}
		rootSid[r.Fid] = r.Sid
	}

	return &IntersectResult{Blocks: blocks, ByRootSid: rootSid}, nil
}

func modeMatches(mode OverlapMode, r Region, iv itree.Interval) bool {
	switch mode {
	case Contained:
		return iv.Start >= r.Start && iv.End <= r.End
	case ContainsRegion:
		return iv.Start <= r.Start && iv.End >= r.End
	default: // Overlap
		return iv.Start < r.End && iv.End > r.Start
	}
}

// invertRoots returns every root present in the index's tree for the
// queried SIDs that was NOT already matched, implementing --invert.
func invertRoots(idx *Index, bySid map[uint32][]Region, matched []uint32) []uint32 {
	matchedSet := make(map[uint32]bool, len(matched))
	for _, r := range matched {
		matchedSet[r] = true
	}
	var out []uint32
	for sid := range bySid {
		tree := idx.Tree.Trees[sid]
		// A full-range query recovers every interval the tree holds.
		for _, iv := range tree.QueryRange(0, ^uint32(0)) {
			if !matchedSet[iv.RootFid] {
				out = append(out, iv.RootFid)
			}
		}
	}
	return out
}

// FilterLineByRegions reports whether a feature's half-open span on seqid
// overlaps any of the query regions on the same seqid, for intersect's
// per-coordinate filtered output mode.
func FilterLineByRegions(seqid string, start, end uint32, regions []Region) bool {
	for _, r := range regions {
		if r.Seqid == seqid && start < r.End && end > r.Start {
			return true
		}
	}
	return false
}
