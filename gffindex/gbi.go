package gffindex

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/grendeloz/gffx/itree"
)

// GbiBinShift sizes the gene-bin index's bins at 1<<GbiBinShift bases,
// independent of coverage's per-root feature binning (coverage.DefaultBinShift).
const GbiBinShift = 16

// GbiEntry is one root interval recorded in a gene-bin index bin.
type GbiEntry struct {
	Fid, Start, End uint32
}

// Gbi is the optional secondary gene-bin index (SUPPLEMENTED FEATURES §3):
// a coarse, power-of-two-binned spatial index over root intervals, built
// per sequence, consulted as a fast-reject ahead of the authoritative
// .rit/.rix centered interval tree. Its absence never affects correctness.
type Gbi struct {
	Bins []map[uint32][]GbiEntry // indexed by SID
}

func binOf(pos uint32) uint32 { return pos >> GbiBinShift }

// buildGbi constructs one bin map per sequence from the same per-SID root
// intervals the centered interval tree is built from.
func buildGbi(treesInput map[uint32][]itree.Interval, seqidOrder []string, seqidToNum map[string]uint32) *Gbi {
	bins := make([]map[uint32][]GbiEntry, len(seqidOrder))
	for _, seqid := range seqidOrder {
		sid := seqidToNum[seqid]
		m := make(map[uint32][]GbiEntry)
		for _, iv := range treesInput[sid] {
			lo, hi := binOf(iv.Start), binOf(iv.End)
			for b := lo; b <= hi; b++ {
				m[b] = append(m[b], GbiEntry{Fid: iv.RootFid, Start: iv.Start, End: iv.End})
				if iv.End == iv.Start {
					break
				}
			}
		}
		bins[sid] = m
	}
	return &Gbi{Bins: bins}
}

// WriteGbi serializes a Gbi as JSON next to gffPath's other artifacts.
// Unlike the required eight suffixes, .gbi is optional: an index built
// without it still works, just without the fast-reject.
func WriteGbi(gffPath string, gbi *Gbi) error {
	b, err := json.Marshal(gbi.Bins)
	if err != nil {
		return fmt.Errorf("gffindex.WriteGbi: %w", err)
	}
	if err := os.WriteFile(Suffix(gffPath, ".gbi"), b, 0644); err != nil {
		return fmt.Errorf("gffindex.WriteGbi: %w", err)
	}
	return nil
}

// LoadGbi reads an optional .gbi artifact. A missing file is not an error:
// callers should treat a nil *Gbi as "no fast-reject available" and fall
// back to querying the interval tree directly.
func LoadGbi(gffPath string) (*Gbi, error) {
	path := Suffix(gffPath, ".gbi")
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("gffindex.LoadGbi: %w", err)
	}
	var bins []map[uint32][]GbiEntry
	if err := json.Unmarshal(b, &bins); err != nil {
		return nil, fmt.Errorf("gffindex.LoadGbi: parsing %s: %w", path, err)
	}
	return &Gbi{Bins: bins}, nil
}

// MayOverlap reports whether sid's bins spanning [start,end) hold any
// recorded root interval at all. A false result is authoritative (no tree
// query needed); a true result still requires the tree query to confirm,
// since bins only bound candidates, they don't decide overlap precisely.
func (g *Gbi) MayOverlap(sid, start, end uint32) bool {
	if g == nil || int(sid) >= len(g.Bins) || g.Bins[sid] == nil {
		return true
	}
	lo, hi := binOf(start), binOf(end)
	for b := lo; b <= hi; b++ {
		if len(g.Bins[sid][b]) > 0 {
			return true
		}
		if end == start {
			break
		}
	}
	return false
}
