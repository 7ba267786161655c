package query

import (
	"fmt"

	"github.com/grendeloz/gffx/gffindex"
	"github.com/grendeloz/gffx/gffwriter"
	log "github.com/sirupsen/logrus"
)

// SearchHit records which attribute value and feature matched, for the
// provenance comment line search prepends to filtered output.
type SearchHit struct {
	AttrValue string
	Fid       uint32
	RootID    string
}

// SearchResult mirrors ExtractResult but also carries the per-root hits
// needed to annotate filtered output with "# match attribute: ..." lines.
type SearchResult struct {
	Blocks  []gffwriter.Block
	KeepIDs map[string][]string
	Hits    []SearchHit
}

// SearchByAttribute matches each value against .atn's tracked attribute
// values using matchFn (exact-set membership, or a compiled regex's
// MatchString), maps surviving AIDs to FIDs via .a2f's reverse map, then
// resolves and blocks like ExtractByNames.
func SearchByAttribute(idx *Index, matchFn func(string) bool) (*SearchResult, error) {
	if idx.Atn == nil || idx.A2f == nil || idx.Prt == nil || idx.Gof == nil || idx.Fts == nil {
		return nil, fmt.Errorf("query.SearchByAttribute: index missing .atn/.a2f/.prt/.gof/.fts")
	}

	var fids []uint32
	var matchedValues []uint32 // parallel to fids: the AID index into idx.Atn.Values
	matchedAny := false
	for aid, val := range idx.Atn.Values {
		if !matchFn(val) {
			continue
		}
		matchedAny = true
		for _, fid := range idx.A2f.FIDsForAID(uint32(aid)) {
			fids = append(fids, fid)
			matchedValues = append(matchedValues, uint32(aid))
		}
	}
	if !matchedAny {
		return nil, fmt.Errorf("query.SearchByAttribute: no attributes matched")
	}
	if len(fids) == 0 {
		return nil, fmt.Errorf("query.SearchByAttribute: attribute(s) matched but no features reference them")
	}

	roots := gffindex.ResolveRoots(idx.Prt.Parent, fids)
	for i, r := range roots {
		if r == gffindex.MaxU32 {
			log.Warnf("query.SearchByAttribute: feature id %d has an invalid parent chain, skipping", fids[i])
		}
	}
	deduped := gffindex.DedupeRoots(roots)
	if len(deduped) == 0 {
		return nil, fmt.Errorf("query.SearchByAttribute: all matched features had invalid parent chains")
	}

	recs := idx.Gof.RootsToOffsets(deduped)
	blocks := make([]gffwriter.Block, len(recs))
	for i, r := range recs {
		blocks[i] = gffwriter.Block{Start: r.Start, End: r.End}
	}

	keep := make(map[string][]string)
	var hits []SearchHit
	for i, fid := range fids {
		r := roots[i]
		if r == gffindex.MaxU32 {
			continue
		}
		rootID := idx.Fts.IDs[r]
		keep[rootID] = append(keep[rootID], idx.Fts.IDs[fid])
		hits = append(hits, SearchHit{
			AttrValue: idx.Atn.Values[matchedValues[i]],
			Fid:       fid,
			RootID:    rootID,
		})
	}

	return &SearchResult{Blocks: blocks, KeepIDs: keep, Hits: hits}, nil
}

// KeepIDSet flattens a SearchResult's per-root keep map into a single set.
func (r *SearchResult) KeepIDSet() map[string]bool {
	out := make(map[string]bool)
	for _, ids := range r.KeepIDs {
		for _, id := range ids {
			out[id] = true
		}
	}
	return out
}

// MatchComment formats one provenance line for a search hit: "# match
// attribute: VALUE (via feature_id=ID in model=ROOT)", where ID is the
// matched feature's string ID and ROOT its root's string ID. The search
// subcommand writes one such line per hit, all ahead of the filtered
// output.
func MatchComment(h SearchHit, fidToStringID func(uint32) string) string {
	return fmt.Sprintf("# match attribute: %s (via feature_id=%s in model=%s)\n",
		h.AttrValue, fidToStringID(h.Fid), h.RootID)
}
