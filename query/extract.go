// Package query implements the extract, search, and intersect
// subcommands: composing the loaded artifacts, the resolver, and the GFF
// writer to turn a feature-name, attribute-value, or genomic-region
// request into output blocks.
package query

import (
	"fmt"

	"github.com/grendeloz/gffx/gffindex"
	"github.com/grendeloz/gffx/gffwriter"
	log "github.com/sirupsen/logrus"
)

// Index bundles the artifacts a query needs loaded. Callers load only
// what their subcommand requires (e.g. extract needs no .atn/.a2f).
type Index struct {
	Fts  *gffindex.Fts
	Sqs  *gffindex.Sqs
	Atn  *gffindex.Atn
	A2f  *gffindex.A2f
	Prt  *gffindex.Prt
	Gof  *gffindex.Gof
	Tree *gffindex.TreeIndex
	// Gbi is optional: nil when the index predates the gene-bin artifact,
	// in which case Intersect falls back to querying the tree directly.
	Gbi *gffindex.Gbi
}

// ExtractResult reports what extract resolved, for CLI-level warnings.
type ExtractResult struct {
	Missing      []string
	InvalidRoots int
	Blocks       []gffwriter.Block
	KeepIDs      map[string][]string // root's string ID -> string IDs of the matched features under that root, for filtered mode
}

// ExtractByNames resolves each name in names to a FID via .fts, walks the
// resolver to its root, dedupes roots, and maps them to GFF byte blocks.
func ExtractByNames(idx *Index, names []string) (*ExtractResult, error) {
	if idx.Fts == nil || idx.Prt == nil || idx.Gof == nil {
		return nil, fmt.Errorf("query.ExtractByNames: index missing .fts/.prt/.gof")
	}

	fids, missing := idx.Fts.MapNamesToFIDs(names)
	for _, m := range missing {
		log.Warnf("query.ExtractByNames: feature %q not found", m)
	}
	if len(fids) == 0 {
		return nil, fmt.Errorf("query.ExtractByNames: no feature names matched")
	}

	roots := gffindex.ResolveRoots(idx.Prt.Parent, fids)
	invalid := 0
	for i, r := range roots {
		if r == gffindex.MaxU32 {
			invalid++
			log.Warnf("query.ExtractByNames: %q has an invalid parent chain, skipping", idx.Fts.IDs[fids[i]])
		}
	}
	deduped := gffindex.DedupeRoots(roots)
	if len(deduped) == 0 {
		return nil, fmt.Errorf("query.ExtractByNames: all matched features had invalid parent chains")
	}

	recs := idx.Gof.RootsToOffsets(deduped)
	blocks := make([]gffwriter.Block, len(recs))
	for i, r := range recs {
		blocks[i] = gffwriter.Block{Start: r.Start, End: r.End}
	}

	// Build per-root keep sets: for filtered mode, keep the matched string
	// IDs that fall under each requested root.
	keep := make(map[string][]string)
	for i, fid := range fids {
		r := roots[i]
		if r == gffindex.MaxU32 {
			continue
		}
		rootID := idx.Fts.IDs[r]
		keep[rootID] = append(keep[rootID], idx.Fts.IDs[fid])
	}

	return &ExtractResult{
		Missing:      missing,
		InvalidRoots: invalid,
		Blocks:       blocks,
		KeepIDs:      keep,
	}, nil
}

// KeepIDSet flattens an ExtractResult's per-root keep map into a single
// set, for callers that write one filtered stream across all blocks.
func (r *ExtractResult) KeepIDSet() map[string]bool {
	out := make(map[string]bool)
	for _, ids := range r.KeepIDs {
		for _, id := range ids {
			out[id] = true
		}
	}
	return out
}
