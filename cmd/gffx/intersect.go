package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/grendeloz/gffx/gff3"
	"github.com/grendeloz/gffx/gffindex"
	"github.com/grendeloz/gffx/gffwriter"
	"github.com/grendeloz/gffx/query"
)

func loadIntersectIndex(input string) (*query.Index, error) {
	if err := gffindex.CheckFilesExist(input); err != nil {
		return nil, err
	}
	sqs, err := gffindex.LoadSqs(input)
	if err != nil {
		return nil, err
	}
	tree, err := gffindex.LoadTreeIndex(input, sqs)
	if err != nil {
		return nil, err
	}
	gof, err := gffindex.LoadGof(input)
	if err != nil {
		return nil, err
	}
	gbi, err := gffindex.LoadGbi(input)
	if err != nil {
		return nil, err
	}
	return &query.Index{Sqs: sqs, Tree: tree, Gof: gof, Gbi: gbi}, nil
}

func runIntersect(args []string) int {
	fs := flag.NewFlagSet("intersect", flag.ContinueOnError)
	var c commonArgs
	addCommonFlags(fs, &c)
	region := fs.String("r", "", "single region, CHR:START-END (1-based inclusive)")
	bed := fs.String("b", "", "BED file of regions")
	contained := fs.Bool("c", false, "keep only features fully contained within the region")
	containsRegion := fs.Bool("C", false, "keep only features that fully contain the region")
	overlap := fs.Bool("O", false, "keep any feature overlapping the region at all (default)")
	invert := fs.Bool("I", false, "invert the match: keep features that did NOT match")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c.setupLogging()
	c.setupWorkerPool()
	if c.input == "" || (*region == "" && *bed == "") {
		fs.Usage()
		return 2
	}
	if boolCount(*contained, *containsRegion, *overlap) > 1 {
		return fatalf("intersect: only one of -c, -C, -O may be given")
	}

	mode := query.Overlap
	switch {
	case *contained:
		mode = query.Contained
	case *containsRegion:
		mode = query.ContainsRegion
	}

	var regions []query.Region
	if *region != "" {
		r, err := query.ParseRegion(*region)
		if err != nil {
			return fatalf("intersect: %v", err)
		}
		regions = append(regions, r)
	}
	if *bed != "" {
		fromBed, err := query.ParseBedFile(*bed)
		if err != nil {
			return fatalf("intersect: %v", err)
		}
		regions = append(regions, fromBed...)
	}

	idx, err := loadIntersectIndex(c.input)
	if err != nil {
		return fatalf("intersect: %v", err)
	}
	res, err := query.Intersect(idx, regions, mode, *invert)
	if err != nil {
		return fatalf("intersect: %v", err)
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return fatalf("intersect: %v", err)
	}
	defer closeOut()

	if c.fullModel {
		if err := gffwriter.WriteBlocks(c.input, res.Blocks, out); err != nil {
			return fatalf("intersect: %v", err)
		}
		return 0
	}
	// Inverted matches are the roots that did NOT match any region under
	// the selected mode (under the default overlap mode, roots that overlap
	// no region at all, whose lines per-line region filtering would all
	// discard); inverted output keeps every line of the resolved blocks and
	// only applies --types.
	filterRegions := regions
	if *invert {
		filterRegions = nil
	}
	if err := writeIntersectFiltered(c.input, res.Blocks, filterRegions, c.allowedTypes(), out); err != nil {
		return fatalf("intersect: %v", err)
	}
	return 0
}

func boolCount(bs ...bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}

// writeIntersectFiltered re-tests each line's own coordinates against the
// query regions rather than an ID set: per spec.md §4.G, intersect's
// feature-only mode filters by position, not by attribute membership.
func writeIntersectFiltered(gffPath string, blocks []gffwriter.Block, regions []query.Region, allowedTypes map[string]bool, w *os.File) error {
	f, err := os.Open(gffPath)
	if err != nil {
		return fmt.Errorf("intersect: open %s: %w", gffPath, err)
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("intersect: mmap %s: %w", gffPath, err)
	}
	defer m.Unmap()
	data := []byte(m)

	sorted := make([]gffwriter.Block, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	bw := bufio.NewWriterSize(w, 1<<20)
	for _, b := range sorted {
		if b.Start >= b.End || b.End > uint64(len(data)) {
			continue
		}
		for _, line := range strings.Split(string(data[b.Start:b.End]), "\n") {
			line = strings.TrimSuffix(line, "\r")
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			rec, _, _, err := gff3.ParseRawRecord(line, "")
			if err != nil {
				continue
			}
			if allowedTypes != nil && !allowedTypes[rec.Type] {
				continue
			}
			if regions != nil && !query.FilterLineByRegions(rec.SeqId, uint32(rec.Start), uint32(rec.End), regions) {
				continue
			}
			if _, err := bw.WriteString(line); err != nil {
				return err
			}
			if err := bw.WriteByte('\n'); err != nil {
				return err
			}
		}
	}
	return bw.Flush()
}
