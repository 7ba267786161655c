package coverage

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/grendeloz/gffx/gff3"
	"github.com/grendeloz/gffx/gffindex"
	"github.com/grendeloz/gffx/workerpool"
)

// BreadthRow is one output row: a feature's union-length overlap with the
// input regions and its fraction of the feature's own span.
type BreadthRow struct {
	ID         string
	Seqid      string
	Start, End uint32
	Breadth    uint64
	Fraction   float64
}

// ComputeBreadth computes per-feature coverage breadth and fraction for
// every root in byRoot, by parsing each root's GFF slice, sweeping its
// features (sorted by start) against the root's merged region coverage.
func ComputeBreadth(gffPath string, gof *gffindex.Gof, byRoot map[uint32][]Span) ([]BreadthRow, error) {
	f, err := os.Open(gffPath)
	if err != nil {
		return nil, fmt.Errorf("coverage.ComputeBreadth: %w", err)
	}
	defer f.Close()

	type job struct {
		root uint32
		rec  gffindex.GofRecord
	}
	var jobs []job
	for root := range byRoot {
		rec, ok := gof.FidRecord(root)
		if !ok {
			continue
		}
		jobs = append(jobs, job{root: root, rec: rec})
	}

	data, err := os.ReadFile(gffPath)
	if err != nil {
		return nil, fmt.Errorf("coverage.ComputeBreadth: %w", err)
	}

	results := make([][]BreadthRow, len(jobs))
	sem := make(chan struct{}, workerpool.Workers())
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, j job) {
			defer wg.Done()
			defer func() { <-sem }()
			merged := MergeSpans(byRoot[j.root])
			results[i] = breadthForRoot(data[j.rec.Start:j.rec.End], merged)
		}(i, j)
	}
	wg.Wait()

	// Aggregate across roots: an ID appearing under more than one root
	// (rare) sums its breadth, keeping the widest observed span.
	agg := make(map[string]*BreadthRow)
	var order []string
	for _, rows := range results {
		for _, r := range rows {
			cur, ok := agg[r.ID]
			if !ok {
				rc := r
				agg[r.ID] = &rc
				order = append(order, r.ID)
				continue
			}
			cur.Breadth += r.Breadth
			if r.Start < cur.Start {
				cur.Start = r.Start
			}
			if r.End > cur.End {
				cur.End = r.End
			}
		}
	}

	sort.Strings(order)
	out := make([]BreadthRow, 0, len(order))
	for _, id := range order {
		r := agg[id]
		if r.End > r.Start {
			r.Fraction = float64(r.Breadth) / float64(r.End-r.Start)
		}
		out = append(out, *r)
	}
	return out, nil
}

func breadthForRoot(blockData []byte, covMerged []Span) []BreadthRow {
	type feat struct {
		id         string
		seqid      string
		start, end uint32
	}
	var feats []feat
	for _, line := range strings.Split(string(blockData), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, _, _, err := gff3.ParseRawRecord(line, "")
		if err != nil || !rec.HasId {
			continue
		}
		feats = append(feats, feat{id: rec.Id, seqid: rec.SeqId, start: uint32(rec.Start), end: uint32(rec.End)})
	}
	sort.Slice(feats, func(i, j int) bool { return feats[i].start < feats[j].start })

	rows := make([]BreadthRow, 0, len(feats))
	lo := 0
	for _, ft := range feats {
		for lo < len(covMerged) && covMerged[lo].End <= ft.start {
			lo++
		}
		var breadth uint64
		for k := lo; k < len(covMerged) && covMerged[k].Start < ft.end; k++ {
			s := covMerged[k].Start
			if s < ft.start {
				s = ft.start
			}
			e := covMerged[k].End
			if e > ft.end {
				e = ft.end
			}
			if e > s {
				breadth += uint64(e - s)
			}
		}
		fraction := 0.0
		if ft.end > ft.start {
			fraction = float64(breadth) / float64(ft.end-ft.start)
		}
		rows = append(rows, BreadthRow{ID: ft.id, Seqid: ft.seqid, Start: ft.start, End: ft.end, Breadth: breadth, Fraction: fraction})
	}
	return rows
}

// WriteBreadthRows writes the coverage table: header
// "id\tchr\tstart\tend\tbreadth\tfraction", fraction formatted %.6f.
func WriteBreadthRows(rows []BreadthRow, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("id\tchr\tstart\tend\tbreadth\tfraction\n"); err != nil {
		return err
	}
	for _, r := range rows {
		line := strings.Join([]string{
			r.ID,
			r.Seqid,
			strconv.FormatUint(uint64(r.Start), 10),
			strconv.FormatUint(uint64(r.End), 10),
			strconv.FormatUint(r.Breadth, 10),
			strconv.FormatFloat(r.Fraction, 'f', 6, 64),
		}, "\t")
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
