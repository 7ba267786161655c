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

// DepthRow is one output row: how many distinct input regions overlapped
// a feature at least once.
type DepthRow struct {
	ID         string
	Seqid      string
	Start, End uint32
	Depth      uint64
}

// DefaultBinShift is the spatial-binning exponent used when the caller
// does not override it; bin size is 1<<BinShift bases.
const DefaultBinShift = 12

// ComputeDepth computes, per root, how many of that root's grouped
// regions overlap each feature, using spatial binning over feature spans
// to avoid an O(features*regions) scan.
func ComputeDepth(gffPath string, gof *gffindex.Gof, byRoot map[uint32][]Span, binShift uint) ([]DepthRow, error) {
	if binShift == 0 {
		binShift = DefaultBinShift
	}
	data, err := os.ReadFile(gffPath)
	if err != nil {
		return nil, fmt.Errorf("coverage.ComputeDepth: %w", err)
	}

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

	results := make([][]DepthRow, len(jobs))
	sem := make(chan struct{}, workerpool.Workers())
	var wg sync.WaitGroup
	for i, j := range jobs {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, j job) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = depthForRoot(data[j.rec.Start:j.rec.End], byRoot[j.root], binShift)
		}(i, j)
	}
	wg.Wait()

	agg := make(map[string]*DepthRow)
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
			cur.Depth += r.Depth
			if r.Start < cur.Start {
				cur.Start = r.Start
			}
			if r.End > cur.End {
				cur.End = r.End
			}
		}
	}

	sort.Strings(order)
	out := make([]DepthRow, 0, len(order))
	for _, id := range order {
		out = append(out, *agg[id])
	}
	return out, nil
}

type depthFeature struct {
	id         string
	seqid      string
	start, end uint32
}

func depthForRoot(blockData []byte, regions []Span, binShift uint) []DepthRow {
	var feats []depthFeature
	for _, line := range strings.Split(string(blockData), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		rec, _, _, err := gff3.ParseRawRecord(line, "")
		if err != nil || !rec.HasId {
			continue
		}
		feats = append(feats, depthFeature{id: rec.Id, seqid: rec.SeqId, start: uint32(rec.Start), end: uint32(rec.End)})
	}

	bins := make(map[uint32][]int) // bin -> feature indices
	binOf := func(pos uint32) uint32 { return pos >> binShift }
	for i, ft := range feats {
		for b := binOf(ft.start); b <= binOf(ft.end); b++ {
			bins[b] = append(bins[b], i)
			if ft.end == ft.start {
				break
			}
		}
	}

	depths := make([]uint64, len(feats))
	for _, r := range regions {
		touched := make(map[int]bool)
		for b := binOf(r.Start); b <= binOf(r.End); b++ {
			for _, fi := range bins[b] {
				if touched[fi] {
					continue
				}
				ft := feats[fi]
				if ft.start < r.End && ft.end > r.Start {
					touched[fi] = true
				}
			}
			if r.End == r.Start {
				break
			}
		}
		for fi := range touched {
			depths[fi]++
		}
	}

	rows := make([]DepthRow, len(feats))
	for i, ft := range feats {
		rows[i] = DepthRow{ID: ft.id, Seqid: ft.seqid, Start: ft.start, End: ft.end, Depth: depths[i]}
	}
	return rows
}

// WriteDepthRows writes the depth table: header "id\tchr\tstart\tend\tdepth".
func WriteDepthRows(rows []DepthRow, w io.Writer) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("id\tchr\tstart\tend\tdepth\n"); err != nil {
		return err
	}
	for _, r := range rows {
		line := strings.Join([]string{
			r.ID,
			r.Seqid,
			strconv.FormatUint(uint64(r.Start), 10),
			strconv.FormatUint(uint64(r.End), 10),
			strconv.FormatUint(r.Depth, 10),
		}, "\t")
		if _, err := bw.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return bw.Flush()
}
