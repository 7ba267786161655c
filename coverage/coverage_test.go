package coverage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grendeloz/gffx/gffindex"
)

const covTestGff = `chr1	.	exon	101	150	.	+	.	ID=e1
`

func buildCovIndex(t *testing.T) (*gffindex.Gof, *gffindex.TreeIndex, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gff3")
	if err := os.WriteFile(path, []byte(covTestGff), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := gffindex.Build(path, "none", nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	gof, err := gffindex.LoadGof(path)
	if err != nil {
		t.Fatalf("LoadGof: %v", err)
	}
	sqs, err := gffindex.LoadSqs(path)
	if err != nil {
		t.Fatalf("LoadSqs: %v", err)
	}
	tree, err := gffindex.LoadTreeIndex(path, sqs)
	if err != nil {
		t.Fatalf("LoadTreeIndex: %v", err)
	}
	return gof, tree, path
}

func TestComputeBreadthMatchesScenario(t *testing.T) {
	gof, tree, path := buildCovIndex(t)
	// e1=[100,150) on chr1; BED region chr1 120 140 (already half-open).
	regions := []Region{{Seqid: "chr1", Start: 120, End: 140}}
	byRoot := GroupByRoot(tree, regions)

	rows, err := ComputeBreadth(path, gof, byRoot)
	if err != nil {
		t.Fatalf("ComputeBreadth: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("want 1 row, got %d: %+v", len(rows), rows)
	}
	r := rows[0]
	if r.ID != "e1" || r.Seqid != "chr1" || r.Start != 100 || r.End != 150 {
		t.Fatalf("unexpected row: %+v", r)
	}
	if r.Breadth != 20 {
		t.Fatalf("want breadth 20, got %d", r.Breadth)
	}
	if r.Fraction < 0.3999 || r.Fraction > 0.4001 {
		t.Fatalf("want fraction ~0.4, got %f", r.Fraction)
	}
}

func TestComputeDepthMatchesScenario(t *testing.T) {
	// Feature e1=[100,200) overlapped by two of three regions.
	gff := "chr1\t.\texon\t101\t200\t.\t+\t.\tID=e1\n"
	path := filepath.Join(t.TempDir(), "test.gff3")
	if err := os.WriteFile(path, []byte(gff), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := gffindex.Build(path, "none", nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	gof, err := gffindex.LoadGof(path)
	if err != nil {
		t.Fatalf("LoadGof: %v", err)
	}
	sqs, err := gffindex.LoadSqs(path)
	if err != nil {
		t.Fatalf("LoadSqs: %v", err)
	}
	tree, err := gffindex.LoadTreeIndex(path, sqs)
	if err != nil {
		t.Fatalf("LoadTreeIndex: %v", err)
	}

	regions := []Region{
		{Seqid: "chr1", Start: 90, End: 110},
		{Seqid: "chr1", Start: 150, End: 160},
		{Seqid: "chr1", Start: 300, End: 400},
	}
	byRoot := GroupByRoot(tree, regions)
	rows, err := ComputeDepth(path, gof, byRoot, DefaultBinShift)
	if err != nil {
		t.Fatalf("ComputeDepth: %v", err)
	}
	if len(rows) != 1 || rows[0].ID != "e1" {
		t.Fatalf("want 1 row for e1, got %+v", rows)
	}
	if rows[0].Depth != 2 {
		t.Fatalf("want depth 2, got %d", rows[0].Depth)
	}
}

func TestMergeSpansAndUnionLength(t *testing.T) {
	spans := MergeSpans([]Span{{10, 20}, {15, 25}, {30, 40}})
	if len(spans) != 2 {
		t.Fatalf("want 2 merged spans, got %+v", spans)
	}
	if UnionLength(spans) != 25 {
		t.Fatalf("want union length 25, got %d", UnionLength(spans))
	}
}
