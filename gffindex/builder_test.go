package gffindex

import (
	"os"
	"path/filepath"
	"testing"
)

const testGff = `##gff-version 3
chr1	.	gene	101	200	.	+	.	ID=g1;gene_name=BRCA1
chr1	.	mRNA	101	200	.	+	.	ID=m1;Parent=g1
chr1	.	exon	101	150	.	+	.	ID=e1;Parent=m1
chr1	.	exon	160	200	.	+	.	ID=e2;Parent=m1
chr1	.	gene	300	400	.	+	.	ID=g2;gene_name=TP53
`

func writeTestGff(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "test.gff3")
	if err := os.WriteFile(path, []byte(testGff), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func TestBuildProducesAllArtifacts(t *testing.T) {
	path := writeTestGff(t)
	stats, err := Build(path, "gene_name", nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.Features != 5 {
		t.Fatalf("want 5 features, got %d", stats.Features)
	}
	if stats.Roots != 2 {
		t.Fatalf("want 2 roots, got %d", stats.Roots)
	}
	if stats.AttrValues != 2 {
		t.Fatalf("want 2 attribute values, got %d", stats.AttrValues)
	}

	if err := CheckFilesExist(path); err != nil {
		t.Fatalf("CheckFilesExist: %v", err)
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	path := writeTestGff(t)
	if _, err := Build(path, "gene_name", nil); err != nil {
		t.Fatalf("first Build: %v", err)
	}
	first := make(map[string][]byte)
	for _, suf := range Suffixes {
		b, err := os.ReadFile(Suffix(path, suf))
		if err != nil {
			t.Fatalf("reading %s: %v", suf, err)
		}
		first[suf] = b
	}

	if _, err := Build(path, "gene_name", nil); err != nil {
		t.Fatalf("second Build: %v", err)
	}
	for _, suf := range Suffixes {
		b, err := os.ReadFile(Suffix(path, suf))
		if err != nil {
			t.Fatalf("re-reading %s: %v", suf, err)
		}
		if string(b) != string(first[suf]) {
			t.Fatalf("artifact %s changed between identical builds", suf)
		}
	}
}

func TestBuildSkipTypes(t *testing.T) {
	path := writeTestGff(t)
	stats, err := Build(path, "gene_name", []string{"exon"})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if stats.Features != 3 {
		t.Fatalf("want 3 features after skipping exon, got %d", stats.Features)
	}
	if stats.SkippedLines != 2 {
		t.Fatalf("want 2 skipped lines, got %d", stats.SkippedLines)
	}
}

func TestLoadersRoundTrip(t *testing.T) {
	path := writeTestGff(t)
	if _, err := Build(path, "gene_name", nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	fts, err := LoadFts(path)
	if err != nil {
		t.Fatalf("LoadFts: %v", err)
	}
	g1, ok := fts.FID("g1")
	if !ok {
		t.Fatalf("expected g1 in .fts")
	}

	prt, err := LoadPrt(path)
	if err != nil {
		t.Fatalf("LoadPrt: %v", err)
	}
	roots := ResolveRoots(prt.Parent, []uint32{g1})
	if roots[0] != g1 {
		t.Fatalf("g1 should resolve to itself, got %d", roots[0])
	}

	gof, err := LoadGof(path)
	if err != nil {
		t.Fatalf("LoadGof: %v", err)
	}
	recs := gof.RootsToOffsets(DedupeRoots(roots))
	if len(recs) != 1 {
		t.Fatalf("want 1 gof record for g1's block, got %d", len(recs))
	}
	block := string([]byte(testGff)[recs[0].Start:recs[0].End])
	wantLines := 4 // gene, mRNA, 2 exons
	gotLines := 0
	for _, c := range block {
		if c == '\n' {
			gotLines++
		}
	}
	if gotLines != wantLines {
		t.Fatalf("want %d lines in g1's block, got %d:\n%s", wantLines, gotLines, block)
	}
}

func TestLoadTreeIndexQueriesRootIntervals(t *testing.T) {
	path := writeTestGff(t)
	if _, err := Build(path, "gene_name", nil); err != nil {
		t.Fatalf("Build: %v", err)
	}
	ti, err := LoadTreeIndex(path, nil)
	if err != nil {
		t.Fatalf("LoadTreeIndex: %v", err)
	}
	sid, ok := ti.Seqs.SID("chr1")
	if !ok {
		t.Fatalf("expected chr1 in .sqs")
	}
	hits := ti.Trees[sid].QueryRange(150, 350)
	if len(hits) != 2 {
		t.Fatalf("want 2 root hits for [150,350), got %d: %+v", len(hits), hits)
	}
}
