package query

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/grendeloz/gffx/gffindex"
)

const queryTestGff = `chr1	.	gene	101	200	.	+	.	ID=g1;gene_name=BRCA1
chr1	.	mRNA	101	200	.	+	.	ID=m1;Parent=g1
chr1	.	exon	101	150	.	+	.	ID=e1;Parent=m1
chr1	.	exon	160	200	.	+	.	ID=e2;Parent=m1
chr1	.	gene	300	400	.	+	.	ID=g2;gene_name=TP53
`

func buildTestIndex(t *testing.T) (*Index, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gff3")
	if err := os.WriteFile(path, []byte(queryTestGff), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := gffindex.Build(path, "gene_name", nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	fts, err := gffindex.LoadFts(path)
	if err != nil {
		t.Fatalf("LoadFts: %v", err)
	}
	sqs, err := gffindex.LoadSqs(path)
	if err != nil {
		t.Fatalf("LoadSqs: %v", err)
	}
	atn, err := gffindex.LoadAtn(path)
	if err != nil {
		t.Fatalf("LoadAtn: %v", err)
	}
	a2f, err := gffindex.LoadA2f(path)
	if err != nil {
		t.Fatalf("LoadA2f: %v", err)
	}
	prt, err := gffindex.LoadPrt(path)
	if err != nil {
		t.Fatalf("LoadPrt: %v", err)
	}
	gof, err := gffindex.LoadGof(path)
	if err != nil {
		t.Fatalf("LoadGof: %v", err)
	}
	tree, err := gffindex.LoadTreeIndex(path, sqs)
	if err != nil {
		t.Fatalf("LoadTreeIndex: %v", err)
	}
	gbi, err := gffindex.LoadGbi(path)
	if err != nil {
		t.Fatalf("LoadGbi: %v", err)
	}

	return &Index{Fts: fts, Sqs: sqs, Atn: atn, A2f: a2f, Prt: prt, Gof: gof, Tree: tree, Gbi: gbi}, path
}

func TestExtractFullModel(t *testing.T) {
	idx, _ := buildTestIndex(t)
	res, err := ExtractByNames(idx, []string{"g1"})
	if err != nil {
		t.Fatalf("ExtractByNames: %v", err)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("want 1 block for g1, got %d", len(res.Blocks))
	}
}

func TestExtractFeatureOnlyKeepSet(t *testing.T) {
	idx, _ := buildTestIndex(t)
	res, err := ExtractByNames(idx, []string{"e1"})
	if err != nil {
		t.Fatalf("ExtractByNames: %v", err)
	}
	keep := res.KeepIDSet()
	if !keep["e1"] || len(keep) != 1 {
		t.Fatalf("want keep set {e1}, got %v", keep)
	}
}

func TestExtractMissingNameIsWarningNotFatal(t *testing.T) {
	idx, _ := buildTestIndex(t)
	res, err := ExtractByNames(idx, []string{"g1", "nonexistent"})
	if err != nil {
		t.Fatalf("ExtractByNames: %v", err)
	}
	if len(res.Missing) != 1 || res.Missing[0] != "nonexistent" {
		t.Fatalf("want missing=[nonexistent], got %v", res.Missing)
	}
}

func TestSearchExactMatch(t *testing.T) {
	idx, _ := buildTestIndex(t)
	res, err := SearchByAttribute(idx, func(v string) bool { return v == "BRCA1" })
	if err != nil {
		t.Fatalf("SearchByAttribute: %v", err)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("want 1 block for BRCA1 match, got %d", len(res.Blocks))
	}
}

func TestSearchRegexMatch(t *testing.T) {
	idx, _ := buildTestIndex(t)
	re := regexp.MustCompile("TP5.")
	res, err := SearchByAttribute(idx, re.MatchString)
	if err != nil {
		t.Fatalf("SearchByAttribute: %v", err)
	}
	if len(res.Blocks) != 1 {
		t.Fatalf("want 1 block for TP5. match, got %d", len(res.Blocks))
	}
}

func TestSearchNoMatchIsFatal(t *testing.T) {
	idx, _ := buildTestIndex(t)
	_, err := SearchByAttribute(idx, func(v string) bool { return false })
	if err == nil {
		t.Fatal("want error when no attributes matched")
	}
}

func TestIntersectOverlapMode(t *testing.T) {
	idx, _ := buildTestIndex(t)
	region, err := ParseRegion("chr1:150-350")
	if err != nil {
		t.Fatalf("ParseRegion: %v", err)
	}
	res, err := Intersect(idx, []Region{region}, Overlap, false)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if len(res.Blocks) != 2 {
		t.Fatalf("want 2 roots under overlap mode, got %d", len(res.Blocks))
	}
}

func TestIntersectContainedMode(t *testing.T) {
	idx, _ := buildTestIndex(t)
	region, err := ParseRegion("chr1:150-350")
	if err != nil {
		t.Fatalf("ParseRegion: %v", err)
	}
	res, err := Intersect(idx, []Region{region}, Contained, false)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if len(res.Blocks) != 0 {
		t.Fatalf("want 0 roots under contained mode (neither g1 nor g2 fits inside [149,350)), got %d", len(res.Blocks))
	}
}

func TestIntersectContainsRegionMode(t *testing.T) {
	idx, _ := buildTestIndex(t)
	region, err := ParseRegion("chr1:150-350")
	if err != nil {
		t.Fatalf("ParseRegion: %v", err)
	}
	res, err := Intersect(idx, []Region{region}, ContainsRegion, false)
	if err != nil {
		t.Fatalf("Intersect: %v", err)
	}
	if len(res.Blocks) != 0 {
		t.Fatalf("want 0 roots under contains_region mode, got %d", len(res.Blocks))
	}
}
