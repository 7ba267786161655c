package gffindex

import (
	"os"
	"path/filepath"
	"testing"
)

// g1 and g2 sit in separate 65536-base bins (GbiBinShift=16), leaving the
// bin around position 5000 empty for the fast-reject assertion below.
const gbiTestGff = `chr1	.	gene	70001	70100	.	+	.	ID=g1
chr1	.	gene	140001	140100	.	+	.	ID=g2
`

func TestBuildWritesLoadableGbi(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.gff3")
	if err := os.WriteFile(path, []byte(gbiTestGff), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, err := Build(path, "none", nil); err != nil {
		t.Fatalf("Build: %v", err)
	}

	gbi, err := LoadGbi(path)
	if err != nil {
		t.Fatalf("LoadGbi: %v", err)
	}
	if gbi == nil {
		t.Fatal("want a non-nil Gbi after Build")
	}
	if !gbi.MayOverlap(0, 70000, 70100) {
		t.Fatal("want MayOverlap true for g1's own span")
	}
	if gbi.MayOverlap(0, 5000, 5001) {
		t.Fatal("want MayOverlap false for a region with no recorded root nearby")
	}
}

func TestLoadGbiMissingFileReturnsNil(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.gff3")
	gbi, err := LoadGbi(path)
	if err != nil {
		t.Fatalf("LoadGbi: %v", err)
	}
	if gbi != nil {
		t.Fatal("want nil Gbi for a missing .gbi file")
	}
}

func TestNilGbiMayOverlapAlwaysTrue(t *testing.T) {
	var gbi *Gbi
	if !gbi.MayOverlap(0, 0, 100) {
		t.Fatal("want nil *Gbi to always report MayOverlap true (graceful degrade)")
	}
}
