package gffwriter

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

const writerTestGff = `chr1	.	gene	101	200	.	+	.	ID=g1
chr1	.	mRNA	101	200	.	+	.	ID=m1;Parent=g1
chr1	.	exon	101	150	.	+	.	ID=e1;Parent=m1
chr1	.	exon	160	200	.	+	.	ID=e2;Parent=m1
chr1	.	gene	300	400	.	+	.	ID=g2
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.gff3")
	if err := os.WriteFile(path, []byte(writerTestGff), 0644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	return path
}

func lineOffsets(content string) (firstBlockEnd, secondBlockStart int) {
	idx := 0
	lines := 0
	for i, c := range content {
		if c == '\n' {
			lines++
			if lines == 4 {
				firstBlockEnd = i + 1
			}
		}
		idx = i
	}
	_ = idx
	secondBlockStart = firstBlockEnd
	return
}

func TestWriteBlocksWholeModel(t *testing.T) {
	path := writeFixture(t)
	firstEnd, secondStart := lineOffsets(writerTestGff)

	var buf bytes.Buffer
	err := WriteBlocks(path, []Block{{Start: 0, End: uint64(firstEnd)}, {Start: uint64(secondStart), End: uint64(len(writerTestGff))}}, &buf)
	if err != nil {
		t.Fatalf("WriteBlocks: %v", err)
	}
	if buf.String() != writerTestGff {
		t.Fatalf("want byte-exact output, got:\n%s", buf.String())
	}
}

func TestWriteBlocksMergesOverlapping(t *testing.T) {
	path := writeFixture(t)
	var buf bytes.Buffer
	// Two overlapping/adjacent ranges covering the whole file should merge
	// into one, not duplicate any bytes.
	err := WriteBlocks(path, []Block{{Start: 0, End: 100}, {Start: 50, End: uint64(len(writerTestGff))}}, &buf)
	if err != nil {
		t.Fatalf("WriteBlocks: %v", err)
	}
	if buf.String() != writerTestGff {
		t.Fatalf("merged output should equal whole file, got:\n%s", buf.String())
	}
}

func TestWriteFilteredByID(t *testing.T) {
	path := writeFixture(t)
	var buf bytes.Buffer
	opts := FilterOptions{KeepIDs: map[string]bool{"e1": true}}
	err := WriteFiltered(path, []Block{{Start: 0, End: uint64(len(writerTestGff))}}, opts, &buf)
	if err != nil {
		t.Fatalf("WriteFiltered: %v", err)
	}
	want := "chr1\t.\texon\t101\t150\t.\t+\t.\tID=e1;Parent=m1\n"
	if buf.String() != want {
		t.Fatalf("want %q, got %q", want, buf.String())
	}
}

func TestWriteFilteredByType(t *testing.T) {
	path := writeFixture(t)
	var buf bytes.Buffer
	opts := FilterOptions{AllowedTypes: map[string]bool{"gene": true}}
	err := WriteFiltered(path, []Block{{Start: 0, End: uint64(len(writerTestGff))}}, opts, &buf)
	if err != nil {
		t.Fatalf("WriteFiltered: %v", err)
	}
	wantLines := 2
	got := 0
	for _, b := range buf.Bytes() {
		if b == '\n' {
			got++
		}
	}
	if got != wantLines {
		t.Fatalf("want %d gene lines, got %d:\n%s", wantLines, got, buf.String())
	}
}
