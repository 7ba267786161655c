package main

import (
	"flag"

	"github.com/grendeloz/gffx/coverage"
	"github.com/grendeloz/gffx/gffindex"
)

func loadRegionIndex(input string) (*gffindex.Gof, *gffindex.TreeIndex, error) {
	if err := gffindex.CheckFilesExist(input); err != nil {
		return nil, nil, err
	}
	sqs, err := gffindex.LoadSqs(input)
	if err != nil {
		return nil, nil, err
	}
	tree, err := gffindex.LoadTreeIndex(input, sqs)
	if err != nil {
		return nil, nil, err
	}
	gof, err := gffindex.LoadGof(input)
	if err != nil {
		return nil, nil, err
	}
	return gof, tree, nil
}

func runCoverage(args []string) int {
	fs := flag.NewFlagSet("coverage", flag.ContinueOnError)
	var c commonArgs
	addCommonFlags(fs, &c)
	source := fs.String("s", "", "BAM, SAM, or BED file of regions to cover with (required)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c.setupLogging()
	c.setupWorkerPool()
	if c.input == "" || *source == "" {
		fs.Usage()
		return 2
	}

	gof, tree, err := loadRegionIndex(c.input)
	if err != nil {
		return fatalf("coverage: %v", err)
	}

	src, err := coverage.OpenRegionSource(*source)
	if err != nil {
		return fatalf("coverage: %v", err)
	}
	defer src.Close()
	regions, err := coverage.ReadAll(src)
	if err != nil {
		return fatalf("coverage: %v", err)
	}

	byRoot := coverage.GroupByRoot(tree, regions)
	rows, err := coverage.ComputeBreadth(c.input, gof, byRoot)
	if err != nil {
		return fatalf("coverage: %v", err)
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return fatalf("coverage: %v", err)
	}
	defer closeOut()
	if err := coverage.WriteBreadthRows(rows, out); err != nil {
		return fatalf("coverage: %v", err)
	}
	return 0
}
