package main

import (
	"flag"

	"github.com/grendeloz/gffx/coverage"
)

func runDepth(args []string) int {
	fs := flag.NewFlagSet("depth", flag.ContinueOnError)
	var c commonArgs
	addCommonFlags(fs, &c)
	source := fs.String("s", "", "BAM, SAM, or BED file of regions to count overlaps from (required)")
	binShift := fs.Uint("bin-shift", coverage.DefaultBinShift, "spatial-binning exponent; bin size is 1<<bin-shift bases (0 selects the default)")
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
		return fatalf("depth: %v", err)
	}

	src, err := coverage.OpenRegionSource(*source)
	if err != nil {
		return fatalf("depth: %v", err)
	}
	defer src.Close()
	regions, err := coverage.ReadAll(src)
	if err != nil {
		return fatalf("depth: %v", err)
	}

	byRoot := coverage.GroupByRoot(tree, regions)
	rows, err := coverage.ComputeDepth(c.input, gof, byRoot, *binShift)
	if err != nil {
		return fatalf("depth: %v", err)
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return fatalf("depth: %v", err)
	}
	defer closeOut()
	if err := coverage.WriteDepthRows(rows, out); err != nil {
		return fatalf("depth: %v", err)
	}
	return 0
}
