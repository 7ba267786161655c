package main

import (
	"flag"
	"math/rand"
	"sort"
	"time"

	"github.com/grendeloz/gffx/gffindex"
	"github.com/grendeloz/gffx/gffwriter"
)

// runSample prints N root feature models from a built index, for
// eyeballing its contents without designing a real query.
func runSample(args []string) int {
	fs := flag.NewFlagSet("sample", flag.ContinueOnError)
	var c commonArgs
	addCommonFlags(fs, &c)
	n := fs.Int("n", 5, "number of root feature models to sample")
	random := fs.Bool("random", false, "sample randomly instead of evenly across the file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c.setupLogging()
	c.setupWorkerPool()
	if c.input == "" || *n <= 0 {
		fs.Usage()
		return 2
	}

	if err := gffindex.CheckFilesExist(c.input); err != nil {
		return fatalf("sample: %v", err)
	}
	gof, err := gffindex.LoadGof(c.input)
	if err != nil {
		return fatalf("sample: %v", err)
	}
	if len(gof.Records) == 0 {
		return fatalf("sample: %s has no indexed root features", c.input)
	}

	picks := sampleIndices(len(gof.Records), *n, *random)
	blocks := make([]gffwriter.Block, len(picks))
	for i, p := range picks {
		blocks[i] = gffwriter.Block{Start: gof.Records[p].Start, End: gof.Records[p].End}
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return fatalf("sample: %v", err)
	}
	defer closeOut()
	if err := gffwriter.WriteBlocks(c.input, blocks, out); err != nil {
		return fatalf("sample: %v", err)
	}
	return 0
}

// sampleIndices picks n indices in [0,total): evenly spaced by default, or a
// random subset (without replacement) when random is set. Indices are
// returned sorted so whole-model output preserves file order.
func sampleIndices(total, n int, random bool) []int {
	if n > total {
		n = total
	}
	var picks []int
	if random {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		perm := rng.Perm(total)
		picks = append(picks, perm[:n]...)
	} else {
		for i := 0; i < n; i++ {
			picks = append(picks, i*total/n)
		}
	}
	sort.Ints(picks)
	return picks
}
