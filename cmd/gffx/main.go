// gffx builds and queries a memory-mappable index over a GFF3 annotation
// file: extract or search for feature models by name or attribute value,
// intersect against genomic regions, and compute coverage/depth against
// alignment or interval inputs.
package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

var subcommands = map[string]func([]string) int{
	"index":     runIndex,
	"extract":   runExtract,
	"search":    runSearch,
	"intersect": runIntersect,
	"coverage":  runCoverage,
	"depth":     runDepth,
	"sample":    runSample,
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: gffx <command> [options]

Commands:
  index      build the on-disk index for a GFF3 file
  extract    extract feature model(s) by ID
  search     find feature model(s) by attribute value
  intersect  find feature model(s) overlapping genomic region(s)
  coverage   compute per-feature breadth/fraction against a BAM or BED
  depth      compute per-feature overlap counts against a BAM or BED
  sample     print a handful of feature models from an index

Run "gffx <command> -h" for command-specific options.
`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	cmd, ok := subcommands[os.Args[1]]
	if !ok {
		usage()
		os.Exit(2)
	}
	os.Exit(cmd(os.Args[2:]))
}

func fatalf(format string, args ...interface{}) int {
	log.Errorf(format, args...)
	return 1
}
