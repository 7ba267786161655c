package main

import (
	"flag"
	"strings"

	"github.com/grendeloz/gffx/gffindex"
	log "github.com/sirupsen/logrus"
)

func runIndex(args []string) int {
	fs := flag.NewFlagSet("index", flag.ContinueOnError)
	input := fs.String("i", "", "input GFF3 file (required)")
	attr := fs.String("a", "", "attribute key to index (required)")
	skipTypes := fs.String("skip-types", "", "comma-separated feature types to drop entirely")
	verbose := fs.Bool("v", false, "enable verbose/debug logging")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *verbose {
		log.SetLevel(log.DebugLevel)
	}
	if *input == "" || *attr == "" {
		fs.Usage()
		return 2
	}

	var skip []string
	if *skipTypes != "" {
		skip = strings.Split(*skipTypes, ",")
	}

	stats, err := gffindex.Build(*input, *attr, skip)
	if err != nil {
		return fatalf("index: %v", err)
	}
	log.Infof("index: built %s (%d features, %d roots, %d sequences, %d attribute values)",
		*input, stats.Features, stats.Roots, stats.Sequences, stats.AttrValues)
	return 0
}
