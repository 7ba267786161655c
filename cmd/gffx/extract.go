package main

import (
	"flag"

	"github.com/grendeloz/gffx/gffindex"
	"github.com/grendeloz/gffx/gffwriter"
	"github.com/grendeloz/gffx/query"
)

func loadExtractIndex(input string) (*query.Index, error) {
	if err := gffindex.CheckFilesExist(input); err != nil {
		return nil, err
	}
	fts, err := gffindex.LoadFts(input)
	if err != nil {
		return nil, err
	}
	prt, err := gffindex.LoadPrt(input)
	if err != nil {
		return nil, err
	}
	gof, err := gffindex.LoadGof(input)
	if err != nil {
		return nil, err
	}
	return &query.Index{Fts: fts, Prt: prt, Gof: gof}, nil
}

func runExtract(args []string) int {
	fs := flag.NewFlagSet("extract", flag.ContinueOnError)
	var c commonArgs
	addCommonFlags(fs, &c)
	featureID := fs.String("e", "", "feature ID to extract")
	featureFile := fs.String("E", "", "file of feature IDs to extract, one per line")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c.setupLogging()
	c.setupWorkerPool()
	if c.input == "" || (*featureID == "" && *featureFile == "") {
		fs.Usage()
		return 2
	}

	var names []string
	if *featureID != "" {
		names = append(names, *featureID)
	}
	if *featureFile != "" {
		fromFile, err := readIDsFile(*featureFile)
		if err != nil {
			return fatalf("extract: %v", err)
		}
		names = append(names, fromFile...)
	}

	idx, err := loadExtractIndex(c.input)
	if err != nil {
		return fatalf("extract: %v", err)
	}
	res, err := query.ExtractByNames(idx, names)
	if err != nil {
		return fatalf("extract: %v", err)
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return fatalf("extract: %v", err)
	}
	defer closeOut()

	if c.fullModel {
		if err := gffwriter.WriteBlocks(c.input, res.Blocks, out); err != nil {
			return fatalf("extract: %v", err)
		}
		return 0
	}

	opts := gffwriter.FilterOptions{KeepIDs: res.KeepIDSet(), AllowedTypes: c.allowedTypes()}
	if err := gffwriter.WriteFiltered(c.input, res.Blocks, opts, out); err != nil {
		return fatalf("extract: %v", err)
	}
	return 0
}
