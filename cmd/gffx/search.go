package main

import (
	"flag"
	"fmt"
	"regexp"

	"github.com/grendeloz/gffx/gffindex"
	"github.com/grendeloz/gffx/gffwriter"
	"github.com/grendeloz/gffx/query"
	"github.com/grendeloz/gffx/selector"
	log "github.com/sirupsen/logrus"
)

func loadSearchIndex(input string) (*query.Index, error) {
	if err := gffindex.CheckFilesExist(input); err != nil {
		return nil, err
	}
	fts, err := gffindex.LoadFts(input)
	if err != nil {
		return nil, err
	}
	atn, err := gffindex.LoadAtn(input)
	if err != nil {
		return nil, err
	}
	a2f, err := gffindex.LoadA2f(input)
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
	return &query.Index{Fts: fts, Atn: atn, A2f: a2f, Prt: prt, Gof: gof}, nil
}

func runSearch(args []string) int {
	fs := flag.NewFlagSet("search", flag.ContinueOnError)
	var c commonArgs
	addCommonFlags(fs, &c)
	attrVal := fs.String("a", "", "attribute value to match exactly")
	attrFile := fs.String("A", "", "file of attribute values to match exactly, one per line")
	asRegex := fs.Bool("r", false, "treat -a as a regular expression instead of an exact match")
	sel := fs.String("m", "", "selector expression op:key:pattern, e.g. re:gene_name:^BRCA (alternative to -a/-A/-r)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c.setupLogging()
	c.setupWorkerPool()
	if c.input == "" || (*attrVal == "" && *attrFile == "" && *sel == "") {
		fs.Usage()
		return 2
	}
	if *asRegex && *attrFile != "" {
		return fatalf("search: -r applies only to -a, not -A")
	}

	idx, err := loadSearchIndex(c.input)
	if err != nil {
		return fatalf("search: %v", err)
	}

	var matchFn func(string) bool
	if *sel != "" {
		matchFn, err = buildMatcherFromSelector(*sel, idx.Atn.Key)
	} else {
		matchFn, err = buildMatcher(*attrVal, *attrFile, *asRegex)
	}
	if err != nil {
		return fatalf("search: %v", err)
	}
	res, err := query.SearchByAttribute(idx, matchFn)
	if err != nil {
		return fatalf("search: %v", err)
	}

	out, closeOut, err := c.openOutput()
	if err != nil {
		return fatalf("search: %v", err)
	}
	defer closeOut()

	if c.fullModel {
		if err := gffwriter.WriteBlocks(c.input, res.Blocks, out); err != nil {
			return fatalf("search: %v", err)
		}
		return 0
	}

	fidToStringID := func(fid uint32) string {
		if int(fid) < len(idx.Fts.IDs) {
			return idx.Fts.IDs[fid]
		}
		return ""
	}
	for _, h := range res.Hits {
		fmt.Fprint(out, query.MatchComment(h, fidToStringID))
	}
	opts := gffwriter.FilterOptions{KeepIDs: res.KeepIDSet(), AllowedTypes: c.allowedTypes()}
	if err := gffwriter.WriteFiltered(c.input, res.Blocks, opts, out); err != nil {
		return fatalf("search: %v", err)
	}
	return 0
}

// buildMatcher builds the value -> bool predicate SearchByAttribute uses: an
// exact-set membership test for -a/-A, or a compiled regex's MatchString for
// -a -r.
func buildMatcher(val, file string, asRegex bool) (func(string) bool, error) {
	if asRegex {
		re, err := regexp.Compile(val)
		if err != nil {
			return nil, fmt.Errorf("compiling regex %q: %w", val, err)
		}
		return re.MatchString, nil
	}

	set := make(map[string]bool)
	if val != "" {
		set[val] = true
	}
	if file != "" {
		ids, err := readIDsFile(file)
		if err != nil {
			return nil, err
		}
		for _, v := range ids {
			set[v] = true
		}
	}
	return func(s string) bool { return set[s] }, nil
}

// buildMatcherFromSelector parses an op:key:pattern expression and builds
// the matching predicate: "eq" for an exact match, "re" for a regex. Since
// an index only ever tracks one attribute key, a selector naming a
// different key still runs (there's nothing else to match against) but
// logs a warning, since it's almost certainly a typo.
func buildMatcherFromSelector(expr, indexedKey string) (func(string) bool, error) {
	sel, err := selector.NewFromString(expr)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if sel.Subject != indexedKey {
		log.Warnf("search: selector key %q does not match this index's attribute %q", sel.Subject, indexedKey)
	}
	switch sel.Operation {
	case "eq":
		return func(s string) bool { return s == sel.Pattern }, nil
	case "re":
		re, err := regexp.Compile(sel.Pattern)
		if err != nil {
			return nil, fmt.Errorf("search: compiling selector pattern %q: %w", sel.Pattern, err)
		}
		return re.MatchString, nil
	default:
		return nil, fmt.Errorf("search: selector operation %q must be \"eq\" or \"re\"", sel.Operation)
	}
}
