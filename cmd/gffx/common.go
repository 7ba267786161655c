package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/grendeloz/gffx/workerpool"
)

// commonArgs mirrors the shared flags every query subcommand accepts:
// input path, output destination, thread budget, verbosity, a type
// restriction, and full-model vs feature-only output.
type commonArgs struct {
	input     string
	output    string
	threads   int
	verbose   bool
	types     string
	fullModel bool
}

func addCommonFlags(fs *flag.FlagSet, c *commonArgs) {
	fs.StringVar(&c.input, "i", "", "input GFF3 file (required)")
	fs.StringVar(&c.output, "o", "", "output file (stdout if omitted)")
	fs.IntVar(&c.threads, "t", 0, "thread budget (0 = available cores)")
	fs.BoolVar(&c.verbose, "v", false, "enable verbose/debug logging")
	fs.StringVar(&c.types, "T", "", "comma-separated feature types to retain")
	fs.BoolVar(&c.fullModel, "F", false, "emit whole feature models instead of matched lines only")
}

func (c *commonArgs) setupLogging() {
	if c.verbose {
		log.SetLevel(log.DebugLevel)
	} else {
		log.SetLevel(log.InfoLevel)
	}
}

// setupWorkerPool latches the process-wide worker budget from -t. It is a
// no-op if some earlier call (in this process) already set it.
func (c *commonArgs) setupWorkerPool() {
	workerpool.Init(c.threads)
}

func (c *commonArgs) allowedTypes() map[string]bool {
	if c.types == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, t := range strings.Split(c.types, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			out[t] = true
		}
	}
	return out
}

func (c *commonArgs) openOutput() (*os.File, func(), error) {
	if c.output == "" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(c.output)
	if err != nil {
		return nil, nil, fmt.Errorf("opening output %s: %w", c.output, err)
	}
	return f, func() { f.Close() }, nil
}

func readIDsFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var ids []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			ids = append(ids, line)
		}
	}
	return ids, sc.Err()
}
