package gffwriter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/grendeloz/gffx/workerpool"
)

// FilterOptions restricts filtered-mode output to a subset of lines within
// each block.
type FilterOptions struct {
	// KeepIDs, if non-nil, keeps only lines whose attribute-column
	// AttrKey value is a member of this set.
	KeepIDs map[string]bool
	// AttrKey names the attribute inspected for KeepIDs; defaults to "ID".
	AttrKey string
	// AllowedTypes, if non-nil, keeps only lines whose column-3 type is a
	// member of this set. Composes with KeepIDs.
	AllowedTypes map[string]bool
}

// WriteFiltered processes each block's lines independently (in parallel),
// dropping comments/blank lines and any line that fails AllowedTypes or
// KeepIDs, then streams the surviving lines to w in original block-start
// order.
func WriteFiltered(gffPath string, blocks []Block, opts FilterOptions, w io.Writer) error {
	f, err := os.Open(gffPath)
	if err != nil {
		return fmt.Errorf("gffwriter.WriteFiltered: open %s: %w", gffPath, err)
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("gffwriter.WriteFiltered: mmap %s: %w", gffPath, err)
	}
	defer m.Unmap()
	data := []byte(m)

	attrKey := opts.AttrKey
	if attrKey == "" {
		attrKey = "ID"
	}

	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	outputs := make([][]byte, len(sorted))
	sem := make(chan struct{}, workerpool.Workers())
	var wg sync.WaitGroup
	for i, b := range sorted {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, b Block) {
			defer wg.Done()
			defer func() { <-sem }()
			outputs[i] = filterBlock(data, b, attrKey, opts)
		}(i, b)
	}
	wg.Wait()

	bw := bufio.NewWriterSize(w, 1<<20)
	for _, out := range outputs {
		if len(out) == 0 {
			continue
		}
		if _, err := bw.Write(out); err != nil {
			return fmt.Errorf("gffwriter.WriteFiltered: %w", err)
		}
	}
	return bw.Flush()
}

func filterBlock(data []byte, b Block, attrKey string, opts FilterOptions) []byte {
	if b.Start >= b.End || b.End > uint64(len(data)) {
		return nil
	}
	var out strings.Builder
	for _, line := range strings.Split(string(data[b.Start:b.End]), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !keepLine(line, attrKey, opts) {
			continue
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	return []byte(out.String())
}

func keepLine(line, attrKey string, opts FilterOptions) bool {
	fields := strings.SplitN(line, "\t", 9)
	if len(fields) != 9 {
		return false
	}
	if opts.AllowedTypes != nil && !opts.AllowedTypes[fields[2]] {
		return false
	}
	if opts.KeepIDs == nil {
		return true
	}
	val, ok := attrValue(fields[8], attrKey)
	if !ok {
		return false
	}
	return opts.KeepIDs[val]
}

// attrValue finds key=value within a GFF3 attribute column; the value
// terminates at ';' or end of string.
func attrValue(attrs, key string) (string, bool) {
	needle := key + "="
	for _, tok := range strings.Split(attrs, ";") {
		tok = strings.TrimSpace(tok)
		if strings.HasPrefix(tok, needle) {
			return tok[len(needle):], true
		}
	}
	return "", false
}
