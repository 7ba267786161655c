// Package coverage implements the region -> root grouping shared by the
// coverage and depth subcommands, plus their respective per-root
// aggregations: breadth/fraction (coverage) and overlap counts (depth).
package coverage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
)

// Region is a half-open interval on a named sequence, as read from an
// alignment or interval file.
type Region struct {
	Seqid      string
	Start, End uint32
}

// RegionSource yields mapped-read or interval regions one at a time. This
// is the out-of-scope "BAM/SAM/CRAM record decoding" external
// collaborator from spec.md §1: callers only ever see (seqid,start,end)
// tuples.
type RegionSource interface {
	// Next returns the next region, or io.EOF when exhausted.
	Next() (Region, error)
	Close() error
}

// ErrUnsupportedFormat is returned for alignment formats this build
// cannot decode.
var ErrUnsupportedFormat = errors.New("coverage: unsupported alignment format")

// OpenRegionSource dispatches on file extension: ".bam" -> BAM, ".sam" ->
// SAM, ".cram" -> unsupported (no CRAM decoder is available), anything
// else -> BED.
func OpenRegionSource(path string) (RegionSource, error) {
	switch {
	case strings.HasSuffix(path, ".bam"):
		return newBAMSource(path)
	case strings.HasSuffix(path, ".sam"):
		return newSAMSource(path)
	case strings.HasSuffix(path, ".cram"):
		return nil, fmt.Errorf("coverage.OpenRegionSource: %s: %w (no CRAM decoder in this build)", path, ErrUnsupportedFormat)
	default:
		return newBEDSource(path)
	}
}

// bedSource reads BED's first three fields per line.
type bedSource struct {
	f  *os.File
	sc *bufio.Scanner
}

func newBEDSource(path string) (*bedSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("coverage.newBEDSource: %w", err)
	}
	return &bedSource{f: f, sc: bufio.NewScanner(f)}, nil
}

func (s *bedSource) Next() (Region, error) {
	for s.sc.Scan() {
		line := strings.TrimSpace(s.sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		start, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return Region{}, fmt.Errorf("coverage.bedSource: start %q: %w", fields[1], err)
		}
		end, err := strconv.ParseUint(fields[2], 10, 32)
		if err != nil {
			return Region{}, fmt.Errorf("coverage.bedSource: end %q: %w", fields[2], err)
		}
		return Region{Seqid: fields[0], Start: uint32(start), End: uint32(end)}, nil
	}
	if err := s.sc.Err(); err != nil {
		return Region{}, err
	}
	return Region{}, io.EOF
}

func (s *bedSource) Close() error { return s.f.Close() }

// bamSource reads mapped reads sequentially from a BAM file.
type bamSource struct {
	f *os.File
	r *bam.Reader
}

func newBAMSource(path string) (*bamSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("coverage.newBAMSource: %w", err)
	}
	r, err := bam.NewReader(f, 0)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("coverage.newBAMSource: %w", err)
	}
	return &bamSource{f: f, r: r}, nil
}

func (s *bamSource) Next() (Region, error) {
	for {
		rec, err := s.r.Read()
		if err != nil {
			return Region{}, err
		}
		if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil {
			continue
		}
		start := clampToU32(rec.Start())
		end := clampToU32(rec.End())
		return Region{Seqid: rec.Ref.Name(), Start: start, End: end}, nil
	}
}

func (s *bamSource) Close() error {
	return s.f.Close()
}

// samSource reads mapped reads sequentially from a SAM text file.
type samSource struct {
	f *os.File
	r *sam.Reader
}

func newSAMSource(path string) (*samSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("coverage.newSAMSource: %w", err)
	}
	r, err := sam.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("coverage.newSAMSource: %w", err)
	}
	return &samSource{f: f, r: r}, nil
}

func (s *samSource) Next() (Region, error) {
	for {
		rec, err := s.r.Read()
		if err != nil {
			return Region{}, err
		}
		if rec.Flags&sam.Unmapped != 0 || rec.Ref == nil {
			continue
		}
		start := clampToU32(rec.Start())
		end := clampToU32(rec.End())
		return Region{Seqid: rec.Ref.Name(), Start: start, End: end}, nil
	}
}

func (s *samSource) Close() error {
	return s.f.Close()
}

func clampToU32(v int) uint32 {
	if v < 0 {
		return 0
	}
	if int64(v) > int64(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(v)
}

// ReadAll drains a RegionSource into a slice, for callers (like the batch
// region->root grouping step) that need the whole set at once.
func ReadAll(src RegionSource) ([]Region, error) {
	var out []Region
	for {
		r, err := src.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
}
