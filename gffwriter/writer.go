// Package gffwriter assembles byte-exact GFF output from a memory-mapped
// source file and a list of root blocks, writing with batched vectored
// I/O when the destination is an *os.File (a regular file or stdout) and
// falling back to sequential buffered writes for any other io.Writer.
package gffwriter

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/edsrzf/mmap-go"
	"golang.org/x/sys/unix"
)

// Block is a half-open byte range in the source GFF file belonging to one
// root's subtree.
type Block struct {
	Start, End uint64
}

// maxIOV is a conservative per-syscall vectored-write batch size.
const maxIOV = 1024

// WriteBlocks writes the byte-exact union of blocks from the source GFF
// file to w, after sorting and merging overlapping/adjacent ranges. When w
// is an *os.File (including os.Stdout) it uses batched vectored writes
// (golang.org/x/sys/unix.Writev); otherwise it falls back to sequential
// buffered writes of each merged slice.
func WriteBlocks(gffPath string, blocks []Block, w io.Writer) error {
	f, err := os.Open(gffPath)
	if err != nil {
		return fmt.Errorf("gffwriter.WriteBlocks: open %s: %w", gffPath, err)
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return fmt.Errorf("gffwriter.WriteBlocks: mmap %s: %w", gffPath, err)
	}
	defer m.Unmap()
	data := []byte(m)

	merged := mergeBlocks(blocks, uint64(len(data)))

	slices := make([][]byte, 0, len(merged))
	for _, b := range merged {
		slices = append(slices, data[b.Start:b.End])
	}

	if file, ok := w.(*os.File); ok {
		return writeVectoredBatches(file, slices)
	}
	bw := bufio.NewWriterSize(w, 1<<20)
	for _, s := range slices {
		if _, err := bw.Write(s); err != nil {
			return fmt.Errorf("gffwriter.WriteBlocks: %w", err)
		}
	}
	return bw.Flush()
}

// mergeBlocks sorts blocks by Start and merges overlapping or adjacent
// ranges into disjoint ranges; a merged range that ends past fileLen is
// dropped, not truncated.
func mergeBlocks(blocks []Block, fileLen uint64) []Block {
	if len(blocks) == 0 {
		return nil
	}
	sorted := make([]Block, len(blocks))
	copy(sorted, blocks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var merged []Block
	cs, ce := sorted[0].Start, sorted[0].End
	for _, b := range sorted[1:] {
		if b.Start <= ce {
			if b.End > ce {
				ce = b.End
			}
		} else {
			if cs < ce {
				merged = append(merged, Block{cs, ce})
			}
			cs, ce = b.Start, b.End
		}
	}
	if cs < ce {
		merged = append(merged, Block{cs, ce})
	}

	out := merged[:0:0]
	for _, b := range merged {
		if b.Start >= b.End || b.End > fileLen {
			continue
		}
		out = append(out, b)
	}
	return out
}

// writeVectoredBatches writes slices to f in batches of at most maxIOV,
// handling partial writes by advancing within the first unfinished slice
// and falling back to sequential writes for the remainder of that batch.
func writeVectoredBatches(f *os.File, slices [][]byte) error {
	bw := bufio.NewWriterSize(f, 1<<20)
	// Vectored writes bypass bufio, so flush anything already buffered
	// (there should be none at this point, but keep the contract honest).
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("gffwriter.writeVectoredBatches: %w", err)
	}

	for base := 0; base < len(slices); {
		end := base + maxIOV
		if end > len(slices) {
			end = len(slices)
		}
		batch := slices[base:end]

		nw, err := writevAll(f, batch)
		if err != nil {
			return fmt.Errorf("gffwriter.writeVectoredBatches: %w", err)
		}

		i := 0
		remaining := nw
		for i < len(batch) && remaining >= uint64(len(batch[i])) {
			remaining -= uint64(len(batch[i]))
			i++
		}
		if i < len(batch) && remaining > 0 {
			if err := writeAll(f, batch[i][remaining:]); err != nil {
				return fmt.Errorf("gffwriter.writeVectoredBatches: %w", err)
			}
			i++
		}
		for _, s := range batch[i:] {
			if err := writeAll(f, s); err != nil {
				return fmt.Errorf("gffwriter.writeVectoredBatches: %w", err)
			}
		}

		base = end
	}
	return nil
}

// writevAll issues one writev syscall over the batch and returns the
// number of bytes written. A short write is the caller's responsibility
// to handle; writev itself is not retried here.
func writevAll(f *os.File, batch [][]byte) (uint64, error) {
	iovs := make([][]byte, len(batch))
	copy(iovs, batch)
	n, err := unix.Writev(int(f.Fd()), iovs)
	if n < 0 {
		n = 0
	}
	return uint64(n), err
}

func writeAll(f *os.File, b []byte) error {
	for len(b) > 0 {
		n, err := f.Write(b)
		if err != nil {
			return err
		}
		b = b[n:]
	}
	return nil
}
