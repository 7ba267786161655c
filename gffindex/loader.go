package gffindex

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/edsrzf/mmap-go"
	"github.com/grendeloz/gffx/itree"
	"github.com/grendeloz/gffx/workerpool"
)

// CheckFilesExist verifies every required artifact suffix is present next
// to gffPath, failing with one diagnostic listing everything missing
// rather than failing deep inside whichever loader happens to run first.
func CheckFilesExist(gffPath string) error {
	var missing []string
	for _, suf := range Suffixes {
		if _, err := os.Stat(Suffix(gffPath, suf)); err != nil {
			missing = append(missing, suf)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("gffindex.CheckFilesExist: %s: missing artifacts %s", gffPath, strings.Join(missing, ", "))
	}
	return nil
}

// Fts is the loaded .fts artifact: FID -> ID string, plus a lazily built
// reverse map ID -> FID.
type Fts struct {
	IDs []string

	once    sync.Once
	reverse map[string]uint32
}

// LoadFts memory-maps and parses the .fts artifact.
func LoadFts(gffPath string) (*Fts, error) {
	lines, err := readLinesMapped(Suffix(gffPath, ".fts"))
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadFts: %w", err)
	}
	return &Fts{IDs: lines}, nil
}

// FID returns the feature id for a string ID, and whether it was found.
// The reverse map is built on first use and shared by every later caller.
func (f *Fts) FID(id string) (uint32, bool) {
	f.once.Do(func() {
		f.reverse = make(map[string]uint32, len(f.IDs))
		for i, s := range f.IDs {
			f.reverse[s] = uint32(i)
		}
	})
	fid, ok := f.reverse[id]
	return fid, ok
}

// MapNamesToFIDs resolves a batch of string IDs, returning the resolved
// FIDs (in input order, only for found names) and the names that had no
// match.
func (f *Fts) MapNamesToFIDs(names []string) (found []uint32, missing []string) {
	for _, n := range names {
		if fid, ok := f.FID(n); ok {
			found = append(found, fid)
		} else {
			missing = append(missing, n)
		}
	}
	return found, missing
}

// Sqs is the loaded .sqs artifact: SID -> seqid string, plus the reverse
// lookup.
type Sqs struct {
	Names   []string
	bySeqid map[string]uint32
}

// LoadSqs memory-maps and parses the .sqs artifact.
func LoadSqs(gffPath string) (*Sqs, error) {
	lines, err := readLinesMapped(Suffix(gffPath, ".sqs"))
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadSqs: %w", err)
	}
	by := make(map[string]uint32, len(lines))
	for i, s := range lines {
		by[s] = uint32(i)
	}
	return &Sqs{Names: lines, bySeqid: by}, nil
}

// SID returns the sequence id for a seqid string, and whether it was found.
func (s *Sqs) SID(seqid string) (uint32, bool) {
	sid, ok := s.bySeqid[seqid]
	return sid, ok
}

// Atn is the loaded .atn artifact: the tracked attribute key and AID ->
// value string.
type Atn struct {
	Key    string
	Values []string
}

// LoadAtn memory-maps and parses the .atn artifact. It requires the
// "#attribute=KEY" header exactly once, tolerates a UTF-8 BOM, and trims
// trailing CR from each line.
func LoadAtn(gffPath string) (*Atn, error) {
	path := Suffix(gffPath, ".atn")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadAtn: %w", err)
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadAtn: mmap %s: %w", path, err)
	}
	defer m.Unmap()
	b := bytes.TrimPrefix([]byte(m), []byte{0xEF, 0xBB, 0xBF})

	lines := strings.Split(string(b), "\n")
	var key string
	var haveKey bool
	var values []string
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#attribute=") {
			if haveKey {
				return nil, fmt.Errorf("gffindex.LoadAtn: %s: duplicate #attribute= header", gffPath)
			}
			key = strings.TrimPrefix(line, "#attribute=")
			haveKey = true
			continue
		}
		if strings.HasPrefix(line, "#") {
			continue
		}
		values = append(values, line)
	}
	if !haveKey {
		return nil, fmt.Errorf("gffindex.LoadAtn: %s: missing #attribute= header", gffPath)
	}
	return &Atn{Key: key, Values: values}, nil
}

// Prt is the loaded .prt artifact: FID -> parent FID.
type Prt struct {
	Parent []uint32
}

// LoadPrt memory-maps and parses the .prt artifact.
func LoadPrt(gffPath string) (*Prt, error) {
	vals, err := readU32Array(Suffix(gffPath, ".prt"))
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadPrt: %w", err)
	}
	return &Prt{Parent: vals}, nil
}

// A2f is the loaded .a2f artifact: FID -> AID (MaxU32 = none), plus a
// lazily built reverse multimap AID -> sorted, deduped []FID.
type A2f struct {
	AID []uint32

	once    sync.Once
	reverse map[uint32][]uint32
}

// LoadA2f memory-maps and parses the .a2f artifact.
func LoadA2f(gffPath string) (*A2f, error) {
	vals, err := readU32Array(Suffix(gffPath, ".a2f"))
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadA2f: %w", err)
	}
	return &A2f{AID: vals}, nil
}

// FIDsForAID returns the sorted, deduped FIDs mapped to aid.
func (a *A2f) FIDsForAID(aid uint32) []uint32 {
	a.once.Do(func() {
		a.reverse = make(map[uint32][]uint32)
		for fid, v := range a.AID {
			if v == MaxU32 {
				continue
			}
			a.reverse[v] = append(a.reverse[v], uint32(fid))
		}
		for k := range a.reverse {
			sort.Slice(a.reverse[k], func(i, j int) bool { return a.reverse[k][i] < a.reverse[k][j] })
		}
	})
	return a.reverse[aid]
}

// GofRecord is one entry of the .gof artifact: a root's byte range in the
// source GFF file.
type GofRecord struct {
	Fid, Sid   uint32
	Start, End uint64
}

// Gof is the loaded .gof artifact, plus a lazily built FID -> record index.
type Gof struct {
	Records []GofRecord

	once  sync.Once
	index map[uint32]GofRecord
}

// LoadGof memory-maps and parses the .gof artifact.
func LoadGof(gffPath string) (*Gof, error) {
	path := Suffix(gffPath, ".gof")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadGof: %w", err)
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadGof: mmap %s: %w", path, err)
	}
	defer m.Unmap()
	data := []byte(m)
	if len(data)%GofRecordSize != 0 {
		return nil, fmt.Errorf("gffindex.LoadGof: %s: corrupted, size %d is not a multiple of %d", path, len(data), GofRecordSize)
	}
	n := len(data) / GofRecordSize
	recs := make([]GofRecord, n)
	for i := 0; i < n; i++ {
		b := data[i*GofRecordSize:]
		recs[i] = GofRecord{
			Fid:   binary.LittleEndian.Uint32(b[0:4]),
			Sid:   binary.LittleEndian.Uint32(b[4:8]),
			Start: binary.LittleEndian.Uint64(b[8:16]),
			End:   binary.LittleEndian.Uint64(b[16:24]),
		}
	}
	return &Gof{Records: recs}, nil
}

func (g *Gof) buildIndex() {
	g.once.Do(func() {
		g.index = make(map[uint32]GofRecord, len(g.Records))
		for _, r := range g.Records {
			g.index[r.Fid] = r
		}
	})
}

// FidRecord returns the .gof record for a single root FID, building the
// lazy FID->record index on first use.
func (g *Gof) FidRecord(fid uint32) (GofRecord, bool) {
	g.buildIndex()
	rec, ok := g.index[fid]
	return rec, ok
}

// RootsToOffsets resolves a batch of root FIDs to their .gof byte ranges,
// in input order, dropping any FID with no record. It parallelizes over
// large batches (len(roots) > 2048), across the process-wide worker pool
// (workerpool.Workers).
func (g *Gof) RootsToOffsets(roots []uint32) []GofRecord {
	g.buildIndex()
	if len(roots) <= 2048 || workerpool.Workers() <= 1 {
		out := make([]GofRecord, 0, len(roots))
		for _, r := range roots {
			if rec, ok := g.index[r]; ok {
				out = append(out, rec)
			}
		}
		return out
	}

	chunks := splitWork(len(roots), workerpool.Workers())
	results := make([][]GofRecord, len(chunks))
	var wg sync.WaitGroup
	for ci, c := range chunks {
		wg.Add(1)
		go func(ci int, lo, hi int) {
			defer wg.Done()
			var local []GofRecord
			for _, r := range roots[lo:hi] {
				if rec, ok := g.index[r]; ok {
					local = append(local, rec)
				}
			}
			results[ci] = local
		}(ci, c[0], c[1])
	}
	wg.Wait()

	var out []GofRecord
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}

// TreeIndex is the loaded .rit/.rix pair: one itree.Tree per sequence.
type TreeIndex struct {
	Seqs  *Sqs
	Trees []*itree.Tree // indexed by SID
}

// LoadTreeIndex memory-maps .rit, parses .rix, and slices out one tree per
// SID, reusing a prior Sqs load if the caller already has one.
func LoadTreeIndex(gffPath string, seqs *Sqs) (*TreeIndex, error) {
	if seqs == nil {
		var err error
		seqs, err = LoadSqs(gffPath)
		if err != nil {
			return nil, fmt.Errorf("gffindex.LoadTreeIndex: %w", err)
		}
	}

	rixBytes, err := os.ReadFile(Suffix(gffPath, ".rix"))
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadTreeIndex: %w", err)
	}
	var offsets []uint64
	if err := json.Unmarshal(rixBytes, &offsets); err != nil {
		return nil, fmt.Errorf("gffindex.LoadTreeIndex: parsing .rix: %w", err)
	}

	ritPath := Suffix(gffPath, ".rit")
	f, err := os.Open(ritPath)
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadTreeIndex: %w", err)
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("gffindex.LoadTreeIndex: mmap %s: %w", ritPath, err)
	}
	defer m.Unmap()
	data := []byte(m)

	for i := 1; i < len(offsets); i++ {
		if offsets[i] < offsets[i-1] {
			return nil, fmt.Errorf("gffindex.LoadTreeIndex: %s: .rix offsets not non-decreasing at %d", gffPath, i)
		}
	}
	if len(offsets) > 0 && offsets[len(offsets)-1] > uint64(len(data)) {
		return nil, fmt.Errorf("gffindex.LoadTreeIndex: %s: .rix last offset past end of .rit", gffPath)
	}

	trees := make([]*itree.Tree, len(offsets))
	for i, off := range offsets {
		end := uint64(len(data))
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		if off > end || end > uint64(len(data)) {
			return nil, fmt.Errorf("gffindex.LoadTreeIndex: %s: invalid slice range [%d,%d)", gffPath, off, end)
		}
		tr, err := itree.Deserialize(data[off:end])
		if err != nil {
			return nil, fmt.Errorf("gffindex.LoadTreeIndex: %s: tree %d: %w", gffPath, i, err)
		}
		trees[i] = tr
	}

	return &TreeIndex{Seqs: seqs, Trees: trees}, nil
}

// readLinesMapped memory-maps path read-only and splits it on '\n',
// trimming a trailing '\r' per line and dropping a final empty line left
// by a trailing newline.
func readLinesMapped(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	defer m.Unmap()
	data := []byte(m)

	var lines []string
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, strings.TrimSuffix(string(data[start:i]), "\r"))
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, strings.TrimSuffix(string(data[start:]), "\r"))
	}
	return lines, nil
}

func readU32Array(path string) ([]uint32, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %w", path, err)
	}
	defer m.Unmap()
	data := []byte(m)
	if len(data)%4 != 0 {
		return nil, fmt.Errorf("%s: corrupted, size %d is not a multiple of 4", path, len(data))
	}
	n := len(data) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint32(data[i*4:])
	}
	return out, nil
}

func splitWork(n, workers int) [][2]int {
	if workers > n {
		workers = n
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (n + workers - 1) / workers
	var out [][2]int
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		out = append(out, [2]int{lo, hi})
	}
	return out
}
