package gffindex

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/edsrzf/mmap-go"
	"github.com/google/uuid"
	"github.com/grendeloz/gffx/gff3"
	"github.com/grendeloz/gffx/itree"
	"github.com/grendeloz/runp"
	log "github.com/sirupsen/logrus"
)

// Suffix appends a file-format suffix to a GFF path, matching the naming
// convention used for every artifact (e.g. "genes.gff3" -> "genes.gff3.fts").
func Suffix(gffPath, suffix string) string {
	return gffPath + suffix
}

// BuildStats summarizes one index build, logged (never persisted) for
// provenance.
type BuildStats struct {
	RunID        string
	Features     int
	Roots        int
	Sequences    int
	AttrValues   int
	SkippedLines int
}

type rawFeature struct {
	seqid      string
	start, end uint32
	lineOffset uint64
	id         string
	parent     string
	hasParent  bool
	attr       string
	hasAttr    bool
}

// Build runs a single streaming pass over gffPath and writes all eight
// artifacts alongside it. attrKey selects which attribute is tracked in
// .a2f/.atn; skipTypes lists column-3 type values to drop entirely.
func Build(gffPath, attrKey string, skipTypes []string) (*BuildStats, error) {
	run := runp.NewRunParameters()
	buildID := uuid.New()

	f, err := os.Open(gffPath)
	if err != nil {
		return nil, fmt.Errorf("gffindex.Build: open %s: %w", gffPath, err)
	}
	defer f.Close()

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("gffindex.Build: mmap %s: %w", gffPath, err)
	}
	defer m.Unmap()
	data := []byte(m)

	skip := make(map[string]bool, len(skipTypes))
	for _, t := range skipTypes {
		if t != "" {
			skip[t] = true
		}
	}

	var raws []rawFeature
	var skipped int

	offset := 0
	for offset < len(data) {
		nl := bytes.IndexByte(data[offset:], '\n')
		var lineBytes []byte
		lineOffset := uint64(offset)
		if nl < 0 {
			lineBytes = data[offset:]
			offset = len(data)
		} else {
			lineBytes = data[offset : offset+nl]
			offset = offset + nl + 1
		}
		lineBytes = bytes.TrimRight(lineBytes, "\r")
		if len(lineBytes) == 0 || lineBytes[0] == '#' {
			continue
		}
		line := strings.TrimSpace(string(lineBytes))
		if line == "" {
			continue
		}

		rec, attrVal, hasAttr, err := gff3.ParseRawRecord(line, attrKey)
		if err != nil {
			return nil, fmt.Errorf("gffindex.Build: %s:%d: %w", gffPath, lineOffset, err)
		}
		if skip[rec.Type] {
			skipped++
			continue
		}
		if !rec.HasId {
			return nil, fmt.Errorf("gffindex.Build: %s: line at offset %d missing ID=", gffPath, lineOffset)
		}
		if hasAttr && gff3.HasRawSpaceOrComma(attrVal) {
			log.Warnf("gffindex.Build: attribute value %q contains an un-encoded space or comma", attrVal)
		}

		raws = append(raws, rawFeature{
			seqid:      rec.SeqId,
			start:      uint32(rec.Start),
			end:        uint32(rec.End),
			lineOffset: lineOffset,
			id:         rec.Id,
			parent:     rec.Parent,
			hasParent:  rec.Parent != "",
			attr:       attrVal,
			hasAttr:    hasAttr,
		})
	}

	featureMap := make(map[string]uint32, len(raws))
	for i, rf := range raws {
		featureMap[rf.id] = uint32(i)
	}

	ftsFile, err := os.Create(Suffix(gffPath, ".fts"))
	if err != nil {
		return nil, fmt.Errorf("gffindex.Build: %w", err)
	}
	defer ftsFile.Close()
	ftsW := bufio.NewWriter(ftsFile)

	gofFile, err := os.Create(Suffix(gffPath, ".gof"))
	if err != nil {
		return nil, fmt.Errorf("gffindex.Build: %w", err)
	}
	defer gofFile.Close()
	gofW := bufio.NewWriter(gofFile)

	prtEntries := make([]uint32, 0, len(raws))
	a2fEntries := make([]uint32, 0, len(raws))
	attrValues := []string{}
	attrValueToID := make(map[string]uint32)

	seqidToNum := make(map[string]uint32)
	var seqidOrder []string
	var nextSeqidNum uint32
	treesInput := make(map[uint32][]itree.Interval)

	type openRoot struct {
		fid, sid uint32
		off      uint64
		open     bool
	}
	var cur openRoot

	writeGof := func(fid, sid uint32, start, end uint64) error {
		var rec [GofRecordSize]byte
		binary.LittleEndian.PutUint32(rec[0:4], fid)
		binary.LittleEndian.PutUint32(rec[4:8], sid)
		binary.LittleEndian.PutUint64(rec[8:16], start)
		binary.LittleEndian.PutUint64(rec[16:24], end)
		_, err := gofW.Write(rec[:])
		return err
	}

	for _, rf := range raws {
		fid := featureMap[rf.id]
		if _, err := fmt.Fprintln(ftsW, rf.id); err != nil {
			return nil, fmt.Errorf("gffindex.Build: writing .fts: %w", err)
		}

		parentID := fid
		if rf.hasParent {
			if pid, ok := featureMap[rf.parent]; ok {
				parentID = pid
			}
		}
		prtEntries = append(prtEntries, parentID)

		if parentID == fid {
			sid, ok := seqidToNum[rf.seqid]
			if !ok {
				sid = nextSeqidNum
				nextSeqidNum++
				seqidToNum[rf.seqid] = sid
				seqidOrder = append(seqidOrder, rf.seqid)
			}
			treesInput[sid] = append(treesInput[sid], itree.Interval{Start: rf.start, End: rf.end, RootFid: fid})

			if cur.open {
				if err := writeGof(cur.fid, cur.sid, cur.off, rf.lineOffset); err != nil {
					return nil, fmt.Errorf("gffindex.Build: writing .gof: %w", err)
				}
			}
			cur = openRoot{fid: fid, sid: sid, off: rf.lineOffset, open: true}
		}

		if rf.hasAttr {
			aid, ok := attrValueToID[rf.attr]
			if !ok {
				aid = uint32(len(attrValues))
				attrValues = append(attrValues, rf.attr)
				attrValueToID[rf.attr] = aid
			}
			a2fEntries = append(a2fEntries, aid)
		} else {
			a2fEntries = append(a2fEntries, MaxU32)
		}
	}
	if cur.open {
		if err := writeGof(cur.fid, cur.sid, cur.off, uint64(len(data))); err != nil {
			return nil, fmt.Errorf("gffindex.Build: writing final .gof record: %w", err)
		}
	}
	if err := ftsW.Flush(); err != nil {
		return nil, fmt.Errorf("gffindex.Build: %w", err)
	}
	if err := gofW.Flush(); err != nil {
		return nil, fmt.Errorf("gffindex.Build: %w", err)
	}

	// .rit / .rix
	ritFile, err := os.Create(Suffix(gffPath, ".rit"))
	if err != nil {
		return nil, fmt.Errorf("gffindex.Build: %w", err)
	}
	defer ritFile.Close()
	var offsets []uint64
	var written uint64
	for _, seqid := range seqidOrder {
		sid := seqidToNum[seqid]
		tr := itree.Build(treesInput[sid])
		b := tr.Serialize()
		offsets = append(offsets, written)
		if _, err := ritFile.Write(b); err != nil {
			return nil, fmt.Errorf("gffindex.Build: writing .rit: %w", err)
		}
		written += uint64(len(b))
	}
	rixBytes, err := json.Marshal(offsets)
	if err != nil {
		return nil, fmt.Errorf("gffindex.Build: marshal .rix: %w", err)
	}
	if err := os.WriteFile(Suffix(gffPath, ".rix"), rixBytes, 0644); err != nil {
		return nil, fmt.Errorf("gffindex.Build: writing .rix: %w", err)
	}

	// .gbi (optional secondary spatial index, built from the same root
	// intervals the tree above was built from)
	if err := WriteGbi(gffPath, buildGbi(treesInput, seqidOrder, seqidToNum)); err != nil {
		return nil, fmt.Errorf("gffindex.Build: %w", err)
	}

	// .sqs
	var sqsBuf bytes.Buffer
	for _, seqid := range seqidOrder {
		sqsBuf.WriteString(seqid)
		sqsBuf.WriteByte('\n')
	}
	if err := os.WriteFile(Suffix(gffPath, ".sqs"), sqsBuf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("gffindex.Build: writing .sqs: %w", err)
	}

	// .atn
	var atnBuf bytes.Buffer
	fmt.Fprintf(&atnBuf, "#attribute=%s\n", attrKey)
	for _, v := range attrValues {
		atnBuf.WriteString(v)
		atnBuf.WriteByte('\n')
	}
	if err := os.WriteFile(Suffix(gffPath, ".atn"), atnBuf.Bytes(), 0644); err != nil {
		return nil, fmt.Errorf("gffindex.Build: writing .atn: %w", err)
	}

	// .a2f
	if err := writeU32Array(Suffix(gffPath, ".a2f"), a2fEntries); err != nil {
		return nil, fmt.Errorf("gffindex.Build: %w", err)
	}
	// .prt
	if err := writeU32Array(Suffix(gffPath, ".prt"), prtEntries); err != nil {
		return nil, fmt.Errorf("gffindex.Build: %w", err)
	}

	stats := &BuildStats{
		RunID:        buildID.String(),
		Features:     len(raws),
		Sequences:    len(seqidOrder),
		AttrValues:   len(attrValues),
		SkippedLines: skipped,
	}
	roots := 0
	for i, p := range prtEntries {
		if p == uint32(i) {
			roots++
		}
	}
	stats.Roots = roots

	log.Debugf("gffindex.Build: provenance %+v", run)
	log.Infof("gffindex.Build: %s run=%s features=%d roots=%d sequences=%d attrValues=%d skipped=%d",
		gffPath, stats.RunID, stats.Features, stats.Roots, stats.Sequences, stats.AttrValues, stats.SkippedLines)

	return stats, nil
}

func writeU32Array(path string, values []uint32) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	var buf [4]byte
	for _, v := range values {
		binary.LittleEndian.PutUint32(buf[:], v)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return w.Flush()
}
