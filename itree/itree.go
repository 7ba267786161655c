// Package itree implements the centered interval tree used to index root
// feature intervals per sequence. One tree is built per sequence id (SID);
// trees are serialized independently and concatenated so that a `.rix`
// offset table can slice any single tree back out without touching the
// others.
package itree

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"
)

// Interval is a closed-on-disk, half-open-on-query span tagged with the
// root feature it belongs to.
type Interval struct {
	Start   uint32
	End     uint32
	RootFid uint32
}

type node struct {
	center    uint32
	intervals []Interval
	left      *node
	right     *node
}

// Tree is a centered interval tree over a single sequence's root
// intervals.
type Tree struct {
	root *node
}

// Build constructs a Tree from an unordered slice of intervals. The input
// slice is not retained.
func Build(intervals []Interval) *Tree {
	ivs := make([]Interval, len(intervals))
	copy(ivs, intervals)
	return &Tree{root: build(ivs)}
}

func build(intervals []Interval) *node {
	if len(intervals) == 0 {
		return nil
	}
	sort.Slice(intervals, func(i, j int) bool { return intervals[i].Start < intervals[j].Start })
	mid := len(intervals) / 2
	center := intervals[mid].Start

	var left, right, atCenter []Interval
	for _, iv := range intervals {
		switch {
		case iv.End < center:
			left = append(left, iv)
		case iv.Start > center:
			right = append(right, iv)
		default:
			atCenter = append(atCenter, iv)
		}
	}

	return &node{
		center:    center,
		intervals: atCenter,
		left:      build(left),
		right:     build(right),
	}
}

// QueryPoint returns every interval covering point under closed semantics:
// start <= point <= end.
func (t *Tree) QueryPoint(point uint32) []Interval {
	var out []Interval
	queryPoint(t.root, point, &out)
	return out
}

func queryPoint(n *node, point uint32, out *[]Interval) {
	if n == nil {
		return
	}
	for _, iv := range n.intervals {
		if iv.Start <= point && point <= iv.End {
			*out = append(*out, iv)
		}
	}
	switch {
	case point < n.center:
		queryPoint(n.left, point, out)
	case point > n.center:
		queryPoint(n.right, point, out)
	default:
		queryPoint(n.left, point, out)
		queryPoint(n.right, point, out)
	}
}

// QueryRange returns every interval iv such that iv.Start < end && iv.End
// > start, i.e. overlapping the half-open range [start,end).
func (t *Tree) QueryRange(start, end uint32) []Interval {
	var out []Interval
	queryRange(t.root, start, end, &out)
	return out
}

func queryRange(n *node, start, end uint32, out *[]Interval) {
	if n == nil {
		return
	}
	for _, iv := range n.intervals {
		if iv.Start < end && iv.End > start {
			*out = append(*out, iv)
		}
	}
	if start < n.center {
		queryRange(n.left, start, end, out)
	}
	if end > n.center {
		queryRange(n.right, start, end, out)
	}
}

// Serialization: a deterministic, length-prefixed pre-order encoding.
//
// Each node is written as:
//   u8   hasNode (0 = nil, stops recursion for this slot)
//   u32  center
//   u32  interval count
//   interval count * {u32 start, u32 end, u32 root_fid}
//   <left subtree, recursively>
//   <right subtree, recursively>
//
// An empty tree serializes to a single 0x00 byte.

// Serialize encodes the tree to a contiguous byte blob in pre-order.
func (t *Tree) Serialize() []byte {
	var buf bytes.Buffer
	serializeNode(&buf, t.root)
	return buf.Bytes()
}

func serializeNode(buf *bytes.Buffer, n *node) {
	if n == nil {
		buf.WriteByte(0)
		return
	}
	buf.WriteByte(1)
	var hdr [8]byte
	binary.LittleEndian.PutUint32(hdr[0:4], n.center)
	binary.LittleEndian.PutUint32(hdr[4:8], uint32(len(n.intervals)))
	buf.Write(hdr[:])
	for _, iv := range n.intervals {
		var rec [12]byte
		binary.LittleEndian.PutUint32(rec[0:4], iv.Start)
		binary.LittleEndian.PutUint32(rec[4:8], iv.End)
		binary.LittleEndian.PutUint32(rec[8:12], iv.RootFid)
		buf.Write(rec[:])
	}
	serializeNode(buf, n.left)
	serializeNode(buf, n.right)
}

// Deserialize decodes a tree previously produced by Serialize. b must
// contain exactly one serialized tree (callers slice `.rit` per `.rix`
// offsets before calling this).
func Deserialize(b []byte) (*Tree, error) {
	n, rest, err := deserializeNode(b)
	if err != nil {
		return nil, fmt.Errorf("itree.Deserialize: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("itree.Deserialize: %d trailing bytes", len(rest))
	}
	return &Tree{root: n}, nil
}

func deserializeNode(b []byte) (*node, []byte, error) {
	if len(b) < 1 {
		return nil, nil, fmt.Errorf("truncated tree: missing tag byte")
	}
	tag, rest := b[0], b[1:]
	if tag == 0 {
		return nil, rest, nil
	}
	if tag != 1 {
		return nil, nil, fmt.Errorf("bad node tag %d", tag)
	}
	if len(rest) < 8 {
		return nil, nil, fmt.Errorf("truncated tree: missing node header")
	}
	center := binary.LittleEndian.Uint32(rest[0:4])
	count := binary.LittleEndian.Uint32(rest[4:8])
	rest = rest[8:]

	ivs := make([]Interval, count)
	for i := uint32(0); i < count; i++ {
		if len(rest) < 12 {
			return nil, nil, fmt.Errorf("truncated tree: missing interval %d", i)
		}
		ivs[i] = Interval{
			Start:   binary.LittleEndian.Uint32(rest[0:4]),
			End:     binary.LittleEndian.Uint32(rest[4:8]),
			RootFid: binary.LittleEndian.Uint32(rest[8:12]),
		}
		rest = rest[12:]
	}

	left, rest, err := deserializeNode(rest)
	if err != nil {
		return nil, nil, err
	}
	right, rest, err := deserializeNode(rest)
	if err != nil {
		return nil, nil, err
	}

	return &node{center: center, intervals: ivs, left: left, right: right}, rest, nil
}
