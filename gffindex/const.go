// Package gffindex builds and loads the eight on-disk artifacts that make
// a GFF3 file queryable without re-parsing it: .fts, .sqs, .atn, .a2f,
// .prt, .gof, .rit and .rix, plus the resolver that walks .prt to a root.
package gffindex

// MaxU32 is the sentinel used throughout the artifacts for "no value":
// an attribute-less feature in .a2f, or an unresolvable root in the
// resolver's output.
const MaxU32 = ^uint32(0)

// Suffixes lists every required artifact suffix, in the order
// CheckFilesExist reports them.
var Suffixes = []string{".fts", ".sqs", ".atn", ".a2f", ".prt", ".gof", ".rit", ".rix"}

// GofRecordSize is the packed, little-endian size in bytes of one .gof
// record: u32 root_fid, u32 sid, u64 start_off, u64 end_off.
const GofRecordSize = 24
