package gff3

import (
	"fmt"
	"strconv"
	"strings"
)

// RawRecord is the minimal parse of one GFF3 line needed by the index
// builder and by the filtered writer/coverage scanners. It does not
// allocate an attributes map; it extracts only the handful of fields those
// components need directly from the line bytes.
type RawRecord struct {
	SeqId  string
	Type   string
	Start  int // half-open 0-based
	End    int // half-open 0-based
	Id     string
	Parent string
	HasId  bool
}

// ErrBadColumnCount is returned by ParseRawRecord when a line does not
// split into exactly 9 tab-separated columns.
var ErrBadColumnCount = fmt.Errorf("gff3: expected 9 columns")

// ParseRawRecord parses a single GFF3 line (no trailing newline) into a
// RawRecord, converting the file's closed 1-based [start,end] into a
// half-open 0-based [start,end). attrKey, if non-empty, also extracts that
// attribute's value.
func ParseRawRecord(line string, attrKey string) (rec RawRecord, attrVal string, hasAttr bool, err error) {
	fields := strings.Split(line, "\t")
	if len(fields) != 9 {
		return rec, "", false, fmt.Errorf("%w: got %d", ErrBadColumnCount, len(fields))
	}

	rec.SeqId = fields[0]
	rec.Type = fields[2]

	start, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return rec, "", false, fmt.Errorf("ParseRawRecord: start %q: %w", fields[3], err)
	}
	end, err := strconv.ParseUint(fields[4], 10, 32)
	if err != nil {
		return rec, "", false, fmt.Errorf("ParseRawRecord: end %q: %w", fields[4], err)
	}
	if end == 0 {
		return rec, "", false, fmt.Errorf("ParseRawRecord: end==0 is not a valid 1-based coordinate")
	}
	s, e := uint32(start), uint32(end)
	if s > e {
		s, e = e, s
	}
	// closed 1-based [s,e] -> half-open 0-based [s-1,e)
	rec.Start = int(s - 1)
	rec.End = int(e)

	rec.Id, rec.HasId = scanIdentifierAttr(fields[8], "ID")
	rec.Parent, _ = scanIdentifierAttr(fields[8], "Parent")
	if attrKey != "" {
		attrVal, hasAttr = scanAttr(fields[8], attrKey)
	}
	return rec, attrVal, hasAttr, nil
}

// scanAttr finds key=value within a GFF3 attribute column. The value
// terminates at ';' or end of string; leading/trailing whitespace around
// the token is trimmed, but an internal space or comma is left in place
// (callers check for that with HasRawSpaceOrComma and warn, rather than
// silently truncating a value GFF3 requires to be percent-encoded). Use
// this for the builder's tracked attribute; use scanIdentifierAttr for
// ID/Parent, which terminate at whitespace instead.
func scanAttr(attrs, key string) (string, bool) {
	needle := key + "="
	i := 0
	for i < len(attrs) {
		// find start of next token (after ';' or at i==0)
		j := strings.IndexByte(attrs[i:], ';')
		var tok string
		if j < 0 {
			tok = attrs[i:]
			i = len(attrs)
		} else {
			tok = attrs[i : i+j]
			i += j + 1
		}
		tok = strings.TrimSpace(tok)
		if strings.HasPrefix(tok, needle) {
			return tok[len(needle):], true
		}
	}
	return "", false
}

// scanIdentifierAttr finds key=value within a GFF3 attribute column for an
// identifier-style attribute (ID=, Parent=). The value terminates at ';'
// or the first ASCII whitespace, matching original_source's id_re/
// parent_re ([^;\s]+) shape: an ID or Parent is a bare token, never a
// free-text value, so there is nothing to warn about when whitespace
// follows it.
func scanIdentifierAttr(attrs, key string) (string, bool) {
	v, ok := scanAttr(attrs, key)
	if !ok {
		return v, ok
	}
	if i := strings.IndexAny(v, " \t\n\r\f\v"); i >= 0 {
		v = v[:i]
	}
	return v, true
}

// HasRawSpaceOrComma reports whether an attribute value contains a raw
// (un-encoded) space or comma, which GFF3 requires to be percent-escaped.
func HasRawSpaceOrComma(v string) bool {
	return strings.ContainsAny(v, " ,")
}
