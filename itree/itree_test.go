package itree

import (
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sortIvs(ivs []Interval) []Interval {
	out := make([]Interval, len(ivs))
	copy(out, ivs)
	sort.Slice(out, func(i, j int) bool {
		if out[i].RootFid != out[j].RootFid {
			return out[i].RootFid < out[j].RootFid
		}
		return out[i].Start < out[j].Start
	})
	return out
}

func testIntervals() []Interval {
	return []Interval{
		{Start: 100, End: 200, RootFid: 1},
		{Start: 300, End: 400, RootFid: 2},
		{Start: 150, End: 175, RootFid: 3},
		{Start: 500, End: 600, RootFid: 4},
	}
}

func TestQueryRangeMatchesSpecInvariant(t *testing.T) {
	tr := Build(testIntervals())

	got := tr.QueryRange(150, 350)
	want := []Interval{
		{Start: 100, End: 200, RootFid: 1},
		{Start: 300, End: 400, RootFid: 2},
		{Start: 150, End: 175, RootFid: 3},
	}
	if diff := cmp.Diff(sortIvs(want), sortIvs(got)); diff != "" {
		t.Fatalf("QueryRange(150,350) mismatch (-want +got):\n%s", diff)
	}
}

func TestQueryRangeExcludesNonOverlapping(t *testing.T) {
	tr := Build(testIntervals())
	got := tr.QueryRange(250, 300)
	if len(got) != 0 {
		t.Fatalf("expected no hits for half-open [250,300), got %+v", got)
	}
}

func TestQueryPointClosedSemantics(t *testing.T) {
	tr := Build(testIntervals())
	got := tr.QueryPoint(200)
	want := []Interval{{Start: 100, End: 200, RootFid: 1}}
	if diff := cmp.Diff(sortIvs(want), sortIvs(got)); diff != "" {
		t.Fatalf("QueryPoint(200) mismatch (-want +got):\n%s", diff)
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	tr := Build(testIntervals())
	b := tr.Serialize()

	got, err := Deserialize(b)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}

	before := sortIvs(tr.QueryRange(0, 1000))
	after := sortIvs(got.QueryRange(0, 1000))
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("round-trip query mismatch (-before +after):\n%s", diff)
	}
}

func TestSerializeEmptyTree(t *testing.T) {
	tr := Build(nil)
	b := tr.Serialize()
	if len(b) != 1 || b[0] != 0 {
		t.Fatalf("expected single zero byte for empty tree, got %v", b)
	}
	got, err := Deserialize(b)
	if err != nil {
		t.Fatalf("Deserialize: %v", err)
	}
	if len(got.QueryRange(0, 1000)) != 0 {
		t.Fatalf("expected no intervals in empty tree")
	}
}
