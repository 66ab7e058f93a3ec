package segment_test

import (
	"testing"

	"autosub/internal/segment"
)

func TestBatchesSplitsInOrder(t *testing.T) {
	segs := make([]segment.Segment, 65)
	for i := range segs {
		segs[i] = segment.Segment{Start: float64(i), End: float64(i) + 0.5}
	}

	batches := segment.Batches(segs, 30)
	if len(batches) != 3 {
		t.Fatalf("expected 3 batches, got %d", len(batches))
	}
	wantSizes := []int{30, 30, 5}
	next := 0.0
	for i, batch := range batches {
		if len(batch) != wantSizes[i] {
			t.Fatalf("batch %d: expected %d segments, got %d", i, wantSizes[i], len(batch))
		}
		for _, s := range batch {
			if s.Start != next {
				t.Fatalf("batch %d out of order: got start %.1f want %.1f", i, s.Start, next)
			}
			next++
		}
	}
}

func TestBatchesEdgeCases(t *testing.T) {
	if got := segment.Batches(nil, 30); got != nil {
		t.Fatalf("expected nil for empty input, got %v", got)
	}
	if got := segment.Batches([]segment.Segment{{}}, 0); got != nil {
		t.Fatalf("expected nil for zero size, got %v", got)
	}
	one := segment.Batches(make([]segment.Segment, 30), 30)
	if len(one) != 1 {
		t.Fatalf("expected exactly one batch for n == size, got %d", len(one))
	}
}

func TestBatchAppendDoesNotClobberNeighbour(t *testing.T) {
	segs := []segment.Segment{{Text: "a"}, {Text: "b"}, {Text: "c"}}
	batches := segment.Batches(segs, 2)
	_ = append(batches[0], segment.Segment{Text: "x"})
	if segs[2].Text != "c" {
		t.Fatalf("append through a batch modified the source slice: %q", segs[2].Text)
	}
}

func TestWithTextKeepsTimingAndCopiesConfidence(t *testing.T) {
	conf := -0.25
	orig := segment.Segment{Start: 1.5, End: 2.25, Text: "before", Confidence: &conf}
	got := orig.WithText("after")

	if got.Start != 1.5 || got.End != 2.25 || got.Text != "after" {
		t.Fatalf("unexpected copy: %+v", got)
	}
	if orig.Text != "before" {
		t.Fatalf("original mutated: %+v", orig)
	}
	*got.Confidence = 0
	if *orig.Confidence != -0.25 {
		t.Fatal("confidence pointer shared between copies")
	}
}

func TestValidate(t *testing.T) {
	if err := (segment.Segment{Start: 0, End: 0}).Validate(); err != nil {
		t.Fatalf("zero-length segment should be valid: %v", err)
	}
	if err := (segment.Segment{Start: -1, End: 0}).Validate(); err == nil {
		t.Fatal("expected error for negative start")
	}
	if err := (segment.Segment{Start: 2, End: 1}).Validate(); err == nil {
		t.Fatal("expected error for end before start")
	}
}
