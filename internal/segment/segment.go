// Package segment defines the timed text record shared by every pipeline
// stage.
//
// Segments are created by the transcriber, copied and re-texted by the
// corrector, and read by the subtitle writer. Timestamps never change after
// transcription.
package segment

import "fmt"

// Segment is one timed span of recognized speech.
type Segment struct {
	// Start is the inclusive start offset in seconds.
	Start float64 `json:"start"`
	// End is the end offset in seconds; End >= Start.
	End float64 `json:"end"`
	// Text is the spoken content with surrounding whitespace removed.
	Text string `json:"text"`
	// Confidence is the recognizer's average log-probability when known.
	Confidence *float64 `json:"confidence,omitempty"`
}

// WithText returns a copy of s carrying text. Timing and confidence are kept.
func (s Segment) WithText(text string) Segment {
	out := s
	if s.Confidence != nil {
		c := *s.Confidence
		out.Confidence = &c
	}
	out.Text = text
	return out
}

// Validate reports structural problems with a single segment.
func (s Segment) Validate() error {
	if s.Start < 0 {
		return fmt.Errorf("segment start %.3f is negative", s.Start)
	}
	if s.End < s.Start {
		return fmt.Errorf("segment end %.3f precedes start %.3f", s.End, s.Start)
	}
	return nil
}

// Clone returns a deep copy of segs.
func Clone(segs []Segment) []Segment {
	if segs == nil {
		return nil
	}
	out := make([]Segment, len(segs))
	for i, s := range segs {
		out[i] = s.WithText(s.Text)
	}
	return out
}

// Batches splits segs into consecutive, non-overlapping chunks of at most size
// elements. The chunks alias segs.
func Batches(segs []Segment, size int) [][]Segment {
	if size <= 0 || len(segs) == 0 {
		return nil
	}
	out := make([][]Segment, 0, (len(segs)+size-1)/size)
	for start := 0; start < len(segs); start += size {
		end := min(start+size, len(segs))
		out = append(out, segs[start:end:end])
	}
	return out
}
