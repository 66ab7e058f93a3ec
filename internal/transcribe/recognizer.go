package transcribe

import (
	"context"
	"time"

	"autosub/internal/segment"
)

// VADOptions controls voice-activity filtering in the recognizer.
type VADOptions struct {
	Enabled    bool
	MinSilence time.Duration
}

// Request describes one recognition job.
// Model and Device override the recognizer's configured defaults when set.
type Request struct {
	AudioPath string
	Model     string
	Device    string
	Language  string
	VAD       VADOptions
}

// Stream yields recognized segments one at a time, in the style of
// bufio.Scanner. A Stream is consumed once; callers must Close it.
type Stream interface {
	// Next advances to the next segment and reports whether one is available.
	Next() bool
	// Segment returns the current segment. Text is untrimmed.
	Segment() segment.Segment
	// Err returns the first error that stopped iteration, if any.
	Err() error
	// Duration is the total audio duration in seconds, known at Start.
	Duration() float64
	Close() error
}

// Recognizer starts speech recognition over an audio file.
type Recognizer interface {
	Start(ctx context.Context, req Request) (Stream, error)
}

// SliceStream is an in-memory Stream over a fixed segment list.
type SliceStream struct {
	segs     []segment.Segment
	duration float64
	pos      int
	err      error
	closed   bool
}

// NewSliceStream returns a Stream yielding segs. If err is non-nil it is
// reported after the segments are exhausted.
func NewSliceStream(segs []segment.Segment, duration float64, err error) *SliceStream {
	return &SliceStream{segs: segs, duration: duration, pos: -1, err: err}
}

func (s *SliceStream) Next() bool {
	if s.closed || s.pos+1 >= len(s.segs) {
		s.pos = len(s.segs)
		return false
	}
	s.pos++
	return true
}

func (s *SliceStream) Segment() segment.Segment {
	if s.pos < 0 || s.pos >= len(s.segs) {
		return segment.Segment{}
	}
	return s.segs[s.pos]
}

func (s *SliceStream) Err() error {
	if s.pos >= len(s.segs) {
		return s.err
	}
	return nil
}

func (s *SliceStream) Duration() float64 { return s.duration }

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}
