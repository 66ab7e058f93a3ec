package correct

import (
	"context"
	"log/slog"

	"autosub/internal/logging"
	"autosub/internal/segment"
)

// Completer is the text-correction capability: one chat turn that returns a
// JSON payload.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProgressFunc receives the number of segments processed so far and the
// total segment count.
type ProgressFunc func(processed, total int)

// Outcome describes how one batch was resolved.
type Outcome string

const (
	// OutcomeCorrected means the batch carries corrected text.
	OutcomeCorrected Outcome = "corrected"
	// OutcomeReverted means the reply had the wrong segment count and the
	// originals were kept.
	OutcomeReverted Outcome = "reverted"
	// OutcomeFailed means every attempt failed and the originals were kept.
	OutcomeFailed Outcome = "failed"
)

// BatchResult is reported once per batch.
type BatchResult struct {
	Index    int
	Total    int
	Size     int
	Attempts int
	Outcome  Outcome
	Err      error
}

// Options are per-call settings for Correct.
type Options struct {
	// BatchSize overrides the corrector's configured batch size when > 0.
	BatchSize  int
	OnProgress ProgressFunc
	OnBatch    func(BatchResult)
}

// Corrector improves segment text while preserving count, order and
// timestamps.
type Corrector interface {
	Correct(ctx context.Context, segs []segment.Segment, opts Options) ([]segment.Segment, error)
	// Enabled reports whether Correct can change any text.
	Enabled() bool
}

// Disabled is the corrector used when no correction capability is
// available. Correct returns the input unchanged.
type Disabled struct {
	Reason string
	logger *slog.Logger
}

// NewDisabled returns a Disabled corrector. reason is logged once per call.
func NewDisabled(reason string, logger *slog.Logger) *Disabled {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Disabled{Reason: reason, logger: logger.With(logging.String("component", "corrector"))}
}

// Correct returns segs unchanged. Progress is still reported so callers see
// the stage complete.
func (d *Disabled) Correct(ctx context.Context, segs []segment.Segment, opts Options) ([]segment.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Reason != "" {
		d.logger.Info("correction skipped", logging.String("reason", d.Reason))
	}
	if opts.OnProgress != nil && len(segs) > 0 {
		opts.OnProgress(len(segs), len(segs))
	}
	if segs == nil {
		return []segment.Segment{}, nil
	}
	return segs, nil
}

func (d *Disabled) Enabled() bool { return false }
