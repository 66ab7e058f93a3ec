package correct

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"autosub/internal/logging"
	"autosub/internal/segment"
	"autosub/internal/services"
	"autosub/internal/textutil"
)

const (
	DefaultBatchSize   = 30
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Config configures a Configured corrector.
type Config struct {
	Prompt      string
	Glossary    map[string]string
	BatchSize   int
	MaxAttempts int
	// RetryDelay is the fixed pause between attempts on one batch.
	RetryDelay time.Duration
}

// errCountMismatch marks a reply whose segment count differs from the batch.
var errCountMismatch = errors.New("corrected segment count mismatch")

// Configured corrects segments through a Completer.
type Configured struct {
	completer Completer
	cfg       Config
	logger    *slog.Logger
	sleep     func(context.Context, time.Duration) error

	batches  metric.Int64Counter
	attempts metric.Int64Counter
}

// Option customizes a Configured corrector.
type Option func(*Configured)

// WithSleeper replaces the pause between attempts.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Configured) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// NewConfigured builds a corrector backed by completer. Zero BatchSize and
// MaxAttempts take the package defaults.
func NewConfigured(completer Completer, cfg Config, logger *slog.Logger, opts ...Option) (*Configured, error) {
	if completer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "correct", "init", "Correction capability is required", nil)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}
	if cfg.RetryDelay < 0 {
		cfg.RetryDelay = 0
	}
	if strings.TrimSpace(cfg.Prompt) == "" {
		cfg.Prompt = DefaultPrompt
	}
	if cfg.Glossary == nil {
		cfg.Glossary = map[string]string{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	meter := otel.Meter("autosub/correct")
	batches, err := meter.Int64Counter("autosub.correction.batches",
		metric.WithDescription("Correction batches by outcome"))
	if err != nil {
		return nil, fmt.Errorf("create batch counter: %w", err)
	}
	attempts, err := meter.Int64Counter("autosub.correction.attempts",
		metric.WithDescription("Correction requests sent"))
	if err != nil {
		return nil, fmt.Errorf("create attempt counter: %w", err)
	}

	c := &Configured{
		completer: completer,
		cfg:       cfg,
		logger:    logger.With(logging.String("component", "corrector")),
		sleep:     sleepContext,
		batches:   batches,
		attempts:  attempts,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Configured) Enabled() bool { return true }

// SystemPrompt returns the instruction sent with every batch: the prompt
// followed by the glossary as indented JSON.
func (c *Configured) SystemPrompt() (string, error) {
	glossary, err := indentJSON(c.cfg.Glossary)
	if err != nil {
		return "", fmt.Errorf("encode glossary: %w", err)
	}
	return c.cfg.Prompt + "\n\n## Glossary\n" + glossary, nil
}

// Correct sends segs to the completer in batches. A batch that cannot be
// corrected keeps its original text; only context cancellation aborts.
func (c *Configured) Correct(ctx context.Context, segs []segment.Segment, opts Options) ([]segment.Segment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(segs) == 0 {
		return []segment.Segment{}, nil
	}
	size := c.cfg.BatchSize
	if opts.BatchSize > 0 {
		size = opts.BatchSize
	}
	system, err := c.SystemPrompt()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "correct", "build prompt", "Unable to encode glossary", err)
	}

	batches := segment.Batches(segs, size)
	out := make([]segment.Segment, 0, len(segs))
	processed := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.logger.Info("correcting batch",
			logging.Int("batch", i+1),
			logging.Int("batches", len(batches)),
			logging.Int("segments", len(batch)),
		)

		result := BatchResult{Index: i, Total: len(batches), Size: len(batch)}
		corrected, attempts, err := c.correctBatch(ctx, system, batch)
		result.Attempts = attempts
		switch {
		case err == nil:
			result.Outcome = OutcomeCorrected
			out = append(out, corrected...)
		case errors.Is(err, errCountMismatch):
			result.Outcome = OutcomeReverted
			result.Err = err
			logging.WarnWithContext(c.logger, "batch reverted to original text", "batch_reverted",
				logging.Int("batch", i+1),
				logging.Error(err),
				logging.String(logging.FieldImpact, "original transcription kept for this batch"),
			)
			out = append(out, segment.Clone(batch)...)
		default:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			result.Outcome = OutcomeFailed
			result.Err = err
			logging.ErrorWithContext(c.logger, "batch correction failed", "batch_failed",
				logging.Int("batch", i+1),
				logging.Int("attempts", attempts),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check the API key and model, or rerun later"),
				logging.String(logging.FieldImpact, "original transcription kept for this batch"),
			)
			out = append(out, segment.Clone(batch)...)
		}
		c.batches.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", string(result.Outcome))))
		if opts.OnBatch != nil {
			opts.OnBatch(result)
		}

		processed += len(batch)
		if opts.OnProgress != nil {
			opts.OnProgress(processed, len(segs))
		}
	}
	return out, nil
}

// correctBatch runs the retry loop for one batch. A count mismatch or a
// rejected credential returns immediately without retrying.
func (c *Configured) correctBatch(ctx context.Context, system string, batch []segment.Segment) ([]segment.Segment, int, error) {
	user, err := encodeBatch(batch)
	if err != nil {
		return nil, 0, err
	}
	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		c.attempts.Add(ctx, 1)
		reply, err := c.completer.CompleteJSON(ctx, system, user)
		if err == nil {
			var entries []correctedEntry
			entries, err = parseReply(reply)
			if err == nil {
				if len(entries) != len(batch) {
					return nil, attempt, fmt.Errorf("%w: expected %d, got %d", errCountMismatch, len(batch), len(entries))
				}
				return merge(batch, entries), attempt, nil
			}
		}
		lastErr = err
		c.logger.Warn("correction attempt failed",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", c.cfg.MaxAttempts),
			logging.Error(err),
		)
		if ctx.Err() != nil {
			return nil, attempt, ctx.Err()
		}
		if errors.Is(err, services.ErrConfiguration) {
			return nil, attempt, err
		}
		if attempt < c.cfg.MaxAttempts {
			if err := c.sleep(ctx, c.cfg.RetryDelay); err != nil {
				return nil, attempt, err
			}
		}
	}
	return nil, c.cfg.MaxAttempts, fmt.Errorf("failed after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

type batchEntry struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type correctedEntry struct {
	Text string `json:"text"`
}

func encodeBatch(batch []segment.Segment) (string, error) {
	entries := make([]batchEntry, len(batch))
	for i, s := range batch {
		entries[i] = batchEntry{Start: s.Start, End: s.End, Text: s.Text}
	}
	data, err := indentJSON(entries)
	if err != nil {
		return "", fmt.Errorf("encode batch: %w", err)
	}
	return data, nil
}

// indentJSON renders v with two-space indentation and without HTML
// escaping, so glossary terms and cue text reach the model verbatim.
func indentJSON(v any) (string, error) {
	var buf strings.Builder
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// parseReply decodes the span from the first '[' to the last ']'; without a
// bracket pair the whole reply is decoded.
func parseReply(reply string) ([]correctedEntry, error) {
	payload := reply
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start >= 0 && end > start {
		payload = reply[start : end+1]
	}
	var entries []correctedEntry
	if err := json.Unmarshal([]byte(payload), &entries); err != nil {
		return nil, fmt.Errorf("parse correction reply: %w", err)
	}
	return entries, nil
}

// merge copies each original segment and replaces only its text. Blank
// lines in corrected text are dropped so the cue survives SRT framing.
func merge(batch []segment.Segment, entries []correctedEntry) []segment.Segment {
	out := make([]segment.Segment, len(batch))
	for i, original := range batch {
		text := textutil.CueText(entries[i].Text)
		if text == "" {
			text = original.Text
		}
		out[i] = original.WithText(text)
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
