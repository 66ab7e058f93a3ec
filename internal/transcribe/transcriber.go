package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"autosub/internal/logging"
	"autosub/internal/segment"
	"autosub/internal/services"
	"autosub/internal/textutil"
)

// DefaultMinSilence is the VAD minimum silence used for every run.
const DefaultMinSilence = 500 * time.Millisecond

// ProgressFunc receives the end time of the latest segment and the total
// audio duration, both in seconds.
type ProgressFunc func(current, total float64)

// Options configures a Transcriber.
type Options struct {
	// Model and Device override the recognizer defaults per run.
	Model      string
	Device     string
	MinSilence time.Duration
}

// Transcriber turns an audio file into timed segments.
type Transcriber struct {
	recognizer Recognizer
	opts       Options
	logger     *slog.Logger
}

// New constructs a Transcriber over recognizer.
func New(recognizer Recognizer, opts Options, logger *slog.Logger) *Transcriber {
	if opts.MinSilence <= 0 {
		opts.MinSilence = DefaultMinSilence
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcriber{
		recognizer: recognizer,
		opts:       opts,
		logger:     logger.With(logging.String("component", "transcriber")),
	}
}

// Transcribe recognizes speech in audioPath. Segments are returned in
// recognizer order with text trimmed and NFC-normalized.
func (t *Transcriber) Transcribe(ctx context.Context, audioPath, language string, onProgress ProgressFunc) ([]segment.Segment, error) {
	if t == nil || t.recognizer == nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcribe", "init", "No speech recognizer configured", nil)
	}
	info, err := os.Stat(audioPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "transcribe", "stat audio", fmt.Sprintf("Audio file not found: %s", audioPath), err)
		}
		return nil, services.Wrap(services.ErrValidation, "transcribe", "stat audio", "Unable to read audio file", err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "transcribe", "stat audio", fmt.Sprintf("Audio path is a directory: %s", audioPath), nil)
	}

	language = strings.TrimSpace(language)
	req := Request{
		AudioPath: audioPath,
		Model:     t.opts.Model,
		Device:    t.opts.Device,
		Language:  language,
		VAD:       VADOptions{Enabled: true, MinSilence: t.opts.MinSilence},
	}

	started := time.Now()
	stream, err := t.recognizer.Start(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "start recognizer", "Speech recognizer failed to start", err)
	}
	defer stream.Close()

	total := stream.Duration()
	t.logger.Info("transcription started",
		logging.String("audio", audioPath),
		logging.String("language", language),
		logging.Float64("duration_seconds", total),
	)

	var (
		segments []segment.Segment
		current  float64
	)
	for stream.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		seg := stream.Segment()
		seg.Text = textutil.NormalizeText(seg.Text)
		segments = append(segments, seg)

		if seg.End > current {
			current = seg.End
		}
		if onProgress != nil {
			onProgress(current, total)
		}
	}
	if err := stream.Err(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, services.Wrap(services.ErrExternalTool, "transcribe", "recognize", "Speech recognition failed", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t.logger.Info("transcription completed",
		logging.Int("segments", len(segments)),
		logging.Duration("elapsed", time.Since(started)),
		logging.String(logging.FieldEventType, "transcription_complete"),
	)
	if segments == nil {
		segments = []segment.Segment{}
	}
	return segments, nil
}
