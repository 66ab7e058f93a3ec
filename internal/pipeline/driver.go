package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"autosub/internal/correct"
	"autosub/internal/language"
	"autosub/internal/logging"
	"autosub/internal/segment"
	"autosub/internal/services"
	"autosub/internal/subtitles"
	"autosub/internal/telemetry"
)

// Driver runs validate, extract, transcribe, correct and write in order for
// one video. It holds no per-run state and never retries a stage.
type Driver struct {
	extractor   Extractor
	transcriber Transcriber
	corrector   correct.Corrector
	namer       Namer
	logger      *slog.Logger
}

// Deps are the stage implementations a Driver needs.
type Deps struct {
	Extractor   Extractor
	Transcriber Transcriber
	Corrector   correct.Corrector
	// Namer defaults to subtitles.NewNamer(nil).
	Namer Namer
}

// New validates deps and returns a Driver.
func New(deps Deps, logger *slog.Logger) (*Driver, error) {
	if deps.Extractor == nil {
		return nil, errors.New("pipeline: extractor is required")
	}
	if deps.Transcriber == nil {
		return nil, errors.New("pipeline: transcriber is required")
	}
	if deps.Corrector == nil {
		deps.Corrector = correct.NewDisabled("", logger)
	}
	if deps.Namer == nil {
		deps.Namer = subtitles.NewNamer(nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Driver{
		extractor:   deps.Extractor,
		transcriber: deps.Transcriber,
		corrector:   deps.Corrector,
		namer:       deps.Namer,
		logger:      logger.With(logging.String(logging.FieldComponent, "pipeline")),
	}, nil
}

// Run processes req.VideoPath into a subtitle file. sink may be nil.
func (d *Driver) Run(ctx context.Context, req Request, sink StatusSink) (Result, error) {
	started := time.Now()
	runID := strings.TrimSpace(req.RunID)
	if runID == "" {
		runID = uuid.NewString()
	}
	ctx = services.WithRunID(ctx, runID)
	ctx = services.WithSource(ctx, req.VideoPath)

	ctx, span := telemetry.Tracer().Start(ctx, "autosub.run")
	span.SetAttributes(
		attribute.String("autosub.run_id", runID),
		attribute.String("autosub.source", req.VideoPath),
	)
	defer span.End()

	r := &run{
		driver: d,
		req:    req,
		sink:   sink,
		logger: logging.WithContext(ctx, d.logger),
		result: Result{RunID: runID, SourcePath: req.VideoPath},
	}
	languageName := "auto-detect"
	if strings.TrimSpace(req.Language) != "" {
		languageName = language.DisplayName(req.Language)
	}
	r.logger.Info("subtitle run started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("language", req.Language),
		logging.String("language_name", languageName),
	)

	err := r.execute(ctx)
	r.result.Duration = time.Since(started)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return r.result, err
	}
	r.logger.Info("subtitle run completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.String("output", r.result.OutputPath),
		logging.Int("segments", r.result.Segments),
		logging.Int("batches_reverted", r.result.Batches.Reverted),
		logging.Int("batches_failed", r.result.Batches.Failed),
		logging.Duration("elapsed", r.result.Duration),
	)
	return r.result, nil
}

type run struct {
	driver *Driver
	req    Request
	sink   StatusSink
	logger *slog.Logger
	result Result

	audioPath string
	segments  []segment.Segment
}

func (r *run) execute(ctx context.Context) error {
	steps := []struct {
		stage Stage
		fn    func(context.Context, *slog.Logger) error
	}{
		{StageValidate, r.validate},
		{StageExtract, r.extract},
		{StageTranscribe, r.transcribe},
		{StageCorrect, r.correct},
		{StageWrite, r.write},
	}
	defer r.cleanupAudio()
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.runStage(ctx, step.stage, step.fn); err != nil {
			return err
		}
	}
	r.report(StageDone, finished, "Done")
	return nil
}

func (r *run) runStage(ctx context.Context, stage Stage, fn func(context.Context, *slog.Logger) error) error {
	ctx = services.WithStage(ctx, string(stage))
	ctx, span := telemetry.Tracer().Start(ctx, "autosub."+string(stage))
	defer span.End()

	logger := logging.WithContext(ctx, r.driver.logger)
	stageStart := time.Now()
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	err := fn(ctx, logger)
	elapsed := time.Since(stageStart)
	r.result.Stages = append(r.result.Stages, StageTiming{Stage: stage, Duration: elapsed})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			logger.Warn("stage canceled",
				logging.String(logging.FieldEventType, "stage_canceled"),
				logging.Error(err),
			)
		} else {
			logging.ErrorWithContext(logger, "stage failed", "stage_failure",
				logging.String("error_kind", services.Classify(err)),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, hintFor(stage, err)),
			)
		}
		return &StageError{Stage: stage, Err: err}
	}
	logger.Info("stage completed",
		logging.String(logging.FieldEventType, "stage_complete"),
		logging.Duration("stage_duration", elapsed),
	)
	return nil
}

func (r *run) validate(_ context.Context, _ *slog.Logger) error {
	r.report(StageValidate, extractStart, "Validating input")
	if strings.TrimSpace(r.req.VideoPath) == "" {
		return services.Wrap(services.ErrValidation, string(StageValidate), "check input", "Video path is required", nil)
	}
	if !r.driver.extractor.Validate(r.req.VideoPath) {
		return services.Wrap(services.ErrValidation, string(StageValidate), "check input", fmt.Sprintf("Unsupported or missing video: %s", r.req.VideoPath), nil)
	}
	if lang := strings.TrimSpace(r.req.Language); lang != "" {
		normalized, err := language.Normalize(lang)
		if err != nil {
			return services.Wrap(services.ErrValidation, string(StageValidate), "language", "Invalid language code", err)
		}
		r.result.Language = normalized
	}
	return nil
}

func (r *run) extract(ctx context.Context, _ *slog.Logger) error {
	r.report(StageExtract, extractStart, "Extracting audio")
	audio, err := r.driver.extractor.Extract(ctx, r.req.VideoPath)
	if err != nil {
		return err
	}
	r.audioPath = audio
	r.report(StageExtract, transcribeStart, "Audio extracted")
	return nil
}

func (r *run) transcribe(ctx context.Context, _ *slog.Logger) error {
	r.report(StageTranscribe, transcribeStart, "Transcribing speech")
	segs, err := r.driver.transcriber.Transcribe(ctx, r.audioPath, r.result.Language, func(current, total float64) {
		if total <= 0 {
			return
		}
		pct := transcribeStart + (current/total)*(correctStart-transcribeStart)
		r.report(StageTranscribe, min(pct, correctStart), fmt.Sprintf("Transcribing speech (%ds / %ds)", int(current), int(total)))
	})
	if err != nil {
		return err
	}
	r.segments = segs
	r.result.Segments = len(segs)
	r.report(StageTranscribe, correctStart, fmt.Sprintf("Transcribed %d segments", len(segs)))
	return nil
}

func (r *run) correct(ctx context.Context, logger *slog.Logger) error {
	r.report(StageCorrect, correctStart, "Correcting subtitles")
	r.result.Corrected = r.driver.corrector.Enabled()
	out, err := r.driver.corrector.Correct(ctx, r.segments, correct.Options{
		BatchSize: r.req.BatchSize,
		OnProgress: func(processed, total int) {
			if total <= 0 {
				return
			}
			pct := correctStart + float64(processed)/float64(total)*(writeStart-correctStart)
			r.report(StageCorrect, min(pct, writeStart), fmt.Sprintf("Correcting subtitles (%d/%d segments)", processed, total))
		},
		OnBatch: func(b correct.BatchResult) {
			switch b.Outcome {
			case correct.OutcomeCorrected:
				r.result.Batches.Corrected++
			case correct.OutcomeReverted:
				r.result.Batches.Reverted++
			case correct.OutcomeFailed:
				r.result.Batches.Failed++
			}
		},
	})
	if err != nil {
		return err
	}
	if len(out) != len(r.segments) {
		// Corrector contract violation; keep the transcription.
		logging.WarnWithContext(logger, "corrector changed segment count; using transcription", "correction_discarded",
			logging.Int("expected", len(r.segments)),
			logging.Int("got", len(out)),
			logging.Alert("segment_count_mismatch"),
		)
		r.result.Corrected = false
		out = r.segments
	}
	r.segments = out
	r.report(StageCorrect, writeStart, "Correction finished")
	return nil
}

func (r *run) write(_ context.Context, logger *slog.Logger) error {
	r.report(StageWrite, writeStart, "Writing subtitles")
	output := strings.TrimSpace(r.req.OutputPath)
	reserved := false
	if output == "" {
		path, err := r.driver.namer.Generate(r.req.VideoPath, r.req.OutputDir)
		if err != nil {
			return services.Wrap(services.ErrConfiguration, string(StageWrite), "name output", "Unable to choose output filename", err)
		}
		output = path
		reserved = true
	}
	if err := subtitles.Write(r.segments, output); err != nil {
		if reserved {
			_ = os.Remove(output)
		}
		return services.Wrap(services.ErrConfiguration, string(StageWrite), "write srt", "Unable to write subtitle file", err)
	}
	if problems := subtitles.ValidateContent(r.segments); len(problems) > 0 {
		logging.WarnWithContext(logger, "subtitle content warnings", "subtitle_validation",
			logging.Any("problems", problems),
			logging.String(logging.FieldImpact, "file written; some cues may display oddly"),
		)
	}
	r.result.OutputPath = output
	r.report(StageWrite, finished, "Subtitles written")
	return nil
}

func (r *run) cleanupAudio() {
	if r.req.KeepAudio || r.audioPath == "" {
		return
	}
	if err := os.Remove(r.audioPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		r.logger.Debug("failed to remove extracted audio", logging.String("path", r.audioPath), logging.Error(err))
	}
}

func (r *run) report(stage Stage, percent float64, message string) {
	if r.sink == nil {
		return
	}
	r.sink.Update(Status{Stage: stage, Percent: percent, Message: message})
}

func hintFor(stage Stage, err error) string {
	switch {
	case errors.Is(err, services.ErrValidation):
		return "check the input path and that it is a supported video container"
	case errors.Is(err, services.ErrNotFound):
		return "the intermediate file disappeared; check the scratch directory"
	}
	switch stage {
	case StageExtract:
		return "check that ffmpeg is installed and can read the video"
	case StageTranscribe:
		return "check the recognizer command and that faster-whisper is installed"
	case StageWrite:
		return "check that the output directory is writable"
	default:
		return "check logs for details"
	}
}
