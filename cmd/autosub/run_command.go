package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"autosub/internal/config"
	"autosub/internal/correct"
	"autosub/internal/credentials"
	"autosub/internal/history"
	"autosub/internal/logging"
	"autosub/internal/media"
	"autosub/internal/pipeline"
	"autosub/internal/preflight"
	"autosub/internal/services"
	"autosub/internal/telemetry"
	"autosub/internal/transcribe"
	"autosub/internal/workdir"
)

type runOptions struct {
	output     string
	scratchDir string
	language   string
	model      string
	noCorrect  bool
	batchSize  int
	jsonOutput bool
	keepAudio  bool
}

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <video>",
		Short: "Transcribe a video and write a corrected SRT file",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("provide the path to a video file. Example: autosub run lecture.mp4\nRun autosub run --help for more details")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load configuration: %w", err)
			}
			return executeRun(cmd, ctx, cfg, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Subtitle output file or directory (default: next to the video)")
	cmd.Flags().StringVar(&opts.scratchDir, "scratch-dir", "", "Directory for extracted audio (overrides paths.scratch_dir)")
	cmd.Flags().StringVar(&opts.language, "language", "", "Spoken language code (overrides transcription.language)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Whisper model size (overrides transcription.model)")
	cmd.Flags().BoolVar(&opts.noCorrect, "no-correct", false, "Skip LLM correction and write the raw transcription")
	cmd.Flags().IntVar(&opts.batchSize, "batch-size", 0, "Segments per correction request (overrides correction.batch_size)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Print the run result as JSON")
	cmd.Flags().BoolVar(&opts.keepAudio, "keep-audio", false, "Keep the extracted audio in the scratch directory")
	return cmd
}

func executeRun(cmd *cobra.Command, cmdCtx *commandContext, base *config.Config, videoArg string, opts runOptions) error {
	source, err := config.ExpandPath(strings.TrimSpace(videoArg))
	if err != nil || source == "" {
		return fmt.Errorf("resolve video path %q", videoArg)
	}
	if opts.batchSize < 0 {
		return fmt.Errorf("--batch-size must be positive")
	}

	cfg, err := applyRunOverrides(base, opts)
	if err != nil {
		return err
	}
	req, err := buildRunRequest(source, cfg, opts)
	if err != nil {
		return err
	}

	logger, err := cmdCtx.newLogger(cfg)
	if err != nil {
		return err
	}

	lock, err := workdir.Acquire(cfg.Paths.ScratchDir)
	if err != nil {
		if errors.Is(err, workdir.ErrBusy) {
			return fmt.Errorf("%w (%s)", err, cfg.Paths.ScratchDir)
		}
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("scratch lock release failed", logging.Error(err))
		}
	}()

	if failed := preflight.Failed(preflight.RunAll(cfg)); len(failed) > 0 {
		return preflightError(failed)
	}

	runCtx := cmd.Context()
	if runCtx == nil {
		runCtx = context.Background()
	}

	provider, err := telemetry.Setup(runCtx, cfg.Telemetry, logger)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", logging.Error(err))
		}
	}()

	driver, corrector, err := buildDriver(cmdCtx, cfg, logger)
	if err != nil {
		return err
	}

	store := openHistoryForRun(cmdCtx, cfg, logger)
	if store != nil {
		defer store.Close()
	}
	record := beginHistory(runCtx, store, req, cfg, logger)

	interactive := !opts.jsonOutput && isTerminal(cmd.ErrOrStderr())
	reporter := newProgressReporter(cmd.ErrOrStderr(), interactive, logger)
	result, runErr := driver.Run(runCtx, req, reporter)
	reporter.Close()

	finishHistory(store, record, result, corrector.Enabled(), runErr, logger)

	if runErr != nil {
		return runErr
	}
	if opts.jsonOutput {
		return writeJSON(cmd, result)
	}
	printRunSummary(cmd.OutOrStdout(), result, isTerminal(cmd.OutOrStdout()))
	return nil
}

// applyRunOverrides returns a copy of base with the per-run flags applied.
func applyRunOverrides(base *config.Config, opts runOptions) (*config.Config, error) {
	cfg := *base
	if dir := strings.TrimSpace(opts.scratchDir); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return nil, fmt.Errorf("resolve --scratch-dir: %w", err)
		}
		cfg.Paths.ScratchDir = expanded
	}
	if model := strings.TrimSpace(opts.model); model != "" {
		cfg.Transcription.Model = model
	}
	if lang := strings.TrimSpace(opts.language); lang != "" {
		cfg.Transcription.Language = lang
	}
	if opts.noCorrect {
		cfg.Correction.Enabled = false
	}
	if opts.batchSize > 0 {
		cfg.Correction.BatchSize = opts.batchSize
	}
	return &cfg, nil
}

// buildRunRequest resolves --output: an existing directory (or a path with a
// trailing separator) receives a generated name, anything else is used as
// the exact file path. Without --output the configured output_dir is used,
// and an empty output_dir places the file next to the video.
func buildRunRequest(source string, cfg *config.Config, opts runOptions) (pipeline.Request, error) {
	req := pipeline.Request{
		VideoPath: source,
		Language:  cfg.Transcription.Language,
		BatchSize: opts.batchSize,
		KeepAudio: opts.keepAudio,
		RunID:     uuid.NewString(),
		OutputDir: cfg.Paths.OutputDir,
	}
	output := strings.TrimSpace(opts.output)
	if output == "" {
		return req, nil
	}
	trailing := strings.HasSuffix(output, string(os.PathSeparator))
	expanded, err := config.ExpandPath(output)
	if err != nil {
		return req, fmt.Errorf("resolve --output: %w", err)
	}
	if info, statErr := os.Stat(expanded); trailing || (statErr == nil && info.IsDir()) {
		req.OutputDir = expanded
		return req, nil
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return req, fmt.Errorf("create output directory: %w", err)
	}
	req.OutputPath = expanded
	return req, nil
}

func buildDriver(cmdCtx *commandContext, cfg *config.Config, logger *slog.Logger) (*pipeline.Driver, correct.Corrector, error) {
	quality := cfg.Media.AudioQuality
	extractor, err := media.NewExtractor(media.Options{
		ScratchDir:    cfg.Paths.ScratchDir,
		FFmpegBinary:  cfg.Media.FFmpegBinary,
		AudioQuality:  &quality,
		MaxInputBytes: cfg.MaxInputBytes(),
	}, logger)
	if err != nil {
		return nil, nil, err
	}

	recognizer := transcribe.NewFasterWhisper(transcribe.FasterWhisperConfig{
		Command:     cfg.Transcription.Command,
		Model:       cfg.Transcription.Model,
		Device:      cfg.Transcription.Device,
		ComputeType: cfg.Transcription.ComputeType,
		ModelDir:    cfg.Transcription.ModelDir,
		ScriptDir:   cfg.Paths.ScratchDir,
	}, logger)
	transcriber := transcribe.New(recognizer, transcribe.Options{
		Model:      cfg.Transcription.Model,
		Device:     cfg.Transcription.Device,
		MinSilence: cfg.MinSilence(),
	}, logger)

	apiKey, source, err := credentials.ResolveAPIKey(cfg.Correction.APIKey, cmdCtx.credentialStore(cfg))
	if err != nil {
		logging.WarnWithContext(logger, "credential store unreadable", "credential_store_error",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "Run autosub auth set to rewrite the stored key"),
		)
	}
	if apiKey != "" {
		logger.Debug("correction api key resolved", logging.String("source", source))
	}
	corrector, err := correct.FromConfig(cfg, apiKey, logger)
	if err != nil {
		return nil, nil, err
	}

	driver, err := pipeline.New(pipeline.Deps{
		Extractor:   extractor,
		Transcriber: transcriber,
		Corrector:   corrector,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	return driver, corrector, nil
}

func openHistoryForRun(cmdCtx *commandContext, cfg *config.Config, logger *slog.Logger) *history.Store {
	store, err := cmdCtx.openHistory(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "run history unavailable", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run will not appear in autosub history"),
		)
		return nil
	}
	return store
}

func beginHistory(ctx context.Context, store *history.Store, req pipeline.Request, cfg *config.Config, logger *slog.Logger) *history.Run {
	if store == nil {
		return nil
	}
	record, err := store.Begin(ctx, req.RunID, req.VideoPath, req.Language, cfg.Transcription.Model)
	if err != nil {
		logger.Warn("record run start failed", logging.Error(err))
		return nil
	}
	return record
}

// finishHistory records the outcome. It uses a fresh context so canceled
// runs are still written.
func finishHistory(store *history.Store, record *history.Run, result pipeline.Result, correctionEnabled bool, runErr error, logger *slog.Logger) {
	if store == nil || record == nil {
		return
	}
	record.OutputPath = result.OutputPath
	if result.Language != "" {
		record.Language = result.Language
	}
	record.Segments = result.Segments
	record.BatchesCorrected = result.Batches.Corrected
	record.BatchesReverted = result.Batches.Reverted
	record.BatchesFailed = result.Batches.Failed
	record.CorrectionEnabled = correctionEnabled
	record.Status = history.StatusCompleted
	if runErr != nil {
		record.Status = history.StatusFailed
		record.ErrorKind = services.Classify(runErr)
		record.ErrorMessage = runErr.Error()
		if record.ErrorKind == services.KindCanceled {
			record.Status = history.StatusCanceled
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Finish(ctx, record); err != nil {
		logger.Warn("record run outcome failed", logging.Error(err))
	}
}

func preflightError(failed []preflight.Result) error {
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return fmt.Errorf("preflight failed (run autosub check for details): %s", strings.Join(parts, "; "))
}

func printRunSummary(out io.Writer, result pipeline.Result, colorize bool) {
	fmt.Fprintln(out, "Subtitle run complete")
	fmt.Fprintln(out, renderStatusLine("Output", statusOK, result.OutputPath, colorize))
	fmt.Fprintln(out, renderStatusLine("Segments", statusInfo, fmt.Sprintf("%d", result.Segments), colorize))
	fmt.Fprintln(out, renderStatusLine("Language", statusInfo, result.Language, colorize))

	switch {
	case !result.Corrected:
		fmt.Fprintln(out, renderStatusLine("Correction", statusWarn, "skipped (raw transcription)", colorize))
	case result.Batches.Reverted+result.Batches.Failed > 0:
		fmt.Fprintln(out, renderStatusLine("Correction", statusWarn, batchSummary(result.Batches), colorize))
	default:
		fmt.Fprintln(out, renderStatusLine("Correction", statusOK, batchSummary(result.Batches), colorize))
	}
	fmt.Fprintln(out, renderStatusLine("Elapsed", statusInfo, result.Duration.Round(time.Millisecond).String(), colorize))
}

func batchSummary(b pipeline.BatchCounts) string {
	return fmt.Sprintf("%d corrected, %d reverted, %d failed", b.Corrected, b.Reverted, b.Failed)
}
