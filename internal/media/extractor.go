package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"autosub/internal/deps"
	"autosub/internal/logging"
	"autosub/internal/services"
)

const stageName = "extract"

// DefaultAudioQuality is the libmp3lame VBR quality used when none is set.
const DefaultAudioQuality = 2

var supportedExtensions = []string{".mp4", ".mkv", ".avi", ".mov", ".webm"}

// SupportedExtensions lists the accepted container extensions (lower case,
// with leading dot).
func SupportedExtensions() []string {
	return slices.Clone(supportedExtensions)
}

// CommandRunner executes name with args and returns captured stderr.
type CommandRunner func(ctx context.Context, name string, args ...string) (stderr []byte, err error)

// Options configures an Extractor.
type Options struct {
	ScratchDir   string
	FFmpegBinary string
	// AudioQuality is the libmp3lame VBR quality (0 best, 9 worst). Nil
	// selects DefaultAudioQuality.
	AudioQuality *int
	// MaxInputBytes rejects larger inputs; zero disables the check.
	MaxInputBytes int64
}

// Extractor validates video files and extracts their audio track to MP3 in
// a scratch directory.
type Extractor struct {
	scratchDir string
	ffmpeg     string
	quality    int
	maxBytes   int64
	logger     *slog.Logger
	run        CommandRunner
}

// NewExtractor resolves ffmpeg and ensures the scratch directory exists.
// A missing ffmpeg binary is a configuration error.
func NewExtractor(opts Options, logger *slog.Logger) (*Extractor, error) {
	scratch := strings.TrimSpace(opts.ScratchDir)
	if scratch == "" {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", "scratch directory is required", nil)
	}
	if err := os.MkdirAll(scratch, 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", "create scratch directory", err)
	}
	res, err := deps.ResolveFFmpeg(opts.FFmpegBinary)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", "locate ffmpeg", err)
	}
	quality := DefaultAudioQuality
	if opts.AudioQuality != nil {
		quality = *opts.AudioQuality
	}
	if quality < 0 || quality > 9 {
		return nil, services.Wrap(services.ErrConfiguration, stageName, "init", fmt.Sprintf("audio quality %d outside 0-9", quality), nil)
	}
	logger = logging.NewComponentLogger(logger, "extractor")
	logger.Debug("ffmpeg resolved",
		logging.String("ffmpeg_path", res.Path),
		logging.String("ffmpeg_source", res.Source),
	)
	return &Extractor{
		scratchDir: scratch,
		ffmpeg:     res.Path,
		quality:    quality,
		maxBytes:   opts.MaxInputBytes,
		logger:     logger,
		run:        runCommand,
	}, nil
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner CommandRunner) {
	if runner != nil {
		e.run = runner
	}
}

// FFmpegPath returns the resolved ffmpeg binary.
func (e *Extractor) FFmpegPath() string {
	return e.ffmpeg
}

// Validate reports whether path names an existing regular file with a
// supported container extension. Rejections are logged with the reason.
func (e *Extractor) Validate(path string) bool {
	if err := e.check(path); err != nil {
		e.logger.Warn("input rejected",
			logging.String(logging.FieldSource, path),
			logging.String("reason", err.Error()),
			logging.String(logging.FieldEventType, "input_rejected"),
		)
		return false
	}
	return true
}

func (e *Extractor) check(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return errors.New("file does not exist")
		}
		return fmt.Errorf("stat: %w", err)
	}
	if !info.Mode().IsRegular() {
		return errors.New("not a regular file")
	}
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(supportedExtensions, ext) {
		return fmt.Errorf("unsupported container %q (supported: %s)", ext, strings.Join(supportedExtensions, ", "))
	}
	if e.maxBytes > 0 && info.Size() > e.maxBytes {
		return fmt.Errorf("file is %d bytes, limit is %d", info.Size(), e.maxBytes)
	}
	return nil
}

// AudioPathFor returns the scratch path Extract writes for videoPath.
func (e *Extractor) AudioPathFor(videoPath string) string {
	base := filepath.Base(videoPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(e.scratchDir, stem+"_audio.mp3")
}

// Extract writes the audio track of videoPath to <scratch>/<stem>_audio.mp3,
// overwriting any previous file, and returns that path.
func (e *Extractor) Extract(ctx context.Context, videoPath string) (string, error) {
	if err := e.check(videoPath); err != nil {
		return "", services.Wrap(services.ErrValidation, stageName, "validate", fmt.Sprintf("invalid video %q", videoPath), err)
	}
	if err := os.MkdirAll(e.scratchDir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, stageName, "prepare", "create scratch directory", err)
	}

	output := e.AudioPathFor(videoPath)
	args := e.buildArgs(videoPath, output)
	logger := logging.WithContext(ctx, e.logger)
	logger.Info("extracting audio",
		logging.String(logging.FieldSource, videoPath),
		logging.String("audio_path", output),
	)

	stderr, err := e.run(ctx, e.ffmpeg, args...)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		detail := strings.TrimSpace(string(stderr))
		return "", services.Wrap(services.ErrExternalTool, stageName, "ffmpeg", detail, err)
	}
	if _, err := os.Stat(output); err != nil {
		return "", services.Wrap(services.ErrExternalTool, stageName, "ffmpeg", "ffmpeg reported success but produced no output", err)
	}
	logger.Debug("audio extracted", logging.String("audio_path", output))
	return output, nil
}

func (e *Extractor) buildArgs(input, output string) []string {
	return []string{
		"-hide_banner",
		"-loglevel", "error",
		"-y",
		"-i", input,
		"-vn",
		"-acodec", "libmp3lame",
		"-q:a", strconv.Itoa(e.quality),
		output,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}
