package transcribe

import (
	"bufio"
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"

	"autosub/internal/logging"
	"autosub/internal/segment"
)

//go:embed assets/faster_whisper.py
var fasterWhisperScript []byte

// Faster-whisper defaults applied when the configuration leaves them empty.
const (
	DefaultCommand     = "python3"
	DefaultModel       = "large-v3"
	DefaultDevice      = "auto"
	DefaultComputeType = "default"
)

// maxLineBytes bounds one JSON line from the helper.
const maxLineBytes = 1 << 20

// FasterWhisperConfig configures the faster-whisper helper process.
type FasterWhisperConfig struct {
	// Command is the interpreter prefix, parsed with shell-words rules.
	Command     string
	Model       string
	Device      string
	ComputeType string
	ModelDir    string
	// ScriptDir receives the extracted helper script. Empty uses os.TempDir.
	ScriptDir string
}

// FasterWhisper runs the embedded faster-whisper helper and streams its
// JSON-lines output.
type FasterWhisper struct {
	cfg    FasterWhisperConfig
	logger *slog.Logger
	start  startFunc
}

// startFunc launches the helper process. Tests replace it.
type startFunc func(ctx context.Context, name string, args []string) (*exec.Cmd, io.ReadCloser, *bytes.Buffer, error)

// NewFasterWhisper constructs a recognizer backed by faster-whisper.
func NewFasterWhisper(cfg FasterWhisperConfig, logger *slog.Logger) *FasterWhisper {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = DefaultCommand
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.Device) == "" {
		cfg.Device = DefaultDevice
	}
	if strings.TrimSpace(cfg.ComputeType) == "" {
		cfg.ComputeType = DefaultComputeType
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &FasterWhisper{
		cfg:    cfg,
		logger: logger.With(logging.String("component", "faster-whisper")),
		start:  startProcess,
	}
}

// Start launches the helper and waits for its info line, which carries the
// audio duration.
func (f *FasterWhisper) Start(ctx context.Context, req Request) (Stream, error) {
	prefix, err := shellwords.NewParser().Parse(f.cfg.Command)
	if err != nil {
		return nil, fmt.Errorf("parse recognizer command: %w", err)
	}
	if len(prefix) == 0 {
		return nil, errors.New("recognizer command is empty")
	}

	scriptPath, err := f.writeScript()
	if err != nil {
		return nil, err
	}

	args := make([]string, 0, len(prefix)+16)
	args = append(args, prefix[1:]...)
	args = append(args, scriptPath)
	args = append(args, f.buildArgs(req)...)
	f.logger.Debug("starting recognizer",
		logging.String("command", prefix[0]),
		logging.Any("args", args),
	)

	cmd, stdout, stderr, err := f.start(ctx, prefix[0], args)
	if err != nil {
		_ = os.Remove(scriptPath)
		return nil, fmt.Errorf("start recognizer: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	stream := &processStream{
		cmd:        cmd,
		stdout:     stdout,
		stderr:     stderr,
		scanner:    scanner,
		scriptPath: scriptPath,
		logger:     f.logger,
	}

	if err := stream.readInfo(); err != nil {
		_ = stream.Close()
		return nil, err
	}
	return stream, nil
}

func (f *FasterWhisper) buildArgs(req Request) []string {
	model := f.cfg.Model
	if strings.TrimSpace(req.Model) != "" {
		model = req.Model
	}
	device := f.cfg.Device
	if strings.TrimSpace(req.Device) != "" {
		device = req.Device
	}
	args := []string{
		"--audio", req.AudioPath,
		"--model", model,
		"--device", device,
		"--compute-type", f.cfg.ComputeType,
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		args = append(args, "--language", lang)
	}
	if dir := strings.TrimSpace(f.cfg.ModelDir); dir != "" {
		args = append(args, "--model-dir", dir)
	}
	if req.VAD.Enabled {
		args = append(args, "--vad", "--min-silence-ms", strconv.FormatInt(req.VAD.MinSilence.Milliseconds(), 10))
	}
	return args
}

func (f *FasterWhisper) writeScript() (string, error) {
	dir := f.cfg.ScriptDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create script dir: %w", err)
	}
	file, err := os.CreateTemp(dir, "autosub-faster-whisper-*.py")
	if err != nil {
		return "", fmt.Errorf("create helper script: %w", err)
	}
	if _, err := file.Write(fasterWhisperScript); err != nil {
		file.Close()
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("write helper script: %w", err)
	}
	if err := file.Close(); err != nil {
		_ = os.Remove(file.Name())
		return "", fmt.Errorf("close helper script: %w", err)
	}
	return file.Name(), nil
}

func startProcess(ctx context.Context, name string, args []string) (*exec.Cmd, io.ReadCloser, *bytes.Buffer, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, nil, nil, err
	}
	return cmd, stdout, &stderr, nil
}

// helperLine is one JSON object emitted by the helper.
type helperLine struct {
	Type       string   `json:"type"`
	Duration   float64  `json:"duration"`
	Language   string   `json:"language"`
	Start      float64  `json:"start"`
	End        float64  `json:"end"`
	Text       string   `json:"text"`
	AvgLogprob *float64 `json:"avg_logprob"`
	Message    string   `json:"message"`
}

type processStream struct {
	cmd        *exec.Cmd
	stdout     io.ReadCloser
	stderr     *bytes.Buffer
	scanner    *bufio.Scanner
	scriptPath string
	logger     *slog.Logger

	duration float64
	current  segment.Segment
	err      error
	done     bool

	waited    bool
	closeOnce sync.Once
	closeErr  error
}

func (s *processStream) readInfo() error {
	for s.scanner.Scan() {
		line, ok, err := decodeLine(s.scanner.Bytes())
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		switch line.Type {
		case "info":
			s.duration = line.Duration
			s.logger.Debug("recognizer ready",
				logging.Float64("duration_seconds", line.Duration),
				logging.String("detected_language", line.Language),
			)
			return nil
		case "error":
			return fmt.Errorf("recognizer error: %s", line.Message)
		default:
			return fmt.Errorf("recognizer: expected info line, got %q", line.Type)
		}
	}
	return s.exitError("recognizer exited before reporting audio info")
}

func (s *processStream) Next() bool {
	if s.done {
		return false
	}
	for s.scanner.Scan() {
		line, ok, err := decodeLine(s.scanner.Bytes())
		if err != nil {
			s.fail(err)
			return false
		}
		if !ok {
			continue
		}
		switch line.Type {
		case "segment":
			s.current = segment.Segment{
				Start:      line.Start,
				End:        line.End,
				Text:       line.Text,
				Confidence: line.AvgLogprob,
			}
			return true
		case "error":
			s.fail(fmt.Errorf("recognizer error: %s", line.Message))
			return false
		default:
			s.logger.Debug("ignoring recognizer line", logging.String("type", line.Type))
		}
	}
	if err := s.scanner.Err(); err != nil {
		s.fail(fmt.Errorf("read recognizer output: %w", err))
		return false
	}
	s.done = true
	if err := s.wait(); err != nil {
		s.err = err
	}
	return false
}

func (s *processStream) Segment() segment.Segment { return s.current }

func (s *processStream) Err() error { return s.err }

func (s *processStream) Duration() float64 { return s.duration }

// Close stops the helper if it is still running and removes the script.
func (s *processStream) Close() error {
	s.closeOnce.Do(func() {
		if !s.waited {
			s.done = true
			if s.cmd != nil && s.cmd.Process != nil {
				_ = s.cmd.Process.Kill()
			}
			_ = s.stdout.Close()
			_ = s.waitQuiet()
		}
		if s.scriptPath != "" {
			if err := os.Remove(s.scriptPath); err != nil && !errors.Is(err, os.ErrNotExist) {
				s.closeErr = err
			}
		}
	})
	return s.closeErr
}

func (s *processStream) fail(err error) {
	s.err = err
	s.done = true
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
	_ = s.stdout.Close()
	_ = s.waitQuiet()
}

func (s *processStream) wait() error {
	if s.cmd == nil || s.waited {
		return nil
	}
	s.waited = true
	if err := s.cmd.Wait(); err != nil {
		return s.exitErrorWith(err)
	}
	return nil
}

func (s *processStream) waitQuiet() error {
	if s.cmd == nil || s.waited {
		return nil
	}
	s.waited = true
	return s.cmd.Wait()
}

func (s *processStream) exitError(msg string) error {
	err := s.wait()
	if err != nil {
		return err
	}
	return errors.New(msg)
}

func (s *processStream) exitErrorWith(err error) error {
	detail := ""
	if s.stderr != nil {
		detail = strings.TrimSpace(s.stderr.String())
	}
	if detail == "" {
		return fmt.Errorf("recognizer failed: %w", err)
	}
	return fmt.Errorf("recognizer failed: %w: %s", err, detail)
}

// decodeLine parses one helper line. Blank lines and lines that are not
// JSON objects (stray library prints) are skipped.
func decodeLine(raw []byte) (helperLine, bool, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return helperLine{}, false, nil
	}
	var line helperLine
	if err := json.Unmarshal(trimmed, &line); err != nil {
		return helperLine{}, false, fmt.Errorf("decode recognizer output: %w", err)
	}
	return line, true, nil
}
