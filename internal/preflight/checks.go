package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/mattn/go-shellwords"
	"golang.org/x/sys/unix"

	"autosub/internal/config"
	"autosub/internal/deps"
	"autosub/internal/services"
	"autosub/internal/services/llm"
)

// recognizerImportTimeout bounds the python import check. Importing
// faster_whisper pulls in ctranslate2 which is slow on a cold cache.
const recognizerImportTimeout = 60 * time.Second

// CheckLLM verifies that the LLM API is reachable and the key is valid.
// It uses a 30-second timeout and a single request.
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:         cfg.APIKey,
		BaseURL:        cfg.BaseURL,
		Model:          cfg.Model,
		Referer:        cfg.Referer,
		Title:          cfg.Title,
		TimeoutSeconds: cfg.TimeoutSeconds,
	})

	if err := client.HealthCheck(checkCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("API reachable (%s)", client.Model())}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries a run needs. FFmpeg is
// resolved the same way the extractor resolves it; the recognizer
// interpreter is the first word of transcription.command.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	statuses := []deps.Status{deps.CheckFFmpeg(cfg.Media.FFmpegBinary)}

	interpreter, err := recognizerInterpreter(cfg.Transcription.Command)
	if err != nil {
		statuses = append(statuses, deps.Status{
			Name:        "Recognizer",
			Command:     cfg.Transcription.Command,
			Description: "Runs faster-whisper transcription",
			Detail:      err.Error(),
		})
		return statuses
	}
	return append(statuses, deps.CheckBinaries([]deps.Requirement{{
		Name:        "Recognizer",
		Command:     interpreter,
		Description: "Runs faster-whisper transcription",
	}})...)
}

// CheckRecognizer imports faster_whisper with the configured interpreter.
// A passing binary lookup does not mean the python package is installed.
func CheckRecognizer(ctx context.Context, command string) Result {
	const name = "faster-whisper"

	words, err := shellwords.NewParser().Parse(strings.TrimSpace(command))
	if err != nil || len(words) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("invalid command %q", command)}
	}

	importCtx, cancel := context.WithTimeout(ctx, recognizerImportTimeout)
	defer cancel()

	args := append(append([]string{}, words[1:]...), "-c", "import faster_whisper; print(faster_whisper.__version__)")
	out, err := exec.CommandContext(importCtx, words[0], args...).CombinedOutput()
	if err != nil {
		if errors.Is(importCtx.Err(), context.DeadlineExceeded) {
			return Result{Name: name, Detail: "import timed out"}
		}
		return Result{Name: name, Detail: fmt.Sprintf("import failed: %s", lastLine(string(out), err))}
	}
	version := strings.TrimSpace(string(out))
	if version == "" {
		version = "installed"
	}
	return Result{Name: name, Passed: true, Detail: version}
}

func recognizerInterpreter(command string) (string, error) {
	words, err := shellwords.NewParser().Parse(strings.TrimSpace(command))
	if err != nil {
		return "", fmt.Errorf("parse command: %w", err)
	}
	if len(words) == 0 {
		return "", errors.New("command not configured")
	}
	return words[0], nil
}

func lastLine(output string, fallback error) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return fallback.Error()
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	if errors.Is(err, services.ErrConfiguration) {
		return "API key rejected: " + err.Error()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
