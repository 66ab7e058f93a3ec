package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"autosub/internal/config"
	"autosub/internal/testsupport"
)

// recognizerOutput is what the stub faster-whisper helper prints: one raw
// segment with stray spacing for correction to fix.
const recognizerOutput = `echo '{"type":"info","duration":2.5,"language":"ko","language_probability":0.98}'
echo '{"type":"segment","start":0.0,"end":2.5,"text":" 안녕 세상 아 ","avg_logprob":-0.2}'
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
	video      string
	argsFile   string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	for _, key := range []string{"GEMINI_API_KEY", "AUTOSUB_API_KEY", "AUTOSUB_FFMPEG", "OTEL_EXPORTER_OTLP_ENDPOINT"} {
		t.Setenv(key, "")
	}

	opts = append([]testsupport.ConfigOption{testsupport.WithFFmpegScript(testsupport.FFmpegWritesOutput)}, opts...)
	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)

	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)

	argsFile := filepath.Join(base, "recognizer-args.txt")
	recognizer := filepath.Join(base, "bin", "whisper-python")
	testsupport.WriteScript(t, recognizer, "printf '%s\\n' \"$@\" > '"+argsFile+"'\n"+recognizerOutput)
	cfg.Transcription.Command = recognizer

	video := filepath.Join(base, "videos", "lecture.mp4")
	testsupport.WriteFile(t, video, 64)

	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(base, "config.toml"),
		baseDir:    base,
		video:      video,
		argsFile:   argsFile,
	}
	env.writeConfig(t)
	return env
}

// writeConfig persists env.cfg so the CLI loads the same settings.
func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	cfg := e.cfg
	content := fmt.Sprintf(`[paths]
scratch_dir = %q
output_dir = %q
log_dir = %q
data_dir = %q

[media]
ffmpeg_binary = %q

[transcription]
command = %q
model_dir = %q

[correction]
enabled = %t
api_key = %q
base_url = %q
retry_delay_seconds = 0
glossary_path = %q
`,
		cfg.Paths.ScratchDir,
		cfg.Paths.OutputDir,
		cfg.Paths.LogDir,
		cfg.Paths.DataDir,
		cfg.Media.FFmpegBinary,
		cfg.Transcription.Command,
		cfg.Transcription.ModelDir,
		cfg.Correction.Enabled,
		cfg.Correction.APIKey,
		cfg.Correction.BaseURL,
		cfg.Correction.GlossaryPath,
	)
	if err := os.WriteFile(e.configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, configPath string, stdin io.Reader, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	if stdin != nil {
		cmd.SetIn(stdin)
	}
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// correctionServer replies to every chat completion with corrected text for
// the single stub segment and counts requests carrying wantKey.
func correctionServer(t *testing.T, wantKey string, calls *int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+wantKey {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
			return
		}
		*calls++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[{\"start\":0,\"end\":2.5,\"text\":\"안녕 세상아\"}]"}}]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
