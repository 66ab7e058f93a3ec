package transcribe_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"autosub/internal/testsupport"
	"autosub/internal/transcribe"
)

func stubPython(t *testing.T, body string) (command, argsFile, scriptDir string) {
	t.Helper()
	dir := t.TempDir()
	argsFile = filepath.Join(dir, "args.txt")
	script := filepath.Join(dir, "python")
	testsupport.WriteScript(t, script, "printf '%s\\n' \"$@\" > '"+argsFile+"'\n"+body)
	scriptDir = filepath.Join(dir, "scripts")
	return script, argsFile, scriptDir
}

func readArgs(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestFasterWhisperStreamsSegments(t *testing.T) {
	body := `echo '{"type":"info","duration":4.5,"language":"ko"}'
echo 'Downloading model...'
echo ''
echo '{"type":"segment","start":0.0,"end":1.5,"text":" first ","avg_logprob":-0.25}'
echo '{"type":"segment","start":1.5,"end":4.5,"text":"second"}'
`
	command, argsFile, scriptDir := stubPython(t, body)
	rec := transcribe.NewFasterWhisper(transcribe.FasterWhisperConfig{
		Command:   command + " -u",
		Model:     "medium",
		ModelDir:  "/models",
		ScriptDir: scriptDir,
	}, nil)

	stream, err := rec.Start(context.Background(), transcribe.Request{
		AudioPath: "/tmp/clip_audio.mp3",
		Language:  "ko",
		VAD:       transcribe.VADOptions{Enabled: true, MinSilence: 500 * time.Millisecond},
	})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if stream.Duration() != 4.5 {
		t.Fatalf("expected duration 4.5, got %v", stream.Duration())
	}

	var texts []string
	for stream.Next() {
		texts = append(texts, stream.Segment().Text)
	}
	if err := stream.Err(); err != nil {
		t.Fatalf("stream error: %v", err)
	}
	if len(texts) != 2 || texts[0] != " first " || texts[1] != "second" {
		t.Fatalf("unexpected texts: %q", texts)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	args := readArgs(t, argsFile)
	if args[0] != "-u" {
		t.Fatalf("expected command flag first, got %q", args)
	}
	if !strings.HasSuffix(args[1], ".py") {
		t.Fatalf("expected helper script path, got %q", args[1])
	}
	if _, err := os.Stat(args[1]); !os.IsNotExist(err) {
		t.Fatalf("expected helper script removed after Close, stat err=%v", err)
	}
	joined := strings.Join(args[2:], " ")
	for _, want := range []string{
		"--audio /tmp/clip_audio.mp3",
		"--model medium",
		"--device auto",
		"--compute-type default",
		"--language ko",
		"--model-dir /models",
		"--vad --min-silence-ms 500",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("expected %q in args %q", want, joined)
		}
	}
}

func TestFasterWhisperRequestOverridesModel(t *testing.T) {
	command, argsFile, scriptDir := stubPython(t, `echo '{"type":"info","duration":1}'
`)
	rec := transcribe.NewFasterWhisper(transcribe.FasterWhisperConfig{Command: command, ScriptDir: scriptDir}, nil)
	stream, err := rec.Start(context.Background(), transcribe.Request{AudioPath: "a.mp3", Model: "tiny", Device: "cpu"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	for stream.Next() {
	}
	_ = stream.Close()
	joined := strings.Join(readArgs(t, argsFile), " ")
	if !strings.Contains(joined, "--model tiny") || !strings.Contains(joined, "--device cpu") {
		t.Fatalf("expected overrides in %q", joined)
	}
	if strings.Contains(joined, "--vad") || strings.Contains(joined, "--language") {
		t.Fatalf("unexpected optional flags in %q", joined)
	}
}

func TestFasterWhisperErrorLineBeforeInfo(t *testing.T) {
	command, _, scriptDir := stubPython(t, `echo '{"type":"error","message":"faster-whisper is not installed"}'
exit 3
`)
	rec := transcribe.NewFasterWhisper(transcribe.FasterWhisperConfig{Command: command, ScriptDir: scriptDir}, nil)
	_, err := rec.Start(context.Background(), transcribe.Request{AudioPath: "a.mp3"})
	if err == nil || !strings.Contains(err.Error(), "not installed") {
		t.Fatalf("expected helper error, got %v", err)
	}
	entries, _ := os.ReadDir(scriptDir)
	if len(entries) != 0 {
		t.Fatalf("expected helper script cleaned up, found %d entries", len(entries))
	}
}

func TestFasterWhisperNonZeroExitCarriesStderr(t *testing.T) {
	command, _, scriptDir := stubPython(t, `echo '{"type":"info","duration":2}'
echo '{"type":"segment","start":0,"end":1,"text":"a"}'
echo 'CUDA out of memory' >&2
exit 1
`)
	rec := transcribe.NewFasterWhisper(transcribe.FasterWhisperConfig{Command: command, ScriptDir: scriptDir}, nil)
	stream, err := rec.Start(context.Background(), transcribe.Request{AudioPath: "a.mp3"})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer stream.Close()
	count := 0
	for stream.Next() {
		count++
	}
	if count != 1 {
		t.Fatalf("expected one segment before failure, got %d", count)
	}
	if err := stream.Err(); err == nil || !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestFasterWhisperExitWithoutInfo(t *testing.T) {
	command, _, scriptDir := stubPython(t, "exit 0\n")
	rec := transcribe.NewFasterWhisper(transcribe.FasterWhisperConfig{Command: command, ScriptDir: scriptDir}, nil)
	if _, err := rec.Start(context.Background(), transcribe.Request{AudioPath: "a.mp3"}); err == nil {
		t.Fatal("expected error when helper reports no info")
	}
}

func TestFasterWhisperBadCommand(t *testing.T) {
	rec := transcribe.NewFasterWhisper(transcribe.FasterWhisperConfig{Command: `python "unterminated`}, nil)
	if _, err := rec.Start(context.Background(), transcribe.Request{AudioPath: "a.mp3"}); err == nil {
		t.Fatal("expected parse error for unterminated quote")
	}
}
