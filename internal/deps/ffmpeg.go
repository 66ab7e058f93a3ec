package deps

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// MinSidecarBytes is the smallest bundled ffmpeg accepted as real. Smaller
// files are usually Git LFS pointers or truncated downloads.
const MinSidecarBytes = 1024

// Where an ffmpeg binary was found.
const (
	SourceOverride = "override"
	SourceSidecar  = "sidecar"
	SourcePath     = "path"
)

// ErrFFmpegNotFound is returned when no ffmpeg binary could be located.
var ErrFFmpegNotFound = errors.New("ffmpeg binary not found")

// FFmpegResolver locates the ffmpeg executable. The lookup order is an
// explicit override, then tools/ffmpeg next to the running executable, then
// "ffmpeg" on PATH.
type FFmpegResolver struct {
	Override      string
	ExecutableDir string
	LookPath      func(string) (string, error)
}

// Resolution is the outcome of a successful lookup.
type Resolution struct {
	Path   string
	Source string
}

// ResolveFFmpeg resolves ffmpeg relative to the current executable.
func ResolveFFmpeg(override string) (Resolution, error) {
	r := FFmpegResolver{Override: override}
	if exe, err := os.Executable(); err == nil {
		if resolved, err := filepath.EvalSymlinks(exe); err == nil {
			exe = resolved
		}
		r.ExecutableDir = filepath.Dir(exe)
	}
	return r.Resolve()
}

// Resolve runs the lookup.
func (r FFmpegResolver) Resolve() (Resolution, error) {
	lookPath := r.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	if override := strings.TrimSpace(r.Override); override != "" {
		if strings.ContainsRune(override, os.PathSeparator) {
			info, err := os.Stat(override)
			if err != nil {
				return Resolution{}, fmt.Errorf("%w: override %q: %w", ErrFFmpegNotFound, override, err)
			}
			if !isExecutable(info) {
				return Resolution{}, fmt.Errorf("%w: override %q is not executable", ErrFFmpegNotFound, override)
			}
			return Resolution{Path: override, Source: SourceOverride}, nil
		}
		resolved, err := lookPath(override)
		if err != nil {
			return Resolution{}, fmt.Errorf("%w: override %q: %w", ErrFFmpegNotFound, override, err)
		}
		return Resolution{Path: resolved, Source: SourceOverride}, nil
	}

	if candidate, ok := sidecarCandidate(r.ExecutableDir); ok {
		return Resolution{Path: candidate, Source: SourceSidecar}, nil
	}

	resolved, err := lookPath(ffmpegName())
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: not bundled and not on PATH", ErrFFmpegNotFound)
	}
	return Resolution{Path: resolved, Source: SourcePath}, nil
}

// CheckFFmpeg reports the ffmpeg binary the extractor will execute.
func CheckFFmpeg(override string) Status {
	status := Status{Name: "FFmpeg", Description: "Extracts audio from video files"}
	res, err := ResolveFFmpeg(override)
	if err != nil {
		status.Command = ffmpegName()
		status.Detail = err.Error()
		return status
	}
	status.Command = res.Path
	status.Available = true
	status.Detail = res.Source
	return status
}

func sidecarCandidate(exeDir string) (string, bool) {
	if strings.TrimSpace(exeDir) == "" {
		return "", false
	}
	candidate := filepath.Join(exeDir, "tools", ffmpegName())
	info, err := os.Stat(candidate)
	if err != nil || !isExecutable(info) || info.Size() < MinSidecarBytes {
		return "", false
	}
	return candidate, true
}

func ffmpegName() string {
	if runtime.GOOS == "windows" {
		return "ffmpeg.exe"
	}
	return "ffmpeg"
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}
