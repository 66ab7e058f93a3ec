package subtitles

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"autosub/internal/fileutil"
	"autosub/internal/textutil"
)

const (
	timestampLayout  = "20060102_150405"
	maxNameAttempts  = 10000
	fallbackFileStem = "subtitles"
)

// Clock returns the current time. Tests substitute a fixed clock.
type Clock func() time.Time

// Namer picks output filenames of the form <stem>_<YYYYMMDD_HHMMSS>.srt.
type Namer struct {
	now Clock
}

// NewNamer returns a Namer using now, or time.Now when nil.
func NewNamer(now Clock) *Namer {
	if now == nil {
		now = time.Now
	}
	return &Namer{now: now}
}

// GenerateOutputFilename returns a fresh SRT path for sourcePath inside
// outputDir. When <stem>_<timestamp>.srt exists a numeric suffix _1, _2, ...
// is appended. The chosen path is reserved by creating it empty, so two calls
// within the same second never return the same name.
func GenerateOutputFilename(sourcePath, outputDir string) (string, error) {
	return NewNamer(nil).Generate(sourcePath, outputDir)
}

// Generate implements GenerateOutputFilename with the Namer's clock.
func (n *Namer) Generate(sourcePath, outputDir string) (string, error) {
	if strings.TrimSpace(outputDir) == "" {
		outputDir = filepath.Dir(sourcePath)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	base := filepath.Base(sourcePath)
	stem := textutil.SanitizeFileName(strings.TrimSuffix(base, filepath.Ext(base)))
	if stem == "" || stem == "." {
		stem = fallbackFileStem
	}
	prefix := stem + "_" + n.now().Format(timestampLayout)

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := prefix + ".srt"
		if attempt > 0 {
			name = fmt.Sprintf("%s_%d.srt", prefix, attempt)
		}
		candidate := filepath.Join(outputDir, name)
		err := fileutil.CreateExclusive(candidate, 0o644)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("reserve output file: %w", err)
		}
	}
	return "", fmt.Errorf("no free output filename for %s after %d attempts", prefix, maxNameAttempts)
}
