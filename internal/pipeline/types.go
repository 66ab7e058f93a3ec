package pipeline

import (
	"context"
	"time"

	"autosub/internal/segment"
	"autosub/internal/transcribe"
)

// Stage names a pipeline step.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageExtract    Stage = "extract"
	StageTranscribe Stage = "transcribe"
	StageCorrect    Stage = "correct"
	StageWrite      Stage = "write"
	StageDone       Stage = "done"
)

// Overall progress band owned by each stage.
const (
	extractStart    = 0.0
	transcribeStart = 10.0
	correctStart    = 50.0
	writeStart      = 90.0
	finished        = 100.0
)

// Status is one progress update.
type Status struct {
	Stage   Stage
	Percent float64
	Message string
}

// StatusSink receives progress updates in order.
type StatusSink interface {
	Update(Status)
}

// SinkFunc adapts a function to StatusSink.
type SinkFunc func(Status)

func (f SinkFunc) Update(s Status) { f(s) }

// Extractor produces an audio file from a video.
type Extractor interface {
	Validate(path string) bool
	Extract(ctx context.Context, videoPath string) (string, error)
}

// Transcriber turns audio into segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath, language string, onProgress transcribe.ProgressFunc) ([]segment.Segment, error)
}

// Namer picks the output path for a source video.
type Namer interface {
	Generate(sourcePath, outputDir string) (string, error)
}

// Request describes one run.
type Request struct {
	VideoPath string
	// OutputPath is used verbatim when set; otherwise a fresh name is
	// generated inside OutputDir (or next to the video when empty).
	OutputPath string
	OutputDir  string
	Language   string
	// BatchSize overrides the corrector's batch size when > 0.
	BatchSize int
	// KeepAudio leaves the extracted audio in the scratch directory.
	KeepAudio bool
	// RunID identifies the run in logs and history; generated when empty.
	RunID string
}

// Result summarizes a successful run.
type Result struct {
	RunID      string        `json:"run_id"`
	SourcePath string        `json:"source"`
	OutputPath string        `json:"output"`
	Language   string        `json:"language"`
	Segments   int           `json:"segments"`
	Corrected  bool          `json:"corrected"`
	Batches    BatchCounts   `json:"batches"`
	Duration   time.Duration `json:"duration_ns"`
	Stages     []StageTiming `json:"stages"`
}

// BatchCounts tallies correction outcomes.
type BatchCounts struct {
	Corrected int `json:"corrected"`
	Reverted  int `json:"reverted"`
	Failed    int `json:"failed"`
}

// StageTiming records how long one stage took.
type StageTiming struct {
	Stage    Stage         `json:"stage"`
	Duration time.Duration `json:"duration_ns"`
}

// StageError reports which stage failed. It unwraps to the stage's error.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return string(e.Stage) + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }
