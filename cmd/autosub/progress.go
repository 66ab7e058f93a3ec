package main

import (
	"io"
	"log/slog"
	"time"

	"github.com/schollz/progressbar/v3"

	"autosub/internal/logging"
	"autosub/internal/pipeline"
)

// progressReporter renders pipeline status updates. It draws a bar when the
// target is a terminal and falls back to sampled log lines otherwise.
type progressReporter struct {
	bar     *progressbar.ProgressBar
	sampler *logging.ProgressSampler
	logger  *slog.Logger
	stage   pipeline.Stage
}

func newProgressReporter(out io.Writer, interactive bool, logger *slog.Logger) *progressReporter {
	r := &progressReporter{logger: logger}
	if interactive {
		r.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(out),
			progressbar.OptionSetDescription("validate"),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(out, "\n") }),
		)
		return r
	}
	r.sampler = logging.NewProgressSampler(10)
	return r
}

// Update implements pipeline.StatusSink.
func (r *progressReporter) Update(s pipeline.Status) {
	if r.bar != nil {
		if s.Stage != r.stage {
			r.stage = s.Stage
			r.bar.Describe(string(s.Stage))
		}
		_ = r.bar.Set(int(s.Percent))
		return
	}
	if r.logger == nil || !r.sampler.ShouldLog(s.Percent, string(s.Stage)) {
		return
	}
	r.logger.Info("progress",
		logging.String(logging.FieldEventType, "progress"),
		logging.String(logging.FieldStage, string(s.Stage)),
		logging.Float64(logging.FieldProgressPercent, s.Percent),
		logging.String("message", s.Message),
	)
}

// Close clears an unfinished bar so error output starts on a clean line.
func (r *progressReporter) Close() {
	if r.bar != nil && !r.bar.IsFinished() {
		_ = r.bar.Exit()
	}
}
