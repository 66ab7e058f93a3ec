package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
)

// timeLayout keeps a fixed fraction width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrRunNotFound is returned when a run id has no record.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded pipeline execution.
type Run struct {
	RunID             string     `json:"run_id"`
	SourcePath        string     `json:"source"`
	OutputPath        string     `json:"output,omitempty"`
	Language          string     `json:"language,omitempty"`
	Model             string     `json:"model,omitempty"`
	Status            Status     `json:"status"`
	Segments          int        `json:"segments"`
	BatchesCorrected  int        `json:"batches_corrected"`
	BatchesReverted   int        `json:"batches_reverted"`
	BatchesFailed     int        `json:"batches_failed"`
	CorrectionEnabled bool       `json:"correction_enabled"`
	ErrorKind         string     `json:"error_kind,omitempty"`
	ErrorMessage      string     `json:"error_message,omitempty"`
	StartedAt         time.Time  `json:"started_at"`
	FinishedAt        *time.Time `json:"finished_at,omitempty"`
}

// Duration returns the wall time of a finished run, or zero.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Begin records a new running entry.
func (s *Store) Begin(ctx context.Context, runID, sourcePath, language, model string) (*Run, error) {
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return nil, errors.New("run id is required")
	}
	started := s.now().UTC()
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (run_id, source_path, language, model, status, started_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		runID,
		sourcePath,
		nullableString(language),
		nullableString(model),
		StatusRunning,
		started.Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return &Run{
		RunID:      runID,
		SourcePath: sourcePath,
		Language:   language,
		Model:      model,
		Status:     StatusRunning,
		StartedAt:  started,
	}, nil
}

// Finish stores the final state of run. FinishedAt is set to now.
func (s *Store) Finish(ctx context.Context, run *Run) error {
	if run == nil {
		return errors.New("run is required")
	}
	finished := s.now().UTC()
	run.FinishedAt = &finished
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET
            output_path = ?, language = ?, status = ?, segments = ?,
            batches_corrected = ?, batches_reverted = ?, batches_failed = ?,
            correction_enabled = ?, error_kind = ?, error_message = ?, finished_at = ?
        WHERE run_id = ?`,
		nullableString(run.OutputPath),
		nullableString(run.Language),
		run.Status,
		run.Segments,
		run.BatchesCorrected,
		run.BatchesReverted,
		run.BatchesFailed,
		boolToInt(run.CorrectionEnabled),
		nullableString(run.ErrorKind),
		nullableString(run.ErrorMessage),
		finished.Format(timeLayout),
		run.RunID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, run.RunID)
	}
	return nil
}

const selectRunColumns = `run_id, source_path, output_path, language, model, status, segments,
    batches_corrected, batches_reverted, batches_failed, correction_enabled,
    error_kind, error_message, started_at, finished_at`

// Get fetches one run by id.
func (s *Store) Get(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+selectRunColumns+" FROM runs WHERE run_id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	return run, err
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+selectRunColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Prune deletes finished runs that started before cutoff and reports how
// many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(ctx,
		"DELETE FROM runs WHERE started_at < ? AND status != ?",
		cutoff.UTC().Format(timeLayout), StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run                                Run
		output, lang, model, kind, message sql.NullString
		correctionEnabled                  int
		startedRaw                         string
		finishedRaw                        sql.NullString
	)
	if err := scanner.Scan(
		&run.RunID,
		&run.SourcePath,
		&output,
		&lang,
		&model,
		&run.Status,
		&run.Segments,
		&run.BatchesCorrected,
		&run.BatchesReverted,
		&run.BatchesFailed,
		&correctionEnabled,
		&kind,
		&message,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.OutputPath = output.String
	run.Language = lang.String
	run.Model = model.String
	run.ErrorKind = kind.String
	run.ErrorMessage = message.String
	run.CorrectionEnabled = correctionEnabled != 0
	if started, err := time.Parse(timeLayout, startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := time.Parse(timeLayout, finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return &run, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
