package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

const runColumns = `id, reference, content_id, status, stage, method, transcript_path,
    segment_count, error_kind, error_message, started_at, finished_at`

// Begin inserts a running row. StartedAt defaults to now.
func (s *Store) Begin(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("history: run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.Stage == "" {
		run.Stage = "start"
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (id, reference, content_id, status, stage, started_at)
        VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Reference,
		nullableString(run.ContentID),
		StatusRunning,
		run.Stage,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Stage records the orchestrator state a running row has reached.
func (s *Store) Stage(ctx context.Context, id, stage string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET stage = ? WHERE id = ? AND status = ?`,
		stage, id, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("update run stage: %w", err)
	}
	return requireRow(res, id)
}

// Finish stamps the outcome of a run.
func (s *Store) Finish(ctx context.Context, id string, outcome Outcome) error {
	if outcome.Status != StatusComplete && outcome.Status != StatusFailed {
		return fmt.Errorf("history: invalid final status %q", outcome.Status)
	}
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, method = ?, transcript_path = ?, segment_count = ?,
            error_kind = ?, error_message = ?, finished_at = ?
        WHERE id = ?`,
		outcome.Status,
		nullableString(outcome.Method),
		nullableString(outcome.TranscriptPath),
		outcome.Segments,
		nullableString(outcome.ErrorKind),
		nullableString(outcome.ErrorMessage),
		formatTime(time.Now()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return requireRow(res, id)
}

// Get returns the run with id, or nil if none exists.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the most recent runs first. A limit <= 0 returns every row.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// ForContent returns runs for one content identifier, newest first.
func (s *Store) ForContent(ctx context.Context, contentID string) ([]Run, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT `+runColumns+` FROM runs WHERE content_id = ? ORDER BY started_at DESC, id DESC`, contentID)
	if err != nil {
		return nil, fmt.Errorf("list runs for content: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Summarize counts runs by status and completed runs by method.
func (s *Store) Summarize(ctx context.Context) (Summary, error) {
	summary := Summary{ByMethod: map[string]int{}}
	rows, err := s.db.QueryContext(ensureContext(ctx),
		`SELECT status, COALESCE(method, ''), COUNT(1) FROM runs GROUP BY status, method`)
	if err != nil {
		return summary, fmt.Errorf("summarize runs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status Status
			method string
			count  int
		)
		if err := rows.Scan(&status, &method, &count); err != nil {
			return summary, err
		}
		summary.Total += count
		switch status {
		case StatusRunning:
			summary.Running += count
		case StatusComplete:
			summary.Complete += count
			if method != "" {
				summary.ByMethod[method] += count
			}
		case StatusFailed:
			summary.Failed += count
		}
	}
	return summary, rows.Err()
}

// ResetInterrupted marks rows still running as failed. Call it once at startup
// while holding the run lock.
func (s *Store) ResetInterrupted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs SET status = ?, error_kind = ?, error_message = ?, finished_at = ?
        WHERE status = ?`,
		StatusFailed,
		InterruptedKind,
		"process exited before the run finished",
		formatTime(time.Now()),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset interrupted runs: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes finished rows and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM runs WHERE status != ?`, StatusRunning)
	if err != nil {
		return 0, fmt.Errorf("clear runs: %w", err)
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                                   Run
		contentID, method, transcriptPath     sql.NullString
		errorKind, errorMessage, finishedText sql.NullString
		startedText                           string
	)
	if err := row.Scan(
		&run.ID,
		&run.Reference,
		&contentID,
		&run.Status,
		&run.Stage,
		&method,
		&transcriptPath,
		&run.Segments,
		&errorKind,
		&errorMessage,
		&startedText,
		&finishedText,
	); err != nil {
		return nil, err
	}
	run.ContentID = contentID.String
	run.Method = method.String
	run.TranscriptPath = transcriptPath.String
	run.ErrorKind = errorKind.String
	run.ErrorMessage = errorMessage.String
	run.StartedAt = parseTime(startedText)
	if finishedText.Valid {
		run.FinishedAt = parseTime(finishedText.String)
	}
	return &run, nil
}

func requireRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("history: no run with id %q", id)
	}
	return nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
