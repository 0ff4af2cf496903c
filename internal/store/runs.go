package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"photodock/internal/services"
)

// Run is the persisted summary of one ingest invocation.
type Run struct {
	ID            string
	Source        string
	Destination   string
	FastMode      bool
	Total         int
	Matched       int
	Unmatched     int
	Uploaded      int
	Failed        int
	Linked        int
	LinkFailed    int
	CropFallbacks int
	Elapsed       time.Duration
	ErrorMessage  string
	StartedAt     time.Time
	FinishedAt    time.Time
	Failures      []Failure
}

// Failure is one item-level error recorded for a run. AssetPublicID is set
// when the upload succeeded but a later step (write-back) failed, leaving an
// unlinked asset behind.
type Failure struct {
	ID            int64
	RunID         string
	Filename      string
	RecordID      string
	Kind          string
	Message       string
	AssetURL      string
	AssetPublicID string
	CleanedAt     time.Time
}

// Unlinked reports whether the failure left an asset that was never cleaned up.
func (f Failure) Unlinked() bool {
	return f.AssetPublicID != "" && f.CleanedAt.IsZero()
}

const runColumns = "id, source, destination, fast_mode, total, matched, unmatched, uploaded, failed, linked, link_failed, crop_fallbacks, elapsed_ms, error_message, started_at, finished_at"

const failureColumns = "id, run_id, filename, record_id, kind, message, asset_url, asset_public_id, cleaned_at"

// SaveRun persists run and its failures in one transaction. Saving an id that
// already exists replaces the earlier summary.
func (s *Store) SaveRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return services.Wrap(services.ErrValidation, "runs", "save", "run id is required", nil)
	}
	ctx = ensureContext(ctx)
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM run_failures WHERE run_id = ?", run.ID); err != nil {
			return fmt.Errorf("replace run %s failures: %w", run.ID, err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", run.ID); err != nil {
			return fmt.Errorf("replace run %s: %w", run.ID, err)
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO runs (`+runColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID,
			nullableString(run.Source),
			nullableString(run.Destination),
			boolToInt(run.FastMode),
			run.Total,
			run.Matched,
			run.Unmatched,
			run.Uploaded,
			run.Failed,
			run.Linked,
			run.LinkFailed,
			run.CropFallbacks,
			run.Elapsed.Milliseconds(),
			nullableString(run.ErrorMessage),
			nullableTime(run.StartedAt),
			nullableTime(run.FinishedAt),
		)
		if err != nil {
			return fmt.Errorf("insert run %s: %w", run.ID, err)
		}
		for _, f := range run.Failures {
			_, err := tx.ExecContext(ctx, `INSERT INTO run_failures
(run_id, filename, record_id, kind, message, asset_url, asset_public_id)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				run.ID, f.Filename, nullableString(f.RecordID), f.Kind,
				nullableString(f.Message), nullableString(f.AssetURL), nullableString(f.AssetPublicID),
			)
			if err != nil {
				return fmt.Errorf("insert failure for %s: %w", f.Filename, err)
			}
		}
		return nil
	})
}

// ListRuns returns run summaries newest first, without failures. A positive
// limit caps the result.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
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
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun loads one run with its failures. A unique id prefix is accepted so
// operators can paste the short form shown by ListRuns.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	ctx = ensureContext(ctx)
	id = strings.TrimSpace(id)
	if id == "" {
		return Run{}, services.Wrap(services.ErrValidation, "runs", "get", "run id is required", nil)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ? OR id LIKE ? ORDER BY id LIMIT 2", id, id+"%")
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}
	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			rows.Close()
			return Run{}, fmt.Errorf("scan run: %w", err)
		}
		matches = append(matches, run)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", id, err)
	}

	var run Run
	switch {
	case len(matches) == 0:
		return Run{}, services.Wrap(services.ErrNotFound, "runs", "get", fmt.Sprintf("run %q", id), nil)
	case len(matches) == 1:
		run = matches[0]
	case matches[0].ID == id:
		run = matches[0]
	case matches[1].ID == id:
		run = matches[1]
	default:
		return Run{}, services.Wrap(services.ErrValidation, "runs", "get", fmt.Sprintf("run id prefix %q is ambiguous", id), nil)
	}

	failures, err := s.listFailures(ctx, "run_id = ?", run.ID)
	if err != nil {
		return Run{}, err
	}
	run.Failures = failures
	return run, nil
}

// UnlinkedAssets returns failures of runID whose uploaded asset was never
// linked to a record nor cleaned up.
func (s *Store) UnlinkedAssets(ctx context.Context, runID string) ([]Failure, error) {
	return s.listFailures(ensureContext(ctx),
		"run_id = ? AND asset_public_id IS NOT NULL AND asset_public_id <> '' AND cleaned_at IS NULL", runID)
}

// MarkCleaned records that the asset attached to failure id was deleted.
func (s *Store) MarkCleaned(ctx context.Context, failureID int64, at time.Time) error {
	if at.IsZero() {
		at = time.Now()
	}
	res, err := s.execWithRetry(ctx, "UPDATE run_failures SET cleaned_at = ? WHERE id = ?", nullableTime(at), failureID)
	if err != nil {
		return fmt.Errorf("mark failure %d cleaned: %w", failureID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return services.Wrap(services.ErrNotFound, "runs", "mark cleaned", fmt.Sprintf("failure %d", failureID), nil)
	}
	return nil
}

func (s *Store) listFailures(ctx context.Context, where string, args ...any) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+failureColumns+" FROM run_failures WHERE "+where+" ORDER BY id", args...)
	if err != nil {
		return nil, fmt.Errorf("list failures: %w", err)
	}
	defer rows.Close()

	var out []Failure
	for rows.Next() {
		var (
			f         Failure
			recordID  sql.NullString
			message   sql.NullString
			assetURL  sql.NullString
			publicID  sql.NullString
			cleanedAt sql.NullString
		)
		if err := rows.Scan(&f.ID, &f.RunID, &f.Filename, &recordID, &f.Kind, &message, &assetURL, &publicID, &cleanedAt); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		f.RecordID = recordID.String
		f.Message = message.String
		f.AssetURL = assetURL.String
		f.AssetPublicID = publicID.String
		if cleaned, err := parseTimeString(cleanedAt.String); err == nil {
			f.CleanedAt = cleaned
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		source      sql.NullString
		destination sql.NullString
		fastMode    int
		elapsedMS   int64
		errMessage  sql.NullString
		startedRaw  sql.NullString
		finishedRaw sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&source,
		&destination,
		&fastMode,
		&run.Total,
		&run.Matched,
		&run.Unmatched,
		&run.Uploaded,
		&run.Failed,
		&run.Linked,
		&run.LinkFailed,
		&run.CropFallbacks,
		&elapsedMS,
		&errMessage,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}
	run.Source = source.String
	run.Destination = destination.String
	run.FastMode = fastMode != 0
	run.Elapsed = time.Duration(elapsedMS) * time.Millisecond
	run.ErrorMessage = errMessage.String
	if started, err := parseTimeString(startedRaw.String); err == nil {
		run.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw.String); err == nil {
		run.FinishedAt = finished
	}
	return run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
