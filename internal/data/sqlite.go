package data

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	apperrors "APKBackup/internal/errors"
	"APKBackup/internal/report"
)

const module = "data"

const schema = `
CREATE TABLE IF NOT EXISTS releases (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id           TEXT    NOT NULL,
	recorded_at      TEXT    NOT NULL,
	app_name         TEXT    NOT NULL,
	release_id       TEXT    NOT NULL,
	release_version  TEXT    NOT NULL,
	download_url     TEXT    NOT NULL,
	download_attempt INTEGER NOT NULL,
	download_status  TEXT    NOT NULL,
	upload_status    TEXT    NOT NULL,
	fingerprint      TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS releases_run_id ON releases(run_id);
CREATE INDEX IF NOT EXISTS releases_app_release ON releases(app_name, release_id);
`

// SQLiteRepository persists history using a SQLite database file.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository wires a SQLite-backed implementation of Repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db: db,
	}
}

// Open opens (creating if needed) the database at path and bootstraps it.
func Open(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to create database directory", err).
				WithModule(module).
				WithOperation("Open").
				WithField("path", path)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to open database", err).
			WithModule(module).
			WithOperation("Open").
			WithField("path", path)
	}
	db.SetMaxOpenConns(1)

	repo := NewSQLiteRepository(db)
	if err := repo.Bootstrap(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// Bootstrap creates the schema.
func (r *SQLiteRepository) Bootstrap(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to create schema", err).
			WithModule(module).
			WithOperation("Bootstrap")
	}
	return nil
}

// Record inserts row under runID.
func (r *SQLiteRepository) Record(ctx context.Context, runID string, row report.Row) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO releases (run_id, recorded_at, app_name, release_id, release_version,
	download_url, download_attempt, download_status, upload_status, fingerprint)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		row.Timestamp.Format(time.RFC3339Nano),
		row.AppName,
		row.ReleaseID,
		row.ReleaseVersion,
		row.DownloadURL,
		row.DownloadAttempt,
		row.DownloadStatus,
		row.UploadStatus,
		row.Fingerprint,
	)
	if err != nil {
		return apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to record release", err).
			WithModule(module).
			WithOperation("Record").
			WithFields(apperrors.Metadata{"run_id": runID, "app": row.AppName, "release_id": row.ReleaseID})
	}
	return nil
}

// Run returns the rows recorded for runID.
func (r *SQLiteRepository) Run(ctx context.Context, runID string) ([]report.Row, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT recorded_at, app_name, release_id, release_version, download_url,
	download_attempt, download_status, upload_status, fingerprint
FROM releases WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to query run", err).
			WithModule(module).
			WithOperation("Run").
			WithField("run_id", runID)
	}
	defer rows.Close()

	var out []report.Row
	for rows.Next() {
		var (
			row        report.Row
			recordedAt string
		)
		if err := rows.Scan(&recordedAt, &row.AppName, &row.ReleaseID, &row.ReleaseVersion, &row.DownloadURL,
			&row.DownloadAttempt, &row.DownloadStatus, &row.UploadStatus, &row.Fingerprint); err != nil {
			return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to scan row", err).
				WithModule(module).
				WithOperation("Run")
		}
		row.Timestamp, _ = time.Parse(time.RFC3339Nano, recordedAt)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.DatabaseError(apperrors.CodeDatabaseGeneric, "failed to read rows", err).
			WithModule(module).
			WithOperation("Run")
	}
	return out, nil
}

// Files lists the database at path and the journal files SQLite may keep
// beside it.
func Files(path string) []string {
	return []string{path, path + "-journal", path + "-wal", path + "-shm"}
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}

// Sink adapts repo to report.Sink for a single run.
func Sink(repo Repository, runID string) report.Sink {
	return &runSink{repo: repo, runID: runID}
}

type runSink struct {
	repo  Repository
	runID string
}

func (s *runSink) Append(ctx context.Context, row report.Row) error {
	return s.repo.Record(ctx, s.runID, row)
}

var _ Repository = (*SQLiteRepository)(nil)
