package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"APKBackup/internal/report"
)

func TestRecordAndReadRun(t *testing.T) {
	ctx := context.Background()
	repo, err := Open(ctx, filepath.Join(t.TempDir(), "nested", "history.db"))
	require.NoError(t, err)
	defer repo.Close()

	ts := time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)
	first := report.Row{
		Timestamp:       ts,
		AppName:         "alpha",
		ReleaseID:       "7",
		ReleaseVersion:  "1.0.0",
		DownloadURL:     "https://cdn.example.com/a.apk",
		DownloadAttempt: 2,
		DownloadStatus:  "Success",
		UploadStatus:    "Success",
		Fingerprint:     "5eb63bbbe01eeed093cb22bb8f5acdc3",
	}
	second := first
	second.AppName = "beta"

	sink := Sink(repo, "run-1")
	require.NoError(t, sink.Append(ctx, first))
	require.NoError(t, sink.Append(ctx, second))
	require.NoError(t, repo.Record(ctx, "run-2", first))

	rows, err := repo.Run(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, first, rows[0])
	assert.Equal(t, "beta", rows[1].AppName)

	rows, err = repo.Run(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestBootstrapIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "history.db")

	repo, err := Open(ctx, path)
	require.NoError(t, err)
	require.NoError(t, repo.Bootstrap(ctx))
	require.NoError(t, repo.Record(ctx, "run", report.Row{AppName: "a"}))
	require.NoError(t, repo.Close())

	reopened, err := Open(ctx, path)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.Run(ctx, "run")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestFilesIncludesJournals(t *testing.T) {
	assert.Equal(t, []string{"h.db", "h.db-journal", "h.db-wal", "h.db-shm"}, Files("h.db"))
}
