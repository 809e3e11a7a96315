package report

import (
	"context"
	"encoding/csv"
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"APKBackup/internal/logger"
)

var runStart = time.Date(2024, 3, 9, 14, 5, 7, 0, time.Local)

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestNewWritesHeaderOnly(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "work")
	r, err := New(dir, runStart)
	require.NoError(t, err)

	assert.Equal(t, "REPORT_03-09-2024_14-05-07.csv", r.Name())
	assert.Equal(t, filepath.Join(dir, r.Name()), r.Path())
	assert.Equal(t, [][]string{Header}, readAll(t, r.Path()))
}

func TestAppendKeepsOrder(t *testing.T) {
	r, err := New(t.TempDir(), runStart)
	require.NoError(t, err)

	ctx := context.Background()
	for i, app := range []string{"alpha", "beta", "gamma"} {
		require.NoError(t, r.Append(ctx, Row{
			Timestamp:       runStart.Add(time.Duration(i) * time.Second),
			AppName:         app,
			ReleaseID:       "7",
			ReleaseVersion:  "1.0.0",
			DownloadURL:     "https://cdn.example.com/a.apk?sig=a,b",
			DownloadAttempt: i,
			DownloadStatus:  "Success",
			UploadStatus:    "Local",
			Fingerprint:     "5eb63bbbe01eeed093cb22bb8f5acdc3",
		}))
	}

	records := readAll(t, r.Path())
	require.Len(t, records, 4)
	assert.Equal(t, Header, records[0])
	assert.Equal(t, []string{
		"03/09/2024 14:05:08", "beta", "7", "1.0.0", "https://cdn.example.com/a.apk?sig=a,b",
		"1", "Success", "Local", "5eb63bbbe01eeed093cb22bb8f5acdc3",
	}, records[2])
	assert.Equal(t, "gamma", records[3][1])
}

func TestAppendToRemovedReportFails(t *testing.T) {
	r, err := New(t.TempDir(), runStart)
	require.NoError(t, err)
	require.NoError(t, os.Remove(r.Path()))

	assert.Error(t, r.Append(context.Background(), Row{}))
}

type sinkFunc func(context.Context, Row) error

func (f sinkFunc) Append(ctx context.Context, row Row) error { return f(ctx, row) }

func TestMultiIgnoresSecondaryFailures(t *testing.T) {
	var got []string
	primary := sinkFunc(func(_ context.Context, row Row) error {
		got = append(got, "primary:"+row.AppName)
		return nil
	})
	broken := sinkFunc(func(context.Context, Row) error { return stdErrors.New("disk full") })
	log := logger.NewMockLogger()

	m := NewMulti(log, primary, nil, broken)
	require.NoError(t, m.Append(context.Background(), Row{AppName: "alpha"}))

	assert.Equal(t, []string{"primary:alpha"}, got)
	assert.True(t, log.HasEntry(logger.LevelWarn, "Secondary audit sink"))
}

func TestMultiReturnsPrimaryFailure(t *testing.T) {
	called := false
	primary := sinkFunc(func(context.Context, Row) error { return stdErrors.New("boom") })
	secondary := sinkFunc(func(context.Context, Row) error {
		called = true
		return nil
	})

	err := NewMulti(logger.NewMockLogger(), primary, secondary).Append(context.Background(), Row{})
	assert.Error(t, err)
	assert.False(t, called)
}
