package app

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"APKBackup/internal/catalog"
	"APKBackup/internal/config"
	"APKBackup/internal/data"
	"APKBackup/internal/downloader"
	apperrors "APKBackup/internal/errors"
	"APKBackup/internal/logger"
	"APKBackup/internal/menu"
	"APKBackup/internal/report"
	"APKBackup/internal/retry"
	"APKBackup/internal/storage"
)

const artifactBody = "apk-bytes"

var runStart = time.Date(2024, 3, 4, 5, 6, 7, 0, time.Local)

type memoryS3 struct {
	mu            sync.Mutex
	objects       map[string]string
	headBucketErr error
}

func newMemoryS3() *memoryS3 {
	return &memoryS3{objects: make(map[string]string)}
}

func (m *memoryS3) HeadBucket(context.Context, *s3.HeadBucketInput, ...func(*s3.Options)) (*s3.HeadBucketOutput, error) {
	if m.headBucketErr != nil {
		return nil, m.headBucketErr
	}
	return &s3.HeadBucketOutput{}, nil
}

func (m *memoryS3) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	etag, ok := m.objects[aws.ToString(in.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}
	return &s3.HeadObjectOutput{ETag: aws.String(`"` + etag + `"`)}, nil
}

func (m *memoryS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	sum := md5.Sum(body)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[aws.ToString(in.Key)] = hex.EncodeToString(sum[:])
	return &s3.PutObjectOutput{}, nil
}

func (m *memoryS3) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.objects))
	for k := range m.objects {
		keys = append(keys, k)
	}
	return keys
}

// catalogServer serves one app with one release whose artifact is hosted
// on the same server.
func catalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	sum := md5.Sum([]byte(artifactBody))
	fingerprint := hex.EncodeToString(sum[:])

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/apps", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret-token", r.Header.Get("X-API-Token"))
		_, _ = w.Write([]byte(`[{"name":"alpha","os":"Android"}]`))
	})
	mux.HandleFunc("/apps/acme/alpha/releases", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":5,"short_version":"1.0","version":"10"}]`))
	})
	mux.HandleFunc("/apps/acme/alpha/releases/5", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprintf(w, `{"id":5,"short_version":"1.0","version":"10","uploaded_at":"2024-01-02T03:04:05Z",`+
			`"download_url":%q,"fingerprint":%q,"release_notes":"First release"}`, srv.URL+"/cdn/alpha.apk", fingerprint)
	})
	mux.HandleFunc("/cdn/alpha.apk", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(artifactBody))
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(srv *httptest.Server, workDir string, mode config.StorageMode) *config.Config {
	return &config.Config{
		WorkDir: workDir,
		Catalog: config.CatalogConfig{
			BaseURL:  srv.URL,
			Org:      "acme",
			APIToken: "secret-token",
		},
		Download: config.DownloadConfig{MaxAttempts: 3},
		Upload:   config.UploadConfig{MaxAttempts: 2},
		AWS: config.AWSConfig{
			Bucket:          "apk-archive",
			AccessKeyID:     "AKIA",
			SecretAccessKey: "secret",
			Region:          "eu-west-1",
		},
		Run: config.RunOptions{Storage: mode},
	}
}

func newTestApp(t *testing.T, cfg *config.Config, confirmer Confirmer, fake *memoryS3) *App {
	t.Helper()
	a, err := New(cfg, logger.NewMockLogger(),
		WithConfirmer(confirmer),
		WithClock(func() time.Time { return runStart }),
		WithCatalogOptions(catalog.WithRetryPolicy(retry.Policy{MaxAttempts: 1})),
		WithDownloaderOptions(downloader.WithProgressReporter(&downloader.NoopProgressReporter{})),
		WithS3Factory(func(context.Context, config.AWSConfig) (storage.S3API, error) {
			return fake, nil
		}),
	)
	require.NoError(t, err)
	return a
}

func TestAppRunLocal(t *testing.T) {
	srv := catalogServer(t)
	workDir := filepath.Join(t.TempDir(), "backup")
	cfg := testConfig(srv, workDir, config.StorageLocal)
	cfg.Report.HistoryDB = filepath.Join(t.TempDir(), "history.db")

	confirmer := &fixedConfirmer{answer: menu.Confirmed}
	ctx := logger.ContextWithRun(context.Background(), logger.RunContext{RunID: "run-1"})

	summary, err := newTestApp(t, cfg, confirmer, nil).Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Releases)
	assert.Equal(t, 1, summary.Upload["Local"])
	assert.Equal(t, []string{proceedPrompt}, confirmer.asked)

	folder := filepath.Join(workDir, "alpha_2024-01-02_5_1.0")
	body, err := os.ReadFile(filepath.Join(folder, "alpha_v1.0.apk"))
	require.NoError(t, err)
	assert.Equal(t, artifactBody, string(body))
	notes, err := os.ReadFile(filepath.Join(folder, "RELEASE_NOTES.txt"))
	require.NoError(t, err)
	assert.Equal(t, "First release", string(notes))

	records := readReport(t, filepath.Join(workDir, report.FileName(runStart)))
	require.Len(t, records, 2)
	assert.Equal(t, []string{"alpha", "5", "1.0"}, records[1][1:4])
	assert.Equal(t, []string{"1", "Success", "Local"}, records[1][5:8])

	ledger, err := data.Open(context.Background(), cfg.Report.HistoryDB)
	require.NoError(t, err)
	defer ledger.Close()
	rows, err := ledger.Run(context.Background(), "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Local", rows[0].UploadStatus)
}

func TestAppRunS3(t *testing.T) {
	srv := catalogServer(t)
	workDir := t.TempDir()
	cfg := testConfig(srv, workDir, config.StorageS3)
	fake := newMemoryS3()
	confirmer := &fixedConfirmer{answer: menu.Declined}

	summary, err := newTestApp(t, cfg, confirmer, fake).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Upload["Success"])

	assert.ElementsMatch(t, []string{
		"alpha_2024-01-02_5_1.0/alpha_v1.0.apk",
		"alpha_2024-01-02_5_1.0/RELEASE_NOTES.txt",
		report.FileName(runStart),
	}, fake.keys())
	assert.Equal(t, []string{proceedPrompt, cleanupPrompt}, confirmer.asked)
	assert.NoFileExists(t, filepath.Join(workDir, "alpha_2024-01-02_5_1.0", "alpha_v1.0.apk"))

	again, err := newTestApp(t, testConfig(srv, t.TempDir(), config.StorageS3), &fixedConfirmer{answer: menu.Confirmed}, fake).
		Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, again.Download["Skipped"])
	assert.Equal(t, 1, again.Upload["Cached"])
}

func TestAppRunCleanupKeepsLedgerInWorkDir(t *testing.T) {
	srv := catalogServer(t)
	workDir := t.TempDir()
	cfg := testConfig(srv, workDir, config.StorageS3)
	cfg.Report.HistoryDB = filepath.Join(workDir, "history.db")
	ctx := logger.ContextWithRun(context.Background(), logger.RunContext{RunID: "run-7"})

	_, err := newTestApp(t, cfg, &fixedConfirmer{answer: menu.Confirmed}, newMemoryS3()).Run(ctx)
	require.NoError(t, err)

	assert.FileExists(t, cfg.Report.HistoryDB)
	assert.FileExists(t, filepath.Join(workDir, report.FileName(runStart)))
	assert.NoDirExists(t, filepath.Join(workDir, "alpha_2024-01-02_5_1.0"))

	ledger, err := data.Open(context.Background(), cfg.Report.HistoryDB)
	require.NoError(t, err)
	defer ledger.Close()
	rows, err := ledger.Run(context.Background(), "run-7")
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestAppRunDeclined(t *testing.T) {
	srv := catalogServer(t)
	workDir := filepath.Join(t.TempDir(), "never")

	_, err := newTestApp(t, testConfig(srv, workDir, config.StorageLocal), &fixedConfirmer{answer: menu.Declined}, nil).
		Run(context.Background())
	assert.ErrorIs(t, err, ErrDeclined)
	assert.NoDirExists(t, workDir)
}

func TestAppRunBucketUnavailable(t *testing.T) {
	srv := catalogServer(t)
	fake := newMemoryS3()
	fake.headBucketErr = &types.NotFound{}

	_, err := newTestApp(t, testConfig(srv, t.TempDir(), config.StorageS3), &fixedConfirmer{answer: menu.Confirmed}, fake).
		Run(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeStorageBucket))
	assert.Empty(t, fake.keys())
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	_, err := New(&config.Config{WorkDir: "x", Run: config.RunOptions{Storage: config.StorageLocal}}, logger.NewMockLogger())
	require.Error(t, err)

	_, err = New(nil, nil)
	require.Error(t, err)
}
