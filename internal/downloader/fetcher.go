// Package downloader fetches release artifacts to disk and verifies them
// against the catalog's MD5 fingerprint. A file that already matches is
// never downloaded again.
package downloader

import (
	"context"
	stdErrors "errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"APKBackup/internal/config"
	"APKBackup/internal/digest"
	apperrors "APKBackup/internal/errors"
	"APKBackup/internal/logger"
	"APKBackup/internal/retry"
)

const (
	copyBufferSize = 32 * 1024
	userAgent      = "APKBackup/1.0 (Go downloader)"
	module         = "downloader"
)

var errChecksumMismatch = stdErrors.New("checksum mismatch")

// Status is the outcome of a fetch as recorded in the audit report.
type Status string

const (
	StatusCached  Status = "Cached"
	StatusSuccess Status = "Success"
	StatusFailed  Status = "Failed"
	StatusSkipped Status = "Skipped"
)

// Result describes how a fetch ended. Attempts is 0 for a cache hit.
type Result struct {
	Status   Status
	Attempts int
	Checksum string
}

// Target describes a single artifact to fetch.
type Target struct {
	Name         string
	URL          string
	ExpectedHash string
	LocalPath    string
}

// HTTPClient represents the subset of http.Client methods required by the fetcher.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads targets with a bounded number of verify-and-retry attempts.
type Fetcher struct {
	maxAttempts int
	retryDelay  time.Duration
	logger      logger.Logger
	client      HTTPClient
	fs          FileSystem
	reporter    ProgressReporter
}

// Option customises Fetcher construction.
type Option func(*Fetcher)

// WithHTTPClient overrides the HTTP client used for downloads.
func WithHTTPClient(client HTTPClient) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithFileSystem overrides the filesystem implementation.
func WithFileSystem(fs FileSystem) Option {
	return func(f *Fetcher) {
		f.fs = fs
	}
}

// WithProgressReporter overrides the progress reporter implementation.
func WithProgressReporter(reporter ProgressReporter) Option {
	return func(f *Fetcher) {
		f.reporter = reporter
	}
}

// NewFetcher constructs a Fetcher from the download configuration.
func NewFetcher(cfg config.DownloadConfig, log logger.Logger, opts ...Option) (*Fetcher, error) {
	if log == nil {
		return nil, apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "logger must not be nil", nil).
			WithModule(module).
			WithOperation("NewFetcher")
	}

	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	f := &Fetcher{
		maxAttempts: maxAttempts,
		retryDelay:  cfg.RetryDelay,
		logger:      log,
		client:      defaultHTTPClient(timeout),
		fs:          OSFileSystem{},
		reporter:    NewConsoleProgressReporter(nil),
	}

	for _, opt := range opts {
		opt(f)
	}

	if f.reporter == nil {
		f.reporter = &NoopProgressReporter{}
	}
	if f.fs == nil {
		f.fs = OSFileSystem{}
	}
	if f.client == nil {
		f.client = defaultHTTPClient(timeout)
	}

	return f, nil
}

// MaxAttempts returns the configured attempt ceiling.
func (f *Fetcher) MaxAttempts() int {
	return f.maxAttempts
}

// Fetch makes target.LocalPath hold a file whose digest equals target.ExpectedHash.
// A checksum mismatch is retried; a transport failure ends the fetch with an error.
func (f *Fetcher) Fetch(ctx context.Context, target Target) (Result, error) {
	if cached, sum := f.isCached(target); cached {
		f.logger.Info("File already downloaded: %s", target.LocalPath)
		return Result{Status: StatusCached, Attempts: 0, Checksum: sum}, nil
	}

	if err := f.fs.MkdirAll(filepath.Dir(target.LocalPath), 0o755); err != nil {
		return Result{Status: StatusFailed}, apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "failed to create directory", err).
			WithModule(module).
			WithOperation("Fetch").
			WithField("path", filepath.Dir(target.LocalPath))
	}

	f.logger.Info("Downloading %s...", target.Name)

	var (
		attempts int
		lastSum  string
	)
	err := retry.Constant(f.maxAttempts, f.retryDelay).Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		if err := f.doDownload(ctx, target.URL, target.LocalPath, target.Name); err != nil {
			return retry.Permanent(err)
		}

		sum, err := f.checksum(target.LocalPath)
		if err != nil {
			return retry.Permanent(err)
		}
		lastSum = sum

		if digest.Equal(sum, target.ExpectedHash) {
			return nil
		}
		f.logger.Warn("Checksum mismatch for %s (expected %s, got %s). Attempt %d/%d",
			target.Name, digest.Normalize(target.ExpectedHash), sum, attempt, f.maxAttempts)
		return errChecksumMismatch
	})

	switch {
	case err == nil:
		f.logger.Info("File downloaded successfully: %s", target.LocalPath)
		return Result{Status: StatusSuccess, Attempts: attempts, Checksum: lastSum}, nil
	case stdErrors.Is(err, retry.ErrExhausted):
		return Result{Status: StatusFailed, Attempts: attempts, Checksum: lastSum}, nil
	default:
		return Result{Status: StatusFailed, Attempts: attempts, Checksum: lastSum}, err
	}
}

func (f *Fetcher) isCached(target Target) (bool, string) {
	if _, err := f.fs.Stat(target.LocalPath); err != nil {
		if !stdErrors.Is(err, os.ErrNotExist) {
			f.logger.Warn("Failed to inspect local file %s: %v", target.LocalPath, err)
		}
		return false, ""
	}

	sum, err := f.checksum(target.LocalPath)
	if err != nil {
		f.logger.Warn("Failed to validate local file %s: %v", target.LocalPath, err)
		return false, ""
	}
	return digest.Equal(sum, target.ExpectedHash), sum
}

func (f *Fetcher) checksum(path string) (string, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return "", apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "failed to open file for checksum", err).
			WithModule(module).
			WithOperation("checksum").
			WithField("path", path)
	}
	defer file.Close()

	sum, err := digest.Reader(file)
	if err != nil {
		return "", apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "failed to compute checksum", err).
			WithModule(module).
			WithOperation("checksum").
			WithField("path", path)
	}
	return sum, nil
}

func (f *Fetcher) doDownload(ctx context.Context, url, localPath, name string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return apperrors.NewRecoverable(apperrors.ErrCategoryNetwork, apperrors.CodeNetworkGeneric, "failed to create download request", err).
			WithModule(module).
			WithOperation("doDownload").
			WithField("url", url)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return apperrors.NewRecoverable(apperrors.ErrCategoryNetwork, apperrors.CodeNetworkGeneric, "download request failed", err).
			WithModule(module).
			WithOperation("doDownload").
			WithField("url", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apperrors.NewRecoverable(apperrors.ErrCategoryNetwork, apperrors.CodeNetworkStatus, "download failed with unexpected status", nil).
			WithModule(module).
			WithOperation("doDownload").
			WithFields(apperrors.Metadata{
				"url":    url,
				"status": resp.StatusCode,
			})
	}

	file, err := f.fs.Create(localPath)
	if err != nil {
		return apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "failed to create local file", err).
			WithModule(module).
			WithOperation("doDownload").
			WithField("path", localPath)
	}

	progress := newMeter(resp.Body, name, resp.ContentLength, f.reporter)

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(file, progress, buf); err != nil {
		file.Close()
		return apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "failed to write file to disk", err).
			WithModule(module).
			WithOperation("doDownload").
			WithField("path", localPath)
	}
	if err := file.Close(); err != nil {
		return apperrors.New(apperrors.ErrCategorySystem, apperrors.CodeSystemGeneric, "failed to flush file to disk", err).
			WithModule(module).
			WithOperation("doDownload").
			WithField("path", localPath)
	}

	progress.finish()
	return nil
}

func defaultHTTPClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableCompression:    true,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
