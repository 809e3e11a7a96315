// Package catalog reads organizations' apps and releases from the
// distribution API. Every request runs under an explicit retry policy.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"APKBackup/internal/config"
	apperrors "APKBackup/internal/errors"
	"APKBackup/internal/logger"
	"APKBackup/internal/retry"
)

const (
	module          = "catalog"
	tokenHeader     = "X-API-Token"
	maxErrorSnippet = 512
	defaultTimeout  = time.Minute
)

// HTTPClient represents the subset of http.Client methods required by the client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the release catalog API.
type Client struct {
	baseURL string
	org     string
	token   string
	filter  map[string]struct{}
	http    HTTPClient
	policy  retry.Policy
	limiter *rate.Limiter
	logger  logger.Logger
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *Client) {
		c.http = client
	}
}

// WithRetryPolicy overrides the retry policy derived from configuration.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(c *Client) {
		c.policy = policy
	}
}

// NewClient builds a Client from the catalog configuration.
func NewClient(cfg config.CatalogConfig, log logger.Logger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" || strings.TrimSpace(cfg.Org) == "" {
		return nil, apperrors.ConfigError(apperrors.CodeConfigGeneric, "catalog base URL and organization are required", nil).
			WithModule(module).
			WithOperation("NewClient")
	}
	if log == nil {
		log = logger.NewStandardLogger()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		org:     cfg.Org,
		token:   cfg.APIToken,
		http:    &http.Client{Timeout: timeout},
		policy: retry.Policy{
			MaxAttempts: cfg.MaxAttempts,
			MinDelay:    cfg.MinBackoff,
			MaxDelay:    cfg.MaxBackoff,
		},
		logger: log,
	}

	if len(cfg.AppFilter) > 0 {
		c.filter = make(map[string]struct{}, len(cfg.AppFilter))
		for _, name := range cfg.AppFilter {
			c.filter[strings.TrimSpace(name)] = struct{}{}
		}
	}
	if cfg.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.policy.Notify == nil {
		c.policy.Notify = func(attempt int, err error, wait time.Duration) {
			c.logger.Warn("Catalog request failed (attempt %d/%d), retrying in %s: %v",
				attempt, c.policy.MaxAttempts, wait, err)
		}
	}

	return c, nil
}

// ListApps returns every app in the organization, narrowed by the allow-list when one is configured.
func (c *Client) ListApps(ctx context.Context) ([]App, error) {
	var apps []App
	if err := c.getJSON(ctx, "ListApps", "/apps", &apps); err != nil {
		return nil, err
	}

	if c.filter == nil {
		return apps, nil
	}

	filtered := make([]App, 0, len(apps))
	for _, app := range apps {
		if _, ok := c.filter[app.Name]; ok {
			filtered = append(filtered, app)
		}
	}
	c.logger.Debug("App filter kept %d of %d apps", len(filtered), len(apps))
	return filtered, nil
}

// ListReleases returns the release summaries of app.
func (c *Client) ListReleases(ctx context.Context, app string) ([]ReleaseSummary, error) {
	var releases []ReleaseSummary
	path := fmt.Sprintf("/apps/%s/%s/releases", url.PathEscape(c.org), url.PathEscape(app))
	if err := c.getJSON(ctx, "ListReleases", path, &releases); err != nil {
		return nil, err
	}
	return releases, nil
}

// ReleaseDetail returns the full description of one release.
// Missing download URL, fingerprint or upload time yields a CodeCatalogMissingField error.
func (c *Client) ReleaseDetail(ctx context.Context, app string, id int) (Release, error) {
	var detail releaseDetail
	path := fmt.Sprintf("/apps/%s/%s/releases/%d", url.PathEscape(c.org), url.PathEscape(app), id)
	if err := c.getJSON(ctx, "ReleaseDetail", path, &detail); err != nil {
		return Release{}, err
	}

	missing := func(field string) error {
		return apperrors.CatalogError(apperrors.CodeCatalogMissingField, "release is missing a required field", nil).
			WithModule(module).
			WithOperation("ReleaseDetail").
			WithRecoverable(true).
			WithFields(apperrors.Metadata{"app": app, "release_id": id, "field": field})
	}

	if strings.TrimSpace(detail.DownloadURL) == "" {
		return Release{}, missing("download_url")
	}
	if strings.TrimSpace(detail.Fingerprint) == "" {
		return Release{}, missing("fingerprint")
	}
	uploadedAt, err := time.Parse(time.RFC3339Nano, detail.UploadedAt)
	if err != nil {
		return Release{}, missing("uploaded_at")
	}

	notes := DefaultReleaseNotes
	if detail.ReleaseNotes != nil {
		notes = *detail.ReleaseNotes
	}

	releaseID := detail.ID
	if releaseID == 0 {
		releaseID = id
	}

	return Release{
		ID:           releaseID,
		AppName:      app,
		ShortVersion: detail.ShortVersion,
		Version:      detail.Version,
		UploadedAt:   uploadedAt.UTC(),
		DownloadURL:  detail.DownloadURL,
		Fingerprint:  detail.Fingerprint,
		ReleaseNotes: notes,
		Size:         detail.Size,
	}, nil
}

func (c *Client) getJSON(ctx context.Context, operation, path string, out interface{}) error {
	endpoint := c.baseURL + path

	err := c.policy.Do(ctx, func(ctx context.Context, attempt int) error {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return retry.Permanent(err)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Permanent(err)
		}
		req.Header.Set(tokenHeader, c.token)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorSnippet))
			return apperrors.NewRecoverable(apperrors.ErrCategoryNetwork, apperrors.CodeNetworkStatus, "catalog request failed", nil).
				WithFields(apperrors.Metadata{
					"status": resp.StatusCode,
					"body":   strings.TrimSpace(string(snippet)),
				})
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return retry.Permanent(apperrors.CatalogError(apperrors.CodeCatalogDecode, "failed to decode catalog response", err))
		}
		return nil
	})

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if appErr, ok := apperrors.As(err); ok && appErr.Code == apperrors.CodeCatalogDecode {
		return appErr.WithModule(module).WithOperation(operation).WithField("url", endpoint)
	}
	return apperrors.CatalogError(apperrors.CodeCatalogRetryExhausted, "catalog request failed after retries", err).
		WithModule(module).
		WithOperation(operation).
		WithField("url", endpoint)
}
