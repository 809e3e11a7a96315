package catalog

import (
	"strconv"
	"time"
)

// DefaultReleaseNotes is recorded when the catalog has no notes for a release.
const DefaultReleaseNotes = "No release notes available"

// App is one application in the organization.
type App struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	OS          string `json:"os"`
	Platform    string `json:"platform"`
	Owner       Owner  `json:"owner"`
}

// Owner is the organization or user owning an app.
type Owner struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Type        string `json:"type"`
}

// ReleaseSummary is an entry of the release listing.
type ReleaseSummary struct {
	ID           int    `json:"id"`
	ShortVersion string `json:"short_version"`
	Version      string `json:"version"`
	UploadedAt   string `json:"uploaded_at"`
	Enabled      bool   `json:"enabled"`
}

// Release is the full description of one build, immutable once fetched.
type Release struct {
	ID           int
	AppName      string
	ShortVersion string
	Version      string
	UploadedAt   time.Time
	DownloadURL  string
	Fingerprint  string
	ReleaseNotes string
	Size         int64
}

// IDString returns the release identifier as used in paths and reports.
func (r Release) IDString() string {
	return strconv.Itoa(r.ID)
}

// Date returns the upload date in YYYY-MM-DD form (UTC).
func (r Release) Date() string {
	return r.UploadedAt.UTC().Format("2006-01-02")
}

type releaseDetail struct {
	ID           int     `json:"id"`
	AppName      string  `json:"app_name"`
	ShortVersion string  `json:"short_version"`
	Version      string  `json:"version"`
	UploadedAt   string  `json:"uploaded_at"`
	DownloadURL  string  `json:"download_url"`
	Fingerprint  string  `json:"fingerprint"`
	ReleaseNotes *string `json:"release_notes"`
	Size         int64   `json:"size"`
}
