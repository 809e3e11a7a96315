// Package report writes the per-run CSV audit trail. The file is created
// fresh for every run and only ever appended to.
package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pkg/errors"

	apperrors "APKBackup/internal/errors"
)

const (
	module          = "report"
	fileTimeLayout  = "01-02-2006_15-04-05"
	rowTimeLayout   = "01/02/2006 15:04:05"
	reportExtension = ".csv"
)

// Header is the first record of every report.
var Header = []string{
	"timestamp",
	"app_name",
	"release_id",
	"release_version",
	"release_download_url",
	"download_attempt",
	"download_status",
	"upload_status",
	"release_md5_fingerprint",
}

// Row is one audited release.
type Row struct {
	Timestamp       time.Time
	AppName         string
	ReleaseID       string
	ReleaseVersion  string
	DownloadURL     string
	DownloadAttempt int
	DownloadStatus  string
	UploadStatus    string
	Fingerprint     string
}

// Record renders the row in header order.
func (r Row) Record() []string {
	return []string{
		r.Timestamp.Format(rowTimeLayout),
		r.AppName,
		r.ReleaseID,
		r.ReleaseVersion,
		r.DownloadURL,
		strconv.Itoa(r.DownloadAttempt),
		r.DownloadStatus,
		r.UploadStatus,
		r.Fingerprint,
	}
}

// Sink receives audit rows.
type Sink interface {
	Append(ctx context.Context, row Row) error
}

// Report is a CSV file named after the run start time.
type Report struct {
	path string
}

// FileName returns the report file name for a run started at start.
func FileName(start time.Time) string {
	return "REPORT_" + start.Format(fileTimeLayout) + reportExtension
}

// New creates dir if needed and writes a new report containing only the header.
// An existing file of the same name is truncated.
func New(dir string, start time.Time) (*Report, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, apperrors.ReportError(apperrors.CodeReportGeneric, "failed to create report directory", err).
			WithModule(module).
			WithOperation("New").
			WithField("dir", dir)
	}

	r := &Report{path: filepath.Join(dir, FileName(start))}

	file, err := os.Create(r.path)
	if err != nil {
		return nil, apperrors.ReportError(apperrors.CodeReportGeneric, "failed to create report", err).
			WithModule(module).
			WithOperation("New").
			WithField("path", r.path)
	}
	defer file.Close()

	if err := writeRecord(file, Header); err != nil {
		return nil, apperrors.ReportError(apperrors.CodeReportGeneric, "failed to write report header", err).
			WithModule(module).
			WithOperation("New").
			WithField("path", r.path)
	}

	return r, nil
}

// Path returns the absolute or workdir-relative path of the report.
func (r *Report) Path() string {
	return r.path
}

// Name returns the report file name, which is also its object key.
func (r *Report) Name() string {
	return filepath.Base(r.path)
}

// Append opens the report, writes row and closes it again.
func (r *Report) Append(_ context.Context, row Row) error {
	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return apperrors.ReportError(apperrors.CodeReportGeneric, "failed to open report", err).
			WithModule(module).
			WithOperation("Append").
			WithField("path", r.path)
	}

	if err := writeRecord(file, row.Record()); err != nil {
		file.Close()
		return apperrors.ReportError(apperrors.CodeReportGeneric, "failed to append report row", err).
			WithModule(module).
			WithOperation("Append").
			WithField("path", r.path)
	}

	if err := file.Close(); err != nil {
		return apperrors.ReportError(apperrors.CodeReportGeneric, "failed to close report", err).
			WithModule(module).
			WithOperation("Append").
			WithField("path", r.path)
	}
	return nil
}

func writeRecord(file *os.File, record []string) error {
	w := csv.NewWriter(file)
	if err := w.Write(record); err != nil {
		return errors.Wrap(err, "csv write")
	}
	w.Flush()
	return errors.Wrap(w.Error(), "csv flush")
}
