package app

import (
	"context"
	stdErrors "errors"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"APKBackup/internal/catalog"
	"APKBackup/internal/downloader"
	apperrors "APKBackup/internal/errors"
	errlog "APKBackup/internal/errors/logging"
	"APKBackup/internal/logger"
	"APKBackup/internal/menu"
	"APKBackup/internal/report"
	"APKBackup/internal/storage"
	"APKBackup/internal/system"
	"APKBackup/internal/ui"
)

const (
	notesFileName = "RELEASE_NOTES.txt"
	cleanupPrompt = "Do you want to delete all local files except the report?"
)

// Catalog lists apps and releases.
type Catalog interface {
	ListApps(ctx context.Context) ([]catalog.App, error)
	ListReleases(ctx context.Context, app string) ([]catalog.ReleaseSummary, error)
	ReleaseDetail(ctx context.Context, app string, id int) (catalog.Release, error)
}

// Fetcher downloads and verifies one artifact.
type Fetcher interface {
	Fetch(ctx context.Context, target downloader.Target) (downloader.Result, error)
}

// Store archives files remotely.
type Store interface {
	Bucket() string
	Exists(ctx context.Context, key, expected string) (storage.Presence, error)
	Upload(ctx context.Context, key, localPath, expected string) storage.UploadStatus
	UploadFile(ctx context.Context, key, localPath string) storage.UploadStatus
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Ask(ctx context.Context, question string) (menu.Result, error)
}

// ReportFile is the on-disk audit report.
type ReportFile interface {
	report.Sink
	Path() string
	Name() string
}

// Deps are the collaborators of an Orchestrator. Store is nil in local mode.
type Deps struct {
	Catalog   Catalog
	Fetcher   Fetcher
	Store     Store
	Report    ReportFile
	Sink      report.Sink
	Confirmer Confirmer
	Printer   *ui.Printer
	Logger    logger.Logger
	Now       func() time.Time
}

// Options are the per-run switches. Keep lists extra paths that cleanup
// must leave in place besides the report.
type Options struct {
	WorkDir  string
	Preserve bool
	Keep     []string
}

// Orchestrator walks the catalog and backs up every release it finds.
type Orchestrator struct {
	catalog   Catalog
	fetcher   Fetcher
	store     Store
	report    ReportFile
	sink      report.Sink
	confirmer Confirmer
	printer   *ui.Printer
	logger    logger.Logger
	now       func() time.Time

	workDir  string
	preserve bool
	keep     []string
}

// NewOrchestrator validates deps and returns an Orchestrator.
func NewOrchestrator(deps Deps, opts Options) (*Orchestrator, error) {
	if deps.Catalog == nil || deps.Fetcher == nil || deps.Report == nil {
		return nil, apperrors.New(apperrors.ErrCategoryValidation, apperrors.CodeValidationGeneric,
			"catalog, fetcher and report are required", nil).
			WithModule("app").
			WithOperation("NewOrchestrator")
	}
	if opts.WorkDir == "" {
		return nil, apperrors.New(apperrors.ErrCategoryValidation, apperrors.CodeValidationGeneric,
			"working directory is required", nil).
			WithModule("app").
			WithOperation("NewOrchestrator")
	}

	o := &Orchestrator{
		catalog:   deps.Catalog,
		fetcher:   deps.Fetcher,
		store:     deps.Store,
		report:    deps.Report,
		sink:      deps.Sink,
		confirmer: deps.Confirmer,
		printer:   deps.Printer,
		logger:    deps.Logger,
		now:       deps.Now,
		workDir:   opts.WorkDir,
		preserve:  opts.Preserve,
		keep:      opts.Keep,
	}
	if o.sink == nil {
		o.sink = deps.Report
	}
	if o.logger == nil {
		o.logger = logger.NewStandardLogger()
	}
	if o.now == nil {
		o.now = time.Now
	}
	return o, nil
}

// Run processes every release of every app. Per-release failures are
// recorded in the report; catalog failures, report failures and
// cancellation abort the run and are returned with the partial summary.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	summary := newSummary()

	apps, err := o.catalog.ListApps(ctx)
	if err != nil {
		return summary, err
	}
	o.logger.Info("Found %d apps to back up", len(apps))

	for _, a := range apps {
		releases, err := o.catalog.ListReleases(ctx, a.Name)
		if err != nil {
			return summary, err
		}
		summary.Apps++
		o.logger.Info("App %s has %d releases", a.Name, len(releases))

		for _, rel := range releases {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			row, err := o.processRelease(ctx, a.Name, rel)
			if err != nil {
				return summary, err
			}

			if err := o.sink.Append(ctx, row); err != nil {
				return summary, err
			}
			summary.add(row)

			if o.store != nil {
				o.uploadReport(ctx, false)
			}
		}
	}

	if o.store != nil {
		o.uploadReport(ctx, true)
		if err := o.offerCleanup(ctx); err != nil {
			return summary, err
		}
	} else {
		o.logger.Info("Files stored locally in %s", o.workDir)
	}

	return summary, nil
}

// Layout holds the derived local paths and object keys of one release.
type Layout struct {
	BaseFolder   string
	ArtifactPath string
	NotesPath    string
	ArtifactKey  string
	NotesKey     string
}

// LayoutFor derives the storage layout of rel under workDir.
func LayoutFor(workDir string, rel catalog.Release) Layout {
	base := rel.AppName + "_" + rel.Date() + "_" + rel.IDString() + "_" + rel.ShortVersion
	artifact := rel.AppName + "_v" + rel.ShortVersion + ".apk"
	return Layout{
		BaseFolder:   base,
		ArtifactPath: filepath.Join(workDir, base, artifact),
		NotesPath:    filepath.Join(workDir, base, notesFileName),
		ArtifactKey:  path.Join(base, artifact),
		NotesKey:     path.Join(base, notesFileName),
	}
}

func (o *Orchestrator) processRelease(ctx context.Context, appName string, summaryRel catalog.ReleaseSummary) (report.Row, error) {
	id := strconv.Itoa(summaryRel.ID)
	ctx = logger.WithRelease(ctx, appName, id)

	row := report.Row{
		Timestamp:      o.now(),
		AppName:        appName,
		ReleaseID:      id,
		ReleaseVersion: summaryRel.ShortVersion,
		DownloadStatus: string(downloader.StatusFailed),
		UploadStatus:   o.failedUpload(),
	}

	if o.printer != nil {
		o.printer.PrintRelease(appName, summaryRel.ShortVersion, id)
	}

	rel, err := o.catalog.ReleaseDetail(ctx, appName, summaryRel.ID)
	if err != nil {
		if isFatal(ctx, err) {
			return row, err
		}
		errlog.Warn(ctx, o.logger, "Skipping release with incomplete details", err)
		o.printOutcome(row)
		return row, nil
	}
	if rel.ShortVersion == "" {
		rel.ShortVersion = summaryRel.ShortVersion
	}
	if rel.AppName == "" {
		rel.AppName = appName
	}
	row.DownloadURL = rel.DownloadURL
	row.Fingerprint = rel.Fingerprint
	row.ReleaseVersion = rel.ShortVersion

	layout := LayoutFor(o.workDir, rel)
	o.logger.Debug("Release %s v%s uploaded %s, stored under %s", id, rel.ShortVersion, rel.Date(), layout.BaseFolder)

	if o.store != nil {
		presence, err := o.store.Exists(ctx, layout.ArtifactKey, rel.Fingerprint)
		if err != nil {
			if ctx.Err() != nil {
				return row, ctx.Err()
			}
			errlog.Warn(ctx, o.logger, "Failed to query remote object", err)
			o.printOutcome(row)
			return row, nil
		}
		if presence == storage.PresenceCached {
			o.logger.Info("File already exists in bucket %s with a matching checksum, skipping download and upload: %s", o.store.Bucket(), layout.ArtifactKey)
			row.DownloadStatus = string(downloader.StatusSkipped)
			row.DownloadAttempt = 0
			row.UploadStatus = string(storage.UploadCached)
			o.printOutcome(row)
			return row, nil
		}
	}

	result, err := o.fetcher.Fetch(ctx, downloader.Target{
		Name:         filepath.Base(layout.ArtifactPath),
		URL:          rel.DownloadURL,
		ExpectedHash: rel.Fingerprint,
		LocalPath:    layout.ArtifactPath,
	})
	row.DownloadStatus = string(result.Status)
	row.DownloadAttempt = result.Attempts
	if err != nil {
		if ctx.Err() != nil {
			return row, ctx.Err()
		}
		errlog.Warn(ctx, o.logger, "Download failed", err)
		o.printOutcome(row)
		return row, nil
	}
	if result.Status == downloader.StatusFailed {
		o.logger.Warn("Giving up on %s after %d attempts", layout.ArtifactPath, result.Attempts)
		o.printOutcome(row)
		return row, nil
	}

	notesWritten := o.writeNotes(ctx, layout.NotesPath, rel.ReleaseNotes)

	if o.store == nil {
		row.UploadStatus = string(storage.UploadLocal)
		o.printOutcome(row)
		return row, nil
	}

	status := o.store.Upload(ctx, layout.ArtifactKey, layout.ArtifactPath, result.Checksum)
	row.UploadStatus = string(status)
	if ctx.Err() != nil {
		return row, ctx.Err()
	}

	if notesWritten {
		if notes := o.store.UploadFile(ctx, layout.NotesKey, layout.NotesPath); notes == storage.UploadFailed {
			o.logger.Warn("Release notes were not archived: %s", layout.NotesKey)
		}
	}

	if status == storage.UploadSuccess && !o.preserve {
		if err := os.Remove(layout.ArtifactPath); err != nil {
			o.logger.Warn("Failed to remove local artifact %s: %v", layout.ArtifactPath, err)
		} else {
			o.logger.Debug("Removed local artifact %s", layout.ArtifactPath)
		}
	}

	o.printOutcome(row)
	return row, nil
}

func (o *Orchestrator) writeNotes(ctx context.Context, notesPath, notes string) bool {
	if err := os.MkdirAll(filepath.Dir(notesPath), 0o755); err != nil {
		errlog.Warn(ctx, o.logger, "Failed to create release folder", err)
		return false
	}
	if err := os.WriteFile(notesPath, []byte(notes), 0o644); err != nil {
		errlog.Warn(ctx, o.logger, "Failed to write release notes", err)
		return false
	}
	o.logger.Info("Release notes saved in %s", notesPath)
	return true
}

func (o *Orchestrator) uploadReport(ctx context.Context, final bool) {
	status := o.store.UploadFile(ctx, o.report.Name(), o.report.Path())
	switch {
	case status == storage.UploadFailed:
		o.logger.Warn("Report upload failed: %s", o.report.Name())
	case final:
		o.logger.Info("Report uploaded: %s", o.report.Name())
	}
}

func (o *Orchestrator) offerCleanup(ctx context.Context) error {
	if o.preserve {
		o.logger.Info("All files are stored in bucket %s. Local files were not deleted.", o.store.Bucket())
		return nil
	}
	if o.confirmer == nil {
		return nil
	}

	answer, err := o.confirmer.Ask(ctx, cleanupPrompt)
	if err != nil {
		return err
	}
	if answer != menu.Confirmed {
		o.logger.Info("Local files kept in %s", o.workDir)
		return nil
	}

	keep := append([]string{o.report.Path()}, o.keep...)
	removed, err := system.CleanWorkDir(o.workDir, keep...)
	if err != nil {
		errlog.Error(ctx, o.logger, "Failed to clean working directory", err)
		return nil
	}
	o.logger.Info("Local files deleted (%d entries)", removed)
	return nil
}

func (o *Orchestrator) failedUpload() string {
	if o.store == nil {
		return string(storage.UploadLocal)
	}
	return string(storage.UploadFailed)
}

func (o *Orchestrator) printOutcome(row report.Row) {
	if o.printer == nil {
		return
	}
	o.printer.PrintStatus("Download", row.DownloadStatus)
	o.printer.PrintStatus("Upload", row.UploadStatus)
}

// isFatal reports whether err must abort the run rather than fail one release.
func isFatal(ctx context.Context, err error) bool {
	if ctx.Err() != nil || stdErrors.Is(err, context.Canceled) {
		return true
	}
	return apperrors.HasCode(err, apperrors.CodeCatalogRetryExhausted)
}
