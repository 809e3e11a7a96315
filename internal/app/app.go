// Package app wires configuration into a backup run: startup checks,
// operator confirmation, the per-release pipeline and the final summary.
package app

import (
	"context"
	stdErrors "errors"
	"time"

	"github.com/google/uuid"

	"APKBackup/internal/catalog"
	"APKBackup/internal/config"
	"APKBackup/internal/data"
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

const proceedPrompt = "Do you want to proceed?"

// ErrDeclined is returned by Run when the operator does not confirm the run.
var ErrDeclined = stdErrors.New("run declined by operator")

// S3Factory builds the object storage client for a run.
type S3Factory func(ctx context.Context, cfg config.AWSConfig) (storage.S3API, error)

// App is a configured backup run.
type App struct {
	cfg       *config.Config
	logger    logger.Logger
	console   *ui.Console
	printer   *ui.Printer
	confirmer Confirmer
	catalog   Catalog
	fetcher   Fetcher
	newS3     S3Factory
	now       func() time.Time

	catalogOpts    []catalog.Option
	downloaderOpts []downloader.Option
}

// Option customises App construction.
type Option func(*App)

// WithConsole sets the console used for startup progress.
func WithConsole(console *ui.Console) Option {
	return func(a *App) {
		a.console = console
	}
}

// WithPrinter sets the printer used for release banners and the summary.
func WithPrinter(printer *ui.Printer) Option {
	return func(a *App) {
		a.printer = printer
	}
}

// WithConfirmer overrides the terminal confirmer.
func WithConfirmer(confirmer Confirmer) Option {
	return func(a *App) {
		a.confirmer = confirmer
	}
}

// WithS3Factory overrides how the S3 client is created.
func WithS3Factory(factory S3Factory) Option {
	return func(a *App) {
		a.newS3 = factory
	}
}

// WithCatalogOptions passes options through to the catalog client.
func WithCatalogOptions(opts ...catalog.Option) Option {
	return func(a *App) {
		a.catalogOpts = append(a.catalogOpts, opts...)
	}
}

// WithDownloaderOptions passes options through to the fetcher.
func WithDownloaderOptions(opts ...downloader.Option) Option {
	return func(a *App) {
		a.downloaderOpts = append(a.downloaderOpts, opts...)
	}
}

// WithClock overrides time.Now for report names and row timestamps.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// New validates cfg and builds the catalog client and fetcher.
func New(cfg *config.Config, log logger.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, apperrors.ConfigError(apperrors.CodeConfigGeneric, "configuration is required", nil).
			WithModule("app").
			WithOperation("New")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NewStandardLogger()
	}

	a := &App{
		cfg:    cfg,
		logger: log,
		now:    time.Now,
		newS3: func(ctx context.Context, awsCfg config.AWSConfig) (storage.S3API, error) {
			client, err := storage.NewClient(ctx, awsCfg)
			if err != nil {
				return nil, err
			}
			return client, nil
		},
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.confirmer == nil {
		a.confirmer = menu.NewConfirmer(log, menu.AssumeYes(cfg.Run.Yes))
	}

	catalogClient, err := catalog.NewClient(cfg.Catalog, log, a.catalogOpts...)
	if err != nil {
		return nil, err
	}
	a.catalog = catalogClient

	fetcher, err := downloader.NewFetcher(cfg.Download, log, a.downloaderOpts...)
	if err != nil {
		return nil, err
	}
	a.fetcher = fetcher

	return a, nil
}

// Run performs one backup. It returns ErrDeclined when the operator says no
// at the proceed prompt.
func (a *App) Run(ctx context.Context) (Summary, error) {
	runID := logger.RunFromContext(ctx).RunID
	if runID == "" {
		runID = uuid.NewString()
		ctx = logger.ContextWithRun(ctx, logger.RunContext{RunID: runID})
	}

	answer, err := a.confirmer.Ask(ctx, proceedPrompt)
	if err != nil {
		return newSummary(), err
	}
	if answer != menu.Confirmed {
		return newSummary(), ErrDeclined
	}
	a.logger.Info("Proceeding with execution...")

	start := a.now()
	a.logger.InfoContext(ctx, "Starting backup run",
		logger.String("storage", string(a.cfg.Run.Storage)),
		logger.String("workdir", a.cfg.WorkDir))

	var (
		store  *storage.Store
		rep    *report.Report
		ledger *data.SQLiteRepository
	)

	steps := []Step{
		{
			Name:      "Prepare working directory",
			Operation: "PrepareWorkDir",
			Category:  apperrors.ErrCategorySystem,
			Fn: func(context.Context) error {
				return system.PrepareWorkDir(a.cfg.WorkDir)
			},
		},
		{
			Name:      "Check free disk space",
			Operation: "Describe",
			Category:  apperrors.ErrCategorySystem,
			Fn:        a.checkDisk,
		},
	}

	if a.cfg.UsesS3() {
		steps = append(steps, Step{
			Name:      "Connect to bucket " + a.cfg.AWS.Bucket,
			Operation: "CheckAccess",
			Category:  apperrors.ErrCategoryStorage,
			Fn: func(ctx context.Context) error {
				client, err := a.newS3(ctx, a.cfg.AWS)
				if err != nil {
					return err
				}
				store = storage.NewStore(client, a.cfg.AWS.Bucket, a.cfg.Upload, a.logger,
					storage.WithProfile(a.cfg.AWS.Profile))
				return store.CheckAccess(ctx)
			},
		})
	}

	steps = append(steps, Step{
		Name:      "Create report",
		Operation: "NewReport",
		Category:  apperrors.ErrCategoryReport,
		Fn: func(context.Context) error {
			var err error
			rep, err = report.New(a.cfg.WorkDir, start)
			return err
		},
	})

	if a.cfg.Report.HistoryDB != "" {
		steps = append(steps, Step{
			Name:      "Open history ledger",
			Operation: "OpenLedger",
			Category:  apperrors.ErrCategoryDatabase,
			Fn: func(ctx context.Context) error {
				repo, err := data.Open(ctx, a.cfg.Report.HistoryDB)
				if err != nil {
					errlog.Warn(ctx, a.logger, "History ledger unavailable, continuing without it", err)
					return nil
				}
				ledger = repo
				return nil
			},
		})
	}

	if err := NewPipeline(a.console, a.logger, steps).Execute(ctx); err != nil {
		return newSummary(), err
	}
	if ledger != nil {
		defer ledger.Close()
	}
	a.logger.Info("Report file was created: %s", rep.Path())

	var sink report.Sink = rep
	if ledger != nil {
		sink = report.NewMulti(a.logger, rep, data.Sink(ledger, runID))
	}

	deps := Deps{
		Catalog:   a.catalog,
		Fetcher:   a.fetcher,
		Report:    rep,
		Sink:      sink,
		Confirmer: a.confirmer,
		Printer:   a.printer,
		Logger:    a.logger,
		Now:       a.now,
	}
	if store != nil {
		deps.Store = store
	}

	opts := Options{WorkDir: a.cfg.WorkDir, Preserve: a.cfg.Run.Preserve}
	if a.cfg.Report.HistoryDB != "" {
		opts.Keep = data.Files(a.cfg.Report.HistoryDB)
	}

	orchestrator, err := NewOrchestrator(deps, opts)
	if err != nil {
		return newSummary(), err
	}

	summary, err := orchestrator.Run(ctx)
	summary.Print(a.printer)
	if err != nil {
		return summary, err
	}

	a.logger.InfoContext(ctx, "Backup run finished",
		logger.Int("releases", summary.Releases),
		logger.Int("failures", summary.Failures()),
		logger.String("report", rep.Path()))
	return summary, nil
}

func (a *App) checkDisk(ctx context.Context) error {
	info, err := system.Describe(a.cfg.WorkDir)
	if err != nil {
		errlog.Warn(ctx, a.logger, "Could not determine free disk space", err)
		return nil
	}
	a.logger.Debug("Running on %s/%s in %s", info.OS, info.Arch, info.WorkDir)
	if info.FreeBytes > 0 && info.FreeBytes < system.LowSpaceThreshold {
		a.logger.Warn("Low free disk space in %s: %d MiB available", info.WorkDir, info.FreeBytes>>20)
	}
	return nil
}
