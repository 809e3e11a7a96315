// apkbackup archives every release of every app in a release catalog,
// verifying each artifact by MD5 and recording the outcome in a CSV report.
//
// Usage:
//
//	apkbackup [-s local|s3] [-p] [-y] [-c apkbackup.yaml]
package main

import (
	"context"
	stdErrors "errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"APKBackup/internal/app"
	"APKBackup/internal/config"
	errlog "APKBackup/internal/errors/logging"
	"APKBackup/internal/logger"
	"APKBackup/internal/menu"
	"APKBackup/internal/ui"
)

const haltedMessage = "Execution halted by the user."

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

// exitError carries a process exit code out of run.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) ExitCode() int {
	return e.code
}

func main() {
	if err := run(); err != nil {
		var coder *exitError
		if stdErrors.As(err, &coder) {
			os.Exit(coder.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		storage    string
		preserve   bool
		yes        bool
		configPath string
		logLevel   string
		logFormat  string
	)

	flagSet := pflag.NewFlagSet("apkbackup", pflag.ContinueOnError)
	flagSet.StringVarP(&storage, "storage", "s", string(config.StorageLocal), "where to archive artifacts: local or s3")
	flagSet.BoolVarP(&preserve, "preserve", "p", false, "keep local copies after a successful upload")
	flagSet.BoolVarP(&yes, "yes", "y", false, "answer yes to every prompt")
	flagSet.StringVarP(&configPath, "config", "c", "apkbackup.yaml", "path to the YAML configuration file")
	flagSet.StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	flagSet.StringVar(&logFormat, "log-format", "text", "log format: text or json")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if stdErrors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &exitError{code: 2, err: err}
	}

	level, err := logger.ParseLevel(logLevel)
	if err != nil {
		return &exitError{code: 2, err: err}
	}

	var log logger.Logger
	if strings.EqualFold(logFormat, "json") {
		log = logger.NewStandardLogger(logger.WithLevel(level), logger.WithJSON())
	} else {
		log = logger.NewColoredLogger(logger.WithLevel(level))
	}

	cfg, err := config.Load(configPath, !flagSet.Changed("config"))
	if err != nil {
		errlog.Error(context.Background(), log, "Failed to load configuration", err)
		return &exitError{code: 1, err: err}
	}
	cfg.Run = config.RunOptions{
		Storage:  config.StorageMode(strings.ToLower(storage)),
		Preserve: preserve,
		Yes:      yes,
	}

	printer := ui.NewPrinter(os.Stdout)
	printer.PrintBanner(version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.ContextWithRun(ctx, logger.RunContext{RunID: uuid.NewString()})

	application, err := app.New(cfg, log,
		app.WithConsole(ui.NewConsole(log, os.Stdout)),
		app.WithPrinter(printer),
	)
	if err != nil {
		errlog.Error(ctx, log, "Failed to initialise backup", err)
		return &exitError{code: 1, err: err}
	}

	if _, err := application.Run(ctx); err != nil {
		switch {
		case stdErrors.Is(err, app.ErrDeclined):
			log.Info(haltedMessage)
			return nil
		case stdErrors.Is(err, context.Canceled), stdErrors.Is(err, menu.ErrInterrupted):
			log.Warn(haltedMessage)
			return &exitError{code: 130, err: err}
		default:
			errlog.Error(ctx, log, "Backup run failed", err)
			return &exitError{code: 1, err: err}
		}
	}

	log.Info("APK backup finished")
	return nil
}
