// Package data keeps a history of audited releases across runs.
package data

import (
	"context"

	"APKBackup/internal/report"
)

// Repository describes the persistence contract for the backup history.
type Repository interface {
	// Bootstrap prepares the backing store.
	Bootstrap(ctx context.Context) error
	// Record stores one audit row under runID.
	Record(ctx context.Context, runID string, row report.Row) error
	// Run returns the rows recorded for runID in insertion order.
	Run(ctx context.Context, runID string) ([]report.Row, error)
	Close() error
}
