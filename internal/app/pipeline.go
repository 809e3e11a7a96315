package app

import (
	"context"

	apperrors "APKBackup/internal/errors"
	"APKBackup/internal/logger"
	"APKBackup/internal/ui"
)

// Step describes a single startup phase.
type Step struct {
	Name      string
	Operation string
	Category  apperrors.ErrorCategory
	Fn        func(ctx context.Context) error
}

// Pipeline executes startup steps sequentially and stops at the first failure.
type Pipeline struct {
	steps   []Step
	console *ui.Console
	logger  logger.Logger
}

// NewPipeline constructs a new pipeline. console may be nil.
func NewPipeline(console *ui.Console, log logger.Logger, steps []Step) *Pipeline {
	return &Pipeline{
		steps:   steps,
		console: console,
		logger:  log,
	}
}

// Execute runs through all configured steps.
func (p *Pipeline) Execute(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if p.logger != nil {
			p.logger.Debug("Executing step: %s", step.Name)
		}

		if p.console != nil {
			p.console.StartProgress(step.Name)
		}
		if err := step.Fn(ctx); err != nil {
			if p.console != nil {
				p.console.FailProgress(step.Name)
			}
			return apperrors.Annotate(err, step.Category, genericCode(step.Category), step.Name+" failed", "app", step.Operation)
		}
		if p.console != nil {
			p.console.StopProgress(step.Name)
		}
	}
	return nil
}

func genericCode(category apperrors.ErrorCategory) string {
	switch category {
	case apperrors.ErrCategoryNetwork:
		return apperrors.CodeNetworkGeneric
	case apperrors.ErrCategoryConfig:
		return apperrors.CodeConfigGeneric
	case apperrors.ErrCategoryValidation:
		return apperrors.CodeValidationGeneric
	case apperrors.ErrCategoryCatalog:
		return apperrors.CodeCatalogGeneric
	case apperrors.ErrCategoryStorage:
		return apperrors.CodeStorageGeneric
	case apperrors.ErrCategoryReport:
		return apperrors.CodeReportGeneric
	case apperrors.ErrCategoryDatabase:
		return apperrors.CodeDatabaseGeneric
	default:
		return apperrors.CodeSystemGeneric
	}
}
