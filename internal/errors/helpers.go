package errors

import "time"

// Option customises an AppError during construction.
type Option func(*AppError)

// WithMetadata attaches metadata to a new AppError.
func WithMetadata(metadata Metadata) Option {
	return func(e *AppError) {
		e.WithFields(metadata)
	}
}

// New stamps and returns an AppError.
func New(category ErrorCategory, code, message string, err error, opts ...Option) *AppError {
	appErr := &AppError{
		Code:      code,
		Category:  category,
		Message:   message,
		Err:       err,
		Timestamp: time.Now(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(appErr)
		}
	}
	return appErr
}

// NewRecoverable is New with Recoverable set.
func NewRecoverable(category ErrorCategory, code, message string, err error, opts ...Option) *AppError {
	return New(category, code, message, err, opts...).WithRecoverable(true)
}

// Per-category constructors. Only network errors default to recoverable.

func SystemError(code, message string, err error) *AppError {
	return New(ErrCategorySystem, code, message, err)
}

func NetworkError(code, message string, err error) *AppError {
	return NewRecoverable(ErrCategoryNetwork, code, message, err)
}

func ConfigError(code, message string, err error) *AppError {
	return New(ErrCategoryConfig, code, message, err)
}

func ValidationError(code, message string, err error) *AppError {
	return New(ErrCategoryValidation, code, message, err)
}

func CatalogError(code, message string, err error) *AppError {
	return New(ErrCategoryCatalog, code, message, err)
}

func StorageError(code, message string, err error) *AppError {
	return New(ErrCategoryStorage, code, message, err)
}

func ReportError(code, message string, err error) *AppError {
	return New(ErrCategoryReport, code, message, err)
}

func DatabaseError(code, message string, err error) *AppError {
	return New(ErrCategoryDatabase, code, message, err)
}
