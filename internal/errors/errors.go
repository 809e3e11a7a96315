// Package errors defines AppError, the coded error every package of a
// backup run returns, and helpers to inspect error chains.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// Metadata holds structured attributes rendered as log fields.
type Metadata map[string]interface{}

// AppError is a coded error. Code identifies the failure precisely
// (for example CAT-001); Category groups codes for handling and exit paths.
type AppError struct {
	Code        string
	Category    ErrorCategory
	Message     string
	Operation   string
	Module      string
	Err         error
	Metadata    Metadata
	Recoverable bool
	Timestamp   time.Time
}

func (e *AppError) Error() string {
	if e == nil {
		return "<nil>"
	}
	head := fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
	if e.Err == nil {
		return head
	}
	return head + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any AppError with the same category and code, so package-level
// AppErrors work as sentinels with errors.Is.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok || e == nil || t == nil || t.Code == "" {
		return false
	}
	return e.Code == t.Code && e.Category == t.Category
}

func (e *AppError) WithOperation(operation string) *AppError {
	e.Operation = operation
	return e
}

func (e *AppError) WithModule(module string) *AppError {
	e.Module = module
	return e
}

func (e *AppError) WithRecoverable(recoverable bool) *AppError {
	e.Recoverable = recoverable
	return e
}

func (e *AppError) WithField(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(Metadata)
	}
	e.Metadata[key] = value
	return e
}

func (e *AppError) WithFields(metadata Metadata) *AppError {
	for k, v := range metadata {
		e.WithField(k, v)
	}
	return e
}

// As returns the outermost AppError in err's chain.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether any AppError in err's chain carries code.
func HasCode(err error, code string) bool {
	for {
		appErr, ok := As(err)
		if !ok {
			return false
		}
		if appErr.Code == code {
			return true
		}
		err = appErr.Err
	}
}

// IsRecoverable reports whether the outermost AppError is recoverable.
func IsRecoverable(err error) bool {
	appErr, ok := As(err)
	return ok && appErr.Recoverable
}

// Annotate fills in module and operation on an AppError that lacks them and
// wraps any other error as a new AppError with the fallback category and code.
func Annotate(err error, category ErrorCategory, code, message, module, operation string) *AppError {
	if err == nil {
		return nil
	}
	appErr, ok := As(err)
	if !ok {
		return New(category, code, message, err).WithModule(module).WithOperation(operation)
	}
	if appErr.Module == "" {
		appErr.Module = module
	}
	if appErr.Operation == "" {
		appErr.Operation = operation
	}
	return appErr
}
