// Package logging renders errors as structured logger fields.
package logging

import (
	"context"
	"sort"

	apperrors "APKBackup/internal/errors"
	"APKBackup/internal/logger"
)

// Keys written from AppError fields; metadata may not shadow them.
var reservedKeys = map[string]struct{}{
	"error":          {},
	"error_code":     {},
	"error_category": {},
	"error_message":  {},
	"module":         {},
	"operation":      {},
	"recoverable":    {},
}

// Error logs a failure that ends the run or a startup step.
func Error(ctx context.Context, log logger.Logger, msg string, err error) {
	if log != nil {
		log.ErrorContext(ctx, msg, FieldsFor(err)...)
	}
}

// Warn logs a failure the run survives, usually scoped to one release.
func Warn(ctx context.Context, log logger.Logger, msg string, err error) {
	if log != nil {
		log.WarnContext(ctx, msg, FieldsFor(err)...)
	}
}

// FieldsFor returns Fields for AppErrors and a single error field otherwise.
func FieldsFor(err error) []logger.Field {
	if err == nil {
		return nil
	}
	if appErr, ok := apperrors.As(err); ok {
		return Fields(appErr)
	}
	return []logger.Field{logger.Error(err)}
}

// Fields flattens appErr: code, category, message, location, cause, then
// metadata sorted by key.
func Fields(appErr *apperrors.AppError) []logger.Field {
	if appErr == nil {
		return nil
	}

	fields := []logger.Field{
		logger.String("error_code", appErr.Code),
		logger.String("error_category", string(appErr.Category)),
		logger.String("error_message", appErr.Message),
	}
	if appErr.Module != "" {
		fields = append(fields, logger.String("module", appErr.Module))
	}
	if appErr.Operation != "" {
		fields = append(fields, logger.String("operation", appErr.Operation))
	}
	if appErr.Err != nil {
		fields = append(fields, logger.Error(appErr.Err))
	}
	if appErr.Recoverable {
		fields = append(fields, logger.Bool("recoverable", true))
	}

	keys := make([]string, 0, len(appErr.Metadata))
	for k := range appErr.Metadata {
		if _, reserved := reservedKeys[k]; !reserved {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, logger.Any(k, appErr.Metadata[k]))
	}
	return fields
}
