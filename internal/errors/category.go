package errors

// ErrorCategory is the coarse class of an AppError. Catalog, storage, report
// and database errors come from the backup pipeline; the rest are ambient.
type ErrorCategory string

const (
	ErrCategorySystem     ErrorCategory = "SYSTEM"
	ErrCategoryNetwork    ErrorCategory = "NETWORK"
	ErrCategoryConfig     ErrorCategory = "CONFIG"
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryCatalog    ErrorCategory = "CATALOG"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryReport     ErrorCategory = "REPORT"
	ErrCategoryDatabase   ErrorCategory = "DATABASE"
)
