package errors

// Generic error code definitions used as sensible defaults across modules.
const (
	CodeSystemGeneric     = "SYS-000"
	CodeNetworkGeneric    = "NET-000"
	CodeConfigGeneric     = "CFG-000"
	CodeValidationGeneric = "VAL-000"
	CodeCatalogGeneric    = "CAT-000"
	CodeStorageGeneric    = "STO-000"
	CodeReportGeneric     = "REP-000"
	CodeDatabaseGeneric   = "DB-000"
)

// Specific codes for conditions callers branch on.
const (
	CodeCatalogRetryExhausted = "CAT-001"
	CodeCatalogDecode         = "CAT-002"
	CodeCatalogMissingField   = "CAT-003"

	CodeStorageCredentials = "STO-001"
	CodeStorageBucket      = "STO-002"
	CodeStorageHead        = "STO-003"

	CodeNetworkStatus = "NET-001"

	CodeInterrupted = "SYS-001"
)
