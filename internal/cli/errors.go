package cli

// Error codes for structured error responses.
// These codes are stable and can be relied upon by scripts.
const (
	// Site errors
	ErrSiteNotFound  = "SITE_NOT_FOUND"
	ErrConfigInvalid = "CONFIG_INVALID"
	ErrNotInstalled  = "NOT_INSTALLED"

	// Document errors
	ErrDocumentNotFound = "DOCUMENT_NOT_FOUND"

	// File errors
	ErrFileReadError  = "FILE_READ_ERROR"
	ErrFileWriteError = "FILE_WRITE_ERROR"

	// Database errors
	ErrDatabaseError = "DATABASE_ERROR"
	ErrIndexLocked   = "INDEX_LOCKED"

	// Link graph errors
	ErrInconsistent = "GRAPH_INCONSISTENT"

	// Input errors
	ErrInvalidInput    = "INVALID_INPUT"
	ErrMissingArgument = "MISSING_ARGUMENT"

	// General errors
	ErrInternal = "INTERNAL_ERROR"
)

// Warning codes for non-fatal issues.
const (
	WarnDatabaseOutdated = "DATABASE_OUTDATED"
	WarnSyncErrors       = "SYNC_ERRORS"
	WarnDrainFailures    = "DRAIN_FAILURES"
	WarnNotPublished     = "NOT_PUBLISHED"
)
