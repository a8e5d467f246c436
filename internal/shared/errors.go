package shared

import "fmt"

var (
	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Service errors
	ErrServiceUnavailable = fmt.Errorf("service unavailable")

	// Source API errors
	ErrNotAuthenticated = fmt.Errorf("not authenticated")
	ErrAPIRequest       = fmt.Errorf("API request failed")

	// Record errors, recovered per record and counted
	ErrMissingIdentity  = fmt.Errorf("record is missing its identity")
	ErrInvalidTimestamp = fmt.Errorf("invalid timestamp")

	// Snapshot errors
	ErrSnapshotNotFound  = fmt.Errorf("snapshot not found")
	ErrSnapshotMalformed = fmt.Errorf("snapshot malformed")

	// Store errors
	ErrStoreUnavailable    = fmt.Errorf("store unavailable")
	ErrPartialBatchFailure = fmt.Errorf("partial batch failure")
	ErrUnknownCollection   = fmt.Errorf("unknown collection")
	ErrDocumentNotFound    = fmt.Errorf("document not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
