package reconcile

import "fmt"

// Failure classification codes surfaced to callers.
const (
	CodeNetworkFailure      = "NETWORK_FAILURE"
	CodeTimeoutFailure      = "TIMEOUT_FAILURE"
	CodeValidationFailure   = "VALIDATION_FAILURE"
	CodePartialWriteFailure = "PARTIAL_WRITE_FAILURE"
	CodeNotFound            = "NOT_FOUND"
)

// SyncError classifies a reconciliation failure. Field names the field or
// operation that failed when one is identifiable.
type SyncError struct {
	Field   string
	Code    string
	Message string
	Cause   error
}

func (e *SyncError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *SyncError) Unwrap() error {
	return e.Cause
}

// PartialWriteError reports a sync that landed some writes and lost others.
// Succeeded and Failed list field keys; the local record should be refetched
// before any retry.
type PartialWriteError struct {
	Succeeded []string
	Failed    []string
	Causes    []error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write: %d field(s) written, %d failed", len(e.Succeeded), len(e.Failed))
}

func (e *PartialWriteError) Unwrap() []error {
	return e.Causes
}
