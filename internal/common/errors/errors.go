// Package errors provides standardized error handling for the intake service.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeOfferNotComputable ErrorCode = "OFFER_NOT_COMPUTABLE"

	ErrCodeTransientRemoteFailure ErrorCode = "TRANSIENT_REMOTE_FAILURE"
	ErrCodeStatusCheckFailed      ErrorCode = "STATUS_CHECK_FAILED"

	ErrCodeSnapshotReadFailed  ErrorCode = "SNAPSHOT_READ_FAILED"
	ErrCodeSnapshotWriteFailed ErrorCode = "SNAPSHOT_WRITE_FAILED"
	ErrCodeUnknownSection      ErrorCode = "UNKNOWN_SECTION"

	ErrCodeValidationFailed ErrorCode = "VALIDATION_FAILED"

	ErrCodeAlreadySubmitted    ErrorCode = "ALREADY_SUBMITTED"
	ErrCodeRecordInsertFailed  ErrorCode = "RECORD_INSERT_FAILED"
	ErrCodeDuplicateSubmission ErrorCode = "DUPLICATE_SUBMISSION"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// IsRetryable reports whether err is a StandardError marked retryable.
func IsRetryable(err error) bool {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or "" when err is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var se *StandardError
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ==========================
// 2. Error Constructors
// ==========================

// NewTransientRemoteFailure wraps a save/submit/status transport error.
// The caller decides fail-open vs fail-closed; the error itself only
// records that the remote action did not happen.
func NewTransientRemoteFailure(operation string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeTransientRemoteFailure,
		Message:   "Remote collaborator unreachable",
		Details:   fmt.Sprintf("operation: %s, error: %s", operation, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewStatusCheckFailed records a failed submission-status check. The guard
// resolves this fail-open.
func NewStatusCheckFailed(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeStatusCheckFailed,
		Message:   "Submission status check failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotReadFailed creates a retryable snapshot read error.
func NewSnapshotReadFailed(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotReadFailed,
		Message:   "Durable snapshot read failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSnapshotWriteFailed creates a retryable snapshot write error.
func NewSnapshotWriteFailed(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSnapshotWriteFailed,
		Message:   "Durable snapshot write failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewUnknownSection creates a non-retryable merge target error.
func NewUnknownSection(section string) *StandardError {
	return &StandardError{
		Code:      ErrCodeUnknownSection,
		Message:   "Unknown draft section",
		Details:   fmt.Sprintf("section: %s", section),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewValidationFailed creates a non-retryable payload validation error.
func NewValidationFailed(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeValidationFailed,
		Message:   "Request payload validation failed",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAlreadySubmitted creates a non-retryable access error for an
// application that has already been submitted.
func NewAlreadySubmitted(accountKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAlreadySubmitted,
		Message:   "Application has already been submitted",
		Details:   fmt.Sprintf("accountKey: %s", accountKey),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewRecordInsertFailed creates a retryable submission-record insert error.
func NewRecordInsertFailed(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordInsertFailed,
		Message:   "Submission record insert failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewDuplicateSubmission creates a non-retryable duplicate record error.
func NewDuplicateSubmission(accountKey string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDuplicateSubmission,
		Message:   "Submission record already exists",
		Details:   fmt.Sprintf("accountKey: %s", accountKey),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
