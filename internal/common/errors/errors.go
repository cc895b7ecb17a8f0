// Package errors provides standardized error handling for the intake service.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeAnalysisCallFailed  ErrorCode = "ANALYSIS_CALL_FAILED"
	ErrCodeAnalysisTimeout     ErrorCode = "ANALYSIS_TIMEOUT"
	ErrCodeAnalysisBadResponse ErrorCode = "ANALYSIS_BAD_RESPONSE"

	ErrCodeStepValidationFailed ErrorCode = "STEP_VALIDATION_FAILED"
	ErrCodeDraftNotFound        ErrorCode = "DRAFT_NOT_FOUND"
	ErrCodeDraftClosed          ErrorCode = "DRAFT_CLOSED"

	ErrCodeSubmissionFailed     ErrorCode = "SUBMISSION_FAILED"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeFileUploadFailed     ErrorCode = "FILE_UPLOAD_FAILED"

	ErrCodeSessionCreateFailed ErrorCode = "SESSION_CREATE_FAILED"
	ErrCodeSessionUpdateFailed ErrorCode = "SESSION_UPDATE_FAILED"

	ErrCodeProxyFailed      ErrorCode = "PROXY_FAILED"
	ErrCodeMethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
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
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewAnalysisCallFailedError creates a retryable external analysis error.
func NewAnalysisCallFailedError(docType string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisCallFailed,
		Message:   fmt.Sprintf("Analysis call for '%s' failed", docType),
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAnalysisTimeoutError creates a retryable analysis timeout error.
func NewAnalysisTimeoutError(docType string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisTimeout,
		Message:   fmt.Sprintf("Analysis call for '%s' timed out", docType),
		Details:   "request exceeded configured timeout",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewAnalysisBadResponseError creates a non-retryable bad-response error.
// The downstream body is carried verbatim for diagnostics.
func NewAnalysisBadResponseError(docType string, status int, body string) *StandardError {
	return &StandardError{
		Code:      ErrCodeAnalysisBadResponse,
		Message:   fmt.Sprintf("Analysis API for '%s' returned status %d", docType, status),
		Details:   body,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewStepValidationFailedError creates a non-retryable guard failure. The
// message is user-facing and blocks the step transition.
func NewStepValidationFailedError(message string) *StandardError {
	return &StandardError{
		Code:      ErrCodeStepValidationFailed,
		Message:   message,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDraftNotFoundError creates a non-retryable missing-draft error.
func NewDraftNotFoundError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftNotFound,
		Message:   "Application draft not found",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDraftClosedError signals edits after a terminal submit.
func NewDraftClosedError(sessionID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDraftClosed,
		Message:   "Application has already been submitted",
		Details:   fmt.Sprintf("sessionId: %s", sessionID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewSubmissionFailedError is the single generic failure the applicant sees
// when any part of the final fan-out fails.
func NewSubmissionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSubmissionFailed,
		Message:   "Submission failed, please try again",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertFailedError creates a retryable database insert error.
func NewDatabaseInsertFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert operation failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFileUploadFailedError creates a retryable object storage error.
func NewFileUploadFailedError(bucket, object string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFileUploadFailed,
		Message:   "File upload failed",
		Details:   fmt.Sprintf("bucket: %s, object: %s, error: %s", bucket, object, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionCreateFailedError creates a retryable session tracking error.
func NewSessionCreateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionCreateFailed,
		Message:   "Failed to create live session",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSessionUpdateFailedError creates a retryable session tracking error.
func NewSessionUpdateFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSessionUpdateFailed,
		Message:   "Failed to update live session",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewProxyFailedError is the generic 500 body for proxy endpoints.
func NewProxyFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeProxyFailed,
		Message:   "Proxy error",
		Details:   err.Error(),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}
