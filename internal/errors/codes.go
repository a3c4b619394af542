// Package errors defines the structured error taxonomy of an interview session.
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode identifies a class of session failure.
type ErrorCode string

const (
	// ErrCodeDeviceUnavailable indicates camera or microphone could not be acquired.
	ErrCodeDeviceUnavailable ErrorCode = "DEVICE_UNAVAILABLE"
	// ErrCodeRecordingStartFailed indicates the continuous recording could not start.
	ErrCodeRecordingStartFailed ErrorCode = "RECORDING_START_FAILED"
	// ErrCodeAlreadyFinalized indicates the recording was already finalized.
	ErrCodeAlreadyFinalized ErrorCode = "ALREADY_FINALIZED"
	// ErrCodeCollaboratorFailed indicates an external AI, speech or storage call failed.
	ErrCodeCollaboratorFailed ErrorCode = "COLLABORATOR_FAILED"
	// ErrCodeUploadFailed indicates the finalized recording could not be uploaded.
	ErrCodeUploadFailed ErrorCode = "UPLOAD_FAILED"
	// ErrCodePollingTimeout indicates no analysis result arrived before the hard ceiling.
	ErrCodePollingTimeout ErrorCode = "POLLING_TIMEOUT"
	// ErrCodeAggregationFailed indicates a segment could not be folded into the report.
	ErrCodeAggregationFailed ErrorCode = "AGGREGATION_FAILED"
	// ErrCodeTurnInProgress indicates a candidate turn is already being processed.
	ErrCodeTurnInProgress ErrorCode = "TURN_IN_PROGRESS"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
)

// Error represents a structured error for session operations.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithContext adds context to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// GetCode returns the error code.
func (e *Error) GetCode() ErrorCode {
	return e.Code
}

// DeviceUnavailable creates a device access error.
func DeviceUnavailable(cause error) *Error {
	return &Error{Code: ErrCodeDeviceUnavailable, Message: "camera or microphone unavailable", Cause: cause}
}

// RecordingStartFailed creates a recording start error.
func RecordingStartFailed(msg string, cause error) *Error {
	return &Error{Code: ErrCodeRecordingStartFailed, Message: msg, Cause: cause}
}

// AlreadyFinalized creates an already-finalized error.
func AlreadyFinalized() *Error {
	return &Error{Code: ErrCodeAlreadyFinalized, Message: "recording already finalized"}
}

// CollaboratorFailed creates a collaborator error for the named collaborator.
func CollaboratorFailed(collaborator string, cause error) *Error {
	return &Error{
		Code:    ErrCodeCollaboratorFailed,
		Message: collaborator + " call failed",
		Cause:   cause,
		Context: map[string]any{"collaborator": collaborator},
	}
}

// UploadFailed creates an upload error.
func UploadFailed(msg string, cause error) *Error {
	return &Error{Code: ErrCodeUploadFailed, Message: msg, Cause: cause}
}

// PollingTimeout creates a polling timeout error.
func PollingTimeout(msg string) *Error {
	return &Error{Code: ErrCodePollingTimeout, Message: msg}
}

// AggregationFailed creates a per-segment aggregation error.
func AggregationFailed(segmentIndex int, cause error) *Error {
	return &Error{
		Code:    ErrCodeAggregationFailed,
		Message: fmt.Sprintf("segment %d could not be aggregated", segmentIndex),
		Cause:   cause,
		Context: map[string]any{"segment_index": segmentIndex},
	}
}

// TurnInProgress creates a turn-in-progress error.
func TurnInProgress() *Error {
	return &Error{Code: ErrCodeTurnInProgress, Message: "a candidate answer is already being processed"}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *Error {
	return &Error{Code: ErrCodeInvalidArgument, Message: msg}
}

// Wrap wraps an existing error with a code.
func Wrap(cause error, code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if any error in the chain carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not an *Error.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return defaultCode
}
