package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest          = "bad_request"
	ErrCodeValidation          = "validation_error"
	ErrCodeRoomNotFound        = "room_not_found"
	ErrCodeGroupNotFound       = "group_not_found"
	ErrCodeUserNotFound        = "user_not_found"
	ErrCodeNotAMember          = "not_a_member"
	ErrCodeNotInRoom           = "not_in_room"
	ErrCodeForbidden           = "forbidden"
	ErrCodeDuplicateConnection = "duplicate_connection"
	ErrCodeStorage             = "storage_error"
)

// CoreError wraps a code and human-readable message. It is the only error
// shape surfaced to a connection; anything unclassified is reported as a
// generic storage failure without internal detail.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}

// AsCoreError converts err to a *CoreError, mapping unknown errors onto a
// generic storage failure.
func AsCoreError(err error) *CoreError {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce
	}
	return coreError(ErrCodeStorage, "operation failed")
}
