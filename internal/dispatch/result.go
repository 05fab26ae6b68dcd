package dispatch

import (
	"errors"

	"github.com/dkeye/Conclave/internal/domain"
	"github.com/dkeye/Conclave/internal/repository"
)

// Code classifies a failed command for the caller.
type Code string

const (
	CodeValidation       Code = "validation_error"
	CodePermissionDenied Code = "permission_denied"
	CodeNotFound         Code = "not_found"
	CodeConflict         Code = "conflict"
	CodeStoreUnavailable Code = "store_unavailable"
	CodeNoHandler        Code = "no_handler"
)

// Result is the outcome of a dispatched command. Errors are values crossing
// the dispatch boundary, never panics.
type Result struct {
	Success bool   `json:"success"`
	Code    Code   `json:"errorCode,omitempty"`
	Message string `json:"errorMessage,omitempty"`

	// Value is an optional payload returned to the caller (e.g. created
	// room ids).
	Value any `json:"value,omitempty"`

	// Notifications are published by the pipeline after the handler
	// succeeded. They never roll back the state change.
	Notifications []Notification `json:"-"`

	// Err keeps the underlying infrastructure error for logging. It is
	// never serialized to the caller.
	Err error `json:"-"`
}

func Ok(notifications ...Notification) *Result {
	return &Result{Success: true, Notifications: notifications}
}

func OkValue(value any, notifications ...Notification) *Result {
	return &Result{Success: true, Value: value, Notifications: notifications}
}

func Fail(code Code, message string) *Result {
	return &Result{Code: code, Message: message}
}

// FromError maps an error from the repository or a domain package onto a
// result. Store failures are surfaced as a generic message; callers must not
// learn internal detail.
func FromError(err error) *Result {
	switch {
	case errors.Is(err, repository.ErrRoomNotFound):
		return Fail(CodeNotFound, "room not found")
	case errors.Is(err, repository.ErrConferenceNotFound):
		return Fail(CodeNotFound, "conference not found")
	case errors.Is(err, repository.ErrConferenceEnding):
		return Fail(CodeConflict, "conference is ending")
	case errors.Is(err, domain.ErrDuplicateAssignment),
		errors.Is(err, domain.ErrAssignmentOutOfRange),
		errors.Is(err, domain.ErrInvalidAmount):
		return Fail(CodeConflict, err.Error())
	case errors.Is(err, domain.ErrDisplayNameEmpty),
		errors.Is(err, domain.ErrDisplayNameTooLong),
		errors.Is(err, domain.ErrParticipantIDEmpty):
		return Fail(CodeValidation, err.Error())
	default:
		// Anything unclassified is infrastructure; hide the detail.
		return &Result{Code: CodeStoreUnavailable, Message: "storage temporarily unavailable", Err: err}
	}
}
