package service

import (
	"errors"
	"fmt"
	"net/http"

	"essaysmaster_backend/internals/features/essays/revision/ai"
	"essaysmaster_backend/internals/features/essays/revision/lock"
	"essaysmaster_backend/internals/features/essays/revision/store"
)

type ErrorKind string

const (
	KindInvalidInput           ErrorKind = "invalid_input"
	KindBusy                   ErrorKind = "busy"
	KindTemporarilyUnavailable ErrorKind = "temporarily_unavailable"
	KindStorageFailure         ErrorKind = "storage_failure"
	KindNotFound               ErrorKind = "not_found"
	KindForbidden              ErrorKind = "forbidden"
)

// RoundError is the only error type the services hand to transports.
type RoundError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *RoundError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
}

func (e *RoundError) Unwrap() error { return e.Err }

func (e *RoundError) HTTPStatus() int {
	return e.Kind.HTTPStatus()
}

func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindBusy:
		return http.StatusConflict
	case KindTemporarilyUnavailable:
		return http.StatusServiceUnavailable
	case KindNotFound:
		return http.StatusNotFound
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Retryable kinds may succeed if the client simply tries again.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindBusy, KindTemporarilyUnavailable, KindStorageFailure:
		return true
	}
	return false
}

func invalidInput(msg string) *RoundError {
	return &RoundError{Kind: KindInvalidInput, Message: msg}
}

func storageFailure(msg string, err error) *RoundError {
	return &RoundError{Kind: KindStorageFailure, Message: msg, Err: err}
}

// KindOf extracts the kind from any error returned by this package.
// Unknown errors are reported as storage failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var re *RoundError
	if errors.As(err, &re) {
		return re.Kind
	}
	switch {
	case errors.Is(err, store.ErrNotFound):
		return KindNotFound
	case errors.Is(err, lock.ErrBusy):
		return KindBusy
	case errors.Is(err, ai.ErrProviderUnavailable), errors.Is(err, ai.ErrNotConfigured):
		return KindTemporarilyUnavailable
	}
	return KindStorageFailure
}
