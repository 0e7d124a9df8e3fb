package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrDatabaseError  = errors.New("database error")
	ErrCacheError     = errors.New("cache error")
	ErrCancelled      = errors.New("generation cancelled")
	ErrQuotaExhausted = errors.New("quota exhausted")
	ErrSessionBusy    = errors.New("session already has a request in flight")
	ErrUpstream       = errors.New("upstream model error")
)

const (
	CodeInternal       = "INTERNAL_ERROR"
	CodeInvalidInput   = "INVALID_INPUT"
	CodeNotFound       = "NOT_FOUND"
	CodeCancelled      = "CANCELLED"
	CodeQuotaExhausted = "QUOTA_EXHAUSTED"
	CodeSessionBusy    = "SESSION_BUSY"
	CodeUpstream       = "UPSTREAM_ERROR"
)

type Error struct {
	Err     error
	Message string
	Code    string
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func Wrap(err error, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Code:    CodeInternal,
	}
}

func New(err error, code, message string) *Error {
	return &Error{
		Err:     err,
		Message: message,
		Code:    code,
	}
}

// QuotaExhausted reports that no key can serve model today.
func QuotaExhausted(model string) *Error {
	return New(ErrQuotaExhausted, CodeQuotaExhausted,
		fmt.Sprintf("daily call limit reached: model %s cannot be used again today", model))
}

// AllKeysExhausted is returned when every attempted key was rejected for quota.
func AllKeysExhausted(model string) *Error {
	return New(ErrQuotaExhausted, CodeQuotaExhausted,
		fmt.Sprintf("all API keys are exhausted or invalid for model %s", model))
}

func Cancelled(err error) *Error {
	return New(fmt.Errorf("%w: %v", ErrCancelled, err), CodeCancelled, "generation cancelled")
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}
