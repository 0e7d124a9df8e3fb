package services

import (
	apperrors "assistant-api/internal/pkg/errors"
	"context"
	"errors"
	"net/http"
	"strings"
)

type FailureKind int

const (
	FailureFatal FailureKind = iota
	FailureCancellation
	FailureQuota
)

func (k FailureKind) String() string {
	switch k {
	case FailureCancellation:
		return "cancelled"
	case FailureQuota:
		return "quota"
	default:
		return "fatal"
	}
}

type httpStatusError interface {
	HTTPStatus() int
}

// ClassifyFailure is the only place a remote-call error is inspected.
// Quota detection relies on the 429 status or the word "quota" in the message.
func ClassifyFailure(err error) FailureKind {
	if errors.Is(err, context.Canceled) || errors.Is(err, apperrors.ErrCancelled) {
		return FailureCancellation
	}
	var se httpStatusError
	if errors.As(err, &se) && se.HTTPStatus() == http.StatusTooManyRequests {
		return FailureQuota
	}
	if strings.Contains(strings.ToLower(err.Error()), "quota") {
		return FailureQuota
	}
	return FailureFatal
}
