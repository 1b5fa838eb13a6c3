package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind is the closed taxonomy of provider failures.
type ErrorKind string

const (
	// KindTimeout: the per-call deadline elapsed. Retried.
	KindTimeout ErrorKind = "timeout"
	// KindUnavailable: no connection to the backend. Retried.
	KindUnavailable ErrorKind = "unavailable"
	// KindDisabled: the provider is switched off by configuration. Not retried.
	KindDisabled ErrorKind = "disabled"
	// KindResponseError: malformed payload or 5xx after retries. Retried while transient.
	KindResponseError ErrorKind = "response_error"
	// KindBadRequest: 4xx or schema error. Never retried.
	KindBadRequest ErrorKind = "bad_request"
)

// Error is a typed provider failure.
type Error struct {
	Kind       ErrorKind
	Message    string
	StatusCode int // HTTP status when applicable
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s (status %d): %s", e.Kind, e.StatusCode, e.Message)
	}

	return fmt.Sprintf("provider %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the retry loop may attempt the call again.
// Only timeouts, connection failures and transient 5xx qualify.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindTimeout, KindUnavailable:
		return true
	case KindResponseError:
		return e.StatusCode >= 500 || e.StatusCode == 0
	default:
		return false
	}
}

// Classify converts a transport error or HTTP status into a typed Error.
func Classify(err error, statusCode int, body string) *Error {
	if err != nil {
		var perr *Error
		if errors.As(err, &perr) {
			return perr
		}

		if errors.Is(err, context.DeadlineExceeded) {
			return &Error{Kind: KindTimeout, Message: "request deadline exceeded", Err: err}
		}

		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return &Error{Kind: KindTimeout, Message: nerr.Error(), Err: err}
		}

		return &Error{Kind: KindUnavailable, Message: err.Error(), Err: err}
	}

	switch {
	case statusCode >= 500:
		return &Error{Kind: KindResponseError, StatusCode: statusCode, Message: body}
	case statusCode >= 400:
		return &Error{Kind: KindBadRequest, StatusCode: statusCode, Message: body}
	default:
		return &Error{Kind: KindResponseError, StatusCode: statusCode, Message: body}
	}
}

// KindOf extracts the error kind, or empty string for non-provider errors.
func KindOf(err error) ErrorKind {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind
	}

	return ""
}
