package provider

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		statusCode    int
		wantKind      ErrorKind
		wantRetryable bool
	}{
		{
			name:          "deadline-exceeded-is-timeout",
			err:           context.DeadlineExceeded,
			wantKind:      KindTimeout,
			wantRetryable: true,
		},
		{
			name:          "wrapped-deadline-is-timeout",
			err:           fmt.Errorf("do request: %w", context.DeadlineExceeded),
			wantKind:      KindTimeout,
			wantRetryable: true,
		},
		{
			name:          "connection-refused-is-unavailable",
			err:           errors.New("dial tcp 127.0.0.1:11434: connect: connection refused"),
			wantKind:      KindUnavailable,
			wantRetryable: true,
		},
		{
			name:          "status-500-is-retryable-response-error",
			statusCode:    500,
			wantKind:      KindResponseError,
			wantRetryable: true,
		},
		{
			name:          "status-503-is-retryable-response-error",
			statusCode:    503,
			wantKind:      KindResponseError,
			wantRetryable: true,
		},
		{
			name:          "status-404-is-bad-request",
			statusCode:    404,
			wantKind:      KindBadRequest,
			wantRetryable: false,
		},
		{
			name:          "status-429-is-bad-request",
			statusCode:    429,
			wantKind:      KindBadRequest,
			wantRetryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err, tt.statusCode, "body")

			if got.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", got.Kind, tt.wantKind)
			}

			if got.Retryable() != tt.wantRetryable {
				t.Errorf("retryable = %v, want %v", got.Retryable(), tt.wantRetryable)
			}
		})
	}
}

func TestClassifyPreservesTypedError(t *testing.T) {
	orig := &Error{Kind: KindDisabled, Message: "off"}

	got := Classify(fmt.Errorf("wrapped: %w", orig), 0, "")
	if got.Kind != KindDisabled {
		t.Errorf("kind = %s, want %s (typed errors pass through)", got.Kind, KindDisabled)
	}
}

func TestKindOf(t *testing.T) {
	if kind := KindOf(&Error{Kind: KindTimeout}); kind != KindTimeout {
		t.Errorf("KindOf = %s, want %s", kind, KindTimeout)
	}

	if kind := KindOf(errors.New("plain")); kind != "" {
		t.Errorf("KindOf(plain) = %q, want empty", kind)
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("inner")
	err := &Error{Kind: KindUnavailable, Message: "no route", Err: inner}

	if !errors.Is(err, inner) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}
