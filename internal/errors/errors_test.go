package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestOCRError(t *testing.T) {
	err := New(KindFileUpload, "upload failed")

	if err.Kind != KindFileUpload {
		t.Errorf("expected kind %s, got %s", KindFileUpload, err.Kind)
	}
	if err.Message != "upload failed" {
		t.Errorf("expected message 'upload failed', got %s", err.Message)
	}
}

func TestOCRErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := New(KindNetworkUnavailable, "request failed", cause)

	if err.Cause != cause {
		t.Errorf("expected cause to be set")
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "underlying error") {
		t.Errorf("expected error string to contain cause, got %s", errStr)
	}
}

func TestOCRErrorStatus(t *testing.T) {
	err := NewStatus(KindRateLimited, 429, "too many requests")

	if err.Status != 429 {
		t.Errorf("expected status 429, got %d", err.Status)
	}
	if !strings.Contains(err.Error(), "status 429") {
		t.Errorf("expected error string to contain status, got %s", err.Error())
	}
}

func TestOCRErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("underlying error")
	err := New(KindTimeout, "timed out", cause)

	if err.Unwrap() != cause {
		t.Errorf("expected unwrap to return cause")
	}
}

func TestKindOf(t *testing.T) {
	typed := New(KindAccessDenied, "forbidden")
	wrapped := fmt.Errorf("outer: %w", typed)
	plain := fmt.Errorf("standard error")

	if KindOf(typed) != KindAccessDenied {
		t.Errorf("expected kind %s, got %s", KindAccessDenied, KindOf(typed))
	}
	if KindOf(wrapped) != KindAccessDenied {
		t.Errorf("expected kind extraction through wrapping, got %s", KindOf(wrapped))
	}
	if KindOf(plain) != KindUnknown {
		t.Errorf("expected %s for plain error, got %s", KindUnknown, KindOf(plain))
	}
}

func TestIsKind(t *testing.T) {
	err := New(KindCancelled, "cancelled")

	if !IsKind(err, KindCancelled) {
		t.Error("expected IsKind to match")
	}
	if IsKind(err, KindTimeout) {
		t.Error("expected IsKind to reject a different kind")
	}
	if IsKind(fmt.Errorf("plain"), KindCancelled) {
		t.Error("expected IsKind to reject a plain error")
	}
}

func TestRetryable(t *testing.T) {
	retryable := []Kind{KindRateLimited, KindTimeout, KindNetworkUnavailable, KindServerError}
	for _, kind := range retryable {
		if !Retryable(New(kind, "transient")) {
			t.Errorf("expected %s to be retryable", kind)
		}
	}

	terminal := []Kind{
		KindMissingCredential, KindAuthenticationFailed, KindAccessDenied,
		KindCancelled, KindUnsupportedFormat, KindFileTooLarge, KindFileRead,
		KindFileUpload, KindSignedURL, KindInvalidRequest, KindUnprocessable,
		KindInvalidResponse, KindUnknown,
	}
	for _, kind := range terminal {
		if Retryable(New(kind, "terminal")) {
			t.Errorf("expected %s to not be retryable", kind)
		}
	}

	if Retryable(fmt.Errorf("plain")) {
		t.Error("expected plain error to not be retryable")
	}
}

func TestDescriptionCoversAllKinds(t *testing.T) {
	kinds := []Kind{
		KindMissingCredential, KindAuthenticationFailed, KindAccessDenied,
		KindRateLimited, KindNetworkUnavailable, KindTimeout, KindCancelled,
		KindUnsupportedFormat, KindFileTooLarge, KindFileRead, KindFileUpload,
		KindSignedURL, KindInvalidRequest, KindUnprocessable, KindServerError,
		KindInvalidResponse, KindUnknown,
	}
	for _, kind := range kinds {
		if Description(kind) == "" {
			t.Errorf("expected description for %s", kind)
		}
	}

	if Description(Kind("bogus")) != Description(KindUnknown) {
		t.Error("expected unknown kinds to fall back to the generic description")
	}
}

func TestSuggestion(t *testing.T) {
	if Suggestion(KindMissingCredential) == "" {
		t.Error("expected a suggestion for missing credential")
	}
	// Cancellation is user-initiated so there is nothing to suggest.
	if Suggestion(KindCancelled) != "" {
		t.Errorf("expected no suggestion for cancellation, got %q", Suggestion(KindCancelled))
	}
}
