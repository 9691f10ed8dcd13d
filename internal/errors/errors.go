package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind identifies a category of processing failure. The set is closed:
// every error leaving the pipeline carries exactly one of these.
type Kind string

const (
	KindMissingCredential    Kind = "missing_credential"
	KindAuthenticationFailed Kind = "authentication_failed"
	KindAccessDenied         Kind = "access_denied"
	KindRateLimited          Kind = "rate_limited"
	KindNetworkUnavailable   Kind = "network_unavailable"
	KindTimeout              Kind = "timeout"
	KindCancelled            Kind = "cancelled"
	KindUnsupportedFormat    Kind = "unsupported_format"
	KindFileTooLarge         Kind = "file_too_large"
	KindFileRead             Kind = "file_read_error"
	KindFileUpload           Kind = "file_upload_failed"
	KindSignedURL            Kind = "signed_url_failed"
	KindInvalidRequest       Kind = "invalid_request"
	KindUnprocessable        Kind = "unprocessable_document"
	KindServerError          Kind = "server_error"
	KindInvalidResponse      Kind = "invalid_response"
	KindUnknown              Kind = "unknown"
)

// OCRError is the error type for the processing pipeline.
type OCRError struct {
	Kind    Kind
	Message string
	Status  int // HTTP status when the provider answered, 0 otherwise
	Cause   error
}

func (e *OCRError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Status != 0 {
		msg = fmt.Sprintf("[%s] %s (status %d)", e.Kind, e.Message, e.Status)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	return msg
}

func (e *OCRError) Unwrap() error {
	return e.Cause
}

// New creates an OCRError with an optional cause.
func New(kind Kind, message string, cause ...error) *OCRError {
	var c error
	if len(cause) > 0 {
		c = cause[0]
	}
	return &OCRError{
		Kind:    kind,
		Message: message,
		Cause:   c,
	}
}

// NewStatus creates an OCRError that records the HTTP status it came from.
func NewStatus(kind Kind, status int, message string) *OCRError {
	return &OCRError{
		Kind:    kind,
		Message: message,
		Status:  status,
	}
}

func Wrap(err error, kind Kind, message string) *OCRError {
	return &OCRError{
		Kind:    kind,
		Message: message,
		Cause:   err,
	}
}

// KindOf extracts the Kind from an error chain, KindUnknown if none.
func KindOf(err error) Kind {
	var e *OCRError
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsKind(err error, kind Kind) bool {
	var e *OCRError
	return stderrors.As(err, &e) && e.Kind == kind
}

// Retryable reports whether the error's cause is presumed transient.
// Only these kinds are eligible for automatic re-attempt.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTimeout, KindNetworkUnavailable, KindServerError:
		return true
	}
	return false
}

var descriptions = map[Kind]string{
	KindMissingCredential:    "no API credential configured",
	KindAuthenticationFailed: "the API credential was rejected",
	KindAccessDenied:         "access to this resource was denied",
	KindRateLimited:          "the provider is rate limiting requests",
	KindNetworkUnavailable:   "the provider could not be reached",
	KindTimeout:              "the request timed out",
	KindCancelled:            "processing was cancelled",
	KindUnsupportedFormat:    "this file format is not supported",
	KindFileTooLarge:         "the file exceeds the provider size limit",
	KindFileRead:             "the file could not be read",
	KindFileUpload:           "uploading the file failed",
	KindSignedURL:            "obtaining a signed URL failed",
	KindInvalidRequest:       "the provider rejected the request",
	KindUnprocessable:        "the provider could not process the document",
	KindServerError:          "the provider reported an internal error",
	KindInvalidResponse:      "the provider response could not be decoded",
	KindUnknown:              "an unexpected error occurred",
}

var suggestions = map[Kind]string{
	KindMissingCredential:    "add an API key with 'docuscan auth' or set DOCUSCAN_PROVIDER_API_KEY",
	KindAuthenticationFailed: "check that the configured API key is valid",
	KindAccessDenied:         "check that the API key has OCR access",
	KindRateLimited:          "requests are retried automatically; reduce request volume if this persists",
	KindNetworkUnavailable:   "check the network connection and provider status",
	KindTimeout:              "retry with a smaller document or a longer timeout",
	KindUnsupportedFormat:    "convert the document to PDF or a common image format",
	KindFileTooLarge:         "split the document into smaller files",
	KindFileRead:             "check that the file exists and is readable",
	KindFileUpload:           "retry the upload; check the file and network",
	KindSignedURL:            "retry; the uploaded file may have expired",
	KindInvalidRequest:       "this is likely a client bug; report it",
	KindUnprocessable:        "the document may be corrupt or password protected",
	KindServerError:          "requests are retried automatically; try again later if this persists",
	KindInvalidResponse:      "try again; report if the provider keeps answering malformed responses",
}

// Description returns the short human-readable meaning of a kind.
func Description(kind Kind) string {
	if d, ok := descriptions[kind]; ok {
		return d
	}
	return descriptions[KindUnknown]
}

// Suggestion returns a recovery hint for a kind, empty when there is
// nothing useful to suggest (cancellation was user-initiated).
func Suggestion(kind Kind) string {
	return suggestions[kind]
}
