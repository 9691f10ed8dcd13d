package ocr

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net"
	"net/url"

	"github.com/gmsas95/docuscan/internal/errors"
)

// ClassifyStatus maps a non-200 provider response to a typed error.
// It is a pure function of its inputs.
func ClassifyStatus(status int, body []byte) *errors.OCRError {
	message := extractMessage(status, body)

	var kind errors.Kind
	switch status {
	case 400:
		kind = errors.KindInvalidRequest
	case 401:
		kind = errors.KindAuthenticationFailed
	case 403:
		kind = errors.KindAccessDenied
	case 413:
		kind = errors.KindFileTooLarge
	case 422:
		kind = errors.KindUnprocessable
	case 429:
		kind = errors.KindRateLimited
	default:
		if status >= 500 && status < 600 {
			kind = errors.KindServerError
		} else {
			kind = errors.KindUnknown
		}
	}
	return errors.NewStatus(kind, status, message)
}

// Known error body shapes, tried in order. Providers answer with
// several different envelopes depending on which layer rejected the
// request.

type structuredBody struct {
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

type genericBody struct {
	Detail  string          `json:"detail"`
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
}

type nestedError struct {
	Message string `json:"message"`
}

type listedError struct {
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

func extractMessage(status int, body []byte) string {
	if len(body) > 0 {
		if msg := decodeStructured(body); msg != "" {
			return msg
		}
		if msg := decodeGeneric(body); msg != "" {
			return msg
		}
		if msg := decodeList(body); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("OCR request failed with status %d", status)
}

func decodeStructured(body []byte) string {
	var b structuredBody
	if err := json.Unmarshal(body, &b); err != nil {
		return ""
	}
	if b.Message != "" {
		return b.Message
	}
	return b.Detail
}

func decodeGeneric(body []byte) string {
	var b genericBody
	if err := json.Unmarshal(body, &b); err != nil {
		return ""
	}
	if b.Detail != "" {
		return b.Detail
	}
	if len(b.Error) > 0 {
		var s string
		if err := json.Unmarshal(b.Error, &s); err == nil && s != "" {
			return s
		}
		var n nestedError
		if err := json.Unmarshal(b.Error, &n); err == nil && n.Message != "" {
			return n.Message
		}
	}
	return b.Message
}

func decodeList(body []byte) string {
	var list []listedError
	if err := json.Unmarshal(body, &list); err != nil || len(list) == 0 {
		return ""
	}
	if list[0].Msg != "" {
		return list[0].Msg
	}
	return list[0].Message
}

// classifyTransport maps http.Client failures (no response at all) to a
// typed error: cancellation, timeout, or unreachable network.
func classifyTransport(err error, operation string) *errors.OCRError {
	if stderrors.Is(err, context.Canceled) {
		return errors.Wrap(err, errors.KindCancelled, operation+" cancelled")
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.KindTimeout, operation+" timed out")
	}
	var urlErr *url.Error
	if stderrors.As(err, &urlErr) && urlErr.Timeout() {
		return errors.Wrap(err, errors.KindTimeout, operation+" timed out")
	}
	var netErr net.Error
	if stderrors.As(err, &netErr) && netErr.Timeout() {
		return errors.Wrap(err, errors.KindTimeout, operation+" timed out")
	}
	return errors.Wrap(err, errors.KindNetworkUnavailable, operation+" failed")
}
