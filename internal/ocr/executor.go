package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/gmsas95/docuscan/internal/errors"
	"github.com/gmsas95/docuscan/internal/security"
)

const errorBodyLimit = 64 * 1024

// ExecutorConfig tunes the submission client.
type ExecutorConfig struct {
	BaseURL string
	Timeout time.Duration
	// RequestsPerMinute bounds client-side submission rate, 0 disables.
	RequestsPerMinute int
}

// Executor sends OCR submissions to the provider. A token-bucket
// limiter and a circuit breaker sit in front of the HTTP call; the
// breaker only counts transport and server faults, not client errors.
type Executor struct {
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[*Response]
	logger  *zap.Logger
}

func NewExecutor(cfg ExecutorConfig, logger *zap.Logger) *Executor {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 180 * time.Second
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute)
	}

	breaker := gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
		Name:    "ocr-submit",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// Client-side rejections and rate limits say nothing about
			// provider health, so they must not trip the breaker.
			switch errors.KindOf(err) {
			case errors.KindTimeout, errors.KindNetworkUnavailable, errors.KindServerError:
				return false
			}
			return true
		},
	})

	return &Executor{
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		breaker: breaker,
		logger:  logger,
	}
}

// Submit sends one OCR submission and decodes the response. Non-200
// statuses are classified into typed errors; a malformed success body
// is reported as invalid-response, never silently defaulted.
func (e *Executor) Submit(ctx context.Context, apiKey string, sub Submission) (*Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, classifyTransport(err, "OCR submission")
		}
	}

	result, err := e.breaker.Execute(func() (*Response, error) {
		return e.submit(ctx, apiKey, sub)
	})
	if err != nil {
		if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, errors.Wrap(err, errors.KindNetworkUnavailable, "provider temporarily unavailable")
		}
		return nil, err
	}
	return result, nil
}

func (e *Executor) submit(ctx context.Context, apiKey string, sub Submission) (*Response, error) {
	body, err := json.Marshal(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/ocr", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, classifyTransport(err, "OCR submission")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		classified := ClassifyStatus(resp.StatusCode, raw)
		e.logger.Warn("OCR submission rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("kind", string(classified.Kind)),
			zap.String("body", security.Redact(string(raw))),
		)
		return nil, classified
	}

	var result Response
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(err, errors.KindInvalidResponse, "failed to decode OCR response")
	}
	return &result, nil
}
