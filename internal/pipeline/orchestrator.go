// Package pipeline sequences payload preparation, submission with
// retry, and response transformation for one document at a time.
package pipeline

import (
	"context"
	stderrors "errors"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmsas95/docuscan/internal/credentials"
	"github.com/gmsas95/docuscan/internal/errors"
	"github.com/gmsas95/docuscan/internal/metrics"
	"github.com/gmsas95/docuscan/internal/ocr"
	"github.com/gmsas95/docuscan/internal/pricing"
	"github.com/gmsas95/docuscan/internal/retry"
	"github.com/gmsas95/docuscan/internal/store"
)

// ProgressSink receives progress snapshots. It is called from the
// processing path and must not block.
type ProgressSink func(ocr.Progress)

// Config wires the orchestrator's collaborators.
type Config struct {
	Preparer    *ocr.Preparer
	Executor    *ocr.Executor
	Credentials credentials.Provider
	Cost        pricing.CostFn
	Policy      retry.Policy
	Metrics     *metrics.Metrics
	History     *store.Store // optional
	Progress    ProgressSink // optional
	Logger      *zap.Logger
}

// Orchestrator owns the single in-flight processing job. Starting a
// new job while one is running is rejected; Cancel is idempotent and
// immediately frees the job slot.
type Orchestrator struct {
	preparer    *ocr.Preparer
	executor    *ocr.Executor
	credentials credentials.Provider
	cost        pricing.CostFn
	policy      retry.Policy
	metrics     *metrics.Metrics
	history     *store.Store
	progress    ProgressSink
	logger      *zap.Logger

	mu  sync.Mutex
	job *job
}

type job struct {
	id     string
	cancel context.CancelFunc
}

func New(cfg Config) *Orchestrator {
	if cfg.Cost == nil {
		cfg.Cost = pricing.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.Default()
	}
	if cfg.Policy.MaxAttempts == 0 {
		cfg.Policy = retry.Default()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Orchestrator{
		preparer:    cfg.Preparer,
		executor:    cfg.Executor,
		credentials: cfg.Credentials,
		cost:        cfg.Cost,
		policy:      cfg.Policy,
		metrics:     cfg.Metrics,
		history:     cfg.History,
		progress:    cfg.Progress,
		logger:      cfg.Logger,
	}
}

// Process runs the full pipeline for one document. The credential is
// checked before any task starts; its absence fails immediately.
func (o *Orchestrator) Process(ctx context.Context, doc ocr.Document, settings ocr.Settings) (*ocr.Result, error) {
	apiKey, err := o.credentials.Retrieve()
	if err != nil {
		return nil, errors.Wrap(err, errors.KindMissingCredential, "no API credential configured")
	}

	o.mu.Lock()
	if o.job != nil {
		o.mu.Unlock()
		return nil, errors.New(errors.KindInvalidRequest, "another document is already being processed")
	}
	jobCtx, cancel := context.WithCancel(ctx)
	j := &job{id: uuid.NewString(), cancel: cancel}
	o.job = j
	o.mu.Unlock()

	defer func() {
		cancel()
		o.mu.Lock()
		if o.job == j {
			o.job = nil
		}
		o.mu.Unlock()
	}()

	startedAt := time.Now()
	o.logger.Info("Processing document",
		zap.String("job_id", j.id),
		zap.String("document", doc.Name),
		zap.String("type", string(doc.Type)),
	)
	o.emit(ocr.Progress{CurrentPage: 0, TotalPages: doc.EstimatedPages, StartedAt: startedAt})

	result, err := o.run(jobCtx, apiKey, doc, settings, startedAt)
	if err != nil {
		err = o.translate(err)
		o.recordFailure(doc, startedAt, err)
		return nil, err
	}

	o.recordSuccess(doc, result)
	return result, nil
}

func (o *Orchestrator) run(ctx context.Context, apiKey string, doc ocr.Document, settings ocr.Settings, startedAt time.Time) (*ocr.Result, error) {
	payload, err := o.preparer.Prepare(ctx, apiKey, doc)
	if err != nil {
		return nil, err
	}
	if doc.Type == ocr.TypePDF {
		if fi, statErr := os.Stat(doc.Path); statErr == nil {
			o.metrics.RecordUpload(fi.Size())
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// The signed URL obtained above is reused across retry attempts;
	// only the submission itself is retried.
	sub := ocr.NewSubmission(payload, settings)
	attempt := 0
	resp, err := retry.Do(ctx, o.policy, o.logger, func(ctx context.Context) (*ocr.Response, error) {
		attempt++
		if attempt > 1 {
			o.metrics.RecordRetry()
			o.emit(ocr.Progress{CurrentPage: 0, TotalPages: doc.EstimatedPages, StartedAt: startedAt})
		}
		return o.executor.Submit(ctx, apiKey, sub)
	})
	if err != nil {
		return nil, err
	}

	return ocr.Transform(doc.ID, resp, o.cost, startedAt, time.Now()), nil
}

// Cancel aborts the in-flight job, if any, and frees the job slot so a
// new Process call is not blocked. Safe to call at any time.
func (o *Orchestrator) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil {
		return
	}
	o.logger.Info("Cancelling processing", zap.String("job_id", o.job.id))
	o.job.cancel()
	o.job = nil
}

// Busy reports whether a job is currently in flight.
func (o *Orchestrator) Busy() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.job != nil
}

// SetProgress replaces the progress sink. It must be called before the
// first Process; sinks are not swapped mid-job.
func (o *Orchestrator) SetProgress(sink ProgressSink) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.progress = sink
}

func (o *Orchestrator) emit(p ocr.Progress) {
	if o.progress != nil {
		o.progress(p)
	}
}

// translate makes sure every error leaving the orchestrator carries a
// kind. Raw context cancellation becomes the dedicated cancelled kind
// so callers can tell "I asked for this" from "something broke".
func (o *Orchestrator) translate(err error) error {
	var oe *errors.OCRError
	if stderrors.As(err, &oe) {
		return err
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.Wrap(err, errors.KindCancelled, "processing cancelled")
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, errors.KindTimeout, "processing timed out")
	}
	return errors.Wrap(err, errors.KindUnknown, "processing failed")
}

func (o *Orchestrator) recordSuccess(doc ocr.Document, result *ocr.Result) {
	o.metrics.RecordSubmission(true)
	o.metrics.RecordPages(int64(len(result.Pages)))
	o.metrics.RecordDuration(result.Duration)
	o.logger.Info("Processing complete",
		zap.String("document", doc.Name),
		zap.Int("pages", len(result.Pages)),
		zap.String("cost", result.Cost.String()),
		zap.Duration("duration", result.Duration),
	)

	o.saveRecord(&store.ScanRecord{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		DocumentType: string(doc.Type),
		Model:        result.Model,
		Status:       store.StatusCompleted,
		Pages:        len(result.Pages),
		CostValue:    result.Cost.Value,
		CostCurrency: result.Cost.Currency,
		DurationMS:   result.Duration.Milliseconds(),
		CompletedAt:  result.CompletedAt,
	})
}

func (o *Orchestrator) recordFailure(doc ocr.Document, startedAt time.Time, err error) {
	kind := errors.KindOf(err)
	o.metrics.RecordSubmission(false)
	o.metrics.RecordFailure(string(kind))

	status := store.StatusFailed
	if kind == errors.KindCancelled {
		status = store.StatusCancelled
		o.metrics.RecordCancellation()
		o.logger.Info("Processing cancelled", zap.String("document", doc.Name))
	} else {
		o.logger.Error("Processing failed",
			zap.String("document", doc.Name),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
	}

	o.saveRecord(&store.ScanRecord{
		DocumentID:   doc.ID,
		DocumentName: doc.Name,
		DocumentType: string(doc.Type),
		Status:       status,
		ErrorKind:    string(kind),
		DurationMS:   time.Since(startedAt).Milliseconds(),
		CompletedAt:  time.Now(),
	})
}

func (o *Orchestrator) saveRecord(rec *store.ScanRecord) {
	if o.history == nil {
		return
	}
	if err := o.history.Record(rec); err != nil {
		o.logger.Warn("Failed to record history", zap.Error(err))
	}
}
