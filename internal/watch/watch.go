// Package watch processes documents dropped into a watched directory.
package watch

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gmsas95/docuscan/internal/ocr"
	"github.com/gmsas95/docuscan/internal/pipeline"
)

// settleDelay gives the writing process time to finish before the file
// is read.
const settleDelay = 500 * time.Millisecond

// Watcher submits newly created files in a directory through the
// orchestrator, one at a time.
type Watcher struct {
	orchestrator *pipeline.Orchestrator
	settings     ocr.Settings
	logger       *zap.Logger
}

func New(orchestrator *pipeline.Orchestrator, settings ocr.Settings, logger *zap.Logger) *Watcher {
	return &Watcher{
		orchestrator: orchestrator,
		settings:     settings,
		logger:       logger,
	}
}

// Run watches dir until the context is cancelled.
func (w *Watcher) Run(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return err
	}
	w.logger.Info("Watching directory", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) {
				continue
			}
			w.handle(ctx, event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) handle(ctx context.Context, path string) {
	docType, mime := ocr.Classify(path)
	if docType == ocr.TypeUnknown {
		w.logger.Debug("Ignoring unsupported file", zap.String("path", path))
		return
	}

	select {
	case <-ctx.Done():
		return
	case <-time.After(settleDelay):
	}

	doc := ocr.Document{
		ID:       uuid.NewString(),
		Path:     path,
		Name:     filepath.Base(path),
		Type:     docType,
		MIMEType: mime,
	}

	result, err := w.orchestrator.Process(ctx, doc, w.settings)
	if err != nil {
		w.logger.Error("Failed to process watched file",
			zap.String("path", path),
			zap.Error(err),
		)
		return
	}
	w.logger.Info("Processed watched file",
		zap.String("path", path),
		zap.Int("pages", len(result.Pages)),
		zap.String("cost", result.Cost.String()),
	)
}
