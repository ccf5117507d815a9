package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"cumulus/internal/domain/services"
)

// Generator produces a thumbnail for stored content and writes it to
// dstPath. Implementations exist per kind ("image", "video").
type Generator interface {
	Generate(ctx context.Context, kind, srcKey, dstPath string) error
}

// ThumbnailDispatcher runs thumbnail generation on a single background
// worker fed by a bounded queue. Enqueue never blocks: when the queue
// is full the job is dropped and logged, since a thumbnail is
// regenerable and never part of an operation's success contract.
type ThumbnailDispatcher struct {
	thumbDir string
	kinds    *MimeKinds
	gen      Generator
	logger   *slog.Logger

	jobs chan services.ThumbnailJob
	wg   sync.WaitGroup
	once sync.Once
}

// NewThumbnailDispatcher creates a dispatcher writing thumbnails under
// thumbDir.
func NewThumbnailDispatcher(thumbDir string, kinds *MimeKinds, gen Generator, queueSize int, logger *slog.Logger) (*ThumbnailDispatcher, error) {
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return nil, fmt.Errorf("create thumbnail dir: %w", err)
	}
	return &ThumbnailDispatcher{
		thumbDir: thumbDir,
		kinds:    kinds,
		gen:      gen,
		logger:   logger,
		jobs:     make(chan services.ThumbnailJob, queueSize),
	}, nil
}

var _ services.ThumbnailDispatcher = (*ThumbnailDispatcher)(nil)

// Start launches the worker. The context bounds each generation run.
func (d *ThumbnailDispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for job := range d.jobs {
			d.process(ctx, job)
		}
	}()
}

// Close stops accepting jobs and waits for the worker to drain.
func (d *ThumbnailDispatcher) Close() {
	d.once.Do(func() { close(d.jobs) })
	d.wg.Wait()
}

// Enqueue submits a job without blocking. Jobs for mime types outside
// the rule set are discarded up front.
func (d *ThumbnailDispatcher) Enqueue(job services.ThumbnailJob) {
	if d.kinds.KindFor(job.MimeType) == "" {
		return
	}
	select {
	case d.jobs <- job:
	default:
		d.logger.Warn("thumbnail queue full, job dropped",
			"entity_id", job.EntityID,
			"mime_type", job.MimeType,
		)
	}
}

// DeleteThumbnail removes a generated thumbnail, if any.
func (d *ThumbnailDispatcher) DeleteThumbnail(ctx context.Context, entityID string) error {
	path := filepath.Join(d.thumbDir, entityID+".jpg")
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete thumbnail %s: %w", entityID, err)
	}
	return nil
}

func (d *ThumbnailDispatcher) process(ctx context.Context, job services.ThumbnailJob) {
	kind := d.kinds.KindFor(job.MimeType)
	dstPath := filepath.Join(d.thumbDir, job.EntityID+".jpg")
	if err := d.gen.Generate(ctx, kind, job.Key, dstPath); err != nil {
		d.logger.Warn("thumbnail generation failed",
			"entity_id", job.EntityID,
			"kind", kind,
			"error", err,
		)
	}
}
