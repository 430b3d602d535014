package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"alfredoptarigan/cv-screener/internal/logger"
	"alfredoptarigan/cv-screener/internal/models"
	"alfredoptarigan/cv-screener/internal/repositories"
)

type Worker interface {
	Start(ctx context.Context)
	Stop()
	EnqueueRun(runID uuid.UUID)
	ProcessRun(ctx context.Context, runID uuid.UUID) error
}

type worker struct {
	runRepo      repositories.RunRepository
	docRepo      repositories.DocumentRepository
	storage      StorageService
	orchestrator Orchestrator
	log          *logger.Logger

	jobQueue     chan uuid.UUID
	concurrency  int
	pollInterval time.Duration
	wg           sync.WaitGroup
	stopChan     chan struct{}
	stopOnce     sync.Once
}

func NewWorker(
	runRepo repositories.RunRepository,
	docRepo repositories.DocumentRepository,
	storage StorageService,
	orchestrator Orchestrator,
	concurrency int,
	pollInterval time.Duration,
	log *logger.Logger,
) Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &worker{
		runRepo:      runRepo,
		docRepo:      docRepo,
		storage:      storage,
		orchestrator: orchestrator,
		log:          log,
		jobQueue:     make(chan uuid.UUID, 100),
		concurrency:  concurrency,
		pollInterval: pollInterval,
		stopChan:     make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	w.log.Info("starting run workers", "concurrency", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processRuns(ctx, i+1)
	}

	w.wg.Add(1)
	go w.pollPendingRuns(ctx)
}

// Stop implements Worker.
func (w *worker) Stop() {
	w.stopOnce.Do(func() {
		w.log.Info("stopping run workers")
		close(w.stopChan)
	})
	w.wg.Wait()
}

// EnqueueRun implements Worker. It never blocks: when the queue is full or
// the worker is stopped the run stays queued in the database for the poller.
func (w *worker) EnqueueRun(runID uuid.UUID) {
	select {
	case <-w.stopChan:
		w.log.Warn("worker stopped, run stays queued", "run_id", runID)
		return
	default:
	}
	select {
	case w.jobQueue <- runID:
		w.log.Debug("run enqueued", "run_id", runID)
	default:
		w.log.Warn("run queue full, leaving run for the poller", "run_id", runID)
	}
}

func (w *worker) processRuns(ctx context.Context, workerID int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case runID := <-w.jobQueue:
			if err := w.ProcessRun(ctx, runID); err != nil {
				w.log.Error("run failed", "worker", workerID, "run_id", runID, "error", err)
			}
		}
	}
}

// ProcessRun loads a queued run's uploads, screens them and stores the
// outcome on the run. Runs already claimed elsewhere are ignored.
func (w *worker) ProcessRun(ctx context.Context, runID uuid.UUID) error {
	claimed, err := w.runRepo.Claim(ctx, runID)
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}
	log := w.log.With("run_id", runID)

	run, err := w.runRepo.FindByID(ctx, runID)
	if err != nil {
		return w.fail(runID, err)
	}
	docs, err := w.docRepo.FindByRun(ctx, runID)
	if err != nil {
		return w.fail(runID, err)
	}

	input := RunInput{Dedup: run.Dedup, Flatten: run.Flatten}
	for _, spec := range run.Batches {
		input.Batches = append(input.Batches, BatchConfig{Label: spec.Label, Role: spec.Role, Unit: spec.Unit})
	}
	for _, doc := range docs {
		if doc.BatchIndex < 0 || doc.BatchIndex >= len(input.Batches) {
			log.Warn("document references unknown batch", "document_id", doc.ID, "batch_index", doc.BatchIndex)
			continue
		}
		content, err := w.storage.ReadFile(doc.Filename)
		if err != nil {
			// an empty upload ends up unreadable rather than failing the run
			log.Warn("stored upload missing", "document_id", doc.ID, "error", err)
		}
		b := &input.Batches[doc.BatchIndex]
		b.Files = append(b.Files, models.UploadedDocument{
			Filename:  doc.OriginalFileName,
			MediaType: doc.MediaType,
			Content:   content,
		})
	}

	outcome, err := w.orchestrator.Run(ctx, input)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// leave the run for the poller after a restart
		if rerr := w.runRepo.UpdateStatus(context.WithoutCancel(ctx), runID, models.RunQueued); rerr != nil {
			log.Error("failed to requeue run", "error", rerr)
		}
		return err
	}
	if err != nil {
		return w.fail(runID, err)
	}

	if err := w.runRepo.UpdateResult(ctx, runID, outcome.Files, outcome.Totals); err != nil {
		return fmt.Errorf("failed to save run result: %w", err)
	}
	w.cleanup(ctx, runID, docs)
	log.Info("run completed", "processed", outcome.Totals.Processed, "skipped", outcome.Totals.Skipped(), "errors", outcome.Totals.Errors)
	return nil
}

func (w *worker) fail(runID uuid.UUID, cause error) error {
	if err := w.runRepo.UpdateError(context.Background(), runID, cause.Error()); err != nil {
		w.log.Error("failed to mark run failed", "run_id", runID, "error", err)
	}
	return cause
}

func (w *worker) cleanup(ctx context.Context, runID uuid.UUID, docs []models.Document) {
	for _, doc := range docs {
		if err := w.storage.DeleteFile(doc.Filename); err != nil {
			w.log.Warn("failed to delete upload", "file", doc.Filename, "error", err)
		}
	}
	if err := w.docRepo.DeleteByRun(ctx, runID); err != nil {
		w.log.Warn("failed to delete document rows", "run_id", runID, "error", err)
	}
}

func (w *worker) pollPendingRuns(ctx context.Context) {
	defer w.wg.Done()
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := w.runRepo.FindPendingRuns(ctx, 10)
			if err != nil {
				w.log.Warn("failed to fetch queued runs", "error", err)
				continue
			}
			for _, run := range pending {
				w.EnqueueRun(run.ID)
			}
		}
	}
}
