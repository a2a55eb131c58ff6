// Package ingest runs queued batches in the background.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/labeler/internal/batch"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/storage"
)

// JobLabelBatch is the job type that labels one stored batch.
const JobLabelBatch = "label_batch"

// JobStore abstracts the job queue and batch operations.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetObservations(batchID string) ([]record.Row, error)
	SetBatchStatus(id, status, lastError string) error
	batch.Sink
}

// BatchRunner labels a full batch of rows.
type BatchRunner interface {
	Run(ctx context.Context, rows []record.Row) (batch.Result, error)
}

type labelPayload struct {
	BatchID string `json:"batch_id"`
}

// NewLabelJob builds the queue entry for batchID. The driver already
// retries the whole batch, so the job itself runs once.
func NewLabelJob(batchID string) storage.Job {
	payload, _ := json.Marshal(labelPayload{BatchID: batchID})
	return storage.Job{
		ID:          uuid.New().String(),
		Type:        JobLabelBatch,
		PayloadJSON: string(payload),
		MaxAttempts: 1,
	}
}

// Worker processes label_batch jobs from the SQLite job queue.
type Worker struct {
	store  JobStore
	runner BatchRunner
	poll   time.Duration
	logger *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, runner BatchRunner, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:  store,
		runner: runner,
		poll:   pollInterval,
		logger: slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single label_batch job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobLabelBatch})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload labelPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	if err := w.store.SetBatchStatus(payload.BatchID, storage.BatchRunning, ""); err != nil {
		return fmt.Errorf("starting batch %s: %w", payload.BatchID, err)
	}

	if err := w.label(ctx, payload.BatchID); err != nil {
		if setErr := w.store.SetBatchStatus(payload.BatchID, storage.BatchFailed, err.Error()); setErr != nil {
			w.logger.Error("failed to mark batch as failed", "batch_id", payload.BatchID, "error", setErr)
		}
		return err
	}
	return nil
}

func (w *Worker) label(ctx context.Context, batchID string) error {
	rows, err := w.store.GetObservations(batchID)
	if err != nil {
		return fmt.Errorf("loading observations of batch %s: %w", batchID, err)
	}

	w.logger.Info("labeling batch", "batch_id", batchID, "rows", len(rows))
	res, err := w.runner.Run(ctx, rows)
	if err != nil {
		return fmt.Errorf("labeling batch %s: %w", batchID, err)
	}

	if err := w.store.SaveResults(ctx, batchID, res); err != nil {
		return fmt.Errorf("saving results of batch %s: %w", batchID, err)
	}
	return nil
}
