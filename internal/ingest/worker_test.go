package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/labeler/internal/batch"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/storage"
)

type mockRunner struct {
	runFn func(ctx context.Context, rows []record.Row) (batch.Result, error)
}

func (m *mockRunner) Run(ctx context.Context, rows []record.Row) (batch.Result, error) {
	return m.runFn(ctx, rows)
}

// echoResult returns one empty record per row, joined to the row.
func echoResult(rows []record.Row) (batch.Result, error) {
	simple := make([]record.SimpleMaintenanceRecord, len(rows))
	records := make([]record.MaintenanceRecord, len(rows))
	for i := range rows {
		simple[i] = record.EmptySimpleRecord()
		records[i] = record.MaintenanceRecord{Jobs: []record.Job{}}
	}
	final, err := batch.Join(records, rows)
	return batch.Result{SimpleRecords: simple, Records: records, FinalRecords: final, Attempts: 1}, err
}

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func enqueueTestBatch(t *testing.T, store *storage.Store, batchID string, maxAttempts int) string {
	t.Helper()
	rows := []record.Row{
		{RowID: "r1", Observation: "se cambia turbo", UnitID: "T_09", StartTime: "2025-03-03T08:00:00", EndTime: "2025-03-03T10:00:00"},
		{RowID: "r2", Observation: "relleno de aceite", UnitID: "T_11", StartTime: "2025-03-04T08:00:00", EndTime: "2025-03-04T09:00:00"},
	}
	if err := store.CreateBatch(storage.Batch{ID: batchID}, rows); err != nil {
		t.Fatalf("CreateBatch: %v", err)
	}
	job := NewLabelJob(batchID)
	job.MaxAttempts = maxAttempts
	if err := store.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}
	return job.ID
}

// resetRunAfter sets run_after to now so the job is immediately claimable after FailJob backoff.
func resetRunAfter(t *testing.T, store *storage.Store, jobID string) {
	t.Helper()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := store.DB().Exec(`UPDATE jobs SET run_after = ? WHERE id = ?`, now, jobID)
	if err != nil {
		t.Fatalf("resetRunAfter: %v", err)
	}
}

func jobStatus(t *testing.T, store *storage.Store, jobID string) string {
	t.Helper()
	var status string
	if err := store.DB().QueryRow(`SELECT status FROM jobs WHERE id = ?`, jobID).Scan(&status); err != nil {
		t.Fatalf("query job status: %v", err)
	}
	return status
}

func TestNewLabelJob(t *testing.T) {
	job := NewLabelJob("b-1")
	if job.Type != JobLabelBatch || job.MaxAttempts != 1 || job.ID == "" {
		t.Errorf("job = %+v", job)
	}
	var p labelPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &p); err != nil || p.BatchID != "b-1" {
		t.Errorf("payload = %s, %v", job.PayloadJSON, err)
	}
}

func TestWorker_ProcessesJob(t *testing.T) {
	store := openTestStore(t)
	jobID := enqueueTestBatch(t, store, "b-1", 1)

	var seen []record.Row
	w := NewWorker(store, &mockRunner{runFn: func(_ context.Context, rows []record.Row) (batch.Result, error) {
		seen = rows
		return echoResult(rows)
	}}, 0)

	didWork, err := w.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if !didWork {
		t.Fatal("RunOnce returned false, expected true")
	}

	if len(seen) != 2 || seen[0].RowID != "r1" {
		t.Errorf("runner saw rows %+v", seen)
	}
	b, err := store.GetBatch("b-1")
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if b.Status != storage.BatchCompleted {
		t.Errorf("batch status = %q, want completed", b.Status)
	}
	final, err := store.ListFinalRecords("b-1")
	if err != nil {
		t.Fatalf("ListFinalRecords: %v", err)
	}
	if len(final) != 2 || final[1].UnitID != "T_11" {
		t.Errorf("final records = %+v", final)
	}
	if got := jobStatus(t, store, jobID); got != "completed" {
		t.Errorf("job status = %q, want completed", got)
	}
}

func TestWorker_NoJob(t *testing.T) {
	store := openTestStore(t)
	w := NewWorker(store, &mockRunner{runFn: func(context.Context, []record.Row) (batch.Result, error) {
		t.Fatal("runner must not be called")
		return batch.Result{}, nil
	}}, 0)

	didWork, err := w.RunOnce(context.Background())
	if err != nil || didWork {
		t.Errorf("RunOnce = %v, %v; want false, nil", didWork, err)
	}
}

func TestWorker_FailedBatchLeavesNoOutput(t *testing.T) {
	store := openTestStore(t)
	jobID := enqueueTestBatch(t, store, "b-f", 1)

	w := NewWorker(store, &mockRunner{runFn: func(context.Context, []record.Row) (batch.Result, error) {
		return batch.Result{}, fmt.Errorf("%w: service down", batch.ErrBatchFailed)
	}}, 0)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}

	b, _ := store.GetBatch("b-f")
	if b.Status != storage.BatchFailed || b.LastError == "" {
		t.Errorf("batch = %+v, want failed with error", b)
	}
	simple, err := store.ListSimpleRecords("b-f")
	if err != nil {
		t.Fatalf("ListSimpleRecords: %v", err)
	}
	if len(simple) != 0 {
		t.Errorf("failed batch stored %d simple records", len(simple))
	}
	if got := jobStatus(t, store, jobID); got != "failed" {
		t.Errorf("job status = %q, want failed", got)
	}
}

func TestWorker_RetryOnFailure(t *testing.T) {
	store := openTestStore(t)
	jobID := enqueueTestBatch(t, store, "b-r", 2)

	var calls atomic.Int32
	w := NewWorker(store, &mockRunner{runFn: func(_ context.Context, rows []record.Row) (batch.Result, error) {
		if calls.Add(1) == 1 {
			return batch.Result{}, errors.New("transient")
		}
		return echoResult(rows)
	}}, 0)

	ctx := context.Background()
	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce 1 error: %v", err)
	}
	if got := jobStatus(t, store, jobID); got != "pending" {
		t.Errorf("after 1st fail: status = %q, want pending", got)
	}
	if b, _ := store.GetBatch("b-r"); b.Status != storage.BatchFailed {
		t.Errorf("after 1st fail: batch status = %q, want failed", b.Status)
	}

	resetRunAfter(t, store, jobID)

	if _, err := w.RunOnce(ctx); err != nil {
		t.Fatalf("RunOnce 2 error: %v", err)
	}
	if got := jobStatus(t, store, jobID); got != "completed" {
		t.Errorf("after 2nd attempt: status = %q, want completed", got)
	}
	b, _ := store.GetBatch("b-r")
	if b.Status != storage.BatchCompleted || b.LastError != "" {
		t.Errorf("batch = %+v, want completed without error", b)
	}
}

func TestWorker_MissingBatch(t *testing.T) {
	store := openTestStore(t)
	job := NewLabelJob("nope")
	if err := store.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	w := NewWorker(store, &mockRunner{runFn: func(context.Context, []record.Row) (batch.Result, error) {
		t.Fatal("runner must not be called")
		return batch.Result{}, nil
	}}, 0)

	if _, err := w.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce error: %v", err)
	}
	if got := jobStatus(t, store, job.ID); got != "failed" {
		t.Errorf("job status = %q, want failed", got)
	}
}

func TestWorker_ConcurrentEnqueue(t *testing.T) {
	store := openTestStore(t)

	const goroutines = 5
	const batchesPerGoroutine = 4
	const total = goroutines * batchesPerGoroutine

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for j := 0; j < batchesPerGoroutine; j++ {
				id := fmt.Sprintf("b-%d-%d", g, j)
				rows := []record.Row{{RowID: id, Observation: "relleno de aceite de motor", UnitID: "T_09"}}
				if err := store.CreateBatch(storage.Batch{ID: id}, rows); err != nil {
					t.Errorf("CreateBatch %s: %v", id, err)
					return
				}
				if err := store.EnqueueJob(NewLabelJob(id)); err != nil {
					t.Errorf("EnqueueJob %s: %v", id, err)
					return
				}
			}
		}(g)
	}
	wg.Wait()

	w := NewWorker(store, &mockRunner{runFn: func(_ context.Context, rows []record.Row) (batch.Result, error) {
		return echoResult(rows)
	}}, 0)

	ctx := context.Background()
	deadline := time.After(5 * time.Second)
	processed := 0
	for processed < total {
		select {
		case <-deadline:
			t.Fatalf("timed out after processing %d/%d jobs", processed, total)
		default:
		}
		didWork, err := w.RunOnce(ctx)
		if err != nil {
			t.Fatalf("RunOnce error at job %d: %v", processed, err)
		}
		if didWork {
			processed++
		} else {
			break
		}
	}

	if processed != total {
		t.Errorf("processed %d jobs, want %d", processed, total)
	}
	batches, err := store.ListBatches(total)
	if err != nil {
		t.Fatalf("ListBatches: %v", err)
	}
	for _, b := range batches {
		if b.Status != storage.BatchCompleted {
			t.Errorf("batch %s status = %q, want completed", b.ID, b.Status)
		}
	}
}

func TestWorker_RunStopsOnCancel(t *testing.T) {
	store := openTestStore(t)
	w := NewWorker(store, &mockRunner{}, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
