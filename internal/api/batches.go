package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/labeler/internal/ingest"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/storage"
)

const maxBatchBodySize = 10 << 20 // 10MB

type CreateBatchRequest struct {
	Label string       `json:"label"`
	Rows  []record.Row `json:"rows"`
}

func handleCreateBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBatchBodySize)
		defer r.Body.Close()

		var req CreateBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if len(req.Rows) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "rows is required and must not be empty")
			return
		}

		b := storage.Batch{ID: uuid.New().String(), Label: req.Label}
		if err := deps.Store.CreateBatch(b, req.Rows); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save batch: %v", err)
			return
		}
		if err := deps.Store.EnqueueJob(ingest.NewLabelJob(b.ID)); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue job: %v", err)
			return
		}

		writeJSON(w, map[string]string{
			"id":     b.ID,
			"status": storage.BatchQueued,
		})
	}
}

func handleListBatches(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)

		batches, err := deps.Store.ListBatches(limit)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list batches: %v", err)
			return
		}
		if batches == nil {
			batches = []storage.Batch{}
		}
		writeJSON(w, batches)
	}
}

func handleGetBatch(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := deps.Store.GetBatch(chi.URLParam(r, "id"))
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "batch not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get batch: %v", err)
			return
		}
		writeJSON(w, b)
	}
}

func handleListRecords(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := deps.Store.GetBatch(id); errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "batch not found")
			return
		} else if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get batch: %v", err)
			return
		}

		var (
			docs any
			err  error
		)
		switch kind := strings.ToLower(r.URL.Query().Get("kind")); kind {
		case "simple":
			docs, err = deps.Store.ListSimpleRecords(id)
		case "records":
			docs, err = deps.Store.ListRecords(id)
		case "", "final":
			docs, err = deps.Store.ListFinalRecords(id)
		default:
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown kind %q (want simple, records or final)", kind)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list records: %v", err)
			return
		}
		writeJSON(w, docs)
	}
}
