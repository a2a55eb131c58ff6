package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/labeler/internal/batch"
	"github.com/kalambet/labeler/internal/canon"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/storage"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Labeling labels single observations end to end.
type Labeling struct {
	Labeler    batch.Labeler
	Aggregator batch.Aggregator
}

// LabelResult is the outcome of labeling one observation.
type LabelResult struct {
	Simple record.SimpleMaintenanceRecord `json:"simple"`
	Record record.MaintenanceRecord       `json:"record"`
}

// LabelOne runs the stage pipeline and aggregation on one observation.
func (l Labeling) LabelOne(ctx context.Context, observation string) (LabelResult, error) {
	simple, err := l.Labeler.Label(ctx, observation)
	if err != nil {
		return LabelResult{}, fmt.Errorf("labeling observation: %w", err)
	}
	rec, err := l.Aggregator.Aggregate(ctx, simple)
	if err != nil {
		return LabelResult{}, fmt.Errorf("aggregating record: %w", err)
	}
	return LabelResult{Simple: simple, Record: rec}, nil
}

// AppDeps holds dependencies for the HTTP API.
type AppDeps struct {
	Store    *storage.Store
	Labeling Labeling
	Canon    *canon.Canonicalizer
	Token    string
}

// NewAppHandler returns the HTTP API. Everything except /health requires
// the bearer token.
func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/batches", handleCreateBatch(deps))
		r.Get("/batches", handleListBatches(deps))
		r.Get("/batches/{id}", handleGetBatch(deps))
		r.Get("/batches/{id}/records", handleListRecords(deps))
		r.Post("/label", handleLabel(deps))
		r.Post("/normalize", handleNormalize(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
