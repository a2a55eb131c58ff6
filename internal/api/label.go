package api

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"

	"github.com/kalambet/labeler/internal/canon"
)

type LabelRequest struct {
	Observation string `json:"observation"`
}

type NormalizeRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

func handleLabel(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req LabelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if strings.TrimSpace(req.Observation) == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "observation is required")
			return
		}

		res, err := deps.Labeling.LabelOne(r.Context(), req.Observation)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "%v", err)
			return
		}
		writeJSON(w, res)
	}
}

func handleNormalize(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req NormalizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		v, ok := normalize(deps.Canon, req.Field, req.Value)
		if !ok {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown field %q", req.Field)
			return
		}
		writeJSON(w, map[string]string{"value": v})
	}
}

// normalize canonicalizes value as field. An empty field means free text.
func normalize(c *canon.Canonicalizer, field, value string) (string, bool) {
	if field == "" {
		return c.Text(value), true
	}
	if !slices.Contains(c.Fields(), field) {
		return "", false
	}
	return c.Field(field, value), true
}
