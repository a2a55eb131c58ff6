package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/kalambet/labeler/internal/catalog"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/storage"
)

const testToken = "test-token-12345"

// --- mocks ---

type mockLabeler struct {
	labelFn func(ctx context.Context, observation string) (record.SimpleMaintenanceRecord, error)
}

func (m *mockLabeler) Label(ctx context.Context, observation string) (record.SimpleMaintenanceRecord, error) {
	return m.labelFn(ctx, observation)
}

type mockAggregator struct {
	aggregateFn func(ctx context.Context, rec record.SimpleMaintenanceRecord) (record.MaintenanceRecord, error)
}

func (m *mockAggregator) Aggregate(ctx context.Context, rec record.SimpleMaintenanceRecord) (record.MaintenanceRecord, error) {
	return m.aggregateFn(ctx, rec)
}

func testLabeling() Labeling {
	return Labeling{
		Labeler: &mockLabeler{labelFn: func(_ context.Context, obs string) (record.SimpleMaintenanceRecord, error) {
			rec := record.EmptySimpleRecord()
			rec.Summary = "resumen: " + obs
			rec.Jobs = []record.SimpleJob{{Piece: "Turbo", JobType: record.JobReplacement}}
			return rec, nil
		}},
		Aggregator: &mockAggregator{aggregateFn: func(_ context.Context, rec record.SimpleMaintenanceRecord) (record.MaintenanceRecord, error) {
			return record.MaintenanceRecord{
				DetentionType:  record.DetentionMinorFailure,
				HasReplacement: true,
				Summary:        rec.Summary,
				Jobs:           []record.Job{},
			}, nil
		}},
	}
}

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.Default()
	if err != nil {
		t.Fatalf("catalog.Default: %v", err)
	}
	return cat
}

// --- helpers ---

func setupAppHandler(t *testing.T, token string) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	handler := NewAppHandler(AppDeps{
		Store:    store,
		Labeling: testLabeling(),
		Canon:    testCatalog(t).Canonicalizer(),
		Token:    token,
	})
	return handler, store
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

// --- tests ---

func TestHealth_NoAuth(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if got := strings.TrimSpace(rr.Body.String()); got != `{"status":"ok"}` {
		t.Errorf("body = %s", got)
	}
}

func TestAuth_Rejects(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	tests := []struct {
		name  string
		token string
	}{
		{"missing", ""},
		{"wrong", "wrong-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, authReq(http.MethodGet, "/batches", "", tt.token))
			if rr.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want %d", rr.Code, http.StatusUnauthorized)
			}
			var body map[string]map[string]string
			json.NewDecoder(rr.Body).Decode(&body)
			if body["error"]["type"] != "authentication_error" {
				t.Errorf("error type = %q", body["error"]["type"])
			}
		})
	}
}

func TestLabel(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/label", `{"observation":"se cambia turbo"}`, testToken))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	var got LabelResult
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Simple.Summary != "resumen: se cambia turbo" {
		t.Errorf("simple summary = %q", got.Simple.Summary)
	}
	want := record.MaintenanceRecord{
		DetentionType:  record.DetentionMinorFailure,
		HasReplacement: true,
		Summary:        "resumen: se cambia turbo",
		Jobs:           []record.Job{},
	}
	if diff := cmp.Diff(want, got.Record); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestLabel_EmptyObservation(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/label", `{"observation":"   "}`, testToken))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestLabel_ServiceError(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	labeling := testLabeling()
	labeling.Labeler = &mockLabeler{labelFn: func(context.Context, string) (record.SimpleMaintenanceRecord, error) {
		return record.SimpleMaintenanceRecord{}, errors.New("service down")
	}}
	h := NewAppHandler(AppDeps{Store: store, Labeling: labeling, Canon: testCatalog(t).Canonicalizer(), Token: testToken})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/label", `{"observation":"se cambia turbo"}`, testToken))

	if rr.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusBadGateway)
	}
	if !strings.Contains(rr.Body.String(), "service down") {
		t.Errorf("body = %s, want the cause", rr.Body.String())
	}
}

func TestNormalize(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	tests := []struct {
		name string
		body string
		code int
		want string
	}{
		{"alias", `{"field":"scheduled_type","value":"MANTENIMIENTO preventivo"}`, http.StatusOK, "Preventivo"},
		{"free text", `{"value":"  CIGÜEÑAL "}`, http.StatusOK, "Ciguenal"},
		{"unknown field", `{"field":"color","value":"rojo"}`, http.StatusBadRequest, ""},
		{"bad json", `{`, http.StatusBadRequest, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, authReq(http.MethodPost, "/normalize", tt.body, testToken))
			if rr.Code != tt.code {
				t.Fatalf("status = %d, want %d; body = %s", rr.Code, tt.code, rr.Body.String())
			}
			if tt.code != http.StatusOK {
				return
			}
			var resp map[string]string
			json.NewDecoder(rr.Body).Decode(&resp)
			if resp["value"] != tt.want {
				t.Errorf("value = %q, want %q", resp["value"], tt.want)
			}
		})
	}
}

func TestParseIntParam(t *testing.T) {
	tests := []struct {
		query string
		want  int
	}{
		{"", 20},
		{"limit=5", 5},
		{"limit=-1", 20},
		{"limit=abc", 20},
		{"limit=500", 100},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/batches?"+tt.query, nil)
		if got := parseIntParam(r, "limit", 20, 100); got != tt.want {
			t.Errorf("parseIntParam(%q) = %d, want %d", tt.query, got, tt.want)
		}
	}
}
