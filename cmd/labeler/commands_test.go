package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kalambet/labeler/internal/batch"
	"github.com/kalambet/labeler/internal/config"
	"github.com/kalambet/labeler/internal/record"
	"github.com/kalambet/labeler/internal/storage"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

// useTestServer points newAPIClient at ts for the duration of the test.
func useTestServer(t *testing.T, ts *testServer) {
	t.Helper()
	orig := newAPIClient
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }
	t.Cleanup(func() { newAPIClient = orig })
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

var ctx = context.Background()

func TestLabelCommand(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /label": `{"simple":{"summary":"Reemplazo de turbo"},"record":{"detention_type":"Falla menor"}}`,
	})
	useTestServer(t, ts)

	out, err := execute(t, "label", "se", "cambia", "turbo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, `"detention_type": "Falla menor"`) {
		t.Errorf("output = %s", out)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "POST" || r.Path != "/label" {
		t.Errorf("request = %s %s", r.Method, r.Path)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}
	var body map[string]string
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["observation"] != "se cambia turbo" {
		t.Errorf("observation = %q", body["observation"])
	}
}

func TestLabelCommand_MissingArgs(t *testing.T) {
	_, err := execute(t, "label")
	if err == nil {
		t.Fatal("expected error for missing observation")
	}
}

func TestBatchesList(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /batches": `[{"id":"0123456789abcdef","label":"2025-W10","status":"completed","row_count":12,"created_at":"2025-03-10T00:00:00Z"}]`,
	})
	useTestServer(t, ts)
	old := noColor
	t.Cleanup(func() {
		noColor = old
		rootCmd.PersistentFlags().Set("no-color", "false")
	})

	out, err := execute(t, "--no-color", "batches", "list", "--limit", "5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "01234567") || !strings.Contains(out, "2025-W10") || strings.Contains(out, "0123456789abcdef") {
		t.Errorf("output = %q", out)
	}
	if ts.requests[0].Path != "/batches?limit=5" {
		t.Errorf("path = %q", ts.requests[0].Path)
	}
}

func TestBatchesShow_Records(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /batches/b-1/records": `[{"unit_id":"T_09"}]`,
	})
	useTestServer(t, ts)

	out, err := execute(t, "batches", "show", "b-1", "--records", "final")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "T_09") {
		t.Errorf("output = %s", out)
	}
	if ts.requests[0].Path != "/batches/b-1/records?kind=final" {
		t.Errorf("path = %q", ts.requests[0].Path)
	}
	batchesShowCmd.Flags().Set("records", "")
}

func TestClient_NotReachable(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	_, err := ts.client().get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestDecodeJSON_ErrorResponse(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	resp, err := ts.client().get(ctx, "/batches/nope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var v any
	err = decodeJSON(resp, &v)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %q, want it to mention 404", err.Error())
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if result := colorize(colorGreen, "test message"); result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	if result := colorize(colorGreen, "test message"); !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "labeler version dev\n" {
		t.Errorf("output = %q", out)
	}
}

func TestRunCommand_MissingInput(t *testing.T) {
	_, err := execute(t, "run")
	if err == nil || !strings.Contains(err.Error(), "required") {
		t.Errorf("err = %v, want it to mention 'required'", err)
	}
}

func TestConfigShowAll(t *testing.T) {
	cfg := config.Config{}
	cfg.Server.Port = 4100
	cfg.Engine.Model = "qwen2.5:7b"

	found := false
	for _, k := range config.ShowAll(cfg) {
		if k.Key == "server.port" && k.Value == "4100" {
			found = true
		}
	}
	if !found {
		t.Error("expected to find server.port=4100 in ShowAll output")
	}
}

func TestReadRows(t *testing.T) {
	input := `{"row_id":"r1","observation":"se cambia turbo","unit_id":"T_09","start_time":"2025-03-03T08:00:00","end_time":"2025-03-03T10:00:00"}

{"row_id":"r2","observation":"relleno de aceite","unit_id":"T_11"}
`
	rows, err := readRows(strings.NewReader(input))
	if err != nil {
		t.Fatalf("readRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].UnitID != "T_09" || rows[1].Observation != "relleno de aceite" {
		t.Errorf("rows = %+v", rows)
	}

	if _, err := readRows(strings.NewReader("{\"row_id\":\"r1\"}\nnot json\n")); err == nil || !strings.Contains(err.Error(), "line 2") {
		t.Errorf("err = %v, want line 2 error", err)
	}
}

func TestWriteWeekly(t *testing.T) {
	out := t.TempDir()
	res := batch.Result{
		SimpleRecords: []record.SimpleMaintenanceRecord{record.EmptySimpleRecord()},
		Records:       []record.MaintenanceRecord{{DetentionType: record.DetentionOperational, Jobs: []record.Job{}}},
		FinalRecords: []record.FinalMaintenanceRecord{{
			UnitID:            "T_09",
			MaintenanceRecord: record.MaintenanceRecord{DetentionType: record.DetentionOperational, Jobs: []record.Job{}},
		}},
	}

	dir, err := writeWeekly(out, 2025, 7, res)
	if err != nil {
		t.Fatalf("writeWeekly: %v", err)
	}
	if want := filepath.Join(out, "2025", "week_7"); dir != want {
		t.Errorf("dir = %q, want %q", dir, want)
	}

	for _, name := range []string{"simple_records.json", "records.json", "final_records.json"} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			t.Fatalf("reading %s: %v", name, err)
		}
		var docs []map[string]any
		if err := json.Unmarshal(data, &docs); err != nil {
			t.Fatalf("%s is not a JSON array: %v", name, err)
		}
		if len(docs) != 1 {
			t.Errorf("%s has %d docs, want 1", name, len(docs))
		}
	}
}

type mockRunner struct {
	runFn func(ctx context.Context, rows []record.Row) (batch.Result, error)
}

func (m *mockRunner) Run(ctx context.Context, rows []record.Row) (batch.Result, error) {
	return m.runFn(ctx, rows)
}

func TestLabelBatch(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	rows := []record.Row{{RowID: "r1", Observation: "se cambia turbo", UnitID: "T_09"}}
	ok := &mockRunner{runFn: func(_ context.Context, rows []record.Row) (batch.Result, error) {
		records := []record.MaintenanceRecord{{Jobs: []record.Job{}}}
		final, err := batch.Join(records, rows)
		return batch.Result{
			SimpleRecords: []record.SimpleMaintenanceRecord{record.EmptySimpleRecord()},
			Records:       records,
			FinalRecords:  final,
			Attempts:      1,
		}, err
	}}

	res, id, err := labelBatch(ctx, ok, store, "2025-W10", rows)
	if err != nil {
		t.Fatalf("labelBatch: %v", err)
	}
	if len(res.FinalRecords) != 1 {
		t.Errorf("final records = %d", len(res.FinalRecords))
	}
	b, err := store.GetBatch(id)
	if err != nil {
		t.Fatalf("GetBatch: %v", err)
	}
	if b.Status != storage.BatchCompleted || b.Label != "2025-W10" {
		t.Errorf("batch = %+v", b)
	}

	failing := &mockRunner{runFn: func(context.Context, []record.Row) (batch.Result, error) {
		return batch.Result{}, batch.ErrBatchFailed
	}}
	_, id, err = labelBatch(ctx, failing, store, "2025-W11", rows)
	if !errors.Is(err, batch.ErrBatchFailed) {
		t.Fatalf("err = %v, want ErrBatchFailed", err)
	}
	b, _ = store.GetBatch(id)
	if b.Status != storage.BatchFailed || b.LastError == "" {
		t.Errorf("failed batch = %+v", b)
	}
	if docs, _ := store.ListFinalRecords(id); len(docs) != 0 {
		t.Errorf("failed batch stored %d records", len(docs))
	}

	res, id, err = labelBatch(ctx, ok, nil, "unstored", rows)
	if err != nil || id != "" || len(res.Records) != 1 {
		t.Errorf("without store: res=%+v id=%q err=%v", res, id, err)
	}
}

func TestCountLabel(t *testing.T) {
	tests := []struct {
		count, limit int
		want         string
	}{
		{0, 100, "0"},
		{42, 100, "42"},
		{100, 100, "100+"},
	}
	for _, tt := range tests {
		if got := countLabel(tt.count, tt.limit); got != tt.want {
			t.Errorf("countLabel(%d, %d) = %q, want %q", tt.count, tt.limit, got, tt.want)
		}
	}
}
