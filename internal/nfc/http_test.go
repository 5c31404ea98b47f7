package nfc

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/task"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	quiet := log.New(io.Discard, "", 0)
	dir := t.TempDir()
	store, err := NewStore(dir, quiet)
	require.NoError(t, err)
	tasks, err := task.NewStore(dir, quiet)
	require.NoError(t, err)
	return NewHandler(store, tasks)
}

func call(t *testing.T, fn http.HandlerFunc, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rec := httptest.NewRecorder()
	fn(rec, req)
	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestCreateMappingCreatesMissingTask(t *testing.T) {
	h := newTestHandler(t)

	rec, out := call(t, h.MappingsRoot, http.MethodPost, "/api/nfc/mappings", `{"tag_id":"t1","task_title":"Water plants"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["task_index"].(float64) != 1 {
		t.Fatalf("expected new task at position 1, got %v", out["task_index"])
	}
	if h.tasks.Count() != 1 {
		t.Fatalf("expected task to be created")
	}

	// Mapping to an existing task reuses its position.
	rec, out = call(t, h.MappingsRoot, http.MethodPost, "/api/nfc/mappings", `{"tag_id":"t2","task_title":"water plants"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if out["task_index"].(float64) != 1 || h.tasks.Count() != 1 {
		t.Fatalf("expected reuse of position 1: %v", out)
	}
}

func TestCreateMappingValidation(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := call(t, h.MappingsRoot, http.MethodPost, "/api/nfc/mappings", `{"tag_id":"t1"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestListAndDeleteMapping(t *testing.T) {
	h := newTestHandler(t)
	h.store.Map("t1", "a")

	rec, out := call(t, h.MappingsRoot, http.MethodGet, "/api/nfc/mappings", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	mappings := out["mappings"].(map[string]any)
	if _, ok := mappings["t1"]; !ok {
		t.Fatalf("missing mapping: %v", mappings)
	}

	rec, _ = call(t, h.MappingsSub, http.MethodDelete, "/api/nfc/mappings/t1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec, _ = call(t, h.MappingsSub, http.MethodDelete, "/api/nfc/mappings/t1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", rec.Code)
	}
}

func TestImportAndClearEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rec, out := call(t, h.MappingsImport, http.MethodPost, "/api/nfc/mappings/import", `{"mappings":{"t1":"a","t2":"b"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["imported"].(float64) != 2 {
		t.Fatalf("expected 2 imported, got %v", out["imported"])
	}

	rec, out = call(t, h.MappingsClear, http.MethodPost, "/api/nfc/mappings/clear", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["removed"].(float64) != 2 {
		t.Fatalf("expected 2 removed, got %v", out["removed"])
	}
}

func TestPingsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	for i := 0; i < 3; i++ {
		h.store.LogPing(Ping{TagID: "t", Action: "task_incremented"})
	}

	rec, out := call(t, h.Pings, http.MethodGet, "/api/nfc/pings?limit=2", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["count"].(float64) != 2 {
		t.Fatalf("expected 2 pings, got %v", out["count"])
	}

	rec, _ = call(t, h.Pings, http.MethodGet, "/api/nfc/pings?limit=abc", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestStatsEndpointShape(t *testing.T) {
	h := newTestHandler(t)
	h.store.Map("t1", "a")
	h.store.LogPing(Ping{TagID: "t1", Action: "task_incremented"})

	rec, out := call(t, h.StatsEndpoint, http.MethodGet, "/api/nfc/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stats := out["stats"].(map[string]any)
	if stats["total_mappings"].(float64) != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
	most := stats["most_used_tag"].(map[string]any)
	if most["tag_id"] != "t1" || most["mapped_task"] != "a" {
		t.Fatalf("unexpected most_used_tag: %v", most)
	}
}
