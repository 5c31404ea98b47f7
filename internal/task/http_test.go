package task

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestHandler(t *testing.T) *Handler {
	t.Helper()
	s, err := NewStore(t.TempDir(), log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewHandler(s)
}

func doJSON(t *testing.T, fn http.HandlerFunc, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
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
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestCreateAndListTasks(t *testing.T) {
	h := newTestHandler(t)

	rec, out := doJSON(t, h.TasksRoot, http.MethodPost, "/api/tasks", `{"title":"Water plants","priority":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["task_index"].(float64) != 1 {
		t.Fatalf("expected task_index 1, got %v", out["task_index"])
	}

	rec, out = doJSON(t, h.TasksRoot, http.MethodGet, "/api/tasks", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["total_count"].(float64) != 1 || out["filtered_count"].(float64) != 1 {
		t.Fatalf("unexpected counts: %v", out)
	}
}

func TestCreateRejectsEmptyTitle(t *testing.T) {
	h := newTestHandler(t)
	rec, out := doJSON(t, h.TasksRoot, http.MethodPost, "/api/tasks", `{"title":"   "}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if out["error"] != "missing task title" {
		t.Fatalf("unexpected error: %v", out["error"])
	}
}

func TestListStatusFilter(t *testing.T) {
	h := newTestHandler(t)
	h.store.Add("a", 0, 0, nil)
	h.store.Add("b", 0, 0, nil)
	h.store.UpdateStatus(2, nil)

	rec, out := doJSON(t, h.TasksRoot, http.MethodGet, "/api/tasks?status=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["total_count"].(float64) != 2 || out["filtered_count"].(float64) != 1 {
		t.Fatalf("unexpected counts: %v", out)
	}

	rec, _ = doJSON(t, h.TasksRoot, http.MethodGet, "/api/tasks?status=nope", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad filter, got %d", rec.Code)
	}
}

func TestGetAndDeleteTask(t *testing.T) {
	h := newTestHandler(t)
	h.store.Add("only", 0, 0, nil)

	rec, out := doJSON(t, h.TasksSub, http.MethodGet, "/api/tasks/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	task := out["task"].(map[string]any)
	if task["title"] != "only" {
		t.Fatalf("unexpected task: %v", task)
	}

	rec, _ = doJSON(t, h.TasksSub, http.MethodDelete, "/api/tasks/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec, _ = doJSON(t, h.TasksSub, http.MethodGet, "/api/tasks/1", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rec.Code)
	}
}

func TestStatusPutEmptyBodyCycles(t *testing.T) {
	h := newTestHandler(t)
	h.store.Add("a", 0, 0, nil)

	rec, out := doJSON(t, h.TasksSub, http.MethodPut, "/api/tasks/1/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["new_status"].(float64) != 1 || out["status_name"] != "In Progress" {
		t.Fatalf("unexpected body: %v", out)
	}

	rec, out = doJSON(t, h.TasksSub, http.MethodPut, "/api/tasks/1/status", `{"status": 0}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["new_status"].(float64) != 0 {
		t.Fatalf("expected explicit set to 0, got %v", out["new_status"])
	}

	rec, _ = doJSON(t, h.TasksSub, http.MethodPut, "/api/tasks/9/status", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestSortEndpoint(t *testing.T) {
	h := newTestHandler(t)
	h.store.Add("low", 1, 0, nil)
	h.store.Add("high", 9, 0, nil)

	rec, out := doJSON(t, h.TasksSort, http.MethodPost, "/api/tasks/sort", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["sort_by"] != "priority" {
		t.Fatalf("expected default sort key, got %v", out["sort_by"])
	}
	if got, _ := h.store.Get(1); got.Title != "high" {
		t.Fatalf("expected high priority first, got %q", got.Title)
	}

	rec, out = doJSON(t, h.TasksSort, http.MethodPost, "/api/tasks/sort", `{"sort_by":"shoe_size"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown key, got %d", rec.Code)
	}
	if !strings.Contains(out["error"].(string), "unknown sort criteria") {
		t.Fatalf("unexpected error: %v", out["error"])
	}
}

func TestStatsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	h.store.Add("a", 0, 0, nil)

	rec, out := doJSON(t, h.TasksStats, http.MethodGet, "/api/tasks/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	stats := out["stats"].(map[string]any)
	if stats["total"].(float64) != 1 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
