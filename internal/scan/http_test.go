package scan

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func scanRequest(t *testing.T, h *Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	if method == http.MethodPost {
		h.ScanPost(rec, req)
	} else {
		h.ScanGet(rec, req)
	}
	var out map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			t.Fatalf("decode %q: %v", rec.Body.String(), err)
		}
	}
	return rec, out
}

func TestScanPostCreateThenIncrement(t *testing.T) {
	e, _, _ := newTestEngine(t)
	h := NewHandler(e)

	rec, out := scanRequest(t, h, http.MethodPost, "/api/nfc/scan", `{"tag_id":"t1","task_title":"Water plants"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["status"] != "task_created_and_mapped" {
		t.Fatalf("unexpected action: %v", out["status"])
	}

	rec, out = scanRequest(t, h, http.MethodPost, "/api/nfc/scan", `{"tag_id":"t1"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["status"] != "task_incremented" || out["new_status"].(float64) != 1 {
		t.Fatalf("unexpected body: %v", out)
	}
}

func TestScanPostMissingTagID(t *testing.T) {
	e, _, _ := newTestEngine(t)
	h := NewHandler(e)

	rec, _ := scanRequest(t, h, http.MethodPost, "/api/nfc/scan", `{"task_title":"x"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestScanGetNumericPosition(t *testing.T) {
	e, tasks, _ := newTestEngine(t)
	tasks.Add("a", 0, 0, nil)
	h := NewHandler(e)

	rec, out := scanRequest(t, h, http.MethodGet, "/api/nfc/scan/1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if out["status"] != "task_incremented" {
		t.Fatalf("unexpected action: %v", out["status"])
	}

	rec, out = scanRequest(t, h, http.MethodGet, "/api/nfc/scan/42", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if out["error"] != "Task not found" {
		t.Fatalf("unexpected error: %v", out["error"])
	}
}

func TestScanGetMappedTaskMissing(t *testing.T) {
	e, tasks, _ := newTestEngine(t)
	if _, err := e.Scan("t1", "Old", "test"); err != nil {
		t.Fatalf("seed scan: %v", err)
	}
	tasks.Remove(1)
	h := NewHandler(e)

	rec, out := scanRequest(t, h, http.MethodGet, "/api/nfc/scan/t1", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if out["error"] != "mapped_task_missing" {
		t.Fatalf("unexpected error: %v", out["error"])
	}
}

func TestScanGetDebugEcho(t *testing.T) {
	e, _, mappings := newTestEngine(t)
	h := NewHandler(e)

	rec, out := scanRequest(t, h, http.MethodGet, "/api/nfc/scan/debug/abc123", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if out["identifier"] != "abc123" || out["ok"] != true {
		t.Fatalf("unexpected body: %v", out)
	}
	if len(mappings.RecentPings(0)) != 0 {
		t.Fatalf("debug scan must not log pings")
	}
}

func TestScanGetQueryTitle(t *testing.T) {
	e, tasks, _ := newTestEngine(t)
	h := NewHandler(e)

	rec, out := scanRequest(t, h, http.MethodGet, "/api/nfc/scan/tag-7?task_title=From+query&reader=kitchen", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if out["status"] != "task_created_and_mapped" {
		t.Fatalf("unexpected action: %v", out["status"])
	}
	if got, _ := tasks.Get(1); got.Title != "From query" {
		t.Fatalf("unexpected task: %v", got)
	}
}
