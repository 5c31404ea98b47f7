package scan

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// Handler serves the scan endpoints on top of the engine.
type Handler struct {
	engine *Engine
}

func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeResult(w http.ResponseWriter, res Result) {
	code := 200
	if res.Created {
		code = 201
	}
	writeJSON(w, code, res)
}

func writeEngineErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTaskNotFound):
		writeJSON(w, 404, map[string]any{"error": "Task not found"})
	case errors.Is(err, ErrMappedTaskMissing):
		writeJSON(w, 400, map[string]any{
			"error":   "mapped_task_missing",
			"message": err.Error(),
		})
	default:
		writeJSON(w, 500, map[string]any{"error": err.Error()})
	}
}

// /api/nfc/scan  (POST, JSON body)
func (h *Handler) ScanPost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, 405, map[string]any{"error": "method not allowed"})
		return
	}

	var in struct {
		TagID     string `json:"tag_id"`
		TaskTitle string `json:"task_title"`
		Reader    string `json:"reader"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, 400, map[string]any{"error": "bad json"})
		return
	}
	if in.TagID == "" {
		writeJSON(w, 400, map[string]any{"error": "missing tag_id"})
		return
	}
	if in.Reader == "" {
		in.Reader = "api"
	}

	res, err := h.engine.Scan(in.TagID, in.TaskTitle, in.Reader)
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	writeResult(w, res)
}

// /api/nfc/scan/{identifier}  (GET, path variant)
//
// A numeric identifier is treated as a direct task position. The debug
// subpath verifies routing and auth without side effects.
func (h *Handler) ScanGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, 405, map[string]any{"error": "method not allowed"})
		return
	}

	identifier := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/nfc/scan/"), "/")
	if identifier == "" {
		writeJSON(w, 404, map[string]any{"error": "not found"})
		return
	}
	if rest, ok := strings.CutPrefix(identifier, "debug/"); ok {
		writeJSON(w, 200, map[string]any{"identifier": rest, "ok": true})
		return
	}

	title := r.URL.Query().Get("task_title")
	reader := r.URL.Query().Get("reader")
	if reader == "" {
		reader = "api"
	}

	res, err := h.engine.Resolve(identifier, title, reader)
	if err != nil {
		writeEngineErr(w, err)
		return
	}
	writeResult(w, res)
}
