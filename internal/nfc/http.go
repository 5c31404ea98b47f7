package nfc

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/task"
)

// Handler serves the mapping, ping and stats endpoints. Scan endpoints live
// in the scan package next to the resolution engine.
type Handler struct {
	store *Store
	tasks *task.Store
}

func NewHandler(store *Store, tasks *task.Store) *Handler {
	return &Handler{store: store, tasks: tasks}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// /api/nfc/mappings
func (h *Handler) MappingsRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, 200, map[string]any{"mappings": h.store.All()})

	case http.MethodPost:
		var in struct {
			TagID     string `json:"tag_id"`
			TaskTitle string `json:"task_title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		if in.TagID == "" || in.TaskTitle == "" {
			writeErr(w, 400, "missing tag_id or task_title")
			return
		}

		// Mapping creation never cycles; the task is created when absent.
		pos, ok := h.tasks.FindByTitle(in.TaskTitle)
		if !ok {
			pos = h.tasks.Add(in.TaskTitle, 0, 0, nil)
		}
		h.store.Map(in.TagID, in.TaskTitle)

		writeJSON(w, 201, map[string]any{
			"status":     "mapping_created",
			"tag_id":     in.TagID,
			"task_title": in.TaskTitle,
			"task_index": pos,
		})

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// /api/nfc/mappings/{tag_id}
func (h *Handler) MappingsSub(w http.ResponseWriter, r *http.Request) {
	tagID := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/nfc/mappings/"), "/")
	if tagID == "" {
		writeErr(w, 404, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		writeErr(w, 405, "method not allowed")
		return
	}
	if !h.store.Unmap(tagID) {
		writeErr(w, 404, "mapping not found")
		return
	}
	writeJSON(w, 200, map[string]any{"status": "mapping_deleted", "tag_id": tagID})
}

// /api/nfc/mappings/import
func (h *Handler) MappingsImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}
	var in struct {
		Mappings map[string]string `json:"mappings"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeErr(w, 400, "bad json")
		return
	}
	if len(in.Mappings) == 0 {
		writeErr(w, 400, "missing mappings")
		return
	}
	n := h.store.BulkImport(in.Mappings)
	writeJSON(w, 200, map[string]any{"status": "imported", "imported": n})
}

// /api/nfc/mappings/clear
func (h *Handler) MappingsClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}
	n := h.store.Clear()
	writeJSON(w, 200, map[string]any{"status": "cleared", "removed": n})
}

// /api/nfc/pings?limit=
func (h *Handler) Pings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeErr(w, 400, "invalid limit")
			return
		}
		limit = n
	}
	pings := h.store.RecentPings(limit)
	writeJSON(w, 200, map[string]any{"pings": pings, "count": len(pings)})
}

// /api/nfc/stats
func (h *Handler) StatsEndpoint(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	writeJSON(w, 200, map[string]any{"stats": h.store.Stats()})
}
