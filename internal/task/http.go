package task

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/model"
)

// Mirror is the optional hardware sink. Calls are best-effort: the handler
// never fails a request over a mirror problem.
type Mirror interface {
	SetIndicator(pos int, status model.Status)
	SyncAll()
	RemoveGroup(pos int) bool
}

type Handler struct {
	store  *Store
	mirror Mirror
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

// SetMirror attaches a hardware mirror. Nil means no hardware.
func (h *Handler) SetMirror(m Mirror) {
	h.mirror = m
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]any{"error": msg})
}

// /api/tasks  (collection)
func (h *Handler) TasksRoot(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		tasks := h.store.All()
		total := len(tasks)

		if raw := q.Get("status"); raw != "" {
			want, err := strconv.Atoi(raw)
			if err != nil {
				writeErr(w, 400, "invalid status filter")
				return
			}
			filtered := tasks[:0]
			for _, t := range tasks {
				if int(t.Status) == want {
					filtered = append(filtered, t)
				}
			}
			tasks = filtered
		}
		if strings.EqualFold(q.Get("include_subtasks"), "false") {
			for i := range tasks {
				tasks[i].Subtasks = nil
			}
		}

		writeJSON(w, 200, map[string]any{
			"tasks":          tasks,
			"total_count":    total,
			"filtered_count": len(tasks),
		})

	case http.MethodPost:
		var in struct {
			Title    string  `json:"title"`
			Priority int     `json:"priority"`
			Effort   int     `json:"effort"`
			DueDate  *string `json:"due_date"`
		}
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeErr(w, 400, "bad json")
			return
		}
		if strings.TrimSpace(in.Title) == "" {
			writeErr(w, 400, "missing task title")
			return
		}

		pos := h.store.Add(in.Title, in.Priority, in.Effort, in.DueDate)
		if h.mirror != nil {
			h.mirror.SetIndicator(pos, model.StatusNotStarted)
		}

		writeJSON(w, 201, map[string]any{
			"status":     "created",
			"task_index": pos,
			"title":      in.Title,
		})

	default:
		writeErr(w, 405, "method not allowed")
	}
}

// /api/tasks/{id} and /api/tasks/{id}/status
func (h *Handler) TasksSub(w http.ResponseWriter, r *http.Request) {
	tail := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/tasks/"), "/")
	parts := strings.Split(tail, "/")
	if tail == "" {
		writeErr(w, 404, "not found")
		return
	}

	pos, err := strconv.Atoi(parts[0])
	if err != nil {
		writeErr(w, 400, "invalid task id")
		return
	}

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			t, ok := h.store.Get(pos)
			if !ok {
				writeErr(w, 404, "task not found")
				return
			}
			writeJSON(w, 200, map[string]any{"task": t})

		case http.MethodDelete:
			if !h.store.Remove(pos) {
				writeErr(w, 404, "task not found")
				return
			}
			if h.mirror != nil {
				h.mirror.RemoveGroup(pos)
			}
			writeJSON(w, 200, map[string]any{"status": "deleted", "task_id": pos})

		default:
			writeErr(w, 405, "method not allowed")
		}
		return
	}

	if len(parts) == 2 && parts[1] == "status" {
		if r.Method != http.MethodPut {
			writeErr(w, 405, "method not allowed")
			return
		}

		// An empty body cycles; {"status": n} sets explicitly.
		var in struct {
			Status *int `json:"status"`
		}
		if r.Body != nil {
			_ = json.NewDecoder(r.Body).Decode(&in)
		}

		newStatus, ok := h.store.UpdateStatus(pos, in.Status)
		if !ok {
			writeErr(w, 404, "task not found")
			return
		}
		if h.mirror != nil {
			h.mirror.SetIndicator(pos, newStatus)
		}

		writeJSON(w, 200, map[string]any{
			"status":      "updated",
			"task_id":     pos,
			"new_status":  newStatus,
			"status_name": newStatus.Name(),
		})
		return
	}

	writeErr(w, 404, "not found")
}

// /api/tasks/sort
func (h *Handler) TasksSort(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, 405, "method not allowed")
		return
	}

	in := struct {
		SortBy string `json:"sort_by"`
	}{SortBy: "priority"}
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&in)
	}

	if err := h.store.Sort(in.SortBy); err != nil {
		if errors.Is(err, ErrUnknownSortKey) {
			writeErr(w, 400, err.Error())
			return
		}
		writeErr(w, 500, err.Error())
		return
	}
	if h.mirror != nil {
		h.mirror.SyncAll()
	}

	writeJSON(w, 200, map[string]any{"status": "sorted", "sort_by": in.SortBy})
}

// /api/tasks/stats
func (h *Handler) TasksStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, 405, "method not allowed")
		return
	}
	writeJSON(w, 200, map[string]any{"stats": h.store.Stats()})
}
