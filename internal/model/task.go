package model

import (
	"encoding/json"
	"time"
)

// Status values cycle 0 -> 1 -> 2 -> 0.
type Status int

const (
	StatusNotStarted Status = 0
	StatusInProgress Status = 1
	StatusCompleted  Status = 2
)

// Cycle returns the next status in the rotation.
func (s Status) Cycle() Status {
	return (s + 1) % 3
}

// Clamp forces a raw value into the valid status range.
func Clamp(n int) Status {
	if n < 0 {
		return StatusNotStarted
	}
	if n > 2 {
		return StatusCompleted
	}
	return Status(n)
}

func (s Status) Name() string {
	switch s {
	case StatusNotStarted:
		return "Not Started"
	case StatusInProgress:
		return "In Progress"
	case StatusCompleted:
		return "Completed"
	}
	return "Unknown"
}

// Task is one entry in the planner. Top-level tasks carry a 1-based
// positional ID that is reassigned on every structural change; subtasks
// never carry one.
type Task struct {
	ID          *int    `json:"id"`
	Title       string  `json:"title"`
	Status      Status  `json:"status"`
	Priority    int     `json:"priority"`
	Effort      int     `json:"effort"`
	DueDate     *string `json:"due_date"`
	CreatedAt   string  `json:"created_at"`
	UpdatedAt   string  `json:"updated_at"`
	HasSubtasks bool    `json:"has_subtasks"`
	Subtasks    []Task  `json:"subtasks"`
}

// NewTask builds a fresh task with both timestamps set to now.
func NewTask(title string, priority, effort int, dueDate *string) Task {
	now := Timestamp()
	return Task{
		Title:     title,
		Status:    StatusNotStarted,
		Priority:  priority,
		Effort:    effort,
		DueDate:   dueDate,
		CreatedAt: now,
		UpdatedAt: now,
		Subtasks:  []Task{},
	}
}

// Timestamp is the canonical created_at/updated_at format.
func Timestamp() string {
	return time.Now().Format(time.RFC3339)
}

// Clone returns a deep copy, subtasks included.
func (t Task) Clone() Task {
	out := t
	if t.ID != nil {
		id := *t.ID
		out.ID = &id
	}
	if t.DueDate != nil {
		d := *t.DueDate
		out.DueDate = &d
	}
	out.Subtasks = make([]Task, len(t.Subtasks))
	for i, st := range t.Subtasks {
		out.Subtasks[i] = st.Clone()
	}
	return out
}

// Normalize backfills defaults and re-derives has_subtasks, recursively.
// Subtasks never keep an ID.
func (t *Task) Normalize() {
	if t.CreatedAt == "" {
		t.CreatedAt = Timestamp()
	}
	if t.UpdatedAt == "" {
		t.UpdatedAt = Timestamp()
	}
	t.Status = Clamp(int(t.Status))
	if t.Subtasks == nil {
		t.Subtasks = []Task{}
	}
	for i := range t.Subtasks {
		t.Subtasks[i].ID = nil
		t.Subtasks[i].Normalize()
	}
	t.HasSubtasks = len(t.Subtasks) > 0
}

// legacyTask mirrors every field name older files may carry: "task" as the
// title key, "want" as the priority key.
type legacyTask struct {
	ID          *int              `json:"id"`
	Title       *string           `json:"title"`
	TaskAlias   *string           `json:"task"`
	Status      int               `json:"status"`
	Priority    *int              `json:"priority"`
	Want        int               `json:"want"`
	Effort      int               `json:"effort"`
	DueDate     *string           `json:"due_date"`
	CreatedAt   string            `json:"created_at"`
	UpdatedAt   string            `json:"updated_at"`
	HasSubtasks bool              `json:"has_subtasks"`
	Subtasks    []json.RawMessage `json:"subtasks"`
}

// UnmarshalJSON accepts the current record shape, legacy records (missing
// fields, "task"/"want" keys) and bare strings (title-only tasks).
func (t *Task) UnmarshalJSON(data []byte) error {
	var title string
	if err := json.Unmarshal(data, &title); err == nil {
		*t = NewTask(title, 0, 0, nil)
		return nil
	}

	var raw legacyTask
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Task{
		ID:          raw.ID,
		Status:      Clamp(raw.Status),
		Effort:      raw.Effort,
		DueDate:     raw.DueDate,
		CreatedAt:   raw.CreatedAt,
		UpdatedAt:   raw.UpdatedAt,
		HasSubtasks: raw.HasSubtasks,
		Subtasks:    []Task{},
	}
	switch {
	case raw.Title != nil:
		out.Title = *raw.Title
	case raw.TaskAlias != nil:
		out.Title = *raw.TaskAlias
	}
	if raw.Priority != nil {
		out.Priority = *raw.Priority
	} else {
		out.Priority = raw.Want
	}
	for _, sub := range raw.Subtasks {
		var st Task
		if err := json.Unmarshal(sub, &st); err != nil {
			return err
		}
		out.Subtasks = append(out.Subtasks, st)
	}
	out.Normalize()
	*t = out
	return nil
}

// Stats aggregates counters over a task list.
type Stats struct {
	Total       int `json:"total"`
	NotStarted  int `json:"not_started"`
	InProgress  int `json:"in_progress"`
	Completed   int `json:"completed"`
	HasSubtasks int `json:"has_subtasks"`
	Overdue     int `json:"overdue"`
}
