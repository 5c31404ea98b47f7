package task

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/model"
)

// ErrUnknownSortKey is returned by Sort for an unrecognized criterion.
var ErrUnknownSortKey = errors.New("unknown sort criteria")

// Store owns the ordered task list. Identity is 1-based position: ids are
// reassigned after every remove and sort, so callers must not cache them
// across structural mutations.
//
// Every mutating call rewrites the whole tasks file before returning. A
// failed write is logged and otherwise ignored; in-memory and on-disk state
// may diverge until the next successful save. Concurrent processes writing
// the same file lose updates (last writer wins). Both are accepted behavior.
type Store struct {
	mu     sync.Mutex
	path   string
	tasks  []model.Task
	logger *log.Logger
}

func NewStore(dataDir string, logger *log.Logger) (*Store, error) {
	if logger == nil {
		logger = log.Default()
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}
	s := &Store{
		path:   filepath.Join(dataDir, "tasks.json"),
		logger: logger,
	}
	s.load()
	return s, nil
}

// load reads and normalizes the tasks file. A missing or corrupt file
// starts an empty list; the store never refuses to boot over bad data.
func (s *Store) load() {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Printf("tasks: load failed: %v", err)
		}
		s.tasks = []model.Task{}
		return
	}
	var loaded []model.Task
	if err := json.Unmarshal(b, &loaded); err != nil {
		s.logger.Printf("tasks: load failed: %v", err)
		s.tasks = []model.Task{}
		return
	}
	for i := range loaded {
		loaded[i].Normalize()
	}
	s.tasks = loaded
	s.logger.Printf("tasks: loaded %d from %s", len(s.tasks), s.path)
}

// saveLocked rewrites the whole file. Errors are logged, never returned:
// callers complete as if the write landed.
func (s *Store) saveLocked() {
	b, err := json.MarshalIndent(s.tasks, "", "  ")
	if err != nil {
		s.logger.Printf("tasks: save failed: %v", err)
		return
	}
	if err := os.WriteFile(s.path, b, 0o644); err != nil {
		s.logger.Printf("tasks: save failed: %v", err)
	}
}

// Add appends a new task and returns its 1-based position, which equals the
// new count. The position is stable only until the next remove or sort.
func (s *Store) Add(title string, priority, effort int, dueDate *string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := model.NewTask(title, priority, effort, dueDate)
	id := len(s.tasks) + 1
	t.ID = &id
	s.tasks = append(s.tasks, t)
	s.saveLocked()
	s.logger.Printf("tasks: added %q at position %d", title, id)
	return id
}

// Remove deletes the task at the given position and reassigns every
// remaining id to its new position. False for out-of-range positions.
func (s *Store) Remove(pos int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos < 1 || pos > len(s.tasks) {
		return false
	}
	removed := s.tasks[pos-1]
	s.tasks = append(s.tasks[:pos-1], s.tasks[pos:]...)
	s.reindexLocked()
	s.saveLocked()
	s.logger.Printf("tasks: removed %q", removed.Title)
	return true
}

func (s *Store) reindexLocked() {
	for i := range s.tasks {
		id := i + 1
		s.tasks[i].ID = &id
	}
}

// Get returns a copy of the task at the given 1-based position.
func (s *Store) Get(pos int) (model.Task, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos < 1 || pos > len(s.tasks) {
		return model.Task{}, false
	}
	return s.tasks[pos-1].Clone(), true
}

// UpdateStatus cycles the status at pos, or sets it to the clamped explicit
// value when one is supplied. Returns the new status, or false if the
// position does not exist. The change is persisted before returning.
func (s *Store) UpdateStatus(pos int, explicit *int) (model.Status, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pos < 1 || pos > len(s.tasks) {
		return 0, false
	}
	t := &s.tasks[pos-1]
	if explicit == nil {
		t.Status = t.Status.Cycle()
	} else {
		t.Status = model.Clamp(*explicit)
	}
	t.UpdatedAt = model.Timestamp()
	s.saveLocked()
	s.logger.Printf("tasks: position %d status -> %d", pos, t.Status)
	return t.Status, true
}

// FindByTitle returns the 1-based position of the first task whose title
// matches case-insensitively after trimming. Linear scan, first match wins.
func (s *Store) FindByTitle(title string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := strings.ToLower(strings.TrimSpace(title))
	for i, t := range s.tasks {
		if strings.ToLower(strings.TrimSpace(t.Title)) == want {
			return i + 1, true
		}
	}
	return 0, false
}

// All returns deep copies of every task in order.
func (s *Store) All() []model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.Task, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.Clone()
	}
	return out
}

func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Sort reorders the list by the given key and reassigns all ids.
//
//	priority  descending
//	due_date  ascending, missing or unparsable dates last
//	effort    ascending
//	status    ascending
//	title     ascending, case-insensitive
func (s *Store) Sort(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch key {
	case "priority":
		sort.SliceStable(s.tasks, func(i, j int) bool {
			return s.tasks[i].Priority > s.tasks[j].Priority
		})
	case "due_date":
		sort.SliceStable(s.tasks, func(i, j int) bool {
			return dueKey(s.tasks[i]).Before(dueKey(s.tasks[j]))
		})
	case "effort":
		sort.SliceStable(s.tasks, func(i, j int) bool {
			return s.tasks[i].Effort < s.tasks[j].Effort
		})
	case "status":
		sort.SliceStable(s.tasks, func(i, j int) bool {
			return s.tasks[i].Status < s.tasks[j].Status
		})
	case "title":
		sort.SliceStable(s.tasks, func(i, j int) bool {
			return strings.ToLower(s.tasks[i].Title) < strings.ToLower(s.tasks[j].Title)
		})
	default:
		return fmt.Errorf("%w: %s", ErrUnknownSortKey, key)
	}

	s.reindexLocked()
	s.saveLocked()
	s.logger.Printf("tasks: sorted by %s", key)
	return nil
}

func dueKey(t model.Task) time.Time {
	if t.DueDate == nil || *t.DueDate == "" {
		return maxDue
	}
	d, err := parseDate(*t.DueDate)
	if err != nil {
		return maxDue
	}
	return d
}

var maxDue = time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)

func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse("2006-01-02", s); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Stats counts tasks by status plus subtask holders and overdue tasks.
// Overdue means a parsable due date strictly before today on a task that is
// not completed; unparsable dates are skipped.
func (s *Store) Stats() model.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := model.Stats{Total: len(s.tasks)}
	y, m, d := time.Now().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	for _, t := range s.tasks {
		switch t.Status {
		case model.StatusNotStarted:
			st.NotStarted++
		case model.StatusInProgress:
			st.InProgress++
		case model.StatusCompleted:
			st.Completed++
		}
		if t.HasSubtasks {
			st.HasSubtasks++
		}
		if t.DueDate != nil && *t.DueDate != "" && t.Status != model.StatusCompleted {
			if due, err := parseDate(*t.DueDate); err == nil {
				if due.Before(today) {
					st.Overdue++
				}
			}
		}
	}
	return st
}
