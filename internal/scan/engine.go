// Package scan holds the single status-transition workflow shared by the
// HTTP scan endpoints and the hardware buttons.
package scan

import (
	"errors"
	"log"
	"strconv"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/model"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/nfc"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/task"
)

var (
	// ErrTaskNotFound: a numeric identifier named a position that does not
	// exist and no title was supplied to create one.
	ErrTaskNotFound = errors.New("task not found")
	// ErrMappedTaskMissing: the tag maps to a title that no longer resolves
	// and no title was supplied to recreate it. Nothing was mutated.
	ErrMappedTaskMissing = errors.New("tag is mapped but the task no longer exists; provide task_title to recreate")
)

// Indicator pushes a status color to the hardware mirror. Best-effort by
// contract: implementations log their own failures and never return them.
type Indicator interface {
	SetIndicator(pos int, status model.Status)
}

// Result describes what a scan or press did.
type Result struct {
	Action     string        `json:"status"`
	TagID      string        `json:"tag_id,omitempty"`
	TaskTitle  string        `json:"task_title,omitempty"`
	TaskIndex  int           `json:"task_index,omitempty"`
	NewStatus  *model.Status `json:"new_status,omitempty"`
	StatusName string        `json:"status_name,omitempty"`
	Message    string        `json:"message,omitempty"`

	// Created marks actions that made a new task or mapping (HTTP 201).
	Created bool `json:"-"`
}

// Engine resolves scan/press events against the two stores. It is the only
// place task status transitions happen outside an explicit status PUT.
type Engine struct {
	tasks     *task.Store
	mappings  *nfc.Store
	indicator Indicator
	logger    *log.Logger
}

func NewEngine(tasks *task.Store, mappings *nfc.Store, logger *log.Logger) *Engine {
	if logger == nil {
		logger = log.Default()
	}
	return &Engine{tasks: tasks, mappings: mappings, logger: logger}
}

// SetIndicator attaches the hardware sink. Nil means no hardware.
func (e *Engine) SetIndicator(ind Indicator) {
	e.indicator = ind
}

func (e *Engine) pushIndicator(pos int, status model.Status) {
	if e.indicator == nil {
		return
	}
	e.indicator.SetIndicator(pos, status)
}

// Resolve handles a path-style identifier: numeric means a direct task
// position, anything else is a tag id.
func (e *Engine) Resolve(identifier, title, reader string) (Result, error) {
	if pos, err := strconv.Atoi(identifier); err == nil && pos >= 0 {
		return e.press(identifier, pos, title, reader)
	}
	return e.Scan(identifier, title, reader)
}

// Press cycles the task at the given position; used by hardware buttons.
func (e *Engine) Press(pos int, reader string) (Result, error) {
	return e.press(strconv.Itoa(pos), pos, "", reader)
}

func (e *Engine) press(identifier string, pos int, title, reader string) (Result, error) {
	newStatus, ok := e.tasks.UpdateStatus(pos, nil)
	if !ok {
		if title == "" {
			return Result{}, ErrTaskNotFound
		}
		// Missing position but a title was supplied: create the task and
		// map the identifier to it for future scans.
		idx := e.tasks.Add(title, 0, 0, nil)
		e.mappings.Map(identifier, title)
		e.pushIndicator(idx, model.StatusNotStarted)
		e.mappings.LogPing(nfc.Ping{
			TagID:     identifier,
			Action:    "task_created_and_mapped",
			TaskTitle: &title,
			TaskIndex: &idx,
			Reader:    reader,
		})
		return Result{
			Action:    "task_created_and_mapped",
			TagID:     identifier,
			TaskTitle: title,
			TaskIndex: idx,
			Created:   true,
		}, nil
	}

	e.pushIndicator(pos, newStatus)
	ns := int(newStatus)
	e.mappings.LogPing(nfc.Ping{
		TagID:     identifier,
		Action:    "task_incremented",
		TaskIndex: &pos,
		NewStatus: &ns,
		Reader:    reader,
	})
	return Result{
		Action:     "task_incremented",
		TaskIndex:  pos,
		NewStatus:  &newStatus,
		StatusName: newStatus.Name(),
	}, nil
}

// Scan resolves a tag id, optionally carrying a supplied title.
//
// Mapped tag, title resolves:       cycle that task.
// Mapped tag, title gone, title:    create task, remap tag (no cycle).
// Mapped tag, title gone, no title: error, nothing mutated.
// Unmapped tag, title exists:       map tag and cycle in one call.
// Unmapped tag, title new:          create task and map (no cycle).
// Unmapped tag, no title:           record an empty mapping.
func (e *Engine) Scan(tagID, title, reader string) (Result, error) {
	mapped, hasMapping := e.mappings.Lookup(tagID)
	mappedTitle := ""
	if hasMapping {
		mappedTitle = mapped.Title
	}

	if mappedTitle != "" {
		if pos, ok := e.tasks.FindByTitle(mappedTitle); ok {
			return e.increment(tagID, mappedTitle, pos, reader, "task_incremented"), nil
		}
		if title == "" {
			return Result{}, ErrMappedTaskMissing
		}
		idx := e.tasks.Add(title, 0, 0, nil)
		e.mappings.Map(tagID, title)
		e.pushIndicator(idx, model.StatusNotStarted)
		e.mappings.LogPing(nfc.Ping{
			TagID:     tagID,
			Action:    "task_created_remapped",
			TaskTitle: &title,
			TaskIndex: &idx,
			Reader:    reader,
		})
		return Result{
			Action:    "task_created_remapped",
			TagID:     tagID,
			TaskTitle: title,
			TaskIndex: idx,
			Message:   "Mapped task no longer exists, created new task",
			Created:   true,
		}, nil
	}

	if title != "" {
		if pos, ok := e.tasks.FindByTitle(title); ok {
			e.mappings.Map(tagID, title)
			return e.increment(tagID, title, pos, reader, "task_mapped_and_incremented"), nil
		}
		idx := e.tasks.Add(title, 0, 0, nil)
		e.mappings.Map(tagID, title)
		e.pushIndicator(idx, model.StatusNotStarted)
		e.mappings.LogPing(nfc.Ping{
			TagID:     tagID,
			Action:    "task_created_and_mapped",
			TaskTitle: &title,
			TaskIndex: &idx,
			Reader:    reader,
		})
		return Result{
			Action:    "task_created_and_mapped",
			TagID:     tagID,
			TaskTitle: title,
			TaskIndex: idx,
			Created:   true,
		}, nil
	}

	// Unknown tag, no title: record the tag for later assignment.
	e.mappings.Map(tagID, "")
	empty := ""
	e.mappings.LogPing(nfc.Ping{
		TagID:     tagID,
		Action:    "mapping_created_empty",
		TaskTitle: &empty,
		Reader:    reader,
	})
	return Result{
		Action:  "mapping_created_empty",
		TagID:   tagID,
		Message: "Tag recorded with empty mapping. Use mappings API to assign a task later.",
		Created: true,
	}, nil
}

// increment cycles the task at pos and logs the given action.
func (e *Engine) increment(tagID, title string, pos int, reader, action string) Result {
	newStatus, ok := e.tasks.UpdateStatus(pos, nil)
	if !ok {
		// FindByTitle and UpdateStatus run back to back on the same store;
		// this cannot happen outside a concurrent external writer.
		e.logger.Printf("scan: position %d vanished during %s", pos, action)
		return Result{Action: action, TagID: tagID, TaskTitle: title}
	}
	e.pushIndicator(pos, newStatus)
	ns := int(newStatus)
	e.mappings.LogPing(nfc.Ping{
		TagID:     tagID,
		Action:    action,
		TaskTitle: &title,
		TaskIndex: &pos,
		NewStatus: &ns,
		Reader:    reader,
	})
	return Result{
		Action:     action,
		TagID:      tagID,
		TaskTitle:  title,
		TaskIndex:  pos,
		NewStatus:  &newStatus,
		StatusName: newStatus.Name(),
	}
}
