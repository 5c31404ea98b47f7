package hardware

import (
	"fmt"
	"log"
	"sync"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/model"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/task"
)

// Group ties one task position to its LEDs and button.
type group struct {
	taskID  int
	title   string
	status  model.Status
	leds    []*RGBLED
	buttons []string
}

// GroupInfo is the API view of a group.
type GroupInfo struct {
	TaskID      int          `json:"task_id"`
	TaskTitle   string       `json:"task_title"`
	Status      model.Status `json:"status"`
	LEDCount    int          `json:"led_count"`
	ButtonCount int          `json:"button_count"`
}

// Manager owns the task-to-hardware groups. Every indicator write is
// best-effort: errors are logged and swallowed, never returned to callers.
type Manager struct {
	mu      sync.Mutex
	tasks   *task.Store
	source  PressSource
	groups  map[int]*group
	onPress func(taskID int)
	logger  *log.Logger
}

func NewManager(tasks *task.Store, source PressSource, logger *log.Logger) *Manager {
	if logger == nil {
		logger = log.Default()
	}
	return &Manager{
		tasks:  tasks,
		source: source,
		groups: map[int]*group{},
		logger: logger,
	}
}

// SetPressHandler routes button presses. The server wires this to the scan
// engine so buttons and HTTP scans share one status-transition rule.
func (m *Manager) SetPressHandler(fn func(taskID int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onPress = fn
}

// RegisterGroup binds a task position to an LED and a button line, then
// shows the task's current status.
func (m *Manager) RegisterGroup(taskID int, led *RGBLED, pin EdgePin, pressedWhenLow bool) {
	m.mu.Lock()
	g, ok := m.groups[taskID]
	if !ok {
		g = &group{taskID: taskID}
		m.groups[taskID] = g
	}
	if t, found := m.tasks.Get(taskID); found {
		g.title = t.Title
	} else {
		g.title = fmt.Sprintf("Task %d", taskID)
	}
	if led != nil {
		g.leds = append(g.leds, led)
	}
	buttonID := fmt.Sprintf("task_%d_button", taskID)
	g.buttons = append(g.buttons, buttonID)
	m.mu.Unlock()

	if m.source != nil && pin != nil {
		m.source.Add(buttonID, pin, pressedWhenLow, func(string) {
			m.handlePress(taskID)
		})
	}
	m.SetIndicator(taskID, m.currentStatus(taskID))
	m.logger.Printf("hardware: registered group for task %d", taskID)
}

// AddMirrorLED attaches an extra LED to an existing (or new) group.
func (m *Manager) AddMirrorLED(taskID int, led *RGBLED) {
	m.mu.Lock()
	g, ok := m.groups[taskID]
	if !ok {
		g = &group{taskID: taskID, title: fmt.Sprintf("Task %d", taskID)}
		m.groups[taskID] = g
	}
	g.leds = append(g.leds, led)
	m.mu.Unlock()

	m.SetIndicator(taskID, m.currentStatus(taskID))
}

func (m *Manager) currentStatus(taskID int) model.Status {
	if t, ok := m.tasks.Get(taskID); ok {
		return t.Status
	}
	return model.StatusNotStarted
}

func (m *Manager) handlePress(taskID int) {
	m.mu.Lock()
	fn := m.onPress
	m.mu.Unlock()

	m.logger.Printf("hardware: task %d button pressed", taskID)
	if fn != nil {
		fn(taskID)
		return
	}
	// No handler wired: cycle directly so standalone hardware still works.
	if newStatus, ok := m.tasks.UpdateStatus(taskID, nil); ok {
		m.SetIndicator(taskID, newStatus)
	}
}

// SetIndicator shows a status color on every LED of the group. Unknown
// groups are a no-op; write failures are logged and dropped.
func (m *Manager) SetIndicator(pos int, status model.Status) {
	m.mu.Lock()
	g, ok := m.groups[pos]
	if !ok {
		m.mu.Unlock()
		return
	}
	g.status = status
	leds := append([]*RGBLED(nil), g.leds...)
	m.mu.Unlock()

	color := StatusColor(status)
	for _, led := range leds {
		if err := led.SetColor(color); err != nil {
			m.logger.Printf("hardware: LED update failed for task %d: %v", pos, err)
		}
	}
}

// SyncAll refreshes every group's LEDs from the task store.
func (m *Manager) SyncAll() {
	m.mu.Lock()
	ids := make([]int, 0, len(m.groups))
	for id := range m.groups {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	for _, id := range ids {
		m.SetIndicator(id, m.currentStatus(id))
	}
}

// RemoveGroup turns the group's LEDs off and forgets it.
func (m *Manager) RemoveGroup(pos int) bool {
	m.mu.Lock()
	g, ok := m.groups[pos]
	if !ok {
		m.mu.Unlock()
		return false
	}
	delete(m.groups, pos)
	leds := g.leds
	m.mu.Unlock()

	for _, led := range leds {
		if err := led.Off(); err != nil {
			m.logger.Printf("hardware: LED off failed for task %d: %v", pos, err)
		}
	}
	m.logger.Printf("hardware: removed group for task %d", pos)
	return true
}

// Groups reports every group for the status endpoint.
func (m *Manager) Groups() map[int]GroupInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[int]GroupInfo, len(m.groups))
	for id, g := range m.groups {
		out[id] = GroupInfo{
			TaskID:      g.taskID,
			TaskTitle:   g.title,
			Status:      g.status,
			LEDCount:    len(g.leds),
			ButtonCount: len(g.buttons),
		}
	}
	return out
}

// Start begins press detection.
func (m *Manager) Start() {
	if m.source != nil {
		m.source.Start()
	}
}

// Close stops press detection and darkens every LED.
func (m *Manager) Close() {
	if m.source != nil {
		m.source.Stop()
	}
	m.mu.Lock()
	var leds []*RGBLED
	for _, g := range m.groups {
		leds = append(leds, g.leds...)
	}
	m.mu.Unlock()
	for _, led := range leds {
		_ = led.Off()
	}
	m.logger.Printf("hardware: manager closed")
}
