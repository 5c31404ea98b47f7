// Package hardware mirrors task status onto RGB LEDs and turns physical
// button presses into status-cycle events.
package hardware

import (
	"sync"
	"time"
)

// OutputPin drives one LED channel.
type OutputPin interface {
	Write(high bool) error
}

// InputPin samples one button line. True means the line is high.
type InputPin interface {
	Read() (bool, error)
}

// EdgePin is a button line that can also block until the level changes.
// WaitForEdge returns false on timeout.
type EdgePin interface {
	InputPin
	WaitForEdge(timeout time.Duration) bool
}

// MemoryPin is an in-process pin for tests and for running without real
// GPIO, standing in for both LED channels and button lines.
type MemoryPin struct {
	mu    sync.Mutex
	level bool
	edges chan bool
}

func NewMemoryPin(level bool) *MemoryPin {
	return &MemoryPin{level: level, edges: make(chan bool, 16)}
}

// Set changes the line level and signals a pending edge.
func (p *MemoryPin) Set(level bool) {
	p.mu.Lock()
	changed := p.level != level
	p.level = level
	p.mu.Unlock()
	if changed {
		select {
		case p.edges <- level:
		default:
		}
	}
}

func (p *MemoryPin) Read() (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level, nil
}

func (p *MemoryPin) Write(high bool) error {
	p.Set(high)
	return nil
}

func (p *MemoryPin) WaitForEdge(timeout time.Duration) bool {
	select {
	case <-p.edges:
		return true
	case <-time.After(timeout):
		return false
	}
}
