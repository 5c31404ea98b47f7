package hardware

import (
	"log"
	"sync"
	"time"
)

// PressFunc receives exactly one call per detected physical press.
type PressFunc func(buttonID string)

// PressSource turns button lines into press events. Two implementations
// exist: EdgeSource blocks on hardware edge detection, PollSource samples
// levels on a timer. Which one runs is a startup decision, not a runtime
// exception path.
type PressSource interface {
	Add(id string, pin EdgePin, pressedWhenLow bool, fire PressFunc)
	Start()
	Stop()
}

type button struct {
	id             string
	pin            EdgePin
	pressedWhenLow bool
	fire           PressFunc
}

func (b *button) pressed() bool {
	level, err := b.pin.Read()
	if err != nil {
		return false
	}
	if b.pressedWhenLow {
		return !level
	}
	return level
}

// PollSource samples every button line on a fixed interval and fires only
// on a released->pressed transition, tracked per line. A press held across
// many samples produces one event; a new event needs a release first.
type PollSource struct {
	mu       sync.Mutex
	interval time.Duration
	buttons  []*button
	last     map[string]bool
	stop     chan struct{}
	wg       sync.WaitGroup
	started  bool
	logger   *log.Logger
}

func NewPollSource(interval time.Duration, logger *log.Logger) *PollSource {
	if interval <= 0 {
		interval = 20 * time.Millisecond
	}
	if logger == nil {
		logger = log.Default()
	}
	return &PollSource{
		interval: interval,
		last:     map[string]bool{},
		stop:     make(chan struct{}),
		logger:   logger,
	}
}

func (s *PollSource) Add(id string, pin EdgePin, pressedWhenLow bool, fire PressFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := &button{id: id, pin: pin, pressedWhenLow: pressedWhenLow, fire: fire}
	s.buttons = append(s.buttons, b)
	// Seed the previous state so a button held at startup does not fire.
	s.last[id] = b.pressed()
}

func (s *PollSource) Start() {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop()
	s.logger.Printf("hardware: button polling started (interval=%s)", s.interval)
}

func (s *PollSource) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.sample()
		}
	}
}

func (s *PollSource) sample() {
	s.mu.Lock()
	buttons := append([]*button(nil), s.buttons...)
	s.mu.Unlock()

	for _, b := range buttons {
		pressed := b.pressed()
		s.mu.Lock()
		last := s.last[b.id]
		s.last[b.id] = pressed
		s.mu.Unlock()
		if pressed && !last && b.fire != nil {
			b.fire(b.id)
		}
	}
}

// Stop signals the loop and waits for it to exit. At most one tick of work
// remains after the signal, so the join is bounded.
func (s *PollSource) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
	s.logger.Printf("hardware: button polling stopped")
}

// EdgeSource runs one goroutine per button blocking on WaitForEdge. Presses
// are debounced the same way as polling: an event fires only when the line
// moves from released to pressed.
type EdgeSource struct {
	mu      sync.Mutex
	buttons []*button
	stop    chan struct{}
	wg      sync.WaitGroup
	started bool
	logger  *log.Logger
}

func NewEdgeSource(logger *log.Logger) *EdgeSource {
	if logger == nil {
		logger = log.Default()
	}
	return &EdgeSource{stop: make(chan struct{}), logger: logger}
}

func (s *EdgeSource) Add(id string, pin EdgePin, pressedWhenLow bool, fire PressFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buttons = append(s.buttons, &button{id: id, pin: pin, pressedWhenLow: pressedWhenLow, fire: fire})
}

func (s *EdgeSource) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	for _, b := range s.buttons {
		s.wg.Add(1)
		go s.watch(b)
	}
	s.logger.Printf("hardware: edge detection started (%d buttons)", len(s.buttons))
}

func (s *EdgeSource) watch(b *button) {
	defer s.wg.Done()
	last := b.pressed()
	for {
		select {
		case <-s.stop:
			return
		default:
		}
		// The timeout bounds shutdown: Stop never waits longer than this
		// plus one iteration.
		if !b.pin.WaitForEdge(500 * time.Millisecond) {
			continue
		}
		pressed := b.pressed()
		if pressed && !last && b.fire != nil {
			b.fire(b.id)
		}
		last = pressed
	}
}

func (s *EdgeSource) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	close(s.stop)
	s.wg.Wait()
	s.logger.Printf("hardware: edge detection stopped")
}
