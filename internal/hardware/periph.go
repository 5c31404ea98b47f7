package hardware

import (
	"fmt"
	"log"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/config"
	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/task"
)

// periphPin adapts a periph GPIO pin to the pin interfaces used here.
type periphPin struct {
	pio gpio.PinIO
}

func (p periphPin) Read() (bool, error) {
	return p.pio.Read() == gpio.High, nil
}

func (p periphPin) Write(high bool) error {
	return p.pio.Out(gpio.Level(high))
}

func (p periphPin) WaitForEdge(timeout time.Duration) bool {
	return p.pio.WaitForEdge(timeout)
}

func resolvePin(num int) (gpio.PinIO, error) {
	name := fmt.Sprintf("GPIO%d", num)
	pio := gpioreg.ByName(name)
	if pio == nil {
		return nil, fmt.Errorf("no such pin %s", name)
	}
	return pio, nil
}

func resolveOutput(num int) (OutputPin, error) {
	pio, err := resolvePin(num)
	if err != nil {
		return nil, err
	}
	// Common-anode: high is off.
	if err := pio.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("configure GPIO%d as output: %w", num, err)
	}
	return periphPin{pio}, nil
}

// Open wires the configured pin groups to real GPIO and returns a started
// manager. The press source is chosen here: "edge" and "poll" force an
// implementation, "auto" probes edge support and falls back to polling.
func Open(cfg config.HardwareConfig, tasks *task.Store, logger *log.Logger) (*Manager, error) {
	if logger == nil {
		logger = log.Default()
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("gpio host init: %w", err)
	}

	pull := gpio.PullUp
	if !cfg.Buttons.PullUp {
		pull = gpio.PullDown
	}

	useEdge := cfg.Buttons.Mode != config.ButtonModePoll
	inputs := make([]gpio.PinIO, len(cfg.Groups))
	for i, g := range cfg.Groups {
		if g.ButtonPin == 0 {
			continue // LED-only mirror group
		}
		pio, err := resolvePin(g.ButtonPin)
		if err != nil {
			return nil, err
		}
		edge := gpio.NoEdge
		if useEdge {
			edge = gpio.BothEdges
		}
		if err := pio.In(pull, edge); err != nil {
			if useEdge && cfg.Buttons.Mode == config.ButtonModeAuto {
				logger.Printf("hardware: edge detection unavailable on GPIO%d (%v), falling back to polling", g.ButtonPin, err)
				useEdge = false
				err = pio.In(pull, gpio.NoEdge)
			}
			if err != nil {
				return nil, fmt.Errorf("configure GPIO%d as input: %w", g.ButtonPin, err)
			}
		}
		inputs[i] = pio
	}

	var source PressSource
	if useEdge {
		source = NewEdgeSource(logger)
	} else {
		source = NewPollSource(time.Duration(cfg.Buttons.PollIntervalMS)*time.Millisecond, logger)
	}

	m := NewManager(tasks, source, logger)
	for i, g := range cfg.Groups {
		r, err := resolveOutput(g.LED.R)
		if err != nil {
			return nil, err
		}
		gr, err := resolveOutput(g.LED.G)
		if err != nil {
			return nil, err
		}
		b, err := resolveOutput(g.LED.B)
		if err != nil {
			return nil, err
		}
		led := NewRGBLED(r, gr, b)

		taskID := i + 1
		if inputs[i] != nil {
			m.RegisterGroup(taskID, led, periphPin{inputs[i]}, cfg.Buttons.PullUp)
		} else {
			m.AddMirrorLED(taskID, led)
		}
	}
	return m, nil
}
