package hardware

import (
	"fmt"

	"github.com/CapitanBekon/602IT-Adhd-Task-planner/internal/model"
)

type Color string

const (
	ColorOff    Color = "off"
	ColorRed    Color = "red"
	ColorYellow Color = "yellow"
	ColorGreen  Color = "green"
	ColorBlue   Color = "blue"
	ColorPurple Color = "purple"
)

// StatusColor maps a task status to its indicator color. Anything outside
// the known range shows as not-started red.
func StatusColor(s model.Status) Color {
	switch s {
	case model.StatusInProgress:
		return ColorYellow
	case model.StatusCompleted:
		return ColorGreen
	default:
		return ColorRed
	}
}

// channel levels per color for a common-anode RGB LED: low lights a channel.
var colorLevels = map[Color][3]bool{
	ColorOff:    {true, true, true},
	ColorRed:    {false, true, true},
	ColorYellow: {false, false, true},
	ColorGreen:  {true, false, true},
	ColorBlue:   {true, true, false},
	ColorPurple: {false, true, false},
}

// RGBLED drives a common-anode RGB LED over three output pins.
type RGBLED struct {
	r, g, b OutputPin
}

func NewRGBLED(r, g, b OutputPin) *RGBLED {
	return &RGBLED{r: r, g: g, b: b}
}

func (l *RGBLED) SetColor(c Color) error {
	levels, ok := colorLevels[c]
	if !ok {
		return fmt.Errorf("unknown color: %s", c)
	}
	if err := l.r.Write(levels[0]); err != nil {
		return err
	}
	if err := l.g.Write(levels[1]); err != nil {
		return err
	}
	return l.b.Write(levels[2])
}

func (l *RGBLED) Off() error {
	return l.SetColor(ColorOff)
}
