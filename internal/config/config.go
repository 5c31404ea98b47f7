// Package config loads server configuration from YAML with environment
// overrides for deployment-specific knobs.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	ButtonModeAuto = "auto"
	ButtonModeEdge = "edge"
	ButtonModePoll = "poll"
)

type Config struct {
	Server   ServerConfig   `yaml:"server" json:"server"`
	Auth     AuthConfig     `yaml:"auth" json:"auth"`
	DataDir  string         `yaml:"data_dir" json:"data_dir"`
	Hardware HardwareConfig `yaml:"hardware" json:"hardware"`
}

type ServerConfig struct {
	Addr string `yaml:"addr" json:"addr"`
}

type AuthConfig struct {
	Token     string `yaml:"token" json:"-"`
	NFCPublic bool   `yaml:"nfc_public" json:"nfc_public"`
}

type HardwareConfig struct {
	Enabled bool          `yaml:"enabled" json:"enabled"`
	Buttons ButtonsConfig `yaml:"buttons" json:"buttons"`
	Groups  []GroupPins   `yaml:"groups" json:"groups"`
}

type ButtonsConfig struct {
	Mode           string `yaml:"mode" json:"mode"`
	PollIntervalMS int    `yaml:"poll_interval_ms" json:"poll_interval_ms"`
	PullUp         bool   `yaml:"pull_up" json:"pull_up"`
}

// GroupPins maps one task position to physical pins. ButtonPin 0 means
// the group has no button and only mirrors status on its LED.
type GroupPins struct {
	ButtonPin int     `yaml:"button_pin" json:"button_pin"`
	LED       LEDPins `yaml:"led" json:"led"`
}

type LEDPins struct {
	R int `yaml:"r" json:"r"`
	G int `yaml:"g" json:"g"`
	B int `yaml:"b" json:"b"`
}

// Default returns the configuration used when no file or field is given.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":5002"},
		Auth:    AuthConfig{Token: "taskplanner2025", NFCPublic: true},
		DataDir: "data",
		Hardware: HardwareConfig{
			Buttons: ButtonsConfig{
				Mode:           ButtonModeAuto,
				PollIntervalMS: 20,
				PullUp:         true,
			},
		},
	}
}

func (c *Config) Validate() error {
	switch c.Hardware.Buttons.Mode {
	case ButtonModeAuto, ButtonModeEdge, ButtonModePoll:
	default:
		return fmt.Errorf("unknown button mode: %q", c.Hardware.Buttons.Mode)
	}
	if c.Hardware.Buttons.PollIntervalMS <= 0 {
		return fmt.Errorf("poll_interval_ms must be positive, got %d", c.Hardware.Buttons.PollIntervalMS)
	}
	return nil
}

// Load reads a YAML file on top of Default and applies env overrides.
// A missing file is not an error: defaults plus env win.
func Load(path string) (*Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("TASK_AUTH_TOKEN"); v != "" {
		c.Auth.Token = v
	}
	if v := os.Getenv("TASK_NFC_PUBLIC"); v != "" {
		c.Auth.NFCPublic = isTruthy(v)
	}
	if v := os.Getenv("TASK_BUTTON_POLLING"); v != "" && isTruthy(v) {
		c.Hardware.Buttons.Mode = ButtonModePoll
	}
	if v := getEnvInt("TASK_BUTTON_POLL_INTERVAL"); v > 0 {
		c.Hardware.Buttons.PollIntervalMS = v
	}
}

func isTruthy(v string) bool {
	switch v {
	case "1", "true", "TRUE", "True", "yes", "on":
		return true
	}
	return false
}

func getEnvInt(key string) int {
	val := os.Getenv(key)
	if val == "" {
		return 0
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0
	}
	return n
}
