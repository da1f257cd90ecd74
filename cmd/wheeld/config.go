package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"prizewheel"
)

// Config is the top-level YAML configuration for the wheeld daemon.
//
// Keep defaults and validation centralized so the rest of the code can assume
// a well-formed config.
type Config struct {
	// Wheel segments and spin timing
	Wheel WheelConfig `yaml:"wheel"`

	// Border light animation
	Lights LightsConfig `yaml:"lights"`

	// Physical spin buttons (Linux input devices)
	Input InputConfig `yaml:"input"`

	// IPC configuration (used by wheelctl and scripts)
	IPC IPCConfig `yaml:"ipc"`

	// HTTP API, websocket state stream and metrics
	HTTP HTTPConfig `yaml:"http"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

type WheelConfig struct {
	Items []prizewheel.Item `yaml:"items"`

	SpinDurationMS int `yaml:"spin_duration_ms"`
	SpinDelayMS    int `yaml:"spin_delay_ms"`

	// Indicator is the clock position of the pointer: "12", "3", "6" or "9".
	Indicator string `yaml:"indicator"`

	Rotations      int     `yaml:"rotations"`
	JitterFraction float64 `yaml:"jitter_fraction"`

	// FrameHz is the animation sampling rate.
	FrameHz int `yaml:"frame_hz"`
}

type LightsConfig struct {
	Enabled    bool `yaml:"enabled"`
	IntervalMS int  `yaml:"interval_ms"`
}

type InputConfig struct {
	Devices  []string `yaml:"devices,omitempty"`   // Input devices to watch; empty disables buttons
	SpinKeys []uint16 `yaml:"spin_keys,omitempty"` // Key codes that trigger a spin
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type HTTPConfig struct {
	// Addr is the listen address; empty disables the HTTP server.
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins,omitempty"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"` // optional rotated log file
}

// DefaultConfig returns a fully-populated Config with defaults.
func DefaultConfig() Config {
	return Config{
		Wheel: WheelConfig{
			Items:          prizewheel.DefaultItems(),
			SpinDurationMS: int(prizewheel.DefaultSpinDuration / time.Millisecond),
			SpinDelayMS:    int(prizewheel.DefaultSpinDelay / time.Millisecond),
			Indicator:      string(prizewheel.Indicator12),
			Rotations:      5,
			JitterFraction: 0.5,
			FrameHz:        defaultFrameHz,
		},
		Lights: LightsConfig{
			Enabled:    true,
			IntervalMS: defaultLightsMS,
		},
		Input: InputConfig{
			SpinKeys: append([]uint16(nil), defaultSpinKeys...),
		},
		IPC: IPCConfig{
			SocketPath: defaultSocketPath,
		},
		HTTP: HTTPConfig{
			Addr:           defaultHTTPAddr,
			AllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level: defaultLogLevel,
		},
	}
}

// LoadConfigFile reads and parses a YAML config file on top of the defaults.
//
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return parseConfig(b)
}

func parseConfig(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace and comments may follow the document. Decode into a node
	// so KnownFields cannot turn a second document into an unrelated error.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides applies overrides from flags on top of a loaded config.
//
// Flags should pass pointers; main.go only sets the pointers for flags that
// were given on the command line.
type FlagOverrides struct {
	Indicator      *string
	SpinDurationMS *int
	SpinDelayMS    *int
	FrameHz        *int

	InputDevice *string

	IPCSocketPath *string
	HTTPAddr      *string

	LogLevel *string
	LogFile  *string
}

// Apply merges the overrides into cfg. If an override pointer is nil, it is ignored.
// If the pointer is non-nil, the value is applied (even if it is a “zero value”).
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Indicator != nil {
		cfg.Wheel.Indicator = *o.Indicator
	}
	if o.SpinDurationMS != nil {
		cfg.Wheel.SpinDurationMS = *o.SpinDurationMS
	}
	if o.SpinDelayMS != nil {
		cfg.Wheel.SpinDelayMS = *o.SpinDelayMS
	}
	if o.FrameHz != nil {
		cfg.Wheel.FrameHz = *o.FrameHz
	}
	if o.InputDevice != nil {
		if *o.InputDevice == "" {
			cfg.Input.Devices = nil
		} else {
			cfg.Input.Devices = []string{*o.InputDevice}
		}
	}
	if o.IPCSocketPath != nil {
		cfg.IPC.SocketPath = *o.IPCSocketPath
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
	if o.LogLevel != nil {
		cfg.Logging.Level = *o.LogLevel
	}
	if o.LogFile != nil {
		cfg.Logging.File = *o.LogFile
	}
}

// Validate checks config invariants and returns a user-friendly error.
// This is intended to be called after defaults + file + overrides are applied.
func (c *Config) Validate() error {
	// Wheel
	if len(c.Wheel.Items) == 0 {
		return errors.New("wheel.items must not be empty")
	}
	for i, it := range c.Wheel.Items {
		if it.Label == "" {
			return fmt.Errorf("wheel.items[%d].label is empty", i)
		}
	}
	if c.Wheel.SpinDurationMS <= 0 {
		return errors.New("wheel.spin_duration_ms must be > 0")
	}
	if c.Wheel.SpinDelayMS < 0 {
		return errors.New("wheel.spin_delay_ms must be >= 0")
	}
	if _, err := prizewheel.ParseIndicator(c.Wheel.Indicator); err != nil {
		return fmt.Errorf("wheel.indicator must be one of \"12\", \"3\", \"6\", \"9\" (got %q)", c.Wheel.Indicator)
	}
	if c.Wheel.Rotations < 0 {
		return errors.New("wheel.rotations must be >= 0")
	}
	if c.Wheel.JitterFraction < 0 || c.Wheel.JitterFraction >= 1 {
		return errors.New("wheel.jitter_fraction must be >= 0 and < 1")
	}
	if c.Wheel.FrameHz <= 0 || c.Wheel.FrameHz > 1000 {
		return errors.New("wheel.frame_hz must be between 1 and 1000")
	}

	// Lights
	if c.Lights.Enabled && c.Lights.IntervalMS <= 0 {
		return errors.New("lights.interval_ms must be > 0 when lights are enabled")
	}

	// Input
	for i, dev := range c.Input.Devices {
		if dev == "" {
			return fmt.Errorf("input.devices[%d] is empty", i)
		}
	}
	if len(c.Input.Devices) > 0 && len(c.Input.SpinKeys) == 0 {
		return errors.New("input.spin_keys must not be empty when input.devices is set")
	}

	// IPC
	if c.IPC.SocketPath == "" {
		return errors.New("ipc.socket_path must not be empty")
	}

	// Logging
	if _, err := parseLogLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}

	return nil
}

// ToEngineConfig converts the file config into the engine's config.
// Callbacks are left for the caller to wire.
func (c *Config) ToEngineConfig() prizewheel.Config {
	ind, _ := prizewheel.ParseIndicator(c.Wheel.Indicator)

	cfg := prizewheel.DefaultConfig(c.Wheel.Items)
	cfg.SpinDuration = time.Duration(c.Wheel.SpinDurationMS) * time.Millisecond
	cfg.SpinDelay = time.Duration(c.Wheel.SpinDelayMS) * time.Millisecond
	cfg.Indicator = ind
	cfg.Rotations = c.Wheel.Rotations
	cfg.JitterFraction = c.Wheel.JitterFraction
	if c.Wheel.FrameHz > 0 {
		cfg.FrameInterval = time.Second / time.Duration(c.Wheel.FrameHz)
	}
	return cfg
}

// LightsInterval returns the blink period.
func (c *Config) LightsInterval() time.Duration {
	return time.Duration(c.Lights.IntervalMS) * time.Millisecond
}

// ExpandPath expands a leading "~" in a path using $HOME.
func ExpandPath(p string) string {
	if p == "" {
		return p
	}
	if p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}
