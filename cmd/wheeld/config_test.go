package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"prizewheel"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if len(cfg.Wheel.Items) != 8 {
		t.Fatalf("default items = %d, want 8", len(cfg.Wheel.Items))
	}
}

func TestParseConfig_OverridesDefaults(t *testing.T) {
	yml := `
wheel:
  items:
    - {label: "Free Coffee", color: "#111111"}
    - {label: "Try Again", color: "#222222"}
  spin_duration_ms: 2500
  indicator: "3"
lights:
  enabled: false
input:
  devices: [/dev/input/event3]
  spin_keys: [57]
http:
  addr: ""
logging:
  level: debug
`
	cfg, err := parseConfig([]byte(yml))
	if err != nil {
		t.Fatalf("parseConfig: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	if len(cfg.Wheel.Items) != 2 || cfg.Wheel.Items[1].Label != "Try Again" {
		t.Fatalf("unexpected items %+v", cfg.Wheel.Items)
	}
	if cfg.Wheel.SpinDurationMS != 2500 || cfg.Wheel.Indicator != "3" {
		t.Fatalf("unexpected wheel config %+v", cfg.Wheel)
	}
	// Untouched keys keep their defaults.
	if cfg.Wheel.SpinDelayMS != 200 || cfg.Wheel.FrameHz != defaultFrameHz || cfg.IPC.SocketPath != defaultSocketPath {
		t.Fatalf("defaults lost: %+v %+v", cfg.Wheel, cfg.IPC)
	}
	if cfg.Lights.Enabled || cfg.HTTP.Addr != "" || cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected lights/http/logging: %+v %+v %+v", cfg.Lights, cfg.HTTP, cfg.Logging)
	}
	if len(cfg.Input.SpinKeys) != 1 || cfg.Input.SpinKeys[0] != KEY_SPACE {
		t.Fatalf("unexpected spin keys %v", cfg.Input.SpinKeys)
	}
}

func TestParseConfig_RejectsUnknownFields(t *testing.T) {
	_, err := parseConfig([]byte("wheel:\n  spin_durations_ms: 100\n"))
	if err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestParseConfig_RejectsTrailingDocument(t *testing.T) {
	_, err := parseConfig([]byte("wheel:\n  rotations: 3\n---\nwheel:\n  rotations: 4\n"))
	if err == nil || !strings.Contains(err.Error(), "trailing document") {
		t.Fatalf("expected trailing document error, got %v", err)
	}
}

func TestParseConfig_RejectsTrailingDocumentWithUnknownKeys(t *testing.T) {
	for _, in := range []string{
		"wheel:\n  rotations: 3\n---\nsomething_else: 1\n",
		"wheel:\n  rotations: 3\n---\n- a\n- b\n",
	} {
		if _, err := parseConfig([]byte(in)); err == nil || !strings.Contains(err.Error(), "trailing document") {
			t.Fatalf("parseConfig(%q): expected trailing document error, got %v", in, err)
		}
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wheeld.yaml")
	if err := os.WriteFile(path, []byte("wheel:\n  rotations: 8\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.Wheel.Rotations != 8 {
		t.Fatalf("rotations = %d, want 8", cfg.Wheel.Rotations)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if _, err := LoadConfigFile(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestConfigValidate_Errors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantKey string
	}{
		{"no items", func(c *Config) { c.Wheel.Items = nil }, "wheel.items"},
		{"empty label", func(c *Config) { c.Wheel.Items = []prizewheel.Item{{Label: ""}} }, "wheel.items[0].label"},
		{"zero duration", func(c *Config) { c.Wheel.SpinDurationMS = 0 }, "wheel.spin_duration_ms"},
		{"negative delay", func(c *Config) { c.Wheel.SpinDelayMS = -1 }, "wheel.spin_delay_ms"},
		{"bad indicator", func(c *Config) { c.Wheel.Indicator = "7" }, "wheel.indicator"},
		{"negative rotations", func(c *Config) { c.Wheel.Rotations = -1 }, "wheel.rotations"},
		{"jitter one", func(c *Config) { c.Wheel.JitterFraction = 1 }, "wheel.jitter_fraction"},
		{"frame hz", func(c *Config) { c.Wheel.FrameHz = 0 }, "wheel.frame_hz"},
		{"lights interval", func(c *Config) { c.Lights.IntervalMS = 0 }, "lights.interval_ms"},
		{"empty device", func(c *Config) { c.Input.Devices = []string{""} }, "input.devices[0]"},
		{"no spin keys", func(c *Config) {
			c.Input.Devices = []string{"/dev/input/event3"}
			c.Input.SpinKeys = nil
		}, "input.spin_keys"},
		{"socket path", func(c *Config) { c.IPC.SocketPath = "" }, "ipc.socket_path"},
		{"log level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantKey) {
				t.Fatalf("error %q does not name %q", err, tc.wantKey)
			}
		})
	}
}

func TestFlagOverrides_Apply(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input.Devices = []string{"/dev/input/event1", "/dev/input/event2"}

	indicator := "9"
	delay := 0
	device := ""
	addr := "127.0.0.1:9000"

	FlagOverrides{
		Indicator:   &indicator,
		SpinDelayMS: &delay,
		InputDevice: &device,
		HTTPAddr:    &addr,
	}.Apply(&cfg)

	if cfg.Wheel.Indicator != "9" || cfg.Wheel.SpinDelayMS != 0 || cfg.HTTP.Addr != addr {
		t.Fatalf("overrides not applied: %+v %+v", cfg.Wheel, cfg.HTTP)
	}
	if cfg.Input.Devices != nil {
		t.Fatalf("empty -input-device should clear devices, got %v", cfg.Input.Devices)
	}
	// Nil pointers leave values alone.
	if cfg.Wheel.SpinDurationMS != int(prizewheel.DefaultSpinDuration/time.Millisecond) {
		t.Fatalf("spin duration changed: %d", cfg.Wheel.SpinDurationMS)
	}

	device = "/dev/input/event5"
	FlagOverrides{InputDevice: &device}.Apply(&cfg)
	if len(cfg.Input.Devices) != 1 || cfg.Input.Devices[0] != device {
		t.Fatalf("devices = %v, want [%s]", cfg.Input.Devices, device)
	}
}

func TestToEngineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Wheel.Indicator = "6"
	cfg.Wheel.SpinDurationMS = 1500
	cfg.Wheel.SpinDelayMS = 0
	cfg.Wheel.FrameHz = 50

	ec := cfg.ToEngineConfig()
	if ec.Indicator != prizewheel.Indicator6 {
		t.Fatalf("indicator = %q, want 6", ec.Indicator)
	}
	if ec.SpinDuration != 1500*time.Millisecond || ec.SpinDelay != 0 || ec.FrameInterval != 20*time.Millisecond {
		t.Fatalf("unexpected timings %+v", ec)
	}
	if len(ec.Items) != 8 || ec.Rotations != 5 || ec.JitterFraction != 0.5 {
		t.Fatalf("unexpected engine config %+v", ec)
	}

	if _, err := prizewheel.New(ec); err != nil {
		t.Fatalf("engine rejected converted config: %v", err)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	if got := ExpandPath("~/wheel.yaml"); got != filepath.Join(home, "wheel.yaml") {
		t.Fatalf("ExpandPath(~/wheel.yaml) = %q", got)
	}
	if got := ExpandPath("/etc/wheel.yaml"); got != "/etc/wheel.yaml" {
		t.Fatalf("ExpandPath(/etc/wheel.yaml) = %q", got)
	}
}
