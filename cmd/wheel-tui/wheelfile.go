package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"prizewheel"
)

// wheelFile is the YAML description of a wheel for the terminal host.
type wheelFile struct {
	Items          []prizewheel.Item `yaml:"items"`
	Indicator      string            `yaml:"indicator"`
	SpinDurationMS int               `yaml:"spin_duration_ms"`
	SpinDelayMS    int               `yaml:"spin_delay_ms"`
	Rotations      int               `yaml:"rotations"`
	LightsMS       int               `yaml:"lights_ms"`
}

func defaultWheelFile() wheelFile {
	return wheelFile{
		Items:          prizewheel.DefaultItems(),
		Indicator:      string(prizewheel.Indicator12),
		SpinDurationMS: int(prizewheel.DefaultSpinDuration / time.Millisecond),
		SpinDelayMS:    int(prizewheel.DefaultSpinDelay / time.Millisecond),
		Rotations:      5,
		LightsMS:       int(prizewheel.DefaultBlinkInterval / time.Millisecond),
	}
}

func loadWheelFile(path string) (wheelFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return wheelFile{}, fmt.Errorf("read wheel file: %w", err)
	}
	return parseWheelFile(b)
}

func parseWheelFile(b []byte) (wheelFile, error) {
	wf := defaultWheelFile()
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(&wf); err != nil {
		return wheelFile{}, fmt.Errorf("decode wheel yaml: %w", err)
	}
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return wheelFile{}, fmt.Errorf("decode wheel yaml: unexpected trailing document")
	}
	return wf, nil
}

// engineConfig converts the file into an engine config. Bad values surface as
// prizewheel.ErrConfig from here or from prizewheel.New.
func (wf wheelFile) engineConfig() (prizewheel.Config, error) {
	pos, err := prizewheel.ParseIndicator(wf.Indicator)
	if err != nil {
		return prizewheel.Config{}, err
	}
	cfg := prizewheel.DefaultConfig(wf.Items)
	cfg.Indicator = pos
	cfg.SpinDuration = time.Duration(wf.SpinDurationMS) * time.Millisecond
	cfg.SpinDelay = time.Duration(wf.SpinDelayMS) * time.Millisecond
	cfg.Rotations = wf.Rotations
	return cfg, nil
}

func (wf wheelFile) lightsInterval() time.Duration {
	if wf.LightsMS <= 0 {
		return prizewheel.DefaultBlinkInterval
	}
	return time.Duration(wf.LightsMS) * time.Millisecond
}
