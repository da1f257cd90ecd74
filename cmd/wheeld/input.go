package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"os"
	"slices"
)

// inputEvent represents a Linux input event structure
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

var inputEventSize = binary.Size(inputEvent{})

// decodeInputEvent parses one raw input_event record.
func decodeInputEvent(buf []byte) (inputEvent, error) {
	var ev inputEvent
	if err := binary.Read(bytes.NewReader(buf), binary.LittleEndian, &ev); err != nil {
		return inputEvent{}, err
	}
	return ev, nil
}

// translateInput maps a raw key event to a spin request. Only key presses of
// one of keys count; releases and autorepeat are ignored so holding a button
// does not queue spins.
func translateInput(ev inputEvent, keys []uint16) (SpinRequested, bool) {
	if ev.Type != EV_KEY || ev.Value != evValuePress {
		return SpinRequested{}, false
	}
	if !slices.Contains(keys, ev.Code) {
		return SpinRequested{}, false
	}
	return SpinRequested{Origin: "input"}, true
}

// inputReader reads raw events from open devices until ctx is canceled or a
// device fails. readInputDevices is the platform implementation.
type inputReader func(ctx context.Context, files []*os.File, events chan<- inputEvent, readErr chan<- error)

// runInput opens the configured devices and forwards spin button presses to
// the daemon loop until ctx is canceled or a device fails.
func runInput(ctx context.Context, cfg InputConfig, events chan<- Event, logger *slog.Logger) error {
	if len(cfg.Devices) == 0 {
		return nil
	}

	files := make([]*os.File, 0, len(cfg.Devices))
	for _, dev := range cfg.Devices {
		f, err := os.Open(ExpandPath(dev))
		if err != nil {
			closeFiles(files)
			return fmt.Errorf("open input device %s (run as root or add user to 'input' group): %w", dev, err)
		}
		files = append(files, f)
	}

	logger.Info("input devices open", "devices", cfg.Devices, "spin_keys", cfg.SpinKeys)
	return forwardInput(ctx, files, readInputDevices, cfg.SpinKeys, events, logger)
}

// forwardInput runs read over files and turns spin key presses into
// SpinRequested events. It owns files: they are closed only after the reader
// goroutine has returned, so no fd is closed while epoll or read still uses it.
func forwardInput(ctx context.Context, files []*os.File, read inputReader, keys []uint16, events chan<- Event, logger *slog.Logger) error {
	readCtx, cancelRead := context.WithCancel(ctx)
	raw := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	readerDone := make(chan struct{})

	go func() {
		defer close(readerDone)
		read(readCtx, files, raw, readErr)
	}()
	defer func() {
		cancelRead()
		<-readerDone
		closeFiles(files)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case err := <-readErr:
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input reader stopped: %w", err)

		case ev := <-raw:
			req, ok := translateInput(ev, keys)
			if !ok {
				continue
			}
			logger.Debug("spin button pressed", "code", ev.Code)
			select {
			case events <- req:
			case <-ctx.Done():
				return nil
			}
		}
	}
}

func closeFiles(files []*os.File) {
	for _, f := range files {
		_ = f.Close()
	}
}
