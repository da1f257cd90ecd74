//go:build !linux

package main

import (
	"context"
	"errors"
	"os"
)

// readInputDevices reports that evdev buttons are unavailable off Linux.
func readInputDevices(_ context.Context, _ []*os.File, _ chan<- inputEvent, readErr chan<- error) {
	readErr <- errors.New("input devices are only supported on linux")
}
