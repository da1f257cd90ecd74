package main

import "time"

// Linux input event types and codes (from <linux/input.h>)
const (
	EV_KEY = 0x01

	KEY_ENTER   = 28
	KEY_SPACE   = 57
	KEY_KPENTER = 96
	KEY_OK      = 0x160
	KEY_SELECT  = 0x161
)

// Input event value constants
const (
	evValueRelease = 0
	evValuePress   = 1
	evValueRepeat  = 2
)

const (
	defaultFrameHz     = 60
	defaultSocketPath  = "/tmp/prizewheel.sock"
	defaultHTTPAddr    = ":3080"
	defaultLogLevel    = "info"
	defaultLightsMS    = 500
	defaultEventBuffer = 64

	// How long request handlers wait for the daemon loop to answer.
	replyTimeout = 1 * time.Second
)

// defaultSpinKeys are the key codes that trigger a spin from an input device.
var defaultSpinKeys = []uint16{KEY_ENTER, KEY_SPACE, KEY_KPENTER, KEY_OK, KEY_SELECT}
