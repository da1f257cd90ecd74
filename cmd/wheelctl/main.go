package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"time"
)

// ============================================================================
// wheelctl - Command-line IPC Client
// ============================================================================
// Sends commands to the wheeld daemon over its Unix domain socket.
//
// Usage:
//   wheelctl spin
//   wheelctl spin-to "Free Shipping"
//   wheelctl show
//   wheelctl hide
//   wheelctl state
//
// Options:
//   -socket PATH    Unix domain socket path (default: /tmp/prizewheel.sock)
// ============================================================================

const defaultSocketPath = "/tmp/prizewheel.sock"

// Request types (duplicated from wheeld for a standalone binary)
type Request interface{}

type Spin struct {
	Winner string `json:"winner,omitempty"`
	Origin string `json:"origin,omitempty"`
}

type Activate struct{}

type Deactivate struct{}

type GetState struct{}

// EventEnvelope wraps requests for JSON
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// WheelState mirrors the engine state carried in responses.
type WheelState struct {
	Rotation float64 `json:"rotation"`
	Spinning bool    `json:"spinning"`
	Result   string  `json:"result"`
	Index    int     `json:"index"`
	SpinID   string  `json:"spin_id"`
	Target   float64 `json:"target"`
}

type Item struct {
	Label string `json:"label"`
	Color string `json:"color"`
}

type Outcome struct {
	SpinID string `json:"spin_id"`
	Label  string `json:"label"`
	Index  int    `json:"index"`
}

type Snapshot struct {
	Wheel       WheelState     `json:"wheel"`
	Visible     bool           `json:"visible"`
	LightsOn    bool           `json:"lights_on"`
	Items       []Item         `json:"items"`
	LastOutcome *Outcome       `json:"last_outcome"`
	Stats       map[string]int `json:"stats"`
}

// IPCResponse represents the daemon's response
type IPCResponse struct {
	Status  string    `json:"status"`
	Error   string    `json:"error,omitempty"`
	Started *bool     `json:"started,omitempty"`
	State   *Snapshot `json:"state,omitempty"`
}

func main() {
	socketPath := defaultSocketPath

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	if args[0] == "-socket" || args[0] == "--socket" {
		if len(args) < 2 {
			fmt.Fprintf(os.Stderr, "error: -socket requires an argument\n")
			os.Exit(1)
		}
		socketPath = args[1]
		args = args[2:]
	}

	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	var req Request

	switch args[0] {
	case "spin":
		req = Spin{Origin: "wheelctl"}

	case "spin-to", "force":
		if len(args) < 2 || args[1] == "" {
			fmt.Fprintf(os.Stderr, "error: spin-to requires an item label\n")
			os.Exit(1)
		}
		req = Spin{Winner: args[1], Origin: "wheelctl"}

	case "show", "activate":
		req = Activate{}

	case "hide", "deactivate":
		req = Deactivate{}

	case "state", "status":
		req = GetState{}

	case "help", "-h", "--help":
		printUsage()
		os.Exit(0)

	default:
		fmt.Fprintf(os.Stderr, "error: unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}

	resp, err := send(socketPath, req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	printResponse(req, resp)
}

func printResponse(req Request, resp IPCResponse) {
	switch req.(type) {
	case Spin:
		switch {
		case resp.Started != nil && *resp.Started:
			spinID := ""
			if resp.State != nil {
				spinID = resp.State.Wheel.SpinID
			}
			fmt.Printf("spinning (spin %s)\n", spinID)
		default:
			fmt.Println("ignored: a spin is already in progress")
		}

	case GetState:
		if resp.State == nil {
			fmt.Println("ok")
			return
		}
		s := resp.State
		fmt.Printf("visible:  %v\n", s.Visible)
		fmt.Printf("lights:   %v\n", s.LightsOn)
		fmt.Printf("spinning: %v\n", s.Wheel.Spinning)
		fmt.Printf("rotation: %.2f / %.2f\n", s.Wheel.Rotation, s.Wheel.Target)
		if s.Wheel.Result != "" {
			fmt.Printf("result:   %s (segment %d)\n", s.Wheel.Result, s.Wheel.Index)
		} else if s.LastOutcome != nil {
			fmt.Printf("last:     %s (segment %d)\n", s.LastOutcome.Label, s.LastOutcome.Index)
		}
		for i, it := range s.Items {
			fmt.Printf("  [%d] %s\n", i, it.Label)
		}

	default:
		fmt.Println("ok")
	}
}

func send(socketPath string, req Request) (IPCResponse, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	data, err := marshalRequest(req)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	// Line-delimited JSON
	if _, err := fmt.Fprintf(conn, "%s\n", data); err != nil {
		return IPCResponse{}, fmt.Errorf("send request: %w", err)
	}

	var response IPCResponse
	if err := json.NewDecoder(conn).Decode(&response); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if response.Status == "error" {
		return response, fmt.Errorf("daemon error: %s", response.Error)
	}

	return response, nil
}

func marshalRequest(req Request) ([]byte, error) {
	var env EventEnvelope

	switch r := req.(type) {
	case Spin:
		env.Type = "spin"
		data, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("marshal Spin: %w", err)
		}
		env.Data = data

	case Activate:
		env.Type = "activate"

	case Deactivate:
		env.Type = "deactivate"

	case GetState:
		env.Type = "get_state"

	default:
		return nil, fmt.Errorf("unknown request type: %T", req)
	}

	return json.Marshal(env)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `wheelctl - Control the wheeld prize wheel daemon via IPC

Usage:
  wheelctl [options] <command> [args]

Options:
  -socket PATH    Unix domain socket path (default: %s)

Commands:
  spin                    Spin to a random segment
  spin-to, force <label>  Spin and land on the first segment with this label
  show, activate          Show the wheel
  hide, deactivate        Hide the wheel (cancels a spin in progress)
  state, status           Print the daemon's current state
  help, -h, --help        Show this help message

Examples:
  wheelctl spin
  wheelctl spin-to "Free Shipping"
  wheelctl -socket /run/prizewheel.sock state
`, defaultSocketPath)
}
