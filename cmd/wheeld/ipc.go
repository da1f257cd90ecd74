package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"prizewheel"
)

// ============================================================================
// IPC Server - Unix Domain Socket Interface
// ============================================================================
// The IPC server allows external clients (wheelctl, scripts, kiosk glue) to
// drive the wheel via a Unix domain socket.
//
// Protocol: Line-delimited JSON
//   - Client sends: {"type": "spin", "data": {"winner": "Free Shipping"}}
//   - Server responds: {"status": "ok", ...} or {"status": "error", "error": "msg"}
//
// Spin and get_state requests wait for the daemon loop to answer, so the
// response tells the client whether the spin started and what state it saw.
// ============================================================================

// IPCResponse represents the response sent back to IPC clients
type IPCResponse struct {
	Status  string         `json:"status"`            // "ok" or "error"
	Error   string         `json:"error,omitempty"`   // error message if status == "error"
	Started *bool          `json:"started,omitempty"` // spin requests only
	State   *StateSnapshot `json:"state,omitempty"`   // spin and get_state requests
}

// runIPCServer starts the Unix domain socket server.
// It runs until ctx is canceled, at which point it closes the listener and exits.
func runIPCServer(ctx context.Context, socketPath string, events chan<- Event, logger *slog.Logger) error {
	// Remove existing socket file if it exists
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer listener.Close()
	defer os.Remove(socketPath)

	if err := os.Chmod(socketPath, 0666); err != nil {
		return fmt.Errorf("chmod socket: %w", err)
	}

	logger.Info("IPC listening", "socket", socketPath)

	// Close the listener on shutdown. This unblocks Accept().
	go func() {
		<-ctx.Done()
		_ = listener.Close()
	}()

	for {
		conn, err := listener.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Debug("IPC listener closed (shutdown)")
				return nil
			}
			if errors.Is(err, net.ErrClosed) || strings.Contains(err.Error(), "use of closed network connection") {
				logger.Debug("IPC listener closed")
				return nil
			}

			logger.Error("IPC accept error", "error", err)
			continue
		}

		go handleIPCConnection(ctx, conn, events, logger)
	}
}

// handleIPCConnection handles a single IPC connection
func handleIPCConnection(ctx context.Context, conn net.Conn, events chan<- Event, logger *slog.Logger) {
	defer conn.Close()

	logger.Debug("IPC connection", "remote_addr", conn.RemoteAddr())

	scanner := bufio.NewScanner(conn)
	encoder := json.NewEncoder(conn)

	respond := func(resp IPCResponse) {
		if err := encoder.Encode(resp); err != nil {
			logger.Error("IPC failed to send response", "error", err)
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		logger.Debug("IPC received", "line", line)

		// Payload events only; the daemon assigns timestamps via TimedEvent.
		ev, err := UnmarshalEvent([]byte(line))
		if err != nil {
			respond(IPCResponse{Status: "error", Error: fmt.Sprintf("parse event: %v", err)})
			continue
		}

		respond(dispatchIPCEvent(ctx, ev, events))
	}

	logger.Debug("IPC connection closed")
}

// dispatchIPCEvent hands ev to the daemon loop and builds the response.
func dispatchIPCEvent(ctx context.Context, ev Event, events chan<- Event) IPCResponse {
	switch e := ev.(type) {
	case SpinRequested:
		if e.Origin == "" {
			e.Origin = "ipc"
		}
		reply, err := requestSpin(ctx, events, e)
		if err != nil {
			return IPCResponse{Status: "error", Error: err.Error()}
		}
		return spinResponse(reply)

	case RequestStateSnapshot:
		snap, err := requestSnapshot(ctx, events)
		if err != nil {
			return IPCResponse{Status: "error", Error: err.Error()}
		}
		return IPCResponse{Status: "ok", State: &snap}

	default:
		select {
		case events <- ev:
			return IPCResponse{Status: "ok"}
		default:
			// Event channel is full (should rarely happen with buffer)
			return IPCResponse{Status: "error", Error: "event queue full"}
		}
	}
}

func spinResponse(reply SpinReply) IPCResponse {
	snap := StateSnapshot{Wheel: reply.State}
	if reply.Err != nil {
		return IPCResponse{Status: "error", Error: reply.Err.Error(), State: &snap}
	}
	started := reply.Started
	return IPCResponse{Status: "ok", Started: &started, State: &snap}
}

// requestSpin sends a spin request to the daemon loop and waits for its answer.
func requestSpin(ctx context.Context, events chan<- Event, req SpinRequested) (SpinReply, error) {
	reply := make(chan SpinReply, 1)
	req.Reply = reply

	waitCtx, cancel := context.WithTimeout(ctx, replyTimeout)
	defer cancel()

	select {
	case <-waitCtx.Done():
		return SpinReply{}, fmt.Errorf("queue spin: %w", waitCtx.Err())
	case events <- req:
	}

	select {
	case <-waitCtx.Done():
		return SpinReply{}, fmt.Errorf("await spin reply: %w", waitCtx.Err())
	case r := <-reply:
		return r, nil
	}
}

// ============================================================================
// IPC Client Utility Functions
// ============================================================================

// SendIPCEvent sends an event to the daemon via IPC and returns the response.
// A response with status "error" is returned as an error.
func SendIPCEvent(socketPath string, ev Event) (IPCResponse, error) {
	conn, err := net.DialTimeout("unix", socketPath, 2*time.Second)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("connect to %s: %w", socketPath, err)
	}
	defer conn.Close()

	data, err := MarshalEvent(ev)
	if err != nil {
		return IPCResponse{}, fmt.Errorf("marshal event: %w", err)
	}

	if _, err := fmt.Fprintf(conn, "%s\n", strings.TrimSpace(string(data))); err != nil {
		return IPCResponse{}, fmt.Errorf("send event: %w", err)
	}

	var resp IPCResponse
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		return IPCResponse{}, fmt.Errorf("decode response: %w", err)
	}

	if resp.Status != "ok" {
		return resp, fmt.Errorf("ipc error: %s", resp.Error)
	}

	return resp, nil
}

// isConfigError reports whether a spin was refused for a configuration reason.
func isConfigError(err error) bool {
	return errors.Is(err, prizewheel.ErrConfig)
}
