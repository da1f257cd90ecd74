package main

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startTestIPC(t *testing.T, d *testDaemon) string {
	t.Helper()
	socketPath := filepath.Join(t.TempDir(), "wheel.sock")

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- runIPCServer(ctx, socketPath, d.events, quietLogger())
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("runIPCServer: %v", err)
			}
		case <-time.After(time.Second):
			t.Errorf("IPC server did not stop")
		}
	})

	waitUntil(t, time.Second, func() bool {
		_, err := os.Stat(socketPath)
		return err == nil
	}, "IPC socket not created")
	return socketPath
}

func TestIPC_SpinAndState(t *testing.T) {
	d := startTestDaemon(t, nil)
	socketPath := startTestIPC(t, d)

	resp, err := SendIPCEvent(socketPath, SpinRequested{Winner: "Free Shipping"})
	if err != nil {
		t.Fatalf("SendIPCEvent(spin): %v", err)
	}
	if resp.Started == nil || !*resp.Started {
		t.Fatalf("expected started=true, got %+v", resp)
	}
	if resp.State == nil || !resp.State.Wheel.Spinning {
		t.Fatalf("expected spinning state in response, got %+v", resp.State)
	}

	started := d.waitForBroadcast(t, time.Second, func(b StateBroadcast) bool {
		_, ok := b.(BroadcastSpinStarted)
		return ok
	}).(BroadcastSpinStarted)
	if started.Origin != "ipc" {
		t.Fatalf("origin = %q, want ipc", started.Origin)
	}

	resp, err = SendIPCEvent(socketPath, RequestStateSnapshot{})
	if err != nil {
		t.Fatalf("SendIPCEvent(get_state): %v", err)
	}
	if resp.State == nil || len(resp.State.Items) != 8 {
		t.Fatalf("unexpected get_state response %+v", resp)
	}

	if _, err := SendIPCEvent(socketPath, ActivateWheel{}); err != nil {
		t.Fatalf("SendIPCEvent(activate): %v", err)
	}
}

func TestIPC_UnknownWinnerIsError(t *testing.T) {
	d := startTestDaemon(t, nil)
	socketPath := startTestIPC(t, d)

	resp, err := SendIPCEvent(socketPath, SpinRequested{Winner: "Grand Prize"})
	if err == nil {
		t.Fatalf("expected error, got %+v", resp)
	}
	if resp.Status != "error" || resp.Error == "" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestIPC_MalformedLine(t *testing.T) {
	d := startTestDaemon(t, nil)
	socketPath := startTestIPC(t, d)

	conn, err := net.Dial("unix", socketPath)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(2 * time.Second))

	if _, err := conn.Write([]byte("this is not json\n{\"type\":\"deactivate\"}\n")); err != nil {
		t.Fatalf("write: %v", err)
	}

	dec := json.NewDecoder(conn)
	var first, second IPCResponse
	if err := dec.Decode(&first); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if first.Status != "error" {
		t.Fatalf("first status = %q, want error", first.Status)
	}

	// The connection stays usable after a bad line.
	if err := dec.Decode(&second); err != nil {
		t.Fatalf("decode second: %v", err)
	}
	if second.Status != "ok" {
		t.Fatalf("second status = %q (%s), want ok", second.Status, second.Error)
	}
}
