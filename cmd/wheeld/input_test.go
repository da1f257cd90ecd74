package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"os"
	"testing"
	"time"
)

func TestTranslateInput(t *testing.T) {
	keys := []uint16{KEY_ENTER, KEY_SPACE}

	cases := []struct {
		name string
		ev   inputEvent
		want bool
	}{
		{"enter press", inputEvent{Type: EV_KEY, Code: KEY_ENTER, Value: evValuePress}, true},
		{"space press", inputEvent{Type: EV_KEY, Code: KEY_SPACE, Value: evValuePress}, true},
		{"enter release", inputEvent{Type: EV_KEY, Code: KEY_ENTER, Value: evValueRelease}, false},
		{"enter repeat", inputEvent{Type: EV_KEY, Code: KEY_ENTER, Value: evValueRepeat}, false},
		{"other key", inputEvent{Type: EV_KEY, Code: KEY_SELECT, Value: evValuePress}, false},
		{"non-key event", inputEvent{Type: 0x00, Code: KEY_ENTER, Value: evValuePress}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req, ok := translateInput(tc.ev, keys)
			if ok != tc.want {
				t.Fatalf("translateInput ok = %v, want %v", ok, tc.want)
			}
			if ok && (req.Origin != "input" || req.Winner != "") {
				t.Fatalf("unexpected request %+v", req)
			}
		})
	}
}

func TestDecodeInputEvent(t *testing.T) {
	want := inputEvent{Sec: 1700000000, Usec: 250, Type: EV_KEY, Code: KEY_OK, Value: evValuePress}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, want); err != nil {
		t.Fatalf("binary.Write: %v", err)
	}
	if buf.Len() != inputEventSize {
		t.Fatalf("encoded size = %d, want %d", buf.Len(), inputEventSize)
	}

	got, err := decodeInputEvent(buf.Bytes())
	if err != nil {
		t.Fatalf("decodeInputEvent: %v", err)
	}
	if got != want {
		t.Fatalf("decodeInputEvent = %+v, want %+v", got, want)
	}

	if _, err := decodeInputEvent(buf.Bytes()[:8]); err == nil {
		t.Fatalf("expected error for short record")
	}
}

func newInputPipe(t *testing.T) (*os.File, *os.File) {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	t.Cleanup(func() {
		_ = r.Close()
		_ = w.Close()
	})
	return r, w
}

func TestForwardInput_TranslatesPresses(t *testing.T) {
	r, _ := newInputPipe(t)
	reader := func(ctx context.Context, _ []*os.File, raw chan<- inputEvent, _ chan<- error) {
		raw <- inputEvent{Type: EV_KEY, Code: KEY_SPACE, Value: evValueRelease}
		raw <- inputEvent{Type: EV_KEY, Code: KEY_SPACE, Value: evValuePress}
		<-ctx.Done()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := make(chan Event, 4)
	done := make(chan error, 1)
	go func() {
		done <- forwardInput(ctx, []*os.File{r}, reader, []uint16{KEY_SPACE}, events, quietLogger())
	}()

	select {
	case ev := <-events:
		req, ok := ev.(SpinRequested)
		if !ok || req.Origin != "input" {
			t.Fatalf("unexpected event %#v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("no spin request forwarded")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("forwardInput: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("forwardInput did not return after cancel")
	}
	if len(events) != 0 {
		t.Fatalf("release should not produce a spin request, got %d extra", len(events))
	}
}

func TestForwardInput_ClosesFilesAfterReaderReturns(t *testing.T) {
	r, _ := newInputPipe(t)

	statErr := make(chan error, 1)
	reader := func(ctx context.Context, files []*os.File, _ chan<- inputEvent, _ chan<- error) {
		<-ctx.Done()
		// Still using the device after cancellation.
		time.Sleep(30 * time.Millisecond)
		_, err := files[0].Stat()
		statErr <- err
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- forwardInput(ctx, []*os.File{r}, reader, []uint16{KEY_SPACE}, make(chan Event, 1), quietLogger())
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("forwardInput did not return after cancel")
	}

	select {
	case err := <-statErr:
		if err != nil {
			t.Fatalf("device closed while the reader was still running: %v", err)
		}
	default:
		t.Fatalf("forwardInput returned before the reader finished")
	}

	if _, err := r.Stat(); err == nil {
		t.Fatalf("expected device file to be closed after forwardInput returned")
	}
}

func TestForwardInput_ReaderErrorStops(t *testing.T) {
	r, _ := newInputPipe(t)
	reader := func(_ context.Context, _ []*os.File, _ chan<- inputEvent, readErr chan<- error) {
		readErr <- os.ErrClosed
	}

	err := forwardInput(context.Background(), []*os.File{r}, reader, []uint16{KEY_SPACE}, make(chan Event, 1), quietLogger())
	if err == nil {
		t.Fatalf("expected reader error to stop input")
	}
}
