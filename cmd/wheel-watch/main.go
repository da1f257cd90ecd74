package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

// frame is the wheeld websocket envelope.
type frame struct {
	Type string          `json:"type"`
	Ts   *time.Time      `json:"ts"`
	Data json.RawMessage `json:"data"`
}

type spinStarted struct {
	SpinID string  `json:"spin_id"`
	Target float64 `json:"target"`
	Origin string  `json:"origin"`
}

type rotation struct {
	SpinID   string  `json:"spin_id"`
	Rotation float64 `json:"rotation"`
}

type spinFinished struct {
	SpinID   string  `json:"spin_id"`
	Result   string  `json:"result"`
	Index    int     `json:"index"`
	Rotation float64 `json:"rotation"`
}

func main() {
	var (
		wsURL        = flag.String("url", "ws://127.0.0.1:3080/ws", "wheeld websocket state stream URL")
		showRotation = flag.Bool("rotation", true, "Print rotation frames")
		raw          = flag.Bool("raw", false, "Print frames as received")
	)
	flag.Parse()

	u, err := url.Parse(*wsURL)
	if err != nil {
		log.Fatalf("invalid websocket URL: %v", err)
	}

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	d := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	log.Printf("connecting to %s...", u.String())
	conn, _, err := d.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close()

	log.Printf("connected! (press Ctrl+C to exit)")

	// Mutex to protect concurrent writes to websocket
	var writeMu sync.Mutex

	// The daemon pings every 20s; answer with pong and extend the deadline.
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPingHandler(func(appData string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		writeMu.Lock()
		defer writeMu.Unlock()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(5*time.Second))
	})

	p := &printer{out: os.Stdout, rotation: *showRotation, raw: *raw}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			messageType, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("websocket error: %v", err)
				}
				return
			}
			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			switch messageType {
			case websocket.TextMessage:
				p.handle(message)
			case websocket.BinaryMessage:
				fmt.Printf("[BINARY] %d bytes\n", len(message))
			}
		}
	}()

	select {
	case <-sigc:
		log.Printf("shutting down...")
		writeMu.Lock()
		err := conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		writeMu.Unlock()
		if err != nil {
			log.Printf("error closing connection: %v", err)
		}
	case <-done:
		log.Printf("connection closed")
	}
}

// printer renders state frames as one line each.
type printer struct {
	out      io.Writer
	rotation bool
	raw      bool
}

func (p *printer) handle(message []byte) {
	if p.raw {
		fmt.Fprintf(p.out, "%s\n", message)
		return
	}

	var f frame
	if err := json.Unmarshal(message, &f); err != nil {
		fmt.Fprintf(p.out, "[TEXT] %s\n", string(message))
		return
	}

	switch f.Type {
	case "state_init":
		var pretty any
		if err := json.Unmarshal(f.Data, &pretty); err != nil {
			fmt.Fprintf(p.out, "[STATE] %s\n", f.Data)
			return
		}
		b, _ := json.MarshalIndent(pretty, "", "  ")
		fmt.Fprintf(p.out, "[STATE]\n%s\n", b)

	case "spin_started":
		var d spinStarted
		if json.Unmarshal(f.Data, &d) == nil {
			fmt.Fprintf(p.out, "[SPIN] %s target=%.2f origin=%s\n", d.SpinID, d.Target, d.Origin)
		}

	case "rotation":
		if !p.rotation {
			return
		}
		var d rotation
		if json.Unmarshal(f.Data, &d) == nil {
			fmt.Fprintf(p.out, "[ROTATION] %.2f\n", d.Rotation)
		}

	case "spin_finished":
		var d spinFinished
		if json.Unmarshal(f.Data, &d) == nil {
			fmt.Fprintf(p.out, "[RESULT] %s (segment %d, rotation %.2f)\n", d.Result, d.Index, d.Rotation)
		}

	case "reset":
		fmt.Fprintln(p.out, "[RESET]")

	case "visibility":
		var d struct {
			Visible bool `json:"visible"`
		}
		if json.Unmarshal(f.Data, &d) == nil {
			status := "HIDDEN"
			if d.Visible {
				status = "VISIBLE"
			}
			fmt.Fprintf(p.out, "[WHEEL] %s\n", status)
		}

	case "lights":
		var d struct {
			On bool `json:"on"`
		}
		if json.Unmarshal(f.Data, &d) == nil {
			status := "OFF"
			if d.On {
				status = "ON"
			}
			fmt.Fprintf(p.out, "[LIGHTS] %s\n", status)
		}

	default:
		fmt.Fprintf(p.out, "[%s] %s\n", f.Type, f.Data)
	}
}
