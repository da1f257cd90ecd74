package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"prizewheel"
)

// ============================================================================
// State WebSocket: hub + per-client pumps + broadcaster
// ============================================================================
//
// This file implements:
//   - A Hub that tracks connected WebSocket clients
//   - Per-client write pumps so one slow client doesn't block others
//   - A broadcaster loop that reads reducer-emitted state broadcasts and fans out
//
// Design constraints:
//   - DaemonState remains daemon-owned; never expose *DaemonState to other goroutines.
//   - Initial state snapshot on connect must go through the reducer/event loop.
//   - Slow clients are disconnected when their send buffer fills.
//   - Messages are JSON text frames with an envelope: {type, ts, data}.
//   - The initial message on connect is "state_init" with a snapshot in data.
//
// ============================================================================

// wsMessageSnapshot is the JSON `data` payload for the WS "state_init" event.
type wsMessageSnapshot struct {
	Rotation float64 `json:"rotation"`
	Spinning bool    `json:"spinning"`
	Result   string  `json:"result,omitempty"`
	Index    int     `json:"index"`
	SpinID   string  `json:"spin_id,omitempty"`
	Target   float64 `json:"target"`

	Visible  bool `json:"visible"`
	LightsOn bool `json:"lights_on"`

	Items       []prizewheel.Item   `json:"items"`
	LastOutcome *prizewheel.Outcome `json:"last_outcome,omitempty"`
}

func newWSMessageSnapshot(snap StateSnapshot) wsMessageSnapshot {
	return wsMessageSnapshot{
		Rotation:    snap.Wheel.Rotation,
		Spinning:    snap.Wheel.Spinning,
		Result:      snap.Wheel.Result,
		Index:       snap.Wheel.Index,
		SpinID:      snap.Wheel.SpinID,
		Target:      snap.Wheel.Target,
		Visible:     snap.Visible,
		LightsOn:    snap.LightsOn,
		Items:       snap.Items,
		LastOutcome: snap.LastOutcome,
	}
}

type wsSpinStartedData struct {
	SpinID string  `json:"spin_id"`
	Target float64 `json:"target"`
	Origin string  `json:"origin,omitempty"`
}

type wsRotationData struct {
	SpinID   string  `json:"spin_id"`
	Rotation float64 `json:"rotation"`
}

type wsSpinFinishedData struct {
	SpinID   string  `json:"spin_id"`
	Result   string  `json:"result"`
	Index    int     `json:"index"`
	Rotation float64 `json:"rotation"`
}

type wsVisibilityData struct {
	Visible bool `json:"visible"`
}

type wsLightsData struct {
	On bool `json:"on"`
}

// wsOutboundEvent is a pre-typed, externally-consumable state event.
type wsOutboundEvent struct {
	Type string
	Data any
	At   time.Time // optional timestamp; zero means "use now"
}

// envelope is the wire format envelope for WS messages.
type envelope struct {
	Type string     `json:"type"`
	Ts   *time.Time `json:"ts,omitempty"`
	Data any        `json:"data,omitempty"`
}

// ============================================================================
// Hub
// ============================================================================

type Hub struct {
	logger *slog.Logger

	// Buffered broadcast channel for already-serialized JSON frames.
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client

	mu      sync.Mutex
	clients map[*Client]struct{}

	sendBuf int
	metrics *metrics
}

type HubConfig struct {
	// SendBuf is the per-client outbound queue size.
	// If zero, a conservative default is used.
	SendBuf int

	// BroadcastBuf is the hub inbound broadcast queue size.
	// If zero, a conservative default is used.
	BroadcastBuf int

	// Metrics, when set, tracks the connected client count.
	Metrics *metrics
}

// NewHub constructs a hub. Call Run(ctx) to start it.
func NewHub(logger *slog.Logger, cfg HubConfig) *Hub {
	sendBuf := cfg.SendBuf
	if sendBuf <= 0 {
		sendBuf = 64
	}
	bcastBuf := cfg.BroadcastBuf
	if bcastBuf <= 0 {
		bcastBuf = 256
	}

	return &Hub{
		logger:     logger,
		broadcast:  make(chan []byte, bcastBuf),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		clients:    make(map[*Client]struct{}),
		sendBuf:    sendBuf,
		metrics:    cfg.Metrics,
	}
}

// Run processes hub events until ctx is canceled.
// It disconnects all clients on shutdown.
func (h *Hub) Run(ctx context.Context) {
	h.logger.Info("ws hub starting")

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("ws hub stopping (context canceled)")
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.metrics.setWSClients(n)
			h.logger.Info("ws client registered", "remote_addr", c.remoteAddr, "clients", n)

		case c := <-h.unregister:
			h.removeClient(c, "unregister")

		case msg := <-h.broadcast:
			// Collect slow clients first, then remove them after we unlock.
			var slow []*Client

			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					slow = append(slow, c)
				}
			}
			h.mu.Unlock()

			for _, c := range slow {
				h.removeClient(c, "slow_client")
			}
		}
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		safeCloseChan(c.send)
		delete(h.clients, c)
	}
	h.metrics.setWSClients(0)
}

func (h *Hub) removeClient(c *Client, reason string) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
	}
	n := len(h.clients)
	h.mu.Unlock()

	if ok {
		if c.conn != nil {
			_ = c.conn.Close()
		}
		// Closing send signals writePump to exit.
		safeCloseChan(c.send)

		h.metrics.setWSClients(n)
		h.logger.Info("ws client disconnected", "remote_addr", c.remoteAddr, "reason", reason, "clients", n)
	}
}

func safeCloseChan(ch chan []byte) {
	defer func() {
		_ = recover() // ignore "close of closed channel"
	}()
	close(ch)
}

// BroadcastBytes enqueues a pre-serialized JSON WS frame for broadcast.
// It never blocks; if the hub queue is full it drops the message.
func (h *Hub) BroadcastBytes(msg []byte) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws hub broadcast queue full, dropping message", "bytes", len(msg))
	}
}

// ============================================================================
// Client
// ============================================================================

type Client struct {
	hub *Hub

	conn *websocket.Conn
	send chan []byte

	remoteAddr string
	logger     *slog.Logger
}

// NewClient creates a client with a buffered send channel.
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string, logger *slog.Logger) *Client {
	sendBuf := 64
	if hub != nil && hub.sendBuf > 0 {
		sendBuf = hub.sendBuf
	}
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBuf),
		remoteAddr: remoteAddr,
		logger:     logger,
	}
}

const (
	writeWait = 5 * time.Second

	pongWait   = 30 * time.Second
	pingPeriod = 20 * time.Second
)

// wsRotationCoalesceWindow is the maximum time window during which rotation frames
// are coalesced (latest-wins) before broadcasting to clients.
const wsRotationCoalesceWindow = 33 * time.Millisecond

// closeStatus extracts a human-readable websocket close code / text when possible.
func closeStatus(err error) (code int, text string, ok bool) {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return ce.Code, ce.Text, true
	}
	return 0, "", false
}

// writePump writes messages from the send queue to the websocket.
// It exits on write error or when send is closed.
func (c *Client) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Channel closed: hub is disconnecting us.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					if code, text, ok := closeStatus(err); ok {
						c.logger.Info("ws writePump exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
					} else {
						c.logger.Info("ws writePump exiting (write error)", "remote_addr", c.remoteAddr, "error", err)
					}
				}
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					c.logger.Info("ws writePump exiting (ping error)", "remote_addr", c.remoteAddr, "error", err)
				}
				return
			}
		}
	}
}

// readPump reads and discards incoming messages to detect disconnects and handle control frames.
// It exits on read error, then unregisters the client.
func (c *Client) readPump(ctx context.Context) {
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if !errors.Is(err, websocket.ErrCloseSent) {
				if code, text, ok := closeStatus(err); ok {
					c.logger.Info("ws readPump exiting (close)", "remote_addr", c.remoteAddr, "code", code, "reason", text)
				} else {
					c.logger.Info("ws readPump exiting (read error)", "remote_addr", c.remoteAddr, "error", err)
				}
			}

			if c.hub != nil {
				c.hub.unregister <- c
			}
			return
		}
	}
}

// ============================================================================
// HTTP Handler + server wiring helpers
// ============================================================================

type Server struct {
	logger *slog.Logger

	hub *Hub

	// Required for initial snapshot request on connect (through reducer/event loop).
	events chan<- Event

	upgrader websocket.Upgrader
}

type ServerConfig struct {
	Hub HubConfig

	// AllowedOrigins restricts websocket upgrades by Origin header.
	// Empty or containing "*" allows any origin.
	AllowedOrigins []string
}

// NewServer constructs the WS state server components. Call Register on a router,
// start hub.Run(ctx), and start the broadcaster loop.
func NewServer(logger *slog.Logger, events chan<- Event, cfg ServerConfig) *Server {
	return &Server{
		logger: logger,
		hub:    NewHub(logger, cfg.Hub),
		events: events,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(cfg.AllowedOrigins),
		},
	}
}

func (s *Server) Hub() *Hub { return s.hub }

// Register registers the WS handler on the provided router.
func (s *Server) Register(r chi.Router, path string) {
	if r == nil {
		return
	}
	r.Get(path, s.handleStateWS)
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// handleStateWS upgrades and registers a client, then sends state_init.
func (s *Server) handleStateWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "error", err)
		return
	}

	client := NewClient(s.hub, conn, r.RemoteAddr, s.logger)

	// Register client first so broadcasts can reach it.
	s.hub.register <- client

	// Do not tie the pumps to the HTTP request context (r.Context()).
	// net/http cancels the request context when the handler returns.
	go client.writePump(context.Background())
	go client.readPump(context.Background())

	if s.events == nil {
		return
	}

	snap, err := requestSnapshot(r.Context(), s.events)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.logger.Warn("ws snapshot request failed", "error", err)
		}
		return
	}

	now := time.Now().UTC()
	initMsg, mErr := json.Marshal(envelope{
		Type: "state_init",
		Ts:   &now,
		Data: newWSMessageSnapshot(snap),
	})
	if mErr != nil {
		return
	}

	// Enqueue init message; if client is already slow, disconnect.
	select {
	case client.send <- initMsg:
	default:
		s.hub.unregister <- client
	}
}

// requestSnapshot asks the daemon loop for a snapshot and waits for the reply.
func requestSnapshot(ctx context.Context, events chan<- Event) (StateSnapshot, error) {
	reply := make(chan StateSnapshot, 1)

	waitCtx := ctx
	if _, has := ctx.Deadline(); !has {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, replyTimeout)
		defer cancel()
	}

	select {
	case <-waitCtx.Done():
		return StateSnapshot{}, waitCtx.Err()
	case events <- RequestStateSnapshot{Reply: reply}:
	}

	select {
	case <-waitCtx.Done():
		return StateSnapshot{}, waitCtx.Err()
	case snap := <-reply:
		return snap, nil
	}
}

// ============================================================================
// Broadcaster
// ============================================================================

// RunBroadcaster reads reducer-emitted StateBroadcast events, marshals them, and broadcasts
// them to all hub clients. Intended to run as a single goroutine.
func RunBroadcaster(ctx context.Context, hub *Hub, src <-chan StateBroadcast, logger *slog.Logger) {
	if hub == nil || src == nil {
		return
	}

	// Rate-limit rotation frames: flush latest pending rotation at most once every
	// wsRotationCoalesceWindow, even if frames keep arriving (no debounce-on-silence).
	var pendingRot *wsOutboundEvent
	var rotTimer *time.Timer
	var rotTimerCh <-chan time.Time

	send := func(ev wsOutboundEvent) {
		ts := ev.At
		if ts.IsZero() {
			ts = time.Now().UTC()
		}
		msg, err := json.Marshal(envelope{
			Type: ev.Type,
			Ts:   &ts,
			Data: ev.Data,
		})
		if err != nil {
			logger.Warn("ws broadcaster marshal failed", "error", err, "type", ev.Type)
			return
		}
		hub.BroadcastBytes(msg)
	}

	flushPendingRot := func() {
		if pendingRot == nil {
			return
		}
		send(*pendingRot)
		pendingRot = nil
	}

	stopRotTimer := func() {
		if rotTimer == nil {
			rotTimerCh = nil
			return
		}
		if !rotTimer.Stop() {
			select {
			case <-rotTimer.C:
			default:
			}
		}
		rotTimerCh = nil
		rotTimer = nil
	}

	startRotTimerIfNeeded := func() {
		if rotTimer != nil {
			return
		}
		rotTimer = time.NewTimer(wsRotationCoalesceWindow)
		rotTimerCh = rotTimer.C
	}

	for {
		select {
		case <-ctx.Done():
			flushPendingRot()
			stopRotTimer()
			return

		case <-rotTimerCh:
			flushPendingRot()
			// The timer has fired; a new one starts with the next rotation frame.
			rotTimer = nil
			rotTimerCh = nil

		case b, ok := <-src:
			if !ok {
				flushPendingRot()
				stopRotTimer()
				logger.Info("ws broadcaster stopping (source ended)")
				return
			}

			ev, ok := convertBroadcast(b)
			if !ok {
				continue
			}

			// Latest-wins: replace the pending frame and ensure the window timer is running.
			if ev.Type == "rotation" {
				copyEv := ev
				pendingRot = &copyEv
				startRotTimerIfNeeded()
				continue
			}

			// Any other event: flush the pending frame first so clients see
			// rotation, then the state change, in order.
			flushPendingRot()
			stopRotTimer()
			send(ev)
		}
	}
}

func convertBroadcast(b StateBroadcast) (wsOutboundEvent, bool) {
	switch ev := b.(type) {
	case BroadcastSpinStarted:
		return wsOutboundEvent{
			Type: "spin_started",
			Data: wsSpinStartedData{SpinID: ev.SpinID, Target: ev.Target, Origin: ev.Origin},
			At:   ev.At,
		}, true

	case BroadcastRotation:
		return wsOutboundEvent{
			Type: "rotation",
			Data: wsRotationData{SpinID: ev.SpinID, Rotation: ev.Rotation},
			At:   ev.At,
		}, true

	case BroadcastSpinFinished:
		return wsOutboundEvent{
			Type: "spin_finished",
			Data: wsSpinFinishedData{SpinID: ev.SpinID, Result: ev.Result, Index: ev.Index, Rotation: ev.Rotation},
			At:   ev.At,
		}, true

	case BroadcastReset:
		return wsOutboundEvent{Type: "reset", Data: struct{}{}, At: ev.At}, true

	case BroadcastVisibility:
		return wsOutboundEvent{
			Type: "visibility",
			Data: wsVisibilityData{Visible: ev.Visible},
			At:   ev.At,
		}, true

	case BroadcastLights:
		return wsOutboundEvent{
			Type: "lights",
			Data: wsLightsData{On: ev.On},
			At:   ev.At,
		}, true

	default:
		return wsOutboundEvent{}, false
	}
}
