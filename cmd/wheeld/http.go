package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ============================================================================
// HTTP API
// ============================================================================
// Routes:
//   GET  /healthz         liveness
//   GET  /metrics         Prometheus
//   GET  /ws              websocket state stream
//   GET  /api/state       daemon snapshot
//   GET  /api/items       configured wheel items
//   POST /api/spin        {"winner": "..."} optional
//   POST /api/activate
//   POST /api/deactivate
//
// Handlers never touch the engine; every request goes through the daemon loop.
// ============================================================================

type apiHandler struct {
	events chan<- Event
	logger *slog.Logger
}

type spinRequestBody struct {
	Winner string `json:"winner,omitempty"`
}

type spinResponseBody struct {
	Started bool          `json:"started"`
	State   StateSnapshot `json:"state"`
}

type errorBody struct {
	Error string `json:"error"`
}

// newRouter builds the daemon's HTTP handler.
func newRouter(events chan<- Event, ws *Server, metricsHandler http.Handler, allowedOrigins []string, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           60 * 15,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	if ws != nil {
		ws.Register(r, "/ws")
	}

	h := &apiHandler{events: events, logger: logger}
	r.Route("/api", func(rr chi.Router) {
		rr.Get("/state", h.State)
		rr.Get("/items", h.Items)
		rr.Post("/spin", h.Spin)
		rr.Post("/activate", h.Activate)
		rr.Post("/deactivate", h.Deactivate)
	})

	return r
}

func (h *apiHandler) State(w http.ResponseWriter, r *http.Request) {
	snap, err := requestSnapshot(r.Context(), h.events)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *apiHandler) Items(w http.ResponseWriter, r *http.Request) {
	snap, err := requestSnapshot(r.Context(), h.events)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, snap.Items)
}

func (h *apiHandler) Spin(w http.ResponseWriter, r *http.Request) {
	body, err := decodeOptional[spinRequestBody](r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reply, err := requestSpin(r.Context(), h.events, SpinRequested{Winner: body.Winner, Origin: "http"})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	switch {
	case reply.Err != nil && isConfigError(reply.Err):
		writeError(w, http.StatusBadRequest, reply.Err)
	case reply.Err != nil:
		writeError(w, http.StatusInternalServerError, reply.Err)
	case reply.Started:
		writeJSON(w, http.StatusAccepted, spinResponseBody{Started: true, State: StateSnapshot{Wheel: reply.State}})
	default:
		writeJSON(w, http.StatusOK, spinResponseBody{Started: false, State: StateSnapshot{Wheel: reply.State}})
	}
}

func (h *apiHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, ActivateWheel{})
}

func (h *apiHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.enqueue(w, r, DeactivateWheel{})
}

func (h *apiHandler) enqueue(w http.ResponseWriter, r *http.Request, ev Event) {
	ctx, cancel := context.WithTimeout(r.Context(), replyTimeout)
	defer cancel()

	select {
	case h.events <- ev:
		w.WriteHeader(http.StatusNoContent)
	case <-ctx.Done():
		writeError(w, http.StatusServiceUnavailable, fmt.Errorf("queue event: %w", ctx.Err()))
	}
}

// decodeOptional decodes a JSON body into T. An empty body yields the zero T.
func decodeOptional[T any](body io.Reader) (T, error) {
	var v T
	if body == nil {
		return v, nil
	}
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, nil
		}
		return v, fmt.Errorf("decode request body: %w", err)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// runHTTPServer serves handler on addr and shuts it down gracefully when ctx is canceled.
func runHTTPServer(ctx context.Context, addr string, handler http.Handler, logger *slog.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("HTTP server listening", "addr", addr)

	errCh := make(chan error, 1)

	go func() {
		// ListenAndServe returns http.ErrServerClosed on Shutdown; treat that as clean exit.
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTP server shutdown: %w", err)
		}
		<-errCh
		return nil

	case err := <-errCh:
		return err
	}
}

// defaultMetricsHandler exposes the default Prometheus registry.
func defaultMetricsHandler() http.Handler {
	return promhttp.Handler()
}
