package main

import (
	"context"
	"log/slog"
	"time"

	"prizewheel"
)

// ============================================================================
// Central Daemon Loop - Reducer-driven "Daemon Brain"
// ============================================================================
//
// Design rules enforced here:
//   - The reducer performs no I/O and computes: next state + commands + broadcasts.
//   - The daemon loop is the only place that executes side effects (engine calls).
//   - Engine callbacks never touch daemon state; they only signal the loop
//     through wheelHooks, and the loop turns those signals into Events.
//
// ============================================================================

// wheelHooks adapts engine and blinker callbacks into daemon loop inputs.
//
// Callbacks run on scheduler goroutines (and, for spin start and reset, on
// the daemon loop itself), so they must never block on the loop:
//   - changed is a latest-wins wakeup; the loop reads engine.State() itself
//   - finished carries every outcome so no completion is lost
//   - lights carries blinker phases, dropped when the loop is busy
type wheelHooks struct {
	changed  chan struct{}
	finished chan prizewheel.Outcome
	lights   chan bool

	done    <-chan struct{}
	metrics *metrics
}

func newWheelHooks(done <-chan struct{}, m *metrics) *wheelHooks {
	return &wheelHooks{
		changed:  make(chan struct{}, 1),
		finished: make(chan prizewheel.Outcome, 16),
		lights:   make(chan bool, 4),
		done:     done,
		metrics:  m,
	}
}

// OnChange is wired to prizewheel.Config.OnChange.
func (h *wheelHooks) OnChange(s prizewheel.State) {
	h.metrics.setSpinning(s.Spinning)
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

// OnFinish is wired to prizewheel.Config.OnFinish. It runs on the frame
// goroutine, never on the daemon loop, so it may wait for the loop.
func (h *wheelHooks) OnFinish(o prizewheel.Outcome) {
	h.metrics.spinFinished(o.Label)
	select {
	case h.finished <- o:
	case <-h.done:
	}
}

// OnLights is wired to the border light blinker.
func (h *wheelHooks) OnLights(on bool) {
	select {
	case h.lights <- on:
	default:
	}
}

// runDaemon is the main daemon loop that:
//   - Receives Events from IPC, HTTP and input devices
//   - Receives engine change/finish signals and light toggles
//   - Reduces events into (state, commands, broadcasts)
//   - Executes commands against the engine and feeds observations back into the reducer
//   - Publishes broadcasts to the websocket broadcaster (non-blocking)
//
// Shutdown semantics:
//   - Exits when ctx is canceled
//   - Exits cleanly when the events channel is closed
func runDaemon(
	ctx context.Context,
	events <-chan Event,
	wheel Wheel,
	hooks *wheelHooks,
	state *DaemonState,
	broadcasts chan<- StateBroadcast,
	m *metrics,
	logger *slog.Logger,
) {
	if state == nil {
		logger.Error("daemon state is nil")
		return
	}
	if hooks == nil {
		hooks = newWheelHooks(ctx.Done(), m)
	}

	// Seed the cache so the first snapshot reflects the engine.
	if wheel != nil {
		state.SetObservedWheel(wheel.State(), time.Now())
	}

	// Explicit queues:
	// - eventQueue holds events awaiting reduction
	// - cmdQueue holds commands awaiting execution
	var eventQueue []Event
	var cmdQueue []Command

	enqueueEvent := func(ev Event) {
		eventQueue = append(eventQueue, ev)
	}

	publish := func(bcasts []StateBroadcast) {
		if broadcasts == nil {
			return
		}
		for _, b := range bcasts {
			select {
			case broadcasts <- b:
			default:
				logger.Warn("broadcast queue full, dropping state broadcast", "type", broadcastName(b))
			}
		}
	}

	// Reduce all queued events, enqueuing any resulting commands.
	flushEvents := func() {
		for len(eventQueue) > 0 {
			ev := eventQueue[0]
			eventQueue = eventQueue[1:]

			rr := Reduce(state, ev)
			if rr.State != nil {
				state = rr.State
			}
			cmdQueue = append(cmdQueue, rr.Commands...)
			publish(rr.Broadcasts)
		}
	}

	// Execute all queued commands, enqueuing observation events.
	flushCommands := func() {
		for len(cmdQueue) > 0 {
			cmd := cmdQueue[0]
			cmdQueue = cmdQueue[1:]

			logger.Debug("executing command", "command", cmd.String())
			runEffect(wheel, cmd, m, logger, enqueueEvent)

			// Observations should be reduced promptly to keep state coherent and
			// allow the reducer to emit follow-up commands (replies).
			flushEvents()
		}
	}

	step := func(ev Event) {
		enqueueEvent(ev)
		flushEvents()
		flushCommands()
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("daemon stopping (context canceled)")
			return

		case ev, ok := <-events:
			if !ok {
				logger.Info("daemon stopping (events channel closed)")
				return
			}
			step(TimedEvent{Event: ev, At: time.Now()})

		case <-hooks.changed:
			if wheel != nil {
				step(WheelObserved{State: wheel.State(), At: time.Now()})
			}

		case o := <-hooks.finished:
			step(SpinCompleted{Outcome: o, At: time.Now()})

		case on := <-hooks.lights:
			step(LightsObserved{On: on, At: time.Now()})
		}
	}
}

func broadcastName(b StateBroadcast) string {
	if ev, ok := convertBroadcast(b); ok {
		return ev.Type
	}
	return "unknown"
}
