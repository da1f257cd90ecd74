package prizewheel

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Item is one labeled wheel segment. Color is passed through to renderers untouched.
type Item struct {
	Label string `json:"label" yaml:"label"`
	Color string `json:"color" yaml:"color"`
}

// State is a snapshot of the wheel.
//
// Result is empty until a spin completes. Once set, Result equals
// Items[Index].Label and Index equals the geometry's ResolveIndex(Rotation).
type State struct {
	Rotation float64 `json:"rotation"`
	Spinning bool    `json:"spinning"`
	Result   string  `json:"result,omitempty"`
	Index    int     `json:"index"`
	SpinID   string  `json:"spin_id,omitempty"`
	Target   float64 `json:"target"`
}

// Outcome describes a completed spin.
type Outcome struct {
	SpinID   string  `json:"spin_id"`
	Label    string  `json:"label"`
	Index    int     `json:"index"`
	Rotation float64 `json:"rotation"`
}

const (
	DefaultSpinDuration  = 4000 * time.Millisecond
	DefaultSpinDelay     = 200 * time.Millisecond
	DefaultFrameInterval = 16 * time.Millisecond
)

// Config configures an Engine.
//
// Zero values select defaults, except SpinDelay where zero means the animation
// starts on the next scheduler turn. Use DefaultConfig for the stock timings.
type Config struct {
	Items []Item

	SpinDuration  time.Duration
	SpinDelay     time.Duration
	FrameInterval time.Duration

	Indicator      IndicatorPosition
	Rotations      int
	JitterFraction float64

	// OnFinish is called once per completed spin, outside the engine lock.
	OnFinish func(Outcome)

	// OnChange is called after every published state, outside the engine lock.
	// It runs on the caller's goroutine for Spin and Deactivate and on a
	// scheduler goroutine for animation frames, so it must not block.
	OnChange func(State)
}

// DefaultConfig returns a config with the stock 4s spin, 200ms start delay,
// 12 o'clock indicator and five full turns.
func DefaultConfig(items []Item) Config {
	return Config{
		Items:          items,
		SpinDuration:   DefaultSpinDuration,
		SpinDelay:      DefaultSpinDelay,
		FrameInterval:  DefaultFrameInterval,
		Indicator:      Indicator12,
		Rotations:      defaultRotations,
		JitterFraction: defaultJitterFraction,
	}
}

// Option customizes an Engine.
type Option func(*Engine)

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) {
		if s != nil {
			e.sched = s
		}
	}
}

// WithRandom replaces the time-seeded random source.
func WithRandom(r Random) Option {
	return func(e *Engine) {
		if r != nil {
			e.rand = r
		}
	}
}

// WithLogger sets the logger used for spin lifecycle messages.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// Engine owns the rotation state of one wheel and drives its spins.
//
// All mutations are serialized by mu. Every accepted spin bumps gen, and
// scheduled callbacks carry the generation they were created for, so a
// callback that fires after Deactivate, Close or completion does nothing.
// Readers get lock-free snapshots through State.
type Engine struct {
	items []Item
	geo   Geometry

	duration time.Duration
	delay    time.Duration
	interval time.Duration

	onFinish func(Outcome)
	onChange func(State)

	sched  Scheduler
	rand   Random
	logger *slog.Logger

	state   atomic.Pointer[State]
	visible atomic.Bool

	mu        sync.Mutex
	gen       uint64
	startTask Task
	frameTask Task
	startedAt time.Time
	closed    bool
}

// New validates cfg and returns an idle engine in the zero state.
func New(cfg Config, opts ...Option) (*Engine, error) {
	if len(cfg.Items) == 0 {
		return nil, ErrNoItems
	}
	for i, it := range cfg.Items {
		if it.Label == "" {
			return nil, fmt.Errorf("%w: item %d has an empty label", ErrConfig, i)
		}
	}

	duration := cfg.SpinDuration
	switch {
	case duration == 0:
		duration = DefaultSpinDuration
	case duration < 0:
		return nil, fmt.Errorf("%w: spin duration must be > 0", ErrConfig)
	}
	if cfg.SpinDelay < 0 {
		return nil, fmt.Errorf("%w: spin delay must be >= 0", ErrConfig)
	}
	interval := cfg.FrameInterval
	switch {
	case interval == 0:
		interval = DefaultFrameInterval
	case interval < 0:
		return nil, fmt.Errorf("%w: frame interval must be > 0", ErrConfig)
	}

	geo := NewGeometry(len(cfg.Items), cfg.Indicator)
	switch {
	case cfg.Rotations > 0:
		geo.Rotations = cfg.Rotations
	case cfg.Rotations < 0:
		return nil, fmt.Errorf("%w: rotations must be >= 0", ErrConfig)
	}
	switch {
	case cfg.JitterFraction == 0:
	case cfg.JitterFraction < 0 || cfg.JitterFraction >= 1:
		return nil, fmt.Errorf("%w: jitter fraction must be in [0, 1)", ErrConfig)
	default:
		geo.JitterFraction = cfg.JitterFraction
	}

	e := &Engine{
		items:    append([]Item(nil), cfg.Items...),
		geo:      geo,
		duration: duration,
		delay:    cfg.SpinDelay,
		interval: interval,
		onFinish: cfg.OnFinish,
		onChange: cfg.OnChange,
		sched:    NewScheduler(),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.rand == nil {
		e.rand = newTimeSeededRandom()
	}
	e.state.Store(&State{})

	return e, nil
}

// Items returns a copy of the wheel's segments in order.
func (e *Engine) Items() []Item {
	return append([]Item(nil), e.items...)
}

// Geometry returns the angle mapping used by the engine.
func (e *Engine) Geometry() Geometry { return e.geo }

// State returns the latest published snapshot.
func (e *Engine) State() State { return *e.state.Load() }

// Visible reports whether the host has the wheel on screen.
func (e *Engine) Visible() bool { return e.visible.Load() }

// Activate marks the wheel visible. It does not touch the rotation state.
func (e *Engine) Activate() {
	e.visible.Store(true)
}

// Spin starts a spin. With an empty winner the target segment is chosen
// uniformly at random; otherwise the first item with that label is forced.
//
// Spin returns (false, nil) without changing anything when a spin is already
// in flight, and a configuration error when winner matches no label.
func (e *Engine) Spin(winner string) (bool, error) {
	e.mu.Lock()

	if e.closed {
		e.mu.Unlock()
		return false, ErrClosed
	}
	if e.state.Load().Spinning {
		e.mu.Unlock()
		e.logger.Debug("spin ignored, already spinning")
		return false, nil
	}

	idx := -1
	if winner != "" {
		idx = e.indexOf(winner)
		if idx < 0 {
			e.mu.Unlock()
			return false, fmt.Errorf("%w: %q", ErrUnknownWinner, winner)
		}
	} else {
		idx = e.rand.IntN(len(e.items))
	}

	target := e.geo.StoppingRotation(idx, e.rand.Float64())

	e.gen++
	gen := e.gen
	next := State{
		Spinning: true,
		SpinID:   uuid.NewString(),
		Target:   target,
	}
	e.state.Store(&next)
	e.startTask = e.sched.AfterFunc(e.delay, func() { e.begin(gen) })

	e.mu.Unlock()

	e.logger.Info("spin started", "spin_id", next.SpinID, "forced", winner != "", "target_index", idx, "target", target)
	e.publish(next)
	return true, nil
}

// Deactivate cancels any in-flight spin, resets the state to zero and marks
// the wheel hidden. A cancelled spin never reports an outcome.
func (e *Engine) Deactivate() {
	e.visible.Store(false)
	if changed := e.reset(); changed {
		e.publish(State{})
	}
}

// Close cancels every pending callback and resets the state. Spin returns
// ErrClosed afterwards. Close is idempotent.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.visible.Store(false)
	e.reset()
}

func (e *Engine) reset() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancelLocked()
	prev := e.state.Load()
	if *prev == (State{}) {
		return false
	}
	if prev.Spinning {
		e.logger.Info("spin cancelled", "spin_id", prev.SpinID)
	}
	e.state.Store(&State{})
	return true
}

func (e *Engine) cancelLocked() {
	e.gen++
	if e.startTask != nil {
		e.startTask.Stop()
		e.startTask = nil
	}
	if e.frameTask != nil {
		e.frameTask.Stop()
		e.frameTask = nil
	}
}

// begin runs once the start delay has elapsed and starts sampling frames.
func (e *Engine) begin(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if gen != e.gen || e.closed {
		return
	}
	e.startTask = nil
	e.startedAt = e.sched.Now()
	e.frameTask = e.sched.Every(e.interval, func(now time.Time) { e.frame(gen, now) })
}

// frame samples the ease-out curve. The first sample at or past the spin
// duration snaps to the target and resolves the winner.
func (e *Engine) frame(gen uint64, now time.Time) {
	e.mu.Lock()

	cur := e.state.Load()
	if gen != e.gen || !cur.Spinning {
		e.mu.Unlock()
		return
	}

	next := *cur
	elapsed := now.Sub(e.startedAt)
	finished := elapsed >= e.duration

	if finished {
		next.Rotation = cur.Target
		next.Index = e.geo.ResolveIndex(cur.Target)
		next.Result = e.items[next.Index].Label
		next.Spinning = false

		e.gen++
		if e.frameTask != nil {
			e.frameTask.Stop()
			e.frameTask = nil
		}
	} else {
		r := cur.Target * Ease(elapsed, e.duration)
		if r <= cur.Rotation {
			e.mu.Unlock()
			return
		}
		next.Rotation = r
	}

	e.state.Store(&next)
	e.mu.Unlock()

	e.publish(next)

	if finished {
		e.logger.Info("spin finished", "spin_id", next.SpinID, "result", next.Result, "index", next.Index)
		if e.onFinish != nil {
			e.onFinish(Outcome{
				SpinID:   next.SpinID,
				Label:    next.Result,
				Index:    next.Index,
				Rotation: next.Rotation,
			})
		}
	}
}

func (e *Engine) publish(s State) {
	if e.onChange != nil {
		e.onChange(s)
	}
}

func (e *Engine) indexOf(label string) int {
	for i, it := range e.items {
		if it.Label == label {
			return i
		}
	}
	return -1
}
