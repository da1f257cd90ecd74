package prizewheel

import (
	"sync"
	"time"
)

// DefaultBlinkInterval is the border-light toggle period.
const DefaultBlinkInterval = 500 * time.Millisecond

// Blinker alternates the wheel's border lights on a fixed period.
type Blinker struct {
	sched    Scheduler
	interval time.Duration
	onToggle func(on bool)

	mu   sync.Mutex
	task Task
	gen  uint64
	on   bool
}

// NewBlinker returns a stopped blinker. onToggle may be nil.
func NewBlinker(sched Scheduler, interval time.Duration, onToggle func(on bool)) *Blinker {
	if sched == nil {
		sched = NewScheduler()
	}
	if interval <= 0 {
		interval = DefaultBlinkInterval
	}
	return &Blinker{
		sched:    sched,
		interval: interval,
		onToggle: onToggle,
		on:       true,
	}
}

// Start lights the border and begins toggling. Calling Start on a running
// blinker does nothing.
func (b *Blinker) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.task != nil {
		return
	}
	b.gen++
	gen := b.gen
	b.on = true
	b.task = b.sched.Every(b.interval, func(time.Time) { b.toggle(gen) })
}

// Stop halts toggling and leaves the lights in their current phase.
func (b *Blinker) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.gen++
	if b.task != nil {
		b.task.Stop()
		b.task = nil
	}
}

// On reports the current light phase.
func (b *Blinker) On() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.on
}

func (b *Blinker) toggle(gen uint64) {
	b.mu.Lock()
	if gen != b.gen {
		b.mu.Unlock()
		return
	}
	b.on = !b.on
	on := b.on
	b.mu.Unlock()

	if b.onToggle != nil {
		b.onToggle(on)
	}
}
