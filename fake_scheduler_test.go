package prizewheel

import (
	"sync"
	"time"
)

// manualScheduler is a Scheduler driven by Advance. Callbacks run on the
// goroutine calling Advance, in due-time order.
type manualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	tasks []*manualTask
}

type manualTask struct {
	s       *manualScheduler
	at      time.Time
	every   time.Duration
	once    func()
	tick    func(time.Time)
	stopped bool
}

func newManualScheduler() *manualScheduler {
	return &manualScheduler{now: time.Unix(1700000000, 0)}
}

func (s *manualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, at: s.now.Add(d), once: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (s *manualScheduler) Every(d time.Duration, f func(time.Time)) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &manualTask{s: s, at: s.now.Add(d), every: d, tick: f}
	s.tasks = append(s.tasks, t)
	return t
}

func (t *manualTask) Stop() {
	t.s.mu.Lock()
	t.stopped = true
	t.s.mu.Unlock()
}

// pending counts tasks that have not been stopped or fired.
func (s *manualScheduler) pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.tasks {
		if !t.stopped {
			n++
		}
	}
	return n
}

// Advance moves the clock forward by d, firing every task that falls due.
func (s *manualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	end := s.now.Add(d)
	s.mu.Unlock()

	for {
		s.mu.Lock()
		live := s.tasks[:0]
		var next *manualTask
		for _, t := range s.tasks {
			if t.stopped {
				continue
			}
			live = append(live, t)
			if t.at.After(end) {
				continue
			}
			if next == nil || t.at.Before(next.at) {
				next = t
			}
		}
		s.tasks = live

		if next == nil {
			s.now = end
			s.mu.Unlock()
			return
		}

		at := next.at
		s.now = at
		if next.every > 0 {
			next.at = at.Add(next.every)
		} else {
			next.stopped = true
		}
		s.mu.Unlock()

		if next.once != nil {
			next.once()
		} else {
			next.tick(at)
		}
	}
}

// seqRandom replays fixed samples, cycling when exhausted.
type seqRandom struct {
	floats []float64
	ints   []int
	fi, ii int
}

func (r *seqRandom) Float64() float64 {
	if len(r.floats) == 0 {
		return 0.5
	}
	v := r.floats[r.fi%len(r.floats)]
	r.fi++
	return v
}

func (r *seqRandom) IntN(n int) int {
	if len(r.ints) == 0 {
		return 0
	}
	v := r.ints[r.ii%len(r.ints)] % n
	r.ii++
	return v
}
