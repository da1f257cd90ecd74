package prizewheel

import (
	"sync"
	"time"
)

// Task is a pending one-shot or repeating callback.
// Stop is idempotent; a callback already running when Stop is called may still
// complete.
type Task interface {
	Stop()
}

// Scheduler owns time for the engine and the blinker.
// Tests substitute a manual clock.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Task
	Every(d time.Duration, f func(now time.Time)) Task
}

// NewScheduler returns a Scheduler backed by the wall clock.
func NewScheduler() Scheduler { return clockScheduler{} }

type clockScheduler struct{}

func (clockScheduler) Now() time.Time { return time.Now() }

func (clockScheduler) AfterFunc(d time.Duration, f func()) Task {
	return timerTask{t: time.AfterFunc(d, f)}
}

// Every runs f on its own goroutine, once per tick, until stopped.
// Ticks that arrive while f is still running are dropped by time.Ticker.
func (clockScheduler) Every(d time.Duration, f func(now time.Time)) Task {
	t := &tickerTask{stop: make(chan struct{})}
	ticker := time.NewTicker(d)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-t.stop:
				return
			case now := <-ticker.C:
				select {
				case <-t.stop:
					return
				default:
				}
				f(now)
			}
		}
	}()

	return t
}

type timerTask struct {
	t *time.Timer
}

func (t timerTask) Stop() { t.t.Stop() }

type tickerTask struct {
	stop chan struct{}
	once sync.Once
}

func (t *tickerTask) Stop() {
	t.once.Do(func() { close(t.stop) })
}
