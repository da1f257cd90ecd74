package prizewheel

import (
	"testing"
	"time"
)

func TestBlinker_TogglesEveryInterval(t *testing.T) {
	sched := newManualScheduler()
	var seen []bool
	b := NewBlinker(sched, 0, func(on bool) { seen = append(seen, on) })

	if !b.On() {
		t.Fatalf("blinker should start lit")
	}
	b.Start()
	b.Start()

	sched.Advance(DefaultBlinkInterval - time.Millisecond)
	if len(seen) != 0 {
		t.Fatalf("toggled before first interval: %v", seen)
	}

	sched.Advance(time.Millisecond + 3*DefaultBlinkInterval)
	want := []bool{false, true, false, true}
	if len(seen) != len(want) {
		t.Fatalf("toggles = %v, want %v", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("toggles = %v, want %v", seen, want)
		}
	}
	if !b.On() {
		t.Fatalf("On() = false after even number of toggles")
	}
}

func TestBlinker_StopHaltsToggling(t *testing.T) {
	sched := newManualScheduler()
	count := 0
	b := NewBlinker(sched, 100*time.Millisecond, func(bool) { count++ })

	b.Start()
	sched.Advance(250 * time.Millisecond)
	b.Stop()
	sched.Advance(time.Second)

	if count != 2 {
		t.Fatalf("toggles = %d, want 2", count)
	}
	if n := sched.pending(); n != 0 {
		t.Fatalf("pending tasks after Stop = %d", n)
	}

	b.Start()
	if !b.On() {
		t.Fatalf("restart should relight the border")
	}
	sched.Advance(100 * time.Millisecond)
	if count != 3 {
		t.Fatalf("toggles after restart = %d, want 3", count)
	}
}

func TestScheduler_EveryAndStop(t *testing.T) {
	s := NewScheduler()
	ticks := make(chan time.Time, 16)
	task := s.Every(5*time.Millisecond, func(now time.Time) {
		select {
		case ticks <- now:
		default:
		}
	})

	for i := 0; i < 3; i++ {
		select {
		case <-ticks:
		case <-time.After(time.Second):
			t.Fatalf("timeout waiting for tick %d", i)
		}
	}

	task.Stop()
	task.Stop()
	time.Sleep(20 * time.Millisecond)
	for len(ticks) > 0 {
		<-ticks
	}
	time.Sleep(30 * time.Millisecond)
	if n := len(ticks); n != 0 {
		t.Fatalf("%d ticks after Stop", n)
	}
}

func TestScheduler_AfterFuncStop(t *testing.T) {
	s := NewScheduler()
	fired := make(chan struct{}, 1)
	task := s.AfterFunc(50*time.Millisecond, func() { fired <- struct{}{} })
	task.Stop()

	select {
	case <-fired:
		t.Fatalf("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}
