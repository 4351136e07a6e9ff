package sim

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/transport/v3/test"
)

// lockRunner serializes callbacks like a node's dispatch lock.
type lockRunner struct {
	mu    sync.Mutex
	calls int
}

func (r *lockRunner) Do(fn func()) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	fn()
}

func TestSchedulerEvery(t *testing.T) {
	defer test.CheckRoutines(t)()
	lim := test.TimeOut(10 * time.Second)
	defer lim.Stop()

	runner := &lockRunner{}
	s := NewScheduler(Config{Runner: runner})

	var ticks atomic.Int32
	done := make(chan struct{})
	var once sync.Once
	if _, err := s.Every(time.Millisecond, func() {
		if ticks.Add(1) == 3 {
			once.Do(func() { close(done) })
		}
	}); err != nil {
		t.Fatalf("Every() error = %v", err)
	}

	<-done
	s.Stop()

	after := ticks.Load()
	time.Sleep(5 * time.Millisecond)
	if ticks.Load() != after {
		t.Error("timer fired after Stop")
	}
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Stop", s.Len())
	}
}

func TestSchedulerAfter(t *testing.T) {
	defer test.CheckRoutines(t)()

	s := NewScheduler(Config{})
	fired := make(chan struct{})
	h, err := s.After(time.Millisecond, func() { close(fired) })
	if err != nil {
		t.Fatalf("After() error = %v", err)
	}

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("After callback never ran")
	}
	h.Cancel()
	s.Stop()
}

func TestSchedulerCancel(t *testing.T) {
	defer test.CheckRoutines(t)()

	s := NewScheduler(Config{})
	var fired atomic.Bool
	h, err := s.After(time.Hour, func() { fired.Store(true) })
	if err != nil {
		t.Fatal(err)
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	h.Cancel()
	h.Cancel()
	if s.Len() != 0 {
		t.Errorf("Len() = %d after Cancel", s.Len())
	}
	s.Stop()
	if fired.Load() {
		t.Error("cancelled timer fired")
	}
}

func TestSchedulerCancelFromCallback(t *testing.T) {
	defer test.CheckRoutines(t)()

	s := NewScheduler(Config{Runner: &lockRunner{}})
	var h *Handle
	var mu sync.Mutex
	var count int
	stopped := make(chan struct{})

	mu.Lock()
	h, _ = s.Every(time.Millisecond, func() {
		mu.Lock()
		defer mu.Unlock()
		count++
		h.Cancel()
		close(stopped)
	})
	mu.Unlock()

	<-stopped
	s.Stop()
	if count != 1 {
		t.Errorf("callback ran %d times, want 1", count)
	}
}

func TestSchedulerErrors(t *testing.T) {
	s := NewScheduler(Config{})
	if _, err := s.Every(0, func() {}); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Every(0) = %v, want ErrInvalidInterval", err)
	}

	s.Stop()
	s.Stop()
	if _, err := s.After(time.Second, func() {}); !errors.Is(err, ErrStopped) {
		t.Errorf("After() on stopped scheduler = %v, want ErrStopped", err)
	}
}
