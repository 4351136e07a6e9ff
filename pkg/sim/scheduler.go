// Package sim drives the demo behaviour of the simulated appliances:
// timers that advance cleaning runs, cook cycles and sensor readings.
//
// Every callback runs through a Runner, normally the node's Do, so timer
// driven changes are serialized with client commands.
package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/pion/logging"
)

// Scheduler errors.
var (
	ErrStopped         = errors.New("sim: scheduler stopped")
	ErrInvalidInterval = errors.New("sim: interval must be positive")
)

// Runner serializes callbacks with command dispatch.
// *datamodel.BasicNode satisfies it.
type Runner interface {
	Do(fn func())
}

// Config configures a Scheduler.
type Config struct {
	// Runner executes callbacks. Nil runs them directly on the timer
	// goroutine.
	Runner Runner

	// LoggerFactory for scoped logging; nil disables logging.
	LoggerFactory logging.LoggerFactory
}

// Scheduler owns a set of timers. Stop cancels them all and waits for
// their goroutines to exit.
type Scheduler struct {
	runner Runner
	log    logging.LeveledLogger

	mu      sync.Mutex
	tasks   map[uint64]*Handle
	nextID  uint64
	stopped bool

	wg sync.WaitGroup
}

// Handle is a scheduled timer.
type Handle struct {
	id   uint64
	s    *Scheduler
	done chan struct{}
	once sync.Once
}

// NewScheduler creates a Scheduler.
func NewScheduler(cfg Config) *Scheduler {
	s := &Scheduler{
		runner: cfg.Runner,
		tasks:  make(map[uint64]*Handle),
	}
	if cfg.LoggerFactory != nil {
		s.log = cfg.LoggerFactory.NewLogger("sim")
	}
	return s
}

// Every runs fn every interval until the handle is cancelled or the
// scheduler stops.
func (s *Scheduler) Every(interval time.Duration, fn func()) (*Handle, error) {
	return s.schedule(interval, true, fn)
}

// After runs fn once after delay.
func (s *Scheduler) After(delay time.Duration, fn func()) (*Handle, error) {
	return s.schedule(delay, false, fn)
}

func (s *Scheduler) schedule(d time.Duration, repeat bool, fn func()) (*Handle, error) {
	if d <= 0 {
		return nil, ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return nil, ErrStopped
	}
	s.nextID++
	h := &Handle{id: s.nextID, s: s, done: make(chan struct{})}
	s.tasks[h.id] = h
	s.wg.Add(1)

	go s.run(h, d, repeat, fn)
	return h, nil
}

func (s *Scheduler) run(h *Handle, d time.Duration, repeat bool, fn func()) {
	defer s.wg.Done()

	if !repeat {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-h.done:
		case <-timer.C:
			s.fire(h, fn)
			h.Cancel()
		}
		return
	}

	ticker := time.NewTicker(d)
	defer ticker.Stop()
	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			s.fire(h, fn)
		}
	}
}

// fire runs fn unless the handle was cancelled while waiting for the
// runner.
func (s *Scheduler) fire(h *Handle, fn func()) {
	call := func() {
		select {
		case <-h.done:
			return
		default:
		}
		fn()
	}
	if s.runner == nil {
		call()
		return
	}
	s.runner.Do(call)
}

// Cancel stops the timer. Safe to call more than once and from within
// the timer's own callback.
func (h *Handle) Cancel() {
	h.once.Do(func() {
		close(h.done)
		h.s.mu.Lock()
		delete(h.s.tasks, h.id)
		h.s.mu.Unlock()
	})
}

// Len returns the number of live timers.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Stop cancels every timer and waits for their goroutines. It must not
// be called from a timer callback. Further scheduling fails with
// ErrStopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	handles := make([]*Handle, 0, len(s.tasks))
	for _, h := range s.tasks {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Cancel()
	}
	s.wg.Wait()

	if s.log != nil {
		s.log.Debugf("stopped %d timers", len(handles))
	}
}
