package session

import (
	"context"
	"sync"
	"time"
)

// scheduler debounces validation requests and runs at most one validation
// at a time. A request arriving while a validation runs causes exactly one
// more run once it finishes.
type scheduler struct {
	delay time.Duration
	run   func(ctx context.Context)

	ctx context.Context
	wg  sync.WaitGroup

	mu      sync.Mutex
	timer   *time.Timer
	running bool
	again   bool
	closed  bool
}

func newScheduler(ctx context.Context, delay time.Duration, run func(context.Context)) *scheduler {
	return &scheduler{ctx: ctx, delay: delay, run: run}
}

// request (re)starts the debounce timer.
func (s *scheduler) request() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.delay, s.fire)
}

func (s *scheduler) fire() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	if s.running {
		s.again = true
		return
	}
	s.running = true
	s.wg.Add(1)
	go s.loop()
}

func (s *scheduler) loop() {
	defer s.wg.Done()
	for {
		s.run(s.ctx)

		s.mu.Lock()
		if s.again && !s.closed {
			s.again = false
			s.mu.Unlock()
			continue
		}
		s.running = false
		s.mu.Unlock()
		return
	}
}

// busy reports whether a validation is running.
func (s *scheduler) busy() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.running
}

// close stops the timer and waits for a running validation to return.
func (s *scheduler) close() {
	s.mu.Lock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()

	s.wg.Wait()
}
