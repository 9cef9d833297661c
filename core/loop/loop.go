// Package loop provides the single logical event loop that owns all playback
// state. Tasks posted to a Loop run one at a time, in order, on one goroutine.
package loop

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"Playa/logger"
)

// ErrStopped is returned by Do once the loop has been stopped.
var ErrStopped = errors.New("event loop stopped")

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from being posted. It reports false if the
	// call was already posted or the timer already stopped.
	Stop() bool
}

// Executor schedules work onto the event loop.
type Executor interface {
	// Post queues fn to run on the loop and returns immediately.
	Post(fn func())
	// Do runs fn on the loop and waits for it to finish.
	Do(fn func()) error
	// AfterFunc posts fn onto the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Offload runs blocking fn off the loop. Results must come back through Post.
	Offload(fn func())
}

// Loop is the goroutine backed Executor.
type Loop struct {
	mu     sync.Mutex
	queue  []func()
	closed bool

	wake chan struct{}
	done chan struct{}

	offloads sync.WaitGroup
}

// New returns a loop that is not yet running. Call Run in its own goroutine.
func New() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Run drains the task queue until Stop is called.
func (l *Loop) Run() {
	for {
		select {
		case <-l.wake:
			for _, fn := range l.take() {
				l.run(fn)
			}

		case <-l.done:
			return
		}
	}
}

// Stop ends Run and waits for offloaded work to return.
// Tasks still queued are dropped.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.closed = true
	l.queue = nil
	l.mu.Unlock()

	close(l.done)
	l.offloads.Wait()
}

func (l *Loop) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	tasks := l.queue
	l.queue = nil
	return tasks
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("event loop task panicked", logger.String("panic", fmt.Sprint(r)))
		}
	}()
	fn()
}

func (l *Loop) Post(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Do must not be called from a task already running on the loop.
func (l *Loop) Do(fn func()) error {
	finished := make(chan struct{})
	l.Post(func() {
		defer close(finished)
		fn()
	})

	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

func (l *Loop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

func (l *Loop) Offload(fn func()) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return
	}
	l.offloads.Add(1)
	l.mu.Unlock()

	go func() {
		defer l.offloads.Done()
		defer func() {
			if r := recover(); r != nil {
				logger.Error("offloaded task panicked", logger.String("panic", fmt.Sprint(r)))
			}
		}()
		fn()
	}()
}
