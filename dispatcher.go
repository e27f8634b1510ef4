// dispatcher.go: UI and render execution contexts
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"sync"
	"sync/atomic"
)

// Dispatcher runs actions on an execution context. Dispatch never blocks
// and actions run in submission order.
type Dispatcher interface {
	Dispatch(action func())
}

// InlineDispatcher runs each action immediately on the calling goroutine.
type InlineDispatcher struct{}

// Dispatch implements Dispatcher.
func (InlineDispatcher) Dispatch(action func()) {
	if action != nil {
		action()
	}
}

// Looper is a single goroutine draining an unbounded FIFO queue of actions.
// A panicking action is logged and the loop continues.
type Looper struct {
	name   string
	logger Logger

	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	done    chan struct{}
	started atomic.Bool
	stopped atomic.Bool

	stopOnce sync.Once
}

// NewLooper creates a stopped looper. Call Start before or after queueing.
func NewLooper(name string, logger Logger) *Looper {
	return &Looper{
		name:   name,
		logger: NewLogger(logger),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Start launches the loop goroutine. Starting twice, or after Stop, is a no-op.
func (l *Looper) Start() {
	if !l.started.CompareAndSwap(false, true) {
		return
	}
	go l.run()
}

// Dispatch implements Dispatcher. Actions queued after Stop are dropped.
func (l *Looper) Dispatch(action func()) {
	if action == nil {
		return
	}
	l.mu.Lock()
	if l.stopped.Load() {
		l.mu.Unlock()
		l.logger.Warn("Dispatch on stopped looper dropped", "looper", l.name)
		return
	}
	l.queue = append(l.queue, action)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Looper) run() {
	defer close(l.done)
	for {
		batch := l.take()
		for _, action := range batch {
			l.runOne(action)
		}
		if len(batch) > 0 {
			continue
		}
		if l.stopped.Load() {
			// drain anything queued between take and the stop flag
			if rest := l.take(); len(rest) > 0 {
				for _, action := range rest {
					l.runOne(action)
				}
				continue
			}
			return
		}
		<-l.wake
	}
}

func (l *Looper) take() []func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	batch := l.queue
	l.queue = nil
	return batch
}

func (l *Looper) runOne(action func()) {
	defer withStackRecover(l.logger.With("looper", l.name))()
	action()
}

// Stop runs the actions already queued, then ends the loop and waits for it.
// A looper that was never started is drained on the caller's goroutine.
func (l *Looper) Stop() {
	l.stopOnce.Do(func() {
		// under mu so every accepted action is in the queue the loop drains
		l.mu.Lock()
		l.stopped.Store(true)
		l.mu.Unlock()

		if l.started.CompareAndSwap(false, true) {
			for _, action := range l.take() {
				l.runOne(action)
			}
			close(l.done)
			return
		}
		select {
		case l.wake <- struct{}{}:
		default:
		}
		<-l.done
	})
}

// Pending returns the number of queued actions.
func (l *Looper) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}
