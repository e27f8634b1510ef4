// dispatcher_test.go: looper ordering, panic isolation and shutdown
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInlineDispatcher(t *testing.T) {
	ran := false
	InlineDispatcher{}.Dispatch(func() { ran = true })
	assert.True(t, ran)
	assert.NotPanics(t, func() { InlineDispatcher{}.Dispatch(nil) })
}

func TestLooper_RunsInOrder(t *testing.T) {
	defer verifyNoLeaks(t)

	l := NewLooper("render", nil)
	l.Start()

	var mu sync.Mutex
	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Dispatch(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		})
	}
	l.Stop()

	assert.Len(t, got, 100)
	for i, v := range got {
		if v != i {
			t.Fatalf("action %d ran at position %d", v, i)
		}
	}
}

func TestLooper_PanicDoesNotStopLoop(t *testing.T) {
	defer verifyNoLeaks(t)

	logger := NewTestLogger()
	l := NewLooper("ui", logger)
	l.Start()

	var after atomic.Bool
	l.Dispatch(func() { panic("hook exploded") })
	l.Dispatch(func() { after.Store(true) })
	l.Stop()

	assert.True(t, after.Load())
	assert.True(t, logger.HasMessage("ERROR", "Panic recovered in goroutine"))
}

func TestLooper_StopBeforeStartDrainsOnCaller(t *testing.T) {
	defer verifyNoLeaks(t)

	l := NewLooper("idle", nil)
	ran := 0
	l.Dispatch(func() { ran++ })
	l.Dispatch(func() { ran++ })

	l.Stop()
	assert.Equal(t, 2, ran)

	l.Start() // no-op after stop
	l.Stop()  // idempotent
}

func TestLooper_DispatchAfterStopDropped(t *testing.T) {
	defer verifyNoLeaks(t)

	logger := NewTestLogger()
	l := NewLooper("ui", logger)
	l.Start()
	l.Stop()

	l.Dispatch(func() { t.Error("must not run") })
	assert.Equal(t, 0, l.Pending())
	assert.True(t, logger.HasMessage("WARN", "Dispatch on stopped looper dropped"))
}

func TestLooper_ConcurrentDispatch(t *testing.T) {
	defer verifyNoLeaks(t)

	l := NewLooper("render", nil)
	l.Start()

	var count atomic.Int64
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				l.Dispatch(func() { count.Add(1) })
			}
		}()
	}
	wg.Wait()

	assert.Eventually(t, func() bool { return count.Load() == 400 }, 2*time.Second, 5*time.Millisecond)
	l.Stop()
}

func TestLooper_DispatchRacingStop(t *testing.T) {
	defer verifyNoLeaks(t)

	for round := 0; round < 20; round++ {
		logger := NewTestLogger()
		l := NewLooper("ui", logger)
		l.Start()

		var ran atomic.Int64
		var wg sync.WaitGroup
		for g := 0; g < 4; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					l.Dispatch(func() { ran.Add(1) })
				}
			}()
		}
		l.Stop()
		wg.Wait()

		dropped := logger.Count("WARN")
		assert.Equal(t, int64(400), ran.Load()+int64(dropped), "round %d: every action runs or is reported", round)
	}
}
