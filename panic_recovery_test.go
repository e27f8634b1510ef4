// panic_recovery_test.go: panic recovery tests with logging
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"
)

// TestPanicRecovery_WithStackRecover tests basic panic recovery with logging
func TestPanicRecovery_WithStackRecover(t *testing.T) {
	logger := NewTestLogger()

	func() {
		defer withStackRecover(logger)()
		panic("test panic message")
	}()

	messages := logger.Snapshot()
	if len(messages) != 1 {
		t.Fatalf("Expected 1 log message, got %d", len(messages))
	}
	msg := messages[0]
	if msg.Level != "ERROR" {
		t.Errorf("Expected ERROR level, got %s", msg.Level)
	}
	if msg.Message != "Panic recovered in goroutine" {
		t.Errorf("Expected 'Panic recovered in goroutine', got %s", msg.Message)
	}

	var panicValue interface{}
	var stack string
	for i := 0; i < len(msg.Args)-1; i += 2 {
		switch msg.Args[i] {
		case "panic":
			panicValue = msg.Args[i+1]
		case "stack":
			stack, _ = msg.Args[i+1].(string)
		}
	}
	if panicValue != "test panic message" {
		t.Errorf("Expected panic value in args, got %v", panicValue)
	}
	if !strings.Contains(stack, "goroutine") {
		t.Error("Expected stack trace in args")
	}
}

// TestPanicRecovery_NoPanic verifies nothing is logged without a panic
func TestPanicRecovery_NoPanic(t *testing.T) {
	logger := NewTestLogger()
	func() {
		defer withStackRecover(logger)()
	}()
	if len(logger.Snapshot()) != 0 {
		t.Error("Expected no log messages")
	}
}

// TestSafeGo verifies the goroutine panic is contained
func TestSafeGo(t *testing.T) {
	logger := NewTestLogger()
	var wg sync.WaitGroup
	wg.Add(1)
	SafeGo(logger, func() {
		defer wg.Done()
		panic("background failure")
	})
	wg.Wait()

	// the recover runs after wg.Done, so poll briefly
	for i := 0; i < 100 && logger.Count("ERROR") == 0; i++ {
		time.Sleep(time.Millisecond)
	}
	if !logger.HasMessage("ERROR", "Panic recovered in goroutine") {
		t.Error("Expected panic to be logged")
	}
}

// TestSafeHook covers hook isolation and metrics
func TestSafeHook(t *testing.T) {
	logger := NewTestLogger()
	metrics := NewDefaultMetricsCollector()

	if safeHook(logger, metrics, "p", "OnMainPause", func() {}) {
		t.Error("Expected no panic to be reported")
	}
	if !safeHook(logger, metrics, "p", "OnMainPause", func() { panic(fmt.Errorf("bad")) }) {
		t.Error("Expected panic to be reported")
	}
	got := metrics.Counter(MetricHookPanics, map[string]string{"plugin": "p", "hook": "OnMainPause"})
	if got != 1 {
		t.Errorf("Expected 1 hook panic, got %d", got)
	}
}

// TestRecoverAsError converts panics to errors
func TestRecoverAsError(t *testing.T) {
	run := func(v interface{}) (err error) {
		defer recoverAsError(&err, func(cause error) error {
			return NewOperationFailedError("p", "op", cause)
		})
		panic(v)
	}

	err := run("text")
	if !HasErrorCode(err, ErrCodeOperationFailed) {
		t.Errorf("Expected %s, got %v", ErrCodeOperationFailed, err)
	}

	err = run(fmt.Errorf("typed"))
	if !HasErrorCode(err, ErrCodeOperationFailed) {
		t.Errorf("Expected %s, got %v", ErrCodeOperationFailed, err)
	}
}
