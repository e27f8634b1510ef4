// panic_recovery.go: panic isolation for plugin hooks and background loops
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"fmt"
	"runtime"
)

// RecoveryHandler defines the signature for panic recovery handlers.
type RecoveryHandler func(recovered interface{}, stack []byte)

func captureStack() []byte {
	buf := make([]byte, 64<<10)
	n := runtime.Stack(buf, false)
	return buf[:n]
}

// withStackRecover returns a panic recovery function that logs panic details
// including the stack trace. It must be deferred.
//
//	go func() {
//	    defer withStackRecover(logger)()
//	    ...
//	}()
func withStackRecover(logger Logger) func() {
	return func() {
		if r := recover(); r != nil {
			logger.Error("Panic recovered in goroutine",
				"panic", r,
				"stack", string(captureStack()))
		}
	}
}

// SafeGo executes fn in a new goroutine with panic recovery.
func SafeGo(logger Logger, fn func()) {
	go func() {
		defer withStackRecover(logger)()
		fn()
	}()
}

// safeHook runs a single plugin hook. A panic is logged against the plugin,
// counted, and reported back so fan-out can continue with the next plugin.
func safeHook(logger Logger, metrics MetricsCollector, pluginName, hook string, fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			logger.Error("Plugin hook panicked",
				"plugin", pluginName,
				"hook", hook,
				"panic", r,
				"stack", string(captureStack()))
			metrics.IncrementCounter(MetricHookPanics, map[string]string{
				"plugin": pluginName,
				"hook":   hook,
			}, 1)
		}
	}()
	fn()
	return false
}

// recoverAsError converts a panic into an error stored in *errp. The wrap
// function builds the structured error from the panic value.
func recoverAsError(errp *error, wrap func(cause error) error) {
	if r := recover(); r != nil {
		cause, ok := r.(error)
		if !ok {
			cause = fmt.Errorf("panic: %v", r)
		}
		*errp = wrap(cause)
	}
}
