// plugin_registration.go: the one-shot registration of a plugin with native
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"time"

	"github.com/agilira/go-timecache"
)

// registerPluginWithNative performs, in order: singleton registration,
// one RegisterOperation per declared operation, one RegisterSignal per
// declared signal, publication of the accepted signals, and finally
// OnPluginRegistered. It runs at most once per plugin.
//
// A native failure stops the remaining steps for this plugin only. Signals
// accepted before the failure are still published; OnPluginRegistered is
// not called. It reports whether every step completed.
func registerPluginWithNative(p Plugin, native Native, logger Logger, metrics MetricsCollector) bool {
	b := p.base()
	if b == nil {
		logger.Error("Plugin does not embed an initialized BasePlugin")
		return false
	}

	completed := false
	b.registerOnce.Do(func() {
		completed = runRegistration(p, b, native, logger, metrics)
	})
	return completed
}

func runRegistration(p Plugin, b *BasePlugin, native Native, logger Logger, metrics MetricsCollector) (completed bool) {
	start := time.Now()
	accepted := make(map[string]*SignalInfo)
	published := false
	publish := func() {
		if published {
			return
		}
		published = true
		b.registered.Store(&accepted)
		b.registeredAt.Store(timecache.CachedTimeNano())
	}

	name := ""
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Panic during plugin registration",
				"plugin", name,
				"panic", r,
				"stack", string(captureStack()))
			completed = false
		}
		publish()
	}()

	name = p.PluginName()
	if name == "" {
		logger.Error("Plugin declared an empty name, registration skipped")
		return false
	}
	b.name.Store(&name)
	log := logger.With("plugin", name)

	handle := newPluginHandle(name, p, p.PluginOperations(), log)
	if err := native.RegisterSingleton(name, handle); err != nil {
		log.Error("Failed to register plugin singleton", "error", err)
		return false
	}

	for _, op := range handle.Operations() {
		sig, _ := handle.Signature(op.Name)
		if err := native.RegisterOperation(name, op.Name, sig); err != nil {
			log.Error("Failed to register plugin operation",
				"operation", op.Name,
				"signature", sig,
				"error", err)
			return false
		}
	}

	signals := NewSignalSet()
	for _, s := range p.PluginSignals() {
		if s == nil {
			continue
		}
		if !signals.Add(s) {
			log.Warn("Duplicate signal declaration ignored", "signal", s.Name())
		}
	}
	for _, s := range signals.List() {
		if err := native.RegisterSignal(name, s.Name(), s.ParamSignatures()); err != nil {
			log.Error("Failed to register plugin signal",
				"signal", s.Name(),
				"error", err)
			return false
		}
		accepted[s.Name()] = s
	}

	publish()
	metrics.RecordHistogram(MetricRegistrationSeconds, map[string]string{"plugin": name},
		time.Since(start).Seconds())
	log.Debug("Plugin registered with native",
		"operations", len(handle.Operations()),
		"signals", len(accepted))

	safeHook(logger, metrics, name, "OnPluginRegistered", p.OnPluginRegistered)
	return true
}
