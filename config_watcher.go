// config_watcher.go: hot reload of the bridge configuration with Argus
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/argus"
)

// ConfigWatcherOptions tunes the watcher.
type ConfigWatcherOptions struct {
	PollInterval time.Duration
	CacheTTL     time.Duration

	// AuditFile enables the Argus audit trail when set.
	AuditFile string

	// OnApply runs after a new configuration has been validated and
	// published. previous is nil for the initial load.
	OnApply func(current, previous *BridgeConfig)
}

// DefaultConfigWatcherOptions returns the default polling setup.
func DefaultConfigWatcherOptions() ConfigWatcherOptions {
	return ConfigWatcherOptions{
		PollInterval: 2 * time.Second,
		CacheTTL:     time.Second,
	}
}

// ConfigWatcher reloads a BridgeConfig file when it changes.
//
// Each reload is parsed and validated before it replaces the active
// configuration, so an invalid edit leaves the previous one in place. The
// logging level is applied to the watcher's logger when it supports
// runtime levels (SlogLogger does).
//
//	w, _ := gobridge.NewConfigWatcher("/etc/game/bridge.yaml", opts, logger)
//	if err := w.Start(); err != nil { ... }
//	defer w.Stop()
type ConfigWatcher struct {
	path    string
	options ConfigWatcherOptions
	logger  Logger
	watcher *argus.Watcher

	current atomic.Pointer[BridgeConfig]

	mutex   sync.Mutex
	enabled atomic.Bool
	stopped atomic.Bool
	reloads atomic.Int64
}

// NewConfigWatcher creates a watcher for path. Nothing is read until Start.
func NewConfigWatcher(path string, options ConfigWatcherOptions, logger any) (*ConfigWatcher, error) {
	if path == "" {
		return nil, NewConfigWatcherError("config path cannot be empty", nil)
	}
	defaults := DefaultConfigWatcherOptions()
	if options.PollInterval <= 0 {
		options.PollInterval = defaults.PollInterval
	}
	if options.CacheTTL <= 0 {
		options.CacheTTL = defaults.CacheTTL
	}
	log := NewLogger(logger)

	return &ConfigWatcher{
		path:    path,
		options: options,
		logger:  log,
	}, nil
}

func createArgusConfig(options ConfigWatcherOptions, logger Logger) argus.Config {
	// A zero AuditConfig is replaced by Argus defaults, which enable a file
	// audit trail. BufferSize keeps it non-zero; no FlushInterval means no
	// flusher goroutine.
	audit := argus.AuditConfig{Enabled: false, BufferSize: 1}
	if options.AuditFile != "" {
		audit = argus.AuditConfig{
			Enabled:       true,
			OutputFile:    options.AuditFile,
			MinLevel:      argus.AuditInfo,
			BufferSize:    100,
			FlushInterval: 5 * time.Second,
		}
	}
	return argus.Config{
		PollInterval:         options.PollInterval,
		CacheTTL:             options.CacheTTL,
		MaxWatchedFiles:      1,
		Audit:                audit,
		OptimizationStrategy: argus.OptimizationSingleEvent,
		ErrorHandler: func(err error, path string) {
			logger.Error("Bridge config file watching error", "error", err, "file", path)
		},
	}
}

// Start loads and applies the file, then watches it. A stopped watcher
// cannot be restarted.
func (w *ConfigWatcher) Start() error {
	if w.stopped.Load() {
		return NewConfigWatcherError("config watcher has been stopped and cannot be restarted", nil)
	}

	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.enabled.CompareAndSwap(false, true) {
		return NewConfigWatcherError("config watcher is already running", nil)
	}

	initial, err := LoadBridgeConfig(w.path)
	if err != nil {
		w.enabled.Store(false)
		return NewConfigWatcherError("failed to load initial configuration", err)
	}
	w.apply(&initial)

	watcher := argus.New(createArgusConfig(w.options, w.logger))
	if err := watcher.Watch(w.path, w.handleChange); err != nil {
		w.enabled.Store(false)
		releaseArgus(watcher)
		return NewConfigWatcherError("failed to watch config file", err)
	}
	if err := watcher.Start(); err != nil {
		w.enabled.Store(false)
		releaseArgus(watcher)
		return NewConfigWatcherError("failed to start Argus watcher", err)
	}
	w.watcher = watcher

	w.logger.Info("Bridge config watcher started",
		"config_path", w.path,
		"poll_interval", w.options.PollInterval)
	return nil
}

// Stop ends watching. A stopped watcher stays stopped.
func (w *ConfigWatcher) Stop() error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.stopped.Load() {
		return NewConfigWatcherError("config watcher is already stopped", nil)
	}
	if !w.enabled.CompareAndSwap(true, false) {
		return NewConfigWatcherError("config watcher is not running", nil)
	}
	w.stopped.Store(true)

	if err := w.watcher.Stop(); err != nil {
		return NewConfigWatcherError("failed to stop Argus watcher", err)
	}
	w.logger.Info("Bridge config watcher stopped")
	return nil
}

// IsRunning reports whether the watcher is active.
func (w *ConfigWatcher) IsRunning() bool {
	return w.enabled.Load() && !w.stopped.Load()
}

// Current returns the active configuration, or nil before Start.
func (w *ConfigWatcher) Current() *BridgeConfig {
	return w.current.Load()
}

// Reloads counts configurations applied after the initial load.
func (w *ConfigWatcher) Reloads() int64 {
	return w.reloads.Load()
}

// releaseArgus frees what argus.New allocated for a watcher that never ran.
// Argus only closes its audit logger from Stop, and Stop needs a running
// watcher.
func releaseArgus(watcher *argus.Watcher) {
	if watcher.IsRunning() {
		_ = watcher.Stop()
		return
	}
	if watcher.Start() == nil {
		_ = watcher.Stop()
	}
}

func (w *ConfigWatcher) handleChange(event argus.ChangeEvent) {
	if event.IsDelete {
		w.logger.Warn("Bridge config file was deleted, keeping current configuration", "path", event.Path)
		return
	}

	next, err := LoadBridgeConfig(event.Path)
	if err != nil {
		w.logger.Error("Rejected bridge config reload", "path", event.Path, "error", err)
		return
	}
	w.apply(&next)
	w.reloads.Add(1)
	w.logger.Info("Bridge configuration reloaded", "path", event.Path)
}

func (w *ConfigWatcher) apply(next *BridgeConfig) {
	previous := w.current.Swap(next)

	if level, ok := ParseLogLevel(next.Logging.Level); ok {
		if ls, ok := w.logger.(levelSetter); ok {
			ls.SetLevel(level)
		}
	}

	if w.options.OnApply != nil {
		defer withStackRecover(w.logger)()
		w.options.OnApply(next, previous)
	}
}
