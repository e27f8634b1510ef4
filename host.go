// host.go: the host façade owning plugins, dispatchers and the native link
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"sync"
	"sync/atomic"
)

// Intent carries the data the host was (re)started with.
type Intent struct {
	Action string
	Data   string
	Extras map[string]Value
}

// Container supplies the platform default handling that runs before
// plugins see activity and permission results.
type Container interface {
	OnActivityResult(requestCode, resultCode int, data *Intent)
	OnRequestPermissionsResult(requestCode int, permissions []string, grantResults []bool)
}

// NoOpContainer is the default Container.
type NoOpContainer struct{}

func (NoOpContainer) OnActivityResult(int, int, *Intent)               {}
func (NoOpContainer) OnRequestPermissionsResult(int, []string, []bool) {}

// HostListener is notified after plugins when the engine reports setup
// completion and main loop start. The owner passed to OnAttach becomes the
// listener when it implements this interface.
type HostListener interface {
	OnSetupCompleted()
	OnMainLoopStarted()
}

// Host is the lifecycle owner. It loads plugins on OnCreate, registers them
// with the native side on the render dispatcher and fans lifecycle events
// out to them in registry order.
type Host struct {
	native    Native
	logger    Logger
	metrics   MetricsCollector
	ui        Dispatcher
	render    Dispatcher
	metadata  MetadataSource
	factories *FactoryRegistry
	container Container
	config    atomic.Pointer[BridgeConfig]

	metricsSet bool

	mu       sync.RWMutex
	registry *PluginRegistry
	listener HostListener
	intent   *Intent
	state    LifecycleState
	history  []LifecycleState
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithLogger sets the logger. Accepts anything NewLogger accepts.
func WithLogger(logger any) HostOption {
	return func(h *Host) { h.logger = NewLogger(logger) }
}

// WithUIDispatcher sets the context RunOnUIThread posts to.
func WithUIDispatcher(d Dispatcher) HostOption {
	return func(h *Host) {
		if d != nil {
			h.ui = d
		}
	}
}

// WithRenderDispatcher sets the context plugin registration runs on.
func WithRenderDispatcher(d Dispatcher) HostOption {
	return func(h *Host) {
		if d != nil {
			h.render = d
		}
	}
}

// WithMetadataSource sets where plugin declarations are read from.
func WithMetadataSource(src MetadataSource) HostOption {
	return func(h *Host) { h.metadata = src }
}

// WithFactories sets the factory table. Defaults to DefaultFactories().
func WithFactories(fr *FactoryRegistry) HostOption {
	return func(h *Host) {
		if fr != nil {
			h.factories = fr
		}
	}
}

// WithRegistry makes OnCreate use r instead of the process-wide registry.
func WithRegistry(r *PluginRegistry) HostOption {
	return func(h *Host) { h.registry = r }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m MetricsCollector) HostOption {
	return func(h *Host) {
		if m != nil {
			h.metrics = m
			h.metricsSet = true
		}
	}
}

// WithContainer sets the platform default handlers.
func WithContainer(c Container) HostOption {
	return func(h *Host) {
		if c != nil {
			h.container = c
		}
	}
}

// WithConfig sets the initial configuration.
func WithConfig(cfg BridgeConfig) HostOption {
	return func(h *Host) {
		c := cfg.withDefaults()
		h.config.Store(&c)
	}
}

// NewHost creates a host bound to native. A nil native makes every native
// call fail with NativeSymbolMissing, which is logged and ignored.
func NewHost(native Native, opts ...HostOption) *Host {
	h := &Host{
		native:    native,
		logger:    DefaultLogger(),
		ui:        InlineDispatcher{},
		render:    InlineDispatcher{},
		metadata:  StaticMetadata(nil),
		factories: DefaultFactories(),
		container: NoOpContainer{},
		state:     StateNew,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.config.Load() == nil {
		cfg := DefaultBridgeConfig()
		h.config.Store(&cfg)
	}
	if !h.metricsSet {
		h.metrics = newMetricsCollector(h.Config().Metrics)
	}
	if h.native == nil {
		h.logger.Error("Host created without native library, native calls will fail")
		h.native = missingNative{}
	}
	return h
}

// Config returns the active configuration.
func (h *Host) Config() BridgeConfig {
	return *h.config.Load()
}

// ApplyConfig replaces the active configuration. Plugin prefix and disabled
// plugins only affect registries loaded afterwards; the log level applies
// immediately when the logger supports it.
func (h *Host) ApplyConfig(cfg BridgeConfig) {
	c := cfg.withDefaults()
	h.config.Store(&c)
	if level, ok := ParseLogLevel(c.Logging.Level); ok {
		if ls, ok := h.logger.(levelSetter); ok {
			ls.SetLevel(level)
		}
	}
}

// Logger returns the host logger.
func (h *Host) Logger() Logger { return h.logger }

// Metrics returns the host metrics collector.
func (h *Host) Metrics() MetricsCollector { return h.metrics }

// Native returns the native boundary.
func (h *Host) Native() Native { return h.native }

// Registry returns the host's plugin registry, nil before OnCreate.
func (h *Host) Registry() *PluginRegistry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.registry
}

// RunOnUIThread queues action on the UI dispatcher.
func (h *Host) RunOnUIThread(action func()) {
	h.ui.Dispatch(action)
}

// CurrentIntent returns the last intent given to OnNewIntent.
func (h *Host) CurrentIntent() *Intent {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.intent
}

func (h *Host) currentListener() HostListener {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.listener
}

// missingNative stands in when no native library is available.
type missingNative struct{}

func (missingNative) RegisterSingleton(string, *PluginHandle) error {
	return NewNativeSymbolMissingError("RegisterSingleton", nil)
}
func (missingNative) RegisterOperation(string, string, string) error {
	return NewNativeSymbolMissingError("RegisterOperation", nil)
}
func (missingNative) RegisterSignal(string, string, []string) error {
	return NewNativeSymbolMissingError("RegisterSignal", nil)
}
func (missingNative) EmitSignal(string, string, []Value) error {
	return NewNativeSymbolMissingError("EmitSignal", nil)
}
func (missingNative) NotifyDestroy() error {
	return NewNativeSymbolMissingError("NotifyDestroy", nil)
}
func (missingNative) NotifyFocusIn() error {
	return NewNativeSymbolMissingError("NotifyFocusIn", nil)
}
func (missingNative) NotifyFocusOut() error {
	return NewNativeSymbolMissingError("NotifyFocusOut", nil)
}
func (missingNative) NotifyBackPressed() error {
	return NewNativeSymbolMissingError("NotifyBackPressed", nil)
}
func (missingNative) NotifyPermissionResult(string, bool) error {
	return NewNativeSymbolMissingError("NotifyPermissionResult", nil)
}
