// plugin.go: plugin interfaces and the embeddable plugin base
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"sync"
	"sync/atomic"
)

// LifecycleHooks are the host events a plugin can react to. BasePlugin
// provides no-op defaults for all of them.
type LifecycleHooks interface {
	OnMainActivityResult(requestCode, resultCode int, data *Intent)
	OnMainRequestPermissionsResult(requestCode int, permissions []string, grantResults []bool)
	OnMainPause()
	OnMainResume()
	OnMainDestroy()

	// OnMainBackPressed returns true when the plugin handled the event.
	OnMainBackPressed() bool

	OnSetupCompleted()
	OnMainLoopStarted()

	OnGLDrawFrame()
	OnGLSurfaceChanged(width, height int)
	OnGLSurfaceCreated()
	OnVkDrawFrame()
	OnVkSurfaceChanged(width, height, format int)
	OnVkSurfaceCreated()
}

// Plugin is a loaded plugin instance. Implementations embed *BasePlugin and
// provide PluginName; everything else has a default.
//
//	type AdMob struct {
//	    *gobridge.BasePlugin
//	}
//
//	func (a *AdMob) PluginName() string { return "admob" }
type Plugin interface {
	CapabilityProvider
	OperationProvider
	LifecycleHooks

	base() *BasePlugin
}

// BasePlugin holds the state shared by every plugin: the owning host, the
// name it was registered under and the published set of registered signals.
type BasePlugin struct {
	host *Host

	name       atomic.Pointer[string]
	registered atomic.Pointer[map[string]*SignalInfo]

	registerOnce sync.Once
	registeredAt atomic.Int64
}

// NewBasePlugin creates the base for a plugin owned by host.
func NewBasePlugin(host *Host) *BasePlugin {
	return &BasePlugin{host: host}
}

func (b *BasePlugin) base() *BasePlugin { return b }

// Host returns the owning host.
func (b *BasePlugin) Host() *Host { return b.host }

// RegisteredName returns the name bound at registration, or "".
func (b *BasePlugin) RegisteredName() string {
	if n := b.name.Load(); n != nil {
		return *n
	}
	return ""
}

// IsRegistered reports whether native registration published the signals.
func (b *BasePlugin) IsRegistered() bool {
	return b.registered.Load() != nil
}

// RegisteredAt returns the unix nano timestamp of publication, or 0.
func (b *BasePlugin) RegisteredAt() int64 {
	return b.registeredAt.Load()
}

// Logger returns the host logger scoped to this plugin.
func (b *BasePlugin) Logger() Logger {
	l := b.hostLogger()
	if name := b.RegisteredName(); name != "" {
		return l.With("plugin", name)
	}
	return l
}

func (b *BasePlugin) hostLogger() Logger {
	if b.host == nil {
		return DefaultLogger()
	}
	return b.host.logger
}

func (b *BasePlugin) hostMetrics() MetricsCollector {
	if b.host == nil {
		return NoOpMetricsCollector{}
	}
	return b.host.metrics
}

// EmitSignal sends a registered signal to the native side.
//
// The signal must have been registered, the argument count must match the
// declared parameters and every argument must be assignable to its
// parameter type. Failures are logged and dropped; nothing is returned to
// the caller. Safe for concurrent use.
func (b *BasePlugin) EmitSignal(signalName string, args ...Value) {
	if err := b.emit(signalName, args); err != nil {
		labels := map[string]string{
			"plugin": b.RegisteredName(),
			"signal": signalName,
			"reason": ErrorCodeOf(err),
		}
		b.hostMetrics().IncrementCounter(MetricSignalsDropped, labels, 1)

		if isValidationCode(ErrorCodeOf(err)) {
			b.Logger().Warn("Signal emission rejected",
				"signal", signalName,
				"error", err)
			return
		}
		b.Logger().Error("Native signal emission failed",
			"signal", signalName,
			"error", err)
		return
	}

	b.hostMetrics().IncrementCounter(MetricSignalsEmitted, map[string]string{
		"plugin": b.RegisteredName(),
		"signal": signalName,
	}, 1)
}

func isValidationCode(code string) bool {
	switch code {
	case ErrCodeUnregisteredSignal, ErrCodeArityMismatch, ErrCodeTypeMismatch:
		return true
	}
	return false
}

func (b *BasePlugin) emit(signalName string, args []Value) error {
	regs := b.registered.Load()
	if regs == nil {
		return NewUnregisteredSignalError(b.RegisteredName(), signalName)
	}
	signal, ok := (*regs)[signalName]
	if !ok {
		return NewUnregisteredSignalError(b.RegisteredName(), signalName)
	}
	if err := signal.Validate(args); err != nil {
		return err
	}
	if b.host == nil || b.host.native == nil {
		return NewNativeSymbolMissingError("EmitSignal", nil)
	}

	copied := make([]Value, len(args))
	copy(copied, args)
	return b.host.native.EmitSignal(b.RegisteredName(), signalName, copied)
}

// RunOnUIThread queues action on the host's UI dispatcher.
func (b *BasePlugin) RunOnUIThread(action func()) {
	if b.host == nil {
		b.hostLogger().Warn("RunOnUIThread called on a plugin without host")
		return
	}
	b.host.RunOnUIThread(action)
}

// Default capability implementations.

func (b *BasePlugin) PluginSignals() []*SignalInfo  { return nil }
func (b *BasePlugin) OnPluginRegistered()           {}
func (b *BasePlugin) PluginOperations() []Operation { return nil }

// Default lifecycle hooks: all no-ops.

func (b *BasePlugin) OnMainActivityResult(requestCode, resultCode int, data *Intent) {}
func (b *BasePlugin) OnMainRequestPermissionsResult(requestCode int, permissions []string, grantResults []bool) {
}
func (b *BasePlugin) OnMainPause()                                 {}
func (b *BasePlugin) OnMainResume()                                {}
func (b *BasePlugin) OnMainDestroy()                               {}
func (b *BasePlugin) OnMainBackPressed() bool                      { return false }
func (b *BasePlugin) OnSetupCompleted()                            {}
func (b *BasePlugin) OnMainLoopStarted()                           {}
func (b *BasePlugin) OnGLDrawFrame()                               {}
func (b *BasePlugin) OnGLSurfaceChanged(width, height int)         {}
func (b *BasePlugin) OnGLSurfaceCreated()                          {}
func (b *BasePlugin) OnVkDrawFrame()                               {}
func (b *BasePlugin) OnVkSurfaceChanged(width, height, format int) {}
func (b *BasePlugin) OnVkSurfaceCreated()                          {}
