// lifecycle.go: host lifecycle state machine and fan-out to plugins
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"time"
)

// LifecycleState is the host's position in its lifecycle.
type LifecycleState int

const (
	StateNew LifecycleState = iota
	StateCreated
	StateAttached
	StateResumed
	StatePaused
	StateDetached
	StateDestroyed
)

func (s LifecycleState) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateCreated:
		return "created"
	case StateAttached:
		return "attached"
	case StateResumed:
		return "resumed"
	case StatePaused:
		return "paused"
	case StateDetached:
		return "detached"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// expected predecessors of each state
var lifecycleTransitions = map[LifecycleState][]LifecycleState{
	StateCreated:   {StateNew},
	StateAttached:  {StateCreated, StateDetached},
	StateResumed:   {StateAttached, StatePaused},
	StatePaused:    {StateResumed},
	StateDetached:  {StateAttached, StatePaused},
	StateDestroyed: {StateCreated, StateAttached, StatePaused, StateDetached},
}

// State returns the current lifecycle state.
func (h *Host) State() LifecycleState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state
}

// History returns every state entered since creation, oldest first.
func (h *Host) History() []LifecycleState {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]LifecycleState, len(h.history))
	copy(out, h.history)
	return out
}

// transition moves to next. It returns false, with a warning, once the host
// is destroyed. Unexpected transitions are logged at debug and applied.
func (h *Host) transition(event string, next LifecycleState) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateDestroyed {
		h.logger.Warn("Lifecycle event after destroy dropped", "event", event)
		return false
	}
	expected := false
	for _, from := range lifecycleTransitions[next] {
		if from == h.state {
			expected = true
			break
		}
	}
	if !expected {
		h.logger.Debug("Out of order lifecycle transition",
			"event", event,
			"from", h.state.String(),
			"to", next.String())
	}
	h.state = next
	h.history = append(h.history, next)
	return true
}

// alive reports whether events may still be delivered.
func (h *Host) alive(event string) bool {
	h.mu.RLock()
	destroyed := h.state == StateDestroyed
	h.mu.RUnlock()
	if destroyed {
		h.logger.Warn("Lifecycle event after destroy dropped", "event", event)
		return false
	}
	return true
}

type namedPlugin struct {
	name   string
	plugin Plugin
}

func (h *Host) pluginsInOrder() []namedPlugin {
	r := h.Registry()
	if r == nil {
		return nil
	}
	names := r.Names()
	out := make([]namedPlugin, 0, len(names))
	for _, name := range names {
		if p, ok := r.GetPlugin(name); ok {
			out = append(out, namedPlugin{name: name, plugin: p})
		}
	}
	return out
}

// fanOut calls hook on every plugin in registry order. A panicking plugin
// is logged and counted; the remaining plugins still run.
func (h *Host) fanOut(event string, hook func(p Plugin)) {
	start := time.Now()
	for _, np := range h.pluginsInOrder() {
		p := np.plugin
		safeHook(h.logger, h.metrics, np.name, event, func() { hook(p) })
	}
	h.metrics.RecordHistogram(MetricFanoutDuration, map[string]string{"event": event},
		time.Since(start).Seconds())
}

func (h *Host) notifyNative(call string, fn func() error) {
	if err := fn(); err != nil {
		h.logger.Error("Native notification failed", "call", call, "error", err)
	}
}

// OnCreate loads the plugin registry (the one given with WithRegistry, or
// the process-wide one) and dispatches native registration of every plugin
// on the render dispatcher.
func (h *Host) OnCreate() {
	if !h.transition("OnCreate", StateCreated) {
		return
	}

	h.mu.RLock()
	registry := h.registry
	h.mu.RUnlock()
	if registry == nil {
		registry = InitializePluginRegistry(h)
		h.mu.Lock()
		h.registry = registry
		h.mu.Unlock()
	}

	plugins := h.pluginsInOrder()
	h.render.Dispatch(func() {
		for _, np := range plugins {
			registerPluginWithNative(np.plugin, h.native, h.logger, h.metrics)
		}
	})
}

// OnAttach records owner as host listener when it implements HostListener.
func (h *Host) OnAttach(owner any) {
	if !h.transition("OnAttach", StateAttached) {
		return
	}
	listener, _ := owner.(HostListener)
	h.mu.Lock()
	h.listener = listener
	h.mu.Unlock()
}

// OnDetach clears the host listener.
func (h *Host) OnDetach() {
	if !h.transition("OnDetach", StateDetached) {
		return
	}
	h.mu.Lock()
	h.listener = nil
	h.mu.Unlock()
}

// OnSetupCompleted is called by the engine once its setup is done.
func (h *Host) OnSetupCompleted() {
	if !h.alive("OnSetupCompleted") {
		return
	}
	h.fanOut("OnSetupCompleted", func(p Plugin) { p.OnSetupCompleted() })
	if l := h.currentListener(); l != nil {
		safeHook(h.logger, h.metrics, "host_listener", "OnSetupCompleted", l.OnSetupCompleted)
	}
}

// OnMainLoopStarted is called by the engine when its main loop starts.
func (h *Host) OnMainLoopStarted() {
	if !h.alive("OnMainLoopStarted") {
		return
	}
	h.fanOut("OnMainLoopStarted", func(p Plugin) { p.OnMainLoopStarted() })
	if l := h.currentListener(); l != nil {
		safeHook(h.logger, h.metrics, "host_listener", "OnMainLoopStarted", l.OnMainLoopStarted)
	}
}

// OnActivityResult runs the container default, then every plugin.
func (h *Host) OnActivityResult(requestCode, resultCode int, data *Intent) {
	if !h.alive("OnActivityResult") {
		return
	}
	safeHook(h.logger, h.metrics, "container", "OnActivityResult", func() {
		h.container.OnActivityResult(requestCode, resultCode, data)
	})
	h.fanOut("OnMainActivityResult", func(p Plugin) {
		p.OnMainActivityResult(requestCode, resultCode, data)
	})
}

// OnRequestPermissionsResult runs the container default, then every plugin,
// then reports each permission to the native side.
func (h *Host) OnRequestPermissionsResult(requestCode int, permissions []string, grantResults []bool) {
	if !h.alive("OnRequestPermissionsResult") {
		return
	}
	safeHook(h.logger, h.metrics, "container", "OnRequestPermissionsResult", func() {
		h.container.OnRequestPermissionsResult(requestCode, permissions, grantResults)
	})
	h.fanOut("OnMainRequestPermissionsResult", func(p Plugin) {
		p.OnMainRequestPermissionsResult(requestCode, permissions, grantResults)
	})

	n := len(permissions)
	if len(grantResults) != n {
		h.logger.Warn("Permission result length mismatch",
			"permissions", len(permissions),
			"grant_results", len(grantResults))
		if len(grantResults) < n {
			n = len(grantResults)
		}
	}
	for i := 0; i < n; i++ {
		permission, granted := permissions[i], grantResults[i]
		h.notifyNative("NotifyPermissionResult", func() error {
			return h.native.NotifyPermissionResult(permission, granted)
		})
	}
}

// OnPause tells the engine focus was lost, then pauses every plugin.
func (h *Host) OnPause() {
	if !h.transition("OnPause", StatePaused) {
		return
	}
	h.notifyNative("NotifyFocusOut", h.native.NotifyFocusOut)
	h.fanOut("OnMainPause", func(p Plugin) { p.OnMainPause() })
}

// OnResume tells the engine focus was gained, then resumes every plugin.
func (h *Host) OnResume() {
	if !h.transition("OnResume", StateResumed) {
		return
	}
	h.notifyNative("NotifyFocusIn", h.native.NotifyFocusIn)
	h.fanOut("OnMainResume", func(p Plugin) { p.OnMainResume() })
}

// OnDestroy destroys every plugin, then tells the engine. Later events are
// dropped.
func (h *Host) OnDestroy() {
	if !h.alive("OnDestroy") {
		return
	}
	h.fanOut("OnMainDestroy", func(p Plugin) { p.OnMainDestroy() })
	h.notifyNative("NotifyDestroy", h.native.NotifyDestroy)
	h.transition("OnDestroy", StateDestroyed)
}

// OnBackPressed offers the event to every plugin, without stopping at the
// first one that handles it. When none did, the engine is notified.
func (h *Host) OnBackPressed() bool {
	if !h.alive("OnBackPressed") {
		return false
	}
	handled := false
	h.fanOut("OnMainBackPressed", func(p Plugin) {
		if p.OnMainBackPressed() {
			handled = true
		}
	})
	if !handled {
		h.notifyNative("NotifyBackPressed", h.native.NotifyBackPressed)
	}
	return handled
}

// OnNewIntent stores intent as the current one.
func (h *Host) OnNewIntent(intent *Intent) {
	if !h.alive("OnNewIntent") {
		return
	}
	h.mu.Lock()
	h.intent = intent
	h.mu.Unlock()
}

// Surface callbacks from the engine's render thread.

func (h *Host) OnGLDrawFrame() {
	if h.alive("OnGLDrawFrame") {
		h.fanOut("OnGLDrawFrame", func(p Plugin) { p.OnGLDrawFrame() })
	}
}

func (h *Host) OnGLSurfaceChanged(width, height int) {
	if h.alive("OnGLSurfaceChanged") {
		h.fanOut("OnGLSurfaceChanged", func(p Plugin) { p.OnGLSurfaceChanged(width, height) })
	}
}

func (h *Host) OnGLSurfaceCreated() {
	if h.alive("OnGLSurfaceCreated") {
		h.fanOut("OnGLSurfaceCreated", func(p Plugin) { p.OnGLSurfaceCreated() })
	}
}

func (h *Host) OnVkDrawFrame() {
	if h.alive("OnVkDrawFrame") {
		h.fanOut("OnVkDrawFrame", func(p Plugin) { p.OnVkDrawFrame() })
	}
}

func (h *Host) OnVkSurfaceChanged(width, height, format int) {
	if h.alive("OnVkSurfaceChanged") {
		h.fanOut("OnVkSurfaceChanged", func(p Plugin) { p.OnVkSurfaceChanged(width, height, format) })
	}
}

func (h *Host) OnVkSurfaceCreated() {
	if h.alive("OnVkSurfaceCreated") {
		h.fanOut("OnVkSurfaceCreated", func(p Plugin) { p.OnVkSurfaceCreated() })
	}
}
