// testing_helpers_test.go: shared fakes for the bridge tests
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"bytes"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

// verifyNoLeaks fails t if goroutines other than the process-wide time
// cache ticker are still running.
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t, goleak.IgnoreTopFunction("github.com/agilira/go-timecache.(*TimeCache).updateLoop"))
}

// nativeCall is one call observed by recordingNative.
type nativeCall struct {
	Method    string
	Plugin    string
	Name      string
	Signature string
	Params    []string
	Args      []Value
	Handle    *PluginHandle
}

// recordingNative records every Native call. failures maps "Method" or
// "Method:name" to the error that call returns.
type recordingNative struct {
	mu       sync.Mutex
	calls    []nativeCall
	failures map[string]error
}

func newRecordingNative() *recordingNative {
	return &recordingNative{failures: make(map[string]error)}
}

func (r *recordingNative) failOn(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[key] = err
}

func (r *recordingNative) record(c nativeCall) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, c)
	if err, ok := r.failures[c.Method+":"+c.Name]; ok {
		return err
	}
	if err, ok := r.failures[c.Method]; ok {
		return err
	}
	return nil
}

func (r *recordingNative) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = nil
}

func (r *recordingNative) Calls() []nativeCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]nativeCall, len(r.calls))
	copy(out, r.calls)
	return out
}

// Methods returns "Method" or "Method:name" for every call, in order.
func (r *recordingNative) Methods() []string {
	var out []string
	for _, c := range r.Calls() {
		if c.Name != "" {
			out = append(out, c.Method+":"+c.Name)
		} else {
			out = append(out, c.Method)
		}
	}
	return out
}

func (r *recordingNative) CallsTo(method string) []nativeCall {
	var out []nativeCall
	for _, c := range r.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (r *recordingNative) RegisterSingleton(plugin string, handle *PluginHandle) error {
	return r.record(nativeCall{Method: "RegisterSingleton", Plugin: plugin, Handle: handle})
}

func (r *recordingNative) RegisterOperation(plugin, operation, signature string) error {
	return r.record(nativeCall{Method: "RegisterOperation", Plugin: plugin, Name: operation, Signature: signature})
}

func (r *recordingNative) RegisterSignal(plugin, signal string, paramSignatures []string) error {
	return r.record(nativeCall{Method: "RegisterSignal", Plugin: plugin, Name: signal, Params: paramSignatures})
}

func (r *recordingNative) EmitSignal(plugin, signal string, args []Value) error {
	return r.record(nativeCall{Method: "EmitSignal", Plugin: plugin, Name: signal, Args: args})
}

func (r *recordingNative) NotifyDestroy() error {
	return r.record(nativeCall{Method: "NotifyDestroy"})
}
func (r *recordingNative) NotifyFocusIn() error {
	return r.record(nativeCall{Method: "NotifyFocusIn"})
}
func (r *recordingNative) NotifyFocusOut() error {
	return r.record(nativeCall{Method: "NotifyFocusOut"})
}
func (r *recordingNative) NotifyBackPressed() error {
	return r.record(nativeCall{Method: "NotifyBackPressed"})
}

func (r *recordingNative) NotifyPermissionResult(permission string, granted bool) error {
	return r.record(nativeCall{
		Method: "NotifyPermissionResult",
		Name:   permission,
		Args:   []Value{BoolValue(granted)},
	})
}

// eventLog collects "plugin:event" entries across plugins.
type eventLog struct {
	mu      sync.Mutex
	entries []string
}

func (e *eventLog) add(entry string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = append(e.entries, entry)
}

func (e *eventLog) Entries() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, len(e.entries))
	copy(out, e.entries)
	return out
}

// testPlugin records each hook into its event log. panicOn names a hook
// that panics instead.
type testPlugin struct {
	*BasePlugin

	name        string
	signals     []*SignalInfo
	ops         []Operation
	events      *eventLog
	backHandled bool
	panicOn     string

	registeredCalls atomic.Int32
}

func newTestPlugin(name string, events *eventLog) *testPlugin {
	return &testPlugin{name: name, events: events}
}

func (p *testPlugin) hit(event string) {
	if p.events != nil {
		p.events.add(p.name + ":" + event)
	}
	if p.panicOn == event {
		panic(fmt.Sprintf("%s exploded in %s", p.name, event))
	}
}

func (p *testPlugin) PluginName() string            { return p.name }
func (p *testPlugin) PluginSignals() []*SignalInfo  { return p.signals }
func (p *testPlugin) PluginOperations() []Operation { return p.ops }
func (p *testPlugin) OnPluginRegistered()           { p.registeredCalls.Add(1); p.hit("OnPluginRegistered") }
func (p *testPlugin) OnMainPause()                  { p.hit("OnMainPause") }
func (p *testPlugin) OnMainResume()                 { p.hit("OnMainResume") }
func (p *testPlugin) OnMainDestroy()                { p.hit("OnMainDestroy") }
func (p *testPlugin) OnSetupCompleted()             { p.hit("OnSetupCompleted") }
func (p *testPlugin) OnMainLoopStarted()            { p.hit("OnMainLoopStarted") }
func (p *testPlugin) OnGLSurfaceCreated()           { p.hit("OnGLSurfaceCreated") }
func (p *testPlugin) OnGLSurfaceChanged(w, h int) {
	p.hit(fmt.Sprintf("OnGLSurfaceChanged(%d,%d)", w, h))
}
func (p *testPlugin) OnVkSurfaceChanged(w, h, f int) {
	p.hit(fmt.Sprintf("OnVkSurfaceChanged(%d,%d,%d)", w, h, f))
}
func (p *testPlugin) OnMainActivityResult(req, res int, _ *Intent) {
	p.hit(fmt.Sprintf("OnMainActivityResult(%d,%d)", req, res))
}
func (p *testPlugin) OnMainRequestPermissionsResult(req int, perms []string, _ []bool) {
	p.hit(fmt.Sprintf("OnMainRequestPermissionsResult(%d,%d)", req, len(perms)))
}
func (p *testPlugin) OnMainBackPressed() bool {
	p.hit("OnMainBackPressed")
	return p.backHandled
}

// testBridge is a host wired to a recording native and test plugins through
// the process-wide registry.
type testBridge struct {
	host    *Host
	native  *recordingNative
	logger  *TestLogger
	metrics *DefaultMetricsCollector
	events  *eventLog
}

func newTestBridge(t *testing.T, plugins ...*testPlugin) *testBridge {
	t.Helper()
	resetPluginRegistry()
	t.Cleanup(resetPluginRegistry)

	b := &testBridge{
		native:  newRecordingNative(),
		logger:  NewTestLogger(),
		metrics: NewDefaultMetricsCollector(),
		events:  &eventLog{},
	}

	factories := NewFactoryRegistry()
	metadata := StaticMetadata{}
	for _, p := range plugins {
		p := p
		if p.events == nil {
			p.events = b.events
		}
		ref := "test.plugins." + p.name
		require.NoError(t, factories.Register(ref, func(h *Host) (Plugin, error) {
			p.BasePlugin = NewBasePlugin(h)
			return p, nil
		}))
		metadata = append(metadata, MetadataEntry{Name: DefaultPluginPrefix + p.name, Value: ref})
	}

	b.host = NewHost(b.native,
		WithLogger(b.logger),
		WithMetrics(b.metrics),
		WithFactories(factories),
		WithMetadataSource(metadata))
	return b
}

// attachedPlugin returns a plugin bound to a bare host for tests that do
// not go through discovery.
func attachedPlugin(t *testing.T, native Native, p *testPlugin) (*Host, *TestLogger, *DefaultMetricsCollector) {
	t.Helper()
	logger := NewTestLogger()
	metrics := NewDefaultMetricsCollector()
	host := NewHost(native, WithLogger(logger), WithMetrics(metrics))
	p.BasePlugin = NewBasePlugin(host)
	return host, logger, metrics
}

// syncBuffer is a bytes.Buffer safe for concurrent writers.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.String()
}
