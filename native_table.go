// native_table.go: in-process engine side of the bridge
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"sort"
	"sync"
	"time"

	"github.com/agilira/go-timecache"
	"github.com/google/uuid"
)

// DefaultSignalBuffer is the per-plugin signal queue capacity.
const DefaultSignalBuffer = 256

// Signal is an emitted signal as received by the engine.
type Signal struct {
	ID        uuid.UUID
	Plugin    string
	Name      string
	Args      []Value
	EmittedAt time.Time
}

type nativeMethod struct {
	signature string
	params    []TypeDescriptor
	ret       TypeDescriptor
}

type nativeSingleton struct {
	handle  *PluginHandle
	methods map[string]nativeMethod
	signals map[string][]TypeDescriptor
	queue   chan Signal
}

// NativeTable implements Native inside the process. It keeps what the
// engine keeps for each plugin: the singleton handle, the method table and
// the signal table rebuilt from wire signatures, and a bounded queue of
// emitted signals per plugin.
type NativeTable struct {
	mu           sync.RWMutex
	singletons   map[string]*nativeSingleton
	closed       bool
	signalBuffer int
	logger       Logger

	notifyMu      sync.Mutex
	notifications []NativeNotification
	listener      func(NativeNotification)
}

// NativeTableOption configures a NativeTable.
type NativeTableOption func(*NativeTable)

// WithSignalBuffer sets the per-plugin queue capacity.
func WithSignalBuffer(n int) NativeTableOption {
	return func(t *NativeTable) {
		if n > 0 {
			t.signalBuffer = n
		}
	}
}

// WithNativeLogger sets the table's logger.
func WithNativeLogger(logger Logger) NativeTableOption {
	return func(t *NativeTable) {
		t.logger = NewLogger(logger)
	}
}

// WithNotificationListener installs a callback for host notifications.
func WithNotificationListener(fn func(NativeNotification)) NativeTableOption {
	return func(t *NativeTable) {
		t.listener = fn
	}
}

// NewNativeTable creates an empty table.
func NewNativeTable(opts ...NativeTableOption) *NativeTable {
	t := &NativeTable{
		singletons:   make(map[string]*nativeSingleton),
		signalBuffer: DefaultSignalBuffer,
		logger:       DefaultLogger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RegisterSingleton implements Native. Registering a name again replaces the
// previous entry and closes its queue. A nil handle is accepted for plugins
// living across a remote boundary; their operations are not callable here.
func (t *NativeTable) RegisterSingleton(plugin string, handle *PluginHandle) error {
	if plugin == "" {
		return NewInvalidArgumentError("empty plugin name")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return NewNativeClosedError()
	}
	if old, ok := t.singletons[plugin]; ok {
		close(old.queue)
	}
	t.singletons[plugin] = &nativeSingleton{
		handle:  handle,
		methods: make(map[string]nativeMethod),
		signals: make(map[string][]TypeDescriptor),
		queue:   make(chan Signal, t.signalBuffer),
	}
	t.logger.Debug("Native singleton registered", "plugin", plugin)
	return nil
}

// RegisterOperation implements Native.
func (t *NativeTable) RegisterOperation(plugin, operation, signature string) error {
	params, ret, err := ParseMethodSignature(signature)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.singletonLocked(plugin)
	if err != nil {
		return err
	}
	s.methods[operation] = nativeMethod{signature: signature, params: params, ret: ret}
	return nil
}

// RegisterSignal implements Native.
func (t *NativeTable) RegisterSignal(plugin, signal string, paramSignatures []string) error {
	types := make([]TypeDescriptor, len(paramSignatures))
	for i, sig := range paramSignatures {
		td, err := ParseTypeSignature(sig)
		if err != nil {
			return err
		}
		types[i] = td
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	s, err := t.singletonLocked(plugin)
	if err != nil {
		return err
	}
	s.signals[signal] = types
	return nil
}

// EmitSignal implements Native. The arguments are validated again against
// the table's own signal types, then queued without blocking.
func (t *NativeTable) EmitSignal(plugin, signal string, args []Value) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, err := t.singletonLocked(plugin)
	if err != nil {
		return err
	}
	types, ok := s.signals[signal]
	if !ok {
		return NewUnregisteredSignalError(plugin, signal)
	}
	if err := validateArgs(plugin+"."+signal, types, args); err != nil {
		return err
	}

	sig := Signal{
		ID:        uuid.New(),
		Plugin:    plugin,
		Name:      signal,
		Args:      args,
		EmittedAt: timecache.CachedTime(),
	}
	select {
	case s.queue <- sig:
		return nil
	default:
		return NewSignalQueueFullError(plugin, signal, cap(s.queue))
	}
}

func (t *NativeTable) singletonLocked(plugin string) (*nativeSingleton, error) {
	if t.closed {
		return nil, NewNativeClosedError()
	}
	s, ok := t.singletons[plugin]
	if !ok {
		return nil, NewSingletonNotRegisteredError(plugin)
	}
	return s, nil
}

// Signals returns the queue of signals emitted by plugin. The channel is
// closed when the table is closed or the plugin re-registers.
func (t *NativeTable) Signals(plugin string) (<-chan Signal, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, err := t.singletonLocked(plugin)
	if err != nil {
		return nil, err
	}
	return s.queue, nil
}

// Call invokes an operation registered by plugin, as engine code would.
func (t *NativeTable) Call(plugin, operation string, args ...Value) (Value, error) {
	t.mu.RLock()
	s, err := t.singletonLocked(plugin)
	if err != nil {
		t.mu.RUnlock()
		return Void(), err
	}
	_, registered := s.methods[operation]
	handle := s.handle
	t.mu.RUnlock()

	if !registered || handle == nil {
		return Void(), NewOperationNotFoundError(plugin, operation)
	}
	return handle.Call(operation, args...)
}

// Plugins returns the registered plugin names, sorted.
func (t *NativeTable) Plugins() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.singletons))
	for name := range t.singletons {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Operations returns operation name to wire signature for plugin.
func (t *NativeTable) Operations(plugin string) map[string]string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[string]string)
	if s, ok := t.singletons[plugin]; ok {
		for name, m := range s.methods {
			out[name] = m.signature
		}
	}
	return out
}

// SignalTypes returns the parameter types the table holds for a signal.
func (t *NativeTable) SignalTypes(plugin, signal string) ([]TypeDescriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.singletons[plugin]
	if !ok {
		return nil, false
	}
	types, ok := s.signals[signal]
	return types, ok
}

func (t *NativeTable) notify(n NativeNotification) error {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return NewNativeClosedError()
	}

	t.notifyMu.Lock()
	t.notifications = append(t.notifications, n)
	listener := t.listener
	t.notifyMu.Unlock()

	if listener != nil {
		defer withStackRecover(t.logger)()
		listener(n)
	}
	return nil
}

func (t *NativeTable) NotifyDestroy() error {
	return t.notify(NativeNotification{Event: EventDestroy})
}
func (t *NativeTable) NotifyFocusIn() error {
	return t.notify(NativeNotification{Event: EventFocusIn})
}
func (t *NativeTable) NotifyFocusOut() error {
	return t.notify(NativeNotification{Event: EventFocusOut})
}
func (t *NativeTable) NotifyBackPressed() error {
	return t.notify(NativeNotification{Event: EventBackPressed})
}

func (t *NativeTable) NotifyPermissionResult(permission string, granted bool) error {
	return t.notify(NativeNotification{Event: EventPermissionResult, Permission: permission, Granted: granted})
}

// Notifications returns every notification received so far.
func (t *NativeTable) Notifications() []NativeNotification {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()
	out := make([]NativeNotification, len(t.notifications))
	copy(out, t.notifications)
	return out
}

// Close closes every signal queue. Later calls fail with NativeClosed.
func (t *NativeTable) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	for _, s := range t.singletons {
		close(s.queue)
	}
	return nil
}
