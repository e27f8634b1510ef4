// provider.go: the capability contract every plugin satisfies
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

// CapabilityProvider is what a plugin tells the bridge about itself.
type CapabilityProvider interface {
	// PluginName is the name the plugin is registered under on the native
	// side. It must be non-empty and unique within the process.
	PluginName() string

	// PluginSignals lists the signals the plugin may emit.
	PluginSignals() []*SignalInfo

	// OnPluginRegistered is called once, after every operation and signal
	// has been accepted by the native side.
	OnPluginRegistered()
}

// OperationHandler implements an exposed operation. Arguments have already
// been checked against the declared parameter types.
type OperationHandler func(args []Value) (Value, error)

// Operation is a plugin method callable from native code.
type Operation struct {
	Name    string
	Params  []TypeDescriptor
	Return  TypeDescriptor
	Handler OperationHandler
}

// Signature returns the wire method signature of the operation.
func (o Operation) Signature() (string, error) {
	return MethodSignature(o.Params, o.Return)
}

// OperationProvider is implemented by plugins exposing callable operations.
// Only declared operations are registered with, and reachable from, native.
type OperationProvider interface {
	PluginOperations() []Operation
}
