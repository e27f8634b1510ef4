// native.go: the contract of the native engine side of the bridge
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

// Native is the engine core as seen from the host side. Every call may fail
// when the native library is missing or rejects the call; callers log the
// failure and carry on.
//
// Implementations: NativeTable (in-process) and RemoteNative (gRPC).
type Native interface {
	// RegisterSingleton hands the plugin's handle to the engine.
	RegisterSingleton(plugin string, handle *PluginHandle) error

	// RegisterOperation announces one callable operation with its wire
	// method signature.
	RegisterOperation(plugin, operation, signature string) error

	// RegisterSignal announces one signal with its parameter signatures.
	RegisterSignal(plugin, signal string, paramSignatures []string) error

	// EmitSignal delivers an already validated signal.
	EmitSignal(plugin, signal string, args []Value) error

	NotifyDestroy() error
	NotifyFocusIn() error
	NotifyFocusOut() error
	NotifyBackPressed() error
	NotifyPermissionResult(permission string, granted bool) error
}

// NativeEvent identifies a host notification forwarded to the engine.
type NativeEvent string

const (
	EventDestroy          NativeEvent = "destroy"
	EventFocusIn          NativeEvent = "focus_in"
	EventFocusOut         NativeEvent = "focus_out"
	EventBackPressed      NativeEvent = "back_pressed"
	EventPermissionResult NativeEvent = "permission_result"
)

// NativeNotification is a host notification as observed by the engine.
type NativeNotification struct {
	Event      NativeEvent
	Permission string
	Granted    bool
}
