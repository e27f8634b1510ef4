// errors.go: structured error definitions for the go-bridge system
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	stderrors "errors"

	"github.com/agilira/go-errors"
)

// Error codes for the go-bridge system
const (
	// Discovery and registry errors (1000-1099)
	ErrCodeDiscoveryFailure          = "BRIDGE_1001"
	ErrCodePluginInstantiation       = "BRIDGE_1002"
	ErrCodeRegistryNotInitialized    = "BRIDGE_1003"
	ErrCodeDuplicatePlugin           = "BRIDGE_1004"
	ErrCodeInvalidImplementationRef  = "BRIDGE_1005"
	ErrCodeFactoryAlreadyRegistered  = "BRIDGE_1006"
	ErrCodeInvalidFactoryDeclaration = "BRIDGE_1007"

	// Signal errors (1100-1199)
	ErrCodeInvalidArgument    = "SIGNAL_1101"
	ErrCodeUnregisteredSignal = "SIGNAL_1102"
	ErrCodeArityMismatch      = "SIGNAL_1103"
	ErrCodeTypeMismatch       = "SIGNAL_1104"
	ErrCodeUnencodableType    = "SIGNAL_1105"
	ErrCodeSignalQueueFull    = "SIGNAL_1106"

	// Native boundary errors (1200-1299)
	ErrCodeNativeSymbolMissing    = "NATIVE_1201"
	ErrCodeSingletonNotRegistered = "NATIVE_1202"
	ErrCodeOperationNotFound      = "NATIVE_1203"
	ErrCodeOperationFailed        = "NATIVE_1204"
	ErrCodeInvalidSignature       = "NATIVE_1205"
	ErrCodeNativeClosed           = "NATIVE_1206"
	ErrCodeRemoteTransport        = "NATIVE_1207"

	// Configuration errors (1300-1399)
	ErrCodeConfigParseError      = "CONFIG_1301"
	ErrCodeConfigValidationError = "CONFIG_1302"
	ErrCodeConfigWatcherError    = "CONFIG_1303"
)

// Discovery and registry error constructors

func NewDiscoveryFailureError(cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeDiscoveryFailure, "Plugin discovery failed").
		WithUserMessage("Unable to read plugin metadata from the host package").
		WithSeverity("error")
}

func NewPluginInstantiationError(pluginName, implementationRef string, cause error) *errors.Error {
	if cause == nil {
		return errors.New(ErrCodePluginInstantiation, "Unable to load plugin").
			WithUserMessage("The plugin could not be instantiated").
			WithContext("plugin_name", pluginName).
			WithContext("implementation_ref", implementationRef).
			WithSeverity("warning")
	}
	return errors.Wrap(cause, ErrCodePluginInstantiation, "Unable to load plugin").
		WithUserMessage("The plugin could not be instantiated").
		WithContext("plugin_name", pluginName).
		WithContext("implementation_ref", implementationRef).
		WithSeverity("warning")
}

func NewRegistryNotInitializedError() *errors.Error {
	return errors.New(ErrCodeRegistryNotInitialized, "Plugin registry hasn't been initialized").
		WithUserMessage("InitializePluginRegistry must be called before accessing the registry").
		WithSeverity("error")
}

func NewDuplicatePluginError(pluginName string) *errors.Error {
	return errors.New(ErrCodeDuplicatePlugin, "Duplicate plugin declaration").
		WithUserMessage("A plugin with the same name has already been loaded").
		WithContext("plugin_name", pluginName).
		WithSeverity("warning")
}

func NewInvalidImplementationRefError(pluginName string) *errors.Error {
	return errors.New(ErrCodeInvalidImplementationRef, "Invalid plugin implementation reference").
		WithUserMessage("The plugin metadata entry has no implementation reference").
		WithContext("plugin_name", pluginName).
		WithSeverity("warning")
}

func NewFactoryAlreadyRegisteredError(implementationRef string) *errors.Error {
	return errors.New(ErrCodeFactoryAlreadyRegistered, "Factory already registered").
		WithUserMessage("A factory is already registered for this implementation reference").
		WithContext("implementation_ref", implementationRef).
		WithSeverity("error")
}

func NewInvalidFactoryDeclarationError(message string) *errors.Error {
	return errors.New(ErrCodeInvalidFactoryDeclaration, "Invalid factory declaration: "+message).
		WithUserMessage("Plugin factories need a non-empty reference and a constructor").
		WithSeverity("error")
}

// Signal error constructors

func NewInvalidArgumentError(message string) *errors.Error {
	return errors.New(ErrCodeInvalidArgument, "Invalid argument: "+message).
		WithUserMessage("An argument provided to the bridge is invalid").
		WithSeverity("error")
}

func NewUnregisteredSignalError(pluginName, signalName string) *errors.Error {
	return errors.New(ErrCodeUnregisteredSignal, "Signal "+signalName+" is not registered for this plugin").
		WithUserMessage("The signal must be declared by the plugin and registered before emission").
		WithContext("plugin_name", pluginName).
		WithContext("signal_name", signalName).
		WithSeverity("warning")
}

func NewArityMismatchError(signalName string, expected, actual int) *errors.Error {
	return errors.New(ErrCodeArityMismatch, "Invalid arguments count").
		WithUserMessage("The number of arguments does not match the declared parameters").
		WithContext("signal_name", signalName).
		WithContext("expected", expected).
		WithContext("actual", actual).
		WithSeverity("warning")
}

func NewTypeMismatchError(signalName string, index int, expected string) *errors.Error {
	return errors.New(ErrCodeTypeMismatch, "Invalid argument type").
		WithUserMessage("An argument is not assignable to the declared parameter type").
		WithContext("signal_name", signalName).
		WithContext("index", index).
		WithContext("expected", expected).
		WithSeverity("warning")
}

func NewUnencodableTypeError(what string, index int) *errors.Error {
	return errors.New(ErrCodeUnencodableType, "Type cannot be encoded").
		WithUserMessage("The type has no wire signature").
		WithContext("declaration", what).
		WithContext("index", index).
		WithSeverity("error")
}

func NewSignalQueueFullError(pluginName, signalName string, capacity int) *errors.Error {
	return errors.New(ErrCodeSignalQueueFull, "Signal queue is full").
		WithUserMessage("The native signal queue for this plugin is not being drained").
		WithContext("plugin_name", pluginName).
		WithContext("signal_name", signalName).
		WithContext("capacity", capacity).
		WithSeverity("warning").
		AsRetryable()
}

// Native boundary error constructors

func NewNativeSymbolMissingError(symbol string, cause error) *errors.Error {
	if cause == nil {
		return errors.New(ErrCodeNativeSymbolMissing, "Native symbol unavailable").
			WithUserMessage("The native library is not loaded or does not export this call").
			WithContext("symbol", symbol).
			WithSeverity("error")
	}
	return errors.Wrap(cause, ErrCodeNativeSymbolMissing, "Native symbol unavailable").
		WithUserMessage("The native library is not loaded or does not export this call").
		WithContext("symbol", symbol).
		WithSeverity("error")
}

func NewSingletonNotRegisteredError(pluginName string) *errors.Error {
	return errors.New(ErrCodeSingletonNotRegistered, "Plugin singleton is not registered").
		WithUserMessage("RegisterSingleton must be called before registering operations or signals").
		WithContext("plugin_name", pluginName).
		WithSeverity("error")
}

func NewOperationNotFoundError(pluginName, operationName string) *errors.Error {
	return errors.New(ErrCodeOperationNotFound, "Operation not found").
		WithUserMessage("The operation is not exposed by the plugin").
		WithContext("plugin_name", pluginName).
		WithContext("operation_name", operationName).
		WithSeverity("error")
}

func NewOperationFailedError(pluginName, operationName string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeOperationFailed, "Operation failed").
		WithUserMessage("The plugin operation returned an error").
		WithContext("plugin_name", pluginName).
		WithContext("operation_name", operationName).
		WithSeverity("error")
}

func NewInvalidSignatureError(signature string, cause error) *errors.Error {
	if cause == nil {
		return errors.New(ErrCodeInvalidSignature, "Invalid signature").
			WithUserMessage("The wire signature could not be decoded").
			WithContext("signature", signature).
			WithSeverity("error")
	}
	return errors.Wrap(cause, ErrCodeInvalidSignature, "Invalid signature").
		WithUserMessage("The wire signature could not be decoded").
		WithContext("signature", signature).
		WithSeverity("error")
}

func NewNativeClosedError() *errors.Error {
	return errors.New(ErrCodeNativeClosed, "Native table is closed").
		WithUserMessage("The native side has been shut down").
		WithSeverity("warning")
}

func NewRemoteTransportError(method string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeRemoteTransport, "Remote native call failed").
		WithUserMessage("The remote native bridge rejected or failed the call").
		WithContext("method", method).
		WithSeverity("error").
		AsRetryable()
}

// Configuration error constructors

func NewConfigParseError(path string, cause error) *errors.Error {
	return errors.Wrap(cause, ErrCodeConfigParseError, "Configuration parse error").
		WithUserMessage("Failed to parse configuration file").
		WithContext("config_path", path).
		WithSeverity("error")
}

func NewConfigValidationError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigValidationError, "Configuration validation error: "+message).
			WithUserMessage("Configuration validation failed").
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigValidationError, "Configuration validation error: "+message).
		WithUserMessage("Configuration validation failed").
		WithSeverity("error")
}

func NewConfigWatcherError(message string, cause error) *errors.Error {
	if cause != nil {
		return errors.Wrap(cause, ErrCodeConfigWatcherError, "Configuration watcher error: "+message).
			WithUserMessage("Configuration monitoring failed").
			WithSeverity("error")
	}
	return errors.New(ErrCodeConfigWatcherError, "Configuration watcher error: "+message).
		WithUserMessage("Configuration monitoring failed").
		WithSeverity("error")
}

// ErrorCodeOf returns the go-errors code carried by err, or "" when err is
// not (and does not wrap) a structured error.
func ErrorCodeOf(err error) string {
	var structured *errors.Error
	if stderrors.As(err, &structured) {
		return string(structured.ErrorCode())
	}
	return ""
}

// HasErrorCode reports whether err carries the given code.
func HasErrorCode(err error, code string) bool {
	return err != nil && ErrorCodeOf(err) == code
}
