// plugin_handle.go: the singleton handle native code uses to call plugins
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

// PluginHandle is handed to Native.RegisterSingleton. It only reaches the
// operations the plugin declared; everything else on the plugin stays out
// of native reach.
type PluginHandle struct {
	name       string
	plugin     Plugin
	operations map[string]Operation
	signatures map[string]string
	order      []string
	logger     Logger
}

// newPluginHandle keeps the first declaration of each operation name and
// drops operations without a handler or a wire signature.
func newPluginHandle(name string, plugin Plugin, ops []Operation, logger Logger) *PluginHandle {
	h := &PluginHandle{
		name:       name,
		plugin:     plugin,
		operations: make(map[string]Operation, len(ops)),
		signatures: make(map[string]string, len(ops)),
		logger:     logger,
	}
	for _, op := range ops {
		if op.Name == "" || op.Handler == nil {
			logger.Error("Skipping operation without name or handler", "operation", op.Name)
			continue
		}
		if _, dup := h.operations[op.Name]; dup {
			logger.Warn("Duplicate operation declaration ignored", "operation", op.Name)
			continue
		}
		sig, err := op.Signature()
		if err != nil {
			logger.Error("Skipping operation with unencodable signature",
				"operation", op.Name,
				"error", err)
			continue
		}
		h.operations[op.Name] = op
		h.signatures[op.Name] = sig
		h.order = append(h.order, op.Name)
	}
	return h
}

// Name returns the plugin name the handle was registered under.
func (h *PluginHandle) Name() string { return h.name }

// Plugin returns the plugin behind the handle.
func (h *PluginHandle) Plugin() Plugin { return h.plugin }

// Operations returns the callable operations in declaration order.
func (h *PluginHandle) Operations() []Operation {
	out := make([]Operation, 0, len(h.order))
	for _, name := range h.order {
		out = append(out, h.operations[name])
	}
	return out
}

// Signature returns the wire signature of a callable operation.
func (h *PluginHandle) Signature(operation string) (string, bool) {
	sig, ok := h.signatures[operation]
	return sig, ok
}

// Call invokes a declared operation. Arguments are checked against the
// declared parameter types before the handler runs, and the result against
// the declared return type. A panicking handler is reported as
// OperationFailed.
func (h *PluginHandle) Call(operation string, args ...Value) (result Value, err error) {
	op, ok := h.operations[operation]
	if !ok {
		return Void(), NewOperationNotFoundError(h.name, operation)
	}
	if err := validateArgs(h.name+"."+operation, op.Params, args); err != nil {
		return Void(), err
	}

	defer recoverAsError(&err, func(cause error) error {
		h.logger.Error("Plugin operation panicked",
			"plugin", h.name,
			"operation", operation,
			"panic", cause,
			"stack", string(captureStack()))
		result = Void()
		return NewOperationFailedError(h.name, operation, cause)
	})

	result, err = op.Handler(args)
	if err != nil {
		return Void(), NewOperationFailedError(h.name, operation, err)
	}
	if op.Return.kind == KindVoid {
		return Void(), nil
	}
	if !result.AssignableTo(op.Return) {
		return Void(), NewTypeMismatchError(h.name+"."+operation, -1, op.Return.String())
	}
	return result, nil
}

func validateArgs(owner string, params []TypeDescriptor, args []Value) error {
	if len(args) != len(params) {
		return NewArityMismatchError(owner, len(params), len(args))
	}
	for i, arg := range args {
		if !arg.AssignableTo(params[i]) {
			return NewTypeMismatchError(owner, i, params[i].String())
		}
	}
	return nil
}
