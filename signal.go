// signal.go: signal descriptors declared by plugins
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"strings"
)

// SignalInfo describes a named event a plugin may emit and the parameter
// types it carries. Two descriptors are equal when their names are equal.
type SignalInfo struct {
	name            string
	paramTypes      []TypeDescriptor
	paramSignatures []string
}

// NewSignalInfo builds a descriptor. The name must be non-empty and every
// parameter type must have a wire signature.
func NewSignalInfo(name string, params ...TypeDescriptor) (*SignalInfo, error) {
	if name == "" {
		return nil, NewInvalidArgumentError("empty signal name")
	}

	types := make([]TypeDescriptor, len(params))
	sigs := make([]string, len(params))
	for i, p := range params {
		sig, ok := EncodeType(p)
		if !ok || p.kind == KindVoid {
			return nil, NewUnencodableTypeError("signal "+name, i)
		}
		types[i] = p
		sigs[i] = sig
	}

	return &SignalInfo{name: name, paramTypes: types, paramSignatures: sigs}, nil
}

// MustSignalInfo is NewSignalInfo for package-level declarations; it panics
// on error.
func MustSignalInfo(name string, params ...TypeDescriptor) *SignalInfo {
	s, err := NewSignalInfo(name, params...)
	if err != nil {
		panic(err)
	}
	return s
}

// Name returns the signal name.
func (s *SignalInfo) Name() string { return s.name }

// ParamTypes returns a copy of the declared parameter types.
func (s *SignalInfo) ParamTypes() []TypeDescriptor {
	out := make([]TypeDescriptor, len(s.paramTypes))
	copy(out, s.paramTypes)
	return out
}

// ParamSignatures returns a copy of the parameter wire signatures.
func (s *SignalInfo) ParamSignatures() []string {
	out := make([]string, len(s.paramSignatures))
	copy(out, s.paramSignatures)
	return out
}

// Arity is the number of declared parameters.
func (s *SignalInfo) Arity() int { return len(s.paramTypes) }

// Equal compares by name only.
func (s *SignalInfo) Equal(other *SignalInfo) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.name == other.name
}

// Validate checks args against the declared parameters.
func (s *SignalInfo) Validate(args []Value) error {
	if len(args) != len(s.paramTypes) {
		return NewArityMismatchError(s.name, len(s.paramTypes), len(args))
	}
	for i, arg := range args {
		if !arg.AssignableTo(s.paramTypes[i]) {
			return NewTypeMismatchError(s.name, i, s.paramTypes[i].String())
		}
	}
	return nil
}

func (s *SignalInfo) String() string {
	return s.name + "(" + strings.Join(s.paramSignatures, "") + ")"
}

// SignalSet is an insertion-ordered set of signals keyed by name.
type SignalSet struct {
	byName map[string]*SignalInfo
	order  []*SignalInfo
}

// NewSignalSet builds a set from signals; later duplicates are ignored.
func NewSignalSet(signals ...*SignalInfo) *SignalSet {
	set := &SignalSet{byName: make(map[string]*SignalInfo, len(signals))}
	for _, s := range signals {
		set.Add(s)
	}
	return set
}

// Add inserts s unless a signal with the same name is present. It reports
// whether s was inserted.
func (ss *SignalSet) Add(s *SignalInfo) bool {
	if s == nil {
		return false
	}
	if _, exists := ss.byName[s.name]; exists {
		return false
	}
	ss.byName[s.name] = s
	ss.order = append(ss.order, s)
	return true
}

// Get returns the signal with the given name.
func (ss *SignalSet) Get(name string) (*SignalInfo, bool) {
	s, ok := ss.byName[name]
	return s, ok
}

func (ss *SignalSet) Len() int { return len(ss.order) }

// List returns the signals in insertion order.
func (ss *SignalSet) List() []*SignalInfo {
	out := make([]*SignalInfo, len(ss.order))
	copy(out, ss.order)
	return out
}
