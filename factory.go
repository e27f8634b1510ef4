// factory.go: plugin factory table keyed by implementation reference
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a plugin. The host is the only argument.
type Factory func(host *Host) (Plugin, error)

// FactoryRegistry maps implementation references (the metadata values) to
// plugin constructors.
//
// Plugins normally register themselves from init():
//
//	func init() {
//	    gobridge.RegisterFactory("com.example.admob.AdMobPlugin", NewAdMob)
//	}
type FactoryRegistry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewFactoryRegistry creates an empty factory table.
func NewFactoryRegistry() *FactoryRegistry {
	return &FactoryRegistry{factories: make(map[string]Factory)}
}

// Register adds a factory. References must be unique and non-empty.
func (fr *FactoryRegistry) Register(implementationRef string, factory Factory) error {
	if implementationRef == "" {
		return NewInvalidFactoryDeclarationError("empty implementation reference")
	}
	if factory == nil {
		return NewInvalidFactoryDeclarationError("nil factory for " + implementationRef)
	}

	fr.mu.Lock()
	defer fr.mu.Unlock()
	if _, exists := fr.factories[implementationRef]; exists {
		return NewFactoryAlreadyRegisteredError(implementationRef)
	}
	fr.factories[implementationRef] = factory
	return nil
}

// Lookup returns the factory for a reference.
func (fr *FactoryRegistry) Lookup(implementationRef string) (Factory, bool) {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	f, ok := fr.factories[implementationRef]
	return f, ok
}

// References returns the registered references, sorted.
func (fr *FactoryRegistry) References() []string {
	fr.mu.RLock()
	defer fr.mu.RUnlock()
	refs := make([]string, 0, len(fr.factories))
	for ref := range fr.factories {
		refs = append(refs, ref)
	}
	sort.Strings(refs)
	return refs
}

// Instantiate builds the plugin declared by d. Unknown references, factory
// errors, factory panics and nil results are PluginInstantiationFailure.
func (fr *FactoryRegistry) Instantiate(d PluginDescriptor, host *Host) (plugin Plugin, err error) {
	factory, ok := fr.Lookup(d.ImplementationRef)
	if !ok {
		return nil, NewPluginInstantiationError(d.Name, d.ImplementationRef,
			fmt.Errorf("no factory registered for %q", d.ImplementationRef))
	}

	defer recoverAsError(&err, func(cause error) error {
		plugin = nil
		return NewPluginInstantiationError(d.Name, d.ImplementationRef, cause)
	})

	plugin, err = factory(host)
	if err != nil {
		return nil, NewPluginInstantiationError(d.Name, d.ImplementationRef, err)
	}
	if plugin == nil || plugin.base() == nil {
		return nil, NewPluginInstantiationError(d.Name, d.ImplementationRef, nil)
	}
	return plugin, nil
}

var defaultFactories = NewFactoryRegistry()

// DefaultFactories returns the process-wide factory table.
func DefaultFactories() *FactoryRegistry {
	return defaultFactories
}

// RegisterFactory adds a factory to the process-wide table. It panics on a
// duplicate or invalid declaration, which is a programming error in init().
func RegisterFactory(implementationRef string, factory Factory) {
	if err := defaultFactories.Register(implementationRef, factory); err != nil {
		panic(err)
	}
}
