// plugin_registry.go: host-side registry of loaded plugins
//
// This file implements the registry that discovers plugin declarations in
// the host metadata, instantiates each plugin through the factory table and
// keeps them in declaration order for lifecycle fan-out.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/go-timecache"
)

// PluginRegistry holds the plugins loaded for a host.
//
// Loading is best effort: a plugin that cannot be instantiated is logged
// and skipped, and a metadata read failure leaves the registry empty. The
// registry never fails as a whole.
type PluginRegistry struct {
	logger  Logger
	metrics MetricsCollector

	mu          sync.RWMutex
	plugins     map[string]Plugin
	order       []string
	descriptors []PluginDescriptor
	stats       RegistryStats
}

// RegistryStats summarizes a load.
type RegistryStats struct {
	Declared int       `json:"declared"`
	Loaded   int       `json:"loaded"`
	Failed   int       `json:"failed"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewPluginRegistry discovers and instantiates the plugins declared in the
// host metadata. It is not shared: use InitializePluginRegistry for the
// process-wide registry.
func NewPluginRegistry(host *Host) *PluginRegistry {
	pr := &PluginRegistry{
		logger:  DefaultLogger(),
		metrics: NoOpMetricsCollector{},
		plugins: make(map[string]Plugin),
	}
	if host == nil {
		pr.logger.Error("Plugin registry created without a host")
		return pr
	}
	pr.logger = host.logger
	pr.metrics = host.metrics
	pr.load(host)
	return pr
}

func (pr *PluginRegistry) load(host *Host) {
	cfg := host.Config()
	descriptors, err := DiscoverPlugins(host.metadata, DiscoveryConfig{
		Prefix:   cfg.PluginPrefix,
		Disabled: cfg.DisabledPlugins,
	}, pr.logger)
	if err != nil {
		pr.logger.Error("Unable to load plugins", "error", err)
		pr.metrics.IncrementCounter(MetricPluginLoadFailures, map[string]string{"reason": ErrCodeDiscoveryFailure}, 1)
		pr.finish(0, 0)
		return
	}

	failed := 0
	for _, d := range descriptors {
		plugin, err := host.factories.Instantiate(d, host)
		if err != nil {
			failed++
			pr.logger.Warn("Unable to load plugin",
				"plugin", d.Name,
				"implementation_ref", d.ImplementationRef,
				"error", err)
			pr.metrics.IncrementCounter(MetricPluginLoadFailures, map[string]string{"reason": ErrCodePluginInstantiation}, 1)
			continue
		}

		pr.add(d, plugin)
	}
	pr.finish(len(descriptors), failed)
}

func (pr *PluginRegistry) add(d PluginDescriptor, plugin Plugin) {
	if declared := safePluginName(plugin); declared != d.Name {
		pr.logger.Warn("Metadata plugin name doesn't match plugin name",
			"metadata_name", d.Name,
			"plugin_name", declared)
	}

	pr.mu.Lock()
	defer pr.mu.Unlock()
	pr.plugins[d.Name] = plugin
	pr.order = append(pr.order, d.Name)
	pr.descriptors = append(pr.descriptors, d)
	pr.logger.Info("Plugin loaded", "plugin", d.Name, "implementation_ref", d.ImplementationRef)
}

func (pr *PluginRegistry) finish(declared, failed int) {
	pr.mu.Lock()
	pr.stats = RegistryStats{
		Declared: declared,
		Loaded:   len(pr.order),
		Failed:   failed,
		LoadedAt: timecache.CachedTime(),
	}
	loaded := len(pr.order)
	pr.mu.Unlock()

	pr.metrics.SetGauge(MetricPluginsLoaded, nil, float64(loaded))
}

func safePluginName(p Plugin) (name string) {
	defer func() {
		if recover() != nil {
			name = ""
		}
	}()
	return p.PluginName()
}

// GetPlugin returns the plugin stored under its declared name.
func (pr *PluginRegistry) GetPlugin(name string) (Plugin, bool) {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	p, ok := pr.plugins[name]
	return p, ok
}

// AllPlugins returns the plugins in metadata order.
func (pr *PluginRegistry) AllPlugins() []Plugin {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	out := make([]Plugin, 0, len(pr.order))
	for _, name := range pr.order {
		out = append(out, pr.plugins[name])
	}
	return out
}

// Names returns the declared names in metadata order.
func (pr *PluginRegistry) Names() []string {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	out := make([]string, len(pr.order))
	copy(out, pr.order)
	return out
}

// Len returns the number of loaded plugins.
func (pr *PluginRegistry) Len() int {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return len(pr.order)
}

// Descriptors returns the descriptors of the loaded plugins.
func (pr *PluginRegistry) Descriptors() []PluginDescriptor {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	out := make([]PluginDescriptor, len(pr.descriptors))
	copy(out, pr.descriptors)
	return out
}

// Stats returns the load summary.
func (pr *PluginRegistry) Stats() RegistryStats {
	pr.mu.RLock()
	defer pr.mu.RUnlock()
	return pr.stats
}

var (
	registryMu      sync.Mutex
	registryOnce    = new(sync.Once)
	currentRegistry atomic.Pointer[PluginRegistry]
)

// InitializePluginRegistry builds the process-wide registry on first call.
// Later calls return that same registry whatever host they are given.
func InitializePluginRegistry(host *Host) *PluginRegistry {
	registryMu.Lock()
	once := registryOnce
	registryMu.Unlock()

	once.Do(func() {
		currentRegistry.Store(NewPluginRegistry(host))
	})
	return currentRegistry.Load()
}

// CurrentPluginRegistry returns the process-wide registry, or
// RegistryNotInitialized before InitializePluginRegistry has completed.
func CurrentPluginRegistry() (*PluginRegistry, error) {
	if r := currentRegistry.Load(); r != nil {
		return r, nil
	}
	return nil, NewRegistryNotInitializedError()
}

// resetPluginRegistry discards the process-wide registry. Tests only.
func resetPluginRegistry() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registryOnce = new(sync.Once)
	currentRegistry.Store(nil)
}
