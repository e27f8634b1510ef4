// observability.go: metrics collection for registration, signals and fan-out
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

// Metric names recorded by the bridge.
const (
	MetricPluginsLoaded       = "bridge_plugins_loaded"
	MetricPluginLoadFailures  = "bridge_plugin_load_failures_total"
	MetricSignalsEmitted      = "bridge_signals_emitted_total"
	MetricSignalsDropped      = "bridge_signals_dropped_total"
	MetricHookPanics          = "bridge_hook_panics_total"
	MetricFanoutDuration      = "bridge_fanout_duration_seconds"
	MetricRegistrationSeconds = "bridge_registration_duration_seconds"
)

// MetricsCollector defines the interface for collecting bridge metrics.
//
// Implementations must be safe for concurrent use: hooks run on the UI
// dispatcher while registration and signal emission run on the render
// dispatcher.
//
//	collector.IncrementCounter(MetricSignalsEmitted,
//	    map[string]string{"plugin": "admob", "signal": "on_loaded"}, 1)
type MetricsCollector interface {
	// Counter metrics
	IncrementCounter(name string, labels map[string]string, value int64)

	// Gauge metrics
	SetGauge(name string, labels map[string]string, value float64)

	// Histogram metrics
	RecordHistogram(name string, labels map[string]string, value float64)

	// Get current metrics snapshot
	GetMetrics() map[string]interface{}
}

// NoOpMetricsCollector discards every observation.
type NoOpMetricsCollector struct{}

func (NoOpMetricsCollector) IncrementCounter(string, map[string]string, int64)  {}
func (NoOpMetricsCollector) SetGauge(string, map[string]string, float64)        {}
func (NoOpMetricsCollector) RecordHistogram(string, map[string]string, float64) {}
func (NoOpMetricsCollector) GetMetrics() map[string]interface{} {
	return map[string]interface{}{}
}

// DefaultMetricsCollector provides a basic in-memory metrics collector
type DefaultMetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewDefaultMetricsCollector creates a new default metrics collector
func NewDefaultMetricsCollector() *DefaultMetricsCollector {
	return &DefaultMetricsCollector{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter implements MetricsCollector
func (dmc *DefaultMetricsCollector) IncrementCounter(name string, labels map[string]string, value int64) {
	dmc.mu.Lock()
	defer dmc.mu.Unlock()

	dmc.counters[metricKey(name, labels)] += value
}

// SetGauge implements MetricsCollector
func (dmc *DefaultMetricsCollector) SetGauge(name string, labels map[string]string, value float64) {
	dmc.mu.Lock()
	defer dmc.mu.Unlock()

	dmc.gauges[metricKey(name, labels)] = value
}

// RecordHistogram implements MetricsCollector
func (dmc *DefaultMetricsCollector) RecordHistogram(name string, labels map[string]string, value float64) {
	dmc.mu.Lock()
	defer dmc.mu.Unlock()

	key := metricKey(name, labels)
	dmc.histograms[key] = append(dmc.histograms[key], value)

	// Keep only last 1000 values to prevent memory growth
	if len(dmc.histograms[key]) > 1000 {
		dmc.histograms[key] = dmc.histograms[key][len(dmc.histograms[key])-1000:]
	}
}

// Counter returns the current value of a counter series.
func (dmc *DefaultMetricsCollector) Counter(name string, labels map[string]string) int64 {
	dmc.mu.RLock()
	defer dmc.mu.RUnlock()
	return dmc.counters[metricKey(name, labels)]
}

// Gauge returns the current value of a gauge series.
func (dmc *DefaultMetricsCollector) Gauge(name string, labels map[string]string) float64 {
	dmc.mu.RLock()
	defer dmc.mu.RUnlock()
	return dmc.gauges[metricKey(name, labels)]
}

// GetMetrics implements MetricsCollector
func (dmc *DefaultMetricsCollector) GetMetrics() map[string]interface{} {
	dmc.mu.RLock()
	defer dmc.mu.RUnlock()

	metrics := make(map[string]interface{})

	for k, v := range dmc.counters {
		metrics[k] = v
	}

	for k, v := range dmc.gauges {
		metrics[k] = v
	}

	for k, v := range dmc.histograms {
		if len(v) == 0 {
			continue
		}
		sum := 0.0
		minVal := v[0]
		maxVal := v[0]
		for _, val := range v {
			sum += val
			if val < minVal {
				minVal = val
			}
			if val > maxVal {
				maxVal = val
			}
		}

		metrics[k+"_count"] = len(v)
		metrics[k+"_sum"] = sum
		metrics[k+"_min"] = minVal
		metrics[k+"_max"] = maxVal
		metrics[k+"_avg"] = sum / float64(len(v))
	}

	return metrics
}

// metricKey builds a flat series key from name and sorted labels
func metricKey(name string, labels map[string]string) string {
	key := name
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key += fmt.Sprintf("_%s_%s", k, labels[k])
	}
	return key
}
