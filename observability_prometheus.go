// observability_prometheus.go: Prometheus-backed MetricsCollector
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"net/http"
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricKind int

const (
	kindCounter metricKind = iota
	kindGauge
	kindHistogram
)

type metricDef struct {
	kind   metricKind
	help   string
	labels []string
}

// Series the bridge records, with their fixed label schema.
var bridgeMetricDefs = map[string]metricDef{
	MetricPluginsLoaded:       {kindGauge, "Number of plugins currently loaded in the registry", nil},
	MetricPluginLoadFailures:  {kindCounter, "Plugins skipped during discovery", []string{"reason"}},
	MetricSignalsEmitted:      {kindCounter, "Signals delivered to the native side", []string{"plugin", "signal"}},
	MetricSignalsDropped:      {kindCounter, "Signals rejected before delivery", []string{"plugin", "signal", "reason"}},
	MetricHookPanics:          {kindCounter, "Panics recovered from plugin hooks", []string{"plugin", "hook"}},
	MetricFanoutDuration:      {kindHistogram, "Duration of lifecycle fan-out to all plugins", []string{"event"}},
	MetricRegistrationSeconds: {kindHistogram, "Duration of native registration per plugin", []string{"plugin"}},
}

// PrometheusMetricsCollector records bridge metrics into a dedicated
// Prometheus registry. Vectors are created on first use. Names outside the
// bridge's own set take their label schema from the first observation.
type PrometheusMetricsCollector struct {
	namespace string
	registry  *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	gauges     map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
	schemas    map[string][]string
}

// NewPrometheusMetricsCollector creates a collector with its own registry.
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	return &PrometheusMetricsCollector{
		namespace:  namespace,
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		gauges:     make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		schemas:    make(map[string][]string),
	}
}

// Registry returns the underlying Prometheus registry.
func (p *PrometheusMetricsCollector) Registry() *prometheus.Registry {
	return p.registry
}

// Handler returns an HTTP handler exposing the registry for scraping.
func (p *PrometheusMetricsCollector) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusMetricsCollector) schema(name string, labels map[string]string) []string {
	if def, ok := bridgeMetricDefs[name]; ok {
		return def.labels
	}
	if s, ok := p.schemas[name]; ok {
		return s
	}
	s := make([]string, 0, len(labels))
	for k := range labels {
		s = append(s, k)
	}
	sort.Strings(s)
	p.schemas[name] = s
	return s
}

func help(name string) string {
	if def, ok := bridgeMetricDefs[name]; ok {
		return def.help
	}
	return name
}

// labelValues orders label values by schema. Missing labels become "".
// Labels outside the schema are dropped.
func labelValues(schema []string, labels map[string]string) []string {
	values := make([]string, len(schema))
	for i, k := range schema {
		values[i] = labels[k]
	}
	return values
}

// IncrementCounter implements MetricsCollector
func (p *PrometheusMetricsCollector) IncrementCounter(name string, labels map[string]string, value int64) {
	if value < 0 {
		return
	}
	p.mu.Lock()
	schema := p.schema(name, labels)
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      help(name),
		}, schema)
		if err := p.registry.Register(vec); err != nil {
			p.mu.Unlock()
			return
		}
		p.counters[name] = vec
	}
	p.mu.Unlock()

	vec.WithLabelValues(labelValues(schema, labels)...).Add(float64(value))
}

// SetGauge implements MetricsCollector
func (p *PrometheusMetricsCollector) SetGauge(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	schema := p.schema(name, labels)
	vec, ok := p.gauges[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      help(name),
		}, schema)
		if err := p.registry.Register(vec); err != nil {
			p.mu.Unlock()
			return
		}
		p.gauges[name] = vec
	}
	p.mu.Unlock()

	vec.WithLabelValues(labelValues(schema, labels)...).Set(value)
}

// RecordHistogram implements MetricsCollector
func (p *PrometheusMetricsCollector) RecordHistogram(name string, labels map[string]string, value float64) {
	p.mu.Lock()
	schema := p.schema(name, labels)
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Name:      name,
			Help:      help(name),
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 10),
		}, schema)
		if err := p.registry.Register(vec); err != nil {
			p.mu.Unlock()
			return
		}
		p.histograms[name] = vec
	}
	p.mu.Unlock()

	vec.WithLabelValues(labelValues(schema, labels)...).Observe(value)
}

// GetMetrics implements MetricsCollector. Counters and gauges are reported by
// value, histograms by their sample count and sum.
func (p *PrometheusMetricsCollector) GetMetrics() map[string]interface{} {
	out := make(map[string]interface{})
	families, err := p.registry.Gather()
	if err != nil {
		return out
	}
	for _, fam := range families {
		for _, m := range fam.GetMetric() {
			labels := make(map[string]string, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels[lp.GetName()] = lp.GetValue()
			}
			key := metricKey(fam.GetName(), labels)
			switch {
			case m.GetCounter() != nil:
				out[key] = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				out[key] = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				out[key+"_count"] = m.GetHistogram().GetSampleCount()
				out[key+"_sum"] = m.GetHistogram().GetSampleSum()
			}
		}
	}
	return out
}

// newMetricsCollector picks the collector implied by the metrics config.
func newMetricsCollector(cfg MetricsConfig) MetricsCollector {
	if !cfg.Enabled {
		return NoOpMetricsCollector{}
	}
	if cfg.Prometheus {
		return NewPrometheusMetricsCollector(cfg.Namespace)
	}
	return NewDefaultMetricsCollector()
}
