// config.go: bridge configuration model, loading and validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agilira/argus"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// BridgeConfig is the bridge's file configuration.
//
// Example YAML:
//
//	plugin_prefix: gobridge.plugin.v1.
//	disabled_plugins: ["debug-*"]
//	logging:
//	  level: info
//	metrics:
//	  enabled: true
//	  prometheus: true
//	  namespace: game
//	native:
//	  signal_buffer: 512
//	remote:
//	  endpoint: localhost:7070
//	  call_timeout: 2s
type BridgeConfig struct {
	PluginPrefix    string        `json:"plugin_prefix" yaml:"plugin_prefix"`
	DisabledPlugins []string      `json:"disabled_plugins,omitempty" yaml:"disabled_plugins,omitempty"`
	Logging         LoggingConfig `json:"logging" yaml:"logging"`
	Metrics         MetricsConfig `json:"metrics" yaml:"metrics"`
	Native          NativeConfig  `json:"native" yaml:"native"`
	Remote          RemoteConfig  `json:"remote" yaml:"remote"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

// MetricsConfig selects the metrics collector.
type MetricsConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Prometheus bool   `json:"prometheus" yaml:"prometheus"`
	Namespace  string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// NativeConfig configures the in-process native table.
type NativeConfig struct {
	SignalBuffer int `json:"signal_buffer" yaml:"signal_buffer"`
}

// RemoteConfig configures the gRPC native boundary. TLS is used when CAFile
// or CertFile is set; CertFile and KeyFile together enable mutual TLS.
type RemoteConfig struct {
	Endpoint    string        `json:"endpoint,omitempty" yaml:"endpoint,omitempty"`
	CallTimeout time.Duration `json:"call_timeout,omitempty" yaml:"call_timeout,omitempty"`
	APIKey      string        `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	CAFile      string        `json:"ca_file,omitempty" yaml:"ca_file,omitempty"`
	CertFile    string        `json:"cert_file,omitempty" yaml:"cert_file,omitempty"`
	KeyFile     string        `json:"key_file,omitempty" yaml:"key_file,omitempty"`
}

// DefaultBridgeConfig returns the configuration used when none is given.
func DefaultBridgeConfig() BridgeConfig {
	return BridgeConfig{
		PluginPrefix: DefaultPluginPrefix,
		Logging:      LoggingConfig{Level: "info"},
		Metrics:      MetricsConfig{Enabled: true, Namespace: "gobridge"},
		Native:       NativeConfig{SignalBuffer: DefaultSignalBuffer},
		Remote:       RemoteConfig{CallTimeout: DefaultRemoteCallTimeout},
	}
}

// Validate checks the configuration.
func (c BridgeConfig) Validate() error {
	if c.PluginPrefix == "" {
		return NewConfigValidationError("plugin_prefix cannot be empty", nil)
	}
	if !strings.HasSuffix(c.PluginPrefix, ".") {
		return NewConfigValidationError("plugin_prefix must end with '.'", nil)
	}
	for _, pattern := range c.DisabledPlugins {
		if _, err := glob.Compile(pattern); err != nil {
			return NewConfigValidationError("invalid disabled_plugins pattern "+pattern, err)
		}
	}
	if _, ok := ParseLogLevel(c.Logging.Level); !ok {
		return NewConfigValidationError("unknown logging.level "+c.Logging.Level, nil)
	}
	if c.Native.SignalBuffer < 0 {
		return NewConfigValidationError("native.signal_buffer cannot be negative", nil)
	}
	if c.Remote.CallTimeout < 0 {
		return NewConfigValidationError("remote.call_timeout cannot be negative", nil)
	}
	if (c.Remote.CertFile == "") != (c.Remote.KeyFile == "") {
		return NewConfigValidationError("remote.cert_file and remote.key_file must be set together", nil)
	}
	return nil
}

// withDefaults fills zero values from DefaultBridgeConfig.
func (c BridgeConfig) withDefaults() BridgeConfig {
	d := DefaultBridgeConfig()
	if c.PluginPrefix == "" {
		c.PluginPrefix = d.PluginPrefix
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Native.SignalBuffer == 0 {
		c.Native.SignalBuffer = d.Native.SignalBuffer
	}
	if c.Remote.CallTimeout == 0 {
		c.Remote.CallTimeout = d.Remote.CallTimeout
	}
	return c
}

// LoadBridgeConfig reads a YAML or JSON file (by extension), fills
// defaults and validates the result.
func LoadBridgeConfig(path string) (BridgeConfig, error) {
	if path == "" {
		return BridgeConfig{}, NewConfigValidationError("config path cannot be empty", nil)
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - path is provided by the host application
	if err != nil {
		return BridgeConfig{}, NewConfigParseError(path, err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return BridgeConfig{}, NewConfigValidationError("config file is empty", nil)
	}

	cfg, err := parseBridgeConfig(data, cleanPath)
	if err != nil {
		return BridgeConfig{}, err
	}
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return BridgeConfig{}, err
	}
	return cfg, nil
}

func parseBridgeConfig(data []byte, path string) (BridgeConfig, error) {
	cfg := BridgeConfig{Metrics: DefaultBridgeConfig().Metrics}

	var err error
	switch argus.DetectFormat(path) {
	case argus.FormatJSON:
		err = json.Unmarshal(data, &cfg)
	case argus.FormatYAML:
		err = yaml.Unmarshal(data, &cfg)
	default:
		return cfg, NewConfigParseError(path, NewConfigValidationError("unsupported config format", nil))
	}
	if err != nil {
		return cfg, NewConfigParseError(path, err)
	}
	return cfg, nil
}
