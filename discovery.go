// discovery.go: plugin discovery from host package metadata
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"
)

// DefaultPluginPrefix marks metadata keys that declare plugins. The part
// after the prefix is the plugin name; the value is the implementation
// reference looked up in the factory table.
const DefaultPluginPrefix = "gobridge.plugin.v1."

// PluginDescriptor is one plugin declaration found in metadata.
type PluginDescriptor struct {
	Name              string `yaml:"name" json:"name"`
	ImplementationRef string `yaml:"implementation_ref" json:"implementation_ref"`
}

// MetadataEntry is a single key/value from the host package metadata.
type MetadataEntry struct {
	Name  string `yaml:"name" xml:"name,attr"`
	Value string `yaml:"value" xml:"value,attr"`
}

// MetadataSource yields the host package metadata in declaration order.
// Plugins are loaded, and receive lifecycle events, in this order.
type MetadataSource interface {
	Metadata() ([]MetadataEntry, error)
}

// StaticMetadata is an in-memory metadata source.
type StaticMetadata []MetadataEntry

// Metadata implements MetadataSource.
func (s StaticMetadata) Metadata() ([]MetadataEntry, error) {
	out := make([]MetadataEntry, len(s))
	copy(out, s)
	return out, nil
}

// MetadataFunc adapts a function to MetadataSource.
type MetadataFunc func() ([]MetadataEntry, error)

// Metadata implements MetadataSource.
func (f MetadataFunc) Metadata() ([]MetadataEntry, error) { return f() }

// ManifestFileSource reads metadata from a YAML file:
//
//	meta_data:
//	  - name: gobridge.plugin.v1.admob
//	    value: com.example.admob.AdMobPlugin
type ManifestFileSource struct {
	Path string
}

type manifestFile struct {
	MetaData []MetadataEntry `yaml:"meta_data"`
}

// Metadata implements MetadataSource.
func (m ManifestFileSource) Metadata() ([]MetadataEntry, error) {
	data, err := readManifest(m.Path)
	if err != nil {
		return nil, err
	}
	var manifest manifestFile
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, NewConfigParseError(m.Path, err)
	}
	return manifest.MetaData, nil
}

// AndroidManifestSource reads <meta-data> elements under <application> in
// an AndroidManifest.xml.
type AndroidManifestSource struct {
	Path string
}

type androidManifest struct {
	XMLName  xml.Name        `xml:"manifest"`
	MetaData []MetadataEntry `xml:"application>meta-data"`
}

// Metadata implements MetadataSource.
func (a AndroidManifestSource) Metadata() ([]MetadataEntry, error) {
	data, err := readManifest(a.Path)
	if err != nil {
		return nil, err
	}
	var manifest androidManifest
	if err := xml.Unmarshal(data, &manifest); err != nil {
		return nil, NewConfigParseError(a.Path, err)
	}
	return manifest.MetaData, nil
}

func readManifest(path string) ([]byte, error) {
	if path == "" {
		return nil, NewInvalidArgumentError("empty manifest path")
	}
	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - manifest path comes from host configuration
	if err != nil {
		return nil, err
	}
	return data, nil
}

// DiscoveryConfig controls which metadata entries become plugins.
type DiscoveryConfig struct {
	Prefix   string
	Disabled []string
}

// DiscoverPlugins extracts plugin descriptors from the source, in metadata
// order. Entries with an empty implementation reference, disabled names and
// repeated names are skipped with a log line. Only a failure to read the
// metadata is returned, as DiscoveryFailure.
func DiscoverPlugins(source MetadataSource, cfg DiscoveryConfig, logger Logger) ([]PluginDescriptor, error) {
	logger = NewLogger(logger)
	if source == nil {
		return nil, NewDiscoveryFailureError(NewInvalidArgumentError("nil metadata source"))
	}
	entries, err := source.Metadata()
	if err != nil {
		return nil, NewDiscoveryFailureError(err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = DefaultPluginPrefix
	}
	disabled := compileNamePatterns(cfg.Disabled, logger)

	seen := make(map[string]bool)
	descriptors := make([]PluginDescriptor, 0, len(entries))
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name, prefix) {
			continue
		}
		name := strings.TrimPrefix(entry.Name, prefix)
		if name == "" {
			logger.Warn("Plugin metadata entry without a plugin name", "key", entry.Name)
			continue
		}
		ref := strings.TrimSpace(entry.Value)
		if ref == "" {
			logger.Warn("Invalid plugin implementation reference",
				"plugin", name,
				"error", NewInvalidImplementationRefError(name))
			continue
		}
		if matchesAny(disabled, name) {
			logger.Info("Plugin disabled by configuration", "plugin", name)
			continue
		}
		if seen[name] {
			logger.Warn("Duplicate plugin declaration skipped",
				"plugin", name,
				"error", NewDuplicatePluginError(name))
			continue
		}
		seen[name] = true
		descriptors = append(descriptors, PluginDescriptor{Name: name, ImplementationRef: ref})
	}
	return descriptors, nil
}

func compileNamePatterns(patterns []string, logger Logger) []glob.Glob {
	compiled := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p)
		if err != nil {
			logger.Warn("Ignoring invalid plugin name pattern", "pattern", p, "error", err)
			continue
		}
		compiled = append(compiled, g)
	}
	return compiled
}

func matchesAny(patterns []glob.Glob, name string) bool {
	for _, g := range patterns {
		if g.Match(name) {
			return true
		}
	}
	return false
}
