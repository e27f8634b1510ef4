// discovery_test.go: plugin discovery from metadata sources
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverPlugins(t *testing.T) {
	source := StaticMetadata{
		{Name: "com.google.android.gms.version", Value: "12451000"},
		{Name: DefaultPluginPrefix + "admob", Value: "com.example.AdMob"},
		{Name: DefaultPluginPrefix + "billing", Value: "  com.example.Billing  "},
		{Name: DefaultPluginPrefix + "broken", Value: ""},
		{Name: DefaultPluginPrefix, Value: "com.example.Nameless"},
		{Name: DefaultPluginPrefix + "admob", Value: "com.example.AdMobAgain"},
	}
	logger := NewTestLogger()

	got, err := DiscoverPlugins(source, DiscoveryConfig{}, logger)
	require.NoError(t, err)

	assert.Equal(t, []PluginDescriptor{
		{Name: "admob", ImplementationRef: "com.example.AdMob"},
		{Name: "billing", ImplementationRef: "com.example.Billing"},
	}, got)
	assert.True(t, logger.HasMessage("WARN", "Invalid plugin implementation reference"))
	assert.True(t, logger.HasMessage("WARN", "Plugin metadata entry without a plugin name"))
	assert.True(t, logger.HasMessage("WARN", "Duplicate plugin declaration skipped"))
}

func TestDiscoverPlugins_CustomPrefixAndDisabled(t *testing.T) {
	source := StaticMetadata{
		{Name: "game.plugin.analytics", Value: "a.Analytics"},
		{Name: "game.plugin.debug-overlay", Value: "a.Overlay"},
		{Name: "game.plugin.debug-console", Value: "a.Console"},
		{Name: DefaultPluginPrefix + "ignored", Value: "a.Ignored"},
	}
	logger := NewTestLogger()

	got, err := DiscoverPlugins(source, DiscoveryConfig{
		Prefix:   "game.plugin.",
		Disabled: []string{"debug-*", "[invalid"},
	}, logger)
	require.NoError(t, err)

	assert.Equal(t, []PluginDescriptor{{Name: "analytics", ImplementationRef: "a.Analytics"}}, got)
	assert.Equal(t, 2, logger.Count("INFO"))
	assert.True(t, logger.HasMessage("WARN", "Ignoring invalid plugin name pattern"))
}

func TestDiscoverPlugins_SourceFailure(t *testing.T) {
	_, err := DiscoverPlugins(MetadataFunc(func() ([]MetadataEntry, error) {
		return nil, fmt.Errorf("package manager unavailable")
	}), DiscoveryConfig{}, nil)
	assert.True(t, HasErrorCode(err, ErrCodeDiscoveryFailure))

	_, err = DiscoverPlugins(nil, DiscoveryConfig{}, nil)
	assert.True(t, HasErrorCode(err, ErrCodeDiscoveryFailure))
}

func TestManifestFileSource(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "manifest.yaml")
	content := `meta_data:
  - name: gobridge.plugin.v1.admob
    value: com.example.AdMob
  - name: other.key
    value: x
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	entries, err := ManifestFileSource{Path: path}.Metadata()
	require.NoError(t, err)
	assert.Equal(t, []MetadataEntry{
		{Name: "gobridge.plugin.v1.admob", Value: "com.example.AdMob"},
		{Name: "other.key", Value: "x"},
	}, entries)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("meta_data: [unterminated"), 0600))
	_, err = ManifestFileSource{Path: bad}.Metadata()
	assert.True(t, HasErrorCode(err, ErrCodeConfigParseError))

	_, err = ManifestFileSource{Path: filepath.Join(dir, "missing.yaml")}.Metadata()
	assert.Error(t, err)

	_, err = ManifestFileSource{}.Metadata()
	assert.True(t, HasErrorCode(err, ErrCodeInvalidArgument))
}

func TestAndroidManifestSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "AndroidManifest.xml")
	content := `<?xml version="1.0" encoding="utf-8"?>
<manifest xmlns:android="http://schemas.android.com/apk/res/android" package="com.example.game">
  <application android:label="Game">
    <meta-data android:name="gobridge.plugin.v1.admob" android:value="com.example.AdMob" />
    <meta-data android:name="gobridge.plugin.v1.billing" android:value="com.example.Billing" />
  </application>
</manifest>
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	got, err := DiscoverPlugins(AndroidManifestSource{Path: path}, DiscoveryConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, []PluginDescriptor{
		{Name: "admob", ImplementationRef: "com.example.AdMob"},
		{Name: "billing", ImplementationRef: "com.example.Billing"},
	}, got)
}
