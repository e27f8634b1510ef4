// Package gobridge connects a game engine's native core to host-side plugins.
//
// Plugins are declared in the host package metadata, instantiated through a
// factory table, registered with the native side together with their
// operations and signals, and then receive the host lifecycle events in
// declaration order. Signals flow back to the engine through a validated,
// typed emission path.
//
// Key Features:
//   - Metadata discovery from YAML manifests, AndroidManifest.xml or memory
//   - Typed signals and operations described with wire signatures
//   - One-shot native registration on the render dispatcher
//   - Deterministic lifecycle fan-out with per-plugin panic isolation
//   - In-process (NativeTable) and gRPC (RemoteNative) native boundaries
//   - Hot-reloadable configuration through Argus
//   - Structured errors, pluggable logging and Prometheus metrics
//
// Basic Usage:
//
//	type AdMob struct {
//		*gobridge.BasePlugin
//	}
//
//	func (a *AdMob) PluginName() string { return "admob" }
//
//	func (a *AdMob) PluginSignals() []*gobridge.SignalInfo {
//		return []*gobridge.SignalInfo{
//			gobridge.MustSignalInfo("ad_loaded", gobridge.TypeString),
//		}
//	}
//
//	func init() {
//		gobridge.RegisterFactory("com.example.AdMob", func(h *gobridge.Host) (gobridge.Plugin, error) {
//			return &AdMob{BasePlugin: gobridge.NewBasePlugin(h)}, nil
//		})
//	}
//
//	native := gobridge.NewNativeTable()
//	host := gobridge.NewHost(native,
//		gobridge.WithMetadataSource(gobridge.ManifestFileSource{Path: "manifest.yaml"}))
//	host.OnCreate()
//	host.OnAttach(nil)
//	host.OnResume()
//
// Error Handling:
//
// Every error returned by the package is a *errors.Error from
// github.com/agilira/go-errors carrying one of the ErrCode constants.
// Use HasErrorCode or ErrorCodeOf to branch on them.
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0
package gobridge
