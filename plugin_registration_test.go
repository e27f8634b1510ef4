// plugin_registration_test.go: native registration order and failure handling
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoOperation(name string) Operation {
	return Operation{
		Name:    name,
		Params:  []TypeDescriptor{TypeString},
		Return:  TypeString,
		Handler: func(args []Value) (Value, error) { return args[0], nil },
	}
}

func TestRegistration_Order(t *testing.T) {
	native := newRecordingNative()
	p := newTestPlugin("admob", &eventLog{})
	p.ops = []Operation{echoOperation("load"), echoOperation("show")}
	p.signals = []*SignalInfo{
		MustSignalInfo("on_loaded", TypeString),
		MustSignalInfo("on_reward", TypeString, TypeInt),
	}
	host, logger, metrics := attachedPlugin(t, native, p)

	require.True(t, registerPluginWithNative(p, host.Native(), logger, metrics))

	assert.Equal(t, []string{
		"RegisterSingleton",
		"RegisterOperation:load",
		"RegisterOperation:show",
		"RegisterSignal:on_loaded",
		"RegisterSignal:on_reward",
	}, native.Methods())

	ops := native.CallsTo("RegisterOperation")
	assert.Equal(t, "(Ljava/lang/String;)Ljava/lang/String;", ops[0].Signature)

	sigs := native.CallsTo("RegisterSignal")
	assert.Equal(t, []string{"Ljava/lang/String;", "I"}, sigs[1].Params)

	singleton := native.CallsTo("RegisterSingleton")[0]
	require.NotNil(t, singleton.Handle)
	assert.Equal(t, "admob", singleton.Handle.Name())

	assert.Equal(t, int32(1), p.registeredCalls.Load())
	assert.Equal(t, []string{"admob:OnPluginRegistered"}, p.events.Entries())
}

func TestRegistration_RunsOnce(t *testing.T) {
	native := newRecordingNative()
	p := newTestPlugin("once", nil)
	p.signals = []*SignalInfo{MustSignalInfo("a")}
	host, logger, metrics := attachedPlugin(t, native, p)

	assert.True(t, registerPluginWithNative(p, host.Native(), logger, metrics))
	assert.False(t, registerPluginWithNative(p, host.Native(), logger, metrics))

	assert.Len(t, native.CallsTo("RegisterSingleton"), 1)
	assert.Equal(t, int32(1), p.registeredCalls.Load())
}

func TestRegistration_DuplicateSignalsRegisteredOnce(t *testing.T) {
	native := newRecordingNative()
	p := newTestPlugin("dup", nil)
	p.signals = []*SignalInfo{
		MustSignalInfo("same", TypeInt),
		MustSignalInfo("same", TypeString),
		nil,
	}
	host, logger, metrics := attachedPlugin(t, native, p)

	require.True(t, registerPluginWithNative(p, host.Native(), logger, metrics))

	sigs := native.CallsTo("RegisterSignal")
	require.Len(t, sigs, 1)
	assert.Equal(t, []string{"I"}, sigs[0].Params, "first declaration wins")
	assert.True(t, logger.HasMessage("WARN", "Duplicate signal declaration ignored"))
}

func TestRegistration_SingletonFailureAbortsPlugin(t *testing.T) {
	native := newRecordingNative()
	native.failOn("RegisterSingleton", NewNativeSymbolMissingError("RegisterSingleton", nil))
	p := newTestPlugin("broken", nil)
	p.ops = []Operation{echoOperation("load")}
	p.signals = []*SignalInfo{MustSignalInfo("ready")}
	host, logger, metrics := attachedPlugin(t, native, p)

	assert.False(t, registerPluginWithNative(p, host.Native(), logger, metrics))

	assert.Equal(t, []string{"RegisterSingleton"}, native.Methods())
	assert.Equal(t, int32(0), p.registeredCalls.Load(), "OnPluginRegistered is skipped")
	assert.True(t, logger.HasMessage("ERROR", "Failed to register plugin singleton"))

	p.EmitSignal("ready")
	assert.Empty(t, native.CallsTo("EmitSignal"))
}

func TestRegistration_SignalFailureKeepsAcceptedSignals(t *testing.T) {
	native := newRecordingNative()
	native.failOn("RegisterSignal:second", fmt.Errorf("engine refused"))
	p := newTestPlugin("partial", nil)
	p.signals = []*SignalInfo{
		MustSignalInfo("first"),
		MustSignalInfo("second"),
		MustSignalInfo("third"),
	}
	host, logger, metrics := attachedPlugin(t, native, p)

	assert.False(t, registerPluginWithNative(p, host.Native(), logger, metrics))
	assert.Equal(t, []string{
		"RegisterSingleton",
		"RegisterSignal:first",
		"RegisterSignal:second",
	}, native.Methods())

	p.EmitSignal("first")
	p.EmitSignal("third")
	emits := native.CallsTo("EmitSignal")
	require.Len(t, emits, 1)
	assert.Equal(t, "first", emits[0].Name)
	assert.Equal(t, int32(0), p.registeredCalls.Load())
}

func TestRegistration_EmptyNameSkipped(t *testing.T) {
	native := newRecordingNative()
	p := newTestPlugin("", nil)
	host, logger, metrics := attachedPlugin(t, native, p)

	assert.False(t, registerPluginWithNative(p, host.Native(), logger, metrics))
	assert.Empty(t, native.Calls())
	assert.True(t, logger.HasMessage("ERROR", "Plugin declared an empty name, registration skipped"))
}

func TestRegistration_PanickingCallbackIsContained(t *testing.T) {
	native := newRecordingNative()
	p := newTestPlugin("fragile", &eventLog{})
	p.panicOn = "OnPluginRegistered"
	p.signals = []*SignalInfo{MustSignalInfo("ready")}
	host, logger, metrics := attachedPlugin(t, native, p)

	assert.True(t, registerPluginWithNative(p, host.Native(), logger, metrics))
	assert.True(t, logger.HasMessage("ERROR", "Plugin hook panicked"))
	assert.Equal(t, int64(1), metrics.Counter(MetricHookPanics, map[string]string{
		"plugin": "fragile", "hook": "OnPluginRegistered",
	}))

	p.EmitSignal("ready")
	assert.Len(t, native.CallsTo("EmitSignal"), 1)
}

func TestRegistration_RecordsDuration(t *testing.T) {
	native := newRecordingNative()
	p := newTestPlugin("timed", nil)
	host, logger, metrics := attachedPlugin(t, native, p)

	require.True(t, registerPluginWithNative(p, host.Native(), logger, metrics))

	snapshot := metrics.GetMetrics()
	assert.Equal(t, 1, snapshot[metricKey(MetricRegistrationSeconds, map[string]string{"plugin": "timed"})+"_count"])
}
