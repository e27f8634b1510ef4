// factory_test.go: factory table registration and instantiation
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

func newPluginFactory(name string) Factory {
	return func(h *Host) (Plugin, error) {
		p := newTestPlugin(name, nil)
		p.BasePlugin = NewBasePlugin(h)
		return p, nil
	}
}

func TestFactoryRegistry_Register(t *testing.T) {
	fr := NewFactoryRegistry()

	require.NoError(t, fr.Register("b.Plugin", newPluginFactory("b")))
	require.NoError(t, fr.Register("a.Plugin", newPluginFactory("a")))

	err := fr.Register("a.Plugin", newPluginFactory("a"))
	assert.True(t, HasErrorCode(err, ErrCodeFactoryAlreadyRegistered))

	err = fr.Register("", newPluginFactory("x"))
	assert.True(t, HasErrorCode(err, ErrCodeInvalidFactoryDeclaration))

	err = fr.Register("nil.Plugin", nil)
	assert.True(t, HasErrorCode(err, ErrCodeInvalidFactoryDeclaration))

	assert.Equal(t, []string{"a.Plugin", "b.Plugin"}, fr.References())
	_, ok := fr.Lookup("a.Plugin")
	assert.True(t, ok)
}

func TestFactoryRegistry_Instantiate(t *testing.T) {
	fr := NewFactoryRegistry()
	require.NoError(t, fr.Register("ok", newPluginFactory("ok")))
	require.NoError(t, fr.Register("err", func(*Host) (Plugin, error) { return nil, fmt.Errorf("no sdk") }))
	require.NoError(t, fr.Register("panic", func(*Host) (Plugin, error) { panic("constructor exploded") }))
	require.NoError(t, fr.Register("nil", func(*Host) (Plugin, error) { return nil, nil }))
	require.NoError(t, fr.Register("nobase", func(*Host) (Plugin, error) { return newTestPlugin("nobase", nil), nil }))

	host := NewHost(newRecordingNative())

	p, err := fr.Instantiate(PluginDescriptor{Name: "ok", ImplementationRef: "ok"}, host)
	require.NoError(t, err)
	assert.Equal(t, "ok", p.PluginName())
	assert.Same(t, host, p.base().Host())

	for _, ref := range []string{"missing", "err", "panic", "nil", "nobase"} {
		t.Run(ref, func(t *testing.T) {
			p, err := fr.Instantiate(PluginDescriptor{Name: ref, ImplementationRef: ref}, host)
			assert.Nil(t, p)
			assert.True(t, HasErrorCode(err, ErrCodePluginInstantiation), "got %v", err)
		})
	}
}

func TestRegisterFactory_PanicsOnDuplicate(t *testing.T) {
	ref := "gobridge.test.DuplicateFactory"
	RegisterFactory(ref, newPluginFactory("dup"))
	assert.Panics(t, func() { RegisterFactory(ref, newPluginFactory("dup")) })

	_, ok := DefaultFactories().Lookup(ref)
	assert.True(t, ok)
}
