// signal_test.go: signal declarations and argument validation
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSignalInfo(t *testing.T) {
	s, err := NewSignalInfo("on_reward", TypeString, TypeInt)
	require.NoError(t, err)

	assert.Equal(t, "on_reward", s.Name())
	assert.Equal(t, 2, s.Arity())
	assert.Equal(t, []string{"Ljava/lang/String;", "I"}, s.ParamSignatures())
	assert.Equal(t, "on_reward(Ljava/lang/String;I)", s.String())
}

func TestNewSignalInfo_NoParams(t *testing.T) {
	s, err := NewSignalInfo("banner_loaded")
	require.NoError(t, err)

	assert.Equal(t, 0, s.Arity())
	assert.NotNil(t, s.ParamSignatures())
	assert.Empty(t, s.ParamSignatures())
	assert.Empty(t, s.ParamTypes())
	assert.Equal(t, "banner_loaded()", s.String())
}

func TestNewSignalInfo_Rejects(t *testing.T) {
	_, err := NewSignalInfo("")
	assert.True(t, HasErrorCode(err, ErrCodeInvalidArgument))

	blank, err := NewSignalInfo(" ")
	require.NoError(t, err, "only the empty name is rejected")
	assert.Equal(t, " ", blank.Name())

	_, err = NewSignalInfo("bad", TypeInt, TypeDescriptor{})
	assert.True(t, HasErrorCode(err, ErrCodeUnencodableType))

	_, err = NewSignalInfo("bad", TypeVoid)
	assert.True(t, HasErrorCode(err, ErrCodeUnencodableType))

	assert.Panics(t, func() { MustSignalInfo("") })
}

func TestSignalInfo_ParamsAreCopies(t *testing.T) {
	s := MustSignalInfo("x", TypeInt)
	sigs := s.ParamSignatures()
	sigs[0] = "J"
	types := s.ParamTypes()
	types[0] = TypeLong

	assert.Equal(t, []string{"I"}, s.ParamSignatures())
	assert.True(t, s.ParamTypes()[0].Equal(TypeInt))
}

func TestSignalInfo_Equal(t *testing.T) {
	a := MustSignalInfo("same", TypeInt)
	b := MustSignalInfo("same", TypeString)
	c := MustSignalInfo("other")

	assert.True(t, a.Equal(b), "identity is the name")
	assert.False(t, a.Equal(c))
	assert.Equal(t, 0, c.Arity())
	assert.Empty(t, c.ParamSignatures())

	var nilSignal *SignalInfo
	assert.True(t, nilSignal.Equal(nil))
	assert.False(t, a.Equal(nil))
}

func TestSignalInfo_Validate(t *testing.T) {
	s := MustSignalInfo("on_reward", TypeString, TypeInt)

	assert.NoError(t, s.Validate([]Value{StringValue("coins"), IntValue(10)}))

	err := s.Validate([]Value{StringValue("coins")})
	assert.True(t, HasErrorCode(err, ErrCodeArityMismatch))

	err = s.Validate([]Value{IntValue(10), StringValue("coins")})
	assert.True(t, HasErrorCode(err, ErrCodeTypeMismatch))

	// arity is checked before types
	err = s.Validate([]Value{IntValue(1), IntValue(2), IntValue(3)})
	assert.True(t, HasErrorCode(err, ErrCodeArityMismatch))
}

func TestSignalSet(t *testing.T) {
	first := MustSignalInfo("a", TypeInt)
	set := NewSignalSet(first, MustSignalInfo("b"), nil)

	assert.Equal(t, 2, set.Len())
	assert.False(t, set.Add(MustSignalInfo("a", TypeString)), "duplicate names are ignored")
	assert.False(t, set.Add(nil))

	got, ok := set.Get("a")
	require.True(t, ok)
	assert.Same(t, first, got)

	names := []string{}
	for _, s := range set.List() {
		names = append(names, s.Name())
	}
	assert.Equal(t, []string{"a", "b"}, names)
}
