// signature.go: wire type signatures for values crossing the native boundary
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"strings"
)

// Kind classifies a TypeDescriptor.
type Kind uint8

const (
	// KindInvalid is the zero Kind. Descriptors of this kind have no encoding.
	KindInvalid Kind = iota
	KindBoolean
	KindByte
	KindChar
	KindDouble
	KindFloat
	KindInt
	KindLong
	KindShort
	KindVoid
	KindArray
	KindReference
)

var primitiveLetters = map[Kind]byte{
	KindBoolean: 'Z',
	KindByte:    'B',
	KindChar:    'C',
	KindDouble:  'D',
	KindFloat:   'F',
	KindInt:     'I',
	KindLong:    'J',
	KindShort:   'S',
	KindVoid:    'V',
}

var letterKinds = map[byte]Kind{
	'Z': KindBoolean,
	'B': KindByte,
	'C': KindChar,
	'D': KindDouble,
	'F': KindFloat,
	'I': KindInt,
	'J': KindLong,
	'S': KindShort,
	'V': KindVoid,
}

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindByte:
		return "byte"
	case KindChar:
		return "char"
	case KindDouble:
		return "double"
	case KindFloat:
		return "float"
	case KindInt:
		return "int"
	case KindLong:
		return "long"
	case KindShort:
		return "short"
	case KindVoid:
		return "void"
	case KindArray:
		return "array"
	case KindReference:
		return "reference"
	default:
		return "invalid"
	}
}

// TypeDescriptor describes a parameter or return type: a primitive, an
// array of another descriptor, or a reference to a named type. The zero
// value is unrepresentable.
type TypeDescriptor struct {
	kind Kind
	elem *TypeDescriptor
	name string
}

// Primitive descriptors.
var (
	TypeBoolean = TypeDescriptor{kind: KindBoolean}
	TypeByte    = TypeDescriptor{kind: KindByte}
	TypeChar    = TypeDescriptor{kind: KindChar}
	TypeDouble  = TypeDescriptor{kind: KindDouble}
	TypeFloat   = TypeDescriptor{kind: KindFloat}
	TypeInt     = TypeDescriptor{kind: KindInt}
	TypeLong    = TypeDescriptor{kind: KindLong}
	TypeShort   = TypeDescriptor{kind: KindShort}
	TypeVoid    = TypeDescriptor{kind: KindVoid}
)

// Well-known reference types.
var (
	TypeString     = Reference("java.lang.String")
	TypeObject     = Reference("java.lang.Object")
	TypeBoxedBool  = Reference("java.lang.Boolean")
	TypeBoxedInt   = Reference("java.lang.Integer")
	TypeBoxedLong  = Reference("java.lang.Long")
	TypeBoxedFloat = Reference("java.lang.Float")
	TypeBoxedDbl   = Reference("java.lang.Double")
	TypeDictionary = Reference("java.util.Map")
)

// ArrayOf returns the array descriptor with the given element type.
func ArrayOf(elem TypeDescriptor) TypeDescriptor {
	e := elem
	return TypeDescriptor{kind: KindArray, elem: &e}
}

// Reference returns the descriptor of a named type. The name is fully
// qualified with '.' separators.
func Reference(fullyQualifiedName string) TypeDescriptor {
	return TypeDescriptor{kind: KindReference, name: fullyQualifiedName}
}

// Kind returns the descriptor's kind.
func (t TypeDescriptor) Kind() Kind { return t.kind }

// Elem returns the element type of an array descriptor.
func (t TypeDescriptor) Elem() (TypeDescriptor, bool) {
	if t.kind != KindArray || t.elem == nil {
		return TypeDescriptor{}, false
	}
	return *t.elem, true
}

// Name returns the fully qualified name of a reference descriptor.
func (t TypeDescriptor) Name() string { return t.name }

// Equal reports structural equality.
func (t TypeDescriptor) Equal(other TypeDescriptor) bool {
	if t.kind != other.kind {
		return false
	}
	switch t.kind {
	case KindArray:
		if t.elem == nil || other.elem == nil {
			return t.elem == other.elem
		}
		return t.elem.Equal(*other.elem)
	case KindReference:
		return t.name == other.name
	default:
		return true
	}
}

func (t TypeDescriptor) String() string {
	switch t.kind {
	case KindArray:
		if t.elem == nil {
			return "invalid[]"
		}
		return t.elem.String() + "[]"
	case KindReference:
		return t.name
	default:
		return t.kind.String()
	}
}

// EncodeType returns the wire signature of t. The boolean is false when t
// (or any nested element) has no representation.
func EncodeType(t TypeDescriptor) (string, bool) {
	var b strings.Builder
	if !encodeInto(&b, t) {
		return "", false
	}
	return b.String(), true
}

func encodeInto(b *strings.Builder, t TypeDescriptor) bool {
	switch t.kind {
	case KindArray:
		if t.elem == nil {
			return false
		}
		b.WriteByte('[')
		return encodeInto(b, *t.elem)
	case KindReference:
		if t.name == "" {
			return false
		}
		b.WriteByte('L')
		b.WriteString(strings.ReplaceAll(t.name, ".", "/"))
		b.WriteByte(';')
		return true
	default:
		letter, ok := primitiveLetters[t.kind]
		if !ok {
			return false
		}
		b.WriteByte(letter)
		return true
	}
}

// MethodSignature encodes "(" + params + ")" + ret. Any unencodable
// component yields an UnencodableType error; index -1 denotes the return type.
func MethodSignature(params []TypeDescriptor, ret TypeDescriptor) (string, error) {
	var b strings.Builder
	b.WriteByte('(')
	for i, p := range params {
		if !encodeInto(&b, p) {
			return "", NewUnencodableTypeError("parameter", i)
		}
	}
	b.WriteByte(')')
	if !encodeInto(&b, ret) {
		return "", NewUnencodableTypeError("return", -1)
	}
	return b.String(), nil
}

// ParseTypeSignature decodes a single wire signature.
func ParseTypeSignature(sig string) (TypeDescriptor, error) {
	t, rest, ok := parseOne(sig)
	if !ok || rest != "" {
		return TypeDescriptor{}, NewInvalidSignatureError(sig, nil)
	}
	return t, nil
}

// ParseMethodSignature decodes "(params)ret".
func ParseMethodSignature(sig string) ([]TypeDescriptor, TypeDescriptor, error) {
	if !strings.HasPrefix(sig, "(") {
		return nil, TypeDescriptor{}, NewInvalidSignatureError(sig, nil)
	}
	rest := sig[1:]
	params := make([]TypeDescriptor, 0, 4)
	for {
		if rest == "" {
			return nil, TypeDescriptor{}, NewInvalidSignatureError(sig, nil)
		}
		if rest[0] == ')' {
			rest = rest[1:]
			break
		}
		t, tail, ok := parseOne(rest)
		if !ok || t.kind == KindVoid {
			return nil, TypeDescriptor{}, NewInvalidSignatureError(sig, nil)
		}
		params = append(params, t)
		rest = tail
	}
	ret, tail, ok := parseOne(rest)
	if !ok || tail != "" {
		return nil, TypeDescriptor{}, NewInvalidSignatureError(sig, nil)
	}
	return params, ret, nil
}

func parseOne(s string) (TypeDescriptor, string, bool) {
	if s == "" {
		return TypeDescriptor{}, "", false
	}
	switch s[0] {
	case '[':
		elem, rest, ok := parseOne(s[1:])
		if !ok || elem.kind == KindVoid {
			return TypeDescriptor{}, "", false
		}
		return ArrayOf(elem), rest, true
	case 'L':
		end := strings.IndexByte(s, ';')
		if end <= 1 {
			return TypeDescriptor{}, "", false
		}
		return Reference(strings.ReplaceAll(s[1:end], "/", ".")), s[end+1:], true
	default:
		kind, ok := letterKinds[s[0]]
		if !ok {
			return TypeDescriptor{}, "", false
		}
		return TypeDescriptor{kind: kind}, s[1:], true
	}
}
