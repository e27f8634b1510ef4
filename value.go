// value.go: the closed set of values that cross the native boundary
//
// Copyright (c) 2025 AGILira - A. Giordano
// Series: an AGILira library
// SPDX-License-Identifier: MPL-2.0

package gobridge

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ValueKind tags a Value.
type ValueKind uint8

const (
	ValueVoid ValueKind = iota
	ValueBool
	ValueInt
	ValueFloat
	ValueString
	ValueBytes
	ValueArray
	ValueMap
)

func (k ValueKind) String() string {
	switch k {
	case ValueBool:
		return "bool"
	case ValueInt:
		return "int"
	case ValueFloat:
		return "float"
	case ValueString:
		return "string"
	case ValueBytes:
		return "bytes"
	case ValueArray:
		return "array"
	case ValueMap:
		return "map"
	default:
		return "void"
	}
}

// Value is a tagged variant carrying signal and operation arguments. The
// zero Value is void.
type Value struct {
	kind ValueKind
	b    bool
	i    int64
	f    float64
	s    string
	raw  []byte
	arr  []Value
	m    map[string]Value
}

// Void returns the void value.
func Void() Value { return Value{} }

func BoolValue(v bool) Value      { return Value{kind: ValueBool, b: v} }
func IntValue(v int64) Value      { return Value{kind: ValueInt, i: v} }
func FloatValue(v float64) Value  { return Value{kind: ValueFloat, f: v} }
func StringValue(v string) Value  { return Value{kind: ValueString, s: v} }
func BytesValue(v []byte) Value   { return Value{kind: ValueBytes, raw: v} }
func ArrayValue(v ...Value) Value { return Value{kind: ValueArray, arr: v} }

// MapValue returns a dictionary value. A nil map becomes an empty one.
func MapValue(v map[string]Value) Value {
	if v == nil {
		v = map[string]Value{}
	}
	return Value{kind: ValueMap, m: v}
}

// Kind returns the value's tag.
func (v Value) Kind() ValueKind { return v.kind }

// IsVoid reports whether v is the void value.
func (v Value) IsVoid() bool { return v.kind == ValueVoid }

func (v Value) Bool() (bool, bool)     { return v.b, v.kind == ValueBool }
func (v Value) Int() (int64, bool)     { return v.i, v.kind == ValueInt }
func (v Value) Float() (float64, bool) { return v.f, v.kind == ValueFloat }
func (v Value) Str() (string, bool)    { return v.s, v.kind == ValueString }
func (v Value) Bytes() ([]byte, bool)  { return v.raw, v.kind == ValueBytes }
func (v Value) Array() ([]Value, bool) { return v.arr, v.kind == ValueArray }
func (v Value) Map() (map[string]Value, bool) {
	return v.m, v.kind == ValueMap
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case ValueVoid:
		return true
	case ValueBool:
		return v.b == o.b
	case ValueInt:
		return v.i == o.i
	case ValueFloat:
		return v.f == o.f
	case ValueString:
		return v.s == o.s
	case ValueBytes:
		return string(v.raw) == string(o.raw)
	case ValueArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case ValueMap:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, a := range v.m {
			b, ok := o.m[k]
			if !ok || !a.Equal(b) {
				return false
			}
		}
		return true
	}
	return false
}

func (v Value) String() string {
	switch v.kind {
	case ValueBool:
		return fmt.Sprintf("%t", v.b)
	case ValueInt:
		return fmt.Sprintf("%d", v.i)
	case ValueFloat:
		return fmt.Sprintf("%g", v.f)
	case ValueString:
		return fmt.Sprintf("%q", v.s)
	case ValueBytes:
		return fmt.Sprintf("bytes[%d]", len(v.raw))
	case ValueArray:
		parts := make([]string, len(v.arr))
		for i, e := range v.arr {
			parts[i] = e.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case ValueMap:
		keys := make([]string, 0, len(v.m))
		for k := range v.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + ": " + v.m[k].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		return "void"
	}
}

// AssignableTo reports whether v may be passed where t is declared.
//
// Every non-void value is assignable to java.lang.Object. Integers must fit
// the declared width; char accepts 0..65535. Void is never assignable.
func (v Value) AssignableTo(t TypeDescriptor) bool {
	if v.kind == ValueVoid {
		return false
	}
	if t.kind == KindReference && t.name == TypeObject.name {
		return true
	}
	switch v.kind {
	case ValueBool:
		return t.kind == KindBoolean || t.Equal(TypeBoxedBool)
	case ValueInt:
		switch t.kind {
		case KindInt:
			return v.i >= math.MinInt32 && v.i <= math.MaxInt32
		case KindLong:
			return true
		case KindShort:
			return v.i >= math.MinInt16 && v.i <= math.MaxInt16
		case KindByte:
			return v.i >= math.MinInt8 && v.i <= math.MaxInt8
		case KindChar:
			return v.i >= 0 && v.i <= math.MaxUint16
		case KindReference:
			if t.Equal(TypeBoxedInt) {
				return v.i >= math.MinInt32 && v.i <= math.MaxInt32
			}
			return t.Equal(TypeBoxedLong)
		}
		return false
	case ValueFloat:
		switch t.kind {
		case KindFloat, KindDouble:
			return true
		case KindReference:
			return t.Equal(TypeBoxedFloat) || t.Equal(TypeBoxedDbl)
		}
		return false
	case ValueString:
		return t.Equal(TypeString)
	case ValueBytes:
		return t.kind == KindArray && t.elem != nil && t.elem.kind == KindByte
	case ValueArray:
		elem, ok := t.Elem()
		if !ok {
			return false
		}
		for _, e := range v.arr {
			if !e.AssignableTo(elem) {
				return false
			}
		}
		return true
	case ValueMap:
		return t.Equal(TypeDictionary)
	}
	return false
}
