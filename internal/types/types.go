// Package types maps bytecode element types onto WebAssembly value types.
package types

import (
	"fmt"

	"ilwasm/internal/il"
)

// ValType is a WebAssembly number type.
type ValType uint8

const (
	// Invalid is the zero value and never emitted.
	Invalid ValType = iota
	I32
	I64
	F32
	F64
)

// Ptr is the value type used for object references and anything unmapped.
const Ptr = I32

func (v ValType) String() string {
	switch v {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	default:
		return fmt.Sprintf("ValType(%d)", v)
	}
}

// IsFloat reports whether v is f32 or f64.
func (v ValType) IsFloat() bool {
	return v == F32 || v == F64
}

// Size returns the number of bytes a value of this type occupies in memory.
func (v ValType) Size() int {
	switch v {
	case I64, F64:
		return 8
	default:
		return 4
	}
}

// ValueTypeOf maps 32/64-bit integers and floats to their value type.
// Reference and unknown types report false; callers fall back to Ptr.
func ValueTypeOf(t il.TypeRef) (ValType, bool) {
	switch t.Metadata {
	case il.MetaInt32, il.MetaUInt32:
		return I32, true
	case il.MetaInt64, il.MetaUInt64:
		return I64, true
	case il.MetaSingle:
		return F32, true
	case il.MetaDouble:
		return F64, true
	default:
		return Invalid, false
	}
}

// StorageOf is ValueTypeOf with the pointer fallback applied.
func StorageOf(t il.TypeRef) ValType {
	if v, ok := ValueTypeOf(t); ok {
		return v
	}
	return Ptr
}

// ResultOf returns the function result type, or false for void.
func ResultOf(t il.TypeRef) (ValType, bool) {
	if t.IsVoid() {
		return Invalid, false
	}
	return StorageOf(t), true
}

// SizeOf returns the in-memory size of a field of type t.
func SizeOf(t il.TypeRef) int {
	if v, ok := ValueTypeOf(t); ok {
		return v.Size()
	}
	return 4
}

// ZeroLiteral is the constant used to initialise globals of type v.
func ZeroLiteral(v ValType) string {
	if v.IsFloat() {
		return "0.0"
	}
	return "0"
}
