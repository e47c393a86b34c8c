package engine

import (
	"math"

	"github.com/sbc-lang/sbcvm/internal/sbc"
)

// Value is a runtime operand: a VmType tag plus either a 64-bit numeric
// payload or a reference. Narrow integers and Bool/Char widen into the I32
// carrier per the spec's runtime VmType lattice.
type Value struct {
	Type VmType
	Bits uint64
	Ref  any
}

// VmType mirrors sbc.VmType; engine keeps its own alias so call sites don't
// need to import sbc for the common case.
type VmType = sbc.VmType

const (
	VmUnknown = sbc.VmUnknown
	VmI32     = sbc.VmI32
	VmI64     = sbc.VmI64
	VmF32     = sbc.VmF32
	VmF64     = sbc.VmF64
	VmRef     = sbc.VmRef
)

func i32Value(v int32) Value  { return Value{Type: VmI32, Bits: uint64(uint32(v))} }
func u32Value(v uint32) Value { return Value{Type: VmI32, Bits: uint64(v)} }
func i64Value(v int64) Value  { return Value{Type: VmI64, Bits: uint64(v)} }
func u64Value(v uint64) Value { return Value{Type: VmI64, Bits: v} }
func boolValue(v bool) Value {
	if v {
		return Value{Type: VmI32, Bits: 1}
	}
	return Value{Type: VmI32, Bits: 0}
}
func refValue(v any) Value { return Value{Type: VmRef, Ref: v} }
func f32Value(v float32) Value {
	return Value{Type: VmF32, Bits: uint64(math.Float32bits(v))}
}
func f64Value(v float64) Value { return Value{Type: VmF64, Bits: math.Float64bits(v)} }

func (v Value) asI32() int32  { return int32(uint32(v.Bits)) }
func (v Value) asU32() uint32 { return uint32(v.Bits) }
func (v Value) asI64() int64  { return int64(v.Bits) }
func (v Value) asU64() uint64 { return v.Bits }
func (v Value) asBool() bool  { return v.Bits != 0 }
func (v Value) asF32() float32 {
	return math.Float32frombits(uint32(v.Bits))
}
func (v Value) asF64() float64 { return math.Float64frombits(v.Bits) }
func (v Value) isRefNull() bool {
	return v.Type == VmRef && v.Ref == nil
}

// Frame is one activation record: the value-stack base it restores on
// return and its locals. ReturnPC is left zero by callFunction; a caller
// resumes through callFunction's own Go call stack.
type Frame struct {
	FuncIndex int
	ReturnPC  uint32
	StackBase int
	Locals    []Value
	CallDepth int
}
