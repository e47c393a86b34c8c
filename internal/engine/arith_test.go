package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbc-lang/sbcvm/internal/opcode"
)

func runArith(op opcode.OpCode, args ...Value) Value {
	ctx := &execContext{}
	for _, a := range args {
		ctx.push(a)
	}
	ctx.execArith(op)
	return ctx.pop()
}

func TestExecArithI32(t *testing.T) {
	require.Equal(t, int32(5), runArith(opcode.AddI32, i32Value(2), i32Value(3)).asI32())
	require.Equal(t, int32(-1), runArith(opcode.SubI32, i32Value(2), i32Value(3)).asI32())
	require.Equal(t, int32(6), runArith(opcode.MulI32, i32Value(2), i32Value(3)).asI32())
	require.Equal(t, int32(2), runArith(opcode.DivI32, i32Value(7), i32Value(3)).asI32())
	require.Equal(t, int32(1), runArith(opcode.ModI32, i32Value(7), i32Value(3)).asI32())
	require.Equal(t, int32(-5), runArith(opcode.NegI32, i32Value(5)).asI32())
	require.Equal(t, int32(6), runArith(opcode.IncI32, i32Value(5)).asI32())
	require.Equal(t, int32(4), runArith(opcode.DecI32, i32Value(5)).asI32())
}

func TestExecArithI32Overflow(t *testing.T) {
	// wraps modulo 2^32, never panics.
	require.Equal(t, int32(math.MinInt32), runArith(opcode.AddI32, i32Value(math.MaxInt32), i32Value(1)).asI32())
}

func TestExecArithDivideByZeroTraps(t *testing.T) {
	require.PanicsWithValue(t, trapPanic{ErrIntegerDivideByZero}, func() {
		runArith(opcode.DivI32, i32Value(1), i32Value(0))
	})
	require.PanicsWithValue(t, trapPanic{ErrIntegerDivideByZero}, func() {
		runArith(opcode.ModU64, u64Value(1), u64Value(0))
	})
}

func TestExecArithBitwiseI32(t *testing.T) {
	require.Equal(t, uint32(0b1000), runArith(opcode.AndI32, u32Value(0b1100), u32Value(0b1010)).asU32())
	require.Equal(t, uint32(0b1110), runArith(opcode.OrI32, u32Value(0b1100), u32Value(0b1010)).asU32())
	require.Equal(t, uint32(0b0110), runArith(opcode.XorI32, u32Value(0b1100), u32Value(0b1010)).asU32())
	require.Equal(t, uint32(8), runArith(opcode.ShlI32, u32Value(1), u32Value(3)).asU32())
	require.Equal(t, int32(-1), runArith(opcode.ShrI32, i32Value(-8), u32Value(3)).asI32())
}

func TestExecArithNarrowInt(t *testing.T) {
	require.Equal(t, int32(-128), runArith(opcode.IncI8, i32Value(127)).asI32())
	require.Equal(t, int32(127), runArith(opcode.DecI8, i32Value(-128)).asI32())
	require.Equal(t, int32(-128), runArith(opcode.NegI8, i32Value(-128)).asI32())
	require.Equal(t, int32(0), runArith(opcode.IncU8, i32Value(255)).asI32())
}

func TestExecArithI64(t *testing.T) {
	require.Equal(t, int64(5), runArith(opcode.AddI64, i64Value(2), i64Value(3)).asI64())
	require.Equal(t, int64(2), runArith(opcode.DivI64, i64Value(7), i64Value(3)).asI64())
	require.Equal(t, uint64(math.MaxUint64), runArith(opcode.ShrI64, u64Value(1<<63), u64Value(63)).asU64())
}

func TestExecArithFloat(t *testing.T) {
	require.InDelta(t, 5.0, float64(runArith(opcode.AddF32, f32Value(2), f32Value(3)).asF32()), 1e-9)
	require.InDelta(t, 6.0, runArith(opcode.MulF64, f64Value(2), f64Value(3)).asF64(), 1e-9)
	require.InDelta(t, -2.0, runArith(opcode.NegF64, f64Value(2)).asF64(), 1e-9)
}

func TestExecArithComparisons(t *testing.T) {
	require.True(t, runArith(opcode.CmpEqI32, i32Value(4), i32Value(4)).asBool())
	require.False(t, runArith(opcode.CmpEqI32, i32Value(4), i32Value(5)).asBool())
	require.True(t, runArith(opcode.CmpLtI32, i32Value(-1), i32Value(0)).asBool())
	require.False(t, runArith(opcode.CmpLtU32, i32Value(-1), i32Value(0)).asBool()) // -1 as u32 is huge, not < 0
	require.True(t, runArith(opcode.CmpGtF64, f64Value(2), f64Value(1)).asBool())
	require.True(t, runArith(opcode.CmpNeF32, f32Value(1), f32Value(2)).asBool())
}

func TestExecArithUnknownOpcodeTraps(t *testing.T) {
	require.PanicsWithValue(t, trapPanic{ErrUnsupportedOpcode}, func() {
		runArith(opcode.Nop)
	})
}
