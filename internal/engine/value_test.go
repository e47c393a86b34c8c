package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValueConstructorsAndAccessors(t *testing.T) {
	require.Equal(t, int32(-7), i32Value(-7).asI32())
	require.Equal(t, uint32(7), u32Value(7).asU32())
	require.Equal(t, int64(-7), i64Value(-7).asI64())
	require.Equal(t, uint64(7), u64Value(7).asU64())
	require.Equal(t, float32(1.5), f32Value(1.5).asF32())
	require.Equal(t, 2.5, f64Value(2.5).asF64())

	require.True(t, boolValue(true).asBool())
	require.False(t, boolValue(false).asBool())
}

func TestValueTypeTags(t *testing.T) {
	require.Equal(t, VmI32, i32Value(0).Type)
	require.Equal(t, VmI64, i64Value(0).Type)
	require.Equal(t, VmF32, f32Value(0).Type)
	require.Equal(t, VmF64, f64Value(0).Type)
	require.Equal(t, VmRef, refValue(nil).Type)
}

func TestValueIsRefNull(t *testing.T) {
	require.True(t, refValue(nil).isRefNull())
	require.False(t, refValue("x").isRefNull())
	require.False(t, i32Value(0).isRefNull())
}

func TestF32ValueBitPattern(t *testing.T) {
	v := f32Value(3.25)
	require.Equal(t, uint64(math.Float32bits(3.25)), v.Bits)
}

func TestZeroValueFor(t *testing.T) {
	require.Equal(t, VmI32, zeroValueFor(VmI32).Type)
	require.Equal(t, VmI64, zeroValueFor(VmI64).Type)
	require.Equal(t, VmF32, zeroValueFor(VmF32).Type)
	require.Equal(t, VmF64, zeroValueFor(VmF64).Type)
	require.Equal(t, VmRef, zeroValueFor(VmRef).Type)
	require.Equal(t, uint64(0), zeroValueFor(VmI32).Bits)
}
