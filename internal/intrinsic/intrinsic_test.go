package intrinsic

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbc-lang/sbcvm/internal/sbc"
)

func TestIsKnown(t *testing.T) {
	require.True(t, IsKnown(uint32(AbsI32)))
	require.True(t, IsKnown(uint32(DlCallF64)))
	require.False(t, IsKnown(uint32(idCount)))
	require.False(t, IsKnown(99999))
}

func TestSig(t *testing.T) {
	sig, ok := Sig(uint32(SqrtF64))
	require.True(t, ok)
	require.Equal(t, "SqrtF64", sig.Name)
	require.True(t, sig.Pure)
	require.Equal(t, sbc.ITF64, sig.Ret)
	require.Equal(t, []sbc.IntrinsicTypeCode{sbc.ITF64}, sig.Params)

	_, ok = Sig(uint32(idCount))
	require.False(t, ok)
}

func TestSignaturesImpure(t *testing.T) {
	sig, ok := Sig(uint32(WriteStdout))
	require.True(t, ok)
	require.False(t, sig.Pure)
}

func TestEvalPureIntMinMax(t *testing.T) {
	v, ok := EvalPure(AbsI32, []uint64{uint64(uint32(int32(-7)))})
	require.True(t, ok)
	require.Equal(t, int32(7), int32(uint32(v)))

	v, ok = EvalPure(MinI32, []uint64{uint64(uint32(3)), uint64(uint32(5))})
	require.True(t, ok)
	require.Equal(t, int32(3), int32(uint32(v)))

	v, ok = EvalPure(MaxI64, []uint64{uint64(int64(-1)), uint64(int64(9))})
	require.True(t, ok)
	require.Equal(t, int64(9), int64(v))
}

func TestEvalPureFloat(t *testing.T) {
	a := math.Float64bits(2.0)
	b := math.Float64bits(9.0)
	v, ok := EvalPure(MinF64, []uint64{a, b})
	require.True(t, ok)
	require.Equal(t, 2.0, math.Float64frombits(v))

	v, ok = EvalPure(SqrtF64, []uint64{math.Float64bits(16.0)})
	require.True(t, ok)
	require.Equal(t, 4.0, math.Float64frombits(v))

	af := uint64(math.Float32bits(1.5))
	bf := uint64(math.Float32bits(2.5))
	v, ok = EvalPure(MaxF32, []uint64{af, bf})
	require.True(t, ok)
	require.Equal(t, float32(2.5), math.Float32frombits(uint32(v)))
}

func TestEvalPureUnknownID(t *testing.T) {
	_, ok := EvalPure(WriteStdout, []uint64{0})
	require.False(t, ok)
}
