package opcode

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetInfoKnownOpcode(t *testing.T) {
	info, ok := GetInfo(uint8(AddI32))
	require.True(t, ok)
	require.Equal(t, "ADD_I32", info.Name)
	require.Equal(t, uint8(0), info.OperandBytes)
	require.Equal(t, 2, info.Pops)
	require.Equal(t, 1, info.Pushes)
}

func TestGetInfoUnknownOpcode(t *testing.T) {
	_, ok := GetInfo(uint8(opCodeCount))
	require.False(t, ok)

	_, ok = GetInfo(0xff)
	require.False(t, ok)
}

func TestNameRoundTrip(t *testing.T) {
	require.Equal(t, "CONST_I32", Name(uint8(ConstI32)))
	require.Equal(t, "", Name(0xff))
}

func TestEveryRegisteredOpcodeHasAName(t *testing.T) {
	for b := 0; b < int(opCodeCount); b++ {
		info, ok := GetInfo(uint8(b))
		require.True(t, ok, "opcode %d should be registered", b)
		require.NotEmpty(t, info.Name)
	}
}

func TestOperandByteWidths(t *testing.T) {
	cases := map[OpCode]uint8{
		Nop:      0,
		Jmp:      4,
		JmpTable: 8,
		Call:     5,
		ConstI64: 8,
		LoadLocal: 4,
	}
	for op, want := range cases {
		info, ok := GetInfo(uint8(op))
		require.True(t, ok)
		require.Equal(t, want, info.OperandBytes, "opcode %s", info.Name)
	}
}
