package sbc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUnify(t *testing.T) {
	tests := []struct {
		name    string
		a, b    ValType
		want    ValType
		wantOK  bool
	}{
		{"unknown/unknown", Unknown, Unknown, Unknown, true},
		{"unknown/i32", Unknown, I32, I32, true},
		{"i32/unknown", I32, Unknown, I32, true},
		{"i32/i32", I32, I32, I32, true},
		{"i32/i64 mismatch", I32, I64, Unknown, false},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Unify(tc.a, tc.b)
			require.Equal(t, tc.wantOK, ok)
			if ok {
				require.Equal(t, tc.want, got)
			}
		})
	}
}

func TestToVmType(t *testing.T) {
	require.Equal(t, VmI32, ToVmType(I8))
	require.Equal(t, VmI32, ToVmType(U32))
	require.Equal(t, VmI32, ToVmType(Bool))
	require.Equal(t, VmI32, ToVmType(Char))
	require.Equal(t, VmI64, ToVmType(I64))
	require.Equal(t, VmI64, ToVmType(U64))
	require.Equal(t, VmF32, ToVmType(F32))
	require.Equal(t, VmF64, ToVmType(F64))
	require.Equal(t, VmRef, ToVmType(Ref))
	require.Equal(t, VmUnknown, ToVmType(Unknown))
}

func TestResolveType(t *testing.T) {
	m := &Module{Types: []Type{
		{Kind: KindI32},
		{Kind: KindI128},
		{Kind: KindUnspecified, Flags: 1},
		{Kind: KindUnspecified},
		{Kind: KindString},
	}}

	require.Equal(t, I32, ResolveType(m, 0))
	require.Equal(t, Ref, ResolveType(m, 1)) // I128 boxed as Ref
	require.Equal(t, Ref, ResolveType(m, 2)) // Unspecified+ref flag
	require.Equal(t, Unknown, ResolveType(m, 3))
	require.Equal(t, Ref, ResolveType(m, 4))
	require.Equal(t, Unknown, ResolveType(m, 99)) // out of range
}

func TestFromIntrinsicType(t *testing.T) {
	require.Equal(t, I32, FromIntrinsicType(uint8(ITI32)))
	require.Equal(t, Unknown, FromIntrinsicType(uint8(ITAny)))
	require.Equal(t, Char, FromIntrinsicType(uint8(ITChar)))
	require.Equal(t, Unknown, FromIntrinsicType(0xff))
}

func TestMakeRefBits(t *testing.T) {
	bits := MakeRefBits([]ValType{I32, Ref, Ref, I64, Ref, Unknown, Unknown, Unknown, Ref})
	// bit i set iff types[i] == Ref: indices 1,2,4,8
	require.Equal(t, byte(0b00010110), bits[0])
	require.Equal(t, byte(0b00000001), bits[1])
}

func TestMakeRefBitsVm(t *testing.T) {
	bits := MakeRefBitsVm([]VmType{VmI32, VmRef, VmI64})
	require.Equal(t, byte(0b00000010), bits[0])
}

func TestReadName(t *testing.T) {
	pool := append([]byte("hello"), 0, 'x')
	require.Equal(t, "hello", ReadName(pool, 0))
	require.Equal(t, "", ReadName(pool, NoInit))
	require.Equal(t, "", ReadName(pool, uint32(len(pool))))
	require.Equal(t, "", ReadName(nil, 0))

	unterminated := []byte("abc")
	require.Equal(t, "", ReadName(unterminated, 0))
}

func TestReadU32AndI32(t *testing.T) {
	b := []byte{0x01, 0x00, 0x00, 0x00, 0xff, 0xff, 0xff, 0xff}
	v, ok := ReadU32(b, 0)
	require.True(t, ok)
	require.Equal(t, uint32(1), v)

	iv, ok := ReadI32(b, 4)
	require.True(t, ok)
	require.Equal(t, int32(-1), iv)

	_, ok = ReadU32(b, 6)
	require.False(t, ok)
}

func TestFunctionByMethodIDAndEntry(t *testing.T) {
	m := &Module{
		Functions: []Function{{MethodID: 3}, {MethodID: 7}},
		Header:    Header{EntryMethodID: 7},
	}
	idx, ok := m.FunctionByMethodID(7)
	require.True(t, ok)
	require.Equal(t, 1, idx)

	_, ok = m.FunctionByMethodID(99)
	require.False(t, ok)

	idx, ok = m.EntryFunctionIndex()
	require.True(t, ok)
	require.Equal(t, 1, idx)

	m.Header.EntryMethodID = NoEntry
	_, ok = m.EntryFunctionIndex()
	require.False(t, ok)
}
