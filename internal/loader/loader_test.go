package loader

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbc-lang/sbcvm/internal/sbc"
)

func sampleModule() *sbc.Module {
	return &sbc.Module{
		Header: sbc.Header{EntryMethodID: 0},
		Types:  []sbc.Type{{Kind: sbc.KindI32}},
		Fields: nil,
		Globals: []sbc.Global{
			{TypeID: 0, InitConstID: sbc.NoInit},
		},
		Sigs: []sbc.Sig{
			{ParamCount: 0, ParamTypeStart: 0, RetTypeID: sbc.NoRetType},
		},
		ParamTypes: nil,
		Methods: []sbc.Method{
			{NameStr: sbc.NoInit, SigID: 0, LocalCount: 0},
		},
		Functions: []sbc.Function{
			{MethodID: 0, CodeOffset: 0, CodeSize: 2, StackMax: 1},
		},
		Code:      []byte{0x01, 0x00}, // HALT, NOP (values unchecked by loader)
		ConstPool: []byte{},
	}
}

func TestEncodeLoadRoundTrip(t *testing.T) {
	m := sampleModule()
	encoded := Encode(m)

	got, err := Load(bytes.NewReader(encoded))
	require.NoError(t, err)

	require.Equal(t, m.Header, got.Header)
	require.Equal(t, m.Types, got.Types)
	require.Equal(t, m.Globals, got.Globals)
	require.Equal(t, m.Sigs, got.Sigs)
	require.Equal(t, m.Methods, got.Methods)
	require.Equal(t, m.Functions, got.Functions)
	require.Equal(t, m.Code, got.Code)
	require.Equal(t, m.ConstPool, got.ConstPool)
}

func TestLoadRejectsBadMagic(t *testing.T) {
	_, err := Load(bytes.NewReader([]byte("XXXX")))
	require.Error(t, err)
}

func TestLoadRejectsTruncatedInput(t *testing.T) {
	m := sampleModule()
	encoded := Encode(m)
	_, err := Load(bytes.NewReader(encoded[:len(encoded)-3]))
	require.Error(t, err)
}

func TestLoadEmptyModule(t *testing.T) {
	m := &sbc.Module{Header: sbc.Header{EntryMethodID: sbc.NoEntry}}
	encoded := Encode(m)

	got, err := Load(bytes.NewReader(encoded))
	require.NoError(t, err)
	require.Equal(t, sbc.NoEntry, got.Header.EntryMethodID)
	require.Empty(t, got.Functions)
	require.Empty(t, got.Code)
}
