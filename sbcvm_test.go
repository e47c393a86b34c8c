package sbcvm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbc-lang/sbcvm"
	"github.com/sbc-lang/sbcvm/internal/engine"
	"github.com/sbc-lang/sbcvm/internal/opcode"
	"github.com/sbc-lang/sbcvm/internal/sbc"
)

type stubHost struct {
	stdout, stderr bytes.Buffer
	logs           []string
}

func (h *stubHost) WriteStdout(s string)              { h.stdout.WriteString(s) }
func (h *stubHost) WriteStderr(s string)              { h.stderr.WriteString(s) }
func (h *stubHost) Log(s string)                      { h.logs = append(h.logs, s) }
func (h *stubHost) MonoNs() int64                     { return 0 }
func (h *stubHost) WallNs() int64                     { return 0 }
func (h *stubHost) RandU32() uint32                   { return 42 }
func (h *stubHost) RandU64() uint64                   { return 42 }
func (h *stubHost) DlCall(string, string) (int64, float64, error) {
	return 0, 0, nil
}

// entryModule builds a single-function module whose entry body is code,
// with a void signature and no params/locals unless overridden.
func entryModule(code []byte, stackMax uint32) *sbc.Module {
	return &sbc.Module{
		Header: sbc.Header{EntryMethodID: 0},
		Sigs:   []sbc.Sig{{ParamCount: 0, RetTypeID: sbc.NoRetType}},
		Methods: []sbc.Method{
			{NameStr: sbc.NoInit, SigID: 0, LocalCount: 0},
		},
		Functions: []sbc.Function{
			{MethodID: 0, CodeOffset: 0, CodeSize: uint32(len(code)), StackMax: stackMax},
		},
		Code: code,
	}
}

func i32Operand(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func TestExecuteHaltsWithExitCode(t *testing.T) {
	code := []byte{byte(opcode.ConstI32)}
	code = append(code, i32Operand(2)...)
	code = append(code, byte(opcode.ConstI32))
	code = append(code, i32Operand(3)...)
	code = append(code, byte(opcode.AddI32))
	code = append(code, byte(opcode.Halt))

	m := entryModule(code, 2)
	host := &stubHost{}
	result := sbcvm.Execute(m, sbcvm.NewConfig(), host)

	require.Equal(t, engine.StatusHalted, result.Status)
	require.EqualValues(t, 5, result.ExitCode)
}

func TestExecuteTrapsOnDivideByZero(t *testing.T) {
	code := []byte{byte(opcode.ConstI32)}
	code = append(code, i32Operand(1)...)
	code = append(code, byte(opcode.ConstI32))
	code = append(code, i32Operand(0)...)
	code = append(code, byte(opcode.DivI32))
	code = append(code, byte(opcode.Halt))

	m := entryModule(code, 2)
	result := sbcvm.Execute(m, sbcvm.NewConfig(), &stubHost{})

	require.Equal(t, engine.StatusTrapped, result.Status)
	require.NotEmpty(t, result.Error)
}

func TestExecuteRejectsUnverifiableModule(t *testing.T) {
	// POP on an empty stack: a verify-time stack underflow.
	m := entryModule([]byte{byte(opcode.Pop), byte(opcode.Halt)}, 1)
	result := sbcvm.Execute(m, sbcvm.NewConfig(), &stubHost{})

	require.Equal(t, engine.StatusTrapped, result.Status)
	require.Contains(t, result.Error, "verify failed")
}

func TestExecuteVerifiedSkipsReVerification(t *testing.T) {
	m := entryModule([]byte{byte(opcode.Halt)}, 0)
	vr := sbcvm.BareVerifyResult(m)
	result := sbcvm.ExecuteVerified(m, vr, sbcvm.NewConfig(), &stubHost{})

	require.Equal(t, engine.StatusHalted, result.Status)
}

// jmpTableModule builds: CONST_I32 idx; JMP_TABLE blobID defRel; then three
// HALT-reachable blocks (case0 at pc 14, case1 at pc 20, default at pc 26),
// each pushing a distinct exit code before halting.
func jmpTableModule(idx int32) *sbc.Module {
	code := []byte{byte(opcode.ConstI32)}
	code = append(code, i32Operand(idx)...)
	code = append(code, byte(opcode.JmpTable))
	code = append(code, i32Operand(0)...)  // blobID: offset 0 in const pool
	code = append(code, i32Operand(12)...) // defRel: next(14) + 12 == pc 26
	// case0 @14
	code = append(code, byte(opcode.ConstI32))
	code = append(code, i32Operand(100)...)
	code = append(code, byte(opcode.Halt))
	// case1 @20
	code = append(code, byte(opcode.ConstI32))
	code = append(code, i32Operand(200)...)
	code = append(code, byte(opcode.Halt))
	// default @26
	code = append(code, byte(opcode.ConstI32))
	code = append(code, i32Operand(300)...)
	code = append(code, byte(opcode.Halt))

	constPool := []byte{6} // kind tag
	constPool = append(constPool, i32Operand(12)...) // length = 4 + count*4
	constPool = append(constPool, i32Operand(2)...)  // count
	constPool = append(constPool, i32Operand(14)...) // case0 target
	constPool = append(constPool, i32Operand(20)...) // case1 target

	m := entryModule(code, 1)
	m.ConstPool = constPool
	return m
}

func TestExecuteJmpTableDispatchesCasesAndDefault(t *testing.T) {
	cases := []struct {
		idx          int32
		wantExitCode int32
	}{
		{idx: 0, wantExitCode: 100},
		{idx: 1, wantExitCode: 200},
		{idx: 5, wantExitCode: 300}, // out of range -> default
		{idx: -1, wantExitCode: 300},
	}
	for _, c := range cases {
		m := jmpTableModule(c.idx)
		result := sbcvm.Execute(m, sbcvm.NewConfig(), &stubHost{})

		require.Equal(t, engine.StatusHalted, result.Status)
		require.EqualValues(t, c.wantExitCode, result.ExitCode)
	}
}

func TestExecuteWithJITPromotesAfterRepeatedCalls(t *testing.T) {
	// entry calls a trivial void callee past the tier0 threshold.
	calleeCode := []byte{byte(opcode.Ret)}
	entryCode := []byte{}

	callOp := append([]byte{byte(opcode.Call)}, i32Operand(1)...)
	callOp = append(callOp, 0) // arg count byte
	for i := 0; i < 40; i++ {
		entryCode = append(entryCode, callOp...)
	}
	entryCode = append(entryCode, byte(opcode.Halt))

	m := &sbc.Module{
		Header: sbc.Header{EntryMethodID: 0},
		Sigs: []sbc.Sig{
			{ParamCount: 0, RetTypeID: sbc.NoRetType},
		},
		Methods: []sbc.Method{
			{NameStr: sbc.NoInit, SigID: 0, LocalCount: 0},
			{NameStr: sbc.NoInit, SigID: 0, LocalCount: 0},
		},
		Functions: []sbc.Function{
			{MethodID: 0, CodeOffset: 0, CodeSize: uint32(len(entryCode)), StackMax: 0},
			{MethodID: 1, CodeOffset: uint32(len(entryCode)), CodeSize: uint32(len(calleeCode)), StackMax: 0},
		},
		Code: append(append([]byte{}, entryCode...), calleeCode...),
	}

	cfg := sbcvm.NewConfig().WithJIT(true).WithThresholds(8, 32, 256)
	result := sbcvm.Execute(m, cfg, &stubHost{})

	require.Equal(t, engine.StatusHalted, result.Status)
	require.Greater(t, result.CallCounts[1], 8)
	require.NotEqual(t, engine.TierNone, result.JitTiers[1])
}
