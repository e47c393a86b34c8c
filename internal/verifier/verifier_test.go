package verifier

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sbc-lang/sbcvm/internal/opcode"
	"github.com/sbc-lang/sbcvm/internal/sbc"
)

// voidModule returns a single-function module whose body is code, with a
// void (no-return) signature and no locals.
func voidModule(code []byte, stackMax uint32) *sbc.Module {
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

func TestVerifyAcceptsTrivialVoidReturn(t *testing.T) {
	m := voidModule([]byte{byte(opcode.Ret)}, 0)
	vr := Verify(m)
	require.True(t, vr.OK, vr.Error)
	require.Len(t, vr.Methods, 1)
}

func TestVerifyAcceptsConstAndPop(t *testing.T) {
	code := []byte{byte(opcode.ConstI32), 1, 0, 0, 0, byte(opcode.Pop), byte(opcode.Ret)}
	m := voidModule(code, 1)
	vr := Verify(m)
	require.True(t, vr.OK, vr.Error)
}

func TestVerifyRejectsUnknownOpcode(t *testing.T) {
	m := voidModule([]byte{0xfe}, 0)
	vr := Verify(m)
	require.False(t, vr.OK)
	require.Contains(t, vr.Error, "unknown opcode")
	require.Contains(t, vr.Error, "pc 0") // function-relative, boundary-scan failure
}

func TestVerifyRejectsOperandOutOfBounds(t *testing.T) {
	// CONST_I32 needs 4 operand bytes but only 2 are present.
	m := voidModule([]byte{byte(opcode.ConstI32), 0x00, 0x00}, 1)
	vr := Verify(m)
	require.False(t, vr.OK)
	require.Contains(t, vr.Error, "operand out of bounds")
}

func TestVerifyRejectsCodeNotEndingOnBoundary(t *testing.T) {
	// A NOP followed by a CONST_I32 whose four operand bytes run past the
	// declared CodeSize, which stops mid-instruction.
	code := []byte{byte(opcode.Nop), byte(opcode.ConstI32), 0, 0, 0}
	m := voidModule(code, 1)
	m.Functions[0].CodeSize = 3 // cuts CONST_I32's operand short of the table
	vr := Verify(m)
	require.False(t, vr.OK)
}

func TestVerifyRejectsStackUnderflow(t *testing.T) {
	m := voidModule([]byte{byte(opcode.Pop), byte(opcode.Ret)}, 1)
	vr := Verify(m)
	require.False(t, vr.OK)
	require.Contains(t, vr.Error, "stack underflow")
	// type-simulation failure: module-absolute pc and opcode name present.
	require.Contains(t, vr.Error, "[POP]")
}

func TestVerifyRejectsReturnArityMismatchForVoid(t *testing.T) {
	code := []byte{byte(opcode.ConstI32), 0, 0, 0, 0, byte(opcode.Ret)}
	m := voidModule(code, 1)
	vr := Verify(m)
	require.False(t, vr.OK)
	require.Contains(t, vr.Error, "return arity wrong for void signature")
}

func TestVerifyRejectsReturnTypeMismatch(t *testing.T) {
	code := []byte{byte(opcode.ConstF32), 0, 0, 0, 0, byte(opcode.Ret)}
	m := voidModule(code, 1)
	m.Types = []sbc.Type{{Kind: sbc.KindI32}}
	m.Sigs[0].RetTypeID = 0
	vr := Verify(m)
	require.False(t, vr.OK)
	require.Contains(t, vr.Error, "return type mismatch")
}

func TestVerifyRejectsUninitializedLocalLoad(t *testing.T) {
	code := []byte{byte(opcode.LoadLocal), 0, 0, 0, 0, byte(opcode.Pop), byte(opcode.Ret)}
	m := voidModule(code, 1)
	m.Methods[0].LocalCount = 1
	vr := Verify(m)
	require.False(t, vr.OK)
	require.Contains(t, vr.Error, "uninitialized local")
}

func TestVerifyAcceptsStoreThenLoadLocal(t *testing.T) {
	code := []byte{
		byte(opcode.ConstI32), 5, 0, 0, 0,
		byte(opcode.StoreLocal), 0, 0, 0, 0,
		byte(opcode.LoadLocal), 0, 0, 0, 0,
		byte(opcode.Pop),
		byte(opcode.Ret),
	}
	m := voidModule(code, 1)
	m.Methods[0].LocalCount = 1
	vr := Verify(m)
	require.True(t, vr.OK, vr.Error)
	require.Equal(t, sbc.VmI32, vr.Methods[0].Locals[0])
}

func TestBareSkipsTypeSimulation(t *testing.T) {
	// Bare accepts code that Verify would reject (stack underflow), since
	// it never runs the type-state simulation.
	m := voidModule([]byte{byte(opcode.Pop), byte(opcode.Ret)}, 1)
	m.Methods[0].LocalCount = 3

	vr := Bare(m)
	require.True(t, vr.OK)
	require.Len(t, vr.Methods[0].Locals, 3)
	for _, l := range vr.Methods[0].Locals {
		require.Equal(t, sbc.VmUnknown, l)
	}
	require.Empty(t, vr.Methods[0].StackMaps)
}

func le32(v int32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

// jmpTableModule builds: CONST_I32 idx; JMP_TABLE blobID defRel; then at
// pc 14/20/26 three HALT-reachable blocks (case0, case1, default). defRel
// is relative to JMP_TABLE's own next-pc (14).
func jmpTableModule(idx int32, defRel int32) *sbc.Module {
	code := []byte{byte(opcode.ConstI32)}
	code = append(code, le32(idx)...)
	code = append(code, byte(opcode.JmpTable))
	code = append(code, le32(0)...) // blobID: offset 0 in const pool
	code = append(code, le32(defRel)...)
	// case0 @14
	code = append(code, byte(opcode.ConstI32))
	code = append(code, le32(100)...)
	code = append(code, byte(opcode.Halt))
	// case1 @20
	code = append(code, byte(opcode.ConstI32))
	code = append(code, le32(200)...)
	code = append(code, byte(opcode.Halt))
	// default @26
	code = append(code, byte(opcode.ConstI32))
	code = append(code, le32(300)...)
	code = append(code, byte(opcode.Halt))

	constPool := []byte{6} // kind tag
	constPool = append(constPool, le32(12)...) // length = 4 + count*4
	constPool = append(constPool, le32(2)...)  // count
	constPool = append(constPool, le32(14)...) // case0 target
	constPool = append(constPool, le32(20)...) // case1 target

	m := voidModule(code, 1)
	m.ConstPool = constPool
	return m
}

func TestVerifyAcceptsJmpTableWithValidDefault(t *testing.T) {
	m := jmpTableModule(0, 12) // default -> pc 26, on boundary
	vr := Verify(m)
	require.True(t, vr.OK, vr.Error)
}

func TestVerifyRejectsJmpTableOutOfBoundsDefault(t *testing.T) {
	m := jmpTableModule(0, 1000) // default target far past the function
	vr := Verify(m)
	require.False(t, vr.OK)
	require.Contains(t, vr.Error, "jump target out of bounds or not on boundary")
}

func TestVerifyRejectsJmpTableNonBoundaryDefault(t *testing.T) {
	m := jmpTableModule(0, 13) // lands mid-instruction (pc 27, inside case2's CONST_I32)
	vr := Verify(m)
	require.False(t, vr.OK)
	require.Contains(t, vr.Error, "jump target out of bounds or not on boundary")
}

func TestVerifyRejectsNewClosureBadMethodID(t *testing.T) {
	code := []byte{byte(opcode.NewClosure)}
	code = append(code, le32(99)...) // no such method
	code = append(code, 0)           // upvalue count
	code = append(code, byte(opcode.Pop), byte(opcode.Ret))

	m := voidModule(code, 1)
	vr := Verify(m)
	require.False(t, vr.OK)
	require.Contains(t, vr.Error, "NEW_CLOSURE bad method id")
}

func TestVerifyAcceptsNewClosureValidMethodID(t *testing.T) {
	code := []byte{byte(opcode.NewClosure)}
	code = append(code, le32(0)...) // references this module's own method 0
	code = append(code, 0)          // upvalue count
	code = append(code, byte(opcode.Pop), byte(opcode.Ret))

	m := voidModule(code, 1)
	vr := Verify(m)
	require.True(t, vr.OK, vr.Error)
}
