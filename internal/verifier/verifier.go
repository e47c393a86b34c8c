// Package verifier implements the single-pass static verifier (C4): a
// boundary scan followed by an abstract-interpretation type-state
// simulation over every function's bytecode, emitting stack maps and
// reference-bit maps for safepoints and rejecting any module that could
// violate a stack, type, index, or control-flow invariant at runtime.
package verifier

import (
	"fmt"

	"github.com/dolthub/swiss"

	"github.com/sbc-lang/sbcvm/internal/intrinsic"
	"github.com/sbc-lang/sbcvm/internal/logging"
	"github.com/sbc-lang/sbcvm/internal/opcode"
	"github.com/sbc-lang/sbcvm/internal/sbc"
)

// StackMap is a snapshot of the abstract operand stack at a safepoint.
type StackMap struct {
	PC          uint32
	StackHeight int
	RefBits     []byte
}

// MethodVerifyInfo is the per-function artifact of a successful verify.
type MethodVerifyInfo struct {
	Locals        []sbc.VmType
	LocalsRefBits []byte
	StackMaps     []StackMap
}

// VerifyResult is the outcome of verifying an entire module.
type VerifyResult struct {
	OK             bool
	Error          string
	Methods        []MethodVerifyInfo
	GlobalsRefBits []byte
}

// Verify runs the C4 algorithm over every function of m.
func Verify(m *sbc.Module) VerifyResult {
	globalTypes := make([]sbc.VmType, len(m.Globals))
	for i, g := range m.Globals {
		globalTypes[i] = sbc.ToVmType(sbc.ResolveType(m, g.TypeID))
	}

	methods := make([]MethodVerifyInfo, len(m.Functions))
	for fi := range m.Functions {
		info, err := verifyFunction(m, fi, globalTypes)
		if err != "" {
			return VerifyResult{OK: false, Error: err}
		}
		methods[fi] = info
	}
	return VerifyResult{
		OK:             true,
		Methods:        methods,
		GlobalsRefBits: sbc.MakeRefBitsVm(globalTypes),
	}
}

// Bare builds the minimal per-function shape Execute needs to size call
// frames, without running the type-state simulation: every local is
// VmUnknown and no stack maps are produced. It exists only for the CLI's
// --no-verify bypass, where the caller has explicitly opted out of the
// safety the verifier would otherwise guarantee.
func Bare(m *sbc.Module) VerifyResult {
	globalTypes := make([]sbc.VmType, len(m.Globals))
	for i, g := range m.Globals {
		globalTypes[i] = sbc.ToVmType(sbc.ResolveType(m, g.TypeID))
	}
	methods := make([]MethodVerifyInfo, len(m.Functions))
	for fi, fn := range m.Functions {
		method := m.Methods[fn.MethodID]
		locals := make([]sbc.VmType, method.LocalCount)
		for i := range locals {
			locals[i] = sbc.VmUnknown
		}
		methods[fi] = MethodVerifyInfo{Locals: locals, LocalsRefBits: sbc.MakeRefBitsVm(locals)}
	}
	return VerifyResult{OK: true, Methods: methods, GlobalsRefBits: sbc.MakeRefBitsVm(globalTypes)}
}

// VerifyLogged runs Verify and reports its lifecycle through logger; a nil
// logger makes this identical to Verify.
func VerifyLogged(m *sbc.Module, logger *logging.Logger) VerifyResult {
	logger.VerifyStart(len(m.Functions))
	vr := Verify(m)
	logger.VerifyResult(vr.OK, vr.Error)
	return vr
}

type fnCtx struct {
	m        *sbc.Module
	fi       int
	fn       sbc.Function
	method   sbc.Method
	sig      sbc.Sig
	boundary map[uint32]bool
}

func verifyFunction(m *sbc.Module, fi int, globals []sbc.VmType) (MethodVerifyInfo, string) {
	fn := m.Functions[fi]
	if int(fn.MethodID) >= len(m.Methods) {
		return MethodVerifyInfo{}, scanFail(m, fi, fn, 0, "method id out of range")
	}
	method := m.Methods[fn.MethodID]
	if int(method.SigID) >= len(m.Sigs) {
		return MethodVerifyInfo{}, scanFail(m, fi, fn, 0, "signature id out of range")
	}
	sig := m.Sigs[method.SigID]

	ctx := &fnCtx{m: m, fi: fi, fn: fn, method: method, sig: sig, boundary: map[uint32]bool{}}

	end := fn.CodeOffset + fn.CodeSize
	if uint64(end) > uint64(len(m.Code)) {
		return MethodVerifyInfo{}, scanFail(m, fi, fn, 0, "code out of bounds")
	}

	// Pass 1: boundary scan.
	pc := fn.CodeOffset
	for pc < end {
		b := m.Code[pc]
		info, ok := opcode.GetInfo(b)
		if !ok {
			return MethodVerifyInfo{}, scanFail(m, fi, fn, pc, fmt.Sprintf("unknown opcode 0x%02x", b))
		}
		ctx.boundary[pc] = true
		next := pc + 1 + uint32(info.OperandBytes)
		if uint64(next) > uint64(end) {
			return MethodVerifyInfo{}, scanFail(m, fi, fn, pc, "operand out of bounds")
		}
		pc = next
	}
	if pc != end {
		return MethodVerifyInfo{}, scanFail(m, fi, fn, pc, "code does not end on a boundary")
	}

	return simulate(ctx, globals)
}

// resolvedParamTypes returns the abstract types of the signature's params.
func resolvedParamTypes(m *sbc.Module, sig sbc.Sig) []sbc.ValType {
	out := make([]sbc.ValType, sig.ParamCount)
	for i := range out {
		idx := sig.ParamTypeStart + uint32(i)
		if idx >= uint32(len(m.ParamTypes)) {
			out[i] = sbc.Unknown
			continue
		}
		out[i] = sbc.ResolveType(m, m.ParamTypes[idx])
	}
	return out
}

type mergeState struct {
	stack []sbc.ValType
}

func simulate(ctx *fnCtx, globals []sbc.VmType) (MethodVerifyInfo, string) {
	m, fn, method, sig := ctx.m, ctx.fn, ctx.method, ctx.sig

	params := resolvedParamTypes(m, sig)
	locals := make([]sbc.ValType, method.LocalCount)
	localInit := make([]bool, method.LocalCount)
	for i, t := range params {
		if i < len(locals) {
			locals[i] = t
			localInit[i] = true
		}
	}
	for i := len(params); i < len(locals); i++ {
		locals[i] = sbc.Unknown
		localInit[i] = false
	}

	retType := sbc.Unknown
	isVoid := sig.RetTypeID == sbc.NoRetType
	if !isVoid {
		retType = sbc.ResolveType(m, sig.RetTypeID)
	}

	merges := swiss.NewMap[uint32, mergeState](8)

	var stackMaps []StackMap
	stack := []sbc.ValType{}
	callDepth := 0

	pc := fn.CodeOffset
	end := fn.CodeOffset + fn.CodeSize

	fail := func(p uint32, reason string) string { return failAt(m, ctx.fi, fn, p, reason) }

	popN := func(n int) ([]sbc.ValType, bool) {
		if len(stack) < n {
			return nil, false
		}
		v := append([]sbc.ValType(nil), stack[len(stack)-n:]...)
		stack = stack[:len(stack)-n]
		return v, true
	}
	push := func(t sbc.ValType) string {
		stack = append(stack, t)
		if len(stack) > int(fn.StackMax) {
			return "stack exceeds stack_max"
		}
		return ""
	}

	applyMerge := func(targetPC uint32) string {
		if existing, ok := merges.Get(targetPC); ok {
			if len(existing.stack) != len(stack) {
				return "join point stack height mismatch"
			}
			merged := make([]sbc.ValType, len(stack))
			for i := range stack {
				u, ok := sbc.Unify(existing.stack[i], stack[i])
				if !ok {
					return "join point type mismatch"
				}
				merged[i] = u
			}
			merges.Put(targetPC, mergeState{stack: merged})
		} else {
			merges.Put(targetPC, mergeState{stack: append([]sbc.ValType(nil), stack...)})
		}
		return ""
	}

	for pc < end {
		b := m.Code[pc]
		op := opcode.OpCode(b)
		info, _ := opcode.GetInfo(b)
		opStart := pc
		operandPC := pc + 1
		next := pc + 1 + uint32(info.OperandBytes)

		switch op {
		case opcode.Line, opcode.ProfileStart, opcode.ProfileEnd:
			stackMaps = append(stackMaps, StackMap{
				PC:          opStart,
				StackHeight: len(stack),
				RefBits:     sbc.MakeRefBits(stack),
			})
		}

		switch op {
		case opcode.Nop, opcode.Enter, opcode.Leave, opcode.ProfileStart, opcode.ProfileEnd, opcode.Line:
			// no stack effect

		case opcode.CallCheck:
			if callDepth != 0 {
				return MethodVerifyInfo{}, fail(opStart, "CALLCHECK outside root")
			}

		case opcode.Halt, opcode.Trap:
			// non-fall-through, no stack requirement

		case opcode.Pop:
			if _, ok := popN(1); !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
		case opcode.Dup:
			v, ok := popN(1)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			push(v[0])
			push(v[0])
		case opcode.Dup2:
			v, ok := popN(2)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			push(v[0])
			push(v[1])
			push(v[0])
			push(v[1])
		case opcode.Swap:
			v, ok := popN(2)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			push(v[1])
			push(v[0])
		case opcode.Rot:
			v, ok := popN(3)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			push(v[1])
			push(v[2])
			push(v[0])

		case opcode.ConstI8, opcode.ConstI16, opcode.ConstI32:
			push(scalarForConst(op))
		case opcode.ConstI64:
			push(sbc.I64)
		case opcode.ConstU8, opcode.ConstU16, opcode.ConstU32:
			push(scalarForConst(op))
		case opcode.ConstU64:
			push(sbc.U64)
		case opcode.ConstF32:
			push(sbc.F32)
		case opcode.ConstF64:
			push(sbc.F64)
		case opcode.ConstBool:
			push(sbc.Bool)
		case opcode.ConstChar:
			push(sbc.Char)
		case opcode.ConstI128, opcode.ConstU128:
			push(sbc.Ref)
		case opcode.ConstNull:
			push(sbc.Ref)
		case opcode.ConstString:
			idx, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "operand out of bounds")
			}
			if idx == sbc.NoInit || int(idx)+8 > len(m.ConstPool) {
				return MethodVerifyInfo{}, fail(opStart, "CONST_STRING constant-pool reference too short")
			}
			push(sbc.Ref)

		case opcode.LoadLocal:
			idx, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok || idx >= uint32(len(locals)) {
				return MethodVerifyInfo{}, fail(opStart, "local index out of range")
			}
			if !localInit[idx] {
				return MethodVerifyInfo{}, fail(opStart, "load of uninitialized local")
			}
			push(locals[idx])
		case opcode.StoreLocal:
			idx, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok || idx >= uint32(len(locals)) {
				return MethodVerifyInfo{}, fail(opStart, "local index out of range")
			}
			v, ok := popN(1)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			if localInit[idx] && locals[idx] != sbc.Unknown && v[0] != sbc.Unknown && locals[idx] != v[0] {
				return MethodVerifyInfo{}, fail(opStart, "store type mismatch")
			}
			if !localInit[idx] || locals[idx] == sbc.Unknown {
				locals[idx] = v[0]
			}
			localInit[idx] = true

		case opcode.LoadGlobal:
			idx, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok || idx >= uint32(len(globals)) {
				return MethodVerifyInfo{}, fail(opStart, "global index out of range")
			}
			push(fromVmType(globals[idx]))
		case opcode.StoreGlobal:
			idx, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok || idx >= uint32(len(globals)) {
				return MethodVerifyInfo{}, fail(opStart, "global index out of range")
			}
			if _, ok := popN(1); !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}

		case opcode.LoadUpvalue:
			sbc.ReadU32(m.Code, operandPC)
			push(sbc.Unknown)
		case opcode.StoreUpvalue:
			sbc.ReadU32(m.Code, operandPC)
			if _, ok := popN(1); !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}

		case opcode.NewObject:
			idx, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok || idx >= uint32(len(m.Types)) {
				return MethodVerifyInfo{}, fail(opStart, "type index out of range")
			}
			push(sbc.Ref)
		case opcode.NewClosure:
			closureMethodID, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "operand out of bounds")
			}
			if int(closureMethodID) >= len(m.Methods) {
				return MethodVerifyInfo{}, fail(opStart, "NEW_CLOSURE bad method id")
			}
			upCount := m.Code[operandPC+4]
			if _, ok := popN(int(upCount)); !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			push(sbc.Ref)
		case opcode.LoadField:
			idx, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok || idx >= uint32(len(m.Fields)) {
				return MethodVerifyInfo{}, fail(opStart, "field index out of range")
			}
			v, ok := popN(1)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			if v[0] != sbc.Unknown && v[0] != sbc.Ref {
				return MethodVerifyInfo{}, fail(opStart, "LOAD_FIELD requires a ref receiver")
			}
			push(sbc.ResolveType(m, m.Fields[idx].TypeID))
		case opcode.StoreField:
			idx, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok || idx >= uint32(len(m.Fields)) {
				return MethodVerifyInfo{}, fail(opStart, "field index out of range")
			}
			v, ok := popN(2)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			if v[0] != sbc.Unknown && v[0] != sbc.Ref {
				return MethodVerifyInfo{}, fail(opStart, "STORE_FIELD requires a ref receiver")
			}

		case opcode.NewArray, opcode.NewArrayI64, opcode.NewArrayF32, opcode.NewArrayF64, opcode.NewArrayRef,
			opcode.NewList, opcode.NewListI64, opcode.NewListF32, opcode.NewListF64, opcode.NewListRef:
			if _, ok := popN(1); !ok { // length
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			push(sbc.Ref)

		case opcode.ArrayLen, opcode.ListLen, opcode.StringLen:
			v, ok := popN(1)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			if v[0] != sbc.Unknown && v[0] != sbc.Ref {
				return MethodVerifyInfo{}, fail(opStart, "length op requires a ref container")
			}
			push(sbc.I32)

		case opcode.ArrayGetI32, opcode.ListGetI32:
			if err := typedGet(&stack, sbc.I32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ArrayGetI64, opcode.ListGetI64:
			if err := typedGet(&stack, sbc.I64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ArrayGetF32, opcode.ListGetF32:
			if err := typedGet(&stack, sbc.F32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ArrayGetF64, opcode.ListGetF64:
			if err := typedGet(&stack, sbc.F64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ArrayGetRef, opcode.ListGetRef:
			if err := typedGet(&stack, sbc.Ref); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListRemoveI32:
			if err := typedGet(&stack, sbc.I32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListRemoveI64:
			if err := typedGet(&stack, sbc.I64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListRemoveF32:
			if err := typedGet(&stack, sbc.F32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListRemoveF64:
			if err := typedGet(&stack, sbc.F64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListRemoveRef:
			if err := typedGet(&stack, sbc.Ref); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}

		case opcode.ArraySetI32, opcode.ListSetI32:
			if err := typedSet(&stack, sbc.I32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ArraySetI64, opcode.ListSetI64:
			if err := typedSet(&stack, sbc.I64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ArraySetF32, opcode.ListSetF32:
			if err := typedSet(&stack, sbc.F32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ArraySetF64, opcode.ListSetF64:
			if err := typedSet(&stack, sbc.F64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ArraySetRef, opcode.ListSetRef:
			if err := typedSet(&stack, sbc.Ref); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListInsertI32:
			if err := typedSet(&stack, sbc.I32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListInsertI64:
			if err := typedSet(&stack, sbc.I64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListInsertF32:
			if err := typedSet(&stack, sbc.F32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListInsertF64:
			if err := typedSet(&stack, sbc.F64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListInsertRef:
			if err := typedSet(&stack, sbc.Ref); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}

		case opcode.ListPushI32:
			if err := push1ValueChecked(&stack, sbc.I32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListPushI64:
			if err := push1ValueChecked(&stack, sbc.I64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListPushF32:
			if err := push1ValueChecked(&stack, sbc.F32); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListPushF64:
			if err := push1ValueChecked(&stack, sbc.F64); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListPushRef:
			if err := push1ValueChecked(&stack, sbc.Ref); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.ListPopI32:
			if v, ok := popN(1); !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow or bad container")
			}
			push(sbc.I32)
		case opcode.ListPopI64:
			if v, ok := popN(1); !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow or bad container")
			}
			push(sbc.I64)
		case opcode.ListPopF32:
			if v, ok := popN(1); !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow or bad container")
			}
			push(sbc.F32)
		case opcode.ListPopF64:
			if v, ok := popN(1); !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow or bad container")
			}
			push(sbc.F64)
		case opcode.ListPopRef:
			if v, ok := popN(1); !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow or bad container")
			}
			push(sbc.Ref)
		case opcode.ListClear:
			if v, ok := popN(1); !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow or bad container")
			}

		case opcode.StringConcat:
			v, ok := popN(2)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) || (v[1] != sbc.Unknown && v[1] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "STRING_CONCAT requires two refs")
			}
			push(sbc.Ref)
		case opcode.StringGetChar:
			v, ok := popN(2)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "STRING_GET_CHAR requires a ref and index")
			}
			push(sbc.Char)
		case opcode.StringSlice:
			v, ok := popN(3)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "STRING_SLICE requires a ref and two indices")
			}
			push(sbc.Ref)

		case opcode.BoolNot:
			v, ok := popN(1)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.Bool) {
				return MethodVerifyInfo{}, fail(opStart, "BOOL_NOT requires bool")
			}
			push(sbc.Bool)
		case opcode.BoolAnd, opcode.BoolOr:
			v, ok := popN(2)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.Bool) || (v[1] != sbc.Unknown && v[1] != sbc.Bool) {
				return MethodVerifyInfo{}, fail(opStart, "bool op requires two bools")
			}
			push(sbc.Bool)

		case opcode.IsNull:
			v, ok := popN(1)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "IS_NULL requires ref")
			}
			push(sbc.Bool)
		case opcode.RefEq, opcode.RefNe:
			v, ok := popN(2)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) || (v[1] != sbc.Unknown && v[1] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "ref compare requires two refs")
			}
			push(sbc.Bool)
		case opcode.TypeOf:
			v, ok := popN(1)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.Ref) {
				return MethodVerifyInfo{}, fail(opStart, "TYPEOF requires ref")
			}
			push(sbc.I32)

		case opcode.ConvI32ToI64:
			if _, ok := popConvFrom(&stack, i32Arith); !ok {
				return MethodVerifyInfo{}, fail(opStart, "conversion source type mismatch")
			}
			push(sbc.Unknown)
		case opcode.ConvI64ToI32:
			v, ok := popN(1)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.I64 && v[0] != sbc.U64) {
				return MethodVerifyInfo{}, fail(opStart, "conversion source type mismatch")
			}
			push(sbc.Unknown)
		case opcode.ConvI32ToF32:
			if _, ok := popConvFrom(&stack, i32Arith); !ok {
				return MethodVerifyInfo{}, fail(opStart, "conversion source type mismatch")
			}
			push(sbc.F32)
		case opcode.ConvI32ToF64:
			if _, ok := popConvFrom(&stack, i32Arith); !ok {
				return MethodVerifyInfo{}, fail(opStart, "conversion source type mismatch")
			}
			push(sbc.F64)
		case opcode.ConvF32ToI32, opcode.ConvF64ToI32:
			v, ok := popN(1)
			want := sbc.F32
			if op == opcode.ConvF64ToI32 {
				want = sbc.F64
			}
			if !ok || (v[0] != sbc.Unknown && v[0] != want) {
				return MethodVerifyInfo{}, fail(opStart, "conversion source type mismatch")
			}
			push(sbc.Unknown)
		case opcode.ConvF32ToF64:
			v, ok := popN(1)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.F32) {
				return MethodVerifyInfo{}, fail(opStart, "conversion source type mismatch")
			}
			push(sbc.F64)
		case opcode.ConvF64ToF32:
			v, ok := popN(1)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.F64) {
				return MethodVerifyInfo{}, fail(opStart, "conversion source type mismatch")
			}
			push(sbc.F32)

		case opcode.Jmp:
			rel, ok := sbc.ReadI32(m.Code, operandPC)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "operand out of bounds")
			}
			target := uint32(int64(next) + int64(rel))
			if !ctx.boundary[target] || target < fn.CodeOffset || target >= end {
				return MethodVerifyInfo{}, fail(opStart, "jump target out of bounds or not on boundary")
			}
			if err := applyMerge(target); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.JmpTrue, opcode.JmpFalse:
			v, ok := popN(1)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.Bool) {
				return MethodVerifyInfo{}, fail(opStart, "branch condition must be bool")
			}
			rel, ok := sbc.ReadI32(m.Code, operandPC)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "operand out of bounds")
			}
			target := uint32(int64(next) + int64(rel))
			if !ctx.boundary[target] || target < fn.CodeOffset || target >= end {
				return MethodVerifyInfo{}, fail(opStart, "jump target out of bounds or not on boundary")
			}
			if err := applyMerge(target); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		case opcode.JmpTable:
			v, ok := popN(1)
			if !ok || (v[0] != sbc.Unknown && v[0] != sbc.I32 && v[0] != sbc.U32) {
				return MethodVerifyInfo{}, fail(opStart, "JMP_TABLE index must be i32")
			}
			blobID, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "operand out of bounds")
			}
			defRel, ok := sbc.ReadI32(m.Code, operandPC+4)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "operand out of bounds")
			}
			targets, err := decodeJumpTable(m, blobID)
			if err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
			for _, t := range targets {
				if !ctx.boundary[t] || t < fn.CodeOffset || t >= end {
					return MethodVerifyInfo{}, fail(opStart, "jump target out of bounds or not on boundary")
				}
				if err := applyMerge(t); err != "" {
					return MethodVerifyInfo{}, fail(opStart, err)
				}
			}
			defTarget := uint32(int64(next) + int64(defRel))
			if !ctx.boundary[defTarget] || defTarget < fn.CodeOffset || defTarget >= end {
				return MethodVerifyInfo{}, fail(opStart, "jump target out of bounds or not on boundary")
			}
			if err := applyMerge(defTarget); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}

		case opcode.Call, opcode.TailCall:
			methodID, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "operand out of bounds")
			}
			if int(methodID) >= len(m.Methods) {
				return MethodVerifyInfo{}, fail(opStart, "method index out of range")
			}
			calleeSig := m.Sigs[m.Methods[methodID].SigID]
			argCount := int(m.Code[operandPC+4])
			if argCount != int(calleeSig.ParamCount) {
				return MethodVerifyInfo{}, fail(opStart, "CALL arg count mismatch")
			}
			if _, ok := popN(argCount); !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			if calleeSig.RetTypeID != sbc.NoRetType {
				push(sbc.ResolveType(m, calleeSig.RetTypeID))
			}
		case opcode.CallIndirect:
			sigID, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok || int(sigID) >= len(m.Sigs) {
				return MethodVerifyInfo{}, fail(opStart, "signature index out of range")
			}
			calleeSig := m.Sigs[sigID]
			argCount := int(m.Code[operandPC+4])
			if argCount != int(calleeSig.ParamCount) {
				return MethodVerifyInfo{}, fail(opStart, "CALL arg count mismatch")
			}
			need := argCount + 1 // +1 for the callee ref
			if _, ok := popN(need); !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			if calleeSig.RetTypeID != sbc.NoRetType {
				push(sbc.ResolveType(m, calleeSig.RetTypeID))
			}

		case opcode.Intrinsic:
			id, ok := sbc.ReadU32(m.Code, operandPC)
			if !ok {
				return MethodVerifyInfo{}, fail(opStart, "operand out of bounds")
			}
			if !intrinsic.IsKnown(id) {
				return MethodVerifyInfo{}, fail(opStart, "unknown intrinsic id")
			}
			sig, _ := intrinsic.Sig(id)
			if _, ok := popN(len(sig.Params)); !ok {
				return MethodVerifyInfo{}, fail(opStart, "stack underflow")
			}
			if sig.Ret != 0 {
				push(sbc.FromIntrinsicType(uint8(sig.Ret)))
			}

		case opcode.SysCall:
			return MethodVerifyInfo{}, fail(opStart, "SYS_CALL unsupported")

		case opcode.Ret:
			if isVoid {
				if len(stack) != 0 {
					return MethodVerifyInfo{}, fail(opStart, "return arity wrong for void signature")
				}
			} else {
				if len(stack) != 1 {
					return MethodVerifyInfo{}, fail(opStart, "return arity wrong")
				}
				top := stack[0]
				if top != sbc.Unknown && retType != sbc.Unknown && top != retType && !(isI32Family(top) && isI32Family(retType)) {
					return MethodVerifyInfo{}, fail(opStart, "return type mismatch")
				}
			}

		default:
			// Remaining arithmetic/bitwise/compare/inc/dec/neg families.
			if err := applyArithFamily(op, &stack); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
		}

		if len(stack) > int(fn.StackMax) {
			return MethodVerifyInfo{}, fail(opStart, "stack exceeds stack_max")
		}

		isTerminator := op == opcode.Jmp || op == opcode.JmpTable || op == opcode.Ret || op == opcode.Halt || op == opcode.Trap || op == opcode.TailCall
		if isTerminator {
			if ms, ok := merges.Get(next); ok {
				stack = append([]sbc.ValType(nil), ms.stack...)
			} else if next < end {
				stack = nil
			}
		} else if ctx.boundary[next] {
			if err := applyMerge(next); err != "" {
				return MethodVerifyInfo{}, fail(opStart, err)
			}
			if ms, ok := merges.Get(next); ok {
				stack = append([]sbc.ValType(nil), ms.stack...)
			}
		}

		pc = next
	}

	vmLocals := make([]sbc.VmType, len(locals))
	for i, t := range locals {
		vmLocals[i] = sbc.ToVmType(t)
	}

	return MethodVerifyInfo{
		Locals:        vmLocals,
		LocalsRefBits: sbc.MakeRefBitsVm(vmLocals),
		StackMaps:     stackMaps,
	}, ""
}

func scalarForConst(op opcode.OpCode) sbc.ValType {
	switch op {
	case opcode.ConstI8:
		return sbc.I8
	case opcode.ConstI16:
		return sbc.I16
	case opcode.ConstI32:
		return sbc.I32
	case opcode.ConstU8:
		return sbc.U8
	case opcode.ConstU16:
		return sbc.U16
	case opcode.ConstU32:
		return sbc.U32
	default:
		return sbc.Unknown
	}
}

func fromVmType(t sbc.VmType) sbc.ValType {
	switch t {
	case sbc.VmI32:
		return sbc.I32
	case sbc.VmI64:
		return sbc.I64
	case sbc.VmF32:
		return sbc.F32
	case sbc.VmF64:
		return sbc.F64
	case sbc.VmRef:
		return sbc.Ref
	default:
		return sbc.Unknown
	}
}

var i32Arith = map[sbc.ValType]bool{
	sbc.I8: true, sbc.I16: true, sbc.I32: true,
	sbc.U8: true, sbc.U16: true, sbc.U32: true, sbc.Char: true,
}

func isI32Family(t sbc.ValType) bool { return i32Arith[t] || t == sbc.Bool }

func popConvFrom(stack *[]sbc.ValType, allowed map[sbc.ValType]bool) (sbc.ValType, bool) {
	s := *stack
	if len(s) < 1 {
		return sbc.Unknown, false
	}
	v := s[len(s)-1]
	*stack = s[:len(s)-1]
	if v != sbc.Unknown && !allowed[v] && v != sbc.Bool {
		return sbc.Unknown, false
	}
	return v, true
}

// applyArithFamily covers every binary/unary arithmetic, bitwise, and
// compare opcode not already special-cased above.
func applyArithFamily(op opcode.OpCode, stack *[]sbc.ValType) string {
	pop2 := func() (sbc.ValType, sbc.ValType, bool) {
		s := *stack
		if len(s) < 2 {
			return sbc.Unknown, sbc.Unknown, false
		}
		a, b := s[len(s)-2], s[len(s)-1]
		*stack = s[:len(s)-2]
		return a, b, true
	}
	pop1 := func() (sbc.ValType, bool) {
		s := *stack
		if len(s) < 1 {
			return sbc.Unknown, false
		}
		v := s[len(s)-1]
		*stack = s[:len(s)-1]
		return v, true
	}
	push := func(t sbc.ValType) { *stack = append(*stack, t) }
	unifyI32 := func(a, b sbc.ValType) (sbc.ValType, bool) {
		if a != sbc.Unknown && !i32Arith[a] {
			return sbc.Unknown, false
		}
		if b != sbc.Unknown && !i32Arith[b] {
			return sbc.Unknown, false
		}
		if a == b {
			return a, true
		}
		return sbc.I32, true
	}
	requireEq := func(a, b, want sbc.ValType) bool {
		if a != sbc.Unknown && a != want {
			return false
		}
		if b != sbc.Unknown && b != want {
			return false
		}
		return true
	}

	switch op {
	case opcode.AddI32, opcode.SubI32, opcode.MulI32, opcode.DivI32, opcode.ModI32,
		opcode.AndI32, opcode.OrI32, opcode.XorI32, opcode.ShlI32, opcode.ShrI32:
		a, b, ok := pop2()
		if !ok {
			return "stack underflow"
		}
		r, ok := unifyI32(a, b)
		if !ok {
			return "arithmetic type mismatch"
		}
		push(r)
		return ""
	case opcode.NegI32, opcode.IncI32, opcode.DecI32,
		opcode.NegI8, opcode.IncI8, opcode.DecI8, opcode.NegI16, opcode.IncI16, opcode.DecI16,
		opcode.NegU8, opcode.IncU8, opcode.DecU8, opcode.NegU16, opcode.IncU16, opcode.DecU16:
		v, ok := pop1()
		if !ok || (v != sbc.Unknown && !i32Arith[v]) {
			return "arithmetic type mismatch"
		}
		push(v)
		return ""

	case opcode.AddU32, opcode.SubU32, opcode.MulU32, opcode.DivU32, opcode.ModU32:
		a, b, ok := pop2()
		if !ok {
			return "stack underflow"
		}
		if a != sbc.Unknown && a != sbc.U8 && a != sbc.U16 && a != sbc.U32 {
			return "arithmetic type mismatch"
		}
		if b != sbc.Unknown && b != sbc.U8 && b != sbc.U16 && b != sbc.U32 {
			return "arithmetic type mismatch"
		}
		if a == b {
			push(a)
		} else {
			push(sbc.U32)
		}
		return ""
	case opcode.NegU32, opcode.IncU32, opcode.DecU32:
		v, ok := pop1()
		if !ok || (v != sbc.Unknown && v != sbc.U8 && v != sbc.U16 && v != sbc.U32) {
			return "arithmetic type mismatch"
		}
		push(v)
		return ""

	case opcode.AddI64, opcode.SubI64, opcode.MulI64, opcode.DivI64, opcode.ModI64,
		opcode.AndI64, opcode.OrI64, opcode.XorI64, opcode.ShlI64, opcode.ShrI64:
		a, b, ok := pop2()
		if !ok || !requireEq(a, b, sbc.I64) {
			return "arithmetic type mismatch"
		}
		push(sbc.I64)
		return ""
	case opcode.NegI64, opcode.IncI64, opcode.DecI64:
		v, ok := pop1()
		if !ok || (v != sbc.Unknown && v != sbc.I64) {
			return "arithmetic type mismatch"
		}
		push(sbc.I64)
		return ""
	case opcode.AddU64, opcode.SubU64, opcode.MulU64, opcode.DivU64, opcode.ModU64:
		a, b, ok := pop2()
		if !ok || !requireEq(a, b, sbc.U64) {
			return "arithmetic type mismatch"
		}
		push(sbc.U64)
		return ""
	case opcode.NegU64, opcode.IncU64, opcode.DecU64:
		v, ok := pop1()
		if !ok || (v != sbc.Unknown && v != sbc.U64) {
			return "arithmetic type mismatch"
		}
		push(sbc.U64)
		return ""

	case opcode.AddF32, opcode.SubF32, opcode.MulF32, opcode.DivF32:
		a, b, ok := pop2()
		if !ok || !requireEq(a, b, sbc.F32) {
			return "arithmetic type mismatch"
		}
		push(sbc.F32)
		return ""
	case opcode.NegF32, opcode.IncF32, opcode.DecF32:
		v, ok := pop1()
		if !ok || (v != sbc.Unknown && v != sbc.F32) {
			return "arithmetic type mismatch"
		}
		push(sbc.F32)
		return ""
	case opcode.AddF64, opcode.SubF64, opcode.MulF64, opcode.DivF64:
		a, b, ok := pop2()
		if !ok || !requireEq(a, b, sbc.F64) {
			return "arithmetic type mismatch"
		}
		push(sbc.F64)
		return ""
	case opcode.NegF64, opcode.IncF64, opcode.DecF64:
		v, ok := pop1()
		if !ok || (v != sbc.Unknown && v != sbc.F64) {
			return "arithmetic type mismatch"
		}
		push(sbc.F64)
		return ""

	case opcode.CmpEqI32, opcode.CmpNeI32, opcode.CmpLtI32, opcode.CmpLeI32, opcode.CmpGtI32, opcode.CmpGeI32:
		a, b, ok := pop2()
		if !ok {
			return "stack underflow"
		}
		if _, ok := unifyI32(a, b); !ok {
			return "compare type mismatch"
		}
		push(sbc.Bool)
		return ""
	case opcode.CmpEqU32, opcode.CmpNeU32, opcode.CmpLtU32, opcode.CmpLeU32, opcode.CmpGtU32, opcode.CmpGeU32:
		if _, _, ok := pop2(); !ok {
			return "stack underflow"
		}
		push(sbc.Bool)
		return ""
	case opcode.CmpEqI64, opcode.CmpNeI64, opcode.CmpLtI64, opcode.CmpLeI64, opcode.CmpGtI64, opcode.CmpGeI64:
		a, b, ok := pop2()
		if !ok || !requireEq(a, b, sbc.I64) {
			return "compare type mismatch"
		}
		push(sbc.Bool)
		return ""
	case opcode.CmpEqU64, opcode.CmpNeU64, opcode.CmpLtU64, opcode.CmpLeU64, opcode.CmpGtU64, opcode.CmpGeU64:
		a, b, ok := pop2()
		if !ok || !requireEq(a, b, sbc.U64) {
			return "compare type mismatch"
		}
		push(sbc.Bool)
		return ""
	case opcode.CmpEqF32, opcode.CmpNeF32, opcode.CmpLtF32, opcode.CmpLeF32, opcode.CmpGtF32, opcode.CmpGeF32:
		a, b, ok := pop2()
		if !ok || !requireEq(a, b, sbc.F32) {
			return "compare type mismatch"
		}
		push(sbc.Bool)
		return ""
	case opcode.CmpEqF64, opcode.CmpNeF64, opcode.CmpLtF64, opcode.CmpLeF64, opcode.CmpGtF64, opcode.CmpGeF64:
		a, b, ok := pop2()
		if !ok || !requireEq(a, b, sbc.F64) {
			return "compare type mismatch"
		}
		push(sbc.Bool)
		return ""
	}
	return fmt.Sprintf("unhandled opcode %d", op)
}

func typedGet(stack *[]sbc.ValType, elem sbc.ValType) string {
	s := *stack
	if len(s) < 2 {
		return "stack underflow"
	}
	container, idx := s[len(s)-2], s[len(s)-1]
	if container != sbc.Unknown && container != sbc.Ref {
		return "container must be ref"
	}
	if idx != sbc.Unknown && !isI32Family(idx) {
		return "index must be i32"
	}
	*stack = append(s[:len(s)-2], elem)
	return ""
}

func typedSet(stack *[]sbc.ValType, elem sbc.ValType) string {
	s := *stack
	if len(s) < 3 {
		return "stack underflow"
	}
	container, idx, val := s[len(s)-3], s[len(s)-2], s[len(s)-1]
	if container != sbc.Unknown && container != sbc.Ref {
		return "container must be ref"
	}
	if idx != sbc.Unknown && !isI32Family(idx) {
		return "index must be i32"
	}
	if val != sbc.Unknown && elem != sbc.Unknown && val != elem {
		return "element type mismatch"
	}
	*stack = s[:len(s)-3]
	return ""
}

func push1ValueChecked(stack *[]sbc.ValType, elem sbc.ValType) string {
	s := *stack
	if len(s) < 2 {
		return "stack underflow"
	}
	container, val := s[len(s)-2], s[len(s)-1]
	if container != sbc.Unknown && container != sbc.Ref {
		return "container must be ref"
	}
	if val != sbc.Unknown && elem != sbc.Unknown && val != elem {
		return "element type mismatch"
	}
	*stack = s[:len(s)-2]
	return ""
}

func decodeJumpTable(m *sbc.Module, blobID uint32) ([]uint32, string) {
	if blobID == sbc.NoInit || int(blobID) >= len(m.ConstPool) {
		return nil, "JMP_TABLE constant-pool reference out of bounds"
	}
	pool := m.ConstPool
	if int(blobID) >= len(pool) {
		return nil, "JMP_TABLE constant-pool reference out of bounds"
	}
	kindTag := pool[blobID]
	if kindTag != 6 {
		return nil, "JMP_TABLE blob has wrong kind tag"
	}
	length, ok := sbc.ReadU32(pool, blobID+1)
	if !ok {
		return nil, "JMP_TABLE blob truncated"
	}
	count, ok := sbc.ReadU32(pool, blobID+5)
	if !ok {
		return nil, "JMP_TABLE blob truncated"
	}
	if length != 4+count*4 {
		return nil, "JMP_TABLE length/count mismatch"
	}
	out := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		v, ok := sbc.ReadU32(pool, blobID+9+i*4)
		if !ok {
			return nil, "JMP_TABLE blob truncated"
		}
		out = append(out, v)
	}
	return out, ""
}

// scanFail formats a boundary-scan failure with a function-relative pc.
func scanFail(m *sbc.Module, fi int, fn sbc.Function, pc uint32, reason string) string {
	rel := uint32(0)
	if pc >= fn.CodeOffset {
		rel = pc - fn.CodeOffset
	}
	name := methodName(m, fn)
	return fmt.Sprintf("verify failed: func %d%s pc %d: %s", fi, name, rel, reason)
}

// failAt formats a type-simulation failure with a module-absolute pc.
func failAt(m *sbc.Module, fi int, fn sbc.Function, pc uint32, reason string) string {
	name := methodName(m, fn)
	op := byte(0)
	if int(pc) < len(m.Code) {
		op = m.Code[pc]
	}
	opName := opcode.Name(op)
	if opName == "" {
		return fmt.Sprintf("verify failed: func %d%s pc %d op 0x%02x: %s", fi, name, pc, op, reason)
	}
	return fmt.Sprintf("verify failed: func %d%s pc %d op 0x%02x [%s]: %s", fi, name, pc, op, opName, reason)
}

func methodName(m *sbc.Module, fn sbc.Function) string {
	if int(fn.MethodID) >= len(m.Methods) {
		return ""
	}
	n := sbc.ReadName(m.ConstPool, m.Methods[fn.MethodID].NameStr)
	if n == "" {
		return ""
	}
	return fmt.Sprintf(" [name %s]", n)
}
