// Package engine implements the tiered execution engine: the baseline
// interpreter (C5), the promotion controller (C6, see promotion.go), the
// compiled-entry table (C7, see emitter.go/reference_emitter.go), and the
// observability surface (C8, see result.go). Grounded throughout on
// tetratelabs-wazero/internal/engine/interpreter/interpreter.go's callEngine
// / callFrame / panic-recover idiom.
package engine

import (
	"fmt"
	"math"

	"github.com/sbc-lang/sbcvm/internal/intrinsic"
	"github.com/sbc-lang/sbcvm/internal/opcode"
	"github.com/sbc-lang/sbcvm/internal/sbc"
	"github.com/sbc-lang/sbcvm/internal/verifier"
)

// callStackCeiling bounds recursion the way wazero's interpreter bounds its
// frame stack, turning runaway recursion into a trap instead of a Go stack
// overflow.
const callStackCeiling = 8192

// returnedToCaller is the sentinel dispatchOne returns when a Ret or
// TailCall popped this frame back to its caller. Consumed by
// referenceHandle.Invoke in reference_emitter.go.
const returnedToCaller = ^uint32(0)

// haltSignal unwinds to the top of Execute on a HALT instruction.
type haltSignal struct {
	hasExit bool
	exit    int32
}

// execContext is the live state of one execute(...) invocation: a single
// shared value stack (callers and callees communicate arguments and
// results through it, per classic stack-machine convention), the frame
// stack, globals, and the promotion controller / compiled entry routing
// that goes with it. Never reused across invocations, per spec §5's
// concurrency model.
type execContext struct {
	module     *sbc.Module
	verifyInfo []verifier.MethodVerifyInfo
	host       intrinsic.Host

	stack  []Value
	frames []*Frame

	globals []Value

	promotion *PromotionController
}

func zeroValueFor(t VmType) Value {
	switch t {
	case VmI32:
		return Value{Type: VmI32}
	case VmI64:
		return Value{Type: VmI64}
	case VmF32:
		return Value{Type: VmF32}
	case VmF64:
		return Value{Type: VmF64}
	case VmRef:
		return Value{Type: VmRef}
	default:
		return Value{}
	}
}

func (ctx *execContext) push(v Value) {
	ctx.stack = append(ctx.stack, v)
}

func (ctx *execContext) pop() Value {
	if len(ctx.stack) == 0 {
		panic(trapPanic{ErrStackUnderflow})
	}
	v := ctx.stack[len(ctx.stack)-1]
	ctx.stack = ctx.stack[:len(ctx.stack)-1]
	return v
}

func (ctx *execContext) popN(n int) []Value {
	if len(ctx.stack) < n {
		panic(trapPanic{ErrStackUnderflow})
	}
	v := append([]Value(nil), ctx.stack[len(ctx.stack)-n:]...)
	ctx.stack = ctx.stack[:len(ctx.stack)-n]
	return v
}

func (ctx *execContext) functionView(funcIdx int, info verifier.MethodVerifyInfo) FunctionView {
	fn := ctx.module.Functions[funcIdx]
	method := ctx.module.Methods[fn.MethodID]
	sig := ctx.module.Sigs[method.SigID]
	return FunctionView{
		FuncIndex:  funcIdx,
		Code:       ctx.module.Code,
		CodeOffset: fn.CodeOffset,
		CodeSize:   fn.CodeSize,
		StackMax:   fn.StackMax,
		VerifyInfo: info,
		ParamCount: int(sig.ParamCount),
		HasRet:     sig.RetTypeID != sbc.NoRetType,
	}
}

func currentSig(m *sbc.Module, funcIdx int) sbc.Sig {
	fn := m.Functions[funcIdx]
	method := m.Methods[fn.MethodID]
	return m.Sigs[method.SigID]
}

// callFunction runs one activation of funcIdx to completion against the
// shared stack: callers push args then call; callees leave their return
// value (if any) sitting at the frame's StackBase, exactly where the
// caller expects it. Completion happens either by returning normally (Ret
// reached) or by panicking with a haltSignal/trapPanic that unwinds
// through every enclosing callFunction to Execute's recover, discarding
// intermediate frames per spec §7.
func (ctx *execContext) callFunction(funcIdx int, args []Value) {
	if len(ctx.frames) >= callStackCeiling {
		panic(trapPanic{ErrCallStackOverflow})
	}

	ctx.promotion.OnCall(funcIdx)

	info := ctx.verifyInfo[funcIdx]
	locals := make([]Value, len(info.Locals))
	copy(locals, args)
	for i := len(args); i < len(locals); i++ {
		locals[i] = zeroValueFor(info.Locals[i])
	}
	frame := &Frame{FuncIndex: funcIdx, Locals: locals, StackBase: len(ctx.stack), CallDepth: len(ctx.frames)}
	ctx.frames = append(ctx.frames, frame)
	defer func() { ctx.frames = ctx.frames[:len(ctx.frames)-1] }()

	ctx.promotion.MaybePromote(funcIdx, ctx.functionView(funcIdx, info))
	route := ctx.promotion.DispatchRoute(funcIdx)
	ctx.promotion.RecordDispatch(funcIdx)

	if route != RouteInterpret {
		st := &ctx.promotion.states[funcIdx]
		handle := st.compiledEntry
		if route == RouteTier1 {
			handle = st.tier1Entry
		}
		if bailedAt, persistent := ctx.invokeCompiled(handle, funcIdx, route); bailedAt != nil {
			ctx.promotion.RecordBailout(funcIdx, route, persistent)
			ctx.interpretFrom(funcIdx, *bailedAt)
		}
		return
	}

	fn := ctx.module.Functions[funcIdx]
	ctx.interpretFrom(funcIdx, fn.CodeOffset)
}

// invokeCompiled runs a compiled Handle. Ok ends this activation (possibly
// via a propagated halt); Bailout resumes interpretation at the returned
// pc; Trap re-panics so it unwinds exactly like an interpreter-detected
// trap.
func (ctx *execContext) invokeCompiled(h Handle, funcIdx int, route DispatchRoute) (bailedAt *uint32, persistent bool) {
	outcome := h.Invoke(ctx, 0)
	switch outcome.Kind {
	case OutcomeOk:
		ctx.promotion.RecordCompiledExec(funcIdx, route)
		if outcome.HasExit {
			panic(haltSignal{hasExit: true, exit: outcome.ExitValue.asI32()})
		}
		return nil, false
	case OutcomeBailout:
		pc := outcome.ResumePC
		return &pc, outcome.Persistent
	case OutcomeTrap:
		panic(trapPanic{fmt.Errorf("%s", outcome.Message)})
	}
	panic(trapPanic{ErrUnreachable})
}

// interpretFrom runs the baseline interpreter loop over funcIdx's body
// starting at pc, until a Ret/TailCall completes the frame.
func (ctx *execContext) interpretFrom(funcIdx int, pc uint32) {
	for {
		outcome, halted, nextPC, trapped, trapErr := ctx.dispatchOne(funcIdx, pc)
		if trapped {
			panic(trapPanic{trapErr})
		}
		if halted {
			panic(haltSignal{hasExit: true, exit: outcome.asI32()})
		}
		if nextPC == returnedToCaller {
			return
		}
		pc = nextPC
	}
}

// dispatchOne executes exactly one instruction of funcIdx's body at pc. It
// is shared by the baseline interpreter loop and the reference emitter's
// Handle, so both "tiers" observe identical semantics. Traps and halts are
// caught here and reported through the return values rather than left to
// propagate, so a compiled Handle can observe them and report a trap as
// an OutcomeTrap (which invokeCompiled re-panics); the plain interpreter
// loop re-panics them itself to continue the unwind.
func (ctx *execContext) dispatchOne(funcIdx int, pc uint32) (outcome Value, halted bool, nextPC uint32, trapped bool, trapErr error) {
	defer func() {
		if r := recover(); r != nil {
			switch v := r.(type) {
			case haltSignal:
				halted = true
				if v.hasExit {
					outcome = i32Value(v.exit)
				}
			case trapPanic:
				trapped = true
				trapErr = v.err
			default:
				panic(r)
			}
		}
	}()
	nextPC = ctx.step(funcIdx, pc)
	return
}

// step performs the actual instruction effect and returns the next pc (or
// returnedToCaller). It panics with trapPanic/haltSignal on trap/halt
// conditions; dispatchOne recovers those into return values.
func (ctx *execContext) step(funcIdx int, pc uint32) uint32 {
	m := ctx.module
	frame := ctx.frames[len(ctx.frames)-1]
	b := m.Code[pc]
	op := opcode.OpCode(b)
	info, ok := opcode.GetInfo(b)
	if !ok {
		panic(trapPanic{ErrUnsupportedOpcode})
	}
	operandPC := pc + 1
	next := pc + 1 + uint32(info.OperandBytes)

	ctx.promotion.OnDispatchedOpcode(funcIdx, b, op == opcode.Nop)

	switch op {
	case opcode.Nop, opcode.Enter, opcode.Leave, opcode.Line, opcode.ProfileStart, opcode.ProfileEnd:
		// no-ops at runtime; safepoint metadata only.

	case opcode.CallCheck:
		if frame.CallDepth != 0 {
			panic(trapPanic{fmt.Errorf("CALLCHECK outside root")})
		}

	case opcode.Halt:
		exit := int32(0)
		if len(ctx.stack) > 0 {
			top := ctx.stack[len(ctx.stack)-1]
			if top.Type == VmI32 {
				exit = top.asI32()
			}
		}
		panic(haltSignal{hasExit: true, exit: exit})

	case opcode.Trap:
		panic(trapPanic{fmt.Errorf("TRAP")})

	case opcode.Pop:
		ctx.pop()
	case opcode.Dup:
		v := ctx.pop()
		ctx.push(v)
		ctx.push(v)
	case opcode.Dup2:
		v := ctx.popN(2)
		ctx.push(v[0])
		ctx.push(v[1])
		ctx.push(v[0])
		ctx.push(v[1])
	case opcode.Swap:
		v := ctx.popN(2)
		ctx.push(v[1])
		ctx.push(v[0])
	case opcode.Rot:
		v := ctx.popN(3)
		ctx.push(v[1])
		ctx.push(v[2])
		ctx.push(v[0])

	case opcode.ConstI8:
		ctx.push(i32Value(int32(int8(m.Code[operandPC]))))
	case opcode.ConstI16:
		ctx.push(i32Value(readI16(m.Code, operandPC)))
	case opcode.ConstI32:
		v, _ := sbc.ReadI32(m.Code, operandPC)
		ctx.push(i32Value(v))
	case opcode.ConstI64:
		ctx.push(i64Value(readI64(m.Code, operandPC)))
	case opcode.ConstU8:
		ctx.push(u32Value(uint32(m.Code[operandPC])))
	case opcode.ConstU16:
		v, _ := sbc.ReadU32(widen16(m.Code, operandPC), 0)
		ctx.push(u32Value(v))
	case opcode.ConstU32:
		v, _ := sbc.ReadU32(m.Code, operandPC)
		ctx.push(u32Value(v))
	case opcode.ConstU64:
		ctx.push(u64Value(uint64(readI64(m.Code, operandPC))))
	case opcode.ConstF32:
		v, _ := sbc.ReadU32(m.Code, operandPC)
		ctx.push(Value{Type: VmF32, Bits: uint64(v)})
	case opcode.ConstF64:
		ctx.push(Value{Type: VmF64, Bits: uint64(readI64(m.Code, operandPC))})
	case opcode.ConstBool:
		ctx.push(boolValue(m.Code[operandPC] != 0))
	case opcode.ConstChar:
		v, _ := sbc.ReadU32(m.Code, operandPC)
		ctx.push(u32Value(v))
	case opcode.ConstI128, opcode.ConstU128:
		ctx.push(refValue(nil)) // boxed placeholder, per spec §9.
	case opcode.ConstNull:
		ctx.push(refValue(nil))
	case opcode.ConstString:
		idx, _ := sbc.ReadU32(m.Code, operandPC)
		ctx.push(refValue(sbc.ReadName(m.ConstPool, idx)))

	case opcode.LoadLocal:
		idx, _ := sbc.ReadU32(m.Code, operandPC)
		if int(idx) >= len(frame.Locals) {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		ctx.push(frame.Locals[idx])
	case opcode.StoreLocal:
		idx, _ := sbc.ReadU32(m.Code, operandPC)
		if int(idx) >= len(frame.Locals) {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		frame.Locals[idx] = ctx.pop()
	case opcode.LoadGlobal:
		idx, _ := sbc.ReadU32(m.Code, operandPC)
		if int(idx) >= len(ctx.globals) {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		ctx.push(ctx.globals[idx])
	case opcode.StoreGlobal:
		idx, _ := sbc.ReadU32(m.Code, operandPC)
		if int(idx) >= len(ctx.globals) {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		ctx.globals[idx] = ctx.pop()
	case opcode.LoadUpvalue:
		ctx.push(refValue(nil))
	case opcode.StoreUpvalue:
		ctx.pop()

	case opcode.NewObject:
		_, _ = sbc.ReadU32(m.Code, operandPC)
		ctx.push(refValue(map[uint32]Value{}))
	case opcode.NewClosure:
		upCount := int(m.Code[operandPC+4])
		ctx.popN(upCount)
		ctx.push(refValue(nil))
	case opcode.LoadField:
		idx, _ := sbc.ReadU32(m.Code, operandPC)
		recv := ctx.pop()
		obj, _ := recv.Ref.(map[uint32]Value)
		if obj == nil {
			panic(trapPanic{ErrNullDereference})
		}
		ctx.push(obj[idx])
	case opcode.StoreField:
		idx, _ := sbc.ReadU32(m.Code, operandPC)
		v := ctx.popN(2)
		obj, _ := v[0].Ref.(map[uint32]Value)
		if obj == nil {
			panic(trapPanic{ErrNullDereference})
		}
		obj[idx] = v[1]

	case opcode.NewArray, opcode.NewArrayI64, opcode.NewArrayF32, opcode.NewArrayF64, opcode.NewArrayRef,
		opcode.NewList, opcode.NewListI64, opcode.NewListF32, opcode.NewListF64, opcode.NewListRef:
		n := ctx.pop()
		backing := make([]Value, n.asI32())
		ctx.push(refValue(&backing))

	case opcode.ArrayLen, opcode.ListLen:
		v := ctx.pop()
		arr := refSlice(v)
		if arr == nil {
			panic(trapPanic{ErrNullDereference})
		}
		ctx.push(i32Value(int32(len(*arr))))
	case opcode.StringLen:
		v := ctx.pop()
		s, _ := v.Ref.(string)
		ctx.push(i32Value(int32(len(s))))

	case opcode.ArrayGetI32, opcode.ArrayGetI64, opcode.ArrayGetF32, opcode.ArrayGetF64, opcode.ArrayGetRef,
		opcode.ListGetI32, opcode.ListGetI64, opcode.ListGetF32, opcode.ListGetF64, opcode.ListGetRef:
		v := ctx.popN(2)
		arr := refSlice(v[0])
		idx := int(v[1].asI32())
		if arr == nil || idx < 0 || idx >= len(*arr) {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		ctx.push((*arr)[idx])

	case opcode.ArraySetI32, opcode.ArraySetI64, opcode.ArraySetF32, opcode.ArraySetF64, opcode.ArraySetRef,
		opcode.ListSetI32, opcode.ListSetI64, opcode.ListSetF32, opcode.ListSetF64, opcode.ListSetRef:
		v := ctx.popN(3)
		arr := refSlice(v[0])
		idx := int(v[1].asI32())
		if arr == nil || idx < 0 || idx >= len(*arr) {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		(*arr)[idx] = v[2]

	case opcode.ListPushI32, opcode.ListPushI64, opcode.ListPushF32, opcode.ListPushF64, opcode.ListPushRef:
		v := ctx.popN(2)
		arr := refSlice(v[0])
		if arr == nil {
			panic(trapPanic{ErrNullDereference})
		}
		*arr = append(*arr, v[1])
	case opcode.ListPopI32, opcode.ListPopI64, opcode.ListPopF32, opcode.ListPopF64, opcode.ListPopRef:
		v := ctx.pop()
		arr := refSlice(v)
		if arr == nil || len(*arr) == 0 {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		last := (*arr)[len(*arr)-1]
		*arr = (*arr)[:len(*arr)-1]
		ctx.push(last)
	case opcode.ListClear:
		v := ctx.pop()
		arr := refSlice(v)
		if arr != nil {
			*arr = nil
		}
	case opcode.ListInsertI32, opcode.ListInsertI64, opcode.ListInsertF32, opcode.ListInsertF64, opcode.ListInsertRef:
		v := ctx.popN(3)
		arr := refSlice(v[0])
		if arr == nil {
			panic(trapPanic{ErrNullDereference})
		}
		idx := int(v[1].asI32())
		if idx < 0 || idx > len(*arr) {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		*arr = append((*arr)[:idx], append([]Value{v[2]}, (*arr)[idx:]...)...)
	case opcode.ListRemoveI32, opcode.ListRemoveI64, opcode.ListRemoveF32, opcode.ListRemoveF64, opcode.ListRemoveRef:
		v := ctx.popN(2)
		arr := refSlice(v[0])
		idx := int(v[1].asI32())
		if arr == nil || idx < 0 || idx >= len(*arr) {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		removed := (*arr)[idx]
		*arr = append((*arr)[:idx], (*arr)[idx+1:]...)
		ctx.push(removed)

	case opcode.StringConcat:
		v := ctx.popN(2)
		a, _ := v[0].Ref.(string)
		b2, _ := v[1].Ref.(string)
		ctx.push(refValue(a + b2))
	case opcode.StringGetChar:
		v := ctx.popN(2)
		s, _ := v[0].Ref.(string)
		idx := int(v[1].asI32())
		if idx < 0 || idx >= len(s) {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		ctx.push(u32Value(uint32(s[idx])))
	case opcode.StringSlice:
		v := ctx.popN(3)
		s, _ := v[0].Ref.(string)
		start, stop := int(v[1].asI32()), int(v[2].asI32())
		if start < 0 || stop > len(s) || start > stop {
			panic(trapPanic{ErrIndexOutOfRange})
		}
		ctx.push(refValue(s[start:stop]))

	case opcode.BoolNot:
		v := ctx.pop()
		ctx.push(boolValue(!v.asBool()))
	case opcode.BoolAnd:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asBool() && v[1].asBool()))
	case opcode.BoolOr:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asBool() || v[1].asBool()))

	case opcode.IsNull:
		v := ctx.pop()
		ctx.push(boolValue(v.Ref == nil))
	case opcode.RefEq:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].Ref == v[1].Ref))
	case opcode.RefNe:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].Ref != v[1].Ref))
	case opcode.TypeOf:
		v := ctx.pop()
		ctx.push(refValue(fmt.Sprintf("%T", v.Ref)))

	case opcode.ConvI32ToI64:
		v := ctx.pop()
		ctx.push(i64Value(int64(v.asI32())))
	case opcode.ConvI64ToI32:
		v := ctx.pop()
		ctx.push(i32Value(int32(v.asI64())))
	case opcode.ConvI32ToF32:
		v := ctx.pop()
		ctx.push(Value{Type: VmF32, Bits: uint64(math.Float32bits(float32(v.asI32())))})
	case opcode.ConvI32ToF64:
		v := ctx.pop()
		ctx.push(Value{Type: VmF64, Bits: math.Float64bits(float64(v.asI32()))})
	case opcode.ConvF32ToI32:
		v := ctx.pop()
		ctx.push(i32Value(saturateF64ToI32(float64(math.Float32frombits(uint32(v.Bits))))))
	case opcode.ConvF64ToI32:
		v := ctx.pop()
		ctx.push(i32Value(saturateF64ToI32(math.Float64frombits(v.Bits))))
	case opcode.ConvF32ToF64:
		v := ctx.pop()
		ctx.push(Value{Type: VmF64, Bits: math.Float64bits(float64(math.Float32frombits(uint32(v.Bits))))})
	case opcode.ConvF64ToF32:
		v := ctx.pop()
		ctx.push(Value{Type: VmF32, Bits: uint64(math.Float32bits(float32(math.Float64frombits(v.Bits))))})

	case opcode.Jmp:
		rel, _ := sbc.ReadI32(m.Code, operandPC)
		return uint32(int64(next) + int64(rel))
	case opcode.JmpTrue:
		cond := ctx.pop()
		rel, _ := sbc.ReadI32(m.Code, operandPC)
		if cond.asBool() {
			return uint32(int64(next) + int64(rel))
		}
		return next
	case opcode.JmpFalse:
		cond := ctx.pop()
		rel, _ := sbc.ReadI32(m.Code, operandPC)
		if !cond.asBool() {
			return uint32(int64(next) + int64(rel))
		}
		return next
	case opcode.JmpTable:
		idx := ctx.pop()
		blobID, _ := sbc.ReadU32(m.Code, operandPC)
		defRel, _ := sbc.ReadI32(m.Code, operandPC+4)
		defTarget := uint32(int64(next) + int64(defRel))
		targets, ok := decodeJumpTableRuntime(m.ConstPool, blobID)
		if !ok {
			panic(trapPanic{ErrUnsupportedOpcode})
		}
		i := int(idx.asI32())
		if i < 0 || i >= len(targets) {
			return defTarget
		}
		return targets[i]

	case opcode.Call, opcode.TailCall:
		methodID, _ := sbc.ReadU32(m.Code, operandPC)
		argCount := int(m.Code[operandPC+4])
		args := ctx.popN(argCount)
		calleeIdx, found := m.FunctionByMethodID(methodID)
		if !found {
			panic(trapPanic{ErrUnsupportedOpcode})
		}
		ctx.callFunction(calleeIdx, args)
		if op == opcode.TailCall {
			sig := currentSig(m, funcIdx)
			if sig.RetTypeID != sbc.NoRetType {
				v := ctx.pop()
				ctx.stack = append(ctx.stack[:frame.StackBase], v)
			} else {
				ctx.stack = ctx.stack[:frame.StackBase]
			}
			return returnedToCaller
		}
		return next
	case opcode.CallIndirect:
		_, _ = sbc.ReadU32(m.Code, operandPC) // sigID, already checked by the verifier.
		argCount := int(m.Code[operandPC+4])
		vals := ctx.popN(argCount + 1)
		callee := vals[0]
		args := vals[1:]
		if callee.isRefNull() {
			panic(trapPanic{ErrNullDereference})
		}
		methodID := uint32(callee.asI32())
		calleeIdx, found := m.FunctionByMethodID(methodID)
		if !found {
			panic(trapPanic{ErrUnsupportedOpcode})
		}
		ctx.callFunction(calleeIdx, args)
		return next

	case opcode.Intrinsic:
		id, _ := sbc.ReadU32(m.Code, operandPC)
		ctx.execIntrinsic(id)

	case opcode.SysCall:
		panic(trapPanic{ErrUnsupportedOpcode})

	case opcode.Ret:
		sig := currentSig(m, funcIdx)
		if sig.RetTypeID == sbc.NoRetType {
			ctx.stack = ctx.stack[:frame.StackBase]
		} else {
			v := ctx.pop()
			ctx.stack = append(ctx.stack[:frame.StackBase], v)
		}
		return returnedToCaller

	default:
		ctx.execArith(op)
	}

	return next
}

func refSlice(v Value) *[]Value {
	s, _ := v.Ref.(*[]Value)
	return s
}

func readI16(code []byte, at uint32) int32 {
	if int(at)+2 > len(code) {
		return 0
	}
	return int32(int16(uint16(code[at]) | uint16(code[at+1])<<8))
}

func widen16(code []byte, at uint32) []byte {
	if int(at)+2 > len(code) {
		return make([]byte, 4)
	}
	b := make([]byte, 4)
	copy(b, code[at:at+2])
	return b
}

func readI64(code []byte, at uint32) int64 {
	if int(at)+8 > len(code) {
		return 0
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(code[int(at)+i]) << (8 * i)
	}
	return int64(v)
}

func saturateF64ToI32(f float64) int32 {
	if math.IsNaN(f) {
		return 0
	}
	if f >= math.MaxInt32 {
		return math.MaxInt32
	}
	if f <= math.MinInt32 {
		return math.MinInt32
	}
	return int32(f)
}

// decodeJumpTableRuntime re-reads the same kind-tag-6 blob format the
// verifier validated ahead of time (see verifier.decodeJumpTable):
// [tag:1][length:4][count:4][target:4]*count; the length word was already
// checked by the verifier and is skipped here. The default target is not part
// of this blob; it comes from JMP_TABLE's own inline default-offset operand,
// exactly like Jmp/JmpTrue/JmpFalse's relative targets.
func decodeJumpTableRuntime(pool []byte, blobID uint32) ([]uint32, bool) {
	if int(blobID) >= len(pool) {
		return nil, false
	}
	count, ok := sbc.ReadU32(pool, blobID+5)
	if !ok {
		return nil, false
	}
	out := make([]uint32, 0, count)
	for i := uint32(0); i < count; i++ {
		v, ok := sbc.ReadU32(pool, blobID+9+i*4)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

func (ctx *execContext) execIntrinsic(id uint32) {
	sig, ok := intrinsic.Sig(id)
	if !ok {
		panic(trapPanic{ErrUnsupportedOpcode})
	}
	args := ctx.popN(len(sig.Params))
	if sig.Pure {
		raw := make([]uint64, len(args))
		for i, a := range args {
			raw[i] = a.Bits
		}
		result, ok := intrinsic.EvalPure(intrinsic.ID(id), raw)
		if !ok {
			panic(trapPanic{ErrIntrinsicFailed})
		}
		ctx.push(Value{Type: retVmType(sig), Bits: result})
		return
	}
	ctx.execHostIntrinsic(sig, args)
}

func retVmType(sig intrinsic.Signature) VmType {
	return sbc.ToVmType(sbc.FromIntrinsicType(uint8(sig.Ret)))
}

func (ctx *execContext) execHostIntrinsic(sig intrinsic.Signature, args []Value) {
	switch sig.Name {
	case "Trap":
		panic(trapPanic{fmt.Errorf("TRAP")})
	case "Breakpoint":
		return
	}
	if ctx.host == nil {
		return
	}
	switch sig.Name {
	case "WriteStdout":
		ctx.host.WriteStdout(refString(args[0]))
	case "WriteStderr":
		ctx.host.WriteStderr(refString(args[0]))
	case "LogI32", "LogI64", "LogF32", "LogF64", "LogRef", "PrintAny":
		ctx.host.Log(fmt.Sprint(args[0].Bits))
	case "MonoNs":
		ctx.push(i64Value(ctx.host.MonoNs()))
	case "WallNs":
		ctx.push(i64Value(ctx.host.WallNs()))
	case "RandU32":
		ctx.push(u32Value(ctx.host.RandU32()))
	case "RandU64":
		ctx.push(u64Value(ctx.host.RandU64()))
	case "DlCallVoid", "DlCallI32", "DlCallI64", "DlCallF64":
		name := refString(args[0])
		callArgs := refString(args[1])
		retI64, retF64, err := ctx.host.DlCall(name, callArgs)
		if err != nil {
			panic(trapPanic{err})
		}
		switch sig.Name {
		case "DlCallI32":
			ctx.push(i32Value(int32(retI64)))
		case "DlCallI64":
			ctx.push(i64Value(retI64))
		case "DlCallF64":
			ctx.push(Value{Type: VmF64, Bits: math.Float64bits(retF64)})
		}
	}
}

func refString(v Value) string {
	s, _ := v.Ref.(string)
	return s
}
