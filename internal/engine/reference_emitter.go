package engine

import "github.com/sbc-lang/sbcvm/internal/opcode"

// ReferenceEmitter is this repo's concrete Emitter (SPEC_FULL.md §4.5): it
// obeys the full Handle/Bailout/Trap ABI of spec §6 without generating
// native machine code. It always accepts compilation (CompileOK) and
// defers the accept/reject decision to runtime, where its Handle bails out
// on the small set of opcodes the grounding source documents as
// emitter-unsupported: safepoints (Line/ProfileStart/ProfileEnd, which
// exist for debugger/profiler metadata the reference backend has no use
// for) and the I64/F32/F64/Ref array get/set and list get/set/insert/remove
// opcodes (kept in the interpreter only, to keep the reference backend's
// dispatch table small). The I32 variants and list push/pop/clear run in
// the Handle.
type ReferenceEmitter struct {
	unsupported map[opcode.OpCode]bool
}

// NewReferenceEmitter builds the default reference emitter.
func NewReferenceEmitter() *ReferenceEmitter {
	unsupported := map[opcode.OpCode]bool{
		opcode.Line:         true,
		opcode.ProfileStart: true,
		opcode.ProfileEnd:   true,
	}
	for _, op := range []opcode.OpCode{
		opcode.ArrayGetI64, opcode.ArrayGetF32, opcode.ArrayGetF64, opcode.ArrayGetRef,
		opcode.ArraySetI64, opcode.ArraySetF32, opcode.ArraySetF64, opcode.ArraySetRef,
		opcode.ListGetI64, opcode.ListGetF32, opcode.ListGetF64, opcode.ListGetRef,
		opcode.ListSetI64, opcode.ListSetF32, opcode.ListSetF64, opcode.ListSetRef,
		opcode.ListInsertI64, opcode.ListInsertF32, opcode.ListInsertF64, opcode.ListInsertRef,
		opcode.ListRemoveI64, opcode.ListRemoveF32, opcode.ListRemoveF64, opcode.ListRemoveRef,
	} {
		unsupported[op] = true
	}
	return &ReferenceEmitter{unsupported: unsupported}
}

// Compile always accepts: the reference backend defers opcode support
// decisions to the per-instruction bailout path at runtime (see
// referenceHandle.Invoke), which is itself a valid emitter strategy under
// spec §6 (a real native emitter would instead reject at compile time for
// opcodes it can never lower, via NotSupported).
func (e *ReferenceEmitter) Compile(view FunctionView, tier Tier) (Handle, CompileStatus) {
	return &referenceHandle{emitter: e, view: view, tier: tier}, CompileOK
}

type referenceHandle struct {
	emitter *ReferenceEmitter
	view    FunctionView
	tier    Tier
}

// Invoke re-dispatches the verified bytecode slice through the same
// instruction semantics the interpreter uses (dispatchOne), stopping with
// a Bailout the moment it reaches an opcode this backend declines to
// handle, or propagating a real runtime trap as HandleOutcome{Kind: Trap}.
// This keeps the Handle ABI real and observable while the instruction
// stream executed is still portable Go, per SPEC_FULL.md §4.5.
func (h *referenceHandle) Invoke(ctx *execContext, resumePC uint32) HandleOutcome {
	pc := resumePC
	if pc == 0 {
		pc = h.view.CodeOffset
	}
	end := h.view.CodeOffset + h.view.CodeSize

	for pc < end {
		b := ctx.module.Code[pc]
		op := opcode.OpCode(b)
		if h.emitter.unsupported[op] {
			return HandleOutcome{Kind: OutcomeBailout, ResumePC: pc, Persistent: true}
		}

		outcome, halted, nextPC, trapped, trapErr := ctx.dispatchOne(h.view.FuncIndex, pc)
		if trapped {
			return HandleOutcome{Kind: OutcomeTrap, Message: trapErr.Error()}
		}
		if halted {
			return HandleOutcome{Kind: OutcomeOk, HasExit: true, ExitValue: outcome}
		}
		if nextPC == returnedToCaller {
			return HandleOutcome{Kind: OutcomeOk}
		}
		pc = nextPC
	}
	return HandleOutcome{Kind: OutcomeOk}
}
