package engine

import (
	"github.com/sbc-lang/sbcvm/internal/intrinsic"
	"github.com/sbc-lang/sbcvm/internal/logging"
	"github.com/sbc-lang/sbcvm/internal/sbc"
	"github.com/sbc-lang/sbcvm/internal/verifier"
)

// Status is the terminal state of an execute(...) call.
type Status uint8

const (
	StatusHalted Status = iota
	StatusTrapped
)

func (s Status) String() string {
	if s == StatusTrapped {
		return "trapped"
	}
	return "halted"
}

// ExecResult is the full observability surface of one execute(...) call:
// the terminal outcome plus every per-function and per-opcode counter the
// promotion controller tracked, per spec §4.4's testable properties.
type ExecResult struct {
	Status   Status
	ExitCode int32
	Error    string

	CallCounts             []int
	FuncOpcodeCounts       []int
	OpcodeCounts           [256]uint64
	JitTiers               []Tier
	CompileCounts          []int
	CompileTicksTier0      []int
	CompileTicksTier1      []int
	JitCompiledExecCounts  []int
	JitTier1ExecCounts     []int
	JitDispatchCounts      []int
}

// Execute runs a verified module's entry function to completion. m must
// have already passed verifier.Verify; vr is that result. emitter may be
// nil, in which case jitEnabled is forced off regardless of its argument.
// logger may be nil; every Logger method is then a no-op.
func Execute(m *sbc.Module, vr verifier.VerifyResult, host intrinsic.Host, thresholds Thresholds, jitEnabled bool, emitter Emitter, logger *logging.Logger) ExecResult {
	entryIdx, ok := m.EntryFunctionIndex()
	if !ok {
		return ExecResult{Status: StatusTrapped, Error: "module has no entry method"}
	}

	if emitter == nil {
		jitEnabled = false
	}

	globals := make([]Value, len(m.Globals))
	for i, g := range m.Globals {
		t := sbc.ToVmType(sbc.ResolveType(m, g.TypeID))
		globals[i] = zeroValueFor(t)
		if g.InitConstID != sbc.NoInit && t != VmRef {
			globals[i] = Value{Type: t, Bits: uint64(readI64(m.ConstPool, g.InitConstID))}
		}
	}

	ctx := &execContext{
		module:     m,
		verifyInfo: vr.Methods,
		host:       host,
		globals:    globals,
		promotion:  NewPromotionController(len(m.Functions), thresholds, jitEnabled, emitter),
	}
	ctx.promotion.SetLogger(logger)

	result := ExecResult{Status: StatusHalted}
	func() {
		defer func() {
			if r := recover(); r != nil {
				switch v := r.(type) {
				case haltSignal:
					result.Status = StatusHalted
					if v.hasExit {
						result.ExitCode = v.exit
					}
				case trapPanic:
					result.Status = StatusTrapped
					result.Error = v.err.Error()
				default:
					panic(r)
				}
			}
		}()
		ctx.callFunction(entryIdx, nil)
	}()

	n := len(m.Functions)
	result.CallCounts = make([]int, n)
	result.FuncOpcodeCounts = make([]int, n)
	result.JitTiers = make([]Tier, n)
	result.CompileCounts = make([]int, n)
	result.CompileTicksTier0 = make([]int, n)
	result.CompileTicksTier1 = make([]int, n)
	result.JitCompiledExecCounts = make([]int, n)
	result.JitTier1ExecCounts = make([]int, n)
	result.JitDispatchCounts = make([]int, n)
	for i, st := range ctx.promotion.states {
		result.CallCounts[i] = st.callCount
		result.FuncOpcodeCounts[i] = st.opcodeCount
		result.JitTiers[i] = st.tier
		result.CompileCounts[i] = st.compileCount
		result.CompileTicksTier0[i] = st.compileTickTier0
		result.CompileTicksTier1[i] = st.compileTickTier1
		result.JitCompiledExecCounts[i] = st.compiledExecCount
		result.JitTier1ExecCounts[i] = st.tier1ExecCount
		result.JitDispatchCounts[i] = st.dispatchCount
	}
	result.OpcodeCounts = ctx.promotion.opcodeCounts

	return result
}
