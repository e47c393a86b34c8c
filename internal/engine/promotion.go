package engine

import "github.com/sbc-lang/sbcvm/internal/logging"

// Tier is the promotion state of a function: None (interpreted only),
// Tier0 (baseline compiled), Tier1 (optimized compiled).
type Tier uint8

const (
	TierNone Tier = iota
	Tier0
	Tier1
)

func (t Tier) String() string {
	switch t {
	case Tier0:
		return "Tier0"
	case Tier1:
		return "Tier1"
	default:
		return "None"
	}
}

// Thresholds are the module-independent promotion gates. Their literal
// values are this repo's own decision (see DESIGN.md Open Question
// resolutions): the grounding source references but never defines them.
type Thresholds struct {
	Tier0CallCount  int
	Tier1CallCount  int
	OpcodeThreshold int
}

// DefaultThresholds matches the values documented in DESIGN.md.
var DefaultThresholds = Thresholds{
	Tier0CallCount:  8,
	Tier1CallCount:  32,
	OpcodeThreshold: 256,
}

// funcState is the per-function promotion bookkeeping from spec §4.4.
type funcState struct {
	callCount   int
	opcodeCount int
	tier        Tier

	compileCount     int
	compileTickTier0 int
	compileTickTier1 int

	compiledExecCount int
	tier1ExecCount    int
	dispatchCount     int

	compiledEntry Handle
	tier1Entry    Handle

	compiledDisabled bool
	tier1Disabled    bool
}

// PromotionController implements the per-invocation promotion state of
// spec §4.4: one funcState per function, a monotonic global compile tick,
// and the per-opcode global counters. It is never a process-wide global —
// a fresh controller is created per execute(...) call, per §5's
// concurrency model.
type PromotionController struct {
	states       []funcState
	globalTick   int
	opcodeCounts [256]uint64
	thresholds   Thresholds
	jitEnabled   bool
	emitter      Emitter
	logger       *logging.Logger
}

// SetLogger attaches a lifecycle logger; nil disables logging (the
// default), matching Logger's own nil-is-no-op contract.
func (pc *PromotionController) SetLogger(l *logging.Logger) {
	pc.logger = l
}

// NewPromotionController allocates per-function state for an n-function
// module.
func NewPromotionController(n int, thresholds Thresholds, jitEnabled bool, emitter Emitter) *PromotionController {
	return &PromotionController{
		states:     make([]funcState, n),
		thresholds: thresholds,
		jitEnabled: jitEnabled,
		emitter:    emitter,
	}
}

// OnCall implements rule 1: increment F.call_count on every Call /
// CallIndirect / TailCall to F.
func (pc *PromotionController) OnCall(funcIdx int) {
	pc.states[funcIdx].callCount++
}

// OnDispatchedOpcode implements rule 2. An opcode flagged isNop is excluded from the
// per-function opcode_count (but still counted in the global per-opcode
// table) so that Nop-padding loops cannot trivially promote themselves.
func (pc *PromotionController) OnDispatchedOpcode(funcIdx int, op uint8, isNop bool) {
	pc.opcodeCounts[op]++
	if !isNop {
		pc.states[funcIdx].opcodeCount++
	}
}

// MaybePromote runs the Tier0/Tier1 admission rules (3, 4) for funcIdx.
// view is the verified function body the emitter would compile.
func (pc *PromotionController) MaybePromote(funcIdx int, view FunctionView) {
	if !pc.jitEnabled {
		return
	}
	st := &pc.states[funcIdx]

	if st.tier == TierNone && !st.compiledDisabled &&
		(st.callCount > pc.thresholds.Tier0CallCount || st.opcodeCount >= pc.thresholds.OpcodeThreshold) {
		h, status := pc.emitter.Compile(view, Tier0)
		switch status {
		case CompileOK:
			st.tier = Tier0
			st.compiledEntry = h
			st.compileCount++
			pc.globalTick++
			st.compileTickTier0 = pc.globalTick
			pc.logger.TierChange(funcIdx, TierNone.String(), Tier0.String())
		default:
			st.compiledDisabled = true
		}
	}

	if st.tier == Tier0 && !st.tier1Disabled && st.callCount >= pc.thresholds.Tier1CallCount {
		h, status := pc.emitter.Compile(view, Tier1)
		switch status {
		case CompileOK:
			st.tier = Tier1
			st.tier1Entry = h
			st.compileCount++
			pc.globalTick++
			st.compileTickTier1 = pc.globalTick
			pc.logger.TierChange(funcIdx, Tier0.String(), Tier1.String())
		default:
			st.tier1Disabled = true
		}
	}
}

// DispatchRoute implements rule 5: which entry to use for the next call
// into funcIdx's body. Direct and indirect call sites call this
// identically, satisfying rule 8 (route consistency).
type DispatchRoute uint8

const (
	RouteInterpret DispatchRoute = iota
	RouteTier0
	RouteTier1
)

func (r DispatchRoute) String() string {
	switch r {
	case RouteTier0:
		return "Tier0"
	case RouteTier1:
		return "Tier1"
	default:
		return "Interpret"
	}
}

func (pc *PromotionController) DispatchRoute(funcIdx int) DispatchRoute {
	st := &pc.states[funcIdx]
	if st.tier == Tier1 && st.tier1Entry != nil && !st.tier1Disabled {
		return RouteTier1
	}
	if st.tier == Tier0 && st.compiledEntry != nil && !st.compiledDisabled {
		return RouteTier0
	}
	return RouteInterpret
}

// RecordDispatch increments dispatch_count for every entry into a
// function's body, interpreted or compiled.
func (pc *PromotionController) RecordDispatch(funcIdx int) {
	pc.states[funcIdx].dispatchCount++
}

// RecordCompiledExec records a successful, non-bailed-out compiled
// dispatch at the given route.
func (pc *PromotionController) RecordCompiledExec(funcIdx int, route DispatchRoute) {
	st := &pc.states[funcIdx]
	st.compiledExecCount++
	if route == RouteTier1 {
		st.tier1ExecCount++
	}
}

// RecordBailout implements rule 7: a compiled entry ceded control back to
// the interpreter. dispatch_count was already counted by RecordDispatch;
// compiled_exec_count is not incremented for this dispatch. If persistent
// is set, the corresponding tier is disabled for the rest of the
// invocation (rule 8's "one-shot" fallback property).
func (pc *PromotionController) RecordBailout(funcIdx int, route DispatchRoute, persistent bool) {
	pc.logger.Bailout(funcIdx, route.String(), persistent)
	if !persistent {
		return
	}
	st := &pc.states[funcIdx]
	switch route {
	case RouteTier1:
		st.tier1Disabled = true
	case RouteTier0:
		st.compiledDisabled = true
	}
}
