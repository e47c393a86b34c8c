package engine

import "github.com/sbc-lang/sbcvm/internal/verifier"

// FunctionView is the slice of a verified function an Emitter compiles
// from: its bytecode, its verification info, and its static shape. This is
// the "function_view" argument named by spec §6's Emitter contract.
type FunctionView struct {
	FuncIndex  int
	Code       []byte
	CodeOffset uint32
	CodeSize   uint32
	StackMax   uint32
	VerifyInfo verifier.MethodVerifyInfo
	ParamCount int
	HasRet     bool
}

// CompileStatus is the result discriminant of Emitter.Compile, mirroring
// spec §6's `Handle | NotSupported | TransientError`.
type CompileStatus uint8

const (
	CompileOK CompileStatus = iota
	CompileNotSupported
	CompileTransientError
)

// HandleOutcome is the tagged result of invoking a Handle, mirroring spec
// §6's `{Ok, Bailout{resume_pc, persistent?}, Trap{message}}`.
type HandleOutcome struct {
	Kind       HandleOutcomeKind
	ResumePC   uint32
	Persistent bool
	Message    string
	ExitValue  Value
	HasExit    bool
}

type HandleOutcomeKind uint8

const (
	OutcomeOk HandleOutcomeKind = iota
	OutcomeBailout
	OutcomeTrap
)

// Handle is the opaque, invocable reference to compiled-entry code.
type Handle interface {
	// Invoke runs the compiled body starting at the function's entry (or,
	// after a bailout resume, at resumePC) against the live exec context.
	Invoke(ctx *execContext, resumePC uint32) HandleOutcome
}

// Emitter is the external collaborator named by spec §6: it compiles a
// verified function for a given tier. This repo's own implementation
// (ReferenceEmitter, see reference_emitter.go) does not generate native
// code — see DESIGN.md for why golang-asm was not wired in here.
type Emitter interface {
	Compile(view FunctionView, tier Tier) (Handle, CompileStatus)
}

// compiledEntryTable is the concrete shape of spec §2's C7: per-function
// compiled-code handles. It is implicit in the spec; this repo names it
// directly (see SPEC_FULL.md §4.5). The engine itself keeps the live
// handles in each function's funcState (promotion.go); nothing constructs
// this table.
type compiledEntryTable struct {
	tier0 []Handle
	tier1 []Handle
}

func newCompiledEntryTable(n int) *compiledEntryTable {
	return &compiledEntryTable{tier0: make([]Handle, n), tier1: make([]Handle, n)}
}
