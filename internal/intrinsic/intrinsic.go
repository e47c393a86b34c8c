// Package intrinsic holds the fixed ID -> signature table for host-callable
// primitives invoked through the INTRINSIC opcode, plus a small in-process
// host implementing the pure members of the set. Side-effecting intrinsics
// are dispatched through the Host interface so this package, and the
// engine that calls into it, never hardcode I/O.
package intrinsic

import "math"

import "github.com/sbc-lang/sbcvm/internal/sbc"

// ID identifies an intrinsic. Values mirror the registry order in the
// grounding source's intrinsic table.
type ID uint16

const (
	AbsI32 ID = iota
	MinI32
	MaxI32
	MinI64
	MaxI64
	MinF32
	MaxF32
	MinF64
	MaxF64
	SqrtF32
	SqrtF64

	LogI32
	LogI64
	LogF32
	LogF64
	LogRef
	WriteStdout
	WriteStderr
	PrintAny

	MonoNs
	WallNs
	RandU32
	RandU64

	TrapIntrinsic
	Breakpoint

	DlCallVoid
	DlCallI32
	DlCallI64
	DlCallF64

	idCount
)

// Signature is an intrinsic's fixed arity and type codes, using the wire
// alphabet from sbc.IntrinsicTypeCode.
type Signature struct {
	Name    string
	Ret     sbc.IntrinsicTypeCode
	Params  []sbc.IntrinsicTypeCode
	Pure    bool
}

var table = map[ID]Signature{
	AbsI32: {Name: "AbsI32", Ret: sbc.ITI32, Params: []sbc.IntrinsicTypeCode{sbc.ITI32}, Pure: true},
	MinI32: {Name: "MinI32", Ret: sbc.ITI32, Params: []sbc.IntrinsicTypeCode{sbc.ITI32, sbc.ITI32}, Pure: true},
	MaxI32: {Name: "MaxI32", Ret: sbc.ITI32, Params: []sbc.IntrinsicTypeCode{sbc.ITI32, sbc.ITI32}, Pure: true},
	MinI64: {Name: "MinI64", Ret: sbc.ITI64, Params: []sbc.IntrinsicTypeCode{sbc.ITI64, sbc.ITI64}, Pure: true},
	MaxI64: {Name: "MaxI64", Ret: sbc.ITI64, Params: []sbc.IntrinsicTypeCode{sbc.ITI64, sbc.ITI64}, Pure: true},
	MinF32: {Name: "MinF32", Ret: sbc.ITF32, Params: []sbc.IntrinsicTypeCode{sbc.ITF32, sbc.ITF32}, Pure: true},
	MaxF32: {Name: "MaxF32", Ret: sbc.ITF32, Params: []sbc.IntrinsicTypeCode{sbc.ITF32, sbc.ITF32}, Pure: true},
	MinF64: {Name: "MinF64", Ret: sbc.ITF64, Params: []sbc.IntrinsicTypeCode{sbc.ITF64, sbc.ITF64}, Pure: true},
	MaxF64: {Name: "MaxF64", Ret: sbc.ITF64, Params: []sbc.IntrinsicTypeCode{sbc.ITF64, sbc.ITF64}, Pure: true},
	SqrtF32: {Name: "SqrtF32", Ret: sbc.ITF32, Params: []sbc.IntrinsicTypeCode{sbc.ITF32}, Pure: true},
	SqrtF64: {Name: "SqrtF64", Ret: sbc.ITF64, Params: []sbc.IntrinsicTypeCode{sbc.ITF64}, Pure: true},

	LogI32: {Name: "LogI32", Ret: sbc.ITAny, Params: []sbc.IntrinsicTypeCode{sbc.ITI32}},
	LogI64: {Name: "LogI64", Ret: sbc.ITAny, Params: []sbc.IntrinsicTypeCode{sbc.ITI64}},
	LogF32: {Name: "LogF32", Ret: sbc.ITAny, Params: []sbc.IntrinsicTypeCode{sbc.ITF32}},
	LogF64: {Name: "LogF64", Ret: sbc.ITAny, Params: []sbc.IntrinsicTypeCode{sbc.ITF64}},
	LogRef: {Name: "LogRef", Ret: sbc.ITAny, Params: []sbc.IntrinsicTypeCode{sbc.ITRef}},
	WriteStdout: {Name: "WriteStdout", Ret: sbc.ITAny, Params: []sbc.IntrinsicTypeCode{sbc.ITRef}},
	WriteStderr: {Name: "WriteStderr", Ret: sbc.ITAny, Params: []sbc.IntrinsicTypeCode{sbc.ITRef}},
	PrintAny: {Name: "PrintAny", Ret: sbc.ITAny, Params: []sbc.IntrinsicTypeCode{sbc.ITRef}},

	MonoNs: {Name: "MonoNs", Ret: sbc.ITI64, Params: nil},
	WallNs: {Name: "WallNs", Ret: sbc.ITI64, Params: nil},
	RandU32: {Name: "RandU32", Ret: sbc.ITU32, Params: nil},
	RandU64: {Name: "RandU64", Ret: sbc.ITU64, Params: nil},

	TrapIntrinsic: {Name: "Trap", Ret: sbc.ITAny, Params: nil},
	Breakpoint: {Name: "Breakpoint", Ret: sbc.ITAny, Params: nil},

	DlCallVoid: {Name: "DlCallVoid", Ret: sbc.ITAny, Params: []sbc.IntrinsicTypeCode{sbc.ITRef, sbc.ITRef}},
	DlCallI32: {Name: "DlCallI32", Ret: sbc.ITI32, Params: []sbc.IntrinsicTypeCode{sbc.ITRef, sbc.ITRef}},
	DlCallI64: {Name: "DlCallI64", Ret: sbc.ITI64, Params: []sbc.IntrinsicTypeCode{sbc.ITRef, sbc.ITRef}},
	DlCallF64: {Name: "DlCallF64", Ret: sbc.ITF64, Params: []sbc.IntrinsicTypeCode{sbc.ITRef, sbc.ITRef}},
}

// IsKnown reports whether id names a registered intrinsic. Verification
// rejects every id that fails this check.
func IsKnown(id uint32) bool {
	_, ok := table[ID(id)]
	return ok && id < uint32(idCount)
}

// Sig returns the signature for a known intrinsic id.
func Sig(id uint32) (Signature, bool) {
	s, ok := table[ID(id)]
	return s, ok
}

// Host executes the side-effecting intrinsics. The engine supplies a
// concrete Host (e.g. one writing to real stdout/stderr); tests can supply
// a recording stub.
type Host interface {
	WriteStdout(s string)
	WriteStderr(s string)
	Log(s string)
	MonoNs() int64
	WallNs() int64
	RandU32() uint32
	RandU64() uint64
	DlCall(name, args string) (retI64 int64, retF64 float64, err error)
}

// EvalPure evaluates one of the pure intrinsics directly; callers must
// check Signature.Pure first and supply exactly Params-shaped arguments.
// args/rets are the raw 64-bit lanes the interpreter's value stack carries.
func EvalPure(id ID, args []uint64) (uint64, bool) {
	switch id {
	case AbsI32:
		v := int32(args[0])
		if v < 0 {
			v = -v
		}
		return uint64(uint32(v)), true
	case MinI32:
		a, b := int32(args[0]), int32(args[1])
		if a < b {
			return uint64(uint32(a)), true
		}
		return uint64(uint32(b)), true
	case MaxI32:
		a, b := int32(args[0]), int32(args[1])
		if a > b {
			return uint64(uint32(a)), true
		}
		return uint64(uint32(b)), true
	case MinI64:
		a, b := int64(args[0]), int64(args[1])
		if a < b {
			return uint64(a), true
		}
		return uint64(b), true
	case MaxI64:
		a, b := int64(args[0]), int64(args[1])
		if a > b {
			return uint64(a), true
		}
		return uint64(b), true
	case MinF32:
		a, b := math.Float32frombits(uint32(args[0])), math.Float32frombits(uint32(args[1]))
		r := a
		if b < a {
			r = b
		}
		return uint64(math.Float32bits(r)), true
	case MaxF32:
		a, b := math.Float32frombits(uint32(args[0])), math.Float32frombits(uint32(args[1]))
		r := a
		if b > a {
			r = b
		}
		return uint64(math.Float32bits(r)), true
	case MinF64:
		a, b := math.Float64frombits(args[0]), math.Float64frombits(args[1])
		return math.Float64bits(math.Min(a, b)), true
	case MaxF64:
		a, b := math.Float64frombits(args[0]), math.Float64frombits(args[1])
		return math.Float64bits(math.Max(a, b)), true
	case SqrtF32:
		v := math.Float32frombits(uint32(args[0]))
		return uint64(math.Float32bits(float32(math.Sqrt(float64(v))))), true
	case SqrtF64:
		v := math.Float64frombits(args[0])
		return math.Float64bits(math.Sqrt(v)), true
	default:
		return 0, false
	}
}
