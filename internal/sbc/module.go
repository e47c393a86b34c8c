// Package sbc holds the in-memory representation of a loaded module: the
// immutable tables a verifier and interpreter both read from. Nothing here
// parses bytes off disk -- that is the loader's job, external to this
// package -- it only describes the shape of a module already in memory.
package sbc

// NoRetType marks a signature with no return value.
const NoRetType = 0xFFFFFFFF

// NoEntry marks a header with no entry method.
const NoEntry = 0xFFFFFFFF

// NoInit marks a global with no initializer constant.
const NoInit = 0xFFFFFFFF

// TypeKind is the scalar kind tag stored in a Type row.
type TypeKind uint8

const (
	KindI8 TypeKind = iota
	KindI16
	KindI32
	KindI64
	KindU8
	KindU16
	KindU32
	KindU64
	KindF32
	KindF64
	KindBool
	KindChar
	KindRef
	KindString
	KindI128
	KindU128
	KindUnspecified
)

// Type is a row in the module's type table. Unspecified with Flags&1 != 0
// denotes a reference; plain Unspecified is unresolvable (Unknown).
type Type struct {
	Kind  TypeKind
	Flags uint8
}

// IsRefFlag reports whether an Unspecified type row denotes a reference.
func (t Type) IsRefFlag() bool { return t.Flags&1 != 0 }

// Field is a row in the module's field table.
type Field struct {
	TypeID uint32
}

// Global is a row in the module's global table.
type Global struct {
	TypeID      uint32
	InitConstID uint32
}

// Sig is a function signature: a contiguous slice of ParamTypes plus a
// return type (or NoRetType for void).
type Sig struct {
	ParamCount     uint16
	ParamTypeStart uint32
	RetTypeID      uint32
}

// Method is a named, signed function prototype with a fixed local-slot count.
type Method struct {
	NameStr    uint32 // offset into ConstPool, or NoInit-like sentinel when anonymous
	SigID      uint32
	LocalCount uint16
}

// Function binds a Method to a span of bytes in Module.Code.
type Function struct {
	MethodID   uint32
	CodeOffset uint32
	CodeSize   uint32
	StackMax   uint32
}

// Header carries module-wide metadata.
type Header struct {
	EntryMethodID uint32
}

// Module is the immutable bundle the verifier and engine both consume. It is
// created by a loader (external to this package) and never mutated after.
type Module struct {
	Code       []byte
	Functions  []Function
	Methods    []Method
	Sigs       []Sig
	ParamTypes []uint32
	Types      []Type
	Fields     []Field
	Globals    []Global
	ConstPool  []byte
	Header     Header
}

// FunctionByMethodID finds the function table entry bound to the given
// method, returning ok=false when no function implements it.
func (m *Module) FunctionByMethodID(methodID uint32) (int, bool) {
	for i := range m.Functions {
		if m.Functions[i].MethodID == methodID {
			return i, true
		}
	}
	return 0, false
}

// EntryFunctionIndex resolves Header.EntryMethodID to a function index.
func (m *Module) EntryFunctionIndex() (int, bool) {
	if m.Header.EntryMethodID == NoEntry {
		return 0, false
	}
	return m.FunctionByMethodID(m.Header.EntryMethodID)
}
