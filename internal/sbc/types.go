package sbc

import "encoding/binary"

// ValType is the verifier's abstract type lattice. Unknown is the bottom
// element: it unifies with anything and is produced by type-erasing
// conversions and unverifiable sources.
type ValType uint8

const (
	Unknown ValType = iota
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F32
	F64
	Bool
	Char
	Ref
)

func (t ValType) String() string {
	switch t {
	case Unknown:
		return "unknown"
	case I8:
		return "i8"
	case I16:
		return "i16"
	case I32:
		return "i32"
	case I64:
		return "i64"
	case U8:
		return "u8"
	case U16:
		return "u16"
	case U32:
		return "u32"
	case U64:
		return "u64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	case Bool:
		return "bool"
	case Char:
		return "char"
	case Ref:
		return "ref"
	default:
		return "?"
	}
}

// Unify implements the Unknown-as-bottom merge rule used at join points:
// (Unknown, x) -> x, (x, Unknown) -> x, (x, x) -> x, else a mismatch.
func Unify(a, b ValType) (ValType, bool) {
	if a == Unknown {
		return b, true
	}
	if b == Unknown {
		return a, true
	}
	if a == b {
		return a, true
	}
	return Unknown, false
}

// VmType is the coarser runtime lattice the interpreter and compiled tiers
// track: narrow integers and Bool/Char widen into I32 carriers.
type VmType uint8

const (
	VmUnknown VmType = iota
	VmI32
	VmI64
	VmF32
	VmF64
	VmRef
)

func (t VmType) String() string {
	switch t {
	case VmI32:
		return "i32"
	case VmI64:
		return "i64"
	case VmF32:
		return "f32"
	case VmF64:
		return "f64"
	case VmRef:
		return "ref"
	default:
		return "unknown"
	}
}

// ToVmType widens the verifier's fine-grained lattice down to the runtime's.
func ToVmType(t ValType) VmType {
	switch t {
	case I8, I16, I32, U8, U16, U32, Bool, Char:
		return VmI32
	case I64, U64:
		return VmI64
	case F32:
		return VmF32
	case F64:
		return VmF64
	case Ref:
		return VmRef
	default:
		return VmUnknown
	}
}

// ResolveType maps a module type-table row to the verifier's abstract
// lattice. Out-of-range ids resolve to Unknown rather than failing --
// callers performing bounds checks reject those indices first.
func ResolveType(m *Module, typeID uint32) ValType {
	if typeID >= uint32(len(m.Types)) {
		return Unknown
	}
	row := m.Types[typeID]
	switch row.Kind {
	case KindI8:
		return I8
	case KindI16:
		return I16
	case KindI32:
		return I32
	case KindI64:
		return I64
	case KindU8:
		return U8
	case KindU16:
		return U16
	case KindU32:
		return U32
	case KindU64:
		return U64
	case KindBool:
		return Bool
	case KindChar:
		return Char
	case KindI128, KindU128:
		// Boxed placeholder until a wide-integer runtime representation exists.
		return Ref
	case KindF32:
		return F32
	case KindF64:
		return F64
	case KindRef, KindString:
		return Ref
	case KindUnspecified:
		if row.IsRefFlag() {
			return Ref
		}
		return Unknown
	default:
		return Unknown
	}
}

// IntrinsicTypeCode is the host ABI's wire alphabet for intrinsic
// signatures: 0=void/any, 1=i32, 2=i64, 3=f32, 4=f64, 5=ref, 6=bool,
// 7..13 narrow int / char.
type IntrinsicTypeCode uint8

const (
	ITAny IntrinsicTypeCode = iota
	ITI32
	ITI64
	ITF32
	ITF64
	ITRef
	ITBool
	ITI8
	ITI16
	ITU8
	ITU16
	ITU32
	ITU64
	ITChar
)

// FromIntrinsicType maps an intrinsic signature's wire type code to the
// verifier's abstract lattice.
func FromIntrinsicType(code uint8) ValType {
	switch IntrinsicTypeCode(code) {
	case ITAny:
		return Unknown
	case ITI32:
		return I32
	case ITI64:
		return I64
	case ITF32:
		return F32
	case ITF64:
		return F64
	case ITRef:
		return Ref
	case ITBool:
		return Bool
	case ITI8:
		return I8
	case ITI16:
		return I16
	case ITU8:
		return U8
	case ITU16:
		return U16
	case ITU32:
		return U32
	case ITU64:
		return U64
	case ITChar:
		return Char
	default:
		return Unknown
	}
}

// MakeRefBits packs a little-endian bitset, one bit per slot from the
// bottom, set iff the slot holds a Ref. Used for StackMap.RefBits.
func MakeRefBits(types []ValType) []byte {
	bits := make([]byte, (len(types)+7)/8)
	for i, t := range types {
		if t == Ref {
			bits[i/8] |= 1 << uint(i%8)
		}
	}
	return bits
}

// MakeRefBitsVm is MakeRefBits over the runtime lattice, used for
// MethodVerifyInfo.LocalsRefBits and VerifyResult.GlobalsRefBits.
func MakeRefBitsVm(types []VmType) []byte {
	bits := make([]byte, (len(types)+7)/8)
	for i, t := range types {
		if t == VmRef {
			bits[i/8] |= 1 << uint(i%8)
		}
	}
	return bits
}

// ReadName reads a null-terminated UTF-8 name out of the const pool.
func ReadName(pool []byte, offset uint32) string {
	if offset == NoInit || len(pool) == 0 || offset >= uint32(len(pool)) {
		return ""
	}
	pos := offset
	for pos < uint32(len(pool)) && pool[pos] != 0 {
		pos++
	}
	if pos >= uint32(len(pool)) {
		return ""
	}
	return string(pool[offset:pos])
}

// ReadU32 reads a little-endian u32 from b at offset, reporting ok=false if
// it would read past the end.
func ReadU32(b []byte, offset uint32) (uint32, bool) {
	if uint64(offset)+4 > uint64(len(b)) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b[offset:]), true
}

// ReadI32 reads a little-endian i32 from b at offset.
func ReadI32(b []byte, offset uint32) (int32, bool) {
	v, ok := ReadU32(b, offset)
	return int32(v), ok
}
