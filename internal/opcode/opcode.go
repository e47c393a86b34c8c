// Package opcode describes the static, context-free properties of each
// instruction: its mnemonic and the number of operand bytes that follow it.
// Decoding is total and pure -- it never inspects a module, only a single
// opcode byte -- so both the verifier's boundary scan and the interpreter's
// fetch step share it.
package opcode

// OpCode identifies an instruction. Values are assigned by this module;
// there is no on-disk format to match since the loader is an external
// collaborator (see the module spec, "External Interfaces").
type OpCode uint8

const (
	Nop OpCode = iota
	Halt
	Trap
	Pop
	Dup
	Dup2
	Swap
	Rot
	Enter
	Leave
	Line
	ProfileStart
	ProfileEnd
	Ret
	Jmp
	JmpTrue
	JmpFalse
	JmpTable
	CallCheck
	Call
	TailCall
	CallIndirect
	Intrinsic
	SysCall

	ConstI8
	ConstI16
	ConstI32
	ConstI64
	ConstU8
	ConstU16
	ConstU32
	ConstU64
	ConstF32
	ConstF64
	ConstBool
	ConstChar
	ConstI128
	ConstU128
	ConstNull
	ConstString

	LoadLocal
	StoreLocal
	LoadGlobal
	StoreGlobal
	LoadUpvalue
	StoreUpvalue

	NewObject
	NewClosure
	LoadField
	StoreField

	NewArray
	NewArrayI64
	NewArrayF32
	NewArrayF64
	NewArrayRef
	ArrayLen
	ArrayGetI32
	ArrayGetI64
	ArrayGetF32
	ArrayGetF64
	ArrayGetRef
	ArraySetI32
	ArraySetI64
	ArraySetF32
	ArraySetF64
	ArraySetRef

	NewList
	NewListI64
	NewListF32
	NewListF64
	NewListRef
	ListLen
	ListGetI32
	ListGetI64
	ListGetF32
	ListGetF64
	ListGetRef
	ListSetI32
	ListSetI64
	ListSetF32
	ListSetF64
	ListSetRef
	ListPushI32
	ListPushI64
	ListPushF32
	ListPushF64
	ListPushRef
	ListPopI32
	ListPopI64
	ListPopF32
	ListPopF64
	ListPopRef
	ListInsertI32
	ListInsertI64
	ListInsertF32
	ListInsertF64
	ListInsertRef
	ListRemoveI32
	ListRemoveI64
	ListRemoveF32
	ListRemoveF64
	ListRemoveRef
	ListClear

	StringLen
	StringConcat
	StringGetChar
	StringSlice

	AddI32
	SubI32
	MulI32
	DivI32
	ModI32
	NegI32
	IncI32
	DecI32

	AddU32
	SubU32
	MulU32
	DivU32
	ModU32
	NegU32
	IncU32
	DecU32

	AndI32
	OrI32
	XorI32
	ShlI32
	ShrI32

	IncI8
	DecI8
	NegI8
	IncI16
	DecI16
	NegI16
	IncU8
	DecU8
	NegU8
	IncU16
	DecU16
	NegU16

	AddI64
	SubI64
	MulI64
	DivI64
	ModI64
	NegI64
	IncI64
	DecI64

	AddU64
	SubU64
	MulU64
	DivU64
	ModU64
	NegU64
	IncU64
	DecU64

	AndI64
	OrI64
	XorI64
	ShlI64
	ShrI64

	AddF32
	SubF32
	MulF32
	DivF32
	NegF32
	IncF32
	DecF32

	AddF64
	SubF64
	MulF64
	DivF64
	NegF64
	IncF64
	DecF64

	CmpEqI32
	CmpNeI32
	CmpLtI32
	CmpLeI32
	CmpGtI32
	CmpGeI32

	CmpEqU32
	CmpNeU32
	CmpLtU32
	CmpLeU32
	CmpGtU32
	CmpGeU32

	CmpEqI64
	CmpNeI64
	CmpLtI64
	CmpLeI64
	CmpGtI64
	CmpGeI64

	CmpEqU64
	CmpNeU64
	CmpLtU64
	CmpLeU64
	CmpGtU64
	CmpGeU64

	CmpEqF32
	CmpNeF32
	CmpLtF32
	CmpLeF32
	CmpGtF32
	CmpGeF32

	CmpEqF64
	CmpNeF64
	CmpLtF64
	CmpLeF64
	CmpGtF64
	CmpGeF64

	BoolNot
	BoolAnd
	BoolOr

	IsNull
	RefEq
	RefNe
	TypeOf

	ConvI32ToI64
	ConvI64ToI32
	ConvI32ToF32
	ConvI32ToF64
	ConvF32ToI32
	ConvF64ToI32
	ConvF32ToF64
	ConvF64ToF32

	opCodeCount
)

// Info describes the static shape of an instruction: how many operand bytes
// follow the opcode byte, and (for fixed-arity opcodes) how many values it
// pops and pushes. Variable-arity opcodes -- calls, intrinsics, RET --
// report Pops=Pushes=0 here, and NEW_CLOSURE reports only its one push;
// their real stack effect is computed during verification from in-line
// operands.
type Info struct {
	Name         string
	OperandBytes uint8
	Pops         int
	Pushes       int
}

var table [opCodeCount]Info

func reg(op OpCode, name string, operandBytes uint8, pops, pushes int) {
	table[op] = Info{Name: name, OperandBytes: operandBytes, Pops: pops, Pushes: pushes}
}

func init() {
	reg(Nop, "NOP", 0, 0, 0)
	reg(Halt, "HALT", 0, 0, 0)
	reg(Trap, "TRAP", 0, 0, 0)
	reg(Pop, "POP", 0, 1, 0)
	reg(Dup, "DUP", 0, 1, 2)
	reg(Dup2, "DUP2", 0, 2, 4)
	reg(Swap, "SWAP", 0, 2, 2)
	reg(Rot, "ROT", 0, 3, 3)
	reg(Enter, "ENTER", 2, 0, 0)
	reg(Leave, "LEAVE", 0, 0, 0)
	reg(Line, "LINE", 4, 0, 0)
	reg(ProfileStart, "PROFILE_START", 0, 0, 0)
	reg(ProfileEnd, "PROFILE_END", 0, 0, 0)
	reg(Ret, "RET", 0, 0, 0) // variable: 0 or 1, handled by verifier/interpreter
	reg(Jmp, "JMP", 4, 0, 0)
	reg(JmpTrue, "JMP_TRUE", 4, 1, 0)
	reg(JmpFalse, "JMP_FALSE", 4, 1, 0)
	reg(JmpTable, "JMP_TABLE", 8, 1, 0)
	reg(CallCheck, "CALLCHECK", 0, 0, 0)
	reg(Call, "CALL", 5, 0, 0)         // variable arity
	reg(TailCall, "TAILCALL", 5, 0, 0) // variable arity
	reg(CallIndirect, "CALL_INDIRECT", 5, 0, 0)
	reg(Intrinsic, "INTRINSIC", 4, 0, 0)
	reg(SysCall, "SYS_CALL", 4, 0, 0)

	reg(ConstI8, "CONST_I8", 1, 0, 1)
	reg(ConstI16, "CONST_I16", 2, 0, 1)
	reg(ConstI32, "CONST_I32", 4, 0, 1)
	reg(ConstI64, "CONST_I64", 8, 0, 1)
	reg(ConstU8, "CONST_U8", 1, 0, 1)
	reg(ConstU16, "CONST_U16", 2, 0, 1)
	reg(ConstU32, "CONST_U32", 4, 0, 1)
	reg(ConstU64, "CONST_U64", 8, 0, 1)
	reg(ConstF32, "CONST_F32", 4, 0, 1)
	reg(ConstF64, "CONST_F64", 8, 0, 1)
	reg(ConstBool, "CONST_BOOL", 1, 0, 1)
	reg(ConstChar, "CONST_CHAR", 4, 0, 1)
	reg(ConstI128, "CONST_I128", 4, 0, 1) // operand: const-pool id of a 16-byte blob
	reg(ConstU128, "CONST_U128", 4, 0, 1)
	reg(ConstNull, "CONST_NULL", 0, 0, 1)
	reg(ConstString, "CONST_STRING", 4, 0, 1)

	reg(LoadLocal, "LOAD_LOCAL", 4, 0, 1)
	reg(StoreLocal, "STORE_LOCAL", 4, 1, 0)
	reg(LoadGlobal, "LOAD_GLOBAL", 4, 0, 1)
	reg(StoreGlobal, "STORE_GLOBAL", 4, 1, 0)
	reg(LoadUpvalue, "LOAD_UPVALUE", 4, 0, 1)
	reg(StoreUpvalue, "STORE_UPVALUE", 4, 1, 0)

	reg(NewObject, "NEW_OBJECT", 4, 0, 1)
	reg(NewClosure, "NEW_CLOSURE", 5, 0, 1) // variable arity (upvalue_count in last operand byte)
	reg(LoadField, "LOAD_FIELD", 4, 1, 1)
	reg(StoreField, "STORE_FIELD", 4, 2, 0)

	reg(NewArray, "NEW_ARRAY", 4, 1, 1)
	reg(NewArrayI64, "NEW_ARRAY_I64", 4, 1, 1)
	reg(NewArrayF32, "NEW_ARRAY_F32", 4, 1, 1)
	reg(NewArrayF64, "NEW_ARRAY_F64", 4, 1, 1)
	reg(NewArrayRef, "NEW_ARRAY_REF", 4, 1, 1)
	reg(ArrayLen, "ARRAY_LEN", 0, 1, 1)
	reg(ArrayGetI32, "ARRAY_GET_I32", 0, 2, 1)
	reg(ArrayGetI64, "ARRAY_GET_I64", 0, 2, 1)
	reg(ArrayGetF32, "ARRAY_GET_F32", 0, 2, 1)
	reg(ArrayGetF64, "ARRAY_GET_F64", 0, 2, 1)
	reg(ArrayGetRef, "ARRAY_GET_REF", 0, 2, 1)
	reg(ArraySetI32, "ARRAY_SET_I32", 0, 3, 0)
	reg(ArraySetI64, "ARRAY_SET_I64", 0, 3, 0)
	reg(ArraySetF32, "ARRAY_SET_F32", 0, 3, 0)
	reg(ArraySetF64, "ARRAY_SET_F64", 0, 3, 0)
	reg(ArraySetRef, "ARRAY_SET_REF", 0, 3, 0)

	reg(NewList, "NEW_LIST", 4, 1, 1)
	reg(NewListI64, "NEW_LIST_I64", 4, 1, 1)
	reg(NewListF32, "NEW_LIST_F32", 4, 1, 1)
	reg(NewListF64, "NEW_LIST_F64", 4, 1, 1)
	reg(NewListRef, "NEW_LIST_REF", 4, 1, 1)
	reg(ListLen, "LIST_LEN", 0, 1, 1)
	reg(ListGetI32, "LIST_GET_I32", 0, 2, 1)
	reg(ListGetI64, "LIST_GET_I64", 0, 2, 1)
	reg(ListGetF32, "LIST_GET_F32", 0, 2, 1)
	reg(ListGetF64, "LIST_GET_F64", 0, 2, 1)
	reg(ListGetRef, "LIST_GET_REF", 0, 2, 1)
	reg(ListSetI32, "LIST_SET_I32", 0, 3, 0)
	reg(ListSetI64, "LIST_SET_I64", 0, 3, 0)
	reg(ListSetF32, "LIST_SET_F32", 0, 3, 0)
	reg(ListSetF64, "LIST_SET_F64", 0, 3, 0)
	reg(ListSetRef, "LIST_SET_REF", 0, 3, 0)
	reg(ListPushI32, "LIST_PUSH_I32", 0, 2, 0)
	reg(ListPushI64, "LIST_PUSH_I64", 0, 2, 0)
	reg(ListPushF32, "LIST_PUSH_F32", 0, 2, 0)
	reg(ListPushF64, "LIST_PUSH_F64", 0, 2, 0)
	reg(ListPushRef, "LIST_PUSH_REF", 0, 2, 0)
	reg(ListPopI32, "LIST_POP_I32", 0, 1, 1)
	reg(ListPopI64, "LIST_POP_I64", 0, 1, 1)
	reg(ListPopF32, "LIST_POP_F32", 0, 1, 1)
	reg(ListPopF64, "LIST_POP_F64", 0, 1, 1)
	reg(ListPopRef, "LIST_POP_REF", 0, 1, 1)
	reg(ListInsertI32, "LIST_INSERT_I32", 0, 3, 0)
	reg(ListInsertI64, "LIST_INSERT_I64", 0, 3, 0)
	reg(ListInsertF32, "LIST_INSERT_F32", 0, 3, 0)
	reg(ListInsertF64, "LIST_INSERT_F64", 0, 3, 0)
	reg(ListInsertRef, "LIST_INSERT_REF", 0, 3, 0)
	reg(ListRemoveI32, "LIST_REMOVE_I32", 0, 2, 1)
	reg(ListRemoveI64, "LIST_REMOVE_I64", 0, 2, 1)
	reg(ListRemoveF32, "LIST_REMOVE_F32", 0, 2, 1)
	reg(ListRemoveF64, "LIST_REMOVE_F64", 0, 2, 1)
	reg(ListRemoveRef, "LIST_REMOVE_REF", 0, 2, 1)
	reg(ListClear, "LIST_CLEAR", 0, 1, 0)

	reg(StringLen, "STRING_LEN", 0, 1, 1)
	reg(StringConcat, "STRING_CONCAT", 0, 2, 1)
	reg(StringGetChar, "STRING_GET_CHAR", 0, 2, 1)
	reg(StringSlice, "STRING_SLICE", 0, 3, 1)

	reg(AddI32, "ADD_I32", 0, 2, 1)
	reg(SubI32, "SUB_I32", 0, 2, 1)
	reg(MulI32, "MUL_I32", 0, 2, 1)
	reg(DivI32, "DIV_I32", 0, 2, 1)
	reg(ModI32, "MOD_I32", 0, 2, 1)
	reg(NegI32, "NEG_I32", 0, 1, 1)
	reg(IncI32, "INC_I32", 0, 1, 1)
	reg(DecI32, "DEC_I32", 0, 1, 1)

	reg(AddU32, "ADD_U32", 0, 2, 1)
	reg(SubU32, "SUB_U32", 0, 2, 1)
	reg(MulU32, "MUL_U32", 0, 2, 1)
	reg(DivU32, "DIV_U32", 0, 2, 1)
	reg(ModU32, "MOD_U32", 0, 2, 1)
	reg(NegU32, "NEG_U32", 0, 1, 1)
	reg(IncU32, "INC_U32", 0, 1, 1)
	reg(DecU32, "DEC_U32", 0, 1, 1)

	reg(AndI32, "AND_I32", 0, 2, 1)
	reg(OrI32, "OR_I32", 0, 2, 1)
	reg(XorI32, "XOR_I32", 0, 2, 1)
	reg(ShlI32, "SHL_I32", 0, 2, 1)
	reg(ShrI32, "SHR_I32", 0, 2, 1)

	reg(IncI8, "INC_I8", 0, 1, 1)
	reg(DecI8, "DEC_I8", 0, 1, 1)
	reg(NegI8, "NEG_I8", 0, 1, 1)
	reg(IncI16, "INC_I16", 0, 1, 1)
	reg(DecI16, "DEC_I16", 0, 1, 1)
	reg(NegI16, "NEG_I16", 0, 1, 1)
	reg(IncU8, "INC_U8", 0, 1, 1)
	reg(DecU8, "DEC_U8", 0, 1, 1)
	reg(NegU8, "NEG_U8", 0, 1, 1)
	reg(IncU16, "INC_U16", 0, 1, 1)
	reg(DecU16, "DEC_U16", 0, 1, 1)
	reg(NegU16, "NEG_U16", 0, 1, 1)

	reg(AddI64, "ADD_I64", 0, 2, 1)
	reg(SubI64, "SUB_I64", 0, 2, 1)
	reg(MulI64, "MUL_I64", 0, 2, 1)
	reg(DivI64, "DIV_I64", 0, 2, 1)
	reg(ModI64, "MOD_I64", 0, 2, 1)
	reg(NegI64, "NEG_I64", 0, 1, 1)
	reg(IncI64, "INC_I64", 0, 1, 1)
	reg(DecI64, "DEC_I64", 0, 1, 1)

	reg(AddU64, "ADD_U64", 0, 2, 1)
	reg(SubU64, "SUB_U64", 0, 2, 1)
	reg(MulU64, "MUL_U64", 0, 2, 1)
	reg(DivU64, "DIV_U64", 0, 2, 1)
	reg(ModU64, "MOD_U64", 0, 2, 1)
	reg(NegU64, "NEG_U64", 0, 1, 1)
	reg(IncU64, "INC_U64", 0, 1, 1)
	reg(DecU64, "DEC_U64", 0, 1, 1)

	reg(AndI64, "AND_I64", 0, 2, 1)
	reg(OrI64, "OR_I64", 0, 2, 1)
	reg(XorI64, "XOR_I64", 0, 2, 1)
	reg(ShlI64, "SHL_I64", 0, 2, 1)
	reg(ShrI64, "SHR_I64", 0, 2, 1)

	reg(AddF32, "ADD_F32", 0, 2, 1)
	reg(SubF32, "SUB_F32", 0, 2, 1)
	reg(MulF32, "MUL_F32", 0, 2, 1)
	reg(DivF32, "DIV_F32", 0, 2, 1)
	reg(NegF32, "NEG_F32", 0, 1, 1)
	reg(IncF32, "INC_F32", 0, 1, 1)
	reg(DecF32, "DEC_F32", 0, 1, 1)

	reg(AddF64, "ADD_F64", 0, 2, 1)
	reg(SubF64, "SUB_F64", 0, 2, 1)
	reg(MulF64, "MUL_F64", 0, 2, 1)
	reg(DivF64, "DIV_F64", 0, 2, 1)
	reg(NegF64, "NEG_F64", 0, 1, 1)
	reg(IncF64, "INC_F64", 0, 1, 1)
	reg(DecF64, "DEC_F64", 0, 1, 1)

	reg(CmpEqI32, "CMP_EQ_I32", 0, 2, 1)
	reg(CmpNeI32, "CMP_NE_I32", 0, 2, 1)
	reg(CmpLtI32, "CMP_LT_I32", 0, 2, 1)
	reg(CmpLeI32, "CMP_LE_I32", 0, 2, 1)
	reg(CmpGtI32, "CMP_GT_I32", 0, 2, 1)
	reg(CmpGeI32, "CMP_GE_I32", 0, 2, 1)

	reg(CmpEqU32, "CMP_EQ_U32", 0, 2, 1)
	reg(CmpNeU32, "CMP_NE_U32", 0, 2, 1)
	reg(CmpLtU32, "CMP_LT_U32", 0, 2, 1)
	reg(CmpLeU32, "CMP_LE_U32", 0, 2, 1)
	reg(CmpGtU32, "CMP_GT_U32", 0, 2, 1)
	reg(CmpGeU32, "CMP_GE_U32", 0, 2, 1)

	reg(CmpEqI64, "CMP_EQ_I64", 0, 2, 1)
	reg(CmpNeI64, "CMP_NE_I64", 0, 2, 1)
	reg(CmpLtI64, "CMP_LT_I64", 0, 2, 1)
	reg(CmpLeI64, "CMP_LE_I64", 0, 2, 1)
	reg(CmpGtI64, "CMP_GT_I64", 0, 2, 1)
	reg(CmpGeI64, "CMP_GE_I64", 0, 2, 1)

	reg(CmpEqU64, "CMP_EQ_U64", 0, 2, 1)
	reg(CmpNeU64, "CMP_NE_U64", 0, 2, 1)
	reg(CmpLtU64, "CMP_LT_U64", 0, 2, 1)
	reg(CmpLeU64, "CMP_LE_U64", 0, 2, 1)
	reg(CmpGtU64, "CMP_GT_U64", 0, 2, 1)
	reg(CmpGeU64, "CMP_GE_U64", 0, 2, 1)

	reg(CmpEqF32, "CMP_EQ_F32", 0, 2, 1)
	reg(CmpNeF32, "CMP_NE_F32", 0, 2, 1)
	reg(CmpLtF32, "CMP_LT_F32", 0, 2, 1)
	reg(CmpLeF32, "CMP_LE_F32", 0, 2, 1)
	reg(CmpGtF32, "CMP_GT_F32", 0, 2, 1)
	reg(CmpGeF32, "CMP_GE_F32", 0, 2, 1)

	reg(CmpEqF64, "CMP_EQ_F64", 0, 2, 1)
	reg(CmpNeF64, "CMP_NE_F64", 0, 2, 1)
	reg(CmpLtF64, "CMP_LT_F64", 0, 2, 1)
	reg(CmpLeF64, "CMP_LE_F64", 0, 2, 1)
	reg(CmpGtF64, "CMP_GT_F64", 0, 2, 1)
	reg(CmpGeF64, "CMP_GE_F64", 0, 2, 1)

	reg(BoolNot, "BOOL_NOT", 0, 1, 1)
	reg(BoolAnd, "BOOL_AND", 0, 2, 1)
	reg(BoolOr, "BOOL_OR", 0, 2, 1)

	reg(IsNull, "IS_NULL", 0, 1, 1)
	reg(RefEq, "REF_EQ", 0, 2, 1)
	reg(RefNe, "REF_NE", 0, 2, 1)
	reg(TypeOf, "TYPEOF", 0, 1, 1)

	reg(ConvI32ToI64, "CONV_I32_TO_I64", 0, 1, 1)
	reg(ConvI64ToI32, "CONV_I64_TO_I32", 0, 1, 1)
	reg(ConvI32ToF32, "CONV_I32_TO_F32", 0, 1, 1)
	reg(ConvI32ToF64, "CONV_I32_TO_F64", 0, 1, 1)
	reg(ConvF32ToI32, "CONV_F32_TO_I32", 0, 1, 1)
	reg(ConvF64ToI32, "CONV_F64_TO_I32", 0, 1, 1)
	reg(ConvF32ToF64, "CONV_F32_TO_F64", 0, 1, 1)
	reg(ConvF64ToF32, "CONV_F64_TO_F32", 0, 1, 1)
}

// GetInfo returns the static info for an opcode. ok is false for any byte
// value that doesn't name a known instruction.
func GetInfo(b uint8) (Info, bool) {
	if OpCode(b) >= opCodeCount {
		return Info{}, false
	}
	info := table[b]
	if info.Name == "" {
		return Info{}, false
	}
	return info, true
}

// Name returns the mnemonic for an opcode, or "" if unknown.
func Name(b uint8) string {
	info, ok := GetInfo(b)
	if !ok {
		return ""
	}
	return info.Name
}
