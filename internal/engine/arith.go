package engine

import "github.com/sbc-lang/sbcvm/internal/opcode"

// execArith implements every arithmetic, bitwise, narrow-integer, and
// comparison opcode the verifier's applyArithFamily type-checks but does
// not itself evaluate. All I32/U32/I64/U64 math wraps modulo 2^32/2^64 per
// Go's defined integer overflow behavior; float math is plain IEEE 754 via
// Go's float32/float64 operators.
func (ctx *execContext) execArith(op opcode.OpCode) {
	switch op {
	case opcode.AddI32, opcode.AddU32:
		v := ctx.popN(2)
		ctx.push(u32Value(v[0].asU32() + v[1].asU32()))
	case opcode.SubI32, opcode.SubU32:
		v := ctx.popN(2)
		ctx.push(u32Value(v[0].asU32() - v[1].asU32()))
	case opcode.MulI32, opcode.MulU32:
		v := ctx.popN(2)
		ctx.push(u32Value(v[0].asU32() * v[1].asU32()))
	case opcode.DivI32:
		v := ctx.popN(2)
		if v[1].asI32() == 0 {
			panic(trapPanic{ErrIntegerDivideByZero})
		}
		ctx.push(i32Value(v[0].asI32() / v[1].asI32()))
	case opcode.DivU32:
		v := ctx.popN(2)
		if v[1].asU32() == 0 {
			panic(trapPanic{ErrIntegerDivideByZero})
		}
		ctx.push(u32Value(v[0].asU32() / v[1].asU32()))
	case opcode.ModI32:
		v := ctx.popN(2)
		if v[1].asI32() == 0 {
			panic(trapPanic{ErrIntegerDivideByZero})
		}
		ctx.push(i32Value(v[0].asI32() % v[1].asI32()))
	case opcode.ModU32:
		v := ctx.popN(2)
		if v[1].asU32() == 0 {
			panic(trapPanic{ErrIntegerDivideByZero})
		}
		ctx.push(u32Value(v[0].asU32() % v[1].asU32()))
	case opcode.NegI32:
		v := ctx.pop()
		ctx.push(i32Value(-v.asI32()))
	case opcode.NegU32:
		v := ctx.pop()
		ctx.push(u32Value(-v.asU32()))
	case opcode.IncI32, opcode.IncU32:
		v := ctx.pop()
		ctx.push(u32Value(v.asU32() + 1))
	case opcode.DecI32, opcode.DecU32:
		v := ctx.pop()
		ctx.push(u32Value(v.asU32() - 1))

	case opcode.AndI32:
		v := ctx.popN(2)
		ctx.push(u32Value(v[0].asU32() & v[1].asU32()))
	case opcode.OrI32:
		v := ctx.popN(2)
		ctx.push(u32Value(v[0].asU32() | v[1].asU32()))
	case opcode.XorI32:
		v := ctx.popN(2)
		ctx.push(u32Value(v[0].asU32() ^ v[1].asU32()))
	case opcode.ShlI32:
		v := ctx.popN(2)
		ctx.push(u32Value(v[0].asU32() << (v[1].asU32() & 31)))
	case opcode.ShrI32:
		v := ctx.popN(2)
		ctx.push(i32Value(v[0].asI32() >> (v[1].asU32() & 31)))

	case opcode.IncI8:
		v := ctx.pop()
		ctx.push(i32Value(int32(int8(v.asI32()) + 1)))
	case opcode.DecI8:
		v := ctx.pop()
		ctx.push(i32Value(int32(int8(v.asI32()) - 1)))
	case opcode.NegI8:
		v := ctx.pop()
		ctx.push(i32Value(int32(-int8(v.asI32()))))
	case opcode.IncI16:
		v := ctx.pop()
		ctx.push(i32Value(int32(int16(v.asI32()) + 1)))
	case opcode.DecI16:
		v := ctx.pop()
		ctx.push(i32Value(int32(int16(v.asI32()) - 1)))
	case opcode.NegI16:
		v := ctx.pop()
		ctx.push(i32Value(int32(-int16(v.asI32()))))
	case opcode.IncU8:
		v := ctx.pop()
		ctx.push(u32Value(uint32(uint8(v.asU32()) + 1)))
	case opcode.DecU8:
		v := ctx.pop()
		ctx.push(u32Value(uint32(uint8(v.asU32()) - 1)))
	case opcode.NegU8:
		v := ctx.pop()
		ctx.push(u32Value(uint32(-uint8(v.asU32()))))
	case opcode.IncU16:
		v := ctx.pop()
		ctx.push(u32Value(uint32(uint16(v.asU32()) + 1)))
	case opcode.DecU16:
		v := ctx.pop()
		ctx.push(u32Value(uint32(uint16(v.asU32()) - 1)))
	case opcode.NegU16:
		v := ctx.pop()
		ctx.push(u32Value(uint32(-uint16(v.asU32()))))

	case opcode.AddI64, opcode.AddU64:
		v := ctx.popN(2)
		ctx.push(u64Value(v[0].asU64() + v[1].asU64()))
	case opcode.SubI64, opcode.SubU64:
		v := ctx.popN(2)
		ctx.push(u64Value(v[0].asU64() - v[1].asU64()))
	case opcode.MulI64, opcode.MulU64:
		v := ctx.popN(2)
		ctx.push(u64Value(v[0].asU64() * v[1].asU64()))
	case opcode.DivI64:
		v := ctx.popN(2)
		if v[1].asI64() == 0 {
			panic(trapPanic{ErrIntegerDivideByZero})
		}
		ctx.push(i64Value(v[0].asI64() / v[1].asI64()))
	case opcode.DivU64:
		v := ctx.popN(2)
		if v[1].asU64() == 0 {
			panic(trapPanic{ErrIntegerDivideByZero})
		}
		ctx.push(u64Value(v[0].asU64() / v[1].asU64()))
	case opcode.ModI64:
		v := ctx.popN(2)
		if v[1].asI64() == 0 {
			panic(trapPanic{ErrIntegerDivideByZero})
		}
		ctx.push(i64Value(v[0].asI64() % v[1].asI64()))
	case opcode.ModU64:
		v := ctx.popN(2)
		if v[1].asU64() == 0 {
			panic(trapPanic{ErrIntegerDivideByZero})
		}
		ctx.push(u64Value(v[0].asU64() % v[1].asU64()))
	case opcode.NegI64:
		v := ctx.pop()
		ctx.push(i64Value(-v.asI64()))
	case opcode.NegU64:
		v := ctx.pop()
		ctx.push(u64Value(-v.asU64()))
	case opcode.IncI64, opcode.IncU64:
		v := ctx.pop()
		ctx.push(u64Value(v.asU64() + 1))
	case opcode.DecI64, opcode.DecU64:
		v := ctx.pop()
		ctx.push(u64Value(v.asU64() - 1))

	case opcode.AndI64:
		v := ctx.popN(2)
		ctx.push(u64Value(v[0].asU64() & v[1].asU64()))
	case opcode.OrI64:
		v := ctx.popN(2)
		ctx.push(u64Value(v[0].asU64() | v[1].asU64()))
	case opcode.XorI64:
		v := ctx.popN(2)
		ctx.push(u64Value(v[0].asU64() ^ v[1].asU64()))
	case opcode.ShlI64:
		v := ctx.popN(2)
		ctx.push(u64Value(v[0].asU64() << (v[1].asU64() & 63)))
	case opcode.ShrI64:
		v := ctx.popN(2)
		ctx.push(i64Value(v[0].asI64() >> (v[1].asU64() & 63)))

	case opcode.AddF32:
		v := ctx.popN(2)
		ctx.push(f32Value(v[0].asF32() + v[1].asF32()))
	case opcode.SubF32:
		v := ctx.popN(2)
		ctx.push(f32Value(v[0].asF32() - v[1].asF32()))
	case opcode.MulF32:
		v := ctx.popN(2)
		ctx.push(f32Value(v[0].asF32() * v[1].asF32()))
	case opcode.DivF32:
		v := ctx.popN(2)
		ctx.push(f32Value(v[0].asF32() / v[1].asF32()))
	case opcode.NegF32:
		v := ctx.pop()
		ctx.push(f32Value(-v.asF32()))
	case opcode.IncF32:
		v := ctx.pop()
		ctx.push(f32Value(v.asF32() + 1))
	case opcode.DecF32:
		v := ctx.pop()
		ctx.push(f32Value(v.asF32() - 1))

	case opcode.AddF64:
		v := ctx.popN(2)
		ctx.push(f64Value(v[0].asF64() + v[1].asF64()))
	case opcode.SubF64:
		v := ctx.popN(2)
		ctx.push(f64Value(v[0].asF64() - v[1].asF64()))
	case opcode.MulF64:
		v := ctx.popN(2)
		ctx.push(f64Value(v[0].asF64() * v[1].asF64()))
	case opcode.DivF64:
		v := ctx.popN(2)
		ctx.push(f64Value(v[0].asF64() / v[1].asF64()))
	case opcode.NegF64:
		v := ctx.pop()
		ctx.push(f64Value(-v.asF64()))
	case opcode.IncF64:
		v := ctx.pop()
		ctx.push(f64Value(v.asF64() + 1))
	case opcode.DecF64:
		v := ctx.pop()
		ctx.push(f64Value(v.asF64() - 1))

	case opcode.CmpEqI32, opcode.CmpEqU32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].Bits == v[1].Bits))
	case opcode.CmpNeI32, opcode.CmpNeU32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].Bits != v[1].Bits))
	case opcode.CmpLtI32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asI32() < v[1].asI32()))
	case opcode.CmpLeI32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asI32() <= v[1].asI32()))
	case opcode.CmpGtI32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asI32() > v[1].asI32()))
	case opcode.CmpGeI32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asI32() >= v[1].asI32()))
	case opcode.CmpLtU32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asU32() < v[1].asU32()))
	case opcode.CmpLeU32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asU32() <= v[1].asU32()))
	case opcode.CmpGtU32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asU32() > v[1].asU32()))
	case opcode.CmpGeU32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asU32() >= v[1].asU32()))

	case opcode.CmpEqI64, opcode.CmpEqU64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].Bits == v[1].Bits))
	case opcode.CmpNeI64, opcode.CmpNeU64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].Bits != v[1].Bits))
	case opcode.CmpLtI64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asI64() < v[1].asI64()))
	case opcode.CmpLeI64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asI64() <= v[1].asI64()))
	case opcode.CmpGtI64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asI64() > v[1].asI64()))
	case opcode.CmpGeI64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asI64() >= v[1].asI64()))
	case opcode.CmpLtU64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asU64() < v[1].asU64()))
	case opcode.CmpLeU64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asU64() <= v[1].asU64()))
	case opcode.CmpGtU64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asU64() > v[1].asU64()))
	case opcode.CmpGeU64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asU64() >= v[1].asU64()))

	case opcode.CmpEqF32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF32() == v[1].asF32()))
	case opcode.CmpNeF32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF32() != v[1].asF32()))
	case opcode.CmpLtF32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF32() < v[1].asF32()))
	case opcode.CmpLeF32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF32() <= v[1].asF32()))
	case opcode.CmpGtF32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF32() > v[1].asF32()))
	case opcode.CmpGeF32:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF32() >= v[1].asF32()))

	case opcode.CmpEqF64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF64() == v[1].asF64()))
	case opcode.CmpNeF64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF64() != v[1].asF64()))
	case opcode.CmpLtF64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF64() < v[1].asF64()))
	case opcode.CmpLeF64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF64() <= v[1].asF64()))
	case opcode.CmpGtF64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF64() > v[1].asF64()))
	case opcode.CmpGeF64:
		v := ctx.popN(2)
		ctx.push(boolValue(v[0].asF64() >= v[1].asF64()))

	default:
		panic(trapPanic{ErrUnsupportedOpcode})
	}
}
