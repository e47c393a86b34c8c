package loader

import (
	"bytes"
	"encoding/binary"

	"github.com/sbc-lang/sbcvm/internal/sbc"
)

// Encode serializes m into the SBC1 format Load reads. Used by tests to
// build module fixtures without hand-assembling byte slices; no production
// code path writes this format.
func Encode(m *sbc.Module) []byte {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	putU32(&buf, m.Header.EntryMethodID)

	putU32(&buf, uint32(len(m.Types)))
	putU32(&buf, uint32(len(m.Fields)))
	putU32(&buf, uint32(len(m.Globals)))
	putU32(&buf, uint32(len(m.Sigs)))
	putU32(&buf, uint32(len(m.ParamTypes)))
	putU32(&buf, uint32(len(m.Methods)))
	putU32(&buf, uint32(len(m.Functions)))
	putU32(&buf, uint32(len(m.Code)))
	putU32(&buf, uint32(len(m.ConstPool)))

	for _, t := range m.Types {
		buf.WriteByte(byte(t.Kind))
		buf.WriteByte(t.Flags)
	}
	for _, f := range m.Fields {
		putU32(&buf, f.TypeID)
	}
	for _, g := range m.Globals {
		putU32(&buf, g.TypeID)
		putU32(&buf, g.InitConstID)
	}
	for _, s := range m.Sigs {
		putU16(&buf, s.ParamCount)
		putU32(&buf, s.ParamTypeStart)
		putU32(&buf, s.RetTypeID)
	}
	for _, pt := range m.ParamTypes {
		putU32(&buf, pt)
	}
	for _, meth := range m.Methods {
		putU32(&buf, meth.NameStr)
		putU32(&buf, meth.SigID)
		putU16(&buf, meth.LocalCount)
	}
	for _, fn := range m.Functions {
		putU32(&buf, fn.MethodID)
		putU32(&buf, fn.CodeOffset)
		putU32(&buf, fn.CodeSize)
		putU32(&buf, fn.StackMax)
	}
	buf.Write(m.Code)
	buf.Write(m.ConstPool)

	return buf.Bytes()
}

func putU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

func putU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}
