// Package loader is this repo's concrete stand-in for the module format
// consumer named, but deliberately left undefined, by spec §6 ("External
// Interfaces: the on-disk/in-memory module format is produced by a loader
// outside this module's scope"). It exists so the CLI and tests have a
// module to feed the verifier and engine: a small fixed-width,
// little-endian encoding ("SBC1") of the sbc.Module tables, with no
// compression or variable-length (LEB128-style) integers. A real
// production loader would parse whatever format upstream tooling emits;
// this one parses its own.
package loader

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/sbc-lang/sbcvm/internal/sbc"
)

// Magic identifies the wire format's first four bytes.
var Magic = [4]byte{'S', 'B', 'C', '1'}

// Load decodes a Module from r in the SBC1 format.
func Load(r io.Reader) (*sbc.Module, error) {
	br := &byteReader{r: r}

	var magic [4]byte
	br.read(magic[:])
	if magic != Magic {
		return nil, fmt.Errorf("loader: bad magic %q", magic[:])
	}

	m := &sbc.Module{}
	m.Header.EntryMethodID = br.u32()

	numTypes := br.u32()
	numFields := br.u32()
	numGlobals := br.u32()
	numSigs := br.u32()
	numParamTypes := br.u32()
	numMethods := br.u32()
	numFunctions := br.u32()
	codeLen := br.u32()
	constPoolLen := br.u32()

	m.Types = make([]sbc.Type, numTypes)
	for i := range m.Types {
		m.Types[i] = sbc.Type{Kind: sbc.TypeKind(br.u8()), Flags: br.u8()}
	}

	m.Fields = make([]sbc.Field, numFields)
	for i := range m.Fields {
		m.Fields[i] = sbc.Field{TypeID: br.u32()}
	}

	m.Globals = make([]sbc.Global, numGlobals)
	for i := range m.Globals {
		m.Globals[i] = sbc.Global{TypeID: br.u32(), InitConstID: br.u32()}
	}

	m.Sigs = make([]sbc.Sig, numSigs)
	for i := range m.Sigs {
		m.Sigs[i] = sbc.Sig{ParamCount: br.u16(), ParamTypeStart: br.u32(), RetTypeID: br.u32()}
	}

	m.ParamTypes = make([]uint32, numParamTypes)
	for i := range m.ParamTypes {
		m.ParamTypes[i] = br.u32()
	}

	m.Methods = make([]sbc.Method, numMethods)
	for i := range m.Methods {
		m.Methods[i] = sbc.Method{NameStr: br.u32(), SigID: br.u32(), LocalCount: br.u16()}
	}

	m.Functions = make([]sbc.Function, numFunctions)
	for i := range m.Functions {
		m.Functions[i] = sbc.Function{
			MethodID:   br.u32(),
			CodeOffset: br.u32(),
			CodeSize:   br.u32(),
			StackMax:   br.u32(),
		}
	}

	m.Code = make([]byte, codeLen)
	br.read(m.Code)
	m.ConstPool = make([]byte, constPoolLen)
	br.read(m.ConstPool)

	if br.err != nil {
		return nil, fmt.Errorf("loader: %w", br.err)
	}
	return m, nil
}

// byteReader centralizes the little-endian reads above and latches the
// first error, so Load's body reads as a flat sequence of field reads
// instead of an if-err-return-err chain per field.
type byteReader struct {
	r   io.Reader
	err error
}

func (b *byteReader) read(buf []byte) {
	if b.err != nil {
		return
	}
	_, b.err = io.ReadFull(b.r, buf)
}

func (b *byteReader) u8() uint8 {
	var buf [1]byte
	b.read(buf[:])
	return buf[0]
}

func (b *byteReader) u16() uint16 {
	var buf [2]byte
	b.read(buf[:])
	return binary.LittleEndian.Uint16(buf[:])
}

func (b *byteReader) u32() uint32 {
	var buf [4]byte
	b.read(buf[:])
	return binary.LittleEndian.Uint32(buf[:])
}
