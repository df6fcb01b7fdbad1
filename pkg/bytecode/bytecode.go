// Package bytecode implements the versioned binary layout an Executable
// is serialized to and deserialized from.
package bytecode

import "encoding/binary"

// FormatVersion is the current on-disk format tag. Decode rejects any
// other value.
const FormatVersion uint16 = 17

// Executable is the in-memory form of one compiled program: everything
// the runtime evaluator needs to start executing, plus enough identity
// (CompilerVersion) to diagnose a version skew between toolchain and
// runtime builds.
type Executable struct {
	CompilerVersion  string
	EntrypointOffset uint32
	Strings          []string
	Instructions     []byte
}

// Encode serializes e into the little-endian, length-prefixed layout:
//
//	u16  formatVersion
//	u32  entrypointOffset
//	u32  compilerVersionLen, bytes[...]
//	u32  numLitStrings, { u32 len, bytes[...] } x N
//	u32  numInstructionBytes, bytes[...]
func Encode(e *Executable) []byte {
	size := 2 + 4 + 4 + len(e.CompilerVersion) + 4
	for _, s := range e.Strings {
		size += 4 + len(s)
	}
	size += 4 + len(e.Instructions)

	buf := make([]byte, size)
	pos := 0
	binary.LittleEndian.PutUint16(buf[pos:], FormatVersion)
	pos += 2
	binary.LittleEndian.PutUint32(buf[pos:], e.EntrypointOffset)
	pos += 4
	pos = putString(buf, pos, e.CompilerVersion)

	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(e.Strings)))
	pos += 4
	for _, s := range e.Strings {
		pos = putString(buf, pos, s)
	}

	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(e.Instructions)))
	pos += 4
	pos += copy(buf[pos:], e.Instructions)

	return buf[:pos]
}

func putString(buf []byte, pos int, s string) int {
	binary.LittleEndian.PutUint32(buf[pos:], uint32(len(s)))
	pos += 4
	pos += copy(buf[pos:], s)
	return pos
}

// Decode parses buf into an Executable. ok is false on a format-version
// mismatch or on any truncation; in both cases the returned Executable
// is nil.
func Decode(buf []byte) (exe *Executable, ok bool) {
	r := reader{buf: buf}
	version, ok := r.u16()
	if !ok || version != FormatVersion {
		return nil, false
	}
	entrypoint, ok := r.u32()
	if !ok {
		return nil, false
	}
	compilerVersion, ok := r.str()
	if !ok {
		return nil, false
	}
	numStrings, ok := r.u32()
	if !ok {
		return nil, false
	}
	strs := make([]string, 0, numStrings)
	for i := uint32(0); i < numStrings; i++ {
		s, ok := r.str()
		if !ok {
			return nil, false
		}
		strs = append(strs, s)
	}
	instrLen, ok := r.u32()
	if !ok {
		return nil, false
	}
	instrs, ok := r.bytes(int(instrLen))
	if !ok {
		return nil, false
	}
	return &Executable{
		CompilerVersion:  compilerVersion,
		EntrypointOffset: entrypoint,
		Strings:          strs,
		Instructions:     instrs,
	}, true
}

// reader is a truncation-safe cursor over a byte slice; every accessor
// returns ok=false instead of panicking once buf is exhausted.
type reader struct {
	buf []byte
	pos int
}

func (r *reader) u16() (uint16, bool) {
	if r.pos+2 > len(r.buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, true
}

func (r *reader) u32() (uint32, bool) {
	if r.pos+4 > len(r.buf) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, true
}

func (r *reader) bytes(n int) ([]byte, bool) {
	if n < 0 || r.pos+n > len(r.buf) {
		return nil, false
	}
	b := make([]byte, n)
	copy(b, r.buf[r.pos:r.pos+n])
	r.pos += n
	return b, true
}

func (r *reader) str() (string, bool) {
	n, ok := r.u32()
	if !ok {
		return "", false
	}
	b, ok := r.bytes(int(n))
	if !ok {
		return "", false
	}
	return string(b), true
}
