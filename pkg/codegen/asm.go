// Package codegen lowers a finished, optimized ir.Program into a flat
// bytecode module: entry-point offset, deduplicated string pool, and a
// linear instruction stream.
package codegen

import (
	"encoding/binary"
	"math"

	"github.com/novalang/novac/pkg/opcode"
)

// label names a jump/call target whose byte offset is not yet known;
// forward references are recorded and patched once the target position
// is fixed by setLabel.
type label int

type jumpFixup struct {
	operandPos int // offset of the 2-byte relative operand to patch
	target     label
}

type ipFixup struct {
	operandPos int // offset of the 4-byte absolute operand to patch
	target     label
}

// assembler accumulates one Program's instruction stream, resolving
// every label reference into an absolute or relative offset at finish.
type assembler struct {
	buf        []byte
	labelPos   []int // label -> resolved byte offset, -1 until set
	jumpFixups []jumpFixup
	ipFixups   []ipFixup

	strings  []string
	strIndex map[string]int
}

func newAssembler() *assembler {
	return &assembler{strIndex: make(map[string]int)}
}

func (a *assembler) newLabel() label {
	a.labelPos = append(a.labelPos, -1)
	return label(len(a.labelPos) - 1)
}

func (a *assembler) setLabel(l label) {
	a.labelPos[l] = len(a.buf)
}

func (a *assembler) pc() int { return len(a.buf) }

func (a *assembler) emitOp(op opcode.Op) {
	a.buf = append(a.buf, byte(op))
}

func (a *assembler) emitByte(b byte) {
	a.buf = append(a.buf, b)
}

func (a *assembler) emitU16(v uint16) {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	a.buf = append(a.buf, tmp[:]...)
}

func (a *assembler) emitU32(v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	a.buf = append(a.buf, tmp[:]...)
}

func (a *assembler) emitI32(v int32) {
	a.emitU32(uint32(v))
}

func (a *assembler) emitI64(v int64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], uint64(v))
	a.buf = append(a.buf, tmp[:]...)
}

func (a *assembler) emitF64(v float64) {
	a.emitI64(int64(math.Float64bits(v)))
}

// emitJump writes op followed by a placeholder 16-bit relative operand,
// recording a fixup so finish can patch it once l is resolved.
func (a *assembler) emitJump(op opcode.Op, l label) {
	a.emitOp(op)
	pos := len(a.buf)
	a.emitU16(0)
	a.jumpFixups = append(a.jumpFixups, jumpFixup{operandPos: pos, target: l})
}

// emitIPRef writes a placeholder 32-bit absolute function-offset operand
// (used by LoadLitIp), recording a fixup for finish.
func (a *assembler) emitIPRef(l label) {
	pos := len(a.buf)
	a.emitU32(0)
	a.ipFixups = append(a.ipFixups, ipFixup{operandPos: pos, target: l})
}

// internString deduplicates s into the module's string pool, returning
// its stable index.
func (a *assembler) internString(s string) uint32 {
	if idx, ok := a.strIndex[s]; ok {
		return uint32(idx)
	}
	idx := len(a.strings)
	a.strings = append(a.strings, s)
	a.strIndex[s] = idx
	return uint32(idx)
}

// finish patches every recorded jump and instruction-pointer fixup and
// returns the completed instruction stream and string pool. Every label
// returned by newLabel must have been set exactly once before finish is
// called; an unset label indicates an internal codegen bug, not a user
// error, so it panics rather than returning one.
func (a *assembler) finish() ([]byte, []string) {
	for _, f := range a.jumpFixups {
		target := a.labelPos[f.target]
		if target < 0 {
			panic("codegen: jump to unresolved label")
		}
		rel := int32(target - (f.operandPos + 2))
		binary.LittleEndian.PutUint16(a.buf[f.operandPos:], uint16(int16(rel)))
	}
	for _, f := range a.ipFixups {
		target := a.labelPos[f.target]
		if target < 0 {
			panic("codegen: ip-literal referencing unresolved label")
		}
		binary.LittleEndian.PutUint32(a.buf[f.operandPos:], uint32(target))
	}
	return a.buf, a.strings
}
