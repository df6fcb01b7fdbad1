package codegen

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/novalang/novac/pkg/opcode"
)

// operandWidths gives the immediate-operand byte width for every opcode
// that takes one, used by Disassemble to walk the instruction stream
// without re-deriving it from emission call sites. Opcodes absent here
// take no operand. Jump/JumpIf's 2-byte operand is the label-relative
// offset written by assembler.emitJump; LoadLitIp's 4-byte operand is
// the absolute function offset written by assembler.emitIPRef.
var operandWidths = map[opcode.Op]int{
	opcode.LoadLitInt8:    1,
	opcode.LoadLitInt32:   4,
	opcode.LoadLitLong:    8,
	opcode.LoadLitFloat:   8,
	opcode.LoadLitString:  4,
	opcode.LoadLitIp:      4,
	opcode.AllocLocals:    2,
	opcode.LoadLocal:      2,
	opcode.StoreLocal:     2,
	opcode.MakeStruct:     1,
	opcode.StructLoadField: 1,
	opcode.Jump:           2,
	opcode.JumpIf:         2,
	opcode.Call:           2,
	opcode.CallTail:       2,
	opcode.CallForked:     2,
	opcode.PCall:          2,
	opcode.AtomicCompareSwap: 2,
	opcode.FutureBlock:    1,
}

// Disassemble renders m's instruction stream as one mnemonic-plus-
// operand line per instruction, labelled by byte offset, for golden-diff
// tests and debugging dumps. It is a plain textual view, not a parser:
// malformed or truncated streams stop rendering rather than erroring,
// since only codegen itself ever produces the bytes it reads.
func Disassemble(m *Module) string {
	var b strings.Builder
	fmt.Fprintf(&b, "entry: %d\n", m.EntrypointOffset)
	for i, s := range m.Strings {
		fmt.Fprintf(&b, "string[%d]: %q\n", i, s)
	}
	buf := m.Instructions
	pos := 0
	for pos < len(buf) {
		op := opcode.Op(buf[pos])
		width := operandWidths[op]
		if pos+1+width > len(buf) {
			fmt.Fprintf(&b, "%04x: %s <truncated>\n", pos, op)
			break
		}
		operand := buf[pos+1 : pos+1+width]
		fmt.Fprintf(&b, "%04x: %-16s %s\n", pos, op, formatOperand(op, operand))
		pos += 1 + width
	}
	return b.String()
}

func formatOperand(op opcode.Op, operand []byte) string {
	switch len(operand) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("%d", operand[0])
	case 2:
		if op == opcode.Jump || op == opcode.JumpIf {
			return fmt.Sprintf("%+d", int16(binary.LittleEndian.Uint16(operand)))
		}
		return fmt.Sprintf("%d", binary.LittleEndian.Uint16(operand))
	case 4:
		return fmt.Sprintf("%d", binary.LittleEndian.Uint32(operand))
	case 8:
		return fmt.Sprintf("%d", binary.LittleEndian.Uint64(operand))
	}
	return ""
}
