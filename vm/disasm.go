package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the chunk.
func Disassemble(c *Chunk, name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "== %s ==\n", name)
	for offset := 0; offset < len(c.Code); {
		offset = disassembleInstruction(&b, c, offset)
	}
	return b.String()
}

func disassembleInstruction(b *strings.Builder, c *Chunk, offset int) int {
	fmt.Fprintf(b, "%04d ", offset)
	if offset > 0 && c.LineAt(offset) == c.LineAt(offset-1) {
		b.WriteString("   | ")
	} else {
		fmt.Fprintf(b, "%4d ", c.LineAt(offset))
	}

	op := Opcode(c.Code[offset])
	info, ok := op.Info()
	if !ok {
		fmt.Fprintf(b, "%s\n", op)
		return offset + 1
	}
	if offset+1+info.OperandBytes > len(c.Code) {
		fmt.Fprintf(b, "%-16s <truncated>\n", info.Name)
		return len(c.Code)
	}

	switch op {
	case OpPushConstant, OpPushGlobal, OpStoreGlobal, OpDefineGlobal:
		idx := int(c.ReadUint16(offset + 1))
		constant := "<bad index>"
		if idx < len(c.Constants) {
			constant = c.Constants[idx].String()
		}
		fmt.Fprintf(b, "%-16s %4d '%s'\n", info.Name, idx, constant)
	case OpJump, OpJumpIfFalse:
		jump := int(c.ReadUint16(offset + 1))
		fmt.Fprintf(b, "%-16s %4d -> %d\n", info.Name, offset, offset+3+jump)
	case OpLoop:
		jump := int(c.ReadUint16(offset + 1))
		fmt.Fprintf(b, "%-16s %4d -> %d\n", info.Name, offset, offset+3-jump)
	case OpPushLocal, OpStoreLocal, OpCall:
		fmt.Fprintf(b, "%-16s %4d\n", info.Name, c.Code[offset+1])
	default:
		fmt.Fprintf(b, "%s\n", info.Name)
	}
	return offset + 1 + info.OperandBytes
}
