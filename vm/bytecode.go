package vm

import (
	"encoding/binary"
	"fmt"
)

// ---------------------------------------------------------------------------
// Opcode definitions
// ---------------------------------------------------------------------------

// Opcode represents a single bytecode instruction.
type Opcode byte

// Stack Operations
const (
	OpNOP Opcode = 0x00 // no operation
	OpPOP Opcode = 0x01 // discard top of stack
)

// Push Constants
const (
	OpPushNil      Opcode = 0x10 // push nil
	OpPushTrue     Opcode = 0x11 // push true
	OpPushFalse    Opcode = 0x12 // push false
	OpPushConstant Opcode = 0x13 // push constant (16-bit index)
)

// Variable Operations
const (
	OpPushLocal    Opcode = 0x20 // push local slot (8-bit index)
	OpStoreLocal   Opcode = 0x21 // store top into local slot (8-bit index)
	OpPushGlobal   Opcode = 0x22 // push global (16-bit name constant)
	OpStoreGlobal  Opcode = 0x23 // store top into existing global (16-bit name constant)
	OpDefineGlobal Opcode = 0x24 // pop and define global (16-bit name constant)
)

// Arithmetic and Comparison
const (
	OpAdd      Opcode = 0x40
	OpSubtract Opcode = 0x41
	OpMultiply Opcode = 0x42
	OpDivide   Opcode = 0x43
	OpModulo   Opcode = 0x44
	OpNegate   Opcode = 0x45
	OpNot      Opcode = 0x46
	OpEqual    Opcode = 0x47
	OpGreater  Opcode = 0x48
	OpLess     Opcode = 0x49
)

// Control Flow
const (
	OpJump        Opcode = 0x60 // unconditional forward jump (16-bit offset)
	OpJumpIfFalse Opcode = 0x61 // jump if top is falsey, no pop (16-bit offset)
	OpLoop        Opcode = 0x62 // unconditional backward jump (16-bit offset)
	OpCall        Opcode = 0x63 // call callee below argc arguments (8-bit argc)
	OpReturn      Opcode = 0x64 // end of program
)

// OpcodeInfo describes an opcode for the disassembler.
type OpcodeInfo struct {
	Name         string
	OperandBytes int
}

var opcodeTable = map[Opcode]OpcodeInfo{
	OpNOP:          {"NOP", 0},
	OpPOP:          {"POP", 0},
	OpPushNil:      {"PUSH_NIL", 0},
	OpPushTrue:     {"PUSH_TRUE", 0},
	OpPushFalse:    {"PUSH_FALSE", 0},
	OpPushConstant: {"PUSH_CONSTANT", 2},
	OpPushLocal:    {"PUSH_LOCAL", 1},
	OpStoreLocal:   {"STORE_LOCAL", 1},
	OpPushGlobal:   {"PUSH_GLOBAL", 2},
	OpStoreGlobal:  {"STORE_GLOBAL", 2},
	OpDefineGlobal: {"DEFINE_GLOBAL", 2},
	OpAdd:          {"ADD", 0},
	OpSubtract:     {"SUBTRACT", 0},
	OpMultiply:     {"MULTIPLY", 0},
	OpDivide:       {"DIVIDE", 0},
	OpModulo:       {"MODULO", 0},
	OpNegate:       {"NEGATE", 0},
	OpNot:          {"NOT", 0},
	OpEqual:        {"EQUAL", 0},
	OpGreater:      {"GREATER", 0},
	OpLess:         {"LESS", 0},
	OpJump:         {"JUMP", 2},
	OpJumpIfFalse:  {"JUMP_IF_FALSE", 2},
	OpLoop:         {"LOOP", 2},
	OpCall:         {"CALL", 1},
	OpReturn:       {"RETURN", 0},
}

// Info returns the disassembler metadata for op.
func (op Opcode) Info() (OpcodeInfo, bool) {
	info, ok := opcodeTable[op]
	return info, ok
}

func (op Opcode) String() string {
	if info, ok := opcodeTable[op]; ok {
		return info.Name
	}
	return fmt.Sprintf("Opcode(0x%02X)", byte(op))
}

// ---------------------------------------------------------------------------
// Chunk: a compiled program
// ---------------------------------------------------------------------------

// MaxConstants is the size of the 16-bit constant index space.
const MaxConstants = 1 << 16

// Chunk holds bytecode, the source line of every byte, and the constant pool.
type Chunk struct {
	Code      []byte
	Lines     []int
	Constants []Value
}

// NewChunk creates an empty chunk.
func NewChunk() *Chunk {
	return &Chunk{}
}

// Write appends one byte tagged with its source line.
func (c *Chunk) Write(b byte, line int) {
	c.Code = append(c.Code, b)
	c.Lines = append(c.Lines, line)
}

// WriteOp appends an opcode.
func (c *Chunk) WriteOp(op Opcode, line int) {
	c.Write(byte(op), line)
}

// WriteUint16 appends a little-endian 16-bit operand.
func (c *Chunk) WriteUint16(v uint16, line int) {
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	c.Write(buf[0], line)
	c.Write(buf[1], line)
}

// AddConstant adds v to the constant pool and returns its index.
// Identical string and number constants are shared.
func (c *Chunk) AddConstant(v Value) int {
	if v.IsString() || v.IsNumber() {
		for i, existing := range c.Constants {
			if existing.Equal(v) {
				return i
			}
		}
	}
	c.Constants = append(c.Constants, v)
	return len(c.Constants) - 1
}

// PatchUint16 overwrites a 16-bit operand at offset.
func (c *Chunk) PatchUint16(offset int, v uint16) {
	binary.LittleEndian.PutUint16(c.Code[offset:], v)
}

// ReadUint16 reads the 16-bit operand at offset.
func (c *Chunk) ReadUint16(offset int) uint16 {
	return binary.LittleEndian.Uint16(c.Code[offset:])
}

// LineAt returns the source line for the byte at offset, or 0.
func (c *Chunk) LineAt(offset int) int {
	if offset < 0 || offset >= len(c.Lines) {
		return 0
	}
	return c.Lines[offset]
}
