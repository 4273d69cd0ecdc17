package compiler

import (
	"fmt"
	"math"

	"github.com/chazu/lantern/vm"
)

// ---------------------------------------------------------------------------
// Code generator: AST -> vm.Chunk
// ---------------------------------------------------------------------------

// maxLocals is the size of the 8-bit local slot space.
const maxLocals = 256

type local struct {
	name  string
	depth int // -1 while the initializer is being compiled
}

// CodeGenerator emits bytecode for a parsed program.
type CodeGenerator struct {
	chunk      *vm.Chunk
	locals     []local
	scopeDepth int
	errors     []vm.CompileError
}

// NewCodeGenerator creates a code generator with an empty chunk.
func NewCodeGenerator() *CodeGenerator {
	return &CodeGenerator{chunk: vm.NewChunk()}
}

// Errors returns code generation errors in the order they were found.
func (g *CodeGenerator) Errors() []vm.CompileError {
	return g.errors
}

// Chunk returns the chunk being generated.
func (g *CodeGenerator) Chunk() *vm.Chunk {
	return g.chunk
}

func (g *CodeGenerator) errorAt(tok Token, format string, args ...interface{}) {
	g.errors = append(g.errors, vm.CompileError{
		Line:    tok.Pos.Line,
		Start:   tok.Pos.Column,
		Len:     tok.Len(),
		Message: fmt.Sprintf(format, args...),
	})
}

// GenerateProgram compiles every statement and terminates the chunk.
func (g *CodeGenerator) GenerateProgram(prog *Program) *vm.Chunk {
	line := 1
	for _, stmt := range prog.Statements {
		g.genStmt(stmt)
		line = stmt.Token().Pos.Line
	}
	g.chunk.WriteOp(vm.OpReturn, line)
	return g.chunk
}

// ---------------------------------------------------------------------------
// Emit helpers
// ---------------------------------------------------------------------------

func (g *CodeGenerator) emitOp(op vm.Opcode, tok Token) {
	g.chunk.WriteOp(op, tok.Pos.Line)
}

func (g *CodeGenerator) emitOpByte(op vm.Opcode, operand byte, tok Token) {
	g.chunk.WriteOp(op, tok.Pos.Line)
	g.chunk.Write(operand, tok.Pos.Line)
}

func (g *CodeGenerator) emitOpUint16(op vm.Opcode, operand uint16, tok Token) {
	g.chunk.WriteOp(op, tok.Pos.Line)
	g.chunk.WriteUint16(operand, tok.Pos.Line)
}

// makeConstant adds v to the pool, reporting an error if the 16-bit index
// space is exhausted.
func (g *CodeGenerator) makeConstant(v vm.Value, tok Token) uint16 {
	idx := g.chunk.AddConstant(v)
	if idx >= vm.MaxConstants {
		g.errorAt(tok, "too many constants in one program")
		return 0
	}
	return uint16(idx)
}

// emitJump writes a jump with a placeholder offset and returns the offset
// of the operand for patchJump.
func (g *CodeGenerator) emitJump(op vm.Opcode, tok Token) int {
	g.emitOpUint16(op, 0xFFFF, tok)
	return len(g.chunk.Code) - 2
}

// patchJump points the jump at operand offset to the current end of code.
func (g *CodeGenerator) patchJump(offset int, tok Token) {
	jump := len(g.chunk.Code) - offset - 2
	if jump > math.MaxUint16 {
		g.errorAt(tok, "too much code to jump over")
		return
	}
	g.chunk.PatchUint16(offset, uint16(jump))
}

func (g *CodeGenerator) emitLoop(loopStart int, tok Token) {
	offset := len(g.chunk.Code) - loopStart + 3
	if offset > math.MaxUint16 {
		g.errorAt(tok, "loop body too large")
		offset = 0
	}
	g.emitOpUint16(vm.OpLoop, uint16(offset), tok)
}

// ---------------------------------------------------------------------------
// Scopes and locals
// ---------------------------------------------------------------------------

func (g *CodeGenerator) beginScope() {
	g.scopeDepth++
}

func (g *CodeGenerator) endScope(tok Token) {
	g.scopeDepth--
	for len(g.locals) > 0 && g.locals[len(g.locals)-1].depth > g.scopeDepth {
		g.emitOp(vm.OpPOP, tok)
		g.locals = g.locals[:len(g.locals)-1]
	}
}

// declareLocal adds an uninitialized local for name in the current scope.
func (g *CodeGenerator) declareLocal(tok Token, name string) {
	for i := len(g.locals) - 1; i >= 0; i-- {
		l := g.locals[i]
		if l.depth != -1 && l.depth < g.scopeDepth {
			break
		}
		if l.name == name {
			g.errorAt(tok, "variable '%s' already declared in this scope", name)
			return
		}
	}
	if len(g.locals) >= maxLocals {
		g.errorAt(tok, "too many local variables in scope")
		return
	}
	g.locals = append(g.locals, local{name: name, depth: -1})
}

// resolveLocal returns the slot of name, or -1 if it is a global.
func (g *CodeGenerator) resolveLocal(tok Token, name string) int {
	for i := len(g.locals) - 1; i >= 0; i-- {
		if g.locals[i].name == name {
			if g.locals[i].depth == -1 {
				g.errorAt(tok, "can't read local variable '%s' in its own initializer", name)
			}
			return i
		}
	}
	return -1
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *CodeGenerator) genStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *VarDecl:
		g.genVarDecl(s)

	case *ExprStmt:
		g.genExpr(s.Expr)
		g.emitOp(vm.OpPOP, s.Tok)

	case *Block:
		g.beginScope()
		for _, inner := range s.Statements {
			g.genStmt(inner)
		}
		g.endScope(s.Tok)

	case *If:
		g.genExpr(s.Cond)
		thenJump := g.emitJump(vm.OpJumpIfFalse, s.Tok)
		g.emitOp(vm.OpPOP, s.Tok)
		g.genStmt(s.Then)
		elseJump := g.emitJump(vm.OpJump, s.Tok)
		g.patchJump(thenJump, s.Tok)
		g.emitOp(vm.OpPOP, s.Tok)
		if s.Else != nil {
			g.genStmt(s.Else)
		}
		g.patchJump(elseJump, s.Tok)

	case *While:
		loopStart := len(g.chunk.Code)
		g.genExpr(s.Cond)
		exitJump := g.emitJump(vm.OpJumpIfFalse, s.Tok)
		g.emitOp(vm.OpPOP, s.Tok)
		g.genStmt(s.Body)
		g.emitLoop(loopStart, s.Tok)
		g.patchJump(exitJump, s.Tok)
		g.emitOp(vm.OpPOP, s.Tok)

	default:
		panic(fmt.Sprintf("codegen: unknown statement %T", stmt))
	}
}

func (g *CodeGenerator) genVarDecl(s *VarDecl) {
	if g.scopeDepth == 0 {
		if s.Init != nil {
			g.genExpr(s.Init)
		} else {
			g.emitOp(vm.OpPushNil, s.Tok)
		}
		name := g.makeConstant(vm.FromString(s.Name), s.Tok)
		g.emitOpUint16(vm.OpDefineGlobal, name, s.Tok)
		return
	}

	// Locals live in the stack slot their initializer leaves behind.
	g.declareLocal(s.Tok, s.Name)
	if s.Init != nil {
		g.genExpr(s.Init)
	} else {
		g.emitOp(vm.OpPushNil, s.Tok)
	}
	if n := len(g.locals); n > 0 && g.locals[n-1].name == s.Name && g.locals[n-1].depth == -1 {
		g.locals[n-1].depth = g.scopeDepth
	}
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

var binaryOps = map[TokenType][]vm.Opcode{
	TokenPlus:         {vm.OpAdd},
	TokenMinus:        {vm.OpSubtract},
	TokenStar:         {vm.OpMultiply},
	TokenSlash:        {vm.OpDivide},
	TokenPercent:      {vm.OpModulo},
	TokenEqualEqual:   {vm.OpEqual},
	TokenBangEqual:    {vm.OpEqual, vm.OpNot},
	TokenGreater:      {vm.OpGreater},
	TokenGreaterEqual: {vm.OpLess, vm.OpNot},
	TokenLess:         {vm.OpLess},
	TokenLessEqual:    {vm.OpGreater, vm.OpNot},
}

func (g *CodeGenerator) genExpr(expr Expr) {
	switch e := expr.(type) {
	case *NumberLiteral:
		g.emitOpUint16(vm.OpPushConstant, g.makeConstant(vm.FromNumber(e.Value), e.Tok), e.Tok)

	case *StringLiteral:
		g.emitOpUint16(vm.OpPushConstant, g.makeConstant(vm.FromString(e.Value), e.Tok), e.Tok)

	case *BoolLiteral:
		if e.Value {
			g.emitOp(vm.OpPushTrue, e.Tok)
		} else {
			g.emitOp(vm.OpPushFalse, e.Tok)
		}

	case *NilLiteral:
		g.emitOp(vm.OpPushNil, e.Tok)

	case *Variable:
		if slot := g.resolveLocal(e.Tok, e.Name); slot >= 0 {
			g.emitOpByte(vm.OpPushLocal, byte(slot), e.Tok)
			return
		}
		g.emitOpUint16(vm.OpPushGlobal, g.makeConstant(vm.FromString(e.Name), e.Tok), e.Tok)

	case *Assign:
		g.genExpr(e.Value)
		if slot := g.resolveLocal(e.Tok, e.Name); slot >= 0 {
			g.emitOpByte(vm.OpStoreLocal, byte(slot), e.Tok)
			return
		}
		g.emitOpUint16(vm.OpStoreGlobal, g.makeConstant(vm.FromString(e.Name), e.Tok), e.Tok)

	case *Unary:
		g.genExpr(e.Operand)
		switch e.Tok.Type {
		case TokenMinus:
			g.emitOp(vm.OpNegate, e.Tok)
		case TokenBang:
			g.emitOp(vm.OpNot, e.Tok)
		}

	case *Binary:
		g.genExpr(e.Left)
		g.genExpr(e.Right)
		for _, op := range binaryOps[e.Tok.Type] {
			g.emitOp(op, e.Tok)
		}

	case *Logical:
		g.genExpr(e.Left)
		if e.Tok.Type == TokenAnd {
			endJump := g.emitJump(vm.OpJumpIfFalse, e.Tok)
			g.emitOp(vm.OpPOP, e.Tok)
			g.genExpr(e.Right)
			g.patchJump(endJump, e.Tok)
			return
		}
		elseJump := g.emitJump(vm.OpJumpIfFalse, e.Tok)
		endJump := g.emitJump(vm.OpJump, e.Tok)
		g.patchJump(elseJump, e.Tok)
		g.emitOp(vm.OpPOP, e.Tok)
		g.genExpr(e.Right)
		g.patchJump(endJump, e.Tok)

	case *Call:
		g.genExpr(e.Callee)
		for _, arg := range e.Args {
			g.genExpr(arg)
		}
		g.emitOpByte(vm.OpCall, byte(len(e.Args)), e.Tok)

	default:
		panic(fmt.Sprintf("codegen: unknown expression %T", expr))
	}
}
