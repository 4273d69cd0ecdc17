package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/lantern/vm"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for Lantern syntax
// ---------------------------------------------------------------------------

// maxArgs matches the single-byte argument count of OpCall.
const maxArgs = vm.MaxArity

// Parser parses Lantern source code into an AST.
//
// Errors are accumulated rather than returned one at a time. After an error
// the parser enters panic mode, suppresses follow-on errors, and resumes at
// the next statement boundary: a ';', a new line, or a statement keyword.
type Parser struct {
	lexer      *Lexer
	curToken   Token
	prevToken  Token
	errors     []vm.CompileError
	panicMode  bool
	blockDepth int
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer: NewLexer(input),
	}
	p.nextToken()
	return p
}

// nextToken advances to the next token, reporting and skipping lexer errors.
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	for {
		p.curToken = p.lexer.NextToken()
		if p.curToken.Type != TokenError {
			return
		}
		p.errorAt(p.curToken, p.curToken.Err)
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType, msg string) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorAtCurrent(msg)
	return false
}

func (p *Parser) errorAtCurrent(msg string) {
	p.errorAt(p.curToken, msg)
}

// errorAt records a parse error located at tok.
func (p *Parser) errorAt(tok Token, msg string) {
	if p.panicMode {
		return
	}
	p.panicMode = true

	switch tok.Type {
	case TokenEOF:
		msg += " at end"
	case TokenError:
		// The lexer message already describes the token
	default:
		msg = fmt.Sprintf("%s at '%s'", msg, tok.Literal)
	}

	p.errors = append(p.errors, vm.CompileError{
		Line:    tok.Pos.Line,
		Start:   tok.Pos.Column,
		Len:     tok.Len(),
		Message: msg,
	})
}

// Errors returns accumulated parse errors in source order.
func (p *Parser) Errors() []vm.CompileError {
	return p.errors
}

// endLine returns the line a token finishes on.
func endLine(tok Token) int {
	return tok.Pos.Line + strings.Count(tok.Literal, "\n")
}

// onNewLine reports whether the current token starts a line after the
// previous token ended.
func (p *Parser) onNewLine() bool {
	return p.curToken.Pos.Line > endLine(p.prevToken)
}

// synchronize leaves panic mode and skips to a statement boundary.
func (p *Parser) synchronize() {
	p.panicMode = false

	for !p.curTokenIs(TokenEOF) {
		if p.prevToken.Type == TokenSemicolon || p.onNewLine() {
			return
		}
		switch p.curToken.Type {
		case TokenVar, TokenIf, TokenWhile, TokenLBrace:
			return
		case TokenRBrace:
			if p.blockDepth > 0 {
				return
			}
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses the whole input.
func (p *Parser) ParseProgram() *Program {
	return &Program{Statements: p.declarations(TokenEOF)}
}

// declarations parses declarations until end or EOF.
func (p *Parser) declarations(end TokenType) []Stmt {
	var stmts []Stmt
	for !p.curTokenIs(end) && !p.curTokenIs(TokenEOF) {
		start := p.curToken.Pos.Offset

		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
		if p.panicMode {
			p.synchronize()
		}

		// A token that cannot start a statement is skipped so the loop
		// always makes progress.
		if p.curToken.Pos.Offset == start && !p.curTokenIs(TokenEOF) && !p.curTokenIs(end) {
			p.nextToken()
		}
	}
	return stmts
}

func (p *Parser) declaration() Stmt {
	if p.curTokenIs(TokenVar) {
		return p.varDeclaration()
	}
	return p.statement()
}

func (p *Parser) varDeclaration() Stmt {
	p.nextToken() // var

	if !p.curTokenIs(TokenIdentifier) {
		p.errorAtCurrent("expected variable name")
		return nil
	}
	name := p.curToken
	p.nextToken()

	decl := &VarDecl{Tok: name, Name: name.Literal}
	if p.curTokenIs(TokenEqual) {
		p.nextToken()
		decl.Init = p.expression()
	}
	p.endStatement()
	return decl
}

// endStatement consumes an optional ';'. Without one the next token must
// be on a new line, close a block, start an else branch, or end the input.
func (p *Parser) endStatement() {
	switch {
	case p.curTokenIs(TokenSemicolon):
		p.nextToken()
	case p.curTokenIs(TokenEOF), p.curTokenIs(TokenRBrace), p.curTokenIs(TokenElse), p.onNewLine():
	default:
		p.errorAtCurrent("expected ';' or newline after statement")
	}
}

func (p *Parser) statement() Stmt {
	switch p.curToken.Type {
	case TokenIf:
		return p.ifStatement()
	case TokenWhile:
		return p.whileStatement()
	case TokenLBrace:
		return p.block()
	}
	return p.expressionStatement()
}

func (p *Parser) ifStatement() Stmt {
	stmt := &If{Tok: p.curToken}
	p.nextToken() // if

	p.expect(TokenLParen, "expected '(' after 'if'")
	stmt.Cond = p.expression()
	p.expect(TokenRParen, "expected ')' after condition")
	stmt.Then = p.statement()

	if p.curTokenIs(TokenElse) {
		p.nextToken()
		stmt.Else = p.statement()
	}
	return stmt
}

func (p *Parser) whileStatement() Stmt {
	stmt := &While{Tok: p.curToken}
	p.nextToken() // while

	p.expect(TokenLParen, "expected '(' after 'while'")
	stmt.Cond = p.expression()
	p.expect(TokenRParen, "expected ')' after condition")
	stmt.Body = p.statement()
	return stmt
}

func (p *Parser) block() Stmt {
	stmt := &Block{Tok: p.curToken}
	p.nextToken() // {

	p.blockDepth++
	stmt.Statements = p.declarations(TokenRBrace)
	p.blockDepth--

	p.expect(TokenRBrace, "expected '}' after block")
	return stmt
}

func (p *Parser) expressionStatement() Stmt {
	stmt := &ExprStmt{Tok: p.curToken}
	stmt.Expr = p.expression()
	p.endStatement()
	return stmt
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.expression()
}

func (p *Parser) expression() Expr {
	return p.assignment()
}

func (p *Parser) assignment() Expr {
	expr := p.or()

	if p.curTokenIs(TokenEqual) {
		equals := p.curToken
		p.nextToken()
		value := p.assignment()

		if v, ok := expr.(*Variable); ok {
			return &Assign{Tok: v.Tok, Name: v.Name, Value: value}
		}
		p.errorAt(equals, "invalid assignment target")
	}
	return expr
}

func (p *Parser) or() Expr {
	expr := p.and()
	for p.curTokenIs(TokenOr) {
		op := p.curToken
		p.nextToken()
		expr = &Logical{Tok: op, Left: expr, Right: p.and()}
	}
	return expr
}

func (p *Parser) and() Expr {
	expr := p.equality()
	for p.curTokenIs(TokenAnd) {
		op := p.curToken
		p.nextToken()
		expr = &Logical{Tok: op, Left: expr, Right: p.equality()}
	}
	return expr
}

// binary parses a left-associative chain of operators in ops.
func (p *Parser) binary(next func() Expr, ops ...TokenType) Expr {
	expr := next()
	for p.curTokenIn(ops) {
		op := p.curToken
		p.nextToken()
		expr = &Binary{Tok: op, Left: expr, Right: next()}
	}
	return expr
}

func (p *Parser) curTokenIn(types []TokenType) bool {
	for _, t := range types {
		if p.curTokenIs(t) {
			return true
		}
	}
	return false
}

func (p *Parser) equality() Expr {
	return p.binary(p.comparison, TokenEqualEqual, TokenBangEqual)
}

func (p *Parser) comparison() Expr {
	return p.binary(p.term, TokenGreater, TokenGreaterEqual, TokenLess, TokenLessEqual)
}

func (p *Parser) term() Expr {
	return p.binary(p.factor, TokenPlus, TokenMinus)
}

func (p *Parser) factor() Expr {
	return p.binary(p.unary, TokenStar, TokenSlash, TokenPercent)
}

func (p *Parser) unary() Expr {
	if p.curTokenIs(TokenBang) || p.curTokenIs(TokenMinus) {
		op := p.curToken
		p.nextToken()
		return &Unary{Tok: op, Operand: p.unary()}
	}
	return p.call()
}

// call parses call suffixes. A '(' on a later line starts a new statement
// rather than calling the previous expression.
func (p *Parser) call() Expr {
	expr := p.primary()
	for p.curTokenIs(TokenLParen) && !p.onNewLine() {
		call := &Call{Tok: p.curToken, Callee: expr}
		p.nextToken() // (

		if !p.curTokenIs(TokenRParen) {
			for {
				if len(call.Args) == maxArgs {
					p.errorAtCurrent(fmt.Sprintf("can't have more than %d arguments", maxArgs))
				}
				call.Args = append(call.Args, p.expression())
				if !p.curTokenIs(TokenComma) {
					break
				}
				p.nextToken()
			}
		}
		p.expect(TokenRParen, "expected ')' after arguments")
		expr = call
	}
	return expr
}

func (p *Parser) primary() Expr {
	tok := p.curToken

	switch tok.Type {
	case TokenNumber:
		p.nextToken()
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.errorAt(tok, "invalid number")
		}
		return &NumberLiteral{Tok: tok, Value: value}

	case TokenString:
		p.nextToken()
		return &StringLiteral{Tok: tok, Value: unquote(tok.Literal)}

	case TokenTrue, TokenFalse:
		p.nextToken()
		return &BoolLiteral{Tok: tok, Value: tok.Type == TokenTrue}

	case TokenNil:
		p.nextToken()
		return &NilLiteral{Tok: tok}

	case TokenIdentifier:
		p.nextToken()
		return &Variable{Tok: tok, Name: tok.Literal}

	case TokenLParen:
		p.nextToken()
		expr := p.expression()
		p.expect(TokenRParen, "expected ')' after expression")
		return expr
	}

	p.errorAtCurrent("expected expression")
	return nil
}

// unquote strips the surrounding quotes of a string literal and decodes
// \n, \t, \r, \" and \\. Unknown escapes keep the escaped character.
func unquote(lit string) string {
	if len(lit) >= 2 {
		lit = lit[1 : len(lit)-1]
	}
	if !strings.Contains(lit, `\`) {
		return lit
	}

	var b strings.Builder
	for i := 0; i < len(lit); i++ {
		c := lit[i]
		if c != '\\' || i+1 >= len(lit) {
			b.WriteByte(c)
			continue
		}
		i++
		switch lit[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte(lit[i])
		}
	}
	return b.String()
}
