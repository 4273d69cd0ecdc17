package compiler

import (
	"unicode"
	"unicode/utf8"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for Lantern syntax
// ---------------------------------------------------------------------------

// Lexer tokenizes Lantern source code.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        rune // current character
	line      int  // current line (1-based)
	lineStart int  // offset of current line start
}

var singleCharTokens = map[rune]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	',': TokenComma,
	';': TokenSemicolon,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
}

// pairedTokens maps a lead character to its bare and '='-suffixed forms.
var pairedTokens = map[rune][2]TokenType{
	'!': {TokenBang, TokenBangEqual},
	'=': {TokenEqual, TokenEqualEqual},
	'>': {TokenGreater, TokenGreaterEqual},
	'<': {TokenLess, TokenLessEqual},
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' && l.readPos > 0 {
		l.line++
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPos:])
	l.ch = r
	l.pos = l.readPos
	l.readPos += size
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() rune {
	if l.readPos >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPos:])
	return r
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.pos - l.lineStart,
	}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()
	if l.atEOF() {
		return Token{Type: TokenEOF, Pos: pos}
	}

	switch ch := l.ch; {
	case ch == '"':
		return l.readString(pos)

	case isDigit(ch):
		return l.readNumber(pos)

	case isLetter(ch):
		return l.readIdentifier(pos)
	}

	if tt, ok := singleCharTokens[l.ch]; ok {
		l.readChar()
		return l.token(tt, pos)
	}

	// One- or two-character operators
	if tt, ok := pairedTokens[l.ch]; ok {
		l.readChar()
		if l.ch == '=' {
			l.readChar()
			return l.token(tt[1], pos)
		}
		return l.token(tt[0], pos)
	}

	l.readChar()
	tok := l.token(TokenError, pos)
	tok.Err = "unexpected character '" + tok.Literal + "'"
	return tok
}

// token builds a token whose literal spans from start to the current position.
func (l *Lexer) token(tt TokenType, start Position) Token {
	return Token{Type: tt, Literal: l.input[start.Offset:l.pos], Pos: start}
}

// skipWhitespaceAndComments skips spaces, newlines and // line comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\r' || l.ch == '\n':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for !l.atEOF() && l.ch != '\n' {
				l.readChar()
			}
		default:
			return
		}
	}
}

// readString reads a double-quoted string. The literal keeps the quotes;
// escapes are decoded by the parser.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // opening quote
	for !l.atEOF() && l.ch != '"' {
		if l.ch == '\\' {
			l.readChar()
			if l.atEOF() {
				break
			}
		}
		l.readChar()
	}
	if l.atEOF() {
		tok := l.token(TokenError, pos)
		tok.Err = "unterminated string"
		return tok
	}
	l.readChar() // closing quote
	return l.token(TokenString, pos)
}

// readNumber reads an integer or decimal literal.
func (l *Lexer) readNumber(pos Position) Token {
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return l.token(TokenNumber, pos)
}

// readIdentifier reads an identifier or reserved word.
func (l *Lexer) readIdentifier(pos Position) Token {
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	tok := l.token(TokenIdentifier, pos)
	tok.Type = LookupIdent(tok.Literal)
	return tok
}

func isLetter(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}

// Tokenize returns every token of input up to and including EOF.
func Tokenize(input string) []Token {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			return tokens
		}
	}
}
