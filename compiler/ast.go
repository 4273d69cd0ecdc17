package compiler

// ---------------------------------------------------------------------------
// AST node types
// ---------------------------------------------------------------------------

// Node is implemented by every AST node.
type Node interface {
	Token() Token
}

// Expr is an expression node.
type Expr interface {
	Node
	exprNode()
}

// Stmt is a statement node.
type Stmt interface {
	Node
	stmtNode()
}

// Program is the root of a parsed source file.
type Program struct {
	Statements []Stmt
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// NumberLiteral is a numeric literal such as 42 or 3.5.
type NumberLiteral struct {
	Tok   Token
	Value float64
}

// StringLiteral is a double-quoted string with escapes decoded.
type StringLiteral struct {
	Tok   Token
	Value string
}

// BoolLiteral is true or false.
type BoolLiteral struct {
	Tok   Token
	Value bool
}

// NilLiteral is nil.
type NilLiteral struct {
	Tok Token
}

// Variable is a reference to a local or global name.
type Variable struct {
	Tok  Token
	Name string
}

// Assign stores Value into the named variable and yields it.
type Assign struct {
	Tok   Token // the name
	Name  string
	Value Expr
}

// Unary is a prefix operator: -x or !x.
type Unary struct {
	Tok     Token // the operator
	Operand Expr
}

// Binary is an arithmetic or comparison operator.
type Binary struct {
	Tok   Token // the operator
	Left  Expr
	Right Expr
}

// Logical is a short-circuit 'and' or 'or'.
type Logical struct {
	Tok   Token // the operator
	Left  Expr
	Right Expr
}

// Call invokes Callee with Args.
type Call struct {
	Tok    Token // the opening paren
	Callee Expr
	Args   []Expr
}

func (e *NumberLiteral) Token() Token { return e.Tok }
func (e *StringLiteral) Token() Token { return e.Tok }
func (e *BoolLiteral) Token() Token   { return e.Tok }
func (e *NilLiteral) Token() Token    { return e.Tok }
func (e *Variable) Token() Token      { return e.Tok }
func (e *Assign) Token() Token        { return e.Tok }
func (e *Unary) Token() Token         { return e.Tok }
func (e *Binary) Token() Token        { return e.Tok }
func (e *Logical) Token() Token       { return e.Tok }
func (e *Call) Token() Token          { return e.Tok }

func (*NumberLiteral) exprNode() {}
func (*StringLiteral) exprNode() {}
func (*BoolLiteral) exprNode()   {}
func (*NilLiteral) exprNode()    {}
func (*Variable) exprNode()      {}
func (*Assign) exprNode()        {}
func (*Unary) exprNode()         {}
func (*Binary) exprNode()        {}
func (*Logical) exprNode()       {}
func (*Call) exprNode()          {}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// VarDecl declares a variable, global at top level and local inside a block.
type VarDecl struct {
	Tok  Token // the name
	Name string
	Init Expr // nil means initialize to nil
}

// ExprStmt evaluates an expression and discards the result.
type ExprStmt struct {
	Tok  Token
	Expr Expr
}

// Block introduces a new local scope.
type Block struct {
	Tok        Token // the opening brace
	Statements []Stmt
}

// If is a conditional with an optional else branch.
type If struct {
	Tok  Token
	Cond Expr
	Then Stmt
	Else Stmt
}

// While loops while Cond is truthy.
type While struct {
	Tok  Token
	Cond Expr
	Body Stmt
}

func (s *VarDecl) Token() Token  { return s.Tok }
func (s *ExprStmt) Token() Token { return s.Tok }
func (s *Block) Token() Token    { return s.Tok }
func (s *If) Token() Token       { return s.Tok }
func (s *While) Token() Token    { return s.Tok }

func (*VarDecl) stmtNode()  {}
func (*ExprStmt) stmtNode() {}
func (*Block) stmtNode()    {}
func (*If) stmtNode()       {}
func (*While) stmtNode()    {}

// WalkStatements calls fn for every statement in stmts, descending into
// blocks and branches, in source order.
func WalkStatements(stmts []Stmt, fn func(Stmt)) {
	for _, stmt := range stmts {
		walkStmt(stmt, fn)
	}
}

func walkStmt(stmt Stmt, fn func(Stmt)) {
	if stmt == nil {
		return
	}
	fn(stmt)
	switch s := stmt.(type) {
	case *Block:
		WalkStatements(s.Statements, fn)
	case *If:
		walkStmt(s.Then, fn)
		walkStmt(s.Else, fn)
	case *While:
		walkStmt(s.Body, fn)
	}
}
