// Package ast defines the abstract syntax tree for Lox.
//
// Every node is a pointer type and is never mutated after the parser builds
// it. Pointer identity is the node identity the resolver keys its table on.
package ast

import (
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// ============================================================
// Node interfaces
// ============================================================

// Node is the interface implemented by all AST nodes.
type Node interface {
	nodeNode()
	GetSpan() span.Span
}

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	exprNode()
}

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmtNode()
}

// ============================================================
// Base types (embedded to provide common fields)
// ============================================================

// NodeBase provides the common Span field for all AST nodes.
type NodeBase struct {
	Span span.Span
}

func (n NodeBase) nodeNode()          {}
func (n NodeBase) GetSpan() span.Span { return n.Span }

// ExprBase is embedded by all expression nodes.
type ExprBase struct{ NodeBase }

func (ExprBase) exprNode() {}

// StmtBase is embedded by all statement nodes.
type StmtBase struct{ NodeBase }

func (StmtBase) stmtNode() {}

// ============================================================
// File (top-level AST root)
// ============================================================

// File represents one parsed unit of source.
type File struct {
	NodeBase
	Body []Stmt
}

// ============================================================
// Expressions
// ============================================================

// AssignExpr represents an assignment to a variable: name = value.
type AssignExpr struct {
	ExprBase
	Name  token.Token
	Value Expr
}

// BinaryExpr represents an arithmetic, comparison or equality operation.
type BinaryExpr struct {
	ExprBase
	Left  Expr
	Op    token.Token
	Right Expr
}

// CallExpr represents a call: callee(args). Paren is the closing
// parenthesis, used to locate runtime errors.
type CallExpr struct {
	ExprBase
	Callee Expr
	Paren  token.Token
	Args   []Expr
}

// GetExpr represents property access: object.name.
type GetExpr struct {
	ExprBase
	Object Expr
	Name   token.Token
}

// GroupingExpr represents a parenthesized expression.
type GroupingExpr struct {
	ExprBase
	Expr Expr
}

// LiteralExpr represents nil, true, false, a number or a string.
// Value is nil, bool, float64 or string.
type LiteralExpr struct {
	ExprBase
	Value any
}

// LogicalExpr represents a short-circuiting "and" / "or".
type LogicalExpr struct {
	ExprBase
	Left  Expr
	Op    token.Token
	Right Expr
}

// SetExpr represents a property assignment: object.name = value.
type SetExpr struct {
	ExprBase
	Object Expr
	Name   token.Token
	Value  Expr
}

// SuperExpr represents super.method.
type SuperExpr struct {
	ExprBase
	Keyword token.Token
	Method  token.Token
}

// ThisExpr represents the 'this' keyword.
type ThisExpr struct {
	ExprBase
	Keyword token.Token
}

// UnaryExpr represents a unary operation: !x, -x.
type UnaryExpr struct {
	ExprBase
	Op    token.Token
	Right Expr
}

// VariableExpr represents a variable reference.
type VariableExpr struct {
	ExprBase
	Name token.Token
}

// ============================================================
// Statements
// ============================================================

// BlockStmt represents a block of statements: { ... }.
type BlockStmt struct {
	StmtBase
	Stmts []Stmt
}

// ClassStmt represents a class declaration.
type ClassStmt struct {
	StmtBase
	Name       token.Token
	Superclass *VariableExpr // nil when the class has no superclass
	Methods    []*FunctionStmt
}

// ExprStmt wraps an expression used as a statement.
type ExprStmt struct {
	StmtBase
	Expr Expr
}

// FunctionStmt represents a function or method declaration.
type FunctionStmt struct {
	StmtBase
	Name   token.Token
	Params []token.Token
	Body   []Stmt
}

// IfStmt represents if/else.
type IfStmt struct {
	StmtBase
	Condition Expr
	Then      Stmt
	Else      Stmt // may be nil
}

// PrintStmt represents print expr;.
type PrintStmt struct {
	StmtBase
	Expr Expr
}

// ReturnStmt represents a return statement.
type ReturnStmt struct {
	StmtBase
	Keyword token.Token
	Value   Expr // may be nil
}

// VarStmt represents a variable declaration.
type VarStmt struct {
	StmtBase
	Name token.Token
	Init Expr // may be nil
}

// WhileStmt represents a while loop. The parser also lowers for loops to it.
type WhileStmt struct {
	StmtBase
	Condition Expr
	Body      Stmt
}
