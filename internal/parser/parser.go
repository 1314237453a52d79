// Package parser implements the syntax analysis for Lox.
// It is a recursive-descent parser with one function per precedence level.
package parser

import (
	"errors"

	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// MaxArgs is the largest number of parameters or call arguments accepted
// without a diagnostic.
const MaxArgs = 255

// errSyntax unwinds a declaration after a syntax error has been recorded.
var errSyntax = errors.New("syntax error")

// ============================================================
// Parser
// ============================================================

// Parser performs syntax analysis on a stream of tokens.
type Parser struct {
	tokens []token.Token
	pos    int
	diags  []diag.Diagnostic
}

// New creates a new parser from a token slice. The slice is expected to end
// with an EOF token; one is synthesised if it does not.
func New(tokens []token.Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != token.EOF {
		end := span.Span{Start: span.Start, End: span.Start}
		if len(tokens) > 0 {
			last := tokens[len(tokens)-1].Span.End
			end = span.Span{Start: last, End: last}
		}
		tokens = append(tokens[:len(tokens):len(tokens)], token.Token{Kind: token.EOF, Span: end})
	}
	return &Parser{tokens: tokens}
}

// ParseFile parses the entire token stream and returns the AST root and
// diagnostics. Statements that failed to parse are left out of the tree.
func (p *Parser) ParseFile() (*ast.File, []diag.Diagnostic) {
	file := &ast.File{}
	startPos := p.peek().Span.Start

	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			file.Body = append(file.Body, stmt)
		}
	}

	file.Span = span.Span{Start: startPos, End: p.peek().Span.End}
	return file, p.diags
}

// ---- navigation helpers ----

func (p *Parser) peek() token.Token {
	return p.tokens[p.pos]
}

func (p *Parser) previous() token.Token {
	return p.tokens[p.pos-1]
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Kind == token.EOF
}

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.pos++
	}
	return p.previous()
}

func (p *Parser) check(kind token.Kind) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Kind == kind
}

// match consumes the current token if it is one of kinds.
func (p *Parser) match(kinds ...token.Kind) bool {
	for _, k := range kinds {
		if p.check(k) {
			p.advance()
			return true
		}
	}
	return false
}

// consume expects the current token to be kind, or reports msg there.
func (p *Parser) consume(kind token.Kind, code, msg string) (token.Token, error) {
	if p.check(kind) {
		return p.advance(), nil
	}
	return p.peek(), p.errorAt(p.peek(), code, msg)
}

// errorAt records a syntax error at tok and returns errSyntax.
func (p *Parser) errorAt(tok token.Token, code, msg string) error {
	p.diags = append(p.diags, diag.AtToken(diag.Error, code, tok, "%s", msg))
	return errSyntax
}

// warnAt records a non-fatal diagnostic; parsing carries on normally.
func (p *Parser) warnAt(tok token.Token, code, msg string) {
	p.diags = append(p.diags, diag.AtToken(diag.Warning, code, tok, "%s", msg))
}

// ============================================================
// Error recovery
// ============================================================

// synchronize discards tokens until just past a ';' or just before a token
// that starts a declaration or statement.
func (p *Parser) synchronize() {
	p.advance()

	for !p.isAtEnd() {
		if p.previous().Kind == token.SEMICOLON {
			return
		}
		if p.peek().Kind.StartsDeclaration() {
			return
		}
		p.advance()
	}
}

// ============================================================
// Declarations
// ============================================================

// declaration parses one declaration or statement. On a syntax error it
// resynchronises and returns nil.
func (p *Parser) declaration() ast.Stmt {
	var (
		stmt ast.Stmt
		err  error
	)
	switch {
	case p.match(token.KW_CLASS):
		stmt, err = p.classDeclaration()
	case p.match(token.KW_FUN):
		stmt, err = p.function("function")
	case p.match(token.KW_VAR):
		stmt, err = p.varDeclaration()
	default:
		stmt, err = p.statement()
	}
	if err != nil {
		p.synchronize()
		return nil
	}
	return stmt
}

// classDeclaration parses: IDENT ( "<" IDENT )? "{" function* "}"
func (p *Parser) classDeclaration() (*ast.ClassStmt, error) {
	start := p.previous()
	name, err := p.consume(token.IDENT, "E2010", "Expect class name.")
	if err != nil {
		return nil, err
	}
	decl := &ast.ClassStmt{Name: name}

	if p.match(token.LT) {
		superName, err := p.consume(token.IDENT, "E2011", "Expect superclass name.")
		if err != nil {
			return nil, err
		}
		decl.Superclass = &ast.VariableExpr{ExprBase: exprBase(superName.Span), Name: superName}
	}

	if _, err := p.consume(token.LBRACE, "E2012", "Expect '{' before class body."); err != nil {
		return nil, err
	}
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		method, err := p.function("method")
		if err != nil {
			return nil, err
		}
		decl.Methods = append(decl.Methods, method)
	}
	if _, err := p.consume(token.RBRACE, "E2013", "Expect '}' after class body."); err != nil {
		return nil, err
	}

	decl.StmtBase = p.stmtBase(start)
	return decl, nil
}

// function parses: IDENT "(" parameters? ")" block. kind is "function" or
// "method" and only affects messages.
func (p *Parser) function(kind string) (*ast.FunctionStmt, error) {
	start := p.peek()
	if kind == "function" {
		start = p.previous() // the 'fun' keyword
	}
	name, err := p.consume(token.IDENT, "E2020", "Expect "+kind+" name.")
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LPAREN, "E2021", "Expect '(' after "+kind+" name."); err != nil {
		return nil, err
	}

	var params []token.Token
	if !p.check(token.RPAREN) {
		for {
			if len(params) >= MaxArgs {
				p.warnAt(p.peek(), "W2001", "Can't have more than 255 parameters.")
			}
			param, err := p.consume(token.IDENT, "E2022", "Expect parameter name.")
			if err != nil {
				return nil, err
			}
			params = append(params, param)
			if !p.match(token.COMMA) {
				break
			}
		}
	}
	if _, err := p.consume(token.RPAREN, "E2023", "Expect ')' after parameters."); err != nil {
		return nil, err
	}

	if _, err := p.consume(token.LBRACE, "E2024", "Expect '{' before "+kind+" body."); err != nil {
		return nil, err
	}
	body, err := p.block()
	if err != nil {
		return nil, err
	}

	return &ast.FunctionStmt{
		StmtBase: p.stmtBase(start),
		Name:     name,
		Params:   params,
		Body:     body,
	}, nil
}

// varDeclaration parses: IDENT ( "=" expression )? ";"
func (p *Parser) varDeclaration() (*ast.VarStmt, error) {
	start := p.previous()
	name, err := p.consume(token.IDENT, "E2030", "Expect variable name.")
	if err != nil {
		return nil, err
	}

	var init ast.Expr
	if p.match(token.ASSIGN) {
		if init, err = p.expression(); err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(token.SEMICOLON, "E2031", "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return &ast.VarStmt{StmtBase: p.stmtBase(start), Name: name, Init: init}, nil
}

// ============================================================
// Statements
// ============================================================

func (p *Parser) statement() (ast.Stmt, error) {
	switch {
	case p.match(token.KW_FOR):
		return p.forStatement()
	case p.match(token.KW_IF):
		return p.ifStatement()
	case p.match(token.KW_PRINT):
		return p.printStatement()
	case p.match(token.KW_RETURN):
		return p.returnStatement()
	case p.match(token.KW_WHILE):
		return p.whileStatement()
	case p.match(token.LBRACE):
		start := p.previous()
		stmts, err := p.block()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStmt{StmtBase: p.stmtBase(start), Stmts: stmts}, nil
	default:
		return p.expressionStatement()
	}
}

// forStatement parses a C-style for loop and lowers it to a while loop:
//
//	{ init; while (cond) { body; incr; } }
func (p *Parser) forStatement() (ast.Stmt, error) {
	start := p.previous()
	if _, err := p.consume(token.LPAREN, "E2040", "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var (
		init ast.Stmt
		err  error
	)
	switch {
	case p.match(token.SEMICOLON):
	case p.match(token.KW_VAR):
		init, err = p.varDeclaration()
	default:
		init, err = p.expressionStatement()
	}
	if err != nil {
		return nil, err
	}

	var cond ast.Expr
	if !p.check(token.SEMICOLON) {
		if cond, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "E2041", "Expect ';' after loop condition."); err != nil {
		return nil, err
	}

	var incr ast.Expr
	if !p.check(token.RPAREN) {
		if incr, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.RPAREN, "E2042", "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	body, err := p.statement()
	if err != nil {
		return nil, err
	}

	if incr != nil {
		body = &ast.BlockStmt{
			StmtBase: stmtBase(span.Join(body.GetSpan(), incr.GetSpan())),
			Stmts: []ast.Stmt{
				body,
				&ast.ExprStmt{StmtBase: stmtBase(incr.GetSpan()), Expr: incr},
			},
		}
	}
	if cond == nil {
		cond = &ast.LiteralExpr{ExprBase: exprBase(start.Span), Value: true}
	}
	var loop ast.Stmt = &ast.WhileStmt{StmtBase: p.stmtBase(start), Condition: cond, Body: body}
	if init != nil {
		loop = &ast.BlockStmt{StmtBase: p.stmtBase(start), Stmts: []ast.Stmt{init, loop}}
	}
	return loop, nil
}

// ifStatement parses: "(" expression ")" statement ( "else" statement )?
func (p *Parser) ifStatement() (*ast.IfStmt, error) {
	start := p.previous()
	if _, err := p.consume(token.LPAREN, "E2050", "Expect '(' after 'if'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "E2051", "Expect ')' after if condition."); err != nil {
		return nil, err
	}

	then, err := p.statement()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Condition: cond, Then: then}
	if p.match(token.KW_ELSE) {
		if stmt.Else, err = p.statement(); err != nil {
			return nil, err
		}
	}

	stmt.StmtBase = p.stmtBase(start)
	return stmt, nil
}

func (p *Parser) printStatement() (*ast.PrintStmt, error) {
	start := p.previous()
	value, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "E2060", "Expect ';' after value."); err != nil {
		return nil, err
	}
	return &ast.PrintStmt{StmtBase: p.stmtBase(start), Expr: value}, nil
}

func (p *Parser) returnStatement() (*ast.ReturnStmt, error) {
	keyword := p.previous()
	var (
		value ast.Expr
		err   error
	)
	if !p.check(token.SEMICOLON) {
		if value, err = p.expression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "E2061", "Expect ';' after return value."); err != nil {
		return nil, err
	}
	return &ast.ReturnStmt{StmtBase: p.stmtBase(keyword), Keyword: keyword, Value: value}, nil
}

func (p *Parser) whileStatement() (*ast.WhileStmt, error) {
	start := p.previous()
	if _, err := p.consume(token.LPAREN, "E2070", "Expect '(' after 'while'."); err != nil {
		return nil, err
	}
	cond, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RPAREN, "E2071", "Expect ')' after while condition."); err != nil {
		return nil, err
	}
	body, err := p.statement()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{StmtBase: p.stmtBase(start), Condition: cond, Body: body}, nil
}

func (p *Parser) expressionStatement() (*ast.ExprStmt, error) {
	expr, err := p.expression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.SEMICOLON, "E2080", "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{StmtBase: stmtBase(span.Join(expr.GetSpan(), p.previous().Span)), Expr: expr}, nil
}

// block parses the statements after an opening '{' up to the matching '}'.
// Declarations inside that fail to parse are skipped, like at top level.
func (p *Parser) block() ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	for !p.check(token.RBRACE) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			stmts = append(stmts, stmt)
		}
	}
	if _, err := p.consume(token.RBRACE, "E2090", "Expect '}' after block."); err != nil {
		return nil, err
	}
	return stmts, nil
}

// ============================================================
// Span helpers
// ============================================================

func (p *Parser) stmtBase(start token.Token) ast.StmtBase {
	return stmtBase(span.Span{Start: start.Span.Start, End: p.previous().Span.End})
}

func (p *Parser) exprFrom(start span.Span) ast.ExprBase {
	return exprBase(span.Join(start, p.previous().Span))
}

func exprBase(s span.Span) ast.ExprBase {
	return ast.ExprBase{NodeBase: ast.NodeBase{Span: s}}
}

func stmtBase(s span.Span) ast.StmtBase {
	return ast.StmtBase{NodeBase: ast.NodeBase{Span: s}}
}
