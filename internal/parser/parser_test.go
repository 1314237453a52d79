package parser

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/lexer"
	"lox-lang/internal/token"
)

func parse(t *testing.T, source string) (*ast.File, []diag.Diagnostic) {
	t.Helper()
	tokens, lexDiags := lexer.New(source, "test.lox").Tokenize()
	require.Empty(t, lexDiags, "lex errors")
	return New(tokens).ParseFile()
}

// parseOK parses source and fails the test on any diagnostic.
func parseOK(t *testing.T, source string) *ast.File {
	t.Helper()
	file, diags := parse(t, source)
	require.Empty(t, diags, "parse errors")
	return file
}

// parseExpr parses "source;" and returns the expression.
func parseExpr(t *testing.T, source string) ast.Expr {
	t.Helper()
	file := parseOK(t, source+";")
	require.Len(t, file.Body, 1)
	stmt, ok := file.Body[0].(*ast.ExprStmt)
	require.True(t, ok, "expected ExprStmt, got %T", file.Body[0])
	return stmt.Expr
}

func messages(diags []diag.Diagnostic) []string {
	out := make([]string, len(diags))
	for i, d := range diags {
		out[i] = d.String()
	}
	return out
}

func TestParseVarDecl(t *testing.T) {
	file := parseOK(t, `var x = 42; var y;`)
	require.Len(t, file.Body, 2)

	decl, ok := file.Body[0].(*ast.VarStmt)
	require.True(t, ok)
	assert.Equal(t, "x", decl.Name.Lexeme)
	lit, ok := decl.Init.(*ast.LiteralExpr)
	require.True(t, ok)
	assert.Equal(t, 42.0, lit.Value)

	assert.Nil(t, file.Body[1].(*ast.VarStmt).Init)
}

func TestParsePrecedence(t *testing.T) {
	// 1 + 2 * 3 == 7 parses as (1 + (2 * 3)) == 7
	eq, ok := parseExpr(t, `1 + 2 * 3 == 7`).(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.EQ, eq.Op.Kind)

	sum, ok := eq.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.PLUS, sum.Op.Kind)

	product, ok := sum.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.STAR, product.Op.Kind)
}

func TestParseLeftAssociative(t *testing.T) {
	// 1 - 2 - 3 parses as (1 - 2) - 3
	outer := parseExpr(t, `1 - 2 - 3`).(*ast.BinaryExpr)
	inner, ok := outer.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, 1.0, inner.Left.(*ast.LiteralExpr).Value)
	assert.Equal(t, 3.0, outer.Right.(*ast.LiteralExpr).Value)
}

func TestParseLogical(t *testing.T) {
	// or binds looser than and
	or, ok := parseExpr(t, `a or b and c`).(*ast.LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, token.KW_OR, or.Op.Kind)
	and, ok := or.Right.(*ast.LogicalExpr)
	require.True(t, ok)
	assert.Equal(t, token.KW_AND, and.Op.Kind)
}

func TestParseUnary(t *testing.T) {
	outer, ok := parseExpr(t, `!-x`).(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.BANG, outer.Op.Kind)
	inner, ok := outer.Right.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, token.MINUS, inner.Op.Kind)
}

func TestParseGrouping(t *testing.T) {
	product := parseExpr(t, `(1 + 2) * 3`).(*ast.BinaryExpr)
	_, ok := product.Left.(*ast.GroupingExpr)
	assert.True(t, ok)
}

func TestParseAssignment(t *testing.T) {
	// right associative: a = (b = c)
	outer, ok := parseExpr(t, `a = b = c`).(*ast.AssignExpr)
	require.True(t, ok)
	assert.Equal(t, "a", outer.Name.Lexeme)
	_, ok = outer.Value.(*ast.AssignExpr)
	assert.True(t, ok)
}

func TestParseSetExpr(t *testing.T) {
	set, ok := parseExpr(t, `a.b.c = 1`).(*ast.SetExpr)
	require.True(t, ok)
	assert.Equal(t, "c", set.Name.Lexeme)
	get, ok := set.Object.(*ast.GetExpr)
	require.True(t, ok)
	assert.Equal(t, "b", get.Name.Lexeme)
}

func TestParseInvalidAssignmentTarget(t *testing.T) {
	file, diags := parse(t, "a + b = c;\nprint 1;")
	require.Len(t, diags, 1)
	assert.Equal(t, "[line 1] Error at '=': Invalid assignment target.", diags[0].String())
	assert.Equal(t, "E2100", diags[0].Code)
	// reported without unwinding: both statements survive
	assert.Len(t, file.Body, 2)
}

func TestParseCallChain(t *testing.T) {
	call, ok := parseExpr(t, `f(1, 2)(3).g()`).(*ast.CallExpr)
	require.True(t, ok)
	assert.Empty(t, call.Args)
	assert.Equal(t, token.RPAREN, call.Paren.Kind)

	get, ok := call.Callee.(*ast.GetExpr)
	require.True(t, ok)
	assert.Equal(t, "g", get.Name.Lexeme)

	inner, ok := get.Object.(*ast.CallExpr)
	require.True(t, ok)
	assert.Len(t, inner.Args, 1)
	assert.Len(t, inner.Callee.(*ast.CallExpr).Args, 2)
}

func TestParseSuperAndThis(t *testing.T) {
	file := parseOK(t, `class B < A { m() { super.m(); return this; } }`)
	class := file.Body[0].(*ast.ClassStmt)
	require.NotNil(t, class.Superclass)
	assert.Equal(t, "A", class.Superclass.Name.Lexeme)
	require.Len(t, class.Methods, 1)

	method := class.Methods[0]
	call := method.Body[0].(*ast.ExprStmt).Expr.(*ast.CallExpr)
	super, ok := call.Callee.(*ast.SuperExpr)
	require.True(t, ok)
	assert.Equal(t, "m", super.Method.Lexeme)

	ret := method.Body[1].(*ast.ReturnStmt)
	_, ok = ret.Value.(*ast.ThisExpr)
	assert.True(t, ok)
}

func TestParseFunDecl(t *testing.T) {
	file := parseOK(t, `fun add(a, b) { return a + b; }`)
	fn, ok := file.Body[0].(*ast.FunctionStmt)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name.Lexeme)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "b", fn.Params[1].Lexeme)
	require.Len(t, fn.Body, 1)
	assert.Equal(t, 1, fn.Span.Start.Column)
}

func TestParseIfElse(t *testing.T) {
	file := parseOK(t, `if (a) print 1; else if (b) print 2; else print 3;`)
	stmt := file.Body[0].(*ast.IfStmt)
	// else binds to the nearest if
	nested, ok := stmt.Else.(*ast.IfStmt)
	require.True(t, ok)
	assert.NotNil(t, nested.Else)
}

func TestParseForDesugaring(t *testing.T) {
	file := parseOK(t, `for (var i = 0; i < 3; i = i + 1) print i;`)
	require.Len(t, file.Body, 1)

	outer, ok := file.Body[0].(*ast.BlockStmt)
	require.True(t, ok, "initializer wraps the loop in a block")
	require.Len(t, outer.Stmts, 2)
	_, ok = outer.Stmts[0].(*ast.VarStmt)
	assert.True(t, ok)

	loop, ok := outer.Stmts[1].(*ast.WhileStmt)
	require.True(t, ok)
	body, ok := loop.Body.(*ast.BlockStmt)
	require.True(t, ok)
	require.Len(t, body.Stmts, 2)
	_, ok = body.Stmts[0].(*ast.PrintStmt)
	assert.True(t, ok)
	_, ok = body.Stmts[1].(*ast.ExprStmt).Expr.(*ast.AssignExpr)
	assert.True(t, ok)
}

func TestParseForEmptyClauses(t *testing.T) {
	file := parseOK(t, `for (;;) print 1;`)
	loop, ok := file.Body[0].(*ast.WhileStmt)
	require.True(t, ok)
	assert.Equal(t, true, loop.Condition.(*ast.LiteralExpr).Value)
	_, ok = loop.Body.(*ast.PrintStmt)
	assert.True(t, ok)
}

func TestParseForExpressionInit(t *testing.T) {
	file := parseOK(t, `for (i = 0; i < 1;) print i;`)
	outer := file.Body[0].(*ast.BlockStmt)
	_, ok := outer.Stmts[0].(*ast.ExprStmt)
	assert.True(t, ok)
}

func TestParseErrorRecovery(t *testing.T) {
	source := "var = 1;\nprint 2;\nvar y = ;\nfun f( { }\nprint 3;"
	file, diags := parse(t, source)

	assert.Equal(t, []string{
		"[line 1] Error at '=': Expect variable name.",
		"[line 3] Error at ';': Expect expression.",
		"[line 4] Error at '{': Expect parameter name.",
	}, messages(diags))

	// the two well-formed prints survive
	require.Len(t, file.Body, 2)
	for _, stmt := range file.Body {
		_, ok := stmt.(*ast.PrintStmt)
		assert.True(t, ok)
	}
}

func TestParseErrorAtEnd(t *testing.T) {
	_, diags := parse(t, `print 1`)
	require.Len(t, diags, 1)
	assert.Equal(t, "[line 1] Error at end: Expect ';' after value.", diags[0].String())
}

func TestParseUnclosedBlock(t *testing.T) {
	_, diags := parse(t, `{ print 1;`)
	require.Len(t, diags, 1)
	assert.Equal(t, "E2090", diags[0].Code)
}

func TestParseTooManyArguments(t *testing.T) {
	args := make([]string, MaxArgs+1)
	for i := range args {
		args[i] = "1"
	}
	file, diags := parse(t, "f("+strings.Join(args, ", ")+");")

	require.Len(t, diags, 1)
	assert.Equal(t, diag.Warning, diags[0].Severity)
	assert.Equal(t, "W2002", diags[0].Code)
	assert.Equal(t, "Can't have more than 255 arguments.", diags[0].Message)
	assert.False(t, diag.HasErrors(diags))

	// the call is still built
	call := file.Body[0].(*ast.ExprStmt).Expr.(*ast.CallExpr)
	assert.Len(t, call.Args, MaxArgs+1)
}

func TestParseTooManyParameters(t *testing.T) {
	params := make([]string, MaxArgs+2)
	for i := range params {
		params[i] = "p" + strings.Repeat("x", i)
	}
	_, diags := parse(t, "fun f("+strings.Join(params, ", ")+") {}")

	// one warning per parameter past the limit
	require.Len(t, diags, 2)
	for _, d := range diags {
		assert.Equal(t, "W2001", d.Code)
		assert.Equal(t, "Can't have more than 255 parameters.", d.Message)
	}
}

func TestParseMissingEOF(t *testing.T) {
	tokens, _ := lexer.New(`print 1;`, "test.lox").Tokenize()
	file, diags := New(tokens[:len(tokens)-1]).ParseFile()
	assert.Empty(t, diags)
	assert.Len(t, file.Body, 1)

	file, diags = New(nil).ParseFile()
	assert.Empty(t, diags)
	assert.Empty(t, file.Body)
}

func TestParseJSONOutput(t *testing.T) {
	file := parseOK(t, `var x = 1;`)
	data, err := json.Marshal(ast.NodeToMap(file))
	require.NoError(t, err)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "File", decoded["kind"])

	body := decoded["body"].([]interface{})
	require.Len(t, body, 1)
	decl := body[0].(map[string]interface{})
	assert.Equal(t, "VarStmt", decl["kind"])
	assert.Equal(t, "x", decl["name"])
	assert.Equal(t, "LiteralExpr", decl["init"].(map[string]interface{})["kind"])
}
