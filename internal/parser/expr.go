package parser

import (
	"lox-lang/internal/ast"
	"lox-lang/internal/token"
)

// ============================================================
// Expression parsing (precedence climbing, lowest first)
// ============================================================

func (p *Parser) expression() (ast.Expr, error) {
	return p.assignment()
}

// assignment parses: ( call "." )? IDENT "=" assignment | logicOr
//
// The left side is parsed as an ordinary expression and then checked, so
// arbitrarily long property chains work as targets.
func (p *Parser) assignment() (ast.Expr, error) {
	expr, err := p.or()
	if err != nil {
		return nil, err
	}

	if !p.match(token.ASSIGN) {
		return expr, nil
	}
	equals := p.previous()
	value, err := p.assignment()
	if err != nil {
		return nil, err
	}

	switch target := expr.(type) {
	case *ast.VariableExpr:
		return &ast.AssignExpr{ExprBase: p.exprFrom(target.Span), Name: target.Name, Value: value}, nil
	case *ast.GetExpr:
		return &ast.SetExpr{ExprBase: p.exprFrom(target.Span), Object: target.Object, Name: target.Name, Value: value}, nil
	}

	// Reported without unwinding: the parser is not confused, only the
	// target is wrong.
	_ = p.errorAt(equals, "E2100", "Invalid assignment target.")
	return expr, nil
}

func (p *Parser) or() (ast.Expr, error) {
	return p.logical(p.and, token.KW_OR)
}

func (p *Parser) and() (ast.Expr, error) {
	return p.logical(p.equality, token.KW_AND)
}

func (p *Parser) equality() (ast.Expr, error) {
	return p.binary(p.comparison, token.NEQ, token.EQ)
}

func (p *Parser) comparison() (ast.Expr, error) {
	return p.binary(p.term, token.GT, token.GTE, token.LT, token.LTE)
}

func (p *Parser) term() (ast.Expr, error) {
	return p.binary(p.factor, token.MINUS, token.PLUS)
}

func (p *Parser) factor() (ast.Expr, error) {
	return p.binary(p.unary, token.SLASH, token.STAR)
}

// binary parses a left-associative chain of operand (op operand)*.
func (p *Parser) binary(operand func() (ast.Expr, error), ops ...token.Kind) (ast.Expr, error) {
	expr, err := operand()
	if err != nil {
		return nil, err
	}
	for p.match(ops...) {
		op := p.previous()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		expr = &ast.BinaryExpr{ExprBase: p.exprFrom(expr.GetSpan()), Left: expr, Op: op, Right: right}
	}
	return expr, nil
}

// logical is binary for the short-circuiting operators.
func (p *Parser) logical(operand func() (ast.Expr, error), op token.Kind) (ast.Expr, error) {
	expr, err := operand()
	if err != nil {
		return nil, err
	}
	for p.match(op) {
		opTok := p.previous()
		right, err := operand()
		if err != nil {
			return nil, err
		}
		expr = &ast.LogicalExpr{ExprBase: p.exprFrom(expr.GetSpan()), Left: expr, Op: opTok, Right: right}
	}
	return expr, nil
}

// unary parses: ( "!" | "-" ) unary | call
func (p *Parser) unary() (ast.Expr, error) {
	if p.match(token.BANG, token.MINUS) {
		op := p.previous()
		right, err := p.unary()
		if err != nil {
			return nil, err
		}
		return &ast.UnaryExpr{ExprBase: p.exprFrom(op.Span), Op: op, Right: right}, nil
	}
	return p.call()
}

// call parses: primary ( "(" arguments? ")" | "." IDENT )*
func (p *Parser) call() (ast.Expr, error) {
	expr, err := p.primary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.match(token.LPAREN):
			if expr, err = p.finishCall(expr); err != nil {
				return nil, err
			}
		case p.match(token.DOT):
			name, err := p.consume(token.IDENT, "E2110", "Expect property name after '.'.")
			if err != nil {
				return nil, err
			}
			expr = &ast.GetExpr{ExprBase: p.exprFrom(expr.GetSpan()), Object: expr, Name: name}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) finishCall(callee ast.Expr) (ast.Expr, error) {
	var args []ast.Expr
	if !p.check(token.RPAREN) {
		for {
			if len(args) >= MaxArgs {
				p.warnAt(p.peek(), "W2002", "Can't have more than 255 arguments.")
			}
			arg, err := p.expression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	paren, err := p.consume(token.RPAREN, "E2111", "Expect ')' after arguments.")
	if err != nil {
		return nil, err
	}
	return &ast.CallExpr{ExprBase: p.exprFrom(callee.GetSpan()), Callee: callee, Paren: paren, Args: args}, nil
}

func (p *Parser) primary() (ast.Expr, error) {
	tok := p.peek()

	switch {
	case p.match(token.KW_FALSE):
		return &ast.LiteralExpr{ExprBase: exprBase(tok.Span), Value: false}, nil
	case p.match(token.KW_TRUE):
		return &ast.LiteralExpr{ExprBase: exprBase(tok.Span), Value: true}, nil
	case p.match(token.KW_NIL):
		return &ast.LiteralExpr{ExprBase: exprBase(tok.Span), Value: nil}, nil
	case p.match(token.NUMBER, token.STRING):
		return &ast.LiteralExpr{ExprBase: exprBase(tok.Span), Value: tok.Literal}, nil

	case p.match(token.KW_SUPER):
		if _, err := p.consume(token.DOT, "E2120", "Expect '.' after 'super'."); err != nil {
			return nil, err
		}
		method, err := p.consume(token.IDENT, "E2121", "Expect superclass method name.")
		if err != nil {
			return nil, err
		}
		return &ast.SuperExpr{ExprBase: p.exprFrom(tok.Span), Keyword: tok, Method: method}, nil

	case p.match(token.KW_THIS):
		return &ast.ThisExpr{ExprBase: exprBase(tok.Span), Keyword: tok}, nil

	case p.match(token.IDENT):
		return &ast.VariableExpr{ExprBase: exprBase(tok.Span), Name: tok}, nil

	case p.match(token.LPAREN):
		expr, err := p.expression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "E2122", "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &ast.GroupingExpr{ExprBase: p.exprFrom(tok.Span), Expr: expr}, nil
	}

	return nil, p.errorAt(tok, "E2123", "Expect expression.")
}
