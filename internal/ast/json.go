package ast

import (
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// NodeToMap converts an AST node to a map suitable for JSON serialization.
// This produces a tagged-union structure: every node has a "kind" field.
func NodeToMap(node Node) map[string]interface{} {
	if node == nil {
		return nil
	}

	switch n := node.(type) {
	case *File:
		return m("File", n.Span, "body", stmtSlice(n.Body))

	// ---- Expressions ----
	case *AssignExpr:
		return m("AssignExpr", n.Span, "name", n.Name.Lexeme, "value", NodeToMap(n.Value))
	case *BinaryExpr:
		return m("BinaryExpr", n.Span,
			"op", opStr(n.Op),
			"left", NodeToMap(n.Left),
			"right", NodeToMap(n.Right))
	case *CallExpr:
		return m("CallExpr", n.Span,
			"callee", NodeToMap(n.Callee),
			"args", exprSlice(n.Args))
	case *GetExpr:
		return m("GetExpr", n.Span, "object", NodeToMap(n.Object), "name", n.Name.Lexeme)
	case *GroupingExpr:
		return m("GroupingExpr", n.Span, "expr", NodeToMap(n.Expr))
	case *LiteralExpr:
		return m("LiteralExpr", n.Span, "value", n.Value)
	case *LogicalExpr:
		return m("LogicalExpr", n.Span,
			"op", opStr(n.Op),
			"left", NodeToMap(n.Left),
			"right", NodeToMap(n.Right))
	case *SetExpr:
		return m("SetExpr", n.Span,
			"object", NodeToMap(n.Object),
			"name", n.Name.Lexeme,
			"value", NodeToMap(n.Value))
	case *SuperExpr:
		return m("SuperExpr", n.Span, "method", n.Method.Lexeme)
	case *ThisExpr:
		return m("ThisExpr", n.Span)
	case *UnaryExpr:
		return m("UnaryExpr", n.Span, "op", opStr(n.Op), "right", NodeToMap(n.Right))
	case *VariableExpr:
		return m("VariableExpr", n.Span, "name", n.Name.Lexeme)

	// ---- Statements ----
	case *BlockStmt:
		return m("BlockStmt", n.Span, "stmts", stmtSlice(n.Stmts))
	case *ClassStmt:
		result := m("ClassStmt", n.Span, "name", n.Name.Lexeme)
		if n.Superclass != nil {
			result["superclass"] = NodeToMap(n.Superclass)
		}
		methods := make([]interface{}, len(n.Methods))
		for i, md := range n.Methods {
			methods[i] = NodeToMap(md)
		}
		result["methods"] = methods
		return result
	case *ExprStmt:
		return m("ExprStmt", n.Span, "expr", NodeToMap(n.Expr))
	case *FunctionStmt:
		return m("FunctionStmt", n.Span,
			"name", n.Name.Lexeme,
			"params", lexemes(n.Params),
			"body", stmtSlice(n.Body))
	case *IfStmt:
		result := m("IfStmt", n.Span,
			"condition", NodeToMap(n.Condition),
			"then", NodeToMap(n.Then))
		if n.Else != nil {
			result["else"] = NodeToMap(n.Else)
		}
		return result
	case *PrintStmt:
		return m("PrintStmt", n.Span, "expr", NodeToMap(n.Expr))
	case *ReturnStmt:
		result := m("ReturnStmt", n.Span)
		if n.Value != nil {
			result["value"] = NodeToMap(n.Value)
		}
		return result
	case *VarStmt:
		result := m("VarStmt", n.Span, "name", n.Name.Lexeme)
		if n.Init != nil {
			result["init"] = NodeToMap(n.Init)
		}
		return result
	case *WhileStmt:
		return m("WhileStmt", n.Span,
			"condition", NodeToMap(n.Condition),
			"body", NodeToMap(n.Body))

	default:
		return map[string]interface{}{"kind": "Unknown"}
	}
}

// ---- helpers ----

// m builds a map with kind, span, and extra key-value pairs.
func m(kind string, s span.Span, kvs ...interface{}) map[string]interface{} {
	result := map[string]interface{}{
		"kind": kind,
		"span": spanToMap(s),
	}
	for i := 0; i+1 < len(kvs); i += 2 {
		key := kvs[i].(string)
		result[key] = kvs[i+1]
	}
	return result
}

func spanToMap(s span.Span) map[string]interface{} {
	return map[string]interface{}{
		"start": map[string]interface{}{
			"line":   s.Start.Line,
			"column": s.Start.Column,
		},
		"end": map[string]interface{}{
			"line":   s.End.Line,
			"column": s.End.Column,
		},
	}
}

func stmtSlice(stmts []Stmt) []interface{} {
	result := make([]interface{}, len(stmts))
	for i, s := range stmts {
		result[i] = NodeToMap(s)
	}
	return result
}

func exprSlice(exprs []Expr) []interface{} {
	result := make([]interface{}, len(exprs))
	for i, e := range exprs {
		result[i] = NodeToMap(e)
	}
	return result
}

func lexemes(toks []token.Token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.Lexeme
	}
	return out
}

func opStr(tok token.Token) string {
	return tok.Kind.String()
}
