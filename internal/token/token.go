// Package token defines the token types produced by the lexer.
package token

import (
	"fmt"
	"lox-lang/internal/span"
)

// Kind represents the type of a token.
type Kind int

const (
	EOF Kind = iota

	// Single-character tokens
	LPAREN    // (
	RPAREN    // )
	LBRACE    // {
	RBRACE    // }
	COMMA     // ,
	DOT       // .
	MINUS     // -
	PLUS      // +
	SEMICOLON // ;
	SLASH     // /
	STAR      // *

	// One or two character tokens
	BANG   // !
	NEQ    // !=
	ASSIGN // =
	EQ     // ==
	GT     // >
	GTE    // >=
	LT     // <
	LTE    // <=

	// Literals
	IDENT  // identifiers: x, foo, myVar
	STRING // string literals: "hello"
	NUMBER // number literals: 123, 4.5

	// Keywords
	KW_AND
	KW_CLASS
	KW_ELSE
	KW_FALSE
	KW_FUN
	KW_FOR
	KW_IF
	KW_NIL
	KW_OR
	KW_PRINT
	KW_RETURN
	KW_SUPER
	KW_THIS
	KW_TRUE
	KW_VAR
	KW_WHILE
)

var kindNames = map[Kind]string{
	EOF: "EOF",

	LPAREN:    "(",
	RPAREN:    ")",
	LBRACE:    "{",
	RBRACE:    "}",
	COMMA:     ",",
	DOT:       ".",
	MINUS:     "-",
	PLUS:      "+",
	SEMICOLON: ";",
	SLASH:     "/",
	STAR:      "*",

	BANG:   "!",
	NEQ:    "!=",
	ASSIGN: "=",
	EQ:     "==",
	GT:     ">",
	GTE:    ">=",
	LT:     "<",
	LTE:    "<=",

	IDENT:  "IDENT",
	STRING: "STRING",
	NUMBER: "NUMBER",

	KW_AND:    "and",
	KW_CLASS:  "class",
	KW_ELSE:   "else",
	KW_FALSE:  "false",
	KW_FUN:    "fun",
	KW_FOR:    "for",
	KW_IF:     "if",
	KW_NIL:    "nil",
	KW_OR:     "or",
	KW_PRINT:  "print",
	KW_RETURN: "return",
	KW_SUPER:  "super",
	KW_THIS:   "this",
	KW_TRUE:   "true",
	KW_VAR:    "var",
	KW_WHILE:  "while",
}

// String returns the human-readable name for a token kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword returns true if the kind is a keyword.
func (k Kind) IsKeyword() bool {
	return k >= KW_AND && k <= KW_WHILE
}

// StartsDeclaration reports whether a statement-level construct begins with k.
// The parser resynchronises in front of these after a syntax error.
func (k Kind) StartsDeclaration() bool {
	switch k {
	case KW_CLASS, KW_FUN, KW_VAR, KW_FOR, KW_IF, KW_WHILE, KW_PRINT, KW_RETURN:
		return true
	}
	return false
}

var keywords = map[string]Kind{
	"and":    KW_AND,
	"class":  KW_CLASS,
	"else":   KW_ELSE,
	"false":  KW_FALSE,
	"fun":    KW_FUN,
	"for":    KW_FOR,
	"if":     KW_IF,
	"nil":    KW_NIL,
	"or":     KW_OR,
	"print":  KW_PRINT,
	"return": KW_RETURN,
	"super":  KW_SUPER,
	"this":   KW_THIS,
	"true":   KW_TRUE,
	"var":    KW_VAR,
	"while":  KW_WHILE,
}

// LookupIdent returns the keyword Kind for ident, or IDENT if it is not a keyword.
func LookupIdent(ident string) Kind {
	if kind, ok := keywords[ident]; ok {
		return kind
	}
	return IDENT
}

// Token represents a lexical token with its kind, text, and source location.
// Literal holds the decoded value of NUMBER (float64) and STRING (string)
// tokens and is nil for every other kind.
type Token struct {
	Kind    Kind      `json:"kind"`
	Lexeme  string    `json:"lexeme"`
	Literal any       `json:"literal,omitempty"`
	Span    span.Span `json:"span"`
}

// Line returns the 1-based source line the token starts on.
func (t Token) Line() int {
	return t.Span.Start.Line
}

// Where renders the token's location the way diagnostics quote it.
func (t Token) Where() string {
	if t.Kind == EOF {
		return " at end"
	}
	return fmt.Sprintf(" at '%s'", t.Lexeme)
}

// String returns a human-readable representation of the token.
func (t Token) String() string {
	return fmt.Sprintf("%s %q %s", t.Kind, t.Lexeme, t.Span.Start)
}
