// Package lexer implements the lexical analysis (tokenization) for Lox.
package lexer

import (
	"strconv"
	"unicode/utf8"

	"github.com/golang/glog"

	"lox-lang/internal/diag"
	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// Lexer tokenizes source code into a sequence of tokens.
type Lexer struct {
	source   string
	filename string

	pos  int // current read position in source
	line int // current line (1-based)
	col  int // current column (1-based)

	diags []diag.Diagnostic
}

// New creates a new Lexer for the given source text.
func New(source, filename string) *Lexer {
	return &Lexer{
		source:   source,
		filename: filename,
		pos:      span.Start.Offset,
		line:     span.Start.Line,
		col:      span.Start.Column,
	}
}

// Tokenize scans the entire source and returns all tokens and diagnostics.
// The token slice always ends with a single EOF token.
func (l *Lexer) Tokenize() ([]token.Token, []diag.Diagnostic) {
	var tokens []token.Token
	for {
		tok, ok := l.nextToken()
		if !ok {
			continue
		}
		tokens = append(tokens, tok)
		if tok.Kind == token.EOF {
			break
		}
	}
	if glog.V(4) {
		glog.Infof("lexer: %s: %d tokens, %d diagnostics", l.filename, len(tokens), len(l.diags))
	}
	return tokens, l.diags
}

// ---- internal helpers ----

// peek returns the current character without advancing, or 0 if at end.
func (l *Lexer) peek() byte {
	if l.pos >= len(l.source) {
		return 0
	}
	return l.source[l.pos]
}

// peekNext returns the character after current, or 0 if at end.
func (l *Lexer) peekNext() byte {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

// advance consumes the current character and returns it.
func (l *Lexer) advance() byte {
	ch := l.source[l.pos]
	l.pos++
	if ch == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return ch
}

// matchNext consumes the current character if it equals want.
func (l *Lexer) matchNext(want byte) bool {
	if l.peek() != want || l.pos >= len(l.source) {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) curPos() span.Position {
	return span.Position{Offset: l.pos, Line: l.line, Column: l.col}
}

func (l *Lexer) makeSpan(start span.Position) span.Span {
	return span.Span{Start: start, End: l.curPos()}
}

func (l *Lexer) make(kind token.Kind, start span.Position) token.Token {
	return token.Token{Kind: kind, Lexeme: l.source[start.Offset:l.pos], Span: l.makeSpan(start)}
}

// skipWhitespace skips blanks, newlines and // comments.
func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.source) {
		switch ch := l.peek(); {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			l.advance()
		case ch == '/' && l.peekNext() == '/':
			for l.pos < len(l.source) && l.peek() != '\n' {
				l.advance()
			}
		default:
			return
		}
	}
}

func (l *Lexer) addError(code string, s span.Span, msg, hint string) {
	d := diag.Errorf(code, s, "%s", msg)
	d.Hint = hint
	l.diags = append(l.diags, d)
}

// ---- token reading ----

// nextToken scans one token. ok is false when the scanned text produced a
// diagnostic instead of a token.
func (l *Lexer) nextToken() (tok token.Token, ok bool) {
	l.skipWhitespace()

	start := l.curPos()
	if l.pos >= len(l.source) {
		return token.Token{Kind: token.EOF, Span: l.makeSpan(start)}, true
	}

	ch := l.peek()
	switch {
	case ch == '"':
		return l.readString(start)
	case isDigit(ch):
		return l.readNumber(start), true
	case isAlpha(ch):
		return l.readIdentifier(start), true
	}
	return l.readOperator(start)
}

// readString reads a double-quoted string literal. Strings may span lines
// and have no escape sequences.
func (l *Lexer) readString(start span.Position) (token.Token, bool) {
	l.advance() // opening "
	for l.pos < len(l.source) && l.peek() != '"' {
		l.advance()
	}
	if l.pos >= len(l.source) {
		l.addError("E1001", l.makeSpan(start), "Unterminated string.",
			"the string starting here has no closing '\"'")
		return token.Token{}, false
	}
	l.advance() // closing "

	tok := l.make(token.STRING, start)
	tok.Literal = l.source[start.Offset+1 : l.pos-1]
	return tok, true
}

// readNumber reads an integer or decimal literal.
func (l *Lexer) readNumber(start span.Position) token.Token {
	for isDigit(l.peek()) {
		l.advance()
	}
	// A fractional part needs at least one digit after the dot.
	if l.peek() == '.' && isDigit(l.peekNext()) {
		l.advance()
		for isDigit(l.peek()) {
			l.advance()
		}
	}

	tok := l.make(token.NUMBER, start)
	val, _ := strconv.ParseFloat(tok.Lexeme, 64)
	tok.Literal = val
	return tok
}

// readIdentifier reads an identifier or keyword.
func (l *Lexer) readIdentifier(start span.Position) token.Token {
	for isAlphaNumeric(l.peek()) {
		l.advance()
	}
	tok := l.make(token.IDENT, start)
	tok.Kind = token.LookupIdent(tok.Lexeme)
	return tok
}

// readOperator reads an operator or delimiter token.
func (l *Lexer) readOperator(start span.Position) (token.Token, bool) {
	ch := l.advance()

	var kind token.Kind
	switch ch {
	case '(':
		kind = token.LPAREN
	case ')':
		kind = token.RPAREN
	case '{':
		kind = token.LBRACE
	case '}':
		kind = token.RBRACE
	case ',':
		kind = token.COMMA
	case '.':
		kind = token.DOT
	case '-':
		kind = token.MINUS
	case '+':
		kind = token.PLUS
	case ';':
		kind = token.SEMICOLON
	case '*':
		kind = token.STAR
	case '/':
		kind = token.SLASH
	case '!':
		kind = l.either('=', token.NEQ, token.BANG)
	case '=':
		kind = l.either('=', token.EQ, token.ASSIGN)
	case '<':
		kind = l.either('=', token.LTE, token.LT)
	case '>':
		kind = l.either('=', token.GTE, token.GT)
	default:
		// Skip the rest of a multi-byte character so it is reported once.
		if ch >= utf8.RuneSelf {
			_, size := utf8.DecodeRuneInString(l.source[start.Offset:])
			l.pos += size - 1
		}
		l.addError("E1002", l.makeSpan(start), "Unexpected character.", "")
		return token.Token{}, false
	}
	return l.make(kind, start), true
}

// either returns two if the next character is next (consuming it), else one.
func (l *Lexer) either(next byte, two, one token.Kind) token.Kind {
	if l.matchNext(next) {
		return two
	}
	return one
}

// ---- character classification ----

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isAlpha(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isAlphaNumeric(ch byte) bool {
	return isAlpha(ch) || isDigit(ch)
}
