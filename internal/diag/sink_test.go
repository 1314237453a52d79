package diag

import (
	"bytes"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

func at(line int) span.Span {
	pos := span.Position{Line: line, Column: 1}
	return span.Span{Start: pos, End: pos}
}

func warning(line int, msg string) Diagnostic {
	return Diagnostic{Code: "W3001", Severity: Warning, Message: msg, Span: at(line)}
}

func TestDiagnosticString(t *testing.T) {
	tok := token.Token{Kind: token.SEMICOLON, Lexeme: ";", Span: at(3)}
	d := AtToken(Error, "E2123", tok, "Expect %s.", "expression")
	assert.Equal(t, "[line 3] Error at ';': Expect expression.", d.String())
	assert.Equal(t, d.String(), d.Error())

	end := AtToken(Error, "E2060", token.Token{Kind: token.EOF, Span: at(4)}, "Expect ';' after value.")
	assert.Equal(t, "[line 4] Error at end: Expect ';' after value.", end.String())

	w := warning(2, "Variable 'x' is declared but never used.")
	w.Hint = "remove it"
	assert.Equal(t, "[line 2] Warning: Variable 'x' is declared but never used. (hint: remove it)", w.String())
}

func TestWriterSinkCountsHiddenWarnings(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf, FormatOptions{HideWarnings: true})

	sink.Report(warning(1, "unused"))
	sink.Report(Errorf("E1002", at(2), "Unexpected character."))
	sink.Report(warning(3, "unused again"))

	assert.Equal(t, 1, sink.Errors())
	assert.Equal(t, 2, sink.Warnings())
	assert.Equal(t, "[line 2] Error: Unexpected character.\n", buf.String())
}

func TestWriterSinkPrintsWarnings(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf, FormatOptions{})
	sink.Report(warning(1, "unused"))
	assert.Equal(t, "[line 1] Warning: unused\n", buf.String())
}

func TestWriterSinkColor(t *testing.T) {
	var buf bytes.Buffer
	sink := NewWriterSink(&buf, FormatOptions{Color: true})
	sink.Report(Errorf("E1002", at(1), "Unexpected character."))
	assert.Contains(t, buf.String(), "\x1b[31m")
	assert.Contains(t, buf.String(), "[line 1] Error: Unexpected character.")
}

func TestErrorsSkipsWarnings(t *testing.T) {
	assert.NoError(t, Errors(nil))
	assert.NoError(t, Errors([]Diagnostic{warning(1, "unused")}))

	err := Errors([]Diagnostic{
		Errorf("E1001", at(1), "Unterminated string."),
		warning(2, "unused"),
		Errorf("E2123", at(3), "Expect expression."),
	})
	require.Error(t, err)
	assert.Equal(t, "[line 1] Error: Unterminated string.\n[line 3] Error: Expect expression.", err.Error())

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.WrappedErrors(), 2)
}

func TestCollector(t *testing.T) {
	c := &Collector{}
	c.Report(warning(1, "unused"))
	c.Report(Errorf("E2123", at(2), "Expect expression."))

	assert.Equal(t, 1, c.Errors())
	assert.Equal(t, 1, c.Warnings())
	assert.Equal(t, []string{
		"[line 1] Warning: unused",
		"[line 2] Error: Expect expression.",
	}, c.Messages())
	assert.True(t, HasErrors(c.Diags))
	assert.False(t, HasErrors(c.Diags[:1]))
}
