package main

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/chzyer/readline"
	"github.com/stretchr/testify/assert"

	"lox-lang/internal/diag"
	"lox-lang/internal/lox"
)

// scriptedReader replays entries; an entry with err set returns
// that error instead of a line.
type scriptedReader struct {
	entries []scripted
	prompts []string
}

type scripted struct {
	line string
	err  error
}

func (r *scriptedReader) Readline() (string, error) {
	if len(r.entries) == 0 {
		return "", io.EOF
	}
	e := r.entries[0]
	r.entries = r.entries[1:]
	return e.line, e.err
}

func (r *scriptedReader) SetPrompt(prompt string) { r.prompts = append(r.prompts, prompt) }

func lines(ls ...string) []scripted {
	out := make([]scripted, len(ls))
	for i, l := range ls {
		out[i] = scripted{line: l}
	}
	return out
}

func newTestLoop(entries []scripted) (*replLoop, *scriptedReader, *bytes.Buffer, *bytes.Buffer, *lox.Session) {
	in := &scriptedReader{entries: entries}
	var out, errOut bytes.Buffer
	session := lox.NewSession(lox.Options{
		Output: &out,
		Sink:   diag.NewWriterSink(&errOut, diag.FormatOptions{}),
	})
	r := &replLoop{in: in, out: &out, errOut: &errOut, session: session, prompt: "> "}
	return r, in, &out, &errOut, session
}

func TestReplRunsEntriesInOneSession(t *testing.T) {
	r, _, out, errOut, _ := newTestLoop(lines(
		"var a = 1;",
		"print a + 1;",
		"fun twice(x) { return x * 2; }",
		"print twice(a);",
	))
	r.run(context.Background())
	assert.Equal(t, "2\n2\n\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestReplJoinsLinesUntilBracesBalance(t *testing.T) {
	r, in, out, _, _ := newTestLoop(lines(
		"fun greet(name) {",
		`  print "hi " + name;`,
		"}",
		`greet("bob");`,
	))
	r.run(context.Background())
	assert.Equal(t, "hi bob\n\n", out.String())
	assert.Contains(t, in.prompts[1], continuePrompt)
	assert.Contains(t, in.prompts[2], continuePrompt)
	assert.NotContains(t, in.prompts[3], continuePrompt)
}

func TestReplExit(t *testing.T) {
	r, _, out, _, _ := newTestLoop(lines("print 1;", "exit", "print 2;"))
	r.run(context.Background())
	assert.Equal(t, "1\n", out.String())
}

func TestReplExitInsideBlockIsSource(t *testing.T) {
	r, _, _, errOut, session := newTestLoop(lines("{", "exit", "}"))
	r.run(context.Background())
	// "exit" is read as an identifier expression inside the block.
	assert.Contains(t, errOut.String(), "Expect ';' after expression.")
	assert.False(t, session.HadError, "static flag is cleared after each entry")
}

func TestReplInterruptCancelsPendingEntry(t *testing.T) {
	entries := []scripted{
		{line: "fun f() {"},
		{err: readline.ErrInterrupt},
		{line: "print 3;"},
	}
	r, _, out, errOut, _ := newTestLoop(entries)
	r.run(context.Background())
	assert.Equal(t, "3\n\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestReplInterruptAtPromptKeepsGoing(t *testing.T) {
	entries := []scripted{
		{err: readline.ErrInterrupt},
		{line: "print 4;"},
	}
	r, _, out, _, _ := newTestLoop(entries)
	r.run(context.Background())
	assert.Contains(t, out.String(), "use 'exit' or Ctrl+D to quit")
	assert.Contains(t, out.String(), "4\n")
}

func TestReplKeepsStateAfterErrors(t *testing.T) {
	r, _, out, errOut, session := newTestLoop(lines(
		"var x = 10;",
		"print -\"a\";",
		"print x;",
		"print ;",
		"print x + 1;",
	))
	r.run(context.Background())
	assert.Equal(t, "10\n11\n\n", out.String())
	assert.Contains(t, errOut.String(), "Operand must be a number.\n[line 1]")
	assert.Contains(t, errOut.String(), "Expect expression.")
	assert.False(t, session.HadError)
	assert.True(t, session.HadRuntimeError)
}

func TestReplSkipsBlankEntries(t *testing.T) {
	r, _, out, errOut, _ := newTestLoop(lines("", "   ", "print 5;"))
	r.run(context.Background())
	assert.Equal(t, "5\n\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestFeed(t *testing.T) {
	r := &replLoop{}
	src, ok := r.feed("class A {")
	assert.False(t, ok)
	assert.Empty(t, src)
	assert.Equal(t, 1, r.braceDepth)

	_, ok = r.feed("  m() { }")
	assert.False(t, ok)

	src, ok = r.feed("}")
	assert.True(t, ok)
	assert.Equal(t, "class A {\n  m() { }\n}\n", src)
	assert.Equal(t, 0, r.braceDepth)

	// A stray closing brace completes the entry and lets the parser report it.
	src, ok = r.feed("}")
	assert.True(t, ok)
	assert.Equal(t, "}\n", src)
	assert.Equal(t, 0, r.braceDepth)
}

func TestReplIgnoresBracesInStringsAndComments(t *testing.T) {
	r, _, out, errOut, _ := newTestLoop(lines(
		`print "{";`,
		"print 1; // {",
		`print "}" + "{{";`,
	))
	r.run(context.Background())
	assert.Equal(t, "{\n1\n}{{\n\n", out.String())
	assert.Empty(t, errOut.String())
}

func TestBraceDelta(t *testing.T) {
	tests := []struct {
		line string
		want int
	}{
		{"fun f() {", 1},
		{"}", -1},
		{"{ { }", 1},
		{`print "{";`, 0},
		{"// { {", 0},
		{`var s = "}"; {`, 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, braceDelta(tt.line), tt.line)
	}
}
