package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lox-lang/internal/ast"
	"lox-lang/internal/config"
	"lox-lang/internal/diag"
	"lox-lang/internal/lexer"
	"lox-lang/internal/lox"
	"lox-lang/internal/parser"
	"lox-lang/internal/resolver"
	"lox-lang/internal/runtime"
	"lox-lang/internal/span"
)

func TestExitCode(t *testing.T) {
	static := lox.NewStaticError([]diag.Diagnostic{
		diag.Errorf("E2123", span.Span{}, "Expect expression."),
	})
	rerr := &runtime.RuntimeError{Message: "Operand must be a number."}

	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitOK},
		{"static", static, exitStatic},
		{"wrapped static", errors.Wrap(static, "running"), exitStatic},
		{"runtime", rerr, exitRuntime},
		{"cancelled", context.Canceled, exitRuntime},
		{"io", ioError{errors.New("no such file")}, exitIO},
		{"usage", usageError{errors.New("bad flag")}, exitUsage},
		{"other", errors.New("boom"), exitUsage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestReadFileMissing(t *testing.T) {
	_, err := readFile(filepath.Join(t.TempDir(), "missing.lox"))
	require.Error(t, err)
	assert.Equal(t, exitIO, exitCode(err))
	assert.Contains(t, err.Error(), "cannot read file")
}

func TestRunFileExitCodes(t *testing.T) {
	dir := t.TempDir()
	write := func(name, src string) string {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(src), 0o644))
		return path
	}
	a := &app{cfg: config.Default()}
	a.cfg.Color = config.ColorNever

	assert.NoError(t, a.runFile(write("ok.lox", "var a = 1;\n")))
	assert.Equal(t, exitStatic, exitCode(a.runFile(write("static.lox", "var;\n"))))
	assert.Equal(t, exitRuntime, exitCode(a.runFile(write("runtime.lox", "nil();\n"))))
	assert.Equal(t, exitIO, exitCode(a.runFile(filepath.Join(dir, "absent.lox"))))
}

func TestUseColor(t *testing.T) {
	a := &app{cfg: config.Default()}
	a.cfg.Color = config.ColorAlways
	assert.True(t, a.useColor())
	a.cfg.Color = config.ColorNever
	assert.False(t, a.useColor())
}

func TestLocalsToSlice(t *testing.T) {
	src := "{\n  var a = 1;\n  fun f() { print a; }\n  a = 2;\n  f();\n}\n"
	tokens, lexDiags := lexer.New(src, "test.lox").Tokenize()
	require.Empty(t, lexDiags)
	file, parseDiags := parser.New(tokens).ParseFile()
	require.Empty(t, parseDiags)
	locals, _ := resolver.Resolve(file)

	got := localsToSlice(locals)
	require.Len(t, got, 3)

	assert.Equal(t, "a", got[0]["name"])
	assert.Equal(t, 3, got[0]["line"])
	assert.Equal(t, 1, got[0]["distance"])

	assert.Equal(t, "a", got[1]["name"])
	assert.Equal(t, 4, got[1]["line"])
	assert.Equal(t, 0, got[1]["distance"])

	assert.Equal(t, "f", got[2]["name"])
	assert.Equal(t, 5, got[2]["line"])
	assert.Equal(t, 0, got[2]["distance"])
}

func TestReferenceName(t *testing.T) {
	assert.Equal(t, "this", referenceName(&ast.ThisExpr{}))
	assert.Equal(t, "super", referenceName(&ast.SuperExpr{}))
	assert.Equal(t, "", referenceName(&ast.LiteralExpr{}))
}
