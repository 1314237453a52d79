package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/lexer"
	"lox-lang/internal/lox"
	"lox-lang/internal/parser"
	"lox-lang/internal/resolver"
	"lox-lang/internal/token"
)

// ---- tokens command ----

func newTokensCmd() *cobra.Command {
	var jsonMode bool
	cmd := &cobra.Command{
		Use:   "tokens <file>",
		Short: "Tokenize a file and print the tokens",
		Args:  cobra.ExactArgs(1),
		Run: runFunc(func(cmd *cobra.Command, args []string) error {
			source, err := readFile(args[0])
			if err != nil {
				return err
			}
			tokens, diags := lexer.New(source, args[0]).Tokenize()
			if jsonMode {
				if err := printTokensJSON(os.Stdout, tokens, diags); err != nil {
					return err
				}
			} else {
				printTokensText(os.Stdout, tokens)
				printDiagsText(os.Stderr, diags)
			}
			return staticError(diags)
		}),
	}
	cmd.Flags().BoolVar(&jsonMode, "json", false, "Print tokens and diagnostics as JSON")
	return cmd
}

// ---- parse command ----

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Parse a file and print the AST as JSON",
		Args:  cobra.ExactArgs(1),
		Run: runFunc(func(cmd *cobra.Command, args []string) error {
			file, diags, err := parseFile(args[0])
			if err != nil {
				return err
			}
			output := map[string]interface{}{
				"ast":         ast.NodeToMap(file),
				"diagnostics": diagsToSlice(diags),
			}
			if err := printJSON(os.Stdout, output); err != nil {
				return err
			}
			return staticError(diags)
		}),
	}
}

// ---- resolve command ----

func newResolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <file>",
		Short: "Resolve a file and print each local reference's scope distance as JSON",
		Args:  cobra.ExactArgs(1),
		Run: runFunc(func(cmd *cobra.Command, args []string) error {
			file, diags, err := parseFile(args[0])
			if err != nil {
				return err
			}
			var locals resolver.Locals
			if !diag.HasErrors(diags) {
				var resolveDiags []diag.Diagnostic
				locals, resolveDiags = resolver.Resolve(file)
				diags = append(diags, resolveDiags...)
			}
			output := map[string]interface{}{
				"locals":      localsToSlice(locals),
				"diagnostics": diagsToSlice(diags),
			}
			if err := printJSON(os.Stdout, output); err != nil {
				return err
			}
			return staticError(diags)
		}),
	}
}

func parseFile(filename string) (*ast.File, []diag.Diagnostic, error) {
	source, err := readFile(filename)
	if err != nil {
		return nil, nil, err
	}
	tokens, lexDiags := lexer.New(source, filename).Tokenize()
	file, parseDiags := parser.New(tokens).ParseFile()
	return file, append(lexDiags, parseDiags...), nil
}

// staticError turns error diagnostics into the error that selects the
// static-error exit code.
func staticError(diags []diag.Diagnostic) error {
	if !diag.HasErrors(diags) {
		return nil
	}
	return lox.NewStaticError(diags)
}

// ---- output helpers ----

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ioError{errors.Wrap(err, "JSON encoding failed")}
	}
	return nil
}

func printDiagsText(w io.Writer, diags []diag.Diagnostic) {
	for _, d := range diags {
		fmt.Fprintln(w, d.String())
	}
}

func diagsToSlice(diags []diag.Diagnostic) []map[string]interface{} {
	result := make([]map[string]interface{}, len(diags))
	for i, d := range diags {
		result[i] = map[string]interface{}{
			"code":     d.Code,
			"severity": d.Severity.String(),
			"message":  d.Message,
			"line":     d.Span.Start.Line,
			"column":   d.Span.Start.Column,
			"offset":   d.Span.Start.Offset,
		}
		if d.Hint != "" {
			result[i]["hint"] = d.Hint
		}
	}
	return result
}

// localsToSlice lists resolved references in source order.
func localsToSlice(locals resolver.Locals) []map[string]interface{} {
	type entry struct {
		expr     ast.Expr
		distance int
	}
	entries := make([]entry, 0, len(locals))
	for expr, distance := range locals {
		entries = append(entries, entry{expr, distance})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].expr.GetSpan().Start.Offset < entries[j].expr.GetSpan().Start.Offset
	})

	result := make([]map[string]interface{}, len(entries))
	for i, e := range entries {
		kind := ast.NodeToMap(e.expr)["kind"]
		start := e.expr.GetSpan().Start
		result[i] = map[string]interface{}{
			"kind":     kind,
			"name":     referenceName(e.expr),
			"line":     start.Line,
			"column":   start.Column,
			"distance": e.distance,
		}
	}
	return result
}

func referenceName(expr ast.Expr) string {
	switch e := expr.(type) {
	case *ast.VariableExpr:
		return e.Name.Lexeme
	case *ast.AssignExpr:
		return e.Name.Lexeme
	case *ast.ThisExpr:
		return "this"
	case *ast.SuperExpr:
		return "super"
	}
	return ""
}

// ---- token output helpers ----

func printTokensText(w io.Writer, tokens []token.Token) {
	for _, tok := range tokens {
		fmt.Fprintf(w, "%-12s %-20s %d:%d\n", tok.Kind, tok.Lexeme, tok.Span.Start.Line, tok.Span.Start.Column)
	}
}

func printTokensJSON(w io.Writer, tokens []token.Token, diags []diag.Diagnostic) error {
	type tokenJSON struct {
		Kind    string      `json:"kind"`
		Lexeme  string      `json:"lexeme"`
		Literal interface{} `json:"literal,omitempty"`
		Line    int         `json:"line"`
		Column  int         `json:"column"`
		Offset  int         `json:"offset"`
	}

	toks := make([]tokenJSON, 0, len(tokens))
	for _, tok := range tokens {
		toks = append(toks, tokenJSON{
			Kind:    tok.Kind.String(),
			Lexeme:  tok.Lexeme,
			Literal: tok.Literal,
			Line:    tok.Span.Start.Line,
			Column:  tok.Span.Start.Column,
			Offset:  tok.Span.Start.Offset,
		})
	}

	output := map[string]interface{}{
		"tokens":      toks,
		"diagnostics": diagsToSlice(diags),
	}
	return printJSON(w, output)
}
