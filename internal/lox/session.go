// Package lox wires the front end and the interpreter into a session that
// runs units of source text (a file, or one REPL entry) against shared
// global state.
package lox

import (
	"context"
	"errors"
	"io"

	"github.com/golang/glog"

	"lox-lang/internal/ast"
	"lox-lang/internal/diag"
	"lox-lang/internal/lexer"
	"lox-lang/internal/parser"
	"lox-lang/internal/resolver"
	"lox-lang/internal/runtime"
)

// StaticError is returned when scanning, parsing or resolving a unit
// produced at least one error diagnostic. The unit was not executed.
type StaticError struct {
	Diagnostics []diag.Diagnostic // error-severity diagnostics only
	err         error
}

// NewStaticError builds a StaticError from the error-severity entries of
// diags. Warnings are dropped.
func NewStaticError(diags []diag.Diagnostic) *StaticError {
	var errs []diag.Diagnostic
	for _, d := range diags {
		if d.Severity == diag.Error {
			errs = append(errs, d)
		}
	}
	return &StaticError{Diagnostics: errs, err: diag.Errors(errs)}
}

func (e *StaticError) Error() string { return e.err.Error() }

// Unwrap exposes the aggregated diagnostics.
func (e *StaticError) Unwrap() error { return e.err }

// Options configures a Session.
type Options struct {
	Output  io.Writer    // where print writes
	Sink    diag.Sink    // receives every diagnostic, warnings included
	Runtime runtime.Options
}

// Session runs units one after another against a single interpreter.
// A Session is not safe for concurrent use.
type Session struct {
	interp *runtime.Interpreter
	sink   diag.Sink

	// HadError is set by any static error. The REPL clears it per entry.
	HadError bool
	// HadRuntimeError is set by any runtime error and stays set.
	HadRuntimeError bool
}

// NewSession creates a session. A nil Sink discards diagnostics.
func NewSession(opts Options) *Session {
	if opts.Output == nil {
		opts.Output = io.Discard
	}
	if opts.Sink == nil {
		opts.Sink = &diag.Collector{}
	}
	return &Session{
		interp: runtime.NewInterpreter(opts.Output, opts.Runtime),
		sink:   opts.Sink,
	}
}

// Run lexes, parses, resolves and executes one unit. It returns a
// *StaticError if a front-end phase failed, a *runtime.RuntimeError if
// execution faulted, or the context's error if ctx was cancelled between
// top-level statements.
func (s *Session) Run(ctx context.Context, source, filename string) error {
	file, err := s.Compile(source, filename)
	if err != nil {
		return err
	}

	if glog.V(3) {
		glog.Infof("lox: interpreting %s (%d statements)", filename, len(file.Body))
	}
	err = s.interp.Interpret(ctx, file.Body)
	var rerr *runtime.RuntimeError
	if errors.As(err, &rerr) {
		s.HadRuntimeError = true
	}
	return err
}

// Compile runs the front end over one unit and registers its resolution
// table with the interpreter. Diagnostics go to the sink as they are found.
func (s *Session) Compile(source, filename string) (*ast.File, error) {
	if glog.V(3) {
		glog.Infof("lox: scanning %s (%d bytes)", filename, len(source))
	}
	tokens, diags := lexer.New(source, filename).Tokenize()

	if glog.V(3) {
		glog.Infof("lox: parsing %s (%d tokens)", filename, len(tokens))
	}
	file, parseDiags := parser.New(tokens).ParseFile()
	diags = append(diags, parseDiags...)
	if err := s.report(diags); err != nil {
		return nil, err
	}

	if glog.V(3) {
		glog.Infof("lox: resolving %s", filename)
	}
	locals, resolveDiags := resolver.Resolve(file)
	if err := s.report(resolveDiags); err != nil {
		return nil, err
	}

	s.interp.AddLocals(locals)
	return file, nil
}

// report forwards diags to the sink and returns a *StaticError if any of
// them is an error.
func (s *Session) report(diags []diag.Diagnostic) error {
	for _, d := range diags {
		s.sink.Report(d)
	}
	if !diag.HasErrors(diags) {
		return nil
	}
	s.HadError = true
	return NewStaticError(diags)
}

// ResetStatic clears HadError. HadRuntimeError is left as it is.
func (s *Session) ResetStatic() {
	s.HadError = false
}
