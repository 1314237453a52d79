// Package diag provides diagnostic (error/warning) types for the front-end.
package diag

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"

	"lox-lang/internal/span"
	"lox-lang/internal/token"
)

// Severity indicates the severity of a diagnostic.
type Severity int

const (
	Error Severity = iota
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return "unknown"
	}
}

// Diagnostic represents a static (scan, parse or resolve) diagnostic.
type Diagnostic struct {
	Code     string    `json:"code"`            // stable code, e.g. "E2001"
	Severity Severity  `json:"severity"`        // error or warning
	Message  string    `json:"message"`         // human-readable description
	Where    string    `json:"where,omitempty"` // " at 'x'" or " at end"
	Span     span.Span `json:"span"`            // source location
	Hint     string    `json:"hint,omitempty"`  // optional hint
}

// Line returns the line the diagnostic points at.
func (d Diagnostic) Line() int { return d.Span.Start.Line }

// String renders the diagnostic as "[line 3] Error at ';': message".
func (d Diagnostic) String() string {
	label := "Error"
	if d.Severity == Warning {
		label = "Warning"
	}
	msg := fmt.Sprintf("[line %d] %s%s: %s", d.Line(), label, d.Where, d.Message)
	if d.Hint != "" {
		msg += " (hint: " + d.Hint + ")"
	}
	return msg
}

// Error lets a diagnostic travel as an error value.
func (d Diagnostic) Error() string { return d.String() }

// Errorf creates an error diagnostic at the given span.
func Errorf(code string, s span.Span, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: Error,
		Message:  fmt.Sprintf(format, args...),
		Span:     s,
	}
}

// AtToken creates a diagnostic located at tok, quoting it the usual way.
func AtToken(sev Severity, code string, tok token.Token, format string, args ...interface{}) Diagnostic {
	return Diagnostic{
		Code:     code,
		Severity: sev,
		Message:  fmt.Sprintf(format, args...),
		Where:    tok.Where(),
		Span:     tok.Span,
	}
}

// HasErrors reports whether any diagnostic in diags has Error severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == Error {
			return true
		}
	}
	return false
}

// Errors folds the error-severity diagnostics into a single error, or nil
// if there are none. Warnings are skipped.
func Errors(diags []Diagnostic) error {
	var result *multierror.Error
	for _, d := range diags {
		if d.Severity == Error {
			result = multierror.Append(result, d)
		}
	}
	if result == nil {
		return nil
	}
	result.ErrorFormat = listFormat
	return result.ErrorOrNil()
}

func listFormat(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}
