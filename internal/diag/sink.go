package diag

import (
	"io"

	"github.com/fatih/color"
	"github.com/golang/glog"
)

// Sink receives diagnostics as the pipeline produces them.
type Sink interface {
	// Report issues a diagnostic.
	Report(d Diagnostic)
	// Errors returns the number of error diagnostics issued so far.
	Errors() int
	// Warnings returns the number of warning diagnostics issued so far.
	Warnings() int
}

// FormatOptions controls how a WriterSink renders diagnostics.
type FormatOptions struct {
	Color        bool // colorize the severity label
	HideWarnings bool // drop warnings instead of printing them
}

// WriterSink prints each diagnostic on its own line to an io.Writer.
type WriterSink struct {
	w        io.Writer
	opts     FormatOptions
	errors   int
	warnings int

	errColor  *color.Color
	warnColor *color.Color
}

// NewWriterSink returns a sink writing to w.
func NewWriterSink(w io.Writer, opts FormatOptions) *WriterSink {
	s := &WriterSink{
		w:         w,
		opts:      opts,
		errColor:  color.New(color.FgRed),
		warnColor: color.New(color.FgYellow),
	}
	if opts.Color {
		s.errColor.EnableColor()
		s.warnColor.EnableColor()
	} else {
		s.errColor.DisableColor()
		s.warnColor.DisableColor()
	}
	return s
}

func (s *WriterSink) Report(d Diagnostic) {
	switch d.Severity {
	case Warning:
		s.warnings++
		if glog.V(4) {
			glog.Infof("diag: warning %s: %s", d.Code, d.Message)
		}
		if s.opts.HideWarnings {
			return
		}
		s.warnColor.Fprintln(s.w, d.String())
	default:
		s.errors++
		if glog.V(3) {
			glog.Infof("diag: error %s: %s", d.Code, d.Message)
		}
		s.errColor.Fprintln(s.w, d.String())
	}
}

func (s *WriterSink) Errors() int   { return s.errors }
func (s *WriterSink) Warnings() int { return s.warnings }

// Collector keeps every reported diagnostic in memory.
type Collector struct {
	Diags []Diagnostic
}

func (c *Collector) Report(d Diagnostic) { c.Diags = append(c.Diags, d) }

func (c *Collector) Errors() int   { return c.count(Error) }
func (c *Collector) Warnings() int { return c.count(Warning) }

func (c *Collector) count(sev Severity) int {
	n := 0
	for _, d := range c.Diags {
		if d.Severity == sev {
			n++
		}
	}
	return n
}

// Messages returns the rendered form of every collected diagnostic.
func (c *Collector) Messages() []string {
	out := make([]string, len(c.Diags))
	for i, d := range c.Diags {
		out[i] = d.String()
	}
	return out
}
