package main

import (
	"context"
	"io"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"lox-lang/internal/config"
	"lox-lang/internal/diag"
	"lox-lang/internal/lox"
)

func newRunCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file>",
		Short: "Run a source file",
		Args:  cobra.ExactArgs(1),
		Run: runFunc(func(cmd *cobra.Command, args []string) error {
			return a.runFile(args[0])
		}),
	}
}

// runFile executes a script. An interrupt stops it between top-level
// statements.
func (a *app) runFile(filename string) error {
	source, err := readFile(filename)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	session := a.newSession(os.Stdout, color.Error)
	return session.Run(ctx, source, filename)
}

// newSession creates a session printing to out and reporting diagnostics
// to errOut, as the settings ask.
func (a *app) newSession(out, errOut io.Writer) *lox.Session {
	sink := diag.NewWriterSink(errOut, diag.FormatOptions{
		Color:        a.useColor(),
		HideWarnings: !a.cfg.Warnings,
	})
	return lox.NewSession(lox.Options{
		Output:  out,
		Sink:    sink,
		Runtime: a.cfg.RuntimeOptions(),
	})
}

func (a *app) useColor() bool {
	switch a.cfg.Color {
	case config.ColorAlways:
		return true
	case config.ColorNever:
		return false
	default:
		return !color.NoColor
	}
}

func readFile(filename string) (string, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return "", ioError{errors.Wrapf(err, "cannot read file %s", filename)}
	}
	return string(source), nil
}
