package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"lox-lang/internal/lexer"
	"lox-lang/internal/lox"
	"lox-lang/internal/runtime"
	"lox-lang/internal/token"
)

var (
	bannerColor = color.New(color.FgCyan, color.Bold)
	promptColor = color.New(color.FgGreen)
	hintColor   = color.New(color.FgHiBlack)
	errorColor  = color.New(color.FgRed)
)

const continuePrompt = "... "

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session",
		Args:  cobra.NoArgs,
		Run: runFunc(func(cmd *cobra.Command, args []string) error {
			return a.repl()
		}),
	}
}

// lineReader is the part of *readline.Instance the loop needs.
type lineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

// ---- repl command ----

func (a *app) repl() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:            promptColor.Sprint(a.cfg.REPL.Prompt),
		HistoryFile:       a.cfg.REPL.HistoryFile,
		InterruptPrompt:   "^C",
		EOFPrompt:         "exit",
		HistorySearchFold: true,
	})
	if err != nil {
		return ioError{err}
	}
	defer rl.Close()

	fmt.Fprintf(rl.Stdout(), "%s %s\n\n",
		bannerColor.Sprint("Lox REPL"), hintColor.Sprint("(type 'exit' or Ctrl+D to quit)"))

	session := a.newSession(rl.Stdout(), rl.Stderr())
	r := &replLoop{
		in:      rl,
		out:     rl.Stdout(),
		errOut:  rl.Stderr(),
		session: session,
		prompt:  a.cfg.REPL.Prompt,
	}
	r.run(context.Background())
	return nil
}

// replLoop reads entries, joining lines while braces are unbalanced, and
// runs each complete entry in one session.
type replLoop struct {
	in      lineReader
	out     io.Writer
	errOut  io.Writer
	session *lox.Session
	prompt  string

	pending    strings.Builder
	braceDepth int
}

func (r *replLoop) run(ctx context.Context) {
	for {
		if r.braceDepth > 0 {
			r.in.SetPrompt(hintColor.Sprint(continuePrompt))
		} else {
			r.in.SetPrompt(promptColor.Sprint(r.prompt))
		}

		line, err := r.in.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				if r.braceDepth > 0 {
					// Cancel multi-line input
					r.reset()
					continue
				}
				fmt.Fprintf(r.out, "%s\n", hintColor.Sprint("(use 'exit' or Ctrl+D to quit)"))
				continue
			}
			// EOF (Ctrl+D) or other error: exit
			if err == io.EOF {
				fmt.Fprintln(r.out)
			}
			return
		}

		if r.braceDepth == 0 && strings.TrimSpace(line) == "exit" {
			return
		}

		source, complete := r.feed(line)
		if !complete {
			continue
		}
		if strings.TrimSpace(source) == "" {
			continue
		}
		r.eval(ctx, source)
	}
}

// feed adds a line to the pending entry and reports whether the entry is
// complete, returning its text if so.
func (r *replLoop) feed(line string) (string, bool) {
	r.braceDepth += braceDelta(line)
	r.pending.WriteString(line)
	r.pending.WriteString("\n")
	if r.braceDepth > 0 {
		return "", false
	}
	source := r.pending.String()
	r.reset()
	return source, true
}

// braceDelta is the number of '{' minus the number of '}' tokens on line.
// Braces inside string literals and comments don't count.
func braceDelta(line string) int {
	tokens, _ := lexer.New(line, "<repl>").Tokenize()
	delta := 0
	for _, tok := range tokens {
		switch tok.Kind {
		case token.LBRACE:
			delta++
		case token.RBRACE:
			delta--
		}
	}
	return delta
}

func (r *replLoop) reset() {
	r.pending.Reset()
	r.braceDepth = 0
}

// eval runs one entry. Diagnostics were already printed by the session's
// sink; runtime errors are printed here.
func (r *replLoop) eval(ctx context.Context, source string) {
	err := r.session.Run(ctx, source, "<repl>")
	var rerr *runtime.RuntimeError
	if errors.As(err, &rerr) {
		errorColor.Fprintln(r.errOut, rerr.Error())
	}
	r.session.ResetStatic()
}
