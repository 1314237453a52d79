// Command lox is the interpreter for the Lox language.
//
// Usage:
//
//	lox [script]                 Run a script, or start the REPL without one
//	lox run     <file>           Run a source file
//	lox repl                     Start interactive REPL
//	lox tokens  <file> [--json]  Print tokens
//	lox parse   <file>           Print AST as JSON
//	lox resolve <file>           Print the scope-distance table as JSON
package main

import (
	"os"

	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"lox-lang/internal/config"
)

// app carries the settings shared by every sub-command.
type app struct {
	configPath string
	cfg        config.Config
}

// newLoxCmd creates the root command.
func newLoxCmd() *cobra.Command {
	var logToStderr bool
	var verbose int
	a := &app{}

	cmd := &cobra.Command{
		Use:   "lox [script]",
		Short: "Lox is a small dynamically typed scripting language",
		Long: "Lox is a small dynamically typed scripting language.\n" +
			"\n" +
			"With a script argument the script is run. Without arguments an\n" +
			"interactive session is started.",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			initLogging(logToStderr, verbose)
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return usageError{err}
			}
			a.cfg = cfg
			color.NoColor = !a.useColor()
			glog.V(3).Infof("lox: config %+v", cfg)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			glog.Flush()
		},
		Run: runFunc(func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.repl()
			}
			return a.runFile(args[0])
		}),
	}

	cmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"Settings file (default "+config.DefaultFile+" in the working directory, if present)")
	cmd.PersistentFlags().BoolVar(&logToStderr, "logtostderr", false, "Log to stderr instead of to files")
	cmd.PersistentFlags().IntVarP(
		&verbose, "verbose", "v", 0, "Enable verbose logging (e.g., v=3); anything >3 is very verbose")

	cmd.AddCommand(newRunCmd(a))
	cmd.AddCommand(newReplCmd(a))
	cmd.AddCommand(newTokensCmd())
	cmd.AddCommand(newParseCmd())
	cmd.AddCommand(newResolveCmd())

	return cmd
}

func main() {
	if err := newLoxCmd().Execute(); err != nil {
		exit(usageError{err})
	}
	os.Exit(exitOK)
}
