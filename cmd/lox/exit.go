package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"lox-lang/internal/lox"
	"lox-lang/internal/runtime"
)

// Process exit codes, following sysexits.h.
const (
	exitOK      = 0
	exitUsage   = 64 // EX_USAGE
	exitStatic  = 65 // EX_DATAERR
	exitRuntime = 70 // EX_SOFTWARE
	exitIO      = 74 // EX_IOERR
)

// usageError marks a bad command line or settings file.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

// ioError marks a failure to read or write a file.
type ioError struct{ err error }

func (e ioError) Error() string { return e.err.Error() }
func (e ioError) Unwrap() error { return e.err }

// runFunc wraps a command body so that a returned error ends the process
// with the matching exit code.
func runFunc(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) {
	return func(cmd *cobra.Command, args []string) {
		if err := run(cmd, args); err != nil {
			exit(err)
		}
	}
}

// exitCode maps an error to its exit code.
func exitCode(err error) int {
	var (
		serr  *lox.StaticError
		rerr  *runtime.RuntimeError
		ioErr ioError
	)
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &serr):
		return exitStatic
	case errors.As(err, &rerr), errors.Is(err, context.Canceled):
		return exitRuntime
	case errors.As(err, &ioErr):
		return exitIO
	default:
		return exitUsage
	}
}

// exit reports err and ends the process. Static errors were already printed
// through the diagnostic sink as they were found.
func exit(err error) {
	code := exitCode(err)
	var serr *lox.StaticError
	if !errors.As(err, &serr) {
		var rerr *runtime.RuntimeError
		if errors.As(err, &rerr) {
			fmt.Fprintln(color.Error, rerr.Error())
		} else {
			fmt.Fprintf(color.Error, "%s %v\n", color.RedString("error:"), err)
		}
	}
	glog.V(3).Infof("lox: exiting with code %d: %v", code, err)
	glog.Flush()
	os.Exit(code)
}
