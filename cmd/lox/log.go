package main

import (
	"flag"
	"strconv"
)

// initLogging hands the CLI's logging flags to glog. glog only reads its
// settings from the standard flag set, so the values are poked in there.
func initLogging(logToStderr bool, verbose int) {
	// Mark the standard flag set parsed; cobra owns os.Args.
	_ = flag.CommandLine.Parse(nil)
	if logToStderr {
		_ = flag.Lookup("logtostderr").Value.Set("true")
	}
	if verbose > 0 {
		_ = flag.Lookup("v").Value.Set(strconv.Itoa(verbose))
	}
}
