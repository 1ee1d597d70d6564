package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"

	"github.com/vango-dev/bore/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(exitCode(err, os.Stderr))
	}
}

// exitError ends the process with code without printing anything, the
// way grep and diff report "no match" and "differs".
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// exitCode reports err on w and returns the process exit code.
func exitCode(err error, w io.Writer) int {
	var ee *exitError
	if stderrors.As(err, &ee) {
		return ee.code
	}
	errors.Fprint(w, err)
	return 2
}
