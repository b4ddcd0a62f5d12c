// Package recovery turns panics in main or worker goroutines into a logged fatal exit.
package recovery

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
)

// output and exit are swapped by tests.
var (
	output io.Writer = os.Stderr
	exit             = os.Exit
)

// HandlePanic should be deferred at the top of main() or goroutines.
// It reports the panic with a stack trace and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		fatal(r, nil)
	}
}

// HandlePanicFunc is HandlePanic with a cleanup hook run before exiting.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		fatal(r, cleanup)
	}
}

// Go runs fn on a new goroutine guarded by HandlePanic.
func Go(fn func()) {
	go func() {
		defer HandlePanic()
		fn()
	}()
}

func fatal(r any, cleanup func()) {
	_, _ = fmt.Fprintf(output, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
	if cleanup != nil {
		cleanup()
	}
	exit(1)
}
