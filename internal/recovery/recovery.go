// internal/recovery/recovery.go
// Package recovery turns panics into an orderly exit: the key tone is
// silenced and the terminal restored before the process goes away.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
)

// ErrPanic marks an error recovered from a panic
var ErrPanic = errors.New("panic")

// exit is replaced in tests.
var exit = os.Exit

// HandlePanic should be deferred at the top of main().
// It reports the panic and exits with code 1.
func HandlePanic() {
	if r := recover(); r != nil {
		report(r)
		exit(1)
	}
}

// HandlePanicFunc reports a panic, runs cleanup (typically silencing the
// sidetone) and exits with code 1.
func HandlePanicFunc(cleanup func()) {
	if r := recover(); r != nil {
		report(r)
		if cleanup != nil {
			cleanup()
		}
		exit(1)
	}
}

// Capture stores a panic in the calling goroutine as an error in *errp
// instead of exiting. Deferred in the control goroutine while the terminal
// UI owns the screen, so the UI can shut down and print the error itself.
//
//	go func() {
//		var err error
//		defer func() { bridge.Done(err) }()
//		defer recovery.Capture(&err)
//		err = k.Start(ctx)
//	}()
func Capture(errp *error) {
	if r := recover(); r != nil {
		slog.Error("recovered panic", "panic", r, "stack", string(debug.Stack()))
		*errp = fmt.Errorf("%w: %v", ErrPanic, r)
	}
}

func report(r any) {
	slog.Error("panic", "panic", r)
	_, _ = fmt.Fprintf(os.Stderr, "FATAL: %v\n\nStack trace:\n%s\n", r, debug.Stack())
}
