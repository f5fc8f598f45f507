// Package main implements tickerwatch, a command line client that submits
// stock analyses to an analysis server and follows their progress over the
// server's live task stream.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/phrazzld/tickerwatch/internal/client"
)

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitConflict = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	stop()
	os.Exit(exitCode(err))
}

// exitCode maps a command error to the process exit status. A submission
// refused because the same analysis is already running gets its own code so
// scripts can tell it apart from real failures.
func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	var dup *client.DuplicateTaskError
	if errors.As(err, &dup) {
		return exitConflict
	}
	return exitError
}
