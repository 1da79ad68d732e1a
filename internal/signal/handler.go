package signal

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SetupSignalHandler creates a context that cancels on SIGINT/SIGTERM.
// This enables graceful shutdown when the user presses Ctrl+C: in-flight
// actions are interrupted through the context, and the scheduler drains.
func SetupSignalHandler(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		cancel()
	}()

	return ctx
}
