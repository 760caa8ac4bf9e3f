package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// signalContext returns a context canceled on SIGINT/SIGTERM, matching
// cmd/hector/serve.go's own signal.Notify(sigCh, syscall.SIGINT,
// syscall.SIGTERM) shutdown handling, adapted to context cancellation
// instead of an explicit channel select.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
