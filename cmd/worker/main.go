package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mist3s/leaf-flow-notifications-worker/cmd/worker/cmd"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info(ctx, "received shutdown signal", logger.Fields{"signal": sig.String()})
		cancel()
	}()

	code := cmd.Execute(ctx)
	logger.Sync()
	os.Exit(code)
}
