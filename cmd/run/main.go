package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/internal/app"
	"github.com/thep200/github-top100/pkg/log"
)

// Runs a single sync pass and exits.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	loader, _ := cfg.NewViperLoader()
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := log.NewLogger(config)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	a, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Critical(ctx, "Failed to start: %v", err)
		os.Exit(1)
	}
	defer a.Close()

	logger.Info(ctx, "Starting GitHub top repositories sync")
	result, err := a.Runner.RunOnce(ctx)
	if err != nil {
		logger.Error(ctx, "Failed! %v", err)
		os.Exit(1)
	}
	logger.Info(ctx, "Successfully! pass %s moved cursor %d -> %d", result.PassID, result.CursorBefore, result.CursorAfter)
}
