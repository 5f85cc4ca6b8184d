package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thep200/github-top100/cfg"
	"github.com/thep200/github-top100/internal/app"
	"github.com/thep200/github-top100/internal/server"
	"github.com/thep200/github-top100/pkg/log"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "cfg/yaml", "Directory holding mode.yaml")
	noSchedule := flag.Bool("no-schedule", false, "Serve the API without periodic passes")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	loader, _ := cfg.NewViperLoader(cfg.WithConfigPath(*configPath), cfg.WithWatch(true))
	config, err := loader.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := log.NewLogger(config)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	if zl, ok := logger.(*log.ZapLogger); ok {
		defer zl.Sync()
		loader.RegisterConfigChangeCallback(func(c *cfg.Config) {
			if err := zl.SetLevel(c.Log.Level); err != nil {
				logger.Warn(ctx, "Ignoring log level %q: %v", c.Log.Level, err)
			}
		})
	}

	a, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Critical(ctx, "Failed to start: %v", err)
		os.Exit(1)
	}
	defer a.Close()

	srv, err := server.NewServer(logger, config, a.Handler(ctx))
	if err != nil {
		logger.Critical(ctx, "Failed to create server: %v", err)
		os.Exit(1)
	}

	// Run server in a goroutine
	go func() {
		if err := srv.Start(); err != nil {
			logger.Critical(ctx, "Server failed: %v", err)
			cancel()
		}
	}()

	// Periodic passes
	schedulerDone := make(chan struct{})
	go func() {
		defer close(schedulerDone)
		if *noSchedule {
			return
		}
		interval := time.Duration(config.Sync.IntervalSeconds) * time.Second
		if err := a.Runner.Run(ctx, interval); err != nil {
			logger.Error(ctx, "Scheduler stopped: %v", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info(ctx, "Received shutdown signal, gracefully shutting down...")
	case <-ctx.Done():
	}
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "Error during server shutdown: %v", err)
	}

	select {
	case <-schedulerDone:
	case <-shutdownCtx.Done():
		logger.Warn(shutdownCtx, "Pass still running at shutdown")
	}

	logger.Info(shutdownCtx, "Server shut down gracefully")
}
