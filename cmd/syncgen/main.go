package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/zsiec/syncgen/internal/cli"
)

var version = "dev"

func main() {
	level := new(slog.LevelVar)
	if os.Getenv("DEBUG") != "" {
		level.Set(slog.LevelDebug)
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	cmd := cli.NewRootCommand(level)
	cmd.Version = version
	if err := cmd.ExecuteContext(ctx); err != nil {
		slog.Error("syncgen failed", "error", err)
		cancel()
		os.Exit(cli.GetExitCode(err))
	}
}
