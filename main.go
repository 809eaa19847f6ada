package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/andrewoneill45-ctrl/school-profile/internal/app"
	"github.com/andrewoneill45-ctrl/school-profile/internal/config"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if err := run(logger, os.Stdout); err != nil {
		logger.Error("merge failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, out io.Writer) error {
	settings, err := config.Load(config.SettingsPath())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := app.New(settings, logger, out)
	if err := a.Startup(ctx); err != nil {
		return err
	}
	defer a.Shutdown()

	return a.Run(ctx)
}
