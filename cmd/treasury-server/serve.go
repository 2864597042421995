package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/subcommands"

	"github.com/bobmcallan/treasury/internal/app"
	"github.com/bobmcallan/treasury/internal/common"
	"github.com/bobmcallan/treasury/internal/server"
)

type serveCmd struct {
	shutdownTimeout time.Duration
}

func (*serveCmd) Name() string     { return "serve" }
func (*serveCmd) Synopsis() string { return "run the REST API, dashboard and refresh scheduler" }
func (*serveCmd) Usage() string {
	return `treasury-server serve [-shutdown-timeout <duration>]

  Seeds the company table when empty, starts the refresh scheduler and
  serves the REST API until interrupted.
`
}

func (c *serveCmd) SetFlags(f *flag.FlagSet) {
	f.DurationVar(&c.shutdownTimeout, "shutdown-timeout", 10*time.Second, "how long to wait for in-flight requests and refreshes on shutdown")
}

func (c *serveCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.NewApp(ctx, *configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		return subcommands.ExitFailure
	}

	common.PrintBanner(a.Config, a.Logger)

	if err := a.Seed(ctx); err != nil {
		a.Logger.Warn().Err(err).Msg("Seeding failed, continuing with existing data")
	}
	a.StartScheduler()

	srv := server.NewServer(a)
	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	status := subcommands.ExitSuccess
	select {
	case <-ctx.Done():
		a.Logger.Info().Msg("Shutdown signal received")
	case err := <-errCh:
		a.Logger.Error().Err(err).Msg("HTTP server failed")
		status = subcommands.ExitFailure
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	common.PrintShutdownBanner(a.Logger)
	a.Close(shutdownCtx)
	a.Logger.Info().Msg("Server stopped")
	return status
}
