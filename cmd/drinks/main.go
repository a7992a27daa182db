package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/astro-web3/coffee-drinks/internal/config"
	httptransport "github.com/astro-web3/coffee-drinks/internal/transport/http"
	"github.com/astro-web3/coffee-drinks/pkg/logger"
	"github.com/astro-web3/coffee-drinks/pkg/otel"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.MustLoad()
	logger.InitLogger(cfg.Observability.LogLevel, cfg.Observability.Format, cfg.Observability.LogSource)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.ErrorContext(ctx, "drinks api exited", logger.Err(err))
		stop()
		os.Exit(1)
	}
}

// run serves until ctx is canceled or the listener fails, then drains
// in-flight requests and flushes telemetry.
func run(ctx context.Context, cfg *config.Config) error {
	srv, err := httptransport.NewServer(cfg)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting http server",
			slog.String("addr", cfg.Server.Addr),
			slog.String("mode", cfg.Server.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		logger.InfoContext(ctx, "shutdown signal received")
	case runErr = <-serveErr:
		logger.ErrorContext(ctx, "http server failed", logger.Err(runErr))
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WarnContext(shutdownCtx, "server forced to shut down", logger.Err(err))
	} else {
		logger.InfoContext(shutdownCtx, "server stopped")
	}

	if err := otel.Shutdown(shutdownCtx); err != nil {
		logger.WarnContext(shutdownCtx, "failed to flush telemetry", logger.Err(err))
	}

	return runErr
}
