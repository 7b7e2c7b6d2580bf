// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/campusauth/internal/auth"
	"github.com/holomush/campusauth/internal/httpapi"
	"github.com/holomush/campusauth/internal/observability"
)

// readHeaderTimeout bounds slow clients on the API listener.
const readHeaderTimeout = 10 * time.Second

// ServeDeps contains injectable hooks for the serve command.
// Nil fields use their defaults.
type ServeDeps struct {
	// ListenerFactory opens the API listener.
	// Default: net.Listen
	ListenerFactory func(network, address string) (net.Listener, error)

	// OnReady is called with the bound API address once serving starts.
	OnReady func(addr string)
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd(deps *ServeDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the authentication HTTP API together with the metrics and
health endpoints. Stops gracefully on SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), cmd, deps)
		},
	}
}

func runServe(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.ListenerFactory == nil {
		deps.ListenerFactory = net.Listen
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cmd, cfg)
	slog.SetDefault(logger)

	logger.Info("starting campusauth",
		"http_addr", cfg.HTTP.Addr,
		"storage", cfg.Database.Storage,
		"rate_limit_backend", cfg.RateLimit.Backend,
	)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	b, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	limiter, stopLimiter, err := newLimiter(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "create rate limiter").Wrap(err)
	}
	defer stopLimiter()

	var obsServer *observability.Server
	var metrics auth.MetricsRecorder
	var recorder httpapi.RequestRecorder
	if cfg.Metrics.Addr != "" {
		obsServer = observability.NewServer(cfg.Metrics.Addr, b.Ready, logger)
		metrics = obsServer.Metrics()
		recorder = obsServer.Metrics()
	}

	svc, err := newService(cfg, b, limiter, logger, metrics)
	if err != nil {
		return err
	}

	router, err := httpapi.NewRouter(svc, httpapi.Options{
		TrustedProxies: cfg.HTTP.TrustedProxies,
		Logger:         logger,
		Metrics:        recorder,
	})
	if err != nil {
		return oops.With("operation", "build router").Wrap(err)
	}

	if obsServer != nil {
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		defer func() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
			defer stopCancel()
			if stopErr := obsServer.Stop(stopCtx); stopErr != nil {
				logger.Warn("error stopping observability server", "error", stopErr)
			}
		}()
	}

	listener, err := deps.ListenerFactory("tcp", cfg.HTTP.Addr)
	if err != nil {
		return oops.Code("LISTEN_FAILED").With("addr", cfg.HTTP.Addr).Wrap(err)
	}

	server := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}
	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	addr := listener.Addr().String()
	logger.Info("http api listening", "addr", addr)
	if deps.OnReady != nil {
		deps.OnReady(addr)
	}

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err, ok := <-serveErr:
		if ok && err != nil {
			runErr = oops.Code("HTTP_SERVE_FAILED").Wrap(err)
		}
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error shutting down http server", "error", err)
	}

	logger.Info("shutdown complete")
	return runErr
}

// monitorServerErrors cancels ctx when a background server fails.
// It exits when the channel closes or ctx is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
