package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"

	"github.com/sagarc03/boxgate"
	"github.com/sagarc03/boxgate/config"
	boxhttp "github.com/sagarc03/boxgate/http"
	"github.com/sagarc03/boxgate/keybackend"
	"github.com/sagarc03/boxgate/ratelimit"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long: `Start the boxgate HTTP server.

The server stops accepting new connections on SIGINT or SIGTERM and waits up
to server.shutdown_timeout for in-flight requests to finish.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default: :8080, env: BOXGATE_SERVER_ADDR)")
	serveCmd.Flags().Bool("auto-migrate", true, "create missing tables on startup (env: BOXGATE_DATABASE_AUTO_MIGRATE)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	db, err := openDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	store, closeStore, err := openObjectStore(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open object store: %w", err)
	}
	defer closeStore()

	service, err := boxgate.NewGatewayService(store, db.Redirects(), cfg.List.Service())
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	auth, err := keybackend.NewAuthenticator(cfg.Auth)
	if err != nil {
		return fmt.Errorf("load token: %w", err)
	}
	if !auth.Configured() {
		slog.Warn("no access token configured; every request will be rejected with 401")
	}

	counters := counterStore(cfg.RateLimit, db)
	limiter, err := ratelimit.New(counters, cfg.RateLimit.Limiter())
	if err != nil {
		return fmt.Errorf("create rate limiter: %w", err)
	}

	var metrics *boxhttp.Metrics
	if cfg.Metrics.Enabled {
		metrics = boxhttp.NewMetrics()
	}

	handler := boxhttp.NewHandler(&boxhttp.HandlerConfig{
		Auth:              auth,
		Limiter:           limiter,
		TrustProxyHeaders: cfg.Server.TrustProxyHeaders,
		MaxUploadSize:     cfg.Server.MaxUploadSize,
		BackendTimeout:    cfg.Server.BackendTimeout,
		CORS:              cfg.CORS,
		Metrics:           metrics,
	}, service)

	// No write timeout: streams of large media files may legitimately run
	// for a long time.
	servers := []*http.Server{{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
	if metrics != nil {
		r := chi.NewRouter()
		r.Handle(cfg.Metrics.Path, metrics.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.Metrics.Addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ratelimit.RunSweeper(ctx, counters, cfg.RateLimit.SweepInterval)
	}()

	errCh := make(chan error, len(servers))
	for _, srv := range servers {
		go func() {
			slog.Info("starting server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("server %s: %w", srv.Addr, err)
			}
		}()
	}

	var serveErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down server...")
	case serveErr = <-errCh:
		slog.Error("server failed, shutting down", "err", serveErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	for _, srv := range servers {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "addr", srv.Addr, "err", err)
		}
	}

	cancel()
	wg.Wait()

	return serveErr
}
