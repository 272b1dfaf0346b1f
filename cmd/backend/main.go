package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"slotdrop/internal/config"
	"slotdrop/internal/db"
	"slotdrop/internal/files"
	"slotdrop/internal/logging"
	"slotdrop/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logging.New(logging.Options{
		Level: logging.ParseLevel(cfg.LogLevel),
		JSON:  cfg.JSONLogs(),
	})
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, storeErr, closeStore := openStore(ctx, cfg, log)
	defer closeStore()

	svc := files.NewService(store, cfg.Limits, log)

	build := server.BuildInfo{Version: cfg.Version, Commit: cfg.Commit}
	srv := server.New(server.Config{
		Addr:      cfg.Addr,
		Build:     build,
		Limits:    cfg.Limits,
		ReadyWait: cfg.ReadyWait,
		RateLimit: cfg.RateLimit,
	}, svc, log)

	// Start the HTTP server in a background goroutine so the store can
	// come up while requests are already being accepted.
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting", map[string]any{
			"addr":    cfg.Addr,
			"store":   cfg.Store,
			"version": build.Version,
			"commit":  build.Commit,
		})
		errCh <- srv.Start()
	}()

	// Graceful shutdown on SIGINT (Ctrl+C) or SIGTERM (container stop).
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	exitCode := 0
	select {
	case sig := <-sigCh:
		log.Info("shutting down", map[string]any{"signal": sig.String()})
	case err := <-storeErr:
		log.Error("storage unavailable", nil, err)
		exitCode = 1
	case err := <-errCh:
		log.Error("server error", nil, err)
		exitCode = 1
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", nil, err)
		exitCode = 1
	}
	log.Info("shutdown complete", nil)

	if exitCode != 0 {
		closeStore()
		_ = log.Sync()
		os.Exit(exitCode)
	}
}

// openStore builds the configured backend. For Postgres the connection is
// established in the background; a failure to connect before the timeout is
// delivered on the returned channel.
func openStore(ctx context.Context, cfg *config.Config, log *logging.Logger) (files.Store, <-chan error, func()) {
	errCh := make(chan error, 1)

	if cfg.Store == config.StoreMemory {
		log.Warn("using in-memory store; data is lost on restart", nil)
		return files.NewMemoryStore(), errCh, func() {}
	}

	conn := db.NewConn()
	go func() {
		if err := conn.Connect(ctx, cfg.DatabaseURL, cfg.ConnectTimeout, log); err != nil {
			errCh <- err
		}
	}()

	return files.NewPostgresStore(conn), errCh, func() { _ = conn.Close() }
}
