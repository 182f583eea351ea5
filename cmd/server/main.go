package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"syncbox/internal/server/api"
	"syncbox/internal/server/config"
	"syncbox/internal/server/service"
	"syncbox/internal/server/storage"
	"syncbox/internal/server/store"
)

func main() {
	// Load config first so the debug flag can raise verbosity.
	cfg := config.Load()

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	// Structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	slog.Info("configuration loaded",
		"host", cfg.Host,
		"port", cfg.Port,
		"data_file", cfg.DataFile,
		"upload_dir", cfg.UploadDir,
		"max_upload_size", cfg.MaxUploadSize,
	)

	// Open the sync store
	st, err := store.New(cfg.DataFile)
	if err != nil {
		slog.Error("failed to open data file", "error", err)
		os.Exit(1)
	}

	// Initialize blob storage
	blobs := storage.NewFileSystemStore(cfg.UploadDir)
	if err := blobs.EnsureDir(); err != nil {
		slog.Error("failed to initialize upload directory", "error", err)
		os.Exit(1)
	}
	slog.Info("upload storage initialized", "path", cfg.UploadDir)

	// Initialize service
	svc := service.NewSyncService(st, blobs, cfg)

	// Start orphan scanner
	scanCtx, scanCancel := context.WithCancel(context.Background())
	scanner := storage.NewOrphanScanner(st, blobs, cfg.OrphanScanInterval)
	scanner.Start(scanCtx)

	// Setup HTTP router; the upload limiter runs a cleanup loop we stop on shutdown
	handler := api.NewHandler(svc)
	uploadLimiter := api.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	e := api.SetupRouter(handler, uploadLimiter, cfg)

	// Start server in a goroutine
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Host, cfg.Port)
		slog.Info("starting server", "addr", addr, "base_url", cfg.BaseURL)
		if err := e.Start(addr); err != nil {
			slog.Info("server stopped", "reason", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutting down", "signal", sig)

	// Stop accepting new requests, finish in-flight with 30s timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	// Stop background loops
	scanCancel()
	scanner.Wait()
	uploadLimiter.Stop()

	slog.Info("server exited cleanly")
}
