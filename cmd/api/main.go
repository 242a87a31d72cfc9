// Package main implements the scraper HTTP API server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/WessleyAI/subreddit-scraper/engine/reddit"
	"github.com/WessleyAI/subreddit-scraper/engine/scraper"
	"github.com/WessleyAI/subreddit-scraper/pkg/config"
	"github.com/WessleyAI/subreddit-scraper/pkg/mid"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: config.ParseLevel(os.Getenv("LOG_LEVEL"))}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := reddit.New(ctx, reddit.ConfigFrom(cfg), reddit.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("reddit client: %w", err)
	}
	opts, err := scraper.OptionsFrom(cfg, logger)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      newHandler(scraper.New(client, opts), cfg.CORSOrigin, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// --- Graceful shutdown ---
	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server starting", "port", cfg.Port,
			"count_semantics", opts.CountSemantics, "on_error", opts.OnError, "expand_limit", opts.ExpandLimit)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutCtx)
}

// newHandler wires routes and middleware.
func newHandler(s Scraper, corsOrigin string, logger *slog.Logger) http.Handler {
	return mid.Chain(newServer(s, logger).routes(),
		mid.RequestID(),
		mid.Recover(logger),
		mid.Logger(logger),
		mid.CORS(corsOrigin, exposedHeaders...),
		mid.OTel("scraper-api"),
	)
}
