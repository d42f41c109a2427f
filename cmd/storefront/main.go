// Storefront - backend-for-frontend for a Shopify store.
// Serves catalog, cart and customer APIs with per-visitor state.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront/internal/catalog"
	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/middleware"
	"storefront/internal/shopify"
	"storefront/internal/storage"
	"storefront/internal/storefront"
	"storefront/internal/transport"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Initialize structured logger
	logger := initLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger.Info("configuration loaded",
		slog.String("environment", cfg.Environment),
		slog.String("store_domain", cfg.Shopify.StoreDomain),
		slog.String("api_version", cfg.Shopify.APIVersion),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("cart_ordering", cfg.CartOrdering.String()),
	)

	client, err := shopify.NewClient(shopify.Config{
		StoreDomain: cfg.Shopify.StoreDomain,
		AccessToken: cfg.Shopify.StorefrontToken,
		APIVersion:  cfg.Shopify.APIVersion,
		HTTPClient:  transport.NewHTTPClient(transport.Options{ChromeTLS: cfg.Shopify.ChromeTLS}),
		Logger:      logger,
	})
	if err != nil {
		return fmt.Errorf("creating shopify client: %w", err)
	}
	sf := shopify.NewStorefront(client)

	store, err := storage.Open(ctx, cfg.Storage.Options())
	if err != nil {
		return fmt.Errorf("opening %s storage: %w", cfg.Storage.Backend, err)
	}
	defer store.Close()

	sessions := storefront.NewRegistry(storefront.Deps{
		Storefront:               sf,
		Catalog:                  catalog.NewService(sf, catalog.Config{TTL: cfg.CacheTTL, Logger: logger}),
		Store:                    store,
		Logger:                   logger,
		CartOrdering:             cfg.CartOrdering,
		ClearTokenOnFetchFailure: cfg.ClearTokenOnFetchFailure,
	}, cfg.SessionIdleTTL)
	go sessions.Run(ctx)

	h := handler.New(sessions, logger)

	// Setup routes
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)

	// Apply middleware chain: recovery → visitor → language → logging → handler
	// Recovery must be outermost to catch panics from the rest of the chain.
	// Logging runs inside Visitor so request logs carry the visitor id.
	httpHandler := middleware.Chain(
		middleware.Recovery(logger),
		middleware.Visitor(cfg.IsProduction()),
		middleware.Language,
		middleware.Logging(logger),
	)(mux)

	// Create HTTP server with timeouts
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpHandler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Channel for server errors
	serverErr := make(chan error, 1)

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			slog.String("port", cfg.Port),
			slog.String("addr", server.Addr),
		)
		serverErr <- server.ListenAndServe()
	}()

	// Wait for shutdown signal or server error
	select {
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case <-ctx.Done():
		logger.Info("shutdown signal received")

		// Give outstanding requests time to complete
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			// Force close if graceful shutdown fails
			server.Close()
			return fmt.Errorf("shutdown error: %w", err)
		}
	}

	logger.Info("server stopped", slog.Int("sessions", sessions.Len()))
	return nil
}

// initLogger creates a structured logger configured for the environment.
// Production uses JSON format for GCP Cloud Logging compatibility.
// Development uses text format for readability.
func initLogger() *slog.Logger {
	level := slog.LevelInfo
	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
		// Add source location in debug mode
		AddSource: level == slog.LevelDebug,
	}

	// JSON for production (Cloud Logging compatible), text for development
	if os.Getenv("ENVIRONMENT") == "production" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
