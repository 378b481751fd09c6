// Package main provides the server entry point for the PDF question-answering service.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bull/pdf-rag-server/internal/api"
	"github.com/bull/pdf-rag-server/internal/app"
	"github.com/bull/pdf-rag-server/internal/config"
	mcpserver "github.com/bull/pdf-rag-server/internal/mcp"
)

const (
	version         = "v0.1.0"
	shutdownTimeout = 10 * time.Second
)

func main() {
	os.Exit(run())
}

// run wires and serves the application and returns the process exit code.
func run() int {
	// Load .env file if present (local development), ignore if missing (production)
	if !config.LoadDotEnv() {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		log.Printf("invalid configuration: %v", err)
		return 1
	}

	a, err := app.New(cfg, nil)
	if err != nil {
		log.Printf("failed to start: %v", err)
		return 1
	}
	defer a.Close()
	logger := a.Logger

	mcpServer := mcpserver.NewServer(&mcpserver.Config{
		Service:     a.Service,
		Collections: a.Index,
		Version:     version,
	})

	httpServer := api.New(&api.Config{
		Service:        a.Service,
		Health:         a.Index,
		Importer:       a.Importer,
		MCP:            mcpServer.HTTPHandler(true),
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
	})
	addr := "0.0.0.0:" + cfg.Port

	if cfg.ServerMode {
		// HTTP mode: REST API plus MCP at /mcp for remote clients
		errCh := make(chan error, 1)
		go func() {
			errCh <- httpServer.Listen(addr)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				logger.Error("HTTP server error", "error", err)
				return 1
			}
		case <-ctx.Done():
			logger.Info("Shutting down")
			shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
			defer stop()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("Shutdown error", "error", err)
				return 1
			}
		}
		return 0
	}

	// Stdio mode: MCP over stdin/stdout for local clients. The REST API still
	// runs in the background so documents can be uploaded.
	go func() {
		if err := httpServer.Listen(addr); err != nil {
			logger.Warn("HTTP server error", "error", err)
		}
	}()
	defer httpServer.Shutdown(context.Background())

	logger.Info("Starting PDF RAG MCP server (stdio mode)", "version", version)
	if err := mcpServer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("MCP server error", "error", err)
		return 1
	}
	return 0
}
