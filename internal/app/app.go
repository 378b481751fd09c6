// Package app builds the service graph once from configuration.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/bull/pdf-rag-server/internal/chunker"
	"github.com/bull/pdf-rag-server/internal/config"
	"github.com/bull/pdf-rag-server/internal/embedding"
	"github.com/bull/pdf-rag-server/internal/generator"
	ghclient "github.com/bull/pdf-rag-server/internal/github"
	"github.com/bull/pdf-rag-server/internal/index"
	"github.com/bull/pdf-rag-server/internal/indexer"
	"github.com/bull/pdf-rag-server/internal/pdf"
	"github.com/bull/pdf-rag-server/internal/rag"
	"github.com/bull/pdf-rag-server/internal/storage"
)

// App holds the long-lived components shared by every request handler.
type App struct {
	Config   *config.Config
	Logger   *slog.Logger
	Service  *rag.Service
	Index    *index.Manager
	Importer *indexer.Pipeline

	store index.VectorStore
}

// NewLogger returns a text logger on stderr at the given level.
// Stdout stays free for the MCP stdio transport.
func NewLogger(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// New connects to the vector store and wires the pipeline.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = NewLogger(cfg.LogLevel)
	}

	store, err := NewStore(cfg)
	if err != nil {
		return nil, err
	}

	a, err := newWithStore(cfg, logger, store)
	if err != nil {
		store.Close()
		return nil, err
	}
	return a, nil
}

// NewStore opens the configured vector store.
func NewStore(cfg *config.Config) (index.VectorStore, error) {
	switch cfg.VectorStore {
	case config.StoreMemory:
		return storage.NewMemoryStorage(), nil
	case config.StoreQdrant:
		store, err := storage.NewQdrantStorage(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantAPIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown vector store %q", cfg.VectorStore)
}

func newWithStore(cfg *config.Config, logger *slog.Logger, store index.VectorStore) (*App, error) {
	embedder, err := NewEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Embedding provider ready",
		"openai", cfg.UseOpenAIEmbeddings(), "dimension", embedder.Dimension())

	manager := index.NewManager(embedder, store,
		index.WithMinScore(cfg.MinScore),
		index.WithLogger(logger),
	)

	extractor := pdf.New(cfg.PDFTool)
	if err := extractor.CheckAvailable(); err != nil {
		logger.Warn("PDF uploads will fail until pdftotext is installed", "error", err)
		logger.Warn(pdf.InstallInstructions())
	}

	var gen rag.AnswerGenerator
	if cfg.LLMConfigured() {
		client, err := embedding.NewClient(cfg.LLMAPIKey, cfg.LLMBaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		gen = generator.New(client.Client(), generator.Options{
			Model:   cfg.LLMModel,
			Timeout: cfg.LLMTimeout,
			Logger:  logger,
		})
		logger.Info("Answer generation enabled", "model", cfg.LLMModel, "timeout", cfg.LLMTimeout)
	} else {
		logger.Warn("No LLM API key set, answers will contain retrieved context only")
	}

	splitter := chunker.New(
		chunker.WithChunkSize(cfg.ChunkSize),
		chunker.WithOverlap(cfg.ChunkOverlap),
	)

	service, err := rag.NewService(extractor, splitter, manager, gen, rag.Options{
		UploadDir: cfg.UploadDir,
		TopK:      cfg.TopK,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}

	gh, err := ghclient.NewClient(ghclient.ClientOptions{Token: cfg.GitHubToken, BaseURL: cfg.GitHubBaseURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}

	fetcher := ghclient.NewFetcher(gh, cfg.MaxUploadBytes())

	return &App{
		Config:   cfg,
		Logger:   logger,
		Service:  service,
		Index:    manager,
		Importer: indexer.NewPipeline(fetcher, service, cfg.MaxUploadBytes(), logger),
		store:    store,
	}, nil
}

// NewEmbedder returns the OpenAI embedder when configured, otherwise the
// local hashing embedder.
func NewEmbedder(cfg *config.Config) (index.Embedder, error) {
	if !cfg.UseOpenAIEmbeddings() {
		return embedding.NewHashEmbedder(embedding.DefaultHashDimension), nil
	}

	client, err := embedding.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)
	if err != nil {
		if errors.Is(err, embedding.ErrMissingAPIKey) {
			return nil, fmt.Errorf("OPENAI_API_KEY is required for OpenAI embeddings: %w", err)
		}
		return nil, err
	}
	return embedding.NewEmbedder(client, embedding.Options{
		Model:     cfg.EmbeddingModel,
		Dimension: cfg.EmbeddingDimension,
		BatchSize: cfg.EmbeddingBatchSize,
	}), nil
}

// Close releases the vector store connection.
func (a *App) Close() error {
	return a.store.Close()
}
