// Package index manages one isolated vector collection per document.
package index

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bull/pdf-rag-server/internal/chunker"
	"github.com/bull/pdf-rag-server/internal/storage"
)

// ErrIndexNotFound is returned by Search when the document has no collection.
var ErrIndexNotFound = errors.New("index not found")

// Embedder turns texts into fixed-dimension unit vectors.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// VectorStore is the subset of collection operations the manager needs.
// Implemented by storage.QdrantStorage and storage.MemoryStorage.
type VectorStore interface {
	Health(ctx context.Context) error
	CreateCollection(ctx context.Context, name string, dimension int) error
	DeleteCollection(ctx context.Context, name string) error
	ListCollections(ctx context.Context, prefix string) ([]string, error)
	UpsertChunks(ctx context.Context, collection string, chunks []*storage.Chunk) error
	SearchChunks(ctx context.Context, collection string, embedding []float32, limit int, minScore float64) ([]*storage.ScoredChunk, error)
	Close() error
}

var (
	_ VectorStore = (*storage.QdrantStorage)(nil)
	_ VectorStore = (*storage.MemoryStorage)(nil)
)

// Hit is one search result.
type Hit struct {
	Text       string
	Page       *int
	DocID      string
	SourceFile string
	ChunkIndex int
	Score      float64
}

// Manager creates, searches and deletes per-document indexes.
type Manager struct {
	embedder Embedder
	store    VectorStore
	minScore float64
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithMinScore sets the relevance floor applied to search hits. Zero disables it.
func WithMinScore(score float64) Option {
	return func(m *Manager) {
		if score > 0 {
			m.minScore = score
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a Manager over the given embedder and store.
func NewManager(embedder Embedder, store VectorStore, opts ...Option) *Manager {
	m := &Manager{
		embedder: embedder,
		store:    store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Store returns the underlying vector store.
func (m *Manager) Store() VectorStore {
	return m.store
}

// CreateIndex embeds every chunk and stores them in a fresh collection for docID.
// Any existing collection for docID is replaced. Embedding runs before any
// store write, so an embedding failure leaves the store untouched; a failure
// after the collection exists removes it again.
func (m *Manager) CreateIndex(ctx context.Context, docID string, chunks []chunker.Chunk) error {
	name := CollectionName(docID)

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	var embeddings [][]float32
	if len(texts) > 0 {
		var err error
		embeddings, err = m.embedder.GenerateEmbeddings(ctx, texts)
		if err != nil {
			return fmt.Errorf("embeddings: %w", err)
		}
		if len(embeddings) != len(texts) {
			return fmt.Errorf("embeddings: got %d vectors for %d chunks", len(embeddings), len(texts))
		}
	}

	if err := m.store.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("drop stale collection: %w", err)
	}
	if err := m.store.CreateCollection(ctx, name, m.embedder.Dimension()); err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	records := make([]*storage.Chunk, len(chunks))
	for i, c := range chunks {
		records[i] = &storage.Chunk{
			ID:         uuid.New().String(),
			DocID:      docID,
			ChunkIndex: c.Index,
			Page:       c.Page,
			SourceFile: c.SourceFile,
			Content:    c.Text,
			Embedding:  embeddings[i],
		}
	}

	if err := m.store.UpsertChunks(ctx, name, records); err != nil {
		m.dropQuietly(name)
		return fmt.Errorf("store chunks: %w", err)
	}

	m.logger.Info("Created index", "doc_id", docID, "collection", name, "chunks", len(records))
	return nil
}

// Search returns up to k chunks of docID's collection most similar to query,
// ordered by decreasing score. An empty collection yields no hits and no error.
func (m *Manager) Search(ctx context.Context, docID, query string, k int) ([]Hit, error) {
	if k <= 0 {
		return nil, nil
	}

	vectors, err := m.embedder.GenerateEmbeddings(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embed query: got %d vectors", len(vectors))
	}

	name := CollectionName(docID)
	results, err := m.store.SearchChunks(ctx, name, vectors[0], k, m.minScore)
	if err != nil {
		if errors.Is(err, storage.ErrCollectionNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrIndexNotFound, docID)
		}
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Text:       r.Content,
			Page:       r.Page,
			DocID:      r.DocID,
			SourceFile: r.SourceFile,
			ChunkIndex: r.ChunkIndex,
			Score:      r.Score,
		})
	}
	return hits, nil
}

// DeleteIndex removes docID's collection. A missing collection is not an error.
func (m *Manager) DeleteIndex(ctx context.Context, docID string) error {
	name := CollectionName(docID)
	if err := m.store.DeleteCollection(ctx, name); err != nil {
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	m.logger.Debug("Deleted index", "doc_id", docID, "collection", name)
	return nil
}

// Collections lists every collection owned by this service, including ones
// left behind by earlier processes.
func (m *Manager) Collections(ctx context.Context) ([]string, error) {
	return m.store.ListCollections(ctx, CollectionPrefix)
}

// DropCollection removes a collection by name.
func (m *Manager) DropCollection(ctx context.Context, name string) error {
	return m.store.DeleteCollection(ctx, name)
}

// Health reports whether the underlying store is reachable.
func (m *Manager) Health(ctx context.Context) error {
	return m.store.Health(ctx)
}

func (m *Manager) dropQuietly(name string) {
	// The caller's context may already be canceled
	if err := m.store.DeleteCollection(context.Background(), name); err != nil {
		m.logger.Warn("Failed to remove partial collection", "collection", name, "error", err)
	}
}
