package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// QdrantStorage wraps the Qdrant client with connection management and health checks.
// Every document lives in its own collection.
type QdrantStorage struct {
	client *qdrant.Client
	host   string
	port   int
}

// NewQdrantStorage creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantStorage(host string, port int, apiKey string) (*QdrantStorage, error) {
	// Create Qdrant client using gRPC
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: apiKey,
		UseTLS: apiKey != "",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	storage := &QdrantStorage{
		client: client,
		host:   host,
		port:   port,
	}

	// Perform health check with exponential backoff retry
	ctx := context.Background()
	err = storage.healthCheckWithRetry(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return storage, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStorage) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
// Returns nil if Qdrant is healthy, error otherwise.
func (s *QdrantStorage) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// CreateCollection creates an empty collection of cosine-distance vectors.
// Returns ErrCollectionExists if the name is taken.
func (s *QdrantStorage) CreateCollection(ctx context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: collection dimension %d", ErrDimensionMismatch, dimension)
	}

	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if exists {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	return nil
}

// DeleteCollection removes a collection and all its points.
// Idempotent - a missing collection is not an error.
func (s *QdrantStorage) DeleteCollection(ctx context.Context, name string) error {
	exists, err := s.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", name, err)
	}
	if !exists {
		return nil
	}

	if err := s.client.DeleteCollection(ctx, name); err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	return nil
}

// ListCollections returns the names of all collections starting with prefix, sorted.
func (s *QdrantStorage) ListCollections(ctx context.Context, prefix string) ([]string, error) {
	names, err := s.client.ListCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}

	var matched []string
	for _, name := range names {
		if strings.HasPrefix(name, prefix) {
			matched = append(matched, name)
		}
	}
	sort.Strings(matched)
	return matched, nil
}

// Close closes the Qdrant client connection.
func (s *QdrantStorage) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (s *QdrantStorage) upsertWithRetry(ctx context.Context, collection string, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	operation := func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: collection,
			Wait:           qdrant.PtrOf(true),
			Points:         points,
		})
		if isNotFound(err) {
			return backoff.Permanent(fmt.Errorf("%w: %s", ErrCollectionNotFound, collection))
		}
		return err
	}

	return backoff.Retry(operation, backoff.WithContext(exponentialBackoff, ctx))
}

// UpsertChunks stores chunks with embeddings in the named collection.
// Chunks are batched in groups of 100 for performance.
func (s *QdrantStorage) UpsertChunks(ctx context.Context, collection string, chunks []*Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	if err := validateDimensions(chunks); err != nil {
		return err
	}

	for i := 0; i < len(chunks); i += DefaultUpsertBatchSize {
		end := min(i+DefaultUpsertBatchSize, len(chunks))

		batch := chunks[i:end]
		points := make([]*qdrant.PointStruct, len(batch))

		for j, chunk := range batch {
			payload := map[string]any{
				payloadDocID:      chunk.DocID,
				payloadChunkIndex: chunk.ChunkIndex,
				payloadSourceFile: chunk.SourceFile,
				payloadContent:    chunk.Content,
			}
			// Absent page numbers are omitted rather than stored as a sentinel
			if chunk.Page != nil {
				payload[payloadPage] = *chunk.Page
			}

			points[j] = &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(chunk.ID),
				Vectors: qdrant.NewVectors(chunk.Embedding...),
				Payload: qdrant.NewValueMap(payload),
			}
		}

		if err := s.upsertWithRetry(ctx, collection, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// SearchChunks performs vector similarity search within one collection.
// Returns up to limit chunks ordered by score descending; hits scoring below
// minScore are dropped when minScore > 0.
func (s *QdrantStorage) SearchChunks(ctx context.Context, collection string, embedding []float32, limit int, minScore float64) ([]*ScoredChunk, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", ErrDimensionMismatch)
	}
	if limit <= 0 {
		return nil, nil
	}

	query := &qdrant.QueryPoints{
		CollectionName: collection,
		Query:          qdrant.NewQuery(embedding...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		WithVectors:    qdrant.NewWithVectors(false),
	}
	if minScore > 0 {
		query.ScoreThreshold = qdrant.PtrOf(float32(minScore))
	}

	results, err := s.client.Query(ctx, query)
	if err != nil {
		if isNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
		}
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	scoredChunks := make([]*ScoredChunk, 0, len(results))
	for _, result := range results {
		payload := result.Payload

		chunk := &Chunk{
			ID:         result.Id.GetUuid(),
			DocID:      payload[payloadDocID].GetStringValue(),
			ChunkIndex: int(payload[payloadChunkIndex].GetIntegerValue()),
			SourceFile: payload[payloadSourceFile].GetStringValue(),
			Content:    payload[payloadContent].GetStringValue(),
		}
		if pageVal, ok := payload[payloadPage]; ok {
			page := int(pageVal.GetIntegerValue())
			chunk.Page = &page
		}

		scoredChunks = append(scoredChunks, &ScoredChunk{
			Chunk: chunk,
			Score: float64(result.Score), // Qdrant returns float32, convert to float64
		})
	}

	return scoredChunks, nil
}

// validateDimensions checks that every embedding is non-empty and the same length.
func validateDimensions(chunks []*Chunk) error {
	want := len(chunks[0].Embedding)
	for i, chunk := range chunks {
		if len(chunk.Embedding) == 0 || len(chunk.Embedding) != want {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), want)
		}
	}
	return nil
}

// isNotFound reports whether err is a gRPC NotFound from Qdrant.
func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if status.Code(err) == codes.NotFound {
		return true
	}
	var st interface{ GRPCStatus() *status.Status }
	if errors.As(err, &st) {
		return st.GRPCStatus().Code() == codes.NotFound
	}
	return strings.Contains(err.Error(), "doesn't exist")
}
