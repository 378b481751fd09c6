package storage

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
)

// MemoryStorage is an in-process vector store using brute-force cosine similarity.
// Collections vanish with the process.
type MemoryStorage struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

type memoryCollection struct {
	dimension int
	chunks    []*Chunk
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{collections: make(map[string]*memoryCollection)}
}

// Health always succeeds.
func (s *MemoryStorage) Health(ctx context.Context) error {
	return ctx.Err()
}

// CreateCollection creates an empty collection. Returns ErrCollectionExists if the name is taken.
func (s *MemoryStorage) CreateCollection(_ context.Context, name string, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("%w: collection dimension %d", ErrDimensionMismatch, dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[name]; ok {
		return fmt.Errorf("%w: %s", ErrCollectionExists, name)
	}
	s.collections[name] = &memoryCollection{dimension: dimension}
	return nil
}

// DeleteCollection removes a collection. Idempotent.
func (s *MemoryStorage) DeleteCollection(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.collections, name)
	return nil
}

// ListCollections returns the names of all collections starting with prefix, sorted.
func (s *MemoryStorage) ListCollections(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var names []string
	for name := range s.collections {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// UpsertChunks appends chunks to the collection, replacing chunks with the same ID.
func (s *MemoryStorage) UpsertChunks(_ context.Context, collection string, chunks []*Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	for i, chunk := range chunks {
		if len(chunk.Embedding) != c.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(chunk.Embedding), c.dimension)
		}
	}

	for _, chunk := range chunks {
		stored := *chunk
		stored.Embedding = append([]float32(nil), chunk.Embedding...)

		replaced := false
		for i, existing := range c.chunks {
			if existing.ID == chunk.ID {
				c.chunks[i] = &stored
				replaced = true
				break
			}
		}
		if !replaced {
			c.chunks = append(c.chunks, &stored)
		}
	}
	return nil
}

// SearchChunks returns up to limit chunks ordered by cosine similarity, dropping
// hits below minScore when minScore > 0.
func (s *MemoryStorage) SearchChunks(_ context.Context, collection string, embedding []float32, limit int, minScore float64) ([]*ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, collection)
	}
	if len(embedding) != c.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(embedding), c.dimension)
	}
	if limit <= 0 {
		return nil, nil
	}

	hits := make([]*ScoredChunk, 0, len(c.chunks))
	for _, chunk := range c.chunks {
		score := cosine(chunk.Embedding, embedding)
		if minScore > 0 && score < minScore {
			continue
		}
		result := *chunk
		result.Embedding = nil
		hits = append(hits, &ScoredChunk{Chunk: &result, Score: score})
	}

	// Ties keep insertion order so results are deterministic
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// Close is a no-op.
func (s *MemoryStorage) Close() error {
	return nil
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
