package storage

// Chunk is one embedded chunk of a document, stored in that document's collection.
type Chunk struct {
	ID         string    // UUID
	DocID      string    // Owning document ID
	ChunkIndex int       // Position in document (0, 1, 2...)
	Page       *int      // 0-based page number, nil when unknown
	SourceFile string    // Original upload filename
	Content    string    // Chunk text
	Embedding  []float32 // Unit-length vector; not returned by searches
}

// ScoredChunk is a search hit with its cosine similarity to the query.
type ScoredChunk struct {
	*Chunk
	Score float64
}

// DefaultUpsertBatchSize is the number of points written per upsert request.
const DefaultUpsertBatchSize = 100

// Payload keys shared by every store implementation.
const (
	payloadDocID      = "doc_id"
	payloadChunkIndex = "chunk_index"
	payloadPage       = "page"
	payloadSourceFile = "source_file"
	payloadContent    = "content"
)
