// Package rag implements document ingestion and retrieval-augmented question answering.
package rag

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bull/pdf-rag-server/internal/chunker"
	"github.com/bull/pdf-rag-server/internal/generator"
	"github.com/bull/pdf-rag-server/internal/index"
	"github.com/bull/pdf-rag-server/internal/registry"
)

const (
	DefaultTopK                = 8
	DefaultSnippetLength       = 200
	DefaultFallbackContextSize = 2000
	DefaultErrorContextSize    = 1000
)

// Mode describes how an answer was produced.
type Mode string

const (
	ModeGenerated            Mode = "generated"
	ModeNoResults            Mode = "no_results"
	ModeFallbackUnconfigured Mode = "fallback_unconfigured"
	ModeFallbackError        Mode = "fallback_error"
)

// Fallback reports whether the answer is raw context rather than a generated reply.
func (m Mode) Fallback() bool {
	return m == ModeFallbackUnconfigured || m == ModeFallbackError
}

// Citation pairs a source snippet with the page it came from.
type Citation struct {
	Page    string  `json:"page"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// Answer is the result of Ask. Sources and Citations follow retrieval rank.
type Answer struct {
	Text      string
	Sources   []string
	Citations []Citation
	Mode      Mode
}

// Extractor reads page-structured text from a stored PDF.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]chunker.Page, error)
}

// Indexer manages per-document vector indexes.
type Indexer interface {
	CreateIndex(ctx context.Context, docID string, chunks []chunker.Chunk) error
	Search(ctx context.Context, docID, query string, k int) ([]index.Hit, error)
	DeleteIndex(ctx context.Context, docID string) error
}

// AnswerGenerator produces an answer from system instructions and a question.
type AnswerGenerator interface {
	Generate(ctx context.Context, instructions, question string) (string, error)
}

// Options configures a Service. Zero values select the defaults.
type Options struct {
	UploadDir           string
	TopK                int
	SnippetLength       int
	FallbackContextSize int
	ErrorContextSize    int
	Registry            *registry.Registry
	Logger              *slog.Logger
}

// Service ingests PDFs and answers questions about them.
type Service struct {
	extractor Extractor
	chunker   *chunker.Chunker
	indexer   Indexer
	generator AnswerGenerator
	registry  *registry.Registry
	locks     *docLocks
	logger    *slog.Logger

	uploadDir           string
	topK                int
	snippetLength       int
	fallbackContextSize int
	errorContextSize    int

	now   func() time.Time
	newID func() string
}

// NewService creates a Service. gen may be nil, in which case Ask returns
// fallback answers built from the retrieved context.
func NewService(extractor Extractor, splitter *chunker.Chunker, indexer Indexer, gen AnswerGenerator, opts Options) (*Service, error) {
	if opts.UploadDir == "" {
		opts.UploadDir = filepath.Join(os.TempDir(), "pdf-rag-uploads")
	}
	if err := os.MkdirAll(opts.UploadDir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	if splitter == nil {
		splitter = chunker.New()
	}

	s := &Service{
		extractor:           extractor,
		chunker:             splitter,
		indexer:             indexer,
		generator:           gen,
		registry:            opts.Registry,
		locks:               newDocLocks(),
		logger:              opts.Logger,
		uploadDir:           opts.UploadDir,
		topK:                orDefault(opts.TopK, DefaultTopK),
		snippetLength:       orDefault(opts.SnippetLength, DefaultSnippetLength),
		fallbackContextSize: orDefault(opts.FallbackContextSize, DefaultFallbackContextSize),
		errorContextSize:    orDefault(opts.ErrorContextSize, DefaultErrorContextSize),
		now:                 time.Now,
		newID:               func() string { return uuid.New().String() },
	}
	if s.registry == nil {
		s.registry = registry.New()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// Ingest stores the PDF read from r, extracts and chunks its text, builds
// its index and registers it. On failure nothing is registered and the stored
// file is removed.
func (s *Service) Ingest(ctx context.Context, r io.Reader, filename string) (*registry.Document, error) {
	filename = cleanFilename(filename)
	docID := s.newID()

	unlock := s.locks.Lock(docID)
	defer unlock()

	path := filepath.Join(s.uploadDir, docID+".pdf")
	if err := saveFile(path, r); err != nil {
		s.removeFile(path)
		return nil, &IngestionError{Stage: StageStore, Err: err}
	}

	pages, err := s.extractor.Extract(ctx, path)
	if err != nil {
		s.removeFile(path)
		return nil, &IngestionError{Stage: StageExtract, Err: err}
	}

	chunks := s.chunker.SplitPages(pages)
	for i := range chunks {
		chunks[i].DocID = docID
		chunks[i].SourceFile = filename
	}
	s.logger.Debug("Chunked document", "doc_id", docID, "pages", len(pages), "chunks", len(chunks))

	if err := s.indexer.CreateIndex(ctx, docID, chunks); err != nil {
		s.removeFile(path)
		return nil, &IngestionError{Stage: StageIndex, Err: err}
	}

	doc := registry.Document{
		ID:          docID,
		Filename:    filename,
		UploadTime:  s.now().UTC(),
		PageCount:   len(pages),
		ChunkCount:  len(chunks),
		StoragePath: path,
	}
	s.registry.Put(doc)

	s.logger.Info("Ingested document",
		"doc_id", docID,
		"filename", filename,
		"pages", doc.PageCount,
		"chunks", doc.ChunkCount,
	)
	return &doc, nil
}

// Ask answers question from the document's most relevant chunks. Generator
// problems never fail the call; they are reported through Answer.Mode.
func (s *Service) Ask(ctx context.Context, docID, question string) (*Answer, error) {
	if err := ValidateQuestion(question); err != nil {
		return nil, err
	}
	question = strings.TrimSpace(question)

	unlock := s.locks.RLock(docID)
	defer unlock()

	if _, ok := s.registry.Get(docID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
	}

	hits, err := s.indexer.Search(ctx, docID, question, s.topK)
	if err != nil {
		return nil, fmt.Errorf("retrieve chunks: %w", err)
	}
	if len(hits) == 0 {
		return &Answer{
			Text:      NoResultsAnswer,
			Sources:   []string{},
			Citations: []Citation{},
			Mode:      ModeNoResults,
		}, nil
	}

	answer := &Answer{
		Sources:   make([]string, len(hits)),
		Citations: make([]Citation, len(hits)),
	}
	for i, h := range hits {
		snip := snippet(h.Text, s.snippetLength)
		answer.Sources[i] = snip
		answer.Citations[i] = Citation{Page: chunker.PageLabel(h.Page), Snippet: snip, Score: h.Score}
	}

	docContext := BuildContext(hits)
	answer.Text, answer.Mode = s.generate(ctx, docID, docContext, question)

	s.logger.Info("Answered question",
		"doc_id", docID,
		"hits", len(hits),
		"mode", answer.Mode,
	)
	return answer, nil
}

func (s *Service) generate(ctx context.Context, docID, docContext, question string) (string, Mode) {
	if s.generator == nil {
		return unconfiguredAnswer(docContext, s.fallbackContextSize), ModeFallbackUnconfigured
	}

	text, err := s.generator.Generate(ctx, BuildInstructions(docContext), question)
	switch {
	case errors.Is(err, generator.ErrUnavailable):
		return unconfiguredAnswer(docContext, s.fallbackContextSize), ModeFallbackUnconfigured
	case err != nil:
		s.logger.Warn("Answer generation failed, returning context", "doc_id", docID, "error", err)
		return errorAnswer(err, docContext, s.errorContextSize), ModeFallbackError
	}
	return text, ModeGenerated
}

// Delete removes the document's file, index and registry entry. It returns
// false if the document is unknown. Removals already done are not rolled back
// when a later step fails.
func (s *Service) Delete(ctx context.Context, docID string) (bool, error) {
	unlock := s.locks.Lock(docID)
	defer unlock()

	doc, ok := s.registry.Get(docID)
	if !ok {
		return false, nil
	}

	s.removeFile(doc.StoragePath)

	if err := s.indexer.DeleteIndex(ctx, docID); err != nil {
		return false, fmt.Errorf("delete index: %w", err)
	}

	s.registry.Remove(docID)
	s.logger.Info("Deleted document", "doc_id", docID, "filename", doc.Filename)
	return true, nil
}

// Get returns the registered document or ErrNotFound.
func (s *Service) Get(docID string) (*registry.Document, error) {
	doc, ok := s.registry.Get(docID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, docID)
	}
	return &doc, nil
}

// List returns all registered documents in upload order.
func (s *Service) List() []registry.Document {
	return s.registry.List()
}

func saveFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}
	return nil
}

// removeFile deletes path, logging rather than returning failures.
func (s *Service) removeFile(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		s.logger.Warn("Failed to remove stored file", "path", path, "error", err)
	}
}
