package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/pdf-rag-server/internal/chunker"
	"github.com/bull/pdf-rag-server/internal/embedding"
	"github.com/bull/pdf-rag-server/internal/generator"
	"github.com/bull/pdf-rag-server/internal/index"
	"github.com/bull/pdf-rag-server/internal/storage"
)

// fakeExtractor returns pages keyed by the uploaded file's content.
type fakeExtractor struct {
	pages map[string][]chunker.Page
	err   error
}

func (f *fakeExtractor) Extract(_ context.Context, path string) ([]chunker.Page, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	pages, ok := f.pages[string(data)]
	if !ok {
		return nil, errors.New("not a PDF")
	}
	return pages, nil
}

type fakeGenerator struct {
	mu           sync.Mutex
	answer       string
	err          error
	calls        int
	instructions string
	question     string
}

func (f *fakeGenerator) Generate(_ context.Context, instructions, question string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.instructions = instructions
	f.question = question
	return f.answer, f.err
}

type brokenEmbedder struct{}

func (brokenEmbedder) GenerateEmbeddings(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("embedding service down")
}

func (brokenEmbedder) Dimension() int { return 8 }

func pages(texts ...string) []chunker.Page {
	out := make([]chunker.Page, len(texts))
	for i, text := range texts {
		out[i] = chunker.Page{Number: chunker.PageNumber(i), Text: text}
	}
	return out
}

var geography = pages(
	"Introduction. This atlas covers rivers, mountains and coastlines of Europe.",
	"The capital of France is Paris.",
	"Appendix. Rainfall tables and elevation charts for the Alps.",
)

type fixture struct {
	svc       *Service
	store     *storage.MemoryStorage
	extractor *fakeExtractor
	uploadDir string
}

func newFixture(t *testing.T, gen AnswerGenerator) *fixture {
	t.Helper()
	return newFixtureWithEmbedder(t, gen, embedding.NewHashEmbedder(512))
}

func newFixtureWithEmbedder(t *testing.T, gen AnswerGenerator, embedder index.Embedder) *fixture {
	t.Helper()

	store := storage.NewMemoryStorage()
	extractor := &fakeExtractor{pages: map[string][]chunker.Page{
		"geography": geography,
		"finance":   pages("Quarterly revenue grew by twelve percent.", "Operating costs were flat."),
		"scanned":   pages("", "   ", ""),
	}}
	dir := t.TempDir()

	svc, err := NewService(extractor, chunker.New(chunker.WithChunkSize(300), chunker.WithOverlap(50)),
		index.NewManager(embedder, store), gen, Options{UploadDir: dir})
	require.NoError(t, err)

	return &fixture{svc: svc, store: store, extractor: extractor, uploadDir: dir}
}

func (f *fixture) ingest(t *testing.T, content, filename string) string {
	t.Helper()
	doc, err := f.svc.Ingest(context.Background(), strings.NewReader(content), filename)
	require.NoError(t, err)
	return doc.ID
}

func uploadedFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestIngest(t *testing.T) {
	f := newFixture(t, nil)

	doc, err := f.svc.Ingest(context.Background(), strings.NewReader("geography"), "atlas.pdf")
	require.NoError(t, err)

	assert.NotEmpty(t, doc.ID)
	assert.Equal(t, "atlas.pdf", doc.Filename)
	assert.Equal(t, 3, doc.PageCount)
	assert.Equal(t, 3, doc.ChunkCount)
	assert.False(t, doc.UploadTime.IsZero())
	assert.Equal(t, filepath.Join(f.uploadDir, doc.ID+".pdf"), doc.StoragePath)

	data, err := os.ReadFile(doc.StoragePath)
	require.NoError(t, err)
	assert.Equal(t, "geography", string(data))

	got, err := f.svc.Get(doc.ID)
	require.NoError(t, err)
	assert.Equal(t, *doc, *got)
	assert.Len(t, f.svc.List(), 1)
}

func TestIngest_StoragePathIgnoresClientName(t *testing.T) {
	f := newFixture(t, nil)

	doc, err := f.svc.Ingest(context.Background(), strings.NewReader("geography"), "../../etc/atlas.pdf")
	require.NoError(t, err)

	assert.Equal(t, "atlas.pdf", doc.Filename)
	assert.Equal(t, f.uploadDir, filepath.Dir(doc.StoragePath))
	assert.Equal(t, []string{doc.ID + ".pdf"}, uploadedFiles(t, f.uploadDir))
}

func TestIngest_ExtractionFailure(t *testing.T) {
	f := newFixture(t, nil)
	f.extractor.err = errors.New("pdftotext crashed")

	_, err := f.svc.Ingest(context.Background(), strings.NewReader("geography"), "atlas.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIngestion)

	var ingestErr *IngestionError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, StageExtract, ingestErr.Stage)
	assert.Contains(t, err.Error(), "pdftotext crashed")

	assert.Empty(t, f.svc.List())
	assert.Empty(t, uploadedFiles(t, f.uploadDir))
}

func TestIngest_EmbeddingFailure(t *testing.T) {
	f := newFixtureWithEmbedder(t, nil, brokenEmbedder{})

	_, err := f.svc.Ingest(context.Background(), strings.NewReader("geography"), "atlas.pdf")
	require.Error(t, err)

	var ingestErr *IngestionError
	require.ErrorAs(t, err, &ingestErr)
	assert.Equal(t, StageIndex, ingestErr.Stage)
	assert.Contains(t, err.Error(), "embedding service down")

	assert.Empty(t, f.svc.List())
	assert.Empty(t, uploadedFiles(t, f.uploadDir))

	names, err := f.store.ListCollections(context.Background(), index.CollectionPrefix)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestAsk_EndToEnd(t *testing.T) {
	gen := &fakeGenerator{answer: "The capital of France is Paris (page 2)."}
	f := newFixture(t, gen)
	id := f.ingest(t, "geography", "atlas.pdf")

	answer, err := f.svc.Ask(context.Background(), id, "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, ModeGenerated, answer.Mode)
	assert.Contains(t, answer.Text, "Paris")
	assert.False(t, answer.Mode.Fallback())

	require.NotEmpty(t, answer.Citations)
	top := answer.Citations[0]
	assert.Contains(t, top.Snippet, "Paris")
	assert.Equal(t, "2", top.Page)
	assert.Equal(t, answer.Sources[0], top.Snippet)

	assert.Equal(t, 1, gen.calls)
	assert.Equal(t, "What is the capital of France?", gen.question)
	assert.Contains(t, gen.instructions, "[Page 2]\nThe capital of France is Paris.")
	assert.Contains(t, gen.instructions, ChunkDelimiter)
}

func TestAsk_RoundTripSources(t *testing.T) {
	f := newFixture(t, nil)
	id := f.ingest(t, "finance", "q3.pdf")

	answer, err := f.svc.Ask(context.Background(), id, "How much did quarterly revenue grow?")
	require.NoError(t, err)

	require.NotEmpty(t, answer.Sources)
	assert.Equal(t, "Quarterly revenue grew by twelve percent....", answer.Sources[0])
	assert.Len(t, answer.Citations, len(answer.Sources))
	for _, src := range answer.Sources {
		assert.True(t, strings.HasSuffix(src, "..."))
	}
}

func TestAsk_SnippetLength(t *testing.T) {
	f := newFixture(t, nil)
	long := strings.Repeat("lorem ", 50)
	f.extractor.pages["long"] = pages(long)
	id := f.ingest(t, "long", "long.pdf")

	answer, err := f.svc.Ask(context.Background(), id, "lorem")
	require.NoError(t, err)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, DefaultSnippetLength+3, len([]rune(answer.Sources[0])))
}

func TestAsk_FallbackUnconfigured(t *testing.T) {
	f := newFixture(t, nil)
	id := f.ingest(t, "geography", "atlas.pdf")

	answer, err := f.svc.Ask(context.Background(), id, "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, ModeFallbackUnconfigured, answer.Mode)
	assert.True(t, answer.Mode.Fallback())
	assert.Contains(t, answer.Text, "not configured")
	assert.Contains(t, answer.Text, "Paris")
	assert.NotEmpty(t, answer.Sources)
}

func TestAsk_FallbackWhenGeneratorReportsUnavailable(t *testing.T) {
	var gen *generator.Generator
	f := newFixture(t, gen)
	id := f.ingest(t, "geography", "atlas.pdf")

	answer, err := f.svc.Ask(context.Background(), id, "capital of France")
	require.NoError(t, err)
	assert.Equal(t, ModeFallbackUnconfigured, answer.Mode)
}

func TestAsk_GeneratorError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	f := newFixture(t, gen)
	id := f.ingest(t, "geography", "atlas.pdf")

	answer, err := f.svc.Ask(context.Background(), id, "What is the capital of France?")
	require.NoError(t, err)

	assert.Equal(t, ModeFallbackError, answer.Mode)
	assert.Contains(t, answer.Text, "quota exceeded")
	assert.Contains(t, answer.Text, "Relevant context")
	assert.NotEmpty(t, answer.Sources)
}

func TestAsk_FallbackContextTruncated(t *testing.T) {
	f := newFixture(t, nil)
	f.extractor.pages["wide"] = pages(
		strings.Repeat("alpha ", 45),
		strings.Repeat("alpha ", 45),
		strings.Repeat("alpha ", 45),
		strings.Repeat("alpha ", 45),
		strings.Repeat("alpha ", 45),
		strings.Repeat("alpha ", 45),
		strings.Repeat("alpha ", 45),
		strings.Repeat("alpha ", 45),
	)
	id := f.ingest(t, "wide", "wide.pdf")

	answer, err := f.svc.Ask(context.Background(), id, "alpha")
	require.NoError(t, err)
	require.Equal(t, ModeFallbackUnconfigured, answer.Mode)
	assert.Less(t, len([]rune(answer.Text)), DefaultFallbackContextSize+300)
	assert.Contains(t, answer.Text, "...")
}

func TestAsk_EmptyRetrieval(t *testing.T) {
	gen := &fakeGenerator{answer: "should not be used"}
	f := newFixture(t, gen)

	doc, err := f.svc.Ingest(context.Background(), strings.NewReader("scanned"), "scan.pdf")
	require.NoError(t, err)
	assert.Equal(t, 3, doc.PageCount)
	assert.Equal(t, 0, doc.ChunkCount)

	answer, err := f.svc.Ask(context.Background(), doc.ID, "What does it say?")
	require.NoError(t, err)

	assert.Equal(t, ModeNoResults, answer.Mode)
	assert.Equal(t, NoResultsAnswer, answer.Text)
	assert.Empty(t, answer.Sources)
	assert.NotNil(t, answer.Sources)
	assert.Zero(t, gen.calls)
}

func TestAsk_Isolation(t *testing.T) {
	f := newFixture(t, nil)
	first := f.ingest(t, "finance", "a.pdf")
	second := f.ingest(t, "finance", "b.pdf")

	for _, id := range []string{first, second} {
		hits, err := f.svc.indexer.Search(context.Background(), id, "revenue", 10)
		require.NoError(t, err)
		require.NotEmpty(t, hits)
		for _, h := range hits {
			assert.Equal(t, id, h.DocID)
		}
	}
}

func TestAsk_NotFound(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Ask(context.Background(), "missing", "anything?")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, errors.Is(err, ErrValidation))

	_, err = f.svc.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAsk_Validation(t *testing.T) {
	f := newFixture(t, nil)
	id := f.ingest(t, "geography", "atlas.pdf")

	_, err := f.svc.Ask(context.Background(), id, "   ")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Ask(context.Background(), id, strings.Repeat("q", MaxQuestionLength+1))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDelete(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	deleted, err := f.svc.Delete(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, deleted)

	id := f.ingest(t, "geography", "atlas.pdf")
	doc, err := f.svc.Get(id)
	require.NoError(t, err)

	deleted, err = f.svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = f.svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = os.Stat(doc.StoragePath)
	assert.True(t, os.IsNotExist(err))

	names, err := f.store.ListCollections(ctx, index.CollectionPrefix)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = f.svc.Ask(ctx, id, "capital?")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.svc.locks.size())
}

func TestDelete_ToleratesMissingIndexAndFile(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	id := f.ingest(t, "geography", "atlas.pdf")
	doc, _ := f.svc.Get(id)

	require.NoError(t, os.Remove(doc.StoragePath))
	require.NoError(t, f.store.DeleteCollection(ctx, index.CollectionName(id)))

	deleted, err := f.svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestConcurrentAskAndDelete(t *testing.T) {
	f := newFixture(t, &fakeGenerator{answer: "ok"})
	ctx := context.Background()
	id := f.ingest(t, "geography", "atlas.pdf")

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			answer, err := f.svc.Ask(ctx, id, "capital of France")
			if err != nil {
				assert.ErrorIs(t, err, ErrNotFound)
				return
			}
			assert.Equal(t, ModeGenerated, answer.Mode)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := f.svc.Delete(ctx, id)
		assert.NoError(t, err)
	}()
	wg.Wait()

	_, err := f.svc.Get(id)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, f.svc.locks.size())
}
