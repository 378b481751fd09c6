// Package indexer imports batches of PDFs from GitHub into the document service.
package indexer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/bull/pdf-rag-server/internal/github"
	"github.com/bull/pdf-rag-server/internal/rag"
	"github.com/bull/pdf-rag-server/internal/registry"
)

// ImportResult contains statistics about an import operation.
type ImportResult struct {
	TotalDocs      int
	TotalChunks    int
	SuccessfulDocs int
	Documents      []registry.Document
	FailedDocs     []FailedDoc
	Duration       time.Duration
}

// FailedDoc represents a file that failed to import.
type FailedDoc struct {
	Path   string
	Reason string
	Err    error
}

// Fetcher lists and downloads PDFs from a repository.
type Fetcher interface {
	ListPDFs(ctx context.Context, src github.Source) ([]string, error)
	FetchFile(ctx context.Context, src github.Source) (*github.FetchedFile, error)
}

// Ingester stores and indexes one PDF.
type Ingester interface {
	Ingest(ctx context.Context, r io.Reader, filename string) (*registry.Document, error)
}

// Pipeline orchestrates fetching and ingesting every PDF under a source path.
type Pipeline struct {
	fetcher  Fetcher
	ingester Ingester
	maxSize  int64
	logger   *slog.Logger
}

// NewPipeline creates an import pipeline. Files larger than maxSize bytes are
// rejected; maxSize <= 0 disables the check.
func NewPipeline(fetcher Fetcher, ingester Ingester, maxSize int64, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		fetcher:  fetcher,
		ingester: ingester,
		maxSize:  maxSize,
		logger:   logger,
	}
}

// ImportAll ingests every PDF found at src. A file that fails is recorded in
// FailedDocs and the rest are still imported.
func (p *Pipeline) ImportAll(ctx context.Context, src github.Source) (*ImportResult, error) {
	start := time.Now()
	result := &ImportResult{}

	paths, err := p.fetcher.ListPDFs(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("list PDFs: %w", err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("Found PDFs", "repo", src.Owner+"/"+src.Repo, "path", src.Path, "count", len(paths))

	for _, path := range paths {
		file := src
		file.Path = path

		doc, err := p.importFile(ctx, file)
		if err != nil {
			p.logger.Warn("Failed to import PDF", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{
				Path:   path,
				Reason: err.Error(),
				Err:    err,
			})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += doc.ChunkCount
		result.Documents = append(result.Documents, *doc)
	}

	result.Duration = time.Since(start)
	p.logger.Info("Import complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)

	return result, nil
}

func (p *Pipeline) importFile(ctx context.Context, src github.Source) (*registry.Document, error) {
	fetched, err := p.fetcher.FetchFile(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	p.logger.Debug("Fetched PDF", "path", src.Path, "size", len(fetched.Content), "sha", fetched.SHA)

	if err := rag.ValidateUpload(fetched.Name, int64(len(fetched.Content)), p.maxSize); err != nil {
		return nil, err
	}

	doc, err := p.ingester.Ingest(ctx, bytes.NewReader(fetched.Content), fetched.Name)
	if err != nil {
		return nil, err
	}

	p.logger.Info("Imported PDF", "path", src.Path, "doc_id", doc.ID, "chunks", doc.ChunkCount)
	return doc, nil
}
