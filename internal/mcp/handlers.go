package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/pdf-rag-server/internal/index"
	"github.com/bull/pdf-rag-server/internal/rag"
	"github.com/bull/pdf-rag-server/internal/registry"
)

// DocumentService is the subset of rag.Service the tools call.
type DocumentService interface {
	Ask(ctx context.Context, docID, question string) (*rag.Answer, error)
	Delete(ctx context.Context, docID string) (bool, error)
	Get(docID string) (*registry.Document, error)
	List() []registry.Document
}

// CollectionLister lists the vector collections owned by the service.
type CollectionLister interface {
	Collections(ctx context.Context) ([]string, error)
}

func toInfo(doc registry.Document) DocumentInfo {
	return DocumentInfo{
		ID:         doc.ID,
		Filename:   doc.Filename,
		UploadTime: doc.UploadTime,
		PageCount:  doc.PageCount,
		ChunkCount: doc.ChunkCount,
	}
}

// makeListHandler creates the list_documents tool handler.
func makeListHandler(svc DocumentService) func(
	context.Context, *mcp.CallToolRequest, ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListDocumentsInput) (
		*mcp.CallToolResult, ListDocumentsOutput, error,
	) {
		docs := svc.List()
		infos := make([]DocumentInfo, len(docs))
		for i, d := range docs {
			infos[i] = toInfo(d)
		}
		return nil, ListDocumentsOutput{Documents: infos, Count: len(infos)}, nil
	}
}

// makeGetHandler creates the get_document tool handler.
// An unknown id is reported through Found rather than as a tool error.
func makeGetHandler(svc DocumentService) func(
	context.Context, *mcp.CallToolRequest, GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input GetDocumentInput) (
		*mcp.CallToolResult, GetDocumentOutput, error,
	) {
		doc, err := svc.Get(input.DocumentID)
		if err != nil {
			if errors.Is(err, rag.ErrNotFound) {
				return nil, GetDocumentOutput{Found: false}, nil
			}
			return nil, GetDocumentOutput{}, err
		}
		info := toInfo(*doc)
		return nil, GetDocumentOutput{Document: &info, Found: true}, nil
	}
}

// makeAskHandler creates the ask_document tool handler.
func makeAskHandler(svc DocumentService) func(
	context.Context, *mcp.CallToolRequest, AskDocumentInput,
) (*mcp.CallToolResult, AskDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskDocumentInput) (
		*mcp.CallToolResult, AskDocumentOutput, error,
	) {
		answer, err := svc.Ask(ctx, input.DocumentID, input.Question)
		if err != nil {
			if errors.Is(err, rag.ErrNotFound) {
				return nil, AskDocumentOutput{
					Answer:    fmt.Sprintf("Document %s not found. Use list_documents to see available ids.", input.DocumentID),
					Citations: []Citation{},
					Found:     false,
				}, nil
			}
			return nil, AskDocumentOutput{}, fmt.Errorf("failed to answer question: %w", err)
		}

		citations := make([]Citation, len(answer.Citations))
		for i, c := range answer.Citations {
			citations[i] = Citation{Page: c.Page, Snippet: c.Snippet, Score: c.Score}
		}
		return nil, AskDocumentOutput{
			Answer:    answer.Text,
			Mode:      string(answer.Mode),
			Citations: citations,
			Found:     true,
		}, nil
	}
}

// makeDeleteHandler creates the delete_document tool handler.
func makeDeleteHandler(svc DocumentService) func(
	context.Context, *mcp.CallToolRequest, DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input DeleteDocumentInput) (
		*mcp.CallToolResult, DeleteDocumentOutput, error,
	) {
		deleted, err := svc.Delete(ctx, input.DocumentID)
		if err != nil {
			return nil, DeleteDocumentOutput{}, fmt.Errorf("failed to delete document: %w", err)
		}
		if !deleted {
			return nil, DeleteDocumentOutput{Deleted: false, Message: "Document not found"}, nil
		}
		return nil, DeleteDocumentOutput{Deleted: true, Message: "Document deleted successfully"}, nil
	}
}

// makeStatusHandler creates the get_index_status tool handler.
// Collections without a registry entry are left over from earlier processes,
// since the registry does not survive restarts.
func makeStatusHandler(svc DocumentService, collections CollectionLister) func(
	context.Context, *mcp.CallToolRequest, StatusInput,
) (*mcp.CallToolResult, StatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input StatusInput) (
		*mcp.CallToolResult, StatusOutput, error,
	) {
		docs := svc.List()
		out := StatusOutput{TotalDocs: len(docs), Orphaned: []string{}}

		known := make(map[string]bool, len(docs))
		for _, d := range docs {
			out.TotalChunks += d.ChunkCount
			known[index.CollectionName(d.ID)] = true
		}

		names, err := collections.Collections(ctx)
		if err != nil {
			return nil, StatusOutput{}, fmt.Errorf("store_error: failed to list collections: %w", err)
		}
		out.Collections = len(names)
		for _, name := range names {
			if !known[name] {
				out.Orphaned = append(out.Orphaned, name)
			}
		}
		if len(out.Orphaned) > 0 {
			out.Warning = fmt.Sprintf("%d collections have no registered document. Run `docqa prune` to remove them.", len(out.Orphaned))
		}

		return nil, out, nil
	}
}
