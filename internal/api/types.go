package api

import (
	"time"

	"github.com/bull/pdf-rag-server/internal/rag"
	"github.com/bull/pdf-rag-server/internal/registry"
)

// DocumentInfo is the public view of a registered document.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadTime time.Time `json:"upload_time"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
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

type RootResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Qdrant    string `json:"qdrant"`
	Timestamp string `json:"timestamp"`
}

type UploadResponse struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Document *DocumentInfo `json:"document,omitempty"`
}

type QueryRequest struct {
	DocumentID string `json:"document_id"`
	Question   string `json:"question"`
}

type QueryResponse struct {
	Answer     string         `json:"answer"`
	AnswerHTML string         `json:"answer_html,omitempty"`
	Sources    []string       `json:"sources"`
	Citations  []rag.Citation `json:"citations"`
	Mode       rag.Mode       `json:"mode"`
}

type DocumentListResponse struct {
	Documents []DocumentInfo `json:"documents"`
}

type DeleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// ImportRequest names a PDF file, or a directory of PDFs, in a GitHub repository.
type ImportRequest struct {
	Owner string `json:"owner"`
	Repo  string `json:"repo"`
	Path  string `json:"path"`
	Ref   string `json:"ref"`
}

// ImportResponse lists the imported documents. Success is false when some
// files failed while others were imported.
type ImportResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Documents []DocumentInfo  `json:"documents"`
	Failed    []ImportFailure `json:"failed"`
}

type ImportFailure struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// ErrorResponse mirrors the {"detail": ...} error body clients already parse.
type ErrorResponse struct {
	Detail string `json:"detail"`
}
