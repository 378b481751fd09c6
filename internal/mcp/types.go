// Package mcp exposes the document service as Model Context Protocol tools.
package mcp

import "time"

// DocumentInfo describes one ingested document.
type DocumentInfo struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadTime time.Time `json:"upload_time"`
	PageCount  int       `json:"page_count"`
	ChunkCount int       `json:"chunk_count"`
}

// ListDocumentsInput defines the input parameters for the list_documents tool.
// This tool takes no parameters.
type ListDocumentsInput struct{}

// ListDocumentsOutput contains every ingested document.
type ListDocumentsOutput struct {
	Documents []DocumentInfo `json:"documents"`
	Count     int            `json:"count"`
}

// GetDocumentInput defines the input parameters for the get_document tool.
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the id returned when the document was uploaded"`
}

// GetDocumentOutput contains the document, if it exists.
type GetDocumentOutput struct {
	Document *DocumentInfo `json:"document,omitempty"`
	// Found indicates whether the document exists.
	Found bool `json:"found"`
}

// AskDocumentInput defines the input parameters for the ask_document tool.
type AskDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the id of the document to ask about"`
	Question   string `json:"question" jsonschema:"a natural-language question about the document, at most 1000 characters"`
}

// AskDocumentOutput contains the answer and the passages it was drawn from.
type AskDocumentOutput struct {
	Answer    string     `json:"answer"`
	Mode      string     `json:"mode"`
	Citations []Citation `json:"citations"`
	Found     bool       `json:"found"`
}

// Citation is one retrieved passage.
type Citation struct {
	Page    string  `json:"page"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// DeleteDocumentInput defines the input parameters for the delete_document tool.
type DeleteDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the id of the document to delete"`
}

// DeleteDocumentOutput reports whether a document was removed.
type DeleteDocumentOutput struct {
	Deleted bool   `json:"deleted"`
	Message string `json:"message"`
}

// StatusInput defines the input parameters for the get_index_status tool.
type StatusInput struct{}

// StatusOutput summarizes the registry and the vector store.
type StatusOutput struct {
	TotalDocs   int      `json:"total_docs"`
	TotalChunks int      `json:"total_chunks"`
	Collections int      `json:"collections"`
	Orphaned    []string `json:"orphaned_collections"`
	// Warning is set when collections exist without a registered document.
	Warning string `json:"warning,omitempty"`
}
