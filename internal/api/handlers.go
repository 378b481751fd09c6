package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	ghclient "github.com/bull/pdf-rag-server/internal/github"
	"github.com/bull/pdf-rag-server/internal/rag"
)

func (s *Server) upload(c *fiber.Ctx) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "A PDF file is required in the 'file' form field")
	}
	if err := rag.ValidateUpload(header.Filename, header.Size, s.maxSize); err != nil {
		return err
	}

	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer file.Close()

	doc, err := s.service.Ingest(c.Context(), file, header.Filename)
	if err != nil {
		return err
	}

	info := toInfo(*doc)
	return c.JSON(UploadResponse{
		Success:  true,
		Message:  processedMessage(info),
		Document: &info,
	})
}

func (s *Server) query(c *fiber.Ctx) error {
	var req QueryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.DocumentID) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "document_id is required")
	}

	answer, err := s.service.Ask(c.Context(), req.DocumentID, req.Question)
	if err != nil {
		if errors.Is(err, rag.ErrNotFound) || errors.Is(err, rag.ErrValidation) {
			return err
		}
		return fiber.NewError(fiber.StatusInternalServerError, "Error querying document: "+err.Error())
	}

	resp := QueryResponse{
		Answer:    answer.Text,
		Sources:   answer.Sources,
		Citations: answer.Citations,
		Mode:      answer.Mode,
	}
	html, err := s.renderer.Render(answer.Text)
	if err != nil {
		s.logger.Warn("Failed to render answer", "doc_id", req.DocumentID, "error", err)
	} else {
		resp.AnswerHTML = html
	}
	return c.JSON(resp)
}

func (s *Server) listDocuments(c *fiber.Ctx) error {
	docs := s.service.List()
	infos := make([]DocumentInfo, len(docs))
	for i, d := range docs {
		infos[i] = toInfo(d)
	}
	return c.JSON(DocumentListResponse{Documents: infos})
}

func (s *Server) getDocument(c *fiber.Ctx) error {
	doc, err := s.service.Get(utils.CopyString(c.Params("id")))
	if err != nil {
		return err
	}
	return c.JSON(toInfo(*doc))
}

func (s *Server) deleteDocument(c *fiber.Ctx) error {
	deleted, err := s.service.Delete(c.Context(), utils.CopyString(c.Params("id")))
	if err != nil {
		return err
	}
	if !deleted {
		return rag.ErrNotFound
	}
	return c.JSON(DeleteResponse{Success: true, Message: "Document deleted successfully"})
}

// importDocuments ingests one PDF, or every PDF under a directory, from GitHub.
func (s *Server) importDocuments(c *fiber.Ctx) error {
	var req ImportRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Owner == "" || req.Repo == "" {
		return fiber.NewError(fiber.StatusBadRequest, "owner and repo are required")
	}

	src := ghclient.Source{Owner: req.Owner, Repo: req.Repo, Path: req.Path, Ref: req.Ref}
	result, err := s.importer.ImportAll(c.Context(), src)
	if err != nil {
		return err
	}
	if result.TotalDocs == 0 {
		return fiber.NewError(fiber.StatusBadRequest, "No PDF files found at that path")
	}
	if result.SuccessfulDocs == 0 {
		return result.FailedDocs[0].Err
	}

	resp := ImportResponse{
		Success:   len(result.FailedDocs) == 0,
		Documents: make([]DocumentInfo, len(result.Documents)),
		Failed:    make([]ImportFailure, len(result.FailedDocs)),
	}
	for i, d := range result.Documents {
		resp.Documents[i] = toInfo(d)
	}
	for i, f := range result.FailedDocs {
		resp.Failed[i] = ImportFailure{Path: f.Path, Reason: f.Reason}
	}

	if result.TotalDocs == 1 {
		resp.Message = processedMessage(resp.Documents[0])
	} else {
		resp.Message = fmt.Sprintf("Imported %d of %d documents from %s/%s",
			result.SuccessfulDocs, result.TotalDocs, src.Owner, src.Repo)
	}
	return c.JSON(resp)
}

func processedMessage(doc DocumentInfo) string {
	return fmt.Sprintf("Successfully processed '%s' (%d pages, %d chunks)", doc.Filename, doc.PageCount, doc.ChunkCount)
}
