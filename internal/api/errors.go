package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-github/v81/github"

	ghclient "github.com/bull/pdf-rag-server/internal/github"
	"github.com/bull/pdf-rag-server/internal/rag"
)

// errorHandler maps service errors to status codes and a {"detail"} body.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code, detail := s.classify(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			"method", c.Method(),
			"path", c.Path(),
			"status", code,
			"error", err,
		)
	}
	return c.Status(code).JSON(ErrorResponse{Detail: detail})
}

func (s *Server) classify(err error) (int, string) {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return fiberErr.Code, fiberErr.Message
	}

	var ingestErr *rag.IngestionError
	var ghErr *github.ErrorResponse
	switch {
	case errors.Is(err, rag.ErrNotFound):
		return fiber.StatusNotFound, "Document not found"
	case errors.Is(err, rag.ErrValidation):
		return fiber.StatusBadRequest, validationDetail(err)
	case errors.As(err, &ingestErr):
		return fiber.StatusInternalServerError, "Error processing document: " + ingestErr.Err.Error()
	case errors.Is(err, ghclient.ErrNotPDF), errors.Is(err, ghclient.ErrTooLarge):
		return fiber.StatusBadRequest, err.Error()
	case errors.As(err, &ghErr) && ghErr.Response != nil && ghErr.Response.StatusCode == http.StatusNotFound:
		return fiber.StatusNotFound, "Not found on GitHub: " + ghErr.Message
	}
	return fiber.StatusInternalServerError, err.Error()
}

// validationDetail drops the sentinel prefix and capitalizes the reason.
func validationDetail(err error) string {
	msg := strings.TrimPrefix(err.Error(), rag.ErrValidation.Error()+": ")
	if msg == "" {
		return rag.ErrValidation.Error()
	}
	return strings.ToUpper(msg[:1]) + msg[1:]
}
