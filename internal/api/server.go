// Package api serves the document service over HTTP with Fiber.
package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"

	ghclient "github.com/bull/pdf-rag-server/internal/github"
	"github.com/bull/pdf-rag-server/internal/indexer"
	"github.com/bull/pdf-rag-server/internal/markdown"
	"github.com/bull/pdf-rag-server/internal/rag"
	"github.com/bull/pdf-rag-server/internal/registry"
)

// ServiceName is reported by GET /.
const ServiceName = "Document RAG API"

// multipartOverhead is added to the upload limit for form boundaries and headers.
const multipartOverhead = 1 << 20

// DocumentService is the pipeline the HTTP handlers drive.
type DocumentService interface {
	Ingest(ctx context.Context, r io.Reader, filename string) (*registry.Document, error)
	Ask(ctx context.Context, docID, question string) (*rag.Answer, error)
	Delete(ctx context.Context, docID string) (bool, error)
	Get(docID string) (*registry.Document, error)
	List() []registry.Document
}

// HealthChecker interface defines the health check dependency.
// The vector store implements this via its Health() method.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Importer ingests PDFs from GitHub repositories.
type Importer interface {
	ImportAll(ctx context.Context, src ghclient.Source) (*indexer.ImportResult, error)
}

// Config holds server dependencies. Importer and MCP are optional.
type Config struct {
	Service        DocumentService
	Health         HealthChecker
	Importer       Importer
	MCP            http.Handler
	MaxUploadBytes int64
	AllowedOrigins []string
	Logger         *slog.Logger
}

// Server is the HTTP front of the document service.
type Server struct {
	app      *fiber.App
	service  DocumentService
	health   HealthChecker
	importer Importer
	maxSize  int64
	renderer *markdown.Renderer
	logger   *slog.Logger
}

// New builds the Fiber app and registers every route.
func New(cfg *Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		service:  cfg.Service,
		health:   cfg.Health,
		importer: cfg.Importer,
		maxSize:  cfg.MaxUploadBytes,
		renderer: markdown.NewRenderer(),
		logger:   logger,
	}

	fiberCfg := fiber.Config{
		AppName:               ServiceName,
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	}
	if cfg.MaxUploadBytes > 0 {
		fiberCfg.BodyLimit = int(cfg.MaxUploadBytes + multipartOverhead)
	}
	app := fiber.New(fiberCfg)

	origins := "*"
	if len(cfg.AllowedOrigins) > 0 {
		origins = strings.Join(cfg.AllowedOrigins, ", ")
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, Mcp-Session-Id, Mcp-Protocol-Version",
		AllowMethods: "GET, POST, DELETE, OPTIONS",
	}))

	s.app = app
	s.registerRoutes(cfg.MCP)
	return s
}

func (s *Server) registerRoutes(mcpHandler http.Handler) {
	s.app.Get("/", s.root)
	s.app.Get("/health", s.healthCheck)

	s.app.Post("/upload", s.upload)
	s.app.Post("/query", s.query)

	docs := s.app.Group("/documents")
	docs.Get("", s.listDocuments)
	if s.importer != nil {
		docs.Post("/import", s.importDocuments)
	}
	docs.Get("/:id", s.getDocument)
	docs.Delete("/:id", s.deleteDocument)

	if mcpHandler != nil {
		s.app.All("/mcp", adaptor.HTTPHandler(mcpHandler))
	}
}

// App returns the underlying Fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info("HTTP server listening", "addr", addr)
	return s.app.Listen(addr)
}

// Shutdown stops accepting connections and waits for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
