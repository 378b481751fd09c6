package mcp

import (
	"context"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
}

// Config holds server dependencies.
type Config struct {
	Service     DocumentService
	Collections CollectionLister
	Version     string
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	impl := &mcp.Implementation{
		Name:    "pdf-rag-server",
		Version: version,
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List all uploaded PDF documents with their ids, page counts and chunk counts.",
	}, makeListHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get metadata for one uploaded PDF document by id.",
	}, makeGetHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_document",
		Description: "Answer a question about an uploaded PDF using only its content. Returns the answer with cited page snippets.",
	}, makeAskHandler(cfg.Service))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete an uploaded PDF document, its stored file and its vector index.",
	}, makeDeleteHandler(cfg.Service))

	if cfg.Collections != nil {
		mcp.AddTool(server, &mcp.Tool{
			Name:        "get_index_status",
			Description: "Get document and chunk totals and report vector collections that no longer belong to a registered document.",
		}, makeStatusHandler(cfg.Service, cfg.Collections))
	}

	return &Server{server: server}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}

// HTTPHandler returns a Streamable HTTP handler for the server. A stateless
// handler keeps no session between requests.
func (s *Server) HTTPHandler(stateless bool) http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.server
	}, &mcp.StreamableHTTPOptions{
		Stateless: stateless,
	})
}
