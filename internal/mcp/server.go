package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/shelfd/shelf/internal/store"
	"github.com/shelfd/shelf/internal/upload"
)

// MCPServer wraps the mcp-go server with catalog-specific tool
// registrations. It exposes the product catalog as MCP tools so AI agents
// can browse and manage products.
type MCPServer struct {
	store   *store.Store
	uploads *upload.Store
	logger  *slog.Logger
	server  *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with all catalog tools.
// The returned server is ready to serve over stdio or HTTP. uploads may be
// nil, in which case deleted products leave their image files behind.
func NewMCPServer(st *store.Store, uploads *upload.Store, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		store:   st,
		uploads: uploads,
		logger:  logger,
	}

	mcpServer := server.NewMCPServer(
		"Shelf Product Catalog",
		"0.1.0",
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance. Useful for
// advanced configuration or testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode. This is the primary
// integration path for MCP clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on
// the given address (e.g. ":3001"). This is suitable for remote MCP clients.
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
