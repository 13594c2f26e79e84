// Package mcp exposes the lead store to MCP clients so an agent can review
// and triage leads without the web dashboard.
package mcp

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/leadbox/leadbox/internal/model"
)

// LeadStore is the subset of the store the MCP tools use.
type LeadStore interface {
	GetLead(ctx context.Context, id int64) (*model.Lead, error)
	ListLeads(ctx context.Context, filter model.LeadFilter) ([]model.Lead, error)
	LeadStats(ctx context.Context) (model.LeadStats, error)
	UpdateLeadStatus(ctx context.Context, id int64, status model.Status) error
}

// MCPServer wraps the mcp-go server with the leadbox tools and resources.
type MCPServer struct {
	leads  LeadStore
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer creates an MCPServer with every tool and resource registered.
func NewMCPServer(leads LeadStore, version string, logger *slog.Logger) *MCPServer {
	s := &MCPServer{
		leads:  leads,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		"Leadbox",
		version,
		server.WithResourceCapabilities(true, false),
		server.WithToolCapabilities(true),
	)

	s.registerTools(mcpServer)
	s.registerResources(mcpServer)

	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go server.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio serves MCP over stdin/stdout for clients that launch leadbox
// as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP serves MCP over Streamable HTTP on addr (e.g. ":3001").
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
		ReadOnlyHint:    boolPtr(false),
		IdempotentHint:  boolPtr(true),
		DestructiveHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
