// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes vault search and question answering via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/askservice"
	"github.com/starford/ansuz/internal/storage"
)

// Server wraps the MCP server with Ansuz tools.
type Server struct {
	mcp   *server.MCPServer
	store storage.Provider
	svc   *askservice.Service
}

// New creates a new MCP server with all Ansuz tools registered.
func New(store storage.Provider, svc *askservice.Service) *Server {
	s := &Server{store: store, svc: svc}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("search_vault",
		mcp.WithDescription("Search vault documents by natural-language question. "+
			"Returns matching document paths with match kinds (date, tag, filename, content)."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Natural-language search question")),
	), s.searchVault)

	s.mcp.AddTool(mcp.NewTool("ask_vault",
		mcp.WithDescription("Answer a question from the vault's documents."),
		mcp.WithString("question", mcp.Required(), mcp.Description("Question to answer")),
	), s.askVault)

	s.mcp.AddTool(mcp.NewTool("read_document",
		mcp.WithDescription("Read the full content of a vault document."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path to the document (e.g. daily/2025-01-02.md)")),
	), s.readDocument)

	s.mcp.AddTool(mcp.NewTool("vault_stats",
		mcp.WithDescription("Report how many documents and distinct tags are indexed."),
	), s.vaultStats)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) searchVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	_, hits := s.svc.Search(ctx, question)
	out, _ := json.MarshalIndent(hits, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) askVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := req.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	answer, _ := s.svc.Ask(ctx, question)
	return mcp.NewToolResultText(answer), nil
}

func (s *Server) readDocument(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.store.Read(path)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", path)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) vaultStats(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, tags, err := s.svc.Stats()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf(`{"documents": %d, "tags": %d}`, docs, tags)), nil
}
