package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"decent-ci/src/archive"
	"decent-ci/src/logger"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// DefaultListLimit bounds list_results when no limit is given.
const DefaultListLimit = 20

// Server is the MCP server for archived results.
type Server struct {
	mcpServer *server.MCPServer
	lister    archive.Lister
	log       logger.Logger
}

// NewServer creates a server answering from lister.
func NewServer(lister archive.Lister, log logger.Logger) *Server {
	s := server.NewMCPServer(
		"decent-ci",
		Version,
		server.WithToolCapabilities(true),
	)

	srv := &Server{
		mcpServer: s,
		lister:    lister,
		log:       logger.OrDefault(log),
	}
	srv.registerTools()
	return srv
}

func (s *Server) registerTools() {
	listTool := mcp.NewTool("list_results",
		mcp.WithDescription("List archived build results, newest first. Each entry has the overall status and a one-line description; use get_result with the id for errors and failed tests."),
		mcp.WithString("repository",
			mcp.Description("Only results of this repository (owner/name)"),
		),
		mcp.WithString("ref",
			mcp.Description("Only results of this branch or tag"),
		),
		mcp.WithString("device_id",
			mcp.Description("Only results of this toolchain device id"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max results (default: 20)"),
		),
	)

	getTool := mcp.NewTool("get_result",
		mcp.WithDescription("Get one archived build result. Errors are expanded with file and line; warnings are summarized; failed tests include the tail of their output."),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Result id from list_results"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Max errors (default: 15); lower tiers scale with it"),
		),
	)

	s.mcpServer.AddTool(listTool, s.handleListResults)
	s.mcpServer.AddTool(getTool, s.handleGetResult)
}

// Run serves on stdio until the client disconnects.
func (s *Server) Run() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) handleListResults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := archive.Filter{
		Repository: request.GetString("repository", ""),
		Ref:        request.GetString("ref", ""),
		DeviceID:   request.GetString("device_id", ""),
		Limit:      request.GetInt("limit", DefaultListLimit),
	}

	entries, err := s.lister.List(ctx, filter)
	if err != nil {
		s.log.Error("[MCP] list_results failed: %v", err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to list results: %v", err)), nil
	}

	summaries := make([]ResultSummary, 0, len(entries))
	for _, e := range entries {
		summaries = append(summaries, Summarize(e))
	}
	return jsonResult(summaries)
}

func (s *Server) handleGetResult(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("id", "")
	if id == "" {
		return mcp.NewToolResultError("id parameter is required"), nil
	}

	entry, err := s.lister.Get(ctx, id)
	var notFound archive.ErrNotFound
	if errors.As(err, &notFound) {
		return mcp.NewToolResultError(fmt.Sprintf("result not found: id=%s", id)), nil
	}
	if err != nil {
		s.log.Error("[MCP] get_result %s failed: %v", id, err)
		return mcp.NewToolResultError(fmt.Sprintf("failed to get result: %v", err)), nil
	}

	return jsonResult(Detail(entry, request.GetInt("limit", DefaultErrorLimit)))
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonBytes, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonBytes)), nil
}
