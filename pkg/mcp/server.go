// Package mcp exposes the research orchestrator to calling agents over the
// Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/spawn-mcp/researcher/pkg/blocklist"
	"github.com/spawn-mcp/researcher/pkg/research"
	"github.com/spawn-mcp/researcher/pkg/schemas"
)

const defaultMaxCalls = 5

// Server wraps the iteration controller with MCP protocol support.
type Server struct {
	controller *research.Controller
	registry   *blocklist.Registry
	logger     *zap.Logger
	mcpServer  *server.MCPServer
}

// NewServer creates an MCP server exposing the research tools.
func NewServer(controller *research.Controller, registry *blocklist.Registry, logger *zap.Logger) *Server {
	mcpServer := server.NewMCPServer(
		"Objective Research Orchestrator",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	s := &Server{
		controller: controller,
		registry:   registry,
		logger:     logger,
		mcpServer:  mcpServer,
	}
	s.registerTools()
	return s
}

// registerTools registers all available MCP tools.
func (s *Server) registerTools() {
	runResearch := mcp.NewTool("run_research",
		mcp.WithDescription("Run a research session answering a set of objectives with web evidence"),
		mcp.WithString("objectives_json",
			mcp.Required(),
			mcp.Description("JSON-encoded array of research questions"),
		),
		mcp.WithString("starting_query",
			mcp.Required(),
			mcp.Description("Initial search query"),
		),
		mcp.WithNumber("max_calls",
			mcp.Description("Maximum number of search iterations"),
			mcp.DefaultNumber(defaultMaxCalls),
			mcp.Min(0),
			mcp.Max(50),
		),
		mcp.WithString("allowed_domains",
			mcp.Description("Comma-separated hostnames to restrict searches to"),
		),
		mcp.WithString("blocked_domains",
			mcp.Description("Comma-separated hostnames to exclude"),
		),
	)
	s.mcpServer.AddTool(runResearch, s.handleRunResearch)

	listBlocked := mcp.NewTool("list_blocked_domains",
		mcp.WithDescription("List hostnames permanently blocked across sessions"),
	)
	s.mcpServer.AddTool(listBlocked, s.handleListBlockedDomains)

	clearBlocklist := mcp.NewTool("clear_blocklist",
		mcp.WithDescription("Clear the persisted domain blocklist"),
	)
	s.mcpServer.AddTool(clearBlocklist, s.handleClearBlocklist)
}

// handleRunResearch handles the run_research tool call.
func (s *Server) handleRunResearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	objectivesJSON, err := request.RequireString("objectives_json")
	if err != nil {
		return mcp.NewToolResultError("objectives_json required"), nil
	}
	var objectives []string
	if err := json.Unmarshal([]byte(objectivesJSON), &objectives); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid objectives_json: %v", err)), nil
	}

	startingQuery, err := request.RequireString("starting_query")
	if err != nil {
		return mcp.NewToolResultError("starting_query required"), nil
	}

	req := schemas.SessionRequest{
		Objectives:     objectives,
		StartingQuery:  startingQuery,
		MaxCalls:       int(request.GetFloat("max_calls", defaultMaxCalls)),
		AllowedDomains: splitDomains(request.GetString("allowed_domains", "")),
		BlockedDomains: splitDomains(request.GetString("blocked_domains", "")),
	}

	s.logger.Info("run_research invoked",
		zap.Int("objectives", len(req.Objectives)),
		zap.Int("max_calls", req.MaxCalls))

	result, err := s.controller.Run(ctx, req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resBytes, _ := json.Marshal(result)
	return mcp.NewToolResultText(string(resBytes)), nil
}

// handleListBlockedDomains handles the list_blocked_domains tool call.
func (s *Server) handleListBlockedDomains(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries := s.registry.Entries()
	if len(entries) == 0 {
		return mcp.NewToolResultText("No permanently blocked domains"), nil
	}

	b, _ := json.Marshal(entries)
	return mcp.NewToolResultText(string(b)), nil
}

// handleClearBlocklist handles the clear_blocklist tool call.
func (s *Server) handleClearBlocklist(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.registry.Clear(ctx); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to clear blocklist: %v", err)), nil
	}
	return mcp.NewToolResultText("Blocklist cleared"), nil
}

// Start starts the MCP server using stdio transport.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting MCP server")
	return server.ServeStdio(s.mcpServer)
}

func splitDomains(csv string) []string {
	var domains []string
	for _, d := range strings.Split(csv, ",") {
		d = strings.TrimSpace(d)
		if d != "" {
			domains = append(domains, d)
		}
	}
	return domains
}
