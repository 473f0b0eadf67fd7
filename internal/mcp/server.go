// Package mcp exposes file search as a Model Context Protocol tool over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/filesearch/internal/config"
	"github.com/standardbeagle/filesearch/internal/debug"
	"github.com/standardbeagle/filesearch/internal/query"
	"github.com/standardbeagle/filesearch/internal/search"
	"github.com/standardbeagle/filesearch/internal/version"
)

// ToolName is the name the search tool is registered under.
const ToolName = "file_search"

// Server wraps an MCP server with the file search tool registered.
type Server struct {
	cfg    *config.Config
	engine *search.Engine
	server *mcp.Server
}

// FileSearchParams are the file_search tool arguments. They mirror the
// HTTP endpoint's query parameters.
type FileSearchParams struct {
	Q     string `json:"q"`
	Sort  string `json:"sort,omitempty"`
	Rows  *int   `json:"rows,omitempty"`
	Start int    `json:"start,omitempty"`
}

// IgnoredFilter reports a filter key that was not recognized.
type IgnoredFilter struct {
	Key        string `json:"key"`
	Value      string `json:"value"`
	Suggestion string `json:"did_you_mean,omitempty"`
}

// FileSearchResult is the tool's JSON payload.
type FileSearchResult struct {
	Response   search.ResponseBody `json:"response"`
	Ignored    []IgnoredFilter     `json:"ignored,omitempty"`
	Unreadable []string            `json:"unreadable,omitempty"`
	ElapsedMs  int64               `json:"elapsed_ms"`
}

// NewServer creates the MCP server and registers its tools.
func NewServer(cfg *config.Config, engine *search.Engine) *Server {
	s := &Server{
		cfg:    cfg,
		engine: engine,
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "filesearch-mcp-server",
			Version: version.Version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name: ToolName,
		Description: "Find files in the workspace by content or name. " +
			"q holds free text plus Key:Value filters: " + strings.Join(query.RecognizedKeys(), ", ") + ". " +
			"Example: 'hello world Location:/file/src WholeWord:true Exclude:vendor'.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"q": {
					Type:        "string",
					Description: "Search text and filters. Text matches file contents unless a Name or NameLower filter is given.",
				},
				"sort": {
					Type:        "string",
					Description: "Sort order: 'Path asc' (default), 'Path desc', 'NameLower asc' or 'NameLower desc'",
				},
				"rows": {
					Type:        "integer",
					Description: fmt.Sprintf("Page size (default %d, max %d)", s.cfg.Search.DefaultRows, s.cfg.Search.MaxRows),
				},
				"start": {
					Type:        "integer",
					Description: "Offset of the first result (default 0)",
				},
			},
			Required: []string{"q"},
		},
	}, s.handleFileSearch)
}

// Run serves the protocol on stdin and stdout until ctx ends or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	debug.LogMCP("Starting MCP server with stdio transport for %s\n", s.cfg.Workspace.Root)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) handleFileSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params FileSearchParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse(ToolName, fmt.Errorf("invalid parameters: %w", err))
	}

	rows := -1
	if params.Rows != nil {
		rows = *params.Rows
		if rows < 0 {
			return createErrorResponse(ToolName, fmt.Errorf("rows must not be negative, got %d", rows))
		}
	}

	resp, err := s.engine.Search(ctx, search.Request{
		Query: params.Q,
		Sort:  params.Sort,
		Rows:  rows,
		Start: params.Start,
	})
	if err != nil {
		debug.LogMCP("file_search q=%q failed: %v\n", params.Q, err)
		return createErrorResponse(ToolName, err)
	}

	result := FileSearchResult{
		Response:  resp.Body,
		ElapsedMs: resp.Elapsed.Milliseconds(),
	}
	for _, f := range resp.Ignored {
		result.Ignored = append(result.Ignored, IgnoredFilter{Key: f.Key, Value: f.Value, Suggestion: f.Suggestion})
	}
	for _, d := range resp.Diagnostics {
		result.Unreadable = append(result.Unreadable, d.Error())
	}
	return createJSONResponse(result)
}
