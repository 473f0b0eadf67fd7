package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/filesearch/internal/errors"
	"github.com/standardbeagle/filesearch/internal/query"
)

// createJSONResponse creates a standardized JSON response for MCP tools
func createJSONResponse(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response data: %v", err)
	}

	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: string(content)},
		},
	}, nil
}

// createErrorResponse reports a tool failure inside the result with IsError
// set, so the caller can see the message and correct its arguments.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	errorData := map[string]interface{}{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	}

	var pe *errors.ParseError
	var se *errors.ScopeError
	switch {
	case stderrors.As(err, &pe):
		errorData["type"] = string(pe.Type)
		errorData["key"] = pe.Key
		errorData["help"] = parseHelp(pe.Key)
	case stderrors.As(err, &se):
		errorData["type"] = string(se.Type)
		errorData["location"] = se.Location
		errorData["help"] = "Location must name a directory inside the workspace, e.g. Location:/file/src"
	case stderrors.Is(err, context.DeadlineExceeded):
		errorData["type"] = "timeout"
		errorData["help"] = "narrow the search with Location or Exclude"
	}

	response, marshalErr := createJSONResponse(errorData)
	if marshalErr != nil {
		return nil, marshalErr
	}
	response.IsError = true
	return response, nil
}

func parseHelp(key string) string {
	switch key {
	case "sort":
		return "sort is '<Path|NameLower> [asc|desc]'"
	case "rows", "start":
		return key + " must be a non-negative integer"
	case "RegEx":
		return "the search text is not a valid regular expression; drop RegEx:true to search literally"
	default:
		return "filters are Key:Value pairs; boolean filters take true or false. Keys: " +
			strings.Join(query.RecognizedKeys(), ", ")
	}
}
