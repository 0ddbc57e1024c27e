package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeEmptyQuery    = -32001 // Query parameter is empty
)

const maxSearchLimit = 50

// handleSearchKB handles the search_kb tool invocation
func (s *Server) handleSearchKB(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param": "query",
		})
	}

	limit := getIntDefault(args, "limit", 3)
	if limit < 1 || limit > maxSearchLimit {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("limit must be between 1 and %d", maxSearchLimit), map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	results, err := s.engine.Search(ctx, query, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	items := make([]map[string]interface{}, len(results))
	for i, r := range results {
		items[i] = map[string]interface{}{
			"id":       r.Entry.ID,
			"category": r.Entry.Category,
			"question": r.Entry.Question,
			"answer":   r.Entry.Answer,
			"score":    r.Score,
			"method":   r.Method,
		}
	}

	response := map[string]interface{}{
		"query":   query,
		"total":   len(results),
		"results": items,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleKBStatus handles the kb_status tool invocation
func (s *Server) handleKBStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	count, err := s.engine.EntryCount()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read entry count", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"server_version": ServerVersion,
		"entry_count":    count,
		"initialized":    s.engine.IsInitialized(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// getIntDefault extracts an integer argument, tolerating the float64
// JSON numbers arrive as
func getIntDefault(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return def
	}
}

// formatJSON renders a response map as indented JSON
func formatJSON(v interface{}) string {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(raw)
}
