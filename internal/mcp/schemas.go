package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// searchKBTool returns the tool definition for search_kb
func searchKBTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_kb",
		Description: "Search the local knowledge base with hybrid vector, full-text, and typo-tolerant matching",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language or keywords)",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return (1-50)",
					"default":     3,
					"minimum":     1,
					"maximum":     50,
				},
			},
			Required: []string{"query"},
		},
	}
}

// kbStatusTool returns the tool definition for kb_status
func kbStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "kb_status",
		Description: "Report knowledge base size and engine state",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
