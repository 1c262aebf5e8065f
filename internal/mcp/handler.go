package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// --------------------------------------------------------------------------
// Parameter extraction helpers
// --------------------------------------------------------------------------

// requireString extracts a required string argument from the tool request.
func requireString(request mcp.CallToolRequest, key string) (string, error) {
	val, err := request.RequireString(key)
	if err != nil {
		return "", fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// requireFloat extracts a required number argument from the tool request.
func requireFloat(request mcp.CallToolRequest, key string) (float64, error) {
	val, err := request.RequireFloat(key)
	if err != nil {
		return 0, fmt.Errorf("missing required parameter %q", key)
	}
	return val, nil
}

// requireID extracts the required "id" argument as an int64.
func requireID(request mcp.CallToolRequest) (int64, error) {
	val, err := request.RequireFloat("id")
	if err != nil {
		return 0, fmt.Errorf("missing required parameter %q", "id")
	}
	id := int64(val)
	if id <= 0 {
		return 0, fmt.Errorf("invalid product id %v", val)
	}
	return id, nil
}

// optionalString extracts an optional string argument from the tool request.
func optionalString(request mcp.CallToolRequest, key string) string {
	return request.GetString(key, "")
}

// optionalFloat extracts an optional number argument, reporting whether it
// was present.
func optionalFloat(request mcp.CallToolRequest, key string) (float64, bool) {
	args := request.GetArguments()
	if args == nil {
		return 0, false
	}
	raw, ok := args[key]
	if !ok {
		return 0, false
	}
	f, ok := raw.(float64)
	if !ok {
		return 0, false
	}
	return f, true
}

// --------------------------------------------------------------------------
// Response builders
// --------------------------------------------------------------------------

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}
