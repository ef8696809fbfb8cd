package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	apperrors "github.com/driftwatch/server/internal/errors"
	"github.com/driftwatch/server/internal/tracker"
)

const timeFormat = time.RFC3339

// errorResult renders an application error as a failed MCP result
func errorResult(err error) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(err.Error()), nil
}

// notTrackedResult is the shared failure for tools that need a tracked path
func notTrackedResult(path string) (*mcp.CallToolResult, error) {
	return errorResult(apperrors.NotTracked(path))
}

// marshalSuccessResponse marshals a response map to JSON and returns a
// successful MCP result
func marshalSuccessResponse(response map[string]interface{}) (*mcp.CallToolResult, error) {
	jsonData, err := json.Marshal(response)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}

// fileStateResponse renders a tracker's observable state
func fileStateResponse(path string, tr *tracker.Tracker) map[string]interface{} {
	return map[string]interface{}{
		"status":        "success",
		"path":          path,
		"mode":          tr.Mode().String(),
		"sync_state":    tr.State().String(),
		"dirty":         tr.IsDirty(),
		"base_hash":     tr.Base().Hash(),
		"local_hash":    tr.Local().Hash(),
		"disk_hash":     tr.Disk().Hash(),
		"disk_modified": tr.DiskMtime().Format(timeFormat),
	}
}
