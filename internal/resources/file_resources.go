// Package resources registers the MCP resources exposing tracked-file state
package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"

	syncengine "github.com/driftwatch/server/internal/sync"
	"github.com/driftwatch/server/internal/tracker"
)

// RegisterFileResources registers the tracked-file resources with the MCP server
func RegisterFileResources(srv *server.MCPServer, coord *syncengine.Coordinator) {
	registerTrackedSetResource(srv, coord)
	registerFileStateTemplate(srv, coord)

	log.Info().Msg("File resources registered")
}

// registerTrackedSetResource registers the listing of all tracked files
func registerTrackedSetResource(srv *server.MCPServer, coord *syncengine.Coordinator) {
	trackedResource := mcp.NewResource(
		"sync://files",
		"Tracked Files",
		mcp.WithResourceDescription("All tracked files and their sync states"),
		mcp.WithMIMEType("application/json"),
	)

	srv.AddResource(trackedResource, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		paths := coord.TrackedPaths()
		sort.Strings(paths)

		files := make([]map[string]interface{}, 0, len(paths))
		for _, path := range paths {
			tr, ok := coord.Tracked(path)
			if !ok {
				continue
			}
			files = append(files, trackerState(path, tr))
		}

		jsonData, err := json.Marshal(map[string]interface{}{
			"count": len(files),
			"files": files,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to marshal tracked files: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(jsonData),
			},
		}, nil
	})
}

// registerFileStateTemplate registers the per-file state resource
func registerFileStateTemplate(srv *server.MCPServer, coord *syncengine.Coordinator) {
	fileTemplate := mcp.NewResourceTemplate(
		"sync://files/{path}",
		"Tracked File State",
		mcp.WithTemplateDescription("Full sync state of one tracked file"),
		mcp.WithTemplateMIMEType("application/json"),
	)

	srv.AddResourceTemplate(fileTemplate, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		path := strings.TrimPrefix(request.Params.URI, "sync://files/")
		if path == "" || path == request.Params.URI {
			return nil, fmt.Errorf("invalid resource URI: %s", request.Params.URI)
		}

		tr, ok := coord.Tracked(path)
		if !ok {
			return nil, fmt.Errorf("path '%s' is not tracked", path)
		}

		state := trackerState(path, tr)
		state["base_content"] = tr.Base().String()
		state["local_content"] = tr.Local().String()
		state["disk_content"] = tr.Disk().String()

		jsonData, err := json.Marshal(state)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal file state: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      request.Params.URI,
				MIMEType: "application/json",
				Text:     string(jsonData),
			},
		}, nil
	})
}

func trackerState(path string, tr *tracker.Tracker) map[string]interface{} {
	return map[string]interface{}{
		"path":          path,
		"mode":          tr.Mode().String(),
		"sync_state":    tr.State().String(),
		"dirty":         tr.IsDirty(),
		"disk_modified": tr.DiskMtime().Format(time.RFC3339),
	}
}
