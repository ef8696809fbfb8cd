// Package handlers registers the MCP tools that expose the sync engine
package handlers

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cast"

	"github.com/driftwatch/server/internal/content"
	apperrors "github.com/driftwatch/server/internal/errors"
	"github.com/driftwatch/server/internal/store"
	syncengine "github.com/driftwatch/server/internal/sync"
)

// RegisterSyncTools registers all file-sync tools with the MCP server
func RegisterSyncTools(srv *server.MCPServer, coord *syncengine.Coordinator, acc store.Accessor) {
	trackFileTool := mcp.NewTool("track_file",
		mcp.WithDescription("Start tracking a file for external changes"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Store-relative path of the file")),
		mcp.WithBoolean("reactive", mcp.Description("Auto-reload external changes when there are no local edits")),
		mcp.WithString("content", mcp.Description("Seed the tracker with this content instead of reading the store")),
	)
	srv.AddTool(trackFileTool, handleTrackFile(coord))

	untrackFileTool := mcp.NewTool("untrack_file",
		mcp.WithDescription("Stop tracking a file"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Store-relative path of the file")),
	)
	srv.AddTool(untrackFileTool, handleUntrackFile(coord))

	fileStatusTool := mcp.NewTool("file_status",
		mcp.WithDescription("Get the sync state of a tracked file"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Store-relative path of the file")),
	)
	srv.AddTool(fileStatusTool, handleFileStatus(coord))

	listTrackedTool := mcp.NewTool("list_tracked",
		mcp.WithDescription("List all tracked files and their sync states"),
	)
	srv.AddTool(listTrackedTool, handleListTracked(coord))

	editFileTool := mcp.NewTool("edit_file",
		mcp.WithDescription("Replace the local (in-memory) content of a tracked file"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Store-relative path of the file")),
		mcp.WithString("content", mcp.Required(), mcp.Description("New local content")),
	)
	srv.AddTool(editFileTool, handleEditFile(coord))

	saveFileTool := mcp.NewTool("save_file",
		mcp.WithDescription("Write a tracked file's local content to the store"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Store-relative path of the file")),
	)
	srv.AddTool(saveFileTool, handleSaveFile(coord, acc))

	readFileTool := mcp.NewTool("read_file",
		mcp.WithDescription("Read a file's current content from the store"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Store-relative path of the file")),
	)
	srv.AddTool(readFileTool, handleReadFile(acc))

	resolveConflictTool := mcp.NewTool("resolve_conflict",
		mcp.WithDescription("Resolve a sync conflict on a tracked file"),
		mcp.WithString("path", mcp.Required(), mcp.Description("Store-relative path of the file")),
		mcp.WithString("resolution", mcp.Required(),
			mcp.Description("Resolution method: 'keep_local' or 'keep_disk'")),
	)
	srv.AddTool(resolveConflictTool, handleResolveConflict(coord, acc))

	log.Info().Msg("Sync tools registered")
}

// handleTrackFile handles the track_file tool
func handleTrackFile(coord *syncengine.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("missing 'path' parameter: %v", err)))
		}

		opts := syncengine.TrackOptions{
			Reactive: cast.ToBool(request.GetArguments()["reactive"]),
		}
		if raw, ok := request.GetArguments()["content"]; ok {
			seed := content.FromString(cast.ToString(raw))
			opts.InitialContent = &seed
		}

		tr, err := coord.Track(ctx, path, opts)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Failed to track '%s': %v", path, err)), nil
		}

		return marshalSuccessResponse(fileStateResponse(path, tr))
	}
}

// handleUntrackFile handles the untrack_file tool
func handleUntrackFile(coord *syncengine.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("missing 'path' parameter: %v", err)))
		}

		if _, ok := coord.Tracked(path); !ok {
			return notTrackedResult(path)
		}
		coord.Untrack(path)

		return marshalSuccessResponse(map[string]interface{}{
			"status": "success",
			"path":   path,
		})
	}
}

// handleFileStatus handles the file_status tool
func handleFileStatus(coord *syncengine.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("missing 'path' parameter: %v", err)))
		}

		tr, ok := coord.Tracked(path)
		if !ok {
			return notTrackedResult(path)
		}

		return marshalSuccessResponse(fileStateResponse(path, tr))
	}
}

// handleListTracked handles the list_tracked tool
func handleListTracked(coord *syncengine.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		paths := coord.TrackedPaths()

		files := make([]map[string]interface{}, 0, len(paths))
		for _, path := range paths {
			if tr, ok := coord.Tracked(path); ok {
				files = append(files, fileStateResponse(path, tr))
			}
		}

		return marshalSuccessResponse(map[string]interface{}{
			"status": "success",
			"count":  len(files),
			"files":  files,
		})
	}
}

// handleEditFile handles the edit_file tool
func handleEditFile(coord *syncengine.Coordinator) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("missing 'path' parameter: %v", err)))
		}
		text, err := request.RequireString("content")
		if err != nil {
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("missing 'content' parameter: %v", err)))
		}

		tr, ok := coord.Tracked(path)
		if !ok {
			return notTrackedResult(path)
		}

		tr.SetLocalContent(content.FromString(text))
		return marshalSuccessResponse(fileStateResponse(path, tr))
	}
}

// handleSaveFile handles the save_file tool. The write is declared via
// BeginWrite first so the resulting store notification is classified as
// self-inflicted instead of an external change.
func handleSaveFile(coord *syncengine.Coordinator, acc store.Accessor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("missing 'path' parameter: %v", err)))
		}

		tr, ok := coord.Tracked(path)
		if !ok {
			return notTrackedResult(path)
		}

		local := tr.Local()
		coord.BeginWrite(path, local.Hash())
		mtime, err := acc.Write(ctx, path, local.Bytes())
		if err != nil {
			return errorResult(apperrors.StoreError("write", err).WithContext("path", path))
		}
		tr.MarkSynced(local, mtime)

		return marshalSuccessResponse(fileStateResponse(path, tr))
	}
}

// handleReadFile handles the read_file tool
func handleReadFile(acc store.Accessor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("missing 'path' parameter: %v", err)))
		}

		data, mtime, err := acc.Read(ctx, path)
		if err != nil {
			return errorResult(apperrors.StoreError("read", err).WithContext("path", path))
		}

		h := content.FromBytes(data)
		return marshalSuccessResponse(map[string]interface{}{
			"status":   "success",
			"path":     path,
			"content":  h.String(),
			"hash":     h.Hash(),
			"modified": mtime.Format(timeFormat),
		})
	}
}

// handleResolveConflict handles the resolve_conflict tool
func handleResolveConflict(coord *syncengine.Coordinator, acc store.Accessor) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		path, err := request.RequireString("path")
		if err != nil {
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("missing 'path' parameter: %v", err)))
		}
		resolution, err := request.RequireString("resolution")
		if err != nil {
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("missing 'resolution' parameter: %v", err)))
		}

		tr, ok := coord.Tracked(path)
		if !ok {
			return notTrackedResult(path)
		}

		switch resolution {
		case "keep_local":
			local := tr.Local()
			coord.BeginWrite(path, local.Hash())
			mtime, err := acc.Write(ctx, path, local.Bytes())
			if err != nil {
				return errorResult(apperrors.StoreError("write", err).WithContext("path", path))
			}
			tr.MarkSynced(local, mtime)

		case "keep_disk":
			tr.MarkSynced(tr.Disk(), tr.DiskMtime())

		default:
			return errorResult(apperrors.InvalidInput(fmt.Sprintf("resolution '%s': use 'keep_local' or 'keep_disk'", resolution)))
		}

		log.Info().Str("path", path).Str("resolution", resolution).Msg("Conflict resolved")
		return marshalSuccessResponse(fileStateResponse(path, tr))
	}
}
