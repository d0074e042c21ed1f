package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazonphotos"
	"github.com/yourusername/mcp-amazon-photos/pkg/table"
)

const trashedListLimit = 100

// trash_items tool
func registerTrashItems(s *server.MCPServer, provider SessionProvider) {
	registerTrashOp(s, provider, "trash_items",
		"Move items to the Amazon Photos trash. Trashed items are recoverable for 30 days.",
		func(ctx context.Context, svc amazonphotos.Service, ids []string) (table.Row, error) {
			return svc.Trash(ctx, ids)
		})
}

// restore_items tool
func registerRestoreItems(s *server.MCPServer, provider SessionProvider) {
	registerTrashOp(s, provider, "restore_items",
		"Restore items from the trash back to the library.",
		func(ctx context.Context, svc amazonphotos.Service, ids []string) (table.Row, error) {
			return svc.Restore(ctx, ids)
		})
}

func registerTrashOp(s *server.MCPServer, provider SessionProvider, name, description string, op func(context.Context, amazonphotos.Service, []string) (table.Row, error)) {
	tool := mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"node_ids": map[string]interface{}{
					"type":        "array",
					"description": "Node IDs to operate on",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"node_ids"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			NodeIDs []string `json:"node_ids"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}
		if len(params.NodeIDs) == 0 {
			return nil, fmt.Errorf("node_ids is required")
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		result, err := op(ctx, svc, params.NodeIDs)
		if err != nil {
			return nil, err
		}

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

// list_trashed tool
func registerListTrashed(s *server.MCPServer, provider SessionProvider) {
	tool := mcp.Tool{
		Name:        "list_trashed",
		Description: "List items currently in the Amazon Photos trash, with metadata and node IDs.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		rows, err := svc.Trashed(ctx, trashedListLimit)
		if err != nil {
			return nil, err
		}

		items := table.Sanitize(rows, "id", trashedListLimit)
		return makeMCPResult(map[string]interface{}{
			"count": len(items),
			"items": items,
		})
	}

	s.AddTool(tool, handler)
}
