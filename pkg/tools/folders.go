package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickmn/go-cache"
	"github.com/yourusername/mcp-amazon-photos/pkg/table"
)

// list_folders tool
func registerListFolders(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "list_folders",
		Description: "List all folders in the Amazon Photos library with names and node IDs.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cacheKey := "list_folders"
		if cached, found := cacheStore.Get(cacheKey); found {
			return makeMCPResult(cached)
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		raw, err := svc.Folders(ctx)
		if err != nil {
			return nil, err
		}

		// The upstream folder listing is sometimes a plain list rather
		// than a row set; SanitizeAny absorbs either shape.
		folders := table.SanitizeAny(raw, "id", maxMaxResults)
		result := map[string]interface{}{
			"count":   len(folders),
			"folders": folders,
		}
		cacheStore.Set(cacheKey, result, cache.DefaultExpiration)

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

// get_folder_tree tool
func registerGetFolderTree(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "get_folder_tree",
		Description: "Display the folder hierarchy of the Amazon Photos library as an indented tree.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cacheKey := "get_folder_tree"
		if cached, found := cacheStore.Get(cacheKey); found {
			if tree, ok := cached.(string); ok {
				return mcp.NewToolResultText(tree), nil
			}
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		raw, err := svc.Folders(ctx)
		if err != nil {
			return nil, err
		}

		tree := renderFolderTree(table.SanitizeAny(raw, "id", 0))
		if tree == "" {
			tree = "No folder tree available."
		}
		cacheStore.Set(cacheKey, tree, cache.DefaultExpiration)

		return mcp.NewToolResultText(tree), nil
	}

	s.AddTool(tool, handler)
}

// renderFolderTree formats folder rows as an indented hierarchy. Parent
// links come from the node's "parents" list; folders whose parent is not
// in the listing are treated as roots. Children are sorted by name.
func renderFolderTree(folders []table.Row) string {
	type folder struct {
		id       string
		name     string
		children []*folder
	}

	byID := make(map[string]*folder, len(folders))
	order := make([]*folder, 0, len(folders))
	parents := make(map[string]string)

	for _, row := range folders {
		id, _ := row["id"].(string)
		if id == "" {
			continue
		}
		name, _ := row["name"].(string)
		if name == "" {
			name = id
		}
		f := &folder{id: id, name: name}
		byID[id] = f
		order = append(order, f)

		if list, ok := row["parents"].([]interface{}); ok && len(list) > 0 {
			if parent, ok := list[0].(string); ok {
				parents[id] = parent
			}
		}
	}

	var roots []*folder
	for _, f := range order {
		if parent, ok := byID[parents[f.id]]; ok {
			parent.children = append(parent.children, f)
		} else {
			roots = append(roots, f)
		}
	}

	var b strings.Builder
	var walk func(f *folder, depth int)
	walk = func(f *folder, depth int) {
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth), f.name)
		sort.Slice(f.children, func(i, j int) bool {
			return f.children[i].name < f.children[j].name
		})
		for _, child := range f.children {
			walk(child, depth+1)
		}
	}

	sort.Slice(roots, func(i, j int) bool {
		return roots[i].name < roots[j].name
	})
	for _, root := range roots {
		walk(root, 0)
	}

	return b.String()
}
