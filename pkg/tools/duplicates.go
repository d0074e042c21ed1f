package tools

import (
	"context"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/yourusername/mcp-amazon-photos/pkg/table"
)

const trashBatchSize = 100

// find_duplicates tool
func registerFindDuplicates(s *server.MCPServer, provider SessionProvider) {
	tool := mcp.Tool{
		Name:        "find_duplicates",
		Description: "Find exact duplicate files in the library by MD5 hash using the local metadata cache. Read-only analysis; modifies nothing.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"max_groups": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum duplicate groups to return",
					"default":     50,
				},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			MaxGroups int `json:"max_groups"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}
		if params.MaxGroups <= 0 {
			params.MaxGroups = 50
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		groups, err := duplicateGroups(ctx, svc)
		if err != nil {
			return nil, err
		}

		if len(groups) == 0 {
			return makeMCPResult(map[string]interface{}{
				"total_duplicate_files": 0,
				"removable_copies":      0,
				"groups":                []interface{}{},
			})
		}

		totalFiles := 0
		for _, g := range groups {
			totalFiles += len(g.files)
		}
		removable := totalFiles - len(groups)

		shown := groups
		if len(shown) > params.MaxGroups {
			shown = shown[:params.MaxGroups]
		}

		groupRows := make([]table.Row, len(shown))
		for i, g := range shown {
			files := make([]table.Row, len(g.files))
			for j, f := range g.files {
				files[j] = table.Row{
					"id":          f["id"],
					"name":        f["name"],
					"createdDate": f["createdDate"],
					"size":        f["size"],
				}
			}
			groupRows[i] = table.Row{
				"md5":   g.md5,
				"count": len(files),
				"files": files,
			}
		}

		return makeMCPResult(map[string]interface{}{
			"total_duplicate_files": totalFiles,
			"removable_copies":      removable,
			"total_groups":          len(groups),
			"groups_shown":          len(groupRows),
			"groups":                table.Sanitize(groupRows, "", 0),
		})
	}

	s.AddTool(tool, handler)
}

// trash_duplicates tool
func registerTrashDuplicates(s *server.MCPServer, provider SessionProvider) {
	tool := mcp.Tool{
		Name: "trash_duplicates",
		Description: "Trash duplicate copies, keeping the oldest file of each MD5 group. Defaults to a dry run; " +
			"set dry_run to false to actually trash. Trashed items are recoverable for 30 days.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"md5_hashes": map[string]interface{}{
					"type":        "array",
					"description": "Specific MD5 hashes to process; all duplicates when omitted",
					"items":       map[string]interface{}{"type": "string"},
				},
				"dry_run": map[string]interface{}{
					"type":        "boolean",
					"description": "Preview only, trash nothing",
					"default":     true,
				},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := struct {
			MD5Hashes []string `json:"md5_hashes"`
			DryRun    bool     `json:"dry_run"`
		}{DryRun: true}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		groups, err := duplicateGroups(ctx, svc)
		if err != nil {
			return nil, err
		}

		if len(params.MD5Hashes) > 0 {
			wanted := make(map[string]bool, len(params.MD5Hashes))
			for _, h := range params.MD5Hashes {
				wanted[h] = true
			}
			filtered := groups[:0]
			for _, g := range groups {
				if wanted[g.md5] {
					filtered = append(filtered, g)
				}
			}
			groups = filtered
		}

		action := "trashed"
		if params.DryRun {
			action = "dry_run"
		}

		if len(groups) == 0 {
			return makeMCPResult(map[string]interface{}{
				"action":           action,
				"groups_processed": 0,
				"files_kept":       0,
				"files_trashed":    0,
				"message":          "No duplicates found to process.",
			})
		}

		// Files within each group are sorted oldest first; keep the head,
		// trash the rest.
		var trashIDs []string
		var sample []table.Row
		kept := 0
		for _, g := range groups {
			kept++
			for _, f := range g.files[1:] {
				id, _ := f["id"].(string)
				if id == "" {
					continue
				}
				trashIDs = append(trashIDs, id)
				if len(sample) < 10 {
					sample = append(sample, table.Row{
						"id":   id,
						"name": f["name"],
						"md5":  g.md5,
					})
				}
			}
		}

		result := map[string]interface{}{
			"action":           action,
			"groups_processed": len(groups),
			"files_kept":       kept,
			"files_trashed":    len(trashIDs),
		}

		if params.DryRun {
			result["message"] = fmt.Sprintf("Would trash %d duplicate copies across %d groups. Set dry_run to false to execute.", len(trashIDs), len(groups))
			result["sample_trashed"] = table.Sanitize(sample, "", 0)
			return makeMCPResult(result)
		}

		for start := 0; start < len(trashIDs); start += trashBatchSize {
			end := start + trashBatchSize
			if end > len(trashIDs) {
				end = len(trashIDs)
			}
			if _, err := svc.Trash(ctx, trashIDs[start:end]); err != nil {
				return nil, fmt.Errorf("failed to trash batch starting at %d: %w", start, err)
			}
		}

		result["message"] = fmt.Sprintf("Trashed %d duplicate copies. Items are recoverable from trash for 30 days.", len(trashIDs))
		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

type duplicateGroup struct {
	md5   string
	files []table.Row
}

// duplicateGroups groups the cached node table by MD5, keeping only hashes
// with more than one file. Files within a group are sorted oldest first by
// createdDate; groups are sorted largest first.
func duplicateGroups(ctx context.Context, svc dbService) ([]duplicateGroup, error) {
	rows, err := svc.DB(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("local metadata cache is empty; refresh the library first")
	}

	byMD5 := make(map[string][]table.Row)
	for _, row := range rows {
		md5, _ := row["md5"].(string)
		if md5 == "" {
			continue
		}
		byMD5[md5] = append(byMD5[md5], row)
	}

	groups := make([]duplicateGroup, 0)
	for md5, files := range byMD5 {
		if len(files) < 2 {
			continue
		}
		// ISO-8601 dates sort correctly as strings; missing dates last.
		sort.SliceStable(files, func(i, j int) bool {
			di, _ := files[i]["createdDate"].(string)
			dj, _ := files[j]["createdDate"].(string)
			if di == "" {
				return false
			}
			if dj == "" {
				return true
			}
			return di < dj
		})
		groups = append(groups, duplicateGroup{md5: md5, files: files})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if len(groups[i].files) != len(groups[j].files) {
			return len(groups[i].files) > len(groups[j].files)
		}
		return groups[i].md5 < groups[j].md5
	})

	return groups, nil
}

// dbService is the subset of the client the duplicate tools need.
type dbService interface {
	DB(ctx context.Context) ([]table.Row, error)
}
