package tools

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/mcp-amazon-photos/pkg/config"
	"github.com/yourusername/mcp-amazon-photos/pkg/table"
)

// upload_file tool
func registerUploadFile(s *server.MCPServer, provider SessionProvider) {
	tool := mcp.Tool{
		Name:        "upload_file",
		Description: "Upload a single file to Amazon Photos. Re-uploading an identical file is deduplicated server-side by MD5.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"file_path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the file to upload",
				},
			},
			Required: []string{"file_path"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			FilePath string `json:"file_path"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}
		if params.FilePath == "" {
			return nil, fmt.Errorf("file_path is required")
		}

		info, err := os.Stat(params.FilePath)
		if err != nil {
			return nil, fmt.Errorf("file not found: %s", params.FilePath)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("not a file: %s", params.FilePath)
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		// The underlying upload walks a directory, not a single file, so
		// the file is staged through a temp directory that is removed on
		// every exit path.
		stagingDir, err := os.MkdirTemp("", "ap-upload-")
		if err != nil {
			return nil, fmt.Errorf("failed to create staging dir: %w", err)
		}
		defer func() {
			if err := os.RemoveAll(stagingDir); err != nil {
				log.Warn().Err(err).Str("dir", stagingDir).Msg("Failed to clean up upload staging dir")
			}
		}()

		staged := filepath.Join(stagingDir, filepath.Base(params.FilePath))
		if err := copyFile(params.FilePath, staged); err != nil {
			return nil, fmt.Errorf("failed to stage %s: %w", params.FilePath, err)
		}

		rows, err := svc.Upload(ctx, stagingDir)
		if err != nil {
			return nil, err
		}

		return makeMCPResult(map[string]interface{}{
			"status":  "uploaded",
			"file":    filepath.Base(params.FilePath),
			"results": table.Sanitize(rows, "id", 0),
		})
	}

	s.AddTool(tool, handler)
}

// download_files tool
func registerDownloadFiles(s *server.MCPServer, cfg *config.Config, provider SessionProvider) {
	tool := mcp.Tool{
		Name:        "download_files",
		Description: "Download files from Amazon Photos by node ID into the configured downloads directory.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"node_ids": map[string]interface{}{
					"type":        "array",
					"description": "Node IDs to download",
					"items":       map[string]interface{}{"type": "string"},
				},
				"output_dir": map[string]interface{}{
					"type":        "string",
					"description": "Target directory (defaults to the configured downloads location)",
				},
			},
			Required: []string{"node_ids"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			NodeIDs   []string `json:"node_ids"`
			OutputDir string   `json:"output_dir"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}
		if len(params.NodeIDs) == 0 {
			return nil, fmt.Errorf("node_ids is required")
		}

		outputDir := params.OutputDir
		if outputDir == "" {
			// Fixed default location, never the process working directory.
			outputDir = cfg.DownloadDir
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		result, err := svc.Download(ctx, params.NodeIDs, outputDir)
		if err != nil {
			return nil, err
		}

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
