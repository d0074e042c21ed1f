package tools

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mcp-amazon-photos/pkg/table"
)

func TestListFoldersAbsorbsRowSet(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		folders: func(ctx context.Context) (any, error) {
			return []any{
				map[string]any{"id": "f1", "name": "Vacation"},
				map[string]any{"id": "f1", "name": "Vacation"},
				map[string]any{"id": "f2", "name": "Pets"},
			}, nil
		},
	}

	result, errMsg := callTool(t, newToolServer(t, svc), "list_folders", nil)

	require.Empty(t, errMsg)
	assert.Equal(t, 2.0, result["count"])

	folders, ok := result["folders"].([]any)
	require.True(t, ok)
	require.Len(t, folders, 2)
	assert.Equal(t, "Vacation", folders[0].(map[string]any)["name"])
}

func TestListFoldersAbsorbsPlainList(t *testing.T) {
	t.Parallel()

	// Some accounts return bare values instead of folder records.
	svc := &fakeService{
		folders: func(ctx context.Context) (any, error) {
			return []any{"Vacation", "Pets"}, nil
		},
	}

	result, errMsg := callTool(t, newToolServer(t, svc), "list_folders", nil)

	require.Empty(t, errMsg)
	assert.Equal(t, 2.0, result["count"])

	folders, ok := result["folders"].([]any)
	require.True(t, ok)
	assert.Equal(t, "Vacation", folders[0].(map[string]any)["value"])
}

func TestGetFolderTreeRendersHierarchy(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		folders: func(ctx context.Context) (any, error) {
			return []any{
				map[string]any{"id": "root", "name": "Photos"},
				map[string]any{"id": "c2", "name": "Winter", "parents": []any{"root"}},
				map[string]any{"id": "c1", "name": "Summer", "parents": []any{"root"}},
				map[string]any{"id": "g1", "name": "Beach", "parents": []any{"c1"}},
			}, nil
		},
	}

	result, errMsg := callTool(t, newToolServer(t, svc), "get_folder_tree", nil)

	require.Empty(t, errMsg)
	assert.Equal(t, "Photos\n  Summer\n    Beach\n  Winter\n", result["text"])
}

func TestGetFolderTreeEmptyLibrary(t *testing.T) {
	t.Parallel()

	svc := &fakeService{
		folders: func(ctx context.Context) (any, error) {
			return []any{}, nil
		},
	}

	result, errMsg := callTool(t, newToolServer(t, svc), "get_folder_tree", nil)

	require.Empty(t, errMsg)
	assert.Equal(t, "No folder tree available.", result["text"])
}

func TestRenderFolderTreeOrphanParentBecomesRoot(t *testing.T) {
	t.Parallel()

	tree := renderFolderTree([]table.Row{
		{"id": "a", "name": "Stranded", "parents": []interface{}{"not-in-listing"}},
	})

	assert.Equal(t, "Stranded\n", tree)
}

func TestRenderFolderTreeFallsBackToID(t *testing.T) {
	t.Parallel()

	tree := renderFolderTree([]table.Row{{"id": "folder-123"}})

	assert.Equal(t, "folder-123\n", tree)
}
