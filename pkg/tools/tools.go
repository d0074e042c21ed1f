// Package tools is the MCP tool surface over an Amazon Photos account.
// Every tool is a thin mapping onto one client call: obtain the shared
// session, call, pass the tabular result through the sanitizer, return
// plain JSON. Compensation for known upstream defects (duplicate rows,
// NaN/NaT sentinels, non-tabular folder listings, the aggregation disk
// write) lives here and in the table package, not in the client.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickmn/go-cache"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazonphotos"
	"github.com/yourusername/mcp-amazon-photos/pkg/config"
	"github.com/yourusername/mcp-amazon-photos/pkg/table"
)

const (
	defaultMaxResults = 25
	maxMaxResults     = 200
)

// SessionProvider hands out the lazily-created photos session. The real
// implementation is amazonphotos.Accessor; tests inject a fake.
type SessionProvider interface {
	Session() (amazonphotos.Service, error)
}

// RegisterTools registers all tools with the MCP server
func RegisterTools(s *server.MCPServer, cfg *config.Config, provider SessionProvider, cacheStore *cache.Cache) {
	// Connectivity and account tools
	registerCheckConnection(s, provider)
	registerGetStorageUsage(s, provider, cacheStore)

	// Search tools
	registerSearchPhotos(s, provider, cacheStore)
	registerGetPhotos(s, provider, cacheStore)
	registerGetVideos(s, provider, cacheStore)
	registerSearchByDate(s, provider, cacheStore)
	registerSearchByThings(s, provider, cacheStore)

	// Aggregation and folder tools
	registerGetAggregations(s, provider, cacheStore)
	registerListFolders(s, provider, cacheStore)
	registerGetFolderTree(s, provider, cacheStore)
	registerListPeople(s, provider, cacheStore)
	registerSearchByPerson(s, provider)

	// Trash tools
	registerTrashItems(s, provider)
	registerRestoreItems(s, provider)
	registerListTrashed(s, provider)

	// Transfer tools
	registerUploadFile(s, provider)
	registerDownloadFiles(s, cfg, provider)

	// Duplicate analysis tools
	registerFindDuplicates(s, provider)
	registerTrashDuplicates(s, provider)
}

// check_connection tool
func registerCheckConnection(s *server.MCPServer, provider SessionProvider) {
	tool := mcp.Tool{
		Name:        "check_connection",
		Description: "Test the connection to Amazon Photos and return account storage usage. Use this first to verify cookies are valid and the API is accessible.",
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

		usage, err := svc.Usage(ctx)
		if err != nil {
			return nil, err
		}

		return makeMCPResult(map[string]interface{}{
			"status": "connected",
			"usage":  sanitizeRow(usage),
		})
	}

	s.AddTool(tool, handler)
}

// get_storage_usage tool
func registerGetStorageUsage(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "get_storage_usage",
		Description: "Get current Amazon Photos storage usage: plan details, space used, photo/video counts.",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cacheKey := "get_storage_usage"
		if cached, found := cacheStore.Get(cacheKey); found {
			return makeMCPResult(cached)
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		usage, err := svc.Usage(ctx)
		if err != nil {
			return nil, err
		}

		result := map[string]interface{}{
			"usage": sanitizeRow(usage),
		}
		cacheStore.Set(cacheKey, result, cache.DefaultExpiration)

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

// search_photos tool
func registerSearchPhotos(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name: "search_photos",
		Description: "Search the Amazon Photos library. The query supports Amazon's filter grammar, e.g. " +
			"type:(PHOTOS), things:(beach AND sunset), timeYear:(2024) timeMonth:(6), location:(USA#OH#Columbus), " +
			"extension:(jpg), name:(vacation*). Structured parameters are combined with the raw query.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query":       map[string]interface{}{"type": "string", "description": "Free text or raw filter expression"},
				"things":      map[string]interface{}{"type": "string", "description": "Thing labels, e.g. \"beach\" or \"dog AND park\""},
				"media_type":  map[string]interface{}{"type": "string", "enum": []string{"PHOTOS", "VIDEOS", "ALL"}, "default": "ALL"},
				"start_year":  map[string]interface{}{"type": "integer", "description": "Earliest year to include"},
				"end_year":    map[string]interface{}{"type": "integer", "description": "Latest year to include"},
				"max_results": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": maxMaxResults, "default": defaultMaxResults},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Query      string `json:"query"`
			Things     string `json:"things"`
			MediaType  string `json:"media_type"`
			StartYear  int    `json:"start_year"`
			EndYear    int    `json:"end_year"`
			MaxResults int    `json:"max_results"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}

		filters := buildSearchFilters(params.Query, params.Things, params.MediaType, params.StartYear, params.EndYear)
		limit := clampMaxResults(params.MaxResults)

		cacheKey := "search_photos:" + filters + fmt.Sprintf(":%d", limit)
		if cached, found := cacheStore.Get(cacheKey); found {
			return makeMCPResult(cached)
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		rows, err := svc.Query(ctx, filters, limit)
		if err != nil {
			return nil, err
		}

		items := table.Sanitize(rows, "id", limit)
		result := map[string]interface{}{
			"count": len(items),
			"items": items,
		}
		cacheStore.Set(cacheKey, result, cache.DefaultExpiration)

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

// get_photos tool
func registerGetPhotos(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	registerRecentMedia(s, provider, cacheStore, "get_photos",
		"Get recent photos from the Amazon Photos library.",
		func(ctx context.Context, svc amazonphotos.Service, limit int) ([]table.Row, error) {
			return svc.Photos(ctx, limit)
		})
}

// get_videos tool
func registerGetVideos(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	registerRecentMedia(s, provider, cacheStore, "get_videos",
		"Get recent videos from the Amazon Photos library.",
		func(ctx context.Context, svc amazonphotos.Service, limit int) ([]table.Row, error) {
			return svc.Videos(ctx, limit)
		})
}

func registerRecentMedia(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache, name, description string, fetch func(context.Context, amazonphotos.Service, int) ([]table.Row, error)) {
	tool := mcp.Tool{
		Name:        name,
		Description: description,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"max_results": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": maxMaxResults, "default": defaultMaxResults},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			MaxResults int `json:"max_results"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}

		limit := clampMaxResults(params.MaxResults)

		cacheKey := fmt.Sprintf("%s:%d", name, limit)
		if cached, found := cacheStore.Get(cacheKey); found {
			return makeMCPResult(cached)
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		rows, err := fetch(ctx, svc, limit)
		if err != nil {
			return nil, err
		}

		items := table.Sanitize(rows, "id", limit)
		result := map[string]interface{}{
			"count": len(items),
			"items": items,
		}
		cacheStore.Set(cacheKey, result, cache.DefaultExpiration)

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

// search_by_date tool
func registerSearchByDate(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "search_by_date",
		Description: "Search photos or videos taken on a specific year, month, or day.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"year":        map[string]interface{}{"type": "integer", "description": "Year to search, e.g. 2024"},
				"month":       map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 12},
				"day":         map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 31},
				"media_type":  map[string]interface{}{"type": "string", "enum": []string{"PHOTOS", "VIDEOS"}, "default": "PHOTOS"},
				"max_results": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": maxMaxResults, "default": defaultMaxResults},
			},
			Required: []string{"year"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Year       int    `json:"year"`
			Month      int    `json:"month"`
			Day        int    `json:"day"`
			MediaType  string `json:"media_type"`
			MaxResults int    `json:"max_results"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}
		if params.Year == 0 {
			return nil, fmt.Errorf("year is required")
		}
		if params.MediaType == "" {
			params.MediaType = "PHOTOS"
		}

		parts := []string{
			fmt.Sprintf("type:(%s)", params.MediaType),
			fmt.Sprintf("timeYear:(%d)", params.Year),
		}
		if params.Month > 0 {
			parts = append(parts, fmt.Sprintf("timeMonth:(%d)", params.Month))
		}
		if params.Day > 0 {
			parts = append(parts, fmt.Sprintf("timeDay:(%d)", params.Day))
		}
		filters := strings.Join(parts, " ")
		limit := clampMaxResults(params.MaxResults)

		cacheKey := "search_by_date:" + filters + fmt.Sprintf(":%d", limit)
		if cached, found := cacheStore.Get(cacheKey); found {
			return makeMCPResult(cached)
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		rows, err := svc.Query(ctx, filters, limit)
		if err != nil {
			return nil, err
		}

		items := table.Sanitize(rows, "id", limit)
		result := map[string]interface{}{
			"count": len(items),
			"items": items,
		}
		cacheStore.Set(cacheKey, result, cache.DefaultExpiration)

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

// search_by_things tool
func registerSearchByThings(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "search_by_things",
		Description: "Search photos by Amazon's auto-detected content labels, e.g. \"beach\", \"dog AND park\", \"sunset OR sunrise\".",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"things":      map[string]interface{}{"type": "string", "description": "Label expression to search for"},
				"media_type":  map[string]interface{}{"type": "string", "enum": []string{"PHOTOS", "VIDEOS"}, "default": "PHOTOS"},
				"max_results": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": maxMaxResults, "default": defaultMaxResults},
			},
			Required: []string{"things"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Things     string `json:"things"`
			MediaType  string `json:"media_type"`
			MaxResults int    `json:"max_results"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}
		if params.Things == "" {
			return nil, fmt.Errorf("things is required")
		}
		if params.MediaType == "" {
			params.MediaType = "PHOTOS"
		}

		filters := fmt.Sprintf("type:(%s) things:(%s)", params.MediaType, params.Things)
		limit := clampMaxResults(params.MaxResults)

		cacheKey := "search_by_things:" + filters + fmt.Sprintf(":%d", limit)
		if cached, found := cacheStore.Get(cacheKey); found {
			return makeMCPResult(cached)
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		rows, err := svc.Query(ctx, filters, limit)
		if err != nil {
			return nil, err
		}

		items := table.Sanitize(rows, "id", limit)
		result := map[string]interface{}{
			"count": len(items),
			"items": items,
		}
		cacheStore.Set(cacheKey, result, cache.DefaultExpiration)

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

// buildSearchFilters combines the structured search parameters with a raw
// query into one filter expression.
func buildSearchFilters(query, things, mediaType string, startYear, endYear int) string {
	var parts []string

	if mediaType != "" && mediaType != "ALL" {
		parts = append(parts, fmt.Sprintf("type:(%s)", mediaType))
	}
	if things != "" {
		parts = append(parts, fmt.Sprintf("things:(%s)", things))
	}
	if startYear > 0 {
		if endYear < startYear {
			endYear = startYear
		}
		years := make([]string, 0, endYear-startYear+1)
		for y := startYear; y <= endYear; y++ {
			years = append(years, fmt.Sprintf("%d", y))
		}
		parts = append(parts, fmt.Sprintf("timeYear:(%s)", strings.Join(years, " OR ")))
	}
	if query != "" {
		parts = append(parts, query)
	}

	return strings.Join(parts, " ")
}

func clampMaxResults(n int) int {
	if n <= 0 {
		return defaultMaxResults
	}
	if n > maxMaxResults {
		return maxMaxResults
	}
	return n
}

// parseArgs decodes the tool call arguments into params.
func parseArgs(request mcp.CallToolRequest, params interface{}) error {
	argBytes, ok := request.Params.Arguments.([]byte)
	if !ok {
		// Try to marshal if it's already a structured type
		argBytes, _ = json.Marshal(request.Params.Arguments)
	}
	if err := json.Unmarshal(argBytes, params); err != nil {
		return fmt.Errorf("invalid parameters: %w", err)
	}
	return nil
}

// sanitizeRow runs a single record through the sanitizer.
func sanitizeRow(row table.Row) table.Row {
	out := table.Sanitize([]table.Row{row}, "", 0)
	if len(out) == 0 {
		return table.Row{}
	}
	return out[0]
}

func makeMCPResult(data interface{}) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return mcp.NewToolResultText(string(content)), nil
}
