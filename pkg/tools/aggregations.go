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

// get_aggregations tool
func registerGetAggregations(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "get_aggregations",
		Description: "Get Amazon's auto-generated aggregations (people, things, locations, dates, types, clusters) with counts and identifiers.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"category": map[string]interface{}{
					"type":        "string",
					"description": "Aggregation category",
					"enum":        []string{"all", "allPeople", "people", "things", "dates", "locations", "types", "clusters"},
					"default":     "all",
				},
			},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Category string `json:"category"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}
		if params.Category == "" {
			params.Category = "all"
		}

		cacheKey := "get_aggregations:" + params.Category
		if cached, found := cacheStore.Get(cacheKey); found {
			return makeMCPResult(cached)
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		// outDir is always empty: the upstream disk write path creates a
		// directory named e.g. "things.json" and then fails to write into
		// it for every category except "all".
		raw, err := svc.Aggregations(ctx, params.Category, "")
		if err != nil {
			return nil, err
		}

		result := map[string]interface{}{
			"category":     params.Category,
			"aggregations": sanitizeAggregations(raw),
		}
		cacheStore.Set(cacheKey, result, cache.DefaultExpiration)

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

// sanitizeAggregations cleans whichever shape the aggregation endpoint
// returned: a list of entries for one category, a category-keyed map for
// "all".
func sanitizeAggregations(raw interface{}) interface{} {
	switch agg := raw.(type) {
	case []interface{}:
		return table.SanitizeAny(agg, "", 0)
	case map[string]interface{}:
		out := make(map[string]interface{}, len(agg))
		for category, entries := range agg {
			if list, ok := entries.([]interface{}); ok {
				out[category] = table.SanitizeAny(list, "", 0)
			} else {
				out[category] = entries
			}
		}
		return out
	default:
		return raw
	}
}

// list_people tool
func registerListPeople(s *server.MCPServer, provider SessionProvider, cacheStore *cache.Cache) {
	tool := mcp.Tool{
		Name:        "list_people",
		Description: "List all face clusters (people) recognized in the library, with name, cluster ID and photo count. Unnamed clusters are labeled \"(unnamed)\".",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		cacheKey := "list_people"
		if cached, found := cacheStore.Get(cacheKey); found {
			return makeMCPResult(cached)
		}

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		people, err := fetchPeople(ctx, svc)
		if err != nil {
			return nil, err
		}

		result := map[string]interface{}{
			"count":  len(people),
			"people": people,
		}
		cacheStore.Set(cacheKey, result, cache.DefaultExpiration)

		return makeMCPResult(result)
	}

	s.AddTool(tool, handler)
}

// search_by_person tool
func registerSearchByPerson(s *server.MCPServer, provider SessionProvider) {
	tool := mcp.Tool{
		Name:        "search_by_person",
		Description: "Search photos containing a specific person by name or cluster ID. Name matching is case-insensitive; unmatched input is treated as a cluster ID.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"person":      map[string]interface{}{"type": "string", "description": "Person's name or cluster ID"},
				"max_results": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": maxMaxResults, "default": 50},
			},
			Required: []string{"person"},
		},
	}

	handler := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var params struct {
			Person     string `json:"person"`
			MaxResults int    `json:"max_results"`
		}
		if err := parseArgs(request, &params); err != nil {
			return nil, err
		}
		if params.Person == "" {
			return nil, fmt.Errorf("person is required")
		}
		if params.MaxResults <= 0 {
			params.MaxResults = 50
		}
		limit := clampMaxResults(params.MaxResults)

		svc, err := provider.Session()
		if err != nil {
			return nil, err
		}

		clusterID := params.Person
		people, err := fetchPeople(ctx, svc)
		if err == nil {
			for _, person := range people {
				if name, _ := person["name"].(string); strings.EqualFold(name, params.Person) {
					if id, ok := person["cluster_id"].(string); ok {
						clusterID = id
					} else if id := person["cluster_id"]; id != nil {
						clusterID = fmt.Sprintf("%v", id)
					}
					break
				}
			}
		}

		rows, err := svc.Query(ctx, fmt.Sprintf("type:(PHOTOS) clusterId:(%s)", clusterID), limit)
		if err != nil {
			return nil, err
		}

		items := table.Sanitize(rows, "id", limit)
		return makeMCPResult(map[string]interface{}{
			"person":     params.Person,
			"cluster_id": clusterID,
			"count":      len(items),
			"items":      items,
		})
	}

	s.AddTool(tool, handler)
}

// fetchPeople maps the allPeople aggregation into plain person records
// sorted by photo count, largest cluster first.
func fetchPeople(ctx context.Context, svc sessionService) ([]table.Row, error) {
	raw, err := svc.Aggregations(ctx, "allPeople", "")
	if err != nil {
		return nil, err
	}

	entries, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected allPeople aggregation shape %T", raw)
	}

	people := make([]table.Row, 0, len(entries))
	for _, entry := range entries {
		m, ok := entry.(map[string]interface{})
		if !ok {
			continue
		}

		name := "(unnamed)"
		var nodeID interface{}
		if searchData, ok := m["searchData"].(map[string]interface{}); ok {
			if cn, _ := searchData["clusterName"].(string); cn != "" {
				name = cn
			}
			nodeID = searchData["nodeId"]
		}

		people = append(people, table.Row{
			"name":       name,
			"cluster_id": m["value"],
			"count":      m["count"],
			"node_id":    nodeID,
		})
	}

	sort.SliceStable(people, func(i, j int) bool {
		return asFloat(people[i]["count"]) > asFloat(people[j]["count"])
	})

	return people, nil
}

// sessionService is the subset of the client fetchPeople needs.
type sessionService interface {
	Aggregations(ctx context.Context, category, outDir string) (interface{}, error)
}

func asFloat(v interface{}) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
