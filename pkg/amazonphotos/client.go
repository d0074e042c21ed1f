// Package amazonphotos is a minimal client for the Amazon Photos (Drive v1)
// API, authenticated with browser session cookies. It stands in for the
// unofficial client library the server wraps: it owns the HTTP session, the
// local node metadata cache, and nothing else. Known upstream response
// defects (duplicate rows, inconsistent folder shapes) are not fixed here;
// the tool surface compensates for them via the table package.
package amazonphotos

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/mcp-amazon-photos/pkg/cookies"
	"github.com/yourusername/mcp-amazon-photos/pkg/table"
	"golang.org/x/time/rate"
)

const (
	// DefaultDriveURL is the metadata API base for .com accounts.
	DefaultDriveURL = "https://www.amazon.com/drive/v1"
	// DefaultContentURL is the content API base for .com accounts.
	DefaultContentURL = "https://content-na.drive.amazonaws.com/cdproxy"

	refreshPageSize = 200
)

// Client talks to the Amazon Photos API using session cookies.
type Client struct {
	driveURL     string
	contentURL   string
	cookieHeader string
	httpClient   *http.Client
	rateLimiter  *rate.Limiter
	nodes        *NodeCache
}

var _ Service = (*Client)(nil)

// NewClient creates a client from normalized cookies and opens the local
// node metadata cache.
func NewClient(opts Options) (*Client, error) {
	if opts.DriveURL == "" {
		opts.DriveURL = DefaultDriveURL
	}
	if opts.ContentURL == "" {
		opts.ContentURL = DefaultContentURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	nodes, err := OpenNodeCache(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open node cache: %w", err)
	}

	return &Client{
		driveURL:     opts.DriveURL,
		contentURL:   opts.ContentURL,
		cookieHeader: cookies.Header(opts.Cookies),
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				MaxConnsPerHost: 10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
		rateLimiter: rate.NewLimiter(rate.Every(100*time.Millisecond), 10), // 10 req/sec
		nodes:       nodes,
	}, nil
}

// Ping checks that Amazon accepts the session cookies.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.Usage(ctx)
	return err
}

// Usage returns the account storage usage summary.
func (c *Client) Usage(ctx context.Context) (table.Row, error) {
	endpoint := fmt.Sprintf("%s/account/usage", c.driveURL)

	var usage map[string]any
	if err := c.get(ctx, endpoint, &usage); err != nil {
		return nil, err
	}

	return table.Row(usage), nil
}

// Query runs a filtered search against the metadata index and merges the
// returned nodes into the local cache.
func (c *Client) Query(ctx context.Context, filters string, limit int) ([]table.Row, error) {
	endpoint := fmt.Sprintf("%s/search", c.driveURL)

	query := url.Values{}
	query.Set("asset", "ALL")
	query.Set("searchContext", "customer")
	query.Set("tempLink", "false")
	if filters != "" {
		query.Set("filters", filters)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	rows, _, err := c.searchPage(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	c.cacheNodes(rows)
	return rows, nil
}

// Photos returns recent photos.
func (c *Client) Photos(ctx context.Context, limit int) ([]table.Row, error) {
	return c.Query(ctx, "type:(PHOTOS)", limit)
}

// Videos returns recent videos.
func (c *Client) Videos(ctx context.Context, limit int) ([]table.Row, error) {
	return c.Query(ctx, "type:(VIDEOS)", limit)
}

// Aggregations returns Amazon's auto-generated groupings for the category.
// When outDir is non-empty the raw payload is also written to
// <category>.json under it; callers pass "" to suppress disk output, which
// is required for every category other than "all" because the upstream
// write path creates a directory where the file should go.
func (c *Client) Aggregations(ctx context.Context, category, outDir string) (any, error) {
	endpoint := fmt.Sprintf("%s/search", c.driveURL)

	query := url.Values{}
	query.Set("aggregations", "true")
	query.Set("aggregationContext", "all")
	query.Set("category", category)
	query.Set("limit", "1")

	fullURL := fmt.Sprintf("%s?%s", endpoint, query.Encode())

	var payload map[string]any
	if err := c.get(ctx, fullURL, &payload); err != nil {
		return nil, err
	}

	var result any = payload
	if agg, ok := payload["aggregations"]; ok {
		result = agg
	}
	if category != "all" {
		// A single category comes back keyed under its own name.
		if m, ok := result.(map[string]any); ok {
			if entries, ok := m[category]; ok {
				result = entries
			}
		}
	}

	if outDir != "" {
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to encode aggregations: %w", err)
		}
		path := filepath.Join(outDir, category+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	return result, nil
}

// Folders lists the account's folders. The response shape is passed through
// as-is: depending on the account it is either a row set or a plain list.
func (c *Client) Folders(ctx context.Context) (any, error) {
	endpoint := fmt.Sprintf("%s/nodes", c.driveURL)

	query := url.Values{}
	query.Set("filters", "kind:FOLDER")
	query.Set("limit", "200")

	fullURL := fmt.Sprintf("%s?%s", endpoint, query.Encode())

	var payload any
	if err := c.get(ctx, fullURL, &payload); err != nil {
		return nil, err
	}

	if m, ok := payload.(map[string]any); ok {
		if data, ok := m["data"]; ok {
			return data, nil
		}
	}
	return payload, nil
}

// Trash moves the nodes to the account trash.
func (c *Client) Trash(ctx context.Context, nodeIDs []string) (table.Row, error) {
	return c.bulkTrashOp(ctx, nodeIDs, "trashed", func(id string) (string, string) {
		return http.MethodPut, fmt.Sprintf("%s/trash/%s", c.driveURL, url.PathEscape(id))
	})
}

// Restore moves the nodes from the trash back into the library.
func (c *Client) Restore(ctx context.Context, nodeIDs []string) (table.Row, error) {
	return c.bulkTrashOp(ctx, nodeIDs, "restored", func(id string) (string, string) {
		return http.MethodPost, fmt.Sprintf("%s/trash/%s/restore", c.driveURL, url.PathEscape(id))
	})
}

func (c *Client) bulkTrashOp(ctx context.Context, nodeIDs []string, verb string, endpointFor func(id string) (string, string)) (table.Row, error) {
	succeeded := make([]string, 0, len(nodeIDs))
	failed := make([]table.Row, 0)

	for _, id := range nodeIDs {
		method, endpoint := endpointFor(id)
		body := map[string]any{"recurse": "true"}
		if err := c.request(ctx, method, endpoint, body, nil); err != nil {
			var authErr *AuthError
			if errors.As(err, &authErr) {
				return nil, err
			}
			failed = append(failed, table.Row{"id": id, "error": err.Error()})
			continue
		}
		succeeded = append(succeeded, id)
	}

	result := table.Row{
		"status": verb,
		"count":  len(succeeded),
	}
	if len(failed) > 0 {
		result["status"] = "partial"
		result["failed"] = failed
	}
	return result, nil
}

// Trashed lists the nodes currently in the trash.
func (c *Client) Trashed(ctx context.Context, limit int) ([]table.Row, error) {
	endpoint := fmt.Sprintf("%s/trash", c.driveURL)

	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	rows, _, err := c.searchPage(ctx, endpoint, query)
	return rows, err
}

// Upload uploads every regular file under dir to the content endpoint.
func (c *Client) Upload(ctx context.Context, dir string) ([]table.Row, error) {
	var results []table.Row

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		row, err := c.uploadFile(ctx, path)
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", path, err)
		}
		results = append(results, row)
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.cacheNodes(results)
	return results, nil
}

func (c *Client) uploadFile(ctx context.Context, path string) (table.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	metadata, err := json.Marshal(map[string]any{
		"name": filepath.Base(path),
		"kind": "FILE",
	})
	if err != nil {
		return nil, err
	}
	if err := writer.WriteField("metadata", string(metadata)); err != nil {
		return nil, err
	}

	part, err := writer.CreateFormFile("content", filepath.Base(path))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/nodes?conflictResolution=RENAME", c.contentURL)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", c.cookieHeader)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("X-Amzn-Client-Token", uuid.NewString())

	log.Info().Str("file", filepath.Base(path)).Msg("Uploading to Amazon Photos")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var node map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&node); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}

	return flattenNode(node), nil
}

// Download writes the content of each node into dir. Partial files are
// removed when a write fails.
func (c *Client) Download(ctx context.Context, nodeIDs []string, dir string) (table.Row, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}

	files := make([]string, 0, len(nodeIDs))
	for _, id := range nodeIDs {
		name, err := c.downloadNode(ctx, id, dir)
		if err != nil {
			return nil, err
		}
		files = append(files, name)
	}

	return table.Row{
		"status":    "downloaded",
		"count":     len(files),
		"outputDir": dir,
		"files":     files,
	}, nil
}

func (c *Client) downloadNode(ctx context.Context, id, dir string) (string, error) {
	endpoint := fmt.Sprintf("%s/nodes/%s/content?download=true", c.contentURL, url.PathEscape(id))

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Cookie", c.cookieHeader)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("download request for %s failed: %w", id, err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}

	name := filenameFromResponse(resp, id)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}

	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close %s: %w", path, err)
	}

	log.Info().Str("node", id).Str("path", path).Msg("Downloaded node")
	return name, nil
}

// DB returns the locally cached node metadata table.
func (c *Client) DB(ctx context.Context) ([]table.Row, error) {
	return c.nodes.Rows(), nil
}

// RefreshDB repopulates the node cache from the search API, paging through
// the whole library, and reports how many nodes were merged.
func (c *Client) RefreshDB(ctx context.Context) (int, error) {
	endpoint := fmt.Sprintf("%s/search", c.driveURL)
	merged := 0

	for offset := 0; ; offset += refreshPageSize {
		query := url.Values{}
		query.Set("asset", "ALL")
		query.Set("searchContext", "customer")
		query.Set("limit", strconv.Itoa(refreshPageSize))
		query.Set("offset", strconv.Itoa(offset))

		rows, count, err := c.searchPage(ctx, endpoint, query)
		if err != nil {
			return merged, err
		}
		if len(rows) == 0 {
			break
		}

		c.nodes.Merge(rows)
		merged += len(rows)

		if offset+len(rows) >= count || len(rows) < refreshPageSize {
			break
		}
	}

	if err := c.nodes.Persist(); err != nil {
		return merged, fmt.Errorf("failed to persist node cache: %w", err)
	}
	return merged, nil
}

// searchPage performs a GET that returns the standard {count, data} search
// envelope and flattens each node.
func (c *Client) searchPage(ctx context.Context, endpoint string, query url.Values) ([]table.Row, int, error) {
	fullURL := endpoint
	if len(query) > 0 {
		fullURL = fmt.Sprintf("%s?%s", endpoint, query.Encode())
	}

	var envelope struct {
		Count int              `json:"count"`
		Data  []map[string]any `json:"data"`
	}
	if err := c.get(ctx, fullURL, &envelope); err != nil {
		return nil, 0, err
	}

	rows := make([]table.Row, len(envelope.Data))
	for i, node := range envelope.Data {
		rows[i] = flattenNode(node)
	}
	return rows, envelope.Count, nil
}

// cacheNodes merges freshly fetched nodes into the local cache. Cache
// persistence failures are logged, never surfaced: the cache is an
// optimization, not part of any tool's result.
func (c *Client) cacheNodes(rows []table.Row) {
	if len(rows) == 0 {
		return
	}
	c.nodes.Merge(rows)
	if err := c.nodes.Persist(); err != nil {
		log.Warn().Err(err).Msg("Failed to persist node cache")
	}
}

// flattenNode promotes the contentProperties fields to top-level columns,
// matching the tabular layout the rest of the server works with.
func flattenNode(node map[string]any) table.Row {
	row := make(table.Row, len(node)+4)
	for k, v := range node {
		row[k] = v
	}

	if props, ok := node["contentProperties"].(map[string]any); ok {
		for _, field := range []string{"md5", "size", "extension", "contentType", "contentDate"} {
			if v, ok := props[field]; ok {
				if _, exists := row[field]; !exists {
					row[field] = v
				}
			}
		}
	}

	return row
}

// Helper methods for HTTP operations

func (c *Client) get(ctx context.Context, url string, result any) error {
	return c.request(ctx, http.MethodGet, url, nil, result)
}

func (c *Client) request(ctx context.Context, method, url string, body any, result any) error {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	log.Debug().Str("method", method).Str("url", url).Msg("Calling Amazon Photos API")

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Cookie", c.cookieHeader)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	log.Debug().Str("method", method).Str("url", url).Int("status", resp.StatusCode).Msg("Received Amazon Photos API response")

	if err := checkStatus(resp); err != nil {
		return err
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// checkStatus maps 401/403 to AuthError and other failures to a plain error
// carrying the upstream status and body.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return &AuthError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}
	return fmt.Errorf("API error: status=%d body=%s", resp.StatusCode, string(bodyBytes))
}

func filenameFromResponse(resp *http.Response, fallback string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := params["filename"]; name != "" {
				return filepath.Base(name)
			}
		}
	}
	return fallback
}
