package amazonphotos

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"github.com/yourusername/mcp-amazon-photos/pkg/table"
)

// NodeCache is the local table of previously fetched node metadata, the
// on-disk analogue of the wrapped library's database file. It is merged
// into on every search and consumed read-only by the duplicate-analysis
// tools. Writes go through a temp file and rename so a crash never leaves
// a half-written cache.
type NodeCache struct {
	mu    sync.RWMutex
	path  string
	rows  []table.Row
	index map[any]int
}

// OpenNodeCache loads the cache at path, creating parent directories as
// needed. A missing or empty file yields an empty cache. An empty path
// yields a purely in-memory cache.
func OpenNodeCache(path string) (*NodeCache, error) {
	c := &NodeCache{
		path:  path,
		index: make(map[any]int),
	}

	if path == "" {
		return c, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return c, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return c, nil
	}

	var rows []table.Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}

	c.rows = rows
	for i, row := range rows {
		if id, ok := row["id"]; ok {
			c.index[id] = i
		}
	}

	return c, nil
}

// Path returns the backing file path.
func (c *NodeCache) Path() string {
	return c.path
}

// Len returns the number of cached nodes.
func (c *NodeCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.rows)
}

// Rows returns a copy of the cached node table.
func (c *NodeCache) Rows() []table.Row {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]table.Row, len(c.rows))
	copy(out, c.rows)
	return out
}

// Merge upserts rows by their "id" field. Rows without an id are ignored;
// the cache exists to answer id-keyed questions.
func (c *NodeCache) Merge(rows []table.Row) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, row := range rows {
		id, ok := row["id"]
		if !ok || id == nil {
			continue
		}
		if i, exists := c.index[id]; exists {
			c.rows[i] = row
			continue
		}
		c.index[id] = len(c.rows)
		c.rows = append(c.rows, row)
	}
}

// Persist writes the cache to disk. In-memory caches persist trivially.
func (c *NodeCache) Persist() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.path == "" {
		return nil
	}

	data, err := json.Marshal(c.rows)
	if err != nil {
		return err
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmpPath, c.path)
}
