package amazonphotos

import (
	"context"
	"time"

	"github.com/yourusername/mcp-amazon-photos/pkg/table"
)

// Service is the narrow contract the tool surface depends on. The real
// implementation is *Client; tests exercise the compensation logic against a
// fake without a network dependency.
type Service interface {
	// Ping verifies the session is accepted by Amazon.
	Ping(ctx context.Context) error

	// Usage returns the account storage usage summary.
	Usage(ctx context.Context) (table.Row, error)

	// Query runs a filtered search against the photos metadata index.
	// Filters follow Amazon's search grammar, e.g.
	// "type:(PHOTOS) things:(beach) timeYear:(2024)".
	Query(ctx context.Context, filters string, limit int) ([]table.Row, error)

	// Photos and Videos return recent media of the respective type.
	Photos(ctx context.Context, limit int) ([]table.Row, error)
	Videos(ctx context.Context, limit int) ([]table.Row, error)

	// Aggregations returns Amazon's auto-generated groupings (people,
	// things, locations, dates, types, clusters). outDir == "" skips all
	// disk writes; the upstream write path is defective for categories
	// other than "all".
	Aggregations(ctx context.Context, category, outDir string) (any, error)

	// Folders lists the account's folders. The upstream response shape is
	// inconsistent and may be a plain list rather than a row set.
	Folders(ctx context.Context) (any, error)

	// Trash, Restore and Trashed manage the account trash.
	Trash(ctx context.Context, nodeIDs []string) (table.Row, error)
	Restore(ctx context.Context, nodeIDs []string) (table.Row, error)
	Trashed(ctx context.Context, limit int) ([]table.Row, error)

	// Upload uploads every file under dir. The upstream contract takes a
	// directory, not a single file.
	Upload(ctx context.Context, dir string) ([]table.Row, error)

	// Download writes the content of each node into dir.
	Download(ctx context.Context, nodeIDs []string, dir string) (table.Row, error)

	// DB returns the locally cached node metadata table. RefreshDB repopulates
	// it from the search API and reports how many nodes were merged.
	DB(ctx context.Context) ([]table.Row, error)
	RefreshDB(ctx context.Context) (int, error)
}

// Options configures a Client.
type Options struct {
	// DriveURL is the metadata API base, e.g. https://www.amazon.com/drive/v1.
	DriveURL string

	// ContentURL is the content API base used for uploads and downloads,
	// e.g. https://content-na.drive.amazonaws.com/cdproxy.
	ContentURL string

	// Cookies is the normalized session cookie map (both spellings present
	// for each recognized secret).
	Cookies map[string]string

	// DBPath is the local node metadata cache file.
	DBPath string

	Timeout time.Duration
}
