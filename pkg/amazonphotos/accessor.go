package amazonphotos

import (
	"fmt"
	"sync"

	"github.com/yourusername/mcp-amazon-photos/pkg/cookies"
)

// Accessor hands out the process-wide session handle. The client is built
// lazily on the first call so a server with no cookies configured still
// starts; configuration problems surface as tool-call failures instead.
// The guard ensures concurrent first calls construct at most one client.
type Accessor struct {
	mu     sync.Mutex
	opts   Options
	path   string
	client *Client
}

// NewAccessor creates an accessor that will read cookies from the
// environment or cookiesFile on first use. opts.Cookies is ignored; the
// accessor owns credential loading.
func NewAccessor(cookiesFile string, opts Options) *Accessor {
	return &Accessor{opts: opts, path: cookiesFile}
}

// Session returns the shared client, constructing it on first call.
// Missing or empty cookies fail fast with ErrNotConfigured before any
// network attempt. Whether Amazon still accepts the cookies is not checked
// here; that surfaces as an AuthError on the first real call.
func (a *Accessor) Session() (Service, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	creds, err := cookies.Load(a.path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, err)
	}
	if err := cookies.Validate(creds); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotConfigured, err)
	}

	opts := a.opts
	opts.Cookies = creds
	client, err := NewClient(opts)
	if err != nil {
		return nil, err
	}

	a.client = client
	return a.client, nil
}
