// Package cookies loads and normalizes the Amazon session cookies the
// photos client authenticates with.
package cookies

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
)

// EnvVar is the environment variable holding the cookie map as a JSON object.
const EnvVar = "MCP_AMAZON_COOKIES"

// pairs maps the hyphenated cookie names Amazon's HTTP API expects to the
// underscored spellings the client's domain detection matches on. Both
// spellings must be present for each secret: the browser exports one
// convention, the client checks the other.
var pairs = [][2]string{
	{"ubid-main", "ubid_main"},
	{"at-main", "at_main"},
	{"session-id", "session_id"},
}

// Load reads the cookie map from the environment variable first, then from
// the config file at path. A missing source is not an error; absence of
// credentials is reported by Validate at session construction time. The
// returned map is already normalized.
func Load(path string) (map[string]string, error) {
	var raw map[string]string

	if env := os.Getenv(EnvVar); env != "" {
		if err := json.Unmarshal([]byte(env), &raw); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", EnvVar, err)
		}
	}

	if raw == nil && path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("failed to read cookie file %s: %w", path, err)
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse cookie file %s: %w", path, err)
		}
	}

	if raw == nil {
		return nil, nil
	}

	return Normalize(raw), nil
}

// Normalize returns a copy of raw in which every recognized secret present
// under either spelling is available under both. Unrecognized entries pass
// through unchanged. Missing secrets are not an error here.
func Normalize(raw map[string]string) map[string]string {
	normalized := make(map[string]string, len(raw)+len(pairs))
	for k, v := range raw {
		normalized[k] = v
	}

	for _, pair := range pairs {
		hyphen, underscore := pair[0], pair[1]
		if v, ok := normalized[hyphen]; ok && normalized[underscore] == "" {
			normalized[underscore] = v
		} else if v, ok := normalized[underscore]; ok && normalized[hyphen] == "" {
			normalized[hyphen] = v
		}
	}

	return normalized
}

// Validate checks that all three required secrets are present and non-empty.
// The returned error names every missing cookie.
func Validate(cookies map[string]string) error {
	var missing []string
	for _, pair := range pairs {
		if cookies[pair[0]] == "" && cookies[pair[1]] == "" {
			missing = append(missing, pair[0])
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required cookies: %s (set %s as a JSON object or create a cookie file with keys ubid-main, at-main, session-id)",
			strings.Join(missing, ", "), EnvVar)
	}

	return nil
}

// Header renders the cookie map as a Cookie request header value. Only the
// hyphenated spellings and unrecognized entries are sent; the underscored
// duplicates exist for the client's own checks, not for the wire.
func Header(cookies map[string]string) string {
	underscored := make(map[string]bool, len(pairs))
	for _, pair := range pairs {
		underscored[pair[1]] = true
	}

	parts := make([]string, 0, len(cookies))
	for k, v := range cookies {
		if underscored[k] {
			continue
		}
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}
