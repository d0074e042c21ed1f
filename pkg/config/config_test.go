package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "http", cfg.TransportMode)
	assert.Equal(t, "none", cfg.AuthMode)
	assert.Equal(t, "https://www.amazon.com/drive/v1", cfg.DriveURL)
	assert.Equal(t, "https://content-na.drive.amazonaws.com/cdproxy", cfg.ContentURL)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, 100, cfg.RateLimitPerSecond)
	assert.Equal(t, "0 3 * * *", cfg.LibrarySyncCron)
	assert.False(t, cfg.EnableLibrarySync)

	// Paths anchor under the user's home, never the working directory.
	assert.Contains(t, cfg.CookiesFile, filepath.Join(".config", "amazon-photos-mcp"))
	assert.Contains(t, cfg.DownloadDir, filepath.Join("Downloads", "amazon-photos"))
}

func TestLoadMissingFileIsOptional(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "http", cfg.TransportMode)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
listen_addr: ":9999"
transport_mode: stdio
auth_mode: api_key
api_keys:
  - secret
cache_ttl: 1m
enable_library_sync: true
library_sync_cron: "*/30 * * * *"
download_dir: /data/photos
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "stdio", cfg.TransportMode)
	assert.Equal(t, "api_key", cfg.AuthMode)
	assert.Equal(t, []string{"secret"}, cfg.APIKeys)
	assert.Equal(t, time.Minute, cfg.CacheTTL)
	assert.True(t, cfg.EnableLibrarySync)
	assert.Equal(t, "*/30 * * * *", cfg.LibrarySyncCron)
	assert.Equal(t, "/data/photos", cfg.DownloadDir)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("listen_addr: [unclosed"), 0o644))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport_mode: carrier-pigeon\n"), 0o644))

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid transport_mode")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad transport",
			mutate:  func(c *Config) { c.TransportMode = "udp" },
			wantErr: "invalid transport_mode",
		},
		{
			name:    "bad auth mode",
			mutate:  func(c *Config) { c.AuthMode = "magic" },
			wantErr: "invalid auth_mode",
		},
		{
			name:    "api_key without keys",
			mutate:  func(c *Config) { c.AuthMode = "api_key" },
			wantErr: "api_keys required",
		},
		{
			name:    "oauth without config",
			mutate:  func(c *Config) { c.AuthMode = "oauth" },
			wantErr: "oauth configuration required",
		},
		{
			name: "both needs keys and oauth",
			mutate: func(c *Config) {
				c.AuthMode = "both"
				c.APIKeys = []string{"k"}
			},
			wantErr: "oauth configuration required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{TransportMode: "http", AuthMode: "none"}
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
