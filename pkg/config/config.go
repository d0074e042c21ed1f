package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	ListenAddr    string `mapstructure:"listen_addr"`
	TransportMode string `mapstructure:"transport_mode"` // "http" or "stdio"

	// Amazon Photos connection. Cookies themselves are loaded lazily at
	// first tool use (env var or cookies_file), never required here.
	CookiesFile string `mapstructure:"cookies_file"`
	DriveURL    string `mapstructure:"drive_url"`
	ContentURL  string `mapstructure:"content_url"`
	DBPath      string `mapstructure:"db_path"`
	DownloadDir string `mapstructure:"download_dir"`

	// Authentication for the MCP endpoint itself
	AuthMode string       `mapstructure:"auth_mode"` // "none", "api_key", "oauth", "both"
	APIKeys  []string     `mapstructure:"api_keys"`
	OAuth    *OAuthConfig `mapstructure:"oauth"`

	// Cache settings
	CacheTTL     time.Duration `mapstructure:"cache_ttl"`
	CacheMaxSize int           `mapstructure:"cache_max_size"`

	// Rate limiting
	RateLimitPerSecond int `mapstructure:"rate_limit_per_second"`
	RateLimitBurst     int `mapstructure:"rate_limit_burst"`

	// Timeouts
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AmazonTimeout  time.Duration `mapstructure:"amazon_timeout"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`

	// Library sync: periodic refresh of the local node metadata cache
	EnableLibrarySync bool   `mapstructure:"enable_library_sync"`
	LibrarySyncCron   string `mapstructure:"library_sync_cron"` // Cron expression, default "0 3 * * *" (daily)
}

// OAuthConfig holds OAuth configuration
type OAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// Load loads configuration from file and environment
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	v.SetEnvPrefix("MCP")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDerivedDefaults(&cfg, v)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	configDir := filepath.Join(home, ".config", "amazon-photos-mcp")

	// Server defaults
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("transport_mode", "http")

	// Amazon Photos defaults
	v.SetDefault("cookies_file", filepath.Join(configDir, "cookies.json"))
	v.SetDefault("drive_url", "https://www.amazon.com/drive/v1")
	v.SetDefault("content_url", "https://content-na.drive.amazonaws.com/cdproxy")
	v.SetDefault("db_path", filepath.Join(configDir, "nodes.json"))
	// Downloads land in a fixed location, never the working directory.
	v.SetDefault("download_dir", filepath.Join(home, "Downloads", "amazon-photos"))

	// Auth defaults
	v.SetDefault("auth_mode", "none")
	v.SetDefault("api_keys", []string{})

	// Cache defaults
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("cache_max_size", 1000)

	// Rate limiting defaults
	v.SetDefault("rate_limit_per_second", 100)
	v.SetDefault("rate_limit_burst", 200)

	// Timeout defaults
	v.SetDefault("request_timeout", 30*time.Second)
	v.SetDefault("amazon_timeout", 30*time.Second)

	// Logging defaults
	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)

	// Library sync defaults
	v.SetDefault("enable_library_sync", false)
	v.SetDefault("library_sync_cron", "0 3 * * *") // Daily at 03:00
}

func applyDerivedDefaults(cfg *Config, v *viper.Viper) {
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = v.GetString("listen_addr")
	}
	if cfg.TransportMode == "" {
		cfg.TransportMode = v.GetString("transport_mode")
	}
	if cfg.DriveURL == "" {
		cfg.DriveURL = v.GetString("drive_url")
	}
	if cfg.ContentURL == "" {
		cfg.ContentURL = v.GetString("content_url")
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = v.GetString("download_dir")
	}
	if cfg.AuthMode == "" {
		cfg.AuthMode = v.GetString("auth_mode")
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = v.GetDuration("cache_ttl")
	}
	if cfg.CacheMaxSize <= 0 {
		cfg.CacheMaxSize = v.GetInt("cache_max_size")
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = v.GetInt("rate_limit_per_second")
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = v.GetInt("rate_limit_burst")
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = v.GetDuration("request_timeout")
	}
	if cfg.AmazonTimeout <= 0 {
		cfg.AmazonTimeout = v.GetDuration("amazon_timeout")
	}
	if cfg.LibrarySyncCron == "" {
		cfg.LibrarySyncCron = v.GetString("library_sync_cron")
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validTransports := map[string]bool{
		"http":  true,
		"stdio": true,
	}
	if !validTransports[c.TransportMode] {
		return fmt.Errorf("invalid transport_mode: %s", c.TransportMode)
	}

	validAuthModes := map[string]bool{
		"none":    true,
		"api_key": true,
		"oauth":   true,
		"both":    true,
	}
	if !validAuthModes[c.AuthMode] {
		return fmt.Errorf("invalid auth_mode: %s", c.AuthMode)
	}

	if (c.AuthMode == "api_key" || c.AuthMode == "both") && len(c.APIKeys) == 0 {
		return fmt.Errorf("api_keys required when auth_mode is %s", c.AuthMode)
	}

	if (c.AuthMode == "oauth" || c.AuthMode == "both") && c.OAuth == nil {
		return fmt.Errorf("oauth configuration required when auth_mode is %s", c.AuthMode)
	}

	return nil
}
