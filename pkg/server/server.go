package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazonphotos"
	"github.com/yourusername/mcp-amazon-photos/pkg/auth"
	"github.com/yourusername/mcp-amazon-photos/pkg/config"
	"github.com/yourusername/mcp-amazon-photos/pkg/librarysync"
	"github.com/yourusername/mcp-amazon-photos/pkg/tools"
	"golang.org/x/time/rate"
)

// Server represents the MCP Amazon Photos server
type Server struct {
	config         *config.Config
	mcpServer      *server.MCPServer
	streamableHTTP *server.StreamableHTTPServer
	accessor       *amazonphotos.Accessor
	cache          *cache.Cache
	rateLimiter    *rate.Limiter
	authProvider   auth.Provider
	syncScheduler  *librarysync.Scheduler
}

// New creates a new MCP Amazon Photos server
func New(cfg *config.Config) (*Server, error) {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 100
	}
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 200
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.AmazonTimeout <= 0 {
		cfg.AmazonTimeout = 30 * time.Second
	}

	// The session handle is created lazily on first tool use; a server with
	// no cookies configured still starts.
	accessor := amazonphotos.NewAccessor(cfg.CookiesFile, amazonphotos.Options{
		DriveURL:   cfg.DriveURL,
		ContentURL: cfg.ContentURL,
		DBPath:     cfg.DBPath,
		Timeout:    cfg.AmazonTimeout,
	})

	cacheStore := cache.New(cfg.CacheTTL, cfg.CacheTTL*2)

	rateLimiter := rate.NewLimiter(rate.Limit(cfg.RateLimitPerSecond), cfg.RateLimitBurst)

	authProvider, err := createAuthProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth provider: %w", err)
	}

	mcpServer := server.NewMCPServer(
		"mcp-amazon-photos",
		"1.0.0",
	)

	tools.RegisterTools(mcpServer, cfg, accessor, cacheStore)

	streamableHTTP := server.NewStreamableHTTPServer(mcpServer)

	syncScheduler := librarysync.NewScheduler(cfg, accessor)

	s := &Server{
		config:         cfg,
		mcpServer:      mcpServer,
		streamableHTTP: streamableHTTP,
		accessor:       accessor,
		cache:          cacheStore,
		rateLimiter:    rateLimiter,
		authProvider:   authProvider,
		syncScheduler:  syncScheduler,
	}

	return s, nil
}

// Start starts the server with the given transport ("http" or "stdio")
func (s *Server) Start(ctx context.Context, transportMode string) error {
	if transportMode == "stdio" {
		return s.startStdio(ctx)
	}
	return s.startHTTP(ctx)
}

// startStdio serves MCP over stdin/stdout for local clients
func (s *Server) startStdio(ctx context.Context) error {
	if err := s.syncScheduler.Start(); err != nil {
		return fmt.Errorf("failed to start library sync scheduler: %w", err)
	}
	defer s.syncScheduler.Stop()

	log.Info().Msg("Serving MCP over stdio")
	return server.ServeStdio(s.mcpServer)
}

// startHTTP starts the server with StreamableHTTP transport
func (s *Server) startHTTP(ctx context.Context) error {
	mux := http.NewServeMux()

	// MCP StreamableHTTP endpoint
	mux.HandleFunc("/mcp", s.streamableHTTP.ServeHTTP)

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	// Ready check
	mux.HandleFunc("/ready", s.handleReady)

	// Apply middleware
	handler := s.authMiddleware(
		s.rateLimitMiddleware(
			s.loggingMiddleware(mux),
		),
	)

	httpServer := &http.Server{
		Addr:         s.config.ListenAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: s.config.RequestTimeout,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", s.config.ListenAddr).Msg("Starting StreamableHTTP server")

	if err := s.syncScheduler.Start(); err != nil {
		return fmt.Errorf("failed to start library sync scheduler: %w", err)
	}

	errChan := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")

		s.syncScheduler.Stop()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errChan:
		s.syncScheduler.Stop()
		return err
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"healthy"}`)); err != nil {
		log.Error().Err(err).Msg("Failed to write health response")
	}
}

// handleReady handles readiness check requests. Readiness requires a
// configured session that Amazon still accepts.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	svc, err := s.accessor.Session()
	if err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte(`{"status":"not_ready","reason":"cookies_not_configured"}`)); err != nil {
			log.Error().Err(err).Msg("Failed to write ready error response")
		}
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := svc.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		if _, err := w.Write([]byte(`{"status":"not_ready","reason":"amazon_unavailable"}`)); err != nil {
			log.Error().Err(err).Msg("Failed to write ready error response")
		}
		return
	}

	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(`{"status":"ready"}`)); err != nil {
		log.Error().Err(err).Msg("Failed to write ready response")
	}
}

// createAuthProvider creates the appropriate auth provider based on config
func createAuthProvider(cfg *config.Config) (auth.Provider, error) {
	switch cfg.AuthMode {
	case "none":
		return auth.NewNoOpProvider(), nil
	case "api_key":
		return auth.NewAPIKeyProvider(cfg.APIKeys), nil
	case "oauth":
		if cfg.OAuth == nil {
			return nil, fmt.Errorf("oauth config required for oauth auth mode")
		}
		return auth.NewOAuthProvider(cfg.OAuth)
	case "both":
		providers := []auth.Provider{}
		if len(cfg.APIKeys) > 0 {
			providers = append(providers, auth.NewAPIKeyProvider(cfg.APIKeys))
		}
		if cfg.OAuth != nil {
			oauthProvider, err := auth.NewOAuthProvider(cfg.OAuth)
			if err != nil {
				return nil, err
			}
			providers = append(providers, oauthProvider)
		}
		return auth.NewMultiProvider(providers...), nil
	default:
		return nil, fmt.Errorf("invalid auth mode: %s", cfg.AuthMode)
	}
}
