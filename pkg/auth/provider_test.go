package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mcp-amazon-photos/pkg/config"
)

func TestNoOpProviderAlwaysSucceeds(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)

	ctx, err := NewNoOpProvider().Authenticate(req)

	require.NoError(t, err)
	assert.NotNil(t, ctx)
}

func TestAPIKeyProvider(t *testing.T) {
	t.Parallel()

	provider := NewAPIKeyProvider([]string{"key1", "key2"})

	tests := []struct {
		name    string
		setup   func(r *http.Request)
		wantErr bool
	}{
		{
			name:    "valid header key",
			setup:   func(r *http.Request) { r.Header.Set("X-API-Key", "key1") },
			wantErr: false,
		},
		{
			name: "valid query key",
			setup: func(r *http.Request) {
				q := r.URL.Query()
				q.Set("api_key", "key2")
				r.URL.RawQuery = q.Encode()
			},
			wantErr: false,
		},
		{
			name:    "invalid key",
			setup:   func(r *http.Request) { r.Header.Set("X-API-Key", "wrong") },
			wantErr: true,
		},
		{
			name:    "missing key",
			setup:   func(r *http.Request) {},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
			tt.setup(req)

			_, err := provider.Authenticate(req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOAuthProviderBearerToken(t *testing.T) {
	t.Parallel()

	provider, err := NewOAuthProvider(&config.OAuthConfig{
		ClientID: "client",
		AuthURL:  "https://auth.example.com/authorize",
		TokenURL: "https://auth.example.com/token",
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	_, err = provider.Authenticate(req)
	assert.NoError(t, err)

	// Scheme matching is case-insensitive.
	req.Header.Set("Authorization", "bearer some-token")
	_, err = provider.Authenticate(req)
	assert.NoError(t, err)

	req.Header.Set("Authorization", "Basic dXNlcg==")
	_, err = provider.Authenticate(req)
	assert.Error(t, err)

	req.Header.Del("Authorization")
	_, err = provider.Authenticate(req)
	assert.Error(t, err)
}

func TestOAuthProviderRequiresConfig(t *testing.T) {
	t.Parallel()

	_, err := NewOAuthProvider(nil)
	assert.Error(t, err)
}

func TestMultiProviderTriesInOrder(t *testing.T) {
	t.Parallel()

	oauthProvider, err := NewOAuthProvider(&config.OAuthConfig{
		TokenURL: "https://auth.example.com/token",
	})
	require.NoError(t, err)

	multi := NewMultiProvider(NewAPIKeyProvider([]string{"key1"}), oauthProvider)

	// API key satisfies the first provider.
	req := httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set("X-API-Key", "key1")
	_, err = multi.Authenticate(req)
	assert.NoError(t, err)

	// Bearer token falls through to the second.
	req = httptest.NewRequest(http.MethodGet, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer token")
	_, err = multi.Authenticate(req)
	assert.NoError(t, err)

	// Neither credential fails.
	req = httptest.NewRequest(http.MethodGet, "/mcp", nil)
	_, err = multi.Authenticate(req)
	assert.Error(t, err)
}
