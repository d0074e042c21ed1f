package amazonphotos

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mcp-amazon-photos/pkg/cookies"
)

const testCookiesJSON = `{"ubid-main":"u","at-main":"a","session-id":"s"}`

func TestAccessorFailsFastWhenNotConfigured(t *testing.T) {
	t.Setenv(cookies.EnvVar, "")

	accessor := NewAccessor(filepath.Join(t.TempDir(), "missing.json"), Options{})

	_, err := accessor.Session()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Contains(t, err.Error(), "missing required cookies")
}

func TestAccessorFailsFastOnMalformedCookieFile(t *testing.T) {
	t.Setenv(cookies.EnvVar, "")

	path := filepath.Join(t.TempDir(), "cookies.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o600))

	accessor := NewAccessor(path, Options{})

	_, err := accessor.Session()

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestAccessorRetriesAfterConfigurationFixed(t *testing.T) {
	t.Setenv(cookies.EnvVar, "")

	path := filepath.Join(t.TempDir(), "cookies.json")
	accessor := NewAccessor(path, Options{})

	_, err := accessor.Session()
	require.ErrorIs(t, err, ErrNotConfigured)

	// Drop the cookie file into place and try again.
	require.NoError(t, os.WriteFile(path, []byte(testCookiesJSON), 0o600))

	svc, err := accessor.Session()
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestAccessorConstructsClientOnce(t *testing.T) {
	t.Setenv(cookies.EnvVar, testCookiesJSON)

	accessor := NewAccessor("", Options{})

	var wg sync.WaitGroup
	services := make([]Service, 8)
	errs := make([]error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			services[i], errs[i] = accessor.Session()
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, services[0], services[i])
	}
}

func TestAccessorNormalizesUnderscoredCookies(t *testing.T) {
	t.Setenv(cookies.EnvVar, `{"ubid_main":"u","at_main":"a","session_id":"s"}`)

	accessor := NewAccessor("", Options{})

	svc, err := accessor.Session()

	require.NoError(t, err)
	require.NotNil(t, svc)

	client, ok := svc.(*Client)
	require.True(t, ok)
	assert.Contains(t, client.cookieHeader, "ubid-main=u")
	assert.Contains(t, client.cookieHeader, "at-main=a")
	assert.Contains(t, client.cookieHeader, "session-id=s")
}

func TestErrNotConfiguredIsDistinctFromAuthError(t *testing.T) {
	t.Parallel()

	err := &AuthError{StatusCode: 401, Body: "expired"}

	assert.False(t, errors.Is(err, ErrNotConfigured))
	assert.Contains(t, err.Error(), "status=401")
	assert.Contains(t, err.Error(), "expired")
}
