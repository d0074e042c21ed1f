package amazonphotos

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned before any network attempt when the required
// session cookies are missing or empty.
var ErrNotConfigured = errors.New("amazon photos is not configured")

// AuthError is returned when Amazon rejects the session cookies. The
// upstream status and body are passed through unmodified so expired-cookie
// responses stay intelligible to the caller.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("amazon rejected the session (status=%d): %s", e.StatusCode, e.Body)
}
