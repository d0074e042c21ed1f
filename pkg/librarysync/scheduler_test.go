package librarysync

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/mcp-amazon-photos/pkg/amazonphotos"
	"github.com/yourusername/mcp-amazon-photos/pkg/config"
)

// stubService only answers RefreshDB; the embedded interface panics if the
// scheduler ever reaches for anything else.
type stubService struct {
	amazonphotos.Service
	refreshed  int
	refreshErr error
}

func (s *stubService) RefreshDB(ctx context.Context) (int, error) {
	s.refreshed++
	return 42, s.refreshErr
}

type stubProvider struct {
	svc *stubService
	err error
}

func (p *stubProvider) Session() (amazonphotos.Service, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.svc, nil
}

func TestSchedulerDisabledDoesNotStart(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{EnableLibrarySync: false}
	s := NewScheduler(cfg, &stubProvider{svc: &stubService{}})

	require.NoError(t, s.Start())
	assert.False(t, s.running)

	// Stop on a never-started scheduler is a no-op.
	s.Stop()
}

func TestSchedulerStartStop(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		EnableLibrarySync: true,
		LibrarySyncCron:   "0 3 * * *",
	}
	s := NewScheduler(cfg, &stubProvider{svc: &stubService{}})

	require.NoError(t, s.Start())
	assert.True(t, s.running)

	// Starting twice is harmless.
	require.NoError(t, s.Start())

	s.Stop()
	assert.False(t, s.running)
}

func TestSchedulerRejectsBadCronExpression(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		EnableLibrarySync: true,
		LibrarySyncCron:   "not a cron expression",
	}
	s := NewScheduler(cfg, &stubProvider{svc: &stubService{}})

	assert.Error(t, s.Start())
}

func TestRefreshRunCallsRefreshDB(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	s := NewScheduler(&config.Config{}, &stubProvider{svc: svc})

	s.runRefresh()

	assert.Equal(t, 1, svc.refreshed)
}

func TestRefreshRunSkipsWhenUnconfigured(t *testing.T) {
	t.Parallel()

	svc := &stubService{}
	provider := &stubProvider{svc: svc, err: errors.New("not configured")}
	s := NewScheduler(&config.Config{}, provider)

	// Must not panic and must not touch the service.
	s.runRefresh()

	assert.Equal(t, 0, svc.refreshed)
}

func TestRefreshRunSurvivesRefreshFailure(t *testing.T) {
	t.Parallel()

	svc := &stubService{refreshErr: errors.New("amazon unavailable")}
	s := NewScheduler(&config.Config{}, &stubProvider{svc: svc})

	s.runRefresh()

	assert.Equal(t, 1, svc.refreshed)
}
