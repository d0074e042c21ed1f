// Package librarysync keeps the local node metadata cache warm by
// periodically re-walking the remote library. The cache itself belongs to
// the photos client; this package only decides when to refresh it.
package librarysync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/mcp-amazon-photos/pkg/amazonphotos"
	"github.com/yourusername/mcp-amazon-photos/pkg/config"
)

// SessionProvider hands out the shared photos session. Refresh runs are
// skipped, not failed, while the server is unconfigured.
type SessionProvider interface {
	Session() (amazonphotos.Service, error)
}

// Scheduler manages periodic node cache refreshes
type Scheduler struct {
	cfg      *config.Config
	provider SessionProvider
	cron     *cron.Cron
	mu       sync.Mutex
	running  bool
}

// NewScheduler creates a new library sync scheduler
func NewScheduler(cfg *config.Config, provider SessionProvider) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		provider: provider,
		cron:     cron.New(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		log.Warn().Msg("Library sync scheduler already running")
		return nil
	}

	if !s.cfg.EnableLibrarySync {
		log.Info().Msg("Library sync disabled in configuration, scheduler not started")
		return nil
	}

	log.Info().
		Str("cron_expression", s.cfg.LibrarySyncCron).
		Msg("Starting library sync scheduler")

	_, err := s.cron.AddFunc(s.cfg.LibrarySyncCron, s.runRefresh)
	if err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	return nil
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	log.Info().Msg("Stopping library sync scheduler")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.running = false
}

func (s *Scheduler) runRefresh() {
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()

	svc, err := s.provider.Session()
	if err != nil {
		logger.Debug().Err(err).Msg("Skipping library sync, session unavailable")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	start := time.Now()
	merged, err := svc.RefreshDB(ctx)
	if err != nil {
		logger.Error().Err(err).Int("merged", merged).Msg("Library sync failed")
		return
	}

	logger.Info().
		Int("merged", merged).
		Dur("duration", time.Since(start)).
		Msg("Library sync completed")
}
