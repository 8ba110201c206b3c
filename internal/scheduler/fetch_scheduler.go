package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/pressline/pressline/internal/models"
)

// FetchScheduler runs an agent's fetch-and-process cycle on a fixed
// cadence, with one immediate run at startup so a fresh agent does not
// wait a full interval for its first articles.
type FetchScheduler struct {
	agent    models.AgentConfig
	run      func(ctx context.Context)
	logger   *slog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewFetchScheduler creates a fetch scheduler. The run callback performs
// one fetch-and-process cycle.
func NewFetchScheduler(agent models.AgentConfig, run func(ctx context.Context), logger *slog.Logger) *FetchScheduler {
	return &FetchScheduler{
		agent:    agent,
		run:      run,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start begins the fetch loop. It blocks until Stop is called or the
// context is cancelled.
func (s *FetchScheduler) Start(ctx context.Context) {
	interval := s.agent.FetchInterval()
	s.logger.Info("fetch scheduler started", "agent", s.agent.ID, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.run(ctx)

	for {
		select {
		case <-ticker.C:
			s.run(ctx)
		case <-s.stopChan:
			s.logger.Info("fetch scheduler stopped", "agent", s.agent.ID)
			return
		case <-ctx.Done():
			s.logger.Info("fetch scheduler stopping, context cancelled", "agent", s.agent.ID)
			return
		}
	}
}

// Stop halts the loop. Safe to call more than once.
func (s *FetchScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}
