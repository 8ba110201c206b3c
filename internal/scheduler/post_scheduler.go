package scheduler

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/pressline/pressline/internal/models"
)

// PostScheduler drives automatic queue consumption for one agent. With
// randomized pacing enabled, a fresh interval is drawn uniformly from the
// agent's [min, max] range after every automatic cycle that found an item to
// post; a firing on an empty queue re-arms the current interval unchanged.
// Otherwise the fixed post interval is used. Manual posts go through the
// Poster directly and never touch the armed timer, so they do not reset or
// redraw the cadence.
type PostScheduler struct {
	agent    models.AgentConfig
	run      func(ctx context.Context) bool
	logger   *slog.Logger
	stopChan chan struct{}
	stopOnce sync.Once
	rng      *rand.Rand

	mu     sync.Mutex
	nextAt time.Time
}

// NewPostScheduler creates a posting scheduler. The run callback performs
// one automatic publish cycle and reports whether an item was posted.
func NewPostScheduler(agent models.AgentConfig, run func(ctx context.Context) bool, logger *slog.Logger) *PostScheduler {
	return &PostScheduler{
		agent:    agent,
		run:      run,
		logger:   logger,
		stopChan: make(chan struct{}),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Start begins the posting loop. It blocks until Stop is called or the
// context is cancelled.
func (s *PostScheduler) Start(ctx context.Context) {
	interval := s.drawInterval()
	s.setNextAt(time.Now().Add(interval))
	s.logger.Info("posting scheduler started",
		"agent", s.agent.ID,
		"randomized", s.agent.RandomizedPacing,
		"first_interval", interval.Round(time.Second))

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			posted := s.run(ctx)

			interval = s.nextInterval(interval, posted)
			s.setNextAt(time.Now().Add(interval))
			s.logger.Info("next automatic post scheduled",
				"agent", s.agent.ID,
				"posted", posted,
				"interval", interval.Round(time.Second))
			timer.Reset(interval)
		case <-s.stopChan:
			s.logger.Info("posting scheduler stopped", "agent", s.agent.ID)
			return
		case <-ctx.Done():
			s.logger.Info("posting scheduler stopping, context cancelled", "agent", s.agent.ID)
			return
		}
	}
}

// Stop halts the loop. Safe to call more than once.
func (s *PostScheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopChan) })
}

// NextPostTime reports when the next automatic post will fire.
func (s *PostScheduler) NextPostTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextAt
}

func (s *PostScheduler) setNextAt(t time.Time) {
	s.mu.Lock()
	s.nextAt = t
	s.mu.Unlock()
}

// nextInterval decides the re-arm duration after a firing. The cadence is
// only redrawn when the cycle actually posted; an empty-queue firing keeps
// the current interval.
func (s *PostScheduler) nextInterval(current time.Duration, posted bool) time.Duration {
	if !posted {
		return current
	}
	return s.drawInterval()
}

func (s *PostScheduler) drawInterval() time.Duration {
	if !s.agent.RandomizedPacing {
		return s.agent.PostInterval()
	}

	min, max := s.agent.PostIntervalRange()
	if max <= min {
		return min
	}
	return min + time.Duration(s.rng.Int63n(int64(max-min)))
}
