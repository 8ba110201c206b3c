package scheduler

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pressline/pressline/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestDrawIntervalFixed(t *testing.T) {
	agent := models.AgentConfig{ID: "a", PostIntervalMinutes: 45}
	s := NewPostScheduler(agent, func(ctx context.Context) bool { return true }, testLogger())

	for i := 0; i < 10; i++ {
		if got := s.drawInterval(); got != 45*time.Minute {
			t.Fatalf("fixed interval = %s, want 45m", got)
		}
	}
}

func TestDrawIntervalRandomizedWithinRange(t *testing.T) {
	agent := models.AgentConfig{
		ID:                     "a",
		RandomizedPacing:       true,
		PostIntervalMinMinutes: 8,
		PostIntervalMaxMinutes: 10,
	}
	s := NewPostScheduler(agent, func(ctx context.Context) bool { return true }, testLogger())

	for i := 0; i < 100; i++ {
		got := s.drawInterval()
		if got < 8*time.Minute || got > 10*time.Minute {
			t.Fatalf("interval %s outside [8m, 10m]", got)
		}
	}
}

func TestDrawIntervalRandomizedDefaults(t *testing.T) {
	agent := models.AgentConfig{ID: "a", RandomizedPacing: true}
	s := NewPostScheduler(agent, func(ctx context.Context) bool { return true }, testLogger())

	got := s.drawInterval()
	if got < 8*time.Minute || got > 10*time.Minute {
		t.Fatalf("default randomized interval %s outside [8m, 10m]", got)
	}
}

func TestNextIntervalUnchangedWhenNothingPosted(t *testing.T) {
	agent := models.AgentConfig{
		ID:                     "a",
		RandomizedPacing:       true,
		PostIntervalMinMinutes: 8,
		PostIntervalMaxMinutes: 10,
	}
	s := NewPostScheduler(agent, func(ctx context.Context) bool { return false }, testLogger())

	// An empty-queue firing keeps the current cadence, even one outside the
	// configured draw range.
	current := 42 * time.Minute
	for i := 0; i < 10; i++ {
		if got := s.nextInterval(current, false); got != current {
			t.Fatalf("interval redrawn to %s on an empty cycle, want %s kept", got, current)
		}
	}

	got := s.nextInterval(current, true)
	if got < 8*time.Minute || got > 10*time.Minute {
		t.Fatalf("posted cycle must redraw from [8m, 10m], got %s", got)
	}
}

func TestPostSchedulerStopIdempotent(t *testing.T) {
	agent := models.AgentConfig{ID: "a", PostIntervalMinutes: 30}
	s := NewPostScheduler(agent, func(ctx context.Context) bool { return true }, testLogger())

	done := make(chan struct{})
	go func() {
		s.Start(context.Background())
		close(done)
	}()

	s.Stop()
	s.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestPostSchedulerStopsOnContextCancel(t *testing.T) {
	agent := models.AgentConfig{ID: "a", PostIntervalMinutes: 30}
	s := NewPostScheduler(agent, func(ctx context.Context) bool { return true }, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Start(ctx)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop on context cancel")
	}
}

func TestPostSchedulerAdvertisesNextPost(t *testing.T) {
	agent := models.AgentConfig{ID: "a", PostIntervalMinutes: 30}
	s := NewPostScheduler(agent, func(ctx context.Context) bool { return true }, testLogger())
	defer s.Stop()

	go s.Start(context.Background())

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if !s.NextPostTime().IsZero() {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	next := s.NextPostTime()
	if next.IsZero() {
		t.Fatal("next post time never set")
	}
	remaining := time.Until(next)
	if remaining < 29*time.Minute || remaining > 31*time.Minute {
		t.Errorf("next post in %s, want ~30m", remaining)
	}
}
