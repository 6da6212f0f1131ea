package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/magicbot/magicbot/internal/biz/repo"
	"github.com/magicbot/magicbot/internal/biz/usecase"
)

// DefaultSweepSchedule runs the sweep every ten minutes
const DefaultSweepSchedule = "@every 10m"

// Sweeper periodically deletes warn marks whose window has elapsed.
// An expired mark already counts as no mark, so sweeping only reclaims storage.
type Sweeper struct {
	warnUC     *usecase.WarnUsecase
	configRepo repo.ConfigRepo
	schedule   string

	cron *cron.Cron
}

// NewSweeper creates a new sweeper. An empty schedule uses DefaultSweepSchedule.
func NewSweeper(warnUC *usecase.WarnUsecase, configRepo repo.ConfigRepo, schedule string) *Sweeper {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		warnUC:     warnUC,
		configRepo: configRepo,
		schedule:   schedule,
	}
}

// Start schedules the sweep job
func (s *Sweeper) Start() error {
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	_, err := c.AddFunc(s.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := s.SweepOnce(ctx); err != nil {
			slog.Warn("warn mark sweep failed", "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	slog.Info("warn mark sweeper started", "schedule", s.schedule)
	return nil
}

// Stop stops the scheduler and waits for a running sweep
func (s *Sweeper) Stop() {
	if s.cron == nil {
		return
	}
	<-s.cron.Stop().Done()
	s.cron = nil
	slog.Info("warn mark sweeper stopped")
}

// SweepOnce deletes every expired mark and returns how many were deleted
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	groups, err := s.configRepo.ListGroups(ctx)
	if err != nil {
		return 0, fmt.Errorf("list groups: %w", err)
	}
	windows := make(map[string]time.Duration, len(groups))
	for _, cfg := range groups {
		windows[cfg.GroupID] = cfg.WarnWindow()
	}

	expired, err := s.warnUC.Expired(ctx, windows)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, m := range expired {
		ok, err := s.warnUC.ClearExpired(ctx, m)
		if err != nil {
			slog.Warn("delete expired warn mark failed", "group", m.GroupID, "user", m.UserID, "error", err)
			continue
		}
		if !ok {
			slog.Debug("warn mark changed during sweep", "group", m.GroupID, "user", m.UserID)
			continue
		}
		deleted++
	}
	if deleted > 0 {
		slog.Info("expired warn marks deleted", "count", deleted)
	}
	return deleted, nil
}
