package service

import (
	"context"
	"testing"
	"time"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
	"github.com/magicbot/magicbot/internal/biz/usecase"
	"github.com/magicbot/magicbot/internal/data"
)

func TestSweeper_SweepOnce(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	configRepo, err := data.NewFileConfigRepo(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	warnRepo, err := data.NewFileWarnRepo(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	short := domain.NewGroupConfig("short")
	short.WarnWindowMinutes = 1
	if err := configRepo.SaveGroup(ctx, short); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	marks := []*domain.WarnMark{
		{GroupID: "short", UserID: "old", FirstAt: now.Add(-2 * time.Minute), Count: 1},
		{GroupID: "short", UserID: "fresh", FirstAt: now.Add(-30 * time.Second), Count: 1},
		// no policy stored: the default 10 minute window applies
		{GroupID: "unknown", UserID: "mid", FirstAt: now.Add(-5 * time.Minute), Count: 2},
		{GroupID: "unknown", UserID: "stale", FirstAt: now.Add(-11 * time.Minute), Count: 2},
	}
	for _, m := range marks {
		if err := warnRepo.Save(ctx, m); err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
	}

	warnUC := usecase.NewWarnUsecase(warnRepo, nil)
	warnUC.SetClock(func() time.Time { return now })
	s := NewSweeper(warnUC, configRepo, "")

	deleted, err := s.SweepOnce(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if deleted != 2 {
		t.Errorf("Expected 2 marks deleted, got %d", deleted)
	}

	left, err := warnRepo.List(ctx, "")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var users []string
	for _, m := range left {
		users = append(users, m.UserID)
	}
	if len(users) != 2 || users[0] != "fresh" || users[1] != "mid" {
		t.Errorf("Expected fresh and mid to remain, got %v", users)
	}
}

// listHookRepo runs afterList once the sweeper has read the marks
type listHookRepo struct {
	repo.WarnRepo
	afterList func()
}

func (r *listHookRepo) List(ctx context.Context, groupID string) ([]*domain.WarnMark, error) {
	marks, err := r.WarnRepo.List(ctx, groupID)
	if r.afterList != nil {
		r.afterList()
	}
	return marks, err
}

func TestSweeper_KeepsWarningIssuedDuringSweep(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	configRepo, err := data.NewFileConfigRepo(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	fileRepo, err := data.NewFileWarnRepo(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	cfg := domain.NewGroupConfig("g1")
	cfg.WarnWindowMinutes = 1
	if err := configRepo.SaveGroup(ctx, cfg); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stale := &domain.WarnMark{GroupID: "g1", UserID: "u1", FirstAt: now.Add(-2 * time.Minute), Count: 2}
	if err := fileRepo.Save(ctx, stale); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	// the dispatcher warns u1 again between the sweeper's read and delete
	engineUC := usecase.NewWarnUsecase(fileRepo, nil)
	engineUC.SetClock(func() time.Time { return now })
	hooked := &listHookRepo{WarnRepo: fileRepo}
	hooked.afterList = func() {
		res, err := engineUC.Warn(ctx, cfg, "u1")
		if err != nil {
			t.Errorf("Unexpected error: %v", err)
		} else if res.Count != 1 {
			t.Errorf("Expected a restarted window, got count %d", res.Count)
		}
	}

	sweepUC := usecase.NewWarnUsecase(hooked, nil)
	sweepUC.SetClock(func() time.Time { return now })
	deleted, err := NewSweeper(sweepUC, configRepo, "").SweepOnce(ctx)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if deleted != 0 {
		t.Errorf("Expected no deletion, got %d", deleted)
	}

	mark, err := fileRepo.Get(ctx, "g1", "u1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if mark == nil || mark.Count != 1 || !mark.FirstAt.Equal(now) {
		t.Errorf("Expected the fresh warning to survive, got %+v", mark)
	}
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	s := NewSweeper(nil, nil, "every now and then")
	if err := s.Start(); err == nil {
		s.Stop()
		t.Error("Expected error for invalid schedule")
	}
}

func TestSweeper_StartStop(t *testing.T) {
	s := NewSweeper(nil, nil, "@every 1h")
	if err := s.Start(); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	s.Stop()
	s.Stop()
}
