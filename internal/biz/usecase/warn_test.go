package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

func TestWarn_WindowAndThreshold(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	warnRepo := newMockWarnRepo()
	gateway := &mockGatewayRepo{}
	uc := NewWarnUsecase(warnRepo, gateway)
	uc.SetClock(clock.Now)

	cfg := domain.NewGroupConfig("g1")

	for i := 1; i <= 3; i++ {
		res, err := uc.Warn(ctx, cfg, "u1")
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if res.Kicked {
			t.Fatalf("Warning %d should not kick", i)
		}
		if res.Count != i {
			t.Errorf("Expected count %d, got %d", i, res.Count)
		}
		clock.Advance(2 * time.Minute)
	}

	res, err := uc.Warn(ctx, cfg, "u1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.Kicked {
		t.Fatal("Expected fourth warning within the window to kick")
	}
	if len(gateway.removed) != 1 || gateway.removed[0].MemberID != "u1" {
		t.Errorf("Expected u1 to be removed, got %+v", gateway.removed)
	}
	if mark, _ := warnRepo.Get(ctx, "g1", "u1"); mark != nil {
		t.Errorf("Expected mark to be cleared after kick, got %+v", mark)
	}
}

func TestWarn_ExpiredWindowResets(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	warnRepo := newMockWarnRepo()
	uc := NewWarnUsecase(warnRepo, &mockGatewayRepo{})
	uc.SetClock(clock.Now)

	cfg := domain.NewGroupConfig("g1")
	_ = warnRepo.Save(ctx, &domain.WarnMark{GroupID: "g1", UserID: "u1", FirstAt: clock.now, Count: 3})

	clock.Advance(11 * time.Minute)
	res, err := uc.Warn(ctx, cfg, "u1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if res.Kicked || res.Count != 1 {
		t.Errorf("Expected reset to count 1 without kick, got %+v", res)
	}
	mark, _ := warnRepo.Get(ctx, "g1", "u1")
	if mark == nil || !mark.FirstAt.Equal(clock.now) {
		t.Errorf("Expected window to restart now, got %+v", mark)
	}
}

func TestWarn_KickFailureStillClearsMark(t *testing.T) {
	ctx := context.Background()
	warnRepo := newMockWarnRepo()
	gateway := &mockGatewayRepo{removeErr: context.DeadlineExceeded}
	uc := NewWarnUsecase(warnRepo, gateway)

	cfg := domain.NewGroupConfig("g1")
	cfg.WarnMaxCount = 0

	res, err := uc.Warn(ctx, cfg, "u1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !res.Kicked || res.KickErr == nil {
		t.Errorf("Expected kick with removal error, got %+v", res)
	}
	if len(warnRepo.marks) != 0 {
		t.Error("Expected mark to be deleted")
	}
}

func TestWarnUsecase_Expired(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	warnRepo := newMockWarnRepo()
	uc := NewWarnUsecase(warnRepo, &mockGatewayRepo{})
	uc.SetClock(clock.Now)

	_ = warnRepo.Save(ctx, &domain.WarnMark{GroupID: "g1", UserID: "old", FirstAt: clock.now.Add(-6 * time.Minute), Count: 1})
	_ = warnRepo.Save(ctx, &domain.WarnMark{GroupID: "g1", UserID: "fresh", FirstAt: clock.now.Add(-1 * time.Minute), Count: 1})
	_ = warnRepo.Save(ctx, &domain.WarnMark{GroupID: "g2", UserID: "default", FirstAt: clock.now.Add(-11 * time.Minute), Count: 1})

	expired, err := uc.Expired(ctx, map[string]time.Duration{"g1": 5 * time.Minute})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := map[string]bool{}
	for _, m := range expired {
		got[m.UserID] = true
	}
	if len(got) != 2 || !got["old"] || !got["default"] {
		t.Errorf("Expected old and default to be expired, got %v", got)
	}
}
