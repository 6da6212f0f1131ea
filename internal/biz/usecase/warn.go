package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// WarnUsecase runs the warn-then-kick state machine
type WarnUsecase struct {
	warnRepo    repo.WarnRepo
	gatewayRepo repo.GatewayRepo
	now         func() time.Time
}

// NewWarnUsecase creates a new warn usecase
func NewWarnUsecase(warnRepo repo.WarnRepo, gatewayRepo repo.GatewayRepo) *WarnUsecase {
	return &WarnUsecase{
		warnRepo:    warnRepo,
		gatewayRepo: gatewayRepo,
		now:         time.Now,
	}
}

// SetClock replaces the time source
func (uc *WarnUsecase) SetClock(now func() time.Time) {
	uc.now = now
}

// WarnResult is the outcome of one warn-rule hit
type WarnResult struct {
	Count   int
	Kicked  bool
	KickErr error // removal failure when Kicked is set
}

// Warn records a warning for userID. Once the count within the window passes
// the group threshold the user is removed and the mark is deleted.
func (uc *WarnUsecase) Warn(ctx context.Context, cfg *domain.GroupConfig, userID string) (*WarnResult, error) {
	now := uc.now()

	mark, err := uc.warnRepo.Get(ctx, cfg.GroupID, userID)
	if err != nil {
		return nil, fmt.Errorf("get warn mark: %w", err)
	}
	if mark == nil {
		mark = domain.NewWarnMark(cfg.GroupID, userID, now)
	}

	count := mark.Record(now, cfg.WarnWindow())
	if err := uc.warnRepo.Save(ctx, mark); err != nil {
		return nil, fmt.Errorf("save warn mark: %w", err)
	}

	result := &WarnResult{Count: count}
	if !mark.Exceeds(cfg.WarnMaxCount) {
		return result, nil
	}

	result.Kicked = true
	result.KickErr = uc.gatewayRepo.RemoveMember(ctx, cfg.GroupID, userID)
	if err := uc.warnRepo.Delete(ctx, cfg.GroupID, userID); err != nil {
		return result, fmt.Errorf("delete warn mark: %w", err)
	}
	return result, nil
}

// Clear forgets the warnings of a user
func (uc *WarnUsecase) Clear(ctx context.Context, groupID, userID string) error {
	if err := uc.warnRepo.Delete(ctx, groupID, userID); err != nil {
		return fmt.Errorf("delete warn mark: %w", err)
	}
	return nil
}

// ClearExpired deletes an expired mark unless it changed since it was read.
// It reports whether the mark was deleted.
func (uc *WarnUsecase) ClearExpired(ctx context.Context, mark *domain.WarnMark) (bool, error) {
	deleted, err := uc.warnRepo.CompareAndDelete(ctx, mark)
	if err != nil {
		return false, fmt.Errorf("delete warn mark: %w", err)
	}
	return deleted, nil
}

// Expired returns the marks whose window has elapsed for their group policy
func (uc *WarnUsecase) Expired(ctx context.Context, windows map[string]time.Duration) ([]*domain.WarnMark, error) {
	marks, err := uc.warnRepo.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list warn marks: %w", err)
	}
	now := uc.now()
	var out []*domain.WarnMark
	for _, m := range marks {
		window, ok := windows[m.GroupID]
		if !ok {
			window = domain.DefaultWarnWindowMinutes * time.Minute
		}
		if m.Expired(now, window) {
			out = append(out, m)
		}
	}
	return out, nil
}
