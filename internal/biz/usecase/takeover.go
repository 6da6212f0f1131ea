package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// TakeoverUsecase applies a group's desired permissions
type TakeoverUsecase struct {
	gatewayRepo repo.GatewayRepo
}

// NewTakeoverUsecase creates a new takeover usecase
func NewTakeoverUsecase(gatewayRepo repo.GatewayRepo) *TakeoverUsecase {
	return &TakeoverUsecase{gatewayRepo: gatewayRepo}
}

// Apply issues one permission update when the moderator is admin.
// It reports whether an update was issued. Re-applying the same state is safe.
func (uc *TakeoverUsecase) Apply(ctx context.Context, cfg *domain.GroupConfig) (bool, error) {
	if !cfg.BotHasAdmin {
		slog.Debug("takeover skipped, moderator is not admin", "group", cfg.GroupID)
		return false, nil
	}
	if err := uc.gatewayRepo.UpdatePermissions(ctx, cfg.GroupID, cfg.DesiredPermissions()); err != nil {
		return true, fmt.Errorf("update permissions: %w", err)
	}
	return true, nil
}
