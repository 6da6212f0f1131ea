package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// MembershipUsecase handles group update events
type MembershipUsecase struct {
	registryUC  *RegistryUsecase
	takeoverUC  *TakeoverUsecase
	auditUC     *AuditUsecase
	configRepo  repo.ConfigRepo
	gatewayRepo repo.GatewayRepo
}

// NewMembershipUsecase creates a new membership usecase
func NewMembershipUsecase(
	registryUC *RegistryUsecase,
	takeoverUC *TakeoverUsecase,
	auditUC *AuditUsecase,
	configRepo repo.ConfigRepo,
	gatewayRepo repo.GatewayRepo,
) *MembershipUsecase {
	return &MembershipUsecase{
		registryUC:  registryUC,
		takeoverUC:  takeoverUC,
		auditUC:     auditUC,
		configRepo:  configRepo,
		gatewayRepo: gatewayRepo,
	}
}

// UpdateResult describes what a group update caused
type UpdateResult struct {
	Added    []string
	Welcomed int
	TookOver bool
	AdminNow bool
}

// HandleUpdate refreshes the group, re-applies permissions when the moderator
// may enforce, then welcomes members that joined since the stored snapshot.
// The snapshot is persisted before any welcome is sent, so a replayed update
// never welcomes the same member twice.
func (uc *MembershipUsecase) HandleUpdate(ctx context.Context, groupID string) (*UpdateResult, error) {
	rt, err := uc.registryUC.Refresh(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("refresh group: %w", err)
	}
	cfg := rt.Config
	result := &UpdateResult{AdminNow: cfg.BotHasAdmin}

	var errs []error
	if cfg.Enabled && cfg.BotHasAdmin && cfg.RequireBotAdminToEnforce {
		issued, err := uc.takeoverUC.Apply(ctx, cfg)
		result.TookOver = issued
		if issued {
			uc.auditUC.Record(ctx, groupID, domain.ActionTakeover, rt.SelfID, "", "", err != nil)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}

	result.Added = rt.AddedMembers()
	cfg.LastMembersSnapshot = rt.Members.Sorted()
	if err := uc.configRepo.SaveGroup(ctx, cfg); err != nil {
		errs = append(errs, fmt.Errorf("save group: %w", err))
		return result, errors.Join(errs...)
	}

	for _, id := range result.Added {
		msg := rt.Welcome(id)
		if msg == "" {
			continue
		}
		err := uc.gatewayRepo.SendGroupMessage(ctx, groupID, msg)
		uc.auditUC.Record(ctx, groupID, domain.ActionWelcome, rt.SelfID, id, "", err != nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("welcome %s: %w", id, err))
			continue
		}
		result.Welcomed++
	}
	return result, errors.Join(errs...)
}
