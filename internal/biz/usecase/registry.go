package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// RegistryUsecase owns the runtimes of watched groups.
// It is not safe for concurrent use; the dispatcher is its only caller.
type RegistryUsecase struct {
	configRepo  repo.ConfigRepo
	gatewayRepo repo.GatewayRepo
	account     string

	selfID string
	groups map[string]*domain.GroupRuntime
}

// NewRegistryUsecase creates a registry for the given account
func NewRegistryUsecase(configRepo repo.ConfigRepo, gatewayRepo repo.GatewayRepo, account string) *RegistryUsecase {
	return &RegistryUsecase{
		configRepo:  configRepo,
		gatewayRepo: gatewayRepo,
		account:     account,
		selfID:      account,
		groups:      make(map[string]*domain.GroupRuntime),
	}
}

// Load builds a runtime for every listed group that has a stored policy and
// persists the refreshed policies. It fails when no group is watched.
func (uc *RegistryUsecase) Load(ctx context.Context) error {
	listing, err := uc.gatewayRepo.ListGroups(ctx)
	if err != nil {
		return fmt.Errorf("list groups: %w", err)
	}
	uc.selfID = domain.SelfID(uc.account, listing)
	names := uc.contactNames(ctx)

	groups := make(map[string]*domain.GroupRuntime)
	for _, g := range listing {
		cfg, err := uc.configRepo.GetGroup(ctx, g.ID)
		if err != nil {
			return fmt.Errorf("get group %s: %w", g.ID, err)
		}
		if cfg == nil {
			continue
		}
		rt := domain.NewGroupRuntime(cfg, g, names, uc.selfID)
		if err := uc.configRepo.SaveGroup(ctx, cfg); err != nil {
			return fmt.Errorf("save group %s: %w", g.ID, err)
		}
		groups[g.ID] = rt
	}
	if len(groups) == 0 {
		return domain.ErrNoWatchedGroups
	}
	uc.groups = groups
	return nil
}

// SelfID returns the moderator's id resolved during Load
func (uc *RegistryUsecase) SelfID() string {
	return uc.selfID
}

// Get returns the runtime of a watched group, or nil
func (uc *RegistryUsecase) Get(groupID string) *domain.GroupRuntime {
	return uc.groups[groupID]
}

// GroupIDs returns the watched group ids in order
func (uc *RegistryUsecase) GroupIDs() []string {
	ids := make([]string, 0, len(uc.groups))
	for id := range uc.groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Refresh rebuilds the runtime of a watched group from the gateway and the
// latest stored policy. The caller persists the resulting config.
func (uc *RegistryUsecase) Refresh(ctx context.Context, groupID string) (*domain.GroupRuntime, error) {
	cur, ok := uc.groups[groupID]
	if !ok {
		return nil, fmt.Errorf("%s: %w", groupID, domain.ErrGroupNotFound)
	}

	listing, err := uc.gatewayRepo.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	var group *domain.Group
	for i := range listing {
		if listing[i].ID == groupID {
			group = &listing[i]
			break
		}
	}
	if group == nil {
		return nil, fmt.Errorf("%s: %w", groupID, domain.ErrGroupNotFound)
	}

	cfg := cur.Config
	if stored, err := uc.configRepo.GetGroup(ctx, groupID); err != nil {
		slog.Warn("reload group policy failed, keeping cached policy", "group", groupID, "error", err)
	} else if stored != nil {
		cfg = stored
	}

	rt := domain.NewGroupRuntime(cfg, *group, uc.contactNames(ctx), uc.selfID)
	uc.groups[groupID] = rt
	return rt, nil
}

func (uc *RegistryUsecase) contactNames(ctx context.Context) map[string]string {
	contacts, err := uc.gatewayRepo.ListContacts(ctx)
	if err != nil {
		slog.Warn("list contacts failed, welcome names fall back to short ids", "error", err)
		return map[string]string{}
	}
	return domain.ContactNames(contacts)
}
