package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// ErrNoGroupSelected means a command needed a group but none was given or selected
var ErrNoGroupSelected = errors.New("no group selected, run `magicbot group select` or pass --group")

// PolicyUsecase edits group policies on behalf of operators
type PolicyUsecase struct {
	configRepo  repo.ConfigRepo
	warnRepo    repo.WarnRepo
	gatewayRepo repo.GatewayRepo
}

// NewPolicyUsecase creates a new policy usecase. gatewayRepo may be nil for
// commands that never talk to the gateway.
func NewPolicyUsecase(configRepo repo.ConfigRepo, warnRepo repo.WarnRepo, gatewayRepo repo.GatewayRepo) *PolicyUsecase {
	return &PolicyUsecase{
		configRepo:  configRepo,
		warnRepo:    warnRepo,
		gatewayRepo: gatewayRepo,
	}
}

// ResolveGroup returns groupID, or the selected group when groupID is empty
func (uc *PolicyUsecase) ResolveGroup(ctx context.Context, groupID string) (string, error) {
	if groupID = strings.TrimSpace(groupID); groupID != "" {
		return groupID, nil
	}
	global, err := uc.configRepo.LoadGlobal(ctx)
	if err != nil {
		return "", err
	}
	if global.SelectedGroup == "" {
		return "", ErrNoGroupSelected
	}
	return global.SelectedGroup, nil
}

// GatewayGroups lists the groups the account belongs to
func (uc *PolicyUsecase) GatewayGroups(ctx context.Context) ([]domain.Group, error) {
	if uc.gatewayRepo == nil {
		return nil, errors.New("gateway not configured")
	}
	return uc.gatewayRepo.ListGroups(ctx)
}

// SelectGroup starts watching a group: its policy is created with defaults
// when missing, its name refreshed, and it becomes the selected group.
func (uc *PolicyUsecase) SelectGroup(ctx context.Context, groupID string) (*domain.GroupConfig, error) {
	groups, err := uc.GatewayGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	var found *domain.Group
	for i := range groups {
		if groups[i].ID == groupID {
			found = &groups[i]
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("%s: %w", groupID, domain.ErrGroupNotFound)
	}

	cfg, err := uc.configRepo.UpdateGroup(ctx, groupID, func(cfg *domain.GroupConfig) error {
		cfg.GroupName = found.Name
		return nil
	})
	if err != nil {
		return nil, err
	}

	global, err := uc.configRepo.LoadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	global.SelectedGroup = groupID
	if err := uc.configRepo.SaveGlobal(ctx, global); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Get returns the stored policy of a watched group
func (uc *PolicyUsecase) Get(ctx context.Context, groupID string) (*domain.GroupConfig, error) {
	cfg, err := uc.configRepo.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("%s is not watched: %w", groupID, domain.ErrGroupNotFound)
	}
	return cfg, nil
}

// Watched returns every stored group policy
func (uc *PolicyUsecase) Watched(ctx context.Context) ([]*domain.GroupConfig, error) {
	return uc.configRepo.ListGroups(ctx)
}

// Update applies fn to a watched group's policy
func (uc *PolicyUsecase) Update(ctx context.Context, groupID string, fn func(cfg *domain.GroupConfig) error) (*domain.GroupConfig, error) {
	if _, err := uc.Get(ctx, groupID); err != nil {
		return nil, err
	}
	return uc.configRepo.UpdateGroup(ctx, groupID, fn)
}

// Replace stores an imported policy, keeping the runtime-derived fields
func (uc *PolicyUsecase) Replace(ctx context.Context, groupID string, policy *domain.GroupConfig) (*domain.GroupConfig, error) {
	return uc.configRepo.UpdateGroup(ctx, groupID, func(cfg *domain.GroupConfig) error {
		next := policy.Clone()
		next.GroupID = groupID
		next.LastMembersSnapshot = cfg.LastMembersSnapshot
		next.BotHasAdmin = cfg.BotHasAdmin
		if next.GroupName == "" {
			next.GroupName = cfg.GroupName
		}
		next.Normalize()
		*cfg = *next
		return nil
	})
}

// SetEnabled switches moderation of a group on or off
func (uc *PolicyUsecase) SetEnabled(ctx context.Context, groupID string, enabled bool) (*domain.GroupConfig, error) {
	return uc.Update(ctx, groupID, func(cfg *domain.GroupConfig) error {
		cfg.Enabled = enabled
		return nil
	})
}

// AddRule appends a keyword rule
func (uc *PolicyUsecase) AddRule(ctx context.Context, groupID string, rule domain.Rule) (*domain.GroupConfig, error) {
	var keywords []string
	for _, k := range rule.Keywords {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	if len(keywords) == 0 {
		return nil, errors.New("rule needs at least one non-empty keyword")
	}
	if rule.Kind == domain.RuleReply && strings.TrimSpace(rule.Reply) == "" {
		return nil, errors.New("reply rule needs reply text")
	}
	if rule.Kind != domain.RuleReply {
		rule.Reply = ""
	}
	rule.Keywords = keywords
	return uc.Update(ctx, groupID, func(cfg *domain.GroupConfig) error {
		cfg.AddRule(rule)
		return nil
	})
}

// RemoveRule deletes the rule at index (0-based) of a kind
func (uc *PolicyUsecase) RemoveRule(ctx context.Context, groupID string, kind domain.RuleKind, index int) (*domain.GroupConfig, error) {
	return uc.Update(ctx, groupID, func(cfg *domain.GroupConfig) error {
		if !cfg.RemoveRule(kind, index) {
			return fmt.Errorf("no %s rule at index %d", kind, index)
		}
		return nil
	})
}

// ClearRules removes all rules of a kind
func (uc *PolicyUsecase) ClearRules(ctx context.Context, groupID string, kind domain.RuleKind) (*domain.GroupConfig, error) {
	return uc.Update(ctx, groupID, func(cfg *domain.GroupConfig) error {
		cfg.ClearRules(kind)
		return nil
	})
}

// WarnMarks lists the warn marks of a group
func (uc *PolicyUsecase) WarnMarks(ctx context.Context, groupID string) ([]*domain.WarnMark, error) {
	return uc.warnRepo.List(ctx, groupID)
}

// ClearWarnMark forgets the warnings of one user
func (uc *PolicyUsecase) ClearWarnMark(ctx context.Context, groupID, userID string) error {
	return uc.warnRepo.Delete(ctx, groupID, userID)
}

// Reset drops every group policy and warn mark and forgets the account.
// The gateway config directory is kept.
func (uc *PolicyUsecase) Reset(ctx context.Context) (*domain.GlobalConfig, error) {
	if err := uc.configRepo.DeleteAllGroups(ctx); err != nil {
		return nil, err
	}
	if err := uc.warnRepo.DeleteAll(ctx); err != nil {
		return nil, err
	}
	global, err := uc.configRepo.LoadGlobal(ctx)
	if err != nil {
		return nil, err
	}
	global.Account = ""
	global.SelectedGroup = ""
	if err := uc.configRepo.SaveGlobal(ctx, global); err != nil {
		return nil, err
	}
	return global, nil
}
