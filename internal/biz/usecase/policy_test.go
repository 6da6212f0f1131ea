package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

func TestPolicy_SelectGroup(t *testing.T) {
	configRepo := newMockConfigRepo()
	gateway := &mockGatewayRepo{groups: []domain.Group{{ID: "g1", Name: "Friends"}}}
	uc := NewPolicyUsecase(configRepo, newMockWarnRepo(), gateway)
	ctx := context.Background()

	cfg, err := uc.SelectGroup(ctx, "g1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.GroupName != "Friends" || cfg.WarnMaxCount != domain.DefaultWarnMaxCount {
		t.Errorf("Expected defaults with name, got %+v", cfg)
	}
	if configRepo.global.SelectedGroup != "g1" {
		t.Errorf("Expected g1 to be selected, got %q", configRepo.global.SelectedGroup)
	}

	gid, err := uc.ResolveGroup(ctx, "")
	if err != nil || gid != "g1" {
		t.Errorf("Expected selected group, got %q %v", gid, err)
	}

	if _, err := uc.SelectGroup(ctx, "missing"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound, got %v", err)
	}
}

func TestPolicy_ResolveGroupWithoutSelection(t *testing.T) {
	uc := NewPolicyUsecase(newMockConfigRepo(), newMockWarnRepo(), nil)
	if _, err := uc.ResolveGroup(context.Background(), ""); !errors.Is(err, ErrNoGroupSelected) {
		t.Errorf("Expected ErrNoGroupSelected, got %v", err)
	}
}

func TestPolicy_Rules(t *testing.T) {
	configRepo := newMockConfigRepo(domain.NewGroupConfig("g1"))
	uc := NewPolicyUsecase(configRepo, newMockWarnRepo(), nil)
	ctx := context.Background()

	if _, err := uc.AddRule(ctx, "g1", domain.Rule{Kind: domain.RuleWarn, Keywords: []string{" ", ""}}); err == nil {
		t.Error("Expected blank keywords to be rejected")
	}
	if _, err := uc.AddRule(ctx, "g1", domain.Rule{Kind: domain.RuleReply, Keywords: []string{"hi"}}); err == nil {
		t.Error("Expected reply rule without text to be rejected")
	}

	cfg, err := uc.AddRule(ctx, "g1", domain.Rule{Kind: domain.RuleBan, Keywords: []string{" casino ", ""}, Reply: "ignored"})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if len(cfg.BanRules) != 1 || cfg.BanRules[0].Keywords[0] != "casino" || cfg.BanRules[0].Reply != "" {
		t.Errorf("Unexpected ban rules: %+v", cfg.BanRules)
	}

	if _, err := uc.RemoveRule(ctx, "g1", domain.RuleBan, 3); err == nil {
		t.Error("Expected out-of-range removal to fail")
	}
	cfg, err = uc.RemoveRule(ctx, "g1", domain.RuleBan, 0)
	if err != nil || len(cfg.BanRules) != 0 {
		t.Errorf("Expected rule removed, got %+v %v", cfg.BanRules, err)
	}

	if _, err := uc.AddRule(ctx, "nope", domain.Rule{Kind: domain.RuleBan, Keywords: []string{"x"}}); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("Expected unwatched group to be rejected, got %v", err)
	}
}

func TestPolicy_ReplaceKeepsRuntimeFields(t *testing.T) {
	stored := domain.NewGroupConfig("g1")
	stored.GroupName = "Friends"
	stored.LastMembersSnapshot = []string{"u1"}
	stored.BotHasAdmin = true
	configRepo := newMockConfigRepo(stored)
	uc := NewPolicyUsecase(configRepo, newMockWarnRepo(), nil)

	imported := &domain.GroupConfig{
		GroupID:             "other",
		Enabled:             true,
		WarnMaxCount:        5,
		WarnRules:           []domain.Rule{{Keywords: []string{"spam"}}},
		PermissionAddMember: "only-admins",
	}
	cfg, err := uc.Replace(context.Background(), "g1", imported)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if cfg.GroupID != "g1" || cfg.GroupName != "Friends" || !cfg.BotHasAdmin || len(cfg.LastMembersSnapshot) != 1 {
		t.Errorf("Expected runtime fields to be kept, got %+v", cfg)
	}
	if !cfg.Enabled || cfg.WarnMaxCount != 5 || cfg.WarnRules[0].Kind != domain.RuleWarn {
		t.Errorf("Expected imported policy, got %+v", cfg)
	}
	if cfg.PermissionAddMember != domain.PermissionOnlyAdmins {
		t.Errorf("Expected normalized permission, got %q", cfg.PermissionAddMember)
	}
}

func TestPolicy_Reset(t *testing.T) {
	configRepo := newMockConfigRepo(domain.NewGroupConfig("g1"))
	configRepo.global.Account = "+100"
	configRepo.global.SelectedGroup = "g1"
	configRepo.global.GatewayConfigDir = "/etc/signal"
	warnRepo := newMockWarnRepo()
	_ = warnRepo.Save(context.Background(), &domain.WarnMark{GroupID: "g1", UserID: "u1", Count: 1})
	uc := NewPolicyUsecase(configRepo, warnRepo, nil)

	global, err := uc.Reset(context.Background())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if global.Account != "" || global.SelectedGroup != "" || global.GatewayConfigDir != "/etc/signal" {
		t.Errorf("Unexpected global after reset: %+v", global)
	}
	if len(configRepo.groups) != 0 || len(warnRepo.marks) != 0 {
		t.Error("Expected groups and marks to be removed")
	}
}
