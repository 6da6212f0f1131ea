package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

func TestRegistry_LoadRequiresWatchedGroup(t *testing.T) {
	gateway := &mockGatewayRepo{groups: []domain.Group{{ID: "g1"}}}
	uc := NewRegistryUsecase(newMockConfigRepo(), gateway, "+100")

	err := uc.Load(context.Background())
	if !errors.Is(err, domain.ErrNoWatchedGroups) {
		t.Errorf("Expected ErrNoWatchedGroups, got %v", err)
	}
}

func TestRegistry_LoadBuildsRuntimes(t *testing.T) {
	configRepo := newMockConfigRepo(domain.NewGroupConfig("g1"))
	gateway := &mockGatewayRepo{
		groups: []domain.Group{
			{
				ID:      "g1",
				Name:    "Watched",
				Admins:  []domain.Member{{ID: "bot-uuid", Number: "+100"}},
				Members: []domain.Member{{ID: "bot-uuid", Number: "+100"}, {ID: "u1"}},
			},
			{ID: "g2", Name: "Not watched"},
		},
		contacts: []domain.Contact{{UUID: "u1", Name: "Alice"}},
	}
	uc := NewRegistryUsecase(configRepo, gateway, "+100")

	if err := uc.Load(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if uc.SelfID() != "bot-uuid" {
		t.Errorf("Expected self id bot-uuid, got %q", uc.SelfID())
	}
	if uc.Get("g2") != nil {
		t.Error("Expected unwatched group to be skipped")
	}

	rt := uc.Get("g1")
	if rt == nil {
		t.Fatal("Expected runtime for g1")
	}
	if !rt.Config.BotHasAdmin {
		t.Error("Expected bot admin flag")
	}
	if rt.DisplayName("u1") != "Alice" {
		t.Errorf("Expected contact name, got %q", rt.DisplayName("u1"))
	}

	stored := configRepo.groups["g1"]
	if stored.GroupName != "Watched" || len(stored.LastMembersSnapshot) != 2 || !stored.BotHasAdmin {
		t.Errorf("Expected refreshed policy to be persisted, got %+v", stored)
	}
}

func TestRegistry_RefreshPicksUpPolicyEdits(t *testing.T) {
	configRepo := newMockConfigRepo(domain.NewGroupConfig("g1"))
	gateway := &mockGatewayRepo{groups: []domain.Group{{ID: "g1", Members: []domain.Member{{ID: "u1"}}}}}
	uc := NewRegistryUsecase(configRepo, gateway, "+100")
	if err := uc.Load(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	configRepo.groups["g1"].Enabled = true

	rt, err := uc.Refresh(context.Background(), "g1")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !rt.Config.Enabled {
		t.Error("Expected refresh to reload the stored policy")
	}
	if uc.Get("g1") != rt {
		t.Error("Expected refreshed runtime to replace the cached one")
	}
}

func TestRegistry_RefreshMissingGroup(t *testing.T) {
	configRepo := newMockConfigRepo(domain.NewGroupConfig("g1"))
	gateway := &mockGatewayRepo{groups: []domain.Group{{ID: "g1"}}}
	uc := NewRegistryUsecase(configRepo, gateway, "+100")
	if err := uc.Load(context.Background()); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	gateway.groups = nil
	if _, err := uc.Refresh(context.Background(), "g1"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound, got %v", err)
	}
	if _, err := uc.Refresh(context.Background(), "nope"); !errors.Is(err, domain.ErrGroupNotFound) {
		t.Errorf("Expected ErrGroupNotFound for unwatched group, got %v", err)
	}
}
