package mcpserver

import (
	"context"
	"testing"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/usecase"
	"github.com/magicbot/magicbot/internal/data"
)

type fakeGateway struct {
	groups []domain.Group
}

func (g *fakeGateway) SendGroupMessage(ctx context.Context, groupID, text string) error { return nil }

func (g *fakeGateway) RemoveMember(ctx context.Context, groupID, memberID string) error { return nil }

func (g *fakeGateway) UpdatePermissions(ctx context.Context, groupID string, perms domain.Permissions) error {
	return nil
}

func (g *fakeGateway) ListGroups(ctx context.Context) ([]domain.Group, error) { return g.groups, nil }

func (g *fakeGateway) ListContacts(ctx context.Context) ([]domain.Contact, error) { return nil, nil }

func newTestServer(t *testing.T) *PolicyServer {
	t.Helper()
	dir := t.TempDir()
	configRepo, err := data.NewFileConfigRepo(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	warnRepo, err := data.NewFileWarnRepo(dir)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	ctx := context.Background()
	if err := configRepo.SaveGroup(ctx, domain.NewGroupConfig("g1")); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	global, _ := configRepo.LoadGlobal(ctx)
	global.SelectedGroup = "g1"
	if err := configRepo.SaveGlobal(ctx, global); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if err := warnRepo.Save(ctx, &domain.WarnMark{GroupID: "g1", UserID: "u1", Count: 2}); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	gateway := &fakeGateway{groups: []domain.Group{
		{ID: "g1", Name: "Watched", Members: []domain.Member{{ID: "u1"}, {ID: "u2"}}},
		{ID: "g2", Name: "Other"},
	}}
	return NewServer(usecase.NewPolicyUsecase(configRepo, warnRepo, gateway), "test")
}

func TestHandleListGroups(t *testing.T) {
	s := newTestServer(t)

	_, out, err := s.handleListGroups(context.Background(), nil, ListGroupsInput{})
	if err != nil || out.Error != "" {
		t.Fatalf("Unexpected error: %v %s", err, out.Error)
	}
	if len(out.Groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(out.Groups))
	}
	if !out.Groups[0].Watched || out.Groups[0].Members != 2 {
		t.Errorf("Expected g1 watched with 2 members, got %+v", out.Groups[0])
	}
	if out.Groups[1].Watched {
		t.Errorf("Expected g2 not watched")
	}
}

func TestHandleRules(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, _ := s.handleAddRule(ctx, nil, AddRuleInput{Kind: "warn", Keywords: []string{"spam", " "}})
	if out.Error != "" {
		t.Fatalf("Unexpected error: %s", out.Error)
	}
	if len(out.Policy.WarnRules) != 1 || out.Policy.WarnRules[0].Position != 1 {
		t.Fatalf("Expected one warn rule, got %+v", out.Policy.WarnRules)
	}
	if got := out.Policy.WarnRules[0].Keywords; len(got) != 1 || got[0] != "spam" {
		t.Errorf("Expected blank keyword dropped, got %v", got)
	}

	_, out, _ = s.handleAddRule(ctx, nil, AddRuleInput{Kind: "mute", Keywords: []string{"x"}})
	if out.Error == "" {
		t.Error("Expected error for unknown kind")
	}

	_, out, _ = s.handleRemoveRule(ctx, nil, RemoveRuleInput{Kind: "warn", Position: 2})
	if out.Error == "" {
		t.Error("Expected error for missing position")
	}

	_, out, _ = s.handleRemoveRule(ctx, nil, RemoveRuleInput{Kind: "warn", Position: 1})
	if out.Error != "" || len(out.Policy.WarnRules) != 0 {
		t.Errorf("Expected rule removed, got %+v (%s)", out.Policy, out.Error)
	}
}

func TestHandleSetEnabled(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, out, _ := s.handleSetEnabled(ctx, nil, SetEnabledInput{Enabled: true})
	if out.Error != "" || !out.Policy.Enabled {
		t.Fatalf("Expected enabled policy, got %+v (%s)", out.Policy, out.Error)
	}

	_, out, _ = s.handleSetEnabled(ctx, nil, SetEnabledInput{GroupID: "g2", Enabled: true})
	if out.Error == "" {
		t.Error("Expected error for unwatched group")
	}
}

func TestHandleWarnMarks(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, marks, _ := s.handleListWarnMarks(ctx, nil, GroupInput{})
	if len(marks.Marks) != 1 || marks.Marks[0].Count != 2 {
		t.Fatalf("Expected one mark, got %+v", marks)
	}

	_, cleared, _ := s.handleClearWarnMark(ctx, nil, ClearWarnMarkInput{UserID: "u1"})
	if !cleared.Success {
		t.Fatalf("Expected success, got %s", cleared.Error)
	}

	_, marks, _ = s.handleListWarnMarks(ctx, nil, GroupInput{})
	if len(marks.Marks) != 0 {
		t.Errorf("Expected no marks, got %+v", marks.Marks)
	}
}
