package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

// Mock implementations

type mockConfigRepo struct {
	global *domain.GlobalConfig
	groups map[string]*domain.GroupConfig
	saves  int
}

func newMockConfigRepo(groups ...*domain.GroupConfig) *mockConfigRepo {
	m := &mockConfigRepo{
		global: domain.NewGlobalConfig(time.Unix(0, 0)),
		groups: make(map[string]*domain.GroupConfig),
	}
	for _, g := range groups {
		m.groups[g.GroupID] = g.Clone()
	}
	return m
}

func (m *mockConfigRepo) LoadGlobal(ctx context.Context) (*domain.GlobalConfig, error) {
	cp := *m.global
	return &cp, nil
}

func (m *mockConfigRepo) SaveGlobal(ctx context.Context, cfg *domain.GlobalConfig) error {
	cp := *cfg
	m.global = &cp
	return nil
}

func (m *mockConfigRepo) GetGroup(ctx context.Context, groupID string) (*domain.GroupConfig, error) {
	cfg, ok := m.groups[groupID]
	if !ok {
		return nil, nil
	}
	return cfg.Clone(), nil
}

func (m *mockConfigRepo) SaveGroup(ctx context.Context, cfg *domain.GroupConfig) error {
	m.saves++
	m.groups[cfg.GroupID] = cfg.Clone()
	return nil
}

func (m *mockConfigRepo) UpdateGroup(ctx context.Context, groupID string, fn func(cfg *domain.GroupConfig) error) (*domain.GroupConfig, error) {
	cfg, ok := m.groups[groupID]
	if !ok {
		cfg = domain.NewGroupConfig(groupID)
	} else {
		cfg = cfg.Clone()
	}
	if err := fn(cfg); err != nil {
		return nil, err
	}
	m.groups[groupID] = cfg.Clone()
	return cfg, nil
}

func (m *mockConfigRepo) ListGroups(ctx context.Context) ([]*domain.GroupConfig, error) {
	var out []*domain.GroupConfig
	for _, g := range m.groups {
		out = append(out, g.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].GroupID < out[j].GroupID })
	return out, nil
}

func (m *mockConfigRepo) DeleteAllGroups(ctx context.Context) error {
	m.groups = make(map[string]*domain.GroupConfig)
	return nil
}

func (m *mockConfigRepo) Close() error { return nil }

type mockWarnRepo struct {
	marks map[string]*domain.WarnMark
}

func newMockWarnRepo() *mockWarnRepo {
	return &mockWarnRepo{marks: make(map[string]*domain.WarnMark)}
}

func warnKey(groupID, userID string) string { return groupID + "/" + userID }

func (m *mockWarnRepo) Get(ctx context.Context, groupID, userID string) (*domain.WarnMark, error) {
	mark, ok := m.marks[warnKey(groupID, userID)]
	if !ok {
		return nil, nil
	}
	cp := *mark
	return &cp, nil
}

func (m *mockWarnRepo) Save(ctx context.Context, mark *domain.WarnMark) error {
	cp := *mark
	m.marks[warnKey(mark.GroupID, mark.UserID)] = &cp
	return nil
}

func (m *mockWarnRepo) Delete(ctx context.Context, groupID, userID string) error {
	delete(m.marks, warnKey(groupID, userID))
	return nil
}

func (m *mockWarnRepo) CompareAndDelete(ctx context.Context, mark *domain.WarnMark) (bool, error) {
	if !mark.Same(m.marks[warnKey(mark.GroupID, mark.UserID)]) {
		return false, nil
	}
	delete(m.marks, warnKey(mark.GroupID, mark.UserID))
	return true, nil
}

func (m *mockWarnRepo) List(ctx context.Context, groupID string) ([]*domain.WarnMark, error) {
	var out []*domain.WarnMark
	for _, mark := range m.marks {
		if groupID == "" || mark.GroupID == groupID {
			cp := *mark
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockWarnRepo) DeleteAll(ctx context.Context) error {
	m.marks = make(map[string]*domain.WarnMark)
	return nil
}

func (m *mockWarnRepo) Close() error { return nil }

type sentMessage struct {
	GroupID string
	Text    string
}

type removal struct {
	GroupID  string
	MemberID string
}

type mockGatewayRepo struct {
	groups   []domain.Group
	contacts []domain.Contact

	sent        []sentMessage
	removed     []removal
	permUpdates []domain.Permissions

	removeErr error
	sendErr   error
}

func (m *mockGatewayRepo) SendGroupMessage(ctx context.Context, groupID, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sent = append(m.sent, sentMessage{GroupID: groupID, Text: text})
	return nil
}

func (m *mockGatewayRepo) RemoveMember(ctx context.Context, groupID, memberID string) error {
	if m.removeErr != nil {
		return m.removeErr
	}
	m.removed = append(m.removed, removal{GroupID: groupID, MemberID: memberID})
	return nil
}

func (m *mockGatewayRepo) UpdatePermissions(ctx context.Context, groupID string, perms domain.Permissions) error {
	m.permUpdates = append(m.permUpdates, perms)
	return nil
}

func (m *mockGatewayRepo) ListGroups(ctx context.Context) ([]domain.Group, error) {
	return m.groups, nil
}

func (m *mockGatewayRepo) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	if m.contacts == nil {
		return nil, errors.New("contacts unavailable")
	}
	return m.contacts, nil
}

func (m *mockGatewayRepo) texts() []string {
	var out []string
	for _, s := range m.sent {
		out = append(out, s.Text)
	}
	return out
}

type mockAuditRepo struct {
	records []*domain.ModerationRecord
}

func (m *mockAuditRepo) Record(ctx context.Context, rec *domain.ModerationRecord) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *mockAuditRepo) Close() error { return nil }

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
