package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

// mockConfigRepo implements repo.ConfigRepo for testing
type mockConfigRepo struct {
	groups []*domain.GroupConfig
}

func (m *mockConfigRepo) LoadGlobal(ctx context.Context) (*domain.GlobalConfig, error) {
	return &domain.GlobalConfig{}, nil
}

func (m *mockConfigRepo) SaveGlobal(ctx context.Context, cfg *domain.GlobalConfig) error {
	return nil
}

func (m *mockConfigRepo) GetGroup(ctx context.Context, groupID string) (*domain.GroupConfig, error) {
	return nil, nil
}

func (m *mockConfigRepo) SaveGroup(ctx context.Context, cfg *domain.GroupConfig) error {
	return nil
}

func (m *mockConfigRepo) UpdateGroup(ctx context.Context, groupID string, fn func(cfg *domain.GroupConfig) error) (*domain.GroupConfig, error) {
	return nil, nil
}

func (m *mockConfigRepo) ListGroups(ctx context.Context) ([]*domain.GroupConfig, error) {
	return m.groups, nil
}

func (m *mockConfigRepo) DeleteAllGroups(ctx context.Context) error {
	return nil
}

func (m *mockConfigRepo) Close() error {
	return nil
}

// mockWarnRepo implements repo.WarnRepo for testing
type mockWarnRepo struct {
	marks     []*domain.WarnMark
	lastGroup string
}

func (m *mockWarnRepo) Get(ctx context.Context, groupID, userID string) (*domain.WarnMark, error) {
	return nil, nil
}

func (m *mockWarnRepo) Save(ctx context.Context, mark *domain.WarnMark) error {
	return nil
}

func (m *mockWarnRepo) Delete(ctx context.Context, groupID, userID string) error {
	return nil
}

func (m *mockWarnRepo) CompareAndDelete(ctx context.Context, mark *domain.WarnMark) (bool, error) {
	return false, nil
}

func (m *mockWarnRepo) List(ctx context.Context, groupID string) ([]*domain.WarnMark, error) {
	m.lastGroup = groupID
	return m.marks, nil
}

func (m *mockWarnRepo) DeleteAll(ctx context.Context) error {
	return nil
}

func (m *mockWarnRepo) Close() error {
	return nil
}

// mockAuditReader implements repo.AuditReader for testing
type mockAuditReader struct {
	records []*domain.ModerationRecord
	limit   int
}

func (m *mockAuditReader) Recent(ctx context.Context, groupID string, limit int) ([]*domain.ModerationRecord, error) {
	m.limit = limit
	return m.records, nil
}

func newTestServer(audit *mockAuditReader) (*Server, *mockWarnRepo) {
	cfg := domain.NewGroupConfig("ab/cd==")
	cfg.GroupName = "Test"
	cfg.Enabled = true
	cfg.LastMembersSnapshot = []string{"u1", "u2"}
	cfg.AddRule(domain.Rule{Kind: domain.RuleWarn, Keywords: []string{"spam"}})

	warn := &mockWarnRepo{marks: []*domain.WarnMark{{GroupID: "ab/cd==", UserID: "u1", FirstAt: time.Unix(1700000000, 0), Count: 2}}}
	var s *Server
	if audit != nil {
		s = NewServer(&mockConfigRepo{groups: []*domain.GroupConfig{cfg}}, warn, audit, "127.0.0.1:0")
	} else {
		s = NewServer(&mockConfigRepo{groups: []*domain.GroupConfig{cfg}}, warn, nil, "127.0.0.1:0")
	}
	return s, warn
}

func TestHandleGroups(t *testing.T) {
	s, _ := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/groups", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	var resp struct {
		Groups []GroupSummary `json:"groups"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
	if len(resp.Groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(resp.Groups))
	}
	g := resp.Groups[0]
	if g.GroupName != "Test" || !g.Enabled || g.Members != 2 || g.WarnRules != 1 {
		t.Errorf("Unexpected summary: %+v", g)
	}
}

func TestHandleGroups_MethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/groups", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected status 405, got %d", w.Code)
	}
}

func TestHandleMarks_GroupWithSlash(t *testing.T) {
	s, warn := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/marks?group="+url.QueryEscape("ab/cd=="), nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if warn.lastGroup != "ab/cd==" {
		t.Errorf("Expected group 'ab/cd==', got '%s'", warn.lastGroup)
	}
	if !strings.Contains(w.Body.String(), `"count":2`) {
		t.Errorf("Expected mark in response, got %s", w.Body.String())
	}
}

func TestHandleLog(t *testing.T) {
	audit := &mockAuditReader{records: []*domain.ModerationRecord{{ID: "1", GroupID: "g1", Action: domain.ActionKick}}}
	s, _ := newTestServer(audit)

	req := httptest.NewRequest(http.MethodGet, "/api/log?group=g1&limit=5", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", w.Code)
	}
	if audit.limit != 5 {
		t.Errorf("Expected limit 5, got %d", audit.limit)
	}
	if !strings.Contains(w.Body.String(), `"action":"kick"`) {
		t.Errorf("Expected kick record, got %s", w.Body.String())
	}
}

func TestHandleLog_Disabled(t *testing.T) {
	s, _ := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/log?group=g1", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", w.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	s, _ := newTestServer(nil)

	for _, path := range []string{"/healthz", "/metrics"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s: expected status 200, got %d", path, w.Code)
		}
	}
}
