package conf

import (
	"path/filepath"
	"testing"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

const samplePolicy = `
enabled: true
welcome_template: "欢迎 ##{@user}##"
auto_replies:
  - keywords: [hello, hi]
    reply: "hello there"
warn_rules:
  - keywords: [spam]
ban_rules:
  - keywords: [scam]
permissions:
  send_message: only-admins
`

func TestParsePolicy_FillsDefaults(t *testing.T) {
	p, err := ParsePolicy([]byte(samplePolicy))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if p.Warn.WindowMinutes != domain.DefaultWarnWindowMinutes || p.Warn.MaxCount != domain.DefaultWarnMaxCount {
		t.Errorf("Expected default warn settings, got %+v", p.Warn)
	}
	if p.OnlyAdminCanBan == nil || !*p.OnlyAdminCanBan {
		t.Error("Expected only_admin_can_ban to default to true")
	}
}

func TestParsePolicy_RejectsEmptyRule(t *testing.T) {
	if _, err := ParsePolicy([]byte("warn_rules:\n  - keywords: []\n")); err == nil {
		t.Error("Expected error for rule without keywords")
	}
}

func TestPolicyFile_Apply(t *testing.T) {
	p, err := ParsePolicy([]byte(samplePolicy))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	cfg := domain.NewGroupConfig("g1")
	cfg.GroupName = "Test"
	cfg.LastMembersSnapshot = []string{"u1"}
	cfg.BotHasAdmin = true
	p.Apply(cfg)

	if !cfg.Enabled || cfg.WelcomeTemplate != "欢迎 ##{@user}##" {
		t.Errorf("Unexpected policy: %+v", cfg)
	}
	if len(cfg.AutoReplies) != 1 || cfg.AutoReplies[0].Kind != domain.RuleReply || cfg.AutoReplies[0].Reply != "hello there" {
		t.Errorf("Unexpected auto replies: %+v", cfg.AutoReplies)
	}
	if len(cfg.BanRules) != 1 || cfg.BanRules[0].Kind != domain.RuleBan {
		t.Errorf("Unexpected ban rules: %+v", cfg.BanRules)
	}
	if cfg.PermissionSendMessage != domain.PermissionOnlyAdmins {
		t.Errorf("Expected normalized send permission, got %s", cfg.PermissionSendMessage)
	}
	if cfg.PermissionAddMember != domain.PermissionEveryMember {
		t.Errorf("Expected fallback add permission, got %s", cfg.PermissionAddMember)
	}
	if cfg.GroupName != "Test" || len(cfg.LastMembersSnapshot) != 1 || !cfg.BotHasAdmin {
		t.Error("Expected runtime fields to be kept")
	}
}

func TestPolicyFile_ExportImport(t *testing.T) {
	cfg := domain.NewGroupConfig("g1")
	cfg.Enabled = true
	cfg.AddRule(domain.Rule{Kind: domain.RuleWarn, Keywords: []string{"spam"}})
	cfg.WarnMaxCount = 5

	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := WritePolicyFile(path, PolicyFromConfig(cfg)); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	p, err := LoadPolicyFile(path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	got := domain.NewGroupConfig("g1")
	p.Apply(got)
	if !got.Enabled || got.WarnMaxCount != 5 || len(got.WarnRules) != 1 || got.WarnRules[0].Keywords[0] != "spam" {
		t.Errorf("Unexpected imported policy: %+v", got)
	}
}
