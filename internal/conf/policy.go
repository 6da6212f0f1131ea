package conf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

// PolicyFile is the YAML form of a group policy, used by policy import/export
type PolicyFile struct {
	Enabled                  bool   `yaml:"enabled"`
	OnlyAdminCanBan          *bool  `yaml:"only_admin_can_ban,omitempty"`
	RequireBotAdminToEnforce *bool  `yaml:"require_bot_admin_to_enforce,omitempty"`
	WelcomeTemplate          string `yaml:"welcome_template,omitempty"`

	AutoReplies []PolicyRule `yaml:"auto_replies,omitempty"`
	WarnRules   []PolicyRule `yaml:"warn_rules,omitempty"`
	BanRules    []PolicyRule `yaml:"ban_rules,omitempty"`

	Warn        WarnPolicy        `yaml:"warn"`
	Permissions PermissionsPolicy `yaml:"permissions"`
}

// PolicyRule is one keyword rule
type PolicyRule struct {
	Keywords []string `yaml:"keywords"`
	Reply    string   `yaml:"reply,omitempty"`
}

// WarnPolicy contains the warn window settings
type WarnPolicy struct {
	WindowMinutes int    `yaml:"window_minutes"`
	MaxCount      int    `yaml:"max_count"`
	Message       string `yaml:"message,omitempty"`
}

// PermissionsPolicy contains the permissions applied on takeover
type PermissionsPolicy struct {
	AddMember   string `yaml:"add_member,omitempty"`
	SendMessage string `yaml:"send_message,omitempty"`
	EditDetails string `yaml:"edit_details,omitempty"`
}

// LoadPolicyFile loads a group policy from a YAML file
func LoadPolicyFile(path string) (*PolicyFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy file: %w", err)
	}
	return ParsePolicy(data)
}

// ParsePolicy decodes a YAML group policy and fills in defaults
func ParsePolicy(data []byte) (*PolicyFile, error) {
	var p PolicyFile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}
	for _, rules := range [][]PolicyRule{p.AutoReplies, p.WarnRules, p.BanRules} {
		for i, r := range rules {
			if len(r.Keywords) == 0 {
				return nil, fmt.Errorf("rule %d has no keywords", i+1)
			}
		}
	}
	p.fillDefaults()
	return &p, nil
}

// fillDefaults fills in default values for empty fields
func (p *PolicyFile) fillDefaults() {
	defaults := domain.NewGroupConfig("")

	if p.OnlyAdminCanBan == nil {
		p.OnlyAdminCanBan = &defaults.OnlyAdminCanBan
	}
	if p.RequireBotAdminToEnforce == nil {
		p.RequireBotAdminToEnforce = &defaults.RequireBotAdminToEnforce
	}
	if p.Warn.WindowMinutes <= 0 {
		p.Warn.WindowMinutes = defaults.WarnWindowMinutes
	}
	if p.Warn.MaxCount <= 0 {
		p.Warn.MaxCount = defaults.WarnMaxCount
	}
	if p.Warn.Message == "" {
		p.Warn.Message = defaults.WarnMessage
	}
}

// Apply overwrites the policy fields of cfg. Group identity, the member
// snapshot and the admin flag are left alone.
func (p *PolicyFile) Apply(cfg *domain.GroupConfig) {
	cfg.Enabled = p.Enabled
	if p.OnlyAdminCanBan != nil {
		cfg.OnlyAdminCanBan = *p.OnlyAdminCanBan
	}
	if p.RequireBotAdminToEnforce != nil {
		cfg.RequireBotAdminToEnforce = *p.RequireBotAdminToEnforce
	}
	cfg.WelcomeTemplate = p.WelcomeTemplate
	cfg.AutoReplies = toRules(p.AutoReplies, domain.RuleReply)
	cfg.WarnRules = toRules(p.WarnRules, domain.RuleWarn)
	cfg.BanRules = toRules(p.BanRules, domain.RuleBan)
	cfg.WarnWindowMinutes = p.Warn.WindowMinutes
	cfg.WarnMaxCount = p.Warn.MaxCount
	cfg.WarnMessage = p.Warn.Message
	cfg.PermissionAddMember = domain.NormalizePermission(p.Permissions.AddMember)
	cfg.PermissionSendMessage = domain.NormalizePermission(p.Permissions.SendMessage)
	cfg.PermissionEditDetails = domain.NormalizePermission(p.Permissions.EditDetails)
	cfg.Normalize()
}

// PolicyFromConfig builds the YAML form of a stored policy
func PolicyFromConfig(cfg *domain.GroupConfig) *PolicyFile {
	onlyAdmin := cfg.OnlyAdminCanBan
	requireAdmin := cfg.RequireBotAdminToEnforce
	perms := cfg.DesiredPermissions()
	return &PolicyFile{
		Enabled:                  cfg.Enabled,
		OnlyAdminCanBan:          &onlyAdmin,
		RequireBotAdminToEnforce: &requireAdmin,
		WelcomeTemplate:          cfg.WelcomeTemplate,
		AutoReplies:              fromRules(cfg.AutoReplies),
		WarnRules:                fromRules(cfg.WarnRules),
		BanRules:                 fromRules(cfg.BanRules),
		Warn: WarnPolicy{
			WindowMinutes: cfg.WarnWindowMinutes,
			MaxCount:      cfg.WarnMaxCount,
			Message:       cfg.WarnMessage,
		},
		Permissions: PermissionsPolicy{
			AddMember:   string(perms.AddMember),
			SendMessage: string(perms.SendMessage),
			EditDetails: string(perms.EditDetails),
		},
	}
}

// Marshal encodes the policy as YAML
func (p *PolicyFile) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy: %w", err)
	}
	return data, nil
}

// WritePolicyFile writes the policy to path
func WritePolicyFile(path string, p *PolicyFile) error {
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write policy file: %w", err)
	}
	return nil
}

func toRules(rules []PolicyRule, kind domain.RuleKind) []domain.Rule {
	out := make([]domain.Rule, 0, len(rules))
	for _, r := range rules {
		out = append(out, domain.Rule{Kind: kind, Keywords: append([]string(nil), r.Keywords...), Reply: r.Reply})
	}
	return out
}

func fromRules(rules []domain.Rule) []PolicyRule {
	out := make([]PolicyRule, 0, len(rules))
	for _, r := range rules {
		out = append(out, PolicyRule{Keywords: append([]string(nil), r.Keywords...), Reply: r.Reply})
	}
	return out
}
