package domain

import (
	"strings"
	"time"
)

// Permission is a group permission level understood by the gateway
type Permission string

const (
	PermissionEveryMember Permission = "EVERY_MEMBER"
	PermissionOnlyAdmins  Permission = "ONLY_ADMINS"
)

// NormalizePermission maps free-form input onto a Permission.
// Unknown values fall back to EVERY_MEMBER.
func NormalizePermission(s string) Permission {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "EVERY_MEMBER", "EVERY-MEMBER":
		return PermissionEveryMember
	case "ONLY_ADMINS", "ONLY-ADMINS":
		return PermissionOnlyAdmins
	default:
		return PermissionEveryMember
	}
}

// Permissions is the desired permission set applied on takeover
type Permissions struct {
	AddMember   Permission
	SendMessage Permission
	EditDetails Permission
}

// Defaults for a freshly selected group
const (
	DefaultWarnWindowMinutes = 10
	DefaultWarnMaxCount      = 3
	DefaultWarnMessage       = "警告：请停止违规内容，否则将被移出群组。"
	DefaultBotName           = "magicbot"
)

// GlobalConfig holds process-wide settings
type GlobalConfig struct {
	InstalledAt      int64  `json:"installed_at"`
	Account          string `json:"account,omitempty"`
	GatewayConfigDir string `json:"signal_cli_config_dir,omitempty"`
	SelectedGroup    string `json:"selected_group,omitempty"`
	DaemonEnabled    bool   `json:"daemon_enabled"`
}

// NewGlobalConfig returns the settings written on first run
func NewGlobalConfig(now time.Time) *GlobalConfig {
	return &GlobalConfig{InstalledAt: now.Unix()}
}

// GroupConfig is the moderation policy of one group
type GroupConfig struct {
	GroupID                  string `json:"group_id"`
	GroupName                string `json:"group_name"`
	Enabled                  bool   `json:"enabled"`
	OnlyAdminCanBan          bool   `json:"only_admin_can_ban"`
	RequireBotAdminToEnforce bool   `json:"require_bot_admin_to_enforce"`

	WelcomeTemplate string `json:"welcome_template,omitempty"`

	AutoReplies []Rule `json:"auto_replies"`
	WarnRules   []Rule `json:"warn_rules"`
	BanRules    []Rule `json:"ban_rules"`

	WarnWindowMinutes int    `json:"warn_window_minutes"`
	WarnMaxCount      int    `json:"warn_max_count"`
	WarnMessage       string `json:"warn_message"`

	PermissionAddMember   Permission `json:"desired_permission_add_member"`
	PermissionSendMessage Permission `json:"desired_permission_send_message"`
	PermissionEditDetails Permission `json:"desired_permission_edit_details"`

	LastMembersSnapshot []string `json:"last_members_snapshot"`
	BotHasAdmin         bool     `json:"bot_has_admin"`
}

// NewGroupConfig returns the default policy for a group
func NewGroupConfig(groupID string) *GroupConfig {
	return &GroupConfig{
		GroupID:                  groupID,
		OnlyAdminCanBan:          true,
		RequireBotAdminToEnforce: true,
		WarnWindowMinutes:        DefaultWarnWindowMinutes,
		WarnMaxCount:             DefaultWarnMaxCount,
		WarnMessage:              DefaultWarnMessage,
		PermissionAddMember:      PermissionEveryMember,
		PermissionSendMessage:    PermissionEveryMember,
		PermissionEditDetails:    PermissionOnlyAdmins,
	}
}

// Normalize stamps rule kinds and canonicalizes permission values after decoding
func (c *GroupConfig) Normalize() {
	stamp(c.AutoReplies, RuleReply)
	stamp(c.WarnRules, RuleWarn)
	stamp(c.BanRules, RuleBan)
	c.PermissionAddMember = NormalizePermission(string(c.PermissionAddMember))
	c.PermissionSendMessage = NormalizePermission(string(c.PermissionSendMessage))
	c.PermissionEditDetails = NormalizePermission(string(c.PermissionEditDetails))
}

// WarnWindow returns the warn window as a duration
func (c *GroupConfig) WarnWindow() time.Duration {
	return time.Duration(c.WarnWindowMinutes) * time.Minute
}

// DesiredPermissions returns the normalized takeover permissions
func (c *GroupConfig) DesiredPermissions() Permissions {
	return Permissions{
		AddMember:   NormalizePermission(string(c.PermissionAddMember)),
		SendMessage: NormalizePermission(string(c.PermissionSendMessage)),
		EditDetails: NormalizePermission(string(c.PermissionEditDetails)),
	}
}

// CanEnforce reports whether removals and warnings may be carried out
func (c *GroupConfig) CanEnforce() bool {
	if c.RequireBotAdminToEnforce {
		return c.BotHasAdmin
	}
	return true
}

// Clone returns a deep copy
func (c *GroupConfig) Clone() *GroupConfig {
	cp := *c
	cp.AutoReplies = cloneRules(c.AutoReplies)
	cp.WarnRules = cloneRules(c.WarnRules)
	cp.BanRules = cloneRules(c.BanRules)
	cp.LastMembersSnapshot = append([]string(nil), c.LastMembersSnapshot...)
	return &cp
}
