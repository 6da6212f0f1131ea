package mcpserver

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/usecase"
)

// PolicyServer exposes group policy editing as MCP tools
type PolicyServer struct {
	server   *mcp.Server
	policyUC *usecase.PolicyUsecase
}

// NewServer creates a new policy MCP server
func NewServer(policyUC *usecase.PolicyUsecase, version string) *PolicyServer {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "magicbot-policy",
		Version: version,
	}, nil)

	s := &PolicyServer{
		server:   server,
		policyUC: policyUC,
	}

	// Register tools
	s.registerTools()

	return s
}

// Run serves over stdin/stdout until the client disconnects or ctx is done
func (s *PolicyServer) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// registerTools registers all policy tools
func (s *PolicyServer) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_groups",
		Description: "List the groups the bot account belongs to and whether each one is watched and moderated.",
	}, s.handleListGroups)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_policy",
		Description: "Get the moderation policy of a watched group: switches, keyword rules, warn settings and permissions.",
	}, s.handleGetPolicy)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "set_enabled",
		Description: "Turn moderation of a watched group on or off. Takes effect on the next group update or daemon restart.",
	}, s.handleSetEnabled)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_rule",
		Description: "Add a keyword rule. kind is reply (send the reply text), warn (count a warning) or ban (remove the sender).",
	}, s.handleAddRule)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_rule",
		Description: "Remove a keyword rule by kind and 1-based position as shown by get_policy.",
	}, s.handleRemoveRule)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_warn_marks",
		Description: "List the users of a group that currently carry warnings.",
	}, s.handleListWarnMarks)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "clear_warn_mark",
		Description: "Forget the warnings of one user in a group.",
	}, s.handleClearWarnMark)
}

// GroupInput selects a group; empty means the selected group
type GroupInput struct {
	GroupID string `json:"group_id,omitempty" jsonschema:"The group id. Defaults to the selected group."`
}

// Group is one entry of list_groups
type Group struct {
	GroupID string `json:"group_id"`
	Name    string `json:"name"`
	Members int    `json:"members"`
	Watched bool   `json:"watched"`
	Enabled bool   `json:"enabled"`
}

// ListGroupsInput is empty - no input needed
type ListGroupsInput struct{}

// ListGroupsOutput contains the groups
type ListGroupsOutput struct {
	Groups []Group `json:"groups"`
	Error  string  `json:"error,omitempty"`
}

func (s *PolicyServer) handleListGroups(ctx context.Context, req *mcp.CallToolRequest, input ListGroupsInput) (*mcp.CallToolResult, ListGroupsOutput, error) {
	listing, err := s.policyUC.GatewayGroups(ctx)
	if err != nil {
		return nil, ListGroupsOutput{Error: err.Error()}, nil
	}
	watched, err := s.policyUC.Watched(ctx)
	if err != nil {
		return nil, ListGroupsOutput{Error: err.Error()}, nil
	}
	policies := make(map[string]*domain.GroupConfig, len(watched))
	for _, cfg := range watched {
		policies[cfg.GroupID] = cfg
	}

	groups := make([]Group, 0, len(listing))
	for _, g := range listing {
		out := Group{GroupID: g.ID, Name: g.Name, Members: len(g.Members)}
		if cfg, ok := policies[g.ID]; ok {
			out.Watched = true
			out.Enabled = cfg.Enabled
		}
		groups = append(groups, out)
	}
	return nil, ListGroupsOutput{Groups: groups}, nil
}

// Rule is a keyword rule as shown to tool callers
type Rule struct {
	Position int      `json:"position"`
	Keywords []string `json:"keywords"`
	Reply    string   `json:"reply,omitempty"`
}

// Policy is the tool view of a group policy
type Policy struct {
	GroupID                  string `json:"group_id"`
	GroupName                string `json:"group_name"`
	Enabled                  bool   `json:"enabled"`
	OnlyAdminCanBan          bool   `json:"only_admin_can_ban"`
	RequireBotAdminToEnforce bool   `json:"require_bot_admin_to_enforce"`
	BotHasAdmin              bool   `json:"bot_has_admin"`
	WelcomeTemplate          string `json:"welcome_template,omitempty"`
	AutoReplies              []Rule `json:"auto_replies"`
	WarnRules                []Rule `json:"warn_rules"`
	BanRules                 []Rule `json:"ban_rules"`
	WarnWindowMinutes        int    `json:"warn_window_minutes"`
	WarnMaxCount             int    `json:"warn_max_count"`
	WarnMessage              string `json:"warn_message"`
}

// PolicyOutput wraps a policy or an error
type PolicyOutput struct {
	Policy *Policy `json:"policy,omitempty"`
	Error  string  `json:"error,omitempty"`
}

func (s *PolicyServer) handleGetPolicy(ctx context.Context, req *mcp.CallToolRequest, input GroupInput) (*mcp.CallToolResult, PolicyOutput, error) {
	gid, err := s.policyUC.ResolveGroup(ctx, input.GroupID)
	if err != nil {
		return nil, PolicyOutput{Error: err.Error()}, nil
	}
	cfg, err := s.policyUC.Get(ctx, gid)
	return nil, policyOutput(cfg, err), nil
}

// SetEnabledInput is the input for set_enabled tool
type SetEnabledInput struct {
	GroupID string `json:"group_id,omitempty" jsonschema:"The group id. Defaults to the selected group."`
	Enabled bool   `json:"enabled" jsonschema:"true to moderate the group, false to pause moderation"`
}

func (s *PolicyServer) handleSetEnabled(ctx context.Context, req *mcp.CallToolRequest, input SetEnabledInput) (*mcp.CallToolResult, PolicyOutput, error) {
	gid, err := s.policyUC.ResolveGroup(ctx, input.GroupID)
	if err != nil {
		return nil, PolicyOutput{Error: err.Error()}, nil
	}
	cfg, err := s.policyUC.SetEnabled(ctx, gid, input.Enabled)
	return nil, policyOutput(cfg, err), nil
}

// AddRuleInput is the input for add_rule tool
type AddRuleInput struct {
	GroupID  string   `json:"group_id,omitempty" jsonschema:"The group id. Defaults to the selected group."`
	Kind     string   `json:"kind" jsonschema:"reply, warn or ban"`
	Keywords []string `json:"keywords" jsonschema:"Case-insensitive substrings; any one of them triggers the rule"`
	Reply    string   `json:"reply,omitempty" jsonschema:"Reply text, required for reply rules"`
}

func (s *PolicyServer) handleAddRule(ctx context.Context, req *mcp.CallToolRequest, input AddRuleInput) (*mcp.CallToolResult, PolicyOutput, error) {
	kind, err := parseKind(input.Kind)
	if err != nil {
		return nil, PolicyOutput{Error: err.Error()}, nil
	}
	gid, err := s.policyUC.ResolveGroup(ctx, input.GroupID)
	if err != nil {
		return nil, PolicyOutput{Error: err.Error()}, nil
	}
	cfg, err := s.policyUC.AddRule(ctx, gid, domain.Rule{Kind: kind, Keywords: input.Keywords, Reply: input.Reply})
	return nil, policyOutput(cfg, err), nil
}

// RemoveRuleInput is the input for remove_rule tool
type RemoveRuleInput struct {
	GroupID  string `json:"group_id,omitempty" jsonschema:"The group id. Defaults to the selected group."`
	Kind     string `json:"kind" jsonschema:"reply, warn or ban"`
	Position int    `json:"position" jsonschema:"1-based position of the rule within its kind"`
}

func (s *PolicyServer) handleRemoveRule(ctx context.Context, req *mcp.CallToolRequest, input RemoveRuleInput) (*mcp.CallToolResult, PolicyOutput, error) {
	kind, err := parseKind(input.Kind)
	if err != nil {
		return nil, PolicyOutput{Error: err.Error()}, nil
	}
	gid, err := s.policyUC.ResolveGroup(ctx, input.GroupID)
	if err != nil {
		return nil, PolicyOutput{Error: err.Error()}, nil
	}
	cfg, err := s.policyUC.RemoveRule(ctx, gid, kind, input.Position-1)
	return nil, policyOutput(cfg, err), nil
}

// WarnMark is one entry of list_warn_marks
type WarnMark struct {
	UserID  string    `json:"user_id"`
	Count   int       `json:"count"`
	FirstAt time.Time `json:"first_at"`
}

// ListWarnMarksOutput contains the warn marks of a group
type ListWarnMarksOutput struct {
	Marks []WarnMark `json:"marks"`
	Error string     `json:"error,omitempty"`
}

func (s *PolicyServer) handleListWarnMarks(ctx context.Context, req *mcp.CallToolRequest, input GroupInput) (*mcp.CallToolResult, ListWarnMarksOutput, error) {
	gid, err := s.policyUC.ResolveGroup(ctx, input.GroupID)
	if err != nil {
		return nil, ListWarnMarksOutput{Error: err.Error()}, nil
	}
	marks, err := s.policyUC.WarnMarks(ctx, gid)
	if err != nil {
		return nil, ListWarnMarksOutput{Error: err.Error()}, nil
	}

	out := make([]WarnMark, 0, len(marks))
	for _, m := range marks {
		out = append(out, WarnMark{UserID: m.UserID, Count: m.Count, FirstAt: m.FirstAt})
	}
	return nil, ListWarnMarksOutput{Marks: out}, nil
}

// ClearWarnMarkInput is the input for clear_warn_mark tool
type ClearWarnMarkInput struct {
	GroupID string `json:"group_id,omitempty" jsonschema:"The group id. Defaults to the selected group."`
	UserID  string `json:"user_id" jsonschema:"The uuid or phone number of the user"`
}

// ClearWarnMarkOutput is the output for clear_warn_mark tool
type ClearWarnMarkOutput struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func (s *PolicyServer) handleClearWarnMark(ctx context.Context, req *mcp.CallToolRequest, input ClearWarnMarkInput) (*mcp.CallToolResult, ClearWarnMarkOutput, error) {
	if input.UserID == "" {
		return nil, ClearWarnMarkOutput{Error: "user_id is required"}, nil
	}
	gid, err := s.policyUC.ResolveGroup(ctx, input.GroupID)
	if err != nil {
		return nil, ClearWarnMarkOutput{Error: err.Error()}, nil
	}
	if err := s.policyUC.ClearWarnMark(ctx, gid, input.UserID); err != nil {
		return nil, ClearWarnMarkOutput{Error: err.Error()}, nil
	}
	return nil, ClearWarnMarkOutput{Success: true}, nil
}

func policyOutput(cfg *domain.GroupConfig, err error) PolicyOutput {
	if err != nil {
		return PolicyOutput{Error: err.Error()}
	}
	return PolicyOutput{Policy: &Policy{
		GroupID:                  cfg.GroupID,
		GroupName:                cfg.GroupName,
		Enabled:                  cfg.Enabled,
		OnlyAdminCanBan:          cfg.OnlyAdminCanBan,
		RequireBotAdminToEnforce: cfg.RequireBotAdminToEnforce,
		BotHasAdmin:              cfg.BotHasAdmin,
		WelcomeTemplate:          cfg.WelcomeTemplate,
		AutoReplies:              toolRules(cfg.AutoReplies),
		WarnRules:                toolRules(cfg.WarnRules),
		BanRules:                 toolRules(cfg.BanRules),
		WarnWindowMinutes:        cfg.WarnWindowMinutes,
		WarnMaxCount:             cfg.WarnMaxCount,
		WarnMessage:              cfg.WarnMessage,
	}}
}

func parseKind(s string) (domain.RuleKind, error) {
	kind, ok := domain.ParseRuleKind(s)
	if !ok {
		return "", fmt.Errorf("unknown rule kind %q, want reply, warn or ban", s)
	}
	return kind, nil
}

func toolRules(rules []domain.Rule) []Rule {
	out := make([]Rule, 0, len(rules))
	for i, r := range rules {
		out = append(out, Rule{Position: i + 1, Keywords: r.Keywords, Reply: r.Reply})
	}
	return out
}
