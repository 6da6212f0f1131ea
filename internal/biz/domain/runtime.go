package domain

import "strings"

// WelcomePlaceholder is replaced by the new member's display name
const WelcomePlaceholder = "##{@user}##"

// GroupRuntime is the in-memory view of a watched group, rebuilt from the
// gateway listing and the stored policy.
type GroupRuntime struct {
	Config  *GroupConfig
	Admins  IDSet
	Members IDSet
	Names   map[string]string
	SelfID  string
}

// NewGroupRuntime builds a runtime from a gateway listing entry.
// The moderator's admin flag is copied into the config, and an empty
// member snapshot is seeded with the current members.
func NewGroupRuntime(cfg *GroupConfig, g Group, contacts map[string]string, selfID string) *GroupRuntime {
	rt := &GroupRuntime{
		Config:  cfg,
		Admins:  NewIDSet(g.Admins),
		Members: NewIDSet(g.Members),
		Names:   make(map[string]string, len(contacts)),
		SelfID:  selfID,
	}
	for id, name := range contacts {
		rt.Names[id] = name
	}
	for _, m := range g.Members {
		if m.Name != "" {
			rt.Names[m.ID] = m.Name
		}
	}
	if cfg.GroupName == "" {
		cfg.GroupName = g.Name
	}
	cfg.BotHasAdmin = rt.Admins.Has(selfID)
	if len(cfg.LastMembersSnapshot) == 0 {
		cfg.LastMembersSnapshot = rt.Members.Sorted()
	}
	return rt
}

// GroupID returns the id of the group
func (rt *GroupRuntime) GroupID() string {
	return rt.Config.GroupID
}

// IsAdmin reports whether id administers the group
func (rt *GroupRuntime) IsAdmin(id string) bool {
	return rt.Admins.Has(id)
}

// AddedMembers returns the sorted ids that joined since the stored snapshot
func (rt *GroupRuntime) AddedMembers() []string {
	return rt.Members.Minus(rt.Config.LastMembersSnapshot)
}

// DisplayName returns the best known name for id, falling back to ShortID
func (rt *GroupRuntime) DisplayName(id string) string {
	if name, ok := rt.Names[id]; ok && name != "" {
		return name
	}
	return ShortID(id)
}

// Welcome renders the welcome template for id. It returns "" when no template is set.
func (rt *GroupRuntime) Welcome(id string) string {
	tpl := rt.Config.WelcomeTemplate
	if tpl == "" {
		return ""
	}
	return strings.ReplaceAll(tpl, WelcomePlaceholder, rt.DisplayName(id))
}

// ShortID abbreviates long identifiers to first 6 … last 4.
func ShortID(id string) string {
	if len(id) <= 12 {
		return id
	}
	return id[:6] + "…" + id[len(id)-4:]
}

// SelfID finds the moderator's id: the member whose number is the account,
// or the account itself when no listing contains it.
func SelfID(account string, groups []Group) string {
	for _, g := range groups {
		for _, m := range g.Members {
			if m.Number != "" && m.Number == account {
				return m.ID
			}
		}
	}
	return account
}
