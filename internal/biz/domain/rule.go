package domain

import "strings"

// RuleKind selects the action a keyword rule triggers
type RuleKind string

const (
	RuleReply RuleKind = "reply"
	RuleWarn  RuleKind = "warn"
	RuleBan   RuleKind = "ban"
)

// ParseRuleKind validates a rule kind given on the command line or in a policy file
func ParseRuleKind(s string) (RuleKind, bool) {
	switch RuleKind(strings.ToLower(strings.TrimSpace(s))) {
	case RuleReply:
		return RuleReply, true
	case RuleWarn:
		return RuleWarn, true
	case RuleBan:
		return RuleBan, true
	}
	return "", false
}

// Rule is a keyword rule. Reply is only meaningful for RuleReply.
type Rule struct {
	Kind     RuleKind `json:"kind,omitempty"`
	Keywords []string `json:"keywords"`
	Reply    string   `json:"reply,omitempty"`
}

// Matches reports whether the rule's keywords hit text
func (r *Rule) Matches(text string) bool {
	return MatchKeywords(r.Keywords, text)
}

// MatchKeywords reports whether any non-empty keyword, trimmed and lower-cased,
// is a substring of the lower-cased text.
func MatchKeywords(keywords []string, text string) bool {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		kk := strings.ToLower(strings.TrimSpace(k))
		if kk != "" && strings.Contains(lower, kk) {
			return true
		}
	}
	return false
}

// FirstMatch returns the first rule of rules that matches text, or nil
func FirstMatch(rules []Rule, text string) *Rule {
	for i := range rules {
		if rules[i].Matches(text) {
			return &rules[i]
		}
	}
	return nil
}

// Rules returns the rule list of the given kind
func (c *GroupConfig) Rules(kind RuleKind) []Rule {
	switch kind {
	case RuleReply:
		return c.AutoReplies
	case RuleWarn:
		return c.WarnRules
	case RuleBan:
		return c.BanRules
	}
	return nil
}

// AddRule appends a rule to the list matching its kind
func (c *GroupConfig) AddRule(r Rule) {
	switch r.Kind {
	case RuleReply:
		c.AutoReplies = append(c.AutoReplies, r)
	case RuleWarn:
		c.WarnRules = append(c.WarnRules, r)
	case RuleBan:
		c.BanRules = append(c.BanRules, r)
	}
}

// RemoveRule deletes the rule at index i of the given kind.
// It returns false when i is out of range.
func (c *GroupConfig) RemoveRule(kind RuleKind, i int) bool {
	rules := c.Rules(kind)
	if i < 0 || i >= len(rules) {
		return false
	}
	rules = append(rules[:i:i], rules[i+1:]...)
	c.setRules(kind, rules)
	return true
}

// ClearRules removes every rule of the given kind
func (c *GroupConfig) ClearRules(kind RuleKind) {
	c.setRules(kind, nil)
}

func (c *GroupConfig) setRules(kind RuleKind, rules []Rule) {
	switch kind {
	case RuleReply:
		c.AutoReplies = rules
	case RuleWarn:
		c.WarnRules = rules
	case RuleBan:
		c.BanRules = rules
	}
}

func stamp(rules []Rule, kind RuleKind) {
	for i := range rules {
		rules[i].Kind = kind
	}
}

func cloneRules(rules []Rule) []Rule {
	if rules == nil {
		return nil
	}
	out := make([]Rule, len(rules))
	for i, r := range rules {
		r.Keywords = append([]string(nil), r.Keywords...)
		out[i] = r
	}
	return out
}
