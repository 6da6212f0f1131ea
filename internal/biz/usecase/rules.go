package usecase

import "github.com/magicbot/magicbot/internal/biz/domain"

// VerdictKind is the single action chosen for an incoming message
type VerdictKind int

const (
	VerdictNone VerdictKind = iota
	VerdictBanCommand
	VerdictLacksAdmin
	VerdictBan
	VerdictWarn
	VerdictReply
)

func (k VerdictKind) String() string {
	switch k {
	case VerdictBanCommand:
		return "ban_command"
	case VerdictLacksAdmin:
		return "lacks_admin"
	case VerdictBan:
		return "ban"
	case VerdictWarn:
		return "warn"
	case VerdictReply:
		return "reply"
	}
	return "none"
}

// Verdict is the outcome of rule evaluation
type Verdict struct {
	Kind  VerdictKind
	Rule  *domain.Rule // matching rule for ban, warn and reply verdicts
	Reply string       // reply text for VerdictReply
}

// Evaluate decides which rule fires for text, first hit wins:
// ban command, ban rules, warn rules, then auto-replies in stored order.
// A disabled group only honours the ban command. When a ban or warn rule hits
// but the moderator cannot enforce, the verdict is VerdictLacksAdmin.
func Evaluate(cfg *domain.GroupConfig, text, botName string) Verdict {
	if IsBanCommand(text, botName) {
		return Verdict{Kind: VerdictBanCommand}
	}
	if !cfg.Enabled {
		return Verdict{Kind: VerdictNone}
	}

	ban := domain.FirstMatch(cfg.BanRules, text)
	warn := domain.FirstMatch(cfg.WarnRules, text)
	if (ban != nil || warn != nil) && !cfg.CanEnforce() {
		return Verdict{Kind: VerdictLacksAdmin}
	}
	if ban != nil {
		return Verdict{Kind: VerdictBan, Rule: ban}
	}
	if warn != nil {
		return Verdict{Kind: VerdictWarn, Rule: warn}
	}
	if r := domain.FirstMatch(cfg.AutoReplies, text); r != nil {
		return Verdict{Kind: VerdictReply, Rule: r, Reply: r.Reply}
	}
	return Verdict{Kind: VerdictNone}
}
