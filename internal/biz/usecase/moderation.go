package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// ModerationUsecase handles group messages
type ModerationUsecase struct {
	gatewayRepo repo.GatewayRepo
	warnUC      *WarnUsecase
	auditUC     *AuditUsecase
	botName     string
}

// NewModerationUsecase creates a new moderation usecase
func NewModerationUsecase(
	gatewayRepo repo.GatewayRepo,
	warnUC *WarnUsecase,
	auditUC *AuditUsecase,
	botName string,
) *ModerationUsecase {
	if botName == "" {
		botName = domain.DefaultBotName
	}
	return &ModerationUsecase{
		gatewayRepo: gatewayRepo,
		warnUC:      warnUC,
		auditUC:     auditUC,
		botName:     botName,
	}
}

// MessageResult describes what a message caused
type MessageResult struct {
	Verdict Verdict
	Action  domain.Action // empty when nothing was done
	Target  string
}

// HandleMessage evaluates a message against the group policy and carries out
// the chosen action. Action failures are returned joined; they never leave
// the group in an inconsistent state.
func (uc *ModerationUsecase) HandleMessage(ctx context.Context, rt *domain.GroupRuntime, ev *domain.Event) (*MessageResult, error) {
	text := ev.Text()
	if text == "" {
		return &MessageResult{}, nil
	}

	cfg := rt.Config
	gid := cfg.GroupID
	sender := ev.SenderID()
	verdict := Evaluate(cfg, text, uc.botName)
	result := &MessageResult{Verdict: verdict}

	switch verdict.Kind {
	case VerdictBanCommand:
		return uc.handleBanCommand(ctx, rt, ev, result)

	case VerdictLacksAdmin:
		result.Action = domain.ActionReject
		return result, uc.reply(ctx, gid, domain.ReplyBotLacksAdmin)

	case VerdictBan:
		result.Action = domain.ActionBan
		result.Target = sender
		var errs []error
		err := uc.gatewayRepo.RemoveMember(ctx, gid, sender)
		if err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", sender, err))
		}
		uc.auditUC.Record(ctx, gid, domain.ActionBan, rt.SelfID, sender, keywordReason(verdict.Rule), err != nil)
		if err := uc.warnUC.Clear(ctx, gid, sender); err != nil {
			errs = append(errs, err)
		}
		return result, errors.Join(errs...)

	case VerdictWarn:
		result.Target = sender
		res, err := uc.warnUC.Warn(ctx, cfg, sender)
		if err != nil && res == nil {
			return result, err
		}
		errs := []error{err}
		if res.Kicked {
			result.Action = domain.ActionKick
			if res.KickErr != nil {
				errs = append(errs, fmt.Errorf("remove %s: %w", sender, res.KickErr))
			}
			uc.auditUC.Record(ctx, gid, domain.ActionKick, rt.SelfID, sender, keywordReason(verdict.Rule), res.KickErr != nil)
			errs = append(errs, uc.reply(ctx, gid, domain.ReplyKickedForWarns))
		} else {
			result.Action = domain.ActionWarn
			uc.auditUC.Record(ctx, gid, domain.ActionWarn, rt.SelfID, sender, fmt.Sprintf("%s (%d/%d)", keywordReason(verdict.Rule), res.Count, cfg.WarnMaxCount), false)
			errs = append(errs, uc.reply(ctx, gid, cfg.WarnMessage))
		}
		return result, errors.Join(errs...)

	case VerdictReply:
		result.Action = domain.ActionReply
		return result, uc.reply(ctx, gid, verdict.Reply)
	}

	return result, nil
}

// handleBanCommand checks the sender's authority and the moderator's
// capability before resolving and removing the target. The group enable
// switch does not apply to commands.
func (uc *ModerationUsecase) handleBanCommand(ctx context.Context, rt *domain.GroupRuntime, ev *domain.Event, result *MessageResult) (*MessageResult, error) {
	cfg := rt.Config
	gid := cfg.GroupID
	sender := ev.SenderID()

	if cfg.OnlyAdminCanBan && !rt.IsAdmin(sender) {
		result.Action = domain.ActionReject
		uc.auditUC.Record(ctx, gid, domain.ActionReject, sender, ev.QuoteAuthor, "sender is not admin", false)
		return result, uc.reply(ctx, gid, domain.ReplyNoPermission)
	}
	if !cfg.CanEnforce() {
		result.Action = domain.ActionReject
		uc.auditUC.Record(ctx, gid, domain.ActionReject, sender, ev.QuoteAuthor, "moderator is not admin", false)
		return result, uc.reply(ctx, gid, domain.ReplyBotLacksAdmin)
	}

	target := ResolveBanTarget(ev.QuoteAuthor, ev.Text())
	if target == "" {
		return result, uc.reply(ctx, gid, domain.UsageReply(uc.botName))
	}

	result.Action = domain.ActionBan
	result.Target = target
	if err := uc.gatewayRepo.RemoveMember(ctx, gid, target); err != nil {
		uc.auditUC.Record(ctx, gid, domain.ActionBan, sender, target, "ban command", true)
		return result, errors.Join(
			fmt.Errorf("remove %s: %w", target, err),
			uc.reply(ctx, gid, domain.KickFailedReply(err)),
		)
	}
	uc.auditUC.Record(ctx, gid, domain.ActionBan, sender, target, "ban command", false)

	var errs []error
	if err := uc.warnUC.Clear(ctx, gid, target); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, uc.reply(ctx, gid, domain.ReplyRemoved))
	return result, errors.Join(errs...)
}

func (uc *ModerationUsecase) reply(ctx context.Context, groupID, text string) error {
	if err := uc.gatewayRepo.SendGroupMessage(ctx, groupID, text); err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	return nil
}

func keywordReason(r *domain.Rule) string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%s rule %q", r.Kind, r.Keywords)
}
