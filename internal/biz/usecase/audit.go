package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// AuditUsecase writes moderation records. A nil usecase or repo records nothing.
type AuditUsecase struct {
	auditRepo repo.AuditRepo
	now       func() time.Time
}

// NewAuditUsecase creates a new audit usecase
func NewAuditUsecase(auditRepo repo.AuditRepo) *AuditUsecase {
	return &AuditUsecase{auditRepo: auditRepo, now: time.Now}
}

// Record stores one action. Failures are logged and otherwise ignored.
func (uc *AuditUsecase) Record(ctx context.Context, groupID string, action domain.Action, actorID, targetID, reason string, failed bool) {
	if uc == nil || uc.auditRepo == nil {
		return
	}
	rec := &domain.ModerationRecord{
		ID:        uuid.NewString(),
		GroupID:   groupID,
		Action:    action,
		ActorID:   actorID,
		TargetID:  targetID,
		Reason:    reason,
		Failed:    failed,
		CreatedAt: uc.now().UTC(),
	}
	if err := uc.auditRepo.Record(ctx, rec); err != nil {
		slog.Warn("audit record failed", "group", groupID, "action", action, "error", err)
	}
}
