package repo

import (
	"context"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

// AuditRepo records moderation actions
type AuditRepo interface {
	Record(ctx context.Context, rec *domain.ModerationRecord) error
	Close() error
}

// AuditReader reads back recorded actions
type AuditReader interface {
	// Recent returns the newest records of a group, newest first
	Recent(ctx context.Context, groupID string, limit int) ([]*domain.ModerationRecord, error)
}
