package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// AuditStore is an audit sink that can also be read back
type AuditStore interface {
	repo.AuditRepo
	repo.AuditReader
}

// sqliteAuditRepo appends moderation records to the moderation_log table
type sqliteAuditRepo struct {
	db *sql.DB
}

// NewSQLiteAuditRepo creates a sqlite backed audit log
func NewSQLiteAuditRepo(dbPath string) (AuditStore, error) {
	db, err := openSQLite(dbPath,
		`CREATE TABLE IF NOT EXISTS moderation_log (
			id TEXT PRIMARY KEY,
			group_id TEXT NOT NULL,
			action TEXT NOT NULL,
			actor_id TEXT NOT NULL DEFAULT '',
			target_id TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			failed INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_moderation_log_group ON moderation_log(group_id, created_at)`,
	)
	if err != nil {
		return nil, err
	}
	return &sqliteAuditRepo{db: db}, nil
}

func (r *sqliteAuditRepo) Record(ctx context.Context, rec *domain.ModerationRecord) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO moderation_log (id, group_id, action, actor_id, target_id, reason, failed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.GroupID,
		string(rec.Action),
		rec.ActorID,
		rec.TargetID,
		rec.Reason,
		rec.Failed,
		rec.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("failed to record moderation action: %w", err)
	}
	return nil
}

func (r *sqliteAuditRepo) Recent(ctx context.Context, groupID string, limit int) ([]*domain.ModerationRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, group_id, action, actor_id, target_id, reason, failed, created_at
		FROM moderation_log
		WHERE group_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, groupID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query moderation log: %w", err)
	}
	defer rows.Close()

	var records []*domain.ModerationRecord
	for rows.Next() {
		var rec domain.ModerationRecord
		var action string
		var createdAt int64
		err := rows.Scan(&rec.ID, &rec.GroupID, &action, &rec.ActorID, &rec.TargetID, &rec.Reason, &rec.Failed, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan moderation record: %w", err)
		}
		rec.Action = domain.Action(action)
		rec.CreatedAt = time.UnixMilli(createdAt)
		records = append(records, &rec)
	}
	return records, rows.Err()
}

func (r *sqliteAuditRepo) Close() error {
	return r.db.Close()
}
