package data

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// sqliteWarnRepo implements the warn mark repository on sqlite
type sqliteWarnRepo struct {
	db *sql.DB
}

// NewSQLiteWarnRepo creates a sqlite backed warn mark store
func NewSQLiteWarnRepo(dbPath string) (repo.WarnRepo, error) {
	db, err := openSQLite(dbPath,
		`CREATE TABLE IF NOT EXISTS warn_marks (
			group_id TEXT NOT NULL,
			user_id TEXT NOT NULL,
			first_at INTEGER NOT NULL,
			count INTEGER NOT NULL DEFAULT 0,
			PRIMARY KEY (group_id, user_id)
		)`,
	)
	if err != nil {
		return nil, err
	}
	return &sqliteWarnRepo{db: db}, nil
}

func (r *sqliteWarnRepo) Get(ctx context.Context, groupID, userID string) (*domain.WarnMark, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT first_at, count FROM warn_marks WHERE group_id = ? AND user_id = ?
	`, groupID, userID)

	mark := &domain.WarnMark{GroupID: groupID, UserID: userID}
	var firstAt int64
	err := row.Scan(&firstAt, &mark.Count)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query warn mark: %w", err)
	}
	mark.FirstAt = time.UnixMilli(firstAt)
	return mark, nil
}

func (r *sqliteWarnRepo) Save(ctx context.Context, mark *domain.WarnMark) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO warn_marks (group_id, user_id, first_at, count) VALUES (?, ?, ?, ?)
		ON CONFLICT(group_id, user_id) DO UPDATE SET first_at = excluded.first_at, count = excluded.count
	`, mark.GroupID, mark.UserID, mark.FirstAt.UnixMilli(), mark.Count)
	if err != nil {
		return fmt.Errorf("failed to save warn mark: %w", err)
	}
	return nil
}

func (r *sqliteWarnRepo) Delete(ctx context.Context, groupID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM warn_marks WHERE group_id = ? AND user_id = ?`, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete warn mark: %w", err)
	}
	return nil
}

func (r *sqliteWarnRepo) CompareAndDelete(ctx context.Context, mark *domain.WarnMark) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM warn_marks WHERE group_id = ? AND user_id = ? AND first_at = ? AND count = ?
	`, mark.GroupID, mark.UserID, mark.FirstAt.UnixMilli(), mark.Count)
	if err != nil {
		return false, fmt.Errorf("failed to delete warn mark: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete warn mark: %w", err)
	}
	return n > 0, nil
}

func (r *sqliteWarnRepo) List(ctx context.Context, groupID string) ([]*domain.WarnMark, error) {
	query := `SELECT group_id, user_id, first_at, count FROM warn_marks`
	var args []any
	if groupID != "" {
		query += ` WHERE group_id = ?`
		args = append(args, groupID)
	}
	query += ` ORDER BY group_id, user_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query warn marks: %w", err)
	}
	defer rows.Close()

	var marks []*domain.WarnMark
	for rows.Next() {
		var m domain.WarnMark
		var firstAt int64
		if err := rows.Scan(&m.GroupID, &m.UserID, &firstAt, &m.Count); err != nil {
			return nil, fmt.Errorf("failed to scan warn mark: %w", err)
		}
		m.FirstAt = time.UnixMilli(firstAt)
		marks = append(marks, &m)
	}
	return marks, rows.Err()
}

func (r *sqliteWarnRepo) DeleteAll(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM warn_marks`); err != nil {
		return fmt.Errorf("failed to delete warn marks: %w", err)
	}
	return nil
}

func (r *sqliteWarnRepo) Close() error {
	return r.db.Close()
}
