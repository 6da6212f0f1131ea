package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// sqliteConfigRepo keeps policies as JSON documents, one row per group
type sqliteConfigRepo struct {
	db *sql.DB
}

// NewSQLiteConfigRepo creates a sqlite backed policy store
func NewSQLiteConfigRepo(dbPath string) (repo.ConfigRepo, error) {
	db, err := openSQLite(dbPath,
		`CREATE TABLE IF NOT EXISTS global_config (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS group_configs (
			group_id TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
	)
	if err != nil {
		return nil, err
	}
	return &sqliteConfigRepo{db: db}, nil
}

func (r *sqliteConfigRepo) LoadGlobal(ctx context.Context) (*domain.GlobalConfig, error) {
	var data string
	err := r.db.QueryRowContext(ctx, `SELECT data FROM global_config WHERE id = 1`).Scan(&data)
	if err == sql.ErrNoRows {
		def := domain.NewGlobalConfig(time.Now())
		if err := r.SaveGlobal(ctx, def); err != nil {
			return nil, err
		}
		return def, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query global config: %w", err)
	}

	var cfg domain.GlobalConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse global config: %w", err)
	}
	return &cfg, nil
}

func (r *sqliteConfigRepo) SaveGlobal(ctx context.Context, cfg *domain.GlobalConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode global config: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO global_config (id, data, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save global config: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func getGroup(ctx context.Context, q querier, groupID string) (*domain.GroupConfig, error) {
	var data string
	err := q.QueryRowContext(ctx, `SELECT data FROM group_configs WHERE group_id = ?`, groupID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query group config: %w", err)
	}
	return decodeGroup(groupID, data)
}

func decodeGroup(groupID, data string) (*domain.GroupConfig, error) {
	var cfg domain.GroupConfig
	if err := json.Unmarshal([]byte(data), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse group config %s: %w", groupID, err)
	}
	if cfg.GroupID == "" {
		cfg.GroupID = groupID
	}
	cfg.Normalize()
	return &cfg, nil
}

func saveGroup(ctx context.Context, q querier, cfg *domain.GroupConfig) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode group config: %w", err)
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO group_configs (group_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at
	`, cfg.GroupID, string(data), time.Now().Unix())
	if err != nil {
		return fmt.Errorf("failed to save group config: %w", err)
	}
	return nil
}

func (r *sqliteConfigRepo) GetGroup(ctx context.Context, groupID string) (*domain.GroupConfig, error) {
	return getGroup(ctx, r.db, groupID)
}

func (r *sqliteConfigRepo) SaveGroup(ctx context.Context, cfg *domain.GroupConfig) error {
	return saveGroup(ctx, r.db, cfg)
}

// UpdateGroup runs the read-modify-write in one transaction
func (r *sqliteConfigRepo) UpdateGroup(ctx context.Context, groupID string, fn func(cfg *domain.GroupConfig) error) (*domain.GroupConfig, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	cfg, err := getGroup(ctx, tx, groupID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = domain.NewGroupConfig(groupID)
	}
	if err := fn(cfg); err != nil {
		return nil, err
	}
	if err := saveGroup(ctx, tx, cfg); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit group config: %w", err)
	}
	return cfg, nil
}

func (r *sqliteConfigRepo) ListGroups(ctx context.Context) ([]*domain.GroupConfig, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT group_id, data FROM group_configs ORDER BY group_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query group configs: %w", err)
	}
	defer rows.Close()

	var groups []*domain.GroupConfig
	for rows.Next() {
		var groupID, data string
		if err := rows.Scan(&groupID, &data); err != nil {
			return nil, fmt.Errorf("failed to scan group config: %w", err)
		}
		cfg, err := decodeGroup(groupID, data)
		if err != nil {
			return nil, err
		}
		groups = append(groups, cfg)
	}
	return groups, rows.Err()
}

func (r *sqliteConfigRepo) DeleteAllGroups(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM group_configs`); err != nil {
		return fmt.Errorf("failed to delete group configs: %w", err)
	}
	return nil
}

func (r *sqliteConfigRepo) Close() error {
	return r.db.Close()
}
