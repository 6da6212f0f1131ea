package data

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// fileConfigRepo stores global.json and groups/<gid>.json under the state directory
type fileConfigRepo struct {
	dir string
	mu  sync.Mutex
}

// NewFileConfigRepo creates a JSON file backed policy store
func NewFileConfigRepo(stateDir string) (repo.ConfigRepo, error) {
	if err := os.MkdirAll(filepath.Join(stateDir, "groups"), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	return &fileConfigRepo{dir: stateDir}, nil
}

func (r *fileConfigRepo) globalPath() string {
	return filepath.Join(r.dir, "global.json")
}

func (r *fileConfigRepo) groupPath(groupID string) string {
	return filepath.Join(r.dir, "groups", escapeName(groupID)+".json")
}

// LoadGlobal loads global.json, writing the defaults on first use
func (r *fileConfigRepo) LoadGlobal(ctx context.Context) (*domain.GlobalConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cfg domain.GlobalConfig
	ok, err := readJSON(r.globalPath(), &cfg)
	if err != nil {
		return nil, err
	}
	if ok {
		return &cfg, nil
	}

	def := domain.NewGlobalConfig(time.Now())
	if err := writeJSON(r.globalPath(), def); err != nil {
		return nil, err
	}
	return def, nil
}

// SaveGlobal replaces global.json
func (r *fileConfigRepo) SaveGlobal(ctx context.Context, cfg *domain.GlobalConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeJSON(r.globalPath(), cfg)
}

// GetGroup loads a group policy
func (r *fileConfigRepo) GetGroup(ctx context.Context, groupID string) (*domain.GroupConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getGroup(groupID)
}

func (r *fileConfigRepo) getGroup(groupID string) (*domain.GroupConfig, error) {
	var cfg domain.GroupConfig
	ok, err := readJSON(r.groupPath(groupID), &cfg)
	if err != nil || !ok {
		return nil, err
	}
	if cfg.GroupID == "" {
		cfg.GroupID = groupID
	}
	cfg.Normalize()
	return &cfg, nil
}

// SaveGroup writes a group policy
func (r *fileConfigRepo) SaveGroup(ctx context.Context, cfg *domain.GroupConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeJSON(r.groupPath(cfg.GroupID), cfg)
}

// UpdateGroup reads, modifies and writes a group policy under the store lock
func (r *fileConfigRepo) UpdateGroup(ctx context.Context, groupID string, fn func(cfg *domain.GroupConfig) error) (*domain.GroupConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cfg, err := r.getGroup(groupID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = domain.NewGroupConfig(groupID)
	}
	if err := fn(cfg); err != nil {
		return nil, err
	}
	if err := writeJSON(r.groupPath(groupID), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListGroups loads every group policy, ordered by group id
func (r *fileConfigRepo) ListGroups(ctx context.Context) ([]*domain.GroupConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := listNames(filepath.Join(r.dir, "groups"), false, ".json")
	if err != nil {
		return nil, err
	}
	sort.Strings(ids)

	groups := make([]*domain.GroupConfig, 0, len(ids))
	for _, id := range ids {
		cfg, err := r.getGroup(id)
		if err != nil {
			return nil, err
		}
		if cfg != nil {
			groups = append(groups, cfg)
		}
	}
	return groups, nil
}

// DeleteAllGroups removes the groups directory
func (r *fileConfigRepo) DeleteAllGroups(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := filepath.Join(r.dir, "groups")
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete group policies: %w", err)
	}
	return os.MkdirAll(dir, 0755)
}

func (r *fileConfigRepo) Close() error {
	return nil
}
