package repo

import (
	"context"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

// ConfigRepo is the policy store interface
// Responsible for global settings and per-group policy records
type ConfigRepo interface {
	// LoadGlobal loads the global settings, creating defaults on first use
	LoadGlobal(ctx context.Context) (*domain.GlobalConfig, error)

	// SaveGlobal replaces the global settings
	SaveGlobal(ctx context.Context, cfg *domain.GlobalConfig) error

	// GetGroup returns the stored policy of a group, or nil if the group is not watched
	GetGroup(ctx context.Context, groupID string) (*domain.GroupConfig, error)

	// SaveGroup creates or replaces a group policy
	SaveGroup(ctx context.Context, cfg *domain.GroupConfig) error

	// UpdateGroup applies fn to the stored policy and saves the result atomically.
	// A missing group starts from domain.NewGroupConfig.
	UpdateGroup(ctx context.Context, groupID string, fn func(cfg *domain.GroupConfig) error) (*domain.GroupConfig, error)

	// ListGroups returns every stored group policy
	ListGroups(ctx context.Context) ([]*domain.GroupConfig, error)

	// DeleteAllGroups removes every group policy (logout)
	DeleteAllGroups(ctx context.Context) error

	// Close releases the underlying storage
	Close() error
}
