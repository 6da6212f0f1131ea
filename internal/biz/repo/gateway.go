package repo

import (
	"context"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

// GatewayRepo is the outbound gateway interface
// Every call is a discrete, independently failing action
type GatewayRepo interface {
	// SendGroupMessage sends a text message to a group
	SendGroupMessage(ctx context.Context, groupID, text string) error

	// RemoveMember removes a participant from a group
	RemoveMember(ctx context.Context, groupID, memberID string) error

	// UpdatePermissions sets the three group permissions in one call
	UpdatePermissions(ctx context.Context, groupID string, perms domain.Permissions) error

	// ListGroups lists the groups of the account with admins and members
	ListGroups(ctx context.Context) ([]domain.Group, error)

	// ListContacts lists every known recipient
	ListContacts(ctx context.Context) ([]domain.Contact, error)
}
