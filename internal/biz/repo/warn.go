package repo

import (
	"context"

	"github.com/magicbot/magicbot/internal/biz/domain"
)

// WarnRepo is the warn mark store interface
type WarnRepo interface {
	// Get returns the mark of a user, or nil when none is stored
	Get(ctx context.Context, groupID, userID string) (*domain.WarnMark, error)

	// Save creates or replaces a mark
	Save(ctx context.Context, mark *domain.WarnMark) error

	// Delete removes a mark; deleting a missing mark is not an error
	Delete(ctx context.Context, groupID, userID string) error

	// CompareAndDelete removes the stored mark only while it still has the
	// window start and count of mark. It reports whether a mark was removed.
	CompareAndDelete(ctx context.Context, mark *domain.WarnMark) (bool, error)

	// List returns the marks of a group, or of every group when groupID is empty
	List(ctx context.Context, groupID string) ([]*domain.WarnMark, error)

	// DeleteAll removes every mark (logout)
	DeleteAll(ctx context.Context) error

	Close() error
}
