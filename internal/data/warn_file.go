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

// markFile is the on-disk form of a warn mark
type markFile struct {
	FirstTS float64 `json:"first_ts"`
	Count   int     `json:"count"`
}

func toMarkFile(m *domain.WarnMark) markFile {
	return markFile{
		FirstTS: float64(m.FirstAt.Unix()) + float64(m.FirstAt.Nanosecond())/float64(time.Second),
		Count:   m.Count,
	}
}

func (f markFile) toDomain(groupID, userID string) *domain.WarnMark {
	sec := int64(f.FirstTS)
	nsec := int64((f.FirstTS - float64(sec)) * float64(time.Second))
	return &domain.WarnMark{
		GroupID: groupID,
		UserID:  userID,
		FirstAt: time.Unix(sec, nsec),
		Count:   f.Count,
	}
}

// fileWarnRepo stores marks/<gid>/<user>.json under the state directory
type fileWarnRepo struct {
	dir string
	mu  sync.Mutex
}

// NewFileWarnRepo creates a JSON file backed warn mark store
func NewFileWarnRepo(stateDir string) (repo.WarnRepo, error) {
	dir := filepath.Join(stateDir, "marks")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create marks directory: %w", err)
	}
	return &fileWarnRepo{dir: dir}, nil
}

func (r *fileWarnRepo) path(groupID, userID string) string {
	return filepath.Join(r.dir, escapeName(groupID), escapeName(userID)+".json")
}

func (r *fileWarnRepo) Get(ctx context.Context, groupID, userID string) (*domain.WarnMark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.get(groupID, userID)
}

func (r *fileWarnRepo) get(groupID, userID string) (*domain.WarnMark, error) {
	var f markFile
	ok, err := readJSON(r.path(groupID, userID), &f)
	if err != nil || !ok {
		return nil, err
	}
	return f.toDomain(groupID, userID), nil
}

func (r *fileWarnRepo) Save(ctx context.Context, mark *domain.WarnMark) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return writeJSON(r.path(mark.GroupID, mark.UserID), toMarkFile(mark))
}

func (r *fileWarnRepo) Delete(ctx context.Context, groupID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(groupID, userID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete warn mark: %w", err)
	}
	return nil
}

func (r *fileWarnRepo) CompareAndDelete(ctx context.Context, mark *domain.WarnMark) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur, err := r.get(mark.GroupID, mark.UserID)
	if err != nil || !mark.Same(cur) {
		return false, err
	}
	if err := os.Remove(r.path(mark.GroupID, mark.UserID)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete warn mark: %w", err)
	}
	return true, nil
}

func (r *fileWarnRepo) List(ctx context.Context, groupID string) ([]*domain.WarnMark, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	groups := []string{groupID}
	if groupID == "" {
		var err error
		if groups, err = listNames(r.dir, true, ""); err != nil {
			return nil, err
		}
		sort.Strings(groups)
	}

	var marks []*domain.WarnMark
	for _, gid := range groups {
		users, err := listNames(filepath.Join(r.dir, escapeName(gid)), false, ".json")
		if err != nil {
			return nil, err
		}
		sort.Strings(users)
		for _, uid := range users {
			m, err := r.get(gid, uid)
			if err != nil {
				return nil, err
			}
			if m != nil {
				marks = append(marks, m)
			}
		}
	}
	return marks, nil
}

func (r *fileWarnRepo) DeleteAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.RemoveAll(r.dir); err != nil {
		return fmt.Errorf("failed to delete warn marks: %w", err)
	}
	return os.MkdirAll(r.dir, 0755)
}

func (r *fileWarnRepo) Close() error {
	return nil
}
