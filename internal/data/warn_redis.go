package data

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

var (
	redisWarnPrefix   = "magicbot/warn/"
	redisWarnUsers    = "magicbot/warn-users/"
	redisWarnGroupSet = "magicbot/warn-groups"
)

// DefaultWarnTTL is how long a mark outlives its window in redis. It only
// collects garbage; window expiry is decided by domain.WarnMark.
const DefaultWarnTTL = 24 * time.Hour

// redisWarnRepo stores one JSON value per mark plus per-group index sets
type redisWarnRepo struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisWarnRepo connects to redisURL and checks the connection
func NewRedisWarnRepo(redisURL string, ttl time.Duration) (repo.WarnRepo, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	// check redis connection
	if _, err := client.Ping(context.TODO()).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return newRedisWarnRepo(client, ttl), nil
}

func newRedisWarnRepo(client *redis.Client, ttl time.Duration) *redisWarnRepo {
	if ttl <= 0 {
		ttl = DefaultWarnTTL
	}
	return &redisWarnRepo{client: client, ttl: ttl}
}

func redisMarkKey(groupID, userID string) string {
	return redisWarnPrefix + escapeName(groupID) + "/" + escapeName(userID)
}

func redisUsersKey(groupID string) string {
	return redisWarnUsers + escapeName(groupID)
}

func (r *redisWarnRepo) Get(ctx context.Context, groupID, userID string) (*domain.WarnMark, error) {
	data, err := r.client.Get(ctx, redisMarkKey(groupID, userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get warn mark: %w", err)
	}

	var f markFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse warn mark: %w", err)
	}
	return f.toDomain(groupID, userID), nil
}

func (r *redisWarnRepo) Save(ctx context.Context, mark *domain.WarnMark) error {
	data, err := json.Marshal(toMarkFile(mark))
	if err != nil {
		return fmt.Errorf("failed to encode warn mark: %w", err)
	}

	// value and index in a single round-trip
	multi := r.client.TxPipeline()
	multi.Set(ctx, redisMarkKey(mark.GroupID, mark.UserID), data, markTTL(mark, r.ttl, time.Now()))
	multi.SAdd(ctx, redisUsersKey(mark.GroupID), mark.UserID)
	multi.SAdd(ctx, redisWarnGroupSet, mark.GroupID)
	if _, err := multi.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save warn mark: %w", err)
	}
	return nil
}

// markTTL keeps a mark alive until its window ends plus base
func markTTL(mark *domain.WarnMark, base time.Duration, now time.Time) time.Duration {
	end := mark.Ends()
	if end.IsZero() {
		return base
	}
	if ttl := end.Sub(now) + base; ttl > base {
		return ttl
	}
	return base
}

func (r *redisWarnRepo) Delete(ctx context.Context, groupID, userID string) error {
	multi := r.client.TxPipeline()
	multi.Del(ctx, redisMarkKey(groupID, userID))
	multi.SRem(ctx, redisUsersKey(groupID), userID)
	if _, err := multi.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete warn mark: %w", err)
	}
	return nil
}

// CompareAndDelete watches the mark key so a concurrent Save aborts the delete
func (r *redisWarnRepo) CompareAndDelete(ctx context.Context, mark *domain.WarnMark) (bool, error) {
	key := redisMarkKey(mark.GroupID, mark.UserID)
	deleted := false

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if err == redis.Nil {
			return nil
		} else if err != nil {
			return err
		}
		var f markFile
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("failed to parse warn mark: %w", err)
		}
		if !mark.Same(f.toDomain(mark.GroupID, mark.UserID)) {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.SRem(ctx, redisUsersKey(mark.GroupID), mark.UserID)
			return nil
		})
		if err == nil {
			deleted = true
		}
		return err
	}, key)

	if err == redis.TxFailedErr {
		return false, nil
	} else if err != nil {
		return false, fmt.Errorf("failed to delete warn mark: %w", err)
	}
	return deleted, nil
}

// List walks the index sets. Index entries whose mark has expired are pruned.
func (r *redisWarnRepo) List(ctx context.Context, groupID string) ([]*domain.WarnMark, error) {
	groups := []string{groupID}
	if groupID == "" {
		var err error
		if groups, err = r.client.SMembers(ctx, redisWarnGroupSet).Result(); err != nil {
			return nil, fmt.Errorf("failed to list warn groups: %w", err)
		}
		sort.Strings(groups)
	}

	var marks []*domain.WarnMark
	for _, gid := range groups {
		users, err := r.client.SMembers(ctx, redisUsersKey(gid)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to list warn marks: %w", err)
		}
		sort.Strings(users)

		for _, uid := range users {
			m, err := r.Get(ctx, gid, uid)
			if err != nil {
				return nil, err
			}
			if m == nil {
				r.client.SRem(ctx, redisUsersKey(gid), uid)
				continue
			}
			marks = append(marks, m)
		}
	}
	return marks, nil
}

func (r *redisWarnRepo) DeleteAll(ctx context.Context) error {
	groups, err := r.client.SMembers(ctx, redisWarnGroupSet).Result()
	if err != nil {
		return fmt.Errorf("failed to list warn groups: %w", err)
	}

	for _, gid := range groups {
		users, err := r.client.SMembers(ctx, redisUsersKey(gid)).Result()
		if err != nil {
			return fmt.Errorf("failed to list warn marks: %w", err)
		}
		keys := []string{redisUsersKey(gid)}
		for _, uid := range users {
			keys = append(keys, redisMarkKey(gid, uid))
		}
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("failed to delete warn marks: %w", err)
		}
	}
	if err := r.client.Del(ctx, redisWarnGroupSet).Err(); err != nil {
		return fmt.Errorf("failed to delete warn index: %w", err)
	}
	return nil
}

func (r *redisWarnRepo) Close() error {
	return r.client.Close()
}
