package data

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

func TestSQLiteAuditRepo_Recent(t *testing.T) {
	r, err := NewSQLiteAuditRepo(filepath.Join(t.TempDir(), "magicbot.db"))
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []*domain.ModerationRecord{
		{ID: "1", GroupID: "g1", Action: domain.ActionWarn, TargetID: "u1", Reason: "spam", CreatedAt: base},
		{ID: "2", GroupID: "g1", Action: domain.ActionKick, TargetID: "u1", Failed: true, CreatedAt: base.Add(time.Minute)},
		{ID: "3", GroupID: "g2", Action: domain.ActionWelcome, TargetID: "u3", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, rec := range records {
		require.NoError(t, r.Record(ctx, rec))
	}

	got, err := r.Recent(ctx, "g1", 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "2", got[0].ID)
	assert.True(t, got[0].Failed)
	assert.Equal(t, domain.ActionWarn, got[1].Action)
	assert.True(t, got[1].CreatedAt.Equal(base))

	got, err = r.Recent(ctx, "g1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaAuditRepo_KeyedByGroup(t *testing.T) {
	w := &fakeWriter{}
	r := &kafkaAuditRepo{writer: w}

	rec := &domain.ModerationRecord{ID: "1", GroupID: "g1", Action: domain.ActionBan, TargetID: "u1", CreatedAt: time.Now()}
	require.NoError(t, r.Record(context.Background(), rec))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "g1", string(w.msgs[0].Key))

	var decoded domain.ModerationRecord
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, domain.ActionBan, decoded.Action)
	assert.Equal(t, "u1", decoded.TargetID)

	require.NoError(t, r.Close())
	assert.True(t, w.closed)
}

func TestMultiAuditRepo(t *testing.T) {
	assert.Nil(t, NewMultiAuditRepo())

	single := &kafkaAuditRepo{writer: &fakeWriter{}}
	assert.Same(t, repo.AuditRepo(single), NewMultiAuditRepo(nil, single))

	broken := &fakeWriter{err: errors.New("broker down")}
	healthy := &fakeWriter{}
	r := NewMultiAuditRepo(&kafkaAuditRepo{writer: broken}, &kafkaAuditRepo{writer: healthy})

	err := r.Record(context.Background(), &domain.ModerationRecord{ID: "1", GroupID: "g1"})
	assert.ErrorContains(t, err, "broker down")
	assert.Len(t, healthy.msgs, 1, "a failing sink must not stop the others")
}
