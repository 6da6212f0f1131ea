package data

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// messageWriter is the part of *kafka.Writer the audit stream needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// kafkaAuditRepo publishes moderation records as JSON, keyed by group id so
// that one group's actions stay ordered within a partition
type kafkaAuditRepo struct {
	writer messageWriter
}

// NewKafkaAuditRepo creates an audit sink writing to topic on brokers (comma separated)
func NewKafkaAuditRepo(brokers, topic string) repo.AuditRepo {
	w := &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &kafkaAuditRepo{writer: w}
}

func (r *kafkaAuditRepo) Record(ctx context.Context, rec *domain.ModerationRecord) error {
	value, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode moderation record: %w", err)
	}
	err = r.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(rec.GroupID),
		Value: value,
		Time:  rec.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to publish moderation record: %w", err)
	}
	return nil
}

func (r *kafkaAuditRepo) Close() error {
	return r.writer.Close()
}
