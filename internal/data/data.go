package data

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/magicbot/magicbot/internal/biz/repo"
	"github.com/magicbot/magicbot/internal/conf"
	"github.com/magicbot/magicbot/internal/infra/signalcli"
)

// Repositories contains all repositories
type Repositories struct {
	Config   repo.ConfigRepo
	Warn     repo.WarnRepo
	Audit    repo.AuditRepo   // nil when auditing is off
	AuditLog repo.AuditReader // nil unless the sqlite audit log is on
	Gateway  repo.GatewayRepo // nil without a gateway client
	Events   repo.EventSource // nil without a gateway client
}

// NewStores opens the config and warn stores selected by c
func NewStores(c *conf.Config) (*Repositories, error) {
	var r Repositories
	var err error

	switch c.Store {
	case conf.StoreSQLite:
		r.Config, err = NewSQLiteConfigRepo(c.SQLiteFile())
	default:
		r.Config, err = NewFileConfigRepo(c.StateDir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config store: %w", err)
	}

	switch c.WarnBackend() {
	case conf.StoreSQLite:
		r.Warn, err = NewSQLiteWarnRepo(c.SQLiteFile())
	case conf.StoreRedis:
		r.Warn, err = NewRedisWarnRepo(c.RedisURL, DefaultWarnTTL)
	default:
		r.Warn, err = NewFileWarnRepo(c.StateDir)
	}
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("failed to open warn store: %w", err)
	}
	return &r, nil
}

// OpenAudit opens the audit sinks enabled in c
func (r *Repositories) OpenAudit(c *conf.Config) error {
	var sinks []repo.AuditRepo
	if c.Audit {
		store, err := NewSQLiteAuditRepo(c.SQLiteFile())
		if err != nil {
			return fmt.Errorf("failed to open audit log: %w", err)
		}
		sinks = append(sinks, store)
		r.AuditLog = store
	}
	if c.KafkaBrokers != "" {
		slog.Info("publishing moderation records", "brokers", c.KafkaBrokers, "topic", c.KafkaTopic)
		sinks = append(sinks, NewKafkaAuditRepo(c.KafkaBrokers, c.KafkaTopic))
	}
	r.Audit = NewMultiAuditRepo(sinks...)
	return nil
}

// UseGateway attaches the gateway adapters around client
func (r *Repositories) UseGateway(client *signalcli.Client) {
	r.Gateway = NewGatewayRepo(client)
	r.Events = NewEventSource(client)
}

// Close releases every open store
func (r *Repositories) Close() error {
	var errs []error
	if r.Config != nil {
		errs = append(errs, r.Config.Close())
	}
	if r.Warn != nil {
		errs = append(errs, r.Warn.Close())
	}
	if r.Audit != nil {
		errs = append(errs, r.Audit.Close())
	}
	return errors.Join(errs...)
}
