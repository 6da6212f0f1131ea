package data

import (
	"context"
	"errors"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
)

// multiAuditRepo fans a record out to every sink
type multiAuditRepo struct {
	sinks []repo.AuditRepo
}

// NewMultiAuditRepo combines sinks. It returns nil when there are none.
func NewMultiAuditRepo(sinks ...repo.AuditRepo) repo.AuditRepo {
	var live []repo.AuditRepo
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	switch len(live) {
	case 0:
		return nil
	case 1:
		return live[0]
	}
	return &multiAuditRepo{sinks: live}
}

// Record writes to every sink; one failing sink does not stop the others
func (r *multiAuditRepo) Record(ctx context.Context, rec *domain.ModerationRecord) error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *multiAuditRepo) Close() error {
	var errs []error
	for _, s := range r.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
