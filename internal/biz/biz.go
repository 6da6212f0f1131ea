package biz

import (
	"github.com/magicbot/magicbot/internal/biz/repo"
	"github.com/magicbot/magicbot/internal/biz/usecase"
)

// Usecases contains all usecases of the moderation engine
type Usecases struct {
	Registry   *usecase.RegistryUsecase
	Moderation *usecase.ModerationUsecase
	Membership *usecase.MembershipUsecase
	Warn       *usecase.WarnUsecase
	Takeover   *usecase.TakeoverUsecase
	Audit      *usecase.AuditUsecase
}

// NewUsecases wires the engine usecases. auditRepo may be nil.
func NewUsecases(
	configRepo repo.ConfigRepo,
	warnRepo repo.WarnRepo,
	gatewayRepo repo.GatewayRepo,
	auditRepo repo.AuditRepo,
	account string,
	botName string,
) *Usecases {
	auditUC := usecase.NewAuditUsecase(auditRepo)
	warnUC := usecase.NewWarnUsecase(warnRepo, gatewayRepo)
	takeoverUC := usecase.NewTakeoverUsecase(gatewayRepo)
	registryUC := usecase.NewRegistryUsecase(configRepo, gatewayRepo, account)

	return &Usecases{
		Registry:   registryUC,
		Moderation: usecase.NewModerationUsecase(gatewayRepo, warnUC, auditUC, botName),
		Membership: usecase.NewMembershipUsecase(registryUC, takeoverUC, auditUC, configRepo, gatewayRepo),
		Warn:       warnUC,
		Takeover:   takeoverUC,
		Audit:      auditUC,
	}
}
