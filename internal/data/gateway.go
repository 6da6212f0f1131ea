package data

import (
	"context"
	"fmt"

	"github.com/magicbot/magicbot/internal/biz/domain"
	"github.com/magicbot/magicbot/internal/biz/repo"
	"github.com/magicbot/magicbot/internal/infra/signalcli"
)

// gatewayRepo implements the gateway repository on signal-cli
type gatewayRepo struct {
	client *signalcli.Client
}

// NewGatewayRepo creates a gateway repository
func NewGatewayRepo(client *signalcli.Client) repo.GatewayRepo {
	return &gatewayRepo{client: client}
}

func (r *gatewayRepo) SendGroupMessage(ctx context.Context, groupID, text string) error {
	if err := r.client.SendGroupMessage(ctx, groupID, text); err != nil {
		return fmt.Errorf("failed to send group message: %w", err)
	}
	return nil
}

func (r *gatewayRepo) RemoveMember(ctx context.Context, groupID, memberID string) error {
	if err := r.client.RemoveMember(ctx, groupID, memberID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	return nil
}

func (r *gatewayRepo) UpdatePermissions(ctx context.Context, groupID string, perms domain.Permissions) error {
	err := r.client.UpdatePermissions(ctx, groupID,
		string(perms.AddMember),
		string(perms.SendMessage),
		string(perms.EditDetails),
	)
	if err != nil {
		return fmt.Errorf("failed to update group permissions: %w", err)
	}
	return nil
}

func (r *gatewayRepo) ListGroups(ctx context.Context) ([]domain.Group, error) {
	groups, err := r.client.ListGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	result := make([]domain.Group, 0, len(groups))
	for _, g := range groups {
		result = append(result, convertGroup(g))
	}
	return result, nil
}

func (r *gatewayRepo) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	contacts, err := r.client.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}

	result := make([]domain.Contact, 0, len(contacts))
	for _, c := range contacts {
		result = append(result, domain.Contact{UUID: c.UUID, Number: c.Number, Name: c.Name})
	}
	return result, nil
}

func convertGroup(g signalcli.Group) domain.Group {
	return domain.Group{
		ID:      g.ID,
		Name:    g.Name,
		Admins:  convertMembers(g.Admins),
		Members: convertMembers(g.Members),
	}
}

func convertMembers(ids []signalcli.Identity) []domain.Member {
	members := make([]domain.Member, 0, len(ids))
	for _, id := range ids {
		members = append(members, domain.Member{
			ID:     domain.ResolveID(id.UUID, id.Number),
			Number: id.Number,
		})
	}
	return members
}
