package service

import (
	"context"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/policy"

	"go.uber.org/zap"
)

func (s *CRM) ListClients(ctx context.Context, actor domain.Actor) ([]domain.Client, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListClients")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityClient, policy.OpList)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListClients(ctx, scope)
	return out, s.observe(err)
}

func (s *CRM) GetClient(ctx context.Context, actor domain.Actor, id int64) (*domain.Client, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.GetClient")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityClient, policy.OpRead)
	if err != nil {
		return nil, err
	}
	client, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, s.observe(err)
	}
	if err := s.visible(scope, client.OrganizationID, client.CreatedByID); err != nil {
		return nil, err
	}
	return client, nil
}

// CreateClient stamps ownership from the actor; the request never
// chooses its creator or tenant. A superadmin may create on behalf of a
// specific organization.
func (s *CRM) CreateClient(ctx context.Context, actor domain.Actor, in *domain.ClientInput, orgOverride int64) (*domain.Client, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.CreateClient")
	defer span.End()

	in.CreatedByID = actor.ID
	in.OrganizationID = actor.OrganizationID
	if actor.Role == domain.RoleSuperadmin && orgOverride != 0 {
		in.OrganizationID = orgOverride
	}

	client, err := s.store.CreateClient(ctx, in)
	if err != nil {
		return nil, s.observe(err)
	}
	s.logger.Info("client created", zap.Int64("id", client.ID), zap.String("byUserId", actor.ID))
	return client, nil
}

func (s *CRM) UpdateClient(ctx context.Context, actor domain.Actor, id int64, patch *domain.ClientPatch) (*domain.Client, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.UpdateClient")
	defer span.End()

	if patch.OrganizationID != nil && actor.Role != domain.RoleSuperadmin {
		s.metrics.IncrScopeDenial(policy.ReasonWrongOrganization)
		return nil, &domain.ErrForbidden{Reason: policy.ReasonWrongOrganization}
	}
	client, err := s.store.GetClient(ctx, id)
	if err != nil {
		return nil, s.observe(err)
	}
	if err := s.requireMutate(actor, domain.EntityClient, client.OrganizationID, client.CreatedByID); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateClient(ctx, id, patch)
	return updated, s.observe(err)
}

// DeleteClient removes the client and, through the store contract, its
// proposals.
func (s *CRM) DeleteClient(ctx context.Context, actor domain.Actor, id int64) error {
	ctx, span := crmTracer.Start(ctx, "CRM.DeleteClient")
	defer span.End()

	client, err := s.store.GetClient(ctx, id)
	if err != nil {
		return s.observe(err)
	}
	if err := s.requireMutate(actor, domain.EntityClient, client.OrganizationID, client.CreatedByID); err != nil {
		return err
	}
	if err := s.observe(s.store.DeleteClient(ctx, id)); err != nil {
		return err
	}
	s.logger.Info("client deleted", zap.Int64("id", id), zap.String("byUserId", actor.ID))
	return nil
}
