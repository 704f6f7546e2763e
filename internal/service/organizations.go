package service

import (
	"context"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/policy"

	"go.uber.org/zap"
)

// Organization writes are superadmin territory; everyone else reads at
// most their own tenant record.

func (s *CRM) ListOrganizations(ctx context.Context, actor domain.Actor) ([]domain.Organization, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListOrganizations")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityOrganization, policy.OpList)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListOrganizations(ctx, scope)
	return out, s.observe(err)
}

func (s *CRM) GetOrganization(ctx context.Context, actor domain.Actor, id int64) (*domain.Organization, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.GetOrganization")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityOrganization, policy.OpRead)
	if err != nil {
		return nil, err
	}
	org, err := s.store.GetOrganization(ctx, id)
	if err != nil {
		return nil, s.observe(err)
	}
	// An organization's "own organization" is itself.
	if err := s.visible(scope, org.ID, ""); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *CRM) CreateOrganization(ctx context.Context, actor domain.Actor, in *domain.OrganizationInput) (*domain.Organization, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.CreateOrganization")
	defer span.End()

	if err := s.requireMutate(actor, domain.EntityOrganization, 0, ""); err != nil {
		return nil, err
	}
	org, err := s.store.CreateOrganization(ctx, in)
	if err != nil {
		return nil, s.observe(err)
	}
	s.logger.Info("organization created", zap.Int64("id", org.ID), zap.String("byUserId", actor.ID))
	return org, nil
}

func (s *CRM) UpdateOrganization(ctx context.Context, actor domain.Actor, id int64, patch *domain.OrganizationPatch) (*domain.Organization, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.UpdateOrganization")
	defer span.End()

	if err := s.requireMutate(actor, domain.EntityOrganization, 0, ""); err != nil {
		return nil, err
	}
	org, err := s.store.UpdateOrganization(ctx, id, patch)
	return org, s.observe(err)
}

func (s *CRM) DeleteOrganization(ctx context.Context, actor domain.Actor, id int64) error {
	ctx, span := crmTracer.Start(ctx, "CRM.DeleteOrganization")
	defer span.End()

	if err := s.requireMutate(actor, domain.EntityOrganization, 0, ""); err != nil {
		return err
	}
	if err := s.observe(s.store.DeleteOrganization(ctx, id)); err != nil {
		return err
	}
	s.logger.Info("organization deleted", zap.Int64("id", id), zap.String("byUserId", actor.ID))
	return nil
}
