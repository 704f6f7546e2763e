package service

import (
	"context"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/policy"

	"go.uber.org/zap"
)

func (s *CRM) ListProposals(ctx context.Context, actor domain.Actor) ([]domain.Proposal, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListProposals")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityProposal, policy.OpList)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListProposals(ctx, scope)
	return out, s.observe(err)
}

func (s *CRM) ListProposalsByStatus(ctx context.Context, actor domain.Actor, status domain.ProposalStatus) ([]domain.Proposal, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListProposalsByStatus")
	defer span.End()

	if !domain.ValidProposalStatus(status) {
		return nil, &domain.ErrValidation{Field: "status", Message: "status must be negotiating, accepted, under_review or declined"}
	}
	scope, err := s.requireScope(actor, domain.EntityProposal, policy.OpList)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListProposalsByStatus(ctx, scope, status)
	return out, s.observe(err)
}

func (s *CRM) ListProposalsByValueRange(ctx context.Context, actor domain.Actor, min, max float64) ([]domain.Proposal, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListProposalsByValueRange")
	defer span.End()

	if min > max {
		return nil, &domain.ErrValidation{Field: "min_value", Message: "min_value exceeds max_value"}
	}
	scope, err := s.requireScope(actor, domain.EntityProposal, policy.OpList)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListProposalsByValueRange(ctx, scope, min, max)
	return out, s.observe(err)
}

func (s *CRM) ListProposalsWithDetails(ctx context.Context, actor domain.Actor) ([]domain.ProposalDetails, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListProposalsWithDetails")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityProposal, policy.OpList)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListProposalsWithDetails(ctx, scope)
	return out, s.observe(err)
}

func (s *CRM) GetProposal(ctx context.Context, actor domain.Actor, id int64) (*domain.Proposal, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.GetProposal")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityProposal, policy.OpRead)
	if err != nil {
		return nil, err
	}
	proposal, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, s.observe(err)
	}
	if err := s.visible(scope, proposal.OrganizationID, proposal.CreatedByID); err != nil {
		return nil, err
	}
	return proposal, nil
}

// CreateProposal attaches a proposal to a client the actor can see. The
// proposal inherits the client's organization, not the actor's, so a
// superadmin acting across tenants files it under the right one.
func (s *CRM) CreateProposal(ctx context.Context, actor domain.Actor, in *domain.ProposalInput) (*domain.Proposal, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.CreateProposal")
	defer span.End()

	clientScope, err := s.requireScope(actor, domain.EntityClient, policy.OpRead)
	if err != nil {
		return nil, err
	}
	client, err := s.store.GetClient(ctx, in.ClientID)
	if err != nil {
		return nil, s.observe(err)
	}
	if err := s.visible(clientScope, client.OrganizationID, client.CreatedByID); err != nil {
		return nil, err
	}

	in.CreatedByID = actor.ID
	in.OrganizationID = client.OrganizationID

	proposal, err := s.store.CreateProposal(ctx, in)
	if err != nil {
		return nil, s.observe(err)
	}
	s.logger.Info("proposal created",
		zap.Int64("id", proposal.ID),
		zap.Int64("clientId", proposal.ClientID),
		zap.String("byUserId", actor.ID),
	)
	return proposal, nil
}

func (s *CRM) UpdateProposal(ctx context.Context, actor domain.Actor, id int64, patch *domain.ProposalPatch) (*domain.Proposal, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.UpdateProposal")
	defer span.End()

	if patch.Status != nil && !domain.ValidProposalStatus(*patch.Status) {
		return nil, &domain.ErrValidation{Field: "status", Message: "status must be negotiating, accepted, under_review or declined"}
	}
	proposal, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return nil, s.observe(err)
	}
	if err := s.requireMutate(actor, domain.EntityProposal, proposal.OrganizationID, proposal.CreatedByID); err != nil {
		return nil, err
	}
	updated, err := s.store.UpdateProposal(ctx, id, patch)
	return updated, s.observe(err)
}

func (s *CRM) DeleteProposal(ctx context.Context, actor domain.Actor, id int64) error {
	ctx, span := crmTracer.Start(ctx, "CRM.DeleteProposal")
	defer span.End()

	proposal, err := s.store.GetProposal(ctx, id)
	if err != nil {
		return s.observe(err)
	}
	if err := s.requireMutate(actor, domain.EntityProposal, proposal.OrganizationID, proposal.CreatedByID); err != nil {
		return err
	}
	return s.observe(s.store.DeleteProposal(ctx, id))
}
