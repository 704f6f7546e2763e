package service

import (
	"context"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/policy"

	"go.uber.org/zap"
)

func (s *CRM) ListUsers(ctx context.Context, actor domain.Actor) ([]domain.User, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListUsers")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityUser, policy.OpList)
	if err != nil {
		return nil, err
	}
	out, err := s.store.ListUsers(ctx, scope)
	return out, s.observe(err)
}

func (s *CRM) GetUser(ctx context.Context, actor domain.Actor, id string) (*domain.User, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.GetUser")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityUser, policy.OpRead)
	if err != nil {
		return nil, err
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, s.observe(err)
	}
	// A creator scope on users means "yourself", so the user's own id
	// is the creator for visibility purposes.
	if err := s.visible(scope, user.OrganizationID, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser hashes the plain password and stamps the organization.
// Managers always create into their own organization and may never
// mint superadmins.
func (s *CRM) CreateUser(ctx context.Context, actor domain.Actor, in *domain.UserInput, password string) (*domain.User, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.CreateUser")
	defer span.End()

	if actor.Role == domain.RoleAgent {
		s.metrics.IncrScopeDenial(policy.ReasonRoleDenied)
		return nil, &domain.ErrForbidden{Reason: policy.ReasonRoleDenied}
	}
	if err := policy.CanAssignRole(actor, in.Role); err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleManager {
		in.OrganizationID = actor.OrganizationID
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	in.PasswordHash = hash

	user, err := s.store.CreateUser(ctx, in)
	if err != nil {
		return nil, s.observe(err)
	}
	s.logger.Info("user created",
		zap.String("id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("byUserId", actor.ID),
	)
	return user, nil
}

func (s *CRM) UpdateUser(ctx context.Context, actor domain.Actor, id string, patch *domain.UserPatch) (*domain.User, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.UpdateUser")
	defer span.End()

	if err := policy.CheckUserPatch(actor, patch); err != nil {
		return nil, err
	}
	if patch.Role != nil {
		if err := policy.CanAssignRole(actor, *patch.Role); err != nil {
			return nil, err
		}
	}
	if patch.OrganizationID != nil && actor.Role != domain.RoleSuperadmin {
		// Moving an account across tenants is a superadmin operation.
		s.metrics.IncrScopeDenial(policy.ReasonWrongOrganization)
		return nil, &domain.ErrForbidden{Reason: policy.ReasonWrongOrganization}
	}

	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, s.observe(err)
	}
	if err := s.requireMutate(actor, domain.EntityUser, user.OrganizationID, user.ID); err != nil {
		return nil, err
	}

	updated, err := s.store.UpdateUser(ctx, id, patch)
	return updated, s.observe(err)
}

func (s *CRM) DeleteUser(ctx context.Context, actor domain.Actor, id string) error {
	ctx, span := crmTracer.Start(ctx, "CRM.DeleteUser")
	defer span.End()

	if err := policy.CanDeleteUser(actor); err != nil {
		s.metrics.IncrScopeDenial(policy.ReasonRoleDenied)
		return err
	}
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return s.observe(err)
	}
	if err := s.requireMutate(actor, domain.EntityUser, user.OrganizationID, user.ID); err != nil {
		return err
	}
	if err := s.observe(s.store.DeleteUser(ctx, id)); err != nil {
		return err
	}
	s.logger.Info("user deleted", zap.String("id", id), zap.String("byUserId", actor.ID))
	return nil
}
