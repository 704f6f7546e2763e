package service

import (
	"errors"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/observability"
	"github.com/consigline/crm-api-go/internal/policy"
	"github.com/consigline/crm-api-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var crmTracer = otel.Tracer("service/crm")

// CRM implements the authenticated use cases over organizations, users,
// clients, proposals and reference data. Every operation derives the
// actor's scope through the policy package and re-checks mutations
// against the concrete record before writing.
type CRM struct {
	store   port.Store
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewCRM wires the service to a storage backend.
func NewCRM(store port.Store, metrics *observability.Metrics, logger *zap.Logger) *CRM {
	return &CRM{store: store, metrics: metrics, logger: logger}
}

// requireScope resolves the actor's scope and turns a denial into a
// typed Forbidden. Denials are counted per reason.
func (s *CRM) requireScope(actor domain.Actor, entity domain.EntityKind, op policy.Operation) (domain.Scope, error) {
	scope := policy.ScopeFor(actor, entity, op)
	if scope.Kind == domain.ScopeDenied {
		s.metrics.IncrScopeDenial(scope.Reason)
		return scope, &domain.ErrForbidden{Reason: scope.Reason}
	}
	return scope, nil
}

// requireMutate re-derives write authorization against the record that
// is about to change.
func (s *CRM) requireMutate(actor domain.Actor, entity domain.EntityKind, recordOrg int64, recordCreator string) error {
	if err := policy.CanMutate(actor, entity, recordOrg, recordCreator); err != nil {
		var fb *domain.ErrForbidden
		if errors.As(err, &fb) {
			s.metrics.IncrScopeDenial(fb.Reason)
		}
		return err
	}
	return nil
}

// visible checks a fetched record against a read scope. A record
// outside the scope is a Forbidden, never a NotFound: the caller can
// tell "does not exist" from "exists but is not yours".
func (s *CRM) visible(scope domain.Scope, recordOrg int64, recordCreator string) error {
	switch scope.Kind {
	case domain.ScopeUnrestricted:
		return nil
	case domain.ScopeOrganization:
		if recordOrg == scope.OrganizationID {
			return nil
		}
		s.metrics.IncrScopeDenial(policy.ReasonWrongOrganization)
		return &domain.ErrForbidden{Reason: policy.ReasonWrongOrganization}
	case domain.ScopeCreator:
		if recordCreator == scope.CreatorID {
			return nil
		}
		s.metrics.IncrScopeDenial(policy.ReasonNotCreator)
		return &domain.ErrForbidden{Reason: policy.ReasonNotCreator}
	}
	s.metrics.IncrScopeDenial(scope.Reason)
	return &domain.ErrForbidden{Reason: scope.Reason}
}

// observe counts backend failures before handing the error back.
func (s *CRM) observe(err error) error {
	if err == nil {
		return nil
	}
	var be *domain.ErrBackendUnavailable
	if errors.As(err, &be) {
		s.metrics.IncrStoreError(be.Service)
	}
	return err
}
