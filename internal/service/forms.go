package service

import (
	"context"
	"strings"
	"time"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/observability"
	"github.com/consigline/crm-api-go/internal/policy"
	"github.com/consigline/crm-api-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var formTracer = otel.Tracer("service/forms")

// FormService owns intake templates and the submission lifecycle:
// anonymous posts come in through SubmitPublic, authenticated staff turn
// pending submissions into clients through Process.
type FormService struct {
	store   port.Store
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewFormService wires the form lifecycle to a storage backend.
func NewFormService(store port.Store, metrics *observability.Metrics, logger *zap.Logger) *FormService {
	return &FormService{store: store, metrics: metrics, logger: logger}
}

// Submission data keys recognized when synthesizing a client. Both the
// English and pt-BR form-builder conventions are accepted; anything
// else is ignored, not stored.
var clientFieldAliases = map[string]string{
	"name":     "name",
	"nome":     "name",
	"email":    "email",
	"e-mail":   "email",
	"phone":    "phone",
	"telefone": "phone",
	"celular":  "phone",
	"cpf":      "cpf",
	"company":  "company",
	"empresa":  "company",
	"contact":  "contact",
	"contato":  "contact",
}

func (s *FormService) requireScope(actor domain.Actor, entity domain.EntityKind, op policy.Operation) (domain.Scope, error) {
	scope := policy.ScopeFor(actor, entity, op)
	if scope.Kind == domain.ScopeDenied {
		s.metrics.IncrScopeDenial(scope.Reason)
		return scope, &domain.ErrForbidden{Reason: scope.Reason}
	}
	return scope, nil
}

func (s *FormService) visibleOrg(scope domain.Scope, recordOrg int64) error {
	switch scope.Kind {
	case domain.ScopeUnrestricted:
		return nil
	case domain.ScopeOrganization:
		if recordOrg == scope.OrganizationID {
			return nil
		}
	}
	s.metrics.IncrScopeDenial(policy.ReasonWrongOrganization)
	return &domain.ErrForbidden{Reason: policy.ReasonWrongOrganization}
}

// Template CRUD.

func (s *FormService) ListTemplates(ctx context.Context, actor domain.Actor) ([]domain.FormTemplate, error) {
	ctx, span := formTracer.Start(ctx, "FormService.ListTemplates")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityFormTemplate, policy.OpList)
	if err != nil {
		return nil, err
	}
	return s.store.ListFormTemplates(ctx, scope)
}

func (s *FormService) GetTemplate(ctx context.Context, actor domain.Actor, id int64) (*domain.FormTemplate, error) {
	ctx, span := formTracer.Start(ctx, "FormService.GetTemplate")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityFormTemplate, policy.OpRead)
	if err != nil {
		return nil, err
	}
	tpl, err := s.store.GetFormTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visibleOrg(scope, tpl.OrganizationID); err != nil {
		return nil, err
	}
	return tpl, nil
}

func (s *FormService) CreateTemplate(ctx context.Context, actor domain.Actor, in *domain.FormTemplateInput) (*domain.FormTemplate, error) {
	ctx, span := formTracer.Start(ctx, "FormService.CreateTemplate")
	defer span.End()

	if _, err := s.requireScope(actor, domain.EntityFormTemplate, policy.OpWrite); err != nil {
		return nil, err
	}
	in.CreatedByID = actor.ID
	if actor.Role != domain.RoleSuperadmin || in.OrganizationID == 0 {
		in.OrganizationID = actor.OrganizationID
	}
	tpl, err := s.store.CreateFormTemplate(ctx, in)
	if err != nil {
		return nil, err
	}
	s.logger.Info("form template created", zap.Int64("id", tpl.ID), zap.String("byUserId", actor.ID))
	return tpl, nil
}

func (s *FormService) UpdateTemplate(ctx context.Context, actor domain.Actor, id int64, patch *domain.FormTemplatePatch) (*domain.FormTemplate, error) {
	ctx, span := formTracer.Start(ctx, "FormService.UpdateTemplate")
	defer span.End()

	tpl, err := s.store.GetFormTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := policy.CanMutate(actor, domain.EntityFormTemplate, tpl.OrganizationID, tpl.CreatedByID); err != nil {
		return nil, err
	}
	return s.store.UpdateFormTemplate(ctx, id, patch)
}

func (s *FormService) DeleteTemplate(ctx context.Context, actor domain.Actor, id int64) error {
	ctx, span := formTracer.Start(ctx, "FormService.DeleteTemplate")
	defer span.End()

	tpl, err := s.store.GetFormTemplate(ctx, id)
	if err != nil {
		return err
	}
	if err := policy.CanMutate(actor, domain.EntityFormTemplate, tpl.OrganizationID, tpl.CreatedByID); err != nil {
		return err
	}
	return s.store.DeleteFormTemplate(ctx, id)
}

// SubmitPublic accepts an anonymous form post. There is no actor: the
// only gate is that the template exists and is active. The submission
// inherits the template's organization.
func (s *FormService) SubmitPublic(ctx context.Context, templateID int64, data map[string]string) (*domain.FormSubmission, error) {
	ctx, span := formTracer.Start(ctx, "FormService.SubmitPublic")
	defer span.End()

	tpl, err := s.store.GetFormTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if !tpl.Active {
		return nil, &domain.ErrValidation{Field: "formTemplateId", Message: "form is not accepting submissions"}
	}
	for _, f := range tpl.Fields {
		if f.Required && strings.TrimSpace(data[f.Name]) == "" {
			return nil, &domain.ErrValidation{Field: f.Name, Message: "field is required"}
		}
	}

	sub, err := s.store.CreateFormSubmission(ctx, &domain.FormSubmissionInput{
		FormTemplateID: templateID,
		Data:           data,
		OrganizationID: tpl.OrganizationID,
	})
	if err != nil {
		return nil, err
	}
	s.metrics.IncrSubmissionReceived()
	s.logger.Info("form submission received",
		zap.Int64("id", sub.ID),
		zap.Int64("templateId", templateID),
	)
	return sub, nil
}

func (s *FormService) ListSubmissions(ctx context.Context, actor domain.Actor) ([]domain.FormSubmission, error) {
	ctx, span := formTracer.Start(ctx, "FormService.ListSubmissions")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityFormSubmission, policy.OpList)
	if err != nil {
		return nil, err
	}
	return s.store.ListFormSubmissions(ctx, scope)
}

func (s *FormService) GetSubmission(ctx context.Context, actor domain.Actor, id int64) (*domain.FormSubmission, error) {
	ctx, span := formTracer.Start(ctx, "FormService.GetSubmission")
	defer span.End()

	scope, err := s.requireScope(actor, domain.EntityFormSubmission, policy.OpRead)
	if err != nil {
		return nil, err
	}
	sub, err := s.store.GetFormSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.visibleOrg(scope, sub.OrganizationID); err != nil {
		return nil, err
	}
	return sub, nil
}

// Process turns a pending submission into a client, exactly once.
// Precondition order: the submission exists, it is still pending, and
// the actor's scope covers its organization. If the terminal status
// update fails after the client was created, the client is deleted
// again (best effort) and the submission stays pending: at-most-once
// creation, the caller may retry.
func (s *FormService) Process(ctx context.Context, actor domain.Actor, submissionID int64) (*domain.Client, error) {
	ctx, span := formTracer.Start(ctx, "FormService.Process")
	defer span.End()

	sub, err := s.store.GetFormSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != domain.SubmissionPending {
		return nil, &domain.ErrAlreadyProcessed{SubmissionID: submissionID}
	}
	scope, err := s.requireScope(actor, domain.EntityFormSubmission, policy.OpWrite)
	if err != nil {
		return nil, err
	}
	if err := s.visibleOrg(scope, sub.OrganizationID); err != nil {
		return nil, err
	}

	in := clientFromSubmission(sub)
	in.CreatedByID = actor.ID
	in.OrganizationID = sub.OrganizationID
	if strings.TrimSpace(in.Name) == "" {
		return nil, &domain.ErrValidation{Field: "data", Message: "submission carries no recognizable client name"}
	}

	client, err := s.store.CreateClient(ctx, in)
	if err != nil {
		return nil, err
	}

	status := domain.SubmissionProcessed
	now := time.Now().UTC()
	_, err = s.store.UpdateFormSubmission(ctx, submissionID, &domain.FormSubmissionPatch{
		Status:        &status,
		ProcessedByID: &actor.ID,
		ProcessedAt:   &now,
	})
	if err != nil {
		// Roll the client back so a retry cannot duplicate it. If the
		// delete also fails the orphan is logged for manual cleanup.
		if delErr := s.store.DeleteClient(ctx, client.ID); delErr != nil {
			s.logger.Error("submission rollback failed, orphaned client",
				zap.Int64("submissionId", submissionID),
				zap.Int64("clientId", client.ID),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	s.metrics.IncrSubmissionProcessed()
	s.logger.Info("form submission processed",
		zap.Int64("submissionId", submissionID),
		zap.Int64("clientId", client.ID),
		zap.String("byUserId", actor.ID),
	)
	return client, nil
}

// clientFromSubmission maps recognized data keys onto a client input.
// Keys are matched case-insensitively against the alias table.
func clientFromSubmission(sub *domain.FormSubmission) *domain.ClientInput {
	in := &domain.ClientInput{}
	for key, value := range sub.Data {
		switch clientFieldAliases[strings.ToLower(strings.TrimSpace(key))] {
		case "name":
			in.Name = value
		case "email":
			in.Email = value
		case "phone":
			in.Phone = value
		case "cpf":
			in.CPF = value
		case "company":
			in.Company = value
		case "contact":
			in.Contact = value
		}
	}
	return in
}
