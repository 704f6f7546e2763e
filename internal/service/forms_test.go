package service_test

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/observability"
	"github.com/consigline/crm-api-go/internal/port"
	"github.com/consigline/crm-api-go/internal/service"
)

func newForms(t *testing.T) (*service.FormService, port.Store) {
	t.Helper()
	store := newStore(t)
	return service.NewFormService(store, observability.NewMetrics(), zap.NewNop()), store
}

func seedTemplate(t *testing.T, store port.Store, orgID int64, creatorID string, active bool, fields []domain.FormField) *domain.FormTemplate {
	t.Helper()
	tpl, err := store.CreateFormTemplate(context.Background(), &domain.FormTemplateInput{
		Name:           "Intake",
		Fields:         fields,
		Active:         active,
		CreatedByID:    creatorID,
		OrganizationID: orgID,
	})
	if err != nil {
		t.Fatalf("seed template: %v", err)
	}
	return tpl
}

var intakeFields = []domain.FormField{
	{Name: "name", Label: "Nome", Type: "text", Required: true},
	{Name: "email", Label: "E-mail", Type: "email"},
}

func TestProcessSubmissionCreatesClient(t *testing.T) {
	forms, store := newForms(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Forms Org")
	manager := seedUser(t, store, "manager@forms.test", domain.RoleManager, org.ID)
	tpl := seedTemplate(t, store, org.ID, manager.ID, true, intakeFields)

	sub, err := forms.SubmitPublic(ctx, tpl.ID, map[string]string{
		"name":  "Jane",
		"email": "j@x.com",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.Status != domain.SubmissionPending {
		t.Fatalf("new submission status = %q, want pending", sub.Status)
	}
	if sub.OrganizationID != org.ID {
		t.Fatalf("submission organization = %d, want the template's %d", sub.OrganizationID, org.ID)
	}

	client, err := forms.Process(ctx, actorFor(manager), sub.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if client.Name != "Jane" || client.Email != "j@x.com" {
		t.Errorf("client fields = %q / %q, want Jane / j@x.com", client.Name, client.Email)
	}
	if client.OrganizationID != org.ID {
		t.Errorf("client organization = %d, want %d", client.OrganizationID, org.ID)
	}
	if client.CreatedByID != manager.ID {
		t.Errorf("client creator = %q, want the processing user %q", client.CreatedByID, manager.ID)
	}

	clients, err := store.ListClients(ctx, domain.Unrestricted())
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(clients) != 1 {
		t.Fatalf("got %d clients, want exactly 1", len(clients))
	}

	reloaded, err := store.GetFormSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("reload submission: %v", err)
	}
	if reloaded.Status != domain.SubmissionProcessed {
		t.Errorf("submission status = %q, want processed", reloaded.Status)
	}
	if reloaded.ProcessedByID != manager.ID {
		t.Errorf("processedById = %q, want %q", reloaded.ProcessedByID, manager.ID)
	}
	if reloaded.ProcessedAt == nil {
		t.Error("processedAt not set")
	}
}

// Processing is one-shot. The second attempt reports the terminal state
// and must not mint a second client.
func TestProcessSubmissionTwice(t *testing.T) {
	forms, store := newForms(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Forms Org")
	manager := seedUser(t, store, "manager@forms.test", domain.RoleManager, org.ID)
	tpl := seedTemplate(t, store, org.ID, manager.ID, true, intakeFields)

	sub, err := forms.SubmitPublic(ctx, tpl.ID, map[string]string{"name": "Once Only"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := forms.Process(ctx, actorFor(manager), sub.ID); err != nil {
		t.Fatalf("first process: %v", err)
	}

	var already *domain.ErrAlreadyProcessed
	if _, err := forms.Process(ctx, actorFor(manager), sub.ID); !errors.As(err, &already) {
		t.Fatalf("second process: want ErrAlreadyProcessed, got %v", err)
	}
	if already.SubmissionID != sub.ID {
		t.Errorf("error names submission %d, want %d", already.SubmissionID, sub.ID)
	}

	clients, err := store.ListClients(ctx, domain.Unrestricted())
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(clients) != 1 {
		t.Errorf("got %d clients after double process, want exactly 1", len(clients))
	}
}

func TestSubmitPublicValidation(t *testing.T) {
	forms, store := newForms(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Forms Org")
	manager := seedUser(t, store, "manager@forms.test", domain.RoleManager, org.ID)
	inactive := seedTemplate(t, store, org.ID, manager.ID, false, intakeFields)
	active := seedTemplate(t, store, org.ID, manager.ID, true, intakeFields)

	var vd *domain.ErrValidation
	if _, err := forms.SubmitPublic(ctx, inactive.ID, map[string]string{"name": "Jane"}); !errors.As(err, &vd) {
		t.Errorf("inactive template: want ErrValidation, got %v", err)
	}

	// "name" is required by the template.
	if _, err := forms.SubmitPublic(ctx, active.ID, map[string]string{"email": "j@x.com"}); !errors.As(err, &vd) {
		t.Errorf("missing required field: want ErrValidation, got %v", err)
	}
	if _, err := forms.SubmitPublic(ctx, active.ID, map[string]string{"name": "   ", "email": "j@x.com"}); !errors.As(err, &vd) {
		t.Errorf("blank required field: want ErrValidation, got %v", err)
	}

	var nf *domain.ErrNotFound
	if _, err := forms.SubmitPublic(ctx, 99999, map[string]string{"name": "Jane"}); !errors.As(err, &nf) {
		t.Errorf("unknown template: want ErrNotFound, got %v", err)
	}
}

// Portuguese field names map onto the same client columns.
func TestProcessRecognizesFieldAliases(t *testing.T) {
	forms, store := newForms(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Forms Org")
	manager := seedUser(t, store, "manager@forms.test", domain.RoleManager, org.ID)
	fields := []domain.FormField{
		{Name: "Nome", Type: "text", Required: true},
		{Name: "Telefone", Type: "text"},
		{Name: "Empresa", Type: "text"},
	}
	tpl := seedTemplate(t, store, org.ID, manager.ID, true, fields)

	sub, err := forms.SubmitPublic(ctx, tpl.ID, map[string]string{
		"Nome":     "Maria Souza",
		"Telefone": "+55 11 91234-5678",
		"Empresa":  "Padaria Central",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	client, err := forms.Process(ctx, actorFor(manager), sub.ID)
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if client.Name != "Maria Souza" {
		t.Errorf("name = %q", client.Name)
	}
	if client.Phone != "+55 11 91234-5678" {
		t.Errorf("phone = %q", client.Phone)
	}
	if client.Company != "Padaria Central" {
		t.Errorf("company = %q", client.Company)
	}
}

func TestProcessOutsideOrganizationForbidden(t *testing.T) {
	forms, store := newForms(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Forms Org")
	otherOrg := seedOrg(t, store, "Other Org")
	owner := seedUser(t, store, "owner@forms.test", domain.RoleManager, org.ID)
	outsider := seedUser(t, store, "outsider@forms.test", domain.RoleManager, otherOrg.ID)
	tpl := seedTemplate(t, store, org.ID, owner.ID, true, intakeFields)

	sub, err := forms.SubmitPublic(ctx, tpl.ID, map[string]string{"name": "Jane"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	var fb *domain.ErrForbidden
	if _, err := forms.Process(ctx, actorFor(outsider), sub.ID); !errors.As(err, &fb) {
		t.Fatalf("foreign manager processes: want ErrForbidden, got %v", err)
	}

	// The submission is untouched and still processable by its owner.
	reloaded, err := store.GetFormSubmission(ctx, sub.ID)
	if err != nil {
		t.Fatalf("reload submission: %v", err)
	}
	if reloaded.Status != domain.SubmissionPending {
		t.Errorf("submission status = %q, want pending", reloaded.Status)
	}
	if _, err := forms.Process(ctx, actorFor(owner), sub.ID); err != nil {
		t.Errorf("owner process after denial: %v", err)
	}
}

func TestTemplatePolicy(t *testing.T) {
	forms, store := newForms(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Forms Org")
	otherOrg := seedOrg(t, store, "Other Org")
	manager := seedUser(t, store, "manager@forms.test", domain.RoleManager, org.ID)
	agent := seedUser(t, store, "agent@forms.test", domain.RoleAgent, org.ID)
	outsider := seedUser(t, store, "outsider@forms.test", domain.RoleManager, otherOrg.ID)

	var fb *domain.ErrForbidden
	if _, err := forms.CreateTemplate(ctx, actorFor(agent), &domain.FormTemplateInput{
		Name: "Agent Form", Fields: intakeFields, Active: true,
	}); !errors.As(err, &fb) {
		t.Errorf("agent creates template: want ErrForbidden, got %v", err)
	}

	tpl, err := forms.CreateTemplate(ctx, actorFor(manager), &domain.FormTemplateInput{
		Name: "Manager Form", Fields: intakeFields, Active: true,
	})
	if err != nil {
		t.Fatalf("manager creates template: %v", err)
	}
	if tpl.OrganizationID != org.ID {
		t.Errorf("template organization = %d, want the manager's %d", tpl.OrganizationID, org.ID)
	}
	if tpl.CreatedByID != manager.ID {
		t.Errorf("template creator = %q, want %q", tpl.CreatedByID, manager.ID)
	}

	// Templates are reachable only inside their organization.
	if _, err := forms.GetTemplate(ctx, actorFor(outsider), tpl.ID); !errors.As(err, &fb) {
		t.Errorf("foreign manager reads template: want ErrForbidden, got %v", err)
	}
	if err := forms.DeleteTemplate(ctx, actorFor(outsider), tpl.ID); !errors.As(err, &fb) {
		t.Errorf("foreign manager deletes template: want ErrForbidden, got %v", err)
	}

	// Agents may read but not mutate.
	if _, err := forms.GetTemplate(ctx, actorFor(agent), tpl.ID); err != nil {
		t.Errorf("agent reads template: %v", err)
	}
	inactive := false
	if _, err := forms.UpdateTemplate(ctx, actorFor(agent), tpl.ID, &domain.FormTemplatePatch{Active: &inactive}); !errors.As(err, &fb) {
		t.Errorf("agent updates template: want ErrForbidden, got %v", err)
	}
}

func TestListSubmissionsScopedToOrganization(t *testing.T) {
	forms, store := newForms(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Forms Org")
	otherOrg := seedOrg(t, store, "Other Org")
	manager := seedUser(t, store, "manager@forms.test", domain.RoleManager, org.ID)
	owner := seedUser(t, store, "owner@forms.test", domain.RoleManager, org.ID)
	outsider := seedUser(t, store, "outsider@forms.test", domain.RoleManager, otherOrg.ID)
	mine := seedTemplate(t, store, org.ID, owner.ID, true, intakeFields)
	theirs := seedTemplate(t, store, otherOrg.ID, outsider.ID, true, intakeFields)

	for i := 0; i < 2; i++ {
		if _, err := forms.SubmitPublic(ctx, mine.ID, map[string]string{"name": "Ours"}); err != nil {
			t.Fatalf("submit: %v", err)
		}
	}
	if _, err := forms.SubmitPublic(ctx, theirs.ID, map[string]string{"name": "Theirs"}); err != nil {
		t.Fatalf("submit: %v", err)
	}

	subs, err := forms.ListSubmissions(ctx, actorFor(manager))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(subs) != 2 {
		t.Fatalf("manager sees %d submissions, want 2", len(subs))
	}
	for _, sub := range subs {
		if sub.OrganizationID != org.ID {
			t.Errorf("submission %d belongs to organization %d", sub.ID, sub.OrganizationID)
		}
	}
}

func TestGetSubmissionVisibility(t *testing.T) {
	svc, store := newForms(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Matriz")
	other := seedOrg(t, store, "Filial")
	owner := seedUser(t, store, "owner@matriz.test", domain.RoleManager, org.ID)
	foreign := seedUser(t, store, "foreign@filial.test", domain.RoleManager, other.ID)
	admin := seedUser(t, store, "root@matriz.test", domain.RoleSuperadmin, org.ID)

	tpl := seedTemplate(t, store, org.ID, owner.ID, true, intakeFields)
	sub, err := svc.SubmitPublic(ctx, tpl.ID, map[string]string{"name": "Visitante"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Same organization sees the submission.
	if _, err := svc.GetSubmission(ctx, actorFor(owner), sub.ID); err != nil {
		t.Fatalf("owner get: %v", err)
	}
	// Superadmins see every organization.
	if _, err := svc.GetSubmission(ctx, actorFor(admin), sub.ID); err != nil {
		t.Fatalf("superadmin get: %v", err)
	}
	// Another organization does not.
	_, err = svc.GetSubmission(ctx, actorFor(foreign), sub.ID)
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("foreign get: want ErrForbidden, got %v", err)
	}
}
