// Package storetest holds a black-box conformance suite for the Store
// contract. Every backend adapter runs the same suite; behavior that
// differs between backends is a bug in the adapter, not a suite option.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/port"
)

// Factory returns a fresh, empty store for one subtest.
type Factory func(t *testing.T) port.Store

// Run executes the conformance suite against the given backend.
func Run(t *testing.T, factory Factory) {
	t.Run("OrganizationCRUD", func(t *testing.T) { testOrganizationCRUD(t, factory(t)) })
	t.Run("OrganizationDeleteGuard", func(t *testing.T) { testOrganizationDeleteGuard(t, factory(t)) })
	t.Run("UserEmailConflict", func(t *testing.T) { testUserEmailConflict(t, factory(t)) })
	t.Run("UserLastSuperadminGuard", func(t *testing.T) { testUserLastSuperadminGuard(t, factory(t)) })
	t.Run("UserPatch", func(t *testing.T) { testUserPatch(t, factory(t)) })
	t.Run("ClientCascadeDelete", func(t *testing.T) { testClientCascadeDelete(t, factory(t)) })
	t.Run("ScopedListing", func(t *testing.T) { testScopedListing(t, factory(t)) })
	t.Run("ListOrdering", func(t *testing.T) { testListOrdering(t, factory(t)) })
	t.Run("ProposalFilters", func(t *testing.T) { testProposalFilters(t, factory(t)) })
	t.Run("ProposalDetails", func(t *testing.T) { testProposalDetails(t, factory(t)) })
	t.Run("ReferenceData", func(t *testing.T) { testReferenceData(t, factory(t)) })
	t.Run("FormLifecycle", func(t *testing.T) { testFormLifecycle(t, factory(t)) })
	t.Run("ValidationBeforeStorage", func(t *testing.T) { testValidationBeforeStorage(t, factory(t)) })
	t.Run("TypedNotFound", func(t *testing.T) { testTypedNotFound(t, factory(t)) })
}

func mustOrg(t *testing.T, s port.Store, name string) *domain.Organization {
	t.Helper()
	org, err := s.CreateOrganization(context.Background(), &domain.OrganizationInput{Name: name})
	if err != nil {
		t.Fatalf("create organization %q: %v", name, err)
	}
	return org
}

func mustUser(t *testing.T, s port.Store, email string, role domain.Role, orgID int64) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &domain.UserInput{
		Name:           "User " + email,
		Email:          email,
		PasswordHash:   "$2a$12$fakehashfakehashfakehash",
		Role:           role,
		OrganizationID: orgID,
	})
	if err != nil {
		t.Fatalf("create user %q: %v", email, err)
	}
	return u
}

func mustClient(t *testing.T, s port.Store, name, creatorID string, orgID int64) *domain.Client {
	t.Helper()
	cl, err := s.CreateClient(context.Background(), &domain.ClientInput{
		Name:           name,
		CreatedByID:    creatorID,
		OrganizationID: orgID,
	})
	if err != nil {
		t.Fatalf("create client %q: %v", name, err)
	}
	return cl
}

func mustProposal(t *testing.T, s port.Store, in *domain.ProposalInput) *domain.Proposal {
	t.Helper()
	p, err := s.CreateProposal(context.Background(), in)
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	return p
}

func testOrganizationCRUD(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	org := mustOrg(t, s, "Acme Consignados")
	if org.ID == 0 {
		t.Fatal("created organization has zero id")
	}

	got, err := s.GetOrganization(ctx, org.ID)
	if err != nil {
		t.Fatalf("get organization: %v", err)
	}
	if got.Name != "Acme Consignados" {
		t.Errorf("got name %q, want %q", got.Name, "Acme Consignados")
	}

	newName := "Acme Financeira"
	updated, err := s.UpdateOrganization(ctx, org.ID, &domain.OrganizationPatch{Name: &newName})
	if err != nil {
		t.Fatalf("update organization: %v", err)
	}
	if updated.Name != newName {
		t.Errorf("got name %q after patch, want %q", updated.Name, newName)
	}

	if err := s.DeleteOrganization(ctx, org.ID); err != nil {
		t.Fatalf("delete organization: %v", err)
	}
	var nf *domain.ErrNotFound
	if _, err := s.GetOrganization(ctx, org.ID); !errors.As(err, &nf) {
		t.Errorf("get after delete: want ErrNotFound, got %v", err)
	}
}

func testOrganizationDeleteGuard(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	org := mustOrg(t, s, "Guarded Org")
	u := mustUser(t, s, "agent@guarded.test", domain.RoleAgent, org.ID)

	var conflict *domain.ErrConflict
	if err := s.DeleteOrganization(ctx, org.ID); !errors.As(err, &conflict) {
		t.Fatalf("delete with dependent users: want ErrConflict, got %v", err)
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	if err := s.DeleteOrganization(ctx, org.ID); err != nil {
		t.Fatalf("delete after removing users: %v", err)
	}
}

func testUserEmailConflict(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	org := mustOrg(t, s, "Email Org")
	mustUser(t, s, "dup@example.com", domain.RoleAgent, org.ID)

	_, err := s.CreateUser(ctx, &domain.UserInput{
		Name:           "Second",
		Email:          "dup@example.com",
		PasswordHash:   "$2a$12$other",
		Role:           domain.RoleManager,
		OrganizationID: org.ID,
	})
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("duplicate email: want ErrConflict, got %v", err)
	}

	got, err := s.GetUserByEmail(ctx, "dup@example.com")
	if err != nil {
		t.Fatalf("get by email: %v", err)
	}
	if got.Email != "dup@example.com" {
		t.Errorf("got email %q", got.Email)
	}
}

func testUserLastSuperadminGuard(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	boss := mustUser(t, s, "root@system.test", domain.RoleSuperadmin, 0)

	n, err := s.CountSuperadmins(ctx)
	if err != nil {
		t.Fatalf("count superadmins: %v", err)
	}
	if n != 1 {
		t.Fatalf("got %d superadmins, want 1", n)
	}

	var conflict *domain.ErrConflict
	if err := s.DeleteUser(ctx, boss.ID); !errors.As(err, &conflict) {
		t.Fatalf("delete last superadmin: want ErrConflict, got %v", err)
	}

	second := mustUser(t, s, "root2@system.test", domain.RoleSuperadmin, 0)
	if err := s.DeleteUser(ctx, boss.ID); err != nil {
		t.Fatalf("delete superadmin with another present: %v", err)
	}
	if err := s.DeleteUser(ctx, second.ID); !errors.As(err, &conflict) {
		t.Fatalf("delete final superadmin: want ErrConflict, got %v", err)
	}
}

func testUserPatch(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	org := mustOrg(t, s, "Patch Org")
	u := mustUser(t, s, "patch@example.com", domain.RoleAgent, org.ID)

	phone := "+55 11 91234-5678"
	sector := "vendas"
	updated, err := s.UpdateUser(ctx, u.ID, &domain.UserPatch{Phone: &phone, Sector: &sector})
	if err != nil {
		t.Fatalf("update user: %v", err)
	}
	if updated.Phone != phone || updated.Sector != sector {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Email != "patch@example.com" {
		t.Errorf("untouched field changed: email %q", updated.Email)
	}
}

func testClientCascadeDelete(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	org := mustOrg(t, s, "Cascade Org")
	agent := mustUser(t, s, "cascade@example.com", domain.RoleAgent, org.ID)
	cl := mustClient(t, s, "Maria Souza", agent.ID, org.ID)
	keep := mustClient(t, s, "Kept Client", agent.ID, org.ID)

	prod, err := s.CreateProduct(ctx, &domain.ProductInput{Name: "Consignado INSS"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	doomed := mustProposal(t, s, &domain.ProposalInput{
		ClientID:       cl.ID,
		ProductID:      prod.ID,
		Value:          "R$ 1.000,00",
		Status:         domain.ProposalNegotiating,
		CreatedByID:    agent.ID,
		OrganizationID: org.ID,
	})
	survivor := mustProposal(t, s, &domain.ProposalInput{
		ClientID:       keep.ID,
		ProductID:      prod.ID,
		Value:          "R$ 2.000,00",
		Status:         domain.ProposalNegotiating,
		CreatedByID:    agent.ID,
		OrganizationID: org.ID,
	})

	if err := s.DeleteClient(ctx, cl.ID); err != nil {
		t.Fatalf("delete client: %v", err)
	}

	var nf *domain.ErrNotFound
	if _, err := s.GetProposal(ctx, doomed.ID); !errors.As(err, &nf) {
		t.Errorf("proposal of deleted client: want ErrNotFound, got %v", err)
	}
	if _, err := s.GetProposal(ctx, survivor.ID); err != nil {
		t.Errorf("proposal of other client should survive: %v", err)
	}
}

func testScopedListing(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	orgA := mustOrg(t, s, "Org A")
	orgB := mustOrg(t, s, "Org B")
	agentA := mustUser(t, s, "a1@example.com", domain.RoleAgent, orgA.ID)
	agentA2 := mustUser(t, s, "a2@example.com", domain.RoleAgent, orgA.ID)
	agentB := mustUser(t, s, "b1@example.com", domain.RoleAgent, orgB.ID)

	mustClient(t, s, "A1 Client", agentA.ID, orgA.ID)
	mustClient(t, s, "A2 Client", agentA2.ID, orgA.ID)
	mustClient(t, s, "B1 Client", agentB.ID, orgB.ID)

	all, err := s.ListClients(ctx, domain.Unrestricted())
	if err != nil {
		t.Fatalf("unrestricted list: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unrestricted: got %d clients, want 3", len(all))
	}

	inA, err := s.ListClients(ctx, domain.ScopedByOrganization(orgA.ID))
	if err != nil {
		t.Fatalf("org list: %v", err)
	}
	if len(inA) != 2 {
		t.Errorf("org scope: got %d clients, want 2", len(inA))
	}
	for _, cl := range inA {
		if cl.OrganizationID != orgA.ID {
			t.Errorf("org scope leaked client of org %d", cl.OrganizationID)
		}
	}

	mine, err := s.ListClients(ctx, domain.ScopedByCreator(agentA.ID))
	if err != nil {
		t.Fatalf("creator list: %v", err)
	}
	if len(mine) != 1 || mine[0].CreatedByID != agentA.ID {
		t.Errorf("creator scope: got %+v", mine)
	}

	none, err := s.ListClients(ctx, domain.Denied("no access"))
	if err != nil {
		t.Fatalf("denied list: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("denied scope: got %d clients, want 0", len(none))
	}

	usersInA, err := s.ListUsers(ctx, domain.ScopedByOrganization(orgA.ID))
	if err != nil {
		t.Fatalf("scoped users: %v", err)
	}
	if len(usersInA) != 2 {
		t.Errorf("org-scoped users: got %d, want 2", len(usersInA))
	}

	self, err := s.ListUsers(ctx, domain.ScopedByCreator(agentA.ID))
	if err != nil {
		t.Fatalf("self users: %v", err)
	}
	if len(self) != 1 || self[0].ID != agentA.ID {
		t.Errorf("self scope: got %+v", self)
	}
}

func testListOrdering(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	org := mustOrg(t, s, "Order Org")
	agent := mustUser(t, s, "order@example.com", domain.RoleAgent, org.ID)

	names := []string{"First", "Second", "Third"}
	for _, n := range names {
		mustClient(t, s, n, agent.ID, org.ID)
	}

	got, err := s.ListClients(ctx, domain.Unrestricted())
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(got) != len(names) {
		t.Fatalf("got %d clients, want %d", len(got), len(names))
	}
	for i, cl := range got {
		if cl.Name != names[i] {
			t.Errorf("position %d: got %q, want %q (creation order)", i, cl.Name, names[i])
		}
	}
}

func testProposalFilters(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	org := mustOrg(t, s, "Filter Org")
	agent := mustUser(t, s, "filter@example.com", domain.RoleAgent, org.ID)
	cl := mustClient(t, s, "Filter Client", agent.ID, org.ID)
	prod, err := s.CreateProduct(ctx, &domain.ProductInput{Name: "Filter Product"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}

	seed := []struct {
		value  string
		status domain.ProposalStatus
	}{
		{"R$ 1.500,00", domain.ProposalNegotiating},
		{"2500.00", domain.ProposalAccepted},
		{"R$ 10.000,00", domain.ProposalAccepted},
		{"nonsense", domain.ProposalDeclined},
	}
	for _, p := range seed {
		mustProposal(t, s, &domain.ProposalInput{
			ClientID:       cl.ID,
			ProductID:      prod.ID,
			Value:          p.value,
			Status:         p.status,
			CreatedByID:    agent.ID,
			OrganizationID: org.ID,
		})
	}

	accepted, err := s.ListProposalsByStatus(ctx, domain.Unrestricted(), domain.ProposalAccepted)
	if err != nil {
		t.Fatalf("list by status: %v", err)
	}
	if len(accepted) != 2 {
		t.Errorf("status filter: got %d, want 2", len(accepted))
	}
	for _, p := range accepted {
		if p.Status != domain.ProposalAccepted {
			t.Errorf("status filter leaked %q", p.Status)
		}
	}

	// 1500 and 2500 fall in range; 10000 is above, "nonsense" never
	// parses and is skipped.
	ranged, err := s.ListProposalsByValueRange(ctx, domain.Unrestricted(), 1000, 3000)
	if err != nil {
		t.Fatalf("list by value range: %v", err)
	}
	if len(ranged) != 2 {
		t.Errorf("value range: got %d, want 2", len(ranged))
	}
}

func testProposalDetails(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	org := mustOrg(t, s, "Details Org")
	agent := mustUser(t, s, "details@example.com", domain.RoleAgent, org.ID)
	cl := mustClient(t, s, "Ana Lima", agent.ID, org.ID)

	prod, err := s.CreateProduct(ctx, &domain.ProductInput{Name: "Cartão Consignado"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	conv, err := s.CreateConvenio(ctx, &domain.ConvenioInput{Name: "INSS"})
	if err != nil {
		t.Fatalf("create convenio: %v", err)
	}
	bank, err := s.CreateBank(ctx, &domain.BankInput{Name: "Banco Alfa", Code: "001"})
	if err != nil {
		t.Fatalf("create bank: %v", err)
	}

	for i := 0; i < 2; i++ {
		mustProposal(t, s, &domain.ProposalInput{
			ClientID:       cl.ID,
			ProductID:      prod.ID,
			ConvenioID:     conv.ID,
			BankID:         bank.ID,
			Value:          "R$ 3.000,00",
			Status:         domain.ProposalUnderReview,
			CreatedByID:    agent.ID,
			OrganizationID: org.ID,
		})
	}

	details, err := s.ListProposalsWithDetails(ctx, domain.Unrestricted())
	if err != nil {
		t.Fatalf("list with details: %v", err)
	}
	if len(details) != 2 {
		t.Fatalf("got %d detail rows, want 2", len(details))
	}
	for _, d := range details {
		if d.ClientName != "Ana Lima" {
			t.Errorf("client name %q", d.ClientName)
		}
		if d.ProductName != "Cartão Consignado" {
			t.Errorf("product name %q", d.ProductName)
		}
		if d.ConvenioName != "INSS" {
			t.Errorf("convenio name %q", d.ConvenioName)
		}
		if d.BankName != "Banco Alfa" {
			t.Errorf("bank name %q", d.BankName)
		}
	}
}

func testReferenceData(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	prod, err := s.CreateProduct(ctx, &domain.ProductInput{Name: "Empréstimo Pessoal", Price: "R$ 500,00"})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	desc := "linha atualizada"
	updated, err := s.UpdateProduct(ctx, prod.ID, &domain.ProductPatch{Description: &desc})
	if err != nil {
		t.Fatalf("update product: %v", err)
	}
	if updated.Description != desc {
		t.Errorf("description %q", updated.Description)
	}

	conv, err := s.CreateConvenio(ctx, &domain.ConvenioInput{Name: "SIAPE"})
	if err != nil {
		t.Fatalf("create convenio: %v", err)
	}
	banks := []string{"Banco Beta", "Banco Gama"}
	for _, b := range banks {
		if _, err := s.CreateBank(ctx, &domain.BankInput{Name: b}); err != nil {
			t.Fatalf("create bank %q: %v", b, err)
		}
	}

	listed, err := s.ListBanks(ctx)
	if err != nil {
		t.Fatalf("list banks: %v", err)
	}
	if len(listed) != 2 {
		t.Errorf("got %d banks, want 2", len(listed))
	}

	if err := s.DeleteConvenio(ctx, conv.ID); err != nil {
		t.Fatalf("delete convenio: %v", err)
	}
	var nf *domain.ErrNotFound
	if _, err := s.GetConvenio(ctx, conv.ID); !errors.As(err, &nf) {
		t.Errorf("get deleted convenio: want ErrNotFound, got %v", err)
	}
}

func testFormLifecycle(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	org := mustOrg(t, s, "Forms Org")
	manager := mustUser(t, s, "forms@example.com", domain.RoleManager, org.ID)

	tpl, err := s.CreateFormTemplate(ctx, &domain.FormTemplateInput{
		Name: "Captação INSS",
		Fields: []domain.FormField{
			{Name: "nome", Label: "Nome completo", Type: "text", Required: true},
			{Name: "telefone", Label: "Telefone", Type: "phone"},
		},
		Active:         true,
		CreatedByID:    manager.ID,
		OrganizationID: org.ID,
	})
	if err != nil {
		t.Fatalf("create template: %v", err)
	}
	if len(tpl.Fields) != 2 || tpl.Fields[0].Name != "nome" {
		t.Errorf("fields round-trip: %+v", tpl.Fields)
	}

	sub, err := s.CreateFormSubmission(ctx, &domain.FormSubmissionInput{
		FormTemplateID: tpl.ID,
		Data:           map[string]string{"nome": "Carlos Dias", "telefone": "11 99999-0000"},
		OrganizationID: org.ID,
	})
	if err != nil {
		t.Fatalf("create submission: %v", err)
	}
	if sub.Status != domain.SubmissionPending {
		t.Fatalf("new submission status %q, want pending", sub.Status)
	}

	processed := domain.SubmissionProcessed
	now := sub.CreatedAt
	done, err := s.UpdateFormSubmission(ctx, sub.ID, &domain.FormSubmissionPatch{
		Status:        &processed,
		ProcessedByID: &manager.ID,
		ProcessedAt:   &now,
	})
	if err != nil {
		t.Fatalf("update submission: %v", err)
	}
	if done.Status != domain.SubmissionProcessed || done.ProcessedByID != manager.ID {
		t.Errorf("processed submission: %+v", done)
	}
	if done.Data["nome"] != "Carlos Dias" {
		t.Errorf("data round-trip: %+v", done.Data)
	}

	listed, err := s.ListFormSubmissions(ctx, domain.ScopedByOrganization(org.ID))
	if err != nil {
		t.Fatalf("list submissions: %v", err)
	}
	if len(listed) != 1 {
		t.Errorf("got %d submissions, want 1", len(listed))
	}
}

func testValidationBeforeStorage(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	var vd *domain.ErrValidation
	if _, err := s.CreateOrganization(ctx, &domain.OrganizationInput{}); !errors.As(err, &vd) {
		t.Errorf("empty organization: want ErrValidation, got %v", err)
	}
	if _, err := s.CreateUser(ctx, &domain.UserInput{Name: "x", Email: "not-an-email", PasswordHash: "h", Role: domain.RoleAgent, OrganizationID: 1}); !errors.As(err, &vd) {
		t.Errorf("malformed email: want ErrValidation, got %v", err)
	}
	if _, err := s.CreateClient(ctx, &domain.ClientInput{Name: "no creator"}); !errors.As(err, &vd) {
		t.Errorf("client without creator: want ErrValidation, got %v", err)
	}
	if _, err := s.CreateProposal(ctx, &domain.ProposalInput{ClientID: 1, ProductID: 1, Value: "10", Status: "bogus", CreatedByID: "u", OrganizationID: 1}); !errors.As(err, &vd) {
		t.Errorf("invalid status: want ErrValidation, got %v", err)
	}
}

func testTypedNotFound(t *testing.T, s port.Store) {
	defer s.Close()
	ctx := context.Background()

	var nf *domain.ErrNotFound
	if _, err := s.GetOrganization(ctx, 9999); !errors.As(err, &nf) {
		t.Errorf("organization: want ErrNotFound, got %v", err)
	}
	if _, err := s.GetUser(ctx, "00000000-0000-0000-0000-000000000000"); !errors.As(err, &nf) {
		t.Errorf("user: want ErrNotFound, got %v", err)
	}
	if _, err := s.GetClient(ctx, 9999); !errors.As(err, &nf) {
		t.Errorf("client: want ErrNotFound, got %v", err)
	}
	if _, err := s.GetProposal(ctx, 9999); !errors.As(err, &nf) {
		t.Errorf("proposal: want ErrNotFound, got %v", err)
	}
	if _, err := s.GetFormTemplate(ctx, 9999); !errors.As(err, &nf) {
		t.Errorf("form template: want ErrNotFound, got %v", err)
	}
	name := "renamed"
	if _, err := s.UpdateClient(ctx, 9999, &domain.ClientPatch{Name: &name}); !errors.As(err, &nf) {
		t.Errorf("update missing client: want ErrNotFound, got %v", err)
	}
	if err := s.DeleteProposal(ctx, 9999); !errors.As(err, &nf) {
		t.Errorf("delete missing proposal: want ErrNotFound, got %v", err)
	}
}
