package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/gormstore"
	"github.com/consigline/crm-api-go/internal/infra/observability"
	"github.com/consigline/crm-api-go/internal/port"
	"github.com/consigline/crm-api-go/internal/service"
)

var dbSeq atomic.Int64

func newStore(t *testing.T) port.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:service%d?mode=memory&cache=shared", dbSeq.Add(1))
	s, err := gormstore.Open(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newCRM(t *testing.T) (*service.CRM, port.Store) {
	t.Helper()
	store := newStore(t)
	return service.NewCRM(store, observability.NewMetrics(), zap.NewNop()), store
}

func seedOrg(t *testing.T, store port.Store, name string) *domain.Organization {
	t.Helper()
	org, err := store.CreateOrganization(context.Background(), &domain.OrganizationInput{Name: name})
	if err != nil {
		t.Fatalf("seed organization: %v", err)
	}
	return org
}

func seedUser(t *testing.T, store port.Store, email string, role domain.Role, orgID int64) *domain.User {
	t.Helper()
	u, err := store.CreateUser(context.Background(), &domain.UserInput{
		Name:           "Seed " + email,
		Email:          email,
		PasswordHash:   "$2a$12$seedhashseedhashseedhash",
		Role:           role,
		OrganizationID: orgID,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func actorFor(u *domain.User) domain.Actor {
	return domain.Actor{ID: u.ID, Role: u.Role, OrganizationID: u.OrganizationID}
}

// An agent listing clients sees only what they created, regardless of
// how much else their organization holds.
func TestAgentListsOnlyOwnClients(t *testing.T) {
	crm, store := newCRM(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Org 3")
	agent := seedUser(t, store, "agent@org3.test", domain.RoleAgent, org.ID)
	colleague := seedUser(t, store, "colleague@org3.test", domain.RoleAgent, org.ID)

	for i := 0; i < 2; i++ {
		if _, err := store.CreateClient(ctx, &domain.ClientInput{
			Name: fmt.Sprintf("Mine %d", i), CreatedByID: agent.ID, OrganizationID: org.ID,
		}); err != nil {
			t.Fatalf("seed client: %v", err)
		}
	}
	for i := 0; i < 3; i++ {
		if _, err := store.CreateClient(ctx, &domain.ClientInput{
			Name: fmt.Sprintf("Theirs %d", i), CreatedByID: colleague.ID, OrganizationID: org.ID,
		}); err != nil {
			t.Fatalf("seed client: %v", err)
		}
	}

	mine, err := crm.ListClients(ctx, actorFor(agent))
	if err != nil {
		t.Fatalf("list clients: %v", err)
	}
	if len(mine) != 2 {
		t.Fatalf("agent sees %d clients, want 2", len(mine))
	}
	for _, cl := range mine {
		if cl.CreatedByID != agent.ID {
			t.Errorf("leaked client created by %s", cl.CreatedByID)
		}
	}
}

// A manager touching a client of another organization gets Forbidden
// and the record stays unchanged.
func TestManagerCannotUpdateForeignClient(t *testing.T) {
	crm, store := newCRM(t)
	ctx := context.Background()

	org3 := seedOrg(t, store, "Org 3")
	org4 := seedOrg(t, store, "Org 4")
	manager := seedUser(t, store, "manager@org3.test", domain.RoleManager, org3.ID)
	owner := seedUser(t, store, "agent@org4.test", domain.RoleAgent, org4.ID)

	foreign, err := store.CreateClient(ctx, &domain.ClientInput{
		Name: "Foreign Client", CreatedByID: owner.ID, OrganizationID: org4.ID,
	})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}

	newName := "Hijacked"
	_, err = crm.UpdateClient(ctx, actorFor(manager), foreign.ID, &domain.ClientPatch{Name: &newName})
	var fb *domain.ErrForbidden
	if !errors.As(err, &fb) {
		t.Fatalf("want ErrForbidden, got %v", err)
	}

	got, err := store.GetClient(ctx, foreign.ID)
	if err != nil {
		t.Fatalf("reload client: %v", err)
	}
	if got.Name != "Foreign Client" {
		t.Errorf("client was modified to %q", got.Name)
	}
}

func TestCreateUserDuplicateEmailConflict(t *testing.T) {
	crm, store := newCRM(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Org")
	seedUser(t, store, "a@x.com", domain.RoleAgent, org.ID)
	boss := seedUser(t, store, "boss@x.com", domain.RoleSuperadmin, org.ID)

	_, err := crm.CreateUser(ctx, actorFor(boss), &domain.UserInput{
		Name: "Dup", Email: "a@x.com", Role: domain.RoleAgent, OrganizationID: org.ID,
	}, "password123")
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}

	users, err := store.ListUsers(ctx, domain.Unrestricted())
	if err != nil {
		t.Fatalf("list users: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("got %d users, want 2 (no second row created)", len(users))
	}
}

func TestDeleteLastSuperadminConflict(t *testing.T) {
	crm, store := newCRM(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Org")
	boss := seedUser(t, store, "root@x.com", domain.RoleSuperadmin, org.ID)

	err := crm.DeleteUser(ctx, actorFor(boss), boss.ID)
	var conflict *domain.ErrConflict
	if !errors.As(err, &conflict) {
		t.Fatalf("want ErrConflict, got %v", err)
	}
	if _, err := store.GetUser(ctx, boss.ID); err != nil {
		t.Errorf("superadmin disappeared: %v", err)
	}
}

func TestRolePolicyOnWrites(t *testing.T) {
	crm, store := newCRM(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Org")
	agent := seedUser(t, store, "agent@x.com", domain.RoleAgent, org.ID)
	manager := seedUser(t, store, "manager@x.com", domain.RoleManager, org.ID)

	var fb *domain.ErrForbidden

	if _, err := crm.CreateProduct(ctx, actorFor(agent), &domain.ProductInput{Name: "P"}); !errors.As(err, &fb) {
		t.Errorf("agent creates product: want ErrForbidden, got %v", err)
	}
	if _, err := crm.CreateOrganization(ctx, actorFor(manager), &domain.OrganizationInput{Name: "New Org"}); !errors.As(err, &fb) {
		t.Errorf("manager creates organization: want ErrForbidden, got %v", err)
	}
	if _, err := crm.CreateUser(ctx, actorFor(manager), &domain.UserInput{
		Name: "Escalation", Email: "esc@x.com", Role: domain.RoleSuperadmin, OrganizationID: org.ID,
	}, "password123"); !errors.As(err, &fb) {
		t.Errorf("manager mints superadmin: want ErrForbidden, got %v", err)
	}

	role := domain.RoleManager
	if _, err := crm.UpdateUser(ctx, actorFor(agent), agent.ID, &domain.UserPatch{Role: &role}); !errors.As(err, &fb) {
		t.Errorf("agent patches own role: want ErrForbidden, got %v", err)
	}

	otherOrg := seedOrg(t, store, "Elsewhere")
	if _, err := crm.UpdateUser(ctx, actorFor(manager), agent.ID, &domain.UserPatch{OrganizationID: &otherOrg.ID}); !errors.As(err, &fb) {
		t.Errorf("manager moves user across tenants: want ErrForbidden, got %v", err)
	}
}

// Managers create users into their own organization no matter what the
// input claims.
func TestManagerCreateUserStampsOrganization(t *testing.T) {
	crm, store := newCRM(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Org")
	other := seedOrg(t, store, "Other")
	manager := seedUser(t, store, "manager@stamp.test", domain.RoleManager, org.ID)

	created, err := crm.CreateUser(ctx, actorFor(manager), &domain.UserInput{
		Name: "New Agent", Email: "new@stamp.test", Role: domain.RoleAgent, OrganizationID: other.ID,
	}, "password123")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if created.OrganizationID != org.ID {
		t.Errorf("user landed in org %d, want manager's org %d", created.OrganizationID, org.ID)
	}
}

// Proposals inherit the client's organization and the creating actor.
func TestCreateProposalStampsOwnership(t *testing.T) {
	crm, store := newCRM(t)
	ctx := context.Background()

	org := seedOrg(t, store, "Org")
	agent := seedUser(t, store, "agent@prop.test", domain.RoleAgent, org.ID)
	client, err := store.CreateClient(ctx, &domain.ClientInput{
		Name: "Client", CreatedByID: agent.ID, OrganizationID: org.ID,
	})
	if err != nil {
		t.Fatalf("seed client: %v", err)
	}
	product, err := store.CreateProduct(ctx, &domain.ProductInput{Name: "Product"})
	if err != nil {
		t.Fatalf("seed product: %v", err)
	}

	proposal, err := crm.CreateProposal(ctx, actorFor(agent), &domain.ProposalInput{
		ClientID: client.ID, ProductID: product.ID,
		Value: "R$ 1.000,00", Status: domain.ProposalNegotiating,
	})
	if err != nil {
		t.Fatalf("create proposal: %v", err)
	}
	if proposal.CreatedByID != agent.ID || proposal.OrganizationID != org.ID {
		t.Errorf("ownership not stamped: %+v", proposal)
	}

	// An agent cannot attach proposals to a colleague's client.
	other := seedUser(t, store, "other@prop.test", domain.RoleAgent, org.ID)
	var fb *domain.ErrForbidden
	if _, err := crm.CreateProposal(ctx, actorFor(other), &domain.ProposalInput{
		ClientID: client.ID, ProductID: product.ID,
		Value: "R$ 2.000,00", Status: domain.ProposalNegotiating,
	}); !errors.As(err, &fb) {
		t.Errorf("foreign client proposal: want ErrForbidden, got %v", err)
	}
}
