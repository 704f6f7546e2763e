package seed_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"

	"go.uber.org/zap"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/gormstore"
	"github.com/consigline/crm-api-go/internal/port"
	"github.com/consigline/crm-api-go/internal/seed"
	"github.com/consigline/crm-api-go/internal/service"
)

var dbSeq atomic.Int64

func newStore(t *testing.T) port.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:seed%d?mode=memory&cache=shared", dbSeq.Add(1))
	s, err := gormstore.Open(dsn, zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func counts(t *testing.T, store port.Store) (products, convenios, banks, orgs, admins int) {
	t.Helper()
	ctx := context.Background()
	p, err := store.ListProducts(ctx)
	if err != nil {
		t.Fatalf("list products: %v", err)
	}
	c, err := store.ListConvenios(ctx)
	if err != nil {
		t.Fatalf("list convenios: %v", err)
	}
	b, err := store.ListBanks(ctx)
	if err != nil {
		t.Fatalf("list banks: %v", err)
	}
	o, err := store.ListOrganizations(ctx, domain.Unrestricted())
	if err != nil {
		t.Fatalf("list organizations: %v", err)
	}
	a, err := store.CountSuperadmins(ctx)
	if err != nil {
		t.Fatalf("count superadmins: %v", err)
	}
	return len(p), len(c), len(b), len(o), a
}

func TestRunSeedsEmptyStore(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := seed.New(store, zap.NewNop()).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	products, convenios, banks, orgs, admins := counts(t, store)
	if products == 0 || convenios == 0 || banks == 0 {
		t.Errorf("reference data missing: %d products, %d convenios, %d banks", products, convenios, banks)
	}
	if orgs != 1 {
		t.Errorf("got %d organizations, want 1", orgs)
	}
	if admins != 1 {
		t.Errorf("got %d superadmins, want 1", admins)
	}

	// The bootstrap account accepts the documented password.
	admin, err := store.GetUserByEmail(ctx, seed.BootstrapAdminEmail)
	if err != nil {
		t.Fatalf("get bootstrap admin: %v", err)
	}
	if admin.Role != domain.RoleSuperadmin {
		t.Errorf("bootstrap role = %q", admin.Role)
	}
	if !service.VerifyPassword(admin.PasswordHash, seed.BootstrapAdminPassword) {
		t.Error("bootstrap password does not verify")
	}
}

func TestRunIsIdempotent(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	seeder := seed.New(store, zap.NewNop())

	if err := seeder.Run(ctx); err != nil {
		t.Fatalf("first run: %v", err)
	}
	p1, c1, b1, o1, a1 := counts(t, store)

	if err := seeder.Run(ctx); err != nil {
		t.Fatalf("second run: %v", err)
	}
	p2, c2, b2, o2, a2 := counts(t, store)

	if p1 != p2 || c1 != c2 || b1 != b2 || o1 != o2 || a1 != a2 {
		t.Errorf("second run changed counts: %d/%d products, %d/%d convenios, %d/%d banks, %d/%d orgs, %d/%d admins",
			p1, p2, c1, c2, b1, b2, o1, o2, a1, a2)
	}
}

// A deployment that already has users keeps them: only the missing
// pieces are filled in.
func TestRunSkipsExistingAdmin(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	org, err := store.CreateOrganization(ctx, &domain.OrganizationInput{Name: "Existing Org"})
	if err != nil {
		t.Fatalf("seed org: %v", err)
	}
	hash, _ := service.HashPassword("operator-password")
	if _, err := store.CreateUser(ctx, &domain.UserInput{
		Name: "Existing Admin", Email: "ops@existing.test", PasswordHash: hash,
		Role: domain.RoleSuperadmin, OrganizationID: org.ID,
	}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	if err := seed.New(store, zap.NewNop()).Run(ctx); err != nil {
		t.Fatalf("run: %v", err)
	}

	_, _, _, orgs, admins := counts(t, store)
	if orgs != 1 {
		t.Errorf("got %d organizations, want the existing 1", orgs)
	}
	if admins != 1 {
		t.Errorf("got %d superadmins, want the existing 1", admins)
	}
	var nf *domain.ErrNotFound
	if _, err := store.GetUserByEmail(ctx, seed.BootstrapAdminEmail); !errors.As(err, &nf) {
		t.Error("bootstrap admin was created despite an existing superadmin")
	}
}
