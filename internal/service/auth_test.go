package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/service"
)

const testSecret = "test-secret-not-for-production"

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := service.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "correct horse battery staple" {
		t.Fatal("hash equals the plain text")
	}
	if !service.VerifyPassword(hash, "correct horse battery staple") {
		t.Error("correct password rejected")
	}
	if service.VerifyPassword(hash, "wrong password") {
		t.Error("wrong password accepted")
	}

	second, err := service.HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if second == hash {
		t.Error("two hashes of the same password are identical, salt missing")
	}
}

func TestLoginAndVerifyToken(t *testing.T) {
	store := newStore(t)
	auth := service.NewAuthService(store, testSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	org := seedOrg(t, store, "Auth Org")
	hash, err := service.HashPassword("s3cret-pass")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user, err := store.CreateUser(ctx, &domain.UserInput{
		Name: "Login User", Email: "Login@Example.com", PasswordHash: hash,
		Role: domain.RoleManager, OrganizationID: org.ID,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}

	// Email matching is case-insensitive.
	result, err := auth.Login(ctx, "LOGIN@example.COM", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if result.Token == "" || result.User.ID != user.ID {
		t.Fatalf("unexpected login result: %+v", result)
	}

	actor, err := auth.VerifyToken(result.Token)
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if actor.ID != user.ID || actor.Role != domain.RoleManager || actor.OrganizationID != org.ID {
		t.Errorf("actor mismatch: %+v", actor)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	store := newStore(t)
	auth := service.NewAuthService(store, testSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	org := seedOrg(t, store, "Auth Org")
	hash, _ := service.HashPassword("right-password")
	if _, err := store.CreateUser(ctx, &domain.UserInput{
		Name: "U", Email: "u@x.com", PasswordHash: hash,
		Role: domain.RoleAgent, OrganizationID: org.ID,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	var unauthorized *domain.ErrUnauthorized
	if _, err := auth.Login(ctx, "u@x.com", "wrong-password"); !errors.As(err, &unauthorized) {
		t.Errorf("wrong password: want ErrUnauthorized, got %v", err)
	}
	// Unknown account and wrong password are indistinguishable.
	if _, err := auth.Login(ctx, "ghost@x.com", "whatever"); !errors.As(err, &unauthorized) {
		t.Errorf("unknown email: want ErrUnauthorized, got %v", err)
	}
}

func TestVerifyTokenRejectsBadTokens(t *testing.T) {
	store := newStore(t)
	auth := service.NewAuthService(store, testSecret, time.Hour, zap.NewNop())
	other := service.NewAuthService(store, "a-different-secret", time.Hour, zap.NewNop())
	expiring := service.NewAuthService(store, testSecret, time.Nanosecond, zap.NewNop())
	ctx := context.Background()

	org := seedOrg(t, store, "Auth Org")
	hash, _ := service.HashPassword("pw-123456")
	if _, err := store.CreateUser(ctx, &domain.UserInput{
		Name: "U", Email: "tok@x.com", PasswordHash: hash,
		Role: domain.RoleAgent, OrganizationID: org.ID,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	var unauthorized *domain.ErrUnauthorized

	if _, err := auth.VerifyToken("not-a-jwt"); !errors.As(err, &unauthorized) {
		t.Errorf("garbage token: want ErrUnauthorized, got %v", err)
	}

	foreign, err := other.Login(ctx, "tok@x.com", "pw-123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := auth.VerifyToken(foreign.Token); !errors.As(err, &unauthorized) {
		t.Errorf("mis-signed token: want ErrUnauthorized, got %v", err)
	}

	shortLived, err := expiring.Login(ctx, "tok@x.com", "pw-123456")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := expiring.VerifyToken(shortLived.Token); !errors.As(err, &unauthorized) {
		t.Errorf("expired token: want ErrUnauthorized, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := newStore(t)
	auth := service.NewAuthService(store, testSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	org := seedOrg(t, store, "Auth Org")
	hash, _ := service.HashPassword("old-password")
	user, err := store.CreateUser(ctx, &domain.UserInput{
		Name: "U", Email: "change@x.com", PasswordHash: hash,
		Role: domain.RoleAgent, OrganizationID: org.ID,
	})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	actor := actorFor(user)

	var unauthorized *domain.ErrUnauthorized
	if err := auth.ChangePassword(ctx, actor, "not-the-old-one", "new-password-1"); !errors.As(err, &unauthorized) {
		t.Fatalf("wrong current password: want ErrUnauthorized, got %v", err)
	}

	var vd *domain.ErrValidation
	if err := auth.ChangePassword(ctx, actor, "old-password", "short"); !errors.As(err, &vd) {
		t.Fatalf("short new password: want ErrValidation, got %v", err)
	}

	if err := auth.ChangePassword(ctx, actor, "old-password", "new-password-1"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := auth.Login(ctx, "change@x.com", "old-password"); !errors.As(err, &unauthorized) {
		t.Error("old password still works")
	}
	if _, err := auth.Login(ctx, "change@x.com", "new-password-1"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	store := newStore(t)
	auth := service.NewAuthService(store, testSecret, time.Hour, zap.NewNop())
	ctx := context.Background()

	org := seedOrg(t, store, "Auth Org")
	otherOrg := seedOrg(t, store, "Other Org")
	boss := seedUser(t, store, "boss@reset.test", domain.RoleSuperadmin, org.ID)
	manager := seedUser(t, store, "manager@reset.test", domain.RoleManager, org.ID)
	agent := seedUser(t, store, "agent@reset.test", domain.RoleAgent, org.ID)
	outsider := seedUser(t, store, "outsider@reset.test", domain.RoleAgent, otherOrg.ID)

	var fb *domain.ErrForbidden
	if _, err := auth.ResetPassword(ctx, actorFor(agent), manager.ID); !errors.As(err, &fb) {
		t.Errorf("agent resets: want ErrForbidden, got %v", err)
	}
	if _, err := auth.ResetPassword(ctx, actorFor(manager), outsider.ID); !errors.As(err, &fb) {
		t.Errorf("manager resets outside org: want ErrForbidden, got %v", err)
	}

	plain, err := auth.ResetPassword(ctx, actorFor(boss), agent.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if len(plain) < 12 {
		t.Errorf("weak generated password %q", plain)
	}
	if _, err := auth.Login(ctx, "agent@reset.test", plain); err != nil {
		t.Errorf("generated password rejected: %v", err)
	}
}
