// Package service orchestrates the CRM use cases: it resolves the
// actor's scope through the policy rules, stamps ownership onto new
// records, and calls the storage port. Handlers stay thin; adapters
// stay dumb.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const bcryptCost = 12

// AuthService handles credentials and session tokens. Sessions are
// stateless HS256 JWTs carrying the actor's id, role and organization.
type AuthService struct {
	store      port.Store
	jwtSecret  []byte
	sessionTTL time.Duration
	logger     *zap.Logger
}

// NewAuthService creates the credential manager. sessionTTL <= 0 falls
// back to 24 hours.
func NewAuthService(store port.Store, jwtSecret string, sessionTTL time.Duration, logger *zap.Logger) *AuthService {
	if sessionTTL <= 0 {
		sessionTTL = 24 * time.Hour
	}
	return &AuthService{
		store:      store,
		jwtSecret:  []byte(jwtSecret),
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// HashPassword derives a bcrypt hash with an embedded random salt.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", &domain.ErrValidation{Field: "password", Message: "password is required"}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword compares in constant time. It reports a bool, never
// the reason, so callers cannot leak which part failed.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// LoginResult is a successful authentication: the session token plus
// the account it belongs to.
type LoginResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *domain.User `json:"user"`
}

// Login authenticates by email and password. A missing account and a
// wrong password return the same ErrUnauthorized.
func (s *AuthService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		var nf *domain.ErrNotFound
		if errors.As(err, &nf) {
			return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
		}
		return nil, err
	}
	if !VerifyPassword(user.PasswordHash, password) {
		s.logger.Warn("login rejected", zap.String("email", email))
		return nil, &domain.ErrUnauthorized{Message: "invalid credentials"}
	}

	token, expires, err := s.issueToken(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login", zap.String("userId", user.ID), zap.String("role", string(user.Role)))
	return &LoginResult{Token: token, ExpiresAt: expires, User: user}, nil
}

type sessionClaims struct {
	Role           string `json:"role"`
	OrganizationID int64  `json:"orgId"`
	jwt.RegisteredClaims
}

func (s *AuthService) issueToken(user *domain.User) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(s.sessionTTL)
	claims := sessionClaims{
		Role:           string(user.Role),
		OrganizationID: user.OrganizationID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expires, nil
}

// VerifyToken validates a session token and resolves the Actor. Any
// malformed, mis-signed or expired token yields ErrUnauthorized.
func (s *AuthService) VerifyToken(tokenString string) (domain.Actor, error) {
	var claims sessionClaims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !token.Valid {
		return domain.Actor{}, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	role := domain.Role(claims.Role)
	if claims.Subject == "" || !domain.ValidRole(role) {
		return domain.Actor{}, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}
	return domain.Actor{
		ID:             claims.Subject,
		Role:           role,
		OrganizationID: claims.OrganizationID,
	}, nil
}

// ChangePassword lets an authenticated user replace their own password
// after proving they know the current one.
func (s *AuthService) ChangePassword(ctx context.Context, actor domain.Actor, current, next string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.ChangePassword")
	defer span.End()

	if len(next) < 8 {
		return &domain.ErrValidation{Field: "password", Message: "password must be at least 8 characters"}
	}
	user, err := s.store.GetUser(ctx, actor.ID)
	if err != nil {
		return err
	}
	if !VerifyPassword(user.PasswordHash, current) {
		return &domain.ErrUnauthorized{Message: "current password is wrong"}
	}
	hash, err := HashPassword(next)
	if err != nil {
		return err
	}
	_, err = s.store.UpdateUser(ctx, actor.ID, &domain.UserPatch{PasswordHash: &hash})
	if err == nil {
		s.logger.Info("password changed", zap.String("userId", actor.ID))
	}
	return err
}

// ResetPassword issues a fresh random password for another account and
// returns it in plain text exactly once. Managers may reset accounts in
// their organization; superadmins anywhere; agents nobody's.
func (s *AuthService) ResetPassword(ctx context.Context, actor domain.Actor, userID string) (string, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.ResetPassword")
	defer span.End()

	if actor.Role == domain.RoleAgent {
		return "", &domain.ErrForbidden{Reason: "role cannot perform this operation"}
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return "", err
	}
	if actor.Role == domain.RoleManager && user.OrganizationID != actor.OrganizationID {
		return "", &domain.ErrForbidden{Reason: "wrong organization"}
	}

	plain, err := randomPassword(12)
	if err != nil {
		return "", err
	}
	hash, err := HashPassword(plain)
	if err != nil {
		return "", err
	}
	if _, err := s.store.UpdateUser(ctx, userID, &domain.UserPatch{PasswordHash: &hash}); err != nil {
		return "", err
	}
	s.logger.Info("password reset", zap.String("userId", userID), zap.String("byUserId", actor.ID))
	return plain, nil
}

const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

func randomPassword(length int) (string, error) {
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
