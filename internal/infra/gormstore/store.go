// Package gormstore implements the Store contract on a relational
// database through gorm. It speaks both PostgreSQL and SQLite; the DSN
// decides which driver is used.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var tracer = otel.Tracer("gormstore")

var _ port.Store = (*Store)(nil)

// Store is the relational backend adapter.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NormalizeDSN trims quotes and whitespace from a DSN and, for lib/pq
// key=value form, appends sslmode=disable when absent.
func NormalizeDSN(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, "\"'")
	if s == "" {
		return s
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return s
	}
	// Only libpq conninfo form gets the sslmode default; sqlite URIs
	// also contain "=" in their query parameters.
	if !strings.Contains(lower, "host=") && !strings.Contains(lower, "dbname=") {
		return s
	}
	cleaned := strings.Join(strings.Fields(s), " ")
	if !strings.Contains(strings.ToLower(cleaned), "sslmode=") {
		cleaned += " sslmode=disable"
	}
	return cleaned
}

// isPostgresDSN reports whether the DSN targets PostgreSQL. Anything
// else (file paths, file: URIs, :memory:) goes to SQLite.
func isPostgresDSN(dsn string) bool {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return true
	}
	return strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=")
}

// Open connects to the database, runs schema migration and returns the
// adapter. TranslateError is enabled so unique-constraint violations
// surface as gorm.ErrDuplicatedKey across both drivers.
func Open(dsn string, log *zap.Logger) (*Store, error) {
	dsn = NormalizeDSN(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("gormstore: empty DSN")
	}

	cfg := &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	}

	var (
		db  *gorm.DB
		err error
	)
	if isPostgresDSN(dsn) {
		db, err = gorm.Open(postgres.Open(dsn), cfg)
	} else {
		db, err = gorm.Open(sqlite.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("gormstore: connect: %w", err)
	}

	models := []interface{}{
		&organizationRow{}, &userRow{}, &clientRow{}, &proposalRow{},
		&productRow{}, &convenioRow{}, &bankRow{},
		&formTemplateRow{}, &formSubmissionRow{},
	}
	for _, m := range models {
		if migErr := db.AutoMigrate(m); migErr != nil {
			return nil, fmt.Errorf("gormstore: automigrate %T: %w", m, migErr)
		}
	}

	log.Info("gormstore: connected", zap.Bool("postgres", isPostgresDSN(dsn)))
	return &Store{db: db, logger: log}, nil
}

// Ping verifies the backend is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.WithContext(ctx).Exec("SELECT 1").Error
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// scoped translates a Scope into WHERE predicates. A denied scope
// matches nothing; denial itself is the policy layer's business.
func scoped(q *gorm.DB, scope domain.Scope) *gorm.DB {
	switch scope.Kind {
	case domain.ScopeUnrestricted:
		return q
	case domain.ScopeOrganization:
		return q.Where("organization_id = ?", scope.OrganizationID)
	case domain.ScopeCreator:
		return q.Where("created_by_id = ?", scope.CreatorID)
	default:
		return q.Where("1 = 0")
	}
}

// notFound maps gorm's sentinel to the typed domain error.
func notFound(err error, resource, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}
	return err
}
