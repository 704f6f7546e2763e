package gormstore

import (
	"context"
	"errors"
	"strings"

	"github.com/consigline/crm-api-go/internal/domain"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Store) ListUsers(ctx context.Context, scope domain.Scope) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListUsers")
	defer span.End()

	q := s.db.WithContext(ctx).Model(&userRow{})
	// A creator scope on users means "yourself", not rows you created.
	switch scope.Kind {
	case domain.ScopeUnrestricted:
	case domain.ScopeOrganization:
		q = q.Where("organization_id = ?", scope.OrganizationID)
	case domain.ScopeCreator:
		q = q.Where("id = ?", scope.CreatorID)
	default:
		q = q.Where("1 = 0")
	}

	var rows []userRow
	if err := q.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.User, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetUser")
	defer span.End()

	var row userRow
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return row.toDomain(), nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetUserByEmail")
	defer span.End()

	var row userRow
	err := s.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&row).Error
	if err != nil {
		return nil, notFound(err, "user", email)
	}
	return row.toDomain(), nil
}

func (s *Store) CreateUser(ctx context.Context, in *domain.UserInput) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CreateUser")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}

	row := userRow{
		ID:             uuid.NewString(),
		Name:           in.Name,
		Email:          strings.ToLower(in.Email),
		PasswordHash:   in.PasswordHash,
		Role:           string(in.Role),
		OrganizationID: in.OrganizationID,
		Phone:          in.Phone,
		Sector:         in.Sector,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, &domain.ErrConflict{Message: "email already in use"}
		}
		return nil, err
	}
	s.logger.Info("user created", zap.String("id", row.ID), zap.String("role", row.Role))
	return row.toDomain(), nil
}

func (s *Store) UpdateUser(ctx context.Context, id string, patch *domain.UserPatch) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Gorm.UpdateUser")
	defer span.End()

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = strings.ToLower(*patch.Email)
	}
	if patch.PasswordHash != nil {
		updates["password_hash"] = *patch.PasswordHash
	}
	if patch.Role != nil {
		updates["role"] = string(*patch.Role)
	}
	if patch.OrganizationID != nil {
		updates["organization_id"] = *patch.OrganizationID
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Sector != nil {
		updates["sector"] = *patch.Sector
	}

	var row userRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			return notFound(err, "user", id)
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&row).Updates(updates).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return &domain.ErrConflict{Message: "email already in use"}
			}
			return err
		}
		return tx.Where("id = ?", id).First(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Gorm.DeleteUser")
	defer span.End()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row userRow
		if err := tx.Where("id = ?", id).First(&row).Error; err != nil {
			return notFound(err, "user", id)
		}
		if row.Role == string(domain.RoleSuperadmin) {
			var supers int64
			if err := tx.Model(&userRow{}).Where("role = ?", string(domain.RoleSuperadmin)).Count(&supers).Error; err != nil {
				return err
			}
			if supers <= 1 {
				return &domain.ErrConflict{Message: "cannot delete the last superadmin"}
			}
		}
		return tx.Where("id = ?", id).Delete(&userRow{}).Error
	})
}

func (s *Store) CountSuperadmins(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CountSuperadmins")
	defer span.End()

	var n int64
	err := s.db.WithContext(ctx).Model(&userRow{}).
		Where("role = ?", string(domain.RoleSuperadmin)).Count(&n).Error
	return int(n), err
}
