package gormstore

import (
	"context"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Store) ListOrganizations(ctx context.Context, scope domain.Scope) ([]domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListOrganizations")
	defer span.End()

	q := s.db.WithContext(ctx).Model(&organizationRow{})
	// Organizations carry no organization_id column; an org-scoped actor
	// sees exactly their own record.
	switch scope.Kind {
	case domain.ScopeUnrestricted:
	case domain.ScopeOrganization:
		q = q.Where("id = ?", scope.OrganizationID)
	default:
		q = q.Where("1 = 0")
	}

	var rows []organizationRow
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Organization, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) GetOrganization(ctx context.Context, id int64) (*domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetOrganization")
	defer span.End()

	var row organizationRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "organization", strconv.FormatInt(id, 10))
	}
	return row.toDomain(), nil
}

func (s *Store) CreateOrganization(ctx context.Context, in *domain.OrganizationInput) (*domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CreateOrganization")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := organizationRow{
		Name:    in.Name,
		Email:   in.Email,
		Phone:   in.Phone,
		Address: in.Address,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	s.logger.Info("organization created", zap.Int64("id", row.ID))
	return row.toDomain(), nil
}

func (s *Store) UpdateOrganization(ctx context.Context, id int64, patch *domain.OrganizationPatch) (*domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Gorm.UpdateOrganization")
	defer span.End()

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Address != nil {
		updates["address"] = *patch.Address
	}

	var row organizationRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "organization", strconv.FormatInt(id, 10))
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&row).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&row, id).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toDomain(), nil
}

func (s *Store) DeleteOrganization(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Gorm.DeleteOrganization")
	defer span.End()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row organizationRow
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "organization", strconv.FormatInt(id, 10))
		}
		var dependents int64
		if err := tx.Model(&userRow{}).Where("organization_id = ?", id).Count(&dependents).Error; err != nil {
			return err
		}
		if dependents > 0 {
			return &domain.ErrConflict{Message: "organization has users and cannot be deleted"}
		}
		return tx.Delete(&organizationRow{}, id).Error
	})
}
