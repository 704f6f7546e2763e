package gormstore

import (
	"context"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Store) ListClients(ctx context.Context, scope domain.Scope) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListClients")
	defer span.End()

	var rows []clientRow
	q := scoped(s.db.WithContext(ctx).Model(&clientRow{}), scope)
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Client, 0, len(rows))
	for i := range rows {
		out = append(out, *rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetClient")
	defer span.End()

	var row clientRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "client", strconv.FormatInt(id, 10))
	}
	return row.toDomain(), nil
}

func (s *Store) CreateClient(ctx context.Context, in *domain.ClientInput) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CreateClient")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := clientRow{
		Name:           in.Name,
		CPF:            in.CPF,
		Phone:          in.Phone,
		Email:          in.Email,
		BirthDate:      in.BirthDate,
		Company:        in.Company,
		Contact:        in.Contact,
		ConvenioID:     in.ConvenioID,
		CreatedByID:    in.CreatedByID,
		OrganizationID: in.OrganizationID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	s.logger.Info("client created",
		zap.Int64("id", row.ID),
		zap.Int64("organization_id", row.OrganizationID),
	)
	return row.toDomain(), nil
}

func (s *Store) UpdateClient(ctx context.Context, id int64, patch *domain.ClientPatch) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Gorm.UpdateClient")
	defer span.End()

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.CPF != nil {
		updates["cpf"] = *patch.CPF
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Email != nil {
		updates["email"] = *patch.Email
	}
	if patch.BirthDate != nil {
		updates["birth_date"] = *patch.BirthDate
	}
	if patch.Company != nil {
		updates["company"] = *patch.Company
	}
	if patch.Contact != nil {
		updates["contact"] = *patch.Contact
	}
	if patch.ConvenioID != nil {
		updates["convenio_id"] = *patch.ConvenioID
	}
	if patch.OrganizationID != nil {
		updates["organization_id"] = *patch.OrganizationID
	}

	var row clientRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "client", strconv.FormatInt(id, 10))
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

// DeleteClient removes the client and every proposal attached to it in
// one transaction.
func (s *Store) DeleteClient(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Gorm.DeleteClient")
	defer span.End()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row clientRow
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "client", strconv.FormatInt(id, 10))
		}
		if err := tx.Where("client_id = ?", id).Delete(&proposalRow{}).Error; err != nil {
			return err
		}
		return tx.Delete(&clientRow{}, id).Error
	})
}
