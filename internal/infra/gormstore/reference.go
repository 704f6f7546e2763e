package gormstore

import (
	"context"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"

	"gorm.io/gorm"
)

// Reference data (products, convenios, banks) is global and unscoped.

func (s *Store) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListProducts")
	defer span.End()

	var rows []productRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetProduct")
	defer span.End()

	var row productRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "product", strconv.FormatInt(id, 10))
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, in *domain.ProductInput) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CreateProduct")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := productRow{Name: in.Name, Price: in.Price, Description: in.Description}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, id int64, patch *domain.ProductPatch) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Gorm.UpdateProduct")
	defer span.End()

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Price != nil {
		updates["price"] = *patch.Price
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}

	var row productRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "product", strconv.FormatInt(id, 10))
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
	p := row.toDomain()
	return &p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Gorm.DeleteProduct")
	defer span.End()

	res := s.db.WithContext(ctx).Delete(&productRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "product", ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

func (s *Store) ListConvenios(ctx context.Context) ([]domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListConvenios")
	defer span.End()

	var rows []convenioRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Convenio, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) GetConvenio(ctx context.Context, id int64) (*domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetConvenio")
	defer span.End()

	var row convenioRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "convenio", strconv.FormatInt(id, 10))
	}
	c := row.toDomain()
	return &c, nil
}

func (s *Store) CreateConvenio(ctx context.Context, in *domain.ConvenioInput) (*domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CreateConvenio")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := convenioRow{Name: in.Name, Description: in.Description}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	c := row.toDomain()
	return &c, nil
}

func (s *Store) UpdateConvenio(ctx context.Context, id int64, patch *domain.ConvenioPatch) (*domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Gorm.UpdateConvenio")
	defer span.End()

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}

	var row convenioRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "convenio", strconv.FormatInt(id, 10))
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
	c := row.toDomain()
	return &c, nil
}

func (s *Store) DeleteConvenio(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Gorm.DeleteConvenio")
	defer span.End()

	res := s.db.WithContext(ctx).Delete(&convenioRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "convenio", ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

func (s *Store) ListBanks(ctx context.Context) ([]domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListBanks")
	defer span.End()

	var rows []bankRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Bank, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

func (s *Store) GetBank(ctx context.Context, id int64) (*domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetBank")
	defer span.End()

	var row bankRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "bank", strconv.FormatInt(id, 10))
	}
	b := row.toDomain()
	return &b, nil
}

func (s *Store) CreateBank(ctx context.Context, in *domain.BankInput) (*domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CreateBank")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := bankRow{Name: in.Name, Code: in.Code}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	b := row.toDomain()
	return &b, nil
}

func (s *Store) UpdateBank(ctx context.Context, id int64, patch *domain.BankPatch) (*domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Gorm.UpdateBank")
	defer span.End()

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Code != nil {
		updates["code"] = *patch.Code
	}

	var row bankRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "bank", strconv.FormatInt(id, 10))
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
	b := row.toDomain()
	return &b, nil
}

func (s *Store) DeleteBank(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Gorm.DeleteBank")
	defer span.End()

	res := s.db.WithContext(ctx).Delete(&bankRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "bank", ID: strconv.FormatInt(id, 10)}
	}
	return nil
}
