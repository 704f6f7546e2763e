package gormstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Store) ListFormTemplates(ctx context.Context, scope domain.Scope) ([]domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListFormTemplates")
	defer span.End()

	var rows []formTemplateRow
	q := scoped(s.db.WithContext(ctx).Model(&formTemplateRow{}), scope)
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.FormTemplate, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode form template %d: %w", rows[i].ID, err)
		}
		out = append(out, *t)
	}
	return out, nil
}

func (s *Store) GetFormTemplate(ctx context.Context, id int64) (*domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetFormTemplate")
	defer span.End()

	var row formTemplateRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "form_template", strconv.FormatInt(id, 10))
	}
	t, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("decode form template %d: %w", id, err)
	}
	return t, nil
}

func (s *Store) CreateFormTemplate(ctx context.Context, in *domain.FormTemplateInput) (*domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CreateFormTemplate")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	fields, err := json.Marshal(in.Fields)
	if err != nil {
		return nil, err
	}
	row := formTemplateRow{
		Name:           in.Name,
		Fields:         string(fields),
		OrganizationID: in.OrganizationID,
		CreatedByID:    in.CreatedByID,
		Active:         in.Active,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	s.logger.Info("form template created", zap.Int64("id", row.ID))
	return row.toDomain()
}

func (s *Store) UpdateFormTemplate(ctx context.Context, id int64, patch *domain.FormTemplatePatch) (*domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Gorm.UpdateFormTemplate")
	defer span.End()

	updates := map[string]interface{}{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Fields != nil {
		fields, err := json.Marshal(*patch.Fields)
		if err != nil {
			return nil, err
		}
		updates["fields"] = string(fields)
	}
	if patch.Active != nil {
		updates["active"] = *patch.Active
	}

	var row formTemplateRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "form_template", strconv.FormatInt(id, 10))
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
	return row.toDomain()
}

func (s *Store) DeleteFormTemplate(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Gorm.DeleteFormTemplate")
	defer span.End()

	res := s.db.WithContext(ctx).Delete(&formTemplateRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "form_template", ID: strconv.FormatInt(id, 10)}
	}
	return nil
}

func (s *Store) ListFormSubmissions(ctx context.Context, scope domain.Scope) ([]domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListFormSubmissions")
	defer span.End()

	var rows []formSubmissionRow
	q := scoped(s.db.WithContext(ctx).Model(&formSubmissionRow{}), scope)
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.FormSubmission, 0, len(rows))
	for i := range rows {
		sub, err := rows[i].toDomain()
		if err != nil {
			return nil, fmt.Errorf("decode form submission %d: %w", rows[i].ID, err)
		}
		out = append(out, *sub)
	}
	return out, nil
}

func (s *Store) GetFormSubmission(ctx context.Context, id int64) (*domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetFormSubmission")
	defer span.End()

	var row formSubmissionRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "form_submission", strconv.FormatInt(id, 10))
	}
	sub, err := row.toDomain()
	if err != nil {
		return nil, fmt.Errorf("decode form submission %d: %w", id, err)
	}
	return sub, nil
}

// CreateFormSubmission always starts the record in the pending state.
func (s *Store) CreateFormSubmission(ctx context.Context, in *domain.FormSubmissionInput) (*domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CreateFormSubmission")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(in.Data)
	if err != nil {
		return nil, err
	}
	row := formSubmissionRow{
		FormTemplateID: in.FormTemplateID,
		Data:           string(data),
		Status:         string(domain.SubmissionPending),
		OrganizationID: in.OrganizationID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	s.logger.Info("form submission created",
		zap.Int64("id", row.ID),
		zap.Int64("form_template_id", row.FormTemplateID),
	)
	return row.toDomain()
}

func (s *Store) UpdateFormSubmission(ctx context.Context, id int64, patch *domain.FormSubmissionPatch) (*domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Gorm.UpdateFormSubmission")
	defer span.End()

	updates := map[string]interface{}{}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.ProcessedByID != nil {
		updates["processed_by_id"] = *patch.ProcessedByID
	}
	if patch.ProcessedAt != nil {
		updates["processed_at"] = *patch.ProcessedAt
	}

	var row formSubmissionRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "form_submission", strconv.FormatInt(id, 10))
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
	return row.toDomain()
}

func (s *Store) DeleteFormSubmission(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Gorm.DeleteFormSubmission")
	defer span.End()

	res := s.db.WithContext(ctx).Delete(&formSubmissionRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "form_submission", ID: strconv.FormatInt(id, 10)}
	}
	return nil
}
