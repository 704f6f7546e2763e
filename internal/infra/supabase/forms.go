package supabase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"

	"go.uber.org/zap"
)

func (c *Client) ListFormTemplates(ctx context.Context, scope domain.Scope) ([]domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFormTemplates")
	defer span.End()

	filter, ok := scopeFilter(scope, "organization_id", "created_by_id")
	if !ok {
		return []domain.FormTemplate{}, nil
	}

	var out []domain.FormTemplate
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, "form_templates?select=*&order=id.asc"+filter)
		if err != nil {
			return err
		}
		rows, err := decodeMany[formTemplateRow](body, "form_templates")
		if err != nil {
			return err
		}
		out = make([]domain.FormTemplate, 0, len(rows))
		for i := range rows {
			out = append(out, *rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFormTemplate(ctx context.Context, id int64) (*domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetFormTemplate")
	defer span.End()

	var out *domain.FormTemplate
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, fmt.Sprintf("form_templates?id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		row, err := decodeOne[formTemplateRow](body, "form_template", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateFormTemplate(ctx context.Context, in *domain.FormTemplateInput) (*domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateFormTemplate")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	fields := in.Fields
	if fields == nil {
		fields = []domain.FormField{}
	}
	payload := map[string]any{
		"name":            in.Name,
		"fields":          fields,
		"organization_id": in.OrganizationID,
		"created_by_id":   in.CreatedByID,
		"active":          in.Active,
	}

	var out *domain.FormTemplate
	err := c.mutate(ctx, func() error {
		body, err := c.doPost(ctx, "form_templates", payload)
		if err != nil {
			return err
		}
		row, err := decodeOne[formTemplateRow](body, "form_template", "")
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("form template created", zap.Int64("id", out.ID))
	return out, nil
}

func (c *Client) UpdateFormTemplate(ctx context.Context, id int64, patch *domain.FormTemplatePatch) (*domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateFormTemplate")
	defer span.End()

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Fields != nil {
		updates["fields"] = *patch.Fields
	}
	if patch.Active != nil {
		updates["active"] = *patch.Active
	}
	if len(updates) == 0 {
		return c.GetFormTemplate(ctx, id)
	}

	var out *domain.FormTemplate
	err := c.mutate(ctx, func() error {
		body, err := c.doPatch(ctx, fmt.Sprintf("form_templates?id=eq.%d", id), updates)
		if err != nil {
			return err
		}
		row, err := decodeOne[formTemplateRow](body, "form_template", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteFormTemplate(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteFormTemplate")
	defer span.End()

	return c.deleteByID(ctx, "form_templates", "form_template", id)
}

func (c *Client) ListFormSubmissions(ctx context.Context, scope domain.Scope) ([]domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListFormSubmissions")
	defer span.End()

	// Submissions have no creator; a creator scope matches nothing.
	filter := ""
	switch scope.Kind {
	case domain.ScopeUnrestricted:
	case domain.ScopeOrganization:
		filter = fmt.Sprintf("&organization_id=eq.%d", scope.OrganizationID)
	default:
		return []domain.FormSubmission{}, nil
	}

	var out []domain.FormSubmission
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, "form_submissions?select=*&order=id.asc"+filter)
		if err != nil {
			return err
		}
		rows, err := decodeMany[formSubmissionRow](body, "form_submissions")
		if err != nil {
			return err
		}
		out = make([]domain.FormSubmission, 0, len(rows))
		for i := range rows {
			out = append(out, *rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFormSubmission(ctx context.Context, id int64) (*domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetFormSubmission")
	defer span.End()

	var out *domain.FormSubmission
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, fmt.Sprintf("form_submissions?id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		row, err := decodeOne[formSubmissionRow](body, "form_submission", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFormSubmission always starts the record in the pending state.
func (c *Client) CreateFormSubmission(ctx context.Context, in *domain.FormSubmissionInput) (*domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateFormSubmission")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"form_template_id": in.FormTemplateID,
		"data":             in.Data,
		"status":           string(domain.SubmissionPending),
		"organization_id":  in.OrganizationID,
	}

	var out *domain.FormSubmission
	err := c.mutate(ctx, func() error {
		body, err := c.doPost(ctx, "form_submissions", payload)
		if err != nil {
			return err
		}
		row, err := decodeOne[formSubmissionRow](body, "form_submission", "")
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("form submission created",
		zap.Int64("id", out.ID),
		zap.Int64("form_template_id", out.FormTemplateID),
	)
	return out, nil
}

func (c *Client) UpdateFormSubmission(ctx context.Context, id int64, patch *domain.FormSubmissionPatch) (*domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateFormSubmission")
	defer span.End()

	updates := map[string]any{}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if patch.ProcessedByID != nil {
		updates["processed_by_id"] = *patch.ProcessedByID
	}
	if patch.ProcessedAt != nil {
		updates["processed_at"] = *patch.ProcessedAt
	}
	if len(updates) == 0 {
		return c.GetFormSubmission(ctx, id)
	}

	var out *domain.FormSubmission
	err := c.mutate(ctx, func() error {
		body, err := c.doPatch(ctx, fmt.Sprintf("form_submissions?id=eq.%d", id), updates)
		if err != nil {
			return err
		}
		row, err := decodeOne[formSubmissionRow](body, "form_submission", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteFormSubmission(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteFormSubmission")
	defer span.End()

	return c.deleteByID(ctx, "form_submissions", "form_submission", id)
}
