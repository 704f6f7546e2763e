package baserow

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func (c *Client) ListFormTemplates(ctx context.Context, scope domain.Scope) ([]domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListFormTemplates")
	defer span.End()

	t := c.mapping.table(domain.EntityFormTemplate)
	filters, ok := scopedFilters(t, scope)
	if !ok {
		return []domain.FormTemplate{}, nil
	}

	var out []domain.FormTemplate
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, filters)
		if err != nil {
			return err
		}
		out = make([]domain.FormTemplate, 0, len(rows))
		for _, r := range rows {
			tpl, err := decodeFormTemplate(t, r)
			if err != nil {
				return resilience.Permanent(fmt.Errorf("decode form template %d: %w", r.id(), err))
			}
			out = append(out, *tpl)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFormTemplate(ctx context.Context, id int64) (*domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetFormTemplate")
	defer span.End()

	t := c.mapping.table(domain.EntityFormTemplate)
	var out *domain.FormTemplate
	err := c.call(ctx, func() error {
		r, err := c.getRow(ctx, t.TableID, id, "form_template", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		tpl, err := decodeFormTemplate(t, r)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("decode form template %d: %w", id, err))
		}
		out = tpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateFormTemplate(ctx context.Context, in *domain.FormTemplateInput) (*domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CreateFormTemplate")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := c.mapping.table(domain.EntityFormTemplate)
	fields := in.Fields
	if fields == nil {
		fields = []domain.FormField{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		t.ref("name"):           in.Name,
		t.ref("fields"):         string(encoded),
		t.ref("organizationId"): in.OrganizationID,
		t.ref("createdById"):    in.CreatedByID,
		t.ref("active"):         in.Active,
		t.ref("createdAt"):      nowStamp(),
	}

	var out *domain.FormTemplate
	err = c.mutate(ctx, func() error {
		r, err := c.createRow(ctx, t.TableID, payload, "form_template")
		if err != nil {
			return err
		}
		tpl, err := decodeFormTemplate(t, r)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("decode created form template: %w", err))
		}
		out = tpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("form template created", zap.Int64("id", out.ID))
	return out, nil
}

func (c *Client) UpdateFormTemplate(ctx context.Context, id int64, patch *domain.FormTemplatePatch) (*domain.FormTemplate, error) {
	ctx, span := tracer.Start(ctx, "Baserow.UpdateFormTemplate")
	defer span.End()

	t := c.mapping.table(domain.EntityFormTemplate)
	updates := map[string]any{}
	if patch.Name != nil {
		updates[t.ref("name")] = *patch.Name
	}
	if patch.Fields != nil {
		encoded, err := json.Marshal(*patch.Fields)
		if err != nil {
			return nil, err
		}
		updates[t.ref("fields")] = string(encoded)
	}
	if patch.Active != nil {
		updates[t.ref("active")] = *patch.Active
	}
	if len(updates) == 0 {
		return c.GetFormTemplate(ctx, id)
	}

	var out *domain.FormTemplate
	err := c.mutate(ctx, func() error {
		r, err := c.patchRow(ctx, t.TableID, id, updates, "form_template", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		tpl, err := decodeFormTemplate(t, r)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("decode patched form template: %w", err))
		}
		out = tpl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteFormTemplate(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Baserow.DeleteFormTemplate")
	defer span.End()

	t := c.mapping.table(domain.EntityFormTemplate)
	return c.mutate(ctx, func() error {
		return c.deleteRow(ctx, t.TableID, id, "form_template", strconv.FormatInt(id, 10))
	})
}

func (c *Client) ListFormSubmissions(ctx context.Context, scope domain.Scope) ([]domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListFormSubmissions")
	defer span.End()

	t := c.mapping.table(domain.EntityFormSubmission)

	// Submissions have no creator; a creator scope matches nothing.
	filters := map[string]string{}
	switch scope.Kind {
	case domain.ScopeUnrestricted:
		filters = nil
	case domain.ScopeOrganization:
		filters[t.ref("organizationId")] = strconv.FormatInt(scope.OrganizationID, 10)
	default:
		return []domain.FormSubmission{}, nil
	}

	var out []domain.FormSubmission
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, filters)
		if err != nil {
			return err
		}
		out = make([]domain.FormSubmission, 0, len(rows))
		for _, r := range rows {
			sub, err := decodeFormSubmission(t, r)
			if err != nil {
				return resilience.Permanent(fmt.Errorf("decode form submission %d: %w", r.id(), err))
			}
			out = append(out, *sub)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetFormSubmission(ctx context.Context, id int64) (*domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetFormSubmission")
	defer span.End()

	t := c.mapping.table(domain.EntityFormSubmission)
	var out *domain.FormSubmission
	err := c.call(ctx, func() error {
		r, err := c.getRow(ctx, t.TableID, id, "form_submission", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		sub, err := decodeFormSubmission(t, r)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("decode form submission %d: %w", id, err))
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateFormSubmission always starts the record in the pending state.
func (c *Client) CreateFormSubmission(ctx context.Context, in *domain.FormSubmissionInput) (*domain.FormSubmission, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CreateFormSubmission")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := c.mapping.table(domain.EntityFormSubmission)
	encoded, err := json.Marshal(in.Data)
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		t.ref("formTemplateId"): in.FormTemplateID,
		t.ref("data"):           string(encoded),
		t.ref("status"):         string(domain.SubmissionPending),
		t.ref("organizationId"): in.OrganizationID,
		t.ref("createdAt"):      nowStamp(),
	}

	var out *domain.FormSubmission
	err = c.mutate(ctx, func() error {
		r, err := c.createRow(ctx, t.TableID, payload, "form_submission")
		if err != nil {
			return err
		}
		sub, err := decodeFormSubmission(t, r)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("decode created form submission: %w", err))
		}
		out = sub
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
	ctx, span := tracer.Start(ctx, "Baserow.UpdateFormSubmission")
	defer span.End()

	t := c.mapping.table(domain.EntityFormSubmission)
	updates := map[string]any{}
	if patch.Status != nil {
		updates[t.ref("status")] = string(*patch.Status)
	}
	if patch.ProcessedByID != nil {
		updates[t.ref("processedById")] = *patch.ProcessedByID
	}
	if patch.ProcessedAt != nil {
		updates[t.ref("processedAt")] = patch.ProcessedAt.UTC().Format(timeLayout)
	}
	if len(updates) == 0 {
		return c.GetFormSubmission(ctx, id)
	}

	var out *domain.FormSubmission
	err := c.mutate(ctx, func() error {
		r, err := c.patchRow(ctx, t.TableID, id, updates, "form_submission", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		sub, err := decodeFormSubmission(t, r)
		if err != nil {
			return resilience.Permanent(fmt.Errorf("decode patched form submission: %w", err))
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteFormSubmission(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Baserow.DeleteFormSubmission")
	defer span.End()

	t := c.mapping.table(domain.EntityFormSubmission)
	return c.mutate(ctx, func() error {
		return c.deleteRow(ctx, t.TableID, id, "form_submission", strconv.FormatInt(id, 10))
	})
}
