package supabase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"
)

func (c *Client) ListOrganizations(ctx context.Context, scope domain.Scope) ([]domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListOrganizations")
	defer span.End()

	// Organizations have no organization_id column; an org-scoped actor
	// sees exactly their own record.
	path := "organizations?select=*&order=id.asc"
	switch scope.Kind {
	case domain.ScopeUnrestricted:
	case domain.ScopeOrganization:
		path += fmt.Sprintf("&id=eq.%d", scope.OrganizationID)
	default:
		return []domain.Organization{}, nil
	}

	var out []domain.Organization
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		rows, err := decodeMany[organizationRow](body, "organizations")
		if err != nil {
			return err
		}
		out = make([]domain.Organization, 0, len(rows))
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

func (c *Client) GetOrganization(ctx context.Context, id int64) (*domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetOrganization")
	defer span.End()

	var out *domain.Organization
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, fmt.Sprintf("organizations?id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		row, err := decodeOne[organizationRow](body, "organization", strconv.FormatInt(id, 10))
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

func (c *Client) CreateOrganization(ctx context.Context, in *domain.OrganizationInput) (*domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateOrganization")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"name":    in.Name,
		"email":   in.Email,
		"phone":   in.Phone,
		"address": in.Address,
	}

	var out *domain.Organization
	err := c.mutate(ctx, func() error {
		body, err := c.doPost(ctx, "organizations", payload)
		if err != nil {
			return err
		}
		row, err := decodeOne[organizationRow](body, "organization", "")
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

func (c *Client) UpdateOrganization(ctx context.Context, id int64, patch *domain.OrganizationPatch) (*domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateOrganization")
	defer span.End()

	updates := map[string]any{}
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
	if len(updates) == 0 {
		return c.GetOrganization(ctx, id)
	}

	var out *domain.Organization
	err := c.mutate(ctx, func() error {
		body, err := c.doPatch(ctx, fmt.Sprintf("organizations?id=eq.%d", id), updates)
		if err != nil {
			return err
		}
		row, err := decodeOne[organizationRow](body, "organization", strconv.FormatInt(id, 10))
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

// DeleteOrganization refuses while any user still references the
// organization. The check and the delete are separate requests, so a
// concurrent user creation can slip between them; PostgREST foreign
// keys are the authoritative guard where configured.
func (c *Client) DeleteOrganization(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteOrganization")
	defer span.End()

	return c.mutate(ctx, func() error {
		body, err := c.doGet(ctx, fmt.Sprintf("users?select=id&organization_id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		if !empty(body) {
			return resilience.Permanent(&domain.ErrConflict{Message: "organization has users and cannot be deleted"})
		}
		deleted, err := c.doDelete(ctx, fmt.Sprintf("organizations?id=eq.%d", id))
		if err != nil {
			return err
		}
		if empty(deleted) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "organization", ID: strconv.FormatInt(id, 10)})
		}
		return nil
	})
}
