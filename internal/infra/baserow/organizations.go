package baserow

import (
	"context"
	"errors"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func (c *Client) ListOrganizations(ctx context.Context, scope domain.Scope) ([]domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListOrganizations")
	defer span.End()

	t := c.mapping.table(domain.EntityOrganization)

	// An org-scoped actor sees exactly their own organization; the row
	// id is the entity id, so that is a point lookup.
	if scope.Kind == domain.ScopeOrganization {
		org, err := c.GetOrganization(ctx, scope.OrganizationID)
		if err != nil {
			var nf *domain.ErrNotFound
			if errors.As(err, &nf) {
				return []domain.Organization{}, nil
			}
			return nil, err
		}
		return []domain.Organization{*org}, nil
	}
	if scope.Kind != domain.ScopeUnrestricted {
		return []domain.Organization{}, nil
	}

	var out []domain.Organization
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, nil)
		if err != nil {
			return err
		}
		out = make([]domain.Organization, 0, len(rows))
		for _, r := range rows {
			out = append(out, *decodeOrganization(t, r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetOrganization(ctx context.Context, id int64) (*domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetOrganization")
	defer span.End()

	t := c.mapping.table(domain.EntityOrganization)
	var out *domain.Organization
	err := c.call(ctx, func() error {
		r, err := c.getRow(ctx, t.TableID, id, "organization", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		out = decodeOrganization(t, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateOrganization(ctx context.Context, in *domain.OrganizationInput) (*domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CreateOrganization")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := c.mapping.table(domain.EntityOrganization)
	payload := map[string]any{
		t.ref("name"):      in.Name,
		t.ref("email"):     in.Email,
		t.ref("phone"):     in.Phone,
		t.ref("address"):   in.Address,
		t.ref("createdAt"): nowStamp(),
	}

	var out *domain.Organization
	err := c.mutate(ctx, func() error {
		r, err := c.createRow(ctx, t.TableID, payload, "organization")
		if err != nil {
			return err
		}
		out = decodeOrganization(t, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("organization created", zap.Int64("id", out.ID))
	return out, nil
}

func (c *Client) UpdateOrganization(ctx context.Context, id int64, patch *domain.OrganizationPatch) (*domain.Organization, error) {
	ctx, span := tracer.Start(ctx, "Baserow.UpdateOrganization")
	defer span.End()

	t := c.mapping.table(domain.EntityOrganization)
	updates := map[string]any{}
	if patch.Name != nil {
		updates[t.ref("name")] = *patch.Name
	}
	if patch.Email != nil {
		updates[t.ref("email")] = *patch.Email
	}
	if patch.Phone != nil {
		updates[t.ref("phone")] = *patch.Phone
	}
	if patch.Address != nil {
		updates[t.ref("address")] = *patch.Address
	}
	if len(updates) == 0 {
		return c.GetOrganization(ctx, id)
	}

	var out *domain.Organization
	err := c.mutate(ctx, func() error {
		r, err := c.patchRow(ctx, t.TableID, id, updates, "organization", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		out = decodeOrganization(t, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteOrganization refuses while any user still references the
// organization. Baserow cannot enforce this constraint; the check and
// the delete are separate requests.
func (c *Client) DeleteOrganization(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Baserow.DeleteOrganization")
	defer span.End()

	orgs := c.mapping.table(domain.EntityOrganization)
	users := c.mapping.table(domain.EntityUser)
	return c.mutate(ctx, func() error {
		rows, err := c.listRows(ctx, users.TableID, map[string]string{
			users.ref("organizationId"): strconv.FormatInt(id, 10),
		})
		if err != nil {
			return err
		}
		if len(rows) > 0 {
			return resilience.Permanent(&domain.ErrConflict{Message: "organization has users and cannot be deleted"})
		}
		return c.deleteRow(ctx, orgs.TableID, id, "organization", strconv.FormatInt(id, 10))
	})
}
