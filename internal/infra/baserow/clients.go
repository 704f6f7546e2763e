package baserow

import (
	"context"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"

	"go.uber.org/zap"
)

// scopedFilters renders a Scope as Baserow filter parameters; the bool
// is false when the scope matches nothing.
func scopedFilters(t TableMapping, scope domain.Scope) (map[string]string, bool) {
	switch scope.Kind {
	case domain.ScopeUnrestricted:
		return nil, true
	case domain.ScopeOrganization:
		return map[string]string{t.ref("organizationId"): strconv.FormatInt(scope.OrganizationID, 10)}, true
	case domain.ScopeCreator:
		return map[string]string{t.ref("createdById"): scope.CreatorID}, true
	default:
		return nil, false
	}
}

func (c *Client) ListClients(ctx context.Context, scope domain.Scope) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListClients")
	defer span.End()

	t := c.mapping.table(domain.EntityClient)
	filters, ok := scopedFilters(t, scope)
	if !ok {
		return []domain.Client{}, nil
	}

	var out []domain.Client
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, filters)
		if err != nil {
			return err
		}
		out = make([]domain.Client, 0, len(rows))
		for _, r := range rows {
			out = append(out, *decodeClient(t, r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetClient")
	defer span.End()

	t := c.mapping.table(domain.EntityClient)
	var out *domain.Client
	err := c.call(ctx, func() error {
		r, err := c.getRow(ctx, t.TableID, id, "client", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		out = decodeClient(t, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateClient(ctx context.Context, in *domain.ClientInput) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CreateClient")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := c.mapping.table(domain.EntityClient)
	payload := map[string]any{
		t.ref("name"):           in.Name,
		t.ref("cpf"):            in.CPF,
		t.ref("phone"):          in.Phone,
		t.ref("email"):          in.Email,
		t.ref("birthDate"):      in.BirthDate,
		t.ref("company"):        in.Company,
		t.ref("contact"):        in.Contact,
		t.ref("convenioId"):     in.ConvenioID,
		t.ref("createdById"):    in.CreatedByID,
		t.ref("organizationId"): in.OrganizationID,
		t.ref("createdAt"):      nowStamp(),
	}

	var out *domain.Client
	err := c.mutate(ctx, func() error {
		r, err := c.createRow(ctx, t.TableID, payload, "client")
		if err != nil {
			return err
		}
		out = decodeClient(t, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("client created",
		zap.Int64("id", out.ID),
		zap.Int64("organization_id", out.OrganizationID),
	)
	return out, nil
}

func (c *Client) UpdateClient(ctx context.Context, id int64, patch *domain.ClientPatch) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Baserow.UpdateClient")
	defer span.End()

	t := c.mapping.table(domain.EntityClient)
	updates := map[string]any{}
	if patch.Name != nil {
		updates[t.ref("name")] = *patch.Name
	}
	if patch.CPF != nil {
		updates[t.ref("cpf")] = *patch.CPF
	}
	if patch.Phone != nil {
		updates[t.ref("phone")] = *patch.Phone
	}
	if patch.Email != nil {
		updates[t.ref("email")] = *patch.Email
	}
	if patch.BirthDate != nil {
		updates[t.ref("birthDate")] = *patch.BirthDate
	}
	if patch.Company != nil {
		updates[t.ref("company")] = *patch.Company
	}
	if patch.Contact != nil {
		updates[t.ref("contact")] = *patch.Contact
	}
	if patch.ConvenioID != nil {
		updates[t.ref("convenioId")] = *patch.ConvenioID
	}
	if patch.OrganizationID != nil {
		updates[t.ref("organizationId")] = *patch.OrganizationID
	}
	if len(updates) == 0 {
		return c.GetClient(ctx, id)
	}

	var out *domain.Client
	err := c.mutate(ctx, func() error {
		r, err := c.patchRow(ctx, t.TableID, id, updates, "client", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		out = decodeClient(t, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteClient removes the client's proposals first, then the client.
func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Baserow.DeleteClient")
	defer span.End()

	clients := c.mapping.table(domain.EntityClient)
	proposals := c.mapping.table(domain.EntityProposal)
	return c.mutate(ctx, func() error {
		if _, err := c.getRow(ctx, clients.TableID, id, "client", strconv.FormatInt(id, 10)); err != nil {
			return err
		}
		attached, err := c.listRows(ctx, proposals.TableID, map[string]string{
			proposals.ref("clientId"): strconv.FormatInt(id, 10),
		})
		if err != nil {
			return err
		}
		for _, p := range attached {
			if err := c.deleteRow(ctx, proposals.TableID, p.id(), "proposal", strconv.FormatInt(p.id(), 10)); err != nil {
				return err
			}
		}
		return c.deleteRow(ctx, clients.TableID, id, "client", strconv.FormatInt(id, 10))
	})
}
