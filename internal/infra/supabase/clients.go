package supabase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"

	"go.uber.org/zap"
)

func (c *Client) ListClients(ctx context.Context, scope domain.Scope) ([]domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListClients")
	defer span.End()

	filter, ok := scopeFilter(scope, "organization_id", "created_by_id")
	if !ok {
		return []domain.Client{}, nil
	}

	var out []domain.Client
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, "clients?select=*&order=id.asc"+filter)
		if err != nil {
			return err
		}
		rows, err := decodeMany[clientRow](body, "clients")
		if err != nil {
			return err
		}
		out = make([]domain.Client, 0, len(rows))
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

func (c *Client) GetClient(ctx context.Context, id int64) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetClient")
	defer span.End()

	var out *domain.Client
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, fmt.Sprintf("clients?id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		row, err := decodeOne[clientRow](body, "client", strconv.FormatInt(id, 10))
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

func (c *Client) CreateClient(ctx context.Context, in *domain.ClientInput) (*domain.Client, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateClient")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"name":            in.Name,
		"cpf":             in.CPF,
		"phone":           in.Phone,
		"email":           in.Email,
		"birth_date":      in.BirthDate,
		"company":         in.Company,
		"contact":         in.Contact,
		"convenio_id":     in.ConvenioID,
		"created_by_id":   in.CreatedByID,
		"organization_id": in.OrganizationID,
	}

	var out *domain.Client
	err := c.mutate(ctx, func() error {
		body, err := c.doPost(ctx, "clients", payload)
		if err != nil {
			return err
		}
		row, err := decodeOne[clientRow](body, "client", "")
		if err != nil {
			return err
		}
		out = row.toDomain()
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
	ctx, span := tracer.Start(ctx, "Supabase.UpdateClient")
	defer span.End()

	updates := map[string]any{}
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
	if len(updates) == 0 {
		return c.GetClient(ctx, id)
	}

	var out *domain.Client
	err := c.mutate(ctx, func() error {
		body, err := c.doPatch(ctx, fmt.Sprintf("clients?id=eq.%d", id), updates)
		if err != nil {
			return err
		}
		row, err := decodeOne[clientRow](body, "client", strconv.FormatInt(id, 10))
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

// DeleteClient removes the client's proposals first, then the client.
// The two deletes are separate requests; a failure in between leaves
// the client without proposals, which a retry of the delete cleans up.
func (c *Client) DeleteClient(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteClient")
	defer span.End()

	return c.mutate(ctx, func() error {
		existing, err := c.doGet(ctx, fmt.Sprintf("clients?select=id&id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		if empty(existing) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "client", ID: strconv.FormatInt(id, 10)})
		}
		if _, err := c.doDelete(ctx, fmt.Sprintf("proposals?client_id=eq.%d", id)); err != nil {
			return err
		}
		_, err = c.doDelete(ctx, fmt.Sprintf("clients?id=eq.%d", id))
		return err
	})
}
