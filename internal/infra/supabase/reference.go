package supabase

import (
	"context"
	"fmt"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"
)

// Reference data (products, convenios, banks) is global and unscoped.

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProducts")
	defer span.End()

	var out []domain.Product
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, "products?select=*&order=id.asc")
		if err != nil {
			return err
		}
		rows, err := decodeMany[productRow](body, "products")
		if err != nil {
			return err
		}
		out = make([]domain.Product, 0, len(rows))
		for i := range rows {
			out = append(out, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProduct")
	defer span.End()

	var out *domain.Product
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, fmt.Sprintf("products?id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		row, err := decodeOne[productRow](body, "product", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		p := row.toDomain()
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in *domain.ProductInput) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProduct")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"name":        in.Name,
		"price":       in.Price,
		"description": in.Description,
	}

	var out *domain.Product
	err := c.mutate(ctx, func() error {
		body, err := c.doPost(ctx, "products", payload)
		if err != nil {
			return err
		}
		row, err := decodeOne[productRow](body, "product", "")
		if err != nil {
			return err
		}
		p := row.toDomain()
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, patch *domain.ProductPatch) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProduct")
	defer span.End()

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Price != nil {
		updates["price"] = *patch.Price
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if len(updates) == 0 {
		return c.GetProduct(ctx, id)
	}

	var out *domain.Product
	err := c.mutate(ctx, func() error {
		body, err := c.doPatch(ctx, fmt.Sprintf("products?id=eq.%d", id), updates)
		if err != nil {
			return err
		}
		row, err := decodeOne[productRow](body, "product", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		p := row.toDomain()
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProduct")
	defer span.End()

	return c.deleteByID(ctx, "products", "product", id)
}

func (c *Client) ListConvenios(ctx context.Context) ([]domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListConvenios")
	defer span.End()

	var out []domain.Convenio
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, "convenios?select=*&order=id.asc")
		if err != nil {
			return err
		}
		rows, err := decodeMany[convenioRow](body, "convenios")
		if err != nil {
			return err
		}
		out = make([]domain.Convenio, 0, len(rows))
		for i := range rows {
			out = append(out, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetConvenio(ctx context.Context, id int64) (*domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetConvenio")
	defer span.End()

	var out *domain.Convenio
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, fmt.Sprintf("convenios?id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		row, err := decodeOne[convenioRow](body, "convenio", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		cv := row.toDomain()
		out = &cv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateConvenio(ctx context.Context, in *domain.ConvenioInput) (*domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateConvenio")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"name":        in.Name,
		"description": in.Description,
	}

	var out *domain.Convenio
	err := c.mutate(ctx, func() error {
		body, err := c.doPost(ctx, "convenios", payload)
		if err != nil {
			return err
		}
		row, err := decodeOne[convenioRow](body, "convenio", "")
		if err != nil {
			return err
		}
		cv := row.toDomain()
		out = &cv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateConvenio(ctx context.Context, id int64, patch *domain.ConvenioPatch) (*domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateConvenio")
	defer span.End()

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Description != nil {
		updates["description"] = *patch.Description
	}
	if len(updates) == 0 {
		return c.GetConvenio(ctx, id)
	}

	var out *domain.Convenio
	err := c.mutate(ctx, func() error {
		body, err := c.doPatch(ctx, fmt.Sprintf("convenios?id=eq.%d", id), updates)
		if err != nil {
			return err
		}
		row, err := decodeOne[convenioRow](body, "convenio", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		cv := row.toDomain()
		out = &cv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteConvenio(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteConvenio")
	defer span.End()

	return c.deleteByID(ctx, "convenios", "convenio", id)
}

func (c *Client) ListBanks(ctx context.Context) ([]domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListBanks")
	defer span.End()

	var out []domain.Bank
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, "banks?select=*&order=id.asc")
		if err != nil {
			return err
		}
		rows, err := decodeMany[bankRow](body, "banks")
		if err != nil {
			return err
		}
		out = make([]domain.Bank, 0, len(rows))
		for i := range rows {
			out = append(out, rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBank(ctx context.Context, id int64) (*domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetBank")
	defer span.End()

	var out *domain.Bank
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, fmt.Sprintf("banks?id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		row, err := decodeOne[bankRow](body, "bank", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		b := row.toDomain()
		out = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBank(ctx context.Context, in *domain.BankInput) (*domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateBank")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"name": in.Name,
		"code": in.Code,
	}

	var out *domain.Bank
	err := c.mutate(ctx, func() error {
		body, err := c.doPost(ctx, "banks", payload)
		if err != nil {
			return err
		}
		row, err := decodeOne[bankRow](body, "bank", "")
		if err != nil {
			return err
		}
		b := row.toDomain()
		out = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateBank(ctx context.Context, id int64, patch *domain.BankPatch) (*domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateBank")
	defer span.End()

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Code != nil {
		updates["code"] = *patch.Code
	}
	if len(updates) == 0 {
		return c.GetBank(ctx, id)
	}

	var out *domain.Bank
	err := c.mutate(ctx, func() error {
		body, err := c.doPatch(ctx, fmt.Sprintf("banks?id=eq.%d", id), updates)
		if err != nil {
			return err
		}
		row, err := decodeOne[bankRow](body, "bank", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		b := row.toDomain()
		out = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteBank(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteBank")
	defer span.End()

	return c.deleteByID(ctx, "banks", "bank", id)
}

// deleteByID removes one row, mapping a zero-row match to not-found.
func (c *Client) deleteByID(ctx context.Context, table, resource string, id int64) error {
	return c.mutate(ctx, func() error {
		body, err := c.doDelete(ctx, fmt.Sprintf("%s?id=eq.%d", table, id))
		if err != nil {
			return err
		}
		if empty(body) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: resource, ID: strconv.FormatInt(id, 10)})
		}
		return nil
	})
}
