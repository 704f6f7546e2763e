package baserow

import (
	"context"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"
)

// Reference data (products, convenios, banks) is global and unscoped.

func (c *Client) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListProducts")
	defer span.End()

	t := c.mapping.table(domain.EntityProduct)
	var out []domain.Product
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, nil)
		if err != nil {
			return err
		}
		out = make([]domain.Product, 0, len(rows))
		for _, r := range rows {
			out = append(out, decodeProduct(t, r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetProduct")
	defer span.End()

	t := c.mapping.table(domain.EntityProduct)
	var out *domain.Product
	err := c.call(ctx, func() error {
		r, err := c.getRow(ctx, t.TableID, id, "product", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		p := decodeProduct(t, r)
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProduct(ctx context.Context, in *domain.ProductInput) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CreateProduct")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := c.mapping.table(domain.EntityProduct)
	payload := map[string]any{
		t.ref("name"):        in.Name,
		t.ref("price"):       in.Price,
		t.ref("description"): in.Description,
	}

	var out *domain.Product
	err := c.mutate(ctx, func() error {
		r, err := c.createRow(ctx, t.TableID, payload, "product")
		if err != nil {
			return err
		}
		p := decodeProduct(t, r)
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateProduct(ctx context.Context, id int64, patch *domain.ProductPatch) (*domain.Product, error) {
	ctx, span := tracer.Start(ctx, "Baserow.UpdateProduct")
	defer span.End()

	t := c.mapping.table(domain.EntityProduct)
	updates := map[string]any{}
	if patch.Name != nil {
		updates[t.ref("name")] = *patch.Name
	}
	if patch.Price != nil {
		updates[t.ref("price")] = *patch.Price
	}
	if patch.Description != nil {
		updates[t.ref("description")] = *patch.Description
	}
	if len(updates) == 0 {
		return c.GetProduct(ctx, id)
	}

	var out *domain.Product
	err := c.mutate(ctx, func() error {
		r, err := c.patchRow(ctx, t.TableID, id, updates, "product", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		p := decodeProduct(t, r)
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteProduct(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Baserow.DeleteProduct")
	defer span.End()

	t := c.mapping.table(domain.EntityProduct)
	return c.mutate(ctx, func() error {
		return c.deleteRow(ctx, t.TableID, id, "product", strconv.FormatInt(id, 10))
	})
}

func (c *Client) ListConvenios(ctx context.Context) ([]domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListConvenios")
	defer span.End()

	t := c.mapping.table(domain.EntityConvenio)
	var out []domain.Convenio
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, nil)
		if err != nil {
			return err
		}
		out = make([]domain.Convenio, 0, len(rows))
		for _, r := range rows {
			out = append(out, decodeConvenio(t, r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetConvenio(ctx context.Context, id int64) (*domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetConvenio")
	defer span.End()

	t := c.mapping.table(domain.EntityConvenio)
	var out *domain.Convenio
	err := c.call(ctx, func() error {
		r, err := c.getRow(ctx, t.TableID, id, "convenio", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		cv := decodeConvenio(t, r)
		out = &cv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateConvenio(ctx context.Context, in *domain.ConvenioInput) (*domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CreateConvenio")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := c.mapping.table(domain.EntityConvenio)
	payload := map[string]any{
		t.ref("name"):        in.Name,
		t.ref("description"): in.Description,
	}

	var out *domain.Convenio
	err := c.mutate(ctx, func() error {
		r, err := c.createRow(ctx, t.TableID, payload, "convenio")
		if err != nil {
			return err
		}
		cv := decodeConvenio(t, r)
		out = &cv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateConvenio(ctx context.Context, id int64, patch *domain.ConvenioPatch) (*domain.Convenio, error) {
	ctx, span := tracer.Start(ctx, "Baserow.UpdateConvenio")
	defer span.End()

	t := c.mapping.table(domain.EntityConvenio)
	updates := map[string]any{}
	if patch.Name != nil {
		updates[t.ref("name")] = *patch.Name
	}
	if patch.Description != nil {
		updates[t.ref("description")] = *patch.Description
	}
	if len(updates) == 0 {
		return c.GetConvenio(ctx, id)
	}

	var out *domain.Convenio
	err := c.mutate(ctx, func() error {
		r, err := c.patchRow(ctx, t.TableID, id, updates, "convenio", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		cv := decodeConvenio(t, r)
		out = &cv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteConvenio(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Baserow.DeleteConvenio")
	defer span.End()

	t := c.mapping.table(domain.EntityConvenio)
	return c.mutate(ctx, func() error {
		return c.deleteRow(ctx, t.TableID, id, "convenio", strconv.FormatInt(id, 10))
	})
}

func (c *Client) ListBanks(ctx context.Context) ([]domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListBanks")
	defer span.End()

	t := c.mapping.table(domain.EntityBank)
	var out []domain.Bank
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, nil)
		if err != nil {
			return err
		}
		out = make([]domain.Bank, 0, len(rows))
		for _, r := range rows {
			out = append(out, decodeBank(t, r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetBank(ctx context.Context, id int64) (*domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetBank")
	defer span.End()

	t := c.mapping.table(domain.EntityBank)
	var out *domain.Bank
	err := c.call(ctx, func() error {
		r, err := c.getRow(ctx, t.TableID, id, "bank", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		b := decodeBank(t, r)
		out = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBank(ctx context.Context, in *domain.BankInput) (*domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CreateBank")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := c.mapping.table(domain.EntityBank)
	payload := map[string]any{
		t.ref("name"): in.Name,
		t.ref("code"): in.Code,
	}

	var out *domain.Bank
	err := c.mutate(ctx, func() error {
		r, err := c.createRow(ctx, t.TableID, payload, "bank")
		if err != nil {
			return err
		}
		b := decodeBank(t, r)
		out = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateBank(ctx context.Context, id int64, patch *domain.BankPatch) (*domain.Bank, error) {
	ctx, span := tracer.Start(ctx, "Baserow.UpdateBank")
	defer span.End()

	t := c.mapping.table(domain.EntityBank)
	updates := map[string]any{}
	if patch.Name != nil {
		updates[t.ref("name")] = *patch.Name
	}
	if patch.Code != nil {
		updates[t.ref("code")] = *patch.Code
	}
	if len(updates) == 0 {
		return c.GetBank(ctx, id)
	}

	var out *domain.Bank
	err := c.mutate(ctx, func() error {
		r, err := c.patchRow(ctx, t.TableID, id, updates, "bank", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		b := decodeBank(t, r)
		out = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteBank(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Baserow.DeleteBank")
	defer span.End()

	t := c.mapping.table(domain.EntityBank)
	return c.mutate(ctx, func() error {
		return c.deleteRow(ctx, t.TableID, id, "bank", strconv.FormatInt(id, 10))
	})
}
