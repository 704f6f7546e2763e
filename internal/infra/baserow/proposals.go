package baserow

import (
	"context"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (c *Client) ListProposals(ctx context.Context, scope domain.Scope) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListProposals")
	defer span.End()

	return c.listProposals(ctx, scope, nil)
}

func (c *Client) ListProposalsByStatus(ctx context.Context, scope domain.Scope, status domain.ProposalStatus) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListProposalsByStatus")
	defer span.End()

	t := c.mapping.table(domain.EntityProposal)
	return c.listProposals(ctx, scope, map[string]string{t.ref("status"): string(status)})
}

// ListProposalsByValueRange filters on the parsed numeric value in
// memory; the value field holds currency-formatted text.
func (c *Client) ListProposalsByValueRange(ctx context.Context, scope domain.Scope, min, max float64) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListProposalsByValueRange")
	defer span.End()

	all, err := c.listProposals(ctx, scope, nil)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Proposal, 0, len(all))
	for _, p := range all {
		v, ok := domain.ParseMoney(p.Value)
		if !ok {
			continue
		}
		if v >= min && v <= max {
			out = append(out, p)
		}
	}
	return out, nil
}

func (c *Client) listProposals(ctx context.Context, scope domain.Scope, extra map[string]string) ([]domain.Proposal, error) {
	t := c.mapping.table(domain.EntityProposal)
	filters, ok := scopedFilters(t, scope)
	if !ok {
		return []domain.Proposal{}, nil
	}
	if len(extra) > 0 {
		if filters == nil {
			filters = map[string]string{}
		}
		for k, v := range extra {
			filters[k] = v
		}
	}

	var out []domain.Proposal
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, filters)
		if err != nil {
			return err
		}
		out = make([]domain.Proposal, 0, len(rows))
		for _, r := range rows {
			out = append(out, decodeProposal(t, r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListProposalsWithDetails loads each related table once and joins in
// memory; Baserow has no multi-id filter, so per-proposal lookups would
// multiply requests.
func (c *Client) ListProposalsWithDetails(ctx context.Context, scope domain.Scope) ([]domain.ProposalDetails, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListProposalsWithDetails")
	defer span.End()

	proposals, err := c.listProposals(ctx, scope, nil)
	if err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		return []domain.ProposalDetails{}, nil
	}

	var clientNames, productNames, convenioNames, bankNames map[int64]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clientNames, err = c.tableNames(gctx, domain.EntityClient)
		return err
	})
	g.Go(func() error {
		var err error
		productNames, err = c.tableNames(gctx, domain.EntityProduct)
		return err
	})
	g.Go(func() error {
		var err error
		convenioNames, err = c.tableNames(gctx, domain.EntityConvenio)
		return err
	})
	g.Go(func() error {
		var err error
		bankNames, err = c.tableNames(gctx, domain.EntityBank)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]domain.ProposalDetails, 0, len(proposals))
	for _, p := range proposals {
		out = append(out, domain.ProposalDetails{
			Proposal:     p,
			ClientName:   clientNames[p.ClientID],
			ProductName:  productNames[p.ProductID],
			ConvenioName: convenioNames[p.ConvenioID],
			BankName:     bankNames[p.BankID],
		})
	}
	return out, nil
}

// tableNames fetches id->name for a whole table, one request per table.
func (c *Client) tableNames(ctx context.Context, kind domain.EntityKind) (map[int64]string, error) {
	t := c.mapping.table(kind)

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	out := map[int64]string{}
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, nil)
		if err != nil {
			return err
		}
		for _, r := range rows {
			out[r.id()] = r.str(t.ref("name"))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProposal(ctx context.Context, id int64) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetProposal")
	defer span.End()

	t := c.mapping.table(domain.EntityProposal)
	var out *domain.Proposal
	err := c.call(ctx, func() error {
		r, err := c.getRow(ctx, t.TableID, id, "proposal", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		p := decodeProposal(t, r)
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateProposal(ctx context.Context, in *domain.ProposalInput) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CreateProposal")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := c.mapping.table(domain.EntityProposal)
	payload := map[string]any{
		t.ref("clientId"):       in.ClientID,
		t.ref("productId"):      in.ProductID,
		t.ref("convenioId"):     in.ConvenioID,
		t.ref("bankId"):         in.BankID,
		t.ref("value"):          in.Value,
		t.ref("status"):         string(in.Status),
		t.ref("createdById"):    in.CreatedByID,
		t.ref("organizationId"): in.OrganizationID,
		t.ref("createdAt"):      nowStamp(),
	}

	var out *domain.Proposal
	err := c.mutate(ctx, func() error {
		r, err := c.createRow(ctx, t.TableID, payload, "proposal")
		if err != nil {
			return err
		}
		p := decodeProposal(t, r)
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("proposal created",
		zap.Int64("id", out.ID),
		zap.Int64("client_id", out.ClientID),
	)
	return out, nil
}

func (c *Client) UpdateProposal(ctx context.Context, id int64, patch *domain.ProposalPatch) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Baserow.UpdateProposal")
	defer span.End()

	t := c.mapping.table(domain.EntityProposal)
	updates := map[string]any{}
	if patch.ClientID != nil {
		updates[t.ref("clientId")] = *patch.ClientID
	}
	if patch.ProductID != nil {
		updates[t.ref("productId")] = *patch.ProductID
	}
	if patch.ConvenioID != nil {
		updates[t.ref("convenioId")] = *patch.ConvenioID
	}
	if patch.BankID != nil {
		updates[t.ref("bankId")] = *patch.BankID
	}
	if patch.Value != nil {
		updates[t.ref("value")] = *patch.Value
	}
	if patch.Status != nil {
		updates[t.ref("status")] = string(*patch.Status)
	}
	if len(updates) == 0 {
		return c.GetProposal(ctx, id)
	}

	var out *domain.Proposal
	err := c.mutate(ctx, func() error {
		r, err := c.patchRow(ctx, t.TableID, id, updates, "proposal", strconv.FormatInt(id, 10))
		if err != nil {
			return err
		}
		p := decodeProposal(t, r)
		out = &p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteProposal(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Baserow.DeleteProposal")
	defer span.End()

	t := c.mapping.table(domain.EntityProposal)
	return c.mutate(ctx, func() error {
		return c.deleteRow(ctx, t.TableID, id, "proposal", strconv.FormatInt(id, 10))
	})
}
