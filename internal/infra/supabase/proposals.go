package supabase

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (c *Client) ListProposals(ctx context.Context, scope domain.Scope) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProposals")
	defer span.End()

	return c.listProposals(ctx, scope, "")
}

func (c *Client) ListProposalsByStatus(ctx context.Context, scope domain.Scope, status domain.ProposalStatus) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProposalsByStatus")
	defer span.End()

	return c.listProposals(ctx, scope, "&status=eq."+string(status))
}

// ListProposalsByValueRange filters on the parsed numeric value. The
// value column holds currency-formatted text, so the range check runs
// in memory after the scoped fetch; rows whose value does not parse are
// skipped.
func (c *Client) ListProposalsByValueRange(ctx context.Context, scope domain.Scope, min, max float64) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProposalsByValueRange")
	defer span.End()

	all, err := c.listProposals(ctx, scope, "")
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

func (c *Client) listProposals(ctx context.Context, scope domain.Scope, extra string) ([]domain.Proposal, error) {
	filter, ok := scopeFilter(scope, "organization_id", "created_by_id")
	if !ok {
		return []domain.Proposal{}, nil
	}

	var out []domain.Proposal
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, "proposals?select=*&order=id.asc"+filter+extra)
		if err != nil {
			return err
		}
		rows, err := decodeMany[proposalRow](body, "proposals")
		if err != nil {
			return err
		}
		out = make([]domain.Proposal, 0, len(rows))
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

// ListProposalsWithDetails fetches the related names with one batched
// id=in.(...) request per table, deduplicated, instead of a request per
// proposal. The four lookups run concurrently behind the bulkhead.
func (c *Client) ListProposalsWithDetails(ctx context.Context, scope domain.Scope) ([]domain.ProposalDetails, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListProposalsWithDetails")
	defer span.End()

	proposals, err := c.listProposals(ctx, scope, "")
	if err != nil {
		return nil, err
	}
	if len(proposals) == 0 {
		return []domain.ProposalDetails{}, nil
	}

	clientIDs := map[int64]struct{}{}
	productIDs := map[int64]struct{}{}
	convenioIDs := map[int64]struct{}{}
	bankIDs := map[int64]struct{}{}
	for _, p := range proposals {
		clientIDs[p.ClientID] = struct{}{}
		productIDs[p.ProductID] = struct{}{}
		if p.ConvenioID != 0 {
			convenioIDs[p.ConvenioID] = struct{}{}
		}
		if p.BankID != 0 {
			bankIDs[p.BankID] = struct{}{}
		}
	}

	var clientNames, productNames, convenioNames, bankNames map[int64]string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		clientNames, err = c.namesByID(gctx, "clients", clientIDs)
		return err
	})
	g.Go(func() error {
		var err error
		productNames, err = c.namesByID(gctx, "products", productIDs)
		return err
	})
	g.Go(func() error {
		var err error
		convenioNames, err = c.namesByID(gctx, "convenios", convenioIDs)
		return err
	})
	g.Go(func() error {
		var err error
		bankNames, err = c.namesByID(gctx, "banks", bankIDs)
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

func (c *Client) namesByID(ctx context.Context, table string, ids map[int64]struct{}) (map[int64]string, error) {
	out := map[int64]string{}
	if len(ids) == 0 {
		return out, nil
	}
	parts := make([]string, 0, len(ids))
	for id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	path := fmt.Sprintf("%s?select=id,name&id=in.(%s)", table, strings.Join(parts, ","))

	if err := c.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.bulkhead.Release()

	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		rows, err := decodeMany[struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		}](body, table)
		if err != nil {
			return err
		}
		for _, r := range rows {
			out[r.ID] = r.Name
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProposal(ctx context.Context, id int64) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetProposal")
	defer span.End()

	var out *domain.Proposal
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, fmt.Sprintf("proposals?id=eq.%d&limit=1", id))
		if err != nil {
			return err
		}
		row, err := decodeOne[proposalRow](body, "proposal", strconv.FormatInt(id, 10))
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

func (c *Client) CreateProposal(ctx context.Context, in *domain.ProposalInput) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateProposal")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	payload := map[string]any{
		"client_id":       in.ClientID,
		"product_id":      in.ProductID,
		"convenio_id":     in.ConvenioID,
		"bank_id":         in.BankID,
		"value":           in.Value,
		"status":          string(in.Status),
		"created_by_id":   in.CreatedByID,
		"organization_id": in.OrganizationID,
	}

	var out *domain.Proposal
	err := c.mutate(ctx, func() error {
		body, err := c.doPost(ctx, "proposals", payload)
		if err != nil {
			return err
		}
		row, err := decodeOne[proposalRow](body, "proposal", "")
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
	c.logger.Info("proposal created",
		zap.Int64("id", out.ID),
		zap.Int64("client_id", out.ClientID),
	)
	return out, nil
}

func (c *Client) UpdateProposal(ctx context.Context, id int64, patch *domain.ProposalPatch) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateProposal")
	defer span.End()

	updates := map[string]any{}
	if patch.ClientID != nil {
		updates["client_id"] = *patch.ClientID
	}
	if patch.ProductID != nil {
		updates["product_id"] = *patch.ProductID
	}
	if patch.ConvenioID != nil {
		updates["convenio_id"] = *patch.ConvenioID
	}
	if patch.BankID != nil {
		updates["bank_id"] = *patch.BankID
	}
	if patch.Value != nil {
		updates["value"] = *patch.Value
	}
	if patch.Status != nil {
		updates["status"] = string(*patch.Status)
	}
	if len(updates) == 0 {
		return c.GetProposal(ctx, id)
	}

	var out *domain.Proposal
	err := c.mutate(ctx, func() error {
		body, err := c.doPatch(ctx, fmt.Sprintf("proposals?id=eq.%d", id), updates)
		if err != nil {
			return err
		}
		row, err := decodeOne[proposalRow](body, "proposal", strconv.FormatInt(id, 10))
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

func (c *Client) DeleteProposal(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteProposal")
	defer span.End()

	return c.mutate(ctx, func() error {
		body, err := c.doDelete(ctx, fmt.Sprintf("proposals?id=eq.%d", id))
		if err != nil {
			return err
		}
		if empty(body) {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "proposal", ID: strconv.FormatInt(id, 10)})
		}
		return nil
	})
}
