package gormstore

import (
	"context"
	"strconv"

	"github.com/consigline/crm-api-go/internal/domain"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Store) ListProposals(ctx context.Context, scope domain.Scope) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListProposals")
	defer span.End()

	return s.listProposals(ctx, scope, nil)
}

func (s *Store) ListProposalsByStatus(ctx context.Context, scope domain.Scope, status domain.ProposalStatus) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListProposalsByStatus")
	defer span.End()

	return s.listProposals(ctx, scope, func(q *gorm.DB) *gorm.DB {
		return q.Where("status = ?", string(status))
	})
}

// ListProposalsByValueRange filters on the parsed numeric value. The
// value column holds currency-formatted text, so the range check runs
// in memory after the scoped fetch; rows whose value does not parse are
// skipped.
func (s *Store) ListProposalsByValueRange(ctx context.Context, scope domain.Scope, min, max float64) ([]domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListProposalsByValueRange")
	defer span.End()

	all, err := s.listProposals(ctx, scope, nil)
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

func (s *Store) listProposals(ctx context.Context, scope domain.Scope, refine func(*gorm.DB) *gorm.DB) ([]domain.Proposal, error) {
	q := scoped(s.db.WithContext(ctx).Model(&proposalRow{}), scope)
	if refine != nil {
		q = refine(q)
	}
	var rows []proposalRow
	if err := q.Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Proposal, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].toDomain())
	}
	return out, nil
}

// ListProposalsWithDetails resolves the related names with one batched
// lookup per related table instead of a query per proposal.
func (s *Store) ListProposalsWithDetails(ctx context.Context, scope domain.Scope) ([]domain.ProposalDetails, error) {
	ctx, span := tracer.Start(ctx, "Gorm.ListProposalsWithDetails")
	defer span.End()

	proposals, err := s.listProposals(ctx, scope, nil)
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

	clientNames, err := s.namesByID(ctx, &clientRow{}, keys(clientIDs))
	if err != nil {
		return nil, err
	}
	productNames, err := s.namesByID(ctx, &productRow{}, keys(productIDs))
	if err != nil {
		return nil, err
	}
	convenioNames, err := s.namesByID(ctx, &convenioRow{}, keys(convenioIDs))
	if err != nil {
		return nil, err
	}
	bankNames, err := s.namesByID(ctx, &bankRow{}, keys(bankIDs))
	if err != nil {
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

type idName struct {
	ID   int64
	Name string
}

func (s *Store) namesByID(ctx context.Context, model interface{}, ids []int64) (map[int64]string, error) {
	out := map[int64]string{}
	if len(ids) == 0 {
		return out, nil
	}
	var rows []idName
	if err := s.db.WithContext(ctx).Model(model).Select("id", "name").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, r := range rows {
		out[r.ID] = r.Name
	}
	return out, nil
}

func keys(m map[int64]struct{}) []int64 {
	out := make([]int64, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (s *Store) GetProposal(ctx context.Context, id int64) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Gorm.GetProposal")
	defer span.End()

	var row proposalRow
	if err := s.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, "proposal", strconv.FormatInt(id, 10))
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) CreateProposal(ctx context.Context, in *domain.ProposalInput) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Gorm.CreateProposal")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	row := proposalRow{
		ClientID:       in.ClientID,
		ProductID:      in.ProductID,
		ConvenioID:     in.ConvenioID,
		BankID:         in.BankID,
		Value:          in.Value,
		Status:         string(in.Status),
		CreatedByID:    in.CreatedByID,
		OrganizationID: in.OrganizationID,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, err
	}
	s.logger.Info("proposal created",
		zap.Int64("id", row.ID),
		zap.Int64("client_id", row.ClientID),
	)
	p := row.toDomain()
	return &p, nil
}

func (s *Store) UpdateProposal(ctx context.Context, id int64, patch *domain.ProposalPatch) (*domain.Proposal, error) {
	ctx, span := tracer.Start(ctx, "Gorm.UpdateProposal")
	defer span.End()

	updates := map[string]interface{}{}
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

	var row proposalRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&row, id).Error; err != nil {
			return notFound(err, "proposal", strconv.FormatInt(id, 10))
		}
		if len(updates) == 0 {
			return nil
		}
		if err := tx.Model(&row).Updates(updates).Error; err != nil {
			return err
		}
		return tx.First(&row, id).Error
	})
	if err != nil {
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

func (s *Store) DeleteProposal(ctx context.Context, id int64) error {
	ctx, span := tracer.Start(ctx, "Gorm.DeleteProposal")
	defer span.End()

	res := s.db.WithContext(ctx).Delete(&proposalRow{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return &domain.ErrNotFound{Resource: "proposal", ID: strconv.FormatInt(id, 10)}
	}
	return nil
}
