package service

import (
	"context"

	"github.com/consigline/crm-api-go/internal/domain"
)

// Reference data is world-readable for authenticated actors and
// superadmin-writable. The mutate check carries no record organization
// because these rows belong to no tenant.

func (s *CRM) ListProducts(ctx context.Context, _ domain.Actor) ([]domain.Product, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListProducts")
	defer span.End()
	out, err := s.store.ListProducts(ctx)
	return out, s.observe(err)
}

func (s *CRM) GetProduct(ctx context.Context, _ domain.Actor, id int64) (*domain.Product, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.GetProduct")
	defer span.End()
	out, err := s.store.GetProduct(ctx, id)
	return out, s.observe(err)
}

func (s *CRM) CreateProduct(ctx context.Context, actor domain.Actor, in *domain.ProductInput) (*domain.Product, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.CreateProduct")
	defer span.End()
	if err := s.requireMutate(actor, domain.EntityProduct, 0, ""); err != nil {
		return nil, err
	}
	out, err := s.store.CreateProduct(ctx, in)
	return out, s.observe(err)
}

func (s *CRM) UpdateProduct(ctx context.Context, actor domain.Actor, id int64, patch *domain.ProductPatch) (*domain.Product, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.UpdateProduct")
	defer span.End()
	if err := s.requireMutate(actor, domain.EntityProduct, 0, ""); err != nil {
		return nil, err
	}
	out, err := s.store.UpdateProduct(ctx, id, patch)
	return out, s.observe(err)
}

func (s *CRM) DeleteProduct(ctx context.Context, actor domain.Actor, id int64) error {
	ctx, span := crmTracer.Start(ctx, "CRM.DeleteProduct")
	defer span.End()
	if err := s.requireMutate(actor, domain.EntityProduct, 0, ""); err != nil {
		return err
	}
	return s.observe(s.store.DeleteProduct(ctx, id))
}

func (s *CRM) ListConvenios(ctx context.Context, _ domain.Actor) ([]domain.Convenio, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListConvenios")
	defer span.End()
	out, err := s.store.ListConvenios(ctx)
	return out, s.observe(err)
}

func (s *CRM) GetConvenio(ctx context.Context, _ domain.Actor, id int64) (*domain.Convenio, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.GetConvenio")
	defer span.End()
	out, err := s.store.GetConvenio(ctx, id)
	return out, s.observe(err)
}

func (s *CRM) CreateConvenio(ctx context.Context, actor domain.Actor, in *domain.ConvenioInput) (*domain.Convenio, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.CreateConvenio")
	defer span.End()
	if err := s.requireMutate(actor, domain.EntityConvenio, 0, ""); err != nil {
		return nil, err
	}
	out, err := s.store.CreateConvenio(ctx, in)
	return out, s.observe(err)
}

func (s *CRM) UpdateConvenio(ctx context.Context, actor domain.Actor, id int64, patch *domain.ConvenioPatch) (*domain.Convenio, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.UpdateConvenio")
	defer span.End()
	if err := s.requireMutate(actor, domain.EntityConvenio, 0, ""); err != nil {
		return nil, err
	}
	out, err := s.store.UpdateConvenio(ctx, id, patch)
	return out, s.observe(err)
}

func (s *CRM) DeleteConvenio(ctx context.Context, actor domain.Actor, id int64) error {
	ctx, span := crmTracer.Start(ctx, "CRM.DeleteConvenio")
	defer span.End()
	if err := s.requireMutate(actor, domain.EntityConvenio, 0, ""); err != nil {
		return err
	}
	return s.observe(s.store.DeleteConvenio(ctx, id))
}

func (s *CRM) ListBanks(ctx context.Context, _ domain.Actor) ([]domain.Bank, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.ListBanks")
	defer span.End()
	out, err := s.store.ListBanks(ctx)
	return out, s.observe(err)
}

func (s *CRM) GetBank(ctx context.Context, _ domain.Actor, id int64) (*domain.Bank, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.GetBank")
	defer span.End()
	out, err := s.store.GetBank(ctx, id)
	return out, s.observe(err)
}

func (s *CRM) CreateBank(ctx context.Context, actor domain.Actor, in *domain.BankInput) (*domain.Bank, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.CreateBank")
	defer span.End()
	if err := s.requireMutate(actor, domain.EntityBank, 0, ""); err != nil {
		return nil, err
	}
	out, err := s.store.CreateBank(ctx, in)
	return out, s.observe(err)
}

func (s *CRM) UpdateBank(ctx context.Context, actor domain.Actor, id int64, patch *domain.BankPatch) (*domain.Bank, error) {
	ctx, span := crmTracer.Start(ctx, "CRM.UpdateBank")
	defer span.End()
	if err := s.requireMutate(actor, domain.EntityBank, 0, ""); err != nil {
		return nil, err
	}
	out, err := s.store.UpdateBank(ctx, id, patch)
	return out, s.observe(err)
}

func (s *CRM) DeleteBank(ctx context.Context, actor domain.Actor, id int64) error {
	ctx, span := crmTracer.Start(ctx, "CRM.DeleteBank")
	defer span.End()
	if err := s.requireMutate(actor, domain.EntityBank, 0, ""); err != nil {
		return err
	}
	return s.observe(s.store.DeleteBank(ctx, id))
}
