// Package seed bootstraps a fresh deployment with the default reference
// rows, the default organization and an initial superadmin account. It
// speaks only the store contract, so every backend gets the same first-run
// behavior. Each section checks current storage before writing, which
// makes re-runs safe: an already seeded deployment is left untouched.
package seed

import (
	"context"

	"go.uber.org/zap"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/port"
	"github.com/consigline/crm-api-go/internal/service"
)

// Bootstrap credentials for the first superadmin. The password is meant
// to be changed immediately after the first login.
const (
	DefaultOrganizationName = "Consigline"
	BootstrapAdminEmail     = "admin@consigline.com.br"
	BootstrapAdminPassword  = "trocar-esta-senha"
)

var defaultProducts = []domain.ProductInput{
	{Name: "Empréstimo Consignado", Price: "1.80", Description: "Crédito consignado com desconto em folha"},
	{Name: "Cartão Consignado", Price: "2.50", Description: "Cartão de crédito com margem consignável"},
	{Name: "Portabilidade", Price: "1.60", Description: "Transferência de contrato entre instituições"},
	{Name: "Refinanciamento", Price: "1.90", Description: "Renovação de contrato consignado vigente"},
	{Name: "Saque FGTS", Price: "1.70", Description: "Antecipação do saque-aniversário do FGTS"},
}

var defaultConvenios = []domain.ConvenioInput{
	{Name: "INSS", Description: "Aposentados e pensionistas do INSS"},
	{Name: "SIAPE", Description: "Servidores públicos federais"},
	{Name: "Governo Estadual", Description: "Servidores públicos estaduais"},
	{Name: "Prefeitura", Description: "Servidores públicos municipais"},
	{Name: "Forças Armadas", Description: "Militares das Forças Armadas"},
	{Name: "CLT", Description: "Trabalhadores de empresas privadas"},
}

var defaultBanks = []domain.BankInput{
	{Name: "Banco do Brasil", Code: "001"},
	{Name: "Caixa Econômica Federal", Code: "104"},
	{Name: "Bradesco", Code: "237"},
	{Name: "Itaú Unibanco", Code: "341"},
	{Name: "Santander", Code: "033"},
	{Name: "Banco Pan", Code: "623"},
	{Name: "C6 Bank", Code: "336"},
}

// Seeder writes the first-run defaults through a store.
type Seeder struct {
	store  port.Store
	logger *zap.Logger
}

func New(store port.Store, logger *zap.Logger) *Seeder {
	return &Seeder{store: store, logger: logger}
}

// Run seeds whatever is missing. Sections are independent: reference
// tables are only filled when empty, and the bootstrap account is only
// created when no superadmin exists yet.
func (s *Seeder) Run(ctx context.Context) error {
	if err := s.seedReferenceData(ctx); err != nil {
		return err
	}
	return s.seedAdmin(ctx)
}

func (s *Seeder) seedReferenceData(ctx context.Context) error {
	products, err := s.store.ListProducts(ctx)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		for i := range defaultProducts {
			if _, err := s.store.CreateProduct(ctx, &defaultProducts[i]); err != nil {
				return err
			}
		}
		s.logger.Info("seeded default products", zap.Int("count", len(defaultProducts)))
	}

	convenios, err := s.store.ListConvenios(ctx)
	if err != nil {
		return err
	}
	if len(convenios) == 0 {
		for i := range defaultConvenios {
			if _, err := s.store.CreateConvenio(ctx, &defaultConvenios[i]); err != nil {
				return err
			}
		}
		s.logger.Info("seeded default convenios", zap.Int("count", len(defaultConvenios)))
	}

	banks, err := s.store.ListBanks(ctx)
	if err != nil {
		return err
	}
	if len(banks) == 0 {
		for i := range defaultBanks {
			if _, err := s.store.CreateBank(ctx, &defaultBanks[i]); err != nil {
				return err
			}
		}
		s.logger.Info("seeded default banks", zap.Int("count", len(defaultBanks)))
	}

	return nil
}

func (s *Seeder) seedAdmin(ctx context.Context) error {
	count, err := s.store.CountSuperadmins(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	orgs, err := s.store.ListOrganizations(ctx, domain.Unrestricted())
	if err != nil {
		return err
	}
	var orgID int64
	if len(orgs) > 0 {
		orgID = orgs[0].ID
	} else {
		org, err := s.store.CreateOrganization(ctx, &domain.OrganizationInput{Name: DefaultOrganizationName})
		if err != nil {
			return err
		}
		orgID = org.ID
		s.logger.Info("created default organization", zap.Int64("id", orgID))
	}

	hash, err := service.HashPassword(BootstrapAdminPassword)
	if err != nil {
		return err
	}
	admin, err := s.store.CreateUser(ctx, &domain.UserInput{
		Name:           "Administrador",
		Email:          BootstrapAdminEmail,
		PasswordHash:   hash,
		Role:           domain.RoleSuperadmin,
		OrganizationID: orgID,
	})
	if err != nil {
		return err
	}
	s.logger.Warn("created bootstrap superadmin, change its password before production use",
		zap.String("id", admin.ID),
		zap.String("email", admin.Email),
	)
	return nil
}
