// Package port defines the interfaces (ports) that decouple the service
// layer from concrete storage technology. The relational, PostgREST and
// Baserow adapters must all satisfy Store identically; the storetest
// package holds the black-box conformance suite that proves it.
package port

import (
	"context"

	"github.com/consigline/crm-api-go/internal/domain"
)

// Store is the repository contract shared by all backend adapters.
//
// Guarantees every implementation honors:
//   - Get/Update/Delete on a missing id return *domain.ErrNotFound,
//     never a backend-native error.
//   - Create validates required input first and returns
//     *domain.ErrValidation before touching storage.
//   - CreateUser with a duplicate email returns *domain.ErrConflict.
//     The check-then-insert is best effort under concurrency; where the
//     backend supports a uniqueness constraint, that constraint is the
//     authoritative guard.
//   - DeleteOrganization fails with *domain.ErrConflict while any user
//     references it; DeleteClient cascades to its proposals; DeleteUser
//     fails with *domain.ErrConflict on the last superadmin.
//   - List operations honor the domain.Scope filter and return rows in
//     creation order ascending.
//   - A denied scope yields an empty result, not an error; scope denial
//     is surfaced by the policy layer before the store is reached.
type Store interface {
	// Organizations
	ListOrganizations(ctx context.Context, scope domain.Scope) ([]domain.Organization, error)
	GetOrganization(ctx context.Context, id int64) (*domain.Organization, error)
	CreateOrganization(ctx context.Context, in *domain.OrganizationInput) (*domain.Organization, error)
	UpdateOrganization(ctx context.Context, id int64, patch *domain.OrganizationPatch) (*domain.Organization, error)
	DeleteOrganization(ctx context.Context, id int64) error

	// Users
	ListUsers(ctx context.Context, scope domain.Scope) ([]domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	CreateUser(ctx context.Context, in *domain.UserInput) (*domain.User, error)
	UpdateUser(ctx context.Context, id string, patch *domain.UserPatch) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error
	CountSuperadmins(ctx context.Context) (int, error)

	// Clients
	ListClients(ctx context.Context, scope domain.Scope) ([]domain.Client, error)
	GetClient(ctx context.Context, id int64) (*domain.Client, error)
	CreateClient(ctx context.Context, in *domain.ClientInput) (*domain.Client, error)
	UpdateClient(ctx context.Context, id int64, patch *domain.ClientPatch) (*domain.Client, error)
	DeleteClient(ctx context.Context, id int64) error

	// Proposals
	ListProposals(ctx context.Context, scope domain.Scope) ([]domain.Proposal, error)
	ListProposalsByStatus(ctx context.Context, scope domain.Scope, status domain.ProposalStatus) ([]domain.Proposal, error)
	ListProposalsByValueRange(ctx context.Context, scope domain.Scope, min, max float64) ([]domain.Proposal, error)
	ListProposalsWithDetails(ctx context.Context, scope domain.Scope) ([]domain.ProposalDetails, error)
	GetProposal(ctx context.Context, id int64) (*domain.Proposal, error)
	CreateProposal(ctx context.Context, in *domain.ProposalInput) (*domain.Proposal, error)
	UpdateProposal(ctx context.Context, id int64, patch *domain.ProposalPatch) (*domain.Proposal, error)
	DeleteProposal(ctx context.Context, id int64) error

	// Products
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	CreateProduct(ctx context.Context, in *domain.ProductInput) (*domain.Product, error)
	UpdateProduct(ctx context.Context, id int64, patch *domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error

	// Convenios
	ListConvenios(ctx context.Context) ([]domain.Convenio, error)
	GetConvenio(ctx context.Context, id int64) (*domain.Convenio, error)
	CreateConvenio(ctx context.Context, in *domain.ConvenioInput) (*domain.Convenio, error)
	UpdateConvenio(ctx context.Context, id int64, patch *domain.ConvenioPatch) (*domain.Convenio, error)
	DeleteConvenio(ctx context.Context, id int64) error

	// Banks
	ListBanks(ctx context.Context) ([]domain.Bank, error)
	GetBank(ctx context.Context, id int64) (*domain.Bank, error)
	CreateBank(ctx context.Context, in *domain.BankInput) (*domain.Bank, error)
	UpdateBank(ctx context.Context, id int64, patch *domain.BankPatch) (*domain.Bank, error)
	DeleteBank(ctx context.Context, id int64) error

	// Form templates
	ListFormTemplates(ctx context.Context, scope domain.Scope) ([]domain.FormTemplate, error)
	GetFormTemplate(ctx context.Context, id int64) (*domain.FormTemplate, error)
	CreateFormTemplate(ctx context.Context, in *domain.FormTemplateInput) (*domain.FormTemplate, error)
	UpdateFormTemplate(ctx context.Context, id int64, patch *domain.FormTemplatePatch) (*domain.FormTemplate, error)
	DeleteFormTemplate(ctx context.Context, id int64) error

	// Form submissions
	ListFormSubmissions(ctx context.Context, scope domain.Scope) ([]domain.FormSubmission, error)
	GetFormSubmission(ctx context.Context, id int64) (*domain.FormSubmission, error)
	CreateFormSubmission(ctx context.Context, in *domain.FormSubmissionInput) (*domain.FormSubmission, error)
	UpdateFormSubmission(ctx context.Context, id int64, patch *domain.FormSubmissionPatch) (*domain.FormSubmission, error)
	DeleteFormSubmission(ctx context.Context, id int64) error

	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}
