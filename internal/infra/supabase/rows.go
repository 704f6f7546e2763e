package supabase

import (
	"time"

	"github.com/consigline/crm-api-go/internal/domain"
)

// Row structs mirror the PostgREST column names (snake_case). JSON
// columns (template fields, submission data) come back as nested JSON
// and decode straight into the domain types.

type organizationRow struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
}

func (r *organizationRow) toDomain() *domain.Organization {
	return &domain.Organization{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Address:   r.Address,
		CreatedAt: r.CreatedAt,
	}
}

type userRow struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"password_hash"`
	Role           string    `json:"role"`
	OrganizationID int64     `json:"organization_id"`
	Phone          string    `json:"phone"`
	Sector         string    `json:"sector"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *userRow) toDomain() *domain.User {
	return &domain.User{
		ID:             r.ID,
		Name:           r.Name,
		Email:          r.Email,
		PasswordHash:   r.PasswordHash,
		Role:           domain.Role(r.Role),
		OrganizationID: r.OrganizationID,
		Phone:          r.Phone,
		Sector:         r.Sector,
		CreatedAt:      r.CreatedAt,
	}
}

type clientRow struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	CPF            string    `json:"cpf"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	BirthDate      string    `json:"birth_date"`
	Company        string    `json:"company"`
	Contact        string    `json:"contact"`
	ConvenioID     int64     `json:"convenio_id"`
	CreatedByID    string    `json:"created_by_id"`
	OrganizationID int64     `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *clientRow) toDomain() *domain.Client {
	return &domain.Client{
		ID:             r.ID,
		Name:           r.Name,
		CPF:            r.CPF,
		Phone:          r.Phone,
		Email:          r.Email,
		BirthDate:      r.BirthDate,
		Company:        r.Company,
		Contact:        r.Contact,
		ConvenioID:     r.ConvenioID,
		CreatedByID:    r.CreatedByID,
		OrganizationID: r.OrganizationID,
		CreatedAt:      r.CreatedAt,
	}
}

type proposalRow struct {
	ID             int64     `json:"id"`
	ClientID       int64     `json:"client_id"`
	ProductID      int64     `json:"product_id"`
	ConvenioID     int64     `json:"convenio_id"`
	BankID         int64     `json:"bank_id"`
	Value          string    `json:"value"`
	Status         string    `json:"status"`
	CreatedByID    string    `json:"created_by_id"`
	OrganizationID int64     `json:"organization_id"`
	CreatedAt      time.Time `json:"created_at"`
}

func (r *proposalRow) toDomain() domain.Proposal {
	return domain.Proposal{
		ID:             r.ID,
		ClientID:       r.ClientID,
		ProductID:      r.ProductID,
		ConvenioID:     r.ConvenioID,
		BankID:         r.BankID,
		Value:          r.Value,
		Status:         domain.ProposalStatus(r.Status),
		CreatedByID:    r.CreatedByID,
		OrganizationID: r.OrganizationID,
		CreatedAt:      r.CreatedAt,
	}
}

type productRow struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	Description string `json:"description"`
}

func (r *productRow) toDomain() domain.Product {
	return domain.Product{ID: r.ID, Name: r.Name, Price: r.Price, Description: r.Description}
}

type convenioRow struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r *convenioRow) toDomain() domain.Convenio {
	return domain.Convenio{ID: r.ID, Name: r.Name, Description: r.Description}
}

type bankRow struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

func (r *bankRow) toDomain() domain.Bank {
	return domain.Bank{ID: r.ID, Name: r.Name, Code: r.Code}
}

type formTemplateRow struct {
	ID             int64              `json:"id"`
	Name           string             `json:"name"`
	Fields         []domain.FormField `json:"fields"`
	OrganizationID int64              `json:"organization_id"`
	CreatedByID    string             `json:"created_by_id"`
	Active         bool               `json:"active"`
	CreatedAt      time.Time          `json:"created_at"`
}

func (r *formTemplateRow) toDomain() *domain.FormTemplate {
	return &domain.FormTemplate{
		ID:             r.ID,
		Name:           r.Name,
		Fields:         r.Fields,
		OrganizationID: r.OrganizationID,
		CreatedByID:    r.CreatedByID,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
	}
}

type formSubmissionRow struct {
	ID             int64             `json:"id"`
	FormTemplateID int64             `json:"form_template_id"`
	Data           map[string]string `json:"data"`
	Status         string            `json:"status"`
	OrganizationID int64             `json:"organization_id"`
	ProcessedByID  string            `json:"processed_by_id"`
	ProcessedAt    *time.Time        `json:"processed_at"`
	CreatedAt      time.Time         `json:"created_at"`
}

func (r *formSubmissionRow) toDomain() *domain.FormSubmission {
	return &domain.FormSubmission{
		ID:             r.ID,
		FormTemplateID: r.FormTemplateID,
		Data:           r.Data,
		Status:         domain.SubmissionStatus(r.Status),
		OrganizationID: r.OrganizationID,
		ProcessedByID:  r.ProcessedByID,
		ProcessedAt:    r.ProcessedAt,
		CreatedAt:      r.CreatedAt,
	}
}
