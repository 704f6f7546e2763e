package gormstore

import (
	"encoding/json"
	"time"

	"github.com/consigline/crm-api-go/internal/domain"
)

// Row models. Column names follow gorm's snake_case convention so the
// relational schema matches what the REST backends expose.

type organizationRow struct {
	ID        int64  `gorm:"primaryKey"`
	Name      string `gorm:"not null;index"`
	Email     string
	Phone     string
	Address   string
	CreatedAt time.Time
}

func (organizationRow) TableName() string { return "organizations" }

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
	ID             string `gorm:"primaryKey"`
	Name           string `gorm:"not null"`
	Email          string `gorm:"not null;uniqueIndex"`
	PasswordHash   string `gorm:"not null"`
	Role           string `gorm:"not null;index"`
	OrganizationID int64  `gorm:"index"`
	Phone          string
	Sector         string
	CreatedAt      time.Time
}

func (userRow) TableName() string { return "users" }

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
	ID             int64  `gorm:"primaryKey"`
	Name           string `gorm:"not null;index"`
	CPF            string `gorm:"column:cpf"`
	Phone          string
	Email          string
	BirthDate      string
	Company        string
	Contact        string
	ConvenioID     int64
	CreatedByID    string `gorm:"index"`
	OrganizationID int64  `gorm:"index"`
	CreatedAt      time.Time
}

func (clientRow) TableName() string { return "clients" }

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
	ID             int64  `gorm:"primaryKey"`
	ClientID       int64  `gorm:"not null;index"`
	ProductID      int64  `gorm:"not null"`
	ConvenioID     int64
	BankID         int64
	Value          string `gorm:"not null"`
	Status         string `gorm:"not null;index"`
	CreatedByID    string `gorm:"index"`
	OrganizationID int64  `gorm:"index"`
	CreatedAt      time.Time
}

func (proposalRow) TableName() string { return "proposals" }

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
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"not null;index"`
	Price       string
	Description string
}

func (productRow) TableName() string { return "products" }

func (r *productRow) toDomain() domain.Product {
	return domain.Product{ID: r.ID, Name: r.Name, Price: r.Price, Description: r.Description}
}

type convenioRow struct {
	ID          int64  `gorm:"primaryKey"`
	Name        string `gorm:"not null;index"`
	Description string
}

func (convenioRow) TableName() string { return "convenios" }

func (r *convenioRow) toDomain() domain.Convenio {
	return domain.Convenio{ID: r.ID, Name: r.Name, Description: r.Description}
}

type bankRow struct {
	ID   int64  `gorm:"primaryKey"`
	Name string `gorm:"not null;index"`
	Code string
}

func (bankRow) TableName() string { return "banks" }

func (r *bankRow) toDomain() domain.Bank {
	return domain.Bank{ID: r.ID, Name: r.Name, Code: r.Code}
}

// formTemplateRow keeps the field definitions as a JSON document; dynamic
// form shapes do not map onto fixed columns.
type formTemplateRow struct {
	ID             int64  `gorm:"primaryKey"`
	Name           string `gorm:"not null;index"`
	Fields         string `gorm:"type:text"`
	OrganizationID int64  `gorm:"index"`
	CreatedByID    string `gorm:"index"`
	Active         bool
	CreatedAt      time.Time
}

func (formTemplateRow) TableName() string { return "form_templates" }

func (r *formTemplateRow) toDomain() (*domain.FormTemplate, error) {
	var fields []domain.FormField
	if r.Fields != "" {
		if err := json.Unmarshal([]byte(r.Fields), &fields); err != nil {
			return nil, err
		}
	}
	return &domain.FormTemplate{
		ID:             r.ID,
		Name:           r.Name,
		Fields:         fields,
		OrganizationID: r.OrganizationID,
		CreatedByID:    r.CreatedByID,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
	}, nil
}

type formSubmissionRow struct {
	ID             int64  `gorm:"primaryKey"`
	FormTemplateID int64  `gorm:"not null;index"`
	Data           string `gorm:"type:text"`
	Status         string `gorm:"not null;index"`
	OrganizationID int64  `gorm:"index"`
	ProcessedByID  string
	ProcessedAt    *time.Time
	CreatedAt      time.Time
}

func (formSubmissionRow) TableName() string { return "form_submissions" }

func (r *formSubmissionRow) toDomain() (*domain.FormSubmission, error) {
	var data map[string]string
	if r.Data != "" {
		if err := json.Unmarshal([]byte(r.Data), &data); err != nil {
			return nil, err
		}
	}
	return &domain.FormSubmission{
		ID:             r.ID,
		FormTemplateID: r.FormTemplateID,
		Data:           data,
		Status:         domain.SubmissionStatus(r.Status),
		OrganizationID: r.OrganizationID,
		ProcessedByID:  r.ProcessedByID,
		ProcessedAt:    r.ProcessedAt,
		CreatedAt:      r.CreatedAt,
	}, nil
}
