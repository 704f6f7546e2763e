package domain

import (
	"strings"
	"time"
)

// Client is a CRM prospect/customer record. OrganizationID must equal the
// creating user's organization at creation time and is immutable afterwards
// except by a superadmin.
type Client struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	CPF            string    `json:"cpf"`
	Phone          string    `json:"phone"`
	Email          string    `json:"email"`
	BirthDate      string    `json:"birthDate"`
	Company        string    `json:"company"`
	Contact        string    `json:"contact"`
	ConvenioID     int64     `json:"convenioId"`
	CreatedByID    string    `json:"createdById"`
	OrganizationID int64     `json:"organizationId"`
	CreatedAt      time.Time `json:"createdAt"`
}

// ClientInput carries the fields accepted on creation. CreatedByID and
// OrganizationID are stamped by the service layer from the actor, never
// taken from the request.
type ClientInput struct {
	Name           string `json:"name"`
	CPF            string `json:"cpf"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	BirthDate      string `json:"birthDate"`
	Company        string `json:"company"`
	Contact        string `json:"contact"`
	ConvenioID     int64  `json:"convenioId"`
	CreatedByID    string `json:"-"`
	OrganizationID int64  `json:"-"`
}

// Validate checks required fields before any storage call.
func (in *ClientInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	if in.CreatedByID == "" {
		return &ErrValidation{Field: "createdById", Message: "creator is required"}
	}
	if in.OrganizationID == 0 {
		return &ErrValidation{Field: "organizationId", Message: "organization is required"}
	}
	return nil
}

// ClientPatch is a partial update; nil fields stay untouched.
// OrganizationID moves are rejected for everyone but superadmins by the
// service layer; createdById is never patchable.
type ClientPatch struct {
	Name           *string `json:"name,omitempty"`
	CPF            *string `json:"cpf,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Email          *string `json:"email,omitempty"`
	BirthDate      *string `json:"birthDate,omitempty"`
	Company        *string `json:"company,omitempty"`
	Contact        *string `json:"contact,omitempty"`
	ConvenioID     *int64  `json:"convenioId,omitempty"`
	OrganizationID *int64  `json:"organizationId,omitempty"`
}
