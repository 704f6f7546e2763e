package domain

import (
	"strings"
	"time"
)

// Organization is a tenant. All scoped data belongs to exactly one.
type Organization struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrganizationInput carries the fields accepted on creation.
type OrganizationInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// Validate checks required fields before any storage call.
func (in *OrganizationInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	return nil
}

// OrganizationPatch is a partial update; nil fields stay untouched.
type OrganizationPatch struct {
	Name    *string `json:"name,omitempty"`
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}
