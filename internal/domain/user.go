package domain

import (
	"strings"
	"time"
)

// User is an authenticated account. Email uniqueness is global, not
// per-organization. OrganizationID is zero only for bootstrap-created
// superadmins. The password hash never serializes outward.
type User struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	PasswordHash   string    `json:"-"`
	Role           Role      `json:"role"`
	OrganizationID int64     `json:"organizationId"`
	Phone          string    `json:"phone"`
	Sector         string    `json:"sector"`
	CreatedAt      time.Time `json:"createdAt"`
}

// UserInput carries the fields accepted on creation. PasswordHash must
// already be hashed by the credential manager; adapters store it opaquely.
type UserInput struct {
	Name           string `json:"name"`
	Email          string `json:"email"`
	PasswordHash   string `json:"-"`
	Role           Role   `json:"role"`
	OrganizationID int64  `json:"organizationId"`
	Phone          string `json:"phone"`
	Sector         string `json:"sector"`
}

// Validate checks required fields before any storage call.
func (in *UserInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return &ErrValidation{Field: "name", Message: "name is required"}
	}
	if strings.TrimSpace(in.Email) == "" {
		return &ErrValidation{Field: "email", Message: "email is required"}
	}
	if !strings.Contains(in.Email, "@") {
		return &ErrValidation{Field: "email", Message: "email is malformed"}
	}
	if in.PasswordHash == "" {
		return &ErrValidation{Field: "password", Message: "password is required"}
	}
	if !ValidRole(in.Role) {
		return &ErrValidation{Field: "role", Message: "role must be AGENT, MANAGER or SUPERADMIN"}
	}
	if in.Role != RoleSuperadmin && in.OrganizationID == 0 {
		return &ErrValidation{Field: "organizationId", Message: "organization is required for non-superadmin users"}
	}
	return nil
}

// UserPatch is a partial update; nil fields stay untouched. Which fields a
// given role may set is decided by the policy allow-list, not here.
type UserPatch struct {
	Name           *string `json:"name,omitempty"`
	Email          *string `json:"email,omitempty"`
	PasswordHash   *string `json:"-"`
	Role           *Role   `json:"role,omitempty"`
	OrganizationID *int64  `json:"organizationId,omitempty"`
	Phone          *string `json:"phone,omitempty"`
	Sector         *string `json:"sector,omitempty"`
}
