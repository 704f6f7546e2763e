// Package domain holds the entity model of the CRM: plain records with
// stable identity and typed fields, the access scopes derived from them,
// and the error taxonomy shared by every storage adapter.
package domain

// Role of an authenticated user.
type Role string

const (
	RoleAgent      Role = "AGENT"
	RoleManager    Role = "MANAGER"
	RoleSuperadmin Role = "SUPERADMIN"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleAgent, RoleManager, RoleSuperadmin:
		return true
	}
	return false
}

// Actor is the authenticated identity performing an operation, resolved
// from a verified session token by the transport layer. The core never
// parses transport headers itself.
type Actor struct {
	ID             string
	Role           Role
	OrganizationID int64
}

// EntityKind names an entity collection for policy decisions.
type EntityKind string

const (
	EntityOrganization   EntityKind = "organization"
	EntityUser           EntityKind = "user"
	EntityClient         EntityKind = "client"
	EntityProposal       EntityKind = "proposal"
	EntityProduct        EntityKind = "product"
	EntityConvenio       EntityKind = "convenio"
	EntityBank           EntityKind = "bank"
	EntityFormTemplate   EntityKind = "form_template"
	EntityFormSubmission EntityKind = "form_submission"
)
