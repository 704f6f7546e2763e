// Package policy implements the access-scoping rules of the CRM as pure
// functions of the actor and the requested operation. Route handlers use
// ScopeFor to shape list queries; the service layer additionally calls
// CanMutate before every write so the list-scope rule and the mutate
// authorization are two independent checks that must both pass.
package policy

import (
	"github.com/consigline/crm-api-go/internal/domain"
)

// Operation classifies what the actor wants to do with an entity.
type Operation int

const (
	OpList Operation = iota
	OpRead
	OpWrite
)

func (o Operation) String() string {
	switch o {
	case OpList:
		return "list"
	case OpRead:
		return "read"
	case OpWrite:
		return "write"
	}
	return "unknown"
}

// Denial reasons. Handlers surface these verbatim so a caller can tell a
// tenancy violation from an ownership violation from a role gap.
const (
	ReasonWrongOrganization = "wrong organization"
	ReasonNotCreator        = "not the creator"
	ReasonRoleDenied        = "role cannot perform this operation"
)

// ScopeFor computes the allowed query shape for an actor touching one
// entity kind. The rule table is closed: superadmins are unrestricted,
// managers see their organization, agents see what they created, and
// reference data is world-readable but superadmin-writable.
func ScopeFor(actor domain.Actor, entity domain.EntityKind, op Operation) domain.Scope {
	if actor.Role == domain.RoleSuperadmin {
		return domain.Unrestricted()
	}

	switch entity {
	case domain.EntityProduct, domain.EntityConvenio, domain.EntityBank:
		if op == OpWrite {
			return domain.Denied(ReasonRoleDenied)
		}
		return domain.Unrestricted()

	case domain.EntityOrganization:
		if op == OpWrite {
			return domain.Denied(ReasonRoleDenied)
		}
		return domain.ScopedByOrganization(actor.OrganizationID)

	case domain.EntityClient, domain.EntityProposal:
		switch actor.Role {
		case domain.RoleManager:
			return domain.ScopedByOrganization(actor.OrganizationID)
		case domain.RoleAgent:
			return domain.ScopedByCreator(actor.ID)
		}

	case domain.EntityUser:
		switch actor.Role {
		case domain.RoleManager:
			return domain.ScopedByOrganization(actor.OrganizationID)
		case domain.RoleAgent:
			// Agents only ever see and change their own account.
			return domain.ScopedByCreator(actor.ID)
		}

	case domain.EntityFormTemplate:
		switch actor.Role {
		case domain.RoleManager:
			return domain.ScopedByOrganization(actor.OrganizationID)
		case domain.RoleAgent:
			if op == OpWrite {
				return domain.Denied(ReasonRoleDenied)
			}
			return domain.ScopedByOrganization(actor.OrganizationID)
		}

	case domain.EntityFormSubmission:
		switch actor.Role {
		case domain.RoleManager, domain.RoleAgent:
			return domain.ScopedByOrganization(actor.OrganizationID)
		}
	}

	return domain.Denied(ReasonRoleDenied)
}

// CanMutate re-derives write authorization against a concrete record,
// independently of the scope used to find it. recordOrg is the record's
// organization, recordCreator its creator (empty for unscoped entities).
func CanMutate(actor domain.Actor, entity domain.EntityKind, recordOrg int64, recordCreator string) error {
	if actor.Role == domain.RoleSuperadmin {
		return nil
	}

	switch entity {
	case domain.EntityProduct, domain.EntityConvenio, domain.EntityBank, domain.EntityOrganization:
		return &domain.ErrForbidden{Reason: ReasonRoleDenied}
	}

	if recordOrg != actor.OrganizationID {
		return &domain.ErrForbidden{Reason: ReasonWrongOrganization}
	}

	if actor.Role == domain.RoleAgent {
		switch entity {
		case domain.EntityClient, domain.EntityProposal:
			if recordCreator != actor.ID {
				return &domain.ErrForbidden{Reason: ReasonNotCreator}
			}
		case domain.EntityUser:
			if recordCreator != actor.ID {
				return &domain.ErrForbidden{Reason: ReasonRoleDenied}
			}
		case domain.EntityFormTemplate:
			return &domain.ErrForbidden{Reason: ReasonRoleDenied}
		}
	}

	return nil
}

// CanAssignRole reports whether the actor may grant the given role when
// creating or updating a user. Managers may never mint superadmins.
func CanAssignRole(actor domain.Actor, role domain.Role) error {
	if actor.Role == domain.RoleSuperadmin {
		return nil
	}
	if actor.Role == domain.RoleManager && role != domain.RoleSuperadmin {
		return nil
	}
	return &domain.ErrForbidden{Reason: ReasonRoleDenied}
}

// CanDeleteUser reports whether the actor may delete user accounts at all.
// Agents may not delete any account, including their own.
func CanDeleteUser(actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleSuperadmin, domain.RoleManager:
		return nil
	}
	return &domain.ErrForbidden{Reason: ReasonRoleDenied}
}
