package policy

import "github.com/consigline/crm-api-go/internal/domain"

// Per-role allow-list for user self/managed updates. The list is checked
// once, centrally, instead of per handler. Field names are the canonical
// entity-model names.
var userPatchAllowList = map[domain.Role]map[string]bool{
	domain.RoleAgent: {
		"name":   true,
		"email":  true,
		"phone":  true,
		"sector": true,
	},
	domain.RoleManager: {
		"name":           true,
		"email":          true,
		"phone":          true,
		"sector":         true,
		"role":           true,
		"organizationId": true,
	},
	domain.RoleSuperadmin: {
		"name":           true,
		"email":          true,
		"phone":          true,
		"sector":         true,
		"role":           true,
		"organizationId": true,
	},
}

// CheckUserPatch rejects any patched field outside the actor's allow-list.
// Role escalation and cross-tenant moves are vetted separately by
// CanAssignRole and CanMutate; this check only covers field visibility.
func CheckUserPatch(actor domain.Actor, patch *domain.UserPatch) error {
	allowed := userPatchAllowList[actor.Role]

	deny := func(field string) error {
		return &domain.ErrForbidden{Reason: ReasonRoleDenied + ": field " + field}
	}

	if patch.Name != nil && !allowed["name"] {
		return deny("name")
	}
	if patch.Email != nil && !allowed["email"] {
		return deny("email")
	}
	if patch.Phone != nil && !allowed["phone"] {
		return deny("phone")
	}
	if patch.Sector != nil && !allowed["sector"] {
		return deny("sector")
	}
	if patch.Role != nil && !allowed["role"] {
		return deny("role")
	}
	if patch.OrganizationID != nil && !allowed["organizationId"] {
		return deny("organizationId")
	}
	return nil
}
