package domain

// ScopeKind classifies the row subset an actor may touch.
type ScopeKind int

const (
	// ScopeUnrestricted allows every row of the entity.
	ScopeUnrestricted ScopeKind = iota
	// ScopeOrganization restricts rows to one organization.
	ScopeOrganization
	// ScopeCreator restricts rows to those created by one user.
	ScopeCreator
	// ScopeDenied rejects the operation outright.
	ScopeDenied
)

func (k ScopeKind) String() string {
	switch k {
	case ScopeUnrestricted:
		return "unrestricted"
	case ScopeOrganization:
		return "organization"
	case ScopeCreator:
		return "creator"
	case ScopeDenied:
		return "denied"
	}
	return "unknown"
}

// Scope is the query shape computed by the access-scoping policy and
// consumed by every list operation of the Store. Adapters translate it
// into their native filter predicates.
type Scope struct {
	Kind           ScopeKind
	OrganizationID int64  // set when Kind == ScopeOrganization
	CreatorID      string // set when Kind == ScopeCreator
	Reason         string // set when Kind == ScopeDenied
}

// Unrestricted returns the scope that matches every row.
func Unrestricted() Scope {
	return Scope{Kind: ScopeUnrestricted}
}

// ScopedByOrganization returns a scope limited to one tenant.
func ScopedByOrganization(orgID int64) Scope {
	return Scope{Kind: ScopeOrganization, OrganizationID: orgID}
}

// ScopedByCreator returns a scope limited to rows created by one user.
func ScopedByCreator(userID string) Scope {
	return Scope{Kind: ScopeCreator, CreatorID: userID}
}

// Denied returns a rejecting scope with a human-readable reason.
func Denied(reason string) Scope {
	return Scope{Kind: ScopeDenied, Reason: reason}
}
