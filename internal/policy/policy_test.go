package policy

import (
	"errors"
	"testing"

	"github.com/consigline/crm-api-go/internal/domain"
)

var (
	superadmin = domain.Actor{ID: "u-super", Role: domain.RoleSuperadmin}
	manager    = domain.Actor{ID: "u-manager", Role: domain.RoleManager, OrganizationID: 3}
	agent      = domain.Actor{ID: "u-agent", Role: domain.RoleAgent, OrganizationID: 3}
)

func TestScopeFor_RuleTable(t *testing.T) {
	type want struct {
		kind   domain.ScopeKind
		org    int64
		userID string
	}

	tests := []struct {
		name   string
		actor  domain.Actor
		entity domain.EntityKind
		op     Operation
		want   want
	}{
		// Superadmin: unrestricted everywhere.
		{"superadmin client list", superadmin, domain.EntityClient, OpList, want{kind: domain.ScopeUnrestricted}},
		{"superadmin user write", superadmin, domain.EntityUser, OpWrite, want{kind: domain.ScopeUnrestricted}},
		{"superadmin org write", superadmin, domain.EntityOrganization, OpWrite, want{kind: domain.ScopeUnrestricted}},
		{"superadmin product write", superadmin, domain.EntityProduct, OpWrite, want{kind: domain.ScopeUnrestricted}},
		{"superadmin submission write", superadmin, domain.EntityFormSubmission, OpWrite, want{kind: domain.ScopeUnrestricted}},

		// Manager: organization-scoped for tenant data.
		{"manager client list", manager, domain.EntityClient, OpList, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager client write", manager, domain.EntityClient, OpWrite, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager proposal list", manager, domain.EntityProposal, OpList, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager proposal write", manager, domain.EntityProposal, OpWrite, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager user list", manager, domain.EntityUser, OpList, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager user write", manager, domain.EntityUser, OpWrite, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager template list", manager, domain.EntityFormTemplate, OpList, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager template write", manager, domain.EntityFormTemplate, OpWrite, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager submission list", manager, domain.EntityFormSubmission, OpList, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager submission write", manager, domain.EntityFormSubmission, OpWrite, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager org read", manager, domain.EntityOrganization, OpRead, want{kind: domain.ScopeOrganization, org: 3}},
		{"manager org write denied", manager, domain.EntityOrganization, OpWrite, want{kind: domain.ScopeDenied}},
		{"manager product read", manager, domain.EntityProduct, OpRead, want{kind: domain.ScopeUnrestricted}},
		{"manager product write denied", manager, domain.EntityProduct, OpWrite, want{kind: domain.ScopeDenied}},
		{"manager convenio write denied", manager, domain.EntityConvenio, OpWrite, want{kind: domain.ScopeDenied}},
		{"manager bank write denied", manager, domain.EntityBank, OpWrite, want{kind: domain.ScopeDenied}},

		// Agent: creator-scoped for clients/proposals, self for users.
		{"agent client list", agent, domain.EntityClient, OpList, want{kind: domain.ScopeCreator, userID: "u-agent"}},
		{"agent client write", agent, domain.EntityClient, OpWrite, want{kind: domain.ScopeCreator, userID: "u-agent"}},
		{"agent proposal list", agent, domain.EntityProposal, OpList, want{kind: domain.ScopeCreator, userID: "u-agent"}},
		{"agent proposal write", agent, domain.EntityProposal, OpWrite, want{kind: domain.ScopeCreator, userID: "u-agent"}},
		{"agent user list", agent, domain.EntityUser, OpList, want{kind: domain.ScopeCreator, userID: "u-agent"}},
		{"agent user write", agent, domain.EntityUser, OpWrite, want{kind: domain.ScopeCreator, userID: "u-agent"}},
		{"agent template read", agent, domain.EntityFormTemplate, OpRead, want{kind: domain.ScopeOrganization, org: 3}},
		{"agent template write denied", agent, domain.EntityFormTemplate, OpWrite, want{kind: domain.ScopeDenied}},
		{"agent submission list", agent, domain.EntityFormSubmission, OpList, want{kind: domain.ScopeOrganization, org: 3}},
		{"agent submission write", agent, domain.EntityFormSubmission, OpWrite, want{kind: domain.ScopeOrganization, org: 3}},
		{"agent org read", agent, domain.EntityOrganization, OpRead, want{kind: domain.ScopeOrganization, org: 3}},
		{"agent org write denied", agent, domain.EntityOrganization, OpWrite, want{kind: domain.ScopeDenied}},
		{"agent product read", agent, domain.EntityProduct, OpRead, want{kind: domain.ScopeUnrestricted}},
		{"agent product write denied", agent, domain.EntityProduct, OpWrite, want{kind: domain.ScopeDenied}},
		{"agent bank read", agent, domain.EntityBank, OpList, want{kind: domain.ScopeUnrestricted}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ScopeFor(tt.actor, tt.entity, tt.op)
			if got.Kind != tt.want.kind {
				t.Fatalf("kind = %s, want %s", got.Kind, tt.want.kind)
			}
			if got.OrganizationID != tt.want.org {
				t.Errorf("org = %d, want %d", got.OrganizationID, tt.want.org)
			}
			if got.CreatorID != tt.want.userID {
				t.Errorf("creator = %q, want %q", got.CreatorID, tt.want.userID)
			}
			if got.Kind == domain.ScopeDenied && got.Reason == "" {
				t.Error("denied scope has no reason")
			}
		})
	}
}

func TestScopeFor_Deterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		a := ScopeFor(agent, domain.EntityClient, OpList)
		b := ScopeFor(agent, domain.EntityClient, OpList)
		if a != b {
			t.Fatalf("non-deterministic scope: %+v vs %+v", a, b)
		}
	}
}

func TestCanMutate_WrongOrganization(t *testing.T) {
	err := CanMutate(manager, domain.EntityClient, 4, "someone")
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if forbidden.Reason != ReasonWrongOrganization {
		t.Errorf("reason = %q, want %q", forbidden.Reason, ReasonWrongOrganization)
	}
}

func TestCanMutate_NotCreator(t *testing.T) {
	err := CanMutate(agent, domain.EntityClient, 3, "someone-else")
	var forbidden *domain.ErrForbidden
	if !errors.As(err, &forbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if forbidden.Reason != ReasonNotCreator {
		t.Errorf("reason = %q, want %q", forbidden.Reason, ReasonNotCreator)
	}
}

func TestCanMutate_AllowsOwnRecords(t *testing.T) {
	if err := CanMutate(agent, domain.EntityClient, 3, "u-agent"); err != nil {
		t.Fatalf("agent mutating own client: %v", err)
	}
	if err := CanMutate(manager, domain.EntityClient, 3, "anyone"); err != nil {
		t.Fatalf("manager mutating in-org client: %v", err)
	}
	if err := CanMutate(superadmin, domain.EntityClient, 99, "anyone"); err != nil {
		t.Fatalf("superadmin mutating any client: %v", err)
	}
}

func TestCanMutate_ReferenceDataSuperadminOnly(t *testing.T) {
	for _, kind := range []domain.EntityKind{domain.EntityProduct, domain.EntityConvenio, domain.EntityBank, domain.EntityOrganization} {
		if err := CanMutate(manager, kind, 3, ""); err == nil {
			t.Errorf("manager may not mutate %s", kind)
		}
		if err := CanMutate(superadmin, kind, 0, ""); err != nil {
			t.Errorf("superadmin mutate %s: %v", kind, err)
		}
	}
}

func TestCanAssignRole(t *testing.T) {
	if err := CanAssignRole(manager, domain.RoleSuperadmin); err == nil {
		t.Error("manager must not assign SUPERADMIN")
	}
	if err := CanAssignRole(manager, domain.RoleAgent); err != nil {
		t.Errorf("manager assigning AGENT: %v", err)
	}
	if err := CanAssignRole(agent, domain.RoleAgent); err == nil {
		t.Error("agent must not assign roles")
	}
	if err := CanAssignRole(superadmin, domain.RoleSuperadmin); err != nil {
		t.Errorf("superadmin assigning SUPERADMIN: %v", err)
	}
}

func TestCanDeleteUser(t *testing.T) {
	if err := CanDeleteUser(agent); err == nil {
		t.Error("agent must not delete accounts, including their own")
	}
	if err := CanDeleteUser(manager); err != nil {
		t.Errorf("manager delete: %v", err)
	}
}

func TestCheckUserPatch_AgentFieldSubset(t *testing.T) {
	name := "New Name"
	role := domain.RoleSuperadmin
	org := int64(9)

	if err := CheckUserPatch(agent, &domain.UserPatch{Name: &name}); err != nil {
		t.Errorf("agent patching name: %v", err)
	}
	if err := CheckUserPatch(agent, &domain.UserPatch{Role: &role}); err == nil {
		t.Error("agent must not patch role")
	}
	if err := CheckUserPatch(agent, &domain.UserPatch{OrganizationID: &org}); err == nil {
		t.Error("agent must not patch organization")
	}
	if err := CheckUserPatch(manager, &domain.UserPatch{Role: &role}); err != nil {
		t.Errorf("manager patching role field (escalation vetted elsewhere): %v", err)
	}
}
