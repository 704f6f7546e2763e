package baserow

import (
	"context"
	"strconv"
	"strings"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Users carry their uuid in a mapped field; the Baserow row id is only
// an addressing detail. Lookups by user id resolve the row first.

func (c *Client) ListUsers(ctx context.Context, scope domain.Scope) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Baserow.ListUsers")
	defer span.End()

	t := c.mapping.table(domain.EntityUser)
	filters := map[string]string{}
	switch scope.Kind {
	case domain.ScopeUnrestricted:
	case domain.ScopeOrganization:
		filters[t.ref("organizationId")] = strconv.FormatInt(scope.OrganizationID, 10)
	case domain.ScopeCreator:
		// A creator scope on users means "yourself".
		filters[t.ref("id")] = scope.CreatorID
	default:
		return []domain.User{}, nil
	}

	var out []domain.User
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, filters)
		if err != nil {
			return err
		}
		out = make([]domain.User, 0, len(rows))
		for _, r := range rows {
			out = append(out, *decodeUser(t, r))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// findUserRow resolves a user uuid to its Baserow row.
func (c *Client) findUserRow(ctx context.Context, id string) (row, error) {
	t := c.mapping.table(domain.EntityUser)
	rows, err := c.listRows(ctx, t.TableID, map[string]string{t.ref("id"): id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, resilience.Permanent(&domain.ErrNotFound{Resource: "user", ID: id})
	}
	return rows[0], nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetUser")
	defer span.End()

	t := c.mapping.table(domain.EntityUser)
	var out *domain.User
	err := c.call(ctx, func() error {
		r, err := c.findUserRow(ctx, id)
		if err != nil {
			return err
		}
		out = decodeUser(t, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Baserow.GetUserByEmail")
	defer span.End()

	t := c.mapping.table(domain.EntityUser)
	email = strings.ToLower(email)
	var out *domain.User
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, map[string]string{t.ref("email"): email})
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			return resilience.Permanent(&domain.ErrNotFound{Resource: "user", ID: email})
		}
		out = decodeUser(t, rows[0])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser pre-checks the email before inserting. Baserow has no
// unique constraint to back the check, so two concurrent creates can
// both pass it; the relational backend closes that gap.
func (c *Client) CreateUser(ctx context.Context, in *domain.UserInput) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CreateUser")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	t := c.mapping.table(domain.EntityUser)
	email := strings.ToLower(in.Email)
	payload := map[string]any{
		t.ref("id"):             uuid.NewString(),
		t.ref("name"):           in.Name,
		t.ref("email"):          email,
		t.ref("passwordHash"):   in.PasswordHash,
		t.ref("role"):           string(in.Role),
		t.ref("organizationId"): in.OrganizationID,
		t.ref("phone"):          in.Phone,
		t.ref("sector"):         in.Sector,
		t.ref("createdAt"):      nowStamp(),
	}

	var out *domain.User
	err := c.mutate(ctx, func() error {
		existing, err := c.listRows(ctx, t.TableID, map[string]string{t.ref("email"): email})
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return resilience.Permanent(&domain.ErrConflict{Message: "email already in use"})
		}
		r, err := c.createRow(ctx, t.TableID, payload, "user")
		if err != nil {
			return err
		}
		out = decodeUser(t, r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("user created", zap.String("id", out.ID), zap.String("role", string(out.Role)))
	return out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, patch *domain.UserPatch) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Baserow.UpdateUser")
	defer span.End()

	t := c.mapping.table(domain.EntityUser)
	updates := map[string]any{}
	if patch.Name != nil {
		updates[t.ref("name")] = *patch.Name
	}
	if patch.Email != nil {
		updates[t.ref("email")] = strings.ToLower(*patch.Email)
	}
	if patch.PasswordHash != nil {
		updates[t.ref("passwordHash")] = *patch.PasswordHash
	}
	if patch.Role != nil {
		updates[t.ref("role")] = string(*patch.Role)
	}
	if patch.OrganizationID != nil {
		updates[t.ref("organizationId")] = *patch.OrganizationID
	}
	if patch.Phone != nil {
		updates[t.ref("phone")] = *patch.Phone
	}
	if patch.Sector != nil {
		updates[t.ref("sector")] = *patch.Sector
	}
	if len(updates) == 0 {
		return c.GetUser(ctx, id)
	}

	var out *domain.User
	err := c.mutate(ctx, func() error {
		r, err := c.findUserRow(ctx, id)
		if err != nil {
			return err
		}
		patched, err := c.patchRow(ctx, t.TableID, r.id(), updates, "user", id)
		if err != nil {
			return err
		}
		out = decodeUser(t, patched)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Baserow.DeleteUser")
	defer span.End()

	t := c.mapping.table(domain.EntityUser)
	return c.mutate(ctx, func() error {
		r, err := c.findUserRow(ctx, id)
		if err != nil {
			return err
		}
		if r.str(t.ref("role")) == string(domain.RoleSuperadmin) {
			supers, err := c.listRows(ctx, t.TableID, map[string]string{
				t.ref("role"): string(domain.RoleSuperadmin),
			})
			if err != nil {
				return err
			}
			if len(supers) <= 1 {
				return resilience.Permanent(&domain.ErrConflict{Message: "cannot delete the last superadmin"})
			}
		}
		return c.deleteRow(ctx, t.TableID, r.id(), "user", id)
	})
}

func (c *Client) CountSuperadmins(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Baserow.CountSuperadmins")
	defer span.End()

	t := c.mapping.table(domain.EntityUser)
	var n int
	err := c.call(ctx, func() error {
		rows, err := c.listRows(ctx, t.TableID, map[string]string{
			t.ref("role"): string(domain.RoleSuperadmin),
		})
		if err != nil {
			return err
		}
		n = len(rows)
		return nil
	})
	return n, err
}
