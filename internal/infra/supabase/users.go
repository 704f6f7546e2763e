package supabase

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/consigline/crm-api-go/internal/domain"
	"github.com/consigline/crm-api-go/internal/infra/resilience"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

func (c *Client) ListUsers(ctx context.Context, scope domain.Scope) ([]domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUsers")
	defer span.End()

	// A creator scope on users means "yourself".
	path := "users?select=*&order=created_at.asc"
	switch scope.Kind {
	case domain.ScopeUnrestricted:
	case domain.ScopeOrganization:
		path += fmt.Sprintf("&organization_id=eq.%d", scope.OrganizationID)
	case domain.ScopeCreator:
		path += "&id=eq." + url.QueryEscape(scope.CreatorID)
	default:
		return []domain.User{}, nil
	}

	var out []domain.User
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, path)
		if err != nil {
			return err
		}
		rows, err := decodeMany[userRow](body, "users")
		if err != nil {
			return err
		}
		out = make([]domain.User, 0, len(rows))
		for i := range rows {
			out = append(out, *rows[i].toDomain())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, id string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()

	var out *domain.User
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, "users?id=eq."+url.QueryEscape(id)+"&limit=1")
		if err != nil {
			return err
		}
		row, err := decodeOne[userRow](body, "user", id)
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUserByEmail")
	defer span.End()

	email = strings.ToLower(email)
	var out *domain.User
	err := c.call(ctx, func() error {
		body, err := c.doGet(ctx, "users?email=eq."+url.QueryEscape(email)+"&limit=1")
		if err != nil {
			return err
		}
		row, err := decodeOne[userRow](body, "user", email)
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateUser pre-checks the email before inserting. The check is best
// effort under concurrency; the table's unique index on email is the
// authoritative guard and surfaces as 409.
func (c *Client) CreateUser(ctx context.Context, in *domain.UserInput) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateUser")
	defer span.End()

	if err := in.Validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(in.Email)
	payload := map[string]any{
		"id":              uuid.NewString(),
		"name":            in.Name,
		"email":           email,
		"password_hash":   in.PasswordHash,
		"role":            string(in.Role),
		"organization_id": in.OrganizationID,
		"phone":           in.Phone,
		"sector":          in.Sector,
	}

	var out *domain.User
	err := c.mutate(ctx, func() error {
		existing, err := c.doGet(ctx, "users?select=id&email=eq."+url.QueryEscape(email)+"&limit=1")
		if err != nil {
			return err
		}
		if !empty(existing) {
			return resilience.Permanent(&domain.ErrConflict{Message: "email already in use"})
		}
		body, err := c.doPost(ctx, "users", payload)
		if err != nil {
			return err
		}
		row, err := decodeOne[userRow](body, "user", "")
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("user created", zap.String("id", out.ID), zap.String("role", string(out.Role)))
	return out, nil
}

func (c *Client) UpdateUser(ctx context.Context, id string, patch *domain.UserPatch) (*domain.User, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateUser")
	defer span.End()

	updates := map[string]any{}
	if patch.Name != nil {
		updates["name"] = *patch.Name
	}
	if patch.Email != nil {
		updates["email"] = strings.ToLower(*patch.Email)
	}
	if patch.PasswordHash != nil {
		updates["password_hash"] = *patch.PasswordHash
	}
	if patch.Role != nil {
		updates["role"] = string(*patch.Role)
	}
	if patch.OrganizationID != nil {
		updates["organization_id"] = *patch.OrganizationID
	}
	if patch.Phone != nil {
		updates["phone"] = *patch.Phone
	}
	if patch.Sector != nil {
		updates["sector"] = *patch.Sector
	}
	if len(updates) == 0 {
		return c.GetUser(ctx, id)
	}

	var out *domain.User
	err := c.mutate(ctx, func() error {
		body, err := c.doPatch(ctx, "users?id=eq."+url.QueryEscape(id), updates)
		if err != nil {
			return err
		}
		row, err := decodeOne[userRow](body, "user", id)
		if err != nil {
			return err
		}
		out = row.toDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteUser")
	defer span.End()

	return c.mutate(ctx, func() error {
		body, err := c.doGet(ctx, "users?id=eq."+url.QueryEscape(id)+"&limit=1")
		if err != nil {
			return err
		}
		row, err := decodeOne[userRow](body, "user", id)
		if err != nil {
			return err
		}
		if row.Role == string(domain.RoleSuperadmin) {
			n, err := c.countSuperadmins(ctx)
			if err != nil {
				return err
			}
			if n <= 1 {
				return resilience.Permanent(&domain.ErrConflict{Message: "cannot delete the last superadmin"})
			}
		}
		_, err = c.doDelete(ctx, "users?id=eq."+url.QueryEscape(id))
		return err
	})
}

func (c *Client) CountSuperadmins(ctx context.Context) (int, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CountSuperadmins")
	defer span.End()

	var n int
	err := c.call(ctx, func() error {
		count, err := c.countSuperadmins(ctx)
		if err != nil {
			return err
		}
		n = count
		return nil
	})
	return n, err
}

func (c *Client) countSuperadmins(ctx context.Context) (int, error) {
	body, err := c.doGet(ctx, "users?select=id&role=eq."+string(domain.RoleSuperadmin))
	if err != nil {
		return 0, err
	}
	rows, err := decodeMany[struct {
		ID string `json:"id"`
	}](body, "users")
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
