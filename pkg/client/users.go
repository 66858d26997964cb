package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

type usersResponse struct {
	Users []domain.User `json:"users"`
}

type userResponse struct {
	Message string      `json:"message"`
	User    domain.User `json:"user"`
}

// ListUsers returns every user visible to the caller.
func (c *Client) ListUsers(ctx context.Context) ([]domain.User, error) {
	var resp usersResponse
	if err := c.get(ctx, "/read_user", readQuery(modeListAll), &resp); err != nil {
		return nil, fmt.Errorf("client.ListUsers: %w", err)
	}
	return resp.Users, nil
}

// FilterUsers returns users whose field equals value.
func (c *Client) FilterUsers(ctx context.Context, field, value string) ([]domain.User, error) {
	var resp usersResponse
	q := readQuery(modeFilter, "field", field, "value", value)
	if err := c.get(ctx, "/read_user", q, &resp); err != nil {
		return nil, fmt.Errorf("client.FilterUsers: %w", err)
	}
	return resp.Users, nil
}

// GetUser fetches a single user.
func (c *Client) GetUser(ctx context.Context, id int) (*domain.User, error) {
	var resp usersResponse
	q := readQuery(modeByID, "user_id", strconv.Itoa(id))
	if err := c.get(ctx, "/read_user", q, &resp); err != nil {
		return nil, fmt.Errorf("client.GetUser: %w", err)
	}
	if len(resp.Users) == 0 {
		return nil, fmt.Errorf("client.GetUser: %w", notFound())
	}
	return &resp.Users[0], nil
}

// GetMe fetches the signed-in user's own record.
func (c *Client) GetMe(ctx context.Context) (*domain.User, error) {
	var resp usersResponse
	if err := c.get(ctx, "/read_user", readQuery(modeMyself), &resp); err != nil {
		return nil, fmt.Errorf("client.GetMe: %w", err)
	}
	if len(resp.Users) == 0 {
		return nil, fmt.Errorf("client.GetMe: %w", notFound())
	}
	return &resp.Users[0], nil
}

// CreateUser creates a user. The plain password is hashed before sending.
func (c *Client) CreateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	if u.Password != "" {
		u.Password = HashPassword(u.Password)
	}
	var resp userResponse
	if err := c.post(ctx, "/create_user", u, &resp); err != nil {
		return nil, fmt.Errorf("client.CreateUser: %w", err)
	}
	return &resp.User, nil
}

// UpdateUser updates profile fields. Passwords are changed with UpdateUserPassword.
func (c *Client) UpdateUser(ctx context.Context, u domain.User) (*domain.User, error) {
	u.Password = ""
	var resp userResponse
	if err := c.put(ctx, "/update_user", u, &resp); err != nil {
		return nil, fmt.Errorf("client.UpdateUser: %w", err)
	}
	return &resp.User, nil
}

// DeleteUser removes a user.
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	if err := c.del(ctx, "/delete_user", idQuery("user_id", id)); err != nil {
		return fmt.Errorf("client.DeleteUser: %w", err)
	}
	return nil
}

type passwordUpdate struct {
	UserID           int    `json:"user_id"`
	ExistingPassword string `json:"existing_password"`
	NewPassword      string `json:"new_password"`
}

// UpdateUserPassword changes a password. An empty existing password is an
// admin reset and is sent as-is; otherwise both passwords are hashed.
func (c *Client) UpdateUserPassword(ctx context.Context, id int, existing, next string) error {
	body := passwordUpdate{
		UserID:      id,
		NewPassword: HashPassword(next),
	}
	if existing != "" {
		body.ExistingPassword = HashPassword(existing)
	}
	if err := c.patch(ctx, "/update_user_password", body, nil); err != nil {
		return fmt.Errorf("client.UpdateUserPassword: %w", err)
	}
	return nil
}
