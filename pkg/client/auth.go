package client

import (
	"context"
	"crypto/md5" //nolint:gosec // the backend expects MD5-hex passwords
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

// Failure messages shown when the backend gives no detail.
const (
	MsgLoginFailed        = "Login failed"
	MsgRegistrationFailed = "Registration failed."
)

// HashPassword returns the lowercase MD5 hex digest the backend stores and
// compares passwords as.
func HashPassword(password string) string {
	sum := md5.Sum([]byte(password)) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Login authenticates with username and password and stores the new session.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.Session, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", HashPassword(password))

	out, err := c.Do(ctx, RequestSpec{
		URL:       "/token",
		Method:    http.MethodPost,
		Form:      form,
		Anonymous: true,
	})
	if err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("client.Login: %w", withFallback(out, MsgLoginFailed).Err())
	}

	var tr tokenResponse
	if err := out.Decode(&tr); err != nil {
		return nil, fmt.Errorf("client.Login: decode response: %w", err)
	}
	s, err := tr.session()
	if err != nil {
		return nil, fmt.Errorf("client.Login: %w", err)
	}
	if err := c.store.Set(s); err != nil {
		return nil, fmt.Errorf("client.Login: store session: %w", err)
	}
	c.log.Info().Str("username", s.User.Username).Msg("logged in")
	return s, nil
}

// Register creates a new account. It does not sign the user in.
func (c *Client) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	body := domain.User{
		Username: req.Username,
		Password: HashPassword(req.Password),
		Email:    req.Email,
		IsAdmin:  req.IsAdmin,
	}

	out, err := c.Do(ctx, RequestSpec{
		URL:       "/register_user",
		Method:    http.MethodPost,
		Body:      body,
		Anonymous: true,
	})
	if err != nil {
		return nil, fmt.Errorf("client.Register: %w", err)
	}
	if !out.Success {
		return nil, fmt.Errorf("client.Register: %w", withFallback(out, MsgRegistrationFailed).Err())
	}

	var resp struct {
		User domain.User `json:"user"`
	}
	if err := out.Decode(&resp); err != nil {
		return nil, fmt.Errorf("client.Register: decode response: %w", err)
	}
	return &resp.User, nil
}

// VerifyAuthentication asks the backend whether the stored access token is valid.
func (c *Client) VerifyAuthentication(ctx context.Context) (*domain.Verification, error) {
	var v domain.Verification
	if err := c.post(ctx, "/verify_authentication", nil, &v); err != nil {
		return nil, fmt.Errorf("client.VerifyAuthentication: %w", err)
	}
	return &v, nil
}

// Logout discards the stored session. The backend keeps no server-side state.
func (c *Client) Logout() error {
	if err := c.store.Clear(); err != nil {
		return fmt.Errorf("client.Logout: %w", err)
	}
	c.log.Info().Msg("logged out")
	return nil
}

// withFallback replaces the generic extraction result with a screen-specific
// message when the backend sent no usable detail.
func withFallback(out Outcome, fallback string) Outcome {
	switch out.Message {
	case "", MsgNoPayload, MsgGenericError, MsgUnknown:
		out.Message = fallback
	}
	return out
}
