package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

const refreshPath = "/refresh_token"

// tokenResponse is the body returned by both the login and refresh endpoints.
type tokenResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	TokenType    string             `json:"token_type"`
	User         domain.SessionUser `json:"user"`
}

func (t tokenResponse) session() (*domain.Session, error) {
	if t.AccessToken == "" || t.RefreshToken == "" {
		return nil, errors.New("token response is missing a token")
	}
	return &domain.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         t.User,
	}, nil
}

// Refresh exchanges the stored refresh token for a new session and replaces
// the stored one. Concurrent callers share a single request to the backend,
// which keeps running when one of them gives up.
//
// A refresh the backend refuses, or answers with an unusable payload, ends the
// session: the store is cleared, the expiry handler runs once and the error
// wraps ErrSessionExpired. Transport failures and a cancelled ctx leave the
// store as it was.
func (c *Client) Refresh(ctx context.Context) (*domain.Session, error) {
	ch := c.refreshes.DoChan(refreshPath, func() (any, error) {
		rctx, cancel := c.detached(ctx)
		defer cancel()
		return c.refresh(rctx)
	})
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("client.Refresh: %w", &HTTPError{Message: MsgNetworkError, Cause: ctx.Err()})
	case res := <-ch:
		if res.Err != nil {
			return nil, fmt.Errorf("client.Refresh: %w", res.Err)
		}
		if res.Shared {
			c.log.Debug().Msg("joined in-flight refresh")
		}
		return res.Val.(*domain.Session), nil
	}
}

// detached derives a context for work shared between callers. It keeps ctx's
// values but not its cancellation, and is bounded by the client timeout.
func (c *Client) detached(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if c.timeout <= 0 {
		return context.WithCancel(base)
	}
	return context.WithTimeout(base, c.timeout)
}

func (c *Client) refresh(ctx context.Context) (*domain.Session, error) {
	current, err := c.store.Get()
	if err != nil {
		return nil, err
	}
	if current == nil || current.RefreshToken == "" {
		return nil, ErrNoSession
	}

	c.log.Debug().Msg("refreshing session")
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(refreshPath), http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+current.RefreshToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &HTTPError{Message: MsgNetworkError, Cause: err}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &HTTPError{Message: MsgNetworkError, Cause: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, c.endSession(&HTTPError{
			StatusCode: resp.StatusCode,
			Message:    ExtractErrorMessage(decodeErrorBody(body)),
		}, c.log)
	}

	var tr tokenResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&tr); err != nil {
		return nil, c.endSession(fmt.Errorf("decode response: %w", err), c.log)
	}
	next, err := tr.session()
	if err != nil {
		return nil, c.endSession(err, c.log)
	}
	if err := c.store.Set(next); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	c.log.Info().Str("username", next.User.Username).Msg("session refreshed")
	return next, nil
}
