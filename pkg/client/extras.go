package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

type extrasResponse struct {
	OptionalExtras []domain.OptionalExtra `json:"optional_extras"`
}

type extraResponse struct {
	Message       string               `json:"message"`
	OptionalExtra domain.OptionalExtra `json:"optional_extra"`
}

// ListExtras returns the extras catalogue.
func (c *Client) ListExtras(ctx context.Context) ([]domain.OptionalExtra, error) {
	var resp extrasResponse
	if err := c.get(ctx, "/read_optional_extra", readQuery(modeListAll), &resp); err != nil {
		return nil, fmt.Errorf("client.ListExtras: %w", err)
	}
	return resp.OptionalExtras, nil
}

// GetExtra fetches one extra.
func (c *Client) GetExtra(ctx context.Context, id int) (*domain.OptionalExtra, error) {
	var resp extrasResponse
	q := readQuery(modeByID, "extra_id", strconv.Itoa(id))
	if err := c.get(ctx, "/read_optional_extra", q, &resp); err != nil {
		return nil, fmt.Errorf("client.GetExtra: %w", err)
	}
	if len(resp.OptionalExtras) == 0 {
		return nil, fmt.Errorf("client.GetExtra: %w", notFound())
	}
	return &resp.OptionalExtras[0], nil
}

// CreateExtra adds an extra to the catalogue. Admin only.
func (c *Client) CreateExtra(ctx context.Context, e domain.OptionalExtra) (*domain.OptionalExtra, error) {
	var resp extraResponse
	if err := c.post(ctx, "/create_optional_extra", e, &resp); err != nil {
		return nil, fmt.Errorf("client.CreateExtra: %w", err)
	}
	return &resp.OptionalExtra, nil
}

// UpdateExtra replaces an extra. Admin only.
func (c *Client) UpdateExtra(ctx context.Context, e domain.OptionalExtra) (*domain.OptionalExtra, error) {
	var resp extraResponse
	if err := c.put(ctx, "/update_optional_extra", e, &resp); err != nil {
		return nil, fmt.Errorf("client.UpdateExtra: %w", err)
	}
	return &resp.OptionalExtra, nil
}

// DeleteExtra removes an extra. Admin only.
func (c *Client) DeleteExtra(ctx context.Context, id int) error {
	if err := c.del(ctx, "/delete_optional_extra", idQuery("extra_id", id)); err != nil {
		return fmt.Errorf("client.DeleteExtra: %w", err)
	}
	return nil
}
