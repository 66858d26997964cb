package client

import (
	"context"
	"fmt"
	"strconv"

	"github.com/naveenspark/carpolicy/pkg/domain"
)

type policiesResponse struct {
	Policies []domain.PolicyWithExtras `json:"policies"`
}

type policyResponse struct {
	Message        string                    `json:"message"`
	Policy         domain.CarInsurancePolicy `json:"policy"`
	OptionalExtras []domain.OptionalExtra    `json:"optional_extras"`
}

func (r policyResponse) withExtras() *domain.PolicyWithExtras {
	return &domain.PolicyWithExtras{Policy: r.Policy, OptionalExtras: r.OptionalExtras}
}

// ListPolicies returns every policy visible to the caller.
func (c *Client) ListPolicies(ctx context.Context) ([]domain.PolicyWithExtras, error) {
	var resp policiesResponse
	if err := c.get(ctx, "/read_car_insurance_policy", readQuery(modeListAll), &resp); err != nil {
		return nil, fmt.Errorf("client.ListPolicies: %w", err)
	}
	return resp.Policies, nil
}

// MyPolicies returns the signed-in user's policies.
func (c *Client) MyPolicies(ctx context.Context) ([]domain.PolicyWithExtras, error) {
	var resp policiesResponse
	if err := c.get(ctx, "/read_car_insurance_policy", readQuery(modeMyself), &resp); err != nil {
		return nil, fmt.Errorf("client.MyPolicies: %w", err)
	}
	return resp.Policies, nil
}

// FilterPolicies returns policies whose field equals value.
func (c *Client) FilterPolicies(ctx context.Context, field, value string) ([]domain.PolicyWithExtras, error) {
	var resp policiesResponse
	q := readQuery(modeFilter, "field", field, "value", value)
	if err := c.get(ctx, "/read_car_insurance_policy", q, &resp); err != nil {
		return nil, fmt.Errorf("client.FilterPolicies: %w", err)
	}
	return resp.Policies, nil
}

// GetPolicy fetches a single policy with its extras.
func (c *Client) GetPolicy(ctx context.Context, id int) (*domain.PolicyWithExtras, error) {
	var resp policiesResponse
	q := readQuery(modeByID, "policy_id", strconv.Itoa(id))
	if err := c.get(ctx, "/read_car_insurance_policy", q, &resp); err != nil {
		return nil, fmt.Errorf("client.GetPolicy: %w", err)
	}
	if len(resp.Policies) == 0 {
		return nil, fmt.Errorf("client.GetPolicy: %w", notFound())
	}
	return &resp.Policies[0], nil
}

// CreatePolicy creates a policy with the given extras attached.
func (c *Client) CreatePolicy(ctx context.Context, p domain.CarInsurancePolicy, extras []domain.OptionalExtra) (*domain.PolicyWithExtras, error) {
	body := struct {
		Policy         domain.CarInsurancePolicy `json:"policy"`
		OptionalExtras []domain.OptionalExtra    `json:"optional_extras"`
	}{p, nonNilExtras(extras)}

	var resp policyResponse
	if err := c.post(ctx, "/create_car_insurance_policy", body, &resp); err != nil {
		return nil, fmt.Errorf("client.CreatePolicy: %w", err)
	}
	return resp.withExtras(), nil
}

// UpdatePolicy replaces a policy and its set of extras.
func (c *Client) UpdatePolicy(ctx context.Context, p domain.CarInsurancePolicy, extras []domain.OptionalExtra) (*domain.PolicyWithExtras, error) {
	body := struct {
		UpdatedPolicy  domain.CarInsurancePolicy `json:"updated_policy"`
		OptionalExtras []domain.OptionalExtra    `json:"optional_extras"`
	}{p, nonNilExtras(extras)}

	var resp policyResponse
	if err := c.put(ctx, "/update_car_insurance_policy", body, &resp); err != nil {
		return nil, fmt.Errorf("client.UpdatePolicy: %w", err)
	}
	return resp.withExtras(), nil
}

// DeletePolicy removes a policy.
func (c *Client) DeletePolicy(ctx context.Context, id int) error {
	if err := c.del(ctx, "/delete_car_insurance_policy", idQuery("policy_id", id)); err != nil {
		return fmt.Errorf("client.DeletePolicy: %w", err)
	}
	return nil
}

func nonNilExtras(extras []domain.OptionalExtra) []domain.OptionalExtra {
	if extras == nil {
		return []domain.OptionalExtra{}
	}
	return extras
}
