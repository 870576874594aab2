package backend

import (
	"context"
	"net/http"

	"pals-portal/internal/domain/model"
	"pals-portal/internal/domain/ports/adapter"
)

var (
	_ adapter.GeographyBackend = (*Client)(nil)
	_ adapter.TenantBackend    = (*Client)(nil)
)

func (c *Client) States(ctx context.Context) ([]model.State, error) {
	var out []model.State
	if err := c.call(ctx, "lga_states", http.MethodGet, c.endpoint("lga", "states"), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) LGAs(ctx context.Context, state string) ([]model.LGA, error) {
	var out []model.LGA
	if err := c.call(ctx, "lga_list", http.MethodGet, c.endpoint("lga", "states", state, "lgas"), "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CurrentTenant(ctx context.Context) (*model.Tenant, error) {
	var out model.Tenant
	if err := c.call(ctx, "tenant", http.MethodGet, c.endpoint("tenant", "current"), "", nil, &out); err != nil {
		return nil, err
	}
	if out.Code == "" {
		out.Code = c.tenant
	}
	return &out, nil
}
