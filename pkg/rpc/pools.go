package rpc

import (
	"context"
	"fmt"
	"net/http"
)

// RegistryPool is a perps liquidity pool as listed by the chain registry.
type RegistryPool struct {
	ID           string `json:"id"`
	Denom        string `json:"denom"`
	DepositDenom string `json:"deposit_denom"`
	Name         string `json:"name,omitempty"`
}

type poolsResponse struct {
	Pools []RegistryPool `json:"pools"`
}

// Pools returns every registered pool.
func (c *HTTPClient) Pools(ctx context.Context) ([]RegistryPool, error) {
	var resp poolsResponse
	if err := c.doJSON(ctx, http.MethodGet, poolsPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch pools: %w", err)
	}
	return resp.Pools, nil
}
