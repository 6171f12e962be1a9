package rpc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// TokenPrice is one entry of the token price feed.
type TokenPrice struct {
	Denom    string          `json:"denom"`
	PriceUSD decimal.Decimal `json:"price_usd"`
	Decimals int32           `json:"decimals"`
}

type tokensResponse struct {
	Data []TokenPrice `json:"data"`
}

// TokenPrices returns USD prices and decimal precision for every listed token.
func (c *HTTPClient) TokenPrices(ctx context.Context) ([]TokenPrice, error) {
	var resp tokensResponse
	if err := c.doJSON(ctx, http.MethodGet, tokensPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch token prices: %w", err)
	}
	return resp.Data, nil
}
