package rpc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// MarkPrice is the raw on-chain mark of a market, before precision scaling.
type MarkPrice struct {
	MarketID string          `json:"market_id"`
	Mark     decimal.Decimal `json:"mark"`
}

type pricesResponse struct {
	Prices []MarkPrice `json:"prices"`
}

// MarkPrices returns the current mark of every market.
func (c *HTTPClient) MarkPrices(ctx context.Context) ([]MarkPrice, error) {
	var resp pricesResponse
	if err := c.doJSON(ctx, http.MethodGet, pricesPath, nil, &resp); err != nil {
		return nil, fmt.Errorf("fetch mark prices: %w", err)
	}
	return resp.Prices, nil
}
