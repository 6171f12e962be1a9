package pricecache

import (
	"context"
	"time"

	"github.com/dem-exchange/insightsx/pkg/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	FeedTokens = "tokens"
	FeedMarks  = "marks"
	FeedPools  = "pools"
)

// TokenInfo is the cached price and precision of a denom.
type TokenInfo struct {
	PriceUSD decimal.Decimal `json:"price_usd"`
	Decimals int32           `json:"decimals"`
}

// TokenPrices is keyed by denom.
type TokenPrices map[string]TokenInfo

// MarkPrices holds raw marks keyed by market id.
type MarkPrices map[string]decimal.Decimal

// PoolRegistry is keyed by pool id.
type PoolRegistry map[string]rpc.RegistryPool

// PriceSource serves the token and mark feeds.
type PriceSource interface {
	TokenPrices(ctx context.Context) ([]rpc.TokenPrice, error)
}

// MarkSource serves market marks.
type MarkSource interface {
	MarkPrices(ctx context.Context) ([]rpc.MarkPrice, error)
}

// RegistrySource lists the pools known to the chain.
type RegistrySource interface {
	Pools(ctx context.Context) ([]rpc.RegistryPool, error)
}

// Config sets per-feed TTLs.
type Config struct {
	TokenTTL time.Duration
	MarkTTL  time.Duration
	PoolTTL  time.Duration
}

// DefaultConfig mirrors the upstream refresh cadence.
func DefaultConfig() Config {
	return Config{TokenTTL: 5 * time.Minute, MarkTTL: time.Minute, PoolTTL: 5 * time.Minute}
}

// Warmer is the feed-agnostic view of a Cache.
type Warmer interface {
	Name() string
	Warm(ctx context.Context) error
	Status() (bool, time.Time)
}

// Feeds bundles the process-wide caches. Each feed refreshes independently.
type Feeds struct {
	Tokens *Cache[TokenPrices]
	Marks  *Cache[MarkPrices]
	Pools  *Cache[PoolRegistry]
}

// NewFeeds builds the three caches over their upstream sources.
func NewFeeds(prices PriceSource, marks MarkSource, registry RegistrySource, cfg Config, logger *zap.Logger, opts ...Option) *Feeds {
	return &Feeds{
		Tokens: New(FeedTokens, cfg.TokenTTL, func(ctx context.Context) (TokenPrices, error) {
			list, err := prices.TokenPrices(ctx)
			if err != nil {
				return nil, err
			}
			out := make(TokenPrices, len(list))
			for _, t := range list {
				out[t.Denom] = TokenInfo{PriceUSD: t.PriceUSD, Decimals: t.Decimals}
			}
			return out, nil
		}, logger, opts...),
		Marks: New(FeedMarks, cfg.MarkTTL, func(ctx context.Context) (MarkPrices, error) {
			list, err := marks.MarkPrices(ctx)
			if err != nil {
				return nil, err
			}
			out := make(MarkPrices, len(list))
			for _, m := range list {
				out[m.MarketID] = m.Mark
			}
			return out, nil
		}, logger, opts...),
		Pools: New(FeedPools, cfg.PoolTTL, func(ctx context.Context) (PoolRegistry, error) {
			list, err := registry.Pools(ctx)
			if err != nil {
				return nil, err
			}
			out := make(PoolRegistry, len(list))
			for _, p := range list {
				out[p.ID] = p
			}
			return out, nil
		}, logger, opts...),
	}
}

// All lists the feeds for warm-up and health reporting.
func (f *Feeds) All() []Warmer {
	return []Warmer{f.Tokens, f.Marks, f.Pools}
}
