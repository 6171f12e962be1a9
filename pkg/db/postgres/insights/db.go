// Package insights reads the ledger, position and rollup tables that feed the
// analytics engine. Every query is parameterized and bounded by day, hour or block
// height so that wide windows never scan the full archives.
package insights

import (
	"context"
	"fmt"
	"time"

	"github.com/dem-exchange/insightsx/pkg/db/postgres"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// DB runs the analytics queries against the shared pool or, when present, the
// request-scoped connection bound to the context.
type DB struct {
	*postgres.Client
}

// New wraps a connected client.
func New(client *postgres.Client) *DB {
	return &DB{Client: client}
}

// Open connects with the query component pool settings.
func Open(ctx context.Context, logger *zap.Logger) (*DB, error) {
	client, err := postgres.New(ctx, logger.With(zap.String("component", "query")))
	if err != nil {
		return nil, err
	}
	return New(client), nil
}

// MinBlockHeightSince returns the first block at or after since. ok is false when no
// block has been produced since then.
func (db *DB) MinBlockHeightSince(ctx context.Context, since time.Time) (height int64, ok bool, err error) {
	query := `
		SELECT block_height
		FROM blocks
		WHERE time >= $1
		ORDER BY time ASC
		LIMIT 1
	`
	err = db.GetExecutor(ctx).QueryRow(ctx, query, since).Scan(&height)
	if postgres.IsNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get min block height: %w", err)
	}
	return height, true, nil
}

// parseDecimals converts ::text numeric columns.
func parseDecimals(dst []*decimal.Decimal, src ...string) error {
	for i, s := range src {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return fmt.Errorf("invalid numeric %q: %w", s, err)
		}
		*dst[i] = d
	}
	return nil
}

