package redis

import (
	"context"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"go.uber.org/zap"
)

// FeedRefreshedChannel announces every mirrored feed refresh.
const FeedRefreshedChannel = "insights:feed.refreshed"

// FeedKey is the key holding the latest snapshot of a feed.
func FeedKey(feed string) string {
	return "insights:feed:" + feed
}

// FeedRefreshedEvent is published on FeedRefreshedChannel.
type FeedRefreshedEvent struct {
	Feed      string    `json:"feed"`
	Key       string    `json:"key"`
	FetchedAt time.Time `json:"fetched_at"`
}

type store interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Publish(ctx context.Context, channel string, message interface{})
}

// FeedMirror copies refreshed feed snapshots to Redis so other processes can read
// prices without hitting the upstream feeds.
type FeedMirror struct {
	store   store
	logger  *zap.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewFeedMirror(client *Client, logger *zap.Logger) *FeedMirror {
	return newFeedMirror(client, logger, time.Now)
}

func newFeedMirror(s store, logger *zap.Logger, now func() time.Time) *FeedMirror {
	return &FeedMirror{store: s, logger: logger, timeout: 3 * time.Second, now: now}
}

// Store writes the snapshot and announces it. Failures are logged only.
func (m *FeedMirror) Store(ctx context.Context, feed string, snapshot any) {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		m.logger.Warn("Failed to encode feed snapshot", zap.String("feed", feed), zap.Error(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), m.timeout)
	defer cancel()

	key := FeedKey(feed)
	if err := m.store.Set(ctx, key, payload, 0); err != nil {
		m.logger.Warn("Failed to mirror feed snapshot", zap.String("feed", feed), zap.Error(err))
		return
	}

	event, err := json.Marshal(FeedRefreshedEvent{Feed: feed, Key: key, FetchedAt: m.now().UTC()})
	if err != nil {
		return
	}
	m.store.Publish(ctx, FeedRefreshedChannel, event)
	m.logger.Debug("Mirrored feed snapshot", zap.String("feed", feed), zap.Int("bytes", len(payload)))
}
