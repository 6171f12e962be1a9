package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeStore struct {
	sets      map[string][]byte
	published map[string][][]byte
	setErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sets: map[string][]byte{}, published: map[string][][]byte{}}
}

func (f *fakeStore) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.sets[key] = value.([]byte)
	return nil
}

func (f *fakeStore) Publish(_ context.Context, channel string, message interface{}) {
	f.published[channel] = append(f.published[channel], message.([]byte))
}

func TestFeedMirror_StoresAndAnnounces(t *testing.T) {
	fetchedAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s := newFakeStore()
	m := newFeedMirror(s, zaptest.NewLogger(t), func() time.Time { return fetchedAt })

	m.Store(context.Background(), "marks", map[string]string{"cmkt/1": "42"})

	require.Contains(t, s.sets, "insights:feed:marks")
	assert.JSONEq(t, `{"cmkt/1":"42"}`, string(s.sets["insights:feed:marks"]))

	require.Len(t, s.published[FeedRefreshedChannel], 1)
	var event FeedRefreshedEvent
	require.NoError(t, json.Unmarshal(s.published[FeedRefreshedChannel][0], &event))
	assert.Equal(t, FeedRefreshedEvent{Feed: "marks", Key: "insights:feed:marks", FetchedAt: fetchedAt}, event)
}

func TestFeedMirror_SetFailureSkipsAnnouncement(t *testing.T) {
	s := newFakeStore()
	s.setErr = errors.New("READONLY")
	m := newFeedMirror(s, zaptest.NewLogger(t), time.Now)

	m.Store(context.Background(), "tokens", map[string]int{"swth": 8})

	assert.Empty(t, s.published)
}

func TestFeedMirror_CancelledCallerStillMirrors(t *testing.T) {
	s := newFakeStore()
	m := newFeedMirror(s, zaptest.NewLogger(t), time.Now)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m.Store(ctx, "pools", []string{"1"})

	assert.Contains(t, s.sets, "insights:feed:pools")
}
