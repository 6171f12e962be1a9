package controller

import (
	"net/http"
	"time"

	"github.com/dem-exchange/insightsx/pkg/pricecache"
	"github.com/go-jose/go-jose/v4/json"
)

type feedHealth struct {
	Hydrated  bool       `json:"hydrated"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

// HandleHealth pings the store and reports which feeds are hydrated. Feeds that are
// not hydrated yet do not fail the check.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := c.App.DB.Ping(ctx); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "errored", "error": "database connection error"})
		return
	}

	feeds := map[string]feedHealth{}
	c.App.FeedsByName.Range(func(name string, f pricecache.Warmer) bool {
		hydrated, fetchedAt := f.Status()
		h := feedHealth{Hydrated: hydrated}
		if hydrated {
			h.FetchedAt = &fetchedAt
		}
		feeds[name] = h
		return true
	})

	status := map[string]any{"status": "ok", "feeds": feeds}
	if c.App.RedisClient != nil {
		status["redis"] = "ok"
		if err := c.App.RedisClient.Health(ctx); err != nil {
			status["redis"] = "errored"
		}
	}

	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(status)
}
