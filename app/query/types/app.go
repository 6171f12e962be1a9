package types

import (
	"context"
	"net/http"
	"time"

	"github.com/dem-exchange/insightsx/pkg/db"
	"github.com/dem-exchange/insightsx/pkg/fees"
	"github.com/dem-exchange/insightsx/pkg/pnl"
	"github.com/dem-exchange/insightsx/pkg/pool"
	"github.com/dem-exchange/insightsx/pkg/pricecache"
	"github.com/dem-exchange/insightsx/pkg/redis"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/facebookgo/clock"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Config is the environment-derived configuration of the query service.
type Config struct {
	// Bech32Prefix encodes pool vault addresses (swth on mainnet, tswth on testnet).
	Bech32Prefix string
	// SeriesFloor is the earliest ledger day; every running sum starts here.
	SeriesFloor timeseries.Day
	// QueryTimeout bounds the store work of one request.
	QueryTimeout time.Duration
	// FundingLookback bounds scans of the position archive.
	FundingLookback time.Duration
	// WarmCronSpec schedules feed warm-ups (with seconds).
	WarmCronSpec string
	// CorsOrigins is the allow-list; empty echoes the request origin.
	CorsOrigins []string
}

type App struct {
	DB db.InsightsStore

	// Feeds are the process-wide upstream caches, also indexed by name in FeedsByName.
	Feeds       *pricecache.Feeds
	FeedsByName *xsync.Map[string, pricecache.Warmer]

	Reconciler *pnl.Reconciler
	Aggregator *fees.Aggregator
	Pools      *pool.Engine

	// RedisClient is nil when the feed mirror is disabled.
	RedisClient *redis.Client

	// Cron periodically warms the feeds, according to Config.WarmCronSpec.
	Cron *cron.Cron

	Clock  clock.Clock
	Config Config

	// Zap Logger
	Logger *zap.Logger
	// Server represents the HTTP server instance used to handle incoming client requests and manage HTTP routes.
	Server *http.Server
}

// Feed returns the cache registered under name.
func (a *App) Feed(name string) (pricecache.Warmer, bool) {
	return a.FeedsByName.Load(name)
}

// Start starts the application.
func (a *App) Start(ctx context.Context) {
	go func() {
		if err := a.Server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.Logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	a.StartCron()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = a.Server.Shutdown(shutdownCtx)
	a.StopCron()

	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Logger.Error("Failed to close redis connection", zap.Error(err))
		}
	}
	a.DB.Close()

	time.Sleep(200 * time.Millisecond)
	a.Logger.Info("さようなら!")
}

// StartCron starts the warm-up scheduler.
func (a *App) StartCron() {
	if a.Cron == nil {
		return
	}
	a.Cron.Start()
	a.Logger.Info("Feed warm-up cron started", zap.String("cronSpec", a.Config.WarmCronSpec))
}

// StopCron stops the scheduler and waits for a running warm-up to finish.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}
