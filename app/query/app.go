package query

import (
	"context"
	"strings"
	"time"

	"github.com/dem-exchange/insightsx/app/query/types"
	"github.com/dem-exchange/insightsx/pkg/db"
	"github.com/dem-exchange/insightsx/pkg/db/postgres/insights"
	"github.com/dem-exchange/insightsx/pkg/fees"
	"github.com/dem-exchange/insightsx/pkg/logging"
	"github.com/dem-exchange/insightsx/pkg/pnl"
	"github.com/dem-exchange/insightsx/pkg/pool"
	"github.com/dem-exchange/insightsx/pkg/pricecache"
	"github.com/dem-exchange/insightsx/pkg/redis"
	"github.com/dem-exchange/insightsx/pkg/rpc"
	"github.com/dem-exchange/insightsx/pkg/timeseries"
	"github.com/dem-exchange/insightsx/pkg/utils"
	"github.com/facebookgo/clock"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"
)

const (
	defaultQueryTimeout = 30 * time.Second
	defaultFetchTimeout = 15 * time.Second
)

// network holds the defaults of one Carbon deployment.
type network struct {
	prefix      string
	hydrogenURL string
	nodeURL     string
}

var networks = map[string]network{
	"mainnet": {prefix: "swth", hydrogenURL: "https://hydrogen-api.carbon.network", nodeURL: "https://api.carbon.network"},
	"testnet": {prefix: "tswth", hydrogenURL: "https://test-hydrogen-api.carbon.network", nodeURL: "https://test-api.carbon.network"},
}

// LoadConfig reads the service configuration from the environment.
func LoadConfig(logger *zap.Logger) (types.Config, network) {
	env := strings.ToLower(utils.Env("CARBON_ENV", "mainnet"))
	net, ok := networks[env]
	if !ok {
		logger.Warn("Unknown CARBON_ENV, falling back to mainnet", zap.String("env", env))
		net = networks["mainnet"]
	}
	net.prefix = utils.Env("BECH32_PREFIX", net.prefix)

	floorStr := utils.Env("SERIES_FLOOR_DATE", "2019-01-01")
	floor, err := timeseries.ParseDay(floorStr)
	if err != nil {
		logger.Fatal("Invalid SERIES_FLOOR_DATE", zap.String("value", floorStr), zap.Error(err))
	}

	cfg := types.Config{
		Bech32Prefix:    net.prefix,
		SeriesFloor:     floor,
		QueryTimeout:    utils.EnvDuration("QUERY_TIMEOUT", defaultQueryTimeout),
		FundingLookback: time.Duration(utils.EnvInt("FUNDING_LOOKBACK_DAYS", 91)) * 24 * time.Hour,
		WarmCronSpec:    utils.Env("WARM_CRON", "*/30 * * * * *"),
		CorsOrigins:     utils.EnvList("CORS_ORIGINS", nil),
	}
	return cfg, net
}

// Initialize initializes the application.
func Initialize(ctx context.Context) *types.App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr'
		panic(err)
	}

	cfg, net := LoadConfig(logger)

	store, err := insights.Open(ctx, logger)
	if err != nil {
		logger.Fatal("Unable to initialize insights database", zap.Error(err))
	}

	// Initialize Redis client for the feed mirror (optional)
	var (
		redisClient *redis.Client
		feedOpts    []pricecache.Option
	)
	if utils.Env("REDIS_ENABLED", "false") == "true" {
		redisClient, err = redis.NewClient(ctx, logger)
		if err != nil {
			logger.Warn("Failed to initialize Redis client - feed mirror will be disabled",
				zap.Error(err))
			redisClient = nil
		} else {
			logger.Info("Redis client initialized for the feed mirror")
			feedOpts = append(feedOpts, pricecache.WithMirror(redis.NewFeedMirror(redisClient, logger)))
		}
	} else {
		logger.Info("Redis disabled - feed snapshots will not be mirrored")
	}

	fetchTimeout := utils.EnvDuration("FEED_FETCH_TIMEOUT", defaultFetchTimeout)
	hydrogen := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints: utils.EnvList("HYDROGEN_BASE_URL", []string{net.hydrogenURL}),
		Timeout:   fetchTimeout,
	})
	node := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints: utils.EnvList("NODE_BASE_URL", []string{net.nodeURL}),
		Timeout:   fetchTimeout,
	})

	clk := clock.New()
	feedOpts = append(feedOpts, pricecache.WithClock(clk), pricecache.WithFetchTimeout(fetchTimeout))
	feeds := pricecache.NewFeeds(hydrogen, node, node, pricecache.Config{
		TokenTTL: utils.EnvDuration("TOKEN_PRICES_TTL", pricecache.DefaultConfig().TokenTTL),
		MarkTTL:  utils.EnvDuration("MARKET_MARKS_TTL", pricecache.DefaultConfig().MarkTTL),
		PoolTTL:  utils.EnvDuration("POOL_REGISTRY_TTL", pricecache.DefaultConfig().PoolTTL),
	}, logger, feedOpts...)

	app := NewApp(store, feeds, clk, cfg, logger)
	app.RedisClient = redisClient

	if err := SetupScheduler(ctx, app); err != nil {
		logger.Fatal("Unable to schedule feed warm-up", zap.Error(err), zap.String("cronSpec", cfg.WarmCronSpec))
	}

	logger.Info("Query service initialized",
		zap.String("bech32Prefix", cfg.Bech32Prefix),
		zap.Strings("hydrogen", hydrogen.Endpoints()),
		zap.Strings("node", node.Endpoints()),
		zap.Stringer("seriesFloor", cfg.SeriesFloor))

	return app
}

// NewApp wires the engines over a store and the feeds.
func NewApp(store db.InsightsStore, feeds *pricecache.Feeds, clk clock.Clock, cfg types.Config, logger *zap.Logger) *types.App {
	byName := xsync.NewMap[string, pricecache.Warmer]()
	for _, f := range feeds.All() {
		byName.Store(f.Name(), f)
	}

	reconciler := pnl.NewReconciler(store, feeds.Marks, logger.Named("pnl"))
	aggregator := fees.New(store, feeds.Marks, clk, cfg.FundingLookback, logger.Named("fees"))
	engine := pool.NewEngine(store, reconciler, aggregator, feeds.Pools, pool.NewVaults(cfg.Bech32Prefix), clk, cfg.SeriesFloor, logger.Named("pool"))

	return &types.App{
		DB:          store,
		Feeds:       feeds,
		FeedsByName: byName,
		Reconciler:  reconciler,
		Aggregator:  aggregator,
		Pools:       engine,
		Clock:       clk,
		Config:      cfg,
		Logger:      logger,
	}
}
