package query

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/alitto/pond/v2"
	"github.com/dem-exchange/insightsx/app/query/types"
	"github.com/dem-exchange/insightsx/pkg/pricecache"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger routes cron's own messages through zap.
type cronLogger struct {
	sugar *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, append(keysAndValues, "error", err)...)
}

// SetupScheduler registers the periodic feed warm-up on a fresh cron.
func SetupScheduler(ctx context.Context, app *types.App) error {
	logger := cronLogger{sugar: app.Logger.Sugar()}
	// Seconds field, optional
	app.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	feeds := make([]pricecache.Warmer, 0)
	app.FeedsByName.Range(func(_ string, w pricecache.Warmer) bool {
		feeds = append(feeds, w)
		return true
	})
	workers := pond.NewPool(max(len(feeds), 1), pond.WithQueueSize(max(len(feeds), 1)))

	_, err := app.Cron.AddFunc(app.Config.WarmCronSpec, func() {
		// keep each run bounded
		rctx, cancel := context.WithTimeout(ctx, 25*time.Second)
		defer cancel()
		WarmFeeds(rctx, workers, feeds, app.Logger)
	})
	return err
}

// WarmFeeds hydrates or refreshes every due feed concurrently and returns how many
// failed. Failures are logged only; requests keep being served from what is cached.
func WarmFeeds(ctx context.Context, workers pond.Pool, feeds []pricecache.Warmer, logger *zap.Logger) int {
	group := workers.NewGroupContext(ctx)
	groupCtx := group.Context()

	var failed atomic.Int32
	for _, feed := range feeds {
		group.Submit(func() {
			if err := groupCtx.Err(); err != nil {
				return
			}
			start := time.Now()
			if err := feed.Warm(groupCtx); err != nil {
				failed.Add(1)
				logger.Warn("feed warm-up failed", zap.String("feed", feed.Name()), zap.Error(err))
				return
			}
			logger.Debug("feed warm", zap.String("feed", feed.Name()), zap.Duration("took", time.Since(start)))
		})
	}

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		logger.Warn("feed warm-up group encountered error", zap.Error(err))
	}
	return int(failed.Load())
}
