package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rogerio-castellano/pos-terminal/internal/pos"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// newScheduler registers the periodic sync pass. A pass still running when
// the next tick fires makes that tick a no-op.
func newScheduler(svc *pos.Service, schedule, outletID string, timeout time.Duration, log *zap.Logger) (*cron.Cron, error) {
	cronLog := cron.PrintfLogger(zap.NewStdLog(log))
	sched := cron.New(
		cron.WithParser(cronParser),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	_, err := sched.AddFunc(schedule, func() {
		runScheduledSync(context.Background(), svc, outletID, timeout, log)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid sync schedule %q: %w", schedule, err)
	}
	return sched, nil
}

// runScheduledSync drains the queues and, when the terminal has an outlet,
// refreshes its catalog cache.
func runScheduledSync(ctx context.Context, svc *pos.Service, outletID string, timeout time.Duration, log *zap.Logger) {
	res, err := svc.SyncNow(ctx)
	if err != nil {
		log.Error("scheduled sync failed", zap.Error(err))
	} else if res.Synced > 0 || len(res.Failed) > 0 || res.OutboxSent > 0 || res.OutboxFailed > 0 {
		log.Info("scheduled sync",
			zap.Int("synced", res.Synced),
			zap.Int("failed", len(res.Failed)),
			zap.Int("outbox_sent", res.OutboxSent))
	}

	if outletID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if products, err := svc.RefreshCatalog(ctx, outletID); err != nil {
		log.Debug("catalog refresh skipped, remote unavailable", zap.Error(err))
	} else {
		log.Debug("catalog refreshed", zap.String("outlet_id", outletID), zap.Int("products", len(products)))
	}
}
