// Package sweep schedules the background stale-entry sweep of the durable
// snapshot cache. The whole-blob age check at load time is the safety net;
// sweeping keeps a long-running session from carrying dead threads around.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/adhocore/gronx"

	"codexmonitor/pkg/cache"
	"codexmonitor/pkg/config"
	"codexmonitor/pkg/logger"
)

// DefaultCron runs the sweep daily at 03:00.
const DefaultCron = "0 3 * * *"

// Start launches the sweep scheduler when enabled and returns a cancel
// func. A disabled sweep returns a no-op cancel.
func Start(ctx context.Context, cfg config.SweepConfig, c *cache.Cache) (context.CancelFunc, error) {
	if !cfg.Enabled || c == nil {
		logger.Info("sweep_disabled")
		return func() {}, nil
	}

	cronExpr := cfg.Cron
	if cronExpr == "" {
		cronExpr = DefaultCron
	}
	if !gronx.IsValid(cronExpr) {
		logger.Error("sweep_invalid_cron", "cron", cfg.Cron)
		return nil, fmt.Errorf("invalid sweep cron expression: %s", cfg.Cron)
	}

	ctx2, cancel := context.WithCancel(ctx)
	go runScheduler(ctx2, cronExpr, c)
	logger.Info("sweep_scheduler_started", "cron", cronExpr)
	return cancel, nil
}

// RunOnce triggers a single sweep pass immediately.
func RunOnce(c *cache.Cache) int {
	removed := c.Sweep()
	if removed > 0 {
		logger.Info("sweep_removed_threads", "count", removed)
	}
	return removed
}

// runScheduler computes the next cron tick and sleeps until it. gronx
// gives full cron syntax and sharp scheduling without a polling loop.
func runScheduler(ctx context.Context, cronExpr string, c *cache.Cache) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		default:
		}

		now := time.Now().UTC()
		next, err := gronx.NextTickAfter(cronExpr, now, false)
		if err != nil {
			logger.Error("sweep_nexttick_failed", "cron", cronExpr, "error", err)
			select {
			case <-time.After(30 * time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		wait := time.Until(next)
		if wait <= 0 {
			RunOnce(c)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return
			}
			continue
		}

		select {
		case <-time.After(wait):
			RunOnce(c)
		case <-ctx.Done():
			logger.Info("sweep_scheduler_stopping")
			return
		}
	}
}
