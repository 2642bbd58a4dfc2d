// Copyright 2025 James Ross
package obs

import (
	"context"
	"time"

	"github.com/flyingrobots/go-redis-job-engine/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var queueViews = []string{"work", "locks", "scheduled", "depends"}

// StartQueueGaugeUpdater samples the size of every known queue's four views
// and updates the queue_length gauge.
func StartQueueGaugeUpdater(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.Logger) {
	ns := cfg.Engine.Namespace
	interval := cfg.Engine.QueueSampleInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				queues, err := rdb.ZRange(ctx, ns+":queues", 0, -1).Result()
				if err != nil {
					log.Debug("queue list poll error", Err(err))
					continue
				}
				for _, q := range queues {
					for _, view := range queueViews {
						n, err := rdb.ZCard(ctx, ns+":q:"+q+"-"+view).Result()
						if err != nil {
							log.Debug("queue length poll error", String("queue", q), Err(err))
							continue
						}
						QueueLength.WithLabelValues(q, view).Set(float64(n))
					}
				}
			}
		}
	}()
}
