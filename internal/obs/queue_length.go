// Copyright 2025 James Ross
package obs

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// StartQueueLengthUpdater samples each priority list's length and updates
// the mi_queue_length gauge. Runs until ctx is cancelled.
func StartQueueLengthUpdater(ctx context.Context, rdb *redis.Client, log *zap.Logger) {
	ticker := time.NewTicker(2 * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for p := 1; p <= 10; p++ {
					key := fmt.Sprintf("queue:priority:%d", p)
					n, err := rdb.LLen(ctx, key).Result()
					if err != nil {
						log.Debug("queue length poll error", String("queue", key), Err(err))
						continue
					}
					QueueLength.WithLabelValues(strconv.Itoa(p)).Set(float64(n))
				}
			}
		}
	}()
}
