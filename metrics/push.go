package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// PushMetrics pushes metrics from gatherer to the pushgateway at url every period
// until ctx is canceled.
func PushMetrics(
	ctx context.Context,
	logger *zap.Logger,
	url string,
	period time.Duration,
	gatherer prometheus.Gatherer,
	instance string,
) error {
	pusher := push.New(url, "go-vault").Gatherer(gatherer).Grouping("instance", instance)
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := pusher.PushContext(ctx); err != nil {
				logger.Warn("failed to push metrics", zap.String("url", url), zap.Error(err))
			}
		}
	}
}
