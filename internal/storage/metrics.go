package storage

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	attemptCount = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "initguard_db_attempts_count",
		Help: "Number of verification attempts stored in the database",
	}, []string{"outcome"})
)

type DBMetricsCollector struct {
	storage Storage
	logger  *slog.Logger
	queue   chan struct{}
}

func NewDBMetricsCollector(storage Storage, logger *slog.Logger) *DBMetricsCollector {
	return &DBMetricsCollector{
		storage: storage,
		logger:  logger,
		queue:   make(chan struct{}, 1),
	}
}

func (c *DBMetricsCollector) GatherMetrics(ctx context.Context) error {
	c.logger.Debug("gathering metrics")

	stats, err := c.storage.GetStats(ctx, time.Time{})
	if err != nil {
		return err
	}

	for outcome, count := range stats {
		attemptCount.WithLabelValues(outcome).Set(float64(count))
	}

	return nil
}

// EnqueueGatherMetrics schedules a refresh without blocking. A nil
// collector is a no-op.
func (c *DBMetricsCollector) EnqueueGatherMetrics() {
	if c == nil {
		return
	}
	select {
	case c.queue <- struct{}{}:
		c.logger.Debug("enqueued metrics job")
	default:
		c.logger.Debug("metrics job already pending")
	}
}

// Run gathers metrics whenever a job is enqueued, and every interval if
// interval is positive, until ctx is done.
func (c *DBMetricsCollector) Run(ctx context.Context, interval time.Duration) error {
	if c.storage == nil {
		c.logger.Debug("storage is nil, not starting metrics collection")
		return nil
	}

	var tick <-chan time.Time
	if interval > 0 {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		tick = ticker.C
		c.logger.Debug("starting periodic metrics collector", "interval", interval)
	}

	c.EnqueueGatherMetrics()

	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("stopped metrics collector")
			return nil
		case <-tick:
			c.EnqueueGatherMetrics()
		case <-c.queue:
			if err := c.GatherMetrics(ctx); err != nil {
				c.logger.Error("failed to gather metrics", "error", err)
			}
		}
	}
}
