package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/metrics"
)

// DepthReader reports pending tasks per queue.
type DepthReader interface {
	QueueDepth(ctx context.Context) (map[string]int64, error)
}

// StatsReporter periodically publishes queue depth to metrics and logs.
type StatsReporter struct {
	db     DepthReader
	queues []string
	cron   *cron.Cron
}

// NewStatsReporter schedules the report with a cron spec such as
// "@every 1m" or "*/5 * * * *".
func NewStatsReporter(ctx context.Context, db DepthReader, queues []string, schedule string) (*StatsReporter, error) {
	r := &StatsReporter{db: db, queues: queues, cron: cron.New()}

	if _, err := r.cron.AddFunc(schedule, func() { r.Report(ctx) }); err != nil {
		return nil, fmt.Errorf("invalid stats schedule %q: %w", schedule, err)
	}
	return r, nil
}

func (r *StatsReporter) Start() {
	r.cron.Start()
}

// Stop waits for a running report to finish.
func (r *StatsReporter) Stop() {
	<-r.cron.Stop().Done()
}

// Report reads the current depth once. Queues with nothing pending are
// reported as zero.
func (r *StatsReporter) Report(ctx context.Context) {
	depth, err := r.db.QueueDepth(ctx)
	if err != nil {
		logger.Error(ctx, "failed to read queue depth", err)
		return
	}

	fields := logger.Fields{}
	for _, q := range r.queues {
		metrics.QueueDepth.WithLabelValues(q).Set(float64(depth[q]))
		fields[q] = depth[q]
	}
	logger.Debug(ctx, "queue depth", fields)
}
