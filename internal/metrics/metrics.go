package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Task outcomes used as the "outcome" label.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeRetried   = "retried"
	OutcomeFailed    = "failed"
)

var (
	// TasksProcessed counts finished executions by job and outcome.
	TasksProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leafflow_worker_tasks_total",
		Help: "Total number of task executions.",
	}, []string{"task_type", "outcome"})

	// TaskDuration measures execution time per job.
	TaskDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leafflow_worker_task_duration_seconds",
		Help:    "Duration of task executions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"task_type"})

	// QueueDepth is the number of pending tasks per queue.
	QueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "leafflow_worker_queue_depth",
		Help: "Pending tasks per queue.",
	}, []string{"queue"})

	// DeliveryErrors counts classified Telegram failures by kind.
	DeliveryErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leafflow_worker_telegram_errors_total",
		Help: "Telegram delivery failures by error kind.",
	}, []string{"kind"})
)

// ObserveTask records one finished execution.
func ObserveTask(taskType, outcome string, seconds float64) {
	TasksProcessed.WithLabelValues(taskType, outcome).Inc()
	TaskDuration.WithLabelValues(taskType).Observe(seconds)
}
