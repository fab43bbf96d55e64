package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/database"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/logger"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/metrics"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/processing"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/results"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

// Queue is the task table the pool consumes.
type Queue interface {
	DequeueNextTask(ctx context.Context, queues []string, lease time.Duration) (*types.Task, error)
	CompleteTask(ctx context.Context, taskID int64, attempt int) error
	RetryTask(ctx context.Context, taskID int64, attempt int, delay time.Duration, errorMessage string) error
	FailTask(ctx context.Context, taskID int64, attempt int, errorMessage string) error
}

// ResultStore keeps job return values and final errors.
type ResultStore interface {
	Store(ctx context.Context, r results.Result) error
}

type Worker struct {
	cfg        config.WorkerConfig
	queue      Queue
	dispatcher *processing.Dispatcher
	results    ResultStore
	tracer     trace.Tracer
}

// New builds a pool. store may be nil when no result backend is configured.
func New(cfg config.WorkerConfig, queue Queue, dispatcher *processing.Dispatcher, store ResultStore) *Worker {
	return &Worker{
		cfg:        cfg,
		queue:      queue,
		dispatcher: dispatcher,
		results:    store,
		tracer:     otel.Tracer("leafflow-worker"),
	}
}

// Run starts the worker loop and blocks until ctx is cancelled and every
// in-flight task has finished.
func (w *Worker) Run(ctx context.Context) error {
	concurrency := w.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	logger.Info(ctx, "starting worker", logger.Fields{
		"poll_interval":      w.cfg.PollInterval.String(),
		"max_idle_time":      w.cfg.MaxIdleTime.String(),
		"visibility_timeout": w.cfg.VisibilityTimeout.String(),
		"concurrency":        concurrency,
		"queues":             w.cfg.Queues,
		"task_types":         w.dispatcher.TaskTypes(),
	})

	var wg sync.WaitGroup
	wg.Add(concurrency)
	for i := 0; i < concurrency; i++ {
		go func(workerIndex int) {
			defer wg.Done()
			w.loop(ctx, workerIndex)
		}(i)
	}

	wg.Wait()
	return ctx.Err()
}

func (w *Worker) loop(ctx context.Context, workerIndex int) {
	idleStart := time.Now()
	for {
		if ctx.Err() != nil {
			return
		}

		task, err := w.queue.DequeueNextTask(ctx, w.cfg.Queues, w.cfg.VisibilityTimeout)
		if err != nil {
			if ctx.Err() == nil {
				logger.Error(ctx, "failed to dequeue task", err)
			}
			w.sleep(ctx)
			continue
		}
		if task == nil {
			if w.cfg.MaxIdleTime > 0 && time.Since(idleStart) > w.cfg.MaxIdleTime {
				logger.Debug(ctx, "worker idle", logger.Fields{"worker": workerIndex})
				idleStart = time.Now()
			}
			w.sleep(ctx)
			continue
		}

		idleStart = time.Now()
		// A claimed task is finished even during shutdown so its state is
		// recorded instead of waiting out the lease.
		w.processTask(context.WithoutCancel(ctx), task)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	t := time.NewTimer(w.cfg.PollInterval)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// processTask runs one task and records its outcome in the queue, the
// result backend and metrics.
func (w *Worker) processTask(ctx context.Context, task *types.Task) {
	ctx = logger.WithRunID(ctx, uuid.NewString())
	ctx, span := w.tracer.Start(ctx, "task "+task.TaskType, trace.WithAttributes(
		attribute.Int64("task.id", task.TaskID),
		attribute.String("task.type", task.TaskType),
		attribute.String("task.queue", task.Queue),
		attribute.Int("task.attempt", task.Attempts),
	))
	defer span.End()

	fields := logger.Fields{
		"task_id":   task.TaskID,
		"task_type": task.TaskType,
		"attempt":   task.Attempts,
	}
	logger.Info(ctx, "processing task", fields)

	start := time.Now()
	processor, err := w.dispatcher.Get(task)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		w.fail(ctx, task, err)
		metrics.ObserveTask(task.TaskType, metrics.OutcomeFailed, time.Since(start).Seconds())
		return
	}

	result := runProcessor(ctx, processor, task)
	elapsed := time.Since(start).Seconds()

	if result.Success {
		err := w.queue.CompleteTask(ctx, task.TaskID, task.Attempts)
		if w.recorded(ctx, err, "failed to complete task", fields) {
			w.storeResult(ctx, task, results.StatusSuccess, result.WorkerPayload, "")
		}
		metrics.ObserveTask(task.TaskType, metrics.OutcomeSucceeded, elapsed)
		span.SetStatus(codes.Ok, "")
		logger.Info(ctx, "task succeeded", fields)
		return
	}

	span.RecordError(result.Error)
	span.SetStatus(codes.Error, result.Error.Error())

	decision := processor.RetryPolicy().Decide(result.Error, task.Attempts)
	if decision.Retry {
		logger.WarnErr(ctx, "task failed, retrying", result.Error, logger.Fields{
			"task_id":   task.TaskID,
			"task_type": task.TaskType,
			"attempt":   task.Attempts,
			"delay":     decision.Delay.String(),
		})
		err := w.queue.RetryTask(ctx, task.TaskID, task.Attempts, decision.Delay, result.Error.Error())
		if w.recorded(ctx, err, "failed to schedule retry", fields) {
			w.storeResult(ctx, task, results.StatusRetry, nil, result.Error.Error())
		}
		metrics.ObserveTask(task.TaskType, metrics.OutcomeRetried, elapsed)
		return
	}

	w.fail(ctx, task, result.Error)
	metrics.ObserveTask(task.TaskType, metrics.OutcomeFailed, elapsed)
}

// runProcessor turns a panic inside Process into a task failure so the retry
// policy still applies and the pool keeps running.
func runProcessor(ctx context.Context, p processing.Processor, task *types.Task) (result *types.TaskResult) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("processor panicked: %v", r)
			logger.Error(ctx, "recovered from processor panic", err, logger.Fields{
				"task_id":   task.TaskID,
				"task_type": task.TaskType,
				"stack":     string(debug.Stack()),
			})
			result = types.NewTaskFailure(err)
		}
	}()
	return p.Process(ctx, task)
}

func (w *Worker) fail(ctx context.Context, task *types.Task, cause error) {
	logger.Error(ctx, "task failed", cause, logger.Fields{
		"task_id":   task.TaskID,
		"task_type": task.TaskType,
		"attempt":   task.Attempts,
	})
	err := w.queue.FailTask(ctx, task.TaskID, task.Attempts, cause.Error())
	if w.recorded(ctx, err, "failed to record task failure", logger.Fields{"task_id": task.TaskID}) {
		w.storeResult(ctx, task, results.StatusFailure, nil, cause.Error())
	}
}

// recorded logs a failed queue transition. It returns false when the task
// was reclaimed by another worker after our lease expired, in which case the
// outcome belongs to the newer claim and is not stored.
func (w *Worker) recorded(ctx context.Context, err error, msg string, fields logger.Fields) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, database.ErrLeaseLost):
		logger.WarnErr(ctx, "task outcome dropped", err, fields)
		return false
	default:
		logger.Error(ctx, msg, err, fields)
		return true
	}
}

func (w *Worker) storeResult(ctx context.Context, task *types.Task, status string, payload any, errMsg string) {
	if w.results == nil {
		return
	}

	r := results.Result{
		TaskID:   task.TaskID,
		TaskType: task.TaskType,
		Status:   status,
		Error:    errMsg,
		Attempts: task.Attempts,
		DoneAt:   time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Error(ctx, "failed to marshal task result", err)
		} else {
			r.Result = data
		}
	}

	if err := w.results.Store(ctx, r); err != nil {
		logger.Error(ctx, fmt.Sprintf("failed to store %s result", status), err, logger.Fields{"task_id": task.TaskID})
	}
}
