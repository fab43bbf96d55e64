package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/database"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/processing"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/results"
	"github.com/Mist3s/leaf-flow-notifications-worker/internal/types"
)

type retryCall struct {
	taskID int64
	delay  time.Duration
}

type fakeQueue struct {
	mu        sync.Mutex
	leaseLost bool
	pending   []*types.Task
	completed []int64
	retried   []retryCall
	failed    map[int64]string
	depth     map[string]int64
}

func newFakeQueue(tasks ...*types.Task) *fakeQueue {
	return &fakeQueue{pending: tasks, failed: map[int64]string{}}
}

func (q *fakeQueue) DequeueNextTask(context.Context, []string, time.Duration) (*types.Task, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil, nil
	}
	task := q.pending[0]
	q.pending = q.pending[1:]
	return task, nil
}

func (q *fakeQueue) CompleteTask(_ context.Context, id int64, _ int) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.leaseLost {
		return database.ErrLeaseLost
	}
	q.completed = append(q.completed, id)
	return nil
}

func (q *fakeQueue) RetryTask(_ context.Context, id int64, _ int, delay time.Duration, _ string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.leaseLost {
		return database.ErrLeaseLost
	}
	q.retried = append(q.retried, retryCall{taskID: id, delay: delay})
	return nil
}

func (q *fakeQueue) FailTask(_ context.Context, id int64, _ int, msg string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.leaseLost {
		return database.ErrLeaseLost
	}
	q.failed[id] = msg
	return nil
}

func (q *fakeQueue) QueueDepth(context.Context) (map[string]int64, error) {
	return q.depth, nil
}

func (q *fakeQueue) finished() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.completed) + len(q.retried) + len(q.failed)
}

type fakeResults struct {
	mu     sync.Mutex
	stored []results.Result
}

func (f *fakeResults) Store(_ context.Context, r results.Result) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, r)
	return nil
}

// stubProcessor returns a fixed result under a fixed policy.
type stubProcessor struct {
	taskType string
	result   *types.TaskResult
	policy   processing.RetryPolicy
}

func (s stubProcessor) TaskType() string                    { return s.taskType }
func (s stubProcessor) RetryPolicy() processing.RetryPolicy { return s.policy }
func (s stubProcessor) Process(context.Context, *types.Task) *types.TaskResult {
	return s.result
}

type panickingProcessor struct {
	stubProcessor
}

func (panickingProcessor) Process(context.Context, *types.Task) *types.TaskResult {
	panic("sdk exploded")
}

func newWorker(queue Queue, store ResultStore, processors ...processing.Processor) *Worker {
	d := processing.NewDispatcher()
	for _, p := range processors {
		d.Register(p)
	}
	cfg := config.WorkerConfig{
		Concurrency:       2,
		PollInterval:      5 * time.Millisecond,
		VisibilityTimeout: time.Minute,
		Queues:            []string{"notifications", "images"},
	}
	return New(cfg, queue, d, store)
}

func TestProcessTask_Success(t *testing.T) {
	queue := newFakeQueue()
	store := &fakeResults{}
	w := newWorker(queue, store, stubProcessor{
		taskType: "images.create_variants",
		result:   types.NewTaskSuccess(types.CreateVariantsResult{ImageID: 1, VariantsCreated: []string{"thumb"}}),
	})

	w.processTask(context.Background(), &types.Task{TaskID: 10, TaskType: "images.create_variants", Attempts: 1})

	assert.Equal(t, []int64{10}, queue.completed)
	require.Len(t, store.stored, 1)
	assert.Equal(t, results.StatusSuccess, store.stored[0].Status)
	assert.JSONEq(t, `{"image_id":1,"variants_created":["thumb"]}`, string(store.stored[0].Result))
}

func TestProcessTask_Retry(t *testing.T) {
	queue := newFakeQueue()
	store := &fakeResults{}
	w := newWorker(queue, store, stubProcessor{
		taskType: "notifications.send_notification.order.user",
		result:   types.NewTaskFailure(errors.New("timeout")),
		policy:   processing.UserNotificationPolicy(),
	})

	w.processTask(context.Background(), &types.Task{TaskID: 11, TaskType: "notifications.send_notification.order.user", Attempts: 2})

	assert.Equal(t, []retryCall{{taskID: 11, delay: 10 * time.Second}}, queue.retried)
	assert.Empty(t, queue.failed)
	assert.Equal(t, results.StatusRetry, store.stored[0].Status)
}

func TestProcessTask_RetriesExhausted(t *testing.T) {
	queue := newFakeQueue()
	w := newWorker(queue, nil, stubProcessor{
		taskType: "notifications.send_notification.order.user",
		result:   types.NewTaskFailure(errors.New("timeout")),
		policy:   processing.UserNotificationPolicy(),
	})

	w.processTask(context.Background(), &types.Task{TaskID: 12, TaskType: "notifications.send_notification.order.user", Attempts: 6})

	assert.Empty(t, queue.retried)
	assert.Equal(t, "timeout", queue.failed[12])
}

func TestProcessTask_ValidationNeverRetried(t *testing.T) {
	queue := newFakeQueue()
	w := newWorker(queue, nil, stubProcessor{
		taskType: "images.create_variants",
		result:   types.NewTaskFailure(&types.ValidationError{Payload: "image uploaded event", Err: errors.New("bad")}),
		policy:   processing.ImageVariantsPolicy(),
	})

	w.processTask(context.Background(), &types.Task{TaskID: 13, TaskType: "images.create_variants", Attempts: 1})

	assert.Empty(t, queue.retried)
	assert.Contains(t, queue.failed, int64(13))
}

func TestProcessTask_UnknownType(t *testing.T) {
	queue := newFakeQueue()
	store := &fakeResults{}
	w := newWorker(queue, store)

	w.processTask(context.Background(), &types.Task{TaskID: 14, TaskType: "email", Attempts: 1})

	assert.Contains(t, queue.failed[14], "no processor registered")
	assert.Equal(t, results.StatusFailure, store.stored[0].Status)
}

func TestProcessTask_PanicBecomesRetry(t *testing.T) {
	queue := newFakeQueue()
	store := &fakeResults{}
	w := newWorker(queue, store, panickingProcessor{stubProcessor{
		taskType: "images.create_variants",
		policy:   processing.ImageVariantsPolicy(),
	}})

	require.NotPanics(t, func() {
		w.processTask(context.Background(), &types.Task{TaskID: 15, TaskType: "images.create_variants", Attempts: 1})
	})

	require.Len(t, queue.retried, 1)
	assert.Equal(t, int64(15), queue.retried[0].taskID)
	assert.Empty(t, queue.failed)
	require.Len(t, store.stored, 1)
	assert.Contains(t, store.stored[0].Error, "processor panicked: sdk exploded")
}

func TestProcessTask_PanicOnLastAttemptFails(t *testing.T) {
	queue := newFakeQueue()
	w := newWorker(queue, nil, panickingProcessor{stubProcessor{
		taskType: "images.create_variants",
		policy:   processing.ImageVariantsPolicy(),
	}})

	w.processTask(context.Background(), &types.Task{TaskID: 16, TaskType: "images.create_variants", Attempts: 4})

	assert.Empty(t, queue.retried)
	assert.Contains(t, queue.failed[16], "processor panicked")
}

func TestProcessTask_LeaseLostDropsResult(t *testing.T) {
	queue := newFakeQueue()
	queue.leaseLost = true
	store := &fakeResults{}
	w := newWorker(queue, store, stubProcessor{
		taskType: "images.create_variants",
		result:   types.NewTaskSuccess(types.CreateVariantsResult{ImageID: 1}),
	})

	w.processTask(context.Background(), &types.Task{TaskID: 17, TaskType: "images.create_variants", Attempts: 1})

	assert.Empty(t, queue.completed)
	assert.Empty(t, store.stored)
}

func TestRun_DrainsQueueAndStops(t *testing.T) {
	queue := newFakeQueue(
		&types.Task{TaskID: 1, TaskType: "images.create_variants", Attempts: 1},
		&types.Task{TaskID: 2, TaskType: "images.create_variants", Attempts: 1},
		&types.Task{TaskID: 3, TaskType: "images.create_variants", Attempts: 1},
	)
	w := newWorker(queue, nil, stubProcessor{
		taskType: "images.create_variants",
		result:   types.NewTaskSuccess(nil),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return queue.finished() == 3 }, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop")
	}
	assert.ElementsMatch(t, []int64{1, 2, 3}, queue.completed)
}
