package database

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMock(t *testing.T) (*Client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewFromDB(db), mock
}

var taskColumns = []string{
	"task_id", "task_type", "queue", "payload", "attempts", "enqueued_at", "scheduled_at", "dequeued_at",
}

func TestDequeueNextTask(t *testing.T) {
	client, mock := newMock(t)
	now := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`select * from queues.dequeue_next_available_task($1, $2)`)).
		WithArgs(sqlmock.AnyArg(), float64(1800)).
		WillReturnRows(sqlmock.NewRows(taskColumns).AddRow(
			int64(7), "images.create_variants", "images", []byte(`{"image_id":1}`), 2, now, now, now,
		))

	task, err := client.DequeueNextTask(context.Background(), []string{"notifications", "images"}, 30*time.Minute)
	require.NoError(t, err)
	require.NotNil(t, task)

	assert.Equal(t, int64(7), task.TaskID)
	assert.Equal(t, "images.create_variants", task.TaskType)
	assert.Equal(t, "images", task.Queue)
	assert.JSONEq(t, `{"image_id":1}`, string(task.Payload))
	assert.Equal(t, 2, task.Attempts)
	require.NotNil(t, task.DequeuedAt)
	assert.Equal(t, now, *task.DequeuedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDequeueNextTask_Empty(t *testing.T) {
	client, mock := newMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(`select * from queues.dequeue_next_available_task($1, $2)`)).
		WillReturnRows(sqlmock.NewRows(taskColumns))

	task, err := client.DequeueNextTask(context.Background(), []string{"notifications"}, time.Minute)
	require.NoError(t, err)
	assert.Nil(t, task)
}

func TestTaskTransitions(t *testing.T) {
	client, mock := newMock(t)
	ctx := context.Background()
	applied := func(ok bool) *sqlmock.Rows { return sqlmock.NewRows([]string{"applied"}).AddRow(ok) }

	mock.ExpectQuery(regexp.QuoteMeta(`select queues.complete_task($1, $2)`)).
		WithArgs(int64(1), 1).
		WillReturnRows(applied(true))
	mock.ExpectQuery(regexp.QuoteMeta(`select queues.retry_task($1, $2, $3, $4)`)).
		WithArgs(int64(2), 3, float64(10), "telegram rate limited").
		WillReturnRows(applied(true))
	mock.ExpectQuery(regexp.QuoteMeta(`select queues.fail_task($1, $2, $3)`)).
		WithArgs(int64(3), 6, "boom").
		WillReturnRows(applied(true))

	require.NoError(t, client.CompleteTask(ctx, 1, 1))
	require.NoError(t, client.RetryTask(ctx, 2, 3, 10*time.Second, "telegram rate limited"))
	require.NoError(t, client.FailTask(ctx, 3, 6, "boom"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskTransitions_LeaseLost(t *testing.T) {
	client, mock := newMock(t)
	ctx := context.Background()
	notApplied := func() *sqlmock.Rows { return sqlmock.NewRows([]string{"applied"}).AddRow(false) }

	mock.ExpectQuery(regexp.QuoteMeta(`select queues.complete_task($1, $2)`)).
		WithArgs(int64(1), 1).
		WillReturnRows(notApplied())
	mock.ExpectQuery(regexp.QuoteMeta(`select queues.retry_task($1, $2, $3, $4)`)).
		WithArgs(int64(1), 1, float64(10), "late").
		WillReturnRows(notApplied())
	mock.ExpectQuery(regexp.QuoteMeta(`select queues.fail_task($1, $2, $3)`)).
		WithArgs(int64(1), 1, "late").
		WillReturnRows(notApplied())

	assert.ErrorIs(t, client.CompleteTask(ctx, 1, 1), ErrLeaseLost)
	assert.ErrorIs(t, client.RetryTask(ctx, 1, 1, 10*time.Second, "late"), ErrLeaseLost)
	assert.ErrorIs(t, client.FailTask(ctx, 1, 1, "late"), ErrLeaseLost)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnqueue_RoutesByJobName(t *testing.T) {
	client, mock := newMock(t)
	payload := []byte(`{"image_id":1}`)

	mock.ExpectQuery(regexp.QuoteMeta(`select queues.enqueue_task($1, $2, $3, $4)`)).
		WithArgs("images.create_variants", "images", payload, float64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"enqueue_task"}).AddRow(int64(42)))

	id, err := client.Enqueue(context.Background(), "images.create_variants", payload, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueueDepth(t *testing.T) {
	client, mock := newMock(t)

	mock.ExpectQuery(`select queue, count\(\*\)`).
		WillReturnRows(sqlmock.NewRows([]string{"queue", "count"}).
			AddRow("notifications", int64(3)).
			AddRow("images", int64(1)))

	depth, err := client.QueueDepth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"notifications": 3, "images": 1}, depth)
}

func TestMigrate(t *testing.T) {
	client, mock := newMock(t)

	mock.ExpectExec(`create schema if not exists queues`).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, client.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
