package results

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mist3s/leaf-flow-notifications-worker/internal/config"
)

func newBackend(t *testing.T) (*RedisBackend, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)

	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	backend, err := NewRedisBackend(context.Background(), config.RedisConfig{
		Host:      mr.Host(),
		Port:      port,
		ResultTTL: time.Hour,
	})
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })
	return backend, mr
}

func TestStoreAndGet(t *testing.T) {
	backend, mr := newBackend(t)
	ctx := context.Background()

	err := backend.Store(ctx, Result{
		TaskID:   7,
		TaskType: "images.create_variants",
		Status:   StatusSuccess,
		Result:   json.RawMessage(`{"image_id":123,"variants_created":["thumb"]}`),
		Attempts: 1,
		DoneAt:   time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	assert.True(t, mr.Exists("result:7"))
	assert.Equal(t, time.Hour, mr.TTL("result:7"))

	got, err := backend.Get(ctx, 7)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, StatusSuccess, got.Status)
	assert.JSONEq(t, `{"image_id":123,"variants_created":["thumb"]}`, string(got.Result))
}

func TestGet_Missing(t *testing.T) {
	backend, _ := newBackend(t)

	got, err := backend.Get(context.Background(), 99)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestExpires(t *testing.T) {
	backend, mr := newBackend(t)
	ctx := context.Background()

	require.NoError(t, backend.Store(ctx, Result{TaskID: 1, Status: StatusFailure, Error: "boom"}))
	mr.FastForward(2 * time.Hour)

	got, err := backend.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestNewRedisBackend_Unreachable(t *testing.T) {
	_, err := NewRedisBackend(context.Background(), config.RedisConfig{Host: "127.0.0.1", Port: 1})
	require.Error(t, err)
}
