package staging

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestStore(t *testing.T) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisWithClient(client, time.Hour)
}

func TestJobLifecycle(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	meta := &JobMeta{
		JobKey:           "bulk_import:42",
		ImportType:       "message_request",
		MessageRequestID: 42,
		FileID:           7,
	}
	require.NoError(t, s.CreateJob(ctx, meta))
	assert.Equal(t, StatusPending, meta.Status)

	t.Run("duplicate create rejected", func(t *testing.T) {
		require.Error(t, s.CreateJob(ctx, &JobMeta{JobKey: "bulk_import:42"}))
	})

	got, err := s.GetJob(ctx, "bulk_import:42")
	require.NoError(t, err)
	assert.Equal(t, "message_request", got.ImportType)
	assert.Equal(t, int64(42), got.MessageRequestID)
	assert.False(t, got.CreatedAt.IsZero())

	require.NoError(t, got.Transition(StatusStaging))
	got.TotalRows = 10
	require.NoError(t, s.UpdateJob(ctx, got))

	got, err = s.GetJob(ctx, "bulk_import:42")
	require.NoError(t, err)
	assert.Equal(t, StatusStaging, got.Status)
	assert.Equal(t, 10, got.TotalRows)

	require.NoError(t, s.DeleteJob(ctx, "bulk_import:42"))
	_, err = s.GetJob(ctx, "bulk_import:42")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestPerJobTTLOverride(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	s := NewRedisWithClient(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, s.CreateJob(ctx, &JobMeta{JobKey: "short", TTLSeconds: 120}))
	ttl, err := client.TTL(ctx, metaKey("short")).Result()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, ttl)

	// The row queue inherits the override, not the store-wide default.
	require.NoError(t, s.PushRows(ctx, "short", []StagedRow{{RowNumber: 2}}))
	ttl, err = client.TTL(ctx, rowsKey("short")).Result()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Minute, ttl)

	require.NoError(t, s.CreateJob(ctx, &JobMeta{JobKey: "plain"}))
	ttl, err = client.TTL(ctx, metaKey("plain")).Result()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, ttl)
}

func TestStatusTransitions(t *testing.T) {
	// Forward path.
	for _, step := range []struct{ from, to JobStatus }{
		{StatusPending, StatusStaging},
		{StatusStaging, StatusStaged},
		{StatusStaged, StatusProcessing},
		{StatusProcessing, StatusCompleted},
	} {
		assert.True(t, step.from.CanTransitionTo(step.to), "%s -> %s", step.from, step.to)
	}

	// Failed is reachable from any non-terminal state.
	for _, from := range []JobStatus{StatusPending, StatusStaging, StatusStaged, StatusProcessing} {
		assert.True(t, from.CanTransitionTo(StatusFailed), "%s -> failed", from)
	}

	// No skipping, no leaving terminal states.
	assert.False(t, StatusPending.CanTransitionTo(StatusStaged))
	assert.False(t, StatusStaging.CanTransitionTo(StatusProcessing))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusFailed))
	assert.False(t, StatusFailed.CanTransitionTo(StatusPending))
	assert.False(t, StatusCompleted.CanTransitionTo(StatusCompleted))

	// Non-terminal states may re-assert themselves.
	assert.True(t, StatusProcessing.CanTransitionTo(StatusProcessing))

	meta := &JobMeta{JobKey: "j", Status: StatusPending}
	require.Error(t, meta.Transition(StatusCompleted))
	require.NoError(t, meta.Transition(StatusStaging))
	require.NoError(t, meta.Fail("broken file"))
	assert.Equal(t, "broken file", meta.ErrorMessage)
	require.Error(t, meta.Fail("again"))
}

func TestRowQueueFIFO(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rows := []StagedRow{
		{RowNumber: 2, Normalized: map[string]any{"phone_number": "+1111", "text": "a"}},
		{RowNumber: 3, Normalized: map[string]any{"phone_number": "+2222", "text": "b"}},
		{RowNumber: 4, Normalized: map[string]any{"phone_number": "+3333", "text": "c"}, Extras: map[string]any{"note": "vip"}},
	}
	require.NoError(t, s.PushRows(ctx, "j", rows))

	count, err := s.CountRows(ctx, "j")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	first, err := s.PopRows(ctx, "j", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 2, first[0].RowNumber)
	assert.Equal(t, 3, first[1].RowNumber)

	rest, err := s.PopRows(ctx, "j", 10)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, 4, rest[0].RowNumber)
	assert.Equal(t, map[string]any{"note": "vip"}, rest[0].Extras)

	t.Run("empty queue", func(t *testing.T) {
		rows, err := s.PopRows(ctx, "j", 10)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("non-positive limit", func(t *testing.T) {
		require.NoError(t, s.PushRows(ctx, "j", []StagedRow{{RowNumber: 9}}))
		rows, err := s.PopRows(ctx, "j", 0)
		require.NoError(t, err)
		assert.Empty(t, rows)

		count, err := s.CountRows(ctx, "j")
		require.NoError(t, err)
		assert.EqualValues(t, 1, count)
	})
}

func TestCaptureErrorCap(t *testing.T) {
	meta := &JobMeta{JobKey: "j", MaxErrors: 3}
	for i := 0; i < 3; i++ {
		assert.True(t, meta.CaptureError(i+2, fmt.Sprintf("bad row %d", i)))
	}
	assert.False(t, meta.CaptureError(999, "over the cap"))
	assert.Len(t, meta.Errors, 3)

	// Zero falls back to the default cap.
	unset := &JobMeta{JobKey: "j2"}
	assert.True(t, unset.CaptureError(2, "kept"))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "importing:job:bulk_import:42:meta", metaKey("bulk_import:42"))
	assert.Equal(t, "importing:job:bulk_import:42:rows", rowsKey("bulk_import:42"))
}
