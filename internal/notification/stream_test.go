package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// flakyStore fails the first failures inserts, then behaves like MemoryStore.
type flakyStore struct {
	*MemoryStore
	mu       sync.Mutex
	failures int
}

func (s *flakyStore) Insert(ctx context.Context, n Notification) error {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("connection reset by peer")
	}
	s.mu.Unlock()
	return s.MemoryStore.Insert(ctx, n)
}

func TestStreamRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	store := NewMemoryStore()

	consumer := NewStreamConsumer(client, store, ConsumerConfig{Stream: "test:notifications", Block: -1}, zaptest.NewLogger(t))
	require.NoError(t, consumer.EnsureGroup(ctx))
	require.NoError(t, consumer.EnsureGroup(ctx), "existing group is not an error")

	sink := NewStreamSink(client, "test:notifications")
	user := uuid.New()
	related := uuid.New()
	n := New(user, TypeAppointmentRequested, "New appointment request", "A patient requested 09:00", &related)
	require.NoError(t, sink.Deliver(ctx, n))
	require.NoError(t, sink.Deliver(ctx, n), "redelivery of the same notification")

	stored, err := consumer.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stored)

	list, err := store.ListByUser(ctx, user, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1, "insert is idempotent on id")
	assert.Equal(t, n.ID, list[0].ID)
	assert.Equal(t, TypeAppointmentRequested, list[0].Type)
	require.NotNil(t, list[0].RelatedEntityID)
	assert.Equal(t, related, *list[0].RelatedEntityID)

	pending, err := client.XPending(ctx, "test:notifications", DefaultGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count, "stored entries are acked")

	stored, err = consumer.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, stored)
}

func TestStreamConsumerAcksMalformedEntries(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	store := NewMemoryStore()

	consumer := NewStreamConsumer(client, store, ConsumerConfig{Stream: "test:notifications", Block: -1}, zaptest.NewLogger(t))
	require.NoError(t, consumer.EnsureGroup(ctx))

	require.NoError(t, client.XAdd(ctx, &redis.XAddArgs{
		Stream: "test:notifications",
		Values: map[string]any{payloadField: "{not json"},
	}).Err())

	stored, err := consumer.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, stored)

	pending, err := client.XPending(ctx, "test:notifications", DefaultGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}

func TestStreamConsumerRetriesFailedInsert(t *testing.T) {
	ctx := context.Background()
	client := newTestRedis(t)
	store := &flakyStore{MemoryStore: NewMemoryStore(), failures: 1}

	consumer := NewStreamConsumer(client, store, ConsumerConfig{
		Stream:   "test:notifications",
		Consumer: "worker-a",
		Block:    -1,
	}, zaptest.NewLogger(t))
	require.NoError(t, consumer.EnsureGroup(ctx))

	user := uuid.New()
	n := New(user, TypeAppointmentConfirmed, "Appointment confirmed", "See you at 09:00", nil)
	require.NoError(t, NewStreamSink(client, "test:notifications").Deliver(ctx, n))

	stored, err := consumer.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, stored)

	pending, err := client.XPending(ctx, "test:notifications", DefaultGroup).Result()
	require.NoError(t, err)
	assert.EqualValues(t, 1, pending.Count, "failed entry stays pending")

	stored, err = consumer.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	pending, err = client.XPending(ctx, "test:notifications", DefaultGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)

	list, err := store.ListByUser(ctx, user, ListOptions{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, n.ID, list[0].ID)
}

func TestStreamConsumerClaimsIdleEntries(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	start := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	mr.SetTime(start)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	gone := NewStreamConsumer(client, &flakyStore{MemoryStore: NewMemoryStore(), failures: 1}, ConsumerConfig{
		Stream:   "test:notifications",
		Consumer: "worker-a",
		Block:    -1,
	}, zaptest.NewLogger(t))
	require.NoError(t, gone.EnsureGroup(ctx))

	user := uuid.New()
	require.NoError(t, NewStreamSink(client, "test:notifications").Deliver(ctx,
		New(user, TypeAppointmentCancelled, "Appointment cancelled", "Your 09:00 was cancelled", nil)))

	stored, err := gone.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, stored)

	store := NewMemoryStore()
	survivor := NewStreamConsumer(client, store, ConsumerConfig{
		Stream:    "test:notifications",
		Consumer:  "worker-b",
		Block:     -1,
		ClaimIdle: time.Minute,
	}, zaptest.NewLogger(t))

	stored, err = survivor.Poll(ctx)
	require.NoError(t, err)
	assert.Zero(t, stored, "entry is not idle long enough to claim")

	mr.SetTime(start.Add(2 * time.Minute))
	stored, err = survivor.Poll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stored)

	count, err := store.UnreadCount(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	pending, err := client.XPending(ctx, "test:notifications", DefaultGroup).Result()
	require.NoError(t, err)
	assert.Zero(t, pending.Count)
}
