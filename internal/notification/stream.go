package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	DefaultStream = "careslot:notifications"
	DefaultGroup  = "notification-writers"

	payloadField = "payload"
	streamMaxLen = 100000
)

// StreamSink publishes notifications to a Redis stream. The worker binary
// persists them from there.
type StreamSink struct {
	client *redis.Client
	stream string
}

func NewStreamSink(client *redis.Client, stream string) *StreamSink {
	if stream == "" {
		stream = DefaultStream
	}
	return &StreamSink{client: client, stream: stream}
}

func (s *StreamSink) Deliver(ctx context.Context, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{payloadField: string(payload)},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd notification: %w", err)
	}
	return nil
}

type ConsumerConfig struct {
	Stream   string
	Group    string
	Consumer string // keep stable across restarts so the pending list is picked up again
	Batch    int64
	// Block is how long Poll waits for new entries. Negative means do not
	// wait at all.
	Block time.Duration
	// ClaimIdle is how long an entry may sit unacknowledged with another
	// consumer before Poll takes it over.
	ClaimIdle time.Duration
}

// StreamConsumer reads the notification stream as part of a consumer group
// and writes each entry to a Store. Entries are acknowledged only after they
// are stored. Each Poll first retries this consumer's own pending entries,
// then claims entries abandoned by other consumers, then reads new ones.
type StreamConsumer struct {
	client *redis.Client
	store  Store
	cfg    ConsumerConfig
	logger *zap.Logger
}

func NewStreamConsumer(client *redis.Client, store Store, cfg ConsumerConfig, logger *zap.Logger) *StreamConsumer {
	if cfg.Stream == "" {
		cfg.Stream = DefaultStream
	}
	if cfg.Group == "" {
		cfg.Group = DefaultGroup
	}
	if cfg.Consumer == "" {
		cfg.Consumer = "worker-1"
	}
	if cfg.Batch <= 0 {
		cfg.Batch = 50
	}
	if cfg.ClaimIdle <= 0 {
		cfg.ClaimIdle = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamConsumer{client: client, store: store, cfg: cfg, logger: logger}
}

// EnsureGroup creates the stream and consumer group if they are missing.
func (c *StreamConsumer) EnsureGroup(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("create consumer group: %w", err)
	}
	return nil
}

// Poll handles one batch from each source and returns how many entries were
// stored. Entries whose store write fails stay pending and are retried by the
// next Poll.
func (c *StreamConsumer) Poll(ctx context.Context) (int, error) {
	pending, err := c.read(ctx, "0", -1)
	if err != nil {
		return 0, fmt.Errorf("read pending: %w", err)
	}
	stored, err := c.process(ctx, pending)
	if err != nil {
		return stored, err
	}

	claimed, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   c.cfg.Stream,
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		MinIdle:  c.cfg.ClaimIdle,
		Start:    "0-0",
		Count:    c.cfg.Batch,
	}).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return stored, fmt.Errorf("xautoclaim: %w", err)
	}
	if len(claimed) > 0 {
		c.logger.Info("claimed abandoned notification entries", zap.Int("count", len(claimed)))
	}
	n, err := c.process(ctx, claimed)
	stored += n
	if err != nil {
		return stored, err
	}

	fresh, err := c.read(ctx, ">", c.cfg.Block)
	if err != nil {
		return stored, fmt.Errorf("read new: %w", err)
	}
	n, err = c.process(ctx, fresh)
	return stored + n, err
}

// read runs XREADGROUP from id: ">" for new entries, "0" for this
// consumer's pending list.
func (c *StreamConsumer) read(ctx context.Context, id string, block time.Duration) ([]redis.XMessage, error) {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, id},
		Count:    c.cfg.Batch,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var msgs []redis.XMessage
	for _, stream := range streams {
		msgs = append(msgs, stream.Messages...)
	}
	return msgs, nil
}

func (c *StreamConsumer) process(ctx context.Context, msgs []redis.XMessage) (int, error) {
	stored := 0
	for _, msg := range msgs {
		ok, err := c.handle(ctx, msg)
		if err != nil {
			c.logger.Error("store notification, will retry",
				zap.String("entry_id", msg.ID),
				zap.Error(err),
			)
			continue
		}
		if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
			return stored, fmt.Errorf("xack %s: %w", msg.ID, err)
		}
		if ok {
			stored++
		}
	}
	return stored, nil
}

// handle returns ok=false with a nil error for entries that can never be
// stored; those are acked and skipped.
func (c *StreamConsumer) handle(ctx context.Context, msg redis.XMessage) (bool, error) {
	raw, _ := msg.Values[payloadField].(string)
	var n Notification
	if err := json.Unmarshal([]byte(raw), &n); err != nil {
		c.logger.Warn("skipping malformed notification entry",
			zap.String("entry_id", msg.ID),
			zap.Error(err),
		)
		return false, nil
	}
	if err := c.store.Insert(ctx, n); err != nil {
		return false, err
	}
	return true, nil
}
