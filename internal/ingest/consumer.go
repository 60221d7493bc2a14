package ingest

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/picshare/activity-service/internal/domain/activity"
)

// MessageSource is the slice of the bus consumer the ingest loop needs.
// Offsets are committed only after every message in a fetched batch is
// resolved (appended, deduplicated, or dead-lettered).
type MessageSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// DeadLetterer sinks permanently unprocessable messages.
type DeadLetterer interface {
	Publish(ctx context.Context, channel string, key, value []byte, reason string) error
}

type Options struct {
	BatchSize   int
	MaxRetries  int
	BackoffBase time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize < 1 {
		o.BatchSize = 1
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.BackoffBase <= 0 {
		o.BackoffBase = 500 * time.Millisecond
	}
	return o
}

// ChannelConsumer drains one subscribed channel. It fetches a batch,
// dispatches each message to the lane owning its entity key, waits for the
// whole batch to resolve, then commits the offsets in fetch order. A batch
// that cannot fully resolve is left uncommitted so the bus redelivers it;
// the idempotency guard makes the replay harmless.
type ChannelConsumer struct {
	channel  string
	source   MessageSource
	pipeline *Pipeline
	lanes    *LanePool
	dlq      DeadLetterer
	opts     Options
	logger   *slog.Logger
}

func NewChannelConsumer(channel string, source MessageSource, pipeline *Pipeline, lanes *LanePool, dlq DeadLetterer, opts Options, logger *slog.Logger) *ChannelConsumer {
	return &ChannelConsumer{
		channel:  channel,
		source:   source,
		pipeline: pipeline,
		lanes:    lanes,
		dlq:      dlq,
		opts:     opts.withDefaults(),
		logger:   logger.With("channel", channel),
	}
}

// batchWait bounds how long a partially filled batch waits for more
// messages before processing starts.
const batchWait = 100 * time.Millisecond

func (c *ChannelConsumer) Run(ctx context.Context) {
	c.logger.Info("channel consumer started")

	for {
		batch, err := c.fetchBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("channel consumer stopped")
				return
			}
			c.logger.Error("failed to fetch message", "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		if c.processBatch(ctx, batch) {
			if err := c.source.CommitMessages(ctx, batch...); err != nil {
				c.logger.Error("failed to commit offsets", "error", err)
			}
		}
	}
}

// fetchBatch blocks for the first message, then keeps collecting until the
// batch is full or batchWait elapses.
func (c *ChannelConsumer) fetchBatch(ctx context.Context) ([]kafka.Message, error) {
	first, err := c.source.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	batch := []kafka.Message{first}

	for len(batch) < c.opts.BatchSize {
		waitCtx, cancel := context.WithTimeout(ctx, batchWait)
		msg, err := c.source.FetchMessage(waitCtx)
		cancel()
		if err != nil {
			break
		}
		batch = append(batch, msg)
	}

	return batch, nil
}

// processBatch resolves every message in the batch and reports whether the
// offsets are safe to commit.
func (c *ChannelConsumer) processBatch(ctx context.Context, batch []kafka.Message) bool {
	resolved := make([]bool, len(batch))

	var wg sync.WaitGroup
	for i, msg := range batch {
		wg.Add(1)
		go func(i int, msg kafka.Message) {
			defer wg.Done()
			resolved[i] = c.processOne(ctx, msg)
		}(i, msg)
	}
	wg.Wait()

	for _, ok := range resolved {
		if !ok {
			return false
		}
	}
	return true
}

// processOne drives a single message through the pipeline. It returns true
// when the message is resolved: appended, recognized as a duplicate, or
// dead-lettered. False means the message must be redelivered.
func (c *ChannelConsumer) processOne(ctx context.Context, msg kafka.Message) bool {
	started := time.Now()

	rec, err := c.pipeline.Prepare(c.channel, msg.Value)
	if err != nil {
		// Prepare failures are permanent: the bytes will not improve.
		c.logger.Error("unprocessable message", "error", err)
		return c.deadLetter(ctx, msg, err.Error())
	}

	err = c.lanes.Do(ctx, rec.Key(), func(laneCtx context.Context) error {
		return c.persistWithRetry(laneCtx, rec)
	})
	if err != nil {
		if ctx.Err() != nil {
			// Shutdown: leave the message uncommitted for redelivery.
			return false
		}
		c.logger.Error("dropping message after retries", "retries", c.opts.MaxRetries, "error", err)
		return c.deadLetter(ctx, msg, err.Error())
	}

	processingDuration.Observe(time.Since(started).Seconds())
	return true
}

func (c *ChannelConsumer) persistWithRetry(ctx context.Context, rec activity.Record) error {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			eventRetries.WithLabelValues(c.channel).Inc()
			backoff := c.backoff(attempt)
			c.logger.Info("retry attempt", "attempt", attempt, "max", c.opts.MaxRetries, "backoff", backoff)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		id, err := c.pipeline.Persist(ctx, rec)
		if err == nil {
			eventsProcessed.WithLabelValues(c.channel).Inc()
			c.logger.Info("activity recorded",
				"record_id", id,
				"user_id", rec.UserID,
				"image_id", rec.ImageID,
				"type", rec.ActivityType,
				"status", rec.Status,
				"source_event_id", rec.SourceEventID)
			return nil
		}
		if errors.Is(err, activity.ErrDuplicate) {
			eventsDuplicate.WithLabelValues(c.channel).Inc()
			c.logger.Info("duplicate delivery ignored", "source_event_id", rec.SourceEventID)
			return nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Error("append failed", "attempt", attempt, "error", err)
	}
	return lastErr
}

// backoff is exponential in the attempt number with up to 50% jitter so
// redeliveries from a shared outage do not retry in lockstep.
func (c *ChannelConsumer) backoff(attempt int) time.Duration {
	d := c.opts.BackoffBase << (attempt - 1)
	return d + time.Duration(rand.Int63n(int64(d)/2+1))
}

func (c *ChannelConsumer) deadLetter(ctx context.Context, msg kafka.Message, reason string) bool {
	key := msg.Key
	if len(key) == 0 {
		key = []byte(c.channel)
	}
	if err := c.dlq.Publish(ctx, c.channel, key, msg.Value, reason); err != nil {
		c.logger.Error("failed to publish dead letter", "error", err)
		return false
	}
	eventsDeadLettered.WithLabelValues(c.channel).Inc()
	return true
}
