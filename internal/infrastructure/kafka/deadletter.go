package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type DeadLetterConfig struct {
	Brokers []string
	Topic   string
}

// DeadLetterWriter publishes permanently unprocessable messages to the
// dead-letter topic, preserving the original value and annotating it with
// the channel it came from and the failure reason so operators can replay.
type DeadLetterWriter struct {
	writer *kafka.Writer
}

func NewDeadLetterWriter(cfg DeadLetterConfig) *DeadLetterWriter {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}

	return &DeadLetterWriter{writer: w}
}

func (w *DeadLetterWriter) Publish(ctx context.Context, channel string, key, value []byte, reason string) error {
	err := w.writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Headers: []kafka.Header{
			{Key: "origin-channel", Value: []byte(channel)},
			{Key: "reason", Value: []byte(reason)},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to write dead letter: %w", err)
	}
	return nil
}

func (w *DeadLetterWriter) Topic() string {
	return w.writer.Topic
}

func (w *DeadLetterWriter) Close() error {
	return w.writer.Close()
}
