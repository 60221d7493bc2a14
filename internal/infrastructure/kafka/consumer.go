package kafka

import (
	"context"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

type ConsumerConfig struct {
	Brokers []string
	Topic   string
	GroupID string
	// StartOffset applies only when the consumer group has no committed
	// offset yet. Supported: "earliest" (default), "latest".
	StartOffset string
}

type Consumer struct {
	reader *kafka.Reader
}

func NewConsumer(cfg ConsumerConfig) *Consumer {
	startOffset := kafka.FirstOffset
	if strings.EqualFold(strings.TrimSpace(cfg.StartOffset), "latest") {
		startOffset = kafka.LastOffset
	}

	dialer := &kafka.Dialer{
		Timeout:   10 * time.Second,
		DualStack: false, // Force IPv4
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     cfg.Brokers,
		Topic:       cfg.Topic,
		GroupID:     cfg.GroupID,
		MinBytes:    1,    // Process immediately
		MaxBytes:    10e6, // 10MB
		MaxWait:     1 * time.Second,
		Dialer:      dialer,
		StartOffset: startOffset,
	})
	return &Consumer{reader: r}
}

func (c *Consumer) Topic() string {
	return c.reader.Config().Topic
}

func (c *Consumer) FetchMessage(ctx context.Context) (kafka.Message, error) {
	return c.reader.FetchMessage(ctx)
}

func (c *Consumer) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	return c.reader.CommitMessages(ctx, msgs...)
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
