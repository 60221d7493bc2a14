package ingest

import (
	"context"
	"log/slog"
	"sync"
)

// Binding ties a channel name to the bus source that drains it. All
// subscriptions are registered here at startup; there is no declarative
// binding hidden elsewhere.
type Binding struct {
	Channel string
	Source  MessageSource
}

// Service runs one ChannelConsumer per binding over a shared lane pool, so
// same-key events arriving on different channels (add_like vs remove_like)
// still serialize onto one lane.
type Service struct {
	consumers []*ChannelConsumer
	lanes     *LanePool
	logger    *slog.Logger
}

func NewService(bindings []Binding, pipeline *Pipeline, dlq DeadLetterer, lanes int, opts Options, logger *slog.Logger) *Service {
	pool := NewLanePool(lanes)

	consumers := make([]*ChannelConsumer, 0, len(bindings))
	for _, b := range bindings {
		consumers = append(consumers, NewChannelConsumer(b.Channel, b.Source, pipeline, pool, dlq, opts, logger))
	}

	return &Service{
		consumers: consumers,
		lanes:     pool,
		logger:    logger,
	}
}

// Run blocks until ctx is cancelled and every consumer has drained its
// in-flight work. Uncommitted messages are redelivered by the bus.
func (s *Service) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, c := range s.consumers {
		wg.Add(1)
		go func(c *ChannelConsumer) {
			defer wg.Done()
			c.Run(ctx)
		}(c)
	}
	wg.Wait()
	s.lanes.Close()
	s.logger.Info("ingest service stopped")
}
