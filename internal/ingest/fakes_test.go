package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/picshare/activity-service/internal/domain/activity"
	"github.com/picshare/activity-service/internal/domain/event"
	"github.com/picshare/activity-service/internal/schema"
)

var errStoreUnavailable = errors.New("store unavailable")

// fakeLedger is an in-memory append-only store with the same dedup
// contract as the Postgres repository.
type fakeLedger struct {
	mu       sync.Mutex
	records  []activity.Record
	bySource map[string]bool
	// failures makes the next N appends fail transiently.
	failures int
	appends  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{bySource: make(map[string]bool)}
}

func (l *fakeLedger) Append(ctx context.Context, rec activity.Record) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.appends++
	if l.failures > 0 {
		l.failures--
		return "", errStoreUnavailable
	}
	if l.bySource[rec.SourceEventID] {
		return "", activity.ErrDuplicate
	}

	rec.ID = fmt.Sprintf("rec-%03d", len(l.records)+1)
	l.bySource[rec.SourceEventID] = true
	l.records = append(l.records, rec)
	return rec.ID, nil
}

func (l *fakeLedger) ExistsBySourceEventID(ctx context.Context, sourceEventID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.bySource[sourceEventID], nil
}

func (l *fakeLedger) QueryByKey(ctx context.Context, key activity.Key) ([]activity.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []activity.Record
	for _, rec := range l.records {
		if rec.Key() == key {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OccurredAt.Equal(out[j].OccurredAt) {
			return out[i].OccurredAt.Before(out[j].OccurredAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (l *fakeLedger) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

type fakeSeen struct {
	mu  sync.Mutex
	set map[string]bool
	err error
}

func newFakeSeen() *fakeSeen {
	return &fakeSeen{set: make(map[string]bool)}
}

func (s *fakeSeen) Seen(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	return s.set[id], nil
}

func (s *fakeSeen) Mark(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.set[id] = true
	return nil
}

type dlqEntry struct {
	channel string
	reason  string
	value   []byte
}

type fakeDLQ struct {
	mu      sync.Mutex
	entries []dlqEntry
}

func (d *fakeDLQ) Publish(ctx context.Context, channel string, key, value []byte, reason string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries = append(d.entries, dlqEntry{channel: channel, reason: reason, value: value})
	return nil
}

func (d *fakeDLQ) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// fakeSource serves queued messages, then blocks until the context ends.
type fakeSource struct {
	mu      sync.Mutex
	queue   []kafka.Message
	commits []kafka.Message
}

func (s *fakeSource) push(msgs ...kafka.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = append(s.queue, msgs...)
}

func (s *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	for {
		s.mu.Lock()
		if len(s.queue) > 0 {
			msg := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			return msg, nil
		}
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return kafka.Message{}, ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (s *fakeSource) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.commits = append(s.commits, msgs...)
	return nil
}

func (s *fakeSource) committed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.commits)
}

const (
	likeType    = "com.picshare.imageservice.dto.event.LikeEvent"
	commentType = "com.picshare.imageservice.dto.event.CommentEvent"
)

func envelope(t *testing.T, id, externalType string, payload any) []byte {
	t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	value, err := json.Marshal(event.Message{
		ID:         id,
		Type:       externalType,
		OccurredAt: time.Now().UTC(),
		Payload:    raw,
	})
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return value
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPipeline(ledger activity.Ledger, seen SeenCache) *Pipeline {
	return NewPipeline(schema.NewMapper(schema.DefaultMappings()), ledger, seen, testLogger())
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met within deadline")
}
