package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"

	"github.com/picshare/activity-service/internal/domain/activity"
	"github.com/picshare/activity-service/internal/domain/event"
	"github.com/picshare/activity-service/internal/schema"
)

// SeenCache is the best-effort dedup fast path. A hit means the source
// event id was ingested recently; a miss or an error proves nothing and
// the authoritative check is the ledger's unique index.
type SeenCache interface {
	Seen(ctx context.Context, sourceEventID string) (bool, error)
	Mark(ctx context.Context, sourceEventID string) error
}

// Pipeline turns one raw bus message into at most one ledger record.
type Pipeline struct {
	mapper *schema.Mapper
	ledger activity.Ledger
	seen   SeenCache
	logger *slog.Logger
}

func NewPipeline(mapper *schema.Mapper, ledger activity.Ledger, seen SeenCache, logger *slog.Logger) *Pipeline {
	return &Pipeline{
		mapper: mapper,
		ledger: ledger,
		seen:   seen,
		logger: logger,
	}
}

// Prepare decodes and normalizes a raw message received on channel. Any
// error it returns is permanent: the payload will never become decodable
// on retry, so the caller routes the message to the dead-letter channel.
func (p *Pipeline) Prepare(channel string, value []byte) (activity.Record, error) {
	var msg event.Message
	if err := json.Unmarshal(value, &msg); err != nil {
		return activity.Record{}, fmt.Errorf("%w: envelope: %v", schema.ErrMalformed, err)
	}

	kind, evt, err := p.mapper.Decode(msg)
	if err != nil {
		return activity.Record{}, err
	}

	sourceEventID := msg.ID
	if sourceEventID == "" {
		sourceEventID = fallbackSourceEventID(channel, kind, evt)
		p.logger.Warn("event missing producer-assigned id, derived fallback",
			"channel", channel, "source_event_id", sourceEventID)
	}

	return schema.Normalize(channel, sourceEventID, evt)
}

// Persist applies the idempotency guard and appends the record. A
// redelivered record resolves to a silent no-op: Persist returns
// activity.ErrDuplicate, which the caller treats as success. Any other
// error is transient and retryable.
func (p *Pipeline) Persist(ctx context.Context, rec activity.Record) (string, error) {
	if p.seen != nil {
		hit, err := p.seen.Seen(ctx, rec.SourceEventID)
		if err != nil {
			// Cache outage degrades to store-only dedup.
			p.logger.Debug("seen cache unavailable", "error", err)
		} else if hit {
			return "", activity.ErrDuplicate
		}
	}

	id, err := p.ledger.Append(ctx, rec)
	if err != nil {
		return "", err
	}

	if p.seen != nil {
		if err := p.seen.Mark(ctx, rec.SourceEventID); err != nil {
			p.logger.Debug("seen cache mark failed", "error", err)
		}
	}

	return id, nil
}

// fallbackSourceEventID derives a stable id from the fields that identify
// the fact itself. Weaker than a producer-assigned id: two genuinely
// distinct events that share key and timestamp collapse into one.
func fallbackSourceEventID(channel string, kind schema.Kind, evt any) string {
	var name string
	switch e := evt.(type) {
	case *event.LikeEvent:
		name = channel + "|" + strconv.FormatInt(e.UserID, 10) +
			"|" + strconv.FormatInt(e.ImageID, 10) +
			"|" + strconv.FormatInt(e.CreatedAt.UnixNano(), 10)
	case *event.CommentEvent:
		name = channel + "|" + strconv.FormatInt(e.UserID, 10) +
			"|" + strconv.FormatInt(e.ImageID, 10) +
			"|" + strconv.FormatInt(e.CommentID, 10) +
			"|" + strconv.FormatInt(e.CreatedAt.UnixNano(), 10)
	default:
		name = channel + "|" + string(kind)
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// IsPermanent reports whether err can never succeed on redelivery.
// Permanent failures go to the dead-letter channel; everything else is
// retried with backoff.
func IsPermanent(err error) bool {
	return errors.Is(err, schema.ErrMalformed) || errors.Is(err, schema.ErrUnknownType)
}
