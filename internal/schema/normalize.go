package schema

import (
	"fmt"
	"strconv"

	"github.com/picshare/activity-service/internal/domain/activity"
	"github.com/picshare/activity-service/internal/domain/event"
)

// Channel names match the Kafka topics the producing services publish to.
const (
	ChannelAddLike       = "add_like"
	ChannelRemoveLike    = "remove_like"
	ChannelCreateComment = "create_comment"
	ChannelRemoveComment = "remove_comment"
)

// Channels lists every subscribed channel in registration order.
func Channels() []string {
	return []string{ChannelAddLike, ChannelRemoveLike, ChannelCreateComment, ChannelRemoveComment}
}

var channelOutcome = map[string]struct {
	kind   Kind
	atype  activity.Type
	status activity.Status
}{
	ChannelAddLike:       {KindLike, activity.TypeLike, activity.StatusAdded},
	ChannelRemoveLike:    {KindLike, activity.TypeLike, activity.StatusRemoved},
	ChannelCreateComment: {KindComment, activity.TypeComment, activity.StatusAdded},
	ChannelRemoveComment: {KindComment, activity.TypeComment, activity.StatusRemoved},
}

// Normalize converts a typed event received on a channel into a canonical
// ledger record with no persisted id. OccurredAt is copied verbatim from
// the event's CreatedAt; wall-clock time never enters here. Comment content
// is log metadata only and is not carried onto the record.
func Normalize(channel, sourceEventID string, evt any) (activity.Record, error) {
	outcome, ok := channelOutcome[channel]
	if !ok {
		return activity.Record{}, fmt.Errorf("%w: channel %q", ErrUnknownType, channel)
	}

	rec := activity.Record{
		ActivityType:  outcome.atype,
		Status:        outcome.status,
		SourceEventID: sourceEventID,
	}

	switch e := evt.(type) {
	case *event.LikeEvent:
		if outcome.kind != KindLike {
			return activity.Record{}, fmt.Errorf("%w: like payload on channel %q", ErrMalformed, channel)
		}
		rec.UserID = strconv.FormatInt(e.UserID, 10)
		rec.ImageID = strconv.FormatInt(e.ImageID, 10)
		rec.OccurredAt = e.CreatedAt
	case *event.CommentEvent:
		if outcome.kind != KindComment {
			return activity.Record{}, fmt.Errorf("%w: comment payload on channel %q", ErrMalformed, channel)
		}
		rec.UserID = strconv.FormatInt(e.UserID, 10)
		rec.ImageID = strconv.FormatInt(e.ImageID, 10)
		rec.OccurredAt = e.CreatedAt
	default:
		return activity.Record{}, fmt.Errorf("%w: unsupported payload %T", ErrMalformed, evt)
	}

	if rec.OccurredAt.IsZero() {
		return activity.Record{}, fmt.Errorf("%w: missing createdAt", ErrMalformed)
	}

	return rec, nil
}
