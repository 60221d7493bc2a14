package activity

import (
	"context"
	"time"
)

type Type string

const (
	TypeLike    Type = "LIKE"
	TypeComment Type = "COMMENT"
)

type Status string

const (
	StatusAdded   Status = "ADDED"
	StatusRemoved Status = "REMOVED"
)

// Record is one immutable entry in the activity ledger. Records are only
// ever appended; history for a key is the full set of its records.
type Record struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	ImageID       string    `json:"image_id"`
	ActivityType  Type      `json:"activity_type"`
	Status        Status    `json:"status"`
	OccurredAt    time.Time `json:"occurred_at"`
	SourceEventID string    `json:"source_event_id"`
}

// Key identifies one toggled facet of user/image interaction. Many records
// share a key over time; together they form that key's history.
type Key struct {
	UserID       string
	ImageID      string
	ActivityType Type
}

func (r Record) Key() Key {
	return Key{UserID: r.UserID, ImageID: r.ImageID, ActivityType: r.ActivityType}
}

// Ledger is the append-only store of records.
type Ledger interface {
	// Append stores the record and returns its assigned id. Appending a
	// record whose SourceEventID is already stored is a no-op and returns
	// ErrDuplicate.
	Append(ctx context.Context, rec Record) (string, error)
	ExistsBySourceEventID(ctx context.Context, sourceEventID string) (bool, error)
	// QueryByKey returns all records for the key ordered by OccurredAt
	// ascending (ties broken by id).
	QueryByKey(ctx context.Context, key Key) ([]Record, error)
}

// CurrentState projects a key's history onto its present status: the status
// of the record with the greatest OccurredAt wins, regardless of the order
// the records were ingested in. The second return is false when the history
// is empty.
func CurrentState(history []Record) (Status, bool) {
	if len(history) == 0 {
		return "", false
	}
	latest := history[0]
	for _, rec := range history[1:] {
		if rec.OccurredAt.After(latest.OccurredAt) {
			latest = rec
		} else if rec.OccurredAt.Equal(latest.OccurredAt) && rec.ID > latest.ID {
			latest = rec
		}
	}
	return latest.Status, true
}
