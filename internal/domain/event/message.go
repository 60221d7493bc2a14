package event

import (
	"encoding/json"
	"time"
)

// Message is the envelope the producing services publish to Kafka.
// Payload is kept as raw JSON; Type carries the producer's own type name
// and is resolved through the schema mapping table.
type Message struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Producer   string          `json:"producer,omitempty"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// LikeEvent is the internal shape of a like/unlike payload. Whether it
// means add or remove is carried by the channel, not the payload.
type LikeEvent struct {
	UserID    int64     `json:"userId"`
	ImageID   int64     `json:"imageId"`
	CreatedAt time.Time `json:"createdAt"`
}

// CommentEvent is the internal shape of a comment create/remove payload.
// Content is optional; removal events usually omit it.
type CommentEvent struct {
	UserID    int64     `json:"userId"`
	ImageID   int64     `json:"imageId"`
	CommentID int64     `json:"commentId"`
	Content   *string   `json:"content,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
