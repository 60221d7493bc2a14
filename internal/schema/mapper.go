package schema

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/picshare/activity-service/internal/domain/event"
)

// Kind names one of the internal event shapes.
type Kind string

const (
	KindLike    Kind = "like"
	KindComment Kind = "comment"
)

// ErrUnknownType marks an external type name with no mapping entry.
// It is permanent: the message goes to the dead-letter channel, never back
// into the retry path.
var ErrUnknownType = errors.New("schema: unknown external event type")

// ErrMalformed marks a payload that does not decode into its mapped shape.
var ErrMalformed = errors.New("schema: malformed event payload")

// Mapper resolves the type names the producing services stamp on their
// envelopes to the shapes this service understands. The table is injected
// at construction; there is no implicit default beyond DefaultMappings.
type Mapper struct {
	mappings map[string]Kind
}

// DefaultMappings covers the image service's event namespace.
func DefaultMappings() map[string]Kind {
	return map[string]Kind{
		"com.picshare.imageservice.dto.event.LikeEvent":    KindLike,
		"com.picshare.imageservice.dto.event.CommentEvent": KindComment,
	}
}

func NewMapper(mappings map[string]Kind) *Mapper {
	m := make(map[string]Kind, len(mappings))
	for name, kind := range mappings {
		m[name] = kind
	}
	return &Mapper{mappings: m}
}

// Resolve returns the internal kind for an external type name.
func (m *Mapper) Resolve(externalType string) (Kind, error) {
	kind, ok := m.mappings[externalType]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, externalType)
	}
	return kind, nil
}

// Decode resolves the envelope's external type and unmarshals its payload
// into the matching internal shape (*event.LikeEvent or *event.CommentEvent).
func (m *Mapper) Decode(msg event.Message) (Kind, any, error) {
	kind, err := m.Resolve(msg.Type)
	if err != nil {
		return "", nil, err
	}

	switch kind {
	case KindLike:
		var evt event.LikeEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return kind, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return kind, &evt, nil
	case KindComment:
		var evt event.CommentEvent
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			return kind, nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return kind, &evt, nil
	default:
		return kind, nil, fmt.Errorf("%w: unmapped kind %q", ErrUnknownType, kind)
	}
}
