package schema

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/picshare/activity-service/internal/domain/event"
)

func TestMapperResolve(t *testing.T) {
	m := NewMapper(DefaultMappings())

	kind, err := m.Resolve("com.picshare.imageservice.dto.event.LikeEvent")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if kind != KindLike {
		t.Fatalf("expected kind %q, got %q", KindLike, kind)
	}

	kind, err = m.Resolve("com.picshare.imageservice.dto.event.CommentEvent")
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if kind != KindComment {
		t.Fatalf("expected kind %q, got %q", KindComment, kind)
	}
}

func TestMapperResolveUnknownType(t *testing.T) {
	m := NewMapper(DefaultMappings())

	_, err := m.Resolve("com.other.service.SomethingElse")
	if !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
}

func TestMapperInjectedTable(t *testing.T) {
	m := NewMapper(map[string]Kind{"custom.LikeEvent": KindLike})

	if _, err := m.Resolve("custom.LikeEvent"); err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	// The default namespace is not implicitly present.
	if _, err := m.Resolve("com.picshare.imageservice.dto.event.LikeEvent"); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType for unmapped name, got %v", err)
	}
}

func TestMapperDecodeLike(t *testing.T) {
	m := NewMapper(DefaultMappings())
	createdAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	msg := event.Message{
		ID:      "evt-1",
		Type:    "com.picshare.imageservice.dto.event.LikeEvent",
		Payload: json.RawMessage(`{"userId":1,"imageId":10,"createdAt":"2026-03-14T09:26:53Z"}`),
	}

	kind, decoded, err := m.Decode(msg)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	if kind != KindLike {
		t.Fatalf("expected kind %q, got %q", KindLike, kind)
	}

	evt, ok := decoded.(*event.LikeEvent)
	if !ok {
		t.Fatalf("expected *event.LikeEvent, got %T", decoded)
	}
	if evt.UserID != 1 || evt.ImageID != 10 || !evt.CreatedAt.Equal(createdAt) {
		t.Fatalf("unexpected decoded event: %+v", evt)
	}
}

func TestMapperDecodeCommentWithoutContent(t *testing.T) {
	m := NewMapper(DefaultMappings())

	msg := event.Message{
		ID:      "evt-2",
		Type:    "com.picshare.imageservice.dto.event.CommentEvent",
		Payload: json.RawMessage(`{"userId":3,"imageId":30,"commentId":300,"createdAt":"2026-03-14T09:26:53Z"}`),
	}

	_, decoded, err := m.Decode(msg)
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}

	evt := decoded.(*event.CommentEvent)
	if evt.Content != nil {
		t.Fatalf("expected nil content, got %q", *evt.Content)
	}
	if evt.CommentID != 300 {
		t.Fatalf("expected comment id 300, got %d", evt.CommentID)
	}
}

func TestMapperDecodeMalformedPayload(t *testing.T) {
	m := NewMapper(DefaultMappings())

	msg := event.Message{
		Type:    "com.picshare.imageservice.dto.event.LikeEvent",
		Payload: json.RawMessage(`{"userId":"not a number"`),
	}

	if _, _, err := m.Decode(msg); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
}
