package config

import (
	"testing"
	"time"
)

func TestNewDefaults(t *testing.T) {
	cfg, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if cfg.App.Name != "activity-service" {
		t.Errorf("expected default app name %q, got %q", "activity-service", cfg.App.Name)
	}
	if cfg.Kafka.GroupID != "activity-service" {
		t.Errorf("expected default group id %q, got %q", "activity-service", cfg.Kafka.GroupID)
	}
	if cfg.Kafka.DeadLetterTopic != "activity_dead_letter" {
		t.Errorf("expected default dead letter topic, got %q", cfg.Kafka.DeadLetterTopic)
	}
	if cfg.Ingest.Lanes != 8 {
		t.Errorf("expected 8 lanes by default, got %d", cfg.Ingest.Lanes)
	}
	if cfg.Ingest.MaxRetries != 5 {
		t.Errorf("expected 5 max retries by default, got %d", cfg.Ingest.MaxRetries)
	}
	if cfg.Ingest.BackoffBase != 500*time.Millisecond {
		t.Errorf("expected 500ms backoff base, got %v", cfg.Ingest.BackoffBase)
	}
	if cfg.Ingest.SeenTTL != 24*time.Hour {
		t.Errorf("expected 24h seen TTL, got %v", cfg.Ingest.SeenTTL)
	}
}

func TestNewEnvOverrides(t *testing.T) {
	t.Setenv("KAFKA_GROUP_ID", "activity-service-staging")
	t.Setenv("KAFKA_START_OFFSET", "latest")
	t.Setenv("INGEST_LANES", "2")
	t.Setenv("INGEST_BATCH_SIZE", "1")

	cfg, err := New()
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}

	if cfg.Kafka.GroupID != "activity-service-staging" {
		t.Errorf("expected overridden group id, got %q", cfg.Kafka.GroupID)
	}
	if cfg.Kafka.StartOffset != "latest" {
		t.Errorf("expected overridden start offset, got %q", cfg.Kafka.StartOffset)
	}
	if cfg.Ingest.Lanes != 2 {
		t.Errorf("expected 2 lanes, got %d", cfg.Ingest.Lanes)
	}
	if cfg.Ingest.BatchSize != 1 {
		t.Errorf("expected batch size 1, got %d", cfg.Ingest.BatchSize)
	}
}
