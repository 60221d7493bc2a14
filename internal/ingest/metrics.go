package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_events_processed_total",
		Help: "The total number of events appended to the ledger",
	}, []string{"channel"})
	eventsDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_events_duplicate_total",
		Help: "The total number of redelivered events resolved as no-ops",
	}, []string{"channel"})
	eventsDeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_events_dead_lettered_total",
		Help: "The total number of events routed to the dead-letter channel",
	}, []string{"channel"})
	eventRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_event_retries_total",
		Help: "The total number of retry attempts after transient failures",
	}, []string{"channel"})
	processingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "activity_processing_duration_seconds",
		Help:    "Time taken to ingest one event",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5},
	})
)
