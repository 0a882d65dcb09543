package ingest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rfp",
		Subsystem: "ingest",
		Name:      "messages_processed_total",
		Help:      "Candidate messages examined by ingestion runs.",
	})

	proposalsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rfp",
		Subsystem: "ingest",
		Name:      "proposals_created_total",
		Help:      "Proposals created from ingested messages.",
	})

	messagesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rfp",
		Subsystem: "ingest",
		Name:      "messages_skipped_total",
		Help:      "Messages skipped because a proposal already existed.",
	})

	messageErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rfp",
		Subsystem: "ingest",
		Name:      "message_errors_total",
		Help:      "Messages that failed correlation, extraction, or persistence.",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "rfp",
		Subsystem: "ingest",
		Name:      "run_duration_seconds",
		Help:      "Wall time of full ingestion runs.",
		Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
	})
)
