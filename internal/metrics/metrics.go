// Package metrics exposes Prometheus collectors for the ingest pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FeedUpdates counts Update outcomes, labelled ok, not_modified,
	// skipped or error.
	FeedUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tvguide_feed_updates_total",
		Help: "Feed update attempts by result.",
	}, []string{"result"})

	// FeedUpdateDuration observes how long a full fetch-parse-save cycle takes.
	FeedUpdateDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "tvguide_feed_update_duration_seconds",
		Help:    "Duration of feed update cycles.",
		Buckets: prometheus.DefBuckets,
	})

	// StoredChannels holds the channel count after the last save.
	StoredChannels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvguide_channels",
		Help: "Channels currently stored.",
	})

	// StoredProgrammes holds the programme count after the last save.
	StoredProgrammes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tvguide_programmes",
		Help: "Programmes currently stored.",
	})
)
