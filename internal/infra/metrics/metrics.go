// Package metrics exposes prometheus collectors for the notification engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_reminder_dispatch_total",
			Help: "Notification send outcomes by channel and resulting status.",
		},
		[]string{"channel", "status"},
	)
	SendDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "case_reminder_send_duration_seconds",
			Help:    "Duration of channel adapter sends.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"channel"},
	)
	SuppressedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_reminder_suppressed_total",
			Help: "Notifications deferred by quiet hours, by channel.",
		},
		[]string{"channel"},
	)
	DedupBlockedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "case_reminder_dedup_blocked_total",
			Help: "Tuples dropped because their dedup key already fired within 24h.",
		},
	)
	DigestFlushedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "case_reminder_digest_flushed_total",
			Help: "Digests flushed, by frequency.",
		},
		[]string{"frequency"},
	)
	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "case_reminder_tick_duration_seconds",
			Help:    "Duration of a scheduler tick evaluation.",
			Buckets: prometheus.DefBuckets,
		},
	)
)
