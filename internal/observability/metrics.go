package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "messages_received_total",
		Help:      "Total number of transport messages received",
	}, []string{"kind"})

	MessagesRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "messages_rejected_total",
		Help:      "Total number of messages rejected at the parse boundary",
	}, []string{"reason"})

	PunchesLogged = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "punches_logged_total",
		Help:      "Total number of attendance log rows written",
	}, []string{"tenant"})

	PunchesDuplicate = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "punches_duplicate_total",
		Help:      "Total number of punches flagged as repeat scans",
	}, []string{"tenant"})

	HeartbeatsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "heartbeats_processed_total",
		Help:      "Total number of device heartbeats applied",
	})

	UnknownDevices = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "unknown_devices_total",
		Help:      "Total number of events from serials no tenant owns",
	})

	CommandAcks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "attendance",
		Name:      "command_acks_total",
		Help:      "Total number of device command outcomes",
	}, []string{"outcome"})

	AckRoundTrip = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "attendance",
		Name:      "command_ack_roundtrip_seconds",
		Help:      "Latency between command publish and device acknowledgment",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	})
)
