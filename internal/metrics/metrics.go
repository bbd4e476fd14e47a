package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xtreamrelay_upstream_requests_total",
		Help: "Upstream player_api requests by action and outcome",
	}, []string{"action", "outcome"}) // outcome=ok|unreachable|upstream_error|format_error

	upstreamDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "xtreamrelay_upstream_request_duration_seconds",
		Help:    "Upstream player_api request latency",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
	}, []string{"action"})

	connects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "xtreamrelay_connects_total",
		Help: "Session connect attempts by outcome",
	}, []string{"outcome"})

	disconnects = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xtreamrelay_disconnects_total",
		Help: "Explicit session disconnects",
	})

	sessionsSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "xtreamrelay_sessions_swept_total",
		Help: "Expired sessions removed by the sweeper",
	})

	playlistChannels = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "xtreamrelay_playlist_channels",
		Help:    "Channels written per exported playlist",
		Buckets: prometheus.ExponentialBuckets(10, 4, 7),
	})
)

// RecordUpstream records one upstream round trip. An empty action is the authenticate call.
func RecordUpstream(action, outcome string, d time.Duration) {
	if action == "" {
		action = "authenticate"
	}
	upstreamRequests.WithLabelValues(action, outcome).Inc()
	upstreamDuration.WithLabelValues(action).Observe(d.Seconds())
}

// RecordConnect records a connect attempt outcome: success or an error kind
// (validation, upstream_error, upstream_unreachable, upstream_format, store).
func RecordConnect(outcome string) {
	connects.WithLabelValues(outcome).Inc()
}

func RecordDisconnect() {
	disconnects.Inc()
}

func RecordSwept(n int) {
	if n > 0 {
		sessionsSwept.Add(float64(n))
	}
}

func RecordPlaylist(channels int) {
	playlistChannels.Observe(float64(channels))
}
