package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "meet_vote"

var (
	httpRequestsTotal   *prometheus.CounterVec
	pollEventsTotal     *prometheus.CounterVec
	votesProcessedTotal prometheus.Counter
	voteSelectionsTotal *prometheus.CounterVec
	registerOnce        sync.Once
)

// Register initializes Prometheus metrics on the default registry.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests processed by the API.",
		}, []string{"method", "path", "status"})

		pollEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "poll_events_total",
			Help:      "Poll lifecycle operations that succeeded, by kind.",
		}, []string{"event"})

		votesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "votes_processed_total",
			Help:      "Vote submissions handled by the vote activity worker.",
		})

		voteSelectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "vote_selections_total",
			Help:      "Submitted per-date selections, by value.",
		}, []string{"value"})
	})
}

// IncRequest increments the http_requests_total counter with the given labels.
func IncRequest(method, path string, status int) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

func IncPollEvent(event string) {
	if pollEventsTotal == nil {
		return
	}
	pollEventsTotal.WithLabelValues(event).Inc()
}

// ObserveVote counts one processed submission and its selection values.
func ObserveVote(values []string) {
	if votesProcessedTotal == nil {
		return
	}
	votesProcessedTotal.Inc()
	for _, v := range values {
		voteSelectionsTotal.WithLabelValues(v).Inc()
	}
}
