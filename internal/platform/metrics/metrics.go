package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the process-level counters for the voting surface.
// Counters only move on committed operations, so rates match ledger state.
type Collector struct {
	Registry *prometheus.Registry

	VotesCast      prometheus.Counter
	VotesChanged   prometheus.Counter
	VotesCancelled prometheus.Counter
	Tallies        prometheus.Counter
	HTTPRequests   *prometheus.CounterVec
}

func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		Registry: registry,
		VotesCast: factory.NewCounter(prometheus.CounterOpts{
			Name: "govote_votes_cast_total",
			Help: "Total number of first-time votes recorded",
		}),
		VotesChanged: factory.NewCounter(prometheus.CounterOpts{
			Name: "govote_votes_changed_total",
			Help: "Total number of votes moved between proposals",
		}),
		VotesCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "govote_votes_cancelled_total",
			Help: "Total number of votes withdrawn",
		}),
		Tallies: factory.NewCounter(prometheus.CounterOpts{
			Name: "govote_tallies_total",
			Help: "Total number of completed tallies",
		}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "govote_http_requests_total",
			Help: "HTTP requests by route and status code",
		}, []string{"route", "status"}),
	}
}
