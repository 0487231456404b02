package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/longsangsabo2025/sabo-arena/internal/bracket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sabo_arena"

// Metrics owns a private registry so tests can build as many as they like.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	operations       *prometheus.HistogramVec
	matchesCompleted *prometheus.CounterVec
	tournaments      *prometheus.CounterVec
	settlements      *prometheus.CounterVec
	cacheLookups     *prometheus.CounterVec
	events           *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		operations: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of engine and settlement operations by outcome.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "outcome"}),
		matchesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_completed_total",
			Help:      "Matches decided, by how they were decided.",
		}, []string{"result"}),
		tournaments: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tournament_transitions_total",
			Help:      "Tournament status transitions.",
		}, []string{"status"}),
		settlements: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "settlements_total",
			Help:      "Settlement attempts by result.",
		}, []string{"result"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_cache_lookups_total",
			Help:      "Snapshot cache lookups by result.",
		}, []string{"result"}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Notification events by topic and result.",
		}, []string{"topic", "result"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Outcome classifies an error into a low-cardinality label.
func Outcome(err error) string {
	var corr *bracket.CorrectionConflictError
	switch {
	case err == nil:
		return "ok"
	case bracket.IsValidation(err):
		return "invalid"
	case errors.As(err, &corr):
		return "correction_conflict"
	case bracket.IsStateConflict(err):
		return "conflict"
	case bracket.IsStructural(err):
		return "structural"
	}
	return "error"
}

func (m *Metrics) ObserveOperation(op string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, Outcome(err)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) MatchCompleted(match bracket.Match) {
	if m == nil {
		return
	}
	result := "score"
	switch {
	case match.IsBye:
		result = "bye"
	case match.Status == bracket.MatchWalkover:
		result = "walkover"
	}
	m.matchesCompleted.WithLabelValues(result).Inc()
}

func (m *Metrics) TournamentTransition(status bracket.TournamentStatus) {
	if m == nil {
		return
	}
	m.tournaments.WithLabelValues(string(status)).Inc()
}

func (m *Metrics) Settlement(result string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(result).Inc()
}

func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) EventPublished(topic string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.events.WithLabelValues(topic, result).Inc()
}
