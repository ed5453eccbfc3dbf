package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"cyber-sensei-progress/internal/domain"
)

// Metrics counts progression activity. A nil *Metrics records nothing.
type Metrics struct {
	mutations           *prometheus.CounterVec
	unlocks             *prometheus.CounterVec
	claims              *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	recoveries          prometheus.Counter
}

// NewMetrics registers the progression collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Name:      "mutations_total",
			Help:      "Committed progress mutations by operation.",
		}, []string{"operation"}),
		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Name:      "achievements_unlocked_total",
			Help:      "Achievements unlocked by id.",
		}, []string{"achievement"}),
		claims: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Name:      "challenge_claims_total",
			Help:      "Daily challenge rewards claimed by challenge id.",
		}, []string{"challenge"}),
		persistenceFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "progress",
			Name:      "persistence_failures_total",
			Help:      "Dropped persistence operations by kind.",
		}, []string{"op"}),
		recoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "progress",
			Name:      "state_recoveries_total",
			Help:      "Persisted records that were unreadable and replaced with defaults.",
		}),
	}
	reg.MustRegister(m.mutations, m.unlocks, m.claims, m.persistenceFailures, m.recoveries)
	return m
}

func (m *Metrics) mutation(op string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(op).Inc()
}

func (m *Metrics) unlocked(achievements []domain.Achievement) {
	if m == nil {
		return
	}
	for _, a := range achievements {
		m.unlocks.WithLabelValues(a.ID).Inc()
	}
}

func (m *Metrics) claimed(challengeID string) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(challengeID).Inc()
}

func (m *Metrics) persistenceFailed(op string) {
	if m == nil {
		return
	}
	m.persistenceFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) recovered() {
	if m == nil {
		return
	}
	m.recoveries.Inc()
}
