package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type DepinMetrics struct {
	submissions      *prometheus.CounterVec
	rewardsIssued    prometheus.Counter
	rewardsMinorUnit prometheus.Counter
	pendingCleared   prometheus.Counter
}

var (
	depinOnce     sync.Once
	depinRegistry *DepinMetrics
)

// Depin returns the process-wide metric set for the activity ledger.
func Depin() *DepinMetrics {
	depinOnce.Do(func() {
		depinRegistry = &DepinMetrics{
			submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "depin_submissions_total",
				Help: "Count of activity submissions by outcome.",
			}, []string{"result"}),
			rewardsIssued: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "depin_rewards_issued_total",
				Help: "Count of verified submissions rewarded.",
			}),
			rewardsMinorUnit: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "depin_rewards_minor_units_total",
				Help: "Total reward volume minted in minor units.",
			}),
			pendingCleared: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "depin_pending_cleared_total",
				Help: "Count of pending verification flags cleared.",
			}),
		}
		prometheus.MustRegister(
			depinRegistry.submissions,
			depinRegistry.rewardsIssued,
			depinRegistry.rewardsMinorUnit,
			depinRegistry.pendingCleared,
		)
	})
	return depinRegistry
}

// RecordSubmission increments the submission counter for the given outcome
// label ("accepted" or a rejection reason).
func (m *DepinMetrics) RecordSubmission(result string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(result).Inc()
}

// RecordReward tracks one verified submission paying out the given amount.
func (m *DepinMetrics) RecordReward(amount uint64) {
	if m == nil {
		return
	}
	m.rewardsIssued.Inc()
	m.rewardsMinorUnit.Add(float64(amount))
	m.pendingCleared.Inc()
}
