package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters for booking flows. All observe methods
// are nil-safe so wiring metrics stays optional in tests and workers.
type SchedulingMetrics struct {
	bookingsTotal    *prometheus.CounterVec
	slotConflicts    prometheus.Counter
	policyRejections *prometheus.CounterVec
	followupSweeps   prometheus.Counter
	noShowsMarked    prometheus.Counter
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "scheduling",
			Name:      "operations_total",
			Help:      "Total scheduling operations by kind and outcome",
		}, []string{"operation", "outcome"}),
		slotConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "scheduling",
			Name:      "slot_conflicts_total",
			Help:      "Total bookings rejected because the slot was taken",
		}),
		policyRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "scheduling",
			Name:      "policy_rejections_total",
			Help:      "Total operations rejected by a lifecycle guard",
		}, []string{"rule"}),
		followupSweeps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "scheduling",
			Name:      "followup_sweeps_total",
			Help:      "Total follow-up worker sweeps",
		}),
		noShowsMarked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "careloop",
			Subsystem: "scheduling",
			Name:      "no_shows_marked_total",
			Help:      "Total appointments the worker closed as no_show",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.bookingsTotal, m.slotConflicts, m.policyRejections, m.followupSweeps, m.noShowsMarked)
	return m
}

func (m *SchedulingMetrics) ObserveOperation(operation, outcome string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(operation, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveSlotConflict() {
	if m == nil {
		return
	}
	m.slotConflicts.Inc()
}

func (m *SchedulingMetrics) ObservePolicyRejection(rule string) {
	if m == nil {
		return
	}
	m.policyRejections.WithLabelValues(rule).Inc()
}

func (m *SchedulingMetrics) ObserveSweep(noShows int) {
	if m == nil {
		return
	}
	m.followupSweeps.Inc()
	m.noShowsMarked.Add(float64(noShows))
}
