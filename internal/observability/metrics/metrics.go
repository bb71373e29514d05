package metrics

import "github.com/prometheus/client_golang/prometheus"

// SchedulingMetrics exposes counters/histograms for scheduling flows.
type SchedulingMetrics struct {
	availabilityTotal   *prometheus.CounterVec
	candidatesGenerated prometheus.Histogram
	reservationsTotal   *prometheus.CounterVec
	transitionsTotal    *prometheus.CounterVec
	recalculationsTotal *prometheus.CounterVec
}

func NewSchedulingMetrics(reg prometheus.Registerer) *SchedulingMetrics {
	m := &SchedulingMetrics{
		availabilityTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "availability_requests_total",
			Help:      "Total availability generation requests",
		}, []string{"outcome"}),
		candidatesGenerated: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "scheduling",
			Name:      "candidates_generated",
			Help:      "Number of candidate times produced per availability request",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 40, 80},
		}),
		reservationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "reservations_total",
			Help:      "Total minute-slot reservation attempts",
		}, []string{"outcome"}),
		transitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "appointments",
			Name:      "transitions_total",
			Help:      "Total appointment status transition attempts",
		}, []string{"from", "to", "outcome"}),
		recalculationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "stats",
			Name:      "recalculations_total",
			Help:      "Total statistics recalculations",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.availabilityTotal, m.candidatesGenerated, m.reservationsTotal, m.transitionsTotal, m.recalculationsTotal)
	return m
}

func (m *SchedulingMetrics) ObserveAvailability(outcome string, candidates int) {
	if m == nil {
		return
	}
	m.availabilityTotal.WithLabelValues(outcome).Inc()
	if outcome == "ok" {
		m.candidatesGenerated.Observe(float64(candidates))
	}
}

func (m *SchedulingMetrics) ObserveReservation(outcome string) {
	if m == nil {
		return
	}
	m.reservationsTotal.WithLabelValues(outcome).Inc()
}

func (m *SchedulingMetrics) ObserveTransition(from, to, outcome string) {
	if m == nil {
		return
	}
	m.transitionsTotal.WithLabelValues(from, to, outcome).Inc()
}

func (m *SchedulingMetrics) ObserveRecalculation(kind string) {
	if m == nil {
		return
	}
	m.recalculationsTotal.WithLabelValues(kind).Inc()
}
