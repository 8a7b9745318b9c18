// Package metrics defines the Prometheus collectors of the UAV policy xApp
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/thc1006/O-RAN-UAV-Path-Aware-Policy/pkg/models"
)

const namespace = "uav_xapp"

// Metrics holds the xApp collectors
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	DecisionsTotal    *prometheus.CounterVec
	PRBQuota          prometheus.Histogram
	HistorySize       prometheus.Gauge
	StreamSubscribers prometheus.Gauge
	RCForwardTotal    *prometheus.CounterVec
	FlightPlansLoaded *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg leaves
// them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of HTTP requests to the xApp",
			},
			[]string{"method", "endpoint", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "Duration of xApp HTTP requests",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		DecisionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "decisions_total",
				Help:      "Resource decisions by outcome",
			},
			[]string{"outcome", "plan"},
		),
		PRBQuota: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prb_quota",
				Help:      "Distribution of decided PRB quotas",
				Buckets:   []float64{5, 10, 20, 30, 50, 75, 100},
			},
		),
		HistorySize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "decision_history_size",
				Help:      "Number of decisions retained in the history",
			},
		),
		StreamSubscribers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stream_subscribers",
				Help:      "Connected decision stream subscribers",
			},
		),
		RCForwardTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rc_forward_total",
				Help:      "Decisions forwarded to the RC endpoint by result",
			},
			[]string{"result"},
		),
		FlightPlansLoaded: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "flight_plan_lookups_total",
				Help:      "Flight plan resolution per indication by source",
			},
			[]string{"source"},
		),
	}

	if reg != nil {
		reg.MustRegister(
			m.RequestsTotal,
			m.RequestDuration,
			m.DecisionsTotal,
			m.PRBQuota,
			m.HistorySize,
			m.StreamSubscribers,
			m.RCForwardTotal,
			m.FlightPlansLoaded,
		)
	}
	return m
}

// ObserveRequest records one HTTP request
func (m *Metrics) ObserveRequest(method, endpoint, status string, d time.Duration) {
	m.RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	m.RequestDuration.WithLabelValues(endpoint).Observe(d.Seconds())
}

// ObserveDecision records a decision; servingCell is the cell serving the
// UAV when the decision was taken
func (m *Metrics) ObserveDecision(d models.ResourceDecision, servingCell string, withPlan bool) {
	outcome := "stay"
	if d.TargetCellID != servingCell {
		outcome = "handover"
	}
	plan := "absent"
	if withPlan {
		plan = "present"
	}
	m.DecisionsTotal.WithLabelValues(outcome, plan).Inc()
	if d.PRBQuota != nil {
		m.PRBQuota.Observe(float64(*d.PRBQuota))
	}
}
